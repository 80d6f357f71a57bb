package tasks

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darling/internal/domain"
	"darling/internal/storage"
)

func TestLoadMissingKeyYieldsEmptyList(t *testing.T) {
	t.Parallel()

	store, err := Load(storage.NewMemoryStore())
	require.NoError(t, err)
	assert.Empty(t, store.All())
	assert.Equal(t, domain.FilterAll, store.Filter())
	assert.Equal(t, "0 tasks left", store.View().Summary)
}

func TestAddPersistsBeforeReturning(t *testing.T) {
	t.Parallel()

	blobs := storage.NewMemoryStore()
	store, err := Load(blobs, WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	task, err := store.Add("  buy milk  ")
	require.NoError(t, err)
	assert.Equal(t, domain.Task{ID: "task-1", Text: "buy milk"}, task)

	data, ok, err := blobs.Get(StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"task-1","text":"buy milk","completed":false}]`, string(data))

	reloaded, err := Load(blobs)
	require.NoError(t, err)
	assert.Equal(t, store.All(), reloaded.All())
}

func TestAddRejectsBlankText(t *testing.T) {
	t.Parallel()

	store, err := Load(storage.NewMemoryStore())
	require.NoError(t, err)

	_, err = store.Add("   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, store.All())
}

func TestDefaultIDsAreUnique(t *testing.T) {
	t.Parallel()

	store, err := Load(storage.NewMemoryStore())
	require.NoError(t, err)

	first, err := store.Add("one")
	require.NoError(t, err)
	second, err := store.Add("two")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestToggleSetCompletedAndSetText(t *testing.T) {
	t.Parallel()

	store, err := Load(storage.NewMemoryStore(), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	task, err := store.Add("write report")
	require.NoError(t, err)

	require.NoError(t, store.Toggle(task.ID))
	assert.True(t, store.All()[0].Completed)
	require.NoError(t, store.Toggle(task.ID))
	assert.False(t, store.All()[0].Completed)

	require.NoError(t, store.SetCompleted(task.ID, true))
	require.NoError(t, store.SetCompleted(task.ID, true))
	assert.True(t, store.All()[0].Completed)

	require.NoError(t, store.SetText(task.ID, " write final report "))
	assert.Equal(t, "write final report", store.All()[0].Text)
	assert.ErrorIs(t, store.SetText(task.ID, " "), ErrEmptyText)
	assert.Equal(t, "write final report", store.All()[0].Text)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	t.Parallel()

	blobs := &countingBlobs{inner: storage.NewMemoryStore()}
	store, err := Load(blobs)
	require.NoError(t, err)

	require.NoError(t, store.Toggle("missing"))
	require.NoError(t, store.SetCompleted("missing", true))
	require.NoError(t, store.SetText("missing", "text"))
	require.NoError(t, store.Remove("missing"))
	assert.Equal(t, 0, blobs.puts)
}

func TestFilteredViewAndIndexing(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "A", "B", "C")
	all := store.All()
	require.NoError(t, store.SetCompleted(all[1].ID, true))

	store.SetFilter(domain.FilterActive)
	visible := store.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, "A", visible[0].Text)
	assert.Equal(t, "C", visible[1].Text)

	task, ok := store.At(1)
	require.True(t, ok)
	assert.Equal(t, "C", task.Text)
	_, ok = store.At(2)
	assert.False(t, ok)
	_, ok = store.At(-1)
	assert.False(t, ok)

	store.SetFilter(domain.FilterCompleted)
	task, ok = store.At(0)
	require.True(t, ok)
	assert.Equal(t, "B", task.Text)

	store.SetFilter(domain.Filter("bogus"))
	assert.Equal(t, domain.FilterAll, store.Filter())
	assert.Len(t, store.Visible(), 3)
}

func TestRemoveCompletedWithNoneCompletedDoesNotWrite(t *testing.T) {
	t.Parallel()

	blobs := &countingBlobs{inner: storage.NewMemoryStore()}
	store, err := Load(blobs)
	require.NoError(t, err)
	_, err = store.Add("A")
	require.NoError(t, err)
	puts := blobs.puts

	removed, err := store.RemoveCompleted()
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, puts, blobs.puts)
	assert.Len(t, store.All(), 1)
}

func TestRemoveCompletedKeepsOrder(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "A", "B", "C", "D")
	all := store.All()
	require.NoError(t, store.SetCompleted(all[0].ID, true))
	require.NoError(t, store.SetCompleted(all[2].ID, true))
	assert.True(t, store.HasCompleted())

	removed, err := store.RemoveCompleted()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"B", "D"}, texts(store.All()))
	assert.False(t, store.HasCompleted())
}

func TestRemoveDeletesSingleTask(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "A", "B", "C")
	require.NoError(t, store.Remove(store.All()[1].ID))
	assert.Equal(t, []string{"A", "C"}, texts(store.All()))
}

func TestPersistFailureLeavesCollectionUnchanged(t *testing.T) {
	t.Parallel()

	blobs := &countingBlobs{inner: storage.NewMemoryStore()}
	store, err := Load(blobs)
	require.NoError(t, err)
	_, err = store.Add("A")
	require.NoError(t, err)

	blobs.failPut = errors.New("disk full")
	_, err = store.Add("B")
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{"A"}, texts(store.All()))
}

func TestSummaryAndOnChange(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0 tasks left", Summary(0))
	assert.Equal(t, "1 task left", Summary(1))
	assert.Equal(t, "3 tasks left", Summary(3))

	store, err := Load(storage.NewMemoryStore())
	require.NoError(t, err)
	var views []domain.TaskView
	store.OnChange(func(view domain.TaskView) { views = append(views, view) })

	_, err = store.Add("A")
	require.NoError(t, err)
	store.SetFilter(domain.FilterCompleted)

	require.Len(t, views, 2)
	assert.Equal(t, "1 task left", views[0].Summary)
	assert.Len(t, views[0].Tasks, 1)
	assert.Equal(t, domain.FilterCompleted, views[1].Filter)
	assert.Empty(t, views[1].Tasks)
	assert.Equal(t, 1, store.CountIncomplete())
}

func seededStore(t *testing.T, texts ...string) *Store {
	t.Helper()
	store, err := Load(storage.NewMemoryStore(), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	for _, text := range texts {
		_, err := store.Add(text)
		require.NoError(t, err)
	}
	return store
}

func sequentialIDs() func() string {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("task-%d", next)
	}
}

func texts(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Text)
	}
	return out
}

type countingBlobs struct {
	inner   *storage.MemoryStore
	puts    int
	failPut error
}

func (b *countingBlobs) Get(key string) ([]byte, bool, error) {
	return b.inner.Get(key)
}

func (b *countingBlobs) Put(key string, value []byte) error {
	if b.failPut != nil {
		return b.failPut
	}
	b.puts++
	return b.inner.Put(key, value)
}

func (b *countingBlobs) Close() error {
	return b.inner.Close()
}
