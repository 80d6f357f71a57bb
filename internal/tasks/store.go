// Package tasks implements the ordered, durable to-do collection.
package tasks

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"darling/internal/domain"
	"darling/internal/ports"
)

// StorageKey is the blob key holding the serialized collection.
const StorageKey = "tasks"

// ErrEmptyText is returned when a task would be stored without text.
var ErrEmptyText = errors.New("task text is empty")

// Store is the task collection. The whole collection is written to the blob
// store after every mutation, before the mutating call returns.
type Store struct {
	mu       sync.RWMutex
	tasks    []domain.Task
	filter   domain.Filter
	blobs    ports.BlobStore
	newID    func() string
	onChange func(domain.TaskView)
	log      zerolog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUIDv7 id source.
func WithIDGenerator(next func() string) Option {
	return func(s *Store) { s.newID = next }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Load reads the persisted collection. A missing key yields an empty list.
func Load(blobs ports.BlobStore, opts ...Option) (*Store, error) {
	s := &Store{
		filter: domain.FilterAll,
		blobs:  blobs,
		newID:  newTaskID,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, ok, err := blobs.Get(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if ok {
		loaded, err := Decode(data)
		if err != nil {
			return nil, err
		}
		s.tasks = loaded
	}
	s.log.Debug().Int("count", len(s.tasks)).Msg("tasks loaded")
	return s, nil
}

func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// OnChange registers a callback invoked after every mutation or filter change.
func (s *Store) OnChange(fn func(domain.TaskView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Add appends a task with trimmed text.
func (s *Store) Add(text string) (domain.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Task{}, ErrEmptyText
	}

	s.mu.Lock()
	task := domain.Task{ID: s.newID(), Text: text}
	next := append(cloneTasks(s.tasks), task)
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return domain.Task{}, err
	}
	s.mu.Unlock()

	s.log.Info().Str("id", task.ID).Msg("task added")
	s.notify()
	return task, nil
}

// Toggle flips the completion flag.
func (s *Store) Toggle(id string) error {
	return s.update(id, func(task *domain.Task) bool {
		task.Completed = !task.Completed
		return true
	})
}

// SetCompleted sets the completion flag; an unchanged task is not rewritten.
func (s *Store) SetCompleted(id string, completed bool) error {
	return s.update(id, func(task *domain.Task) bool {
		if task.Completed == completed {
			return false
		}
		task.Completed = completed
		return true
	})
}

// SetText replaces the task text; blank text leaves the task untouched.
func (s *Store) SetText(id string, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	return s.update(id, func(task *domain.Task) bool {
		if task.Text == text {
			return false
		}
		task.Text = text
		return true
	})
}

// Remove deletes the task with id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	index := s.indexLocked(id)
	if index < 0 {
		s.mu.Unlock()
		return nil
	}
	next := make([]domain.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:index]...)
	next = append(next, s.tasks[index+1:]...)
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.log.Info().Str("id", id).Msg("task removed")
	s.notify()
	return nil
}

// RemoveCompleted deletes every completed task and returns how many went.
// Nothing is written when no task is completed.
func (s *Store) RemoveCompleted() (int, error) {
	s.mu.Lock()
	next := make([]domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if !task.Completed {
			next = append(next, task)
		}
	}
	removed := len(s.tasks) - len(next)
	if removed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.mu.Unlock()

	s.log.Info().Int("removed", removed).Msg("completed tasks cleared")
	s.notify()
	return removed, nil
}

// SetFilter changes which tasks are visible.
func (s *Store) SetFilter(filter domain.Filter) {
	if _, ok := domain.ParseFilter(string(filter)); !ok {
		filter = domain.FilterAll
	}
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.notify()
}

// Filter returns the active filter.
func (s *Store) Filter() domain.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// All returns a copy of every task in order.
func (s *Store) All() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

// Visible returns the tasks matching the active filter, in order.
func (s *Store) Visible() []domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibleLocked()
}

// At returns the index-th visible task (0-based).
func (s *Store) At(index int) (domain.Task, bool) {
	visible := s.Visible()
	if index < 0 || index >= len(visible) {
		return domain.Task{}, false
	}
	return visible[index], true
}

// CountIncomplete returns how many tasks are still open.
func (s *Store) CountIncomplete() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, task := range s.tasks {
		if !task.Completed {
			count++
		}
	}
	return count
}

// HasCompleted reports whether any task is completed.
func (s *Store) HasCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, task := range s.tasks {
		if task.Completed {
			return true
		}
	}
	return false
}

// View renders the visible list with its summary line.
func (s *Store) View() domain.TaskView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// Summary renders the "N tasks left" counter.
func Summary(incomplete int) string {
	if incomplete == 1 {
		return "1 task left"
	}
	return fmt.Sprintf("%d tasks left", incomplete)
}

func (s *Store) update(id string, mutate func(*domain.Task) bool) error {
	s.mu.Lock()
	index := s.indexLocked(id)
	if index < 0 {
		s.mu.Unlock()
		return nil
	}
	next := cloneTasks(s.tasks)
	if !mutate(&next[index]) {
		s.mu.Unlock()
		return nil
	}
	if err := s.commitLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.log.Info().Str("id", id).Msg("task updated")
	s.notify()
	return nil
}

// commitLocked persists next and only then makes it current.
func (s *Store) commitLocked(next []domain.Task) error {
	data, err := Encode(next)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(StorageKey, data); err != nil {
		s.log.Error().Err(err).Msg("persist tasks failed")
		return fmt.Errorf("persist tasks: %w", err)
	}
	s.tasks = next
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, task := range s.tasks {
		if task.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) visibleLocked() []domain.Task {
	out := make([]domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if s.filter.Matches(task) {
			out = append(out, task)
		}
	}
	return out
}

func (s *Store) viewLocked() domain.TaskView {
	incomplete := 0
	for _, task := range s.tasks {
		if !task.Completed {
			incomplete++
		}
	}
	return domain.TaskView{
		Filter:  s.filter,
		Tasks:   s.visibleLocked(),
		Summary: Summary(incomplete),
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	view := s.viewLocked()
	s.mu.RUnlock()
	if fn != nil {
		fn(view)
	}
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out
}
