package tasks

import (
	"encoding/json"
	"fmt"
	"strings"

	"darling/internal/domain"
)

// Encode serializes tasks as a JSON array of {id, text, completed} in order.
func Encode(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	return data, nil
}

// Decode parses a persisted task collection. Records with an empty id or
// text are dropped; duplicate ids keep their first occurrence.
func Decode(data []byte) ([]domain.Task, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var raw []record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]domain.Task, 0, len(raw))
	for _, rec := range raw {
		task := domain.Task{
			ID:        decodeID(rec.ID),
			Text:      strings.TrimSpace(rec.Text),
			Completed: rec.Completed,
		}
		if task.ID == "" || task.Text == "" {
			continue
		}
		if _, dup := seen[task.ID]; dup {
			continue
		}
		seen[task.ID] = struct{}{}
		out = append(out, task)
	}
	return out, nil
}

// record accepts numeric ids written by older clients alongside string ids.
type record struct {
	ID        json.RawMessage `json:"id"`
	Text      string          `json:"text"`
	Completed bool            `json:"completed"`
}

func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	return ""
}
