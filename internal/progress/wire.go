package progress

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DocumentVersion is the current progress document format.
const DocumentVersion = 1

// TaskState is the persisted marker of a single task. Only these three
// values exist on the wire.
type TaskState string

const (
	TaskDone    TaskState = "done"
	TaskFailed  TaskState = "failed"
	TaskStarted TaskState = "started"
)

func (t TaskState) valid() bool {
	switch t {
	case TaskDone, TaskFailed, TaskStarted:
		return true
	}
	return false
}

func (t TaskState) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("invalid task state %q", string(t))
	}
	return []byte(t), nil
}

func (t *TaskState) UnmarshalText(b []byte) error {
	v := TaskState(b)
	if !v.valid() {
		return fmt.Errorf("invalid task state %q", string(b))
	}
	*t = v
	return nil
}

// TaskEntry is the per-task record in a Document.
type TaskEntry struct {
	State TaskState `json:"state"`
}

// Document is the persisted form of a State.
type Document struct {
	Version    int                  `json:"version"`
	Tasks      map[string]TaskEntry `json:"tasks"`
	Objectives map[string]bool      `json:"objectives,omitempty"`
}

// Encode converts a State to its document form. A task carrying more than
// one marker is written with the strongest one: done, then failed, then
// started.
func Encode(s State) Document {
	doc := Document{
		Version: DocumentVersion,
		Tasks:   make(map[string]TaskEntry),
	}
	for id, ok := range s.InProgress {
		if ok {
			doc.Tasks[id] = TaskEntry{State: TaskStarted}
		}
	}
	for id, ok := range s.Failed {
		if ok {
			doc.Tasks[id] = TaskEntry{State: TaskFailed}
		}
	}
	for id, ok := range s.Completed {
		if ok {
			doc.Tasks[id] = TaskEntry{State: TaskDone}
		}
	}
	for k, ok := range s.Objectives {
		if !ok {
			continue
		}
		if doc.Objectives == nil {
			doc.Objectives = make(map[string]bool)
		}
		doc.Objectives[k] = true
	}
	return doc
}

// Decode converts a document back into a State.
func Decode(doc Document) (State, error) {
	if doc.Version > DocumentVersion {
		return State{}, fmt.Errorf("progress document version %d is newer than supported %d", doc.Version, DocumentVersion)
	}
	s := NewState()

	ids := make([]string, 0, len(doc.Tasks))
	for id := range doc.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		switch doc.Tasks[id].State {
		case TaskDone:
			s.Completed[id] = true
		case TaskFailed:
			s.Failed[id] = true
		case TaskStarted:
			s.InProgress[id] = true
		default:
			return State{}, fmt.Errorf("task %q: invalid task state %q", id, doc.Tasks[id].State)
		}
	}
	for k, ok := range doc.Objectives {
		if _, _, valid := SplitObjectiveKey(k); !valid {
			return State{}, fmt.Errorf("invalid objective key %q", k)
		}
		if ok {
			s.Objectives[k] = true
		}
	}
	return s, nil
}

// Marshal encodes a State as JSON.
func Marshal(s State) ([]byte, error) {
	return json.Marshal(Encode(s))
}

// Unmarshal decodes JSON produced by Marshal.
func Unmarshal(data []byte) (State, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("decode progress document: %w", err)
	}
	return Decode(doc)
}
