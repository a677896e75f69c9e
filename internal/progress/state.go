package progress

import (
	"maps"
	"strconv"
	"strings"
)

// State is the persisted, explicit progress of the player. Maps only hold
// true entries. Derived statuses (locked, active, level locked) are never
// stored here.
type State struct {
	Completed  map[string]bool
	InProgress map[string]bool
	Failed     map[string]bool
	Objectives map[string]bool // keyed by ObjectiveKey
}

// NewState returns an empty State.
func NewState() State {
	return State{
		Completed:  make(map[string]bool),
		InProgress: make(map[string]bool),
		Failed:     make(map[string]bool),
		Objectives: make(map[string]bool),
	}
}

// ObjectiveKey builds the "taskID:objectiveIndex" key used for objective flags.
func ObjectiveKey(taskID string, index int) string {
	return taskID + ":" + strconv.Itoa(index)
}

// SplitObjectiveKey reverses ObjectiveKey. Task ids may themselves contain
// colons, so the index is taken after the last one.
func SplitObjectiveKey(key string) (string, int, bool) {
	i := strings.LastIndexByte(key, ':')
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return key[:i], n, true
}

func (s State) IsCompleted(id string) bool  { return s.Completed[id] }
func (s State) IsFailed(id string) bool     { return s.Failed[id] }
func (s State) IsInProgress(id string) bool { return s.InProgress[id] }

// IsObjectiveCompleted reports the flag for one objective.
func (s State) IsObjectiveCompleted(taskID string, index int) bool {
	return s.Objectives[ObjectiveKey(taskID, index)]
}

// Clone returns a deep copy with non-nil maps.
func (s State) Clone() State {
	out := NewState()
	maps.Copy(out.Completed, s.Completed)
	maps.Copy(out.InProgress, s.InProgress)
	maps.Copy(out.Failed, s.Failed)
	maps.Copy(out.Objectives, s.Objectives)
	return out
}

// Equal compares two states by their true entries.
func (s State) Equal(o State) bool {
	return sameSet(s.Completed, o.Completed) &&
		sameSet(s.InProgress, o.InProgress) &&
		sameSet(s.Failed, o.Failed) &&
		sameSet(s.Objectives, o.Objectives)
}

func sameSet(a, b map[string]bool) bool {
	count := 0
	for k, v := range a {
		if !v {
			continue
		}
		if !b[k] {
			return false
		}
		count++
	}
	for _, v := range b {
		if v {
			count--
		}
	}
	return count == 0
}

// setCompleted and setFailed keep the terminal markers mutually exclusive.
func (s State) setCompleted(id string) {
	s.Completed[id] = true
	delete(s.Failed, id)
	delete(s.InProgress, id)
}

func (s State) setFailed(id string) {
	s.Failed[id] = true
	delete(s.Completed, id)
	delete(s.InProgress, id)
}

func (s State) clear(id string) {
	delete(s.Completed, id)
	delete(s.Failed, id)
	delete(s.InProgress, id)
}
