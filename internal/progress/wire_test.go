package progress

import (
	"encoding/json"
	"testing"
)

func TestMarshalRoundTrip(t *testing.T) {
	s := NewState()
	s.Completed["a"] = true
	s.Failed["b"] = true
	s.InProgress["c"] = true
	s.Objectives[ObjectiveKey("a", 0)] = true
	s.Objectives[ObjectiveKey("ns:task", 3)] = true

	b, err := Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(s) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, s)
	}
}

func TestEncode_UsesTaggedStates(t *testing.T) {
	s := NewState()
	s.Completed["a"] = true
	s.InProgress["a"] = true
	s.Failed["b"] = true

	doc := Encode(s)
	if doc.Tasks["a"].State != TaskDone {
		t.Errorf("a = %q, want done", doc.Tasks["a"].State)
	}
	if doc.Tasks["b"].State != TaskFailed {
		t.Errorf("b = %q, want failed", doc.Tasks["b"].State)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"version":1,"tasks":{"a":{"state":"done"},"b":{"state":"failed"}}}`
	if string(raw) != want {
		t.Errorf("json = %s, want %s", raw, want)
	}
}

func TestUnmarshal_RejectsDerivedStates(t *testing.T) {
	tests := []string{
		`{"version":1,"tasks":{"a":{"state":"locked"}}}`,
		`{"version":1,"tasks":{"a":{"state":"active"}}}`,
		`{"version":1,"tasks":{},"objectives":{"nokey":true}}`,
		`{"version":9,"tasks":{}}`,
		`not json`,
	}
	for _, doc := range tests {
		if _, err := Unmarshal([]byte(doc)); err == nil {
			t.Errorf("Unmarshal(%s): expected error", doc)
		}
	}
}

func TestMarshalText_RejectsUnknown(t *testing.T) {
	if _, err := TaskState("levellocked").MarshalText(); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestSplitObjectiveKey(t *testing.T) {
	tests := []struct {
		key   string
		id    string
		index int
		ok    bool
	}{
		{"task:2", "task", 2, true},
		{"ns:task:10", "ns:task", 10, true},
		{"task", "", 0, false},
		{":1", "", 0, false},
		{"task:-1", "", 0, false},
		{"task:x", "", 0, false},
	}
	for _, tt := range tests {
		id, idx, ok := SplitObjectiveKey(tt.key)
		if id != tt.id || idx != tt.index || ok != tt.ok {
			t.Errorf("SplitObjectiveKey(%q) = (%q, %d, %v), want (%q, %d, %v)", tt.key, id, idx, ok, tt.id, tt.index, tt.ok)
		}
	}
}

func TestStateEqualIgnoresFalseEntries(t *testing.T) {
	a := NewState()
	b := NewState()
	a.Completed["x"] = true
	b.Completed["x"] = true
	b.Failed["y"] = false
	if !a.Equal(b) {
		t.Error("false entries should not affect equality")
	}
	b.Failed["y"] = true
	if a.Equal(b) {
		t.Error("states differ")
	}
}
