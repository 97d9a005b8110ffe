package gtd

import (
	"encoding/json"
	"testing"
)

// record builds a record from alternating key/value pairs
func record(t *testing.T, pairs ...any) Record {
	t.Helper()
	var r Record
	for i := 0; i+1 < len(pairs); i += 2 {
		var err error
		if r, err = r.Set(pairs[i].(string), pairs[i+1]); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	return r
}

func TestRecord_RoundTripKeepsOrder(t *testing.T) {
	in := `{"title":"Ship it","id":"p1","goalId":"g1","color":"#ff0000","meta":{"b":1,"a":2}}`

	var r Record
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != in {
		t.Errorf("Expected %s, got %s", in, out)
	}
}

func TestRecord_RejectsNonObjects(t *testing.T) {
	for _, in := range []string{`[]`, `"g1"`, `42`, `true`, `{"id":"a"} {}`} {
		if _, err := parseObject([]byte(in)); err == nil {
			t.Errorf("Expected error for %s", in)
		}
	}
}

func TestRecord_NullIsNoop(t *testing.T) {
	r := record(t, "id", "g1")
	if err := r.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("Expected null to be accepted, got %v", err)
	}
	if r.Ref(FieldID) != "g1" {
		t.Errorf("Expected record unchanged, got %v", r.Keys())
	}
}

func TestRecord_DuplicateKeys(t *testing.T) {
	r, err := parseObject([]byte(`{"id":"a","name":"x","id":"b"}`))
	if err != nil {
		t.Fatalf("parseObject failed: %v", err)
	}
	if got := r.Keys(); len(got) != 2 || got[0] != "id" || got[1] != "name" {
		t.Errorf("Expected keys [id name], got %v", got)
	}
	if r.String("id") != "b" {
		t.Errorf("Expected last value 'b', got '%s'", r.String("id"))
	}
}

func TestRecord_Ref(t *testing.T) {
	tests := []struct {
		json   string
		expect string
	}{
		{`{"goalId":"g1"}`, "g1"},
		{`{}`, ""},
		{`{"goalId":null}`, ""},
		{`{"goalId":""}`, ""},
		{`{"goalId":false}`, ""},
		{`{"goalId":0}`, ""},
		{`{"goalId":0.0}`, ""},
		{`{"goalId":7}`, "7"},
		{`{"goalId":7.0}`, "7"},
		{`{"goalId":7e0}`, "7"},
		{`{"goalId":"7"}`, "7"},
		{`{"goalId":"7.0"}`, "7.0"},
		{`{"goalId":-2.50}`, "-2.5"},
		{`{"goalId":1234567}`, "1234567"},
		{`{"goalId":true}`, "true"},
	}
	for _, tt := range tests {
		r, err := parseObject([]byte(tt.json))
		if err != nil {
			t.Fatalf("parseObject(%s) failed: %v", tt.json, err)
		}
		if got := r.Ref("goalId"); got != tt.expect {
			t.Errorf("Ref for %s: expected %q, got %q", tt.json, tt.expect, got)
		}
	}
}

func TestRecord_SetAndWithout(t *testing.T) {
	r := record(t, "id", "p1", "tasks", []string{"x"}, "title", "T")

	stripped := r.Without("tasks")
	if stripped.Has("tasks") {
		t.Error("Expected tasks field removed")
	}
	if !r.Has("tasks") {
		t.Error("Without must not modify the original")
	}

	updated, err := stripped.Set("id", "p2")
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	out, _ := json.Marshal(updated)
	if string(out) != `{"id":"p2","title":"T"}` {
		t.Errorf("Expected id replaced in place, got %s", out)
	}
	if stripped.Ref(FieldID) != "p1" {
		t.Error("Set must not modify the original")
	}
}

func TestZeroRecordMarshalsEmptyObject(t *testing.T) {
	out, err := json.Marshal(LinkMap{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{}` {
		t.Errorf("Expected {}, got %s", out)
	}
}

func TestRecord_SetRejectsUnmarshalable(t *testing.T) {
	r := record(t, "id", "p1")

	got, err := r.Set("bad", make(chan int))
	if err == nil {
		t.Fatal("Expected error for a value JSON cannot encode")
	}
	if got.Has("bad") || got.Ref(FieldID) != "p1" {
		t.Errorf("Expected record unchanged, got keys %v", got.Keys())
	}
}

func TestRecord_SetString(t *testing.T) {
	r := record(t, "id", "t1", "projectId", nil).SetString(FieldProjectID, `p"1`)
	out, _ := json.Marshal(r)
	if string(out) != `{"id":"t1","projectId":"p\"1"}` {
		t.Errorf("Expected projectId replaced in place, got %s", out)
	}
}
