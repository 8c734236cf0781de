package common

import (
	"strings"
	"testing"
)

const recordSchema = `{
  "type": "object",
  "required": ["path", "success"],
  "properties": {
    "path": {"type": "string"},
    "success": {"type": "boolean"}
  }
}`

func TestSchemaValidate(t *testing.T) {
	s, err := CompileSchema("record.json", []byte(recordSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	type rec struct {
		Path    string `json:"path"`
		Success bool   `json:"success"`
	}
	if err := s.Validate(rec{Path: "/a.pdf", Success: true}); err != nil {
		t.Errorf("valid struct rejected: %v", err)
	}
	if err := s.ValidateJSON([]byte(`{"path": 3, "success": true}`)); err == nil {
		t.Error("expected type error")
	}
	if err := s.Validate(map[string]any{"path": "/a.pdf"}); err == nil {
		t.Error("expected missing required field error")
	}
}

func TestValidatorRules(t *testing.T) {
	v := NewValidator().
		Field("a", "", Required).
		Field("b", 0, Positive).
		Field("c", -1, NonNegative).
		Field("d", "x", OneOf("y", "z")).
		Field("e", 3, Positive)
	if got := len(v.Errors()); got != 4 {
		t.Fatalf("errors = %d, want 4: %s", got, v.ErrorMessage())
	}
	if !strings.Contains(v.ErrorMessage(), "must be one of y, z") {
		t.Errorf("message = %q", v.ErrorMessage())
	}
	if ValidateAndReturnError(NewValidator()) != nil {
		t.Error("empty validator should pass")
	}
}
