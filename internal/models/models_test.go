package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestQuestionSpecValidate(t *testing.T) {
	q := QuestionSpec{Key: "loc", Prompt: "Where?", ValidOptions: []string{"pune", "kolkata"}}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected valid spec, got %v", err)
	}

	empty := QuestionSpec{Key: "loc", Prompt: "Where?"}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty valid options")
	}

	noKey := QuestionSpec{Prompt: "Where?", ValidOptions: []string{"pune"}}
	if err := noKey.Validate(); err == nil {
		t.Error("expected error for empty key")
	}

	badTrigger := QuestionSpec{Key: "c", Prompt: "?", ValidOptions: []string{"yes", "no"}, ExitTrigger: "maybe"}
	if err := badTrigger.Validate(); err == nil {
		t.Error("expected error for exit trigger outside valid options")
	}

	upperTrigger := QuestionSpec{Key: "c", Prompt: "?", ValidOptions: []string{"yes", "no"}, ExitTrigger: "No"}
	if err := upperTrigger.Validate(); err != nil {
		t.Errorf("exit trigger comparison should be case-insensitive, got %v", err)
	}
}

func TestQuestionSpecIsBinary(t *testing.T) {
	binary := QuestionSpec{Key: "c", Prompt: "?", ValidOptions: []string{"Yes", "No"}}
	if !binary.IsBinary() {
		t.Error("expected yes/no question to be binary")
	}
	options := QuestionSpec{Key: "c", Prompt: "?", ValidOptions: []string{"pune", "kolkata"}}
	if options.IsBinary() {
		t.Error("expected option question to not be binary")
	}
}

func TestConditionEvaluate(t *testing.T) {
	cond := &Condition{Field: "qualification", Equals: "10th"}
	if !cond.Evaluate(map[string]string{"qualification": "10th"}) {
		t.Error("expected condition to hold for matching answer")
	}
	if cond.Evaluate(map[string]string{"qualification": "graduate"}) {
		t.Error("expected condition to fail for different answer")
	}
	if cond.Evaluate(map[string]string{}) {
		t.Error("expected condition to fail for missing answer")
	}
	var nilCond *Condition
	if !nilCond.Evaluate(map[string]string{}) {
		t.Error("expected nil condition to always hold")
	}
}

func TestExitFarewellDefault(t *testing.T) {
	q := QuestionSpec{Key: "c", Prompt: "?", ValidOptions: []string{"yes", "no"}}
	if got := q.ExitFarewell(); got != DefaultExitMessage {
		t.Errorf("expected default exit message, got %q", got)
	}
	q.ExitMessage = "Bye!"
	if got := q.ExitFarewell(); got != "Bye!" {
		t.Errorf("expected configured exit message, got %q", got)
	}
}

func TestDefaultScriptIsValid(t *testing.T) {
	questions := DefaultScript("Acme")
	if len(questions) == 0 {
		t.Fatal("expected non-empty default script")
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			t.Errorf("default script question %q invalid: %v", q.Key, err)
		}
	}
}

func TestLoadScript(t *testing.T) {
	questions := DefaultScript("Acme")
	data, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadScript(path)
	if err != nil {
		t.Fatalf("expected script to load, got %v", err)
	}
	if len(loaded) != len(questions) {
		t.Errorf("expected %d questions, got %d", len(questions), len(loaded))
	}
	if loaded[2].Condition == nil || loaded[2].Condition.Field != "qualification" {
		t.Error("expected condition to round-trip through JSON")
	}
}

func TestLoadScriptRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"key":"q","prompt":"?","valid_options":[]}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadScript(path); err == nil {
		t.Error("expected error for question with no options")
	}
	if _, err := LoadScript(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
