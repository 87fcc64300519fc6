package cards

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON_ProseWrapped(t *testing.T) {
	response := "Sure, here is the result you asked for:\n\n" +
		`{"cards": [{"q": "What is X?", "a": "X is Y."}]}` +
		"\n\nLet me know if you need anything else!"

	raw, err := ExtractJSON(response)
	if err != nil {
		t.Fatalf("ExtractJSON returned error: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v\n%s", err, raw)
	}
	if _, ok := out["cards"]; !ok {
		t.Errorf("expected cards key in extracted object, got %s", raw)
	}
}

func TestExtractJSON_NestedBracesInStrings(t *testing.T) {
	response := `{"q": "What does {braces} mean?", "a": "It means \"grouping\"."}`

	raw, err := ExtractJSON(response)
	if err != nil {
		t.Fatalf("ExtractJSON returned error: %v", err)
	}
	if raw != response {
		t.Errorf("expected full object back, got %s", raw)
	}
}

func TestExtractJSON_TruncatedRepair(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "cut mid string value",
			response: `{"cards": [{"q": "What is photosynthesis?", "a": "The process by whi`,
		},
		{
			name:     "cut after comma",
			response: `{"cards": [{"q": "Q1", "a": "A1"},`,
		},
		{
			name:     "cut after colon",
			response: `{"cards": [{"q": "Q1", "a":`,
		},
		{
			name:     "cut inside array",
			response: `{"module_summary": [{"point": "First point", "supports": ["ch_aa"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ExtractJSON(tt.response)
			if err != nil {
				t.Fatalf("ExtractJSON returned error: %v", err)
			}
			var out map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &out); err != nil {
				t.Fatalf("repaired text is not valid JSON: %v\n%s", err, raw)
			}
		})
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON("I could not produce any structured output, sorry.")
	if !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON, got %v", err)
	}
}

func TestParseJSONInto_WrongShape(t *testing.T) {
	var out struct {
		Cards []rawCard `json:"cards"`
	}
	err := ParseJSONInto(`{"cards": "not an array"}`, &out)
	if !errors.Is(err, ErrBadSchema) {
		t.Errorf("expected ErrBadSchema, got %v", err)
	}
}

func TestParseJSONInto_Valid(t *testing.T) {
	var out stageBResponse
	err := ParseJSONInto(`Here you go: {"cards": [{"q": "Q", "a": "A", "difficulty": "easy"}]}`, &out)
	if err != nil {
		t.Fatalf("ParseJSONInto returned error: %v", err)
	}
	if len(out.Cards) != 1 || out.Cards[0].Difficulty != "easy" {
		t.Errorf("unexpected parse result: %+v", out)
	}
}
