package llm

import "testing"

type intentPayload struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func TestParseObject_CleanJSON(t *testing.T) {
	got := ParseObject(`{"intent":"add","confidence":0.9}`, intentPayload{Intent: "chat"})
	if got.Intent != "add" || got.Confidence != 0.9 {
		t.Errorf("got %+v", got)
	}
}

func TestParseObject_SurroundingProse(t *testing.T) {
	raw := "Sure! Here is the result:\n{\"intent\":\"delete\",\"confidence\":0.8}\nLet me know if you need more."
	got := ParseObject(raw, intentPayload{Intent: "chat"})
	if got.Intent != "delete" {
		t.Errorf("expected brace span extraction, got %+v", got)
	}
}

func TestParseObject_CodeFence(t *testing.T) {
	raw := "```json\n{\"intent\":\"search\",\"confidence\":0.7}\n```"
	got := ParseObject(raw, intentPayload{Intent: "chat"})
	if got.Intent != "search" {
		t.Errorf("expected fenced JSON to parse, got %+v", got)
	}
}

func TestParseObject_Malformed_FallsBack(t *testing.T) {
	fallback := intentPayload{Intent: "chat", Confidence: 0.3}
	cases := []string{
		"",
		"null",
		"I could not determine the intent.",
		`{"intent": "add", "confidence": }`,
		"{{{",
		`[1, 2, 3]`,
	}
	for _, raw := range cases {
		got := ParseObject(raw, fallback)
		if got != fallback {
			t.Errorf("ParseObject(%q) = %+v, want fallback", raw, got)
		}
	}
}

func TestParseObject_NestedBraces(t *testing.T) {
	type wrapper struct {
		Inner intentPayload `json:"inner"`
	}
	raw := `prefix {"inner":{"intent":"update","confidence":1}} suffix`
	got := ParseObject(raw, wrapper{})
	if got.Inner.Intent != "update" {
		t.Errorf("outermost span should cover nested objects, got %+v", got)
	}
}
