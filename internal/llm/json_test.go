package llm

import "testing"

func TestExtractJSONObjectPlain(t *testing.T) {
	result, err := ExtractJSONObject(`{"key": "value", "num": 42}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestExtractJSONObjectWithCodeFence(t *testing.T) {
	result, err := ExtractJSONObject("```json\n{\"key\": \"value\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestExtractJSONObjectWithCommentary(t *testing.T) {
	text := `Here is the analysis you asked for:
{"topics": [{"slug": "water-rights"}]}
Let me know if you need anything else.`
	result, err := ExtractJSONObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result["topics"]; !ok {
		t.Error("expected topics key")
	}
}

func TestExtractJSONObjectNested(t *testing.T) {
	// Last '}' must be used, not the first closing brace.
	result, err := ExtractJSONObject(`{"outer": {"inner": 1}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer, ok := result["outer"].(map[string]any)
	if !ok {
		t.Fatal("expected nested object")
	}
	if outer["inner"] != float64(1) {
		t.Errorf("expected inner=1, got %v", outer["inner"])
	}
}

func TestExtractJSONObjectEmpty(t *testing.T) {
	_, err := ExtractJSONObject("   ")
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	if err.Reason != "empty" {
		t.Errorf("expected reason 'empty', got %q", err.Reason)
	}
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	_, err := ExtractJSONObject("The bill does not match any topics.")
	if err == nil {
		t.Fatal("expected error for non-JSON input")
	}
	if err.Reason != "no_object" {
		t.Errorf("expected reason 'no_object', got %q", err.Reason)
	}
}

func TestExtractJSONObjectInvalid(t *testing.T) {
	_, err := ExtractJSONObject(`{"key": unquoted}`)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if err.Reason != "invalid_json" {
		t.Errorf("expected reason 'invalid_json', got %q", err.Reason)
	}
	if err.Raw == "" {
		t.Error("expected raw response to be preserved")
	}
}

func TestGetHelpers(t *testing.T) {
	m := map[string]any{
		"s":    "text",
		"f":    0.75,
		"list": []any{"a", 1, "b"},
	}

	if got := GetString(m, "s", "x"); got != "text" {
		t.Errorf("GetString: got %q", got)
	}
	if got := GetString(m, "missing", "x"); got != "x" {
		t.Errorf("GetString fallback: got %q", got)
	}
	if got := GetFloat(m, "f", 0); got != 0.75 {
		t.Errorf("GetFloat: got %v", got)
	}
	if got := GetFloat(m, "s", 0.5); got != 0.5 {
		t.Errorf("GetFloat wrong type fallback: got %v", got)
	}
	list := GetStringSlice(m, "list")
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("GetStringSlice: got %v", list)
	}
}
