package classify

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/haydenwy/civicboard/internal/database"
)

// fakeProvider returns canned responses and records the prompts it was given.
type fakeProvider struct {
	response string
	err      error
	system   string
	user     string
}

func (f *fakeProvider) Generate(_ context.Context, system, user string, _ int) (string, error) {
	f.system = system
	f.user = user
	return f.response, f.err
}

func (f *fakeProvider) IsConfigured() bool { return true }

func ptr(s string) *string { return &s }

func testBill() *database.CivicItem {
	return &database.CivicItem{
		ID:                 "2026_HB0011",
		BillNumber:         "HB0011",
		Title:              "Water appropriation amendments",
		Summary:            ptr("An act revising priority of appropriation during declared drought emergencies."),
		Status:             "introduced",
		LegislativeSession: "2026",
		Chamber:            ptr("house"),
		Jurisdiction:       "WY",
	}
}

func TestClassifyFiltersNonCanonicalSlugs(t *testing.T) {
	provider := &fakeProvider{response: `{
		"topics": [
			{"slug": "water-rights", "confidence": 0.9, "trigger_snippet": "priority of appropriation", "reason_summary": "Changes drought allocation."},
			{"slug": "made-up-topic", "confidence": 0.8, "trigger_snippet": "x", "reason_summary": "y"}
		],
		"other_flags": [
			{"label": "Agency rulemaking", "confidence": 0.4, "trigger_snippet": "rules"}
		]
	}`}

	analysis, cerr := New(provider).Classify(context.Background(), testBill())
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if len(analysis.Topics) != 1 {
		t.Fatalf("expected 1 canonical topic, got %d", len(analysis.Topics))
	}
	topic := analysis.Topics[0]
	if topic.Slug != "water-rights" {
		t.Errorf("expected water-rights, got %s", topic.Slug)
	}
	if topic.Label != "Water Rights & Drought Planning" {
		t.Errorf("expected canonical label, got %q", topic.Label)
	}
	if len(analysis.OtherFlags) != 1 || analysis.OtherFlags[0].Label != "Agency rulemaking" {
		t.Errorf("expected one other flag, got %v", analysis.OtherFlags)
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	provider := &fakeProvider{response: `{
		"topics": [{"slug": "water-rights", "confidence": 1.7, "trigger_snippet": "x", "reason_summary": "y"}],
		"other_flags": [{"label": "z", "confidence": -0.3}]
	}`}

	analysis, cerr := New(provider).Classify(context.Background(), testBill())
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if analysis.Topics[0].Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", analysis.Topics[0].Confidence)
	}
	if analysis.OtherFlags[0].Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %v", analysis.OtherFlags[0].Confidence)
	}
}

func TestClassifyProviderError(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("connection refused")}
	_, cerr := New(provider).Classify(context.Background(), testBill())
	if cerr == nil {
		t.Fatal("expected error")
	}
	if cerr.Code != "provider" {
		t.Errorf("expected code 'provider', got %q", cerr.Code)
	}
}

func TestClassifyParseError(t *testing.T) {
	provider := &fakeProvider{response: "Sorry, I cannot help with that."}
	_, cerr := New(provider).Classify(context.Background(), testBill())
	if cerr == nil {
		t.Fatal("expected error")
	}
	if cerr.Code != "parse" {
		t.Errorf("expected code 'parse', got %q", cerr.Code)
	}
	if cerr.Raw == "" {
		t.Error("expected raw response preserved on parse error")
	}
}

func TestClassifyNoProvider(t *testing.T) {
	_, cerr := New(nil).Classify(context.Background(), testBill())
	if cerr == nil || cerr.Code != "provider" {
		t.Fatalf("expected provider error, got %v", cerr)
	}
}

func TestSummarizeRichData(t *testing.T) {
	provider := &fakeProvider{response: `{
		"plain_summary": "Changes who gets water first during declared droughts.",
		"key_points": ["Creates a drought priority schedule", "Requires state engineer review"],
		"note": "ok"
	}`}

	summary, cerr := New(provider).Summarize(context.Background(), testBill(), "full bill text excerpt")
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if summary.Note != "ok" {
		t.Errorf("expected note ok, got %q", summary.Note)
	}
	if len(summary.KeyPoints) != 2 {
		t.Errorf("expected 2 key points, got %d", len(summary.KeyPoints))
	}
	if !strings.Contains(provider.user, "full bill text excerpt") {
		t.Error("expected excerpt included in prompt")
	}
	if strings.Contains(provider.system, "title alone") {
		t.Error("rich data should not use the title-only prompt")
	}
}

func TestSummarizeThinDataUsesTitleOnlyPrompt(t *testing.T) {
	bill := testBill()
	bill.Summary = ptr(bill.Title) // summary identical to title is thin

	provider := &fakeProvider{response: `{"plain_summary": "Likely adjusts water rules.", "key_points": [], "note": "ok"}`}
	_, cerr := New(provider).Summarize(context.Background(), bill, "")
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if !strings.Contains(provider.system, "title alone") {
		t.Error("expected title-only prompt for thin data")
	}
}

func TestSummarizeThinDataWithExcerptUsesFullPrompt(t *testing.T) {
	bill := testBill()
	bill.Summary = nil

	provider := &fakeProvider{response: `{"plain_summary": "x", "key_points": [], "note": "ok"}`}
	_, cerr := New(provider).Summarize(context.Background(), bill, "fetched bill text")
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if strings.Contains(provider.system, "title alone") {
		t.Error("a fetched excerpt should route to the full prompt")
	}
}

func TestSummarizeSkipNote(t *testing.T) {
	provider := &fakeProvider{response: `{"plain_summary": "", "key_points": [], "note": "need_more_text"}`}
	summary, cerr := New(provider).Summarize(context.Background(), testBill(), "")
	if cerr != nil {
		t.Fatalf("skip notes are not errors, got %v", cerr)
	}
	if summary.PlainSummary != "" || summary.Note != "need_more_text" {
		t.Errorf("expected empty summary with need_more_text note, got %+v", summary)
	}
}

func TestSummarizeClampsOutput(t *testing.T) {
	long := strings.Repeat("a", 600)
	provider := &fakeProvider{response: fmt.Sprintf(`{
		"plain_summary": %q,
		"key_points": [%q, "b", "c", "d"],
		"note": "ok"
	}`, long, long)}

	summary, cerr := New(provider).Summarize(context.Background(), testBill(), "excerpt")
	if cerr != nil {
		t.Fatalf("unexpected error: %v", cerr)
	}
	if len(summary.PlainSummary) != 500 {
		t.Errorf("expected summary capped at 500 chars, got %d", len(summary.PlainSummary))
	}
	if len(summary.KeyPoints) != 3 {
		t.Errorf("expected at most 3 key points, got %d", len(summary.KeyPoints))
	}
	if len(summary.KeyPoints[0]) != 200 {
		t.Errorf("expected key point capped at 200 chars, got %d", len(summary.KeyPoints[0]))
	}
}

func TestTruncatePreservesRuneBoundaries(t *testing.T) {
	accented := strings.Repeat("é", 300)
	got := truncate(accented, 499)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != 498 {
		t.Errorf("expected cut back to the previous rune boundary (498 bytes), got %d", len(got))
	}
	if got := truncate("short", 500); got != "short" {
		t.Errorf("strings under the limit must pass through, got %q", got)
	}
	ascii := strings.Repeat("a", 600)
	if got := truncate(ascii, 500); len(got) != 500 {
		t.Errorf("ASCII truncation should use the full budget, got %d", len(got))
	}
}
