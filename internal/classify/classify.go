// Package classify matches bills against the canonical hot topics and
// generates plain-language bill summaries using an LLM provider.
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/haydenwy/civicboard/internal/database"
	"github.com/haydenwy/civicboard/internal/llm"
)

const (
	classifyMaxTokens  = 500
	summaryMaxTokens   = 400
	titleOnlyMaxTokens = 200

	maxSummaryChars  = 500
	maxKeyPointChars = 200
	maxKeyPoints     = 3

	// Summaries shorter than this are treated as title-only input.
	thinSummaryChars = 30
)

// Error describes a classification or summarization failure.
type Error struct {
	Code    string // "provider" or "parse"
	Message string
	Raw     string // raw model output, set for parse failures
}

func (e *Error) Error() string {
	return fmt.Sprintf("classify: %s: %s", e.Code, e.Message)
}

// Topic is one canonical-topic match for a bill.
type Topic struct {
	Slug           string
	Label          string
	Confidence     float64
	TriggerSnippet string
	ReasonSummary  string
}

// Flag is a non-canonical concern the model surfaced. Flags are reported
// but never staged.
type Flag struct {
	Label          string
	Confidence     float64
	TriggerSnippet string
}

// Analysis is the result of matching a bill against the canonical topics.
type Analysis struct {
	Topics     []Topic
	OtherFlags []Flag
}

// Summary is a plain-language bill summary. Note distinguishes a usable
// summary ("ok") from a normal skip (need_more_text, mismatch_topic,
// ambiguous_title).
type Summary struct {
	PlainSummary string
	KeyPoints    []string
	Note         string
}

// Classifier runs topic matching and summarization through an LLM provider.
type Classifier struct {
	provider llm.Provider
}

// New creates a classifier backed by the given provider.
func New(provider llm.Provider) *Classifier {
	return &Classifier{provider: provider}
}

func classifySystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a nonpartisan analyst matching Wyoming bills to six specific hot button topics of public interest.\n\n")
	b.WriteString("Match these six topics only:\n\n")

	slugs := make([]string, 0, len(CanonicalTopics))
	for slug := range CanonicalTopics {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for i, slug := range slugs {
		info := CanonicalTopics[slug]
		fmt.Fprintf(&b, "%d. %s - %s\n   %s\n\n", i+1, slug, info.Label, info.Description)
	}

	b.WriteString(`Confidence guidelines:
- 0.70+ for strong topical match (clearly related to topic area)
- 0.50-0.69 for moderate relevance with reasonable connection
- <0.50 place in other_flags instead (or omit if very weak)

Return STRICT JSON only, no extra prose:
{
  "topics": [
    {
      "slug": "water-rights",
      "label": "Water Rights & Drought Planning",
      "confidence": 0.85,
      "trigger_snippet": "Brief quoted or paraphrased passage from the bill",
      "reason_summary": "One to three sentences explaining plainly why this bill matches this topic. Mention key changes and why Wyomingites care."
    }
  ],
  "other_flags": [
    {
      "label": "Other issue (use any label)",
      "confidence": 0.45,
      "trigger_snippet": "Short text that triggered this flag"
    }
  ]
}

Do NOT invent new topic slugs. Use ONLY the six listed above in the topics array.
Use short snippets. Do not include any fields beyond those shown.`)
	return b.String()
}

func classifyUserPrompt(item *database.CivicItem) string {
	lines := []string{
		"Bill number: " + orUnknown(item.BillNumber),
		"Title: " + orUnknown(item.Title),
	}

	// The AI-generated summary is richer than the official abstract when
	// it exists; prefer it for matching.
	best := deref(item.Summary)
	if s := deref(item.AISummary); s != "" {
		best = s
	}
	if best != "" {
		lines = append(lines, "Summary: "+best)
	} else {
		lines = append(lines, "Summary: (none provided)")
	}
	if len(item.AIKeyPoints) > 0 {
		lines = append(lines, "Key points: "+strings.Join(item.AIKeyPoints, " | "))
	}
	if s := deref(item.SubjectTags); s != "" {
		lines = append(lines, "Subject tags: "+s)
	}
	if s := deref(item.LastAction); s != "" {
		lines = append(lines, "Last action: "+s)
	}
	if s := deref(item.LastActionDate); s != "" {
		lines = append(lines, "Last action date: "+s)
	}

	lines = append(lines,
		"",
		"Instructions:",
		"- Match to the canonical topics when applicable.",
		"- Place lower-confidence matches (<0.70) or off-topic bills in other_flags.",
		"- Never invent new topic slugs; only use the provided topics.",
		"- Provide short trigger snippets (quoted or paraphrased from the bill).",
	)
	return strings.Join(lines, "\n")
}

// Classify matches a bill against the canonical topics. Non-canonical slugs
// in the model output are dropped; confidences are clamped to [0,1].
func (c *Classifier) Classify(ctx context.Context, item *database.CivicItem) (*Analysis, *Error) {
	if c.provider == nil {
		return nil, &Error{Code: "provider", Message: "no LLM provider configured"}
	}

	raw, err := c.provider.Generate(ctx, classifySystemPrompt(), classifyUserPrompt(item), classifyMaxTokens)
	if err != nil {
		return nil, &Error{Code: "provider", Message: err.Error()}
	}

	parsed, perr := llm.ExtractJSONObject(raw)
	if perr != nil {
		return nil, &Error{Code: "parse", Message: perr.Error(), Raw: raw}
	}

	analysis := &Analysis{}
	for _, entry := range objectSlice(parsed, "topics") {
		slug := llm.GetString(entry, "slug", "")
		info, ok := CanonicalTopics[slug]
		if !ok {
			continue
		}
		analysis.Topics = append(analysis.Topics, Topic{
			Slug:           slug,
			Label:          info.Label,
			Confidence:     clamp01(llm.GetFloat(entry, "confidence", 0)),
			TriggerSnippet: llm.GetString(entry, "trigger_snippet", ""),
			ReasonSummary:  llm.GetString(entry, "reason_summary", ""),
		})
	}
	for _, entry := range objectSlice(parsed, "other_flags") {
		analysis.OtherFlags = append(analysis.OtherFlags, Flag{
			Label:          llm.GetString(entry, "label", ""),
			Confidence:     clamp01(llm.GetFloat(entry, "confidence", 0)),
			TriggerSnippet: llm.GetString(entry, "trigger_snippet", ""),
		})
	}
	return analysis, nil
}

const summarySystemPrompt = `You are a neutral civic educator explaining Wyoming legislation.
- Explain bills in clear, 8th-grade language.
- Stay strictly neutral and factual.
- Use ONLY the official data provided (short title, official summary/abstract, and supplied text snippet if present).
- Do NOT invent or guess missing details. If the text is too thin to explain the bill, set note to "need_more_text" and leave summary empty.
- If the text appears to be about a different subject than the provided metadata, set note to "mismatch_topic" and leave summary empty.
- Return ONLY valid JSON, no markdown or extra commentary.`

const titleOnlySystemPrompt = `You are a neutral civic educator explaining Wyoming legislation.
- Explain bills in clear, 8th-grade language based ONLY on the bill title.
- Stay strictly neutral and factual.
- Infer the likely intent and impact from the title alone.
- If the title is too vague or ambiguous, return an empty summary and set note to "ambiguous_title".
- Return ONLY valid JSON, no markdown or extra commentary.`

func summaryUserPrompt(item *database.CivicItem, textExcerpt string) string {
	excerpt := textExcerpt
	if excerpt == "" {
		excerpt = "(not provided; rely on official summary/short title)"
	}
	summary := deref(item.Summary)
	if summary == "" {
		summary = "(none provided)"
	}
	return fmt.Sprintf(`Input data:
- Jurisdiction: %s
- Legislative Session Year: %s
- Chamber: %s
- Bill Number: %s
- Bill Title: %s
- Official Summary/Abstract: %s
- Status: %s
- Primary Topic: %s
- Bill Text: %s

Required output as JSON only:
{
  "plain_summary": "2-3 sentences in everyday language, or empty string if insufficient text",
  "key_points": [
    "Top change or impact, action-verb led, if text supports it",
    "Second change or impact"
  ],
  "note": "ok | need_more_text | mismatch_topic"
}

Pre-checks:
- If the summary is missing/too short to know what the bill does, set note to "need_more_text" and leave summary/key_points empty.
- If the topic conflicts with the provided summary text, set note to "mismatch_topic" and leave summary/key_points empty.

When consistent:
- Provide 1-2 sentences that describe what the bill does in daily-life terms.
- 2-3 bullets for key changes; start bullets with action verbs ("Creates", "Requires", "Raises", "Repeals").
- Call out penalties or enforcement if present in the text.`,
		orUnknown(item.Jurisdiction),
		orUnknown(item.LegislativeSession),
		orUnknown(deref(item.Chamber)),
		orUnknown(item.BillNumber),
		orUnknown(item.Title),
		summary,
		orUnknown(item.Status),
		orUnknown(deref(item.SubjectTags)),
		excerpt)
}

func titleOnlyUserPrompt(item *database.CivicItem) string {
	return fmt.Sprintf(`Input data:
- Jurisdiction: %s
- Legislative Session Year: %s
- Chamber: %s
- Bill Number: %s
- Bill Title: %s

Required output as JSON only:
{
  "plain_summary": "1-2 sentences explaining what this bill likely does based on the title",
  "key_points": [
    "Likely primary impact or change"
  ],
  "note": "ok | ambiguous_title"
}

Instructions:
- Use the title to infer what the bill probably addresses.
- Provide a single 1-2 sentence explanation of the likely purpose.
- If the title clearly indicates the subject, explain that simply.
- If title is vague or cryptic, set note to "ambiguous_title" and leave summary empty.`,
		orUnknown(item.Jurisdiction),
		orUnknown(item.LegislativeSession),
		orUnknown(deref(item.Chamber)),
		orUnknown(item.BillNumber),
		orUnknown(item.Title))
}

// Summarize generates a plain-language summary for a bill. Bills whose
// official summary is missing, very short, or identical to the title get
// the title-only prompt, which works from the title alone.
func (c *Classifier) Summarize(ctx context.Context, item *database.CivicItem, textExcerpt string) (*Summary, *Error) {
	if c.provider == nil {
		return nil, &Error{Code: "provider", Message: "no LLM provider configured"}
	}

	summary := strings.TrimSpace(deref(item.Summary))
	thin := summary == "" || len(summary) < thinSummaryChars || summary == item.Title

	system, user := summarySystemPrompt, summaryUserPrompt(item, textExcerpt)
	maxTokens := summaryMaxTokens
	if thin && textExcerpt == "" {
		system, user = titleOnlySystemPrompt, titleOnlyUserPrompt(item)
		maxTokens = titleOnlyMaxTokens
	}

	raw, err := c.provider.Generate(ctx, system, user, maxTokens)
	if err != nil {
		return nil, &Error{Code: "provider", Message: err.Error()}
	}

	parsed, perr := llm.ExtractJSONObject(raw)
	if perr != nil {
		return nil, &Error{Code: "parse", Message: perr.Error(), Raw: raw}
	}

	result := &Summary{
		PlainSummary: truncate(llm.GetString(parsed, "plain_summary", ""), maxSummaryChars),
		Note:         llm.GetString(parsed, "note", ""),
	}
	for _, pt := range llm.GetStringSlice(parsed, "key_points") {
		if pt == "" {
			continue
		}
		result.KeyPoints = append(result.KeyPoints, truncate(pt, maxKeyPointChars))
		if len(result.KeyPoints) == maxKeyPoints {
			break
		}
	}
	return result, nil
}

// objectSlice extracts a slice of JSON objects from a parsed response field.
func objectSlice(m map[string]any, key string) []map[string]any {
	var out []map[string]any
	if arr, ok := m[key].([]any); ok {
		for _, entry := range arr {
			if obj, ok := entry.(map[string]any); ok {
				out = append(out, obj)
			}
		}
	}
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
