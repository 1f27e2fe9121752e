// Package validate checks machine-generated topic records for completeness
// before they are staged or promoted.
package validate

import (
	"fmt"
	"strings"
)

// Record is the shape a classified topic must satisfy. Pointer fields
// distinguish "absent" from zero values where the distinction matters.
type Record struct {
	Slug           string
	Title          string
	Summary        string
	Badge          string
	Priority       *float64
	Confidence     *float64
	TriggerSnippet string
	ReasonSummary  string
}

// Result is the outcome of a validation pass. IsComplete is true iff
// there are no hard errors; warnings never affect completeness.
type Result struct {
	IsComplete bool
	Errors     []string
	Warnings   []string
}

// Validate applies the required/recommended field rules to a topic record.
// Hard rules each independently produce an error; soft rules only warn.
func Validate(rec Record) Result {
	var errors, warnings []string

	// REQUIRED fields (must be present and non-empty)
	if strings.TrimSpace(rec.Slug) == "" {
		errors = append(errors, "slug: Missing or empty")
	}
	if strings.TrimSpace(rec.Title) == "" {
		errors = append(errors, "title: Missing or empty")
	}
	if rec.Confidence == nil || *rec.Confidence < 0 || *rec.Confidence > 1 {
		errors = append(errors, "confidence: Must be a number between 0.0 and 1.0")
	}
	if strings.TrimSpace(rec.TriggerSnippet) == "" {
		errors = append(errors, "trigger_snippet: Missing or empty")
	}
	if strings.TrimSpace(rec.ReasonSummary) == "" {
		errors = append(errors, "reason_summary: Missing or empty")
	}

	// RECOMMENDED fields (should be present)
	if strings.TrimSpace(rec.Summary) == "" {
		warnings = append(warnings, "summary: Missing or empty (recommended)")
	}

	// OPTIONAL fields
	if rec.Priority != nil && *rec.Priority < 0 {
		warnings = append(warnings, "priority: Should be a non-negative number")
	}

	// Low confidence is flagged for manual review but does not block.
	if rec.Confidence != nil && *rec.Confidence >= 0 && *rec.Confidence < 0.5 {
		warnings = append(warnings, fmt.Sprintf("confidence: Score is low (%.2f); may need manual review", *rec.Confidence))
	}

	return Result{
		IsComplete: len(errors) == 0,
		Errors:     errors,
		Warnings:   warnings,
	}
}
