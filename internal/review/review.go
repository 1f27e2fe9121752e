// Package review implements the staging review workflow: pending records
// are approved or rejected by a human, and approved records are promoted
// into the public hot_topics table.
package review

import (
	"errors"
	"fmt"

	"github.com/haydenwy/civicboard/internal/database"
	"github.com/haydenwy/civicboard/internal/validate"
)

// Review statuses for staged topic records.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusPromoted = "promoted"
)

var (
	ErrNotFound          = errors.New("staging record not found")
	ErrIllegalTransition = errors.New("illegal review status transition")
	ErrIncomplete        = errors.New("record is incomplete")
)

// CanTransition reports whether a review status change is legal.
// Rejected and promoted are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusPromoted
	default:
		return false
	}
}

// Reviewer applies review decisions to staged topic records.
type Reviewer struct {
	db *database.DB
}

// New creates a reviewer backed by the given database.
func New(db *database.DB) *Reviewer {
	return &Reviewer{db: db}
}

// Approve marks a pending staging record as approved.
func (r *Reviewer) Approve(stagingID int64, reviewer string, notes *string) error {
	return r.transition(stagingID, StatusApproved, "approved", reviewer, notes)
}

// Reject marks a pending staging record as rejected. Rejected records are
// terminal and never promoted.
func (r *Reviewer) Reject(stagingID int64, reviewer string, notes *string) error {
	return r.transition(stagingID, StatusRejected, "rejected", reviewer, notes)
}

func (r *Reviewer) transition(stagingID int64, to, action, reviewer string, notes *string) error {
	rec, err := r.db.GetStagingTopic(stagingID)
	if err != nil {
		return fmt.Errorf("fetching staging record: %w", err)
	}
	if rec == nil {
		return ErrNotFound
	}
	if !CanTransition(rec.ReviewStatus, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, rec.ReviewStatus, to)
	}

	if err := r.db.SetStagingStatus(stagingID, to); err != nil {
		return fmt.Errorf("updating review status: %w", err)
	}
	if err := r.db.AppendAuditEntry(stagingID, action, rec.ReviewStatus, to, reviewer, notes); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// Promote publishes an approved staging record into hot_topics. The record
// is re-validated at promotion time; a record that fails validation is not
// written anywhere. Publication is keyed by slug, so promoting a second
// record with the same slug replaces the first (last write wins).
func (r *Reviewer) Promote(stagingID int64, reviewer string) (*database.HotTopic, error) {
	rec, err := r.db.GetStagingTopic(stagingID)
	if err != nil {
		return nil, fmt.Errorf("fetching staging record: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.ReviewStatus != StatusApproved {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, rec.ReviewStatus, StatusPromoted)
	}

	result := validate.Validate(recordFor(rec))
	if !result.IsComplete {
		return nil, fmt.Errorf("%w: %v", ErrIncomplete, result.Errors)
	}

	topic := &database.HotTopic{
		Slug:     rec.Slug,
		Title:    rec.Title,
		Summary:  rec.Summary,
		Badge:    rec.Badge,
		CTALabel: rec.CTALabel,
		CTAURL:   rec.CTAURL,
		Priority: rec.Priority,
		IsActive: true,
	}
	if err := r.db.UpsertHotTopic(topic); err != nil {
		return nil, fmt.Errorf("publishing topic: %w", err)
	}
	if err := r.db.SetStagingStatus(stagingID, StatusPromoted); err != nil {
		return nil, fmt.Errorf("updating review status: %w", err)
	}
	if err := r.db.AppendAuditEntry(stagingID, "promoted", StatusApproved, StatusPromoted, reviewer, nil); err != nil {
		return nil, fmt.Errorf("recording audit entry: %w", err)
	}
	return topic, nil
}

// recordFor maps a staging row onto the validator's input shape.
func recordFor(rec *database.StagingTopic) validate.Record {
	priority := float64(rec.Priority)
	return validate.Record{
		Slug:           rec.Slug,
		Title:          rec.Title,
		Summary:        deref(rec.Summary),
		Badge:          deref(rec.Badge),
		Priority:       &priority,
		Confidence:     rec.Confidence,
		TriggerSnippet: deref(rec.TriggerSnippet),
		ReasonSummary:  deref(rec.ReasonSummary),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
