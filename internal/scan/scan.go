// Package scan orchestrates the bill scan: resolve documents, summarize,
// classify against the hot topics, validate, and stage results for review.
package scan

import (
	"context"
	"log"
	"time"

	"github.com/haydenwy/civicboard/internal/classify"
	"github.com/haydenwy/civicboard/internal/config"
	"github.com/haydenwy/civicboard/internal/database"
	"github.com/haydenwy/civicboard/internal/fetch"
	"github.com/haydenwy/civicboard/internal/llm"
	"github.com/haydenwy/civicboard/internal/resolve"
	"github.com/haydenwy/civicboard/internal/validate"
)

// Options controls a single scan run.
type Options struct {
	Year      string // optional session filter, e.g. "2026"
	BatchSize int    // 0 means the configured default
	Force     bool   // regenerate summaries even when cached
}

// ItemResult records the outcome for one scanned bill. Errors are recorded
// per item; a failing bill never aborts the batch.
type ItemResult struct {
	BillID        string   `json:"bill_id"`
	BillNumber    string   `json:"bill_number"`
	Topics        []string `json:"topics"`
	ConfidenceAvg *float64 `json:"confidence_avg"`
	OtherFlags    []string `json:"other_flags,omitempty"`
	SummaryNote   string   `json:"summary_note,omitempty"`
	SummaryError  string   `json:"summary_error,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Result is the outcome of a scan run.
type Result struct {
	Scanned          int          `json:"scanned"`
	Results          []ItemResult `json:"results"`
	SummariesWritten int          `json:"summaries_written"`
	SummariesSkipped int          `json:"summaries_skipped"`
	Timestamp        string       `json:"timestamp"`
}

type documentResolver interface {
	Resolve(ctx context.Context, billNumber, session string) *resolve.Resolution
}

type textFetcher interface {
	Excerpt(ctx context.Context, pageURL string) (string, error)
}

type analyzer interface {
	Classify(ctx context.Context, item *database.CivicItem) (*classify.Analysis, *classify.Error)
	Summarize(ctx context.Context, item *database.CivicItem, textExcerpt string) (*classify.Summary, *classify.Error)
}

// Orchestrator runs scans over pending bills.
type Orchestrator struct {
	cfg      *config.Config
	db       *database.DB
	analyzer analyzer
	resolver documentResolver
	fetcher  textFetcher
}

// New creates an orchestrator wired to live HTTP and LLM components.
func New(cfg *config.Config, db *database.DB, provider llm.Provider) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		db:       db,
		analyzer: classify.New(provider),
		resolver: resolve.New(cfg.Resolver.BaseURLs, time.Duration(cfg.Resolver.ProbeTimeout)*time.Second),
		fetcher:  fetch.New(15 * time.Second),
	}
}

// Scan processes one batch of pending bills sequentially.
func (o *Orchestrator) Scan(ctx context.Context, opts Options) (*Result, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = o.cfg.Scanner.BatchSize
	}

	items, err := o.db.ScanCandidates(o.cfg.Scanner.Statuses, opts.Year, batchSize)
	if err != nil {
		return nil, err
	}
	log.Printf("Scanning %d pending bills", len(items))

	result := &Result{
		Results:   []ItemResult{},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for i := range items {
		item := &items[i]
		result.Results = append(result.Results, o.scanItem(ctx, item, opts.Force, result))
	}
	result.Scanned = len(result.Results)
	log.Printf("Scan complete: %d bills, %d summaries written, %d skipped",
		result.Scanned, result.SummariesWritten, result.SummariesSkipped)
	return result, nil
}

func (o *Orchestrator) scanItem(ctx context.Context, item *database.CivicItem, force bool, run *Result) ItemResult {
	res := ItemResult{
		BillID:     item.ID,
		BillNumber: item.BillNumber,
		Topics:     []string{},
	}

	o.ensureSource(ctx, item)
	o.ensureSummary(ctx, item, force, &res, run)

	analysis, cerr := o.analyzer.Classify(ctx, item)
	if cerr != nil {
		log.Printf("Classification failed for %s: %v", item.BillNumber, cerr)
		res.Error = cerr.Error()
		return res
	}

	var confidenceSum float64
	for _, topic := range analysis.Topics {
		res.Topics = append(res.Topics, topic.Slug)
		confidenceSum += topic.Confidence
		o.stageTopic(item, topic)
	}
	if len(analysis.Topics) > 0 {
		avg := confidenceSum / float64(len(analysis.Topics))
		res.ConfidenceAvg = &avg
	}
	for _, flag := range analysis.OtherFlags {
		res.OtherFlags = append(res.OtherFlags, flag.Label)
	}
	return res
}

// ensureSource refreshes the cached document resolution when the cache is
// stale or absent. Resolution failures are cached too, so a missing
// document is not re-probed on every scan.
func (o *Orchestrator) ensureSource(ctx context.Context, item *database.CivicItem) {
	maxAge := time.Duration(o.cfg.Resolver.CacheHours) * time.Hour
	cached, err := o.db.GetFreshItemSource(item.ID, maxAge)
	if err != nil {
		log.Printf("Source cache lookup failed for %s: %v", item.ID, err)
	}
	if cached != nil {
		return
	}

	resolution := o.resolver.Resolve(ctx, item.BillNumber, item.LegislativeSession)
	src := &database.ItemSource{
		CivicItemID:      item.ID,
		ResolutionStatus: "not_found",
		Notes:            &resolution.Notes,
	}
	if resolution.Success {
		src.ResolutionStatus = "resolved"
		src.DocURL = &resolution.BestURL
		src.DocKind = &resolution.BestKind
	}
	if err := o.db.UpsertItemSource(src); err != nil {
		log.Printf("Source cache write failed for %s: %v", item.ID, err)
	}
	if resolution.Success && deref(item.TextURL) == "" {
		if err := o.db.UpdateItemTextURL(item.ID, resolution.BestURL); err != nil {
			log.Printf("text_url update failed for %s: %v", item.ID, err)
		} else {
			item.TextURL = &resolution.BestURL
		}
	}
}

// ensureSummary generates and persists the bill-level summary. A cached
// summary is reused unless force is set, counting toward neither written
// nor skipped. Only non-empty plain text is ever written.
func (o *Orchestrator) ensureSummary(ctx context.Context, item *database.CivicItem, force bool, res *ItemResult, run *Result) {
	if deref(item.AISummary) != "" && !force {
		return
	}

	var excerpt string
	if pageURL := deref(item.ExternalURL); pageURL != "" {
		text, err := o.fetcher.Excerpt(ctx, pageURL)
		if err != nil {
			log.Printf("Excerpt fetch failed for %s: %v", item.BillNumber, err)
		} else {
			excerpt = text
		}
	}

	summary, cerr := o.analyzer.Summarize(ctx, item, excerpt)
	if cerr != nil {
		log.Printf("Summarization failed for %s: %v", item.BillNumber, cerr)
		res.SummaryError = cerr.Error()
		run.SummariesSkipped++
		return
	}

	res.SummaryNote = summary.Note
	if summary.PlainSummary == "" {
		run.SummariesSkipped++
		return
	}

	if err := o.db.UpdateItemSummary(item.ID, summary.PlainSummary, summary.KeyPoints); err != nil {
		log.Printf("Summary write failed for %s: %v", item.BillNumber, err)
		res.SummaryError = err.Error()
		run.SummariesSkipped++
		return
	}
	item.AISummary = &summary.PlainSummary
	item.AIKeyPoints = summary.KeyPoints
	run.SummariesWritten++
}

// stageTopic validates one topic match and writes it to staging. Incomplete
// records are staged too, flagged for the reviewer.
func (o *Orchestrator) stageTopic(item *database.CivicItem, topic classify.Topic) {
	confidence := topic.Confidence
	check := validate.Validate(validate.Record{
		Slug:           topic.Slug,
		Title:          topic.Label,
		Summary:        deref(item.AISummary),
		Confidence:     &confidence,
		TriggerSnippet: topic.TriggerSnippet,
		ReasonSummary:  topic.ReasonSummary,
	})

	rec := &database.StagingTopic{
		CivicItemID:        item.ID,
		Slug:               topic.Slug,
		Title:              topic.Label,
		Summary:            item.AISummary,
		Confidence:         &confidence,
		AISource:           "openai",
		IsComplete:         check.IsComplete,
		ValidationErrors:   check.Errors,
		LegislativeSession: &item.LegislativeSession,
	}
	if topic.TriggerSnippet != "" {
		rec.TriggerSnippet = &topic.TriggerSnippet
	}
	if topic.ReasonSummary != "" {
		rec.ReasonSummary = &topic.ReasonSummary
	}
	if _, err := o.db.InsertStagingTopic(rec); err != nil {
		log.Printf("Staging write failed for %s/%s: %v", item.ID, topic.Slug, err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
