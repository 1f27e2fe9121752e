// Package resolve finds the best published PDF for a bill by probing a
// fixed set of candidate URLs on the legislature's document host.
package resolve

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is one probed document URL.
type Candidate struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// Resolution is the outcome of resolving a bill's documents. BestURL is the
// first candidate found, in preference order.
type Resolution struct {
	BestURL           string      `json:"best_doc_url"`
	BestKind          string      `json:"best_doc_kind"`
	CandidatesChecked int         `json:"candidates_checked"`
	CandidatesFound   []Candidate `json:"candidates_found"`
	Notes             string      `json:"notes"`
	Success           bool        `json:"success"`
}

// Candidate templates in preference order. Introduced is the most complete
// text; engrossed and enrolled reflect amendments; fiscal notes are
// supplementary.
var candidateTemplates = []struct {
	kind     string
	template string
}{
	{"introduced", "/%s/Introduced/%s.pdf"},
	{"engrossed", "/%s/Engrossed/%s.pdf"},
	{"enrolled", "/%s/Enroll/%s.pdf"},
	{"fiscal", "/%s/Fiscal/%s.pdf"},
}

const amendmentPageTemplate = "/Legislation/Amendment/%s?billNumber=%s"

// Resolver probes candidate document URLs over HTTP.
type Resolver struct {
	baseURLs []string
	client   *http.Client
}

// New creates a resolver probing the given base URLs. probeTimeout bounds
// each individual request.
func New(baseURLs []string, probeTimeout time.Duration) *Resolver {
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	return &Resolver{
		baseURLs: baseURLs,
		client:   &http.Client{Timeout: probeTimeout},
	}
}

// Candidates returns the candidate URLs for a bill in probe order, kind
// major so preferred document kinds are exhausted before falling back.
func (r *Resolver) Candidates(billNumber, session string) []Candidate {
	var out []Candidate
	for _, tmpl := range candidateTemplates {
		for _, base := range r.baseURLs {
			out = append(out, Candidate{
				URL:  base + fmt.Sprintf(tmpl.template, session, billNumber),
				Kind: tmpl.kind,
			})
		}
	}
	return out
}

// Resolve probes every candidate for a bill and returns the best match.
// When no direct candidate exists, the amendment listing page is scraped
// for linked amendment PDFs as a last resort.
func (r *Resolver) Resolve(ctx context.Context, billNumber, session string) *Resolution {
	candidates := r.Candidates(billNumber, session)
	result := &Resolution{CandidatesChecked: len(candidates)}

	for _, cand := range candidates {
		if r.probePDF(ctx, cand.URL) {
			result.CandidatesFound = append(result.CandidatesFound, cand)
		}
	}

	if len(result.CandidatesFound) > 0 {
		best := result.CandidatesFound[0]
		result.BestURL = best.URL
		result.BestKind = best.Kind
		result.Success = true
		result.Notes = fmt.Sprintf("Found %d PDF(s). Using %s.", len(result.CandidatesFound), best.Kind)
		return result
	}

	if url := r.findAmendmentPDF(ctx, billNumber, session); url != "" {
		result.BestURL = url
		result.BestKind = "amendment"
		result.Success = true
		result.Notes = "No primary document found; using amendment PDF."
		result.CandidatesFound = []Candidate{{URL: url, Kind: "amendment"}}
		return result
	}

	result.Notes = fmt.Sprintf("Checked %d candidate URLs, none returned valid PDF.", len(candidates))
	return result
}

// probePDF reports whether the URL serves a PDF. HEAD is tried first;
// hosts that reject HEAD get a follow-up GET.
func (r *Resolver) probePDF(ctx context.Context, url string) bool {
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return false
		}
		resp, err := r.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			continue
		}
		return isPDFContentType(resp.Header.Get("Content-Type"))
	}
	return false
}

// findAmendmentPDF scrapes the amendment listing page for linked PDFs and
// returns the first one that probes as a real PDF.
func (r *Resolver) findAmendmentPDF(ctx context.Context, billNumber, session string) string {
	if len(r.baseURLs) == 0 {
		return ""
	}
	base := r.baseURLs[0]
	pageURL := base + fmt.Sprintf(amendmentPageTemplate, session, billNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	seen := map[string]bool{}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.Contains(href, "Amends") || !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return true
		}
		if !strings.HasPrefix(href, "http") {
			if !strings.HasPrefix(href, "/") {
				href = "/" + href
			}
			href = base + href
		}
		if seen[href] {
			return true
		}
		seen[href] = true
		if r.probePDF(ctx, href) {
			found = href
			return false
		}
		return true
	})
	return found
}

func isPDFContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "application/pdf") || strings.Contains(ct, "application/octet-stream")
}
