package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newResolver(server *httptest.Server) *Resolver {
	return New([]string{server.URL}, 5*time.Second)
}

func TestCandidatesOrder(t *testing.T) {
	r := New([]string{"https://wyoleg.gov"}, time.Second)
	candidates := r.Candidates("HB0011", "2026")
	if len(candidates) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(candidates))
	}
	wantKinds := []string{"introduced", "engrossed", "enrolled", "fiscal"}
	for i, kind := range wantKinds {
		if candidates[i].Kind != kind {
			t.Errorf("candidate %d: expected %s, got %s", i, kind, candidates[i].Kind)
		}
	}
	if candidates[0].URL != "https://wyoleg.gov/2026/Introduced/HB0011.pdf" {
		t.Errorf("unexpected introduced URL: %s", candidates[0].URL)
	}
	if candidates[2].URL != "https://wyoleg.gov/2026/Enroll/HB0011.pdf" {
		t.Errorf("unexpected enrolled URL: %s", candidates[2].URL)
	}
}

func TestResolvePrefersIntroduced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.Contains(req.URL.Path, "/Introduced/"), strings.Contains(req.URL.Path, "/Fiscal/"):
			w.Header().Set("Content-Type", "application/pdf")
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	res := newResolver(server).Resolve(context.Background(), "HB0011", "2026")
	if !res.Success {
		t.Fatalf("expected success, notes: %s", res.Notes)
	}
	if res.BestKind != "introduced" {
		t.Errorf("expected introduced preferred, got %s", res.BestKind)
	}
	if len(res.CandidatesFound) != 2 {
		t.Errorf("expected both PDFs recorded, got %v", res.CandidatesFound)
	}
	if res.CandidatesChecked != 4 {
		t.Errorf("expected 4 candidates checked, got %d", res.CandidatesChecked)
	}
}

func TestResolveRejectsNonPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Everything answers 200 but serves HTML, like an SPA shell.
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	res := newResolver(server).Resolve(context.Background(), "HB0011", "2026")
	if res.Success {
		t.Error("HTML responses must not resolve as documents")
	}
	if res.BestURL != "" {
		t.Errorf("expected empty best URL, got %s", res.BestURL)
	}
}

func TestResolveFallsBackToGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.Contains(req.URL.Path, "/Enroll/") {
			http.NotFound(w, req)
			return
		}
		if req.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	res := newResolver(server).Resolve(context.Background(), "SF0013", "2026")
	if !res.Success || res.BestKind != "enrolled" {
		t.Fatalf("expected GET fallback to find enrolled PDF, got %+v", res)
	}
}

func TestResolveAmendmentFallback(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case strings.HasPrefix(req.URL.Path, "/Legislation/Amendment/"):
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<html><body>
				<a href="/2026/Amends/HB0011H2001.pdf">HB0011H2001</a>
				<a href="/2026/Other/notes.pdf">unrelated</a>
			</body></html>`))
		case strings.Contains(req.URL.Path, "/Amends/"):
			w.Header().Set("Content-Type", "application/pdf")
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, req)
		}
	}))
	defer server.Close()

	res := newResolver(server).Resolve(context.Background(), "HB0011", "2026")
	if !res.Success {
		t.Fatalf("expected amendment fallback to succeed, notes: %s", res.Notes)
	}
	if res.BestKind != "amendment" {
		t.Errorf("expected amendment kind, got %s", res.BestKind)
	}
	if !strings.Contains(res.BestURL, "/Amends/HB0011H2001.pdf") {
		t.Errorf("unexpected amendment URL: %s", res.BestURL)
	}
}

func TestResolveNothingFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	res := newResolver(server).Resolve(context.Background(), "HB9999", "2026")
	if res.Success {
		t.Error("expected failure when nothing is published")
	}
	if res.CandidatesChecked != 4 {
		t.Errorf("expected 4 candidates checked, got %d", res.CandidatesChecked)
	}
	if len(res.CandidatesFound) != 0 {
		t.Errorf("expected no candidates found, got %v", res.CandidatesFound)
	}
}
