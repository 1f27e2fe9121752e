package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/haydenwy/civicboard/internal/blob"
	"github.com/haydenwy/civicboard/internal/config"
	"github.com/haydenwy/civicboard/internal/database"
	"github.com/haydenwy/civicboard/internal/scan"
)

func newTestStore(t *testing.T) *blob.Store {
	t.Helper()
	store, err := blob.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating blob store: %v", err)
	}
	return store
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type fakeScanner struct {
	result *scan.Result
	err    error
	opts   scan.Options
}

func (f *fakeScanner) Scan(ctx context.Context, opts scan.Options) (*scan.Result, error) {
	f.opts = opts
	return f.result, f.err
}

func ptr(s string) *string { return &s }

func testServer(t *testing.T, cfg *config.Config, scanner Scanner) (*Server, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if cfg == nil {
		cfg = &config.Config{
			Jurisdiction: config.Jurisdiction{Key: "WY", State: "Wyoming"},
			Server:       config.Server{Port: 8787, AdminToken: "admin-secret"},
		}
	}
	srv, err := New(cfg, db, newTestStore(t), scanner, nil, nil)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	return srv, db
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestCreateThreadRequiresAuth(t *testing.T) {
	srv, db := testServer(t, nil, nil)
	h := srv.Handler()

	body := map[string]string{"title": "Ditch rights", "prompt": "Who else is tracking HB 11?"}

	w := doJSON(t, h, "POST", "/api/townhall/posts", "", body)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", w.Code)
	}

	w = doJSON(t, h, "POST", "/api/townhall/posts", "nope", body)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown token: got %d, want 401", w.Code)
	}

	// Known token but no voter verification.
	if err := db.InsertToken("tok-1", "user-1"); err != nil {
		t.Fatal(err)
	}
	w = doJSON(t, h, "POST", "/api/townhall/posts", "tok-1", body)
	if w.Code != http.StatusForbidden {
		t.Errorf("unverified: got %d, want 403", w.Code)
	}
	if resp := decode(t, w); resp["error"] != "not_verified" {
		t.Errorf("unexpected error code: %v", resp["error"])
	}
}

func TestCreateThreadAndReply(t *testing.T) {
	srv, db := testServer(t, nil, nil)
	h := srv.Handler()

	if err := db.InsertToken("tok-1", "user-1"); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertVerifiedUser(&database.VerifiedUser{
		UserID: "user-1", VoterID: ptr("WY-000123"), County: ptr("Laramie"),
	}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, h, "POST", "/api/townhall/posts", "tok-1", map[string]string{
		"title":  "Property tax cap",
		"prompt": "The assessor's letter says my valuation jumped 28% this year.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, want 201: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	threadID, _ := created["thread_id"].(string)
	if threadID == "" || created["created_at"] == "" {
		t.Fatalf("incomplete create response: %v", created)
	}

	// Missing fields are rejected before any verification check.
	w = doJSON(t, h, "POST", "/api/townhall/posts", "tok-1", map[string]string{"title": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing prompt: got %d, want 400", w.Code)
	}

	w = doJSON(t, h, "GET", "/api/townhall/posts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}
	list := decode(t, w)
	results, _ := list["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(results))
	}
	first := results[0].(map[string]any)
	if first["snippet"] == "" {
		t.Error("expected a snippet in list results")
	}

	// A verified voter from another county cannot reply.
	if err := db.InsertToken("tok-2", "user-2"); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertVerifiedUser(&database.VerifiedUser{
		UserID: "user-2", VoterID: ptr("WY-000999"), County: ptr("Natrona"),
	}); err != nil {
		t.Fatal(err)
	}
	w = doJSON(t, h, "POST", "/api/townhall/posts/"+threadID+"/replies", "tok-2",
		map[string]string{"body": "Same in Natrona."})
	if w.Code != http.StatusForbidden {
		t.Errorf("cross-county reply: got %d, want 403", w.Code)
	}

	w = doJSON(t, h, "POST", "/api/townhall/posts/"+threadID+"/replies", "tok-1",
		map[string]string{"body": "Mine went up 31%."})
	if w.Code != http.StatusCreated {
		t.Fatalf("reply: got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, "GET", "/api/townhall/posts/"+threadID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get thread: got %d", w.Code)
	}
	detail := decode(t, w)
	replies, _ := detail["replies"].([]any)
	if len(replies) != 1 {
		t.Errorf("expected 1 reply, got %d", len(replies))
	}
}

func TestDelegationLookup(t *testing.T) {
	srv, db := testServer(t, nil, nil)
	h := srv.Handler()

	if _, err := db.InsertLegislator(&database.Legislator{
		Name: "Jane Doe", Chamber: "house", DistrictNumber: "57",
		ContactEmail: ptr("jane.doe@wyoleg.gov"), ContactPhone: ptr("+1 (307) 555-0157"),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.InsertLegislator(&database.Legislator{
		Name: "John Roe", Chamber: "senate", DistrictNumber: "5",
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertVerifiedUser(&database.VerifiedUser{
		UserID: "user-1", VoterID: ptr("WY-000123"), County: ptr("Laramie"),
		House: ptr("57"), Senate: ptr("5"),
	}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, h, "GET", "/api/civic/delegation?user_id=user-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["source"] != "verified_voter" {
		t.Errorf("source = %v, want verified_voter", resp["source"])
	}
	if resp["county"] != "Laramie" || resp["state"] != "Wyoming" {
		t.Errorf("unexpected jurisdiction: county=%v state=%v", resp["county"], resp["state"])
	}
	house, _ := resp["house"].(map[string]any)
	if house == nil || house["name"] != "Jane Doe" || house["role"] != "State House" {
		t.Errorf("unexpected house rep: %v", house)
	}
	senate, _ := resp["senate"].(map[string]any)
	if senate == nil || senate["name"] != "John Roe" {
		t.Errorf("unexpected senate rep: %v", senate)
	}
	if _, ok := resp["federal"].(map[string]any); !ok {
		t.Error("expected federal delegation block")
	}

	// Direct voter-id lookup.
	w = doJSON(t, h, "GET", "/api/civic/delegation?voter_id=WY-000123", "", nil)
	if resp := decode(t, w); resp["source"] != "voter_id_lookup" {
		t.Errorf("source = %v, want voter_id_lookup", resp["source"])
	}

	// Unknown user still gets the federal block.
	w = doJSON(t, h, "GET", "/api/civic/delegation?user_id=stranger", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unknown user: got %d", w.Code)
	}
	resp = decode(t, w)
	if resp["source"] != "none" || resp["house"] != nil || resp["message"] == "" {
		t.Errorf("unexpected fallback response: %v", resp)
	}
	if _, ok := resp["federal"].(map[string]any); !ok {
		t.Error("expected federal delegation block for unknown voter")
	}
}

func TestScanEndpointGating(t *testing.T) {
	cfg := &config.Config{
		Jurisdiction: config.Jurisdiction{Key: "WY", State: "Wyoming"},
		Server:       config.Server{Port: 8787, InternalToken: "internal-secret"},
	}
	srv, _ := testServer(t, cfg, &fakeScanner{result: &scan.Result{Scanned: 3}})
	h := srv.Handler()

	// Scanner disabled wins over everything else.
	w := doJSON(t, h, "POST", "/api/internal/civic/scan-pending-bills", "internal-secret", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("disabled: got %d, want 403", w.Code)
	}
	if resp := decode(t, w); resp["error"] != "scanner_disabled" {
		t.Errorf("unexpected error code: %v", resp["error"])
	}
}

func TestScanEndpoint(t *testing.T) {
	cfg := &config.Config{
		Jurisdiction: config.Jurisdiction{Key: "WY", State: "Wyoming"},
		Scanner:      config.Scanner{Enabled: true},
		Server:       config.Server{Port: 8787, InternalToken: "internal-secret"},
	}
	scanner := &fakeScanner{result: &scan.Result{Scanned: 3, SummariesWritten: 2}}
	srv, _ := testServer(t, cfg, scanner)
	h := srv.Handler()

	w := doJSON(t, h, "POST", "/api/internal/civic/scan-pending-bills", "wrong", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("wrong token: got %d, want 403", w.Code)
	}

	w = doJSON(t, h, "POST", "/api/internal/civic/scan-pending-bills", "internal-secret",
		map[string]any{"year": "2026", "batch_size": 10, "force": true})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	if scanner.opts.Year != "2026" || scanner.opts.BatchSize != 10 || !scanner.opts.Force {
		t.Errorf("options not forwarded: %+v", scanner.opts)
	}
	resp := decode(t, w)
	if resp["scanned"] != float64(3) {
		t.Errorf("scanned = %v, want 3", resp["scanned"])
	}
}

func TestAdminStagingActions(t *testing.T) {
	srv, db := testServer(t, nil, nil)
	h := srv.Handler()

	w := doJSON(t, h, "GET", "/api/admin/staging", "", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("no token: got %d, want 403", w.Code)
	}

	summary := ptr("An act providing property tax relief for primary residences.")
	if err := db.InsertCivicItem(&database.CivicItem{
		ID: "2026_HB0004", BillNumber: "HB0004", Title: "Property tax relief",
		Summary: summary, Status: "introduced", LegislativeSession: "2026",
		Jurisdiction: "WY", Level: "state", Source: "wyoleg",
	}); err != nil {
		t.Fatal(err)
	}
	conf := 0.9
	id, err := db.InsertStagingTopic(&database.StagingTopic{
		CivicItemID: "2026_HB0004", Slug: "property-tax-relief",
		Title: "Property Tax Relief", Summary: summary, Priority: 10,
		Confidence: &conf, TriggerSnippet: ptr("providing property tax relief"),
		ReasonSummary: ptr("Directly reduces residential assessments."),
		AISource:      "openai", IsComplete: true, LegislativeSession: ptr("2026"),
	})
	if err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, h, "GET", "/api/admin/staging?status=pending", "admin-secret", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}
	list := decode(t, w)
	if results, _ := list["results"].([]any); len(results) != 1 {
		t.Fatalf("expected 1 pending record, got %v", list["results"])
	}

	path := "/api/admin/staging/" + itoa(id)
	// Promote before approve is a state conflict.
	w = doJSON(t, h, "POST", path+"/promote", "admin-secret", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("premature promote: got %d, want 409", w.Code)
	}

	w = doJSON(t, h, "POST", path+"/approve", "admin-secret", map[string]string{"reviewer": "casey"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, "POST", path+"/promote", "admin-secret", map[string]string{"reviewer": "casey"})
	if w.Code != http.StatusOK {
		t.Fatalf("promote: got %d: %s", w.Code, w.Body.String())
	}
	topic, err := db.GetHotTopic("property-tax-relief")
	if err != nil || topic == nil {
		t.Fatalf("expected published topic, got %v (%v)", topic, err)
	}

	w = doJSON(t, h, "POST", path+"/publish", "admin-secret", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown action: got %d, want 404", w.Code)
	}
}

func TestEventCreateRequiresUser(t *testing.T) {
	srv, _ := testServer(t, nil, nil)
	h := srv.Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Town hall")
	mw.WriteField("date", "2026-09-15")
	mw.Close()

	req := httptest.NewRequest("POST", "/api/events/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", w.Code)
	}
	if resp := decode(t, w); resp["error"] != "auth_required" {
		t.Errorf("unexpected error code: %v", resp["error"])
	}
}

func TestBlobNotFound(t *testing.T) {
	srv, _ := testServer(t, nil, nil)
	w := doJSON(t, srv.Handler(), "GET", "/api/events/pdf/secrets.txt", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", w.Code)
	}
	w = doJSON(t, srv.Handler(), "GET", "/api/files/9a4cf08a-3b5c-4a57-9f4e-000000000000", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", w.Code)
	}
}

func TestIndexPage(t *testing.T) {
	srv, db := testServer(t, nil, nil)
	if err := db.UpsertHotTopic(&database.HotTopic{
		Slug: "water-rights", Title: "Water Rights & Drought Planning",
		Summary: ptr("Bills changing **priority of appropriation**."), IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, srv.Handler(), "GET", "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Water Rights") {
		t.Error("expected topic title on index page")
	}
	if !strings.Contains(body, "<strong>priority of appropriation</strong>") {
		t.Error("expected markdown-rendered summary")
	}
}

func TestDebugResolverLocalOnly(t *testing.T) {
	srv, _ := testServer(t, nil, nil)
	h := srv.Handler()

	req := httptest.NewRequest("GET", "/api/internal/debug/resolver?bill=HB0011&year=2026", nil)
	req.Host = "civicboard.example.org"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("remote host: got %d, want 403", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/internal/debug/resolver?bill=HB0011&year=2026", nil)
	req.Host = "localhost:8787"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	// No resolver is wired in tests, so local access reports unavailable.
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("local host: got %d, want 503", w.Code)
	}
}
