package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/haydenwy/civicboard/internal/blob"
	"github.com/haydenwy/civicboard/internal/database"
	"github.com/haydenwy/civicboard/internal/review"
	"github.com/haydenwy/civicboard/internal/scan"
)

const maxUploadBytes = 10 << 20

// legislatorJSON is the wire shape for one representative.
type legislatorJSON struct {
	District string `json:"district"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Bio      string `json:"bio"`
}

// federalDelegation is Wyoming's static federal block: one at-large House
// seat and two senators. Updated manually when representation changes.
var federalDelegation = map[string]any{
	"house": legislatorJSON{
		District: "At-Large",
		Name:     "Harriet Hageman",
		Role:     "U.S. House (At-Large)",
		Email:    "hageman.house.gov",
		Phone:    "+1 (202) 225-2311",
		Website:  "https://hageman.house.gov",
		Bio:      "U.S. Representative, Wyoming At-Large District",
	},
	"senators": []legislatorJSON{
		{
			District: "Senior Senator",
			Name:     "John Barrasso",
			Role:     "U.S. Senator",
			Email:    "senator@barrasso.senate.gov",
			Phone:    "+1 (202) 224-6441",
			Website:  "https://www.barrasso.senate.gov",
			Bio:      "Senior Senator, Wyoming",
		},
		{
			District: "Junior Senator",
			Name:     "Cynthia Lummis",
			Role:     "U.S. Senator",
			Email:    "senator@lummis.senate.gov",
			Phone:    "+1 (202) 224-3424",
			Website:  "https://www.lummis.senate.gov",
			Bio:      "Junior Senator, Wyoming",
		},
	},
}

func (s *Server) handleScanPendingBills(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Scanner.Enabled {
		writeError(w, http.StatusForbidden, "scanner_disabled", "Bill scanning is disabled in configuration.")
		return
	}
	if s.cfg.Server.InternalToken == "" || bearerToken(r) != s.cfg.Server.InternalToken {
		writeError(w, http.StatusForbidden, "forbidden", "Internal token required.")
		return
	}

	var opts scan.Options
	if r.Body != nil {
		var body struct {
			Year      string `json:"year"`
			BatchSize int    `json:"batch_size"`
			Force     bool   `json:"force"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			opts = scan.Options{Year: body.Year, BatchSize: body.BatchSize, Force: body.Force}
		}
	}

	result, err := s.scanner.Scan(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scan_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDelegation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	voterID := r.URL.Query().Get("voter_id")

	var verified *database.VerifiedUser
	source := "none"
	var err error

	if userID != "" {
		verified, err = s.db.GetVerifiedUser(userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "delegation_lookup_failed", err.Error())
			return
		}
		if verified != nil {
			source = "verified_voter"
		}
	}
	if verified == nil && voterID != "" {
		verified, err = s.db.GetVerifiedUserByVoterID(voterID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "delegation_lookup_failed", err.Error())
			return
		}
		if verified != nil {
			source = "voter_id_lookup"
		}
	}

	resp := map[string]any{
		"source":  source,
		"county":  nil,
		"state":   s.cfg.Jurisdiction.State,
		"house":   nil,
		"senate":  nil,
		"federal": federalDelegation,
	}
	if verified == nil {
		resp["message"] = "No verified voter record found. Please verify your voter account."
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if verified.County != nil {
		resp["county"] = *verified.County
	}
	if rep := s.lookupLegislator("house", verified.House, "State House"); rep != nil {
		resp["house"] = rep
	}
	if rep := s.lookupLegislator("senate", verified.Senate, "State Senate"); rep != nil {
		resp["senate"] = rep
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lookupLegislator(chamber string, district *string, role string) *legislatorJSON {
	if district == nil || *district == "" {
		return nil
	}
	l, err := s.db.GetLegislator(chamber, *district)
	if err != nil {
		log.Printf("Legislator lookup failed (%s %s): %v", chamber, *district, err)
		return nil
	}
	if l == nil {
		return nil
	}
	out := &legislatorJSON{
		District: l.DistrictNumber,
		Name:     l.Name,
		Role:     role,
	}
	if l.ContactEmail != nil {
		out.Email = *l.ContactEmail
	}
	if l.ContactPhone != nil {
		out.Phone = *l.ContactPhone
	}
	if l.WebsiteURL != nil {
		out.Website = *l.WebsiteURL
	}
	if l.Bio != nil {
		out.Bio = *l.Bio
	}
	return out
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.db.GetCivicItem(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "item_lookup_failed", err.Error())
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown civic item.")
		return
	}

	// Generate the summary on first read when a provider is available.
	if s.analyzer != nil && deref(item.AISummary) == "" {
		summary, cerr := s.analyzer.Summarize(r.Context(), item, "")
		if cerr != nil {
			log.Printf("Lazy summary failed for %s: %v", item.ID, cerr)
		} else if summary.PlainSummary != "" {
			if err := s.db.UpdateItemSummary(item.ID, summary.PlainSummary, summary.KeyPoints); err != nil {
				log.Printf("Lazy summary write failed for %s: %v", item.ID, err)
			} else {
				item.AISummary = &summary.PlainSummary
				item.AIKeyPoints = summary.KeyPoints
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                      item.ID,
		"bill_number":             item.BillNumber,
		"title":                   item.Title,
		"summary":                 item.Summary,
		"status":                  item.Status,
		"legislative_session":     item.LegislativeSession,
		"chamber":                 item.Chamber,
		"subject_tags":            item.SubjectTags,
		"external_url":            item.ExternalURL,
		"text_url":                item.TextURL,
		"ai_summary":              item.AISummary,
		"ai_key_points":           item.AIKeyPoints,
		"ai_summary_generated_at": item.AISummaryGeneratedAt,
		"last_action":             item.LastAction,
		"last_action_date":        item.LastActionDate,
	})
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	threads, err := s.db.ListThreads(r.URL.Query().Get("county"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	results := make([]map[string]any, 0, len(threads))
	for _, t := range threads {
		snippet := t.Prompt
		if len(snippet) > 180 {
			snippet = snippet[:180]
		}
		results = append(results, map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"prompt":      t.Prompt,
			"county":      t.County,
			"bill_id":     t.BillID,
			"topic_slugs": t.TopicSlugs,
			"created_at":  t.CreatedAt,
			"snippet":     snippet,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// authenticate resolves the request's bearer token to a user id. Writes the
// 401 response itself and returns "" when authentication fails.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) string {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authorization required.")
		return ""
	}
	userID, err := s.db.LookupToken(token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return ""
	}
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Unknown token.")
		return ""
	}
	return userID
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	userID := s.authenticate(w, r)
	if userID == "" {
		return
	}

	var body struct {
		Title      string  `json:"title"`
		Prompt     string  `json:"prompt"`
		BillID     *string `json:"bill_id"`
		TopicSlugs *string `json:"topic_slugs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body.")
		return
	}
	title := strings.TrimSpace(body.Title)
	prompt := strings.TrimSpace(body.Prompt)
	if title == "" || prompt == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "title and prompt are required.")
		return
	}

	verified, err := s.db.GetVerifiedUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if verified == nil {
		writeError(w, http.StatusForbidden, "not_verified",
			"Verified county voter account required to post in this Town Hall.")
		return
	}

	threadID, createdAt, err := s.db.InsertThread(userID, verified.VoterID, verified.County,
		title, prompt, body.BillID, body.TopicSlugs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"thread_id":  threadID,
		"created_at": createdAt,
	})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.db.GetThread(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if thread == nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown thread.")
		return
	}
	replies, err := s.db.ListPosts(thread.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if replies == nil {
		replies = []database.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"thread":  thread,
		"replies": replies,
	})
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	userID := s.authenticate(w, r)
	if userID == "" {
		return
	}

	verified, err := s.db.GetVerifiedUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if verified == nil {
		writeError(w, http.StatusForbidden, "not_verified",
			"Verified county voter account required to reply in this Town Hall.")
		return
	}

	thread, err := s.db.GetThread(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if thread == nil {
		writeError(w, http.StatusNotFound, "not_found", "Unknown thread.")
		return
	}
	// Replies stay within the thread's county.
	if thread.County != nil && verified.County != nil && *thread.County != *verified.County {
		writeError(w, http.StatusForbidden, "not_verified", "Replies must match the thread's county.")
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Body) == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "body is required.")
		return
	}

	replyID, createdAt, err := s.db.InsertPost(thread.ID, userID, verified.VoterID, strings.TrimSpace(body.Body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         replyID,
		"thread_id":  thread.ID,
		"body":       strings.TrimSpace(body.Body),
		"created_at": createdAt,
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.ListUpcomingEvents()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		entry := map[string]any{
			"id":       e.ID,
			"name":     e.Name,
			"date":     e.Date,
			"location": e.Location,
			"lat":      e.Lat,
			"lng":      e.Lng,
		}
		if e.PDFKey != nil {
			entry["pdf_key"] = *e.PDFKey
			entry["pdf_url"] = "/api/events/pdf/" + *e.PDFKey
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Expected multipart form data.")
		return
	}

	userID := r.FormValue("userId")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "auth_required", "Login required to create events.")
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	date := strings.TrimSpace(r.FormValue("date"))
	if name == "" || date == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "name and date are required.")
		return
	}

	event := &database.Event{
		UserID: &userID,
		Name:   name,
		Date:   date,
	}
	setOptional(&event.Location, r.FormValue("location"))
	setOptional(&event.Description, r.FormValue("description"))
	setOptional(&event.Sponsor, r.FormValue("sponsor"))
	setOptional(&event.ContactEmail, r.FormValue("contactEmail"))
	setOptional(&event.ContactPhone, r.FormValue("contactPhone"))
	if lat, err := strconv.ParseFloat(r.FormValue("lat"), 64); err == nil {
		event.Lat = &lat
	}
	if lng, err := strconv.ParseFloat(r.FormValue("lng"), 64); err == nil {
		event.Lng = &lng
	}

	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_file", "Could not read uploaded file.")
			return
		}
		if !strings.HasPrefix(string(data[:min(len(data), 5)]), "%PDF-") {
			writeError(w, http.StatusBadRequest, "invalid_file", "Uploaded file must be a PDF.")
			return
		}

		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])
		event.PDFHash = &hash

		key, err := s.store.Put(strings.NewReader(string(data)))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		event.PDFKey = &key
	}

	id, duplicate, err := s.db.InsertEvent(event)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if duplicate && event.PDFKey != nil {
		// The content already exists under another event; drop the new copy.
		if err := s.store.Delete(*event.PDFKey); err != nil {
			log.Printf("Failed to remove duplicate upload %s: %v", *event.PDFKey, err)
		}
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"success":   true,
		"id":        id,
		"duplicate": duplicate,
	})
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rc, err := s.store.Open(key)
	if errors.Is(err, blob.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+key+`"`)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	io.Copy(w, rc)
}

// requireAdmin gates the review endpoints behind the configured admin token.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.Server.AdminToken == "" || bearerToken(r) != s.cfg.Server.AdminToken {
		writeError(w, http.StatusForbidden, "forbidden", "Admin token required.")
		return false
	}
	return true
}

func (s *Server) handleListStaging(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	records, err := s.db.ListStagingTopics(r.URL.Query().Get("status"), r.URL.Query().Get("session"), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if records == nil {
		records = []database.StagingTopic{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": records})
}

func (s *Server) handleStagingAction(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "Staging id must be numeric.")
		return
	}

	var body struct {
		Reviewer string  `json:"reviewer"`
		Notes    *string `json:"notes"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Reviewer == "" {
		body.Reviewer = "admin"
	}

	switch r.PathValue("action") {
	case "approve":
		err = s.reviewer.Approve(id, body.Reviewer, body.Notes)
	case "reject":
		err = s.reviewer.Reject(id, body.Reviewer, body.Notes)
	case "promote":
		var topic *database.HotTopic
		topic, err = s.reviewer.Promote(id, body.Reviewer)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "topic": topic})
			return
		}
	default:
		writeError(w, http.StatusNotFound, "not_found", "Unknown review action.")
		return
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case errors.Is(err, review.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, review.ErrIllegalTransition), errors.Is(err, review.ErrIncomplete):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) handleDebugResolver(w http.ResponseWriter, r *http.Request) {
	if !isLocalRequest(r) {
		writeError(w, http.StatusForbidden, "forbidden", "Dev access only.")
		return
	}
	bill := r.URL.Query().Get("bill")
	year := r.URL.Query().Get("year")
	if bill == "" || year == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "bill and year are required.")
		return
	}
	if s.resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Resolver not configured.")
		return
	}
	writeJSON(w, http.StatusOK, s.resolver.Resolve(r.Context(), bill, year))
}

func (s *Server) handleSelfTest(w http.ResponseWriter, r *http.Request) {
	if !isLocalRequest(r) {
		writeError(w, http.StatusForbidden, "forbidden", "Dev access only.")
		return
	}
	if s.analyzer == nil {
		writeJSON(w, http.StatusOK, map[string]any{"configured": false})
		return
	}

	item := &database.CivicItem{
		ID:                 "self-test",
		BillNumber:         "HB0000",
		Title:              "Connectivity self test",
		Status:             "introduced",
		LegislativeSession: strconv.Itoa(time.Now().Year()),
		Jurisdiction:       s.cfg.Jurisdiction.Key,
	}
	summary, cerr := s.analyzer.Summarize(r.Context(), item, "")
	if cerr != nil {
		writeJSON(w, http.StatusOK, map[string]any{"configured": true, "ok": false, "error": cerr.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configured": true, "ok": true, "note": summary.Note})
}

func setOptional(dst **string, value string) {
	value = strings.TrimSpace(value)
	if value != "" {
		*dst = &value
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
