// Package server exposes the JSON API and the server-rendered admin pages.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/haydenwy/civicboard/internal/blob"
	"github.com/haydenwy/civicboard/internal/classify"
	"github.com/haydenwy/civicboard/internal/config"
	"github.com/haydenwy/civicboard/internal/database"
	"github.com/haydenwy/civicboard/internal/resolve"
	"github.com/haydenwy/civicboard/internal/review"
	"github.com/haydenwy/civicboard/internal/scan"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Scanner runs one scan batch. Satisfied by scan.Orchestrator.
type Scanner interface {
	Scan(ctx context.Context, opts scan.Options) (*scan.Result, error)
}

// Analyzer generates bill summaries on demand. Satisfied by
// classify.Classifier; nil disables lazy summaries.
type Analyzer interface {
	Summarize(ctx context.Context, item *database.CivicItem, textExcerpt string) (*classify.Summary, *classify.Error)
}

// Server is the HTTP server for the civic API and admin pages.
type Server struct {
	cfg      *config.Config
	db       *database.DB
	store    *blob.Store
	scanner  Scanner
	analyzer Analyzer
	resolver *resolve.Resolver
	reviewer *review.Reviewer
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server.
func New(cfg *config.Config, db *database.DB, store *blob.Store, scanner Scanner, analyzer Analyzer, resolver *resolve.Resolver) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pageNames := []string{"index.html", "review.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		cfg:      cfg,
		db:       db,
		store:    store,
		scanner:  scanner,
		analyzer: analyzer,
		resolver: resolver,
		reviewer: review.New(db),
		pages:    pages,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return recoverJSON(s.mux)
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Internal
	s.mux.HandleFunc("POST /api/internal/civic/scan-pending-bills", s.handleScanPendingBills)
	s.mux.HandleFunc("GET /api/internal/debug/resolver", s.handleDebugResolver)
	s.mux.HandleFunc("GET /api/internal/openai-self-test", s.handleSelfTest)

	// Civic
	s.mux.HandleFunc("GET /api/civic/delegation", s.handleDelegation)
	s.mux.HandleFunc("GET /api/civic/items/{id}", s.handleGetItem)

	// Town hall
	s.mux.HandleFunc("GET /api/townhall/posts", s.handleListThreads)
	s.mux.HandleFunc("POST /api/townhall/posts", s.handleCreateThread)
	s.mux.HandleFunc("GET /api/townhall/posts/{id}", s.handleGetThread)
	s.mux.HandleFunc("POST /api/townhall/posts/{id}/replies", s.handleCreateReply)

	// Events
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events/create", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/pdf/{key}", s.handleGetBlob)
	s.mux.HandleFunc("GET /api/files/{key}", s.handleGetBlob)

	// Admin review
	s.mux.HandleFunc("GET /api/admin/staging", s.handleListStaging)
	s.mux.HandleFunc("POST /api/admin/staging/{id}/{action}", s.handleStagingAction)

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /review", s.handleReviewPage)
}

// recoverJSON converts handler panics into JSON 500 responses.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]any{
					"error":   "internal_error",
					"message": fmt.Sprint(rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// bearerToken extracts the Authorization bearer token, or "".
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// isLocalRequest reports whether the request arrived over loopback.
func isLocalRequest(r *http.Request) bool {
	host := r.Host
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		host = h
	}
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	topics, err := s.db.ListActiveHotTopics()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "index.html", map[string]any{
		"State":  s.cfg.Jurisdiction.State,
		"Topics": topics,
	})
}

func (s *Server) handleReviewPage(w http.ResponseWriter, r *http.Request) {
	pending, err := s.db.ListStagingTopics(review.StatusPending, "", 100)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "review.html", map[string]any{
		"Pending": pending,
	})
}

// Serve starts the HTTP server on the configured port.
func Serve(cfg *config.Config, db *database.DB, store *blob.Store, scanner Scanner, analyzer Analyzer, resolver *resolve.Resolver) error {
	srv, err := New(cfg, db, store, scanner, analyzer, resolver)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
