// Package api exposes the thin HTTP adapters over the core: search,
// catalog browsing, token redemption, and metrics. Handlers validate
// input, call into the core, and shape JSON; nothing else lives here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/franz/media-indexer/internal/auth"
	"github.com/franz/media-indexer/internal/catalog"
	"github.com/franz/media-indexer/internal/link"
	"github.com/franz/media-indexer/internal/metrics"
	"github.com/franz/media-indexer/internal/query"
	"github.com/franz/media-indexer/internal/search"
	"github.com/franz/media-indexer/internal/util"
)

// DefaultPageSize is the result page size when none is configured
const DefaultPageSize = 10

// Server holds the core collaborators the handlers call into
type Server struct {
	store    *catalog.Store
	index    *search.Index
	cache    *search.Cache
	registry *query.Registry
	auth     *auth.Service
	metrics  *metrics.Metrics
	pageSize int
	botName  string
}

// NewServer wires a server. pageSize <= 0 selects the default; botName,
// when set, adds chat deep links to search results.
func NewServer(store *catalog.Store, index *search.Index, cache *search.Cache, registry *query.Registry, authSvc *auth.Service, m *metrics.Metrics, pageSize int, botName string) *Server {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Server{
		store:    store,
		index:    index,
		cache:    cache,
		registry: registry,
		auth:     authSvc,
		metrics:  m,
		pageSize: pageSize,
		botName:  botName,
	}
}

// Router builds the HTTP route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/authorize", s.handleAuthorize)
	r.Post("/api/redeem", s.handleRedeem)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/api/search", s.handleSearch)
		r.Get("/api/entries", s.handleEntries)
		r.Get("/api/entries/{id}", s.handleEntryFiles)
	})

	r.Method("GET", "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	return r
}

type ctxKey int

const userKey ctxKey = 0

// requireUser gates a route on a currently authorized user. The user id
// travels in the user_id cookie set by /api/authorize.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("user_id")
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		userID, err := strconv.ParseInt(cookie.Value, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user id format")
			return
		}
		if !s.auth.IsAuthorized(userID) {
			writeError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authorizeRequest struct {
	UserID json.Number `json:"user_id"`
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := req.UserID.Int64()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id format")
		return
	}
	if !s.auth.IsAuthorized(userID) {
		writeError(w, http.StatusUnauthorized, "user not authorized")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "user_id",
		Value:    strconv.FormatInt(userID, 10),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "authorization successful"})
}

type redeemRequest struct {
	TokenID string      `json:"token_id"`
	UserID  json.Number `json:"user_id"`
}

// handleRedeem validates a presented token and refreshes the user's grant.
// An expired or unknown token prompts re-issuance, not a hard failure.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := req.UserID.Int64()
	if err != nil || req.TokenID == "" {
		writeError(w, http.StatusBadRequest, "invalid token or user id")
		return
	}

	if !s.auth.Validate(req.TokenID, userID) {
		writeError(w, http.StatusUnauthorized, "token invalid or expired, request a new one")
		return
	}
	if err := s.auth.Redeem(userID); err != nil {
		util.ErrorLog("api: redeem failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not grant access")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "access granted"})
}

type fileResponse struct {
	Handle   string  `json:"handle"`
	Name     string  `json:"name"`
	Size     string  `json:"size"`
	Format   string  `json:"format,omitempty"`
	Score    float64 `json:"score"`
	Poster   string  `json:"poster,omitempty"`
	DeepLink string  `json:"deep_link,omitempty"`
}

type searchResponse struct {
	Files       []fileResponse `json:"files"`
	QueryHandle string         `json:"query_handle,omitempty"`
	TotalPages  int            `json:"total_pages"`
	CurrentPage int            `json:"current_page"`
}

// handleSearch serves one page of full-text results. The query arrives
// either as q= text or as qh=, a registered query handle; an expired
// handle asks the caller to resend the search. No match is an empty page,
// not an error.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	queryHandle := ""
	if q == "" {
		if handle := r.URL.Query().Get("qh"); handle != "" {
			stored, ok := s.registry.Lookup(handle)
			if !ok {
				writeError(w, http.StatusGone, "query expired, please resend your search")
				return
			}
			q = stored
			queryHandle = handle
		}
	}

	page := parsePage(r.URL.Query().Get("page"))
	scopeParam := r.URL.Query().Get("scope")

	var scope search.Scope
	if scopeParam != "" {
		id, err := strconv.ParseInt(scopeParam, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid scope")
			return
		}
		scope.Include = []int64{id}
	}

	sanitized := search.Sanitize(q)
	// A fresh text query gets a short handle so subsequent pages can be
	// requested with qh= instead of resending the text.
	if queryHandle == "" && sanitized != "" {
		queryHandle = s.registry.Store(sanitized)
	}
	results, total, ok := s.cache.Get(sanitized, page, scopeParam)
	if ok {
		if s.metrics != nil {
			s.metrics.SearchCacheHits.Inc()
		}
	} else {
		if s.metrics != nil {
			s.metrics.SearchCacheMisses.Inc()
		}
		skip := (page - 1) * s.pageSize
		plan := search.BuildPlan(sanitized, scope, skip, s.pageSize)
		var err error
		results, total, err = s.index.Execute(plan)
		if err != nil {
			util.ErrorLog("api: search failed: %v", err)
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		s.cache.Put(sanitized, page, scopeParam, results, total)
	}

	files := make([]fileResponse, 0, len(results))
	for _, res := range results {
		f := fileResponse{
			Handle: link.Encode(res.SourceID, res.ItemID),
			Name:   res.Name,
			Size:   humanize.Bytes(uint64(res.Size)),
			Format: res.Format,
			Score:  res.Score,
			Poster: res.Poster,
		}
		if s.botName != "" {
			f.DeepLink = link.FileDeepLink(s.botName, res.SourceID, res.ItemID)
		}
		files = append(files, f)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Files:       files,
		QueryHandle: queryHandle,
		TotalPages:  search.TotalPages(total, s.pageSize),
		CurrentPage: page,
	})
}

type entryResponse struct {
	MetadataID   int64  `json:"metadata_id"`
	MetadataType string `json:"metadata_type"`
	Title        string `json:"title"`
	Year         string `json:"year,omitempty"`
	Rating       string `json:"rating,omitempty"`
	Plot         string `json:"plot,omitempty"`
	PosterPath   string `json:"poster_path,omitempty"`
	TrailerURL   string `json:"trailer_url,omitempty"`
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r.URL.Query().Get("page"))
	entryType := r.URL.Query().Get("type")
	sortBy := r.URL.Query().Get("sort")

	skip := (page - 1) * s.pageSize
	entries, total, err := s.store.ListEntries(entryType, sortBy, skip, s.pageSize)
	if err != nil {
		util.ErrorLog("api: entry list failed: %v", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":      out,
		"total_pages":  search.TotalPages(total, s.pageSize),
		"current_page": page,
	})
}

// handleEntryFiles lists the catalog files linked to one metadata entry
func (s *Server) handleEntryFiles(w http.ResponseWriter, r *http.Request) {
	metadataID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata id")
		return
	}
	entryType := r.URL.Query().Get("type")
	page := parsePage(r.URL.Query().Get("page"))

	entry, err := s.store.GetEntry(metadataID, entryType)
	if err != nil {
		util.ErrorLog("api: entry fetch failed: %v", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	skip := (page - 1) * s.pageSize
	files, total, err := s.store.ListFilesByEntry(metadataID, entryType, skip, s.pageSize)
	if err != nil {
		util.ErrorLog("api: entry files failed: %v", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileResponse{
			Handle: link.Encode(f.SourceID, f.ItemID),
			Name:   f.Name,
			Size:   humanize.Bytes(uint64(f.Size)),
			Format: f.Format,
			Poster: f.PosterRef,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entry":        toEntryResponse(entry),
		"files":        out,
		"total_pages":  search.TotalPages(total, s.pageSize),
		"current_page": page,
	})
}

func toEntryResponse(e *catalog.CatalogEntry) entryResponse {
	return entryResponse{
		MetadataID:   e.MetadataID,
		MetadataType: e.MetadataType,
		Title:        e.Title,
		Year:         e.Year,
		Rating:       e.Rating,
		Plot:         e.Plot,
		PosterPath:   e.PosterPath,
		TrailerURL:   e.TrailerURL,
	}
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
