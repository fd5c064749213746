// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_radar/internal/app"
	"review_radar/internal/domain"
)

type Searcher interface {
	Search(ctx context.Context, query string, store domain.Store) ([]domain.App, error)
}

type Reviewer interface {
	Reviews(ctx context.Context, q app.ReviewQuery) (app.ReviewResult, error)
}

type Handlers struct {
	Search  Searcher
	Reviews Reviewer
	Events  domain.EventSink
	GAID    string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type reviewsMeta struct {
	AppID       string `json:"app_id"`
	ServiceName string `json:"service_name"`
	Store       string `json:"os"`
	Total       int    `json:"total"`
	Fetched     int    `json:"fetched"`
	Dropped     int    `json:"dropped"`
	Filtered    int    `json:"filtered"`
	Exhausted   bool   `json:"exhausted"`
	GeneratedAt string `json:"generated_at"`
}

type reviewsResponse struct {
	Meta reviewsMeta        `json:"meta"`
	Rows []app.ReviewRecord `json:"rows"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.Events == nil {
		h.Events = nopSink{}
	}
	s.mux.Get("/config.js", h.configJS)
	s.mux.Route("/api", func(r chi.Router) {
		if s.rl != nil {
			r.Use(s.rl.Middleware)
		}
		r.Get("/health", h.health)
		r.Get("/search", h.search)
		r.Get("/reviews", h.reviews)
		r.Get("/export/csv", h.exportCSV)
	})
}

type nopSink struct{}

func (nopSink) Emit(context.Context, string, map[string]any) {}

func writeProblem(w http.ResponseWriter, status int, typ, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: typ, Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses. Upstream details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeProblem(w, http.StatusBadRequest, "invalid-request", "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrInvalidAppID):
		writeProblem(w, http.StatusNotFound, "invalid-app-id", "Invalid App ID", err.Error())
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream unavailable")
		writeProblem(w, http.StatusBadGateway, "upstream-unavailable", "Upstream Unavailable",
			"the app store did not respond, try again later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("request aborted")
		writeProblem(w, http.StatusServiceUnavailable, "aborted", "Request Aborted", "request cancelled or timed out")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "about:blank", "Internal Server Error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// weakETag hashes a serialized representation.
func weakETag(body []byte) string {
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

var configTmpl = template.Must(template.New("config").Parse(
	"window.__APP_CONFIG__={GA_ID:'{{js .}}'};"))

func (h *Handlers) configJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := configTmpl.Execute(w, h.GAID); err != nil {
		log.Error().Err(err).Msg("render config.js failed")
	}
}

func storeParam(r *http.Request) domain.Store {
	return domain.ParseStore(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("os"))))
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	store := storeParam(r)
	apps, err := h.Search.Search(r.Context(), q, store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if apps == nil {
		apps = []domain.App{}
	}
	h.Events.Emit(r.Context(), "search", map[string]any{"os": string(store), "results": len(apps)})
	writeJSON(w, http.StatusOK, map[string]any{"items": apps})
}

func optionalInt(r *http.Request, name string) (*int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, domain.InvalidRequestf("%s must be an integer", name)
	}
	return &n, nil
}

func parseReviewQuery(r *http.Request) (app.ReviewQuery, error) {
	q := app.ReviewQuery{
		AppID: strings.TrimSpace(r.URL.Query().Get("appId")),
		Store: storeParam(r),
	}
	if q.AppID == "" {
		return q, domain.InvalidRequestf("missing appId")
	}
	count, err := optionalInt(r, "count")
	if err != nil {
		return q, err
	}
	if count == nil {
		return q, domain.InvalidRequestf("missing count")
	}
	q.Count = *count
	if q.RatingExact, err = optionalInt(r, "ratingExact"); err != nil {
		return q, err
	}
	if q.RatingMax, err = optionalInt(r, "ratingMax"); err != nil {
		return q, err
	}
	return q, nil
}

func (h *Handlers) runReviews(r *http.Request) (app.ReviewQuery, app.ReviewResult, error) {
	q, err := parseReviewQuery(r)
	if err != nil {
		return q, app.ReviewResult{}, err
	}
	res, err := h.Reviews.Reviews(r.Context(), q)
	return q, res, err
}

func (h *Handlers) reviews(w http.ResponseWriter, r *http.Request) {
	q, res, err := h.runReviews(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows := app.Records(res.Ranked)

	rowsBody, err := json.Marshal(rows)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// generated_at changes per call; only the ranked rows identify a version
	etag := weakETag(append([]byte(q.AppID+"\n"), rowsBody...))
	h.Events.Emit(r.Context(), "reviews", map[string]any{"app_id": q.AppID, "os": string(q.Store), "rows": len(rows)})

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, reviewsResponse{
		Meta: reviewsMeta{
			AppID:       q.AppID,
			ServiceName: app.ServiceName(res.App),
			Store:       string(q.Store),
			Total:       len(rows),
			Fetched:     res.Fetched,
			Dropped:     res.Dropped,
			Filtered:    res.Filtered,
			Exhausted:   res.Exhausted,
			GeneratedAt: res.GeneratedAt.Format(time.RFC3339),
		},
		Rows: rows,
	})
}

func (h *Handlers) exportCSV(w http.ResponseWriter, r *http.Request) {
	q, res, err := h.runReviews(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := app.ExportCSV(res.Ranked, app.CSVOptions{BOM: true})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.Events.Emit(r.Context(), "export_csv", map[string]any{"app_id": q.AppID, "os": string(q.Store), "rows": len(res.Ranked)})

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", contentDisposition(
		app.ExportFilename(q.AppID, res.GeneratedAt),
		fmt.Sprintf("%s_리뷰_%s.csv", app.ServiceName(res.App), res.GeneratedAt.Format("20060102")),
	))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write csv body")
	}
}

// contentDisposition sends an ASCII filename for old clients and the UTF-8
// name as an RFC 5987 extended parameter.
func contentDisposition(ascii, utf8Name string) string {
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, ascii, rfc5987Escape(utf8Name))
}

func rfc5987Escape(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
