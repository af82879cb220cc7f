package httpserver

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_pulse/internal/adapters/csvsource"
	"review_pulse/internal/adapters/fetch"
	"review_pulse/internal/app"
	"review_pulse/internal/domain"
)

// Fetcher downloads a remote CSV export.
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Document, error)
}

type Handlers struct {
	Q         *app.QueryService
	Ing       *app.IngestionService
	Fetch     Fetcher
	MaxUpload int64

	v *requestValidator
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.v == nil {
		h.v = newValidator()
	}
	if h.MaxUpload <= 0 {
		h.MaxUpload = 10 << 20
	}
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/sample.csv", h.sampleCSV)

		r.Post("/datasets", h.upload)
		r.Post("/datasets/demo", h.loadDemo)
		r.Post("/datasets/import", h.importURL)
		r.Get("/datasets/current", h.currentDataset)

		r.Get("/reviews", h.listReviews)

		r.Get("/analytics/sentiment", h.sentiment)
		r.Get("/analytics/issues", h.topIssues)
		r.Get("/analytics/persistent", h.persistent)
		r.Get("/analytics/categories", h.categories)
		r.Get("/analytics/categories/{name}", h.drilldown)

		r.Get("/reports/audit", h.audit)
		r.Get("/reports/owner", h.owner)
	})
}

/********** responses **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemDetails(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemDetails(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// fail maps service errors onto problem responses.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var fe fieldErrors
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &fe):
		writeProblemDetails(w, problem{Type: "about:blank", Title: "Invalid Request", Status: http.StatusBadRequest, Detail: "validation failed", Errors: fe})
	case errors.As(err, &tooBig), errors.Is(err, fetch.ErrTooLarge):
		writeProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "file exceeds the upload limit")
	case errors.Is(err, domain.ErrNoDataset):
		writeProblem(w, http.StatusNotFound, "No Dataset", err.Error())
	case errors.Is(err, domain.ErrNotCSV):
		writeProblem(w, http.StatusUnsupportedMediaType, "Unsupported Media Type", domain.ErrNotCSV.Error())
	case errors.Is(err, domain.ErrNoRows):
		writeProblem(w, http.StatusUnprocessableEntity, "Empty File", domain.ErrNoRows.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "request timed out")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v as JSON with a weak ETag, or 304 if the client has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

/********** ingestion **********/

func (h *Handlers) sampleCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sample_reviews.csv"`)
	_, _ = w.Write(csvsource.Sample())
}

func (h *Handlers) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				fail(w, r, err)
				return
			}
			writeProblem(w, http.StatusBadRequest, "Invalid Upload", "Error reading file: "+err.Error())
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			fail(w, r, fieldErrors{"file": "is required"})
			return
		}
		defer f.Close()
		if !csvsource.LooksLikeCSV(hdr.Filename, hdr.Header.Get("Content-Type")) {
			fail(w, r, domain.ErrNotCSV)
			return
		}
		h.ingest(w, r, hdr.Filename, f)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.csv"
	}
	if !csvsource.LooksLikeCSV(name, r.Header.Get("Content-Type")) {
		fail(w, r, domain.ErrNotCSV)
		return
	}
	h.ingest(w, r, name, r.Body)
}

type importRequest struct {
	URL string `json:"url" validate:"required,url"`
}

func (h *Handlers) importURL(w http.ResponseWriter, r *http.Request) {
	if h.Fetch == nil {
		writeProblem(w, http.StatusNotImplemented, "Not Implemented", "remote import is disabled")
		return
	}
	var req importRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.v.validate(req); err != nil {
		fail(w, r, err)
		return
	}

	doc, err := h.Fetch.Get(r.Context(), req.URL)
	switch {
	case err == nil:
	case errors.Is(err, fetch.ErrBlockedAddress):
		fail(w, r, fieldErrors{"url": "must point to a public address"})
		return
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusBadGateway, "Upstream Error", fmt.Sprintf("fetch %s: %v", req.URL, err))
		return
	default:
		fail(w, r, err)
		return
	}
	h.ingest(w, r, req.URL, bytes.NewReader(doc.Body))
}

func (h *Handlers) loadDemo(w http.ResponseWriter, r *http.Request) {
	rows, err := csvsource.Demo()
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.Ing.Ingest(r.Context(), "demo", rows)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) ingest(w http.ResponseWriter, r *http.Request, source string, body io.Reader) {
	rows, err := csvsource.Parse(body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.Is(err, domain.ErrNoRows) || errors.As(err, &tooBig) {
			fail(w, r, err)
			return
		}
		writeProblem(w, http.StatusBadRequest, "Invalid CSV", "Error reading file: "+err.Error())
		return
	}
	res, err := h.Ing.Ingest(r.Context(), source, rows)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

/********** queries **********/

func (h *Handlers) currentDataset(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Q.Current(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCached(w, r, sum)
}

type reviewsQuery struct {
	Search    string `json:"q" validate:"max=200"`
	Sentiment string `json:"sentiment" validate:"omitempty,oneof=all positive neutral negative"`
	Listing   string `json:"listing"`
	Channel   string `json:"channel"`
	From      string `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Category  string `json:"category" validate:"omitempty,category"`
	Format    string `json:"format" validate:"omitempty,oneof=json csv"`
}

type reviewsResponse struct {
	Count   int             `json:"count"`
	Reviews []domain.Review `json:"reviews"`
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := reviewsQuery{
		Search:    strings.TrimSpace(qs.Get("q")),
		Sentiment: strings.ToLower(qs.Get("sentiment")),
		Listing:   qs.Get("listing"),
		Channel:   qs.Get("channel"),
		From:      qs.Get("from"),
		To:        qs.Get("to"),
		Category:  qs.Get("category"),
		Format:    strings.ToLower(qs.Get("format")),
	}
	if err := h.v.validate(q); err != nil {
		fail(w, r, err)
		return
	}
	if q.From != "" && q.To != "" && q.To < q.From {
		fail(w, r, fieldErrors{"to": "must not be before from"})
		return
	}

	out, err := h.Q.Reviews(r.Context(), domain.Predicates{
		Search:    q.Search,
		Sentiment: q.Sentiment,
		Listing:   q.Listing,
		Channel:   q.Channel,
		From:      q.From,
		To:        q.To,
		Category:  q.Category,
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	if q.Format == "csv" {
		writeReviewsCSV(w, out)
		return
	}
	writeCached(w, r, reviewsResponse{Count: len(out), Reviews: out})
}

var exportHeader = []string{"id", "source", "date", "rating", "author", "listingName", "text", "sentiment", "tags"}

// writeReviewsCSV exports in the same column layout the importer reads.
func writeReviewsCSV(w http.ResponseWriter, reviews []domain.Review) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reviews.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, rv := range reviews {
		_ = cw.Write([]string{
			rv.ID,
			rv.Source,
			rv.Date,
			strconv.FormatFloat(rv.Rating, 'f', -1, 64),
			rv.Author,
			rv.Listing(),
			rv.Text,
			string(rv.Sentiment),
			strings.Join(rv.Tags, ", "),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error().Err(err).Msg("failed to write CSV export")
	}
}

func (h *Handlers) sentiment(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Sentiment(r.Context(), r.URL.Query().Get("listing"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCached(w, r, out)
}

type issuesQuery struct {
	Limit int `json:"limit" validate:"gte=1,lte=50"`
}

func (h *Handlers) topIssues(w http.ResponseWriter, r *http.Request) {
	q := issuesQuery{Limit: 5}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil {
			fail(w, r, fieldErrors{"limit": "must be an integer"})
			return
		}
		q.Limit = l
	}
	if err := h.v.validate(q); err != nil {
		fail(w, r, err)
		return
	}
	out, err := h.Q.TopIssues(r.Context(), r.URL.Query().Get("listing"), q.Limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) persistent(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.PersistentIssues(r.Context(), r.URL.Query().Get("listing"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) categories(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Analysis(r.Context(), r.URL.Query().Get("listing"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCached(w, r, out)
}

type drilldownQuery struct {
	Category string `json:"name" validate:"required,category"`
	Search   string `json:"q" validate:"max=200"`
}

func (h *Handlers) drilldown(w http.ResponseWriter, r *http.Request) {
	q := drilldownQuery{Category: chi.URLParam(r, "name"), Search: r.URL.Query().Get("q")}
	if err := h.v.validate(q); err != nil {
		// unknown categories are missing resources, not bad input
		if fe, ok := err.(fieldErrors); ok && fe["name"] != "" {
			writeProblem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("unknown category %q", q.Category))
			return
		}
		fail(w, r, err)
		return
	}
	out, err := h.Q.Drilldown(r.Context(), r.URL.Query().Get("listing"), q.Category, q.Search)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) audit(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Audit(r.Context(), r.URL.Query().Get("listing"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) owner(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Owner(r.Context(), r.URL.Query().Get("listing"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
