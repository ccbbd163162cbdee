package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/reportree/attachments"
	"github.com/ethereum-optimism/infra/reportree/filter"
	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/metrics"
	"github.com/ethereum-optimism/infra/reportree/reporting"
	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

// API serves report trees over HTTP
type API struct {
	store  *Store
	log    log.Logger
	tracer trace.Tracer
	router *mux.Router
}

// ReportResponse is the JSON body of a report request
type ReportResponse struct {
	UID        string            `json:"uid"`
	Merged     bool              `json:"merged"`
	Filter     filter.Expression `json:"filter"`
	Statuses   []string          `json:"statuses,omitempty"`
	Report     *types.Entry      `json:"report"`
	Provenance *merge.Provenance `json:"provenance,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewAPI(store *Store, logger log.Logger) *API {
	if logger == nil {
		logger = log.Root()
	}
	a := &API{
		store:  store,
		log:    logger,
		tracer: otel.Tracer("report api"),
		router: mux.NewRouter(),
	}
	a.router.Use(a.traceRequest)
	a.router.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	a.router.HandleFunc("/api/v1/reports", a.handleList).Methods(http.MethodGet)
	a.router.HandleFunc("/api/v1/reports/{uid}", a.handleReport).Methods(http.MethodGet)
	a.router.HandleFunc("/api/v1/reports/{uid}/provenance", a.handleProvenance).Methods(http.MethodGet)
	a.router.HandleFunc("/api/v1/reports/{uid}/entries/{address:.*}", a.handleEntry).Methods(http.MethodGet)
	a.router.HandleFunc("/reports/{uid}/attachments/{name}", a.handleAttachment).Methods(http.MethodGet)
	return a
}

// Handler returns the router wrapped with CORS handling for origins
func (a *API) Handler(origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(a.router)
}

func (a *API) traceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				name = tmpl
			}
		}
		ctx, span := a.tracer.Start(r.Context(), fmt.Sprintf("%s %s", r.Method, name))
		defer span.End()
		if uid, ok := mux.Vars(r)["uid"]; ok {
			span.SetAttributes(attribute.String("report_uid", uid))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Error("failed to marshal response", "err", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Error("failed to send response", "err", err)
	}
}

// writeError maps err onto a status code
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrReportNotFound), errors.Is(err, attachments.ErrNotFound),
		errors.Is(err, tree.ErrAddressNotFound):
		status = http.StatusNotFound
	case types.IsMergeConflictError(err):
		metrics.RecordMergeConflict()
		status = http.StatusConflict
	case types.IsTreeIntegrityError(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, tree.ErrNotLoaded), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		a.log.Error("Request failed", "err", err)
		metrics.RecordErrorDetails("api", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK")) //nolint:errcheck
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.store.List()
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// query holds the parsed parameters of a tree request
type query struct {
	merged     bool
	load       bool
	provenance bool
	format     string
	expression filter.Expression
	status     *filter.StatusFilter
}

func parseQuery(r *http.Request) (*query, error) {
	values := r.URL.Query()
	q := &query{format: values.Get("format")}
	for name, dst := range map[string]*bool{"merge": &q.merged, "load": &q.load, "provenance": &q.provenance} {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, badRequest("invalid %s parameter %q", name, raw)
		}
		*dst = v
	}
	if values.Has("text") {
		q.expression = filter.Text(values.Get("text"))
	}
	q.expression.Tags = values["tag"]
	if raw := values.Get("status"); raw != "" {
		f, err := filter.ParseStatusFilter(raw)
		if err != nil {
			return nil, badRequest("%v", err)
		}
		q.status = f
	}
	return q, nil
}

// apply runs the filters of q on root
func (q *query) apply(root *types.Entry) (*types.Entry, error) {
	filtered, err := filter.Apply(root, q.expression)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	if q.status != nil {
		filtered = q.status.Apply(filtered)
	}
	return filtered, nil
}

func (q *query) filtered() bool {
	return !q.expression.IsEmpty() || q.status != nil
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	q, err := parseQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	root, prov, err := a.store.Tree(r.Context(), uid, q.merged, q.load)
	if err != nil {
		a.writeError(w, err)
		return
	}
	shown, err := q.apply(root)
	if err != nil {
		a.writeError(w, err)
		return
	}
	metrics.RecordReportServed(q.merged, q.filtered())

	if q.format != "" && q.format != reporting.FormatJSON {
		formatter, err := reporting.NewFormatter(q.format, reporting.Options{Testcases: true})
		if err != nil {
			a.writeError(w, badRequest("%v", err))
			return
		}
		out, err := formatter.Format(shown)
		if err != nil {
			a.writeError(w, err)
			return
		}
		contentType := "text/plain; charset=utf-8"
		if q.format == reporting.FormatHTML {
			contentType = "text/html; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(out)) //nolint:errcheck
		return
	}

	resp := ReportResponse{
		UID:    uid,
		Merged: q.merged,
		Filter: q.expression,
		Report: shown,
	}
	if q.status != nil {
		resp.Statuses = q.status.Statuses()
	}
	if q.provenance {
		resp.Provenance = prov
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProvenance(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	_, prov, err := a.store.Tree(r.Context(), mux.Vars(r)["uid"], q.merged, false)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prov)
}

// handleEntry serves the subtree at an address of the canonical tree,
// which is how clients expand nodes of a filtered view
func (a *API) handleEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addr, err := types.ParseAddress(vars["address"])
	if err != nil {
		a.writeError(w, badRequest("%v", err))
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	root, _, err := a.store.Tree(r.Context(), vars["uid"], q.merged, q.load)
	if err != nil {
		a.writeError(w, err)
		return
	}
	entry, err := tree.Resolve(root, addr)
	if err != nil {
		a.writeError(w, err)
		return
	}
	shown, err := q.apply(entry)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shown)
}

func (a *API) handleAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	file, err := a.store.AttachmentFile(vars["uid"], vars["name"])
	if err != nil {
		a.writeError(w, badRequest("%v", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, file)
}
