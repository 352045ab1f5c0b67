// Package httpapi serves the read side of edunews over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/ir"
)

// Reader answers the queries the API serves. *engine.Aggregator
// implements it.
type Reader interface {
	Verify(ctx context.Context, unit ir.IssuanceUnit) (ir.VerificationResult, error)
	Show(ctx context.Context, unit ir.IssuanceUnit) (ir.Article, error)
	Audit(ctx context.Context, unit ir.IssuanceUnit) (ir.BindingAudit, error)
	ListForPublisher(ctx context.Context, publisher ir.Address) ([]ir.Article, error)
	Identity(ctx context.Context, addr ir.Address) (ir.IdentityAttestation, error)
}

type api struct {
	reader Reader
	logger *slog.Logger
}

// NewRouter returns the API handler:
//
//	GET /health
//	GET /articles/{collection}/{item}
//	GET /articles/{collection}/{item}/verification
//	GET /articles/{collection}/{item}/audit
//	GET /publishers/{address}/articles
//	GET /identities/{address}
func NewRouter(reader Reader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{reader: reader, logger: logger}

	r := chi.NewRouter()
	r.Use(withRequestID, a.logRequests)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Route("/articles/{collection}/{item}", func(art chi.Router) {
		art.Get("/", a.showArticle)
		art.Get("/verification", a.verifyArticle)
		art.Get("/audit", a.auditArticle)
	})
	r.Get("/publishers/{address}/articles", a.listArticles)
	r.Get("/identities/{address}", a.identity)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not allowed")
	})
	return r
}

func (a *api) showArticle(w http.ResponseWriter, r *http.Request) {
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	article, err := a.reader.Show(r.Context(), unit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": RequestID(r.Context()), "article": article})
}

func (a *api) verifyArticle(w http.ResponseWriter, r *http.Request) {
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	result, err := a.reader.Verify(r.Context(), unit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": RequestID(r.Context()), "verification": result})
}

func (a *api) auditArticle(w http.ResponseWriter, r *http.Request) {
	unit, ok := unitParam(w, r)
	if !ok {
		return
	}
	audit, err := a.reader.Audit(r.Context(), unit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": RequestID(r.Context()),
		"audit":      audit,
		"consistent": audit.Consistent(),
	})
}

func (a *api) listArticles(w http.ResponseWriter, r *http.Request) {
	addr := ir.Address(chi.URLParam(r, "address"))
	articles, err := a.reader.ListForPublisher(r.Context(), addr)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": RequestID(r.Context()), "articles": articles})
}

func (a *api) identity(w http.ResponseWriter, r *http.Request) {
	addr := ir.Address(chi.URLParam(r, "address"))
	att, err := a.reader.Identity(r.Context(), addr)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": RequestID(r.Context()), "identity": att})
}

func unitParam(w http.ResponseWriter, r *http.Request) (ir.IssuanceUnit, bool) {
	c, err := strconv.ParseUint(chi.URLParam(r, "collection"), 10, 32)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, string(engine.ErrCodeMalformedInput), "invalid collection id")
		return ir.IssuanceUnit{}, false
	}
	u, err := strconv.ParseUint(chi.URLParam(r, "item"), 10, 32)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, string(engine.ErrCodeMalformedInput), "invalid item id")
		return ir.IssuanceUnit{}, false
	}
	return ir.IssuanceUnit{ContainerID: uint32(c), UnitID: uint32(u)}, true
}

// fail writes err with the status of its category.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch engine.Classify(err) {
	case engine.CategoryInvalidInput:
		status = http.StatusBadRequest
	case engine.CategoryNotFound:
		status = http.StatusNotFound
	case engine.CategoryUnreachable:
		status = http.StatusServiceUnavailable
	}
	code := string(engine.Code(err))
	if code == "" {
		code = "INTERNAL"
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	}
	WriteError(w, r, status, code, err.Error())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		a.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()),
		)
	})
}
