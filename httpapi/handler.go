// Package httpapi exposes the records of registered classes over HTTP.
//
// Routes:
//
//	GET    /health
//	POST   /{class}        create a record from a JSON object
//	GET    /{class}/{id}   load a record
//	PUT    /{class}/{id}   merge a JSON object into a record and save it
//	DELETE /{class}/{id}   destroy a record
//	GET    /metrics        when a gatherer is configured
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shrek82/jrecord/core"
	"github.com/shrek82/jrecord/middleware"
	"github.com/shrek82/jrecord/validator"
)

// Server serves the classes of one engine registry.
type Server struct {
	Engine   *core.Engine
	gatherer prometheus.Gatherer
}

type Option func(*Server)

// WithMetrics serves the metrics of gatherer on /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine *core.Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(tracingContext)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/{class}", func(r chi.Router) {
		r.Post("/", s.Create)
		r.Get("/{id}", s.Get)
		r.Put("/{id}", s.Update)
		r.Delete("/{id}", s.Destroy)
	})
	return r
}

// tracingContext hands the request id and client address to the store tracing middleware.
func tracingContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = middleware.WithRequestID(ctx, id)
		}
		ctx = middleware.WithUserIP(ctx, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type recordResponse struct {
	Class  string       `json:"class"`
	ID     any          `json:"id"`
	State  string       `json:"state"`
	Fields *core.Fields `json:"fields"`
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func toResponse(rec *core.Record) recordResponse {
	return recordResponse{
		Class:  rec.Class().Name(),
		ID:     rec.ID(),
		State:  rec.State().String(),
		Fields: rec.Fields(),
	}
}

// Create handles POST /{class}.
func (s *Server) Create(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}
	body, ok := decodeFields(w, r)
	if !ok {
		return
	}

	rec := class.New()
	body.Each(func(name string, value any) { rec.Set(name, value) })
	if err := s.Engine.Save(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(rec))
}

// Get handles GET /{class}/{id}.
func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}
	rec, err := s.Engine.Find(r.Context(), class, parseID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec))
}

// Update handles PUT /{class}/{id}. Fields absent from the body keep their value.
func (s *Server) Update(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}
	body, ok := decodeFields(w, r)
	if !ok {
		return
	}
	rec, err := s.Engine.Find(r.Context(), class, parseID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	body.Each(func(name string, value any) { rec.Set(name, value) })
	if err := s.Engine.Save(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec))
}

// Destroy handles DELETE /{class}/{id}.
func (s *Server) Destroy(w http.ResponseWriter, r *http.Request) {
	class, ok := s.class(w, r)
	if !ok {
		return
	}
	rec, err := s.Engine.Find(r.Context(), class, parseID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Engine.Destroy(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) class(w http.ResponseWriter, r *http.Request) (*core.Class, bool) {
	name := chi.URLParam(r, "class")
	class, ok := s.Engine.Registry().Lookup(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown class %s", name)})
		return nil, false
	}
	return class, true
}

func decodeFields(w http.ResponseWriter, r *http.Request) (*core.Fields, bool) {
	body := &core.Fields{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return nil, false
	}
	return body, true
}

// parseID keeps numeric ids numeric so every store sees the type it issued.
func parseID(raw string) any {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id
	}
	return raw
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		status = http.StatusUnprocessableEntity
		resp.Fields = make(map[string][]string, len(verrs))
		for field, errs := range verrs {
			for _, e := range errs {
				resp.Fields[field] = append(resp.Fields[field], e.Error())
			}
		}
	case errors.Is(err, core.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrHalted), errors.Is(err, core.ErrInvalidStateTransition), errors.Is(err, core.ErrDuplicateKey):
		status = http.StatusConflict
	case errors.Is(err, middleware.ErrCircuitOpen):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("encode error: %v\n", err)
	}
}
