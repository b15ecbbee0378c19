// Package server exposes classification and candidate search over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/arbitrate"
	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
)

// Classifier classifies one item. The server shares one across requests,
// so it must be safe for concurrent use; *arbitrate.Engine over pooled
// clients is.
type Classifier interface {
	Classify(ctx context.Context, item model.Item) (*arbitrate.Result, error)
}

// Retriever returns ranked candidates for an item.
type Retriever interface {
	Retrieve(ctx context.Context, description string, code hscode.Code) ([]model.Candidate, error)
}

// Counter reports the catalog size for health checks.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Options configures the handler.
type Options struct {
	AllowedOrigins []string
	// RequestTimeout bounds each request. Default 60s.
	RequestTimeout time.Duration
	// MaxBodyBytes caps request bodies. Default 1 MiB.
	MaxBodyBytes int64
}

// Server holds the handler dependencies.
type Server struct {
	classifier Classifier
	retriever  Retriever
	counter    Counter
	opts       Options
}

// New creates a Server. counter may be nil.
func New(classifier Classifier, retriever Retriever, counter Counter, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{classifier: classifier, retriever: retriever, counter: counter, opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(s.opts.RequestTimeout))
		api.Post("/classify", s.classify)
		api.Post("/search", s.search)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// itemRequest is the body of /v1/classify and /v1/search.
type itemRequest struct {
	HSCode      string `json:"hs_code"`
	Description string `json:"description"`
}

func (req itemRequest) item() (model.Item, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return model.Item{}, errors.New("description is required")
	}
	code := hscode.Normalize(req.HSCode)
	if code != "" && !code.Valid() {
		return model.Item{}, errors.New("hs_code must contain only digits and periods")
	}
	return model.Item{Code: code, Description: desc}, nil
}

type classifyResponse struct {
	HSCode       string                       `json:"hs_code"`
	Description  string                       `json:"description"`
	Restricted   bool                         `json:"restricted"`
	Restrictions []model.ConfirmedRestriction `json:"restrictions"`
	Candidates   int                          `json:"candidates"`
	Usage        model.Usage                  `json:"usage"`
	Rows         []model.Row                  `json:"rows"`
}

type searchResponse struct {
	HSCode     string            `json:"hs_code"`
	Filter     string            `json:"filter"`
	Candidates []model.Candidate `json:"candidates"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.counter != nil {
		n, err := s.counter.Count(r.Context())
		if err != nil {
			zap.L().Warn("health: count restrictions", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
			return
		}
		body["restrictions"] = n
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	item, ok := s.decodeItem(w, r)
	if !ok {
		return
	}

	res, err := s.classifier.Classify(r.Context(), item)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	confirmed := res.Outcome.Confirmed
	if confirmed == nil {
		confirmed = []model.ConfirmedRestriction{}
	}
	writeJSON(w, http.StatusOK, classifyResponse{
		HSCode:       string(item.Code),
		Description:  item.Description,
		Restricted:   !res.Outcome.NoRestriction(),
		Restrictions: confirmed,
		Candidates:   len(res.Candidates),
		Usage:        res.Usage,
		Rows:         res.Rows(),
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	item, ok := s.decodeItem(w, r)
	if !ok {
		return
	}

	candidates, err := s.retriever.Retrieve(r.Context(), item.Description, item.Code)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []model.Candidate{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		HSCode:     string(item.Code),
		Filter:     hscode.BuildFilter(item.Code).String(),
		Candidates: candidates,
	})
}

func (s *Server) decodeItem(w http.ResponseWriter, r *http.Request) (model.Item, bool) {
	var req itemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return model.Item{}, false
	}
	item, err := req.item()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return model.Item{}, false
	}
	return item, true
}

// writeFailure maps arbitration failures to 502 with their kind, timeouts
// to 504 and anything else to 502.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Warn("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "upstream timeout"})
		return
	}
	resp := errorResponse{Error: err.Error()}
	if k := arbitrate.KindOf(err); k != 0 {
		resp.Kind = k.String()
	}
	writeJSON(w, http.StatusBadGateway, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}
