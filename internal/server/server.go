package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/8848connie/drawing-room/internal/config"
)

// Route paths, kept where the browser client already calls them.
const (
	PathListPhotos = "/api/get-photos"
	PathUpload     = "/api/upload"
)

// BuildInfo is reported by /health.
type BuildInfo struct {
	Version string
	Commit  string
}

type Config struct {
	Addr  string // e.g. ":8080"
	Build BuildInfo

	// Lookup reads the environment on every invocation. Defaults to os.LookupEnv.
	Lookup config.LookupFunc
	// Backends builds the per-invocation store and media clients.
	Backends Backends
	// Now is the clock used for record timestamps and object keys.
	Now func() time.Time
	// Logger defaults to DefaultLogger.
	Logger *Logger
	// Metrics defaults to the process-wide metrics.
	Metrics *Metrics
	// UploadRateLimit is the number of uploads one client IP may make per
	// minute. Zero disables the limit.
	UploadRateLimit int
}

type Server struct {
	httpServer *http.Server

	lookup   config.LookupFunc
	backends Backends
	now      func() time.Time
	log      *Logger
	metrics  *Metrics
	build    BuildInfo
	limiter  *rateLimiter
}

func New(cfg Config) *Server {
	s := &Server{
		lookup:   cfg.Lookup,
		backends: cfg.Backends,
		now:      cfg.Now,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		build:    cfg.Build,
	}
	if s.lookup == nil {
		s.lookup = os.LookupEnv
	}
	if s.backends == nil {
		s.backends = DefaultBackends{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = DefaultLogger
	}
	if s.metrics == nil {
		s.metrics = GetMetrics()
	}
	if cfg.UploadRateLimit > 0 {
		s.limiter = newRateLimiter(cfg.UploadRateLimit, time.Minute, nil)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(PathListPhotos, s.listHandler())
	upload := s.uploadHandler()
	if s.limiter != nil {
		upload = s.limiter.middleware(upload)
	}
	mux.Handle(PathUpload, upload)

	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/live", s.HandleLive)
	mux.Handle("/metrics", NewPrometheusExporter(s.metrics, s.build).Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, msgBody{Msg: "Not Found"})
	})

	// Wrap middleware: requestID -> logging -> security headers -> mux
	var handler http.Handler = mux
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// msgBody is the shape of 4xx bodies.
type msgBody struct {
	Msg string `json:"msg"`
}

// errorBody is the shape of 5xx bodies.
type errorBody struct {
	Msg   string `json:"msg"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := errorBody{Msg: msg}
	if err != nil {
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}

// loadConfig builds this invocation's configuration.
func (s *Server) loadConfig() (config.Config, error) {
	return config.Load(s.lookup)
}
