package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
)

// Server defaults.
const (
	DefaultAddr            = ":8000"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxRequestBytes = 1 << 20

	serviceName = "sitechat"
)

// Server exposes the ingest and chat services as a JSON API.
type Server struct {
	router   *http.ServeMux
	validate *validator.Validate

	Addr    string
	Version string

	// AllowedOrigins lists origins allowed by CORS. Empty disables CORS.
	AllowedOrigins []string

	ShutdownTimeout time.Duration

	IngestService  sitechat.IngestService
	ChatService    sitechat.ChatService
	SessionService sitechat.SessionService

	Logger *slog.Logger
}

// NewServer returns a Server with its routes registered.
// Services must be set before serving.
func NewServer() *Server {
	s := &Server{
		router:   http.NewServeMux(),
		validate: newValidator(),
		Addr:     DefaultAddr,
		Version:  "dev",
	}

	s.router.HandleFunc("GET /api/health", s.handleHealth)

	s.router.HandleFunc("POST /api/ingest", s.handleIngestCreate)
	s.router.HandleFunc("GET /api/ingest", s.handleIngestIndex)
	s.router.HandleFunc("GET /api/ingest/{id}", s.handleIngestView)
	s.router.HandleFunc("DELETE /api/ingest/{id}", s.handleIngestDelete)

	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /api/chat/stats", s.handleStats)
	s.router.HandleFunc("GET /api/chat/sessions", s.handleSessionIndex)
	s.router.HandleFunc("GET /api/chat/sessions/{id}", s.handleSessionView)
	s.router.HandleFunc("DELETE /api/chat/sessions/{id}", s.handleSessionDelete)

	return s
}

// Handler returns the routes wrapped in recovery, logging and CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.recoverPanic(h)
	h = s.logRequests(h)
	if len(s.AllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   s.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(h)
	}
	return h
}

// ListenAndServe listens on s.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully,
// waiting up to ShutdownTimeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger().Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   serviceName,
		"version":   s.Version,
		"timestamp": time.Now().UTC(),
	})
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return sitechat.Errorf(sitechat.EINVALID, "invalid JSON body")
	}
	if err := s.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator failures to an EINVALID error naming
// the JSON fields at fault.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return sitechat.Errorf(sitechat.EINVALID, "invalid request")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return sitechat.Errorf(sitechat.EINVALID, "%s", strings.Join(msgs, "; "))
}

// Error writes err as a JSON error response. Internal details are logged
// and replaced by a generic message.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, err error) {
	code, message := sitechat.ErrorCode(err), sitechat.ErrorMessage(err)
	if code == sitechat.EINTERNAL {
		s.logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	s.writeJSON(w, r, ErrorStatusCode(code), map[string]string{"error": message})
}

var codes = map[string]int{
	sitechat.ECONFLICT: http.StatusConflict,
	sitechat.EINVALID:  http.StatusBadRequest,
	sitechat.ENOTFOUND: http.StatusNotFound,
	sitechat.EINTERNAL: http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger().Warn("encode response", "path", r.URL.Path, "err", err)
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger().Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.Error(w, r, fmt.Errorf("panic: %v", v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}
