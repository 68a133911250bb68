package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"effectif/internal/cache"
	"effectif/internal/core"
	"effectif/internal/log"
	"effectif/internal/planning"
	appweb "effectif/web"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

type Server struct {
	http.Server
	templates   *template.Template
	svc         *planning.Service
	logger      *log.Logger
	rateLimiter *rateLimiter

	// Allocation reports are recomputed on demand and cached until the
	// next write invalidates them.
	reportCache  *cache.LRUCache[core.Allocation]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc *planning.Service, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:          svc,
		logger:       logger.WithComponent(log.ComponentHTTP),
		rateLimiter:  newRateLimiter(),
		reportCache:  cache.NewLRUCache[core.Allocation](4, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// HTML views
	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("GET /timeline", s.withSecurityHeaders(s.handleTimeline))
	mux.HandleFunc("GET /etp_table", s.withSecurityHeaders(s.handleETPTable))
	mux.HandleFunc("GET /etp", s.withSecurityHeaders(s.handleETPRedirect))

	// JSON API
	mux.HandleFunc("GET /api/projects", s.withSecurityHeaders(s.handleListProjects))
	mux.HandleFunc("POST /api/projects", s.withSecurityHeaders(s.handleCreateProject))
	mux.HandleFunc("PUT /api/projects/{id}", s.withSecurityHeaders(s.handleUpdateProject))
	mux.HandleFunc("DELETE /api/projects/{id}", s.withSecurityHeaders(s.handleDeleteProject))
	mux.HandleFunc("POST /api/tasks", s.withSecurityHeaders(s.handleCreateTask))
	mux.HandleFunc("PUT /api/tasks/{id}", s.withSecurityHeaders(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.withSecurityHeaders(s.handleDeleteTask))
	mux.HandleFunc("POST /api/update_etp", s.withSecurityHeaders(s.handleUpdateETP))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		r = r.WithContext(ctx)

		s.logger.DebugContext(ctx, "Request started",
			log.NewFields().
				WithRequestID(requestID).
				WithHTTPRequest(r.Method, r.URL.Path).
				WithClientIP(clientIP).
				ToSlice()...)

		// Rate limit writes only; reads are cheap and cached.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.logger.InfoContext(ctx, "Request completed",
			log.NewFields().
				WithRequestID(requestID).
				WithHTTPRequest(r.Method, r.URL.Path).
				WithHTTPResponse(rw.statusCode, duration.Milliseconds(), rw.statusCode < 400).
				WithClientIP(clientIP).
				ToSlice()...)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Projects(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// getReport returns the cached allocation report, recomputing on miss.
func (s *Server) getReport(ctx context.Context) (core.Allocation, error) {
	if report, found := s.reportCache.Get("report"); found {
		s.logger.DebugContext(ctx, "Report cache hit")
		return report, nil
	}

	report, err := s.svc.Report(ctx)
	if err != nil {
		return core.Allocation{}, err
	}

	s.reportCache.Set("report", report)
	s.logger.DebugContext(ctx, "Report cached", "rows", len(report.Rows))
	return report, nil
}

// invalidateReport drops cached reports after any write.
func (s *Server) invalidateReport() {
	s.reportCache.Clear()
}
