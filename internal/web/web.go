package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-ap/errors"

	"monthcal/internal/config"
	"monthcal/internal/controller"
	appLog "monthcal/internal/log"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Server renders the controller's view as an HTML month page and a small
// JSON API. It keeps the latest view delivered by the controller and serves
// reads from that cache.
type Server struct {
	cfg  *config.Config
	ctrl *controller.Controller
	mux  *http.ServeMux
	tmpl *template.Template
	now  func() time.Time

	viewMu sync.RWMutex
	view   controller.View
}

// NewServer constructs a Server bound to ctrl and registers it as a render
// listener.
func NewServer(cfg *config.Config, ctrl *controller.Controller) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Annotatef(err, "parse templates")
	}

	s := &Server{
		cfg:  cfg,
		ctrl: ctrl,
		mux:  http.NewServeMux(),
		tmpl: tmpl,
		now:  time.Now,
		view: ctrl.View(),
	}
	ctrl.OnRender(s.render)
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve runs an http.Server on addr until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// render is the controller's render callback. Views older than the cached
// one are dropped.
func (s *Server) render(v controller.View) {
	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	if v.Seq < s.view.Seq {
		return
	}
	s.view = v
}

func (s *Server) currentView() controller.View {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.view
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="monthcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.Handle("GET /static/", http.FileServer(http.FS(staticFS)))

	s.mux.HandleFunc("POST /nav/prev", s.handleNavPrev)
	s.mux.HandleFunc("POST /nav/next", s.handleNavNext)
	s.mux.HandleFunc("POST /nav/today", s.handleNavToday)
	s.mux.HandleFunc("POST /nav/month", s.handleNavMonth)
	s.mux.HandleFunc("POST /nav/year", s.handleNavYear)
	s.mux.HandleFunc("POST /select", s.handleSelect)
	s.mux.HandleFunc("POST /events", s.handleSubmit)
	s.mux.HandleFunc("POST /events/cancel", s.handleCancel)
	s.mux.HandleFunc("POST /events/{id}/edit", s.handleEdit)
	s.mux.HandleFunc("POST /events/{id}/delete", s.handleDelete)

	s.mux.HandleFunc("GET /api/view", s.handleAPIView)
	s.mux.HandleFunc("GET /api/month", s.handleAPIMonth)
	s.mux.HandleFunc("GET /api/events", s.handleAPIEvents)
	s.mux.HandleFunc("POST /api/events", s.handleAPICreate)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleAPIDelete)
	s.mux.HandleFunc("GET /api/events.ics", s.handleAPIExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsBadRequest(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// fail reports err as JSON with the status it maps to.
func fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
