package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/agroscan/agroscan/pkg/reconcile"
	"github.com/agroscan/agroscan/pkg/settings"
	"github.com/agroscan/agroscan/pkg/stats"
	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/agroscan/agroscan/pkg/weather"
)

// History is the reconciled scan history.
type History interface {
	Refresh(ctx context.Context) (*reconcile.Result, error)
	Delete(ctx context.Context, id string) (*reconcile.Result, error)
	Stats(ctx context.Context) (stats.AggregateStats, []storage.ScanRecord)
}

// Reports is the local saved-reports collection.
type Reports interface {
	Load(ctx context.Context, key string) ([]storage.ScanRecord, error)
	Remove(ctx context.Context, key, id string) (bool, error)
}

type Server struct {
	History  History
	Reports  Reports
	Settings *settings.State
	Weather  *weather.Service
	Username string
	Password string
}

func New(h History, r Reports, st *settings.State, w *weather.Service, user, pass string) *Server {
	return &Server{
		History:  h,
		Reports:  r,
		Settings: st,
		Weather:  w,
		Username: user,
		Password: pass,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/history", s.basicAuth(s.handleHistory))
	mux.HandleFunc("POST /api/history/refresh", s.basicAuth(s.handleRefresh))
	mux.HandleFunc("DELETE /api/history/{id}", s.basicAuth(s.handleDeleteScan))
	mux.HandleFunc("GET /api/reports", s.basicAuth(s.handleReports))
	mux.HandleFunc("DELETE /api/reports/{id}", s.basicAuth(s.handleDeleteReport))
	mux.HandleFunc("GET /api/reports/export", s.basicAuth(s.handleExport))
	mux.HandleFunc("GET /api/settings", s.basicAuth(s.handleSettings))
	mux.HandleFunc("GET /api/weather", s.basicAuth(s.handleWeather))
	mux.HandleFunc("GET /api/regions", s.basicAuth(s.handleRegions))

	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	utils.Log.Infof("Starting server on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
