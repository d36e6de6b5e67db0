package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"

	"github.com/jose-valero/psforever-bot/internal/domain"
)

// SnapshotSource lo implementa stats.Poller.
type SnapshotSource interface {
	Last() (domain.StatsSnapshot, bool)
}

type Server struct {
	stats   SnapshotSource
	metrics http.Handler
	modules func() []string
	log     zerolog.Logger
	mux     *http.ServeMux
}

// New arma el mux; modules puede ser nil.
func New(stats SnapshotSource, metrics http.Handler, modules func() []string, log zerolog.Logger) *Server {
	if modules == nil {
		modules = func() []string { return nil }
	}
	s := &Server{stats: stats, metrics: metrics, modules: modules, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) Handler() http.Handler { return gzhttp.GzipHandler(s.mux) }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "modules": s.modules()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.stats.Last()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  snap.Status,
		"online":  snap.Online(),
		"empires": snap.Empires,
		"players": snap.Players,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start escucha hasta que ctx se cancela y luego hace shutdown ordenado.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
