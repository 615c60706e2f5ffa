package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/engine"
)

// Archive is the persisted-run store behind the API. Live runs come
// from the manager; the archive serves runs from earlier daemon
// lifetimes.
type Archive interface {
	GetRun(id string) (*domain.DiscoveryRun, error)
	ListRuns(opts ArchiveListOptions) ([]*domain.DiscoveryRun, error)
	CountByStatus() (map[domain.RunStatus]int, error)
}

// ArchiveListOptions filters archived run listings
type ArchiveListOptions struct {
	Domain string
	Status domain.RunStatus
	Limit  int
}

// Server is the HTTP API server
type Server struct {
	runs    *engine.Manager
	archive Archive
	addr    string
	mux     *http.ServeMux
}

// NewServer creates a new API server. The archive may be nil.
func NewServer(runs *engine.Manager, archive Archive, addr string) *Server {
	s := &Server{
		runs:    runs,
		archive: archive,
		addr:    addr,
		mux:     http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/runs", s.runsHandler())
	s.mux.HandleFunc("/api/runs/", s.runHandler())
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves the API until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
