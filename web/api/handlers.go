package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
	"github.com/alchemi/discovery-orchestrator/internal/engine"
)

// StartRunRequest is the POST /api/runs payload
type StartRunRequest struct {
	Query         string            `json:"query"`
	Domain        string            `json:"domain,omitempty"`
	Constraints   map[string]string `json:"constraints,omitempty"`
	MaxIterations int               `json:"max_iterations,omitempty"`
}

// ChangeRequestPayload is the POST change-requests payload
type ChangeRequestPayload struct {
	Text string `json:"text"`
}

// RunSummary is the API list shape for one run
type RunSummary struct {
	ID           string  `json:"id"`
	Query        string  `json:"query"`
	Domain       string  `json:"domain,omitempty"`
	Status       string  `json:"status"`
	CurrentPhase string  `json:"current_phase,omitempty"`
	OverallScore float64 `json:"overall_score"`
	QualityTier  string  `json:"quality_tier,omitempty"`
	CreatedAt    string  `json:"created_at"`
	FinishedAt   *string `json:"finished_at,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// StatusResponse is the API response for overall status
type StatusResponse struct {
	Active   int            `json:"active"`
	Paused   int            `json:"paused"`
	Archived map[string]int `json:"archived,omitempty"`
}

func runToSummary(run *domain.DiscoveryRun) RunSummary {
	summary := RunSummary{
		ID:           run.ID,
		Query:        run.Query,
		Domain:       run.Domain,
		Status:       string(run.Status),
		OverallScore: run.OverallScore,
		QualityTier:  string(run.QualityTier),
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
		Error:        run.Error,
	}
	if run.CurrentPhase >= 0 && run.CurrentPhase < len(run.Phases) {
		summary.CurrentPhase = string(run.Phases[run.CurrentPhase].Phase)
	}
	if run.FinishedAt != nil {
		t := run.FinishedAt.Format(time.RFC3339)
		summary.FinishedAt = &t
	}
	return summary
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var status StatusResponse
		for _, run := range s.runs.List() {
			if run.Status.Terminal() {
				continue
			}
			status.Active++
			if run.Status == domain.RunPaused {
				status.Paused++
			}
		}

		if s.archive != nil {
			counts, err := s.archive.CountByStatus()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			status.Archived = make(map[string]int, len(counts))
			for st, n := range counts {
				status.Archived[string(st)] = n
			}
		}

		writeJSON(w, status)
	}
}

func (s *Server) runsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listRuns(w, r)
		case http.MethodPost:
			s.startRun(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("archived") != "" {
		if s.archive == nil {
			writeError(w, http.StatusNotImplemented, "no run archive configured")
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := s.archive.ListRuns(ArchiveListOptions{
			Domain: r.URL.Query().Get("domain"),
			Status: domain.RunStatus(r.URL.Query().Get("status")),
			Limit:  limit,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, summarize(runs))
		return
	}

	writeJSON(w, summarize(s.runs.List()))
}

func summarize(runs []*domain.DiscoveryRun) []RunSummary {
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, runToSummary(run))
	}
	return out
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	id, err := s.runs.Start(req.Query, domain.RunOptions{
		Domain:        req.Domain,
		Constraints:   req.Constraints,
		MaxIterations: req.MaxIterations,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"id": id})
}

// runHandler dispatches /api/runs/{id} and /api/runs/{id}/{action}
func (s *Server) runHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			writeError(w, http.StatusNotFound, "run id required")
			return
		}

		switch action {
		case "":
			s.getRun(w, r, id)
		case "pause":
			s.controlRun(w, r, func() error { return s.runs.Pause(id) })
		case "resume":
			s.controlRun(w, r, func() error { return s.runs.Resume(id) })
		case "cancel":
			s.controlRun(w, r, func() error { return s.runs.Cancel(id) })
		case "change-requests":
			s.changeRequests(w, r, id)
		case "events":
			s.streamSSE(w, r, id)
		case "ws":
			s.streamWS(w, r, id)
		default:
			writeError(w, http.StatusNotFound, "unknown action "+action)
		}
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	run, err := s.runs.Get(id)
	if errors.Is(err, engine.ErrRunNotFound) && s.archive != nil {
		run, err = s.archive.GetRun(id)
	}
	if err != nil {
		writeError(w, http.StatusNotFound, "run "+id+" not found")
		return
	}
	writeJSON(w, run)
}

func (s *Server) controlRun(w http.ResponseWriter, r *http.Request, op func() error) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := op(); err != nil {
		writeError(w, controlStatus(err), err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) changeRequests(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		crs, err := s.runs.ChangeRequests(id)
		if err != nil {
			writeError(w, controlStatus(err), err.Error())
			return
		}
		writeJSON(w, crs)

	case http.MethodPost:
		var payload ChangeRequestPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		cr, err := s.runs.SubmitChangeRequest(id, payload.Text)
		if err != nil {
			writeError(w, controlStatus(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, cr)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// controlStatus maps engine errors onto HTTP status codes
func controlStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNotPaused), errors.Is(err, engine.ErrNotRunning), errors.Is(err, engine.ErrRunFinished):
		return http.StatusConflict
	case errors.Is(err, engine.ErrQueueFull):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}
