package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

func newFakeAPI(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var requests []string
	run := domain.NewDiscoveryRun("aaaa1111", "battery electrolytes", domain.RunOptions{})
	run.Status = domain.RunRunning

	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"id": run.ID})
			return
		}
		json.NewEncoder(w).Encode([]map[string]string{{"id": run.ID}})
	})
	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/api/runs/"+run.ID:
			json.NewEncoder(w).Encode(run)
		case strings.HasSuffix(r.URL.Path, "/pause"):
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case strings.HasSuffix(r.URL.Path, "/resume"):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "run is not paused"})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		}
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &requests
}

func TestClient_ListRuns(t *testing.T) {
	ts, _ := newFakeAPI(t)
	client := NewClient(ts.URL)

	runs, err := client.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}

	if len(runs) != 1 {
		t.Fatalf("runs count = %d, want 1", len(runs))
	}

	if runs[0].ID != "aaaa1111" || runs[0].Query != "battery electrolytes" {
		t.Errorf("run = %s %q, want aaaa1111 with query", runs[0].ID, runs[0].Query)
	}

	if len(runs[0].Phases) != 4 {
		t.Errorf("phases = %d, want 4", len(runs[0].Phases))
	}
}

func TestClient_Control(t *testing.T) {
	ts, requests := newFakeAPI(t)
	client := NewClient(ts.URL)

	if err := client.Pause("aaaa1111"); err != nil {
		t.Errorf("Pause() error = %v", err)
	}

	found := false
	for _, req := range *requests {
		if req == "POST /api/runs/aaaa1111/pause" {
			found = true
		}
	}
	if !found {
		t.Errorf("pause request not sent; got %v", *requests)
	}

	// The server rejects the resume; the error body surfaces
	err := client.Resume("aaaa1111")
	if err == nil || !strings.Contains(err.Error(), "not paused") {
		t.Errorf("Resume() error = %v, want conflict message", err)
	}
}

func TestClient_StartRun(t *testing.T) {
	ts, _ := newFakeAPI(t)
	client := NewClient(ts.URL)

	id, err := client.StartRun("catalyst screening", "chemistry", map[string]string{"materials": "no rare earths"})
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}

	if id != "aaaa1111" {
		t.Errorf("id = %q, want aaaa1111", id)
	}
}
