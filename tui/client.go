package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

// Client talks to a running orchestrator's HTTP API. It implements
// both Fetcher and Controller.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL, e.g. "http://localhost:8080"
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type runListEntry struct {
	ID string `json:"id"`
}

// ListRuns fetches every active run with full phase detail
func (c *Client) ListRuns() ([]*domain.DiscoveryRun, error) {
	var entries []runListEntry
	if err := c.getJSON("/api/runs", &entries); err != nil {
		return nil, err
	}

	runs := make([]*domain.DiscoveryRun, 0, len(entries))
	for _, entry := range entries {
		var run domain.DiscoveryRun
		if err := c.getJSON("/api/runs/"+entry.ID, &run); err != nil {
			// The run may have been archived between the two requests
			continue
		}
		runs = append(runs, &run)
	}
	return runs, nil
}

// Pause requests a pause of the given run
func (c *Client) Pause(id string) error {
	return c.post("/api/runs/"+id+"/pause", nil, nil)
}

// Resume resumes a paused run
func (c *Client) Resume(id string) error {
	return c.post("/api/runs/"+id+"/resume", nil, nil)
}

// Cancel cancels the given run
func (c *Client) Cancel(id string) error {
	return c.post("/api/runs/"+id+"/cancel", nil, nil)
}

// StartRun submits a new discovery run and returns its id
func (c *Client) StartRun(query, researchDomain string, constraints map[string]string) (string, error) {
	payload := map[string]interface{}{
		"query": query,
	}
	if researchDomain != "" {
		payload["domain"] = researchDomain
	}
	if len(constraints) > 0 {
		payload["constraints"] = constraints
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post("/api/runs", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SubmitChangeRequest submits mid-run guidance for a paused run
func (c *Client) SubmitChangeRequest(id, text string) error {
	return c.post("/api/runs/"+id+"/change-requests", map[string]string{"text": text}, nil)
}

func (c *Client) getJSON(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(path, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(path string, payload, out interface{}) error {
	body := &bytes.Buffer{}
	if payload != nil {
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return err
		}
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apiError(path, resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func apiError(path string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s: %s", path, body.Error)
	}
	return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
}
