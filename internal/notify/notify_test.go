package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alchemi/discovery-orchestrator/internal/domain"
)

func TestSlackMessage_Build(t *testing.T) {
	msg := SlackMessage{
		Text: "Discovery run completed",
		Attachments: []SlackAttachment{
			{
				Color: "good",
				Title: "run 42",
				Text:  "scored 8.2 (significant)",
			},
		},
	}

	payload, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	if len(payload) == 0 {
		t.Error("Payload should not be empty")
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	// Mock Slack server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "Test",
		Message: "Test message",
		Type:    NotifyInfo,
	})

	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

func TestForRun(t *testing.T) {
	run := domain.NewDiscoveryRun("run-1", "sodium batteries", domain.RunOptions{})
	run.OverallScore = 8.2
	run.QualityTier = domain.TierSignificant

	tests := []struct {
		status    domain.RunStatus
		wantType  NotificationType
		wantTitle string
	}{
		{domain.RunCompleted, NotifySuccess, "completed"},
		{domain.RunCompletedPartial, NotifyWarning, "degraded"},
		{domain.RunFailed, NotifyError, "failed"},
		{domain.RunCancelled, NotifyInfo, "cancelled"},
	}

	for _, tt := range tests {
		run.Status = tt.status
		n := ForRun(run)
		if n.Type != tt.wantType {
			t.Errorf("%s: Type = %v, want %v", tt.status, n.Type, tt.wantType)
		}
		if !strings.Contains(n.Title, tt.wantTitle) {
			t.Errorf("%s: Title = %q, want it to contain %q", tt.status, n.Title, tt.wantTitle)
		}
		if n.RunID != "run-1" {
			t.Errorf("%s: RunID = %q, want run-1", tt.status, n.RunID)
		}
	}
}

func TestRunNotifier_SendsTerminalNotification(t *testing.T) {
	var called []string
	mock := &mockNotifier{name: "mock", calls: &called}

	run := domain.NewDiscoveryRun("run-1", "q", domain.RunOptions{})
	run.Status = domain.RunCompleted

	NewRunNotifier(mock).RunFinished(run)
	if len(called) != 1 {
		t.Errorf("Expected 1 call, got %d", len(called))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return nil
}
