package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"histoflow/internal/config"
	"histoflow/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventRunCompleted, notifications.Payload{"accepted": 3}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "run started",
			event: notifications.EventRunStarted,
			payload: notifications.Payload{
				"slides":    4,
				"protocols": 2,
			},
			expectTitle:   "Histoflow - Run Started",
			expectMessage: "Started run with 4 slides across 2 protocols",
			expectTags:    "histoflow,run,started",
		},
		{
			name:  "run completed clean",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"accepted": 4,
				"rejected": 0,
				"failed":   0,
				"duration": 95 * time.Second,
			},
			expectTitle:    "Histoflow - Run Complete",
			expectMessage:  "✅ Run complete: 4 slides accepted in 1m35s",
			expectTags:     "histoflow,run,completed",
			expectPriority: "high",
		},
		{
			name:  "run completed with issues",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"accepted": 2,
				"rejected": 1,
				"failed":   1,
				"duration": 2 * time.Minute,
			},
			expectTitle:   "Histoflow - Run Complete (with issues)",
			expectMessage: "Run complete: 2 accepted, 1 rejected, 1 failed in 2m0s",
			expectTags:    "histoflow,run,completed",
		},
		{
			name:  "run failed",
			event: notifications.EventRunFailed,
			payload: notifications.Payload{
				"error": "device fault: robot move_between: gripper jam",
			},
			expectTitle:    "Histoflow - Run Failed",
			expectMessage:  "❌ Run failed: device fault: robot move_between: gripper jam",
			expectTags:     "histoflow,run,failed",
			expectPriority: "high",
		},
		{
			name:  "slide accepted",
			event: notifications.EventSlideAccepted,
			payload: notifications.Payload{
				"slide": 7,
				"score": 0.83,
				"loops": 1,
			},
			expectTitle:   "Histoflow - Slide Accepted",
			expectMessage: "✅ Slide 7 accepted (score 0.83, 1 wash loops)",
			expectTags:    "histoflow,slide,accepted",
		},
		{
			name:  "slide rejected",
			event: notifications.EventSlideRejected,
			payload: notifications.Payload{
				"slide": 3,
				"loops": 2,
			},
			expectTitle:   "Histoflow - Slide Rejected",
			expectMessage: "Slide 3 rejected after 2 wash loops",
			expectTags:    "histoflow,slide,rejected",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "run 4f1c",
				"error":   "ledger unavailable",
			},
			expectTitle:    "Histoflow - Error",
			expectMessage:  "❌ Error with run 4f1c: ledger unavailable",
			expectTags:     "histoflow,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsCategorySwitches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled category: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Runs = false
	cfg.Notifications.Slides = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	disabled := []notifications.Event{
		notifications.EventRunStarted,
		notifications.EventRunCompleted,
		notifications.EventRunFailed,
		notifications.EventSlideAccepted,
		notifications.EventSlideRejected,
		notifications.EventError,
	}

	for _, event := range disabled {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
