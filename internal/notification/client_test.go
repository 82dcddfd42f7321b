package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.example.com", "test-key")

	assert.NotNil(t, client)
	assert.Equal(t, "https://api.example.com", client.apiURL)
	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)

	custom := &http.Client{Timeout: 5 * time.Second}
	client = NewClient("https://api.example.com", "test-key", WithHTTPClient(custom))
	assert.Equal(t, custom, client.httpClient)
}

func TestValidateRequest(t *testing.T) {
	client := NewClient("https://api.example.com", "test-key")

	tests := []struct {
		name    string
		request *Request
		wantErr string
	}{
		{
			name:    "valid request",
			request: &Request{UserID: "user-123", EventType: EventTypeBudgetAlert, Priority: PriorityHigh},
		},
		{
			name:    "missing user ID",
			request: &Request{EventType: EventTypeTripUpdate},
			wantErr: "userId is required",
		},
		{
			name:    "missing event type",
			request: &Request{UserID: "user-123"},
			wantErr: "eventType is required",
		},
		{
			name:    "invalid event type",
			request: &Request{UserID: "user-123", EventType: "CHAT_MESSAGE"},
			wantErr: "invalid eventType: CHAT_MESSAGE",
		},
		{
			name:    "invalid priority",
			request: &Request{UserID: "user-123", EventType: EventTypeTripUpdate, Priority: "URGENT"},
			wantErr: "invalid priority: URGENT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.validateRequest(tt.request)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, tt.request.Data)
		})
	}
}

func TestSend_AppendsNotifyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notify", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(&Response{NotificationID: "n-1", Status: "success"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL, "test-key").Send(context.Background(), &Request{
		UserID:    "user-123",
		EventType: EventTypeTripUpdate,
	})
	require.NoError(t, err)
	assert.Equal(t, "n-1", resp.NotificationID)
}

func TestSend_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(&Response{Error: "Rate limit exceeded"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL+"/notify", "test-key").Send(context.Background(), &Request{
		UserID:    "user-123",
		EventType: EventTypeTripUpdate,
	})
	require.Error(t, err)
	assert.NotNil(t, resp)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "Rate limit exceeded")
}

func TestSend_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := NewClient(server.URL, "test-key").Send(ctx, &Request{UserID: "u", EventType: EventTypeTripUpdate})
	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestClient_Emit(t *testing.T) {
	id := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "user-1", req.UserID)
		assert.Equal(t, EventTypeBudgetAlert, req.EventType)
		assert.Equal(t, PriorityCritical, req.Priority)
		assert.Equal(t, id.String(), req.NotificationID)
		assert.Equal(t, "trip-1", req.Data["tripId"])
		assert.Equal(t, "Budget Alert for Goa", req.Data["title"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(&Response{Status: "success"})
	}))
	defer server.Close()

	err := NewClient(server.URL, "test-key").Emit(context.Background(), types.Notification{
		ID:     id,
		UserID: "user-1",
		TripID: "trip-1",
		Type:   types.NotificationBudgetOverLimit,
		Title:  "Budget Alert for Goa",
	})
	assert.NoError(t, err)
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		in       types.NotificationType
		event    EventType
		priority Priority
	}{
		{types.NotificationBudgetThreshold, EventTypeBudgetAlert, PriorityHigh},
		{types.NotificationDayBefore, EventTypeTripReminder, PriorityHigh},
		{types.NotificationExpenseDeleted, EventTypeExpenseUpdate, PriorityLow},
		{types.NotificationTripCreated, EventTypeTripUpdate, PriorityMedium},
	}
	for _, tt := range tests {
		event, priority := routeFor(tt.in)
		assert.Equal(t, tt.event, event, tt.in)
		assert.Equal(t, tt.priority, priority, tt.in)
	}
}
