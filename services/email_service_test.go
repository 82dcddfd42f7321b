package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Remember(ctx context.Context, user types.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockDirectory) Lookup(ctx context.Context, userID string) (types.User, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Bool(1), args.Error(2)
}

var testEmailConfig = config.EmailConfig{
	Enabled:      true,
	FromName:     "Trip Budget",
	FromAddress:  "alerts@example.com",
	ResendAPIKey: "re_test_key",
}

func budgetAlert() types.Notification {
	return types.Notification{
		UserID:  "u1",
		Key:     "budget-threshold-t1-80",
		Type:    types.NotificationBudgetThreshold,
		Title:   "Budget alert",
		Message: "You have used 80% of your Goa budget",
	}
}

func TestEmailSink_SendsWithNotificationRef(t *testing.T) {
	sender := new(mockEmailSender)
	dir := new(mockDirectory)
	sink := newEmailSink(testEmailConfig, sender, dir, prometheus.NewRegistry())

	dir.On("Lookup", mock.Anything, "u1").Return(types.User{UID: "u1", Email: "asha@example.com", DisplayName: "Asha"}, true, nil)
	sender.On("SendWithContext", mock.Anything,
		mock.MatchedBy(func(p *resend.SendEmailRequest) bool {
			return p.To[0] == "asha@example.com" &&
				p.From == "Trip Budget <alerts@example.com>" &&
				p.Subject == "Budget alert" &&
				p.Text == "You have used 80% of your Goa budget" &&
				p.Headers["X-Entity-Ref-ID"] == "budget-threshold-t1-80"
		}),
	).Return(&resend.SendEmailResponse{Id: "email-1"}, nil)

	require.NoError(t, sink.Emit(context.Background(), budgetAlert()))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.metrics.sentCount))
	sender.AssertExpectations(t)
}

func TestEmailSink_SkipsInAppOnlyTypes(t *testing.T) {
	sender := new(mockEmailSender)
	dir := new(mockDirectory)
	sink := newEmailSink(testEmailConfig, sender, dir, prometheus.NewRegistry())

	n := budgetAlert()
	n.Type = types.NotificationExpenseAdded
	require.NoError(t, sink.Emit(context.Background(), n))

	sender.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
	dir.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.metrics.skipped))
}

func TestEmailSink_UnknownRecipient(t *testing.T) {
	sender := new(mockEmailSender)
	dir := new(mockDirectory)
	sink := newEmailSink(testEmailConfig, sender, dir, prometheus.NewRegistry())

	dir.On("Lookup", mock.Anything, "u1").Return(types.User{}, false, nil)

	err := sink.Emit(context.Background(), budgetAlert())
	assert.ErrorIs(t, err, ErrNoRecipient)
	sender.AssertNotCalled(t, "SendWithContext", mock.Anything, mock.Anything)
}

func TestEmailSink_SendFailure(t *testing.T) {
	sender := new(mockEmailSender)
	dir := new(mockDirectory)
	sink := newEmailSink(testEmailConfig, sender, dir, prometheus.NewRegistry())

	dir.On("Lookup", mock.Anything, "u1").Return(types.User{UID: "u1", Email: "asha@example.com"}, true, nil)
	sender.On("SendWithContext", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	err := sink.Emit(context.Background(), budgetAlert())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.metrics.errorCount))
}

func TestEmailSink_ResendWireFormat(t *testing.T) {
	var gotKey string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test_key", r.Header.Get("Authorization"))
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-123"}`))
	}))
	defer srv.Close()

	client := resend.NewCustomClient(srv.Client(), testEmailConfig.ResendAPIKey)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	dir := new(mockDirectory)
	dir.On("Lookup", mock.Anything, "u1").Return(types.User{UID: "u1", Email: "asha@example.com"}, true, nil)

	sink := newEmailSink(testEmailConfig, client.Emails, dir, prometheus.NewRegistry())
	require.NoError(t, sink.Emit(context.Background(), budgetAlert()))

	assert.Equal(t, "budget-threshold-t1-80", gotKey)
	assert.Equal(t, "Budget alert", body["subject"])
	assert.Contains(t, body["html"], "Hi traveller,")
}
