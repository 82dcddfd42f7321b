package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/resend/resend-go/v2"
)

// ErrNoRecipient is returned when the user has no known email address.
var ErrNoRecipient = errors.New("no email address for user")

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
	skipped     prometheus.Counter
}

// EmailSink mails budget alerts and trip reminders through Resend. Other
// notification types stay in-app only.
type EmailSink struct {
	config    config.EmailConfig
	sender    emailSender
	directory UserDirectory
	metrics   *EmailMetrics
	tmpl      *template.Template
}

func NewEmailSink(cfg config.EmailConfig, directory UserDirectory, reg prometheus.Registerer) *EmailSink {
	client := resend.NewClient(cfg.ResendAPIKey)
	return newEmailSink(cfg, client.Emails, directory, reg)
}

func newEmailSink(cfg config.EmailConfig, sender emailSender, directory UserDirectory, reg prometheus.Registerer) *EmailSink {
	logger.GetLogger().Infow("Initializing email sink",
		"from", cfg.FromAddress, "apikey", logger.MaskSensitiveString(cfg.ResendAPIKey, 3, 3))
	f := promauto.With(reg)
	return &EmailSink{
		config:    cfg,
		sender:    sender,
		directory: directory,
		tmpl:      template.Must(template.New("alert").Parse(alertEmailTemplate)),
		metrics: &EmailMetrics{
			sendLatency: f.NewHistogram(prometheus.HistogramOpts{
				Name:    "budget_email_send_duration_seconds",
				Help:    "Time taken to send emails",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
			}),
			errorCount: f.NewCounter(prometheus.CounterOpts{
				Name: "budget_email_errors_total",
				Help: "Total number of email sending errors",
			}),
			sentCount: f.NewCounter(prometheus.CounterOpts{
				Name: "budget_emails_sent_total",
				Help: "Total number of emails sent",
			}),
			skipped: f.NewCounter(prometheus.CounterOpts{
				Name: "budget_emails_skipped_total",
				Help: "Notifications not mailed because the type is in-app only or the user has no address",
			}),
		},
	}
}

func emailWorthy(t types.NotificationType) bool {
	switch t {
	case types.NotificationBudgetThreshold, types.NotificationBudgetOverLimit,
		types.NotificationDayBefore, types.NotificationTripDay:
		return true
	}
	return false
}

// notificationRefHeader carries the notification key on every mail so a
// delivered message can be traced back to its marker.
const notificationRefHeader = "X-Entity-Ref-ID"

// Emit sends one email. Duplicate suppression is the tracker's job; the
// notification key only travels along as a reference header.
func (s *EmailSink) Emit(ctx context.Context, n types.Notification) error {
	if !emailWorthy(n.Type) {
		s.metrics.skipped.Inc()
		return nil
	}
	log := logger.GetLogger()

	user, ok, err := s.directory.Lookup(ctx, n.UserID)
	if err != nil {
		s.metrics.errorCount.Inc()
		return err
	}
	if !ok || user.Email == "" {
		s.metrics.skipped.Inc()
		log.Debugw("Skipping email, recipient unknown", "userID", n.UserID, "type", n.Type)
		return ErrNoRecipient
	}

	var html bytes.Buffer
	if err := s.tmpl.Execute(&html, map[string]string{
		"Name":    displayName(user),
		"Title":   n.Title,
		"Message": n.Message,
	}); err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{user.Email},
		Subject: n.Title,
		Html:    html.String(),
		Text:    n.Message,
		Tags:    []resend.Tag{{Name: "type", Value: string(n.Type)}},
		Headers: map[string]string{notificationRefHeader: n.Key},
	}

	start := time.Now()
	_, err = s.sender.SendWithContext(ctx, params)
	s.metrics.sendLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send email",
			"error", err,
			"to", logger.MaskEmail(user.Email),
			"type", n.Type)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Email sent successfully",
		"to", logger.MaskEmail(user.Email),
		"type", n.Type)
	return nil
}

func displayName(u types.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "traveller"
}

const alertEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: 'sans-serif';
            background-color: #f7f7f7;
            color: #333333;
            margin: 0;
            padding: 20px;
        }
        .container {
            max-width: 600px;
            margin: 20px auto;
            background-color: #ffffff;
            padding: 30px;
            border-radius: 12px;
        }
        h1 {
            color: #1E7F5C;
            font-size: 24px;
        }
        p {
            font-size: 16px;
            line-height: 1.6;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>Hi {{.Name}},</p>
        <p>{{.Message}}</p>
    </div>
</body>
</html>`
