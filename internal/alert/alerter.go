// Package alert turns scheduled verification outcomes into webhook
// notifications, so a failing sync check reaches the on-call channel
// without anyone watching the dashboard.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/config"
	"github.com/jobsnprofiles/synccheck/internal/model"
	"github.com/jobsnprofiles/synccheck/internal/report"
)

// Type identifies the kind of alert.
type Type string

const (
	TypeFailureRate   Type = "failure_rate"
	TypeIndexLag      Type = "index_lag"
	TypeMalformedData Type = "malformed_data"
)

// minCheckedForRate suppresses the rate alert on windows too small for the
// percentage to mean anything.
const minCheckedForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      Type           `json:"type"`
	Severity  string         `json:"severity"`
	TestName  string         `json:"test_name"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a failure report against configured thresholds and
// sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg      config.AlertConfig
	testName string
	client   *http.Client
}

// NewAlerter creates an Alerter for one test case.
func NewAlerter(cfg config.AlertConfig, testName string) *Alerter {
	return &Alerter{
		cfg:      cfg,
		testName: testName,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the report against thresholds and returns any alerts.
func (a *Alerter) Evaluate(rep *model.FailureReport) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	breakdown := report.Categorize(rep)

	// Check overall failure rate.
	if rep.TotalJobsChecked >= minCheckedForRate {
		rate := float64(rep.TotalFailures) / float64(rep.TotalJobsChecked)
		if rate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     TypeFailureRate,
				Severity: "high",
				TestName: a.testName,
				Message: fmt.Sprintf(
					"Sync check failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d checked)",
					rate*100, a.cfg.FailureRateThreshold*100,
					rep.TotalFailures, rep.TotalJobsChecked,
				),
				Details: map[string]any{
					"failure_rate": rate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       rep.TotalFailures,
					"checked":      rep.TotalJobsChecked,
				},
				Timestamp: now,
			})
		}
	}

	// Check index lag: jobs present in the database with no index document.
	notFound := breakdown.ByCategory[model.CategoryNotFoundInIndex]
	if a.cfg.NotFoundThreshold > 0 && notFound > a.cfg.NotFoundThreshold {
		alerts = append(alerts, Alert{
			Type:     TypeIndexLag,
			Severity: "medium",
			TestName: a.testName,
			Message: fmt.Sprintf(
				"%d job(s) missing from the index exceeds threshold %d",
				notFound, a.cfg.NotFoundThreshold,
			),
			Details: map[string]any{
				"not_found": notFound,
				"threshold": a.cfg.NotFoundThreshold,
				"checked":   rep.TotalJobsChecked,
			},
			Timestamp: now,
		})
	}

	// Malformed values are data-quality failures and always alert.
	if malformed := breakdown.ByCategory[model.CategoryMalformedValue]; malformed > 0 {
		alerts = append(alerts, Alert{
			Type:     TypeMalformedData,
			Severity: "high",
			TestName: a.testName,
			Message:  fmt.Sprintf("%d malformed field value(s) detected", malformed),
			Details: map[string]any{
				"malformed": malformed,
				"checked":   rep.TotalJobsChecked,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("alert: failed to send",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "alert: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "alert: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alert: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("alert: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
