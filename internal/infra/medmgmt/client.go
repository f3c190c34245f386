package medmgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/medplan/reminder-engine/internal/domain"
	"github.com/medplan/reminder-engine/internal/observability/logging"
	"github.com/medplan/reminder-engine/internal/observability/tracing"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: newHTTPClient(baseURL),
	}
}

func (c *Client) GetActiveRules(ctx context.Context, date time.Time) ([]domain.MedicationRule, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	u.Path = "/api/v1/medications"
	q := u.Query()
	q.Set("active_on", domain.DateKey(date))
	u.RawQuery = q.Encode()

	slog.Debug("fetching medications from MedicationManagement",
		slog.String("url", u.String()),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	requestID := logging.ValidateAndExtractRequestID(logging.RequestIDFromContext(ctx))
	req.Header.Set("x-request-id", requestID)
	tracing.InjectToHTTPRequest(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("failed to send request to MedicationManagement",
			slog.String("url", u.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("unexpected status code from MedicationManagement",
			slog.String("url", u.String()),
			slog.Int("status_code", resp.StatusCode),
		)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("failed to read response body from MedicationManagement",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var medsResp MedicationsResponse
	if err := json.Unmarshal(body, &medsResp); err != nil {
		slog.Error("failed to decode response from MedicationManagement",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	rules, err := responseToRules(&medsResp)
	if err != nil {
		return nil, err
	}

	slog.Debug("successfully fetched medications",
		slog.Int("count", len(rules)),
	)

	return rules, nil
}

func (c *Client) MarkDoseTaken(ctx context.Context, ruleID string, dose time.Time, takenAt time.Time, late bool) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}

	u.Path = fmt.Sprintf("/api/v1/medications/%s/taken", ruleID)

	slog.Debug("marking dose as taken",
		slog.String("rule_id", ruleID),
		slog.Time("dose_time", dose),
		slog.Bool("late", late),
		slog.String("url", u.String()),
	)

	body, err := json.Marshal(MarkTakenRequest{
		DoseTime: dose,
		TakenAt:  takenAt,
		Late:     late,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	requestID := logging.ValidateAndExtractRequestID(logging.RequestIDFromContext(ctx))
	req.Header.Set("x-request-id", requestID)
	tracing.InjectToHTTPRequest(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("failed to send mark taken request",
			slog.String("rule_id", ruleID),
			slog.String("url", u.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		slog.Error("unexpected status code when marking dose as taken",
			slog.String("rule_id", ruleID),
			slog.String("url", u.String()),
			slog.Int("status_code", resp.StatusCode),
		)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	slog.Debug("successfully marked dose as taken",
		slog.String("rule_id", ruleID),
	)

	return nil
}

func responseToRules(medsResp *MedicationsResponse) ([]domain.MedicationRule, error) {
	rules := make([]domain.MedicationRule, 0, len(medsResp.Medications))
	for _, m := range medsResp.Medications {
		windowStart, err := domain.ParseTimeOfDay(m.WindowStart)
		if err != nil {
			return nil, fmt.Errorf("medication %s: invalid window start: %w", m.ID, err)
		}
		windowEnd, err := domain.ParseTimeOfDay(m.WindowEnd)
		if err != nil {
			return nil, fmt.Errorf("medication %s: invalid window end: %w", m.ID, err)
		}
		startDate, err := domain.ParseDateKey(m.StartDate)
		if err != nil {
			return nil, fmt.Errorf("medication %s: invalid start date: %w", m.ID, err)
		}

		var endDate time.Time
		if m.EndDate != "" {
			endDate, err = domain.ParseDateKey(m.EndDate)
			if err != nil {
				return nil, fmt.Errorf("medication %s: invalid end date: %w", m.ID, err)
			}
		}

		rules = append(rules, domain.MedicationRule{
			ID:          m.ID,
			Name:        m.Name,
			Dosage:      m.Dosage,
			DosesPerDay: m.DosesPerDay,
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			StartDate:   startDate,
			EndDate:     endDate,
			Active:      m.Active,
		})
	}

	return rules, nil
}
