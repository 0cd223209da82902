package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hunter_trials/internal/domain"
)

// TimestampLayout is ISO-8601 with milliseconds, always rendered in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrUnexpectedStatus = errors.New("unexpected submission status")

// Client posts final results to the remote scoreboard as a form.
// The response body is never read.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		url:  endpoint,
		http: &http.Client{Timeout: timeout},
	}
}

// Encode renders a result as the scoreboard form fields.
func Encode(r domain.SessionResult) (url.Values, error) {
	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return nil, fmt.Errorf("encode scores: %w", err)
	}
	progress, err := json.Marshal(r.Progress)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	form := url.Values{}
	form.Set("teamName", r.TeamName)
	form.Set("timestamp", r.SubmittedAt.UTC().Format(TimestampLayout))
	form.Set("scores", string(scores))
	form.Set("progress", string(progress))
	form.Set("answers", string(answers))
	form.Set("totalScore", strconv.Itoa(r.TotalScore))
	return form, nil
}

// Submit posts the result. A client without an endpoint does nothing.
func (c *Client) Submit(ctx context.Context, r domain.SessionResult) error {
	if c == nil || c.url == "" {
		return nil
	}

	form, err := Encode(r)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
