// Package feedback sends user feedback (an email address and free text)
// to the project's collection endpoint.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/distype/internal/logger"
)

// DefaultURL is the collection endpoint.
const DefaultURL = "http://feedback.aacidov.ru"

// DefaultApp identifies this program in submissions.
const DefaultApp = "distype"

var (
	// ErrMissingField is returned when email or text is empty.
	ErrMissingField = errors.New("feedback: email and text are required")
	// ErrRejected is returned when the endpoint answers without status 1.
	ErrRejected = errors.New("feedback: submission rejected")
)

// reply is the endpoint's JSON answer.
type reply struct {
	Status int `json:"status"`
}

// Option configures the Client.
type Option func(*Client)

// WithApp overrides the app identifier sent with each submission.
func WithApp(app string) Option {
	return func(c *Client) { c.app = app }
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// Client posts feedback forms.
type Client struct {
	endpoint string
	app      string
	http     *http.Client
	log      *logger.Logger
}

// NewClient creates a feedback client. An empty endpoint uses DefaultURL.
func NewClient(endpoint string, log *logger.Logger, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	c := &Client{
		endpoint: endpoint,
		app:      DefaultApp,
		http:     &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Submit sends one feedback message.
func (c *Client) Submit(ctx context.Context, email, text string) error {
	email = strings.TrimSpace(email)
	text = strings.TrimSpace(text)
	if email == "" || text == "" {
		return ErrMissingField
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("text", text)
	form.Set("app", c.app)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("feedback: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug("feedback: POST %s (%d chars)", c.endpoint, len(text))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feedback: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("feedback: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("feedback: endpoint %s", resp.Status)
	}

	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return fmt.Errorf("feedback: unmarshal response: %w", err)
	}
	if r.Status != 1 {
		return fmt.Errorf("%w (status %d)", ErrRejected, r.Status)
	}
	c.log.Info("feedback submitted")
	return nil
}
