package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/distype/internal/logger"
)

// YandexOption configures the Yandex SpeechKit client.
type YandexOption func(*YandexClient)

// WithYandexVoice sets the SpeechKit voice.
func WithYandexVoice(voice string) YandexOption {
	return func(c *YandexClient) { c.voice = voice }
}

// WithYandexLang sets the synthesis language, e.g. "en-US".
func WithYandexLang(lang string) YandexOption {
	return func(c *YandexClient) { c.lang = lang }
}

// WithYandexURL overrides the synthesis endpoint.
func WithYandexURL(endpoint string) YandexOption {
	return func(c *YandexClient) { c.endpoint = endpoint }
}

// WithYandexFolder sets the cloud folder ID sent with each request.
func WithYandexFolder(folderID string) YandexOption {
	return func(c *YandexClient) { c.folderID = folderID }
}

// WithYandexHTTPTimeout sets the HTTP client timeout.
func WithYandexHTTPTimeout(d time.Duration) YandexOption {
	return func(c *YandexClient) { c.httpClient.Timeout = d }
}

var _ Provider = (*YandexClient)(nil)

// YandexClient synthesizes speech with Yandex SpeechKit v1.
type YandexClient struct {
	apiKey     string
	endpoint   string
	voice      string
	lang       string
	folderID   string
	httpClient *http.Client
	log        *logger.Logger
}

// NewYandexClient creates a SpeechKit client authenticated by API key.
func NewYandexClient(apiKey string, log *logger.Logger, opts ...YandexOption) *YandexClient {
	c := &YandexClient{
		apiKey:     apiKey,
		endpoint:   DefaultYandexURL,
		voice:      DefaultYandexVoice,
		lang:       DefaultYandexLang,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *YandexClient) Name() string  { return "yandex" }
func (c *YandexClient) Voice() string { return c.voice }

// Synthesize returns MP3 audio for text.
func (c *YandexClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("lang", c.lang)
	form.Set("voice", c.voice)
	form.Set("format", "mp3")
	if c.folderID != "" {
		form.Set("folderId", c.folderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.log.Debug("yandex tts: synthesizing %d chars with voice %s", len(text), c.voice)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yandex tts error %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}
	c.log.Debug("yandex tts: got %d bytes of audio", len(audio))
	return audio, nil
}
