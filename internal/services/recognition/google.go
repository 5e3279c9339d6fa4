package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// DefaultGoogleBaseURL is the Speech-to-Text v1 REST endpoint
	DefaultGoogleBaseURL = "https://speech.googleapis.com/v1"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// GoogleConfig configures the Google Speech-to-Text provider.
// Exactly one of APIKey, CredentialsJSON or CredentialsFile is normally set;
// with none, application default credentials are used.
type GoogleConfig struct {
	APIKey          string
	CredentialsFile string
	CredentialsJSON string
	BaseURL         string
	SampleRateHertz int
	Model           string
	UseEnhanced     bool
	PollInterval    time.Duration
	Timeout         time.Duration

	// HTTPClient overrides the authenticated client, mainly for tests
	HTTPClient *http.Client
}

// GoogleRecognizer calls Google Cloud Speech-to-Text over REST.
type GoogleRecognizer struct {
	cfg        GoogleConfig
	httpClient *http.Client
}

// NewGoogleRecognizer creates a Google recognizer
func NewGoogleRecognizer(ctx context.Context, cfg GoogleConfig) (*GoogleRecognizer, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SampleRateHertz <= 0 {
		cfg.SampleRateHertz = 16000
	}
	if cfg.Model == "" {
		cfg.Model = "default"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		var err error
		client, err = googleHTTPClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	return &GoogleRecognizer{cfg: cfg, httpClient: client}, nil
}

func googleHTTPClient(ctx context.Context, cfg GoogleConfig) (*http.Client, error) {
	if cfg.APIKey != "" {
		log.Printf("[INFO] Google STT using API key authentication")
		return &http.Client{Timeout: cfg.Timeout}, nil
	}

	var creds *google.Credentials
	var err error
	switch {
	case cfg.CredentialsJSON != "":
		creds, err = google.CredentialsFromJSON(ctx, []byte(cfg.CredentialsJSON), cloudPlatformScope)
	case cfg.CredentialsFile != "":
		var data []byte
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading google credentials file: %w", err)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	default:
		creds, err = google.FindDefaultCredentials(ctx, cloudPlatformScope)
	}
	if err != nil {
		return nil, fmt.Errorf("loading google credentials: %w", err)
	}

	log.Printf("[INFO] Google STT using service account credentials")
	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = cfg.Timeout
	return client, nil
}

// Name returns the provider name
func (g *GoogleRecognizer) Name() string {
	return "google"
}

type googleRecognitionConfig struct {
	Encoding                   Encoding `json:"encoding"`
	SampleRateHertz            int      `json:"sampleRateHertz,omitempty"`
	LanguageCode               string   `json:"languageCode"`
	EnableAutomaticPunctuation bool     `json:"enableAutomaticPunctuation"`
	Model                      string   `json:"model,omitempty"`
	UseEnhanced                bool     `json:"useEnhanced,omitempty"`
}

type googleRecognizeRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type googleResult struct {
	Alternatives []struct {
		Transcript string  `json:"transcript"`
		Confidence float64 `json:"confidence"`
	} `json:"alternatives"`
}

type googleRecognizeResponse struct {
	Results []googleResult `json:"results"`
}

type googleStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type googleOperation struct {
	Name     string                   `json:"name"`
	Done     bool                     `json:"done"`
	Error    *googleStatus            `json:"error,omitempty"`
	Response *googleRecognizeResponse `json:"response,omitempty"`
}

// Transcribe runs synchronous recognition
func (g *GoogleRecognizer) Transcribe(ctx context.Context, data []byte, mimeType, languageCode string) (string, error) {
	var resp googleRecognizeResponse
	if err := g.post(ctx, "/speech:recognize", g.request(data, mimeType, languageCode), &resp); err != nil {
		return "", err
	}
	return transcriptFrom(resp.Results), nil
}

// TranscribeLong starts a long-running recognition and polls until it completes
func (g *GoogleRecognizer) TranscribeLong(ctx context.Context, data []byte, mimeType, languageCode string) (string, error) {
	var op googleOperation
	if err := g.post(ctx, "/speech:longrunningrecognize", g.request(data, mimeType, languageCode), &op); err != nil {
		return "", err
	}
	log.Printf("[INFO] Google STT long-running operation %s started", op.Name)

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for !op.Done {
		select {
		case <-ctx.Done():
			return "", providerError(g.Name(), 0, ctx.Err())
		case <-ticker.C:
		}

		if err := g.get(ctx, "/operations/"+url.PathEscape(op.Name), &op); err != nil {
			return "", err
		}
	}

	if op.Error != nil {
		return "", providerError(g.Name(), 0, fmt.Errorf("operation %s failed: %s", op.Name, op.Error.Message))
	}
	if op.Response == nil {
		return "", nil
	}
	return transcriptFrom(op.Response.Results), nil
}

func (g *GoogleRecognizer) request(data []byte, mimeType, languageCode string) googleRecognizeRequest {
	enc := EncodingFor(mimeType)
	req := googleRecognizeRequest{
		Config: googleRecognitionConfig{
			Encoding:                   enc,
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
			Model:                      g.cfg.Model,
			UseEnhanced:                g.cfg.UseEnhanced,
		},
	}
	// Compressed containers carry their own sample rate in the header.
	if enc == EncodingLinear16 {
		req.Config.SampleRateHertz = g.cfg.SampleRateHertz
	}
	req.Audio.Content = base64.StdEncoding.EncodeToString(data)
	return req
}

func (g *GoogleRecognizer) endpoint(path string) string {
	u := g.cfg.BaseURL + path
	if g.cfg.APIKey != "" {
		u += "?key=" + url.QueryEscape(g.cfg.APIKey)
	}
	return u
}

func (g *GoogleRecognizer) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return providerError(g.Name(), 0, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return providerError(g.Name(), 0, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *GoogleRecognizer) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(path), nil)
	if err != nil {
		return providerError(g.Name(), 0, fmt.Errorf("creating request: %w", err))
	}
	return g.do(req, out)
}

func (g *GoogleRecognizer) do(req *http.Request, out any) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return providerError(g.Name(), 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return providerError(g.Name(), resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error googleStatus `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return providerError(g.Name(), resp.StatusCode, errors.New(apiErr.Error.Message))
		}
		return providerError(g.Name(), resp.StatusCode, fmt.Errorf("unexpected response: %s", truncate(string(body), 200)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return providerError(g.Name(), resp.StatusCode, fmt.Errorf("parsing response: %w", err))
	}
	return nil
}

func transcriptFrom(results []googleResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return JoinTranscripts(parts)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
