package keyword

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nao1215/sitescribe/internal/model"
)

// SystemPrompt instructs the model to answer with a bare keyword list.
const SystemPrompt = "Your task is to extract only the most relevant keywords from the user's provided instructions. " +
	"Return the keywords as a comma-separated list without additional text or explanations."

const (
	// maxErrorBody bounds how much of an error response is kept in the error message.
	maxErrorBody = 512

	// maxResponseBody bounds the bytes read from any response.
	maxResponseBody = 1 << 20
)

// OpenAIOptions configures the OpenAI keyword source.
// Zero values take the defaults noted on each field.
type OpenAIOptions struct {
	// BaseURL is the API root. Default https://api.openai.com/v1.
	BaseURL string

	// Model is the chat model. Default gpt-4o.
	Model string

	// APIKey is used as is when set.
	APIKey string

	// APIKeyEnv names the environment variable read when APIKey is empty.
	// Default OPENAI_API_KEY.
	APIKeyEnv string

	// MaxTokens bounds the answer. Default 60.
	MaxTokens int

	// Temperature is sent as is; 0 gives the most deterministic answer.
	Temperature float64

	// Timeout bounds the request when HTTPClient is nil. Default 30s.
	Timeout time.Duration

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

func (o *OpenAIOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.Model == "" {
		o.Model = "gpt-4o"
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "OPENAI_API_KEY"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 60
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// OpenAI is a Source backed by an OpenAI-compatible chat completions API.
type OpenAI struct {
	hc          *http.Client
	url         string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAI creates the client. It returns ErrMissingAPIKey when neither
// APIKey nor the APIKeyEnv variable provides a key.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	opts.defaults()

	key := opts.APIKey
	if key == "" {
		key = os.Getenv(opts.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("openai: %w: set %s", ErrMissingAPIKey, opts.APIKeyEnv)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &OpenAI{
		hc:          hc,
		url:         strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey:      key,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}, nil
}

// Model returns the configured model name.
func (c *OpenAI) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Keywords asks the model for the keywords of instruction.
func (c *OpenAI) Keywords(ctx context.Context, instruction string) (model.KeywordSet, error) {
	body, err := json.Marshal(&chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: instruction},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return model.KeywordSet{}, fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return model.KeywordSet{}, fmt.Errorf("openai: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return model.KeywordSet{}, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return model.KeywordSet{}, upstreamError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return model.KeywordSet{}, fmt.Errorf("openai: read response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return model.KeywordSet{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return model.KeywordSet{}, errors.New("openai: response has no choices")
	}

	return ParseList(cr.Choices[0].Message.Content), nil
}

// upstreamError builds the error for an unsuccessful response. The API's
// error message is preferred over the raw body, and either is cut to
// maxErrorBody bytes on a rune boundary.
func upstreamError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*maxErrorBody))
	if err != nil {
		return fmt.Errorf("openai: upstream %d: read body: %w", resp.StatusCode, err)
	}

	msg := strings.TrimSpace(string(data))
	var ae apiError
	if json.Unmarshal(data, &ae) == nil && ae.Error.Message != "" {
		msg = ae.Error.Message
	}
	return fmt.Errorf("openai: upstream %d: %s", resp.StatusCode, truncate(msg, maxErrorBody))
}

// truncate returns at most n bytes of s without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
