package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// They follow the behavior of a small, well-behaved crawler that is pointed
// at one documentation or product site at a time.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitescribe"

	// DefaultMaxDepth follows links two hops away from the seed.
	// Most sites put their relevant content within a couple of clicks of
	// the landing page, and every extra hop multiplies the page count.
	DefaultMaxDepth = 2

	// DefaultMaxPages bounds the number of fetches per session.
	DefaultMaxPages = 200

	// DefaultWorkers is the number of fetches in flight at once.
	// One worker gives fully sequential crawling.
	DefaultWorkers = 5

	// DefaultMaxAttempts is how many times a transiently failing URL is tried.
	DefaultMaxAttempts = 3

	// DefaultBackoffInitial is the delay before the first retry.
	DefaultBackoffInitial = 500 * time.Millisecond

	// DefaultBackoffMax caps the delay between retries.
	DefaultBackoffMax = 5 * time.Second

	// DefaultRequestTimeout bounds a single HTTP round-trip.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultBatchSize is the number of seed URLs crawled concurrently.
	DefaultBatchSize = 2

	// DefaultUserAgent identifies sitescribe in HTTP requests.
	DefaultUserAgent = "sitescribe/1.0 (+https://github.com/nao1215/sitescribe)"

	// DefaultMaxBodySize limits how much of a response body is read.
	// 5MB is plenty for HTML while preventing memory exhaustion.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultLLMBaseURL is the OpenAI-compatible API root used for keyword extraction.
	DefaultLLMBaseURL = "https://api.openai.com/v1"

	// DefaultLLMModel is the chat model used for keyword extraction.
	DefaultLLMModel = "gpt-4o"

	// DefaultAPIKeyEnv is the environment variable holding the LLM API key.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"

	// DefaultLLMTimeout bounds the keyword extraction request.
	DefaultLLMTimeout = 30 * time.Second

	// DefaultLLMMaxTokens limits the keyword list returned by the model.
	DefaultLLMMaxTokens = 60
)

// Backoff policies.
const (
	BackoffExponential = "exponential"
	BackoffConstant    = "constant"
)

// Keyword sources.
const (
	// KeywordSourceAuto uses the LLM when an API key is available and the
	// local heuristic otherwise.
	KeywordSourceAuto = "auto"
	// KeywordSourceLLM always uses the LLM.
	KeywordSourceLLM = "llm"
	// KeywordSourceHeuristic derives keywords locally from the instruction text.
	KeywordSourceHeuristic = "heuristic"
)

// Keyword policies.
const (
	// KeywordPolicyFallback crawls unfiltered when the keyword source is unavailable.
	KeywordPolicyFallback = "fallback"
	// KeywordPolicyRequired fails the session before any fetch when the
	// keyword source is unavailable.
	KeywordPolicyRequired = "required"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Config holds all configuration options for sitescribe.
// It is populated from defaults, the YAML file and CLI flags, in that order,
// and passed down explicitly; no package keeps configuration in globals.
type Config struct {
	// Targets is the list of seed URLs to scrape.
	// Each seed starts an independent session.
	Targets []string

	// Instructions is the free-text description of the wanted content.
	// Empty means "extract everything".
	Instructions string

	// MaxDepth is the maximum number of hops followed from each seed.
	// 0 fetches only the seed page.
	MaxDepth int

	// MaxPages bounds the number of fetches per session. 0 means unbounded.
	MaxPages int

	// Workers is the number of concurrent fetches within one session.
	Workers int

	// MaxAttempts is the number of tries for a transiently failing URL.
	MaxAttempts int

	// Backoff is the retry delay policy: "exponential" or "constant".
	Backoff string

	// BackoffInitial is the first retry delay (and the constant delay).
	BackoffInitial time.Duration

	// BackoffMax caps exponential retry delays.
	BackoffMax time.Duration

	// RequestTimeout bounds a single HTTP round-trip.
	RequestTimeout time.Duration

	// SessionTimeout bounds the wall-clock time of one session.
	// When it expires the session returns its partial result. 0 means unbounded.
	SessionTimeout time.Duration

	// UserAgent is the User-Agent header sent with each request.
	UserAgent string

	// MaxBodySize is the maximum number of response bytes read per page.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// KeywordSource selects where keywords come from: "auto", "llm" or "heuristic".
	KeywordSource string

	// KeywordPolicy is "fallback" or "required".
	KeywordPolicy string

	// LLMBaseURL is the root of the OpenAI-compatible API.
	LLMBaseURL string

	// LLMModel is the chat model used for keyword extraction.
	LLMModel string

	// APIKeyEnv names the environment variable that holds the API key.
	APIKeyEnv string

	// LLMTimeout bounds the keyword extraction request.
	LLMTimeout time.Duration

	// LLMMaxTokens limits the size of the model's keyword answer.
	LLMMaxTokens int

	// Passages keeps only the paragraphs that match a keyword in each document.
	// By default a relevant page is kept whole.
	Passages bool

	// Merge merges all documents of a host into one document.
	Merge bool

	// BatchSize is the number of seeds scraped concurrently.
	BatchSize int

	// Format is the output format: "json", "markdown" or "text".
	Format string

	// OutputFile is where the documents are written. Empty means stdout.
	OutputFile string

	// Verbose enables debug logging on the console.
	Verbose bool

	// LogFile is an optional path for a rotating debug log.
	LogFile string

	// MetricsAddr is an optional listen address for the Prometheus endpoint.
	MetricsAddr string

	// SaveToDB enables persisting sessions in the history database.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string

	// ConfigFilePath is the path to the YAML configuration file.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings from the configuration file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (depth, attempts, timeouts).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:       DefaultMaxDepth,
		MaxPages:       DefaultMaxPages,
		Workers:        DefaultWorkers,
		MaxAttempts:    DefaultMaxAttempts,
		Backoff:        BackoffExponential,
		BackoffInitial: DefaultBackoffInitial,
		BackoffMax:     DefaultBackoffMax,
		RequestTimeout: DefaultRequestTimeout,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		KeywordSource:  KeywordSourceAuto,
		KeywordPolicy:  KeywordPolicyFallback,
		LLMBaseURL:     DefaultLLMBaseURL,
		LLMModel:       DefaultLLMModel,
		APIKeyEnv:      DefaultAPIKeyEnv,
		LLMTimeout:     DefaultLLMTimeout,
		LLMMaxTokens:   DefaultLLMMaxTokens,
		BatchSize:      DefaultBatchSize,
		Format:         FormatJSON,
		SaveToDB:       true,
		DBDir:          XDGDataDir(),
		SiteConfigs:    &File{Sites: make(map[string]SiteConfig)},
	}
}

// XDGDataDir returns the XDG data directory for sitescribe.
// On Linux: ~/.local/share/sitescribe
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitescribe.
// On Linux: ~/.config/sitescribe
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first sentinel error found.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast, before any network request is made.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.ValidateSettings()
}

// ValidateSettings checks every setting except Targets.
// Library callers that pass the seed per call use this instead of Validate.
func (c *Config) ValidateSettings() error {
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Backoff != BackoffExponential && c.Backoff != BackoffConstant {
		return ErrInvalidBackoff
	}
	if c.BackoffInitial < 0 || c.BackoffMax < 0 {
		return ErrInvalidBackoff
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SessionTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if !slices.Contains([]string{KeywordSourceAuto, KeywordSourceLLM, KeywordSourceHeuristic}, c.KeywordSource) {
		return ErrInvalidKeywordSource
	}
	if c.KeywordPolicy != KeywordPolicyFallback && c.KeywordPolicy != KeywordPolicyRequired {
		return ErrInvalidKeywordPolicy
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if !slices.Contains([]string{FormatJSON, FormatMarkdown, FormatText}, c.Format) {
		return ErrInvalidFormat
	}
	return nil
}

// SiteConfig returns the merged per-site configuration for host.
// It never returns nil maps from a nil File.
func (c *Config) SiteConfig(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}
