package pagesignal

import "time"

// Default limits applied to every batch.
const (
	DefaultTimeoutMs          = 12000
	DefaultTimeout            = DefaultTimeoutMs * time.Millisecond
	DefaultMaxBodyBytes int64 = 2 << 20
	DefaultMaxURLs            = 3
	DefaultMaxRedirects       = 5
	DefaultUserAgent          = "pagesignal/1.0 (+https://github.com/fwojciec/pagesignal)"
)

// SnippetFormat selects how the cleaned page body is rendered into a snippet.
type SnippetFormat string

// SnippetFormat values.
const (
	SnippetText     SnippetFormat = "text"
	SnippetMarkdown SnippetFormat = "markdown"
	SnippetArticle  SnippetFormat = "article"
)

// Config holds the tunable limits of the fetch-and-extract pipeline.
// Zero values select the defaults, see WithDefaults.
type Config struct {
	TimeoutMs     int           `json:"timeoutMs" yaml:"timeoutMs"`
	MaxBodyBytes  int64         `json:"maxBodyBytes" yaml:"maxBodyBytes"`
	MaxURLs       int           `json:"maxUrls" yaml:"maxUrls"`
	MaxRedirects  int           `json:"maxRedirects" yaml:"maxRedirects"`
	Concurrency   int           `json:"concurrency" yaml:"concurrency"`
	RatePerHost   float64       `json:"ratePerHost" yaml:"ratePerHost"`
	SnippetFormat SnippetFormat `json:"snippetFormat" yaml:"snippetFormat"`
	UserAgent     string        `json:"userAgent" yaml:"userAgent"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with every zero field set to its default.
// Concurrency defaults to MaxURLs so a full batch runs in one wave.
func (c Config) WithDefaults() Config {
	if c.TimeoutMs == 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxURLs == 0 {
		c.MaxURLs = DefaultMaxURLs
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.Concurrency == 0 {
		c.Concurrency = c.MaxURLs
	}
	if c.SnippetFormat == "" {
		c.SnippetFormat = SnippetText
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Override returns a copy of c where every non-zero field of o replaces
// the corresponding field of c.
func (c Config) Override(o Config) Config {
	if o.TimeoutMs != 0 {
		c.TimeoutMs = o.TimeoutMs
	}
	if o.MaxBodyBytes != 0 {
		c.MaxBodyBytes = o.MaxBodyBytes
	}
	if o.MaxURLs != 0 {
		c.MaxURLs = o.MaxURLs
	}
	if o.MaxRedirects != 0 {
		c.MaxRedirects = o.MaxRedirects
	}
	if o.Concurrency != 0 {
		c.Concurrency = o.Concurrency
	}
	if o.RatePerHost != 0 {
		c.RatePerHost = o.RatePerHost
	}
	if o.SnippetFormat != "" {
		c.SnippetFormat = o.SnippetFormat
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	return c
}

// Validate returns an error if the configuration contains invalid fields.
func (c Config) Validate() error {
	switch {
	case c.TimeoutMs < 0:
		return Errorf(EINVALID, "timeoutMs must not be negative")
	case c.MaxBodyBytes < 0:
		return Errorf(EINVALID, "maxBodyBytes must not be negative")
	case c.MaxURLs < 0:
		return Errorf(EINVALID, "maxUrls must not be negative")
	case c.MaxRedirects < 0:
		return Errorf(EINVALID, "maxRedirects must not be negative")
	case c.Concurrency < 0:
		return Errorf(EINVALID, "concurrency must not be negative")
	case c.RatePerHost < 0:
		return Errorf(EINVALID, "ratePerHost must not be negative")
	}
	switch c.SnippetFormat {
	case "", SnippetText, SnippetMarkdown, SnippetArticle:
	default:
		return Errorf(EINVALID, "unknown snippet format %q", c.SnippetFormat)
	}
	return nil
}

// Timeout returns the per-URL timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
