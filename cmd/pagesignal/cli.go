package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/pagesignal"
	pschi "github.com/fwojciec/pagesignal/chi"
	"github.com/fwojciec/pagesignal/markdown"
	psprom "github.com/fwojciec/pagesignal/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Config    pagesignal.Config
	Logger    *slog.Logger
	Processor pagesignal.Processor
	Metrics   *psprom.Metrics
	Registry  *prometheus.Registry
}

// Globals are the flags shared by every command. Zero values mean "not
// set" so the config file and the defaults can fill them in.
type Globals struct {
	Config        string        `name:"config" type:"path" env:"PAGESIGNAL_CONFIG" help:"YAML or JSON config file"`
	Timeout       time.Duration `name:"timeout" env:"PAGESIGNAL_TIMEOUT" help:"Per-URL timeout (default 12s)"`
	MaxBodyBytes  int64         `name:"max-body-bytes" env:"PAGESIGNAL_MAX_BODY_BYTES" help:"Largest accepted response body (default 2 MiB)"`
	MaxURLs       int           `name:"max-urls" env:"PAGESIGNAL_MAX_URLS" help:"URLs processed per batch (default 3)"`
	MaxRedirects  int           `name:"max-redirects" env:"PAGESIGNAL_MAX_REDIRECTS" help:"Redirect hops followed per URL (default 5)"`
	Concurrency   int           `name:"concurrency" short:"c" env:"PAGESIGNAL_CONCURRENCY" help:"URLs fetched in parallel"`
	RatePerHost   float64       `name:"rate-per-host" env:"PAGESIGNAL_RATE_PER_HOST" help:"Requests per second per host (0 disables)"`
	SnippetFormat string        `name:"snippet-format" env:"PAGESIGNAL_SNIPPET_FORMAT" help:"Snippet rendering: text, markdown or article"`
	UserAgent     string        `name:"user-agent" env:"PAGESIGNAL_USER_AGENT" help:"User-Agent header sent with every request"`
	Verbose       bool          `name:"verbose" short:"v" help:"Log debug output to stderr"`
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Globals

	Fetch FetchCmd `cmd:"" help:"Fetch URLs and print their signals"`
	Serve ServeCmd `cmd:"" help:"Run the HTTP API"`
}

// FetchCmd is the "fetch" subcommand.
type FetchCmd struct {
	URLs   []string `arg:"" name:"url" help:"URLs to fetch"`
	Format string   `short:"f" enum:"json,markdown" default:"json" help:"Output format (json, markdown)"`
}

// Run executes the fetch command.
func (c *FetchCmd) Run(deps *Dependencies) error {
	report, err := deps.Processor.Process(deps.Ctx, c.URLs)
	if err != nil {
		return err
	}

	switch c.Format {
	case "markdown":
		err = markdown.NewReportWriter(deps.Stdout).Write(report)
	default:
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if n := report.Failures(); n > 0 {
		fmt.Fprintf(deps.Stderr, "%d of %d URLs failed\n", n, len(report))
	}
	return nil
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr            string `default:":8080" env:"PAGESIGNAL_ADDR" help:"Listen address"`
	MaxRequestBytes int64  `name:"max-request-bytes" default:"65536" help:"Largest accepted request body"`
}

// Run executes the serve command. It blocks until the context is done.
func (c *ServeCmd) Run(deps *Dependencies) error {
	server := pschi.NewServer(deps.Processor,
		pschi.WithLogger(deps.Logger),
		pschi.WithMetrics(deps.Metrics, deps.Registry),
		pschi.WithMaxRequestBytes(c.MaxRequestBytes),
	)
	return server.ListenAndServe(deps.Ctx, c.Addr)
}
