package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/pagesignal"
	"github.com/fwojciec/pagesignal/batch"
	"github.com/fwojciec/pagesignal/goquery"
	"github.com/fwojciec/pagesignal/htmltomarkdown"
	pshttp "github.com/fwojciec/pagesignal/http"
	psprom "github.com/fwojciec/pagesignal/prometheus"
	psslog "github.com/fwojciec/pagesignal/slog"
	"github.com/fwojciec/pagesignal/trafilatura"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", errorText(err))
		os.Exit(1)
	}
}

// errorText prefers the user-facing message of application errors and
// falls back to the raw text for everything else (parse errors, I/O).
func errorText(err error) string {
	if pagesignal.ErrorCode(err) == pagesignal.EINTERNAL {
		return err.Error()
	}
	return pagesignal.ErrorMessage(err)
}

// Main represents the program.
type Main struct {
	// Fetcher replaces the network fetcher when set.
	Fetcher pagesignal.Fetcher
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("pagesignal"),
		kong.Description("Fetch web pages safely and extract their title, heading and snippet"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'pagesignal --help' to see available commands")
	}

	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cli.Globals)
	if err != nil {
		return err
	}

	serving := strings.HasPrefix(kongCtx.Command(), "serve")
	logger := newLogger(stderr, cli.Verbose, serving)

	registry := prometheus.NewRegistry()
	metrics := psprom.NewMetrics(registry)

	proc := m.newProcessor(cfg, logger, metrics)
	if !serving {
		proc.Progress = progressPrinter(stderr)
	}

	deps.Config = cfg
	deps.Logger = logger
	deps.Metrics = metrics
	deps.Registry = registry
	deps.Processor = psslog.NewLoggingProcessor(proc, logger)

	return kongCtx.Run()
}

// newProcessor wires the fetch and extract pipeline for cfg.
func (m *Main) newProcessor(cfg pagesignal.Config, logger *slog.Logger, metrics *psprom.Metrics) *batch.Processor {
	var fetcher pagesignal.Fetcher = m.Fetcher
	if fetcher == nil {
		fetcher = pshttp.NewFetcher(
			pshttp.WithTimeout(cfg.Timeout()),
			pshttp.WithMaxBodyBytes(cfg.MaxBodyBytes),
			pshttp.WithMaxRedirects(cfg.MaxRedirects),
			pshttp.WithUserAgent(cfg.UserAgent),
		)
	}
	fetcher = psprom.NewFetcher(fetcher, metrics)
	fetcher = psslog.NewLoggingFetcher(fetcher, logger)

	var opts []goquery.Option
	switch cfg.SnippetFormat {
	case pagesignal.SnippetMarkdown:
		opts = append(opts, goquery.WithConverter(htmltomarkdown.NewConverter()))
	case pagesignal.SnippetArticle:
		opts = append(opts, goquery.WithConverter(trafilatura.NewConverter()))
	}
	extractor := psslog.NewLoggingExtractor(goquery.NewExtractor(opts...), logger)

	proc := &batch.Processor{
		Fetcher:     fetcher,
		Extractor:   extractor,
		MaxURLs:     cfg.MaxURLs,
		Concurrency: cfg.Concurrency,
	}
	if cfg.RatePerHost > 0 {
		proc.RateLimiter = batch.NewDomainLimiter(cfg.RatePerHost)
	}
	return proc
}

// newLogger logs warnings only for one-shot commands and request traffic
// for the server. Verbose enables debug output for both.
func newLogger(w io.Writer, verbose, serving bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case serving:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func progressPrinter(w io.Writer) batch.ProgressFunc {
	var mu sync.Mutex
	return func(e batch.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		switch e.Type {
		case batch.ProgressCompleted:
			fmt.Fprintf(w, "[%d/%d] ok   %s\n", e.Completed, e.Total, e.URL)
		case batch.ProgressFailed:
			fmt.Fprintf(w, "[%d/%d] fail %s: %s\n", e.Completed, e.Total, e.URL, e.Error)
		}
	}
}
