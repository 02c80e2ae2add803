package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/anthropic"
	"github.com/fwojciec/sitechat/chat"
	"github.com/fwojciec/sitechat/crawl"
	"github.com/fwojciec/sitechat/gemini"
	"github.com/fwojciec/sitechat/goquery"
	"github.com/fwojciec/sitechat/htmltomarkdown"
	sitechathttp "github.com/fwojciec/sitechat/http"
	"github.com/fwojciec/sitechat/ingest"
	"github.com/fwojciec/sitechat/readability"
	"github.com/fwojciec/sitechat/robotstxt"
	"github.com/fwojciec/sitechat/rod"
	sitechatslog "github.com/fwojciec/sitechat/slog"
	"github.com/fwojciec/sitechat/sqlite"
	"github.com/fwojciec/sitechat/trafilatura"
	"google.golang.org/genai"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run(); --db overrides it.
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	JobService     sitechat.JobService
	SessionService sitechat.SessionService
	ChunkIndex     sitechat.ChunkIndex

	closers []func() error
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program, releasing resources in reverse
// order of acquisition.
func (m *Main) Close() error {
	var firstErr error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.closers = nil
	if m.DB != nil {
		if err := m.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.DB = nil
	}
	return firstErr
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
		kong.Name("sitechat"),
		kong.Description("Crawl a website and answer questions about it."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sitechat --help' to see available commands")
	}

	switch args[0] {
	case "help", "--help", "-h":
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := kongCtx.Command()

	logger, err := newLogger(stderr, cli.LogLevel)
	if err != nil {
		return err
	}
	deps.Logger = logger

	if cli.DB != "" {
		m.DBPath = cli.DB
	}
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set SITECHAT_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	m.JobService = sqlite.NewJobService(m.DB)
	m.SessionService = sqlite.NewSessionService(m.DB)
	m.ChunkIndex = sqlite.NewChunkIndex(m.DB)
	deps.DB = m.DB
	deps.Jobs = m.JobService
	deps.Sessions = m.SessionService
	deps.Index = m.ChunkIndex

	if cmd == "jobs" {
		return kongCtx.Run(deps)
	}

	client, err := newGenAIClient(ctx, cli.GeminiAPIKey, stderr)
	if err != nil {
		return err
	}
	embedder := sitechatslog.NewLoggingEmbedder(
		gemini.NewEmbedder(client, cli.EmbeddingModel, cli.EmbeddingDimensions), logger)
	generator, err := newGenerator(cli, client, stderr)
	if err != nil {
		return err
	}

	orchestrator := chat.NewOrchestrator(m.SessionService, embedder, m.ChunkIndex,
		sitechatslog.NewLoggingGenerator(generator, logger))
	orchestrator.TopK = cli.TopK
	orchestrator.MinScore = cli.MinScore
	if cli.SystemPrompt != "" {
		orchestrator.SystemPrompt = cli.SystemPrompt
	}
	orchestrator.Logger = logger
	deps.Chat = orchestrator

	var crawlFlags *CrawlFlags
	switch cmd {
	case "serve":
		crawlFlags = &cli.Serve.CrawlFlags
	case "ingest <url>":
		crawlFlags = &cli.Ingest.CrawlFlags
	}
	if crawlFlags != nil {
		manager, err := m.newManager(ctx, crawlFlags, embedder, logger, stderr)
		if err != nil {
			return err
		}
		deps.Ingest = manager
	}

	return kongCtx.Run(deps)
}

// newManager wires the crawl pipeline into an ingest.Manager and fails
// jobs a previous process left unfinished.
func (m *Main) newManager(ctx context.Context, flags *CrawlFlags, embedder sitechat.Embedder, logger *slog.Logger, stderr io.Writer) (*ingest.Manager, error) {
	scope, err := crawl.ParseScope(flags.Scope)
	if err != nil {
		return nil, err
	}

	extractor := newExtractor(flags.Extractor)
	fetcher, err := newFetcher(flags, extractor, logger)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed for --fetcher=rod or --fetcher=auto")
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	m.closers = append(m.closers, fetcher.Close)

	loader := &crawl.PageLoader{
		Fetcher:   sitechatslog.NewLoggingFetcher(fetcher, logger),
		Links:     goquery.NewLinkExtractor(),
		Extractor: extractor,
		Converter: htmltomarkdown.NewConverter(),
	}

	robots := robotstxt.NewPolicy(nil, sitechathttp.DefaultUserAgent)
	robots.Logger = logger

	crawler := &crawl.Crawler{
		Pages:       sitechatslog.NewLoggingPageFetcher(loader, logger),
		RateLimiter: crawl.NewDomainLimiter(flags.RateLimit),
		Sitemaps:    sitechathttp.NewSitemapService(nil),
		Scope:       scope,
		Concurrency: flags.Concurrency,
		Logger:      logger,
	}
	if !flags.IgnoreRobots {
		crawler.Robots = robots
	}

	manager := ingest.NewManager(m.JobService, crawler, embedder, m.ChunkIndex)
	manager.ChunkSize = flags.ChunkSize
	manager.ChunkOverlap = flags.ChunkOverlap
	manager.Logger = logger
	if counter, err := gemini.NewTokenCounter(""); err == nil {
		manager.TokenCounter = counter
	} else {
		logger.Warn("token counting disabled", "err", err)
	}
	m.closers = append(m.closers, manager.Close)

	n, err := manager.FailInterrupted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover interrupted jobs: %w", err)
	}
	if n > 0 {
		logger.Info("interrupted jobs marked failed", "count", n)
	}
	return manager, nil
}

func newExtractor(name string) sitechat.Extractor {
	if name == "readability" {
		return readability.NewExtractor()
	}
	extractor := trafilatura.NewExtractor()
	extractor.Fallback = readability.NewExtractor()
	return extractor
}

func newFetcher(flags *CrawlFlags, extractor sitechat.Extractor, logger *slog.Logger) (sitechat.Fetcher, error) {
	static := sitechathttp.NewFetcher(sitechathttp.WithTimeout(flags.FetchTimeout))
	if flags.Fetcher == "http" {
		return static, nil
	}

	browserOpts := []rod.ManagerOption{rod.WithLogger(logger)}
	if flags.ChromeBin != "" {
		browserOpts = append(browserOpts, rod.WithBrowserBin(flags.ChromeBin))
	}
	rendering, err := rod.NewFetcher(
		rod.WithFetchTimeout(flags.FetchTimeout),
		rod.WithUserAgent(sitechathttp.DefaultUserAgent),
		rod.WithBrowser(browserOpts...),
	)
	if err != nil {
		return nil, err
	}
	if flags.Fetcher == "rod" {
		return rendering, nil
	}

	adaptive := crawl.NewAdaptiveFetcher(static, rendering, extractor)
	adaptive.Logger = logger
	return adaptive, nil
}

func newGenAIClient(ctx context.Context, apiKey string, stderr io.Writer) (*genai.Client, error) {
	if apiKey == "" {
		fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	return client, nil
}

func newGenerator(cli *CLI, client *genai.Client, stderr io.Writer) (sitechat.Generator, error) {
	if cli.Generator != "anthropic" {
		return gemini.NewGenerator(client, cli.Model), nil
	}
	if cli.AnthropicAPIKey == "" {
		fmt.Fprintln(stderr, "ANTHROPIC_API_KEY environment variable not set")
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	return anthropic.NewGenerator(
		anthropicsdk.NewClient(option.WithAPIKey(cli.AnthropicAPIKey)),
		cli.Model, cli.MaxTokens,
	), nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, sitechat.Errorf(sitechat.EINVALID, "invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func defaultDBPath() string {
	if path := os.Getenv("SITECHAT_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "sitechat.db"
	}
	dir := filepath.Join(home, ".sitechat")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "sitechat.db")
}
