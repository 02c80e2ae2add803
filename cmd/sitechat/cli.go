package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	DB       *sqlite.DB
	Jobs     sitechat.JobService
	Sessions sitechat.SessionService
	Index    sitechat.ChunkIndex
	Ingest   sitechat.IngestService
	Chat     sitechat.ChatService
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB       string `name:"db" env:"SITECHAT_DB" help:"SQLite database path (default ~/.sitechat/sitechat.db)"`
	LogLevel string `name:"log-level" env:"SITECHAT_LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level (${enum})"`

	GeminiAPIKey    string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key, used for embeddings and by the gemini generator"`
	AnthropicAPIKey string `name:"anthropic-api-key" env:"ANTHROPIC_API_KEY" help:"Anthropic API key, used by the anthropic generator"`

	Generator           string  `env:"SITECHAT_GENERATOR" default:"gemini" enum:"gemini,anthropic" help:"Answer generator (${enum})"`
	Model               string  `env:"SITECHAT_MODEL" help:"Generation model (default depends on --generator)"`
	MaxTokens           int     `name:"max-tokens" default:"1024" help:"Maximum answer length in tokens (anthropic only)"`
	EmbeddingModel      string  `name:"embedding-model" env:"SITECHAT_EMBEDDING_MODEL" help:"Embedding model"`
	EmbeddingDimensions int     `name:"embedding-dimensions" help:"Embedding size; zero keeps the model default"`
	TopK                int     `name:"top-k" default:"5" help:"Chunks retrieved per question"`
	MinScore            float32 `name:"min-score" help:"Drop retrieved chunks scoring below this similarity"`
	SystemPrompt        string  `name:"system-prompt" env:"SITECHAT_SYSTEM_PROMPT" help:"Override the assistant's instructions"`

	Serve  ServeCmd  `cmd:"" help:"Serve the HTTP API"`
	Ingest IngestCmd `cmd:"" help:"Crawl a website and index its content"`
	Ask    AskCmd    `cmd:"" help:"Ask a question about the indexed content"`
	Jobs   JobsCmd   `cmd:"" help:"List ingestion jobs"`
	Stats  StatsCmd  `cmd:"" help:"Show knowledge base statistics"`
}

// CrawlFlags configure the crawl pipeline of commands that ingest.
type CrawlFlags struct {
	Fetcher      string        `env:"SITECHAT_FETCHER" default:"http" enum:"http,rod,auto" help:"Page fetcher: plain HTTP, headless Chrome, or chosen per host (${enum})"`
	Extractor    string        `env:"SITECHAT_EXTRACTOR" default:"trafilatura" enum:"trafilatura,readability" help:"Main content extractor (${enum})"`
	Scope        string        `default:"domain" enum:"domain,host,any" help:"Which links to follow (${enum})"`
	Concurrency  int           `short:"c" default:"4" help:"Concurrent fetch limit"`
	RateLimit    float64       `name:"rate-limit" default:"2" help:"Requests per second per domain; zero disables limiting"`
	FetchTimeout time.Duration `name:"fetch-timeout" default:"10s" help:"Timeout for each page fetch"`
	IgnoreRobots bool          `name:"ignore-robots" help:"Do not consult robots.txt"`
	ChromeBin    string        `name:"chrome-bin" env:"SITECHAT_CHROME_BIN" help:"Chrome or Chromium binary for --fetcher=rod or --fetcher=auto"`
	ChunkSize    int           `name:"chunk-size" default:"1000" help:"Chunk size in characters"`
	ChunkOverlap int           `name:"chunk-overlap" default:"200" help:"Overlap between consecutive chunks in characters"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr        string   `env:"SITECHAT_ADDR" default:":8000" help:"Listen address"`
	CORSOrigins []string `name:"cors-origin" env:"SITECHAT_CORS_ORIGINS" help:"Origin allowed to call the API (repeatable)"`

	CrawlFlags `embed:""`
}

// IngestCmd is the "ingest" subcommand.
type IngestCmd struct {
	URL        string `arg:"" help:"Website URL to crawl"`
	MaxPages   int    `name:"max-pages" short:"n" default:"50" help:"Maximum pages to index (1-500)"`
	MaxDepth   int    `name:"max-depth" short:"d" default:"3" help:"Maximum link depth from the start page (0-10)"`
	Reset      bool   `help:"Clear the knowledge base before indexing"`
	UseSitemap bool   `name:"sitemap" help:"Seed the crawl from the site's sitemap"`

	PollInterval time.Duration `name:"poll-interval" default:"1s" hidden:"" help:"How often job progress is checked"`

	CrawlFlags `embed:""`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Message string `arg:"" help:"Question to ask"`
	Session string `short:"s" help:"Continue an existing conversation"`
}

// JobsCmd is the "jobs" subcommand.
type JobsCmd struct {
	Status string `help:"Only list jobs with this status (pending, running, completed, failed)"`
	Limit  int    `default:"20" help:"Maximum jobs to list; zero lists all"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct{}
