// Command council runs a multi-model deliberation from the terminal.
//
// Usage:
//
//	council [flags] "question..."
//	council -models
//
// The gateway key comes from OPENROUTER_API_KEY. Configuration lives in a
// TOML file (default council.toml, override with -config or COUNCIL_CONFIG).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	council "github.com/nevindra/council"
	"github.com/nevindra/council/export"
	"github.com/nevindra/council/internal/config"
	"github.com/nevindra/council/observer"
	"github.com/nevindra/council/provider/openrouter"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", defaultConfigPath(), "path to the TOML config file")
		name       = flag.String("council", "", "council name (default: default_council from config)")
		rounds     = flag.Int("rounds", 0, "override consensus rounds (1..10)")
		firstN     = flag.Int("first-n", 0, "override first-n racing (0 disables)")
		single     = flag.Bool("single", false, "synthesize a single final answer")
		web        = flag.Bool("web", false, "enable web search for all models")
		format     = flag.String("format", "markdown", "output format: markdown, text, json, html")
		anonymize  = flag.Bool("anonymize", false, "label responses as Elder N instead of model ids")
		meta       = flag.Bool("meta", false, "include per-response token and cost lines")
		previews   = flag.Bool("previews", false, "fetch readable excerpts for citations without content")
		listModels = flag.Bool("models", false, "list available models and exit")
		timeout    = flag.Duration("timeout", 0, "overall session timeout (0 = none)")
		verbose    = flag.Bool("verbose", false, "debug logging on stderr")
	)
	flag.Parse()

	logger := newLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	key, err := config.APIKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	client := openrouter.New(key, openrouter.WithLogger(logger))

	if *listModels {
		return printModels(ctx, client)
	}

	prompt := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: council [flags] \"question...\"")
		flag.PrintDefaults()
		return 2
	}

	file, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := file.Resolve(*name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// Flag overrides on top of the file.
	if *rounds > 0 {
		cfg.Rounds = *rounds
	}
	if *firstN > 0 {
		cfg.Defaults.FirstN = *firstN
	}
	if *single {
		cfg.Defaults.Single = true
	}
	if *web {
		cfg.Defaults.Web = true
	}

	pricing := file.Pricing
	if pricing == nil {
		pricing = council.DefaultPricing()
	}

	var backend council.Backend = client
	if file.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "observer init:", err)
			return 2
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
		backend = observer.WrapBackend(backend, inst, pricing)
	}

	c := council.New(backend, cfg,
		council.WithLogger(logger),
		council.WithPricing(pricing),
		council.WithProgress(printProgress),
	)

	resp, err := c.QueryWithConsensus(ctx, prompt)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *previews {
		p := export.NewPreviewer()
		for _, round := range resp.Rounds {
			for i := range round {
				p.Fill(ctx, round[i].Citations)
			}
		}
	}

	out, err := export.Render(export.Format(*format), prompt, resp, export.Options{
		Anonymize:   *anonymize,
		IncludeMeta: *meta,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fmt.Println(out)

	if !resp.AnySuccess() {
		return 1
	}
	return 0
}

func defaultConfigPath() string {
	if p := os.Getenv("COUNCIL_CONFIG"); p != "" {
		return p
	}
	return "council.toml"
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printProgress writes per-model lifecycle updates to stderr, keeping
// stdout clean for the rendered transcript.
func printProgress(round int, model string, status council.ProgressStatus) {
	fmt.Fprintf(os.Stderr, "[round %d] %-40s %s\n", round, model, status)
}

func printModels(ctx context.Context, client *openrouter.Client) int {
	models, err := client.Models(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, m := range models {
		fmt.Println(m.ID)
	}
	return 0
}
