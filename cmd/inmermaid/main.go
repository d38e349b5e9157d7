// ABOUTME: CLI entrypoint for the InMermaid Telegram bot.
// ABOUTME: Wires together the render engine, the Telegram adapter, and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/om1ji/InMermaid/bot"
	"github.com/om1ji/InMermaid/mermaid"
)

var version = "dev"

func main() {
	loadDotEnv(".env")

	fs := flag.NewFlagSet("inmermaid", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to optional YAML config file")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if *showVersion {
		fmt.Printf("inmermaid %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(*configPath))
}

// run builds the engine and adapter from configuration and blocks until the
// process receives SIGINT or SIGTERM. Returns an exit code.
func run(configPath string) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	engine := mermaid.NewEngine(
		mermaid.WithRenderTimeout(cfg.RenderTimeout),
		mermaid.WithViewport(cfg.ViewportWidth, cfg.ViewportHeight),
		mermaid.WithCacheCapacity(cfg.CacheCapacity),
		mermaid.WithLibraryURL(cfg.LibraryURL),
		mermaid.WithTheme(cfg.Theme),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer engine.Stop()

	b, err := bot.New(cfg.Token, engine,
		bot.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		bot.WithFileCacheCapacity(cfg.FileCacheCapacity),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	log.Printf("inmermaid %s: bot started", version)
	b.Run(ctx)
	log.Printf("inmermaid: shutting down")

	return 0
}
