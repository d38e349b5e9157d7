// ABOUTME: Telegram request adapter wiring the render engine to direct messages and inline queries.
// ABOUTME: Owns admission control and the platform-side file_id cache; the engine stays transport-free.
package bot

import (
	"context"
	"fmt"
	"log"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/om1ji/InMermaid/mermaid"
)

// Adapter-level defaults. Rate limiting lives here, not in the engine: the
// browser process has no admission control of its own.
const (
	DefaultRateLimit         = 2.0 // renders per second
	DefaultRateBurst         = 2
	DefaultFileCacheCapacity = 1024
)

// Renderer produces diagram images from Mermaid text. *mermaid.Engine
// satisfies it; tests substitute stubs. A Failure result is user-facing
// diagnostic text, never a reason to retry.
type Renderer interface {
	Render(ctx context.Context, text string) mermaid.Result
}

// Bot serves Telegram direct messages and inline queries backed by a
// Renderer.
type Bot struct {
	api      *tg.Bot
	renderer Renderer
	limiter  *rate.Limiter
	fileIDs  *fileIDCache
}

// Option configures a Bot.
type Option func(*botConfig)

type botConfig struct {
	rateLimit         float64
	rateBurst         int
	fileCacheCapacity int
}

// WithRateLimit sets renders-per-second admission control with the given
// burst allowance.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *botConfig) {
		c.rateLimit = perSecond
		c.rateBurst = burst
	}
}

// WithFileCacheCapacity bounds the platform file_id cache.
func WithFileCacheCapacity(n int) Option {
	return func(c *botConfig) { c.fileCacheCapacity = n }
}

// New builds the adapter and registers its handlers. The caller must Start
// the engine before Run and Stop it after Run returns.
func New(token string, renderer Renderer, opts ...Option) (*Bot, error) {
	cfg := botConfig{
		rateLimit:         DefaultRateLimit,
		rateBurst:         DefaultRateBurst,
		fileCacheCapacity: DefaultFileCacheCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Bot{
		renderer: renderer,
		limiter:  rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst),
		fileIDs:  newFileIDCache(cfg.fileCacheCapacity),
	}

	api, err := tg.New(token, tg.WithDefaultHandler(b.onUpdate))
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	b.api = api

	api.RegisterHandler(tg.HandlerTypeMessageText, "/start", tg.MatchTypeExact, b.onHelp)
	api.RegisterHandler(tg.HandlerTypeMessageText, "/help", tg.MatchTypeExact, b.onHelp)

	return b, nil
}

// Run long-polls Telegram until the context is canceled.
func (b *Bot) Run(ctx context.Context) {
	log.Printf("bot: starting long polling")
	b.api.Start(ctx)
	log.Printf("bot: stopped")
}

// onUpdate dispatches updates the registered command handlers did not claim.
func (b *Bot) onUpdate(ctx context.Context, api *tg.Bot, update *models.Update) {
	switch {
	case update.InlineQuery != nil:
		b.handleInline(ctx, api, update.InlineQuery)
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, api, update.Message)
	}
}
