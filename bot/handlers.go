// ABOUTME: Message and inline-query handlers: render diagram text, reply with photos or diagnostics.
// ABOUTME: All user text is HTML-escaped before it is echoed back in formatted replies.
package bot

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/om1ji/InMermaid/mermaid"
)

const helpText = `<b>Direct Mode:</b>
Send me Mermaid diagram code and I'll render it as an image

<b>Inline Mode:</b>
Use <code>@inmermaidbot your_code</code> in any chat to render and share diagrams

<b>Example diagram code:</b>
<code>graph TD
    A[Start] --> B{Decision}
    B -->|Yes| C[Action 1]
    B -->|No| D[Action 2]
    C --> E[End]
    D --> E</code>

Learn more: https://mermaid.js.org/
Test syntax: https://mermaid.live/`

// renderable reports whether message text should be treated as diagram code.
// Commands and empty messages are not.
func renderable(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && !strings.HasPrefix(text, "/")
}

// formatRenderFailure builds the HTML reply for a failed render, echoing the
// user's code and a syntax-checker hint.
func formatRenderFailure(code, message string) string {
	return fmt.Sprintf(
		"❌ <b>Error rendering diagram:</b>\n\n%s\n\n<b>Your code:</b>\n<code>%s</code>\n\n💡 <i>Check your syntax at https://mermaid.live/</i>",
		html.EscapeString(message),
		html.EscapeString(code),
	)
}

// formatDiagramShare builds the inline fallback message used when a rendered
// image could not be uploaded: the recipient gets the code instead.
func formatDiagramShare(code string) string {
	return fmt.Sprintf(
		"🎨 <b>Mermaid Diagram</b>\n\n<code>%s</code>\n\n💡 <i>Send this code to @inmermaidbot to get the rendered image!</i>",
		html.EscapeString(code),
	)
}

func (b *Bot) onHelp(ctx context.Context, api *tg.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	_, err := api.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      helpText,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		log.Printf("bot: send help: %v", err)
	}
}

// handleMessage renders direct-message diagram code and replies with the
// image or a formatted diagnostic.
func (b *Bot) handleMessage(ctx context.Context, api *tg.Bot, msg *models.Message) {
	code := strings.TrimSpace(msg.Text)
	if !renderable(code) {
		return
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return
	}

	if _, err := api.SendChatAction(ctx, &tg.SendChatActionParams{
		ChatID: msg.Chat.ID,
		Action: models.ChatActionUploadPhoto,
	}); err != nil {
		log.Printf("bot: send chat action: %v", err)
	}

	res := b.renderer.Render(ctx, code)

	if res.OK() {
		_, err := api.SendPhoto(ctx, &tg.SendPhotoParams{
			ChatID: msg.Chat.ID,
			Photo: &models.InputFileUpload{
				Filename: "mermaid_diagram.png",
				Data:     bytes.NewReader(res.Image),
			},
		})
		if err != nil {
			log.Printf("bot: send photo to chat %d: %v", msg.Chat.ID, err)
		}
		return
	}

	_, err := api.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:    msg.Chat.ID,
		Text:      formatRenderFailure(code, res.Err.Message),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		log.Printf("bot: send render failure to chat %d: %v", msg.Chat.ID, err)
	}
}

// handleInline renders inline-query diagram code and answers with a cached
// photo result, falling back to text articles when rendering or upload is
// impossible.
func (b *Bot) handleInline(ctx context.Context, api *tg.Bot, q *models.InlineQuery) {
	code := strings.TrimSpace(q.Query)

	if code == "" {
		b.answerInline(ctx, api, q.ID, helpResults(), 300)
		return
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return
	}

	res := b.renderer.Render(ctx, code)

	if !res.OK() {
		b.answerInline(ctx, api, q.ID, errorResults(code, res.Err.Message), 60)
		return
	}

	fileID, err := b.uploadOnce(ctx, api, q.From.ID, mermaid.CacheKey(code), res.Image)
	if err != nil {
		log.Printf("bot: inline upload for user %d: %v", q.From.ID, err)
		b.answerInline(ctx, api, q.ID, shareResults(code), 60)
		return
	}

	b.answerInline(ctx, api, q.ID, []models.InlineQueryResult{
		&models.InlineQueryResultCachedPhoto{
			ID:          uuid.NewString(),
			PhotoFileID: fileID,
		},
	}, 60)
}

func (b *Bot) answerInline(ctx context.Context, api *tg.Bot, queryID string, results []models.InlineQueryResult, cacheTime int) {
	_, err := api.AnswerInlineQuery(ctx, &tg.AnswerInlineQueryParams{
		InlineQueryID: queryID,
		Results:       results,
		CacheTime:     cacheTime,
	})
	if err != nil {
		log.Printf("bot: answer inline query %s: %v", queryID, err)
	}
}

// helpResults answers an empty inline query with usage instructions.
func helpResults() []models.InlineQueryResult {
	return []models.InlineQueryResult{
		&models.InlineQueryResultArticle{
			ID:          uuid.NewString(),
			Title:       "📝 Enter Mermaid diagram code",
			Description: "Type your Mermaid diagram syntax to render it",
			InputMessageContent: &models.InputTextMessageContent{
				MessageText: helpText,
				ParseMode:   models.ParseModeHTML,
			},
		},
	}
}

// errorResults answers an inline query whose diagram failed to render.
func errorResults(code, message string) []models.InlineQueryResult {
	return []models.InlineQueryResult{
		&models.InlineQueryResultArticle{
			ID:          uuid.NewString(),
			Title:       "❌ Syntax Error",
			Description: truncateDescription(message),
			InputMessageContent: &models.InputTextMessageContent{
				MessageText: formatRenderFailure(code, message),
				ParseMode:   models.ParseModeHTML,
			},
		},
	}
}

// shareResults answers with the raw code when the rendered image could not
// be uploaded to the platform.
func shareResults(code string) []models.InlineQueryResult {
	return []models.InlineQueryResult{
		&models.InlineQueryResultArticle{
			ID:          uuid.NewString(),
			Title:       "✅ Valid Mermaid Diagram",
			Description: fmt.Sprintf("Share this diagram code (%d chars)", len(code)),
			InputMessageContent: &models.InputTextMessageContent{
				MessageText: formatDiagramShare(code),
				ParseMode:   models.ParseModeHTML,
			},
		},
	}
}

// truncateDescription fits a diagnostic into Telegram's result description.
func truncateDescription(s string) string {
	const limit = 100
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
