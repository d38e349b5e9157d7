// ABOUTME: Tests for adapter message formatting, input gating, and inline result construction.
// ABOUTME: User-supplied code must always be HTML-escaped before being echoed back.
package bot

import (
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
)

func TestRenderable_SkipsCommandsAndEmptyText(t *testing.T) {
	cases := map[string]bool{
		"graph TD\nA-->B": true,
		"  graph LR  ":    true,
		"/start":          false,
		"/help extra":     false,
		"":                false,
		"   ":             false,
	}
	for text, want := range cases {
		if got := renderable(text); got != want {
			t.Errorf("renderable(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestFormatRenderFailure_EscapesUserCode(t *testing.T) {
	out := formatRenderFailure("graph TD\nA-->B<script>", "Mermaid error: bad arrow")

	if strings.Contains(out, "<script>") {
		t.Error("user code leaked unescaped HTML")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("expected escaped user code in reply")
	}
	if !strings.Contains(out, "Mermaid error: bad arrow") {
		t.Error("expected diagnostic text in reply")
	}
	if !strings.Contains(out, "https://mermaid.live/") {
		t.Error("expected syntax checker hint in reply")
	}
}

func TestFormatDiagramShare_ContainsCode(t *testing.T) {
	out := formatDiagramShare("graph TD\nA-->B")
	if !strings.Contains(out, "graph TD") {
		t.Error("expected diagram code in share message")
	}
	if !strings.Contains(out, "A--&gt;B") {
		t.Error("expected code to be HTML-escaped")
	}
}

func TestTruncateDescription(t *testing.T) {
	short := "fits"
	if truncateDescription(short) != short {
		t.Error("short descriptions must pass through")
	}

	long := strings.Repeat("x", 250)
	got := truncateDescription(long)
	if len(got) != 100 {
		t.Errorf("expected 100-char truncation, got %d", len(got))
	}
}

func TestHelpResults_SingleArticle(t *testing.T) {
	results := helpResults()
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	article, ok := results[0].(*models.InlineQueryResultArticle)
	if !ok {
		t.Fatalf("expected article result, got %T", results[0])
	}
	if article.ID == "" {
		t.Error("expected non-empty result ID")
	}
	content, ok := article.InputMessageContent.(*models.InputTextMessageContent)
	if !ok {
		t.Fatalf("expected text content, got %T", article.InputMessageContent)
	}
	if !strings.Contains(content.MessageText, "Inline Mode") {
		t.Error("expected usage instructions in help article")
	}
}

func TestErrorResults_CarriesDiagnostic(t *testing.T) {
	results := errorResults("bad code", "Mermaid error: unexpected token")
	article, ok := results[0].(*models.InlineQueryResultArticle)
	if !ok {
		t.Fatalf("expected article result, got %T", results[0])
	}
	if article.Description != "Mermaid error: unexpected token" {
		t.Errorf("unexpected description: %q", article.Description)
	}
	content := article.InputMessageContent.(*models.InputTextMessageContent)
	if !strings.Contains(content.MessageText, "bad code") {
		t.Error("expected user code echoed in error message")
	}
}

func TestShareResults_ReportsCodeLength(t *testing.T) {
	code := "graph TD\nA-->B"
	results := shareResults(code)
	article := results[0].(*models.InlineQueryResultArticle)
	if !strings.Contains(article.Description, "14 chars") {
		t.Errorf("expected code length in description, got %q", article.Description)
	}
}

func TestDistinctInlineResultIDs(t *testing.T) {
	a := helpResults()[0].(*models.InlineQueryResultArticle)
	b := helpResults()[0].(*models.InlineQueryResultArticle)
	if a.ID == b.ID {
		t.Error("expected unique IDs per generated result")
	}
}
