// ABOUTME: Platform asset cache: uploads rendered images once and reuses Telegram file_ids.
// ABOUTME: Keyed by the engine's content hash so identical diagrams are never re-uploaded.
package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// fileIDCache is a bounded LRU from diagram content hash to the Telegram
// file_id of its uploaded rendering. Bounded for the same reason as the
// render cache: the process is long-lived.
type fileIDCache struct {
	lru *lru.Cache[string, string]
}

func newFileIDCache(capacity int) *fileIDCache {
	if capacity <= 0 {
		return &fileIDCache{}
	}
	c, err := lru.New[string, string](capacity)
	if err != nil {
		return &fileIDCache{}
	}
	return &fileIDCache{lru: c}
}

func (c *fileIDCache) Get(key string) (string, bool) {
	if c.lru == nil {
		return "", false
	}
	return c.lru.Get(key)
}

func (c *fileIDCache) Put(key, fileID string) {
	if c.lru == nil {
		return
	}
	c.lru.Add(key, fileID)
}

// uploadOnce returns the cached file_id for the diagram, uploading the image
// exactly once per content hash. Inline results can only reference already
// uploaded photos, so the image is sent to the querying user's own chat and
// the temporary message is deleted to keep that chat clean.
func (b *Bot) uploadOnce(ctx context.Context, api *tg.Bot, userID int64, key string, image []byte) (string, error) {
	if fileID, ok := b.fileIDs.Get(key); ok {
		return fileID, nil
	}

	msg, err := api.SendPhoto(ctx, &tg.SendPhotoParams{
		ChatID: userID,
		Photo: &models.InputFileUpload{
			Filename: fmt.Sprintf("mermaid_%s.png", key),
			Data:     bytes.NewReader(image),
		},
		Caption:             "🔄 Preparing image for inline mode...",
		DisableNotification: true,
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	if len(msg.Photo) == 0 {
		return "", errors.New("upload produced no photo sizes")
	}
	// Telegram lists sizes smallest first; keep the largest.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	if _, err := api.DeleteMessage(ctx, &tg.DeleteMessageParams{
		ChatID:    userID,
		MessageID: msg.ID,
	}); err != nil {
		log.Printf("bot: delete temp upload message %d: %v", msg.ID, err)
	}

	b.fileIDs.Put(key, fileID)
	return fileID, nil
}
