package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"slip-bot/api/internal/engine"
)

// maxImageBytes caps a downloaded slip photo.
const maxImageBytes = 20 << 20

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	ph := msg.Photo[len(msg.Photo)-1]
	r.acceptImage(ctx, msg, ph.FileID, "")
}

func (r *Router) acceptDocument(ctx context.Context, msg *tgbotapi.Message) {
	r.acceptImage(ctx, msg, msg.Document.FileID, msg.Document.MimeType)
}

func (r *Router) acceptImage(ctx context.Context, msg *tgbotapi.Message, fileID, mime string) {
	cid := msg.Chat.ID
	log := r.Log.With("chat_id", cid, "file_id", fileID)

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		log.Error("get file", "err", err)
		r.Chat.text(cid, "⚠️ Não consegui baixar a foto. Tente enviar de novo.")
		return
	}
	data, err := r.Download(ctx, url)
	if err != nil {
		log.Error("download photo", "err", err)
		r.Chat.text(cid, "⚠️ Não consegui baixar a foto. Tente enviar de novo.")
		return
	}

	key := r.Engine.SubmitImage(ctx, engine.ImageSignal{
		ChatID:  cid,
		UserID:  msg.From.ID,
		AlbumID: msg.MediaGroupID,
		Image:   data,
		MIME:    mime,
		Caption: msg.Caption,
	})
	log.Debug("photo accepted", "key", key, "bytes", len(data))
}

func isImage(mime string) bool {
	return strings.HasPrefix(strings.ToLower(mime), "image/")
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return b, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
