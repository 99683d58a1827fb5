package engine

import (
	"context"
	"errors"
	"strconv"

	"slip-bot/api/internal/extract"
	"slip-bot/api/internal/session"
	"slip-bot/api/internal/slip"
	"slip-bot/api/internal/util"
)

// ImageSignal is one photographed slip.
type ImageSignal struct {
	ChatID  int64
	UserID  int64
	AlbumID string
	Image   []byte
	MIME    string
	Caption string
}

// SubmitImage reserves the slip's place in its coalescing session right away
// and extracts it in the background. It returns the coalescing key.
func (e *Engine) SubmitImage(ctx context.Context, sig ImageSignal) string {
	key := GroupKey(sig.ChatID, sig.AlbumID)
	hint := util.FirstLine(sig.Caption)
	t := e.coalescer.Reserve(key, sig.ChatID, sig.UserID, hint)

	img := extract.Image{
		Data:     sig.Image,
		MIME:     util.PickMIME(sig.MIME, sig.Image),
		BookHint: hint,
		Caption:  sig.Caption,
		OwnerID:  strconv.FormatInt(sig.UserID, 10),
	}
	// Extraction outlives the update that triggered it but not ExtractTimeout.
	// The deadline runs on the engine clock and drops the slot even if the
	// extractor ignores cancellation.
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	deadline := e.clock.AfterFunc(e.cfg.ExtractTimeout, func() {
		cancel()
		if e.coalescer.Drop(t) {
			e.log.Warn("extraction timed out", "chat_id", sig.ChatID, "key", key, "timeout", e.cfg.ExtractTimeout)
			e.notify(context.Background(), sig.ChatID, extractFailedText)
		}
	})
	e.goFn(func() {
		defer cancel()
		defer deadline.Stop()
		e.extractInto(bg, t, sig.ChatID, img)
	})
	return key
}

const extractFailedText = "⚠️ Não consegui ler um dos bilhetes. Ele ficou fora do lote."

func (e *Engine) extractInto(ctx context.Context, t Ticket, chatID int64, img extract.Image) {
	log := e.log.With("chat_id", chatID, "key", t.Key)
	rec, err := e.extractor.Extract(ctx, img)
	switch {
	case errors.Is(err, extract.ErrNotAuthorized):
		if e.coalescer.Abort(t) {
			log.Info("submission aborted, account not linked")
			e.notify(ctx, chatID, e.linkText())
		}
	case err != nil:
		log.Warn("extraction failed", "err", err)
		if e.coalescer.Drop(t) {
			e.notify(ctx, chatID, extractFailedText)
		}
	default:
		rec.Sanitize(e.today())
		if img.BookHint != "" && rec.Book == "" {
			rec.Set(slip.FieldBook, img.BookHint, e.today())
		}
		if !e.coalescer.Resolve(t, rec) {
			log.Debug("extraction finished after the session was gone")
		}
	}
}

func (e *Engine) linkText() string {
	if e.cfg.LinkURL == "" {
		return "🔒 Sua conta ainda não está vinculada. Vincule-a para enviar bilhetes."
	}
	return "🔒 Sua conta ainda não está vinculada. Vincule-a aqui: " + e.cfg.LinkURL
}

// flush turns a finished coalescing session into a batch and shows it.
func (e *Engine) flush(f Flushed) {
	e.log.Debug("coalescing flushed", "key", f.Key, "items", len(f.Records))
	e.open(context.Background(), f.ChatID, f.OwnerID, f.BookHint, f.Records)
}

// open stores a new batch for recs and renders its first page.
func (e *Engine) open(ctx context.Context, chatID, ownerID int64, bookHint string, recs []slip.Record) string {
	now := e.clock.Now()
	b := session.Batch{
		Token:     e.newToken(),
		OwnerID:   ownerID,
		ChatID:    chatID,
		BookHint:  bookHint,
		CreatedAt: now,
	}
	for _, r := range recs {
		r.EnsureDate(now)
		b.Items = append(b.Items, session.NewItem(r))
	}
	e.store.Batches.Set(b.Token, b)
	if err := e.present(ctx, b.Token, 0); err != nil {
		e.log.Error("present batch", "chat_id", chatID, "token", b.Token, "err", err)
	}
	return b.Token
}
