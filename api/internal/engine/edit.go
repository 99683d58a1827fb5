package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"slip-bot/api/internal/session"
	"slip-bot/api/internal/slip"
)

// TextSignal is a plain text message from a user.
type TextSignal struct {
	ChatID    int64
	UserID    int64
	MessageID int
	// ReplyTo is the id of the message this one replies to, or 0.
	ReplyTo int
	Text    string
}

func (e *Engine) openFieldPicker(ctx context.Context, b session.Batch, rev, idx int, note string) error {
	if _, err := b.Item(rev, idx); err != nil {
		return expired(err)
	}
	return e.show(ctx, b, fieldPicker(b, idx, note))
}

// startEdit asks for a new value with a forced reply and remembers which
// item and field the reply belongs to. A newer edit replaces an older one.
func (e *Engine) startEdit(ctx context.Context, sig ActionSignal, b session.Batch, rev, idx int, f slip.Field) error {
	it, err := b.Item(rev, idx)
	if err != nil {
		return expired(err)
	}
	if !f.Valid() {
		return fmt.Errorf("engine: unknown field %q", f)
	}
	cur := it.Record.Get(f)
	if cur == "" {
		cur = "(vazio)"
	}
	text := fmt.Sprintf("✏️ %s da aposta %d\nAtual: %s\n\nResponda a esta mensagem com o novo valor (%s para limpar).\nVocê também pode enviar várias linhas, ex.: odd: 1,85",
		f.Label(), idx+1, cur, slip.ClearValue)
	id, err := e.chat.Send(ctx, b.ChatID, Message{Text: text, ForceReply: true})
	if err != nil {
		return fmt.Errorf("send edit prompt: %w", err)
	}
	e.store.Edits.Set(session.EditKey{ChatID: sig.ChatID, UserID: sig.UserID}, session.EditSession{
		Token:    b.Token,
		Rev:      rev,
		Index:    idx,
		Field:    f,
		PromptID: id,
	})
	return nil
}

func (e *Engine) remove(ctx context.Context, b session.Batch, rev, idx int) error {
	nb, err := e.store.UpdateBatch(b.Token, func(b *session.Batch) error {
		return b.Remove(rev, idx)
	})
	if err != nil {
		return expired(err)
	}
	// Indices shifted; start over from the first page.
	return e.present(ctx, nb.Token, 0)
}

// HandleText consumes a text message. It reports false when the message is
// neither an edit reply nor a typed slip, leaving it to the caller.
func (e *Engine) HandleText(ctx context.Context, sig TextSignal) bool {
	key := session.EditKey{ChatID: sig.ChatID, UserID: sig.UserID}
	if es, ok := e.store.Edits.Get(key); ok && sig.ReplyTo != 0 && sig.ReplyTo == es.PromptID {
		e.store.Edits.Delete(key)
		log := e.log.With("chat_id", sig.ChatID, "token", es.Token, "index", es.Index, "field", es.Field)
		if err := e.applyEdit(ctx, sig, es); err != nil {
			switch {
			case errors.Is(err, ErrExpired):
				log.Info("edit reply for stale batch", "err", err)
				e.notify(ctx, sig.ChatID, "⌛ Esse lote expirou ou mudou. Abra a edição de novo.")
			default:
				log.Error("apply edit", "err", err)
				e.notify(ctx, sig.ChatID, "⚠️ Não consegui aplicar a edição. Tente novamente.")
			}
		}
		return true
	}

	p, _ := slip.ParsePatch(sig.Text)
	if len(p) < 2 {
		return false
	}
	e.submitTyped(ctx, sig, p)
	return true
}

// CancelEdit forgets the user's pending edit in chatID, if any.
func (e *Engine) CancelEdit(chatID, userID int64) bool {
	_, ok := e.store.Edits.Take(session.EditKey{ChatID: chatID, UserID: userID})
	return ok
}

func (e *Engine) applyEdit(ctx context.Context, sig TextSignal, es session.EditSession) error {
	today := e.today()
	b, err := e.store.UpdateBatch(es.Token, func(b *session.Batch) error {
		if b.OwnerID != sig.UserID {
			return ErrNotOwner
		}
		it, err := b.Item(es.Rev, es.Index)
		if err != nil {
			return err
		}
		rec := it.Record
		if p, _ := slip.ParsePatch(sig.Text); len(p) >= 2 {
			p.Apply(&rec, today)
		} else {
			rec.Set(es.Field, strings.TrimSpace(sig.Text), today)
		}
		it.SetRecord(rec)
		it.Reviewed = true
		return nil
	})
	if err != nil {
		return expired(err)
	}
	return e.present(ctx, b.Token, b.Page)
}

// submitTyped turns a typed multi-line slip into a single-item batch.
func (e *Engine) submitTyped(ctx context.Context, sig TextSignal, p slip.Patch) {
	var rec slip.Record
	p.Apply(&rec, e.today())
	one := 1.0
	rec.Confidence = &one
	e.open(ctx, sig.ChatID, sig.UserID, "", []slip.Record{rec})
}
