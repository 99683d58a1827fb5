package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"slip-bot/api/internal/engine"
)

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		r.Log.Debug("callback ack", "err", err)
	}
	if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
		return
	}
	cid := cb.Message.Chat.ID

	a, err := DecodeAction(cb.Data)
	if err != nil {
		r.Log.Info("bad callback", "chat_id", cid, "data", cb.Data, "err", err)
		r.Chat.text(cid, "Esse botão não é mais válido. Envie os bilhetes novamente.")
		return
	}
	r.Engine.HandleAction(ctx, engine.ActionSignal{ChatID: cid, UserID: cb.From.ID, Action: a})
}
