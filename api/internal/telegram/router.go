package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"slip-bot/api/internal/engine"
	"slip-bot/api/internal/ledger"
)

// Intake is what the router needs from the engine.
type Intake interface {
	HandleAction(ctx context.Context, sig engine.ActionSignal)
	HandleText(ctx context.Context, sig engine.TextSignal) bool
	SubmitImage(ctx context.Context, sig engine.ImageSignal) string
	CancelEdit(chatID, userID int64) bool
}

// Wallet records deposits and withdrawals.
type Wallet interface {
	Wallet(ctx context.Context, ownerID string, ev ledger.WalletEvent) error
}

// History lists a user's recent commits.
type History interface {
	Recent(ctx context.Context, ownerID int64, limit int) ([]ledger.Receipt, error)
}

// Router turns updates into engine signals. History is optional; without it
// /historico answers that history is unavailable. Download defaults to an
// HTTP GET.
type Router struct {
	Bot      BotAPI
	Chat     *Channel
	Engine   Intake
	Wallet   Wallet
	History  History
	Log      *slog.Logger
	Download func(ctx context.Context, url string) ([]byte, error)
}

func NewRouter(bot BotAPI, eng Intake, wallet Wallet, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		Bot:      bot,
		Chat:     NewChannel(bot, log),
		Engine:   eng,
		Wallet:   wallet,
		Log:      log,
		Download: download,
	}
}

// HandleUpdate routes one update. It returns once the update is accepted;
// extraction keeps running in the background.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return
	}
	switch {
	case msg.IsCommand():
		r.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, msg)
	case msg.Document != nil && isImage(msg.Document.MimeType):
		r.acceptDocument(ctx, msg)
	case msg.Text != "":
		r.handleText(ctx, msg)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help", "ajuda":
		r.Chat.text(cid, helpText)
	case "cancelar", "cancel":
		if r.Engine.CancelEdit(cid, msg.From.ID) {
			r.Chat.text(cid, "Edição cancelada.")
		} else {
			r.Chat.text(cid, "Nenhuma edição em andamento.")
		}
	case "historico", "history":
		r.showHistory(ctx, msg)
	default:
		r.Chat.text(cid, "Comando desconhecido. Use /help.")
	}
}

func (r *Router) handleText(ctx context.Context, msg *tgbotapi.Message) {
	sig := engine.TextSignal{
		ChatID:    msg.Chat.ID,
		UserID:    msg.From.ID,
		MessageID: msg.MessageID,
		Text:      msg.Text,
	}
	if msg.ReplyToMessage != nil {
		sig.ReplyTo = msg.ReplyToMessage.MessageID
	}
	if r.Engine.HandleText(ctx, sig) {
		return
	}
	if r.handleWallet(ctx, msg) {
		return
	}
	r.Chat.text(msg.Chat.ID, helpText)
}

func (r *Router) showHistory(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	if r.History == nil {
		r.Chat.text(cid, "Histórico indisponível.")
		return
	}
	rs, err := r.History.Recent(ctx, msg.From.ID, 5)
	if err != nil {
		r.Log.Error("history", "chat_id", cid, "err", err)
		r.Chat.text(cid, "⚠️ Não consegui carregar o histórico.")
		return
	}
	if len(rs) == 0 {
		r.Chat.text(cid, "Nenhum lote registrado ainda.")
		return
	}
	var sb strings.Builder
	sb.WriteString("🗂 Últimos lotes:")
	for _, rc := range rs {
		fmt.Fprintf(&sb, "\n%s · %d ok · %d com erro", rc.At.Format("02/01 15:04"), rc.OK, rc.Failed)
	}
	r.Chat.text(cid, sb.String())
}
