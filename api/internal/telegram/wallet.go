package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"slip-bot/api/internal/coerce"
	"slip-bot/api/internal/ledger"
)

var walletVerbs = map[string]string{
	"deposito": ledger.KindWalletDeposit,
	"deposit":  ledger.KindWalletDeposit,
	"saque":    ledger.KindWalletWithdraw,
	"retirada": ledger.KindWalletWithdraw,
	"withdraw": ledger.KindWalletWithdraw,
}

// ParseWallet reads "deposito 100" or "saque R$ 50,00". The amount must be positive.
func ParseWallet(text string) (ledger.WalletEvent, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ledger.WalletEvent{}, false
	}
	kind, ok := walletVerbs[coerce.Slugify(fields[0])]
	if !ok {
		return ledger.WalletEvent{}, false
	}
	amount, ok := coerce.ParseMoney(strings.Join(fields[1:], ""))
	if !ok || !amount.GreaterThan(decimal.Zero) {
		return ledger.WalletEvent{}, false
	}
	return ledger.WalletEvent{Kind: kind, Amount: amount}, true
}

func (r *Router) handleWallet(ctx context.Context, msg *tgbotapi.Message) bool {
	ev, ok := ParseWallet(msg.Text)
	if !ok || r.Wallet == nil {
		return false
	}
	cid := msg.Chat.ID
	if err := r.Wallet.Wallet(ctx, strconv.FormatInt(msg.From.ID, 10), ev); err != nil {
		r.Log.Error("wallet event", "chat_id", cid, "kind", ev.Kind, "err", err)
		r.Chat.text(cid, "❌ Não consegui registrar a movimentação: "+err.Error())
		return true
	}
	verb := "Depósito"
	if ev.Kind == ledger.KindWalletWithdraw {
		verb = "Saque"
	}
	r.Chat.text(cid, fmt.Sprintf("✅ %s de R$ %s registrado.", verb, ev.Amount.StringFixed(2)))
	return true
}
