package telegram

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"slip-bot/api/internal/engine"
)

// maxText keeps messages under Telegram's 4096 character limit.
const maxText = 3900

const helpText = `📸 Envie a foto do bilhete (ou várias de uma vez) e eu monto o lote para você revisar.
Na legenda, a primeira linha pode indicar a casa (ex.: Betano).

Também dá para digitar a aposta, uma informação por linha:
evento: Flamengo x Vasco
mercado: Ambas marcam
odd: 1,85
stake: 50
casa: Betano

Carteira:
deposito 100
saque 50,00

/cancelar para desistir da edição em andamento`

// keyboard converts engine buttons into an inline keyboard. Buttons whose
// action cannot be encoded are dropped.
func keyboard(rows [][]engine.Button, log *slog.Logger) (tgbotapi.InlineKeyboardMarkup, bool) {
	var out [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var r []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			data, err := EncodeAction(b.Action)
			if err != nil {
				log.Warn("drop button", "label", b.Label, "err", err)
				continue
			}
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Label, data))
		}
		if len(r) > 0 {
			out = append(out, tgbotapi.NewInlineKeyboardRow(r...))
		}
	}
	if len(out) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}

func clip(s string) string {
	r := []rune(s)
	if len(r) > maxText {
		return string(r[:maxText]) + "…"
	}
	return s
}
