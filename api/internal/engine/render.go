package engine

import (
	"context"
	"fmt"
	"strings"

	"slip-bot/api/internal/session"
	"slip-bot/api/internal/slip"
)

// View is a rendered page of a batch.
type View struct {
	Message
	Page       int
	TotalPages int
	// Shown holds the batch indices listed on this page.
	Shown []int
}

// TotalPages is ceil(n/size).
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// ClampPage keeps page inside [0, total-1]; an empty batch has only page 0.
func ClampPage(page, total int) int {
	if page >= total {
		page = total - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// Render projects batch b at page into text and actions.
func Render(b session.Batch, page, size int) View {
	total := TotalPages(len(b.Items), size)
	page = ClampPage(page, total)
	v := View{Page: page, TotalPages: total}

	if len(b.Items) == 0 {
		v.Text = "🧾 Nenhuma aposta foi lida neste envio.\nConfira as fotos e envie novamente."
		v.Buttons = [][]Button{{{Label: "❌ Cancelar", Action: Cancel(b.Token)}}}
		return v
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 Lote com %d aposta(s)", len(b.Items))
	if b.BookHint != "" {
		fmt.Fprintf(&sb, " · casa: %s", b.BookHint)
	}
	if total > 1 {
		fmt.Fprintf(&sb, "\nPágina %d/%d", page+1, total)
	}
	sb.WriteString("\n")

	start := page * size
	end := min(start+size, len(b.Items))
	var removeRow []Button
	var removeRows [][]Button
	for i := start; i < end; i++ {
		it := b.Items[i]
		fmt.Fprintf(&sb, "\n%d. %s", i+1, it.SummaryLine())
		if miss := it.Record.Missing(); len(miss) > 0 {
			fmt.Fprintf(&sb, "\n   ⚠️ faltando: %s", fieldList(miss))
		}
		v.Shown = append(v.Shown, i)

		removeRow = append(removeRow, Button{Label: fmt.Sprintf("🗑 %d", i+1), Action: Remove(b.Token, b.Rev, i)})
		if len(removeRow) == 3 {
			removeRows = append(removeRows, removeRow)
			removeRow = nil
		}
	}
	if len(removeRow) > 0 {
		removeRows = append(removeRows, removeRow)
	}

	v.Text = sb.String()
	v.Buttons = append(v.Buttons, removeRows...)
	v.Buttons = append(v.Buttons, []Button{{Label: "✏️ Editar", Action: Edit(b.Token)}})
	if total > 1 {
		var nav []Button
		if page > 0 {
			nav = append(nav, Button{Label: "◀️", Action: Page(b.Token, page-1)})
		}
		if page < total-1 {
			nav = append(nav, Button{Label: "▶️", Action: Page(b.Token, page+1)})
		}
		v.Buttons = append(v.Buttons, nav)
	}
	v.Buttons = append(v.Buttons, []Button{
		{Label: "✅ Confirmar", Action: Confirm(b.Token)},
		{Label: "❌ Cancelar", Action: Cancel(b.Token)},
	})
	return v
}

func itemPicker(b session.Batch) Message {
	var rows [][]Button
	var row []Button
	for i := range b.Items {
		row = append(row, Button{Label: fmt.Sprintf("%d", i+1), Action: EditPick(b.Token, b.Rev, i)})
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Label: "↩️ Voltar", Action: Back(b.Token)}})
	return Message{Text: "Qual aposta você quer editar?", Buttons: rows}
}

func fieldPicker(b session.Batch, i int, note string) Message {
	it := b.Items[i]
	var sb strings.Builder
	if note != "" {
		sb.WriteString(note)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Editando aposta %d:\n%s\n\nEscolha o campo:", i+1, it.SummaryLine())

	var rows [][]Button
	var row []Button
	for _, f := range slip.Fields {
		row = append(row, Button{Label: f.Label(), Action: EditField(b.Token, b.Rev, i, f)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Label: "↩️ Voltar", Action: Back(b.Token)}})
	return Message{Text: sb.String(), Buttons: rows}
}

func fieldList(fs []slip.Field) string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = strings.ToLower(f.Label())
	}
	return strings.Join(out, ", ")
}

// present renders the batch at page and remembers the page.
func (e *Engine) present(ctx context.Context, token string, page int) error {
	b, err := e.store.UpdateBatch(token, func(b *session.Batch) error {
		b.Page = ClampPage(page, TotalPages(len(b.Items), e.cfg.PageSize))
		return nil
	})
	if err != nil {
		return expired(err)
	}
	return e.show(ctx, b, Render(b, b.Page, e.cfg.PageSize).Message)
}

// show puts m on the batch's review message, editing in place when possible
// and sending a new message otherwise.
func (e *Engine) show(ctx context.Context, b session.Batch, m Message) error {
	if b.ReviewMessageID != 0 {
		err := e.chat.Edit(ctx, b.ChatID, b.ReviewMessageID, m)
		if err == nil {
			return nil
		}
		e.log.Debug("edit in place failed, sending new message", "chat_id", b.ChatID, "message_id", b.ReviewMessageID, "err", err)
	}
	id, err := e.chat.Send(ctx, b.ChatID, m)
	if err != nil {
		return fmt.Errorf("send review: %w", err)
	}
	// The batch may already be gone (committed or cancelled); that is fine.
	_, _ = e.store.UpdateBatch(b.Token, func(nb *session.Batch) error {
		nb.ReviewMessageID = id
		return nil
	})
	return nil
}
