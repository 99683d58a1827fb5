package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"slip-bot/api/internal/ledger"
	"slip-bot/api/internal/session"
	"slip-bot/api/internal/slip"
)

type Outcome int

const (
	// OutcomeFix refuses the commit and sends the user to fix Decision.Index.
	OutcomeFix Outcome = iota
	// OutcomeCommit commits without asking.
	OutcomeCommit
	// OutcomeAsk offers force-confirm or edit.
	OutcomeAsk
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFix:
		return "fix"
	case OutcomeCommit:
		return "commit"
	case OutcomeAsk:
		return "ask"
	default:
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

type Decision struct {
	Outcome Outcome
	// Index is the first item below the low threshold, for OutcomeFix.
	Index int
}

// Route decides what a confirm request does with items. Any item below low
// wins over everything else; then all items at or above high commit; the
// rest asks.
func Route(items []session.BatchItem, low, high float64) Decision {
	all := true
	for i, it := range items {
		c := it.Confidence()
		if c < low {
			return Decision{Outcome: OutcomeFix, Index: i}
		}
		if c < high {
			all = false
		}
	}
	if all {
		return Decision{Outcome: OutcomeCommit}
	}
	return Decision{Outcome: OutcomeAsk}
}

// confirm routes the batch. force skips the ask step but never the fix step.
func (e *Engine) confirm(ctx context.Context, b session.Batch, force bool) error {
	if len(b.Items) == 0 {
		e.notify(ctx, b.ChatID, "Não há apostas neste lote. Envie os bilhetes novamente ou cancele.")
		return nil
	}
	d := Route(b.Items, e.cfg.LowConfidence, e.cfg.HighConfidence)
	e.log.Debug("confirm routed", "token", b.Token, "outcome", d.Outcome, "index", d.Index, "force", force)
	switch {
	case d.Outcome == OutcomeFix:
		note := fmt.Sprintf("🔎 A aposta %d foi lida com pouca confiança. Confira antes de confirmar.", d.Index+1)
		return e.openFieldPicker(ctx, b, b.Rev, d.Index, note)
	case d.Outcome == OutcomeAsk && !force:
		return e.show(ctx, b, askMessage(b, e.cfg.HighConfidence))
	default:
		return e.commit(ctx, b.Token)
	}
}

func askMessage(b session.Batch, high float64) Message {
	var unsure []string
	for i, it := range b.Items {
		if it.Confidence() < high {
			unsure = append(unsure, strconv.Itoa(i+1))
		}
	}
	text := fmt.Sprintf("🤔 Algumas apostas foram lidas com confiança média (%s).\nConfirmar mesmo assim ou editar?", strings.Join(unsure, ", "))
	return Message{Text: text, Buttons: [][]Button{
		{{Label: "✅ Confirmar mesmo assim", Action: ForceConfirm(b.Token)}},
		{{Label: "✏️ Editar", Action: Edit(b.Token)}},
		{{Label: "↩️ Voltar", Action: Back(b.Token)}},
	}}
}

// commit takes the batch out of the store before calling the ledger, so a
// second confirm for the same token finds nothing. If the ledger call fails
// the batch is lost; the user has to resend the slips.
func (e *Engine) commit(ctx context.Context, token string) error {
	b, ok := e.store.Batches.Take(token)
	if !ok {
		return fmt.Errorf("%w: batch %s already taken", ErrExpired, token)
	}
	e.store.DropEditsFor(token)
	log := e.log.With("chat_id", b.ChatID, "token", token)

	items := make([]slip.LedgerItem, len(b.Items))
	for i, it := range b.Items {
		items[i] = it.Record.ForLedger()
	}
	rc := ledger.Receipt{Token: token, OwnerID: b.OwnerID, ChatID: b.ChatID, Items: len(items), At: e.clock.Now()}

	results, err := e.ledger.CommitBets(ctx, strconv.FormatInt(b.OwnerID, 10), items)
	var m Message
	if err != nil {
		rc.Failed = len(items)
		rc.Err = err.Error()
		log.Error("commit failed", "items", len(items), "err", err)
		m = Message{Text: "❌ Falha ao registrar as apostas: " + err.Error() + "\nO lote foi descartado; envie os bilhetes novamente."}
	} else {
		rc.OK, rc.Failed = ledger.Count(results, len(items))
		log.Info("batch committed", "items", len(items), "ok", rc.OK, "failed", rc.Failed)
		m = Message{Text: commitSummary(rc.OK, rc.Failed)}
	}
	e.record(ctx, rc)
	return e.show(ctx, b, m)
}

func commitSummary(ok, failed int) string {
	switch {
	case failed == 0:
		return fmt.Sprintf("✅ %d aposta(s) registrada(s).", ok)
	case ok == 0:
		return fmt.Sprintf("❌ Nenhuma aposta registrada (%d com erro).", failed)
	default:
		return fmt.Sprintf("⚠️ %d aposta(s) registrada(s), %d com erro.", ok, failed)
	}
}

func (e *Engine) record(ctx context.Context, rc ledger.Receipt) {
	if e.audit == nil {
		return
	}
	if err := e.audit.RecordCommit(ctx, rc); err != nil {
		e.log.Warn("audit commit", "token", rc.Token, "err", err)
	}
}

func (e *Engine) cancel(ctx context.Context, b session.Batch) error {
	if _, ok := e.store.Batches.Take(b.Token); !ok {
		return fmt.Errorf("%w: batch %s already taken", ErrExpired, b.Token)
	}
	e.store.DropEditsFor(b.Token)
	return e.show(ctx, b, Message{Text: "🗑 Lote cancelado."})
}
