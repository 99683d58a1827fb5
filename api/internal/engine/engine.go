// Package engine turns asynchronously extracted slips into reviewable
// batches: it coalesces arrivals, renders the review, runs the field edit
// dialogue and commits confirmed batches to the ledger.
//
// State lives in a session.Store. Every handler re-reads the batch by token
// right before changing it, since the batch may have been edited, cancelled
// or committed since the action was rendered.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"slip-bot/api/internal/clock"
	"slip-bot/api/internal/extract"
	"slip-bot/api/internal/ledger"
	"slip-bot/api/internal/session"
	"slip-bot/api/internal/slip"
)

var (
	// ErrExpired marks a reference to a batch, item or edit that no longer exists.
	ErrExpired = errors.New("engine: expired")
	// ErrNotOwner marks an action by someone other than the batch owner.
	ErrNotOwner = errors.New("engine: not the batch owner")
)

// Button is a selectable action attached to a message.
type Button struct {
	Label  string
	Action Action
}

// Message is what the engine asks the chat channel to show.
type Message struct {
	Text    string
	Buttons [][]Button
	// ForceReply asks the client to open a reply to this message.
	ForceReply bool
}

// Channel is the chat transport.
type Channel interface {
	Send(ctx context.Context, chatID int64, m Message) (messageID int, err error)
	Edit(ctx context.Context, chatID int64, messageID int, m Message) error
}

// Ledger receives committed bets.
type Ledger interface {
	CommitBets(ctx context.Context, ownerID string, items []slip.LedgerItem) ([]ledger.Result, error)
}

// Audit records commit attempts. Optional.
type Audit interface {
	RecordCommit(ctx context.Context, r ledger.Receipt) error
}

// Config holds the engine's tunables.
type Config struct {
	Debounce time.Duration
	// ExtractTimeout bounds one extraction; a slot still open after it is dropped.
	ExtractTimeout time.Duration
	PageSize       int
	LowConfidence  float64
	HighConfidence float64
	// LinkURL is shown to users whose account is not linked yet.
	LinkURL string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Debounce:       1200 * time.Millisecond,
		ExtractTimeout: 90 * time.Second,
		PageSize:       6,
		LowConfidence:  0.6,
		HighConfidence: 0.85,
	}
}

// Deps are the engine's collaborators. Clock, Store and Logger have defaults.
type Deps struct {
	Clock     clock.Clock
	Store     *session.Store
	Chat      Channel
	Extractor extract.Extractor
	Ledger    Ledger
	Audit     Audit
	Logger    *slog.Logger
	// NewToken overrides batch token generation.
	NewToken func() string
	// Go runs extraction work; defaults to a new goroutine.
	Go func(func())
}

// Engine drives a chat from arriving photos to a committed batch.
type Engine struct {
	cfg       Config
	clock     clock.Clock
	store     *session.Store
	chat      Channel
	extractor extract.Extractor
	ledger    Ledger
	audit     Audit
	log       *slog.Logger
	newToken  func() string
	goFn      func(func())

	coalescer *Coalescer
}

// New builds an engine. Zero config values take their defaults.
func New(cfg Config, d Deps) *Engine {
	def := DefaultConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = def.ExtractTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.LowConfidence == 0 && cfg.HighConfidence == 0 {
		cfg.LowConfidence, cfg.HighConfidence = def.LowConfidence, def.HighConfidence
	}
	e := &Engine{
		cfg:       cfg,
		clock:     d.Clock,
		store:     d.Store,
		chat:      d.Chat,
		extractor: d.Extractor,
		ledger:    d.Ledger,
		audit:     d.Audit,
		log:       d.Logger,
		newToken:  d.NewToken,
		goFn:      d.Go,
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.store == nil {
		e.store = session.NewStore(e.clock, 30*time.Minute, 10*time.Minute)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.newToken == nil {
		e.newToken = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if e.goFn == nil {
		e.goFn = func(f func()) { go f() }
	}
	e.coalescer = NewCoalescer(e.clock, cfg.Debounce, e.flush)
	return e
}

// Store exposes the session store, mainly for the janitor and tests.
func (e *Engine) Store() *session.Store { return e.store }

// Coalescer exposes the arrival grouper.
func (e *Engine) Coalescer() *Coalescer { return e.coalescer }

// ActionSignal is a selected action together with who selected it.
type ActionSignal struct {
	ChatID int64
	UserID int64
	Action Action
}

// HandleAction runs one user action. Failures are reported to the chat, never returned.
func (e *Engine) HandleAction(ctx context.Context, sig ActionSignal) {
	log := e.log.With("chat_id", sig.ChatID, "token", sig.Action.Token, "action", sig.Action.Kind)
	err := e.dispatch(ctx, sig)
	switch {
	case err == nil:
	case errors.Is(err, ErrExpired):
		log.Info("stale action", "err", err)
		e.notify(ctx, sig.ChatID, "⌛ Esse lote expirou ou já foi processado. Envie os bilhetes novamente.")
	case errors.Is(err, ErrNotOwner):
		log.Info("foreign action", "user_id", sig.UserID)
		e.notify(ctx, sig.ChatID, "Só quem enviou os bilhetes pode mexer neste lote.")
	default:
		log.Error("action failed", "err", err)
		e.notify(ctx, sig.ChatID, "⚠️ Não consegui concluir a ação. Tente novamente.")
	}
}

func (e *Engine) dispatch(ctx context.Context, sig ActionSignal) error {
	a := sig.Action
	b, err := e.batchFor(sig.UserID, a.Token)
	if err != nil {
		return err
	}
	switch a.Kind {
	case KindEdit:
		return e.show(ctx, b, itemPicker(b))
	case KindEditPick:
		return e.openFieldPicker(ctx, b, a.Rev, a.Index, "")
	case KindEditField:
		return e.startEdit(ctx, sig, b, a.Rev, a.Index, a.Field)
	case KindRemove:
		return e.remove(ctx, b, a.Rev, a.Index)
	case KindPage:
		return e.present(ctx, b.Token, a.Page)
	case KindBack:
		return e.present(ctx, b.Token, b.Page)
	case KindConfirm:
		return e.confirm(ctx, b, false)
	case KindForceConfirm:
		return e.confirm(ctx, b, true)
	case KindCancel:
		return e.cancel(ctx, b)
	default:
		return fmt.Errorf("engine: unknown action %q", a.Kind)
	}
}

// batchFor loads the current batch and checks that userID owns it.
func (e *Engine) batchFor(userID int64, token string) (session.Batch, error) {
	b, ok := e.store.Batches.Get(token)
	if !ok {
		return session.Batch{}, fmt.Errorf("%w: batch %s", ErrExpired, token)
	}
	if b.OwnerID != userID {
		return session.Batch{}, ErrNotOwner
	}
	return b, nil
}

func (e *Engine) notify(ctx context.Context, chatID int64, text string) {
	if _, err := e.chat.Send(ctx, chatID, Message{Text: text}); err != nil {
		e.log.Warn("send failed", "chat_id", chatID, "err", err)
	}
}

// expired folds store lookups that missed into ErrExpired.
func expired(err error) error {
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrNoItem) {
		return fmt.Errorf("%w: %w", ErrExpired, err)
	}
	return err
}

func (e *Engine) today() time.Time { return e.clock.Now() }
