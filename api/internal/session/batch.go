// Package session keeps the bot's ephemeral conversation state: batches under
// review and pending field edits. Nothing here survives a restart.
package session

import (
	"errors"
	"fmt"
	"time"

	"slip-bot/api/internal/slip"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrNoItem   = errors.New("session: no such item")
)

// Batch is the unit of review and commit. Values handed out by the Store are
// snapshots; changes go through Store.UpdateBatch.
type Batch struct {
	Token    string
	OwnerID  int64
	ChatID   int64
	BookHint string
	Items    []BatchItem
	// ReviewMessageID is the last message the batch was rendered into.
	ReviewMessageID int
	// Rev grows on every removal; index-addressed references carry the Rev
	// they were issued at.
	Rev       int
	Page      int
	CreatedAt time.Time
}

// BatchItem wraps a record with its cached summary line.
type BatchItem struct {
	Record   slip.Record
	Reviewed bool
	summary  string
}

func NewItem(r slip.Record) BatchItem {
	it := BatchItem{Record: r}
	it.refresh()
	return it
}

// SetRecord replaces the record and recomputes the summary.
func (it *BatchItem) SetRecord(r slip.Record) {
	it.Record = r
	it.summary = ""
	it.refresh()
}

// SummaryLine returns the cached summary, computing it when absent.
func (it BatchItem) SummaryLine() string {
	if it.summary != "" {
		return it.summary
	}
	return it.Record.Summary()
}

// Confidence is the routing score; user-reviewed items count as certain.
func (it BatchItem) Confidence() float64 {
	if it.Reviewed {
		return 1
	}
	return it.Record.EffectiveConfidence()
}

func (it *BatchItem) refresh() {
	if it.summary == "" {
		it.summary = it.Record.Summary()
	}
}

// Item returns item i if rev still matches the batch.
func (b *Batch) Item(rev, i int) (*BatchItem, error) {
	if rev != b.Rev || i < 0 || i >= len(b.Items) {
		return nil, fmt.Errorf("%w: index %d rev %d (batch rev %d, %d items)", ErrNoItem, i, rev, b.Rev, len(b.Items))
	}
	return &b.Items[i], nil
}

// Remove deletes item i, shifting later items down by one, and bumps Rev.
func (b *Batch) Remove(rev, i int) error {
	if _, err := b.Item(rev, i); err != nil {
		return err
	}
	b.Items = append(b.Items[:i], b.Items[i+1:]...)
	b.Rev++
	for j := range b.Items {
		b.Items[j].refresh()
	}
	return nil
}

// Clone copies the batch so that the copy's items can be changed freely.
func (b Batch) Clone() Batch {
	out := b
	out.Items = append([]BatchItem(nil), b.Items...)
	return out
}

// EditKey identifies the one pending edit a user may have in a chat.
type EditKey struct {
	ChatID int64
	UserID int64
}

// EditSession correlates the reply to PromptID with a field of a batch item.
type EditSession struct {
	Token    string
	Rev      int
	Index    int
	Field    slip.Field
	PromptID int
}
