package session

import (
	"context"
	"log/slog"
	"time"

	"slip-bot/api/internal/clock"
)

type Store struct {
	Batches *Map[string, Batch]
	Edits   *Map[EditKey, EditSession]
}

func NewStore(c clock.Clock, batchTTL, editTTL time.Duration) *Store {
	return &Store{
		Batches: NewMap[string, Batch](c, batchTTL),
		Edits:   NewMap[EditKey, EditSession](c, editTTL),
	}
}

// UpdateBatch applies fn to a private copy of the batch and stores the copy
// only if fn succeeds. It returns the stored snapshot.
func (s *Store) UpdateBatch(token string, fn func(b *Batch) error) (Batch, error) {
	var (
		out  Batch
		ferr error
	)
	ok := s.Batches.Update(token, func(cur Batch) Batch {
		next := cur.Clone()
		if err := fn(&next); err != nil {
			ferr = err
			return cur
		}
		out = next
		return next
	})
	if !ok {
		return Batch{}, ErrNotFound
	}
	if ferr != nil {
		return Batch{}, ferr
	}
	return out, nil
}

// DropEditsFor removes edit sessions pointing at token.
func (s *Store) DropEditsFor(token string) int {
	return s.Edits.DeleteFunc(func(_ EditKey, es EditSession) bool { return es.Token == token })
}

// Janitor sweeps expired batches and edit sessions every interval until ctx ends.
func (s *Store) Janitor(ctx context.Context, c clock.Clock, every time.Duration, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	sweepLoop(ctx, c, every, func() {
		b, e := s.Batches.Sweep(), s.Edits.Sweep()
		if b+e > 0 {
			log.Info("session sweep", "batches", b, "edits", e)
		}
	})
}
