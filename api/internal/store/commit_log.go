// Package store persists an audit trail of batch commits in Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"slip-bot/api/internal/ledger"
)

type CommitLog struct{ DB *sql.DB }

func NewCommitLog(db *sql.DB) *CommitLog { return &CommitLog{DB: db} }

const schema = `
create table if not exists batch_commits (
    token      text primary key,
    owner_id   bigint      not null,
    chat_id    bigint      not null,
    items      integer     not null,
    ok_count   integer     not null,
    fail_count integer     not null,
    error      text,
    created_at timestamptz not null default now()
);
create index if not exists batch_commits_owner_idx on batch_commits (owner_id, created_at desc);`

// EnsureSchema creates the table on first start.
func (l *CommitLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("commit log schema: %w", err)
	}
	return nil
}

// RecordCommit stores one commit attempt. A repeated token overwrites the row.
func (l *CommitLog) RecordCommit(ctx context.Context, r ledger.Receipt) error {
	const q = `
insert into batch_commits (token, owner_id, chat_id, items, ok_count, fail_count, error, created_at)
values ($1, $2, $3, $4, $5, $6, nullif($7, ''), $8)
on conflict (token) do update set
    ok_count   = excluded.ok_count,
    fail_count = excluded.fail_count,
    error      = excluded.error,
    created_at = excluded.created_at`
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.DB.ExecContext(ctx, q, r.Token, r.OwnerID, r.ChatID, r.Items, r.OK, r.Failed, r.Err, at)
	if err != nil {
		return fmt.Errorf("record commit %s: %w", r.Token, err)
	}
	return nil
}

// Recent returns the owner's latest commit receipts, newest first.
func (l *CommitLog) Recent(ctx context.Context, ownerID int64, limit int) ([]ledger.Receipt, error) {
	const q = `
select token, owner_id, chat_id, items, ok_count, fail_count, coalesce(error, ''), created_at
from batch_commits
where owner_id = $1
order by created_at desc
limit $2`
	rows, err := l.DB.QueryContext(ctx, q, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Receipt
	for rows.Next() {
		var r ledger.Receipt
		if err := rows.Scan(&r.Token, &r.OwnerID, &r.ChatID, &r.Items, &r.OK, &r.Failed, &r.Err, &r.At); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
