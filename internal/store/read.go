package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/realm"
)

// Entry is a stored journal entry.
type Entry struct {
	ID string
	realm.JournalEntry
}

const selectEntries = `
	SELECT id, realm, direction, outcome, message
	FROM journal
`

// ordering: seq, sends before receipts, then id.
const orderEntries = `
	ORDER BY seq ASC, direction DESC, id COLLATE BINARY ASC
`

// ReadAll returns every entry in journal order.
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadAll(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntries+orderEntries)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	return scanEntries(rows)
}

// ReadInstance returns the entries for one instance in journal order.
func (s *Store) ReadInstance(ctx context.Context, instanceID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntries+`WHERE instance_id = ?`+orderEntries, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	return scanEntries(rows)
}

// Count returns the number of entries, optionally for one outcome.
func (s *Store) Count(ctx context.Context, outcome realm.Outcome) (int, error) {
	query := `SELECT COUNT(*) FROM journal`
	var args []any
	if outcome != "" {
		query += ` WHERE outcome = ?`
		args = append(args, string(outcome))
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                          Entry
			realmName, dir, outcome, m string
		)
		if err := rows.Scan(&e.ID, &realmName, &dir, &outcome, &m); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		msg, err := unmarshalMessage(m)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		e.Realm = ir.Realm(realmName)
		e.Direction = realm.Direction(dir)
		e.Outcome = realm.Outcome(outcome)
		e.Message = msg
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}
