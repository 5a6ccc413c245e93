package store

import (
	"context"
	"fmt"

	"github.com/roach88/duet/internal/realm"
)

var _ realm.Journal = (*Store)(nil)

// Record inserts a journal entry. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - recording the same observation twice is silently ignored.
func (s *Store) Record(ctx context.Context, e realm.JournalEntry) error {
	id, err := entryID(e)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	msgJSON, err := marshalMessage(e.Message)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal
		(id, realm, direction, outcome, kind, instance_id, name, origin, seq, hops, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		string(e.Realm),
		string(e.Direction),
		string(e.Outcome),
		string(e.Message.Kind),
		e.Message.InstanceID,
		e.Message.Name,
		string(e.Message.Origin),
		e.Message.Seq,
		e.Message.Hops,
		msgJSON,
	)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}
