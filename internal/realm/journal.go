package realm

import (
	"context"

	"github.com/roach88/duet/internal/ir"
)

// Direction is the side of the channel a journal entry was observed on.
type Direction string

const (
	DirectionOut Direction = "out"
	DirectionIn  Direction = "in"
)

// Outcome is what the realm did with a sync message.
type Outcome string

const (
	OutcomeSent     Outcome = "sent"     // outbound write or batch
	OutcomeApplied  Outcome = "applied"  // received write stored as received
	OutcomeEchoed   Outcome = "echoed"   // received write re-validated to a new value and sent back
	OutcomeRejected Outcome = "rejected" // received write failed validation
	OutcomeDropped  Outcome = "dropped"  // unknown or disposed instance, or unknown member
	OutcomeQueued   Outcome = "queued"   // received event batch queued for the next flush
)

// JournalEntry is one message crossing the realm boundary.
type JournalEntry struct {
	Realm     ir.Realm
	Direction Direction
	Outcome   Outcome
	Message   ir.Message
}

// Journal records sync traffic for diagnosis. It is not property
// persistence: nothing is ever read back into a realm.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
}

func (r *Realm) journalize(ctx context.Context, dir Direction, outcome Outcome, msg ir.Message) {
	if r.journal == nil {
		return
	}
	entry := JournalEntry{Realm: r.realm, Direction: dir, Outcome: outcome, Message: msg}
	if err := r.journal.Record(ctx, entry); err != nil {
		r.logger.Warn("journal record failed",
			"instance", msg.InstanceID,
			"kind", msg.Kind,
			"error", err)
	}
}
