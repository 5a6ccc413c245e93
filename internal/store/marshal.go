package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/duet/internal/ir"
	"github.com/roach88/duet/internal/realm"
)

// entryID identifies one observation of a message by one realm.
func entryID(e realm.JournalEntry) (string, error) {
	msgID, err := ir.MessageID(e.Message)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	fmt.Fprintf(h, "duet/journal/v1\x00%s\x00%s\x00%s\x00%s", e.Realm, e.Direction, e.Outcome, msgID)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// marshalMessage converts a message to canonical JSON TEXT for storage.
func marshalMessage(m ir.Message) (string, error) {
	data, err := ir.EncodeMessage(m)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	return string(data), nil
}

func unmarshalMessage(s string) (ir.Message, error) {
	m, err := ir.DecodeMessage([]byte(s))
	if err != nil {
		return ir.Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return m, nil
}
