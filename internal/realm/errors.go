package realm

import (
	"errors"
	"fmt"

	"github.com/roach88/duet/internal/ir"
)

var (
	// ErrUnknownProperty is returned for a property not visible in the realm.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrUnknownEvent is returned for an event not visible in the realm.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrChangeEvent is returned when emitting a change event directly.
	// Change events are emitted by property writes only.
	ErrChangeEvent = errors.New("change events are emitted by property writes")

	// ErrDisposed is returned by operations on a disposed instance.
	ErrDisposed = errors.New("instance disposed")

	// ErrDuplicateInstance is returned when an instance ID is already live.
	ErrDuplicateInstance = errors.New("duplicate instance")

	errNullValue = errors.New("null is not a property value")
)

// ValidationError reports a write rejected by a property validator. The
// stored value is unchanged.
type ValidationError struct {
	Instance string
	Property string
	Realm    ir.Realm
	Value    ir.IRValue
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s.%s in realm %s: %v", e.Instance, e.Property, e.Realm, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
