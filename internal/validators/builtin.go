package validators

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/duet/internal/ir"
)

func identity(ir.IRObject) (Validator, error) {
	return func(_, proposed ir.IRValue) (ir.IRValue, error) {
		return proposed, nil
	}, nil
}

// add stores proposed+by.
func add(args ir.IRObject) (Validator, error) {
	by, err := intArg(args, "by", 1)
	if err != nil {
		return nil, err
	}
	return func(_, proposed ir.IRValue) (ir.IRValue, error) {
		n, err := asInt(proposed)
		if err != nil {
			return nil, err
		}
		sum, err := addInt(n, by)
		if err != nil {
			return nil, err
		}
		return ir.IRInt(sum), nil
	}, nil
}

// counter stores current+by and ignores the proposed value.
func counter(args ir.IRObject) (Validator, error) {
	by, err := intArg(args, "by", 1)
	if err != nil {
		return nil, err
	}
	return func(current, _ ir.IRValue) (ir.IRValue, error) {
		n, err := asInt(current)
		if err != nil {
			return nil, err
		}
		sum, err := addInt(n, by)
		if err != nil {
			return nil, err
		}
		return ir.IRInt(sum), nil
	}, nil
}

func clamp(args ir.IRObject) (Validator, error) {
	lo, err := intArg(args, "min", -1<<63)
	if err != nil {
		return nil, err
	}
	hi, err := intArg(args, "max", 1<<63-1)
	if err != nil {
		return nil, err
	}
	if lo > hi {
		return nil, fmt.Errorf("min %d exceeds max %d", lo, hi)
	}
	return func(_, proposed ir.IRValue) (ir.IRValue, error) {
		n, err := asInt(proposed)
		if err != nil {
			return nil, err
		}
		return ir.IRInt(min(max(n, lo), hi)), nil
	}, nil
}

// addBelow stores proposed+by while proposed is below limit and proposed
// otherwise. A value bounced between two realms using it converges at the
// first value >= limit.
func addBelow(args ir.IRObject) (Validator, error) {
	by, err := intArg(args, "by", 1)
	if err != nil {
		return nil, err
	}
	if _, ok := args["limit"]; !ok {
		return nil, fmt.Errorf("argument %q is required", "limit")
	}
	limit, err := intArg(args, "limit", 0)
	if err != nil {
		return nil, err
	}
	return func(_, proposed ir.IRValue) (ir.IRValue, error) {
		n, err := asInt(proposed)
		if err != nil {
			return nil, err
		}
		if n >= limit {
			return ir.IRInt(n), nil
		}
		sum, err := addInt(n, by)
		if err != nil {
			return nil, err
		}
		return ir.IRInt(sum), nil
	}, nil
}

func toInt(ir.IRObject) (Validator, error) {
	return func(_, proposed ir.IRValue) (ir.IRValue, error) {
		n, err := asInt(proposed)
		if err != nil {
			return nil, err
		}
		return ir.IRInt(n), nil
	}, nil
}

func toString(ir.IRObject) (Validator, error) {
	return func(_, proposed ir.IRValue) (ir.IRValue, error) {
		switch val := proposed.(type) {
		case ir.IRString:
			return val, nil
		case ir.IRInt:
			return ir.IRString(strconv.FormatInt(int64(val), 10)), nil
		case ir.IRBool:
			return ir.IRString(strconv.FormatBool(bool(val))), nil
		default:
			data, err := ir.MarshalCanonical(proposed)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %s to string: %w", ir.Kind(proposed), err)
			}
			return ir.IRString(data), nil
		}
	}, nil
}

func toBool(ir.IRObject) (Validator, error) {
	return func(_, proposed ir.IRValue) (ir.IRValue, error) {
		switch val := proposed.(type) {
		case ir.IRBool:
			return val, nil
		case ir.IRInt:
			return ir.IRBool(val != 0), nil
		case ir.IRString:
			b, err := strconv.ParseBool(string(val))
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to bool", string(val))
			}
			return ir.IRBool(b), nil
		default:
			return nil, fmt.Errorf("cannot convert %s to bool", ir.Kind(proposed))
		}
	}, nil
}

// appendValues accumulates: an array proposal is concatenated onto the current
// array, any other value is appended as one element.
func appendValues(ir.IRObject) (Validator, error) {
	return func(current, proposed ir.IRValue) (ir.IRValue, error) {
		cur, ok := current.(ir.IRArray)
		if !ok {
			return nil, fmt.Errorf("append needs an array property, have %s", ir.Kind(current))
		}
		out := make(ir.IRArray, len(cur), len(cur)+1)
		copy(out, cur)
		if more, ok := proposed.(ir.IRArray); ok {
			return append(out, more...), nil
		}
		return append(out, proposed), nil
	}, nil
}

// record appends the batch size to an array property.
func record(args ir.IRObject) (Action, error) {
	target, err := stringArg(args, "target")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, obj Target, payloads []ir.IRValue) error {
		cur, ok := obj.Get(target)
		if !ok {
			return fmt.Errorf("record: no property %q", target)
		}
		arr, ok := cur.(ir.IRArray)
		if !ok {
			return fmt.Errorf("record: property %q is %s, not array", target, ir.Kind(cur))
		}
		next := make(ir.IRArray, len(arr), len(arr)+1)
		copy(next, arr)
		next = append(next, ir.IRInt(len(payloads)))
		return obj.Set(ctx, target, next)
	}, nil
}

// count adds the batch size to an int property.
func count(args ir.IRObject) (Action, error) {
	target, err := stringArg(args, "target")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, obj Target, payloads []ir.IRValue) error {
		cur, ok := obj.Get(target)
		if !ok {
			return fmt.Errorf("count: no property %q", target)
		}
		n, err := asInt(cur)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		sum, err := addInt(n, int64(len(payloads)))
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		return obj.Set(ctx, target, ir.IRInt(sum))
	}, nil
}

// forward emits another event carrying the batch size.
func forward(args ir.IRObject) (Action, error) {
	target, err := stringArg(args, "target")
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, obj Target, payloads []ir.IRValue) error {
		return obj.Emit(target, ir.IRInt(len(payloads)))
	}, nil
}
