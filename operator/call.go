package operator

import (
	"context"
	"fmt"
)

// Call executes op and asserts the result to T. A nil result is T's zero
// value.
func Call[T any](ctx context.Context, op Operator, args ...any) (T, error) {
	var zero T
	v, err := op.Execute(ctx, args...)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T, not %T", op.Method().FullName(), v, zero)
	}
	return t, nil
}
