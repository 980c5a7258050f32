package services

import "context"

type contextKey string

const (
	rowIDKey     contextKey = "row_id"
	operationKey contextKey = "operation"
	batchIDKey   contextKey = "batch_id"
)

// WithRowID annotates context with the storyboard row identifier.
func WithRowID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, rowIDKey, id)
}

// RowIDFromContext extracts the row identifier if present.
func RowIDFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(rowIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithOperation annotates context with the generation operation name.
func WithOperation(ctx context.Context, operation string) context.Context {
	if operation == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, operation)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(operationKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithBatchID annotates context with the batch run identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch run identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
