package snsctx

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
)

type ctxKey int

const verboseKey ctxKey = iota

func IsVerbose(ctx context.Context) bool {
	v, _ := ctx.Value(verboseKey).(bool)
	return v
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, verboseKey, value)
}

// Dump logs a bus frame at debug level when the context is verbose.
func Dump(ctx context.Context, msg string, address byte, frame []byte) {
	if !IsVerbose(ctx) || len(frame) == 0 {
		return
	}
	slog.DebugContext(ctx, msg, "address", fmt.Sprintf("%#x", address), "frame", hex.EncodeToString(frame))
}
