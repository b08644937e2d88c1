package services

import "context"

type contextKey string

const (
	fileDigestKey contextKey = "file_digest"
	stageKey      contextKey = "stage"
	runKey        contextKey = "run"
	requestIDKey  contextKey = "request_id"
)

// withValue stores a non-empty value; an empty one leaves ctx unchanged.
func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithFileDigest tags ctx with the content digest of the recording in hand.
func WithFileDigest(ctx context.Context, digest string) context.Context {
	return withValue(ctx, fileDigestKey, digest)
}

func FileDigestFromContext(ctx context.Context) (string, bool) { return lookup(ctx, fileDigestKey) }

// WithStage tags ctx with the step running inside a run (prepare, trim,
// transcribe, analyze, organize, metadata).
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

// WithRun tags ctx with the command being run: collect, prepare,
// vad-trim, or process.
func WithRun(ctx context.Context, run string) context.Context {
	return withValue(ctx, runKey, run)
}

func RunFromContext(ctx context.Context) (string, bool) { return lookup(ctx, runKey) }

// WithRequestID tags ctx with the run's correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, requestIDKey) }
