package core

import "context"

type contextKey string

const ctxKeyActor contextKey = "import_actor"

// ContextWithActor records who is making the request. The web layer sets it
// from the authenticated API key; CreateImportJob uses it when no uploader
// is given explicitly.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the actor stored by ContextWithActor, or "".
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok {
		return v
	}
	return ""
}
