package middleware

import (
	"context"
	"time"
)

type contextKey int

const (
	stateKey contextKey = iota
	errorSlotKey
)

// requestState is shared by the middlewares handling one request. It is
// installed by LoggingMiddleware and filled in by the handlers inside it.
type requestState struct {
	start   time.Time
	outcome string
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey).(*requestState)
	return st
}

// StartTime returns when LoggingMiddleware received the request, or the zero
// time outside it.
func StartTime(ctx context.Context) time.Time {
	if st := stateFrom(ctx); st != nil {
		return st.start
	}
	return time.Time{}
}

// Outcome returns the not-found outcome decided for the request, or "" when
// the dispatcher never ran.
func Outcome(ctx context.Context) string {
	if st := stateFrom(ctx); st != nil {
		return st.outcome
	}
	return ""
}

// setOutcome records the outcome of the outermost dispatch. Dispatches made
// while rendering the fallback page finish first and are overwritten.
func setOutcome(ctx context.Context, outcome string) {
	if st := stateFrom(ctx); st != nil {
		st.outcome = outcome
	}
}
