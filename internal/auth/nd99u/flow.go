package nd99u

import (
	"context"
	"fmt"
	"sync"

	"github.com/feitianbubu/jaaz/internal/auth"
)

// State names one step of the SSO login flow.
type State string

const (
	// StateIdle is the initial state before the user triggers a login.
	StateIdle State = "idle"
	// StateRedirecting means the login URL was built and the browser is being
	// sent to the identity provider. Control does not return in-process; the
	// flow resumes when the provider redirects back.
	StateRedirecting State = "redirecting"
	// StateAwaitingCallback means the provider redirect arrived and the
	// callback parameters are about to be inspected.
	StateAwaitingCallback State = "awaiting_callback"
	// StateExchanging means a uckey was extracted and is being exchanged.
	StateExchanging State = "exchanging"
	// StateSucceeded is terminal: the exchange produced a session record.
	StateSucceeded State = "succeeded"
	// StateFailed is terminal: the flow must be restarted from the beginning.
	StateFailed State = "failed"
)

// Flow is the single-shot state machine for one 99u login attempt. Once a
// terminal state is reached the flow refuses further transitions; an
// abandoned redirect simply never advances past StateRedirecting.
type Flow struct {
	auth *Auth

	mu    sync.Mutex
	state State
	err   error
}

// NewFlow creates an idle flow bound to the shared exchange helper.
func NewFlow(a *Auth) *Flow {
	return &Flow{auth: a, state: StateIdle}
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the failure that moved the flow to StateFailed, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Begin transitions Idle -> Redirecting and returns the provider login URL
// the browser must navigate to.
func (f *Flow) Begin(redirectURI string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return "", fmt.Errorf("nd99u flow: begin from %s is not allowed", f.state)
	}
	f.state = StateRedirecting
	return f.auth.AuthorizationURL(redirectURI), nil
}

// HandleCallback runs the callback half of the flow: AwaitingCallback ->
// Exchanging -> Succeeded or Failed. uckey is the query parameter extracted
// from the redirect; an empty value fails with KindMissingCode without ever
// contacting the verification endpoint. The returned record is nil on
// failure and the flow error carries the displayable message.
func (f *Flow) HandleCallback(ctx context.Context, uckey string) (*auth.Record, error) {
	f.mu.Lock()
	switch f.state {
	case StateIdle, StateRedirecting:
		// A callback page load is a fresh process in the browser flow, so the
		// redirect leg may not have run in this instance.
		f.state = StateAwaitingCallback
	case StateAwaitingCallback:
	default:
		state := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("nd99u flow: callback in terminal state %s", state)
	}
	if uckey == "" {
		f.state = StateFailed
		f.err = auth.NewError(auth.KindMissingCode, "missing uckey parameter", nil)
		err := f.err
		f.mu.Unlock()
		return nil, err
	}
	f.state = StateExchanging
	f.mu.Unlock()

	record, err := f.auth.ExchangeCode(ctx, uckey)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.err = err
		return nil, err
	}
	f.state = StateSucceeded
	return record, nil
}
