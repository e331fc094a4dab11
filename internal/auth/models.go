// Package auth provides the session data model, error taxonomy and token
// persistence for the jaaz client core. It is the only package allowed to
// touch the session record on disk; every other component reads login state
// through the session manager.
package auth

import "strings"

// UserProfile is the normalized identity of the logged-in user, regardless of
// which login flow produced it. Fields a flow does not supply are normalized
// to zero values so downstream consumers never branch on provider type.
type UserProfile struct {
	// ID uniquely identifies the user at the backend. Never empty after login.
	ID string `json:"id"`
	// Username is the display name. Never empty after login.
	Username string `json:"username"`
	// Email may be empty; the 99u flow does not supply one.
	Email string `json:"email"`
	// ImageURL may be empty; the 99u flow does not supply one.
	ImageURL string `json:"image_url"`
	// Provider records the originating flow, "jaaz" or "99u".
	Provider string `json:"provider"`
	// Role is the authorization level, 0 when the flow omits it.
	Role int `json:"role"`
}

// Session is the authoritative logged-in/out state. IsLoggedIn is true iff a
// non-empty token is persisted together with a user profile; the two are
// written and cleared as one record so no caller can observe a half state.
type Session struct {
	IsLoggedIn bool         `json:"is_logged_in"`
	User       *UserProfile `json:"user_info,omitempty"`
}

// Record is the persisted token + profile pair owned by the token store.
type Record struct {
	// AccessToken is the opaque bearer credential. Never logged.
	AccessToken string `json:"access_token"`
	// User is the normalized profile matching the token.
	User UserProfile `json:"user_info"`
}

// Valid reports whether the record represents a usable session: a non-empty
// token paired with a profile carrying the mandatory identity fields.
func (r *Record) Valid() bool {
	if r == nil {
		return false
	}
	if strings.TrimSpace(r.AccessToken) == "" {
		return false
	}
	return r.User.ID != "" && r.User.Username != ""
}

// Session derives the session view of the record.
func (r *Record) Session() Session {
	if !r.Valid() {
		return Session{}
	}
	user := r.User
	return Session{IsLoggedIn: true, User: &user}
}
