// Package session holds the signed-in user's bearer token and profile.
//
// A Holder is created once per process and passed to everything that needs
// the session. It is the only writer of the session, in memory and in
// Storage. It also implements api.TokenSource, so the API client's bearer
// interceptor always sends the current token.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abelbrown/cinelog/internal/api"
	"github.com/abelbrown/cinelog/internal/logging"
	"github.com/abelbrown/cinelog/internal/otel"
)

// MinPasswordLength is enforced locally before registering.
const MinPasswordLength = 6

// Session is the credential and profile. User is non-nil only when Token is
// set; a token may exist without a profile.
type Session struct {
	Token string
	User  *api.User
}

// Authenticator is the part of the API the holder needs. *api.Client
// satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (api.AuthResponse, error)
	Me(ctx context.Context) (api.User, error)
}

// Option configures a Holder.
type Option func(*Holder)

// WithEvents records auth events.
func WithEvents(l *otel.Logger) Option {
	return func(h *Holder) { h.events = l }
}

// WithOnChange registers a callback invoked after every change to the
// session, outside the holder's lock.
func WithOnChange(fn func(Session)) Option {
	return func(h *Holder) { h.onChange = fn }
}

// Holder is safe for concurrent use.
type Holder struct {
	storage  Storage
	auth     Authenticator
	events   *otel.Logger
	onChange func(Session)

	wmu  sync.Mutex // held across a storage write and the matching in-memory update
	mu   sync.RWMutex
	sess Session
}

// New returns an empty holder. Call Restore to load a persisted session.
func New(storage Storage, auth Authenticator, opts ...Option) *Holder {
	h := &Holder{storage: storage, auth: auth}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Token returns the current bearer token, or "".
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess.Token
}

// User returns a copy of the profile, or nil.
func (h *Holder) User() *api.User {
	return h.Snapshot().User
}

// Authenticated reports whether a token is held.
func (h *Holder) Authenticated() bool {
	return h.Token() != ""
}

// Snapshot returns a copy of the session.
func (h *Holder) Snapshot() Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.sess
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// ExpiresAt reads the exp claim when the token is a JWT. The signature is
// not verified; the backend is the authority and this is only used to warn
// about an expired session.
func (h *Holder) ExpiresAt() (time.Time, bool) {
	token := h.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether the token carries an exp claim in the past.
func (h *Holder) Expired(now time.Time) bool {
	exp, ok := h.ExpiresAt()
	return ok && !now.Before(exp)
}

// Restore loads the persisted session. A token without a profile is kept;
// a profile without a token is ignored; an unreadable profile is dropped.
func (h *Holder) Restore() error {
	values, err := h.storage.Load(KeyToken, KeyUser)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	var s Session
	if token := values[KeyToken]; token != "" {
		s.Token = token
		if raw := values[KeyUser]; raw != "" {
			var u api.User
			if err := json.Unmarshal([]byte(raw), &u); err != nil {
				logging.Warn("session: dropping unreadable profile", "err", err)
			} else {
				s.User = &u
			}
		}
	}
	h.set(s)
	h.changed()
	return nil
}

// Login exchanges credentials for a token and profile and persists both.
// Any failure, including an unreachable server, is an auth error.
func (h *Holder) Login(ctx context.Context, email, password string) error {
	resp, err := h.auth.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		err = authFailure("login", err)
		h.failed(otel.KindAuthLogin, err)
		return err
	}
	if err := h.establish(resp); err != nil {
		return err
	}
	h.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAuthLogin, Comp: "session", Msg: resp.User.Email})
	logging.Info("signed in", "email", resp.User.Email)
	return nil
}

// Register validates the input locally, creates the account and signs in.
func (h *Holder) Register(ctx context.Context, name, email, password string) error {
	req := api.RegisterRequest{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password}
	if err := validateRegistration(req); err != nil {
		return err
	}

	resp, err := h.auth.Register(ctx, req)
	if err != nil {
		if !errors.Is(err, api.ErrValidation) {
			err = authFailure("register", err)
		}
		h.failed(otel.KindAuthRegister, err)
		return err
	}
	if err := h.establish(resp); err != nil {
		return err
	}
	h.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAuthRegister, Comp: "session", Msg: resp.User.Email})
	logging.Info("registered", "email", resp.User.Email)
	return nil
}

func validateRegistration(req api.RegisterRequest) error {
	switch {
	case req.Name == "":
		return api.NewValidationError("register", "Name is required")
	case req.Email == "":
		return api.NewValidationError("register", "Email is required")
	case !validEmail(req.Email):
		return api.NewValidationError("register", "Email should be valid")
	case utf8.RuneCountInString(req.Password) < MinPasswordLength:
		return api.NewValidationError("register", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// establish persists token and profile together and only then publishes them.
func (h *Holder) establish(resp api.AuthResponse) error {
	if resp.Token == "" {
		return api.NewAuthError("login", "server returned no token", nil)
	}
	profile, err := json.Marshal(resp.User)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	u := resp.User

	h.wmu.Lock()
	if err := h.storage.Save(map[string]string{KeyToken: resp.Token, KeyUser: string(profile)}); err != nil {
		h.wmu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	h.set(Session{Token: resp.Token, User: &u})
	h.wmu.Unlock()
	h.changed()
	return nil
}

// ExchangeExternalToken completes a third-party sign-in. The token is kept
// immediately; the profile is then fetched with it. A failed profile fetch
// is logged and tolerated, leaving a session with a token and no user.
func (h *Holder) ExchangeExternalToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return api.NewValidationError("exchange", "token is required")
	}

	// The stale profile goes in the same write as the new token, so storage
	// never pairs the new token with someone else's profile.
	h.wmu.Lock()
	if err := h.storage.Replace(map[string]string{KeyToken: token}, KeyUser); err != nil {
		h.wmu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	h.set(Session{Token: token})
	h.wmu.Unlock()
	h.changed()
	h.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAuthExchange, Comp: "session", Msg: "token stored"})

	user, err := h.auth.Me(ctx)
	if err != nil {
		logging.Warn("session: profile fetch after token exchange failed", "err", err)
		h.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindAuthError, Comp: "session", Msg: "profile fetch failed", Err: err.Error(), Status: statusOf(err)})
		return nil
	}

	profile, err := json.Marshal(user)
	if err != nil {
		logging.Warn("session: cannot encode profile", "err", err)
		return nil
	}

	if !h.attach(token, &user, string(profile)) {
		// Logged out or replaced while the profile was loading.
		return nil
	}
	logging.Info("signed in with external token", "email", user.Email)
	return nil
}

// Logout clears the session in memory and in storage.
func (h *Holder) Logout() error {
	h.wmu.Lock()
	h.set(Session{})
	err := h.storage.Delete(KeyToken, KeyUser)
	h.wmu.Unlock()
	h.changed()

	h.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAuthLogout, Comp: "session"})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (h *Holder) set(s Session) {
	h.mu.Lock()
	h.sess = s
	h.mu.Unlock()
}

// attach stores and publishes the profile for token, unless token is no
// longer the current one. A failed profile write is logged; the profile is
// still kept in memory.
func (h *Holder) attach(token string, user *api.User, profile string) bool {
	h.wmu.Lock()
	if h.Token() != token {
		h.wmu.Unlock()
		return false
	}
	if err := h.storage.Save(map[string]string{KeyUser: profile}); err != nil {
		logging.Warn("session: cannot persist profile", "err", err)
	}
	h.mu.Lock()
	h.sess.User = user
	h.mu.Unlock()
	h.wmu.Unlock()
	h.changed()
	return true
}

func (h *Holder) changed() {
	if h.onChange != nil {
		h.onChange(h.Snapshot())
	}
}

func (h *Holder) failed(kind otel.EventKind, err error) {
	logging.Warn("session: "+string(kind)+" failed", "err", err)
	h.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindAuthError, Comp: "session", Msg: string(kind), Err: err.Error(), Status: statusOf(err)})
}

// authFailure reports err as an auth error. Backend auth errors keep their
// message; anything else gets a generic one with the cause wrapped.
func authFailure(op string, err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindAuth {
		return apiErr
	}
	msg := "could not reach the server"
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Kind != api.KindNetwork {
		msg = apiErr.Message
	}
	return api.NewAuthError(op, msg, err)
}

func statusOf(err error) int {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
