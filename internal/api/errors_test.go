package api

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	netErr := &Error{Kind: KindNetwork, Op: "me", Status: 500}
	authErr := NewAuthError("exchange", "could not load profile", netErr)

	if !errors.Is(authErr, ErrAuth) {
		t.Error("auth error should match ErrAuth")
	}
	if !errors.Is(authErr, ErrNetwork) {
		t.Error("wrapped cause should still match ErrNetwork")
	}
	if errors.Is(authErr, ErrValidation) {
		t.Error("auth error must not match ErrValidation")
	}
	if got := KindOf(fmt.Errorf("ui: %w", authErr)); got != KindAuth {
		t.Errorf("KindOf = %v, want auth", got)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindAuth, Op: "login", Status: 401, Message: "bad"}, "login: bad (status 401)"},
		{&Error{Kind: KindValidation, Op: "register", Message: "name required"}, "register: name required"},
		{&Error{Kind: KindNetwork, Err: errors.New("dial tcp")}, "dial tcp"},
		{&Error{Kind: KindNotFound}, "not found error"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&Error{Kind: KindNetwork}, true},
		{&Error{Kind: KindNetwork, Status: 503}, true},
		{&Error{Kind: KindNetwork, Status: 429}, true},
		{&Error{Kind: KindNetwork, Status: 200, Message: "decode response"}, false},
		{&Error{Kind: KindAuth, Status: 401}, false},
		{errors.New("plain"), false},
	}
	for i, tt := range tests {
		if got := retryable(tt.err); got != tt.want {
			t.Errorf("case %d: retryable = %v, want %v", i, got, tt.want)
		}
	}
}
