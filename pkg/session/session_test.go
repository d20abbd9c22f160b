package session

import (
	"errors"
	"testing"
	"time"
)

const testToken = "APP_USR-1234567890-101010-abcdef0123456789-99887766"

func TestValidToken(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{token: testToken, want: true},
		{token: "TG-65f1c2a3b4d5e6f7a8b9c0d1-123456", want: true},
		{token: "", want: false},
		{token: "Bearer " + testToken, want: false},
		{token: "APP_USR-short", want: false},
		{token: "random-token-value", want: false},
		{token: "APP_USR-abc def ghi jkl", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := ValidToken(tt.token); got != tt.want {
				t.Errorf("ValidToken(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}

func TestSession_Lifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var s Session
	if s.IsValid(now) {
		t.Fatal("zero session must not be valid")
	}

	s, err := s.Set("  "+testToken+"\n", time.Hour, now)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if s.Token != testToken {
		t.Errorf("Token = %q, want trimmed token", s.Token)
	}
	if !s.IsValid(now) {
		t.Error("session should be valid right after Set")
	}
	if !s.IsValid(now.Add(59 * time.Minute)) {
		t.Error("session should be valid before expiry")
	}
	if s.IsValid(now.Add(time.Hour)) {
		t.Error("session should be invalid at expiry")
	}
	if got := s.Remaining(now.Add(15 * time.Minute)); got != 45*time.Minute {
		t.Errorf("Remaining = %v, want 45m", got)
	}

	cleared := s.Clear()
	if cleared.IsValid(now) {
		t.Error("cleared session must not be valid")
	}
	if !s.IsValid(now) {
		t.Error("Clear must not mutate the receiver")
	}
}

func TestSession_SetDefaultTTL(t *testing.T) {
	now := time.Now()
	s, err := Session{}.Set(testToken, 0, now)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !s.ExpiresAt.Equal(now.Add(DefaultTTL)) {
		t.Errorf("ExpiresAt = %v, want now+%v", s.ExpiresAt, DefaultTTL)
	}
}

func TestSession_SetInvalidKeepsPrevious(t *testing.T) {
	now := time.Now()
	s, _ := Session{}.Set(testToken, time.Hour, now)

	got, err := s.Set("nope", time.Hour, now)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Set error = %v, want ErrInvalidToken", err)
	}
	if got.Token != testToken {
		t.Error("failed Set must return the previous session")
	}
}

func TestSession_WithUser(t *testing.T) {
	s, _ := Session{}.Set(testToken, time.Hour, time.Now())
	s = s.WithUser(42)
	if s.UserID != 42 {
		t.Errorf("UserID = %d, want 42", s.UserID)
	}

	renewed, _ := s.Set(testToken, time.Hour, time.Now())
	if renewed.UserID != 42 {
		t.Error("Set should keep the bound user")
	}
}
