package cache

import (
	"testing"
	"time"
)

func TestEntry_Age(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "zero timestamp",
			entry:   Entry{},
			wantMin: 0,
			wantMax: 0,
		},
		{
			name:    "written a minute ago",
			entry:   Entry{CachedAt: time.Now().Add(-1 * time.Minute)},
			wantMin: 59 * time.Second,
			wantMax: 61 * time.Second,
		},
		{
			name:    "future timestamp",
			entry:   Entry{CachedAt: time.Now().Add(1 * time.Hour)},
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.entry.Age()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Age() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestIsArray(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: `[]`, want: true},
		{input: `[{"keyword":"iphone"}]`, want: true},
		{input: ` [1, "a", null] `, want: true},
		{input: `null`, want: false},
		{input: `{}`, want: false},
		{input: `{"trends":[]}`, want: false},
		{input: `"text"`, want: false},
		{input: `42`, want: false},
		{input: `true`, want: false},
		{input: `[1,`, want: false},
		{input: ``, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsArray([]byte(tt.input)); got != tt.want {
				t.Errorf("IsArray(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
