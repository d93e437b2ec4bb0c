package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateUserID_EmptyAndWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tab", "\t"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateUserID(tc.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrUserIDEmpty) {
				t.Errorf("error = %v, want ErrUserIDEmpty", err)
			}
		})
	}
}

func TestValidateUserID_TooLong(t *testing.T) {
	_, err := ValidateUserID(strings.Repeat("a", MaxUserIDLen+1))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrUserIDTooLong) {
		t.Errorf("error = %v, want ErrUserIDTooLong", err)
	}
}

func TestValidateUserID_InvalidChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"slash", "user/1"},
		{"colon", "user:1"},
		{"space inside", "user 1"},
		{"hash", "user#1"},
		{"control", "user\x001"},
		{"percent", "user%1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateUserID(tc.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrUserIDInvalidChars) {
				t.Errorf("error = %v, want ErrUserIDInvalidChars", err)
			}
		})
	}
}

func TestValidateUserID_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "alice", "alice"},
		{"uuid-ish", "7b1d8a4e-2f63-4c1a-9d2b-1e5f6a7b8c9d", "7b1d8a4e-2f63-4c1a-9d2b-1e5f6a7b8c9d"},
		{"underscore", "user_42", "user_42"},
		{"trimmed", "  bob  ", "bob"},
		{"unicode", "usuário", "usuário"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateUserID(tc.input)
			if err != nil {
				t.Fatalf("ValidateUserID() err = %v", err)
			}
			if got != tc.want {
				t.Errorf("normalized = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		maxSpan time.Duration
		wantErr error
	}{
		{"valid", "2026-03-01T00:00:00Z", "2026-03-01T10:00:00Z", 0, nil},
		{"bad start", "yesterday", "2026-03-01T10:00:00Z", 0, ErrTimestampInvalid},
		{"bad end", "2026-03-01T00:00:00Z", "", 0, ErrTimestampInvalid},
		{"inverted", "2026-03-01T10:00:00Z", "2026-03-01T00:00:00Z", 0, ErrRangeInverted},
		{"equal", "2026-03-01T10:00:00Z", "2026-03-01T10:00:00Z", 0, ErrRangeInverted},
		{"too wide", "2026-03-01T00:00:00Z", "2026-03-09T00:00:00Z", 7 * 24 * time.Hour, ErrRangeTooWide},
		{"within span", "2026-03-01T00:00:00Z", "2026-03-07T00:00:00Z", 7 * 24 * time.Hour, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rng, err := ParseTimeRange(tc.start, tc.end, tc.maxSpan)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeRange() err = %v", err)
			}
			if !rng.End.After(rng.Start) {
				t.Errorf("parsed range not ordered: %v..%v", rng.Start, rng.End)
			}
		})
	}
}

func TestParseIntervalHours(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback int
		want     int
		wantErr  bool
	}{
		{"absent uses fallback", "", 2, 2, false},
		{"explicit", "4", 2, 4, false},
		{"trimmed", " 6 ", 2, 6, false},
		{"zero", "0", 2, 0, true},
		{"negative", "-1", 2, 0, true},
		{"not a number", "two", 2, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseIntervalHours(tc.input, tc.fallback)
			if tc.wantErr {
				if !errors.Is(err, ErrIntervalInvalid) {
					t.Fatalf("error = %v, want ErrIntervalInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIntervalHours() err = %v", err)
			}
			if got != tc.want {
				t.Errorf("interval = %d, want %d", got, tc.want)
			}
		})
	}
}
