package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain object", input: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced object", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around array", input: "Here you go: [1,2,3] enjoy", want: `[1,2,3]`},
		{name: "object containing array", input: `{"dishes":["a","b"]}`, want: `{"dishes":["a","b"]}`},
		{name: "no json", input: "sorry, I cannot help", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractJSON(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseModelJSONUnquotedKeys(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	if err := ParseModelJSON(`{name: "Omelette"}`, &out); err != nil {
		t.Fatalf("ParseModelJSON() error = %v", err)
	}
	if out.Name != "Omelette" {
		t.Errorf("Name = %q, want Omelette", out.Name)
	}

	err := ParseModelJSON("nothing here", &out)
	if !errors.Is(err, ErrAIMalformedResponse) {
		t.Errorf("expected ErrAIMalformedResponse, got %v", err)
	}
}

func TestParseJSONBytesRejectsTrailingData(t *testing.T) {
	var v map[string]any
	if err := ParseJSONBytes([]byte(`{"a":1} {"b":2}`), &v); err == nil {
		t.Error("expected error for trailing JSON value")
	}
	if err := ParseJSONBytes([]byte(`{"a":1}`), &v); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecodeJSONStrict(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	if err := DecodeJSONStrict(strings.NewReader(`{"name":"eggs","extra":1}`), &v); err == nil {
		t.Error("expected error for unknown field")
	}
	if err := DecodeJSON(strings.NewReader(`{"name":"eggs","extra":1}`), &v); err != nil || v.Name != "eggs" {
		t.Errorf("DecodeJSON() = %+v, %v", v, err)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "validation", err: NewValidationError("bad"), wantStatus: http.StatusBadRequest, wantCode: ErrCodeInvalidRequest},
		{name: "wrapped custom", err: fmt.Errorf("outer: %w", ErrPostNotFound), wantStatus: http.StatusNotFound, wantCode: ErrCodePostNotFound},
		{name: "plain", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusFor(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("StatusFor() = (%d, %s), want (%d, %s)", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestCustomErrorIsMatchesByCode(t *testing.T) {
	err := ErrAIUnavailable.Wrap(errors.New("dial tcp: refused"))
	if !errors.Is(err, ErrAIUnavailable) {
		t.Error("wrapped error should match its sentinel")
	}
	if errors.Is(err, ErrStorage) {
		t.Error("wrapped error should not match a different code")
	}
}

func TestIDClockIsStrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	clock := NewIDClock(func() time.Time { return fixed })

	first := clock.Next()
	second := clock.Next()
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}

	clock.Observe(first + 100)
	if got := clock.Next(); got != first+101 {
		t.Errorf("Next() after Observe = %d, want %d", got, first+101)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"héllo", 2, "h..."},
		{"蛋蛋蛋", 4, "蛋..."},
		{"abc", -1, "..."},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.n)
		if got != tt.want || !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
