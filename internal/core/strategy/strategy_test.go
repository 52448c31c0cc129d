package strategy

import (
	"context"
	"errors"
	"testing"
)

func TestTwoTierResolve(t *testing.T) {
	ok := Func[int, string](func(ctx context.Context, in int) (string, error) { return "remote", nil })
	fail := Func[int, string](func(ctx context.Context, in int) (string, error) { return "", errors.New("offline") })
	local := Func[int, string](func(ctx context.Context, in int) (string, error) { return "local", nil })

	tests := []struct {
		name     string
		primary  Resolver[int, string]
		fallback Resolver[int, string]
		want     string
		wantErr  bool
	}{
		{name: "primary succeeds", primary: ok, fallback: local, want: "remote"},
		{name: "primary fails", primary: fail, fallback: local, want: "local"},
		{name: "no primary", primary: nil, fallback: local, want: "local"},
		{name: "primary fails without fallback", primary: fail, fallback: nil, wantErr: true},
		{name: "nothing configured", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTwoTier("test", tt.primary, tt.fallback).Resolve(context.Background(), 1)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
