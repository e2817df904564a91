package utils

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{name: "short", input: "hello", limit: 10, expected: "hello"},
		{name: "exact", input: "hello", limit: 5, expected: "hello"},
		{name: "truncated", input: "hello world", limit: 5, expected: "hello..."},
		{name: "zero limit", input: "hello", limit: 0, expected: ""},
		{name: "trims whitespace", input: "  hi  ", limit: 10, expected: "hi"},
		{name: "multibyte", input: strings.Repeat("я", 6), limit: 4, expected: strings.Repeat("я", 4) + "..."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TruncateForLog(tc.input, tc.limit); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestWaitForRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Minute); err == nil {
		t.Fatal("expected context error")
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
