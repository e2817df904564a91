package engine

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestFollowupNormalizesQuestionMark(t *testing.T) {
	gen := &stubGenerator{followupReply: "What happens to the array after each comparison."}
	f := NewFollowup(gen, zap.NewNop())

	got, err := f.Generate(context.Background(), "What is the Big-O of binary search?", "O(n)", "Halving.", []string{"linear scan"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := FollowupPrefix + "What happens to the array after each comparison?"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFollowupKeepsExistingQuestionMark(t *testing.T) {
	gen := &stubGenerator{followupReply: "  Which variables does the closure capture?  "}
	f := NewFollowup(gen, zap.NewNop())

	got, err := f.Generate(context.Background(), "q", "a", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != FollowupPrefix+"Which variables does the closure capture?" {
		t.Fatalf("unexpected follow-up: %q", got)
	}
}

func TestFollowupPropagatesError(t *testing.T) {
	wantErr := errors.New("backend down")
	f := NewFollowup(&stubGenerator{err: wantErr}, zap.NewNop())

	if _, err := f.Generate(context.Background(), "q", "a", "", nil); !errors.Is(err, wantErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
