package council

import (
	"context"
	"strings"
	"testing"
)

func TestBuildConsensusPrompt_ExcludesSelfAndErrors(t *testing.T) {
	round := RoundResult{
		ok("alpha/one", "answer A", 10, 1),
		fail("beta/two", KindNetwork, "down"),
		ok("gamma/three", "answer C", 10, 1),
	}

	got := BuildConsensusPrompt(0, round)

	want := "Consider your peers' views and revise your response if needed:\n\n" +
		"**gamma/three**:\nanswer C\n\n" +
		"Based on these perspectives, would you like to revise or expand your answer?"
	if got != want {
		t.Errorf("prompt mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestBuildConsensusPrompt_PreservesCouncilOrder(t *testing.T) {
	round := RoundResult{
		ok("alpha/one", "answer A", 10, 1),
		ok("beta/two", "answer B", 10, 1),
		ok("gamma/three", "answer C", 10, 1),
	}

	got := BuildConsensusPrompt(1, round)
	posA := strings.Index(got, "**alpha/one**")
	posC := strings.Index(got, "**gamma/three**")
	if posA < 0 || posC < 0 || posA > posC {
		t.Errorf("peers out of council order:\n%s", got)
	}
	if strings.Contains(got, "**beta/two**") {
		t.Error("prompt includes the model's own answer")
	}
}

func TestBuildConsensusPrompt_NoPeers(t *testing.T) {
	round := RoundResult{ok("alpha/one", "only answer", 10, 1)}

	got := BuildConsensusPrompt(0, round)
	want := "Consider your peers' views and revise your response if needed:\n\n" +
		"Based on these perspectives, would you like to revise or expand your answer?"
	if got != want {
		t.Errorf("got %q, want header and footer only", got)
	}
}

func TestBuildConsensusPrompt_IndexOutOfRange(t *testing.T) {
	round := RoundResult{ok("alpha/one", "answer", 10, 1)}
	// Must not panic; out-of-range index excludes nothing by identity.
	got := BuildConsensusPrompt(5, round)
	if !strings.Contains(got, "**alpha/one**") {
		t.Errorf("expected all peers for out-of-range index, got %q", got)
	}
}

func TestConsensus_RoundCount(t *testing.T) {
	cfg := threeCouncil()
	cfg.Rounds = 3
	c := New(&stubBackend{}, cfg)

	resp, err := c.QueryWithConsensus(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Rounds) != 3 {
		t.Errorf("got %d rounds, want 3", len(resp.Rounds))
	}
}

func TestConsensus_RoundsClampedToMax(t *testing.T) {
	cfg := threeCouncil()
	cfg.Rounds = 25
	c := New(&stubBackend{}, cfg)

	resp, err := c.QueryWithConsensus(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Rounds) != MaxRounds {
		t.Errorf("got %d rounds, want %d", len(resp.Rounds), MaxRounds)
	}
}

func TestConsensus_ErrorSlotCarriedThrough(t *testing.T) {
	stub := &stubBackend{
		respond: func(_ context.Context, model string, _ []Message, _ QueryOptions) ModelResponse {
			if model == "beta/two" {
				return fail(model, KindRateLimit, "rate limited: http 429")
			}
			return ok(model, "answer", 10, 1)
		},
	}
	cfg := threeCouncil()
	cfg.Rounds = 3
	c := New(stub, cfg)

	resp, err := c.QueryWithConsensus(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The failed member is queried once and never again.
	if n := stub.callCount("beta/two"); n != 1 {
		t.Errorf("failed member queried %d times, want 1", n)
	}
	if n := stub.callCount("alpha/one"); n != 3 {
		t.Errorf("healthy member queried %d times, want 3", n)
	}

	// Every round carries the identical error slot.
	for r, round := range resp.Rounds {
		slot := round[1]
		if slot.Err == nil || slot.Err.Kind != KindRateLimit {
			t.Errorf("round %d slot 1: got %+v, want carried rate-limit error", r+1, slot)
		}
	}
}

func TestConsensus_RevisionMessageShape(t *testing.T) {
	cfg := threeCouncil()
	cfg.Rounds = 2
	stub := &stubBackend{}
	c := New(stub, cfg)

	if _, err := c.QueryWithConsensus(context.Background(), "the question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := stub.lastCall("alpha/one")
	if len(call.Messages) != 4 {
		t.Fatalf("round 2 message count = %d, want 4", len(call.Messages))
	}
	wantRoles := []string{RoleSystem, RoleUser, RoleAssistant, RoleUser}
	for i, role := range wantRoles {
		if call.Messages[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, call.Messages[i].Role, role)
		}
	}
	if call.Messages[1].Content != "the question" {
		t.Errorf("message 1 = %q, want the original prompt", call.Messages[1].Content)
	}
	if call.Messages[2].Content != "answer from alpha/one" {
		t.Errorf("message 2 = %q, want the model's prior answer", call.Messages[2].Content)
	}
	if !strings.HasPrefix(call.Messages[3].Content, "Consider your peers' views") {
		t.Errorf("message 3 = %q, want the revision prompt", call.Messages[3].Content)
	}
}

func TestConsensus_FirstNAppliesToFirstRoundOnly(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	stub := &stubBackend{
		respond: func(ctx context.Context, model string, messages []Message, _ QueryOptions) ModelResponse {
			// In round 1, only alpha answers promptly; the rest hang until
			// the race cancels them. Later rounds answer immediately.
			if len(messages) == 2 && model != "alpha/one" {
				select {
				case <-ctx.Done():
					return ModelResponse{Model: model, Err: Cancelled()}
				case <-block:
				}
			}
			return ok(model, "answer from "+model, 10, 1)
		},
	}
	cfg := threeCouncil()
	cfg.Rounds = 2
	cfg.Defaults.FirstN = 1
	c := New(stub, cfg)

	resp, err := c.QueryWithConsensus(context.Background(), "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	round1 := resp.Rounds[0]
	if !round1[0].OK() {
		t.Fatalf("round 1 winner failed: %+v", round1[0])
	}
	for _, i := range []int{1, 2} {
		if round1[i].Err == nil || !IsFirstNSentinel(round1[i].Err) {
			t.Errorf("round 1 slot %d: got %+v, want first-n sentinel", i, round1[i])
		}
	}

	// Round 2: the sentinel slots are carried; only the winner revises.
	round2 := resp.Rounds[1]
	if !round2[0].OK() {
		t.Errorf("round 2 winner failed: %+v", round2[0])
	}
	for _, i := range []int{1, 2} {
		if round2[i].Err == nil || !IsFirstNSentinel(round2[i].Err) {
			t.Errorf("round 2 slot %d: sentinel not carried: %+v", i, round2[i])
		}
	}
}
