package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/vinayprograms/talentkit/ratelimit"
)

func TestRateLimited(t *testing.T) {
	limiter := ratelimit.New()
	defer limiter.Close()
	limiter.SetCapacity(ratelimit.ResourceEmbedding, 2, time.Hour)

	static := NewStaticEmbedder(2).Set("a", 1, 0)
	p := NewPolicy(NewRateLimited(static, limiter, ratelimit.ResourceEmbedding), 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := p.Embed(ctx, "a"); err != nil {
			t.Fatal(err)
		}
	}
	// Empty text never reaches the model, so it does not need a token.
	if _, err := p.Embed(ctx, "   "); err != nil {
		t.Fatalf("empty text: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := p.Embed(short, "a"); err == nil {
		t.Error("third call allowed with capacity 2")
	}
	if n := len(static.Calls()); n != 2 {
		t.Errorf("model called %d times, want 2", n)
	}
	if p.Model() != "static-2" || p.Dimension() != 2 {
		t.Errorf("Model/Dimension not forwarded: %s %d", p.Model(), p.Dimension())
	}
}
