package domain

import (
	"context"
	"testing"
)

func TestModelUsage_Context(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(120)
	UsageFromContext(ctx).AddTokens(0)
	if u.TotalTokens != 120 || !u.Used {
		t.Errorf("usage = %+v", *u)
	}
}

func TestModelUsage_NilSafe(t *testing.T) {
	u := UsageFromContext(context.Background())
	if u != nil {
		t.Fatal("expected nil collector")
	}
	u.AddTokens(10)
}
