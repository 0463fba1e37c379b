package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestValues(t *testing.T) {
	ctx := WithOp(WithUserID(WithOrgID(context.Background(), "org-1"), "u-7"), "complete_audit")
	if v, ok := OrgID(ctx); !ok || v != "org-1" {
		t.Fatalf("OrgID=%q,%v", v, ok)
	}
	if v, ok := UserID(ctx); !ok || v != "u-7" {
		t.Fatalf("UserID=%q,%v", v, ok)
	}
	if v, ok := Op(ctx); !ok || v != "complete_audit" {
		t.Fatalf("Op=%q,%v", v, ok)
	}
	if _, ok := RequestID(ctx); ok {
		t.Fatal("RequestID не задавали")
	}
	if _, ok := OrgID(WithOrgID(context.Background(), "")); ok {
		t.Fatal("пустая организация не должна считаться заданной")
	}
}

func TestWithDBTimeout_RespectsParentDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	ctx, cancel2 := WithDBTimeout(parent)
	defer cancel2()
	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("ожидали дедлайн")
	}
	if time.Until(dl) > 100*time.Millisecond {
		t.Fatalf("дедлайн длиннее родительского: %v", time.Until(dl))
	}
}

func TestWithTimeout_Zero(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatal("d<=0 не должен ставить дедлайн")
	}
}
