package ctxutil

import (
	"context"
	"time"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyOrgID key = iota
	keyUserID
	keyOpName
	keyRequestID
)

// WithOrgID /OrgID организация (тенант), в рамках которой идёт запрос.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, keyOrgID, orgID)
}

func OrgID(ctx context.Context) (string, bool) {
	return str(ctx, keyOrgID)
}

// WithUserID /UserID пользователь от внешнего провайдера идентификации.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserID(ctx context.Context) (string, bool) {
	return str(ctx, keyUserID)
}

// WithOp /Op имя операции (для логов/трейса)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	return str(ctx, keyOpName)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) (string, bool) {
	return str(ctx, keyRequestID)
}

func str(ctx context.Context, k key) (string, bool) {
	v := ctx.Value(k)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// DefaultDBTimeout таймаут одного обращения к БД, переопределяется из конфига (DB_TIMEOUT).
var DefaultDBTimeout = 5 * time.Second

// WithTimeout обёртка над context.WithTimeout, d<=0 означает без таймаута.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout стандартный таймаут для БД, не длиннее остатка родительского дедлайна.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
