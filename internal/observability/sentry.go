package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Spok95/compliance-audits/internal/ctxutil"
)

// InitSentry пустой DSN: Sentry выключен, CaptureErr ничего не отправляет.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureCtxErr отправляет ошибку с тегами запроса (организация, операция) и extra-тегами.
func CaptureCtxErr(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if v, ok := ctxutil.OrgID(ctx); ok {
			scope.SetTag("org_id", v)
		}
		if v, ok := ctxutil.Op(ctx); ok {
			scope.SetTag("op", v)
		}
		if v, ok := ctxutil.UserID(ctx); ok {
			scope.SetUser(sentry.User{ID: v})
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
