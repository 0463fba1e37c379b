package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/ctxutil"
	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/metrics"
)

const (
	HeaderOrgID     = "X-Organization-ID"
	HeaderUserID    = "X-User-ID"
	HeaderRequestID = "X-Request-ID"
)

type Deps struct {
	DB     *sql.DB
	Audits AuditService
	Log    *zap.Logger
}

type HTTPServer struct {
	srv  *http.Server
	done chan struct{}
}

// StartHTTP поднимает API и останавливает его по отмене ctx.
func StartHTTP(ctx context.Context, addr string, deps Deps) *HTTPServer {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s := &HTTPServer{srv: srv, done: make(chan struct{})}

	go func() {
		log.Info("http listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	go func() {
		defer close(s.done)
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return s
}

// Done закрывается после остановки сервера.
func (s *HTTPServer) Done() <-chan struct{} { return s.done }

// NewHandler маршруты API: служебные без тенанта, /api/ только с X-Organization-ID.
func NewHandler(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		if err := db.Ping(r.Context(), deps.DB); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	h := &api{svc: deps.Audits, log: deps.Log, locks: newAuditLocks()}
	h.register(mux)

	return instrument(deps.Log, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument request id, метрика по шаблону маршрута и лог ответов с ошибкой.
func instrument(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		r = r.WithContext(ctxutil.WithRequestID(r.Context(), reqID))

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		if rec.code >= http.StatusInternalServerError {
			logging.WithContext(r.Context(), log).Warn("http request failed",
				zap.String("route", route),
				zap.Int("code", rec.code),
				zap.Duration("took", time.Since(start)))
		}
	})
}

// tenant достаёт организацию и пользователя из заголовков провайдера идентификации.
func (a *api) tenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID := r.Header.Get(HeaderOrgID)
		if orgID == "" {
			a.writeError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := ctxutil.WithOrgID(r.Context(), orgID)
		if userID := r.Header.Get(HeaderUserID); userID != "" {
			ctx = ctxutil.WithUserID(ctx, userID)
		}
		next(w, r.WithContext(ctx))
	}
}
