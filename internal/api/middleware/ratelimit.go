package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/campus-portal/event-portal-api/internal/api/handler/v1/response"
	"github.com/campus-portal/event-portal-api/internal/domain"
	"github.com/campus-portal/event-portal-api/internal/metrics"
)

const (
	defaultAuthAttempts = 5
	defaultAuthWindow   = 15 * time.Minute
	defaultMaxKeys      = 10000

	// bodies larger than this are not inspected for an email
	maxPeekBody = 64 << 10
)

var (
	ErrTooManyAuthAttempts = errors.New("too many authentication attempts. please try again later")
	ErrTooManyRequests     = errors.New("too many requests. please slow down")
)

type attemptWindow struct {
	count   int
	resetAt time.Time
}

// AuthLimiter counts authentication attempts per client address and email in
// fixed windows. The store holds at most maxKeys entries and forgets each one
// once its window has passed.
type AuthLimiter struct {
	mu       sync.Mutex
	attempts *expirable.LRU[string, *attemptWindow]
	max      int
	window   time.Duration
	now      func() time.Time
}

func NewAuthLimiter(maxAttempts int, window time.Duration, maxKeys int) *AuthLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultAuthAttempts
	}
	if window <= 0 {
		window = defaultAuthWindow
	}
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	return &AuthLimiter{
		attempts: expirable.NewLRU[string, *attemptWindow](maxKeys, nil, window),
		max:      maxAttempts,
		window:   window,
		now:      time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within budget.
func (l *AuthLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.attempts.Get(key)
	if !ok || now.After(w.resetAt) {
		l.attempts.Add(key, &attemptWindow{count: 1, resetAt: now.Add(l.window)})
		return true, 0
	}

	if w.count >= l.max {
		return false, w.resetAt.Sub(now)
	}

	w.count++
	return true, 0
}

func (l *AuthLimiter) Len() int {
	return l.attempts.Len()
}

func (l *AuthLimiter) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.ClientIP() + "|" + peekEmail(ctx)

		ok, retryAfter := l.Allow(key)
		if !ok {
			metrics.AuthThrottled.Inc()
			ctx.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			response.RenderErr(ctx, response.ErrTooManyRequests(ErrTooManyAuthAttempts))
			return
		}

		ctx.Next()
	}
}

// peekEmail reads the email of a JSON body and puts the body back for the handler.
func peekEmail(ctx *gin.Context) string {
	if ctx.Request.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxPeekBody))
	if err != nil {
		return ""
	}
	ctx.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), ctx.Request.Body))

	var body struct {
		Email string `json:"email"`
	}
	if err = json.Unmarshal(raw, &body); err != nil {
		return ""
	}

	return domain.NormalizeEmail(body.Email)
}

// PublicLimiter is a token bucket per client address.
type PublicLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	perMin   int
}

// NewPublicLimiter returns nil when perMinute is not positive; a nil limiter
// lets everything through.
func NewPublicLimiter(perMinute, maxKeys int) *PublicLimiter {
	if perMinute <= 0 {
		return nil
	}
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	return &PublicLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxKeys, nil, 15*time.Minute),
		perMin:   perMinute,
	}
}

func (l *PublicLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}

	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)
	l.limiters.Add(key, lim)
	return lim
}

func (l *PublicLimiter) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if l == nil {
			ctx.Next()
			return
		}

		if !l.limiter(ctx.ClientIP()).Allow() {
			ctx.Header("Retry-After", "60")
			response.RenderErr(ctx, response.ErrTooManyRequests(ErrTooManyRequests))
			return
		}

		ctx.Next()
	}
}
