package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"salbar-be/internal/logger"
	"salbar-be/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Tier is one rate limit policy.
type Tier struct {
	Name  string
	Limit rate.Limit
	Burst int
}

var (
	// Store writes that reach the gateway
	TierStrict = Tier{Name: "strict", Limit: rate.Limit(2), Burst: 5}
	// Store and admin API
	TierGeneral = Tier{Name: "general", Limit: rate.Limit(10), Burst: 20}
	// Trusted services presenting X-Service-Auth
	TierInternal = Tier{Name: "internal", Limit: rate.Limit(100), Burst: 200}
)

const visitorTTL = 3 * time.Minute

// Gateway callbacks must always reach the receiver, which answers 200 itself.
const exemptPrefix = "/webhooks/"

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller and tier.
type RateLimiter struct {
	internalKey string
	now         func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(internalKey string) *RateLimiter {
	return &RateLimiter{
		internalKey: internalKey,
		now:         time.Now,
		visitors:    make(map[string]*visitor),
	}
}

func (l *RateLimiter) limiter(key string, t Tier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.Limit, t.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Sweep drops buckets idle for longer than the visitor TTL.
func (l *RateLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// RunCleanup sweeps once a minute until stop is closed.
func (l *RateLimiter) RunCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				logger.L().Debug("rate limiter sweep", zap.Int("removed", n))
			}
		}
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, exemptPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		tier := l.resolveTier(r)
		// Separate quotas per tier for the same caller, e.g. "ip:1.2.3.4:general".
		key := identity(r) + ":" + tier.Name

		if !l.limiter(key, tier).Allow() {
			logger.FromCtx(r.Context()).Warn("rate limit exceeded",
				zap.String("key", key),
				zap.String("path", r.URL.Path),
			)
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) resolveTier(r *http.Request) Tier {
	if l.internalKey != "" && r.Header.Get("X-Service-Auth") == l.internalKey {
		return TierInternal
	}
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/store/") {
		return TierStrict
	}
	return TierGeneral
}

// identity prefers the authenticated user, then a client device id, then the IP.
func identity(r *http.Request) string {
	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		return "user:" + userID
	}
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
