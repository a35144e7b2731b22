package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket refilled at RequestsPerWindow per Window.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int

	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Headers from anyone else are ignored.
	TrustedProxies []netip.Prefix
}

// RateLimitProfiles groups the limits the router hands out per endpoint class.
type RateLimitProfiles struct {
	// Strict guards credential checks against brute force.
	Strict RateLimitConfig
	// Moderate is for authenticated writes.
	Moderate RateLimitConfig
	// Lenient is for reads and health probes.
	Lenient RateLimitConfig
}

func DefaultRateLimitProfiles() RateLimitProfiles {
	return RateLimitProfiles{
		Strict:   RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20},
		Lenient:  RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100},
	}
}

// WithEnv applies RATELIMIT_{STRICT,MODERATE,LENIENT}_{REQUESTS,WINDOW_SEC,BURST}
// overrides read through getenv.
func (p RateLimitProfiles) WithEnv(getenv func(string) string) RateLimitProfiles {
	p.Strict = ParseRateLimit(getenv, "STRICT", p.Strict)
	p.Moderate = ParseRateLimit(getenv, "MODERATE", p.Moderate)
	p.Lenient = ParseRateLimit(getenv, "LENIENT", p.Lenient)
	return p
}

// WithTrustedProxies sets the trusted proxy list of every profile.
func (p RateLimitProfiles) WithTrustedProxies(proxies []netip.Prefix) RateLimitProfiles {
	p.Strict.TrustedProxies = proxies
	p.Moderate.TrustedProxies = proxies
	p.Lenient.TrustedProxies = proxies
	return p
}

// ParseTrustedProxies reads CIDRs or bare addresses, e.g. "10.0.0.0/8"
// or "192.168.1.10".
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(v); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", v)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// ParseRateLimit overrides fields of def from RATELIMIT_{prefix}_* values.
// Unparseable or non-positive values are ignored.
func ParseRateLimit(getenv func(string) string, prefix string, def RateLimitConfig) RateLimitConfig {
	positive := func(name string) (int, bool) {
		n, err := strconv.Atoi(getenv("RATELIMIT_" + prefix + "_" + name))
		return n, err == nil && n > 0
	}

	cfg := def
	if n, ok := positive("REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

// KeyExtractor names the bucket a request draws from. An empty key
// bypasses the limit.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the peer address only.
func IPKeyExtractor(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClientIPKeyExtractor resolves the client behind trusted proxies. Only
// when the peer is trusted are forwarding headers read: X-Forwarded-For
// is walked right to left and the first untrusted hop wins, then
// X-Real-IP. A request from an untrusted peer is keyed on the peer.
func ClientIPKeyExtractor(trusted []netip.Prefix) KeyExtractor {
	isTrusted := func(addr netip.Addr) bool {
		for _, p := range trusted {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := IPKeyExtractor(r)
		peerAddr, err := netip.ParseAddr(peer)
		if err != nil || len(trusted) == 0 || !isTrusted(peerAddr.Unmap()) {
			return peer
		}

		var hops []string
		for _, h := range r.Header.Values("X-Forwarded-For") {
			hops = append(hops, strings.Split(h, ",")...)
		}
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				return peer
			}
			if addr = addr.Unmap(); !isTrusted(addr) {
				return addr.String()
			}
		}

		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return addr.Unmap().String()
		}
		return peer
	}
}

// SubjectKeyExtractor uses the subject RequireAuth put on the context.
func SubjectKeyExtractor(r *http.Request) string {
	return SubjectFromContext(r.Context())
}

// maxKeyBody bounds how much of a body JSONFieldKeyExtractor inspects.
const maxKeyBody = 64 << 10

// JSONFieldKeyExtractor takes a top-level string field from a JSON body,
// lower-cased. The body is replayed for the handler.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil || r.Body == http.NoBody {
			return ""
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBody))
		r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(buf, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[field], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

type replayBody struct {
	io.Reader
	io.Closer
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep,
// e.g. "192.168.1.1:alice".
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// limiterIdle is how long an untouched bucket is kept.
const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter holds one token bucket per key and drops idle ones.
type keyedLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newKeyedLimiter(cfg RateLimitConfig, now func() time.Time) *keyedLimiter {
	return &keyedLimiter{
		entries:   make(map[string]*limiterEntry),
		limit:     rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:     cfg.Burst,
		lastSweep: now(),
		now:       now,
	}
}

// allow takes a token for key, or reports how long until one is free.
func (k *keyedLimiter) allow(key string) (bool, time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) >= limiterIdle {
		for idle, e := range k.entries {
			if now.Sub(e.lastSeen) >= limiterIdle {
				delete(k.entries, idle)
			}
		}
		k.lastSweep = now
	}

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	res := e.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return false, delay
}

// RateLimit answers 429 rate_limit_exceeded with Retry-After once the
// bucket for a request's key is empty.
func RateLimit(cfg RateLimitConfig, key KeyExtractor) Middleware {
	return rateLimit(cfg, key, time.Now)
}

func rateLimit(cfg RateLimitConfig, key KeyExtractor, now func() time.Time) Middleware {
	kl := newKeyedLimiter(cfg, now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := kl.allow(k)
			if !ok {
				retryAfter := max(int(delay.Round(time.Second)/time.Second), 1)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", cfg.Window.String())

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					slog.String("key", k),
					slog.String("path", r.URL.Path),
					slog.Int("retry_after", retryAfter),
				)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"too many requests, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, ClientIPKeyExtractor(cfg.TrustedProxies))
}

// RateLimitBySubject keys on the authenticated subject plus IP, falling
// back to IP alone.
func RateLimitBySubject(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, CompositeKeyExtractor(":", SubjectKeyExtractor, ClientIPKeyExtractor(cfg.TrustedProxies)))
}

// RateLimitByIPAndJSONField keys on IP plus a body field, e.g. the
// username of a login attempt.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, field string) Middleware {
	return RateLimit(cfg, CompositeKeyExtractor(":", ClientIPKeyExtractor(cfg.TrustedProxies), JSONFieldKeyExtractor(field)))
}
