// Package limiter implements the sliding-window, multi-dimensional
// rate-limiting engine: the atomic admission decision, the
// dual-representation (counter + exact-record) state it reads and
// writes, and the periodic calibration protocol that keeps the fast
// counters from drifting forever.
package limiter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/alfred-ratelimit/gateway/catalog"
)

// Limiter ties a Store to the window/calibration/TTL constants and
// produces admission decisions for (api_key, quota, now, tokens)
// tuples.
type Limiter struct {
	store Store

	window              time.Duration
	calibrationInterval int64 // seconds
	counterTTL          time.Duration
	recordTTL           time.Duration
}

// Option configures a Limiter at construction time.
type Option func(*Limiter)

// WithWindow overrides the default 60s sliding window.
func WithWindow(w time.Duration) Option { return func(l *Limiter) { l.window = w } }

// WithCalibrationInterval overrides the default 30s calibration cadence.
func WithCalibrationInterval(seconds int64) Option {
	return func(l *Limiter) { l.calibrationInterval = seconds }
}

// WithCounterTTL overrides the default 90s counter/last_sync TTL.
func WithCounterTTL(d time.Duration) Option { return func(l *Limiter) { l.counterTTL = d } }

// WithRecordTTL overrides the default 3600s sorted-set TTL.
func WithRecordTTL(d time.Duration) Option { return func(l *Limiter) { l.recordTTL = d } }

// New returns a Limiter backed by store, with the reference deployment's
// defaults (60s window, 30s calibration, 90s/3600s TTLs) unless
// overridden by opts.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:               store,
		window:              60 * time.Second,
		calibrationInterval: 30,
		counterTTL:          90 * time.Second,
		recordTTL:           3600 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit runs one admission decision for apiKey against quota at time
// now, contributing inputTokens/outputTokens to the window's running
// totals when allowed on the fast path. A call that lands on the
// calibration branch is allowed without being counted.
func (l *Limiter) Admit(ctx context.Context, apiKey string, quota catalog.Quota, now time.Time, inputTokens, outputTokens int) (Decision, error) {
	nowMicros := now.UnixMicro()
	windowStartMicros := nowMicros - l.window.Microseconds()

	args := Args{
		NowMicros:                  nowMicros,
		WindowStartMicros:          windowStartMicros,
		RPM:                        quota.RPM,
		InputTPM:                   quota.InputTPM,
		OutputTPM:                  quota.OutputTPM,
		InputTokens:                inputTokens,
		OutputTokens:               outputTokens,
		RequestID:                  requestID(nowMicros),
		CalibrationIntervalSeconds: l.calibrationInterval,
		CounterTTL:                 l.counterTTL,
		RecordTTL:                  l.recordTTL,
	}

	return l.store.Admit(ctx, KeysFor(apiKey), args)
}

// requestID produces "<now_us><3-digit random>", used to tie together a
// request's entries across the three sorted sets. The random suffix
// separates calls made in the same microsecond; two such calls can
// still draw the same suffix.
func requestID(nowMicros int64) string {
	return fmt.Sprintf("%d%03d", nowMicros, rand.Intn(900)+100)
}
