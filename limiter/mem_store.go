package limiter

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

type zmember struct {
	score  int64
	member string
}

// keyState is the in-process analog of one API key's seven logical
// objects: three sorted sets, three fast-path counters, and the
// calibration timestamp.
type keyState struct {
	mu sync.Mutex

	req []zmember
	in  []zmember
	out []zmember

	reqCtr, inCtr, outCtr int64
	lastSync              int64 // microseconds; 0 means absent, forcing calibration on first hit

	counterExpiresAt int64 // microseconds since epoch; 0 means no TTL armed
	recordExpiresAt  int64
}

// expireIfStale drops state whose TTL (tracked against the caller-
// supplied "now", not a wall clock) has lapsed, mirroring Redis's own
// EXPIRE semantics so an idle key purges itself.
func (ks *keyState) expireIfStale(now int64) {
	if ks.counterExpiresAt != 0 && now > ks.counterExpiresAt {
		ks.reqCtr, ks.inCtr, ks.outCtr = 0, 0, 0
		ks.lastSync = 0
		ks.counterExpiresAt = 0
	}
	if ks.recordExpiresAt != 0 && now > ks.recordExpiresAt {
		ks.req, ks.in, ks.out = nil, nil, nil
		ks.recordExpiresAt = 0
	}
}

// MemStore implements Store entirely in-process, running the same
// hybrid counter/calibration algorithm as admissionScript. It backs the
// single-node deployment when Redis cannot be reached at startup, and
// lets the property-test suite exercise the algorithm deterministically
// (advancing synthetic "now" values instead of sleeping).
type MemStore struct {
	mu    sync.Mutex
	byKey map[string]*keyState
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{byKey: make(map[string]*keyState)}
}

func (m *MemStore) state(reqKey string) *keyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	ks, ok := m.byKey[reqKey]
	if !ok {
		ks = &keyState{}
		m.byKey[reqKey] = ks
	}
	return ks
}

func evictExpired(members []zmember, windowStart int64) []zmember {
	kept := make([]zmember, 0, len(members))
	for _, mm := range members {
		if mm.score >= windowStart {
			kept = append(kept, mm)
		}
	}
	return kept
}

// parseTrailingInt extracts the integer suffix after the last ':' in a
// sorted-set member, defaulting to 1 when the suffix doesn't parse —
// the same fallback the calibration pass in the Lua script uses.
func parseTrailingInt(member string) int64 {
	idx := strings.LastIndex(member, ":")
	if idx < 0 {
		return 1
	}
	n, err := strconv.ParseInt(member[idx+1:], 10, 64)
	if err != nil {
		return 1
	}
	return n
}

// Admit implements Store.
func (m *MemStore) Admit(_ context.Context, keys Keys, args Args) (Decision, error) {
	ks := m.state(keys.Req)
	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := args.NowMicros
	ks.expireIfStale(now)

	counterTTLMicros := args.CounterTTL.Microseconds()
	recordTTLMicros := args.RecordTTL.Microseconds()
	needSync := (now - ks.lastSync) > args.CalibrationIntervalSeconds*1_000_000

	if needSync {
		ks.req = evictExpired(ks.req, args.WindowStartMicros)
		ks.in = evictExpired(ks.in, args.WindowStartMicros)
		ks.out = evictExpired(ks.out, args.WindowStartMicros)

		var exactInput, exactOutput int64
		for _, mm := range ks.in {
			exactInput += parseTrailingInt(mm.member)
		}
		for _, mm := range ks.out {
			exactOutput += parseTrailingInt(mm.member)
		}

		ks.reqCtr = int64(len(ks.req))
		ks.inCtr = exactInput
		ks.outCtr = exactOutput
		ks.lastSync = now
		ks.counterExpiresAt = now + counterTTLMicros
		ks.recordExpiresAt = now + recordTTLMicros

		return Decision{Allowed: true, Reason: Allowed, Calibrated: true}, nil
	}

	if ks.reqCtr >= int64(args.RPM) {
		return Decision{Allowed: false, Reason: RPMExceeded}, nil
	}
	if ks.inCtr+int64(args.InputTokens) > int64(args.InputTPM) {
		return Decision{Allowed: false, Reason: InputTPMExceeded}, nil
	}
	if ks.outCtr+int64(args.OutputTokens) > int64(args.OutputTPM) {
		return Decision{Allowed: false, Reason: OutputTPMExceeded}, nil
	}

	ks.reqCtr++
	if args.InputTokens > 0 {
		ks.inCtr += int64(args.InputTokens)
	}
	if args.OutputTokens > 0 {
		ks.outCtr += int64(args.OutputTokens)
	}
	ks.counterExpiresAt = now + counterTTLMicros

	ks.req = append(ks.req, zmember{score: now, member: args.RequestID})
	if args.InputTokens > 0 {
		ks.in = append(ks.in, zmember{score: now, member: args.RequestID + ":in:" + strconv.Itoa(args.InputTokens)})
	}
	if args.OutputTokens > 0 {
		ks.out = append(ks.out, zmember{score: now, member: args.RequestID + ":out:" + strconv.Itoa(args.OutputTokens)})
	}
	ks.recordExpiresAt = now + recordTTLMicros

	return Decision{Allowed: true, Reason: Allowed}, nil
}

// counterExpiry and recordExpiry are test helpers exposing the raw TTL
// bookkeeping so property tests can assert the refresh invariant
// without sleeping through a real TTL window.
func (m *MemStore) counterExpiry(apiKey string) (time.Time, bool) {
	ks := m.state(KeysFor(apiKey).Req)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.counterExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.UnixMicro(ks.counterExpiresAt), true
}

func (m *MemStore) recordExpiry(apiKey string) (time.Time, bool) {
	ks := m.state(KeysFor(apiKey).Req)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.recordExpiresAt == 0 {
		return time.Time{}, false
	}
	return time.UnixMicro(ks.recordExpiresAt), true
}
