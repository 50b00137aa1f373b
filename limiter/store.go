package limiter

import (
	"context"
	"time"
)

// Keys names the three sorted sets one admission call operates on. All
// other per-key state (the fast-path counters and the calibration
// timestamp) is derived from these names inside the store, so the data
// model's seven logical objects all share the rl:<api_key>: prefix.
type Keys struct {
	Req string
	In  string
	Out string
}

// KeysFor returns the canonical key set for an API key.
func KeysFor(apiKey string) Keys {
	base := "rl:" + apiKey + ":"
	return Keys{Req: base + "req", In: base + "in", Out: base + "out"}
}

// Args carries the per-call arguments to the admission script.
type Args struct {
	NowMicros         int64
	WindowStartMicros int64

	RPM       int
	InputTPM  int
	OutputTPM int

	InputTokens  int
	OutputTokens int
	RequestID    string

	CalibrationIntervalSeconds int64
	CounterTTL                 time.Duration
	RecordTTL                  time.Duration
}

// Store is the shared counter store contract: atomic execution of the
// admission algorithm over one key set and argument tuple. Production
// traffic goes through RedisStore; MemStore implements the identical
// semantics in-process for tests and single-node deployments.
type Store interface {
	Admit(ctx context.Context, keys Keys, args Args) (Decision, error)
}
