package limiter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore runs the admission script against a shared Redis instance.
// The script is registered once per process (redis.NewScript computes
// its SHA and EVALSHAs it, falling back to EVAL on a cache miss) so that
// every admission decision across the fleet is the single atomic
// invocation the data model requires.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

// NewRedisStore wraps a Redis client with the admission script.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, script: redis.NewScript(admissionScript)}
}

// Admit runs the script with KEYS = [req, in, out] and the eleven ARGV
// values the script expects, in order.
func (s *RedisStore) Admit(ctx context.Context, keys Keys, args Args) (Decision, error) {
	res, err := s.script.Run(ctx, s.client,
		[]string{keys.Req, keys.In, keys.Out},
		args.NowMicros,
		args.WindowStartMicros,
		args.RPM,
		args.InputTPM,
		args.OutputTPM,
		args.InputTokens,
		args.OutputTokens,
		args.RequestID,
		args.CalibrationIntervalSeconds,
		int64(args.CounterTTL.Seconds()),
		int64(args.RecordTTL.Seconds()),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("admission script: %w", err)
	}
	return decodeResult(res)
}

func decodeResult(res interface{}) (Decision, error) {
	row, ok := res.([]interface{})
	if !ok || len(row) < 2 {
		return Decision{}, fmt.Errorf("admission script: unexpected result shape %#v", res)
	}
	allowedN, ok := row[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("admission script: unexpected allowed field %#v", row[0])
	}
	reason, ok := row[1].(string)
	if !ok {
		return Decision{}, fmt.Errorf("admission script: unexpected reason field %#v", row[1])
	}
	calibrated := len(row) >= 3 && row[2] == "CALIBRATED"
	return Decision{Allowed: allowedN == 1, Reason: Reason(reason), Calibrated: calibrated}, nil
}
