package limiter

// admissionScript is the one atomic unit the engine registers with the
// store. It implements the hybrid fast-path counter / slow-path
// calibration algorithm described by the admission design: reads and
// mutates all rate-limit state for one (api_key, now, input_tokens,
// output_tokens) tuple and returns {allowed, reason}.
//
// KEYS[1] - req(K)  sorted set: score = event time (us), member = request id
// KEYS[2] - in(K)   sorted set: score = event time (us), member = "<id>:in:<n>"
// KEYS[3] - out(K)  sorted set: score = event time (us), member = "<id>:out:<n>"
//
// The fast-path counters and the calibration timestamp are derived keys
// (KEYS[1]..":counter" etc.) rather than separate KEYS entries, so a
// caller only ever names the three sorted sets — counters and
// last_sync live alongside them under the same key prefix.
//
// ARGV[1] - now_us              current time, microseconds since epoch
// ARGV[2] - window_start_us     now_us - W
// ARGV[3] - rpm                 requests-per-minute limit
// ARGV[4] - input_tpm           input tokens-per-minute limit
// ARGV[5] - output_tpm          output tokens-per-minute limit
// ARGV[6] - input_tokens        tokens this call contributes to input
// ARGV[7] - output_tokens       tokens this call contributes to output
// ARGV[8] - request_id          unique id for this admission call
// ARGV[9] - calibration_interval_sec
// ARGV[10] - counter_ttl_sec
// ARGV[11] - record_ttl_sec
//
// Returns {allowed (0|1), reason} for a fast-path decision, or
// {1, 'ALLOWED', 'CALIBRATED'} when the call landed on the calibration
// branch instead.
const admissionScript = `
local req_key = KEYS[1]
local in_key = KEYS[2]
local out_key = KEYS[3]

local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local rpm = tonumber(ARGV[3])
local input_tpm = tonumber(ARGV[4])
local output_tpm = tonumber(ARGV[5])
local input_tokens = tonumber(ARGV[6])
local output_tokens = tonumber(ARGV[7])
local request_id = ARGV[8]
local calibration_interval = tonumber(ARGV[9])
local counter_ttl = tonumber(ARGV[10])
local record_ttl = tonumber(ARGV[11])

local req_ctr = req_key .. ':counter'
local in_ctr = in_key .. ':counter'
local out_ctr = out_key .. ':counter'
local last_sync = req_key .. ':last_sync'

local sync_time = tonumber(redis.call('GET', last_sync) or 0)
local need_sync = (now - sync_time) > (calibration_interval * 1000000)

if need_sync then
    -- Slow path: evict expired members and rebuild exact counts from
    -- the sorted sets. Deliberately returns ALLOWED without evaluating
    -- limits or recording this call — the calibration pass itself is
    -- not metered.
    redis.call('ZREMRANGEBYSCORE', req_key, '-inf', '(' .. ARGV[2])
    redis.call('ZREMRANGEBYSCORE', in_key, '-inf', '(' .. ARGV[2])
    redis.call('ZREMRANGEBYSCORE', out_key, '-inf', '(' .. ARGV[2])

    local exact_requests = redis.call('ZCARD', req_key)
    local exact_input = 0
    local exact_output = 0

    local in_members = redis.call('ZRANGEBYSCORE', in_key, window_start, '+inf')
    for _, member in ipairs(in_members) do
        local n = tonumber(string.match(member, ':(%d+)$'))
        exact_input = exact_input + (n or 1)
    end

    local out_members = redis.call('ZRANGEBYSCORE', out_key, window_start, '+inf')
    for _, member in ipairs(out_members) do
        local n = tonumber(string.match(member, ':(%d+)$'))
        exact_output = exact_output + (n or 1)
    end

    redis.call('SET', req_ctr, exact_requests)
    redis.call('SET', in_ctr, exact_input)
    redis.call('SET', out_ctr, exact_output)
    redis.call('SET', last_sync, now)

    redis.call('EXPIRE', req_ctr, counter_ttl)
    redis.call('EXPIRE', in_ctr, counter_ttl)
    redis.call('EXPIRE', out_ctr, counter_ttl)
    redis.call('EXPIRE', last_sync, counter_ttl)

    redis.call('EXPIRE', req_key, record_ttl)
    redis.call('EXPIRE', in_key, record_ttl)
    redis.call('EXPIRE', out_key, record_ttl)

    return {1, 'ALLOWED', 'CALIBRATED'}
end

-- Fast path: O(1) counter reads and increments.
local current_requests = tonumber(redis.call('GET', req_ctr) or 0)
local current_input = tonumber(redis.call('GET', in_ctr) or 0)
local current_output = tonumber(redis.call('GET', out_ctr) or 0)

-- A rejection returns immediately without touching TTLs: only
-- admitted and calibrated calls refresh them (see the data model's
-- TTL-refresh invariant).
if current_requests >= rpm then
    return {0, 'RPM_EXCEEDED'}
end

if current_input + input_tokens > input_tpm then
    return {0, 'INPUT_TPM_EXCEEDED'}
end

if current_output + output_tokens > output_tpm then
    return {0, 'OUTPUT_TPM_EXCEEDED'}
end

redis.call('INCR', req_ctr)
if input_tokens > 0 then
    redis.call('INCRBY', in_ctr, input_tokens)
end
if output_tokens > 0 then
    redis.call('INCRBY', out_ctr, output_tokens)
end
redis.call('EXPIRE', req_ctr, counter_ttl)
redis.call('EXPIRE', in_ctr, counter_ttl)
redis.call('EXPIRE', out_ctr, counter_ttl)

redis.call('ZADD', req_key, now, request_id)
if input_tokens > 0 then
    redis.call('ZADD', in_key, now, request_id .. ':in:' .. input_tokens)
end
if output_tokens > 0 then
    redis.call('ZADD', out_key, now, request_id .. ':out:' .. output_tokens)
end

redis.call('EXPIRE', req_key, record_ttl)
redis.call('EXPIRE', in_key, record_ttl)
redis.call('EXPIRE', out_key, record_ttl)

return {1, 'ALLOWED'}
`
