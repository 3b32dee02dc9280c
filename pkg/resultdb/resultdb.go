// Package resultdb publishes queuecheck results to a Redis results table.
//
// Each check result is stored as a hash under QUEUECHECK_RESULT|<ifname>|<check>
// and the run summary under QUEUECHECK_RUN|<ifname>. A run lock,
// QUEUECHECK_LOCK|<ifname>, keeps two hosts sharing a lab NIC from running
// disruptive checks at the same time.
package resultdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/queuecheck/pkg/queuecheck"
)

// Key prefixes.
const (
	ResultTable = "QUEUECHECK_RESULT"
	RunTable    = "QUEUECHECK_RUN"
	LockTable   = "QUEUECHECK_LOCK"
)

// DefaultDB is the Redis database results are written to.
const DefaultDB = 0

// ErrLocked is returned by AcquireLock when another holder owns the lock.
var ErrLocked = errors.New("interface is locked by another run")

// Client wraps a Redis client for the results table.
type Client struct {
	client *redis.Client
	host   string
	ttl    time.Duration
}

// Options configures a Client.
type Options struct {
	Addr string
	DB   int
	// TTL expires published keys; zero keeps them.
	TTL time.Duration
}

// NewClient creates a results client. No connection is made until first use.
func NewClient(opts Options) *Client {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Client{
		client: redis.NewClient(&redis.Options{
			Addr: opts.Addr,
			DB:   opts.DB,
		}),
		host: host,
		ttl:  opts.TTL,
	}
}

// Connect tests the connection
func (c *Client) Connect(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("results db %s: %w", c.client.Options().Addr, err)
	}
	return nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.client.Close()
}

// ResultKey returns the hash key holding one check result.
func ResultKey(ifname, check string) string {
	return fmt.Sprintf("%s|%s|%s", ResultTable, ifname, check)
}

// RunKey returns the hash key holding a run summary.
func RunKey(ifname string) string {
	return fmt.Sprintf("%s|%s", RunTable, ifname)
}

func lockKey(ifname string) string {
	return fmt.Sprintf("%s|%s", LockTable, ifname)
}

// checkFields flattens a check result into hash fields.
func checkFields(host string, r *queuecheck.CheckResult, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":         string(r.Status),
		"alias":          r.Alias,
		"message":        r.Message,
		"duration_ms":    strconv.FormatInt(r.Duration.Milliseconds(), 10),
		"disruptive":     strconv.FormatBool(r.Disruptive),
		"restore_failed": strconv.FormatBool(r.RestoreFailed),
		"cleanup_error":  r.CleanupError,
		"host":           host,
		"timestamp":      at.UTC().Format(time.RFC3339),
	}
}

// runFields flattens a run summary into hash fields.
func runFields(host string, r *queuecheck.RunResult) map[string]interface{} {
	counts := r.Counts()
	names := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		names = append(names, c.Name)
	}
	return map[string]interface{}{
		"status":        string(r.Status()),
		"ifindex":       strconv.FormatUint(uint64(r.Ifindex), 10),
		"started":       r.Started.UTC().Format(time.RFC3339),
		"duration_ms":   strconv.FormatInt(r.Duration.Milliseconds(), 10),
		"checks":        strings.Join(names, ","),
		"passed":        strconv.Itoa(counts[queuecheck.StatusPassed]),
		"failed":        strconv.Itoa(counts[queuecheck.StatusFailed]),
		"skipped":       strconv.Itoa(counts[queuecheck.StatusSkipped]),
		"errors":        strconv.Itoa(counts[queuecheck.StatusError]),
		"release_error": r.ReleaseError,
		"host":          host,
	}
}

func (c *Client) hset(ctx context.Context, key string, fields map[string]interface{}) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// PublishCheck stores one check result.
func (c *Client) PublishCheck(ctx context.Context, ifname string, r *queuecheck.CheckResult) error {
	return c.hset(ctx, ResultKey(ifname, r.Name), checkFields(c.host, r, time.Now()))
}

// PublishRun stores the run summary and every check result of r.
func (c *Client) PublishRun(ctx context.Context, r *queuecheck.RunResult) error {
	for _, cr := range r.Checks {
		if err := c.PublishCheck(ctx, r.Interface, cr); err != nil {
			return err
		}
	}
	return c.hset(ctx, RunKey(r.Interface), runFields(c.host, r))
}

// Entry is one stored check result.
type Entry struct {
	Interface string
	Check     string
	Fields    map[string]string
}

// Results reads back the stored check results for ifname, or for every
// interface when ifname is empty. Entries are sorted by interface and check.
func (c *Client) Results(ctx context.Context, ifname string) ([]Entry, error) {
	pattern := ResultTable + "|*"
	if ifname != "" {
		pattern = ResultTable + "|" + ifname + "|*"
	}
	keys, err := scanKeys(ctx, c.client, pattern, 100)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", pattern, err)
	}

	var entries []Entry
	for _, key := range keys {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 {
			continue
		}
		vals, err := c.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		if len(vals) == 0 {
			continue
		}
		entries = append(entries, Entry{Interface: parts[1], Check: parts[2], Fields: vals})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Interface != entries[j].Interface {
			return entries[i].Interface < entries[j].Interface
		}
		return entries[i].Check < entries[j].Check
	})
	return entries, nil
}

// Run returns the stored run summary for ifname, or nil if there is none.
func (c *Client) Run(ctx context.Context, ifname string) (map[string]string, error) {
	vals, err := c.client.HGetAll(ctx, RunKey(ifname)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

// scanKeys collects keys matching pattern using cursor-based SCAN.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// acquireLockScript sets the lock hash only if it does not exist.
// Returns 1 on success, 0 if already held.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript deletes the lock if ARGV[1] holds it.
// Returns 1 on success, 0 on holder mismatch, -1 if there is no lock.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// Holder identifies this process as a lock holder.
func (c *Client) Holder() string {
	return fmt.Sprintf("%s:%d", c.host, os.Getpid())
}

// AcquireLock takes the run lock for ifname. It returns ErrLocked if
// another holder owns it. The lock expires after ttl.
func (c *Client) AcquireLock(ctx context.Context, ifname string, ttl time.Duration) error {
	secs := int(ttl.Seconds())
	if secs < 1 {
		secs = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := acquireLockScript.Run(ctx, c.client, []string{lockKey(ifname)},
		c.Holder(), now, strconv.Itoa(secs)).Int()
	if err != nil {
		return fmt.Errorf("acquiring lock for %s: %w", ifname, err)
	}
	if result == 0 {
		holder, _, _ := c.LockHolder(ctx, ifname)
		return fmt.Errorf("%s: %w (held by %s)", ifname, ErrLocked, holder)
	}
	return nil
}

// ReleaseLock drops the run lock for ifname if this process holds it.
func (c *Client) ReleaseLock(ctx context.Context, ifname string) error {
	result, err := releaseLockScript.Run(ctx, c.client, []string{lockKey(ifname)}, c.Holder()).Int()
	if err != nil {
		return fmt.Errorf("releasing lock for %s: %w", ifname, err)
	}
	if result == 0 {
		return fmt.Errorf("lock holder mismatch for %s", ifname)
	}
	return nil
}

// LockHolder returns the current lock holder and acquisition time.
// Returns ("", zero, nil) if no lock is held.
func (c *Client) LockHolder(ctx context.Context, ifname string) (string, time.Time, error) {
	vals, err := c.client.HGetAll(ctx, lockKey(ifname)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("getting lock holder for %s: %w", ifname, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}

	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}
