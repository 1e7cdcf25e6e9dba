// Package matchmaking implements the bucketed FIFO queue sessions are
// paired from: one bucket per time control, in-memory by default, or
// Redis-backed (list + hash + TTL, with the pair-and-pop made atomic via a
// Lua script) when redis_url is configured.
package matchmaking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessica/backend/internal/domain"
)

type Queue struct {
	entryTTL time.Duration
	matchTTL time.Duration

	redis *redis.Client

	mu            sync.Mutex
	memoryBuckets map[string][]domain.QueueEntry
	memoryMatches map[string]domain.MatchNotification
}

func NewQueue(redisURL string, entryTTL, matchTTL time.Duration) *Queue {
	q := &Queue{
		entryTTL:      entryTTL,
		matchTTL:      matchTTL,
		memoryBuckets: make(map[string][]domain.QueueEntry),
		memoryMatches: make(map[string]domain.MatchNotification),
	}
	if redisURL == "" {
		return q
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("matchmaking: invalid redis_url, using in-memory queue", "error", err)
		return q
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("matchmaking: redis unreachable, using in-memory queue", "error", err)
		return q
	}
	q.redis = client
	return q
}

func bucketKey(timeControl string) string { return "mm:bucket:" + timeControl }
func entryKey(playerID string) string     { return "mm:queue:" + playerID }
func matchKey(playerID string) string     { return "mm:matched:" + playerID }

// colorCompatible reports whether a waiting entry's preference is
// satisfiable alongside a newcomer's preference: "auto" is compatible with
// anything, otherwise the two preferences must be complementary (one
// white, one black) or identical-auto.
func colorCompatible(a, b domain.PlayerColor) bool {
	if a == domain.ColorAuto || b == domain.ColorAuto {
		return true
	}
	return a != b
}

// coinFlip decides the color split when neither side expressed a
// preference. A package variable so tests can substitute a deterministic
// source instead of stubbing math/rand globally.
var coinFlip = func() bool { return rand.Intn(2) == 0 }

// RequesterColor reports which color the requester (the player calling
// Join) should play once matched against an opponent with opponentPref: an
// explicit preference on either side is honored, and if both are "auto"
// the color is decided by a coin flip.
func RequesterColor(requesterPref, opponentPref domain.PlayerColor) domain.PlayerColor {
	if requesterPref == domain.ColorWhite {
		return domain.ColorWhite
	}
	if requesterPref == domain.ColorBlack {
		return domain.ColorBlack
	}
	if opponentPref == domain.ColorWhite {
		return domain.ColorBlack
	}
	if opponentPref == domain.ColorBlack {
		return domain.ColorWhite
	}
	if coinFlip() {
		return domain.ColorWhite
	}
	return domain.ColorBlack
}

// Join looks for a waiting, color-compatible opponent in the bucket for
// timeControl. If one is found it is atomically removed and returned along
// with matched=true; otherwise the caller's own entry is enqueued and
// matched=false.
func (q *Queue) Join(ctx context.Context, entry domain.QueueEntry) (*domain.QueueEntry, bool, error) {
	if q.redis != nil {
		return q.joinRedis(ctx, entry)
	}
	opponent := q.joinMemory(entry)
	return opponent, opponent != nil, nil
}

func (q *Queue) joinMemory(entry domain.QueueEntry) *domain.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	bucket := q.memoryBuckets[entry.TimeControl]
	for i, waiting := range bucket {
		if waiting.PlayerID == entry.PlayerID {
			continue
		}
		if !colorCompatible(entry.PreferredColor, waiting.PreferredColor) {
			continue
		}
		q.memoryBuckets[entry.TimeControl] = append(bucket[:i], bucket[i+1:]...)
		return &waiting
	}
	q.memoryBuckets[entry.TimeControl] = append(bucket, entry)
	return nil
}

// pairAndPopScript atomically scans a bucket's list for the first
// color-compatible waiting entry, removes it from both the list and its
// per-player hash, and returns it — closing the read-then-write race a
// plain LRANGE+LREM pair would leave open under concurrent Join calls.
var pairAndPopScript = redis.NewScript(`
local bucketKey = KEYS[1]
local requesterPlayerID = ARGV[1]
local requesterPref = ARGV[2]
local entries = redis.call('LRANGE', bucketKey, 0, -1)
for i, playerID in ipairs(entries) do
	if playerID ~= requesterPlayerID then
		local hkey = 'mm:queue:' .. playerID
		local pref = redis.call('HGET', hkey, 'preferred_color')
		if pref and (pref == 'auto' or requesterPref == 'auto' or pref ~= requesterPref) then
			local payload = redis.call('HGETALL', hkey)
			redis.call('LREM', bucketKey, 1, playerID)
			redis.call('DEL', hkey)
			return payload
		end
	end
end
return nil
`)

func (q *Queue) joinRedis(ctx context.Context, entry domain.QueueEntry) (*domain.QueueEntry, bool, error) {
	res, err := pairAndPopScript.Run(ctx, q.redis, []string{bucketKey(entry.TimeControl)}, entry.PlayerID, string(entry.PreferredColor)).Result()
	if err == nil && res != nil {
		if fields, ok := res.([]interface{}); ok && len(fields) > 0 {
			opponent := decodeHashFields(fields)
			return opponent, true, nil
		}
	}

	pipe := q.redis.TxPipeline()
	pipe.HSet(ctx, entryKey(entry.PlayerID), map[string]interface{}{
		"player_id":       entry.PlayerID,
		"time_control":    entry.TimeControl,
		"preferred_color": string(entry.PreferredColor),
		"joined_at":       entry.JoinedAt.Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, entryKey(entry.PlayerID), q.entryTTL)
	pipe.RPush(ctx, bucketKey(entry.TimeControl), entry.PlayerID)
	pipe.Expire(ctx, bucketKey(entry.TimeControl), q.entryTTL)
	_, execErr := pipe.Exec(ctx)
	return nil, false, execErr
}

func decodeHashFields(fields []interface{}) *domain.QueueEntry {
	m := make(map[string]string)
	for i := 0; i+1 < len(fields); i += 2 {
		k, _ := fields[i].(string)
		v, _ := fields[i+1].(string)
		m[k] = v
	}
	joinedAt, _ := time.Parse(time.RFC3339Nano, m["joined_at"])
	return &domain.QueueEntry{
		PlayerID:       m["player_id"],
		TimeControl:    m["time_control"],
		PreferredColor: domain.PlayerColor(m["preferred_color"]),
		JoinedAt:       joinedAt,
	}
}

// Leave removes a player's queue entry and any bucket-list membership.
func (q *Queue) Leave(ctx context.Context, playerID, timeControl string) error {
	if q.redis != nil {
		pipe := q.redis.TxPipeline()
		pipe.Del(ctx, entryKey(playerID))
		pipe.LRem(ctx, bucketKey(timeControl), 0, playerID)
		pipe.Del(ctx, matchKey(playerID))
		_, err := pipe.Exec(ctx)
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	bucket := q.memoryBuckets[timeControl]
	for i, e := range bucket {
		if e.PlayerID == playerID {
			q.memoryBuckets[timeControl] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(q.memoryMatches, playerID)
	return nil
}

// PutMatchNotification stores a one-hour, at-most-once match notification
// for a player who was NOT the one calling Join (the side that was already
// waiting in the bucket).
func (q *Queue) PutMatchNotification(ctx context.Context, playerID string, note domain.MatchNotification) error {
	if q.redis != nil {
		raw, err := json.Marshal(note)
		if err != nil {
			return err
		}
		return q.redis.Set(ctx, matchKey(playerID), raw, q.matchTTL).Err()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.memoryMatches[playerID] = note
	return nil
}

// ConsumeMatchNotification atomically reads and deletes a player's pending
// match notification (GETDEL on Redis, a locked pop in memory), so a
// notification is delivered at most once even under concurrent polling.
func (q *Queue) ConsumeMatchNotification(ctx context.Context, playerID string) (domain.MatchNotification, bool) {
	if q.redis != nil {
		raw, err := q.redis.GetDel(ctx, matchKey(playerID)).Result()
		if err != nil {
			return domain.MatchNotification{}, false
		}
		var note domain.MatchNotification
		if json.Unmarshal([]byte(raw), &note) != nil {
			return domain.MatchNotification{}, false
		}
		return note, true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	note, ok := q.memoryMatches[playerID]
	if ok {
		delete(q.memoryMatches, playerID)
	}
	return note, ok
}

// Bucket renders the canonical time-control bucket key.
func Bucket(initialMs, incrementMs int64) string {
	return fmt.Sprintf("%d:%d", initialMs, incrementMs)
}

// IsQueued reports whether playerID still has a live entry for timeControl,
// used by the status poll to distinguish "still queued" from "never
// enqueued" once a pending match notification has been ruled out.
func (q *Queue) IsQueued(ctx context.Context, playerID, timeControl string) bool {
	if q.redis != nil {
		n, err := q.redis.Exists(ctx, entryKey(playerID)).Result()
		return err == nil && n > 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.memoryBuckets[timeControl] {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}
