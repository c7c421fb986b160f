package repository

import (
	"context"
	"fmt"
	"time"

	"tournament-ledger/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces every per-tournament key
	keyPrefix = "leaderboard:"

	// TimestampDivisor is used in composite score calculation to prevent precision loss
	// Entry times are unix seconds, so the fractional part stays in (0, 1)
	TimestampDivisor = 10_000_000_000

	// mirrorTTL keeps a finished tournament's mirror around for late readers
	mirrorTTL = 72 * time.Hour
)

// RedisRepository mirrors tournament standings into Redis for fan-out.
// The ledger stays authoritative; this is a derived cache.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

// ScoresKey is the sorted set of composite scores for a tournament
func ScoresKey(tournamentID string) string { return keyPrefix + tournamentID + ":scores" }

// NamesKey is the hash of user id to display name
func NamesKey(tournamentID string) string { return keyPrefix + tournamentID + ":names" }

// VersionKey tracks a tournament's leaderboard version for change detection
func VersionKey(tournamentID string) string { return keyPrefix + tournamentID + ":version" }

// ComputeCompositeScore calculates a composite score for consistent tie-breaking
// Formula: score + (1 - entryUnix/10^10)
// Players who entered earlier get a slightly larger fraction and rank higher
// on equal scores.
func ComputeCompositeScore(score int64, entryUnix int64) float64 {
	return float64(score) + (1.0 - float64(entryUnix)/TimestampDivisor)
}

// ExtractBaseScore extracts the integer score from a composite score
func ExtractBaseScore(compositeScore float64) int64 {
	return int64(compositeScore)
}

// UpsertStanding writes one entry's best score into the mirror and bumps the
// tournament's version.
func (r *RedisRepository) UpsertStanding(ctx context.Context, tournamentID string, entry models.Entry) error {
	pipe := r.client.TxPipeline()

	if entry.BestScore > 0 {
		// ZADD GT so an out-of-order mirror write cannot lower a score
		pipe.ZAddGT(ctx, ScoresKey(tournamentID), redis.Z{
			Score:  ComputeCompositeScore(entry.BestScore, entry.EntryTime.Unix()),
			Member: entry.UserID,
		})
	}
	pipe.HSet(ctx, NamesKey(tournamentID), entry.UserID, entry.UserName)
	pipe.Incr(ctx, VersionKey(tournamentID))

	for _, key := range []string{ScoresKey(tournamentID), NamesKey(tournamentID), VersionKey(tournamentID)} {
		pipe.Expire(ctx, key, mirrorTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror standing: %w", err)
	}
	return nil
}

// GetTopUsers reads the mirrored top standings of a tournament
func (r *RedisRepository) GetTopUsers(ctx context.Context, tournamentID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		return []models.LeaderboardEntry{}, nil
	}

	results, err := r.client.ZRevRangeWithScores(ctx, ScoresKey(tournamentID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]string, len(results))
	for i, z := range results {
		ids[i] = z.Member.(string)
	}
	names, err := r.client.HMGet(ctx, NamesKey(tournamentID), ids...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(results))
	for i, z := range results {
		name, _ := names[i].(string)
		entries = append(entries, models.LeaderboardEntry{
			ID:         ids[i],
			PlayerName: name,
			Score:      ExtractBaseScore(z.Score),
		})
	}
	return entries, nil
}

// GetLeaderboardVersion returns the current version number of a tournament
func (r *RedisRepository) GetLeaderboardVersion(ctx context.Context, tournamentID string) (int64, error) {
	version, err := r.client.Get(ctx, VersionKey(tournamentID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil // Version not set yet, return 0
		}
		return 0, err
	}
	return version, nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
