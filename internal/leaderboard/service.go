package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/duel"
	ws "github.com/gokatarajesh/duel-platform/pkg/http/ws"
)

const defaultChannel = "lb:updates"

// Entry is one user's row on the rating leaderboard.
type Entry struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Rating   int    `json:"rating"`
}

// UserLookup resolves nicknames for leaderboard rows.
type UserLookup interface {
	GetUser(ctx context.Context, userID int64) (duel.User, error)
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN             int
	PubSubChannel    string
	RedisKeyPrefix   string
	SnapshotTopLimit int
}

// Service keeps the rating leaderboard in a Redis sorted set and emits
// updates over Pub/Sub.
type Service struct {
	redis          *redis.Client
	users          UserLookup
	logger         zerolog.Logger
	topN           int
	pubsubChannel  string
	prefix         string
	snapshotTopLim int
}

var _ duel.RatingRecorder = (*Service)(nil)

// NewService constructs a leaderboard service instance. users may be nil, in
// which case nicknames are filled only by Warm.
func NewService(redis *redis.Client, users UserLookup, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = defaultChannel
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	snapTop := opts.SnapshotTopLimit
	if snapTop <= 0 {
		snapTop = 100
	}

	return &Service{
		redis:          redis,
		users:          users,
		logger:         logger.With().Str("component", "leaderboard").Logger(),
		topN:           topN,
		pubsubChannel:  channel,
		prefix:         prefix,
		snapshotTopLim: snapTop,
	}
}

// RecordRating stores the user's rating after a rated duel finished.
func (s *Service) RecordRating(ctx context.Context, userID int64, rating int) error {
	entry := Entry{UserID: userID, Rating: rating}
	if s.users != nil {
		if u, err := s.users.GetUser(ctx, userID); err == nil {
			entry.Nickname = u.Nickname
		} else {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("nickname lookup failed")
		}
	}

	if err := s.write(ctx, []Entry{entry}); err != nil {
		return err
	}

	go s.publishUpdate(context.Background(), userID)
	return nil
}

// Warm loads entries, typically the top users from Postgres after a cold start.
func (s *Service) Warm(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.write(ctx, entries)
}

// Top retrieves the highest rated users.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}
	return s.top(ctx, limit)
}

// SnapshotTop returns the configured snapshot size for persistence jobs.
func (s *Service) SnapshotTop(ctx context.Context) ([]Entry, error) {
	return s.top(ctx, s.snapshotTopLim)
}

// Rank returns the 1-based position of the user, or 0 when unranked.
func (s *Service) Rank(ctx context.Context, userID int64) (int, error) {
	rank, err := s.redis.ZRevRank(ctx, s.ratingKey(), member(userID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard rank: %w", err)
	}
	return int(rank) + 1, nil
}

func (s *Service) top(ctx context.Context, limit int) ([]Entry, error) {
	results, err := s.redis.ZRevRangeWithScores(ctx, s.ratingKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	members := make([]string, len(results))
	for i, z := range results {
		members[i] = z.Member.(string)
	}
	names, err := s.redis.HMGet(ctx, s.nicknameKey(), members...).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read leaderboard nicknames")
		names = make([]interface{}, len(members))
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		userID, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			s.logger.Warn().Str("member", members[i]).Msg("skipping malformed leaderboard member")
			continue
		}
		nickname, _ := names[i].(string)
		entries = append(entries, Entry{UserID: userID, Nickname: nickname, Rating: int(z.Score)})
	}
	return entries, nil
}

func (s *Service) write(ctx context.Context, entries []Entry) error {
	pipe := s.redis.TxPipeline()
	for _, e := range entries {
		pipe.ZAdd(ctx, s.ratingKey(), redis.Z{Score: float64(e.Rating), Member: member(e.UserID)})
		if e.Nickname != "" {
			pipe.HSet(ctx, s.nicknameKey(), member(e.UserID), e.Nickname)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}
	return nil
}

func (s *Service) publishUpdate(ctx context.Context, userID int64) {
	entries, err := s.Top(ctx, 10)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to collect leaderboard update")
		return
	}
	if len(entries) == 0 {
		return
	}

	payload := ws.LeaderboardUpdatePayload{
		Top:    toWSEntries(entries),
		UserID: userID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) ratingKey() string {
	return s.prefix + ":rating"
}

func (s *Service) nicknameKey() string {
	return s.prefix + ":nicknames"
}

func member(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
