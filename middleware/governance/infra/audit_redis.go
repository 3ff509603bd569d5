package infra

import (
	"context"
	"strings"

	"governance-gateway/middleware/governance/domain"

	"github.com/redis/go-redis/v9"
)

// RedisEventLog escreve eventos operacionais em um Redis Stream append-only.
//
// O stream é aparado (trim aproximado) em maxLen entradas para limitar memória
// no Redis; o consumidor durável do outro lado decide retenção final.
type RedisEventLog struct {
	rdb *redis.Client

	stream string
	maxLen int64
}

type RedisEventLogOption func(*RedisEventLog)

func WithEventStream(stream string) RedisEventLogOption {
	return func(s *RedisEventLog) { s.stream = strings.TrimSpace(stream) }
}

func WithEventMaxLen(n int64) RedisEventLogOption {
	return func(s *RedisEventLog) { s.maxLen = n }
}

func NewRedisEventLog(rdb *redis.Client, opts ...RedisEventLogOption) *RedisEventLog {
	s := &RedisEventLog{
		rdb:    rdb,
		stream: "governance:events",
		maxLen: 100_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisEventLog) LogEvent(ctx context.Context, ev domain.OperationalEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"requestId":         ev.RequestID,
			"endpointGroup":     ev.EndpointGroup,
			"eventType":         string(ev.EventType),
			"statusCode":        ev.StatusCode,
			"retryAfterSeconds": ev.RetryAfterSeconds,
			"userIdHash":        ev.UserIDHash,
			"ipHash":            ev.IPHash,
			"createdAt":         ev.CreatedAt.UTC().UnixMilli(),
		},
	}).Err()
}
