package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"livequiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// watchRetries bounds the optimistic-concurrency retry loop inside one
// AtomicUpdate call.
const watchRetries = 32

// SessionStore persists sessions in Redis. AtomicUpdate uses WATCH/MULTI
// optimistic transactions: a concurrent write to the same session aborts
// the transaction and the update retries from a fresh read, so no commit
// is ever based on a stale snapshot.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.GameSession) error {
	// Reserve the join code first; codes are unique among active sessions.
	reserved, err := s.client.SetNX(ctx, codeKey(session.Code), session.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve code: %w", err)
	}
	if !reserved {
		return domain.ErrCodeTaken
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), payload, 0)
	pipe.SAdd(ctx, hostKey(session.HostID), session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		_ = s.client.Del(ctx, codeKey(session.Code)).Err()
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.GameSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session domain.GameSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) FindByCode(ctx context.Context, code string) (*domain.GameSession, error) {
	id, err := s.client.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve code: %w", err)
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.StatusCompleted {
		// Stale index entry; the code no longer resolves.
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) AtomicUpdate(ctx context.Context, id string, fn func(*domain.GameSession) error) (*domain.GameSession, error) {
	key := sessionKey(id)
	var updated *domain.GameSession

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		var session domain.GameSession
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}

		if err := fn(&session); err != nil {
			return err
		}
		session.Version++

		payload, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if session.Status == domain.StatusCompleted {
				pipe.Del(ctx, codeKey(session.Code))
			}
			return nil
		})
		if err == nil {
			updated = &session
		}
		return err
	}

	for attempt := 0; attempt < watchRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, domain.ErrVersionConflict
}

func (s *SessionStore) ListByHost(ctx context.Context, hostID string, activeOnly bool) ([]domain.SessionSummary, error) {
	ids, err := s.client.SMembers(ctx, hostKey(hostID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list host sessions: %w", err)
	}
	summaries := []domain.SessionSummary{}
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if activeOnly && session.Status == domain.StatusCompleted {
			continue
		}
		summaries = append(summaries, session.Summary())
	}
	return summaries, nil
}

func sessionKey(id string) string   { return "session:" + id }
func codeKey(code string) string    { return "session:code:" + code }
func hostKey(hostID string) string  { return "sessions:host:" + hostID }
