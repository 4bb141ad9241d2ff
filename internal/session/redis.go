package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/leadgrid/tracker-cli/internal/model"
)

const (
	sessionKeyPrefix = "visitor:"
	visitorKeyPrefix = "visitors:"
	defaultTTL       = 24 * time.Hour
)

// RedisStore implements Store on Redis. Sessions are JSON payloads under
// tenant-namespaced keys with a TTL refreshed on every write; a session
// has a single writer stream per the pipeline's scheduling model, so
// appends are plain read-modify-write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed session store.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(tenantID, sessionID string) string {
	return sessionKeyPrefix + tenantID + ":" + sessionID
}

func visitorSetKey(tenantID string) string {
	return visitorKeyPrefix + tenantID
}

// GetOrCreate implements Store.
func (s *RedisStore) GetOrCreate(ctx context.Context, tenantID string, seed Seed) (*model.VisitorSession, bool, error) {
	if tenantID == "" {
		return nil, false, model.ErrMissingTenant
	}

	existing, err := s.load(ctx, tenantID, seed.SessionID)
	if err != nil && !eris.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	created := newSession(tenantID, seed)
	if err := s.save(ctx, created); err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, tenantID, sessionID string) (*model.VisitorSession, error) {
	if tenantID == "" {
		return nil, model.ErrMissingTenant
	}
	return s.load(ctx, tenantID, sessionID)
}

// AppendPage implements Store.
func (s *RedisStore) AppendPage(ctx context.Context, tenantID, sessionID string, page model.PageView) error {
	return s.mutate(ctx, tenantID, sessionID, func(sess *model.VisitorSession) {
		sess.Pages = append(sess.Pages, page)
		if page.Timestamp.After(sess.LastActivity) {
			sess.LastActivity = page.Timestamp
		}
	})
}

// AppendEvent implements Store.
func (s *RedisStore) AppendEvent(ctx context.Context, tenantID, sessionID string, event model.BehaviorEvent) error {
	return s.mutate(ctx, tenantID, sessionID, func(sess *model.VisitorSession) {
		sess.Events = append(sess.Events, event)
		if event.Timestamp.After(sess.LastActivity) {
			sess.LastActivity = event.Timestamp
		}
	})
}

// SetCompanyInfo implements Store. First enrichment wins.
func (s *RedisStore) SetCompanyInfo(ctx context.Context, tenantID, sessionID string, profile *model.CompanyProfile) error {
	return s.mutate(ctx, tenantID, sessionID, func(sess *model.VisitorSession) {
		if sess.CompanyInfo == nil {
			sess.CompanyInfo = profile
		}
	})
}

// MarkVisitor implements Store.
func (s *RedisStore) MarkVisitor(ctx context.Context, tenantID, visitorID string) (bool, error) {
	if tenantID == "" {
		return false, model.ErrMissingTenant
	}

	added, err := s.client.SAdd(ctx, visitorSetKey(tenantID), visitorID).Result()
	if err != nil {
		return false, eris.Wrap(err, "session: mark visitor")
	}
	// SAdd reports how many members were newly added; zero means the
	// visitor id was already in the set.
	return added == 0, nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) load(ctx context.Context, tenantID, sessionID string) (*model.VisitorSession, error) {
	val, err := s.client.Get(ctx, sessionKey(tenantID, sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "session: redis get")
	}

	var sess model.VisitorSession
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, eris.Wrap(err, "session: unmarshal")
	}
	return &sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *model.VisitorSession) error {
	val, err := json.Marshal(sess)
	if err != nil {
		return eris.Wrap(err, "session: marshal")
	}
	if err := s.client.Set(ctx, sessionKey(sess.TenantID, sess.SessionID), val, s.ttl).Err(); err != nil {
		return eris.Wrap(err, "session: redis set")
	}
	return nil
}

func (s *RedisStore) mutate(ctx context.Context, tenantID, sessionID string, fn func(*model.VisitorSession)) error {
	if tenantID == "" {
		return model.ErrMissingTenant
	}

	sess, err := s.load(ctx, tenantID, sessionID)
	if err != nil {
		return err
	}
	fn(sess)
	return s.save(ctx, sess)
}
