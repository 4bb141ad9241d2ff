package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/tracker-cli/internal/model"
)

func testSeed(id string) Seed {
	return Seed{
		SessionID: id,
		Domain:    "acme.com",
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0",
		Now:       time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemory_GetOrCreate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess, created, err := s.GetOrCreate(ctx, "t1", testSeed("abc"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "t1", sess.TenantID)
	assert.Equal(t, "abc", sess.SessionID)
	assert.Equal(t, sess.StartTime, sess.LastActivity)

	again, created, err := s.GetOrCreate(ctx, "t1", testSeed("abc"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sess.SessionID, again.SessionID)
}

func TestMemory_MissingTenantRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "", testSeed("abc"))
	require.ErrorIs(t, err, model.ErrMissingTenant)

	_, err = s.Get(ctx, "", "abc")
	require.ErrorIs(t, err, model.ErrMissingTenant)

	_, err = s.MarkVisitor(ctx, "", "v1")
	require.ErrorIs(t, err, model.ErrMissingTenant)
}

func TestMemory_TenantNamespacing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "t1", testSeed("shared-id"))
	require.NoError(t, err)
	_, _, err = s.GetOrCreate(ctx, "t2", testSeed("shared-id"))
	require.NoError(t, err)

	require.NoError(t, s.AppendPage(ctx, "t1", "shared-id", model.PageView{URL: "https://acme.com/a"}))

	t1, err := s.Get(ctx, "t1", "shared-id")
	require.NoError(t, err)
	t2, err := s.Get(ctx, "t2", "shared-id")
	require.NoError(t, err)

	assert.Len(t, t1.Pages, 1)
	assert.Empty(t, t2.Pages)
	assert.Equal(t, "t1", t1.TenantID)
	assert.Equal(t, "t2", t2.TenantID)
}

func TestMemory_AppendsPreserveOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)

	_, _, err := s.GetOrCreate(ctx, "t1", testSeed("abc"))
	require.NoError(t, err)

	for i, url := range []string{"/", "/features", "/pricing"} {
		require.NoError(t, s.AppendPage(ctx, "t1", "abc", model.PageView{
			URL:       "https://acme.com" + url,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.AppendEvent(ctx, "t1", "abc", model.BehaviorEvent{
		EventType: "click",
		Timestamp: start.Add(5 * time.Minute),
	}))

	sess, err := s.Get(ctx, "t1", "abc")
	require.NoError(t, err)

	require.Len(t, sess.Pages, 3)
	assert.Equal(t, "https://acme.com/", sess.Pages[0].URL)
	assert.Equal(t, "https://acme.com/features", sess.Pages[1].URL)
	assert.Equal(t, "https://acme.com/pricing", sess.Pages[2].URL)
	require.Len(t, sess.Events, 1)
	assert.Equal(t, start.Add(5*time.Minute), sess.LastActivity)
}

func TestMemory_AppendToUnknownSession(t *testing.T) {
	s := NewMemoryStore()
	err := s.AppendPage(context.Background(), "t1", "nope", model.PageView{URL: "https://x.com"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SetCompanyInfoFirstWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "t1", testSeed("abc"))
	require.NoError(t, err)

	first := &model.CompanyProfile{TenantID: "t1", Domain: "acme.com", Name: "Acme"}
	second := &model.CompanyProfile{TenantID: "t1", Domain: "acme.com", Name: "AcmeCo"}

	require.NoError(t, s.SetCompanyInfo(ctx, "t1", "abc", first))
	require.NoError(t, s.SetCompanyInfo(ctx, "t1", "abc", second))

	sess, err := s.Get(ctx, "t1", "abc")
	require.NoError(t, err)
	require.NotNil(t, sess.CompanyInfo)
	assert.Equal(t, "Acme", sess.CompanyInfo.Name)
}

func TestMemory_MarkVisitor(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seen, err := s.MarkVisitor(ctx, "t1", "v1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = s.MarkVisitor(ctx, "t1", "v1")
	require.NoError(t, err)
	assert.True(t, seen)

	// Visitor identities are tenant-scoped.
	seen, err = s.MarkVisitor(ctx, "t2", "v1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemory_ClonesAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess, _, err := s.GetOrCreate(ctx, "t1", testSeed("abc"))
	require.NoError(t, err)

	// Mutating the returned copy must not affect stored state.
	sess.Pages = append(sess.Pages, model.PageView{URL: "https://sneaky.com"})

	stored, err := s.Get(ctx, "t1", "abc")
	require.NoError(t, err)
	assert.Empty(t, stored.Pages)
}

func TestMemory_UsableAfterClose(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, _, err := s.GetOrCreate(ctx, "t1", testSeed("abc"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.GetOrCreate(ctx, "t1", testSeed("def"))
	require.NoError(t, err)

	seen, err := s.MarkVisitor(ctx, "t1", "v1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisKeys_TenantNamespaced(t *testing.T) {
	assert.Equal(t, "visitor:t1:abc", sessionKey("t1", "abc"))
	assert.Equal(t, "visitor:t2:abc", sessionKey("t2", "abc"))
	assert.Equal(t, "visitors:t1", visitorSetKey("t1"))
}
