package company

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgrid/tracker-cli/internal/model"
)

func testProfile(domain string) *model.CompanyProfile {
	return &model.CompanyProfile{
		Domain:   domain,
		Name:     "Acme Corp",
		Industry: "Technology",
		Enrichment: model.Enrichment{
			Sources:    []string{"ip", "domain"},
			Confidence: 0.9,
		},
	}
}

func TestMemoryStore_Upsert_FirstSight(t *testing.T) {
	s := NewMemoryStore()

	stored, err := s.Upsert(context.Background(), "t1", testProfile("acme.com"), 45, model.StatusCold)
	require.NoError(t, err)

	assert.Equal(t, "t1", stored.TenantID)
	assert.Equal(t, 1, stored.TotalVisits)
	assert.Equal(t, 45, stored.Score)
	assert.Equal(t, model.StatusCold, stored.Status)
	assert.False(t, stored.LastVisit.IsZero())
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestMemoryStore_Upsert_RepeatIncrementsVisits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Upsert(ctx, "t1", testProfile("acme.com"), 45, model.StatusCold)
	require.NoError(t, err)

	stored, err := s.Upsert(ctx, "t1", testProfile("acme.com"), 80, model.StatusHot)
	require.NoError(t, err)

	assert.Equal(t, 2, stored.TotalVisits)
	assert.Equal(t, 80, stored.Score)
	assert.Equal(t, model.StatusHot, stored.Status)
}

func TestMemoryStore_Upsert_FillsOnlyEmptyFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := &model.CompanyProfile{Domain: "acme.com", Name: "Acme Corp"}
	_, err := s.Upsert(ctx, "t1", first, 10, model.StatusCold)
	require.NoError(t, err)

	second := &model.CompanyProfile{
		Domain:   "acme.com",
		Name:     "Acme Networks",
		Industry: "Technology",
		Email:    "contact@acme.com",
	}
	stored, err := s.Upsert(ctx, "t1", second, 10, model.StatusCold)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", stored.Name, "existing name must not be overwritten")
	assert.Equal(t, "Technology", stored.Industry)
	assert.Equal(t, "contact@acme.com", stored.Email)
}

func TestMemoryStore_Upsert_AnyNonEmptyValueSticks(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := &model.CompanyProfile{Domain: "acme.com", Size: "Unknown"}
	_, err := s.Upsert(ctx, "t1", first, 10, model.StatusCold)
	require.NoError(t, err)

	second := &model.CompanyProfile{Domain: "acme.com", Size: "11-50"}
	stored, err := s.Upsert(ctx, "t1", second, 10, model.StatusCold)
	require.NoError(t, err)

	assert.Equal(t, "Unknown", stored.Size, "a set field stays set, whatever its value")
}

func TestMemoryStore_Upsert_ConcurrentVisitsAllCounted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Upsert(ctx, "t1", testProfile("acme.com"), 10, model.StatusCold)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := s.Get(ctx, "t1", "acme.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, n, stored.TotalVisits)
}

func TestMemoryStore_Upsert_MissingTenant(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Upsert(context.Background(), "", testProfile("acme.com"), 10, model.StatusCold)
	assert.ErrorIs(t, err, model.ErrMissingTenant)
}

func TestMemoryStore_TenantIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Upsert(ctx, "t1", testProfile("acme.com"), 10, model.StatusCold)
	require.NoError(t, err)

	other, err := s.Get(ctx, "t2", "acme.com")
	require.NoError(t, err)
	assert.Nil(t, other)

	stored, err := s.Upsert(ctx, "t2", testProfile("acme.com"), 10, model.StatusCold)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalVisits, "tenants must not share visit counters")
}

func TestMemoryStore_Get_AbsentReturnsNil(t *testing.T) {
	s := NewMemoryStore()

	stored, err := s.Get(context.Background(), "t1", "unknown.com")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestMemoryStore_SetScore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Upsert(ctx, "t1", testProfile("acme.com"), 10, model.StatusCold)
	require.NoError(t, err)

	require.NoError(t, s.SetScore(ctx, "t1", "acme.com", 85, model.StatusHot))

	stored, err := s.Get(ctx, "t1", "acme.com")
	require.NoError(t, err)
	assert.Equal(t, 85, stored.Score)
	assert.Equal(t, model.StatusHot, stored.Status)

	// Unknown domain is a no-op, not an error.
	require.NoError(t, s.SetScore(ctx, "t1", "unknown.com", 40, model.StatusCold))
}

func TestMemoryStore_List_FiltersAndSorts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Upsert(ctx, "t1", testProfile("cold.com"), 20, model.StatusCold)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "t1", testProfile("hot.com"), 90, model.StatusHot)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "t1", testProfile("warm.com"), 65, model.StatusWarm)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "t2", testProfile("other.com"), 99, model.StatusHot)
	require.NoError(t, err)

	all, err := s.List(ctx, "t1", Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "hot.com", all[0].Domain)
	assert.Equal(t, "warm.com", all[1].Domain)
	assert.Equal(t, "cold.com", all[2].Domain)

	hot, err := s.List(ctx, "t1", Filter{Status: model.StatusHot})
	require.NoError(t, err)
	require.Len(t, hot, 1)
	assert.Equal(t, "hot.com", hot[0].Domain)

	paged, err := s.List(ctx, "t1", Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "warm.com", paged[0].Domain)
}

func TestMemoryStore_Upsert_ReturnedProfileIsIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	stored, err := s.Upsert(ctx, "t1", testProfile("acme.com"), 10, model.StatusCold)
	require.NoError(t, err)

	stored.Name = "mutated"
	stored.Enrichment.Sources[0] = "mutated"

	fresh, err := s.Get(ctx, "t1", "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", fresh.Name)
	assert.Equal(t, "ip", fresh.Enrichment.Sources[0])
}
