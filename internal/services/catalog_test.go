package services

import (
	"context"
	"testing"

	"netbons/internal/kvstore"
	"netbons/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*CatalogService, *kvstore.MemoryBackend, *kvstore.Store) {
	t.Helper()
	backend := kvstore.NewMemoryBackend()
	store := kvstore.New(backend, quietLogger())
	c, err := NewCatalogService(store, testKeys.Catalog, quietLogger())
	require.NoError(t, err)
	return c, backend, store
}

func ids(movies []models.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func TestSeedCatalog(t *testing.T) {
	seed, err := SeedCatalog()
	require.NoError(t, err)
	require.Len(t, seed, 2)

	assert.Equal(t, "Interstellar AI", seed[0].Title)
	assert.Equal(t, 9.2, seed[0].Rating)
	assert.Equal(t, []string{"Ficção Científica", "Drama"}, seed[0].Genres)
	assert.Equal(t, models.AgeRating12, seed[0].AgeRating)
	assert.True(t, seed[1].IsInMyList)
	assert.Equal(t, 2023, seed[1].Year)
}

func TestHydrateFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	c, backend, _ := newTestCatalog(t)

	assert.Equal(t, []string{"1", "2"}, ids(c.Hydrate(ctx)))

	require.NoError(t, backend.Set(ctx, testKeys.Catalog, `[{"id":"x",`))
	assert.Equal(t, []string{"1", "2"}, ids(c.Hydrate(ctx)))

	require.NoError(t, backend.Set(ctx, testKeys.Catalog, `{"id":"not a list"}`))
	assert.Equal(t, []string{"1", "2"}, ids(c.Hydrate(ctx)))
}

func TestHydrateKeepsPersistedSnapshot(t *testing.T) {
	ctx := context.Background()
	c, _, store := newTestCatalog(t)

	require.NoError(t, store.Set(ctx, testKeys.Catalog, []models.Movie{{ID: "a", Title: "A"}}))
	assert.Equal(t, []string{"a"}, ids(c.Hydrate(ctx)))

	require.NoError(t, store.Set(ctx, testKeys.Catalog, []models.Movie{}))
	assert.Empty(t, c.Hydrate(ctx))
	assert.Equal(t, "1", c.Hero().ID)
}

func TestAppendScenario(t *testing.T) {
	ctx := context.Background()
	c, _, store := newTestCatalog(t)
	c.Hydrate(ctx)

	c.Append(ctx, models.Movie{ID: "X", Title: "X", IsUserAdded: true, Rating: 9.0, Year: 2025})

	assert.Equal(t, []string{"X"}, ids(c.ByCategory(models.CategoryAddedByUser)))
	assert.Equal(t, []string{"X", "1", "2"}, ids(c.ByCategory(models.CategoryAll)))
	assert.Equal(t, []string{"X", "1", "2"}, ids(c.ByCategory("unknown")))
	assert.Equal(t, "X", c.Hero().ID)

	// the whole list is persisted on every mutation
	var saved []models.Movie
	require.True(t, store.Get(ctx, testKeys.Catalog, &saved))
	assert.Equal(t, []string{"X", "1", "2"}, ids(saved))
}

func TestToggleWatchList(t *testing.T) {
	ctx := context.Background()
	c, _, store := newTestCatalog(t)
	c.Hydrate(ctx)

	m, ok := c.ToggleWatchList(ctx, "1")
	require.True(t, ok)
	assert.True(t, m.IsInMyList)
	assert.Equal(t, []string{"1", "2"}, ids(c.ByCategory(models.CategoryMyList)))

	m, _ = c.ToggleWatchList(ctx, "1")
	assert.False(t, m.IsInMyList)
	assert.Equal(t, []string{"2"}, ids(c.ByCategory(models.CategoryMyList)))

	before := c.All()
	_, ok = c.ToggleWatchList(ctx, "missing")
	assert.False(t, ok)
	assert.Equal(t, before, c.All())

	var saved []models.Movie
	require.True(t, store.Get(ctx, testKeys.Catalog, &saved))
	assert.False(t, saved[0].IsInMyList)
}

func TestCategoryRules(t *testing.T) {
	movies := []models.Movie{
		{ID: "a", Rating: 8.6, Year: 2024},
		{ID: "b", Rating: 9.5, Year: 2020, IsOriginal: true},
		{ID: "c", Rating: 8.8, Year: 2023},
		{ID: "d", Rating: 8.4, Year: 2025, IsUserAdded: true},
		{ID: "e", Rating: 8.8, Year: 2019},
	}

	trending := filterCategory(movies, models.CategoryTrending)
	assert.Equal(t, []string{"b", "c", "e", "a"}, ids(trending))
	for i := 1; i < len(trending); i++ {
		assert.GreaterOrEqual(t, trending[i-1].Rating, trending[i].Rating)
	}

	topRated := filterCategory(movies, models.CategoryTopRated)
	assert.Equal(t, []string{"b", "c", "e"}, ids(topRated))
	for _, m := range topRated {
		assert.Contains(t, ids(trending), m.ID)
	}

	assert.Equal(t, []string{"a", "d"}, ids(filterCategory(movies, models.CategoryNewReleases)))
	assert.Equal(t, []string{"b"}, ids(filterCategory(movies, models.CategoryOriginals)))
	assert.Equal(t, []string{"d"}, ids(filterCategory(movies, models.CategoryAddedByUser)))
	assert.Empty(t, filterCategory(movies, models.CategoryMyList))

	// filtering never reorders the source
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(movies))
}

func TestRowsHideEmptyPersonalRows(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCatalog(t)
	c.Hydrate(ctx)

	var got []models.CategoryID
	for _, r := range c.Rows() {
		got = append(got, r.ID)
	}
	assert.Equal(t, []models.CategoryID{
		models.CategoryMyList,
		models.CategoryTrending,
		models.CategoryNewReleases,
		models.CategoryOriginals,
		models.CategoryTopRated,
	}, got)

	c.ToggleWatchList(ctx, "2")
	c.Append(ctx, models.Movie{ID: "u", IsUserAdded: true})

	rows := c.Rows()
	assert.Equal(t, models.CategoryAddedByUser, rows[0].ID)
	assert.Equal(t, "🍿 Enviados pela Comunidade", rows[0].Title)
	assert.NotEqual(t, models.CategoryMyList, rows[1].ID)
}
