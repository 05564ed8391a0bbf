package services

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"sync"

	"netbons/internal/kvstore"
	"netbons/internal/models"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	trendingMinRating = 8.5
	topRatedMinRating = 8.8
	// newReleaseYear is a fixed cut-off, not relative to the current date.
	newReleaseYear = 2024
)

//go:embed seed.yaml
var seedYAML []byte

// SeedCatalog decodes the built-in catalog.
func SeedCatalog() ([]models.Movie, error) {
	var movies []models.Movie
	if err := yaml.Unmarshal(seedYAML, &movies); err != nil {
		return nil, fmt.Errorf("failed to decode seed catalog: %w", err)
	}
	if len(movies) == 0 {
		return nil, fmt.Errorf("seed catalog is empty")
	}
	return movies, nil
}

// CatalogService holds the device-wide ordered list of entries, newest
// first. Every mutation rewrites the whole persisted snapshot.
type CatalogService struct {
	mu     sync.RWMutex
	store  *kvstore.Store
	key    string
	logger *logrus.Logger
	seed   []models.Movie
	movies []models.Movie
}

func NewCatalogService(store *kvstore.Store, key string, logger *logrus.Logger) (*CatalogService, error) {
	seed, err := SeedCatalog()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &CatalogService{
		store:  store,
		key:    key,
		logger: logger,
		seed:   seed,
		movies: cloneMovies(seed),
	}, nil
}

// Hydrate loads the persisted snapshot, or the seed catalog when it is
// absent or unreadable.
func (c *CatalogService) Hydrate(ctx context.Context) []models.Movie {
	c.mu.Lock()
	defer c.mu.Unlock()

	var saved []models.Movie
	if c.store.Get(ctx, c.key, &saved) && saved != nil {
		c.movies = saved
	} else {
		c.movies = cloneMovies(c.seed)
	}

	c.logger.WithField("entries", len(c.movies)).Debug("Catalog hydrated")
	return cloneMovies(c.movies)
}

// Append inserts m at the front.
func (c *CatalogService) Append(ctx context.Context, m models.Movie) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.movies = append([]models.Movie{m}, c.movies...)
	c.persist(ctx)

	c.logger.WithFields(logrus.Fields{
		"id":    m.ID,
		"title": m.Title,
	}).Info("Catalog entry added")
}

// ToggleWatchList flips the watch-list flag of id. It reports false, and
// changes nothing, when id is not in the catalog.
func (c *CatalogService) ToggleWatchList(ctx context.Context, id string) (models.Movie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.movies, func(m models.Movie) bool { return m.ID == id })
	if i < 0 {
		return models.Movie{}, false
	}
	c.movies[i].IsInMyList = !c.movies[i].IsInMyList
	c.persist(ctx)
	return c.movies[i], true
}

// ByCategory filters the current list. Unknown categories get the full list.
func (c *CatalogService) ByCategory(id models.CategoryID) []models.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return filterCategory(c.movies, id)
}

func (c *CatalogService) All() []models.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneMovies(c.movies)
}

func (c *CatalogService) Get(id string) (models.Movie, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.movies {
		if m.ID == id {
			return m, true
		}
	}
	return models.Movie{}, false
}

// Rows builds the home feed. The community and watch-list rows are left
// out while empty; the others always show.
func (c *CatalogService) Rows() []models.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := make([]models.Row, 0, len(models.Categories))
	for _, cat := range models.Categories {
		movies := filterCategory(c.movies, cat.ID)
		if len(movies) == 0 && (cat.ID == models.CategoryAddedByUser || cat.ID == models.CategoryMyList) {
			continue
		}
		rows = append(rows, models.Row{Category: cat, Movies: movies})
	}
	return rows
}

// Hero is the featured entry: the newest one, or the first seed entry on
// an empty catalog.
func (c *CatalogService) Hero() models.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.movies) > 0 {
		return c.movies[0]
	}
	return c.seed[0]
}

func (c *CatalogService) persist(ctx context.Context) {
	if err := c.store.Set(ctx, c.key, c.movies); err != nil {
		c.logger.WithError(err).WithField("entries", len(c.movies)).Warn("Failed to persist catalog snapshot")
	}
}

func filterCategory(movies []models.Movie, id models.CategoryID) []models.Movie {
	var keep func(models.Movie) bool
	switch id {
	case models.CategoryAddedByUser:
		keep = func(m models.Movie) bool { return m.IsUserAdded }
	case models.CategoryMyList:
		keep = func(m models.Movie) bool { return m.IsInMyList }
	case models.CategoryTrending:
		keep = func(m models.Movie) bool { return m.Rating >= trendingMinRating }
	case models.CategoryNewReleases:
		keep = func(m models.Movie) bool { return m.Year >= newReleaseYear }
	case models.CategoryOriginals:
		keep = func(m models.Movie) bool { return m.IsOriginal }
	case models.CategoryTopRated:
		keep = func(m models.Movie) bool { return m.Rating >= topRatedMinRating }
	default:
		return cloneMovies(movies)
	}

	out := make([]models.Movie, 0, len(movies))
	for _, m := range movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	if id == models.CategoryTrending {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}
	return out
}

func cloneMovies(in []models.Movie) []models.Movie {
	out := make([]models.Movie, len(in))
	copy(out, in)
	return out
}
