package services

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"time"

	"netbons/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	fallbackDescription    = "Conteúdo pessoal adicionado ao Laboratório."
	fallbackIdeaDesc       = "Uma ideia original inspirada no seu pedido."
	fallbackGenre          = "Vídeo"
	fallbackTitle          = "Sem título"
	fallbackWhyWatch       = "Uma narrativa poderosa que redefine o gênero."
	fallbackIdeaRating     = 8.5
	whyWatchMaxWords       = 20
	promptTitleMaxWords    = 4
	maxDraftGenres         = 5
	earliestReleaseYear    = 1888
	futureReleaseYearSlack = 5
)

// MetadataOracle is the remote completion service. Any call may fail or
// return garbage; Assistant is the only caller that should use it.
type MetadataOracle interface {
	DraftFromFilename(ctx context.Context, filename string) (*models.Draft, error)
	DraftFromFreeText(ctx context.Context, prompt string) (*models.Draft, error)
	WhyWatch(ctx context.Context, title string) (string, error)
}

// OfflineOracle always fails, so Assistant always serves its local
// fallbacks. Used when no API key is configured.
type OfflineOracle struct{}

func (OfflineOracle) DraftFromFilename(context.Context, string) (*models.Draft, error) {
	return nil, ErrOracleUnavailable
}

func (OfflineOracle) DraftFromFreeText(context.Context, string) (*models.Draft, error) {
	return nil, ErrOracleUnavailable
}

func (OfflineOracle) WhyWatch(context.Context, string) (string, error) {
	return "", ErrOracleUnavailable
}

// Assistant wraps an oracle, validates what it returns field by field and
// substitutes deterministic defaults. Its methods never fail.
type Assistant struct {
	oracle MetadataOracle
	logger *logrus.Logger
	now    func() time.Time
}

func NewAssistant(oracle MetadataOracle, logger *logrus.Logger) *Assistant {
	if oracle == nil {
		oracle = OfflineOracle{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Assistant{oracle: oracle, logger: logger, now: time.Now}
}

// DraftFromFilename proposes metadata for an uploaded file.
func (a *Assistant) DraftFromFilename(ctx context.Context, filename string) models.Draft {
	fallback := a.FilenameFallback(filename)

	draft, err := a.oracle.DraftFromFilename(ctx, filename)
	if err != nil {
		a.logger.WithError(err).WithField("filename", filename).Warn("Metadata assistant failed, using local draft")
		return fallback
	}

	out := a.sanitize(draft, fallback)
	out.Rating = 0
	return out
}

// DraftFromFreeText turns a viewer's wish into a fictional title idea.
func (a *Assistant) DraftFromFreeText(ctx context.Context, prompt string) models.Draft {
	fallback := a.FreeTextFallback(prompt)

	draft, err := a.oracle.DraftFromFreeText(ctx, prompt)
	if err != nil {
		a.logger.WithError(err).WithField("prompt", prompt).Warn("Metadata assistant failed, using local idea")
		return fallback
	}

	out := a.sanitize(draft, fallback)
	if !validRating(draft.Rating) {
		out.Rating = fallback.Rating
	} else {
		out.Rating = draft.Rating
	}
	return out
}

// WhyWatch returns a short pitch for a title, at most 20 words.
func (a *Assistant) WhyWatch(ctx context.Context, title string) string {
	text, err := a.oracle.WhyWatch(ctx, title)
	if err != nil {
		a.logger.WithError(err).WithField("title", title).Warn("Metadata assistant failed, using stock pitch")
		return fallbackWhyWatch
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return fallbackWhyWatch
	}
	if len(words) > whyWatchMaxWords {
		words = words[:whyWatchMaxWords]
	}
	return strings.Join(words, " ")
}

// FilenameFallback is the draft used when the oracle is unavailable:
// "clip.mp4" becomes a "clip" entry released this year, rated L.
func (a *Assistant) FilenameFallback(filename string) models.Draft {
	return models.Draft{
		Title:       TitleFromFilename(filename),
		Description: fallbackDescription,
		Genres:      []string{fallbackGenre},
		Year:        a.now().Year(),
		AgeRating:   models.AgeRatingL,
	}
}

// FreeTextFallback derives a title from the first words of the prompt.
func (a *Assistant) FreeTextFallback(prompt string) models.Draft {
	return models.Draft{
		Title:       titleFromPrompt(prompt),
		Description: fallbackIdeaDesc,
		Genres:      []string{fallbackGenre},
		Year:        a.now().Year(),
		Rating:      fallbackIdeaRating,
		AgeRating:   models.AgeRatingL,
	}
}

func (a *Assistant) sanitize(d *models.Draft, fallback models.Draft) models.Draft {
	if d == nil {
		return fallback
	}
	out := fallback

	if title := strings.TrimSpace(d.Title); title != "" {
		out.Title = title
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		out.Description = desc
	}
	if genres := cleanGenres(d.Genres); len(genres) > 0 {
		out.Genres = genres
	}
	if d.Year >= earliestReleaseYear && d.Year <= a.now().Year()+futureReleaseYearSlack {
		out.Year = d.Year
	}
	if rating, err := models.ParseAgeRating(string(d.AgeRating)); err == nil {
		out.AgeRating = rating
	}
	return out
}

func cleanGenres(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if g == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
		if len(out) == maxDraftGenres {
			break
		}
	}
	return out
}

func validRating(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= 0 && r <= 10
}

// TitleFromFilename keeps the base name up to its first dot.
func TitleFromFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return fallbackTitle
	}
	return base
}

func titleFromPrompt(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return fallbackTitle
	}
	if len(words) > promptTitleMaxWords {
		words = words[:promptTitleMaxWords]
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
