package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"netbons/internal/blobstore"
	"netbons/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	uploadRating        = 9.0
	uploadThumbnailURL  = "https://picsum.photos/seed/%s/1920/1080"
	youTubeThumbnailURL = "https://img.youtube.com/vi/%s/hqdefault.jpg"
	ideaBackdropURL     = "https://picsum.photos/seed/%s/1920/1080"
	ideaPosterURL       = "https://picsum.photos/seed/%s/500/750"
)

// Metadata holds values typed in by the viewer. Zero fields keep whatever
// the draft proposed.
type Metadata struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Genre       string `json:"genre" form:"genre"`
	AgeRating   string `json:"ageRating" form:"ageRating"`
	Year        int    `json:"year" form:"year"`
	Thumbnail   string `json:"thumbnail" form:"thumbnail"`
}

type UploadRequest struct {
	Filename string
	Data     []byte
	// UseAssistant asks the metadata assistant for a draft before the
	// viewer's own values are applied.
	UseAssistant bool
	Metadata     Metadata
}

type LinkRequest struct {
	URL          string   `json:"url" binding:"required"`
	UseAssistant bool     `json:"useAssistant"`
	Metadata     Metadata `json:"metadata"`
}

type profileSource interface {
	ActiveProfile() (models.Profile, error)
}

type catalogWriter interface {
	Append(ctx context.Context, m models.Movie)
}

// UploadService publishes community content: uploaded files, external
// links and assistant recommendations.
type UploadService struct {
	profiles  profileSource
	catalog   catalogWriter
	blobs     blobstore.Store
	assistant *Assistant
	logger    *logrus.Logger
	newID     func() string
}

func NewUploadService(profiles profileSource, catalog catalogWriter, blobs blobstore.Store, assistant *Assistant, logger *logrus.Logger) *UploadService {
	if logger == nil {
		logger = logrus.New()
	}
	return &UploadService{
		profiles:  profiles,
		catalog:   catalog,
		blobs:     blobs,
		assistant: assistant,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Publish stores the payload and then prepends a community entry. If the
// payload cannot be stored nothing is added and ErrUploadFailed is returned.
func (u *UploadService) Publish(ctx context.Context, req UploadRequest) (models.Movie, error) {
	profile, err := u.profiles.ActiveProfile()
	if err != nil {
		return models.Movie{}, err
	}

	// without the assistant the description starts out blank; the stock
	// text only stands in for a failed draft
	draft := u.assistant.FilenameFallback(req.Filename)
	draft.Description = ""
	if req.UseAssistant {
		draft = u.assistant.DraftFromFilename(ctx, req.Filename)
	}
	if err := applyMetadata(&draft, req.Metadata); err != nil {
		return models.Movie{}, err
	}

	id := u.newID()
	log := u.logger.WithFields(logrus.Fields{
		"id":       id,
		"filename": req.Filename,
		"size":     len(req.Data),
	})

	if err := u.blobs.Put(ctx, id, req.Data); err != nil {
		log.WithError(err).Error("Failed to store uploaded media")
		return models.Movie{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	thumbnail := strings.TrimSpace(req.Metadata.Thumbnail)
	if thumbnail == "" {
		thumbnail = fmt.Sprintf(uploadThumbnailURL, id)
	}

	movie := models.Movie{
		ID:           id,
		Title:        draft.Title,
		Description:  draft.Description,
		BackdropPath: thumbnail,
		PosterPath:   thumbnail,
		Rating:       uploadRating,
		Year:         draft.Year,
		Genres:       firstGenre(draft.Genres),
		AgeRating:    draft.AgeRating,
		IsUserAdded:  true,
		AuthorName:   profile.Name,
	}
	u.catalog.Append(ctx, movie)

	log.WithField("author", profile.Name).Info("Community upload published")
	return movie, nil
}

// AddLink publishes an external video link. YouTube links are flagged so
// that playback goes through the embed player.
func (u *UploadService) AddLink(ctx context.Context, req LinkRequest) (models.Movie, error) {
	profile, err := u.profiles.ActiveProfile()
	if err != nil {
		return models.Movie{}, err
	}

	link, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (link.Scheme != "http" && link.Scheme != "https") || link.Host == "" {
		return models.Movie{}, ErrInvalidLink
	}
	videoURL := link.String()

	draft := u.assistant.FilenameFallback("")
	if req.UseAssistant {
		draft = u.assistant.DraftFromFilename(ctx, videoURL)
	}
	if err := applyMetadata(&draft, req.Metadata); err != nil {
		return models.Movie{}, err
	}

	id := u.newID()
	youTubeID := YouTubeID(videoURL)

	thumbnail := strings.TrimSpace(req.Metadata.Thumbnail)
	switch {
	case thumbnail != "":
	case youTubeID != "":
		thumbnail = fmt.Sprintf(youTubeThumbnailURL, youTubeID)
	default:
		thumbnail = fmt.Sprintf(uploadThumbnailURL, id)
	}

	movie := models.Movie{
		ID:           id,
		Title:        draft.Title,
		Description:  draft.Description,
		BackdropPath: thumbnail,
		PosterPath:   thumbnail,
		Rating:       uploadRating,
		Year:         draft.Year,
		Genres:       firstGenre(draft.Genres),
		AgeRating:    draft.AgeRating,
		IsUserAdded:  true,
		VideoURL:     videoURL,
		IsYoutube:    youTubeID != "",
		AuthorName:   profile.Name,
	}
	u.catalog.Append(ctx, movie)

	u.logger.WithFields(logrus.Fields{
		"id":      id,
		"url":     videoURL,
		"youtube": movie.IsYoutube,
	}).Info("External link published")
	return movie, nil
}

// Recommend turns a free-text wish into an original entry. It is only
// added to the catalog when add is set, which needs an active profile.
func (u *UploadService) Recommend(ctx context.Context, prompt string, add bool) (models.Movie, error) {
	if add {
		if _, err := u.profiles.ActiveProfile(); err != nil {
			return models.Movie{}, err
		}
	}

	draft := u.assistant.DraftFromFreeText(ctx, prompt)
	seed := url.PathEscape(draft.Title)

	movie := models.Movie{
		ID:           u.newID(),
		Title:        draft.Title,
		Description:  draft.Description,
		BackdropPath: fmt.Sprintf(ideaBackdropURL, seed),
		PosterPath:   fmt.Sprintf(ideaPosterURL, seed),
		Rating:       draft.Rating,
		Year:         draft.Year,
		Genres:       draft.Genres,
		AgeRating:    draft.AgeRating,
		IsOriginal:   true,
	}
	if add {
		u.catalog.Append(ctx, movie)
	}
	return movie, nil
}

func applyMetadata(d *models.Draft, meta Metadata) error {
	if v := strings.TrimSpace(meta.Title); v != "" {
		d.Title = v
	}
	if v := strings.TrimSpace(meta.Description); v != "" {
		d.Description = v
	}
	if v := strings.TrimSpace(meta.Genre); v != "" {
		d.Genres = []string{v}
	}
	if meta.AgeRating != "" {
		rating, err := models.ParseAgeRating(meta.AgeRating)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		d.AgeRating = rating
	}
	if meta.Year != 0 {
		if meta.Year < earliestReleaseYear {
			return fmt.Errorf("%w: year %d", ErrInvalidMetadata, meta.Year)
		}
		d.Year = meta.Year
	}
	return nil
}

// firstGenre keeps only the leading genre, as community entries show one.
func firstGenre(genres []string) []string {
	if len(genres) == 0 {
		return []string{fallbackGenre}
	}
	return []string{genres[0]}
}
