package services

import (
	"context"
	"fmt"
	"regexp"

	"netbons/internal/blobstore"
	"netbons/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	youTubeIDLength = 11
	youTubeEmbedURL = "https://www.youtube.com/embed/%s?autoplay=1&rel=0"
)

var youTubeIDPattern = regexp.MustCompile(`^.*(youtu.be\/|v\/|u\/\w\/|embed\/|watch\?v=|\&v=)([^#\&\?]*).*`)

// YouTubeID extracts the 11 character video id from a YouTube URL, or "".
func YouTubeID(rawURL string) string {
	m := youTubeIDPattern.FindStringSubmatch(rawURL)
	if m == nil || len(m[2]) != youTubeIDLength {
		return ""
	}
	return m[2]
}

// YouTubeEmbedURL returns the autoplaying embed URL for a YouTube link, or
// "" when no video id can be found.
func YouTubeEmbedURL(rawURL string) string {
	id := YouTubeID(rawURL)
	if id == "" {
		return ""
	}
	return fmt.Sprintf(youTubeEmbedURL, id)
}

type PlaybackKind string

const (
	PlaybackEmbed  PlaybackKind = "embed"
	PlaybackDirect PlaybackKind = "direct"
	PlaybackBlob   PlaybackKind = "blob"
)

type Playback struct {
	MovieID string       `json:"movieId"`
	URL     string       `json:"url"`
	Kind    PlaybackKind `json:"kind"`
}

type catalogReader interface {
	Get(id string) (models.Movie, bool)
}

// Player resolves catalog entries to something a client can play.
type Player struct {
	catalog  catalogReader
	resolver blobstore.Resolver
	logger   *logrus.Logger
}

func NewPlayer(catalog catalogReader, resolver blobstore.Resolver, logger *logrus.Logger) *Player {
	if logger == nil {
		logger = logrus.New()
	}
	return &Player{catalog: catalog, resolver: resolver, logger: logger}
}

// Resolve returns ErrMovieNotFound for unknown ids and ErrUnplayable when
// the entry has no media, or its blob cannot be found.
func (p *Player) Resolve(ctx context.Context, id string) (Playback, error) {
	movie, ok := p.catalog.Get(id)
	if !ok {
		return Playback{}, ErrMovieNotFound
	}

	switch movie.SourceKind() {
	case models.SourceExternalLink:
		if movie.IsYoutube {
			embed := YouTubeEmbedURL(movie.VideoURL)
			if embed == "" {
				p.logger.WithField("id", id).Warn("YouTube link without a video id")
				return Playback{}, ErrUnplayable
			}
			return Playback{MovieID: id, URL: embed, Kind: PlaybackEmbed}, nil
		}
		return Playback{MovieID: id, URL: movie.VideoURL, Kind: PlaybackDirect}, nil

	case models.SourceFileUpload:
		if p.resolver == nil {
			return Playback{}, ErrUnplayable
		}
		url, ok := p.resolver.ResolvePlaybackURL(ctx, movie.MediaRef())
		if !ok {
			p.logger.WithField("id", id).Info("Uploaded media is missing, entry is not playable")
			return Playback{}, ErrUnplayable
		}
		return Playback{MovieID: id, URL: url, Kind: PlaybackBlob}, nil
	}

	return Playback{}, ErrUnplayable
}

// Release revokes a blob playback URL handed out by Resolve.
func (p *Player) Release(pb Playback) {
	if pb.Kind == PlaybackBlob && p.resolver != nil {
		p.resolver.Revoke(pb.URL)
	}
}

// ReleaseAll revokes every outstanding blob playback URL.
func (p *Player) ReleaseAll(context.Context) {
	if p.resolver != nil {
		p.resolver.RevokeAll()
	}
}
