package models

import (
	"fmt"
	"strings"
)

type AgeRating string

const (
	AgeRatingL  AgeRating = "L"
	AgeRating10 AgeRating = "10"
	AgeRating12 AgeRating = "12"
	AgeRating14 AgeRating = "14"
	AgeRating16 AgeRating = "16"
	AgeRating18 AgeRating = "18"
)

// AgeRatings lists the accepted ratings in ascending order.
var AgeRatings = []AgeRating{AgeRatingL, AgeRating10, AgeRating12, AgeRating14, AgeRating16, AgeRating18}

// ParseAgeRating accepts "L", "10", ... "18" (case and surrounding
// whitespace are ignored).
func ParseAgeRating(s string) (AgeRating, error) {
	v := AgeRating(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range AgeRatings {
		if v == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("invalid age rating %q", s)
}

type SourceKind string

const (
	SourceFileUpload   SourceKind = "fileUpload"
	SourceExternalLink SourceKind = "externalLink"
	SourceNone         SourceKind = ""
)

// Movie is one catalog entry. JSON field names match the persisted
// catalog snapshot.
type Movie struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Description  string    `json:"description" yaml:"description"`
	BackdropPath string    `json:"backdropPath" yaml:"backdropPath"`
	PosterPath   string    `json:"posterPath" yaml:"posterPath"`
	Rating       float64   `json:"rating" yaml:"rating"` // 0-10
	Year         int       `json:"year" yaml:"year"`
	Genres       []string  `json:"genre" yaml:"genre"`
	AgeRating    AgeRating `json:"ageRating,omitempty" yaml:"ageRating"`
	Duration     string    `json:"duration,omitempty" yaml:"duration"`
	IsOriginal   bool      `json:"isOriginal,omitempty" yaml:"isOriginal"`
	IsUserAdded  bool      `json:"isUserAdded,omitempty" yaml:"isUserAdded"`
	IsInMyList   bool      `json:"isInMyList,omitempty" yaml:"isInMyList"`
	VideoURL     string    `json:"videoUrl,omitempty" yaml:"videoUrl"`
	IsYoutube    bool      `json:"isYoutube,omitempty" yaml:"isYoutube"`
	AuthorName   string    `json:"authorName,omitempty" yaml:"authorName"`
}

// SourceKind is implied by the link flag and whether the entry was
// uploaded by a user.
func (m Movie) SourceKind() SourceKind {
	switch {
	case m.IsYoutube || (m.VideoURL != "" && isRemoteURL(m.VideoURL)):
		return SourceExternalLink
	case m.IsUserAdded:
		return SourceFileUpload
	default:
		return SourceNone
	}
}

// MediaRef is the blob-store key for uploads and the playable URL for
// external links. Uploaded entries are keyed by their own id.
func (m Movie) MediaRef() string {
	switch m.SourceKind() {
	case SourceExternalLink:
		return m.VideoURL
	case SourceFileUpload:
		if m.VideoURL != "" {
			return m.VideoURL
		}
		return m.ID
	default:
		return ""
	}
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Draft is the metadata the assistant proposes for a new entry.
type Draft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Genres      []string  `json:"genre"`
	Year        int       `json:"year"`
	Rating      float64   `json:"rating,omitempty"`
	AgeRating   AgeRating `json:"ageRating"`
}
