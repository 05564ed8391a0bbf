package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAgeRating(t *testing.T) {
	for _, in := range []string{"L", "l", " 10", "12", "14", "16", "18 "} {
		_, err := ParseAgeRating(in)
		assert.NoError(t, err, in)
	}
	for _, in := range []string{"", "PG-13", "21", "livre"} {
		_, err := ParseAgeRating(in)
		assert.Error(t, err, in)
	}
}

func TestSessionAcceptsLegacyExpiry(t *testing.T) {
	var s Session
	require.NoError(t, json.Unmarshal([]byte(`{"expiry": 1700000000000}`), &s))
	assert.Equal(t, int64(1700000000000), s.ExpiresAt)

	require.NoError(t, json.Unmarshal([]byte(`{"expiresAt": 42}`), &s))
	assert.Equal(t, int64(42), s.ExpiresAt)

	out, err := json.Marshal(Session{ExpiresAt: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expiresAt": 7}`, string(out))
}

func TestSessionValid(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(now, time.Hour)

	assert.True(t, s.Valid(now))
	assert.True(t, s.Valid(now.Add(59*time.Minute)))
	assert.False(t, s.Valid(now.Add(time.Hour)))
	assert.False(t, Session{}.Valid(now))
}

func TestMovieSourceKind(t *testing.T) {
	upload := Movie{ID: "abc", IsUserAdded: true}
	assert.Equal(t, SourceFileUpload, upload.SourceKind())
	assert.Equal(t, "abc", upload.MediaRef())

	link := Movie{ID: "yt", IsUserAdded: true, IsYoutube: true, VideoURL: "https://youtu.be/dQw4w9WgXcQ"}
	assert.Equal(t, SourceExternalLink, link.SourceKind())
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", link.MediaRef())

	seed := Movie{ID: "1"}
	assert.Equal(t, SourceNone, seed.SourceKind())
	assert.Empty(t, seed.MediaRef())
}

func TestMovieJSONFieldNames(t *testing.T) {
	out, err := json.Marshal(Movie{
		ID:         "1",
		Title:      "X",
		Genres:     []string{"Drama"},
		IsInMyList: true,
		AgeRating:  AgeRating12,
	})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.Contains(t, raw, "genre")
	assert.Contains(t, raw, "isInMyList")
	assert.Contains(t, raw, "backdropPath")
	assert.Equal(t, "12", raw["ageRating"])
}
