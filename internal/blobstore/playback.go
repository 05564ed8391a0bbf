package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Resolver turns a blob id into a transient, revocable playback URL.
// Unknown ids, empty rows and store failures all resolve to ("", false).
type Resolver interface {
	ResolvePlaybackURL(ctx context.Context, id string) (string, bool)
	Revoke(url string)
	RevokeAll()
}

type grant struct {
	blobID  string
	expires time.Time
}

// TokenRegistry hands out <baseURL>/media/<token> links served by the HTTP
// API. Tokens expire after ttl and die with the process.
type TokenRegistry struct {
	store   Store
	baseURL string
	ttl     time.Duration
	logger  *logrus.Logger
	now     func() time.Time

	mu     sync.Mutex
	tokens map[string]grant
}

func NewTokenRegistry(store Store, baseURL string, ttl time.Duration, logger *logrus.Logger) *TokenRegistry {
	if logger == nil {
		logger = logrus.New()
	}
	return &TokenRegistry{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		tokens:  make(map[string]grant),
	}
}

func (r *TokenRegistry) ResolvePlaybackURL(ctx context.Context, id string) (string, bool) {
	if _, ok := lookup(ctx, r.store, id, r.logger); !ok {
		return "", false
	}

	token := uuid.NewString()
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)
	r.tokens[token] = grant{blobID: id, expires: now.Add(r.ttl)}

	return r.baseURL + "/media/" + token, true
}

// Open returns the blob behind a live token.
func (r *TokenRegistry) Open(ctx context.Context, token string) (*Blob, error) {
	r.mu.Lock()
	g, ok := r.tokens[token]
	if ok && !r.now().Before(g.expires) {
		delete(r.tokens, token)
		ok = false
	}
	r.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return r.store.Get(ctx, g.blobID)
}

func (r *TokenRegistry) Revoke(url string) {
	token := url[strings.LastIndex(url, "/")+1:]

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
}

func (r *TokenRegistry) RevokeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = make(map[string]grant)
}

func (r *TokenRegistry) pruneLocked(now time.Time) {
	for token, g := range r.tokens {
		if !now.Before(g.expires) {
			delete(r.tokens, token)
		}
	}
}

const tempFilePattern = "netbons-*"

// TempFileResolver copies the blob into a temporary file and returns a
// file:// URL to it. Revoking removes the file.
type TempFileResolver struct {
	store  Store
	dir    string
	logger *logrus.Logger

	mu    sync.Mutex
	files map[string]string
}

// NewTempFileResolver writes into dir, or the OS temp dir when dir is empty.
func NewTempFileResolver(store Store, dir string, logger *logrus.Logger) *TempFileResolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &TempFileResolver{
		store:  store,
		dir:    dir,
		logger: logger,
		files:  make(map[string]string),
	}
}

func (r *TempFileResolver) ResolvePlaybackURL(ctx context.Context, id string) (string, bool) {
	blob, ok := lookup(ctx, r.store, id, r.logger)
	if !ok {
		return "", false
	}

	ext := mimetype.Lookup(blob.ContentType)
	suffix := ""
	if ext != nil {
		suffix = ext.Extension()
	}

	f, err := os.CreateTemp(r.dir, tempFilePattern+suffix)
	if err != nil {
		r.logger.WithError(err).WithField("blob_id", id).Warn("Failed to create playback file")
		return "", false
	}
	path := f.Name()
	_, werr := f.Write(blob.Data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(path)
		r.logger.WithError(err).WithField("blob_id", id).Warn("Failed to write playback file")
		return "", false
	}

	url := "file://" + path
	r.mu.Lock()
	r.files[url] = path
	r.mu.Unlock()
	return url, true
}

func (r *TempFileResolver) Revoke(url string) {
	r.mu.Lock()
	path, ok := r.files[url]
	delete(r.files, url)
	r.mu.Unlock()

	if ok {
		os.Remove(path)
	}
}

// RevokeAll removes every playback file, including those left in dir by
// earlier processes.
func (r *TempFileResolver) RevokeAll() {
	r.mu.Lock()
	files := r.files
	r.files = make(map[string]string)
	r.mu.Unlock()

	for _, path := range files {
		os.Remove(path)
	}
	if r.dir == "" {
		return
	}
	leftovers, err := filepath.Glob(filepath.Join(r.dir, tempFilePattern))
	if err != nil {
		return
	}
	for _, path := range leftovers {
		os.Remove(path)
	}
}

func lookup(ctx context.Context, store Store, id string, logger *logrus.Logger) (*Blob, bool) {
	if strings.TrimSpace(id) == "" {
		return nil, false
	}
	blob, err := store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WithError(err).WithField("blob_id", id).Warn("Blob lookup failed")
		}
		return nil, false
	}
	return blob, true
}
