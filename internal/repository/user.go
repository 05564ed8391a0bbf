package repository

import (
	"context"
	"strings"

	"netbons/internal/kvstore"
	"netbons/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type UserRepository interface {
	List(ctx context.Context) []models.UserRecord
	FindByEmail(ctx context.Context, email string) (*models.UserRecord, bool)
	Append(ctx context.Context, user models.UserRecord) error
}

// userRepository keeps every account in one JSON list under a single key.
// There is no uniqueness constraint at this level.
type userRepository struct {
	store *kvstore.Store
	key   string
}

func NewUserRepository(store *kvstore.Store, key string) UserRepository {
	return &userRepository{store: store, key: key}
}

// List returns the registered users, or an empty list when nothing (or
// nothing readable) is stored.
func (r *userRepository) List(ctx context.Context) []models.UserRecord {
	var users []models.UserRecord
	if !r.store.Get(ctx, r.key, &users) {
		return []models.UserRecord{}
	}
	return users
}

// FindByEmail matches case-insensitively against the current list.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.UserRecord, bool) {
	want := NormalizeEmail(email)
	for _, u := range r.List(ctx) {
		if NormalizeEmail(u.Email) == want {
			user := u
			return &user, true
		}
	}
	return nil, false
}

// Append rewrites the whole list with user at the end.
func (r *userRepository) Append(ctx context.Context, user models.UserRecord) error {
	users := append(r.List(ctx), user)
	return r.store.Set(ctx, r.key, users)
}

// NormalizeEmail trims and lower-cases an address for comparison. Plain
// lower-casing keeps "ß" distinct from "ss". Casers carry state, so a
// fresh one is used per call.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}
