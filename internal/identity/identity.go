// Package identity resolves user identities for the task engine.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-tracker-api/internal/apperr"
	"task-tracker-api/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Profile is the resolved view of a user.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// Resolver maps an identity (user id or username) to a profile.
type Resolver interface {
	Resolve(ctx context.Context, identity string) (*Profile, error)
}

// ErrBadCredentials is returned when a known user presents the wrong password.
var ErrBadCredentials = errors.New("invalid username or password")

// Directory is the users table, with cached lookups.
type Directory struct {
	db    *gorm.DB
	cache *ttlCache[string, Profile]
	ttl   time.Duration
}

// NewDirectory creates a Directory. A ttl <= 0 disables caching.
func NewDirectory(db *gorm.DB, ttl time.Duration) *Directory {
	return &Directory{db: db, cache: newTTLCache[string, Profile](), ttl: ttl}
}

// Resolve looks the identity up by id first and then by username.
func (d *Directory) Resolve(ctx context.Context, identity string) (*Profile, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, apperr.ErrNotFound
	}
	if d.ttl > 0 {
		if p, ok := d.cache.Get(identity); ok {
			return &p, nil
		}
	}

	var u models.User
	err := d.db.WithContext(ctx).Where("id = ? OR username = ?", identity, identity).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Repo("resolve user", err)
	}

	p := toProfile(u)
	if d.ttl > 0 {
		d.cache.Set(identity, p, d.ttl)
	}
	return &p, nil
}

// List returns every user ordered by username. It also drops expired
// cache entries, since a full listing is the natural refresh point.
func (d *Directory) List(ctx context.Context) ([]Profile, error) {
	d.cache.Purge()
	var users []models.User
	if err := d.db.WithContext(ctx).Order("username asc").Find(&users).Error; err != nil {
		return nil, apperr.Repo("list users", err)
	}
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, toProfile(u))
	}
	return out, nil
}

// Authenticate checks the password of username. Unknown usernames are
// registered on first login with the given password.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (*Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}

	var u models.User
	err := d.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := d.Register(ctx, "", username, username, password)
		if err != nil {
			return nil, err
		}
		return created, nil
	case err != nil:
		return nil, apperr.Repo("load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	p := toProfile(u)
	return &p, nil
}

// Register creates or updates a user. An empty id gets a generated one.
func (d *Directory) Register(ctx context.Context, id, username, displayName, password string) (*Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if id == "" {
		id = "u-" + uuid.NewString()[:8]
	}
	u := models.User{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		Password:    string(hash),
	}
	if err := d.db.WithContext(ctx).Save(&u).Error; err != nil {
		return nil, apperr.Repo("save user", err)
	}
	d.cache.Delete(id)
	d.cache.Delete(username)

	p := toProfile(u)
	return &p, nil
}

func toProfile(u models.User) Profile {
	return Profile{ID: u.ID, Username: u.Username, DisplayName: u.Name()}
}

var _ Resolver = (*Directory)(nil)
