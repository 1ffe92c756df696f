// Package users implements account workflows: sign-up, sign-in, profile
// maintenance, avatar storage, and account deletion.
package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"simpletune/internal/blobstore"
	"simpletune/internal/session"
	"simpletune/internal/store"
)

var (
	// ErrInvalidCredentials indicates a sign-in or re-authentication failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidInput signals an empty or malformed user-supplied field.
	ErrInvalidInput = errors.New("invalid input")

	dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")
)

const minPasswordLength = 6

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, email string, passwordHash []byte, displayName string) (int64, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UserByID(ctx context.Context, id int64) (*store.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash []byte) error
	DeleteUser(ctx context.Context, userID int64) error

	ProfileByUserID(ctx context.Context, userID int64) (*store.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, displayName, email string) (*store.Profile, error)
	SetAvatarURL(ctx context.Context, userID int64, url string) error
}

// Playlists is the slice of the playlist store needed for account deletion.
type Playlists interface {
	ListPlaylists(ctx context.Context, ownerID int64) ([]*store.Playlist, error)
	DeletePlaylist(ctx context.Context, ownerID, id int64) error
}

// Tokens issues signed session tokens.
type Tokens interface {
	Issue(userID int64, email string) (string, error)
}

// Service exposes account workflows.
type Service interface {
	SignUp(ctx context.Context, email, password, displayName string) (int64, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut()

	// Session exposes the observable identity context fed by this
	// service's sign-in/sign-out notifications.
	Session() *session.Context

	Profile(ctx context.Context, userID int64) (*store.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, displayName, email string) (*store.Profile, error)
	UploadAvatar(ctx context.Context, userID int64, contentType string, r io.Reader) (*store.Profile, error)

	// ChangePassword requires re-authentication with the current password.
	ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error
	// DeleteAccount requires re-authentication and cascades: profile,
	// playlists, and the avatar blob all go with the account.
	DeleteAccount(ctx context.Context, userID int64, currentPassword string) error
}

type service struct {
	store     Store
	playlists Playlists
	blobs     blobstore.Store
	tokens    Tokens

	events  chan session.Event
	current *session.Context
}

// New wires a Service backed by the provided collaborators.
func New(s Store, p Playlists, blobs blobstore.Store, tokens Tokens) Service {
	events := make(chan session.Event, 8)
	return &service{
		store:     s,
		playlists: p,
		blobs:     blobs,
		tokens:    tokens,
		events:    events,
		current:   session.Watch(events),
	}
}

func (s *service) Session() *session.Context {
	return s.current
}

func (s *service) SignUp(ctx context.Context, email, password, displayName string) (int64, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return 0, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return 0, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	return s.store.CreateUser(ctx, email, hash, strings.TrimSpace(displayName))
}

func (s *service) SignIn(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a comparison so absent accounts cost the same as wrong
			// passwords.
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.events <- session.Event{Identity: &session.Identity{UserID: user.ID, Email: user.Email}}

	return token, nil
}

func (s *service) SignOut() {
	s.events <- session.Event{}
}

func (s *service) Profile(ctx context.Context, userID int64) (*store.Profile, error) {
	return s.store.ProfileByUserID(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, displayName, email string) (*store.Profile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	return s.store.UpdateProfile(ctx, userID, strings.TrimSpace(displayName), email)
}

func (s *service) UploadAvatar(ctx context.Context, userID int64, contentType string, r io.Reader) (*store.Profile, error) {
	profile, err := s.store.ProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	name, url, err := s.blobs.Put(contentType, r)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetAvatarURL(ctx, userID, url); err != nil {
		_ = s.blobs.Delete(name)
		return nil, err
	}

	if old := blobName(profile.AvatarURL); old != "" && old != name {
		if err := s.blobs.Delete(old); err != nil {
			log.Warn().Err(err).Str("blob", old).Msg("delete replaced avatar")
		}
	}

	profile.AvatarURL = url
	return profile, nil
}

func (s *service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	if err := s.reauthenticate(ctx, userID, currentPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

func (s *service) DeleteAccount(ctx context.Context, userID int64, currentPassword string) error {
	if err := s.reauthenticate(ctx, userID, currentPassword); err != nil {
		return err
	}

	profile, err := s.store.ProfileByUserID(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	owned, err := s.playlists.ListPlaylists(ctx, userID)
	if err != nil {
		return err
	}
	for _, playlist := range owned {
		if err := s.playlists.DeletePlaylist(ctx, userID, playlist.ID); err != nil {
			return err
		}
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}

	if profile != nil {
		if old := blobName(profile.AvatarURL); old != "" {
			if err := s.blobs.Delete(old); err != nil {
				log.Warn().Err(err).Str("blob", old).Msg("delete avatar of removed account")
			}
		}
	}

	s.events <- session.Event{}

	return nil
}

func (s *service) reauthenticate(ctx context.Context, userID int64, password string) error {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func blobName(url string) string {
	if url == "" {
		return ""
	}
	return path.Base(url)
}
