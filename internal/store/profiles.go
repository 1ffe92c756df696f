package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProfileByUserID returns the profile row for a user.
func (s *Store) ProfileByUserID(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	var avatarURL sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, email, avatar_url, created_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&profile.UserID, &profile.DisplayName, &profile.Email, &avatarURL, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	profile.AvatarURL = avatarURL.String
	return &profile, nil
}

// UpdateProfile replaces the mutable profile fields. The email mirror in the
// users table is updated in the same transaction.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, displayName, email string) (*Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET display_name = $1, email = $2
		WHERE user_id = $3
	`, displayName, email, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET email = $1
		WHERE id = $2
	`, email, userID); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user email: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return s.ProfileByUserID(ctx, userID)
}

// SetAvatarURL records the avatar locator for a user. An empty URL clears it.
func (s *Store) SetAvatarURL(ctx context.Context, userID int64, url string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET avatar_url = $1
		WHERE user_id = $2
	`, nullIfEmpty(url), userID)
	if err != nil {
		return fmt.Errorf("set avatar url: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
