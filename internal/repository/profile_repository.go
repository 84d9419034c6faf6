package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/zinye/socialflow/internal/models"
)

const profileColumns = `id, user_id, profile_name, platform_type, linkedin_profile_id, linkedin_company_id,
		access_token, refresh_token, token_expires_at, is_active, analytics_enabled, approval_required,
		followers_count, connections_count, page_views, unique_page_views, last_analytics_sync,
		created_at, updated_at`

type ProfileRepository interface {
	GetByID(ctx context.Context, id int64) (*models.SocialProfile, error)
	Create(ctx context.Context, tx *sql.Tx, profile *models.SocialProfile) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.SocialProfile, error)
	CheckByUserID(ctx context.Context, profileID, userID int64) (bool, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]*models.SocialProfile, error)
	ListAnalyticsEnabled(ctx context.Context) ([]*models.SocialProfile, error)
	SetTokens(ctx context.Context, profileID int64, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateAnalytics(ctx context.Context, profile *models.SocialProfile) error
	Remove(ctx context.Context, id int64) error
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func scanProfile(row interface{ Scan(...any) error }) (*models.SocialProfile, error) {
	var p models.SocialProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.ProfileName, &p.PlatformType, &p.LinkedInProfileID, &p.LinkedInCompanyID,
		&p.AccessToken, &p.RefreshToken, &p.TokenExpiresAt, &p.IsActive, &p.AnalyticsEnabled, &p.ApprovalRequired,
		&p.FollowersCount, &p.ConnectionsCount, &p.PageViews, &p.UniquePageViews, &p.LastAnalyticsSync,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) Create(ctx context.Context, tx *sql.Tx, profile *models.SocialProfile) (int64, error) {
	query := `
		INSERT INTO social_profiles (user_id, profile_name, platform_type, linkedin_profile_id,
			linkedin_company_id, access_token, refresh_token, token_expires_at, is_active,
			analytics_enabled, approval_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	args := []any{profile.UserID, profile.ProfileName, profile.PlatformType, profile.LinkedInProfileID,
		profile.LinkedInCompanyID, profile.AccessToken, profile.RefreshToken, profile.TokenExpiresAt,
		profile.IsActive, profile.AnalyticsEnabled, profile.ApprovalRequired}

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id int64) (*models.SocialProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM social_profiles WHERE id = $1`
	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return profile, nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.SocialProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM social_profiles WHERE user_id = $1`
	return r.queryProfiles(ctx, query, userID)
}

func (r *profileRepository) CheckByUserID(ctx context.Context, profileID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_profiles WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, profileID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *profileRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*models.SocialProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM social_profiles
		WHERE is_active = TRUE AND refresh_token != '' AND token_expires_at BETWEEN $1 AND $2`
	return r.queryProfiles(ctx, query, from, to)
}

func (r *profileRepository) ListAnalyticsEnabled(ctx context.Context) ([]*models.SocialProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM social_profiles
		WHERE is_active = TRUE AND analytics_enabled = TRUE`
	return r.queryProfiles(ctx, query)
}

func (r *profileRepository) queryProfiles(ctx context.Context, query string, args ...any) ([]*models.SocialProfile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.SocialProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (r *profileRepository) SetTokens(ctx context.Context, profileID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE social_profiles
		SET access_token = $1,
			refresh_token = $2,
			token_expires_at = $3,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, accessToken, refreshToken, expiresAt, time.Now(), profileID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *profileRepository) UpdateAnalytics(ctx context.Context, profile *models.SocialProfile) error {
	query := `
		UPDATE social_profiles
		SET followers_count = $1,
			connections_count = $2,
			page_views = $3,
			unique_page_views = $4,
			last_analytics_sync = $5,
			updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query, profile.FollowersCount, profile.ConnectionsCount,
		profile.PageViews, profile.UniquePageViews, time.Now(), time.Now(), profile.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *profileRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_profiles WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
