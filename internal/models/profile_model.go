package models

import (
	"database/sql"
	"time"
)

const (
	PlatformTypePersonal     = "personal"
	PlatformTypeOrganization = "organization"
)

// SocialProfile is a connected LinkedIn account (personal profile or
// organization page) that owns the credentials used for publishing.
type SocialProfile struct {
	ID                int64        `db:"id" json:"id"`
	UserID            int64        `db:"user_id" json:"user_id"`
	ProfileName       string       `db:"profile_name" json:"profile_name"`
	PlatformType      string       `db:"platform_type" json:"platform_type"`
	LinkedInProfileID string       `db:"linkedin_profile_id" json:"linkedin_profile_id"`
	LinkedInCompanyID string       `db:"linkedin_company_id" json:"linkedin_company_id"`
	AccessToken       string       `db:"access_token" json:"-"`
	RefreshToken      string       `db:"refresh_token" json:"-"`
	TokenExpiresAt    time.Time    `db:"token_expires_at" json:"token_expires_at"`
	IsActive          bool         `db:"is_active" json:"is_active"`
	AnalyticsEnabled  bool         `db:"analytics_enabled" json:"analytics_enabled"`
	ApprovalRequired  bool         `db:"approval_required" json:"approval_required"`
	FollowersCount    int64        `db:"followers_count" json:"followers_count"`
	ConnectionsCount  int64        `db:"connections_count" json:"connections_count"`
	PageViews         int64        `db:"page_views" json:"page_views"`
	UniquePageViews   int64        `db:"unique_page_views" json:"unique_page_views"`
	LastAnalyticsSync sql.NullTime `db:"last_analytics_sync" json:"last_analytics_sync"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// VendorID returns the LinkedIn identity used as the post author.
func (p *SocialProfile) VendorID() string {
	if p.PlatformType == PlatformTypeOrganization {
		return p.LinkedInCompanyID
	}
	return p.LinkedInProfileID
}
