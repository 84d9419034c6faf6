package models

import (
	"database/sql"
	"time"
)

// ContentType is the closed set of post content variants.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeLink  ContentType = "link"
)

type Post struct {
	ID              int64          `db:"id" json:"id"`
	UserID          int64          `db:"user_id" json:"user_id"`
	ProfileID       int64          `db:"profile_id" json:"profile_id"`
	Title           string         `db:"title" json:"title"`
	Content         string         `db:"content" json:"content"`
	ContentType     ContentType    `db:"content_type" json:"content_type"`
	LinkURL         string         `db:"link_url" json:"link_url"`
	LinkTitle       string         `db:"link_title" json:"link_title"`
	LinkDescription string         `db:"link_description" json:"link_description"`
	Visibility      string         `db:"visibility" json:"visibility"`
	Status          string         `db:"status" json:"status"`
	ApprovalStatus  string         `db:"approval_status" json:"approval_status"`
	PublishNow      bool           `db:"publish_now" json:"publish_now"`
	ScheduledTime   sql.NullTime   `db:"scheduled_time" json:"scheduled_time"`
	PublishedAt     sql.NullTime   `db:"published_at" json:"published_at"`
	FailedAt        sql.NullTime   `db:"failed_at" json:"failed_at"`
	FailureReason   sql.NullString `db:"failure_reason" json:"failure_reason"`
	RetryCount      int            `db:"retry_count" json:"retry_count"`
	NextRetryAt     sql.NullTime   `db:"next_retry_at" json:"next_retry_at"`
	LinkedInPostID  string         `db:"linkedin_post_id" json:"linkedin_post_id"`
	LinkedInURN     string         `db:"linkedin_urn" json:"linkedin_urn"`
	LinkedInPostURL string         `db:"linkedin_post_url" json:"linkedin_post_url"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	ApprovalNotRequired = "not_required"
	ApprovalPending     = "pending"
	ApprovalApproved    = "approved"
	ApprovalRejected    = "rejected"
)

type MediaAsset struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	FileSize  int64     `db:"file_size"`
	FileURL   string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}
