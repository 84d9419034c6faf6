package models

import "time"

// AnalyticsSnapshot is one day's engagement record for a published post.
// At most one snapshot exists per (post, day); same-day syncs update in place.
type AnalyticsSnapshot struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	ProfileID      int64     `db:"profile_id" json:"profile_id"`
	SnapshotDate   time.Time `db:"snapshot_date" json:"snapshot_date"`
	Likes          int64     `db:"likes" json:"likes"`
	Comments       int64     `db:"comments" json:"comments"`
	Shares         int64     `db:"shares" json:"shares"`
	Reposts        int64     `db:"reposts" json:"reposts"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	Clicks         int64     `db:"clicks" json:"clicks"`
	EngagementRate float64   `db:"engagement_rate" json:"engagement_rate"`
	LastSynced     time.Time `db:"last_synced" json:"last_synced"`
	RawData        string    `db:"raw_data" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
