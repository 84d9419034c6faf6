package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/zinye/socialflow/internal/models"
)

const snapshotColumns = `id, post_id, profile_id, snapshot_date, likes, comments, shares, reposts,
		impressions, clicks, engagement_rate, last_synced, raw_data, created_at`

type AnalyticsRepository interface {
	GetByPostAndDate(ctx context.Context, postID int64, date time.Time) (*models.AnalyticsSnapshot, error)
	Create(ctx context.Context, snapshot *models.AnalyticsSnapshot) (int64, error)
	UpdateMetrics(ctx context.Context, snapshot *models.AnalyticsSnapshot) error
	ListByPostSince(ctx context.Context, postID int64, since time.Time) ([]*models.AnalyticsSnapshot, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func scanSnapshot(row interface{ Scan(...any) error }) (*models.AnalyticsSnapshot, error) {
	var s models.AnalyticsSnapshot
	err := row.Scan(
		&s.ID, &s.PostID, &s.ProfileID, &s.SnapshotDate, &s.Likes, &s.Comments, &s.Shares, &s.Reposts,
		&s.Impressions, &s.Clicks, &s.EngagementRate, &s.LastSynced, &s.RawData, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *analyticsRepository) GetByPostAndDate(ctx context.Context, postID int64, date time.Time) (*models.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM analytics_snapshots
		WHERE post_id = $1 AND snapshot_date = $2`
	snapshot, err := scanSnapshot(r.db.QueryRowContext(ctx, query, postID, date))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return snapshot, nil
}

func (r *analyticsRepository) Create(ctx context.Context, snapshot *models.AnalyticsSnapshot) (int64, error) {
	query := `
		INSERT INTO analytics_snapshots (post_id, profile_id, snapshot_date, likes, comments, shares,
			reposts, impressions, clicks, engagement_rate, last_synced, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, snapshot.PostID, snapshot.ProfileID, snapshot.SnapshotDate,
		snapshot.Likes, snapshot.Comments, snapshot.Shares, snapshot.Reposts, snapshot.Impressions,
		snapshot.Clicks, snapshot.EngagementRate, snapshot.LastSynced, snapshot.RawData).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *analyticsRepository) UpdateMetrics(ctx context.Context, snapshot *models.AnalyticsSnapshot) error {
	query := `
		UPDATE analytics_snapshots
		SET likes = $1,
			comments = $2,
			shares = $3,
			reposts = $4,
			impressions = $5,
			clicks = $6,
			engagement_rate = $7,
			last_synced = $8,
			raw_data = $9
		WHERE id = $10
	`
	_, err := r.db.ExecContext(ctx, query, snapshot.Likes, snapshot.Comments, snapshot.Shares,
		snapshot.Reposts, snapshot.Impressions, snapshot.Clicks, snapshot.EngagementRate,
		snapshot.LastSynced, snapshot.RawData, snapshot.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *analyticsRepository) ListByPostSince(ctx context.Context, postID int64, since time.Time) ([]*models.AnalyticsSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM analytics_snapshots
		WHERE post_id = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date DESC`

	rows, err := r.db.QueryContext(ctx, query, postID, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.AnalyticsSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}
