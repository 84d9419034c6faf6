package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/zinye/socialflow/internal/models"
)

const postColumns = `id, user_id, profile_id, title, content, content_type, link_url, link_title,
		link_description, visibility, status, approval_status, publish_now, scheduled_time,
		published_at, failed_at, failure_reason, retry_count, next_retry_at,
		linkedin_post_id, linkedin_urn, linkedin_post_url, created_at, updated_at`

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	ListStuck(ctx context.Context, cutoff time.Time) ([]*models.Post, error)
	ListPublishedSince(ctx context.Context, since time.Time, limit int) ([]*models.Post, error)
	MarkScheduled(ctx context.Context, postID int64, scheduledTime time.Time) error
	MarkPublished(ctx context.Context, postID int64, vendorPostID, urn, url string) error
	MarkFailed(ctx context.Context, postID int64, reason string) error
	SetNextRetry(ctx context.Context, postID int64, retryAt time.Time) error
	UpdateApprovalStatus(ctx context.Context, postID int64, approvalStatus string) error
	UpdateScheduledTime(ctx context.Context, postID int64, scheduledTime time.Time) error
	CancelSchedule(ctx context.Context, postID int64) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID, &post.UserID, &post.ProfileID, &post.Title, &post.Content, &post.ContentType,
		&post.LinkURL, &post.LinkTitle, &post.LinkDescription, &post.Visibility,
		&post.Status, &post.ApprovalStatus, &post.PublishNow, &post.ScheduledTime,
		&post.PublishedAt, &post.FailedAt, &post.FailureReason, &post.RetryCount, &post.NextRetryAt,
		&post.LinkedInPostID, &post.LinkedInURN, &post.LinkedInPostURL, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, profile_id, title, content, content_type, link_url, link_title,
			link_description, visibility, status, approval_status, publish_now, scheduled_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	args := []any{post.UserID, post.ProfileID, post.Title, post.Content, post.ContentType,
		post.LinkURL, post.LinkTitle, post.LinkDescription, post.Visibility,
		post.Status, post.ApprovalStatus, post.PublishNow, post.ScheduledTime}

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

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryPosts(ctx, query, userID)
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ListDue selects scheduled posts whose time has come and that are not
// awaiting approval. Callers must still re-check status per post before
// publishing.
func (r *postRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_time <= $2 AND approval_status != $3
		ORDER BY scheduled_time ASC`
	return r.queryPosts(ctx, query, models.PostStatusScheduled, now, models.ApprovalPending)
}

func (r *postRepository) ListStuck(ctx context.Context, cutoff time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_time < $2
		ORDER BY scheduled_time ASC`
	return r.queryPosts(ctx, query, models.PostStatusScheduled, cutoff)
}

func (r *postRepository) ListPublishedSince(ctx context.Context, since time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND linkedin_post_id != '' AND published_at >= $2
		ORDER BY published_at DESC
		LIMIT $3`
	return r.queryPosts(ctx, query, models.PostStatusPublished, since, limit)
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) MarkScheduled(ctx context.Context, postID int64, scheduledTime time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_time = $2,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, scheduledTime, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) MarkPublished(ctx context.Context, postID int64, vendorPostID, urn, url string) error {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = $2,
			linkedin_post_id = $3,
			linkedin_urn = $4,
			linkedin_post_url = $5,
			failed_at = NULL,
			failure_reason = NULL,
			updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, time.Now(), vendorPostID, urn, url, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkFailed records the failure and bumps retry_count. The counter only
// ever increases.
func (r *postRepository) MarkFailed(ctx context.Context, postID int64, reason string) error {
	query := `
		UPDATE posts
		SET status = $1,
			failed_at = $2,
			failure_reason = $3,
			retry_count = retry_count + 1,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, time.Now(), reason, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetNextRetry(ctx context.Context, postID int64, retryAt time.Time) error {
	query := `
		UPDATE posts
		SET next_retry_at = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, retryAt, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateApprovalStatus(ctx context.Context, postID int64, approvalStatus string) error {
	query := `
		UPDATE posts
		SET approval_status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, approvalStatus, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) UpdateScheduledTime(ctx context.Context, postID int64, scheduledTime time.Time) error {
	query := `
		UPDATE posts
		SET scheduled_time = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, scheduledTime, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CancelSchedule(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_time = NULL,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusDraft, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
