package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/transfer"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func testConfig() config.Config {
	return config.Config{
		SecretKey: testSecretKey,
		Publishing: config.Publishing{
			RetryEnabled:      true,
			MaxRetryAttempts:  3,
			RetryBaseDelay:    300 * time.Second,
			StuckPostMaxAge:   2 * time.Hour,
			DefaultVisibility: "PUBLIC",
		},
		Analytics: config.Analytics{
			SyncDelay:     5 * time.Minute,
			BatchSize:     50,
			RetentionDays: 30,
			PaceDelay:     time.Second,
		},
	}
}

// newStubDB returns a *sql.DB whose transactions are no-ops. The fake
// repositories never touch their tx argument, so service code that opens
// a real transaction can run against them.
func newStubDB() *sql.DB { return sql.OpenDB(stubConnector{}) }

type stubConnector struct{}

func (stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{}, nil }
func (stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type fakePostRepo struct {
	posts  map[int64]*models.Post
	nextID int64
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[int64]*models.Post), nextID: 1}
	for _, p := range posts {
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakePostRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *fakePostRepo) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	post.ID = r.nextID
	r.nextID++
	clone := *post
	r.posts[post.ID] = &clone
	return post.ID, nil
}

func (r *fakePostRepo) GetByUserID(_ context.Context, userID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if p.UserID == userID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakePostRepo) CheckByUserID(_ context.Context, postID, userID int64) (bool, error) {
	p, ok := r.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r *fakePostRepo) ListDue(_ context.Context, now time.Time) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledTime.Valid &&
			!p.ScheduledTime.Time.After(now) && p.ApprovalStatus != models.ApprovalPending {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListStuck(_ context.Context, cutoff time.Time) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledTime.Valid && p.ScheduledTime.Time.Before(cutoff) {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListPublishedSince(_ context.Context, since time.Time, limit int) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusPublished && p.PublishedAt.Valid && p.PublishedAt.Time.After(since) {
			clone := *p
			out = append(out, &clone)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakePostRepo) MarkScheduled(_ context.Context, postID int64, scheduledTime time.Time) error {
	p := r.posts[postID]
	p.Status = models.PostStatusScheduled
	p.ScheduledTime = sql.NullTime{Time: scheduledTime, Valid: true}
	return nil
}

func (r *fakePostRepo) MarkPublished(_ context.Context, postID int64, vendorPostID, urn, url string) error {
	p := r.posts[postID]
	p.Status = models.PostStatusPublished
	p.LinkedInPostID = vendorPostID
	p.LinkedInURN = urn
	p.LinkedInPostURL = url
	p.PublishedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (r *fakePostRepo) MarkFailed(_ context.Context, postID int64, reason string) error {
	p := r.posts[postID]
	p.Status = models.PostStatusFailed
	p.FailureReason = sql.NullString{String: reason, Valid: true}
	p.FailedAt = sql.NullTime{Time: time.Now(), Valid: true}
	p.RetryCount++
	return nil
}

func (r *fakePostRepo) SetNextRetry(_ context.Context, postID int64, retryAt time.Time) error {
	p := r.posts[postID]
	p.NextRetryAt = sql.NullTime{Time: retryAt, Valid: true}
	return nil
}

func (r *fakePostRepo) UpdateApprovalStatus(_ context.Context, postID int64, approvalStatus string) error {
	r.posts[postID].ApprovalStatus = approvalStatus
	return nil
}

func (r *fakePostRepo) UpdateScheduledTime(_ context.Context, postID int64, scheduledTime time.Time) error {
	r.posts[postID].ScheduledTime = sql.NullTime{Time: scheduledTime, Valid: true}
	return nil
}

func (r *fakePostRepo) CancelSchedule(_ context.Context, postID int64) error {
	p := r.posts[postID]
	p.Status = models.PostStatusDraft
	p.ScheduledTime = sql.NullTime{}
	return nil
}

func (r *fakePostRepo) Remove(_ context.Context, id int64) error {
	delete(r.posts, id)
	return nil
}

type fakeProfileRepo struct {
	profiles map[int64]*models.SocialProfile
	updated  []*models.SocialProfile
	failID   int64
}

func newFakeProfileRepo(profiles ...*models.SocialProfile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[int64]*models.SocialProfile)}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id int64) (*models.SocialProfile, error) {
	if r.failID != 0 && id == r.failID {
		return nil, errors.New("profile lookup failed")
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProfileRepo) Create(_ context.Context, _ *sql.Tx, profile *models.SocialProfile) (int64, error) {
	profile.ID = int64(len(r.profiles) + 1)
	r.profiles[profile.ID] = profile
	return profile.ID, nil
}

func (r *fakeProfileRepo) GetByUserID(_ context.Context, userID int64) ([]*models.SocialProfile, error) {
	var out []*models.SocialProfile
	for _, p := range r.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) CheckByUserID(_ context.Context, profileID, userID int64) (bool, error) {
	p, ok := r.profiles[profileID]
	return ok && p.UserID == userID, nil
}

func (r *fakeProfileRepo) ListExpiring(_ context.Context, _, _ time.Time) ([]*models.SocialProfile, error) {
	return nil, nil
}

func (r *fakeProfileRepo) ListAnalyticsEnabled(_ context.Context) ([]*models.SocialProfile, error) {
	var out []*models.SocialProfile
	for _, p := range r.profiles {
		if p.AnalyticsEnabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) SetTokens(_ context.Context, profileID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	p := r.profiles[profileID]
	p.AccessToken = accessToken
	p.RefreshToken = refreshToken
	p.TokenExpiresAt = expiresAt
	return nil
}

func (r *fakeProfileRepo) UpdateAnalytics(_ context.Context, profile *models.SocialProfile) error {
	clone := *profile
	r.updated = append(r.updated, &clone)
	r.profiles[profile.ID] = &clone
	return nil
}

func (r *fakeProfileRepo) Remove(_ context.Context, id int64) error {
	delete(r.profiles, id)
	return nil
}

type fakeHistoryRepo struct {
	entries []*models.PublishHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, ph *models.PublishHistory) (int64, error) {
	clone := *ph
	clone.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, &clone)
	return clone.ID, nil
}

func (r *fakeHistoryRepo) GetByPostID(_ context.Context, postID int64) ([]*models.PublishHistory, error) {
	var out []*models.PublishHistory
	for _, e := range r.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) GetByUserID(_ context.Context, userID int64) ([]*models.PublishHistory, error) {
	var out []*models.PublishHistory
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAnalyticsRepo struct {
	snapshots []*models.AnalyticsSnapshot
	updates   []*models.AnalyticsSnapshot
}

func (r *fakeAnalyticsRepo) GetByPostAndDate(_ context.Context, postID int64, date time.Time) (*models.AnalyticsSnapshot, error) {
	for _, s := range r.snapshots {
		if s.PostID == postID && s.SnapshotDate.Equal(date) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeAnalyticsRepo) Create(_ context.Context, snapshot *models.AnalyticsSnapshot) (int64, error) {
	clone := *snapshot
	clone.ID = int64(len(r.snapshots) + 1)
	r.snapshots = append(r.snapshots, &clone)
	return clone.ID, nil
}

func (r *fakeAnalyticsRepo) UpdateMetrics(_ context.Context, snapshot *models.AnalyticsSnapshot) error {
	clone := *snapshot
	r.updates = append(r.updates, &clone)
	for i, s := range r.snapshots {
		if s.ID == snapshot.ID {
			r.snapshots[i] = &clone
		}
	}
	return nil
}

func (r *fakeAnalyticsRepo) ListByPostSince(_ context.Context, postID int64, since time.Time) ([]*models.AnalyticsSnapshot, error) {
	var out []*models.AnalyticsSnapshot
	for _, s := range r.snapshots {
		if s.PostID == postID && !s.SnapshotDate.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

type enqueuedTask struct {
	taskType string
	payload  any
	delay    time.Duration
}

type fakeEnqueuer struct {
	tasks []enqueuedTask
	err   error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, taskType string, payload any, delay time.Duration) error {
	if e.err != nil {
		return e.err
	}
	e.tasks = append(e.tasks, enqueuedTask{taskType: taskType, payload: payload, delay: delay})
	return nil
}

func (e *fakeEnqueuer) byType(taskType string) []enqueuedTask {
	var out []enqueuedTask
	for _, t := range e.tasks {
		if t.taskType == taskType {
			out = append(out, t)
		}
	}
	return out
}

type fakePublisher struct {
	results []*PublishResult
	calls   int
}

func (p *fakePublisher) Publish(_ context.Context, _ *models.Post, _ *models.SocialProfile) *PublishResult {
	result := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	p.calls++
	return result
}

type fakeAnalyticsClient struct {
	engagement      *transfer.PostEngagement
	engagementErr   error
	engagementCalls int
	networkSize     int64
	edgeTypes       []string
	pageViews       int64
	uniquePageViews int64
}

func (c *fakeAnalyticsClient) GetPostEngagement(_ context.Context, _ string) (*transfer.PostEngagement, error) {
	c.engagementCalls++
	if c.engagementErr != nil {
		return nil, c.engagementErr
	}
	return c.engagement, nil
}

func (c *fakeAnalyticsClient) GetNetworkSize(_ context.Context, _, edgeType string) (int64, error) {
	c.edgeTypes = append(c.edgeTypes, edgeType)
	return c.networkSize, nil
}

func (c *fakeAnalyticsClient) GetOrganizationPageStatistics(_ context.Context, _ string) (int64, int64, error) {
	return c.pageViews, c.uniquePageViews, nil
}
