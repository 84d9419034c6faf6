package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/linkedin"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/internal/transfer"
	"github.com/zinye/socialflow/pkg/utils"
)

type AnalyticsService interface {
	SyncPost(ctx context.Context, postID int64) error
	SyncAll(ctx context.Context) error
	SyncProfile(ctx context.Context, profileID int64) error
	History(ctx context.Context, userID, postID int64, days int) ([]*models.AnalyticsSnapshot, error)
}

// analyticsClient is the slice of the LinkedIn client the sync paths
// need, kept narrow so tests can drop in a fake.
type analyticsClient interface {
	GetPostEngagement(ctx context.Context, postURN string) (*transfer.PostEngagement, error)
	GetNetworkSize(ctx context.Context, urn, edgeType string) (int64, error)
	GetOrganizationPageStatistics(ctx context.Context, companyID string) (pageViews, uniquePageViews int64, err error)
}

type analyticsService struct {
	cfg       config.Config
	pr        repository.PostRepository
	pf        repository.ProfileRepository
	ar        repository.AnalyticsRepository
	newClient func(accessToken string) analyticsClient
	paceDelay func(time.Duration)
}

func NewAnalyticsService(
	cfg config.Config,
	pr repository.PostRepository,
	pf repository.ProfileRepository,
	ar repository.AnalyticsRepository) AnalyticsService {
	return &analyticsService{
		cfg: cfg,
		pr:  pr,
		pf:  pf,
		ar:  ar,
		newClient: func(accessToken string) analyticsClient {
			return linkedin.NewClient(accessToken)
		},
		paceDelay: time.Sleep,
	}
}

// engagementRate is engagement per hundred impressions, rounded to two
// decimals. Zero impressions yields zero, never a division error.
func engagementRate(e *transfer.PostEngagement) float64 {
	if e.Impressions == 0 {
		return 0
	}
	total := e.Likes + e.Comments + e.Shares + e.Reposts
	rate := float64(total) / float64(e.Impressions) * 100
	return math.Round(rate*100) / 100
}

// snapshotDay truncates to the UTC calendar day the snapshot belongs to.
func snapshotDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// SyncPost fetches engagement for one published post and upserts the
// snapshot for today. Re-syncing the same day overwrites the metrics
// instead of inserting a second row.
func (s *analyticsService) SyncPost(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info(fmt.Sprintf("post %d no longer exists, skipping analytics sync", postID))
		return nil
	}

	if post.Status != models.PostStatusPublished || post.LinkedInURN == "" {
		slog.Info(fmt.Sprintf("post %d is not published on LinkedIn, skipping analytics sync", postID))
		return nil
	}

	profile, err := s.pf.GetByID(ctx, post.ProfileID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("social profile %d not found for post %d", post.ProfileID, postID)
	}
	if !profile.AnalyticsEnabled {
		slog.Info(fmt.Sprintf("analytics disabled for profile %d, skipping post %d", profile.ID, postID))
		return nil
	}
	if profile.AccessToken == "" {
		return fmt.Errorf("social profile %d has no access token", profile.ID)
	}

	accessToken, err := utils.Decrypt(profile.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	engagement, err := s.newClient(accessToken).GetPostEngagement(ctx, post.LinkedInURN)
	if err != nil {
		return err
	}

	return s.upsertSnapshot(ctx, post, engagement)
}

func (s *analyticsService) upsertSnapshot(ctx context.Context, post *models.Post, engagement *transfer.PostEngagement) error {
	today := snapshotDay(time.Now())

	rawData, err := json.Marshal(engagement)
	if err != nil {
		return err
	}

	existing, err := s.ar.GetByPostAndDate(ctx, post.ID, today)
	if err != nil {
		return err
	}

	snapshot := models.AnalyticsSnapshot{
		PostID:         post.ID,
		ProfileID:      post.ProfileID,
		SnapshotDate:   today,
		Likes:          engagement.Likes,
		Comments:       engagement.Comments,
		Shares:         engagement.Shares,
		Reposts:        engagement.Reposts,
		Impressions:    engagement.Impressions,
		Clicks:         engagement.Clicks,
		EngagementRate: engagementRate(engagement),
		LastSynced:     time.Now(),
		RawData:        string(rawData),
	}

	if existing != nil {
		snapshot.ID = existing.ID
		return s.ar.UpdateMetrics(ctx, &snapshot)
	}

	_, err = s.ar.Create(ctx, &snapshot)
	return err
}

// SyncAll walks recently published posts in one bounded, paced batch.
// Per-post failures are logged and never stop the batch.
func (s *analyticsService) SyncAll(ctx context.Context) error {
	since := time.Now().AddDate(0, 0, -s.cfg.Analytics.RetentionDays)

	posts, err := s.pr.ListPublishedSince(ctx, since, s.cfg.Analytics.BatchSize)
	if err != nil {
		return err
	}

	synced := 0
	failed := 0
	for i, post := range posts {
		if err := s.SyncPost(ctx, post.ID); err != nil {
			failed++
			slog.Info(fmt.Sprintf("error syncing analytics for post %d: %v", post.ID, err))
		} else {
			synced++
		}

		if i < len(posts)-1 {
			s.paceDelay(s.cfg.Analytics.PaceDelay)
		}
	}

	slog.Info(fmt.Sprintf("analytics sync completed: %d synced, %d failed", synced, failed))
	return nil
}

// SyncProfile refreshes follower and page statistics on the profile row.
func (s *analyticsService) SyncProfile(ctx context.Context, profileID int64) error {
	profile, err := s.pf.GetByID(ctx, profileID)
	if err != nil {
		return err
	}
	if profile == nil {
		return errors.New("social profile not found")
	}
	if !profile.AnalyticsEnabled {
		slog.Info(fmt.Sprintf("analytics disabled for profile %d, skipping", profileID))
		return nil
	}
	if profile.AccessToken == "" {
		return fmt.Errorf("social profile %d has no access token", profileID)
	}

	accessToken, err := utils.Decrypt(profile.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	client := s.newClient(accessToken)

	if profile.PlatformType == models.PlatformTypeOrganization {
		urn := linkedin.OrganizationURN(profile.LinkedInCompanyID)
		followers, err := client.GetNetworkSize(ctx, urn, "CompanyFollowedByMember")
		if err != nil {
			return err
		}
		profile.FollowersCount = followers

		pageViews, uniquePageViews, err := client.GetOrganizationPageStatistics(ctx, profile.LinkedInCompanyID)
		if err != nil {
			return err
		}
		profile.PageViews = pageViews
		profile.UniquePageViews = uniquePageViews
	} else {
		urn := linkedin.PersonURN(profile.LinkedInProfileID)
		connections, err := client.GetNetworkSize(ctx, urn, "ConnectedToMember")
		if err != nil {
			return err
		}
		profile.ConnectionsCount = connections
	}

	return s.pf.UpdateAnalytics(ctx, profile)
}

// History returns snapshot rows for the last N days of a post.
func (s *analyticsService) History(ctx context.Context, userID, postID int64, days int) ([]*models.AnalyticsSnapshot, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	if days <= 0 {
		days = s.cfg.Analytics.RetentionDays
	}
	since := snapshotDay(time.Now()).AddDate(0, 0, -days)

	return s.ar.ListByPostSince(ctx, postID, since)
}
