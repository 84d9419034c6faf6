package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/queue"
	"github.com/zinye/socialflow/internal/repository"
)

type SchedulerService interface {
	SchedulePost(ctx context.Context, userID, postID int64, scheduledTime time.Time) error
	PublishPost(ctx context.Context, postID int64) error
	PublishNow(ctx context.Context, userID, postID int64) error
	RetryPost(ctx context.Context, postID int64) error
	ProcessDuePosts(ctx context.Context) error
	RecoverStuckPosts(ctx context.Context) error
	Approve(ctx context.Context, userID, postID int64) error
	Reject(ctx context.Context, userID, postID int64) error
	Reschedule(ctx context.Context, userID, postID int64, scheduledTime time.Time) error
	Cancel(ctx context.Context, userID, postID int64) error
}

type schedulerService struct {
	cfg config.Config
	pr  repository.PostRepository
	pf  repository.ProfileRepository
	ph  repository.PublishHistoryRepository
	pub Publisher
	q   queue.Enqueuer
}

func NewSchedulerService(
	cfg config.Config,
	pr repository.PostRepository,
	pf repository.ProfileRepository,
	ph repository.PublishHistoryRepository,
	pub Publisher,
	q queue.Enqueuer) SchedulerService {
	return &schedulerService{
		cfg: cfg,
		pr:  pr,
		pf:  pf,
		ph:  ph,
		pub: pub,
		q:   q,
	}
}

func (s *schedulerService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errors.New("Post doesn't exist")
	}
	return post, nil
}

func (s *schedulerService) SchedulePost(ctx context.Context, userID, postID int64, scheduledTime time.Time) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusFailed {
		return fmt.Errorf("cannot schedule post in status %s", post.Status)
	}
	if post.ApprovalStatus == models.ApprovalPending {
		return errors.New("post is awaiting approval")
	}
	if post.ApprovalStatus == models.ApprovalRejected {
		return errors.New("post was rejected")
	}
	if scheduledTime.Before(time.Now()) {
		return errors.New("scheduled time must be in the future")
	}

	if err := s.pr.MarkScheduled(ctx, postID, scheduledTime); err != nil {
		return err
	}

	return s.q.Enqueue(ctx, queue.TaskTypePublishPost, queue.PostTaskPayload{PostID: postID}, time.Until(scheduledTime))
}

// PublishPost is the queue and sweep entry point. The post is re-read
// and every guard re-checked here, so a stale task for a post that was
// meanwhile cancelled, rescheduled or already published is a no-op.
func (s *schedulerService) PublishPost(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info(fmt.Sprintf("post %d no longer exists, skipping publish", postID))
		return nil
	}

	if post.Status != models.PostStatusScheduled {
		slog.Info(fmt.Sprintf("post %d is %s, not scheduled, skipping publish", postID, post.Status))
		return nil
	}
	if post.ApprovalStatus == models.ApprovalPending {
		slog.Info(fmt.Sprintf("post %d is awaiting approval, skipping publish", postID))
		return nil
	}
	if post.ScheduledTime.Valid && post.ScheduledTime.Time.After(time.Now()) {
		slog.Info(fmt.Sprintf("post %d was rescheduled to %s, skipping publish", postID, post.ScheduledTime.Time))
		return nil
	}

	return s.attempt(ctx, post)
}

// attempt runs one publish attempt for an already guarded post.
func (s *schedulerService) attempt(ctx context.Context, post *models.Post) error {
	profile, err := s.pf.GetByID(ctx, post.ProfileID)
	if err != nil {
		return err
	}

	result := s.pub.Publish(ctx, post, profile)
	if result.Success {
		if err := s.pr.MarkPublished(ctx, post.ID, result.PostID, result.URN, result.URL); err != nil {
			return err
		}
		s.recordHistory(ctx, post, "")

		err = s.q.Enqueue(ctx, queue.TaskTypeAnalyticsSync, queue.PostTaskPayload{PostID: post.ID}, s.cfg.Analytics.SyncDelay)
		if err != nil {
			slog.Info(err.Error())
		}
		return nil
	}

	return s.handleFailure(ctx, post, result.ErrorMessage)
}

// handleFailure moves the post to failed and, while attempts remain,
// schedules the next retry with a linearly growing delay.
func (s *schedulerService) handleFailure(ctx context.Context, post *models.Post, reason string) error {
	if err := s.pr.MarkFailed(ctx, post.ID, reason); err != nil {
		return err
	}
	s.recordHistory(ctx, post, reason)

	attempts := post.RetryCount + 1
	if !s.cfg.Publishing.RetryEnabled || attempts >= s.cfg.Publishing.MaxRetryAttempts {
		slog.Info(fmt.Sprintf("post %d failed permanently after %d attempts: %s", post.ID, attempts, reason))
		return nil
	}

	delay := time.Duration(attempts) * s.cfg.Publishing.RetryBaseDelay
	if err := s.pr.SetNextRetry(ctx, post.ID, time.Now().Add(delay)); err != nil {
		return err
	}

	return s.q.Enqueue(ctx, queue.TaskTypeRetryPost, queue.PostTaskPayload{PostID: post.ID}, delay)
}

func (s *schedulerService) recordHistory(ctx context.Context, post *models.Post, errorMessage string) {
	history := models.PublishHistory{
		UserID:       post.UserID,
		PostID:       post.ID,
		ProfileID:    post.ProfileID,
		Attempt:      post.RetryCount + 1,
		ErrorMessage: errorMessage,
	}
	if _, err := s.ph.Create(ctx, &history); err != nil {
		slog.Info(fmt.Sprintf("error saving publish history for post %d: %v", post.ID, err))
	}
}

// RetryPost re-attempts a failed post from the retry queue.
func (s *schedulerService) RetryPost(ctx context.Context, postID int64) error {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		slog.Info(fmt.Sprintf("post %d no longer exists, skipping retry", postID))
		return nil
	}

	if post.Status != models.PostStatusFailed {
		slog.Info(fmt.Sprintf("post %d is %s, not failed, skipping retry", postID, post.Status))
		return nil
	}
	if post.ApprovalStatus == models.ApprovalPending {
		slog.Info(fmt.Sprintf("post %d is awaiting approval, skipping retry", postID))
		return nil
	}
	if post.RetryCount >= s.cfg.Publishing.MaxRetryAttempts {
		slog.Info(fmt.Sprintf("post %d exhausted its retry attempts", postID))
		return nil
	}

	return s.attempt(ctx, post)
}

// ProcessDuePosts publishes every scheduled post whose time has come.
// A failure on one post never blocks the rest of the sweep.
func (s *schedulerService) ProcessDuePosts(ctx context.Context) error {
	posts, err := s.pr.ListDue(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, post := range posts {
		if err := s.PublishPost(ctx, post.ID); err != nil {
			slog.Info(fmt.Sprintf("error publishing due post %d: %v", post.ID, err))
		}
	}
	return nil
}

// RecoverStuckPosts attempts posts that stayed scheduled long past
// their time, usually because a queued task was lost.
func (s *schedulerService) RecoverStuckPosts(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.Publishing.StuckPostMaxAge)
	posts, err := s.pr.ListStuck(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, post := range posts {
		slog.Info(fmt.Sprintf("recovering stuck post %d scheduled for %s", post.ID, post.ScheduledTime.Time))
		if err := s.PublishPost(ctx, post.ID); err != nil {
			slog.Info(fmt.Sprintf("error recovering stuck post %d: %v", post.ID, err))
		}
	}
	return nil
}

func (s *schedulerService) Approve(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.ApprovalStatus != models.ApprovalPending {
		return errors.New("post is not awaiting approval")
	}

	if err := s.pr.UpdateApprovalStatus(ctx, postID, models.ApprovalApproved); err != nil {
		return err
	}

	if post.PublishNow {
		post.ApprovalStatus = models.ApprovalApproved
		return s.attempt(ctx, post)
	}

	// Approval-gated posts sit in draft with their requested time stored,
	// so the draft-to-scheduled transition happens here. A stored time that
	// passed while the post waited for approval publishes right away.
	if !post.ScheduledTime.Valid {
		return nil
	}

	if post.Status != models.PostStatusScheduled {
		if err := s.pr.MarkScheduled(ctx, postID, post.ScheduledTime.Time); err != nil {
			return err
		}
	}

	delay := time.Until(post.ScheduledTime.Time)
	if delay < 0 {
		delay = 0
	}
	return s.q.Enqueue(ctx, queue.TaskTypePublishPost, queue.PostTaskPayload{PostID: postID}, delay)
}

func (s *schedulerService) Reject(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.ApprovalStatus != models.ApprovalPending {
		return errors.New("post is not awaiting approval")
	}

	if err := s.pr.UpdateApprovalStatus(ctx, postID, models.ApprovalRejected); err != nil {
		return err
	}

	if post.Status == models.PostStatusScheduled {
		return s.pr.CancelSchedule(ctx, postID)
	}
	return nil
}

func (s *schedulerService) Reschedule(ctx context.Context, userID, postID int64, scheduledTime time.Time) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusScheduled {
		return fmt.Errorf("cannot reschedule post in status %s", post.Status)
	}
	if scheduledTime.Before(time.Now()) {
		return errors.New("scheduled time must be in the future")
	}

	if err := s.pr.UpdateScheduledTime(ctx, postID, scheduledTime); err != nil {
		return err
	}

	return s.q.Enqueue(ctx, queue.TaskTypePublishPost, queue.PostTaskPayload{PostID: postID}, time.Until(scheduledTime))
}

func (s *schedulerService) Cancel(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusScheduled {
		return fmt.Errorf("cannot cancel post in status %s", post.Status)
	}

	return s.pr.CancelSchedule(ctx, postID)
}

// PublishNow is the manual publish entry point.
func (s *schedulerService) PublishNow(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusFailed {
		return fmt.Errorf("cannot publish post in status %s", post.Status)
	}
	if post.ApprovalStatus == models.ApprovalPending {
		return errors.New("post is awaiting approval")
	}
	if post.ApprovalStatus == models.ApprovalRejected {
		return errors.New("post was rejected")
	}

	if err := s.attempt(ctx, post); err != nil {
		return err
	}

	updated, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if updated != nil && updated.Status == models.PostStatusFailed {
		return fmt.Errorf("failed to publish post: %s", updated.FailureReason.String)
	}
	return nil
}
