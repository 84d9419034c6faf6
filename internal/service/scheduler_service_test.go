package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/queue"
)

func newTestScheduler(pr *fakePostRepo, pf *fakeProfileRepo, pub *fakePublisher, q *fakeEnqueuer) (SchedulerService, *fakeHistoryRepo) {
	ph := &fakeHistoryRepo{}
	return NewSchedulerService(testConfig(), pr, pf, ph, pub, q), ph
}

func draftPost(id, userID, profileID int64) *models.Post {
	return &models.Post{
		ID:             id,
		UserID:         userID,
		ProfileID:      profileID,
		Content:        "hello world",
		ContentType:    models.ContentTypeText,
		Status:         models.PostStatusDraft,
		ApprovalStatus: models.ApprovalNotRequired,
	}
}

func activeProfile(id, userID int64) *models.SocialProfile {
	return &models.SocialProfile{
		ID:                id,
		UserID:            userID,
		PlatformType:      models.PlatformTypePersonal,
		LinkedInProfileID: "abc123",
		AccessToken:       "encrypted",
		IsActive:          true,
	}
}

func TestSchedulePostMarksAndEnqueues(t *testing.T) {
	pr := newFakePostRepo(draftPost(1, 7, 1))
	pf := newFakeProfileRepo(activeProfile(1, 7))
	q := &fakeEnqueuer{}
	s, _ := newTestScheduler(pr, pf, &fakePublisher{}, q)

	when := time.Now().Add(time.Hour)
	if err := s.SchedulePost(context.Background(), 7, 1, when); err != nil {
		t.Fatalf("SchedulePost: %v", err)
	}

	post := pr.posts[1]
	if post.Status != models.PostStatusScheduled {
		t.Errorf("status = %s, want scheduled", post.Status)
	}
	if !post.ScheduledTime.Valid || !post.ScheduledTime.Time.Equal(when) {
		t.Errorf("scheduled_time = %v, want %v", post.ScheduledTime, when)
	}

	tasks := q.byType(queue.TaskTypePublishPost)
	if len(tasks) != 1 {
		t.Fatalf("enqueued %d publish tasks, want 1", len(tasks))
	}
	if tasks[0].delay > time.Hour || tasks[0].delay < 59*time.Minute {
		t.Errorf("delay = %v, want about 1h", tasks[0].delay)
	}
}

func TestSchedulePostRejectsPastTime(t *testing.T) {
	pr := newFakePostRepo(draftPost(1, 7, 1))
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, &fakeEnqueuer{})

	err := s.SchedulePost(context.Background(), 7, 1, time.Now().Add(-time.Minute))
	if err == nil || !strings.Contains(err.Error(), "future") {
		t.Fatalf("err = %v, want future-time error", err)
	}
}

func TestSchedulePostRejectsPendingApproval(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.ApprovalStatus = models.ApprovalPending
	pr := newFakePostRepo(post)
	q := &fakeEnqueuer{}
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, q)

	err := s.SchedulePost(context.Background(), 7, 1, time.Now().Add(time.Hour))
	if err == nil || !strings.Contains(err.Error(), "approval") {
		t.Fatalf("err = %v, want approval error", err)
	}
	if len(q.tasks) != 0 {
		t.Errorf("enqueued %d tasks, want 0", len(q.tasks))
	}
}

func TestSchedulePostRejectsWrongOwner(t *testing.T) {
	pr := newFakePostRepo(draftPost(1, 7, 1))
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, &fakeEnqueuer{})

	if err := s.SchedulePost(context.Background(), 99, 1, time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error for foreign post")
	}
}

func TestPublishPostSuccess(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusScheduled
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	pr := newFakePostRepo(post)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{
		Success: true,
		PostID:  "99887",
		URN:     "urn:li:share:99887",
		URL:     "https://www.linkedin.com/feed/update/urn:li:share:99887/",
	}}}
	q := &fakeEnqueuer{}
	s, ph := newTestScheduler(pr, pf, pub, q)

	if err := s.PublishPost(context.Background(), 1); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}

	got := pr.posts[1]
	if got.Status != models.PostStatusPublished {
		t.Errorf("status = %s, want published", got.Status)
	}
	if got.LinkedInURN != "urn:li:share:99887" {
		t.Errorf("urn = %s", got.LinkedInURN)
	}

	if len(ph.entries) != 1 || ph.entries[0].ErrorMessage != "" || ph.entries[0].Attempt != 1 {
		t.Errorf("history = %+v, want one clean attempt", ph.entries)
	}

	syncs := q.byType(queue.TaskTypeAnalyticsSync)
	if len(syncs) != 1 {
		t.Fatalf("enqueued %d analytics syncs, want 1", len(syncs))
	}
	if syncs[0].delay != testConfig().Analytics.SyncDelay {
		t.Errorf("sync delay = %v, want %v", syncs[0].delay, testConfig().Analytics.SyncDelay)
	}
}

func TestPublishPostSkipsCancelled(t *testing.T) {
	post := draftPost(1, 7, 1)
	pr := newFakePostRepo(post)
	pub := &fakePublisher{results: []*PublishResult{{Success: true}}}
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), pub, &fakeEnqueuer{})

	if err := s.PublishPost(context.Background(), 1); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if pub.calls != 0 {
		t.Errorf("publisher called %d times for a draft post, want 0", pub.calls)
	}
	if pr.posts[1].Status != models.PostStatusDraft {
		t.Errorf("status = %s, want draft untouched", pr.posts[1].Status)
	}
}

func TestPublishPostSkipsRescheduled(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusScheduled
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}
	pr := newFakePostRepo(post)
	pub := &fakePublisher{results: []*PublishResult{{Success: true}}}
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), pub, &fakeEnqueuer{})

	if err := s.PublishPost(context.Background(), 1); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if pub.calls != 0 {
		t.Errorf("publisher called %d times for a rescheduled post, want 0", pub.calls)
	}
}

func TestPublishPostSkipsMissing(t *testing.T) {
	pub := &fakePublisher{results: []*PublishResult{{Success: true}}}
	s, _ := newTestScheduler(newFakePostRepo(), newFakeProfileRepo(), pub, &fakeEnqueuer{})

	if err := s.PublishPost(context.Background(), 42); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if pub.calls != 0 {
		t.Errorf("publisher called for a missing post")
	}
}

func TestFailureSchedulesLinearRetries(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusScheduled
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	pr := newFakePostRepo(post)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: false, ErrorMessage: "rate limited"}}}
	q := &fakeEnqueuer{}
	s, ph := newTestScheduler(pr, pf, pub, q)

	if err := s.PublishPost(context.Background(), 1); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}

	got := pr.posts[1]
	if got.Status != models.PostStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1", got.RetryCount)
	}
	if !got.NextRetryAt.Valid {
		t.Error("next_retry_at not set")
	}
	if len(ph.entries) != 1 || ph.entries[0].ErrorMessage != "rate limited" {
		t.Errorf("history = %+v", ph.entries)
	}

	retries := q.byType(queue.TaskTypeRetryPost)
	if len(retries) != 1 {
		t.Fatalf("enqueued %d retries, want 1", len(retries))
	}
	if retries[0].delay != 300*time.Second {
		t.Errorf("first retry delay = %v, want 5m", retries[0].delay)
	}

	// Second attempt fails too, delay grows linearly.
	if err := s.RetryPost(context.Background(), 1); err != nil {
		t.Fatalf("RetryPost: %v", err)
	}
	retries = q.byType(queue.TaskTypeRetryPost)
	if len(retries) != 2 {
		t.Fatalf("enqueued %d retries, want 2", len(retries))
	}
	if retries[1].delay != 600*time.Second {
		t.Errorf("second retry delay = %v, want 10m", retries[1].delay)
	}
	if pr.posts[1].RetryCount != 2 {
		t.Errorf("retry_count = %d, want 2", pr.posts[1].RetryCount)
	}
}

func TestFailureStopsAtMaxAttempts(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusFailed
	post.RetryCount = 2
	pr := newFakePostRepo(post)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: false, ErrorMessage: "still broken"}}}
	q := &fakeEnqueuer{}
	s, _ := newTestScheduler(pr, pf, pub, q)

	if err := s.RetryPost(context.Background(), 1); err != nil {
		t.Fatalf("RetryPost: %v", err)
	}

	if pr.posts[1].RetryCount != 3 {
		t.Errorf("retry_count = %d, want 3", pr.posts[1].RetryCount)
	}
	if got := q.byType(queue.TaskTypeRetryPost); len(got) != 0 {
		t.Errorf("enqueued %d retries after final attempt, want 0", len(got))
	}
}

func TestRetryPostSkipsExhausted(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusFailed
	post.RetryCount = 3
	pr := newFakePostRepo(post)
	pub := &fakePublisher{results: []*PublishResult{{Success: true}}}
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), pub, &fakeEnqueuer{})

	if err := s.RetryPost(context.Background(), 1); err != nil {
		t.Fatalf("RetryPost: %v", err)
	}
	if pub.calls != 0 {
		t.Errorf("publisher called for an exhausted post")
	}
}

func TestRetryDisabledByConfig(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusScheduled
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	pr := newFakePostRepo(post)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: false, ErrorMessage: "boom"}}}
	q := &fakeEnqueuer{}

	cfg := testConfig()
	cfg.Publishing.RetryEnabled = false
	s := NewSchedulerService(cfg, pr, pf, &fakeHistoryRepo{}, pub, q)

	if err := s.PublishPost(context.Background(), 1); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if got := q.byType(queue.TaskTypeRetryPost); len(got) != 0 {
		t.Errorf("enqueued %d retries with retries disabled, want 0", len(got))
	}
}

func TestApprovePublishNowPublishesImmediately(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.ApprovalStatus = models.ApprovalPending
	post.PublishNow = true
	pr := newFakePostRepo(post)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: true, PostID: "1", URN: "urn:li:share:1", URL: "u"}}}
	s, _ := newTestScheduler(pr, pf, pub, &fakeEnqueuer{})

	if err := s.Approve(context.Background(), 7, 1); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if pub.calls != 1 {
		t.Errorf("publisher called %d times, want 1", pub.calls)
	}
	if pr.posts[1].ApprovalStatus != models.ApprovalApproved {
		t.Errorf("approval = %s, want approved", pr.posts[1].ApprovalStatus)
	}
	if pr.posts[1].Status != models.PostStatusPublished {
		t.Errorf("status = %s, want published", pr.posts[1].Status)
	}
}

func TestApproveSchedulesPendingDraft(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.ApprovalStatus = models.ApprovalPending
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(30 * time.Minute), Valid: true}
	pr := newFakePostRepo(post)
	q := &fakeEnqueuer{}
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, q)

	if err := s.Approve(context.Background(), 7, 1); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	got := pr.posts[1]
	if got.Status != models.PostStatusScheduled {
		t.Errorf("status = %s, want scheduled", got.Status)
	}
	if got.ApprovalStatus != models.ApprovalApproved {
		t.Errorf("approval = %s, want approved", got.ApprovalStatus)
	}

	tasks := q.byType(queue.TaskTypePublishPost)
	if len(tasks) != 1 {
		t.Fatalf("enqueued %d publish tasks, want 1", len(tasks))
	}
	if tasks[0].delay <= 0 || tasks[0].delay > 30*time.Minute {
		t.Errorf("delay = %v, want about 30m", tasks[0].delay)
	}
}

func TestApproveAfterScheduledTimePublishesPromptly(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.ApprovalStatus = models.ApprovalPending
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(-10 * time.Minute), Valid: true}
	pr := newFakePostRepo(post)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: true, PostID: "1", URN: "urn:li:share:1", URL: "u"}}}
	q := &fakeEnqueuer{}
	s, _ := newTestScheduler(pr, pf, pub, q)

	if err := s.Approve(context.Background(), 7, 1); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	tasks := q.byType(queue.TaskTypePublishPost)
	if len(tasks) != 1 {
		t.Fatalf("enqueued %d publish tasks, want 1", len(tasks))
	}
	if tasks[0].delay != 0 {
		t.Errorf("delay = %v, want immediate", tasks[0].delay)
	}

	// The enqueued task must go through: the stored time is in the past,
	// so no guard may treat the post as rescheduled.
	if err := s.PublishPost(context.Background(), 1); err != nil {
		t.Fatalf("PublishPost: %v", err)
	}
	if pr.posts[1].Status != models.PostStatusPublished {
		t.Errorf("status = %s, want published", pr.posts[1].Status)
	}
}

func TestApproveWithoutScheduledTimeStaysDraft(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.ApprovalStatus = models.ApprovalPending
	pr := newFakePostRepo(post)
	q := &fakeEnqueuer{}
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, q)

	if err := s.Approve(context.Background(), 7, 1); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if pr.posts[1].Status != models.PostStatusDraft {
		t.Errorf("status = %s, want draft", pr.posts[1].Status)
	}
	if pr.posts[1].ApprovalStatus != models.ApprovalApproved {
		t.Errorf("approval = %s, want approved", pr.posts[1].ApprovalStatus)
	}
	if len(q.tasks) != 0 {
		t.Errorf("enqueued %d tasks, want 0", len(q.tasks))
	}
}

func TestRecoverStuckPostsPublishesOverdue(t *testing.T) {
	stuck := draftPost(1, 7, 1)
	stuck.Status = models.PostStatusScheduled
	stuck.ScheduledTime = sql.NullTime{Time: time.Now().Add(-3 * time.Hour), Valid: true}
	recent := draftPost(2, 7, 1)
	recent.Status = models.PostStatusScheduled
	recent.ScheduledTime = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}

	pr := newFakePostRepo(stuck, recent)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: true, PostID: "1", URN: "urn:li:share:1", URL: "u"}}}
	s, _ := newTestScheduler(pr, pf, pub, &fakeEnqueuer{})

	if err := s.RecoverStuckPosts(context.Background()); err != nil {
		t.Fatalf("RecoverStuckPosts: %v", err)
	}

	if pub.calls != 1 {
		t.Errorf("publisher called %d times, want 1", pub.calls)
	}
	if pr.posts[1].Status != models.PostStatusPublished {
		t.Errorf("stuck post status = %s, want published", pr.posts[1].Status)
	}
	// Posts inside the staleness window belong to the due sweep.
	if pr.posts[2].Status != models.PostStatusScheduled {
		t.Errorf("recent post status = %s, want scheduled", pr.posts[2].Status)
	}
}

func TestRecoverStuckPostsSurvivesFailures(t *testing.T) {
	broken := draftPost(1, 7, 2)
	broken.Status = models.PostStatusScheduled
	broken.ScheduledTime = sql.NullTime{Time: time.Now().Add(-4 * time.Hour), Valid: true}
	healthy := draftPost(2, 7, 1)
	healthy.Status = models.PostStatusScheduled
	healthy.ScheduledTime = sql.NullTime{Time: time.Now().Add(-3 * time.Hour), Valid: true}

	pr := newFakePostRepo(broken, healthy)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pf.failID = 2
	pub := &fakePublisher{results: []*PublishResult{{Success: true, PostID: "1", URN: "urn:li:share:1", URL: "u"}}}
	s, _ := newTestScheduler(pr, pf, pub, &fakeEnqueuer{})

	if err := s.RecoverStuckPosts(context.Background()); err != nil {
		t.Fatalf("RecoverStuckPosts: %v", err)
	}

	if pr.posts[2].Status != models.PostStatusPublished {
		t.Errorf("healthy post status = %s, want published", pr.posts[2].Status)
	}
	if pr.posts[1].Status != models.PostStatusScheduled {
		t.Errorf("broken post status = %s, want scheduled", pr.posts[1].Status)
	}
}

func TestApproveRequiresPending(t *testing.T) {
	pr := newFakePostRepo(draftPost(1, 7, 1))
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, &fakeEnqueuer{})

	if err := s.Approve(context.Background(), 7, 1); err == nil {
		t.Fatal("expected error approving a post that is not pending")
	}
}

func TestRejectCancelsSchedule(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusScheduled
	post.ApprovalStatus = models.ApprovalPending
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}
	pr := newFakePostRepo(post)
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, &fakeEnqueuer{})

	if err := s.Reject(context.Background(), 7, 1); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	got := pr.posts[1]
	if got.ApprovalStatus != models.ApprovalRejected {
		t.Errorf("approval = %s, want rejected", got.ApprovalStatus)
	}
	if got.Status != models.PostStatusDraft || got.ScheduledTime.Valid {
		t.Errorf("post = %+v, want schedule cleared", got)
	}
}

func TestRescheduleUpdatesTimeAndEnqueues(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusScheduled
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}
	pr := newFakePostRepo(post)
	q := &fakeEnqueuer{}
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, q)

	when := time.Now().Add(2 * time.Hour)
	if err := s.Reschedule(context.Background(), 7, 1, when); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !pr.posts[1].ScheduledTime.Time.Equal(when) {
		t.Errorf("scheduled_time = %v, want %v", pr.posts[1].ScheduledTime.Time, when)
	}
	if len(q.byType(queue.TaskTypePublishPost)) != 1 {
		t.Error("expected a publish task for the new time")
	}
}

func TestRescheduleRejectsDraft(t *testing.T) {
	pr := newFakePostRepo(draftPost(1, 7, 1))
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, &fakeEnqueuer{})

	if err := s.Reschedule(context.Background(), 7, 1, time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error rescheduling a draft")
	}
}

func TestCancelRevertsToDraft(t *testing.T) {
	post := draftPost(1, 7, 1)
	post.Status = models.PostStatusScheduled
	post.ScheduledTime = sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}
	pr := newFakePostRepo(post)
	s, _ := newTestScheduler(pr, newFakeProfileRepo(), &fakePublisher{}, &fakeEnqueuer{})

	if err := s.Cancel(context.Background(), 7, 1); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if pr.posts[1].Status != models.PostStatusDraft {
		t.Errorf("status = %s, want draft", pr.posts[1].Status)
	}
}

func TestPublishNowReportsFailure(t *testing.T) {
	pr := newFakePostRepo(draftPost(1, 7, 1))
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: false, ErrorMessage: "token expired"}}}
	s, _ := newTestScheduler(pr, pf, pub, &fakeEnqueuer{})

	err := s.PublishNow(context.Background(), 7, 1)
	if err == nil || !strings.Contains(err.Error(), "token expired") {
		t.Fatalf("err = %v, want publish failure with reason", err)
	}
}

func TestProcessDuePostsPublishesAll(t *testing.T) {
	due1 := draftPost(1, 7, 1)
	due1.Status = models.PostStatusScheduled
	due1.ScheduledTime = sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	due2 := draftPost(2, 7, 1)
	due2.Status = models.PostStatusScheduled
	due2.ScheduledTime = sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}
	future := draftPost(3, 7, 1)
	future.Status = models.PostStatusScheduled
	future.ScheduledTime = sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}

	pr := newFakePostRepo(due1, due2, future)
	pf := newFakeProfileRepo(activeProfile(1, 7))
	pub := &fakePublisher{results: []*PublishResult{{Success: true, PostID: "1", URN: "urn:li:share:1", URL: "u"}}}
	s, _ := newTestScheduler(pr, pf, pub, &fakeEnqueuer{})

	if err := s.ProcessDuePosts(context.Background()); err != nil {
		t.Fatalf("ProcessDuePosts: %v", err)
	}
	if pub.calls != 2 {
		t.Errorf("publisher called %d times, want 2", pub.calls)
	}
	if pr.posts[3].Status != models.PostStatusScheduled {
		t.Errorf("future post status = %s, want scheduled", pr.posts[3].Status)
	}
}
