package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/internal/transfer"
)

// LinkedIn rejects share commentary longer than this.
const maxContentLength = 3000

const scheduledTimeLayout = "2006-01-02T15:04"

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Duplicate(ctx context.Context, userID, postID int64) (int64, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	cfg   config.Config
	db    *sql.DB
	pr    repository.PostRepository
	pf    repository.ProfileRepository
	st    repository.SettingsRepository
	ma    repository.MediaAssetRepository
	pm    repository.PostMediaRepository
	r2    *R2Service
	sched SchedulerService
}

func NewPostService(
	cfg config.Config,
	db *sql.DB,
	pr repository.PostRepository,
	pf repository.ProfileRepository,
	st repository.SettingsRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	r2 *R2Service,
	sched SchedulerService) PostService {
	return &postService{
		cfg:   cfg,
		db:    db,
		pr:    pr,
		pf:    pf,
		st:    st,
		ma:    ma,
		pm:    pm,
		r2:    r2,
		sched: sched,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Content == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}
	if len(pc.Content) > maxContentLength {
		err := fmt.Errorf("content exceeds %d characters", maxContentLength)
		slog.Info(err.Error())
		return 0, err
	}

	contentType := models.ContentType(pc.ContentType)
	switch contentType {
	case models.ContentTypeText, models.ContentTypeImage, models.ContentTypeLink:
	default:
		err := fmt.Errorf("unsupported content type: %s", pc.ContentType)
		slog.Info(err.Error())
		return 0, err
	}

	if contentType == models.ContentTypeLink && pc.LinkURL == "" {
		err := errors.New("link posts require a link URL")
		slog.Info(err.Error())
		return 0, err
	}
	if contentType == models.ContentTypeImage && len(files) == 0 {
		err := errors.New("image posts require an image file")
		slog.Info(err.Error())
		return 0, err
	}

	exists, err := s.pf.CheckByUserID(ctx, pc.ProfileID, userID)
	if err != nil {
		return 0, err
	}
	if !exists {
		err = errors.New("social profile doesn't exist")
		slog.Info(err.Error())
		return 0, err
	}

	profile, err := s.pf.GetByID(ctx, pc.ProfileID)
	if err != nil {
		return 0, err
	}

	var scheduledTime time.Time
	if !pc.PublishNow {
		if pc.ScheduledTime == "" {
			err = errors.New("scheduled time is required unless publishing now")
			slog.Info(err.Error())
			return 0, err
		}
		scheduledTime, err = time.Parse(scheduledTimeLayout, pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, err
		}
		if scheduledTime.Before(time.Now()) {
			err = errors.New("scheduled time must be in the future")
			slog.Info(err.Error())
			return 0, err
		}
	}

	visibility := pc.Visibility
	if visibility == "" {
		visibility = s.defaultVisibility(ctx, userID)
	}

	approvalStatus := models.ApprovalNotRequired
	if profile.ApprovalRequired {
		approvalStatus = models.ApprovalPending
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:          userID,
		ProfileID:       pc.ProfileID,
		Title:           pc.Title,
		Content:         pc.Content,
		ContentType:     contentType,
		LinkURL:         pc.LinkURL,
		LinkTitle:       pc.LinkTitle,
		LinkDescription: pc.LinkDescription,
		Visibility:      visibility,
		Status:          models.PostStatusDraft,
		ApprovalStatus:  approvalStatus,
		PublishNow:      pc.PublishNow,
	}
	if !pc.PublishNow {
		post.ScheduledTime = sql.NullTime{Time: scheduledTime, Valid: true}
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	if contentType == models.ContentTypeImage {
		if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
			return 0, fmt.Errorf("error processing files: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if approvalStatus == models.ApprovalPending {
		return postID, nil
	}

	if pc.PublishNow {
		if err := s.sched.PublishNow(ctx, userID, postID); err != nil {
			return postID, err
		}
		return postID, nil
	}

	if err := s.sched.SchedulePost(ctx, userID, postID, scheduledTime); err != nil {
		return postID, err
	}
	return postID, nil
}

func (s *postService) defaultVisibility(ctx context.Context, userID int64) string {
	settings, found, err := s.st.GetByUserID(ctx, userID)
	if err == nil && found && settings.DefaultVisibility != "" {
		return settings.DefaultVisibility
	}
	return s.cfg.Publishing.DefaultVisibility
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"jpeg": {}, "png": {}, "jpg": {}, "gif": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, fileType.MIME.Value, int64(len(fileBytes)), fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, fileType string, fileSize int64, file []byte) (int64, error) {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	err = s.r2.UploadToR2(ctx, id, file, fileType)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	ma := models.MediaAsset{
		UserID:   userID,
		FileName: id,
		FileType: fileType,
		FileSize: fileSize,
		FileURL:  fmt.Sprintf("%s/%s", s.cfg.R2.PublicURL, id),
	}

	assetID, err := s.ma.Create(ctx, tx, &ma)
	if err != nil {
		return 0, err
	}

	return assetID, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

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
		return nil, fmt.Errorf("Error getting post info")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	return posts, nil
}

// Duplicate copies a post's content into a fresh draft, media links
// included. Scheduling and publish state never carry over.
func (s *postService) Duplicate(ctx context.Context, userID, postID int64) (int64, error) {
	original, err := s.PostInfo(ctx, postID, userID)
	if err != nil {
		return 0, err
	}

	profile, err := s.pf.GetByID(ctx, original.ProfileID)
	if err != nil {
		return 0, err
	}

	approvalStatus := models.ApprovalNotRequired
	if profile != nil && profile.ApprovalRequired {
		approvalStatus = models.ApprovalPending
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	duplicate := models.Post{
		UserID:          original.UserID,
		ProfileID:       original.ProfileID,
		Title:           original.Title,
		Content:         original.Content,
		ContentType:     original.ContentType,
		LinkURL:         original.LinkURL,
		LinkTitle:       original.LinkTitle,
		LinkDescription: original.LinkDescription,
		Visibility:      original.Visibility,
		Status:          models.PostStatusDraft,
		ApprovalStatus:  approvalStatus,
	}

	duplicateID, err := s.pr.Create(ctx, tx, &duplicate)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	medias, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return 0, err
	}
	for _, media := range medias {
		postMedia := models.PostMedia{
			PostID:       duplicateID,
			AssetID:      media.AssetID,
			DisplayOrder: media.DisplayOrder,
		}
		if err = s.pm.Create(ctx, tx, &postMedia); err != nil {
			return 0, fmt.Errorf("error copying media link: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return duplicateID, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("User is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	if err = s.pm.Remove(ctx, postID); err != nil {
		return fmt.Errorf("Error removing post media")
	}

	if err = s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("Error removing post")
	}

	return nil
}
