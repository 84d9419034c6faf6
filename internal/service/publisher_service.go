package service

import (
	"context"
	"fmt"
	"log/slog"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/linkedin"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/pkg/utils"
)

// PublishResult is the outcome of a single publish attempt. Vendor
// failures never surface as errors, only as Success=false, so callers
// can always decide the next transition.
type PublishResult struct {
	Success      bool
	PostID       string
	URN          string
	URL          string
	ErrorMessage string
}

type Publisher interface {
	Publish(ctx context.Context, post *models.Post, profile *models.SocialProfile) *PublishResult
}

type linkedinPublisher struct {
	cfg       config.Config
	pm        repository.PostMediaRepository
	ma        repository.MediaAssetRepository
	newClient func(accessToken string) *linkedin.Client
}

func NewPublisher(
	cfg config.Config,
	pm repository.PostMediaRepository,
	ma repository.MediaAssetRepository) Publisher {
	return &linkedinPublisher{
		cfg:       cfg,
		pm:        pm,
		ma:        ma,
		newClient: linkedin.NewClient,
	}
}

func failure(message string) *PublishResult {
	slog.Info(message)
	return &PublishResult{Success: false, ErrorMessage: message}
}

func (p *linkedinPublisher) Publish(ctx context.Context, post *models.Post, profile *models.SocialProfile) *PublishResult {
	if profile == nil {
		return failure("no social profile linked to post")
	}
	if !profile.IsActive {
		return failure("social profile is not active")
	}

	vendorID := profile.VendorID()
	if vendorID == "" {
		return failure("social profile has no LinkedIn identity")
	}

	if profile.AccessToken == "" {
		return failure("social profile has no access token")
	}

	accessToken, err := utils.Decrypt(profile.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return failure(fmt.Sprintf("failed to decrypt access token: %v", err))
	}

	authorURN := linkedin.PersonURN(vendorID)
	if profile.PlatformType == models.PlatformTypeOrganization {
		authorURN = linkedin.OrganizationURN(vendorID)
	}

	visibility := post.Visibility
	if visibility == "" {
		visibility = p.cfg.Publishing.DefaultVisibility
	}

	client := p.newClient(accessToken)

	var urn string
	switch post.ContentType {
	case models.ContentTypeText:
		urn, err = client.CreateTextPost(ctx, authorURN, post.Content, visibility)
	case models.ContentTypeImage:
		imageURL, imgErr := p.imageURL(ctx, post.ID)
		if imgErr != nil {
			return failure(imgErr.Error())
		}
		urn, err = client.CreateImagePost(ctx, authorURN, post.Content, imageURL, visibility)
	case models.ContentTypeLink:
		if post.LinkURL == "" {
			return failure("link posts require a link URL")
		}
		urn, err = client.CreateLinkPost(ctx, authorURN, post.Content, post.LinkURL, post.LinkTitle, post.LinkDescription, visibility)
	default:
		return failure(fmt.Sprintf("unsupported content type: %s", post.ContentType))
	}

	if err != nil {
		return failure(err.Error())
	}

	return &PublishResult{
		Success: true,
		PostID:  linkedin.PostIDFromURN(urn),
		URN:     urn,
		URL:     linkedin.PostURL(urn),
	}
}

func (p *linkedinPublisher) imageURL(ctx context.Context, postID int64) (string, error) {
	postMedia, err := p.pm.GetByPostID(ctx, postID)
	if err != nil {
		return "", fmt.Errorf("error fetching post media for PostID %d: %w", postID, err)
	}
	if postMedia == nil {
		return "", fmt.Errorf("no media found for PostID %d", postID)
	}

	mediaAsset, err := p.ma.GetByID(ctx, postMedia.AssetID)
	if err != nil {
		return "", fmt.Errorf("error retrieving media asset for AssetID %d: %w", postMedia.AssetID, err)
	}
	if mediaAsset == nil || mediaAsset.FileURL == "" {
		return "", fmt.Errorf("media asset is missing or incomplete for AssetID %d", postMedia.AssetID)
	}

	return mediaAsset.FileURL, nil
}
