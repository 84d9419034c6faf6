package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/linkedin"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/pkg/utils"
	"golang.org/x/oauth2"
	oauthlinkedin "golang.org/x/oauth2/linkedin"
)

const LINKEDIN_AUTH_URL = "https://www.linkedin.com/oauth/v2/authorization"

// connectScopes covers posting and analytics for both personal
// profiles and company pages.
var connectScopes = []string{
	"openid",
	"profile",
	"email",
	"w_member_social",
	"w_organization_social",
	"r_organization_social",
	"rw_organization_admin",
}

type ProfileService interface {
	GetAuthURL(ctx context.Context, tokenString string) string
	ConnectCallback(ctx context.Context, code string, userID int64, companyID string) error
	List(ctx context.Context, userID int64) ([]*models.SocialProfile, error)
	Delete(ctx context.Context, userID, profileID int64) error
}

type profileService struct {
	cfg config.Config
	pf  repository.ProfileRepository
}

func NewProfileService(cfg config.Config, pf repository.ProfileRepository) ProfileService {
	return &profileService{
		cfg: cfg,
		pf:  pf,
	}
}

func (s *profileService) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.LinkedInClientID,
		ClientSecret: s.cfg.LinkedInClientSecret,
		RedirectURL:  s.cfg.LinkedInRedirectURI,
		Scopes:       connectScopes,
		Endpoint:     oauthlinkedin.Endpoint,
	}
}

func (s *profileService) GetAuthURL(ctx context.Context, tokenString string) string {
	params := url.Values{}
	params.Add("client_id", s.cfg.LinkedInClientID)
	params.Add("scope", strings.Join(connectScopes, " "))
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.cfg.LinkedInRedirectURI)
	params.Add("state", tokenString)

	return fmt.Sprintf("%s?%s", LINKEDIN_AUTH_URL, params.Encode())
}

// ConnectCallback finishes the OAuth flow and stores the profile with
// its tokens encrypted. A non-empty companyID connects a company page
// instead of a personal profile.
func (s *profileService) ConnectCallback(ctx context.Context, code string, userID int64, companyID string) error {
	if code == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return err
	}

	if userID == 0 {
		err := errors.New("User not found")
		slog.Info(err.Error())
		return err
	}

	token, err := s.oauth2Config().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	client := linkedin.NewClient(token.AccessToken)

	profile := models.SocialProfile{
		UserID:           userID,
		PlatformType:     models.PlatformTypePersonal,
		IsActive:         true,
		AnalyticsEnabled: true,
		TokenExpiresAt:   token.Expiry,
	}

	if companyID != "" {
		orgInfo, err := client.GetOrganizationInfo(ctx, companyID)
		if err != nil {
			return err
		}
		profile.PlatformType = models.PlatformTypeOrganization
		profile.LinkedInCompanyID = orgInfo.ID
		profile.ProfileName = orgInfo.Name
	} else {
		profileInfo, err := client.GetProfileInfo(ctx)
		if err != nil {
			return err
		}
		profile.LinkedInProfileID = profileInfo.ID
		profile.ProfileName = fmt.Sprintf("%s %s", profileInfo.FirstName, profileInfo.LastName)
	}

	profile.AccessToken, err = utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	if token.RefreshToken != "" {
		profile.RefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	_, err = s.pf.Create(ctx, nil, &profile)
	if err != nil {
		return err
	}

	return nil
}

func (s *profileService) List(ctx context.Context, userID int64) ([]*models.SocialProfile, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	profiles, err := s.pf.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting social profiles")
	}

	return profiles, nil
}

func (s *profileService) Delete(ctx context.Context, userID, profileID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if profileID == 0 {
		err = errors.New("ProfileID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pf.CheckByUserID(ctx, profileID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("Social profile doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pf.Remove(ctx, profileID)
	if err != nil {
		return fmt.Errorf("Error removing profile info")
	}

	return nil
}
