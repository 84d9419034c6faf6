package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/internal/transfer"
	"golang.org/x/oauth2"
	oauthlinkedin "golang.org/x/oauth2/linkedin"
)

const userInfoURL = "https://api.linkedin.com/v2/userinfo"

type AuthService interface {
	LoginCallback(ctx context.Context, code string) (userID int64, err error)
}

type authService struct {
	cfg config.Config
	u   repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		cfg: cfg,
		u:   u,
	}
}

func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return 0, err
	}

	oauth2Config := &oauth2.Config{
		ClientID:     s.cfg.LinkedInClientID,
		ClientSecret: s.cfg.LinkedInClientSecret,
		RedirectURL:  s.cfg.LoginRedirectURI,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     oauthlinkedin.Endpoint,
	}

	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	client := oauth2Config.Client(ctx, token)

	userInfo, err := getUserInfo(client)
	if err != nil {
		return 0, err
	}

	user, isExist, err := s.u.GetByLinkedInID(ctx, userInfo.Sub)
	if err != nil {
		return 0, err
	}
	if isExist {
		return user.ID, nil
	}

	userID, err := s.u.Create(ctx, nil, &models.User{
		LinkedInID:     userInfo.Sub,
		Email:          userInfo.Email,
		Name:           userInfo.Name,
		ProfilePicture: userInfo.Picture,
	})
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return userID, nil
}

func getUserInfo(client *http.Client) (*transfer.LinkedInUserInfo, error) {
	resp, err := client.Get(userInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo transfer.LinkedInUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &userInfo, nil
}
