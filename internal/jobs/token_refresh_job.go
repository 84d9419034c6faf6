package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/pkg/utils"
	"golang.org/x/oauth2"
	oauthlinkedin "golang.org/x/oauth2/linkedin"
)

type TokenRefreshJob struct {
	cfg config.Config
	pf  repository.ProfileRepository
}

func NewTokenRefreshJob(cfg config.Config, pf repository.ProfileRepository) *TokenRefreshJob {
	return &TokenRefreshJob{
		cfg: cfg,
		pf:  pf,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	profiles, err := c.pf.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, profile := range profiles {

		wg.Add(1)
		semaphore <- struct{}{}

		go func(profile *models.SocialProfile) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refreshProfile(ctx, profile); err != nil {
				slog.Info("Unable to refresh tokens for profile " + profile.ProfileName)
			}
		}(profile)
	}

	wg.Wait()
}

func (c *TokenRefreshJob) refreshProfile(ctx context.Context, profile *models.SocialProfile) error {
	refreshToken, err := utils.Decrypt(profile.RefreshToken, []byte(c.cfg.SecretKey))
	if err != nil {
		return err
	}

	conf := &oauth2.Config{
		ClientID:     c.cfg.LinkedInClientID,
		ClientSecret: c.cfg.LinkedInClientSecret,
		Endpoint:     oauthlinkedin.Endpoint,
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(c.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken := profile.RefreshToken
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		encryptedRefreshToken, err = utils.Encrypt([]byte(token.RefreshToken), []byte(c.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	return c.pf.SetTokens(ctx, profile.ID, encryptedAccessToken, encryptedRefreshToken, token.Expiry)
}
