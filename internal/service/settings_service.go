package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/internal/transfer"
)

type SettingsService interface {
	GetSettings(ctx context.Context, userID int64) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, su *transfer.SettingsUpdate) error
}

type settingsService struct {
	cfg config.Config
	st  repository.SettingsRepository
}

func NewSettingsService(cfg config.Config, st repository.SettingsRepository) SettingsService {
	return &settingsService{
		cfg: cfg,
		st:  st,
	}
}

func (s *settingsService) GetSettings(ctx context.Context, userID int64) (*models.Settings, error) {
	settings, found, err := s.st.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting settings")
	}

	if !found {
		return &models.Settings{
			UserID:            userID,
			DefaultVisibility: s.cfg.Publishing.DefaultVisibility,
			Timezone:          "UTC",
		}, nil
	}

	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, su *transfer.SettingsUpdate) error {
	if su == nil {
		err := errors.New("settings data is nil")
		slog.Info(err.Error())
		return err
	}

	settings := models.Settings{
		UserID:            userID,
		DefaultVisibility: su.DefaultVisibility,
		Timezone:          su.Timezone,
	}

	if settings.DefaultVisibility == "" {
		settings.DefaultVisibility = s.cfg.Publishing.DefaultVisibility
	}
	if settings.Timezone == "" {
		settings.Timezone = "UTC"
	}

	_, found, err := s.st.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if !found {
		_, err = s.st.Create(ctx, &settings)
		return err
	}

	return s.st.UpdateSettings(ctx, &settings, userID)
}
