package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zinye/socialflow/internal/models"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/pkg/utils"
)

const maxApiKeysPerUser = 5

type ApiKeyService interface {
	Create(ctx context.Context, userID int64) error
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{k: k}
}

func (s *apiKeyService) Create(ctx context.Context, userID int64) error {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if len(keys) >= maxApiKeysPerUser {
		err = fmt.Errorf("Only %d API Keys can be created.", maxApiKeysPerUser)
		slog.Info(err.Error())
		return err
	}

	key, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("Error generating API key")
	}

	if _, err = s.k.Create(ctx, &models.ApiKey{UserID: userID, ApiKey: key}); err != nil {
		return fmt.Errorf("Error saving API key")
	}
	return nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting API keys")
	}
	return keys, nil
}

// GetUserID resolves an API key to its owner. Used by the auth
// middleware for key-based requests.
func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, isExist, err := s.k.GetByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}
	if !isExist {
		return 0, errors.New("Key doesn't exist")
	}
	return *userID, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	if userID == 0 || keyID == 0 {
		err := errors.New("KeyID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.k.CheckByUserID(ctx, keyID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("Key doesn't exist")
		slog.Info(err.Error())
		return err
	}

	return s.k.Remove(ctx, keyID)
}
