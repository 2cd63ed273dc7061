package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, value string) error
}

// SettingsService manages the notification channel credentials.
type SettingsService struct {
	repo      settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo settingsRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, validator: validate, logger: logger}
}

// UpdateNotificationSettingsRequest is the admin settings payload.
type UpdateNotificationSettingsRequest struct {
	PhoneID string `json:"phone_id" validate:"required"`
	Token   string `json:"token" validate:"required"`
}

// NotificationSettings reads the WhatsApp credentials. Used once per
// delivery attempt so credential rotation needs no restart.
func (s *SettingsService) NotificationSettings(ctx context.Context) (models.NotificationSettings, error) {
	phoneID, err := s.repo.Get(ctx, models.SettingWhatsAppPhoneID)
	if err != nil {
		return models.NotificationSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read settings")
	}
	token, err := s.repo.Get(ctx, models.SettingWhatsAppToken)
	if err != nil {
		return models.NotificationSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read settings")
	}
	return models.NotificationSettings{PhoneID: phoneID, Token: token}, nil
}

// UpdateNotificationSettings stores new WhatsApp credentials.
func (s *SettingsService) UpdateNotificationSettings(ctx context.Context, req UpdateNotificationSettingsRequest) (models.NotificationSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.NotificationSettings{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if err := s.repo.Upsert(ctx, models.SettingWhatsAppPhoneID, req.PhoneID); err != nil {
		return models.NotificationSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store settings")
	}
	if err := s.repo.Upsert(ctx, models.SettingWhatsAppToken, req.Token); err != nil {
		return models.NotificationSettings{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store settings")
	}

	s.logger.Info("notification settings updated")
	return models.NotificationSettings{PhoneID: req.PhoneID, Token: req.Token}, nil
}
