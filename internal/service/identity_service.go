package service

import (
	"context"
	"image"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/imaging"
	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/vision"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type identityRepository interface {
	Create(ctx context.Context, ident *models.Identity, persist func(id int64) error) error
	FindByID(ctx context.Context, id int64) (*models.Identity, error)
	List(ctx context.Context, filter models.IdentityFilter) ([]models.Identity, int, error)
}

// IdentityService runs the enrollment pipeline: profile insert, face sample
// extraction, and the synchronous full retrain that makes the new identity
// recognizable before the request returns.
type IdentityService struct {
	repo       identityRepository
	engine     vision.Engine
	samples    *vision.SampleStore
	model      *vision.ModelStore
	sampleSize int
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewIdentityService constructs the identity service.
func NewIdentityService(repo identityRepository, engine vision.Engine, samples *vision.SampleStore, model *vision.ModelStore, sampleSize int, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *IdentityService {
	if sampleSize <= 0 {
		sampleSize = 200
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		repo:       repo,
		engine:     engine,
		samples:    samples,
		model:      model,
		sampleSize: sampleSize,
		validator:  validate,
		logger:     logger,
		metrics:    metrics,
	}
}

// EnrollRequest is the enrollment payload.
type EnrollRequest struct {
	Name  string  `json:"name" validate:"required"`
	Phone *string `json:"phone"`
	Role  string  `json:"role"`
	Image string  `json:"image" validate:"required"`
}

// Enroll registers a new identity from one face image. Face detection runs
// before any write; the identity row and its first sample are created inside
// one transaction, so a failure leaves neither behind.
func (s *IdentityService) Enroll(ctx context.Context, req EnrollRequest) (*models.Identity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingField.Code, appErrors.ErrMissingField.Status, "name and image are required")
	}

	img, err := imaging.DecodeDataURL(req.Image)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDecode.Code, appErrors.ErrDecode.Status, appErrors.ErrDecode.Message)
	}
	gray := imaging.Grayscale(img)

	framePNG, err := imaging.EncodePNG(gray)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode frame")
	}

	regions, err := s.engine.DetectFaces(ctx, framePNG)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "face detection failed")
	}
	if len(regions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoFaceDetected, "no face detected, try again")
	}

	// First bounding box, cropped and normalized to the training size.
	region := regions[0]
	face := imaging.Crop(gray, image.Rect(region.X, region.Y, region.X+region.W, region.Y+region.H))
	sample := imaging.Resize(face, s.sampleSize, s.sampleSize)
	samplePNG, err := imaging.EncodePNG(sample)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode face sample")
	}

	ident := &models.Identity{
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         req.Role,
		RegisteredAt: time.Now().UTC(),
	}

	var sampleName string
	err = s.repo.Create(ctx, ident, func(id int64) error {
		name, saveErr := s.samples.Save(id, 1, samplePNG)
		sampleName = name
		return saveErr
	})
	if err != nil {
		if sampleName != "" {
			if rmErr := s.samples.Remove(sampleName); rmErr != nil {
				s.logger.Warn("failed to remove orphaned face sample", zap.String("sample", sampleName), zap.Error(rmErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist identity")
	}

	if err := s.retrain(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("identity enrolled",
		zap.Int64("identity_id", ident.ID),
		zap.String("role", ident.Role))
	return ident, nil
}

// retrain rebuilds the recognizer from the full sample corpus and publishes
// the new snapshot. Full retrain on every enrollment, no incremental update.
func (s *IdentityService) retrain(ctx context.Context) error {
	start := time.Now()

	samples, err := s.samples.LoadAll()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training samples")
	}
	modelBytes, err := s.engine.Train(ctx, samples)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "recognizer training failed")
	}
	if err := s.model.Publish(modelBytes); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish trained model")
	}

	s.metrics.ObserveTraining(time.Since(start))
	s.logger.Info("recognizer retrained",
		zap.Int("samples", len(samples)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Get returns one identity.
func (s *IdentityService) Get(ctx context.Context, id int64) (*models.Identity, error) {
	ident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch identity")
	}
	if ident == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "identity not found")
	}
	return ident, nil
}

// List returns identities with pagination.
func (s *IdentityService) List(ctx context.Context, filter models.IdentityFilter) ([]models.Identity, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list identities")
	}
	return rows, models.NewPagination(filter.Page, filter.PageSize, total), nil
}
