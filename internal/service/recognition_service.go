package service

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/imaging"
	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/vision"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type recognitionIdentityReader interface {
	FindByID(ctx context.Context, id int64) (*models.Identity, error)
}

// OutcomeKind classifies one detected face.
type OutcomeKind string

const (
	OutcomeUnrecognized    OutcomeKind = "unrecognized"
	OutcomeUnknownIdentity OutcomeKind = "unknown_identity"
	OutcomeMatch           OutcomeKind = "match"
)

// FaceOutcome is the per-face classification result. For matches, Live
// carries the liveness verdict; the caller decides what a not-live match
// means for the ledger.
type FaceOutcome struct {
	Kind     OutcomeKind
	Identity *models.Identity
	Live     bool
	Distance float64
}

// RecognitionService classifies single frames. It has no persistent side
// effects: detection, liveness, and prediction over one image only.
type RecognitionService struct {
	identities recognitionIdentityReader
	engine     vision.Engine
	model      *vision.ModelStore
	threshold  float64
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewRecognitionService constructs the recognition service.
func NewRecognitionService(identities recognitionIdentityReader, engine vision.Engine, model *vision.ModelStore, threshold float64, logger *zap.Logger, metrics *MetricsService) *RecognitionService {
	if threshold <= 0 {
		threshold = 80
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecognitionService{
		identities: identities,
		engine:     engine,
		model:      model,
		threshold:  threshold,
		logger:     logger,
		metrics:    metrics,
	}
}

// Evaluate classifies every face in the frame. Fails only when no model has
// been trained, the payload cannot be decoded, or zero faces are detected;
// individual unrecognized faces are outcomes, not errors.
func (s *RecognitionService) Evaluate(ctx context.Context, imagePayload string) ([]FaceOutcome, error) {
	snapshot := s.model.Current()
	if snapshot == nil {
		return nil, appErrors.Clone(appErrors.ErrModelNotReady, "")
	}

	img, err := imaging.DecodeDataURL(imagePayload)
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
	s.metrics.ObserveFrame(len(regions))
	if len(regions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoFaceDetected, "")
	}

	outcomes := make([]FaceOutcome, 0, len(regions))
	for _, region := range regions {
		face := imaging.Crop(gray, image.Rect(region.X, region.Y, region.X+region.W, region.Y+region.H))
		facePNG, err := imaging.EncodePNG(face)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode face crop")
		}

		outcome, err := s.evaluateFace(ctx, snapshot, facePNG)
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveRecognition(string(outcome.Kind))
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

func (s *RecognitionService) evaluateFace(ctx context.Context, snapshot *vision.Model, facePNG []byte) (*FaceOutcome, error) {
	// Liveness: smile OR two eyes within the face crop. The permissive OR
	// keeps live users in poor lighting from being rejected.
	smiles, err := s.engine.DetectSmiles(ctx, facePNG)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "smile detection failed")
	}
	eyes, err := s.engine.DetectEyes(ctx, facePNG)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "eye detection failed")
	}
	live := smiles > 0 || eyes >= 2

	pred, err := s.engine.Predict(ctx, snapshot.Bytes, facePNG)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "recognizer prediction failed")
	}
	if pred.Distance >= s.threshold {
		return &FaceOutcome{Kind: OutcomeUnrecognized, Distance: pred.Distance}, nil
	}

	ident, err := s.identities.FindByID(ctx, pred.Label)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve identity")
	}
	if ident == nil {
		return &FaceOutcome{Kind: OutcomeUnknownIdentity, Distance: pred.Distance}, nil
	}

	return &FaceOutcome{
		Kind:     OutcomeMatch,
		Identity: ident,
		Live:     live,
		Distance: pred.Distance,
	}, nil
}
