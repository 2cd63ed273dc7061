package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/notify"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type attendanceRepository interface {
	FindForDay(ctx context.Context, identityID int64, date string) (*models.AttendanceRecord, error)
	CheckIn(ctx context.Context, identityID int64, date string, at time.Time) (bool, error)
	CheckOut(ctx context.Context, identityID int64, date string, at time.Time) (bool, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

type frameEvaluator interface {
	Evaluate(ctx context.Context, imagePayload string) ([]FaceOutcome, error)
}

type notificationDispatcher interface {
	Dispatch(n notify.Notification) string
}

// Transition is the state machine's decision for one live match.
type Transition string

const (
	TransitionCheckedIn         Transition = "checked_in"
	TransitionCheckedOut        Transition = "checked_out"
	TransitionIgnored           Transition = "ignored"
	TransitionLivenessChallenge Transition = "liveness_challenge"
	TransitionDebounced         Transition = "debounced"
)

// AttendanceService drives the per (identity, day) state machine
// NoRecord -> CheckedIn -> CheckedOut and orchestrates one recognition
// frame end to end.
type AttendanceService struct {
	repo             attendanceRepository
	evaluator        frameEvaluator
	dispatcher       notificationDispatcher
	redis            *redis.Client
	debounceWindow   time.Duration
	notifyOnCheckout bool
	logger           *zap.Logger
	metrics          *MetricsService
	now              func() time.Time
}

// AttendanceOptions tunes the pipeline.
type AttendanceOptions struct {
	DebounceWindow   time.Duration
	NotifyOnCheckout bool
}

// NewAttendanceService constructs the attendance service. The redis client
// is optional; without it the duplicate-frame debounce is disabled.
func NewAttendanceService(repo attendanceRepository, evaluator frameEvaluator, dispatcher notificationDispatcher, rdb *redis.Client, opts AttendanceOptions, logger *zap.Logger, metrics *MetricsService) *AttendanceService {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:             repo,
		evaluator:        evaluator,
		dispatcher:       dispatcher,
		redis:            rdb,
		debounceWindow:   opts.DebounceWindow,
		notifyOnCheckout: opts.NotifyOnCheckout,
		logger:           logger,
		metrics:          metrics,
		now:              time.Now,
	}
}

// MarkRequest is one camera frame submitted for attendance.
type MarkRequest struct {
	Image string `json:"image"`
}

// MarkResult aggregates per-face outcome messages for one frame.
type MarkResult struct {
	Results      []string `json:"results"`
	Notification string   `json:"notification,omitempty"`
}

// MarkAttendance classifies the frame and applies the state machine to
// every live match. Only a frame with zero detectable faces fails; faces
// that are unrecognized, unknown, or not live become outcome messages.
func (s *AttendanceService) MarkAttendance(ctx context.Context, req MarkRequest) (*MarkResult, error) {
	if req.Image == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "image is required")
	}

	outcomes, err := s.evaluator.Evaluate(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &MarkResult{Results: make([]string, 0, len(outcomes))}
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeUnrecognized:
			result.Results = append(result.Results, "Unknown")
		case OutcomeUnknownIdentity:
			result.Results = append(result.Results, "Unknown identity")
		case OutcomeMatch:
			message, preview, err := s.applyMatch(ctx, outcome, now)
			if err != nil {
				return nil, err
			}
			result.Results = append(result.Results, message)
			if result.Notification == "" && preview != "" {
				result.Notification = preview
			}
		}
	}
	return result, nil
}

func (s *AttendanceService) applyMatch(ctx context.Context, outcome FaceOutcome, now time.Time) (string, string, error) {
	ident := outcome.Identity

	transition, err := s.Apply(ctx, ident.ID, outcome.Live, now)
	if err != nil {
		return "", "", err
	}

	switch transition {
	case TransitionLivenessChallenge:
		s.metrics.ObserveLivenessRejection()
		return fmt.Sprintf("%s - BLINK or SMILE", ident.Name), "", nil
	case TransitionDebounced:
		return fmt.Sprintf("%s already marked", ident.Name), "", nil
	case TransitionCheckedIn:
		preview := s.dispatch(ident, notify.EventCheckIn, now)
		return fmt.Sprintf("%s (%s) Check-in", ident.Name, ident.Role), preview, nil
	case TransitionCheckedOut:
		var preview string
		if s.notifyOnCheckout {
			preview = s.dispatch(ident, notify.EventCheckOut, now)
		}
		return fmt.Sprintf("%s (%s) Check-out", ident.Name, ident.Role), preview, nil
	default:
		return fmt.Sprintf("%s already checked out", ident.Name), "", nil
	}
}

// Apply runs one state machine step for an identity. A not-live verdict
// never touches the ledger. The insert and the conditional update both lean
// on the database so concurrent recognitions of the same person collapse
// into one check-in and at most one check-out per day.
func (s *AttendanceService) Apply(ctx context.Context, identityID int64, live bool, now time.Time) (Transition, error) {
	if !live {
		return TransitionLivenessChallenge, nil
	}

	if debounced, err := s.debounced(ctx, identityID); err != nil {
		s.logger.Warn("debounce check failed, continuing", zap.Error(err))
	} else if debounced {
		return TransitionDebounced, nil
	}

	day := now.Format(models.DateLayout)

	rec, err := s.repo.FindForDay(ctx, identityID, day)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read attendance ledger")
	}

	switch models.State(rec) {
	case models.StateNoRecord:
		inserted, err := s.repo.CheckIn(ctx, identityID, day, now)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
		}
		if inserted {
			return TransitionCheckedIn, nil
		}
		// Lost the insert race: someone checked this identity in between
		// our read and write. Fall through to the checkout path.
		fallthrough
	case models.StateCheckedIn:
		updated, err := s.repo.CheckOut(ctx, identityID, day, now)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-out")
		}
		if updated {
			return TransitionCheckedOut, nil
		}
		return TransitionIgnored, nil
	default:
		return TransitionIgnored, nil
	}
}

// List exposes ledger rows for the admin surface.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return rows, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *AttendanceService) dispatch(ident *models.Identity, eventType string, now time.Time) string {
	if s.dispatcher == nil {
		return ""
	}
	to := ""
	if ident.Phone != nil {
		to = *ident.Phone
	}
	preview := s.dispatcher.Dispatch(notify.Notification{
		To:        to,
		Name:      ident.Name,
		EventType: eventType,
		TimeStr:   now.Format("15:04:05"),
	})
	if to == "" {
		return ""
	}
	return preview
}

func (s *AttendanceService) debounced(ctx context.Context, identityID int64) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	key := fmt.Sprintf("attendance:debounce:%d", identityID)
	set, err := s.redis.SetNX(ctx, key, 1, s.debounceWindow).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
