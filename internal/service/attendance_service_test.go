package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/notify"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type ledgerStub struct {
	records map[string]*models.AttendanceRecord

	// forceInsertConflict makes CheckIn report a lost insert race even
	// though FindForDay saw no record.
	forceInsertConflict bool
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{records: map[string]*models.AttendanceRecord{}}
}

func ledgerKey(identityID int64, date string) string {
	return fmt.Sprintf("%s/%d", date, identityID)
}

func (l *ledgerStub) FindForDay(ctx context.Context, identityID int64, date string) (*models.AttendanceRecord, error) {
	rec, ok := l.records[ledgerKey(identityID, date)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (l *ledgerStub) CheckIn(ctx context.Context, identityID int64, date string, at time.Time) (bool, error) {
	key := ledgerKey(identityID, date)
	if _, ok := l.records[key]; ok {
		return false, nil
	}
	if l.forceInsertConflict {
		l.records[key] = &models.AttendanceRecord{IdentityID: identityID, Date: date, CheckIn: at.Add(-time.Minute)}
		return false, nil
	}
	l.records[key] = &models.AttendanceRecord{IdentityID: identityID, Date: date, CheckIn: at}
	return true, nil
}

func (l *ledgerStub) CheckOut(ctx context.Context, identityID int64, date string, at time.Time) (bool, error) {
	rec, ok := l.records[ledgerKey(identityID, date)]
	if !ok || rec.CheckOut != nil {
		return false, nil
	}
	checkOut := at
	rec.CheckOut = &checkOut
	return true, nil
}

func (l *ledgerStub) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	out := make([]models.AttendanceRecord, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, *rec)
	}
	return out, len(out), nil
}

type evaluatorStub struct {
	outcomes []FaceOutcome
	err      error
}

func (e *evaluatorStub) Evaluate(ctx context.Context, imagePayload string) ([]FaceOutcome, error) {
	return e.outcomes, e.err
}

type dispatcherStub struct {
	sent []notify.Notification
}

func (d *dispatcherStub) Dispatch(n notify.Notification) string {
	d.sent = append(d.sent, n)
	return notify.FormatMessage(n.Name, n.EventType, n.TimeStr)
}

func newAttendanceForTest(t *testing.T, ledger *ledgerStub, evaluator *evaluatorStub, dispatcher *dispatcherStub, opts AttendanceOptions) *AttendanceService {
	t.Helper()
	return NewAttendanceService(ledger, evaluator, dispatcher, nil, opts, zap.NewNop(), nil)
}

func phone(s string) *string { return &s }

func liveMatch(ident *models.Identity) FaceOutcome {
	return FaceOutcome{Kind: OutcomeMatch, Identity: ident, Live: true, Distance: 10}
}

func TestMarkAttendanceMissingImage(t *testing.T) {
	svc := newAttendanceForTest(t, newLedgerStub(), &evaluatorStub{}, &dispatcherStub{}, AttendanceOptions{})

	_, err := svc.MarkAttendance(context.Background(), MarkRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMissingField))
}

func TestMarkAttendanceCheckInThenOut(t *testing.T) {
	ident := &models.Identity{ID: 1, Name: "Alice", Role: "Student", Phone: phone("555-0001")}
	ledger := newLedgerStub()
	dispatcher := &dispatcherStub{}
	svc := newAttendanceForTest(t, ledger, &evaluatorStub{outcomes: []FaceOutcome{liveMatch(ident)}}, dispatcher, AttendanceOptions{})

	first, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.Equal(t, "Alice (Student) Check-in", first.Results[0])
	assert.Contains(t, first.Notification, "Hi Alice, Attendance Marked: Check-in at ")

	second, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	assert.Equal(t, "Alice (Student) Check-out", second.Results[0])

	third, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	assert.Equal(t, "Alice already checked out", third.Results[0])

	// One ledger row, one check-in, one check-out.
	require.Len(t, ledger.records, 1)
	for _, rec := range ledger.records {
		assert.False(t, rec.CheckIn.IsZero())
		assert.NotNil(t, rec.CheckOut)
	}
}

func TestMarkAttendanceNotLive(t *testing.T) {
	ident := &models.Identity{ID: 1, Name: "Alice", Role: "Student"}
	ledger := newLedgerStub()
	outcome := FaceOutcome{Kind: OutcomeMatch, Identity: ident, Live: false}
	svc := newAttendanceForTest(t, ledger, &evaluatorStub{outcomes: []FaceOutcome{outcome}}, &dispatcherStub{}, AttendanceOptions{})

	result, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	assert.Equal(t, "Alice - BLINK or SMILE", result.Results[0])
	assert.Empty(t, ledger.records)
}

func TestMarkAttendanceUnrecognizedAndUnknown(t *testing.T) {
	ledger := newLedgerStub()
	evaluator := &evaluatorStub{outcomes: []FaceOutcome{
		{Kind: OutcomeUnrecognized, Distance: 120},
		{Kind: OutcomeUnknownIdentity, Distance: 15},
	}}
	svc := newAttendanceForTest(t, ledger, evaluator, &dispatcherStub{}, AttendanceOptions{})

	result, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Unknown", "Unknown identity"}, result.Results)
	assert.Empty(t, ledger.records)
}

func TestMarkAttendanceNotifiesOnCheckInOnly(t *testing.T) {
	ident := &models.Identity{ID: 1, Name: "Alice", Role: "Student", Phone: phone("555-0001")}
	dispatcher := &dispatcherStub{}
	svc := newAttendanceForTest(t, newLedgerStub(), &evaluatorStub{outcomes: []FaceOutcome{liveMatch(ident)}}, dispatcher, AttendanceOptions{})

	_, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	_, err = svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)

	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, notify.EventCheckIn, dispatcher.sent[0].EventType)
	assert.Equal(t, "555-0001", dispatcher.sent[0].To)
}

func TestMarkAttendanceNotifyOnCheckoutOption(t *testing.T) {
	ident := &models.Identity{ID: 1, Name: "Alice", Role: "Student", Phone: phone("555-0001")}
	dispatcher := &dispatcherStub{}
	svc := newAttendanceForTest(t, newLedgerStub(), &evaluatorStub{outcomes: []FaceOutcome{liveMatch(ident)}}, dispatcher, AttendanceOptions{NotifyOnCheckout: true})

	_, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	_, err = svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)

	require.Len(t, dispatcher.sent, 2)
	assert.Equal(t, notify.EventCheckOut, dispatcher.sent[1].EventType)
}

func TestMarkAttendanceNoPhoneNoNotification(t *testing.T) {
	ident := &models.Identity{ID: 1, Name: "Alice", Role: "Student"}
	dispatcher := &dispatcherStub{}
	svc := newAttendanceForTest(t, newLedgerStub(), &evaluatorStub{outcomes: []FaceOutcome{liveMatch(ident)}}, dispatcher, AttendanceOptions{})

	result, err := svc.MarkAttendance(context.Background(), MarkRequest{Image: "frame"})
	require.NoError(t, err)
	assert.Empty(t, result.Notification)
}

func TestApplyInsertRaceFallsThroughToCheckout(t *testing.T) {
	ledger := newLedgerStub()
	ledger.forceInsertConflict = true
	svc := newAttendanceForTest(t, ledger, &evaluatorStub{}, &dispatcherStub{}, AttendanceOptions{})

	transition, err := svc.Apply(context.Background(), 1, true, time.Now())
	require.NoError(t, err)
	assert.Equal(t, TransitionCheckedOut, transition)
}

func TestApplyNotLive(t *testing.T) {
	svc := newAttendanceForTest(t, newLedgerStub(), &evaluatorStub{}, &dispatcherStub{}, AttendanceOptions{})

	transition, err := svc.Apply(context.Background(), 1, false, time.Now())
	require.NoError(t, err)
	assert.Equal(t, TransitionLivenessChallenge, transition)
}
