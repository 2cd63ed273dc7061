package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/vision"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
)

type identityRepoStub struct {
	nextID     int64
	identities map[int64]*models.Identity
	createErr  error
	listErr    error
}

func newIdentityRepoStub() *identityRepoStub {
	return &identityRepoStub{identities: map[int64]*models.Identity{}}
}

func (r *identityRepoStub) Create(ctx context.Context, ident *models.Identity, persist func(id int64) error) error {
	r.nextID++
	if err := persist(r.nextID); err != nil {
		return err
	}
	if r.createErr != nil {
		return r.createErr
	}
	ident.ID = r.nextID
	r.identities[ident.ID] = ident
	return nil
}

func (r *identityRepoStub) FindByID(ctx context.Context, id int64) (*models.Identity, error) {
	return r.identities[id], nil
}

func (r *identityRepoStub) List(ctx context.Context, filter models.IdentityFilter) ([]models.Identity, int, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	out := make([]models.Identity, 0, len(r.identities))
	for _, ident := range r.identities {
		out = append(out, *ident)
	}
	return out, len(out), nil
}

func newIdentityServiceForTest(t *testing.T, repo *identityRepoStub, engine *stubEngine) (*IdentityService, *vision.SampleStore, *vision.ModelStore) {
	t.Helper()
	dir := t.TempDir()
	samples, err := vision.NewSampleStore(filepath.Join(dir, "training"))
	require.NoError(t, err)
	model, err := vision.NewModelStore(filepath.Join(dir, "recognizer.model"))
	require.NoError(t, err)
	svc := NewIdentityService(repo, engine, samples, model, 200, nil, zap.NewNop(), nil)
	return svc, samples, model
}

func enrollableEngine() *stubEngine {
	return &stubEngine{
		regions: []vision.Region{{X: 0, Y: 0, W: 32, H: 32}},
		model:   []byte("model-v1"),
	}
}

func TestEnrollMissingFields(t *testing.T) {
	svc, _, _ := newIdentityServiceForTest(t, newIdentityRepoStub(), enrollableEngine())

	_, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Alice"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMissingField))

	_, err = svc.Enroll(context.Background(), EnrollRequest{Image: testFramePayload(t)})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMissingField))
}

func TestEnrollDecodeError(t *testing.T) {
	svc, _, _ := newIdentityServiceForTest(t, newIdentityRepoStub(), enrollableEngine())

	_, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Alice", Image: "garbage"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDecode))
}

func TestEnrollNoFaceDetected(t *testing.T) {
	engine := enrollableEngine()
	engine.regions = nil
	repo := newIdentityRepoStub()
	svc, samples, _ := newIdentityServiceForTest(t, repo, engine)

	_, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Alice", Image: testFramePayload(t)})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoFaceDetected))

	// Nothing was written.
	assert.Empty(t, repo.identities)
	stored, err := samples.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEnrollPersistsSampleAndRetrains(t *testing.T) {
	engine := enrollableEngine()
	repo := newIdentityRepoStub()
	svc, samples, model := newIdentityServiceForTest(t, repo, engine)

	ident, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Alice", Role: "Student", Image: testFramePayload(t)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ident.ID)

	stored, err := samples.LoadAll()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(1), stored[0].Label)

	require.Len(t, engine.trainedWith, 1)
	assert.Len(t, engine.trainedWith[0], 1)

	snapshot := model.Current()
	require.NotNil(t, snapshot)
	assert.Equal(t, []byte("model-v1"), snapshot.Bytes)
}

func TestEnrollAssignsSequentialIDs(t *testing.T) {
	repo := newIdentityRepoStub()
	svc, _, _ := newIdentityServiceForTest(t, repo, enrollableEngine())

	first, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Alice", Image: testFramePayload(t)})
	require.NoError(t, err)
	second, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Bob", Image: testFramePayload(t)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestEnrollRollbackRemovesSample(t *testing.T) {
	repo := newIdentityRepoStub()
	repo.createErr = errors.New("insert failed")
	svc, samples, model := newIdentityServiceForTest(t, repo, enrollableEngine())

	_, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Alice", Image: testFramePayload(t)})
	require.Error(t, err)

	stored, err := samples.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Nil(t, model.Current())
}

func TestEnrollTrainingFailure(t *testing.T) {
	engine := enrollableEngine()
	engine.trainErr = errors.New("train failed")
	svc, _, model := newIdentityServiceForTest(t, newIdentityRepoStub(), engine)

	_, err := svc.Enroll(context.Background(), EnrollRequest{Name: "Alice", Image: testFramePayload(t)})
	require.Error(t, err)
	assert.Nil(t, model.Current())
}

func TestGetIdentityNotFound(t *testing.T) {
	svc, _, _ := newIdentityServiceForTest(t, newIdentityRepoStub(), enrollableEngine())

	_, err := svc.Get(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
