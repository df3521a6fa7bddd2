package report

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constructeye/constructeye/internal/metric"
	"github.com/constructeye/constructeye/internal/project"
)

type mockStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]ReportDocument
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[uuid.UUID]ReportDocument)}
}

func (m *mockStore) Insert(_ context.Context, projectID int64, kind Kind) (ReportDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := ReportDocument{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Kind:        kind,
		Status:      StatusPending,
		RequestedAt: time.Now(),
	}
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockStore) Get(_ context.Context, id uuid.UUID) (ReportDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ReportDocument{}, ErrReportNotFound
	}
	return doc, nil
}

func (m *mockStore) ListByProject(_ context.Context, projectID int64, _, _ int) ([]ReportDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ReportDocument
	for _, doc := range m.docs {
		if doc.ProjectID == projectID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *mockStore) MarkInProgress(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrReportNotFound
	}
	if doc.Status != StatusPending {
		return ErrInvalidStatus
	}
	doc.Status = StatusInProgress
	m.docs[id] = doc
	return nil
}

func (m *mockStore) MarkReady(_ context.Context, id uuid.UUID, result GenerateResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrReportNotFound
	}
	doc.Status = StatusReady
	doc.FilePath = result.FilePath
	size := result.FileSize
	doc.FileSize = &size
	doc.RowsSkipped = result.RowsSkipped
	doc.GuardTrips = result.GuardTrips
	at := result.GeneratedAt
	doc.GeneratedAt = &at
	m.docs[id] = doc
	return nil
}

func (m *mockStore) MarkFailed(_ context.Context, id uuid.UUID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrReportNotFound
	}
	doc.Status = StatusFailed
	doc.ErrorMessage = msg
	m.docs[id] = doc
	return nil
}

type mockLoader struct {
	snap project.Snapshot
	err  error
}

func (m *mockLoader) LoadSnapshot(context.Context, int64) (project.Snapshot, error) {
	return m.snap, m.err
}

type mockRenderer struct {
	pdf []byte
	err error
}

func (m *mockRenderer) Render(context.Context, Document) ([]byte, error) {
	return m.pdf, m.err
}

func newTestService(t *testing.T, store Store, loader SnapshotLoader, renderer Renderer) *Service {
	t.Helper()
	svc := NewService(ServiceConfig{
		Store:      store,
		Loader:     loader,
		Composer:   NewComposer(metric.MustFormatter("pt-BR", "BRL"), nil),
		Renderer:   renderer,
		StorageDir: t.TempDir(),
	})
	svc.WithNow(func() time.Time { return testNow })
	return svc
}

func TestServiceProcessWritesArtefact(t *testing.T) {
	store := newMockStore()
	loader := &mockLoader{snap: baseSnapshot()}
	renderer := &mockRenderer{pdf: []byte("%PDF-1.7 fake")}
	svc := newTestService(t, store, loader, renderer)

	rec, err := svc.Request(context.Background(), GenerateRequest{ProjectID: 7, Kind: "general"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, rec.Status)

	require.NoError(t, svc.Process(context.Background(), rec.ID))

	stored, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, stored.Status)
	require.NotNil(t, stored.FileSize)
	assert.Equal(t, int64(len(renderer.pdf)), *stored.FileSize)
	require.NotNil(t, stored.GeneratedAt)

	data, err := os.ReadFile(stored.FilePath)
	require.NoError(t, err)
	assert.Equal(t, renderer.pdf, data)
}

func TestServiceProcessRenderFailureMarksFailed(t *testing.T) {
	store := newMockStore()
	loader := &mockLoader{snap: baseSnapshot()}
	renderer := &mockRenderer{err: errors.New("gotenberg unreachable")}
	svc := newTestService(t, store, loader, renderer)

	rec, err := svc.Request(context.Background(), GenerateRequest{ProjectID: 7, Kind: "financial"})
	require.NoError(t, err)

	err = svc.Process(context.Background(), rec.ID)
	require.Error(t, err)

	stored, getErr := store.Get(context.Background(), rec.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "gotenberg unreachable")
}

func TestServiceProcessReadyIsNoop(t *testing.T) {
	store := newMockStore()
	renderer := &mockRenderer{pdf: []byte("pdf")}
	svc := newTestService(t, store, &mockLoader{snap: baseSnapshot()}, renderer)

	rec, err := svc.Request(context.Background(), GenerateRequest{ProjectID: 7, Kind: "teams"})
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), rec.ID))

	// Re-delivery of the same task must not regenerate the artefact.
	renderer.err = errors.New("must not render again")
	require.NoError(t, svc.Process(context.Background(), rec.ID))

	stored, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, stored.Status)
}

func TestServiceRequestRejectsUnknownKind(t *testing.T) {
	svc := newTestService(t, newMockStore(), &mockLoader{snap: baseSnapshot()}, &mockRenderer{})
	_, err := svc.Request(context.Background(), GenerateRequest{ProjectID: 7, Kind: "weekly"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestServiceGenerateSurfacesLoaderError(t *testing.T) {
	svc := newTestService(t, newMockStore(), &mockLoader{err: project.ErrNotFound}, &mockRenderer{})
	_, _, err := svc.Generate(context.Background(), 99, KindGeneral)
	assert.ErrorIs(t, err, project.ErrNotFound)
}
