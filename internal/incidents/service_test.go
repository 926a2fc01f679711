package incidents

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/incidentflow/incidentflow/internal/audit"
	"github.com/incidentflow/incidentflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx satisfies pgx.Tx for service tests; only the lifecycle
// methods carry behavior.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

type mockRepo struct {
	incidents map[string]*domain.Incident
	tx        *fakeTx
	nextID    int

	updated  []*domain.Incident
	lastList ListQuery
	listErr  error

	summary       SummaryCounts
	lastWeekStart time.Time
	byStatus      map[domain.IncidentStatus]int
	bySeverity    map[domain.SeverityLevel]int
	perDay        map[string]int
}

func newMockRepo() *mockRepo {
	return &mockRepo{incidents: make(map[string]*domain.Incident)}
}

func (m *mockRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	m.tx = &fakeTx{}
	return m.tx, nil
}

func (m *mockRepo) CreateTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	m.nextID++
	incident.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.nextID)
	clone := *incident
	m.incidents[incident.ID] = &clone
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	incident, ok := m.incidents[id]
	if !ok || incident.IsDeleted {
		return nil, ErrNotFound
	}
	clone := *incident
	return &clone, nil
}

func (m *mockRepo) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id string, includeDeleted bool) (*domain.Incident, error) {
	incident, ok := m.incidents[id]
	if !ok || (!includeDeleted && incident.IsDeleted) {
		return nil, ErrNotFound
	}
	clone := *incident
	return &clone, nil
}

func (m *mockRepo) UpdateTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	incident.Version++
	clone := *incident
	m.incidents[incident.ID] = &clone
	m.updated = append(m.updated, &clone)
	return nil
}

func (m *mockRepo) List(ctx context.Context, q ListQuery) ([]*domain.Incident, int, error) {
	m.lastList = q
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return []*domain.Incident{}, 0, nil
}

func (m *mockRepo) SummaryCounts(ctx context.Context, weekStart time.Time, currentUserID *string) (SummaryCounts, error) {
	m.lastWeekStart = weekStart
	return m.summary, nil
}

func (m *mockRepo) StatusCounts(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	return m.byStatus, nil
}

func (m *mockRepo) SeverityCounts(ctx context.Context) (map[domain.SeverityLevel]int, error) {
	return m.bySeverity, nil
}

func (m *mockRepo) CreatedPerDay(ctx context.Context, from time.Time) (map[string]int, error) {
	return m.perDay, nil
}

type mockAuditWriter struct {
	entries []*domain.IncidentLog
	err     error
}

func (m *mockAuditWriter) AppendTx(ctx context.Context, tx pgx.Tx, entry *domain.IncidentLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

var testNow = time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

func newTestService(repo *mockRepo, logs *mockAuditWriter) *Service {
	svc := NewService(repo, logs)
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedIncident(repo *mockRepo, mutate func(*domain.Incident)) *domain.Incident {
	incident := &domain.Incident{
		ID:          "00000000-0000-0000-0000-0000000000aa",
		Title:       "Checkout latency",
		Description: "p99 above 5s",
		Status:      domain.IncidentStatusOpen,
		Severity:    domain.SeverityHigh,
		CreatedBy:   "creator-1",
		CreatedAt:   testNow.Add(-time.Hour),
		UpdatedAt:   testNow.Add(-time.Hour),
		Version:     3,
	}
	if mutate != nil {
		mutate(incident)
	}
	repo.incidents[incident.ID] = incident
	return incident
}

func TestService_CreateIncident(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)

	incident, err := svc.CreateIncident(context.Background(), CreateIncidentInput{
		Title:       "  Payment gateway down  ",
		Description: "All card payments failing",
		Severity:    domain.SeverityCritical,
	}, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "Payment gateway down", incident.Title)
	assert.Equal(t, domain.IncidentStatusOpen, incident.Status)
	assert.Equal(t, int64(1), incident.Version)
	assert.Nil(t, incident.AssignedTo)
	assert.True(t, repo.tx.committed)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, audit.ActionCreate, logs.entries[0].Action)
	assert.Equal(t, "Incident created.", logs.entries[0].Details)
	assert.Equal(t, incident.ID, logs.entries[0].IncidentID)
	assert.Equal(t, "user-1", logs.entries[0].PerformedBy)
}

func TestService_CreateIncident_InvalidSeverity(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockAuditWriter{})

	_, err := svc.CreateIncident(context.Background(), CreateIncidentInput{
		Title:       "x",
		Description: "y",
		Severity:    "Catastrophic",
	}, "user-1")

	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestService_CreateIncident_AuditFailureAborts(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{err: errors.New("insert failed")}
	svc := newTestService(repo, logs)

	_, err := svc.CreateIncident(context.Background(), CreateIncidentInput{
		Title:       "x",
		Description: "y",
		Severity:    domain.SeverityLow,
	}, "user-1")

	require.Error(t, err)
	assert.False(t, repo.tx.committed)
	assert.True(t, repo.tx.rolledBack)
}

func TestService_UpdateIncident_AuditEntriesInOrder(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)
	seeded := seedIncident(repo, nil)

	status := domain.IncidentStatusInProgress
	severity := domain.SeverityCritical
	assignee := "responder-9"

	updated, err := svc.UpdateIncident(context.Background(), seeded.ID, UpdateIncidentInput{
		Status:     &status,
		Severity:   &severity,
		AssignedTo: &assignee,
	}, "manager-1")

	require.NoError(t, err)
	assert.Equal(t, int64(4), updated.Version)
	assert.True(t, repo.tx.committed)

	require.Len(t, logs.entries, 3)
	assert.Equal(t, "Status change", logs.entries[0].Action)
	assert.Equal(t, "Status changed from Open to InProgress.", logs.entries[0].Details)
	assert.Equal(t, "Severity change", logs.entries[1].Action)
	assert.Equal(t, "Severity changed from High to Critical.", logs.entries[1].Details)
	assert.Equal(t, "Assignment change", logs.entries[2].Action)
	assert.Equal(t, "Assignment changed from Unassigned to responder-9.", logs.entries[2].Details)
}

func TestService_UpdateIncident_NoOpProducesNoEntries(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)
	seeded := seedIncident(repo, nil)

	sameStatus := seeded.Status
	updated, err := svc.UpdateIncident(context.Background(), seeded.ID, UpdateIncidentInput{
		Status: &sameStatus,
	}, "manager-1")

	require.NoError(t, err)
	assert.Empty(t, logs.entries)
	assert.Equal(t, testNow, updated.UpdatedAt)
	assert.True(t, repo.tx.committed)
}

func TestService_UpdateIncident_BlankTitleIgnored(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockAuditWriter{})
	seeded := seedIncident(repo, nil)

	updated, err := svc.UpdateIncident(context.Background(), seeded.ID, UpdateIncidentInput{
		Title:       "   ",
		Description: "",
	}, "manager-1")

	require.NoError(t, err)
	assert.Equal(t, "Checkout latency", updated.Title)
	assert.Equal(t, "p99 above 5s", updated.Description)
}

func TestService_UpdateIncident_ResolvedSetsTimestamp(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockAuditWriter{})
	seeded := seedIncident(repo, nil)

	status := domain.IncidentStatusResolved
	updated, err := svc.UpdateIncident(context.Background(), seeded.ID, UpdateIncidentInput{
		Status: &status,
	}, "manager-1")

	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, testNow, *updated.ResolvedAt)
}

func TestService_UpdateIncident_ReopenKeepsResolvedAt(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockAuditWriter{})
	resolvedAt := testNow.Add(-time.Hour)
	seeded := seedIncident(repo, func(i *domain.Incident) {
		i.Status = domain.IncidentStatusResolved
		i.ResolvedAt = &resolvedAt
	})

	status := domain.IncidentStatusOpen
	updated, err := svc.UpdateIncident(context.Background(), seeded.ID, UpdateIncidentInput{
		Status: &status,
	}, "manager-1")

	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusOpen, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, resolvedAt, *updated.ResolvedAt)
}

func TestService_UpdateIncident_ExplicitResolvedAtWins(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockAuditWriter{})
	seeded := seedIncident(repo, nil)

	status := domain.IncidentStatusResolved
	resolvedAt := testNow.Add(-30 * time.Minute)
	updated, err := svc.UpdateIncident(context.Background(), seeded.ID, UpdateIncidentInput{
		Status:     &status,
		ResolvedAt: &resolvedAt,
	}, "manager-1")

	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, resolvedAt, *updated.ResolvedAt)
}

func TestService_UpdateIncident_VersionConflict(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)
	seeded := seedIncident(repo, nil)

	stale := seeded.Version - 1
	status := domain.IncidentStatusClosed
	_, err := svc.UpdateIncident(context.Background(), seeded.ID, UpdateIncidentInput{
		Status:          &status,
		ExpectedVersion: &stale,
	}, "manager-1")

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, repo.updated)
	assert.Empty(t, logs.entries)
	assert.False(t, repo.tx.committed)
}

func TestService_UpdateIncident_NotFound(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockAuditWriter{})

	_, err := svc.UpdateIncident(context.Background(),
		"00000000-0000-0000-0000-0000000000ff", UpdateIncidentInput{}, "manager-1")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteIncident(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)
	seeded := seedIncident(repo, nil)

	err := svc.DeleteIncident(context.Background(), seeded.ID, "admin-1")

	require.NoError(t, err)
	stored := repo.incidents[seeded.ID]
	assert.True(t, stored.IsDeleted)
	require.NotNil(t, stored.DeletedAt)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, audit.ActionDelete, logs.entries[0].Action)
	assert.Equal(t, "Incident soft deleted.", logs.entries[0].Details)
}

func TestService_DeleteIncident_Idempotent(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)
	seeded := seedIncident(repo, func(i *domain.Incident) {
		i.IsDeleted = true
		deletedAt := testNow.Add(-time.Minute)
		i.DeletedAt = &deletedAt
	})

	require.NoError(t, svc.DeleteIncident(context.Background(), seeded.ID, "admin-1"))
	require.NoError(t, svc.DeleteIncident(context.Background(),
		"00000000-0000-0000-0000-0000000000ff", "admin-1"))

	assert.Empty(t, logs.entries)
	assert.Empty(t, repo.updated)
}

func TestService_RestoreIncident(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)
	seeded := seedIncident(repo, func(i *domain.Incident) {
		i.IsDeleted = true
		deletedAt := testNow.Add(-time.Minute)
		i.DeletedAt = &deletedAt
	})

	restored, err := svc.RestoreIncident(context.Background(), seeded.ID, "admin-1")

	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, audit.ActionRestore, logs.entries[0].Action)
	assert.Equal(t, "Incident restored from soft delete.", logs.entries[0].Details)
}

func TestService_RestoreIncident_NotDeleted(t *testing.T) {
	repo := newMockRepo()
	logs := &mockAuditWriter{}
	svc := newTestService(repo, logs)
	seeded := seedIncident(repo, nil)

	_, err := svc.RestoreIncident(context.Background(), seeded.ID, "admin-1")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, logs.entries)
}
