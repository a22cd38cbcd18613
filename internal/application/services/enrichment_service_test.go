package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/enrichment"
	apperrors "github.com/adrata/backend/pkg/errors"
)

// fakeProvider answers from a map keyed by request email or company domain.
type fakeProvider struct {
	name     string
	priority int
	results  map[string]*enrichment.Result
	errs     map[string]error

	mu    sync.Mutex
	calls int
}

func (p *fakeProvider) Name() string                     { return p.name }
func (p *fakeProvider) Priority() int                    { return p.priority }
func (p *fakeProvider) Available() bool                  { return true }
func (p *fakeProvider) Supports(enrichment.Request) bool { return true }

func (p *fakeProvider) Enrich(_ context.Context, req enrichment.Request) (*enrichment.Result, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	key := req.Email
	if req.Kind == enrichment.KindCompany {
		key = req.CompanyDomain
	}
	if err, ok := p.errs[key]; ok {
		return nil, err
	}
	if r, ok := p.results[key]; ok {
		out := *r
		out.Source = p.name
		return &out, nil
	}
	return &enrichment.Result{Source: p.name}, nil
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPersonFields(t *testing.T) {
	merged := &enrichment.Result{
		Success: true, Confidence: 0.9, Sources: []string{"coresignal", "lusha"},
		Email: "jane@acme.com", EmailConfidence: 0.95, MobilePhone: "+14155552671", PhoneConfidence: 0.8,
		JobTitle: "VP Sales", City: "Austin", Raw: json.RawMessage(`{"id":1}`),
	}

	t.Run("fills empty fields only", func(t *testing.T) {
		p := models.Person{ID: "p-1", JobTitle: "Sales Lead"}
		fields, changed := PersonFields(p, merged, false, fixedNow)
		assert.Equal(t, 3, changed)
		assert.Equal(t, map[string]interface{}{
			constants.FieldEmail:             "jane@acme.com",
			constants.FieldEmailConfidence:   float64(95),
			constants.FieldMobilePhone:       "+14155552671",
			constants.FieldPhoneConfidence:   float64(80),
			constants.FieldCity:              "Austin",
			constants.FieldLastEnriched:      fixedNow,
			constants.FieldEnrichmentSources: "coresignal,lusha",
			constants.FieldEnrichmentScore:   float64(90),
			constants.FieldCoresignalData:    `{"id":1}`,
		}, fields)
	})

	t.Run("overwrite replaces different values", func(t *testing.T) {
		p := models.Person{ID: "p-1", JobTitle: "Sales Lead", City: "Austin"}
		fields, changed := PersonFields(p, merged, true, fixedNow)
		assert.Equal(t, 3, changed)
		assert.Equal(t, "VP Sales", fields[constants.FieldJobTitle])
		assert.NotContains(t, fields, constants.FieldCity)
	})

	t.Run("work email counts as present", func(t *testing.T) {
		p := models.Person{ID: "p-1", WorkEmail: "other@acme.com"}
		fields, _ := PersonFields(p, merged, false, fixedNow)
		assert.NotContains(t, fields, constants.FieldEmail)
	})
}

func TestCompanyFields(t *testing.T) {
	merged := &enrichment.Result{
		Success: true, Confidence: 0.7, Sources: []string{"lusha"},
		Industry: "Software", EmployeeCount: 320, Revenue: "$12.5M", Domain: "https://www.acme.com",
	}
	c := models.Company{ID: "c-1", Name: "Acme", DataSources: "import,lusha"}
	fields, changed := CompanyFields(c, merged, false, fixedNow)
	assert.Equal(t, 4, changed)
	assert.Equal(t, "Software", fields[constants.FieldIndustry])
	assert.Equal(t, "acme.com", fields[constants.FieldDomain])
	assert.Equal(t, 320, fields[constants.FieldEmployeeCount])
	assert.Equal(t, "M3", fields[constants.FieldSize])
	assert.Equal(t, 12.5e6, fields[constants.FieldRevenue])
	assert.Equal(t, "import,lusha", fields[constants.FieldDataSources])
	assert.Equal(t, fixedNow, fields[constants.FieldLastVerified])

	c.EmployeeCount = 100
	fields, _ = CompanyFields(c, merged, false, fixedNow)
	assert.NotContains(t, fields, constants.FieldEmployeeCount)
}

func TestParseRevenue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$12,500,000", 12500000, true},
		{"12.5M", 12.5e6, true},
		{"3B USD", 3e9, true},
		{"750k", 750000, true},
		{"", 0, false},
		{"unknown", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRevenue(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestPersonRequest(t *testing.T) {
	p := models.Person{FirstName: "Jane", LastName: "Roe", Email: "jane@gmail.com", WorkEmail: "jane@acme.com"}
	req := PersonRequest(p, nil)
	assert.Equal(t, "Jane Roe", req.FullName)
	assert.Equal(t, "jane@acme.com", req.Email)
	assert.Equal(t, "acme.com", req.CompanyDomain)

	p.WorkEmail = ""
	assert.Empty(t, PersonRequest(p, nil).CompanyDomain, "free mail is never a company domain")

	company := &models.Company{Name: "Acme Inc", Website: "https://acme.io"}
	req = PersonRequest(p, company)
	assert.Equal(t, "Acme Inc", req.CompanyName)
	assert.Equal(t, "acme.io", req.CompanyDomain)
}

func personRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "workspaceId", "companyId", "firstName", "lastName", "fullName", "email", "createdAt"})
}

func TestEnrichmentService_EnrichPeople(t *testing.T) {
	provider := &fakeProvider{
		name: enrichment.SourceLusha, priority: 2,
		results: map[string]*enrichment.Result{
			"jane@acme.com": {Success: true, Confidence: 0.9, Phone: "+14155552671", PhoneConfidence: 0.9, Domain: "acme.com"},
			"sam@beta.io":   {Success: true, Confidence: 0.6, JobTitle: "CTO"},
		},
		errs: map[string]error{
			"max@gamma.dev": apperrors.NewProviderError("lusha", 500, "boom"),
		},
	}

	t.Run("dry run", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewEnrichmentService(db, enrichment.NewRegistry([]enrichment.Provider{provider}, nil), 2, nil)
		svc.now = func() time.Time { return fixedNow }

		mock.ExpectQuery(q("FROM `people`")).WithArgs("ws-1").WillReturnRows(personRows().
			AddRow("p-1", "ws-1", nil, "Jane", "Roe", "Jane Roe", "jane@acme.com", day1).
			AddRow("p-2", "ws-1", "c-2", "Sam", "Lee", "Sam Lee", "sam@beta.io", day1).
			AddRow("p-3", "ws-1", nil, "Max", "Power", "Max Power", "max@gamma.dev", day1).
			AddRow("p-4", "ws-1", nil, "Kim", "Li", "Kim Li", "kim@nowhere.org", day1))
		mock.ExpectQuery(q("FROM `companies`")).WithArgs("ws-1").WillReturnRows(
			sqlmock.NewRows([]string{"id", "name", "domain"}).
				AddRow("c-1", "Acme", "acme.com").
				AddRow("c-2", "Beta", "beta.io"))

		summary, err := svc.EnrichPeople(context.Background(), "ws-1", EnrichOptions{})
		require.NoError(t, err)
		assert.Equal(t, 4, summary.Scanned)
		assert.Equal(t, 2, summary.Enriched)
		assert.Equal(t, 2, summary.Updated)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, map[string]int{enrichment.SourceLusha: 2}, summary.BySource)
		assert.False(t, summary.Applied)
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0], "p-3")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("apply writes in id order and links company", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewEnrichmentService(db, enrichment.NewRegistry([]enrichment.Provider{provider}, nil), 4, nil)
		svc.now = func() time.Time { return fixedNow }

		mock.ExpectQuery(q("FROM `people`")).WillReturnRows(personRows().
			AddRow("p-2", "ws-1", "c-2", "Sam", "Lee", "Sam Lee", "sam@beta.io", day1).
			AddRow("p-1", "ws-1", nil, "Jane", "Roe", "Jane Roe", "jane@acme.com", day1))
		mock.ExpectQuery(q("FROM `companies`")).WillReturnRows(
			sqlmock.NewRows([]string{"id", "name", "domain"}).AddRow("c-1", "Acme", "acme.com"))
		mock.ExpectBegin()
		mock.ExpectExec(q("UPDATE `people` SET `companyId` = ?, `enrichmentScore` = ?, `enrichmentSources` = ?, `lastEnriched` = ?, `phone` = ?, `phoneConfidence` = ?, `updatedAt` = ? WHERE `id` = ?")).
			WithArgs("c-1", float64(90), "lusha", fixedNow, "+14155552671", float64(90), sqlmock.AnyArg(), "p-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q("UPDATE `people` SET `enrichmentScore` = ?, `enrichmentSources` = ?, `jobTitle` = ?, `lastEnriched` = ?, `updatedAt` = ? WHERE `id` = ?")).
			WithArgs(float64(60), "lusha", "CTO", fixedNow, sqlmock.AnyArg(), "p-2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		summary, err := svc.EnrichPeople(context.Background(), "ws-1", EnrichOptions{Apply: true})
		require.NoError(t, err)
		assert.True(t, summary.Applied)
		assert.Equal(t, 2, summary.Updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("requires workspace", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := NewEnrichmentService(db, enrichment.NewRegistry(nil, nil), 1, nil)
		_, err := svc.EnrichPeople(context.Background(), "", EnrichOptions{})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestEnrichmentService_EnrichCompanies_MissingOnly(t *testing.T) {
	provider := &fakeProvider{
		name: enrichment.SourceCoreSignal, priority: 1,
		results: map[string]*enrichment.Result{
			"beta.io": {Success: true, Confidence: 0.9, Industry: "Fintech", EmployeeCount: 40},
		},
	}
	db, mock := newMockDB(t)
	svc := NewEnrichmentService(db, enrichment.NewRegistry([]enrichment.Provider{provider}, nil), 2, nil)

	mock.ExpectQuery(q("FROM `companies`")).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "domain", "industry", "employeeCount"}).
			AddRow("c-1", "Acme", "acme.com", "Software", 500).
			AddRow("c-2", "Beta", "beta.io", nil, nil))

	summary, err := svc.EnrichCompanies(context.Background(), "ws-1", EnrichOptions{MissingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Enriched)
	assert.Equal(t, 1, provider.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrichmentService_Enqueue(t *testing.T) {
	t.Run("inserts one job per id in a transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewEnrichmentService(db, enrichment.NewRegistry(nil, nil), 1, nil)

		mock.ExpectBegin()
		for _, id := range []string{"p-1", "p-2"} {
			mock.ExpectExec(q("INSERT INTO `enrichment_jobs`")).
				WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), id, constants.RecordTypePerson, 0, constants.JobStatusPending, sqlmock.AnyArg(), "ws-1").
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		ids, err := svc.EnqueuePeople(context.Background(), "ws-1", []string{"p-1", "p-2"})
		require.NoError(t, err)
		assert.Len(t, ids, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validates input", func(t *testing.T) {
		db, _ := newMockDB(t)
		svc := NewEnrichmentService(db, enrichment.NewRegistry(nil, nil), 1, nil)
		_, err := svc.Enqueue(context.Background(), "ws-1", "lead", []string{"l-1"})
		assert.True(t, apperrors.IsValidation(err))
		_, err = svc.EnqueueCompanies(context.Background(), "ws-1", nil)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "workspaceId", "recordType", "recordId", "status", "retryCount"})
}

func TestEnrichmentService_ProcessQueue(t *testing.T) {
	provider := &fakeProvider{
		name: enrichment.SourceLusha, priority: 2,
		results: map[string]*enrichment.Result{
			"jane@acme.com": {Success: true, Confidence: 0.9, JobTitle: "CEO"},
		},
		errs: map[string]error{
			"sam@beta.io": fmt.Errorf("timeout"),
		},
	}
	db, mock := newMockDB(t)
	svc := NewEnrichmentService(db, enrichment.NewRegistry([]enrichment.Provider{provider}, nil), 1, nil)
	svc.now = func() time.Time { return fixedNow }

	mock.ExpectQuery(q("FROM `enrichment_jobs`")).WillReturnRows(jobRows().
		AddRow("j-1", "ws-1", "person", "p-1", "pending", 0).
		AddRow("j-2", "ws-1", "person", "p-2", "pending", 4).
		AddRow("j-3", "ws-1", "person", "p-3", "pending", 0).
		AddRow("j-4", "ws-1", "person", "p-9", "pending", 0))

	// j-1 succeeds
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).WithArgs("j-1", constants.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("j-1"))
	mock.ExpectQuery(q("FROM `people`")).WillReturnRows(personRows().
		AddRow("p-1", "ws-1", nil, "Jane", "Roe", "Jane Roe", "jane@acme.com", day1))
	mock.ExpectExec(q("UPDATE `people` SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE `enrichment_jobs` SET `processedAt` = ?, `status` = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// j-2 fails its fifth attempt
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).WithArgs("j-2", constants.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("j-2"))
	mock.ExpectQuery(q("FROM `people`")).WillReturnRows(personRows().
		AddRow("p-2", "ws-1", nil, "Sam", "Lee", "Sam Lee", "sam@beta.io", day1))
	mock.ExpectExec(q("UPDATE `enrichment_jobs` SET `errorMessage` = ?, `status` = ?")).
		WithArgs(sqlmock.AnyArg(), constants.JobStatusFailed, sqlmock.AnyArg(), "j-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// j-3 is held by another worker
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).WithArgs("j-3", constants.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	// j-4 points at a missing person and fails at once
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).WithArgs("j-4", constants.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("j-4"))
	mock.ExpectQuery(q("FROM `people`")).WillReturnRows(personRows())
	mock.ExpectExec(q("UPDATE `enrichment_jobs` SET `errorMessage` = ?, `status` = ?")).
		WithArgs(sqlmock.AnyArg(), constants.JobStatusFailed, sqlmock.AnyArg(), "j-4").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, err := svc.ProcessQueue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, &QueueSummary{Pending: 4, Processed: 1, Failed: 2, Skipped: 1}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrichmentService_ProcessQueue_Retry(t *testing.T) {
	provider := &fakeProvider{
		name: enrichment.SourceLusha, priority: 2,
		errs: map[string]error{"sam@beta.io": fmt.Errorf("timeout")},
	}
	db, mock := newMockDB(t)
	svc := NewEnrichmentService(db, enrichment.NewRegistry([]enrichment.Provider{provider}, nil), 1, nil)

	mock.ExpectQuery(q("FROM `enrichment_jobs`")).WillReturnRows(jobRows().
		AddRow("j-2", "ws-1", "person", "p-2", "pending", 1))
	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("j-2"))
	mock.ExpectQuery(q("FROM `people`")).WillReturnRows(personRows().
		AddRow("p-2", "ws-1", nil, "Sam", "Lee", "Sam Lee", "sam@beta.io", day1))
	mock.ExpectExec(q("UPDATE `enrichment_jobs` SET `errorMessage` = ?, `retryCount` = ?")).
		WithArgs(sqlmock.AnyArg(), 2, sqlmock.AnyArg(), "j-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	summary, err := svc.ProcessQueue(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrichmentService_CleanupProcessed(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewEnrichmentService(db, enrichment.NewRegistry(nil, nil), 1, nil)
	svc.now = func() time.Time { return fixedNow }

	mock.ExpectExec(q("DELETE FROM `enrichment_jobs` WHERE `status` = ? AND `processedAt` < ?")).
		WithArgs(constants.JobStatusProcessed, fixedNow.Add(-7*24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := svc.CleanupProcessed(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
