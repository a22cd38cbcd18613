package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/enrichment"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/utils"
)

// MaxJobAttempts is how often a queued enrichment job is tried before it is marked failed.
const MaxJobAttempts = 5

// DefaultEnrichConcurrency bounds provider fan-out when neither options nor config set it.
const DefaultEnrichConcurrency = 4

const maxSummaryErrors = 20

// Enricher runs the provider chain for one request. *enrichment.Registry implements it.
type Enricher interface {
	Enrich(ctx context.Context, req enrichment.Request) *enrichment.Outcome
}

// EnrichOptions controls a batch enrichment run
type EnrichOptions struct {
	Limit       int
	MissingOnly bool
	StaleAfter  time.Duration
	Concurrency int
	Apply       bool
	Overwrite   bool
}

// EnrichSummary reports a batch enrichment run
type EnrichSummary struct {
	Kind     string         `json:"kind"`
	Scanned  int            `json:"scanned"`
	Enriched int            `json:"enriched"`
	Updated  int            `json:"updated"`
	Failed   int            `json:"failed"`
	BySource map[string]int `json:"by_source"`
	Applied  bool           `json:"applied"`
	Errors   []string       `json:"errors,omitempty"`
}

// QueueSummary reports one pass over the enrichment queue
type QueueSummary struct {
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// EnrichmentService fills people and companies from third-party providers,
// either in batches or one queued record at a time.
type EnrichmentService struct {
	db          *sql.DB
	enricher    Enricher
	people      *persistence.PersonRepository
	companies   *persistence.CompanyRepository
	records     *persistence.RecordRepository
	jobs        *persistence.EnrichmentJobRepository
	txManager   *persistence.TransactionManager
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

func NewEnrichmentService(db *sql.DB, enricher Enricher, concurrency int, logger *zap.Logger) *EnrichmentService {
	if concurrency < 1 {
		concurrency = DefaultEnrichConcurrency
	}
	return &EnrichmentService{
		db:          db,
		enricher:    enricher,
		people:      persistence.NewPersonRepository(db),
		companies:   persistence.NewCompanyRepository(db),
		records:     persistence.NewRecordRepository(db),
		jobs:        persistence.NewEnrichmentJobRepository(db),
		txManager:   persistence.NewTransactionManager(db),
		concurrency: concurrency,
		logger:      logging.OrNop(logger),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *EnrichmentService) workers(opts EnrichOptions) int {
	if opts.Concurrency > 0 {
		return opts.Concurrency
	}
	return s.concurrency
}

// companyIndex resolves company names and unique domains within a workspace.
type companyIndex struct {
	byID     map[string]models.Company
	byDomain map[string]string
}

func newCompanyIndex(companies []models.Company) companyIndex {
	idx := companyIndex{byID: make(map[string]models.Company, len(companies)), byDomain: make(map[string]string)}
	ambiguous := make(map[string]bool)
	for _, c := range companies {
		idx.byID[c.ID] = c
		d := c.EffectiveDomain()
		if d == "" || ambiguous[d] {
			continue
		}
		if _, seen := idx.byDomain[d]; seen {
			delete(idx.byDomain, d)
			ambiguous[d] = true
			continue
		}
		idx.byDomain[d] = c.ID
	}
	return idx
}

// PersonRequest builds the provider request for a person.
func PersonRequest(p models.Person, company *models.Company) enrichment.Request {
	req := enrichment.Request{
		Kind:        enrichment.KindPerson,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		FullName:    p.DisplayName(),
		Email:       p.PrimaryEmail(),
		LinkedinURL: p.LinkedinURL,
	}
	if company != nil {
		req.CompanyName = company.Name
		req.CompanyDomain = company.EffectiveDomain()
		req.Website = company.Website
	}
	if req.CompanyDomain == "" {
		if d := utils.EmailDomain(req.Email); d != "" && !utils.IsFreeMailDomain(d) {
			req.CompanyDomain = d
		}
	}
	return req
}

// CompanyRequest builds the provider request for a company.
func CompanyRequest(c models.Company) enrichment.Request {
	return enrichment.Request{
		Kind:          enrichment.KindCompany,
		CompanyName:   c.Name,
		CompanyDomain: c.EffectiveDomain(),
		Website:       c.Website,
		LinkedinURL:   c.LinkedinURL,
	}
}

func fill(fields map[string]interface{}, column, current, value string, overwrite bool) bool {
	if value == "" || value == current || (current != "" && !overwrite) {
		return false
	}
	fields[column] = value
	return true
}

func score(confidence float64) float64 {
	return float64(int(confidence*100 + 0.5))
}

// PersonFields returns the columns to write for one merged result and how
// many of them carry new data. Bookkeeping columns are always included.
func PersonFields(p models.Person, merged *enrichment.Result, overwrite bool, now time.Time) (map[string]interface{}, int) {
	fields := make(map[string]interface{})
	changed := 0
	if fill(fields, constants.FieldEmail, utils.FirstNonEmpty(p.Email, p.WorkEmail), merged.Email, overwrite) {
		fields[constants.FieldEmailConfidence] = score(merged.EmailConfidence)
		changed++
	}
	phoneFilled := false
	if fill(fields, constants.FieldPhone, p.Phone, merged.Phone, overwrite) {
		phoneFilled = true
		changed++
	}
	if fill(fields, constants.FieldMobilePhone, p.MobilePhone, merged.MobilePhone, overwrite) {
		phoneFilled = true
		changed++
	}
	if phoneFilled {
		fields[constants.FieldPhoneConfidence] = score(merged.PhoneConfidence)
	}
	for _, f := range []struct {
		column, current, value string
	}{
		{constants.FieldJobTitle, p.JobTitle, merged.JobTitle},
		{constants.FieldDepartment, p.Department, merged.Department},
		{constants.FieldSeniority, p.Seniority, merged.Seniority},
		{constants.FieldLinkedinURL, p.LinkedinURL, merged.LinkedinURL},
		{constants.FieldCity, p.City, merged.City},
		{constants.FieldState, p.State, merged.State},
		{constants.FieldCountry, p.Country, merged.Country},
	} {
		if fill(fields, f.column, f.current, f.value, overwrite) {
			changed++
		}
	}

	fields[constants.FieldLastEnriched] = now
	fields[constants.FieldEnrichmentSources] = strings.Join(merged.Sources, ",")
	fields[constants.FieldEnrichmentScore] = score(merged.Confidence)
	if len(merged.Raw) > 0 {
		fields[constants.FieldCoresignalData] = string(merged.Raw)
	}
	return fields, changed
}

// ParseRevenue reads vendor revenue strings such as "$12,500,000" or "12.5M".
func ParseRevenue(v string) (float64, bool) {
	s := strings.ToUpper(strings.TrimSpace(v))
	s = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "").Replace(s)
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "B"):
		mult, s = 1e9, strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f * mult, true
}

func mergeSources(existing string, sources []string) string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(strings.Split(existing, ","), sources...) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return strings.Join(out, ",")
}

// CompanyFields is PersonFields for companies. A new employee count also
// sets the size bucket.
func CompanyFields(c models.Company, merged *enrichment.Result, overwrite bool, now time.Time) (map[string]interface{}, int) {
	fields := make(map[string]interface{})
	changed := 0
	for _, f := range []struct {
		column, current, value string
	}{
		{constants.FieldIndustry, c.Industry, merged.Industry},
		{constants.FieldDescription, c.Description, merged.Description},
		{constants.FieldLinkedinURL, c.LinkedinURL, merged.LinkedinURL},
		{constants.FieldWebsite, c.Website, merged.Website},
		{constants.FieldDomain, c.Domain, utils.DomainFromURL(merged.Domain)},
		{constants.FieldCity, c.City, merged.City},
		{constants.FieldState, c.State, merged.State},
		{constants.FieldCountry, c.Country, merged.Country},
	} {
		if fill(fields, f.column, f.current, f.value, overwrite) {
			changed++
		}
	}
	if merged.EmployeeCount > 0 && merged.EmployeeCount != c.EmployeeCount && (c.EmployeeCount == 0 || overwrite) {
		fields[constants.FieldEmployeeCount] = merged.EmployeeCount
		fields[constants.FieldSize] = models.SizeBucket(merged.EmployeeCount)
		changed++
	}
	if rev, ok := ParseRevenue(merged.Revenue); ok && rev != c.Revenue && (c.Revenue == 0 || overwrite) {
		fields[constants.FieldRevenue] = rev
		changed++
	}

	fields[constants.FieldDataSources] = mergeSources(c.DataSources, merged.Sources)
	fields[constants.FieldLastVerified] = now
	return fields, changed
}

type batchItem struct {
	id  string
	req enrichment.Request
	// build returns the fields to write for the merged result.
	build func(merged *enrichment.Result) (map[string]interface{}, int)
}

// run fans the batch out over the provider chain and, with Apply, writes the
// results in one transaction ordered by id.
func (s *EnrichmentService) run(ctx context.Context, table string, items []batchItem, opts EnrichOptions, summary *EnrichSummary) error {
	var (
		mu      sync.Mutex
		updates []pendingUpdate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers(opts))
	for _, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := s.enricher.Enrich(gctx, item.req)
			merged := enrichment.Merge(outcome.Results)

			mu.Lock()
			defer mu.Unlock()
			if !merged.Success {
				if len(outcome.Errors) > 0 {
					summary.Failed++
					if len(summary.Errors) < maxSummaryErrors {
						summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", item.id, strings.Join(outcome.Errors, "; ")))
					}
				}
				return nil
			}
			summary.Enriched++
			for _, src := range merged.Sources {
				summary.BySource[src]++
			}
			fields, changed := item.build(merged)
			if changed > 0 {
				summary.Updated++
			}
			updates = append(updates, pendingUpdate{id: item.id, fields: fields})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !opts.Apply || len(updates) == 0 {
		return nil
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].id < updates[j].id })
	if err := applyUpdates(ctx, s.txManager, s.records, table, updates); err != nil {
		return fmt.Errorf("failed to write enrichment results: %w", err)
	}
	summary.Applied = true
	return nil
}

func (s *EnrichmentService) cutoff(opts EnrichOptions) *time.Time {
	if opts.StaleAfter <= 0 {
		return nil
	}
	t := s.now().Add(-opts.StaleAfter)
	return &t
}

// EnrichPeople enriches the workspace's people. A person without a company
// is linked when the merged result names the domain of exactly one company.
func (s *EnrichmentService) EnrichPeople(ctx context.Context, workspaceID string, opts EnrichOptions) (*EnrichSummary, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	people, err := s.people.List(ctx, workspaceID, persistence.PersonFilter{
		MissingEmail:   opts.MissingOnly,
		MissingPhone:   opts.MissingOnly,
		EnrichedBefore: s.cutoff(opts),
		Limit:          opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	companies, err := s.companies.List(ctx, workspaceID, persistence.CompanyFilter{})
	if err != nil {
		return nil, err
	}
	idx := newCompanyIndex(companies)

	summary := &EnrichSummary{Kind: enrichment.KindPerson, Scanned: len(people), BySource: make(map[string]int)}
	now := s.now()
	items := make([]batchItem, 0, len(people))
	for _, p := range people {
		var company *models.Company
		if c, ok := idx.byID[p.CompanyID]; ok {
			company = &c
		}
		items = append(items, batchItem{
			id:  p.ID,
			req: PersonRequest(p, company),
			build: func(merged *enrichment.Result) (map[string]interface{}, int) {
				fields, changed := PersonFields(p, merged, opts.Overwrite, now)
				if p.CompanyID == "" {
					if id, ok := idx.byDomain[utils.DomainFromURL(merged.Domain)]; ok {
						fields[constants.FieldCompanyID] = id
						changed++
					}
				}
				return fields, changed
			},
		})
	}

	s.logger.Info("🔎 Enriching people",
		zap.String("workspace_id", workspaceID), zap.Int("candidates", len(items)), zap.Bool("apply", opts.Apply))
	if err := s.run(ctx, constants.TablePerson, items, opts, summary); err != nil {
		return summary, err
	}
	s.logSummary(summary)
	return summary, nil
}

// EnrichCompanies enriches the workspace's companies. MissingOnly keeps
// companies lacking an industry or employee count.
func (s *EnrichmentService) EnrichCompanies(ctx context.Context, workspaceID string, opts EnrichOptions) (*EnrichSummary, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	companies, err := s.companies.List(ctx, workspaceID, persistence.CompanyFilter{
		VerifiedBefore: s.cutoff(opts),
		Limit:          opts.Limit,
	})
	if err != nil {
		return nil, err
	}

	summary := &EnrichSummary{Kind: enrichment.KindCompany, BySource: make(map[string]int)}
	now := s.now()
	var items []batchItem
	for _, c := range companies {
		if opts.MissingOnly && c.Industry != "" && c.EmployeeCount > 0 {
			continue
		}
		items = append(items, batchItem{
			id:  c.ID,
			req: CompanyRequest(c),
			build: func(merged *enrichment.Result) (map[string]interface{}, int) {
				return CompanyFields(c, merged, opts.Overwrite, now)
			},
		})
	}
	summary.Scanned = len(items)

	s.logger.Info("🔎 Enriching companies",
		zap.String("workspace_id", workspaceID), zap.Int("candidates", len(items)), zap.Bool("apply", opts.Apply))
	if err := s.run(ctx, constants.TableCompany, items, opts, summary); err != nil {
		return summary, err
	}
	s.logSummary(summary)
	return summary, nil
}

func (s *EnrichmentService) logSummary(summary *EnrichSummary) {
	s.logger.Info("✅ Enrichment finished",
		zap.String("kind", summary.Kind),
		zap.Int("scanned", summary.Scanned),
		zap.Int("enriched", summary.Enriched),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
		zap.Bool("applied", summary.Applied))
}

// Enqueue adds one pending job per record id in a single transaction.
func (s *EnrichmentService) Enqueue(ctx context.Context, workspaceID, recordType string, ids []string) ([]string, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	if recordType != constants.RecordTypePerson && recordType != constants.RecordTypeCompany {
		return nil, apperrors.NewValidationError("record_type", fmt.Sprintf("must be %s or %s", constants.RecordTypePerson, constants.RecordTypeCompany))
	}
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ids", "at least one record id is required")
	}

	jobIDs := make([]string, 0, len(ids))
	err := s.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		jobIDs = jobIDs[:0]
		for _, id := range ids {
			jobID, err := s.jobs.Enqueue(ctx, tx, workspaceID, recordType, id)
			if err != nil {
				return err
			}
			jobIDs = append(jobIDs, jobID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("📥 Enqueued enrichment jobs",
		zap.String("workspace_id", workspaceID), zap.String("record_type", recordType), zap.Int("count", len(jobIDs)))
	return jobIDs, nil
}

func (s *EnrichmentService) EnqueuePeople(ctx context.Context, workspaceID string, ids []string) ([]string, error) {
	return s.Enqueue(ctx, workspaceID, constants.RecordTypePerson, ids)
}

func (s *EnrichmentService) EnqueueCompanies(ctx context.Context, workspaceID string, ids []string) ([]string, error) {
	return s.Enqueue(ctx, workspaceID, constants.RecordTypeCompany, ids)
}

// ProcessQueue works through up to limit pending jobs, each claimed and
// finished in its own transaction.
func (s *EnrichmentService) ProcessQueue(ctx context.Context, limit int) (*QueueSummary, error) {
	jobs, err := s.jobs.Pending(ctx, limit)
	if err != nil {
		return nil, err
	}
	summary := &QueueSummary{Pending: len(jobs)}
	if len(jobs) > 0 {
		s.logger.Info("🔄 Processing enrichment queue", zap.Int("pending", len(jobs)))
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if err := s.processJob(ctx, job, summary); err != nil {
			s.logger.Warn("⚠️ Failed to process enrichment job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return summary, nil
}

func (s *EnrichmentService) processJob(ctx context.Context, job models.EnrichmentJob, summary *QueueSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	claimed, err := s.jobs.Claim(ctx, tx, job.ID)
	if err != nil {
		return err
	}
	if !claimed {
		summary.Skipped++
		return nil
	}

	if runErr := s.enrichRecord(ctx, tx, job); runErr != nil {
		attempts := job.RetryCount + 1
		if apperrors.IsNotFound(runErr) || apperrors.IsValidation(runErr) || attempts >= MaxJobAttempts {
			if err := s.jobs.MarkFailed(ctx, tx, job.ID, runErr.Error()); err != nil {
				return fmt.Errorf("failed to mark job as failed: %w", err)
			}
			summary.Failed++
			s.logger.Warn("❌ Enrichment job failed", zap.String("job_id", job.ID), zap.Int("attempts", attempts), zap.Error(runErr))
		} else {
			if err := s.jobs.IncrementRetry(ctx, tx, job.ID, attempts, runErr.Error()); err != nil {
				return fmt.Errorf("failed to update retry count: %w", err)
			}
			summary.Retried++
			s.logger.Warn("⚠️ Enrichment job will be retried",
				zap.String("job_id", job.ID), zap.Int("attempt", attempts), zap.Int("max_attempts", MaxJobAttempts), zap.Error(runErr))
		}
		return tx.Commit()
	}

	if err := s.jobs.MarkProcessed(ctx, tx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job as processed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job: %w", err)
	}
	summary.Processed++
	return nil
}

// enrichRecord enriches the job's record and writes the result inside tx.
// Provider errors without any match fail the attempt; a clean no-match does not.
func (s *EnrichmentService) enrichRecord(ctx context.Context, tx *sql.Tx, job models.EnrichmentJob) error {
	var (
		table string
		req   enrichment.Request
		build func(*enrichment.Result) (map[string]interface{}, int)
	)
	now := s.now()
	switch job.RecordType {
	case constants.RecordTypePerson:
		p, err := s.people.FindByID(ctx, job.WorkspaceID, job.RecordID)
		if err != nil {
			return err
		}
		var company *models.Company
		if p.CompanyID != "" {
			if c, err := s.companies.FindByID(ctx, job.WorkspaceID, p.CompanyID); err == nil {
				company = c
			}
		}
		table, req = constants.TablePerson, PersonRequest(*p, company)
		build = func(m *enrichment.Result) (map[string]interface{}, int) { return PersonFields(*p, m, false, now) }
	case constants.RecordTypeCompany:
		c, err := s.companies.FindByID(ctx, job.WorkspaceID, job.RecordID)
		if err != nil {
			return err
		}
		table, req = constants.TableCompany, CompanyRequest(*c)
		build = func(m *enrichment.Result) (map[string]interface{}, int) { return CompanyFields(*c, m, false, now) }
	default:
		return apperrors.NewValidationError("record_type", job.RecordType)
	}

	outcome := s.enricher.Enrich(ctx, req)
	merged := enrichment.Merge(outcome.Results)
	if !merged.Success {
		if len(outcome.Errors) > 0 {
			return fmt.Errorf("enrichment failed: %s", strings.Join(outcome.Errors, "; "))
		}
		return nil
	}
	fields, _ := build(merged)
	return s.records.UpdateFields(ctx, tx, table, job.RecordID, fields)
}

// CleanupProcessed removes processed jobs finished more than olderThan ago.
func (s *EnrichmentService) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.jobs.CleanupProcessed(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("🧹 Cleaned up processed enrichment jobs", zap.Int64("deleted", n))
	}
	return n, nil
}
