package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/query"
	"github.com/adrata/backend/pkg/utils"
)

// PersonFilter narrows PersonRepository.List
type PersonFilter struct {
	CompanyID      string
	MissingEmail   bool
	MissingPhone   bool
	EnrichedBefore *time.Time
	IDs            []string
	Limit          int
}

// PersonRepository reads and writes the people table
type PersonRepository struct {
	baseRepository
}

func NewPersonRepository(db *sql.DB) *PersonRepository {
	return &PersonRepository{baseRepository{db: db}}
}

// List returns active people in a workspace matching the filter, oldest first.
// MissingEmail and MissingPhone combine with OR: a person lacking either qualifies.
func (r *PersonRepository) List(ctx context.Context, workspaceID string, f PersonFilter) ([]models.Person, error) {
	b := query.From(constants.TablePerson).
		Select(models.PersonColumns...).
		InWorkspace(workspaceID).
		ExcludeDeleted()

	if f.CompanyID != "" {
		b.WhereEq(constants.FieldCompanyID, f.CompanyID)
	}
	if len(f.IDs) > 0 {
		b.WhereIn(constants.FieldID, f.IDs)
	}

	email := fmt.Sprintf("((%[1]s IS NULL OR %[1]s = '') AND (%[2]s IS NULL OR %[2]s = ''))",
		query.Quote(constants.FieldEmail), query.Quote(constants.FieldWorkEmail))
	phone := fmt.Sprintf("((%[1]s IS NULL OR %[1]s = '') AND (%[2]s IS NULL OR %[2]s = ''))",
		query.Quote(constants.FieldPhone), query.Quote(constants.FieldMobilePhone))
	switch {
	case f.MissingEmail && f.MissingPhone:
		b.Where("(" + email + " OR " + phone + ")")
	case f.MissingEmail:
		b.Where(email)
	case f.MissingPhone:
		b.Where(phone)
	}

	if f.EnrichedBefore != nil {
		b.Where(fmt.Sprintf("(%[1]s IS NULL OR %[1]s < ?)", query.Quote(constants.FieldLastEnriched)), *f.EnrichedBefore)
	}

	q := b.OrderBy(constants.FieldCreatedAt, "ASC").Limit(f.Limit).Build()
	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	people := make([]models.Person, 0, len(records))
	for _, rec := range records {
		people = append(people, models.PersonFromRecord(rec))
	}
	return people, nil
}

// FindByID returns an active person of the workspace.
func (r *PersonRepository) FindByID(ctx context.Context, workspaceID, id string) (*models.Person, error) {
	people, err := r.List(ctx, workspaceID, PersonFilter{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return nil, apperrors.NewNotFoundError("person", id)
	}
	return &people[0], nil
}

// ListByCompany returns the active people of one company.
func (r *PersonRepository) ListByCompany(ctx context.Context, workspaceID, companyID string) ([]models.Person, error) {
	return r.List(ctx, workspaceID, PersonFilter{CompanyID: companyID})
}

// EmailSet returns every lowercased email, workEmail and personalEmail in use
// by active people of the workspace.
func (r *PersonRepository) EmailSet(ctx context.Context, tx *sql.Tx, workspaceID string) (map[string]bool, error) {
	q := query.From(constants.TablePerson).
		Select(constants.FieldEmail, constants.FieldWorkEmail, constants.FieldPersonalEmail).
		InWorkspace(workspaceID).
		ExcludeDeleted().
		Build()
	records, err := r.fetch(ctx, r.executor(tx), q)
	if err != nil {
		return nil, fmt.Errorf("failed to load people emails: %w", err)
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		for _, col := range []string{constants.FieldEmail, constants.FieldWorkEmail, constants.FieldPersonalEmail} {
			if v := utils.NormalizeEmail(rec.String(col)); v != "" {
				set[v] = true
			}
		}
	}
	return set, nil
}

func (r *PersonRepository) Insert(ctx context.Context, tx *sql.Tx, p models.Person) error {
	if _, err := r.execute(ctx, r.executor(tx), query.Insert(constants.TablePerson, p.Values()).Build()); err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

// CompanyFilter narrows CompanyRepository.List
type CompanyFilter struct {
	IDs            []string
	MissingDomain  bool
	VerifiedBefore *time.Time
	Limit          int
}

// CompanyRepository reads and writes the companies table
type CompanyRepository struct {
	baseRepository
}

func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{baseRepository{db: db}}
}

func (r *CompanyRepository) List(ctx context.Context, workspaceID string, f CompanyFilter) ([]models.Company, error) {
	b := query.From(constants.TableCompany).
		Select(models.CompanyColumns...).
		InWorkspace(workspaceID).
		ExcludeDeleted()
	if len(f.IDs) > 0 {
		b.WhereIn(constants.FieldID, f.IDs)
	}
	if f.MissingDomain {
		b.WhereBlank(constants.FieldDomain)
	}
	if f.VerifiedBefore != nil {
		b.Where(fmt.Sprintf("(%[1]s IS NULL OR %[1]s < ?)", query.Quote(constants.FieldLastVerified)), *f.VerifiedBefore)
	}
	q := b.OrderBy(constants.FieldCreatedAt, "ASC").Limit(f.Limit).Build()

	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	companies := make([]models.Company, 0, len(records))
	for _, rec := range records {
		companies = append(companies, models.CompanyFromRecord(rec))
	}
	return companies, nil
}

func (r *CompanyRepository) FindByID(ctx context.Context, workspaceID, id string) (*models.Company, error) {
	companies, err := r.List(ctx, workspaceID, CompanyFilter{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, apperrors.NewNotFoundError("company", id)
	}
	return &companies[0], nil
}

func (r *CompanyRepository) Insert(ctx context.Context, tx *sql.Tx, c models.Company) error {
	if _, err := r.execute(ctx, r.executor(tx), query.Insert(constants.TableCompany, c.Values()).Build()); err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}
