package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/auth"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/utils"
)

// Demo seeding defaults
const (
	DefaultSeedCompanies        = 10
	DefaultSeedPeoplePerCompany = 5
	DefaultSeedUsers            = 3
	DefaultDemoPassword         = "adrata-demo-2024"
	demoUserDomain              = "demo.adrata.com"
	plantedDuplicates           = 2
)

var (
	slugRe          = regexp.MustCompile(`[^a-z0-9]+`)
	demoIndustries  = []string{"Software", "Fintech", "Healthcare", "Manufacturing", "Logistics", "Energy", "Retail", "Media"}
	demoStages      = []string{"Discovery", "Qualification", "Proposal", "Negotiation", "Closed Won"}
	demoDepartments = []string{"Sales", "Marketing", "Engineering", "Finance", "Operations", "Executive"}
)

// SeedRequest sizes a demo workspace. The same Seed always yields the same data.
type SeedRequest struct {
	WorkspaceName    string
	Companies        int
	PeoplePerCompany int
	Users            int
	Seed             int64
	Password         string
}

// SeededUser is a login created by the seeder
type SeededUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SeedResult counts what was created
type SeedResult struct {
	WorkspaceID       string       `json:"workspace_id"`
	Slug              string       `json:"slug"`
	Users             []SeededUser `json:"users"`
	Companies         int          `json:"companies"`
	People            int          `json:"people"`
	Leads             int          `json:"leads"`
	Prospects         int          `json:"prospects"`
	Opportunities     int          `json:"opportunities"`
	PlantedDuplicates int          `json:"planted_duplicates"`
	PlantedFakes      int          `json:"planted_fakes"`
}

// seedPlan is the full demo dataset, generated before anything is written.
type seedPlan struct {
	workspace     models.Workspace
	users         []models.User
	members       []models.WorkspaceUser
	companies     []models.Company
	people        []models.Person
	duplicates    []models.Person
	fakes         []models.Person
	leads         []models.PipelineRecord
	prospects     []models.PipelineRecord
	opportunities []models.Opportunity
}

func (p *seedPlan) result() *SeedResult {
	res := &SeedResult{
		WorkspaceID:       p.workspace.ID,
		Slug:              p.workspace.Slug,
		Companies:         len(p.companies),
		People:            len(p.people) + len(p.duplicates) + len(p.fakes),
		Leads:             len(p.leads),
		Prospects:         len(p.prospects),
		Opportunities:     len(p.opportunities),
		PlantedDuplicates: len(p.duplicates),
		PlantedFakes:      len(p.fakes),
	}
	for i, u := range p.users {
		res.Users = append(res.Users, SeededUser{ID: u.ID, Email: u.Email, Role: p.members[i].Role})
	}
	return res
}

// DemoSeeder fills a fresh workspace with realistic fake CRM data.
type DemoSeeder struct {
	workspaces *persistence.WorkspaceRepository
	users      *persistence.UserRepository
	companies  *persistence.CompanyRepository
	people     *persistence.PersonRepository
	records    *persistence.RecordRepository
	txManager  *persistence.TransactionManager
	logger     *zap.Logger
	now        func() time.Time
}

func NewDemoSeeder(db *sql.DB, logger *zap.Logger) *DemoSeeder {
	return &DemoSeeder{
		workspaces: persistence.NewWorkspaceRepository(db),
		users:      persistence.NewUserRepository(db),
		companies:  persistence.NewCompanyRepository(db),
		people:     persistence.NewPersonRepository(db),
		records:    persistence.NewRecordRepository(db),
		txManager:  persistence.NewTransactionManager(db),
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
}

// Slugify lowercases a name and joins its words with hyphens.
func Slugify(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func normalizeSeed(req SeedRequest) (SeedRequest, error) {
	if strings.TrimSpace(req.WorkspaceName) == "" {
		return req, apperrors.NewValidationError("workspace_name", "is required")
	}
	if Slugify(req.WorkspaceName) == "" {
		return req, apperrors.NewValidationError("workspace_name", "must contain letters or digits")
	}
	if req.Companies <= 0 {
		req.Companies = DefaultSeedCompanies
	}
	if req.PeoplePerCompany <= 0 {
		req.PeoplePerCompany = DefaultSeedPeoplePerCompany
	}
	if req.Users <= 0 {
		req.Users = DefaultSeedUsers
	}
	if req.Password == "" {
		req.Password = DefaultDemoPassword
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return req, apperrors.NewValidationError("password", err.Error())
	}
	return req, nil
}

// Seed creates the workspace and all of its data in one transaction.
func (s *DemoSeeder) Seed(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	req, err := normalizeSeed(req)
	if err != nil {
		return nil, err
	}
	slug := Slugify(req.WorkspaceName)
	if _, err := s.workspaces.FindBySlug(ctx, slug); err == nil {
		return nil, apperrors.NewValidationError("workspace_name", fmt.Sprintf("workspace %q already exists", slug))
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	plan := buildSeedPlan(req, hash, s.now())

	err = s.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		return s.write(ctx, tx, plan)
	})
	if err != nil {
		return nil, err
	}

	res := plan.result()
	s.logger.Info("🌱 Demo workspace seeded",
		zap.String("workspace_id", res.WorkspaceID),
		zap.String("slug", res.Slug),
		zap.Int("users", len(res.Users)),
		zap.Int("companies", res.Companies),
		zap.Int("people", res.People))
	return res, nil
}

func (s *DemoSeeder) write(ctx context.Context, tx *sql.Tx, plan *seedPlan) error {
	if err := s.workspaces.Insert(ctx, tx, plan.workspace); err != nil {
		return err
	}
	for i, u := range plan.users {
		if err := s.users.Insert(ctx, tx, u); err != nil {
			return err
		}
		if err := s.users.AddMember(ctx, tx, plan.members[i]); err != nil {
			return err
		}
	}
	for _, c := range plan.companies {
		if err := s.companies.Insert(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, group := range [][]models.Person{plan.people, plan.duplicates, plan.fakes} {
		for _, p := range group {
			if err := s.people.Insert(ctx, tx, p); err != nil {
				return err
			}
		}
	}
	for _, l := range plan.leads {
		if err := s.records.Insert(ctx, tx, constants.TableLead, l.Values()); err != nil {
			return err
		}
	}
	for _, p := range plan.prospects {
		if err := s.records.Insert(ctx, tx, constants.TableProspect, p.Values()); err != nil {
			return err
		}
	}
	for _, o := range plan.opportunities {
		if err := s.records.Insert(ctx, tx, constants.TableOpportunity, o.Values()); err != nil {
			return err
		}
	}
	return nil
}

// buildSeedPlan is deterministic for a given request, hash and clock.
func buildSeedPlan(req SeedRequest, passwordHash string, now time.Time) *seedPlan {
	f := gofakeit.New(req.Seed)
	plan := &seedPlan{
		workspace: models.Workspace{
			ID:        f.UUID(),
			Name:      req.WorkspaceName,
			Slug:      Slugify(req.WorkspaceName),
			Timezone:  "UTC",
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	wsID := plan.workspace.ID

	for i := 0; i < req.Users; i++ {
		first, last := f.FirstName(), f.LastName()
		u := models.User{
			ID:                f.UUID(),
			Email:             fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), i+1, demoUserDomain),
			Name:              utils.JoinName(first, last),
			FirstName:         first,
			LastName:          last,
			Password:          passwordHash,
			ActiveWorkspaceID: wsID,
			IsActive:          true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		role := constants.RoleSeller
		if i == 0 {
			role = constants.RoleWorkspaceAdmin
		}
		plan.users = append(plan.users, u)
		plan.members = append(plan.members, models.WorkspaceUser{
			ID: f.UUID(), WorkspaceID: wsID, UserID: u.ID, Role: role, IsActive: true, CreatedAt: now,
		})
	}
	owner := func(i int) string { return plan.users[i%len(plan.users)].ID }

	for ci := 0; ci < req.Companies; ci++ {
		name := fmt.Sprintf("%s %d", f.Company(), ci+1)
		domain := Slugify(name) + ".com"
		employees := f.Number(10, 5000)
		created := now.Add(-time.Duration(f.Number(30, 720)) * time.Hour)
		company := models.Company{
			ID:            f.UUID(),
			WorkspaceID:   wsID,
			Name:          name,
			Website:       "https://www." + domain,
			Domain:        domain,
			Industry:      f.RandomString(demoIndustries),
			Size:          models.SizeBucket(employees),
			EmployeeCount: employees,
			City:          f.City(),
			State:         f.State(),
			Country:       "United States",
			Status:        "ACTIVE",
			MainSellerID:  owner(ci),
			DataSources:   "demo",
			CreatedAt:     created,
			UpdatedAt:     created,
		}
		plan.companies = append(plan.companies, company)

		var staff []models.Person
		for pi := 0; pi < req.PeoplePerCompany; pi++ {
			first, last := f.FirstName(), f.LastName()
			p := models.Person{
				ID:           f.UUID(),
				WorkspaceID:  wsID,
				CompanyID:    company.ID,
				FirstName:    first,
				LastName:     last,
				FullName:     utils.JoinName(first, last),
				JobTitle:     f.JobTitle(),
				Department:   f.RandomString(demoDepartments),
				Email:        fmt.Sprintf("%s.%s@%s", strings.ToLower(first), strings.ToLower(last), domain),
				Phone:        "+1415" + f.Numerify("2######"),
				City:         company.City,
				State:        company.State,
				Country:      company.Country,
				Status:       constants.PersonStatusLead,
				Source:       "demo",
				MainSellerID: owner(ci + pi),
				CreatedAt:    created.Add(time.Duration(pi+1) * time.Minute),
				UpdatedAt:    created.Add(time.Duration(pi+1) * time.Minute),
			}
			staff = append(staff, p)
		}
		plan.people = append(plan.people, staff...)

		plan.leads = append(plan.leads, pipelineFrom(f.UUID(), staff[0], company, constants.PersonStatusLead, owner(ci), now))
		if len(staff) > 1 {
			plan.prospects = append(plan.prospects, pipelineFrom(f.UUID(), staff[1], company, constants.PersonStatusProspect, owner(ci), now))
		}

		closeDate := now.AddDate(0, 0, f.Number(14, 180))
		plan.opportunities = append(plan.opportunities, models.Opportunity{
			ID:                f.UUID(),
			WorkspaceID:       wsID,
			CompanyID:         company.ID,
			PersonID:          staff[0].ID,
			Name:              company.Name + " - " + f.BuzzWord(),
			Amount:            float64(f.Number(5, 250)) * 1000,
			Stage:             f.RandomString(demoStages),
			Probability:       f.Number(1, 9) * 10,
			ExpectedCloseDate: &closeDate,
			AssignedUserID:    owner(ci),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	// duplicates differ only in case and age so email grouping catches them
	for i := 0; i < plantedDuplicates && i < len(plan.people); i++ {
		dup := plan.people[i]
		dup.ID = f.UUID()
		dup.Email = strings.ToUpper(dup.Email)
		dup.Phone = ""
		dup.CreatedAt = now
		dup.UpdatedAt = now
		plan.duplicates = append(plan.duplicates, dup)
	}

	plan.fakes = []models.Person{
		{
			ID: f.UUID(), WorkspaceID: wsID, FirstName: "Test", LastName: "User", FullName: "Test User",
			Email: "test@example.com", Status: constants.PersonStatusLead, Source: "demo", CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: f.UUID(), WorkspaceID: wsID, FirstName: "John", LastName: "Doe", FullName: "John Doe",
			Phone: "+1 (415) 555-0123", Status: constants.PersonStatusLead, Source: "demo", CreatedAt: now, UpdatedAt: now,
		},
	}
	return plan
}

func pipelineFrom(id string, p models.Person, c models.Company, status, assignee string, now time.Time) models.PipelineRecord {
	return models.PipelineRecord{
		ID:             id,
		WorkspaceID:    p.WorkspaceID,
		PersonID:       p.ID,
		CompanyID:      c.ID,
		FullName:       p.FullName,
		Email:          p.Email,
		Company:        c.Name,
		JobTitle:       p.JobTitle,
		Status:         status,
		Source:         "demo",
		AssignedUserID: assignee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
