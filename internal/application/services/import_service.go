package services

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/importer"
	"github.com/adrata/backend/pkg/utils"
)

// DefaultImportSource tags imported records when no source is given.
const DefaultImportSource = "import"

// ImportRequest describes one spreadsheet import
type ImportRequest struct {
	WorkspaceID string
	Path        string
	Sheet       string
	Source      string
	Apply       bool
	ReportDir   string
	ExportPath  string
}

// ImportResult summarizes an import run
type ImportResult struct {
	Report           importer.ImportReport `json:"report"`
	ReportFiles      []string              `json:"report_files,omitempty"`
	ExportPath       string                `json:"export_path,omitempty"`
	CompaniesCreated int                   `json:"companies_created"`
	CompaniesMatched int                   `json:"companies_matched"`
	PeopleCreated    int                   `json:"people_created"`
	PeopleSkipped    int                   `json:"people_skipped"`
	Applied          bool                  `json:"applied"`
}

// ImportService loads CSV and XLSX exports into a workspace.
type ImportService struct {
	people    *persistence.PersonRepository
	companies *persistence.CompanyRepository
	txManager *persistence.TransactionManager
	logger    *zap.Logger
	now       func() time.Time
}

func NewImportService(db *sql.DB, logger *zap.Logger) *ImportService {
	return &ImportService{
		people:    persistence.NewPersonRepository(db),
		companies: persistence.NewCompanyRepository(db),
		txManager: persistence.NewTransactionManager(db),
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// Import reads, cleans and reports on a file. With Apply it creates missing
// companies and people in a single transaction.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if req.Path == "" {
		return nil, apperrors.NewValidationError("file", "is required")
	}
	if req.Apply {
		if err := requireWorkspace(req.WorkspaceID); err != nil {
			return nil, err
		}
	}
	if req.Source == "" {
		req.Source = DefaultImportSource
	}

	table, err := importer.Read(req.Path, req.Sheet)
	if err != nil {
		return nil, err
	}
	rows := importer.Standardize(table, req.Source)
	unique, dedupe := importer.Deduplicate(rows)
	people, companies := importer.Split(unique)

	result := &ImportResult{
		Report: importer.ImportReport{
			GeneratedAt: s.now(),
			Quality:     map[string][]importer.FieldQuality{req.Source: importer.Quality(table, importer.KeyFieldsFor(table))},
			Dedupe:      dedupe,
			Validation:  importer.Validate(people),
			People:      len(people),
			Companies:   len(companies),
		},
	}
	s.logger.Info("📥 Import file parsed",
		zap.String("path", req.Path),
		zap.Int("rows", len(rows)),
		zap.Int("people", len(people)),
		zap.Int("companies", len(companies)),
		zap.Int("duplicates", dedupe.TotalDuplicates))

	if req.ExportPath != "" {
		if err := importer.ExportXLSX(req.ExportPath, people); err != nil {
			return nil, err
		}
		result.ExportPath = req.ExportPath
	}
	if req.ReportDir != "" {
		files, err := importer.WriteMarkdownReports(req.ReportDir, result.Report)
		if err != nil {
			return nil, err
		}
		result.ReportFiles = files
	}

	if !req.Apply {
		return result, nil
	}
	if err := s.apply(ctx, req, people, companies, result); err != nil {
		return nil, err
	}
	result.Applied = true
	s.logger.Info("✅ Import applied",
		zap.String("workspace_id", req.WorkspaceID),
		zap.Int("companies_created", result.CompaniesCreated),
		zap.Int("people_created", result.PeopleCreated),
		zap.Int("people_skipped", result.PeopleSkipped))
	return result, nil
}

func (s *ImportService) apply(ctx context.Context, req ImportRequest, people []importer.Row, companies []importer.CompanyRow, result *ImportResult) error {
	existing, err := s.companies.List(ctx, req.WorkspaceID, persistence.CompanyFilter{})
	if err != nil {
		return err
	}
	companyIDs := make(map[string]string, len(existing))
	for _, c := range existing {
		if key := utils.NormalizeCompanyName(c.Name); key != "" {
			if _, ok := companyIDs[key]; !ok {
				companyIDs[key] = c.ID
			}
		}
	}

	now := s.now()
	return s.txManager.WithTransaction(ctx, func(tx *sql.Tx) error {
		created, matched := 0, 0
		for _, row := range companies {
			if _, ok := companyIDs[row.Key()]; ok {
				matched++
				continue
			}
			c := models.Company{
				ID:          utils.GenerateID(),
				WorkspaceID: req.WorkspaceID,
				Name:        row.Name,
				City:        row.City,
				State:       row.State,
				Country:     row.Country,
				DataSources: req.Source,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.companies.Insert(ctx, tx, c); err != nil {
				return err
			}
			companyIDs[row.Key()] = c.ID
			created++
		}

		emails, err := s.people.EmailSet(ctx, tx, req.WorkspaceID)
		if err != nil {
			return err
		}
		inserted, skipped := 0, 0
		for _, row := range people {
			if emailTaken(emails, row) || row.FullName == "" && row.PrimaryEmail() == "" {
				skipped++
				continue
			}
			p := personFromRow(row, req.WorkspaceID, companyIDs[utils.NormalizeCompanyName(row.CompanyName)], now)
			if err := s.people.Insert(ctx, tx, p); err != nil {
				return err
			}
			for _, e := range []string{row.Email, row.WorkEmail, row.PersonalEmail} {
				if e != "" {
					emails[e] = true
				}
			}
			inserted++
		}

		result.CompaniesCreated, result.CompaniesMatched = created, matched
		result.PeopleCreated, result.PeopleSkipped = inserted, skipped
		return nil
	})
}

func emailTaken(emails map[string]bool, row importer.Row) bool {
	for _, e := range []string{row.Email, row.WorkEmail, row.PersonalEmail} {
		if e != "" && emails[e] {
			return true
		}
	}
	return false
}

func personFromRow(row importer.Row, workspaceID, companyID string, now time.Time) models.Person {
	return models.Person{
		ID:            utils.GenerateID(),
		WorkspaceID:   workspaceID,
		CompanyID:     companyID,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		FullName:      row.FullName,
		JobTitle:      row.JobTitle,
		Email:         row.Email,
		WorkEmail:     row.WorkEmail,
		PersonalEmail: row.PersonalEmail,
		Phone:         row.Phone,
		MobilePhone:   row.MobilePhone,
		WorkPhone:     row.WorkPhone,
		LinkedinURL:   row.LinkedinURL,
		City:          row.City,
		State:         row.State,
		Country:       row.Country,
		Status:        constants.PersonStatusLead,
		Source:        row.Source,
		Tags:          row.Tags,
		Notes:         row.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
