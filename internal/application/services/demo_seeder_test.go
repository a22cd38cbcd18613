package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/rules"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-demo", Slugify("  Acme Demo! "))
	assert.Equal(t, "q3-pipeline-2024", Slugify("Q3 Pipeline / 2024"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestBuildSeedPlan(t *testing.T) {
	req := SeedRequest{WorkspaceName: "Acme Demo", Companies: 3, PeoplePerCompany: 4, Users: 2, Seed: 7}

	plan := buildSeedPlan(req, "hash", fixedNow)
	again := buildSeedPlan(req, "hash", fixedNow)
	assert.Equal(t, plan, again, "same seed gives the same data")

	other := buildSeedPlan(SeedRequest{WorkspaceName: "Acme Demo", Companies: 3, PeoplePerCompany: 4, Users: 2, Seed: 8}, "hash", fixedNow)
	assert.NotEqual(t, plan.companies[0].Name, other.companies[0].Name)

	assert.Equal(t, "acme-demo", plan.workspace.Slug)
	require.Len(t, plan.users, 2)
	assert.Equal(t, constants.RoleWorkspaceAdmin, plan.members[0].Role)
	assert.Equal(t, constants.RoleSeller, plan.members[1].Role)
	assert.Len(t, plan.companies, 3)
	assert.Len(t, plan.people, 12)
	assert.Len(t, plan.leads, 3)
	assert.Len(t, plan.prospects, 3)
	assert.Len(t, plan.opportunities, 3)

	owners := map[string]bool{}
	for _, c := range plan.companies {
		owners[c.MainSellerID] = true
	}
	assert.Len(t, owners, 2, "ownership is spread across users")

	for _, p := range plan.people {
		assert.Equal(t, plan.workspace.ID, p.WorkspaceID)
		assert.NotEmpty(t, p.CompanyID)
	}

	t.Run("planted duplicates match case-insensitively", func(t *testing.T) {
		require.Len(t, plan.duplicates, plantedDuplicates)
		for i, dup := range plan.duplicates {
			assert.NotEqual(t, plan.people[i].ID, dup.ID)
			assert.True(t, strings.EqualFold(plan.people[i].Email, dup.Email))
			assert.True(t, dup.CreatedAt.After(plan.people[i].CreatedAt))
		}
	})

	t.Run("planted fakes trip the built-in rules", func(t *testing.T) {
		rs, err := rules.NewRuleSet(nil, nil)
		require.NoError(t, err)
		require.Len(t, plan.fakes, 2)
		for _, fake := range plan.fakes {
			assert.NotEmpty(t, rs.Evaluate(constants.TablePerson, fake.Values()), fake.FullName)
		}
		for _, p := range plan.people {
			assert.Empty(t, rs.Evaluate(constants.TablePerson, p.Values()), p.FullName)
		}
	})
}

func TestDemoSeeder_Seed(t *testing.T) {
	db, mock := newMockDB(t)
	seeder := NewDemoSeeder(db, nil)
	seeder.now = func() time.Time { return fixedNow }

	mock.ExpectQuery(q("FROM `workspaces`")).WithArgs("acme-demo").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	for _, table := range []string{"workspaces", "users", "workspace_users", "companies", "people", "people", "people", "people", "people", "people", "leads", "prospects", "opportunities"} {
		mock.ExpectExec(q("INSERT INTO `" + table + "`")).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	res, err := seeder.Seed(context.Background(), SeedRequest{WorkspaceName: "Acme Demo", Companies: 1, PeoplePerCompany: 2, Users: 1, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, "acme-demo", res.Slug)
	assert.NotEmpty(t, res.WorkspaceID)
	require.Len(t, res.Users, 1)
	assert.Equal(t, constants.RoleWorkspaceAdmin, res.Users[0].Role)
	assert.Equal(t, 1, res.Companies)
	assert.Equal(t, 6, res.People)
	assert.Equal(t, 2, res.PlantedDuplicates)
	assert.Equal(t, 2, res.PlantedFakes)
	assert.Equal(t, 1, res.Leads)
	assert.Equal(t, 1, res.Prospects)
	assert.Equal(t, 1, res.Opportunities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemoSeeder_Seed_Rejects(t *testing.T) {
	t.Run("existing slug", func(t *testing.T) {
		db, mock := newMockDB(t)
		seeder := NewDemoSeeder(db, nil)
		mock.ExpectQuery(q("FROM `workspaces`")).WillReturnRows(
			sqlmock.NewRows([]string{"id", "slug"}).AddRow("ws-1", "acme-demo"))

		_, err := seeder.Seed(context.Background(), SeedRequest{WorkspaceName: "Acme Demo"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("bad input", func(t *testing.T) {
		db, _ := newMockDB(t)
		seeder := NewDemoSeeder(db, nil)

		_, err := seeder.Seed(context.Background(), SeedRequest{})
		assert.True(t, apperrors.IsValidation(err))

		_, err = seeder.Seed(context.Background(), SeedRequest{WorkspaceName: "Acme", Password: "short"})
		assert.True(t, apperrors.IsValidation(err))
	})
}
