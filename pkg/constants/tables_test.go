package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerColumnsCoverOwnerTables(t *testing.T) {
	assert.Len(t, OwnerColumns, len(OwnerTables))
	for _, table := range OwnerTables {
		_, ok := OwnerColumns[table]
		assert.True(t, ok, "missing owner column for %s", table)
	}
}

func TestHasWorkspace(t *testing.T) {
	assert.False(t, HasWorkspace(TableUser))
	assert.False(t, HasWorkspace(TableWorkspace))
	assert.True(t, HasWorkspace(TablePerson))
	assert.True(t, HasWorkspace(TableOpportunity))
}

func TestHasSoftDelete(t *testing.T) {
	assert.True(t, HasSoftDelete(TableCompany))
	assert.False(t, HasSoftDelete(TableUser))
	assert.False(t, HasSoftDelete(TableEnrichmentJob))
}

func TestIsAdminRole(t *testing.T) {
	assert.True(t, IsAdminRole(RoleSuperAdmin))
	assert.True(t, IsAdminRole(RoleWorkspaceAdmin))
	assert.False(t, IsAdminRole(RoleSeller))
	assert.False(t, IsAdminRole(""))
}
