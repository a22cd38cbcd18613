package constants

// CRM tables shared with the web application
const (
	TableWorkspace      = "workspaces"
	TableUser           = "users"
	TableWorkspaceUser  = "workspace_users"
	TableCompany        = "companies"
	TablePerson         = "people"
	TableLead           = "leads"
	TableProspect       = "prospects"
	TableOpportunity    = "opportunities"
	TableEnrichmentJob  = "enrichment_jobs"
	TableEnrichmentData = "enrichment_cache"
)

// CountedTables are the tables reported by record counts, in display order.
var CountedTables = []string{
	TableWorkspace,
	TableUser,
	TableCompany,
	TablePerson,
	TableLead,
	TableProspect,
	TableOpportunity,
}

// QueryableTables may appear in ad hoc diagnostic queries.
var QueryableTables = map[string]bool{
	TableWorkspace:     true,
	TableUser:          true,
	TableWorkspaceUser: true,
	TableCompany:       true,
	TablePerson:        true,
	TableLead:          true,
	TableProspect:      true,
	TableOpportunity:   true,
	TableEnrichmentJob: true,
}

// OwnerColumns maps every owner-bearing table to its owner column.
var OwnerColumns = map[string]string{
	TablePerson:      FieldMainSellerID,
	TableCompany:     FieldMainSellerID,
	TableLead:        FieldAssignedUserID,
	TableProspect:    FieldAssignedUserID,
	TableOpportunity: FieldAssignedUserID,
}

// OwnerTables lists OwnerColumns keys in a stable order.
var OwnerTables = []string{TablePerson, TableCompany, TableLead, TableProspect, TableOpportunity}

// PipelineTables reference people and companies by id.
var PipelineTables = []string{TableLead, TableProspect, TableOpportunity}

// HasWorkspace reports whether a table is scoped by workspaceId.
func HasWorkspace(table string) bool {
	return table != TableUser && table != TableWorkspace
}

// HasSoftDelete reports whether a table carries deletedAt.
func HasSoftDelete(table string) bool {
	switch table {
	case TableUser, TableWorkspaceUser, TableEnrichmentJob:
		return false
	}
	return true
}
