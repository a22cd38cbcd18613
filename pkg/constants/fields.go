package constants

// Column names. The web application's ORM created them in camelCase.
const (
	FieldID          = "id"
	FieldWorkspaceID = "workspaceId"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldDeletedAt   = "deletedAt"

	FieldName      = "name"
	FieldSlug      = "slug"
	FieldTimezone  = "timezone"
	FieldIsActive  = "isActive"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldFullName  = "fullName"
	FieldUserID    = "userId"
	FieldRole      = "role"

	FieldActiveWorkspaceID = "activeWorkspaceId"

	FieldCompanyID      = "companyId"
	FieldPersonID       = "personId"
	FieldMainSellerID   = "mainSellerId"
	FieldAssignedUserID = "assignedUserId"

	FieldWebsite       = "website"
	FieldDomain        = "domain"
	FieldIndustry      = "industry"
	FieldSize          = "size"
	FieldEmployeeCount = "employeeCount"
	FieldRevenue       = "revenue"
	FieldDescription   = "description"
	FieldLinkedinURL   = "linkedinUrl"
	FieldCity          = "city"
	FieldState         = "state"
	FieldCountry       = "country"
	FieldStatus        = "status"
	FieldTags          = "tags"
	FieldDataSources   = "dataSources"
	FieldLastVerified  = "lastVerified"

	FieldJobTitle           = "jobTitle"
	FieldDepartment         = "department"
	FieldSeniority          = "seniority"
	FieldWorkEmail          = "workEmail"
	FieldPersonalEmail      = "personalEmail"
	FieldPhone              = "phone"
	FieldMobilePhone        = "mobilePhone"
	FieldWorkPhone          = "workPhone"
	FieldSource             = "source"
	FieldNotes              = "notes"
	FieldBuyerGroupRole     = "buyerGroupRole"
	FieldIsBuyerGroupMember = "isBuyerGroupMember"
	FieldInfluenceScore     = "influenceScore"
	FieldDecisionPower      = "decisionPower"
	FieldFlightRiskScore    = "flightRiskScore"
	FieldEnrichmentSources  = "enrichmentSources"
	FieldEnrichmentScore    = "enrichmentScore"
	FieldEmailConfidence    = "emailConfidence"
	FieldPhoneConfidence    = "phoneConfidence"
	FieldLastEnriched       = "lastEnriched"
	FieldCoresignalData     = "coresignalData"

	FieldCompany           = "company"
	FieldAmount            = "amount"
	FieldStage             = "stage"
	FieldProbability       = "probability"
	FieldExpectedCloseDate = "expectedCloseDate"

	FieldRecordType   = "recordType"
	FieldRecordID     = "recordId"
	FieldRetryCount   = "retryCount"
	FieldErrorMessage = "errorMessage"
	FieldProcessedAt  = "processedAt"
)

// Workspace roles
const (
	RoleSuperAdmin     = "SUPER_ADMIN"
	RoleWorkspaceAdmin = "WORKSPACE_ADMIN"
	RoleManager        = "MANAGER"
	RoleSeller         = "SELLER"
	RoleViewer         = "VIEWER"
)

// IsAdminRole reports whether a role may run operational tooling.
func IsAdminRole(role string) bool {
	return role == RoleSuperAdmin || role == RoleWorkspaceAdmin
}

// Person statuses
const (
	PersonStatusLead        = "LEAD"
	PersonStatusProspect    = "PROSPECT"
	PersonStatusOpportunity = "OPPORTUNITY"
	PersonStatusClient      = "CLIENT"
	PersonStatusSuperfan    = "SUPERFAN"
)

// Enrichment job statuses
const (
	JobStatusPending   = "pending"
	JobStatusProcessed = "processed"
	JobStatusFailed    = "failed"
)

// Enrichment record types
const (
	RecordTypePerson  = "person"
	RecordTypeCompany = "company"
)

// HTTP and context keys
const (
	HeaderAuthorization = "Authorization"
	ContextKeyClaims    = "claims"
	ResponseError       = "error"
	FieldMessage        = "message"
)
