package buyergroup

import "time"

// Buyer group roles
const (
	RoleDecisionMaker = "decision_maker"
	RoleChampion      = "champion"
	RoleBlocker       = "blocker"
	RoleStakeholder   = "stakeholder"
	RoleOpener        = "opener"
)

// Engagement strategies
const (
	StrategyExecutiveSponsor     = "executive_sponsor"
	StrategyChampionLed          = "champion_led"
	StrategyBlockerMitigation    = "blocker_mitigation"
	StrategyStakeholderConsensus = "stakeholder_consensus"
)

// Group priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Seniority levels
const (
	SeniorityExecutive  = "executive"
	SeniorityDirector   = "director"
	SeniorityManager    = "manager"
	SeniorityIndividual = "individual"
	SeniorityEntry      = "entry"
)

// Departments
const (
	DeptSales           = "Sales"
	DeptMarketing       = "Marketing"
	DeptProduct         = "Product"
	DeptEngineering     = "Engineering"
	DeptOperations      = "Operations"
	DeptFinance         = "Finance"
	DeptHR              = "HR"
	DeptLegal           = "Legal"
	DeptExecutive       = "Executive"
	DeptCustomerSuccess = "Customer Success"
	DeptOther           = "Other"
)

const (
	DefaultMinGroupSize = 3
	DefaultOptimalSize  = 8
)

// Employee is one person at the target company, as loaded from the CRM,
// a Bright Data snapshot or a file.
type Employee struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Title           string `json:"position"`
	About           string `json:"about,omitempty"`
	Location        string `json:"city,omitempty"`
	LinkedinURL     string `json:"url,omitempty"`
	Connections     int    `json:"connections"`
	Followers       int    `json:"followers"`
	Recommendations int    `json:"recommendations_count"`
	HasActivity     bool   `json:"has_activity"`
	// ActivityUnknown is set when the source carries no activity data at all,
	// so a missing activity feed does not count against the person.
	ActivityUnknown bool `json:"activity_unknown,omitempty"`
	HasExperience   bool `json:"has_experience"`
}

// Member is an employee with every derived buyer group attribute.
type Member struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Title             string  `json:"title"`
	TitleInferred     bool    `json:"title_inferred"`
	Department        string  `json:"department"`
	Team              string  `json:"team"`
	StandardizedTitle string  `json:"standardized_title"`
	Seniority         string  `json:"seniority_level"`
	DecisionPower     float64 `json:"decision_making_power"`
	Role              string  `json:"buyer_group_role"`
	Influence         float64 `json:"influence_score"`
	FlightRisk        float64 `json:"flight_risk_score"`
	Confidence        float64 `json:"enrichment_confidence"`
	Composite         float64 `json:"composite_influence"`
	LinkedinURL       string  `json:"linkedin_url,omitempty"`
	Location          string  `json:"location,omitempty"`
}

// RoleBuckets lists member ids per role
type RoleBuckets struct {
	Champions      []string `json:"champions"`
	DecisionMakers []string `json:"decision_makers"`
	Blockers       []string `json:"blockers"`
	Stakeholders   []string `json:"stakeholders"`
	Openers        []string `json:"openers"`
}

type GroupMetrics struct {
	TotalInfluence   float64 `json:"total_influence"`
	AvgDecisionPower float64 `json:"avg_decision_power"`
	FlightRisk       float64 `json:"flight_risk"`
	CoverageScore    float64 `json:"coverage_score"`
}

// Group is a department-level buyer group
type Group struct {
	ID          string       `json:"id"`
	CompanyID   string       `json:"company_id"`
	CompanyName string       `json:"company_name"`
	Department  string       `json:"department"`
	Members     []string     `json:"members"`
	Roles       RoleBuckets  `json:"roles"`
	Metrics     GroupMetrics `json:"metrics"`
	Strategy    string       `json:"engagement_strategy"`
	Priority    string       `json:"priority"`
}

type Recommendation struct {
	GroupID   string `json:"buyer_group_id"`
	Priority  string `json:"priority"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
	Timeline  string `json:"timeline"`
}

// Context describes how the company is organised around revenue.
type Context struct {
	TotalEmployees      int            `json:"total_employees"`
	Departments         map[string]int `json:"departments"`
	SalesPercentage     float64        `json:"sales_percentage"`
	MarketingPercentage float64        `json:"marketing_percentage"`
	CompanyType         string         `json:"company_type"`
	Recommendations     []string       `json:"strategic_recommendations"`
}

type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Size     string `json:"size,omitempty"`
}

type Summary struct {
	TotalGroups        int     `json:"total_buyer_groups"`
	HighPriorityGroups int     `json:"high_priority_groups"`
	AvgGroupSize       float64 `json:"avg_group_size"`
	CoverageScore      float64 `json:"coverage_score"`
}

// Report is the full output of Analyze
type Report struct {
	Company         Company          `json:"company"`
	Members         []Member         `json:"enriched_people"`
	Groups          []Group          `json:"buyer_groups"`
	Optimal         []Member         `json:"optimal_buyer_group"`
	Context         Context          `json:"company_context"`
	Summary         Summary          `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Options tunes Analyze. Zero values fall back to the defaults.
type Options struct {
	MinGroupSize int
	OptimalSize  int
	Now          func() time.Time
}
