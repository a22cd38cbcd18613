package buyergroup

import (
	"math"
	"regexp"
	"strings"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Order matters: the first match wins.
var departmentPatterns = []pattern{
	{DeptSales, regexp.MustCompile(`\b(sales|revenue|account|business development|bd|ae|sdr|bdr)\b`)},
	{DeptMarketing, regexp.MustCompile(`\b(marketing|growth|demand gen|content|brand|communications)\b`)},
	{DeptProduct, regexp.MustCompile(`\b(product|pm|product manager|ux|ui|design)\b`)},
	{DeptEngineering, regexp.MustCompile(`\b(engineer|developer|dev|software|frontend|backend|fullstack|swe)\b`)},
	{DeptOperations, regexp.MustCompile(`\b(operations|ops|revops|salesops|marketingops|business operations)\b`)},
	{DeptFinance, regexp.MustCompile(`\b(finance|accounting|fp&a|controller|cfo|treasurer)\b`)},
	{DeptHR, regexp.MustCompile(`\b(hr|human resources|people|talent|recruiting|recruitment)\b`)},
	{DeptLegal, regexp.MustCompile(`\b(legal|counsel|compliance|regulatory)\b`)},
	{DeptExecutive, regexp.MustCompile(`\b(ceo|cfo|cto|coo|president|vp|vice president|director|head of)\b`)},
}

var departmentFallbacks = []struct {
	keywords []string
	dept     string
}{
	{[]string{"video", "streaming", "ingest", "processing"}, DeptEngineering},
	{[]string{"creative", "design"}, DeptMarketing},
	{[]string{"solutions", "architect", "support"}, DeptCustomerSuccess},
}

var teamPatterns = []pattern{
	{"Growth", regexp.MustCompile(`\b(growth|acquisition|retention)\b`)},
	{"Product", regexp.MustCompile(`\b(product|platform|core|infrastructure)\b`)},
	{"Engineering", regexp.MustCompile(`\b(frontend|backend|fullstack|mobile|web|api)\b`)},
	{"Sales", regexp.MustCompile(`\b(enterprise|mid-market|smb|inside|field)\b`)},
	{"Marketing", regexp.MustCompile(`\b(content|demand gen|brand|communications|events)\b`)},
}

var seniorityPatterns = []pattern{
	{SeniorityExecutive, regexp.MustCompile(`\b(ceo|cfo|cto|coo|president|vp|vice president|chief)\b`)},
	{SeniorityDirector, regexp.MustCompile(`\b(director|head of|senior director)\b`)},
	{SeniorityManager, regexp.MustCompile(`\b(manager|lead|senior|principal)\b`)},
	{SeniorityIndividual, regexp.MustCompile(`\b(engineer|developer|analyst|specialist|coordinator)\b`)},
	{SeniorityEntry, regexp.MustCompile(`\b(associate|junior|intern|assistant)\b`)},
}

var standardTitles = []pattern{
	{"Chief Executive Officer", regexp.MustCompile(`\b(ceo|chief executive officer)\b`)},
	{"Chief Financial Officer", regexp.MustCompile(`\b(cfo|chief financial officer)\b`)},
	{"Chief Technology Officer", regexp.MustCompile(`\b(cto|chief technology officer)\b`)},
	{"Chief Operating Officer", regexp.MustCompile(`\b(coo|chief operating officer)\b`)},
	{"Vice President", regexp.MustCompile(`\b(vp|vice president)\b`)},
	{"Director", regexp.MustCompile(`\b(director|head of)\b`)},
	{"Manager", regexp.MustCompile(`\b(manager|lead)\b`)},
	{"Individual Contributor", regexp.MustCompile(`\b(engineer|developer|analyst|specialist)\b`)},
}

var (
	cLevelRe   = regexp.MustCompile(`\b(ceo|cfo|cto|coo|president)\b`)
	vpRe       = regexp.MustCompile(`\b(vp|vice president)\b`)
	directorRe = regexp.MustCompile(`\b(director|head of)\b`)
	managerRe  = regexp.MustCompile(`\b(manager|lead)\b`)
)

var departmentWeight = map[string]float64{
	DeptExecutive:   0.3,
	DeptSales:       0.25,
	DeptProduct:     0.2,
	DeptEngineering: 0.15,
	DeptMarketing:   0.15,
	DeptOperations:  0.1,
	DeptFinance:     0.1,
	DeptHR:          0.05,
	DeptLegal:       0.05,
}

const defaultDepartmentWeight = 0.05

var championKeywords = []string{"vp", "director", "head of", "senior"}

var blockerDepartments = map[string]bool{
	"legal":      true,
	"compliance": true,
	"finance":    true,
}

func match(patterns []pattern, text string) (string, bool) {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.name, true
		}
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// InferDepartment maps a job title onto a department.
func InferDepartment(title string) string {
	t := strings.ToLower(title)
	if dept, ok := match(departmentPatterns, t); ok {
		return dept
	}
	for _, fb := range departmentFallbacks {
		if containsAny(t, fb.keywords) {
			return fb.dept
		}
	}
	return DeptOther
}

// ExtractTeam returns the sub-team named in a title, or General.
func ExtractTeam(title string) string {
	if team, ok := match(teamPatterns, strings.ToLower(title)); ok {
		return team
	}
	return "General"
}

// StandardizeTitle collapses a title onto a small set of canonical levels.
// Titles that match none are returned unchanged.
func StandardizeTitle(title string) string {
	if std, ok := match(standardTitles, strings.ToLower(title)); ok {
		return std
	}
	return title
}

func SeniorityLevel(title string) string {
	if level, ok := match(seniorityPatterns, strings.ToLower(title)); ok {
		return level
	}
	return SeniorityIndividual
}

// DecisionPower scores authority over a purchase in [0,1].
func DecisionPower(title, department string) float64 {
	t := strings.ToLower(title)
	power := 0.0
	switch {
	case cLevelRe.MatchString(t):
		power += 0.4
	case vpRe.MatchString(t):
		power += 0.3
	case directorRe.MatchString(t):
		power += 0.2
	case managerRe.MatchString(t):
		power += 0.1
	}

	if w, ok := departmentWeight[department]; ok {
		power += w
	} else {
		power += defaultDepartmentWeight
	}
	return round(math.Min(power, 1.0))
}

// Role assigns the buyer group role from title, department and decision power.
func Role(title, department string, power float64) string {
	t := strings.ToLower(title)
	switch {
	case power >= 0.6:
		return RoleDecisionMaker
	case power >= 0.4 || containsAny(t, championKeywords):
		return RoleChampion
	case blockerDepartments[strings.ToLower(department)]:
		return RoleBlocker
	case power >= 0.2:
		return RoleStakeholder
	default:
		return RoleOpener
	}
}

// Influence scores reach inside the company in [0,1].
func Influence(e Employee, power float64) float64 {
	score := power * 0.4
	if e.HasActivity {
		score += 0.2
	}
	switch {
	case e.Connections > 500:
		score += 0.2
	case e.Connections > 200:
		score += 0.1
	}
	if e.HasExperience {
		score += 0.1
	}
	return round(math.Min(score, 1.0))
}

// FlightRisk estimates the chance the person leaves before a deal closes.
func FlightRisk(e Employee) float64 {
	risk := 0.6
	if !e.HasActivity && !e.ActivityUnknown {
		risk += 0.2
	}
	if containsAny(strings.ToLower(e.Title), []string{"engineer", "developer", "sales"}) {
		risk += 0.1
	}
	return round(math.Min(risk, 1.0))
}

func missingTitle(title string) bool {
	switch strings.TrimSpace(title) {
	case "", "--", "None":
		return true
	}
	return false
}

// inferTitle guesses a level from network size when the title is unknown.
func inferTitle(e Employee) string {
	switch {
	case e.Connections > 500 || e.Followers > 1000:
		return "Senior Manager"
	case e.Connections > 200:
		return "Manager"
	default:
		return "Individual Contributor"
	}
}

var seniorityBonus = map[string]float64{
	SeniorityExecutive: 5.0,
	SeniorityDirector:  3.0,
	SeniorityManager:   1.5,
}

// compositeInfluence ranks members for the optimal group. It is unbounded,
// unlike Influence.
func compositeInfluence(e Employee, seniority string) float64 {
	network := math.Min(float64(e.Connections+e.Followers)/1000, 10.0)
	recs := math.Min(float64(e.Recommendations)*0.5, 5.0)
	bonus, ok := seniorityBonus[seniority]
	if !ok {
		bonus = 0.5
	}
	return round(network + recs + bonus)
}

// Profile derives every buyer group attribute for one employee.
func Profile(e Employee) Member {
	title := strings.TrimSpace(e.Title)
	confidence := 0.8
	inferred := false
	if missingTitle(title) {
		title = inferTitle(e)
		confidence = 0.3
		inferred = true
	}

	dept := InferDepartment(title)
	seniority := SeniorityLevel(title)
	power := DecisionPower(title, dept)
	scored := e
	scored.Title = title

	return Member{
		ID:                e.ID,
		Name:              e.Name,
		Title:             title,
		TitleInferred:     inferred,
		Department:        dept,
		Team:              ExtractTeam(title),
		StandardizedTitle: StandardizeTitle(title),
		Seniority:         seniority,
		DecisionPower:     power,
		Role:              Role(title, dept, power),
		Influence:         Influence(e, power),
		FlightRisk:        FlightRisk(scored),
		Confidence:        confidence,
		Composite:         compositeInfluence(e, seniority),
		LinkedinURL:       e.LinkedinURL,
		Location:          e.Location,
	}
}
