package buyergroup

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

var priorityRank = map[string]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Departments whose people are pulled into the optimal group first, in order.
var optimalDepartments = []string{
	DeptSales,
	DeptMarketing,
	DeptOperations,
	DeptExecutive,
	DeptEngineering,
	DeptCustomerSuccess,
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func strategy(members []Member) string {
	var champions, deciders, blockers int
	for _, m := range members {
		switch m.Role {
		case RoleChampion:
			champions++
		case RoleDecisionMaker:
			deciders++
		case RoleBlocker:
			blockers++
		}
	}
	switch {
	case deciders > 0:
		return StrategyExecutiveSponsor
	case champions > 0:
		return StrategyChampionLed
	case blockers > 0:
		return StrategyBlockerMitigation
	default:
		return StrategyStakeholderConsensus
	}
}

func priority(m GroupMetrics) string {
	switch {
	case m.TotalInfluence > 3.0 && m.AvgDecisionPower > 0.4:
		return PriorityHigh
	case m.TotalInfluence > 2.0 && m.AvgDecisionPower > 0.3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func buildGroup(companyID, companyName, dept string, members []Member) Group {
	g := Group{
		ID:          fmt.Sprintf("%s_%s_bg", slug(companyID), slug(dept)),
		CompanyID:   companyID,
		CompanyName: companyName,
		Department:  dept,
		Members:     make([]string, 0, len(members)),
	}

	var influence, power, risk float64
	covered := 0
	for _, m := range members {
		g.Members = append(g.Members, m.ID)
		influence += m.Influence
		power += m.DecisionPower
		risk += m.FlightRisk
		switch m.Role {
		case RoleChampion:
			g.Roles.Champions = append(g.Roles.Champions, m.ID)
			covered++
		case RoleDecisionMaker:
			g.Roles.DecisionMakers = append(g.Roles.DecisionMakers, m.ID)
			covered++
		case RoleBlocker:
			g.Roles.Blockers = append(g.Roles.Blockers, m.ID)
		case RoleStakeholder:
			g.Roles.Stakeholders = append(g.Roles.Stakeholders, m.ID)
		default:
			g.Roles.Openers = append(g.Roles.Openers, m.ID)
		}
	}

	n := float64(len(members))
	raw := GroupMetrics{
		TotalInfluence:   influence,
		AvgDecisionPower: power / n,
		FlightRisk:       risk / n,
		CoverageScore:    float64(covered) / n,
	}
	// priority thresholds apply to the unrounded metrics
	g.Priority = priority(raw)
	g.Metrics = GroupMetrics{
		TotalInfluence:   round(raw.TotalInfluence),
		AvgDecisionPower: round(raw.AvgDecisionPower),
		FlightRisk:       round(raw.FlightRisk),
		CoverageScore:    round(raw.CoverageScore),
	}
	g.Strategy = strategy(members)
	return g
}

// IdentifyGroups builds one buyer group per department with at least minSize
// members, ordered by priority and then total influence.
func IdentifyGroups(companyID, companyName string, members []Member, minSize int) []Group {
	if minSize <= 0 {
		minSize = DefaultMinGroupSize
	}

	byDept := make(map[string][]Member)
	for _, m := range members {
		byDept[m.Department] = append(byDept[m.Department], m)
	}

	groups := make([]Group, 0, len(byDept))
	for dept, people := range byDept {
		if len(people) < minSize {
			continue
		}
		groups = append(groups, buildGroup(companyID, companyName, dept, people))
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		}
		if a.Metrics.TotalInfluence != b.Metrics.TotalInfluence {
			return a.Metrics.TotalInfluence > b.Metrics.TotalInfluence
		}
		return a.Department < b.Department
	})
	return groups
}

// Recommendations turns groups into next actions for the account team.
func Recommendations(groups []Group) []Recommendation {
	var recs []Recommendation
	for _, g := range groups {
		if g.Priority == PriorityHigh {
			recs = append(recs, Recommendation{
				GroupID:   g.ID,
				Priority:  PriorityHigh,
				Action:    fmt.Sprintf("Prioritize engagement with %s team", g.Department),
				Rationale: fmt.Sprintf("High influence (%.1f) and decision power (%.1f)", g.Metrics.TotalInfluence, g.Metrics.AvgDecisionPower),
				Timeline:  "immediate",
			})
		}
		if len(g.Roles.Champions) == 0 {
			recs = append(recs, Recommendation{
				GroupID:   g.ID,
				Priority:  PriorityMedium,
				Action:    fmt.Sprintf("Identify champion in %s team", g.Department),
				Rationale: "No champions identified - need internal advocate",
				Timeline:  "1-2 weeks",
			})
		}
	}
	return recs
}

func rankByComposite(members []Member) []Member {
	ranked := append([]Member(nil), members...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// SelectOptimal picks a compact buyer group for a small sales team: the two
// strongest people of each priority department, then the strongest of the rest.
func SelectOptimal(members []Member, size int) []Member {
	if size <= 0 {
		size = DefaultOptimalSize
	}
	ranked := rankByComposite(members)
	picked := make(map[int]bool)
	optimal := make([]Member, 0, size)

	for _, dept := range optimalDepartments {
		taken := 0
		for i, m := range ranked {
			if len(optimal) >= size || taken == 2 {
				break
			}
			if m.Department != dept || picked[i] {
				continue
			}
			picked[i] = true
			optimal = append(optimal, m)
			taken++
		}
	}

	for i, m := range ranked {
		if len(optimal) >= size {
			break
		}
		if !picked[i] {
			picked[i] = true
			optimal = append(optimal, m)
		}
	}
	return optimal
}

// CompanyContext summarises the department mix of the analysed employees.
func CompanyContext(members []Member) Context {
	ctx := Context{
		TotalEmployees: len(members),
		Departments:    make(map[string]int),
		CompanyType:    "Sales-Led",
	}
	for _, m := range members {
		ctx.Departments[m.Department]++
	}
	if len(members) == 0 {
		return ctx
	}

	total := float64(len(members))
	ctx.SalesPercentage = round(float64(ctx.Departments[DeptSales]) / total * 100)
	ctx.MarketingPercentage = round(float64(ctx.Departments[DeptMarketing]) / total * 100)
	if ctx.MarketingPercentage > ctx.SalesPercentage {
		ctx.CompanyType = "Marketing-Led"
	}

	if ctx.SalesPercentage < 10 {
		ctx.Recommendations = append(ctx.Recommendations,
			"Very small sales team - expand buyer group to include Marketing and Operations",
			"Focus on Revenue Operations and Sales Enablement roles",
			"Consider product-led growth approach for this company",
		)
	}
	if ctx.MarketingPercentage > 20 {
		ctx.Recommendations = append(ctx.Recommendations,
			"Strong marketing presence - include Marketing leadership in buyer group",
			"Leverage marketing's influence on sales technology decisions",
		)
	}
	return ctx
}

func summarize(groups []Group) Summary {
	s := Summary{TotalGroups: len(groups)}
	if len(groups) == 0 {
		return s
	}
	var size, coverage float64
	for _, g := range groups {
		if g.Priority == PriorityHigh {
			s.HighPriorityGroups++
		}
		size += float64(len(g.Members))
		coverage += g.Metrics.CoverageScore
	}
	n := float64(len(groups))
	s.AvgGroupSize = round(size / n)
	s.CoverageScore = round(coverage / n)
	return s
}

// Analyze profiles every employee of a company and assembles the full report.
func Analyze(company Company, employees []Employee, opts Options) Report {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	members := make([]Member, 0, len(employees))
	for _, e := range employees {
		members = append(members, Profile(e))
	}

	groups := IdentifyGroups(company.ID, company.Name, members, opts.MinGroupSize)
	return Report{
		Company:         company,
		Members:         members,
		Groups:          groups,
		Optimal:         SelectOptimal(members, opts.OptimalSize),
		Context:         CompanyContext(members),
		Summary:         summarize(groups),
		Recommendations: Recommendations(groups),
		GeneratedAt:     now().UTC(),
	}
}
