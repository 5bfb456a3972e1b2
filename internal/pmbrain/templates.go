package pmbrain

import (
	"sort"
	"strings"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

// MissionTemplate is a canned mission the PM can propose. The predicate is a
// named function over ProductState so templates stay inspectable data.
type MissionTemplate struct {
	Name     string
	Phases   []domain.Phase
	Priority domain.Priority
	When     func(domain.ProductState) bool
	Reason   string
	Tasks    []domain.TaskSpec
}

func needsAuth(ps domain.ProductState) bool     { return !ps.HasAuth }
func needsDatabase(ps domain.ProductState) bool { return !ps.HasDatabase }
func needsAPI(ps domain.ProductState) bool      { return !ps.HasAPI }
func needsUI(ps domain.ProductState) bool       { return !ps.HasUI }
func needsLanding(ps domain.ProductState) bool  { return !ps.HasLanding }
func needsPricing(ps domain.ProductState) bool  { return !ps.HasPricing }
func needsOnboard(ps domain.ProductState) bool  { return !ps.HasOnboarding }
func needsMetrics(ps domain.ProductState) bool  { return !ps.HasAnalytics }
func needsTesting(ps domain.ProductState) bool  { return !ps.HasTesting }
func needsCI(ps domain.ProductState) bool       { return !ps.HasCI }
func heavyDebt(ps domain.ProductState) bool     { return ps.TechDebt > TechDebtWarnAt }
func hasBugs(ps domain.ProductState) bool       { return ps.OpenBugs >= 3 }

var missionTemplates = []MissionTemplate{
	{
		Name:     "User Authentication",
		Phases:   []domain.Phase{domain.PhaseMVP},
		Priority: domain.PriorityCritical,
		When:     needsAuth,
		Reason:   "no sign-in path exists; everything downstream needs identity",
		Tasks: []domain.TaskSpec{
			{Title: "Design auth flow", Type: domain.TaskDesign, Priority: domain.PriorityHigh, EstimatedTicks: 40},
			{Title: "Implement signup and login", Type: domain.TaskFeature, Priority: domain.PriorityCritical, EstimatedTicks: 60},
			{Title: "Session handling", Type: domain.TaskFeature, Priority: domain.PriorityHigh, EstimatedTicks: 40},
		},
	},
	{
		Name:     "Database Layer",
		Phases:   []domain.Phase{domain.PhaseMVP},
		Priority: domain.PriorityCritical,
		When:     needsDatabase,
		Reason:   "no persistent storage; data lives in memory only",
		Tasks: []domain.TaskSpec{
			{Title: "Design database schema", Type: domain.TaskDesign, Priority: domain.PriorityHigh, EstimatedTicks: 30},
			{Title: "Implement database migrations", Type: domain.TaskInfrastructure, Priority: domain.PriorityCritical, EstimatedTicks: 50},
		},
	},
	{
		Name:     "Public API",
		Phases:   []domain.Phase{domain.PhaseMVP, domain.PhaseGrowth},
		Priority: domain.PriorityHigh,
		When:     needsAPI,
		Reason:   "clients have no programmatic access",
		Tasks: []domain.TaskSpec{
			{Title: "Design API endpoints", Type: domain.TaskDesign, Priority: domain.PriorityHigh, EstimatedTicks: 30},
			{Title: "Implement REST API", Type: domain.TaskFeature, Priority: domain.PriorityHigh, EstimatedTicks: 70},
		},
	},
	{
		Name:     "Core UI",
		Phases:   []domain.Phase{domain.PhaseMVP},
		Priority: domain.PriorityHigh,
		When:     needsUI,
		Reason:   "users cannot see the product",
		Tasks: []domain.TaskSpec{
			{Title: "Design main dashboard UI", Type: domain.TaskDesign, Priority: domain.PriorityHigh, EstimatedTicks: 40},
			{Title: "Build frontend components", Type: domain.TaskFeature, Priority: domain.PriorityHigh, EstimatedTicks: 80},
		},
	},
	{
		Name:     "Landing Page",
		Phases:   []domain.Phase{domain.PhaseGrowth},
		Priority: domain.PriorityHigh,
		When:     needsLanding,
		Reason:   "nowhere to send prospective users",
		Tasks: []domain.TaskSpec{
			{Title: "Design landing page", Type: domain.TaskDesign, Priority: domain.PriorityHigh, EstimatedTicks: 40},
			{Title: "Build landing page", Type: domain.TaskFeature, Priority: domain.PriorityHigh, EstimatedTicks: 50},
			{Title: "Launch announcement", Type: domain.TaskMarketing, Priority: domain.PriorityMedium, EstimatedTicks: 30},
		},
	},
	{
		Name:     "Pricing & Billing",
		Phases:   []domain.Phase{domain.PhaseGrowth, domain.PhaseScale},
		Priority: domain.PriorityHigh,
		When:     needsPricing,
		Reason:   "no revenue path",
		Tasks: []domain.TaskSpec{
			{Title: "Define pricing tiers", Type: domain.TaskMarketing, Priority: domain.PriorityHigh, EstimatedTicks: 30},
			{Title: "Integrate billing provider", Type: domain.TaskFeature, Priority: domain.PriorityHigh, EstimatedTicks: 70},
		},
	},
	{
		Name:     "User Onboarding",
		Phases:   []domain.Phase{domain.PhaseGrowth},
		Priority: domain.PriorityMedium,
		When:     needsOnboard,
		Reason:   "new users drop off before activation",
		Tasks: []domain.TaskSpec{
			{Title: "Design onboarding flow", Type: domain.TaskDesign, Priority: domain.PriorityMedium, EstimatedTicks: 40},
			{Title: "Build onboarding checklist", Type: domain.TaskFeature, Priority: domain.PriorityMedium, EstimatedTicks: 50},
		},
	},
	{
		Name:     "Product Analytics",
		Phases:   []domain.Phase{domain.PhaseGrowth, domain.PhaseScale},
		Priority: domain.PriorityMedium,
		When:     needsMetrics,
		Reason:   "flying blind on user behavior",
		Tasks: []domain.TaskSpec{
			{Title: "Add analytics tracking", Type: domain.TaskFeature, Priority: domain.PriorityMedium, EstimatedTicks: 50},
			{Title: "Build metrics dashboard", Type: domain.TaskFeature, Priority: domain.PriorityLow, EstimatedTicks: 60},
		},
	},
	{
		Name:     "Test Suite",
		Phases:   []domain.Phase{domain.PhaseMVP, domain.PhaseGrowth, domain.PhaseScale},
		Priority: domain.PriorityMedium,
		When:     needsTesting,
		Reason:   "no automated tests guard regressions",
		Tasks: []domain.TaskSpec{
			{Title: "Add unit test coverage", Type: domain.TaskInfrastructure, Priority: domain.PriorityMedium, EstimatedTicks: 60},
			{Title: "Add e2e smoke tests", Type: domain.TaskInfrastructure, Priority: domain.PriorityLow, EstimatedTicks: 50},
		},
	},
	{
		Name:     "CI Pipeline",
		Phases:   []domain.Phase{domain.PhaseMVP, domain.PhaseGrowth, domain.PhaseScale},
		Priority: domain.PriorityMedium,
		When:     needsCI,
		Reason:   "every release is a manual gamble",
		Tasks: []domain.TaskSpec{
			{Title: "Set up CI pipeline", Type: domain.TaskInfrastructure, Priority: domain.PriorityMedium, EstimatedTicks: 40},
		},
	},
	{
		Name:     "Tech Debt Cleanup",
		Phases:   []domain.Phase{domain.PhaseGrowth, domain.PhaseScale},
		Priority: domain.PriorityHigh,
		When:     heavyDebt,
		Reason:   "debt score is past the warning line",
		Tasks: []domain.TaskSpec{
			{Title: "Refactor hot spots", Type: domain.TaskInfrastructure, Priority: domain.PriorityHigh, EstimatedTicks: 60},
			{Title: "Raise test coverage", Type: domain.TaskInfrastructure, Priority: domain.PriorityMedium, EstimatedTicks: 40},
		},
	},
	{
		Name:     "Bug Bash",
		Phases:   []domain.Phase{domain.PhaseMVP, domain.PhaseGrowth, domain.PhaseScale},
		Priority: domain.PriorityHigh,
		When:     hasBugs,
		Reason:   "open bug count is piling up",
		Tasks: []domain.TaskSpec{
			{Title: "Triage and fix top bugs", Type: domain.TaskBug, Priority: domain.PriorityHigh, EstimatedTicks: 50},
		},
	},
}

// DefaultMaxProposals caps how many mission templates one evaluation returns.
const DefaultMaxProposals = 3

// EvaluateNextMissions returns the templates eligible for the current state:
// phase must be in the template's set, the predicate must hold, and no
// existing mission may share the name (case-insensitive). Results are sorted
// by priority, stable for ties, and truncated to max (<=0 means default).
func EvaluateNextMissions(s *sim.State, ps domain.ProductState, max int) []MissionTemplate {
	if max <= 0 {
		max = DefaultMaxProposals
	}
	taken := map[string]bool{}
	for _, m := range s.Missions {
		taken[strings.ToLower(m.Name)] = true
	}
	var eligible []MissionTemplate
	for _, tpl := range missionTemplates {
		if !phaseIn(ps.Phase, tpl.Phases) || !tpl.When(ps) || taken[strings.ToLower(tpl.Name)] {
			continue
		}
		eligible = append(eligible, tpl)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority.Rank() > eligible[j].Priority.Rank()
	})
	if len(eligible) > max {
		eligible = eligible[:max]
	}
	return eligible
}

func phaseIn(p domain.Phase, set []domain.Phase) bool {
	for _, x := range set {
		if x == p {
			return true
		}
	}
	return false
}
