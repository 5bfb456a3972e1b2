// Package pmbrain infers product maturity from completed work, emits
// diagnostic thoughts, and proposes missions for human approval.
package pmbrain

import (
	"strings"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

// capabilityRules is the declarative capability detection table: capability
// name -> keywords searched (case-insensitive) in the corpus of completed
// task titles and mission names. Kept as data so the detection set is
// testable apart from phase classification.
var capabilityRules = map[string][]string{
	"auth":          {"auth", "login", "signup", "sign up", "oauth", "session"},
	"database":      {"database", "db", "schema", "migration", "postgres", "sqlite"},
	"api":           {"api", "endpoint", "rest", "graphql"},
	"ui":            {"ui", "frontend", "interface", "dashboard", "component"},
	"landing":       {"landing"},
	"pricing":       {"pricing", "billing", "payment", "subscription"},
	"onboarding":    {"onboarding", "welcome flow", "getting started"},
	"analytics":     {"analytics", "tracking", "metrics"},
	"testing":       {"test", "coverage", "e2e"},
	"ci":            {"ci", "pipeline", "continuous integration", "deploy"},
	"documentation": {"documentation", "doc", "docs", "readme", "guide"},
}

// Tech-debt weights; the score is clamped to [0,100].
const (
	debtMissingTesting = 25
	debtMissingCI      = 15
	debtPerOpenBug     = 5
	debtStaleBonus     = 20
	staleAgeTicks      = 300
)

// corpusIndex pairs the raw lowercased corpus with its token set so short
// keywords ("ci", "db") match whole words only and never substrings of
// unrelated words ("pricing").
type corpusIndex struct {
	text   string
	tokens map[string]bool
}

func indexCorpus(text string) corpusIndex {
	idx := corpusIndex{text: text, tokens: map[string]bool{}}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		idx.tokens[tok] = true
	}
	return idx
}

func (c corpusIndex) detect(capability string) bool {
	for _, kw := range capabilityRules[capability] {
		if len(kw) <= 3 && !strings.Contains(kw, " ") {
			if c.tokens[kw] {
				return true
			}
			continue
		}
		if strings.Contains(c.text, kw) {
			return true
		}
	}
	return false
}

// AnalyzeProductState derives the capability flags, counters, tech-debt
// score, and phase classification from current state. Pure read.
func AnalyzeProductState(s *sim.State) domain.ProductState {
	var sb strings.Builder
	for _, t := range s.TasksSorted() {
		if t.Status == domain.TaskDone {
			sb.WriteString(strings.ToLower(t.Title))
			sb.WriteString(" ")
		}
	}
	for _, m := range s.MissionsSorted() {
		sb.WriteString(strings.ToLower(m.Name))
		sb.WriteString(" ")
	}
	corpus := indexCorpus(sb.String())

	ps := domain.ProductState{
		HasAuth:          corpus.detect("auth"),
		HasDatabase:      corpus.detect("database"),
		HasAPI:           corpus.detect("api"),
		HasUI:            corpus.detect("ui"),
		HasLanding:       corpus.detect("landing"),
		HasPricing:       corpus.detect("pricing"),
		HasOnboarding:    corpus.detect("onboarding"),
		HasAnalytics:     corpus.detect("analytics"),
		HasTesting:       corpus.detect("testing"),
		HasCI:            corpus.detect("ci"),
		HasDocumentation: corpus.detect("documentation"),
	}

	var ageSum uint64
	var open int
	for _, t := range s.Tasks {
		switch {
		case t.Status == domain.TaskDone && t.Type == domain.TaskFeature:
			ps.FeaturesDone++
		case t.Status != domain.TaskDone && t.Type == domain.TaskBug:
			ps.OpenBugs++
		}
		if t.Status != domain.TaskDone {
			open++
			if s.Tick > t.CreatedTick {
				ageSum += s.Tick - t.CreatedTick
			}
		}
	}

	debt := 0
	if !ps.HasTesting {
		debt += debtMissingTesting
	}
	if !ps.HasCI {
		debt += debtMissingCI
	}
	debt += ps.OpenBugs * debtPerOpenBug
	if open > 0 && ageSum/uint64(open) > staleAgeTicks {
		debt += debtStaleBonus
	}
	ps.TechDebt = sim.Clamp(debt)

	ps.Phase = classifyPhase(ps)
	return ps
}

func classifyPhase(ps domain.ProductState) domain.Phase {
	core := countTrue(ps.HasAuth, ps.HasDatabase, ps.HasAPI, ps.HasUI)
	growth := countTrue(ps.HasLanding, ps.HasPricing, ps.HasOnboarding, ps.HasAnalytics)
	switch {
	case core >= 3 && growth >= 2:
		return domain.PhaseScale
	case core >= 2 && growth >= 1:
		return domain.PhaseGrowth
	default:
		return domain.PhaseMVP
	}
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
