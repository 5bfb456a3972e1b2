package pmbrain

import (
	"fmt"
	"strings"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

// TechDebtWarnAt is the score above which the PM starts complaining.
const TechDebtWarnAt = 50

// GenerateThoughts produces the ordered diagnostic observations for the
// current state. Pure function; nothing is mutated.
func GenerateThoughts(s *sim.State, ps domain.ProductState) []domain.PMThought {
	var out []domain.PMThought
	add := func(kind domain.ThoughtKind, format string, args ...any) {
		out = append(out, domain.PMThought{
			Tick: s.Tick,
			Kind: kind,
			Text: fmt.Sprintf(format, args...),
		})
	}

	add(domain.ThoughtObservation, "product phase: %s", ps.Phase)

	missing := missingCore(ps)
	if len(missing) > 0 {
		add(domain.ThoughtObservation, "missing core capabilities: %s", strings.Join(missing, ", "))
	}

	idle := s.CountEmployees(domain.EmployeeIdle)
	working := s.CountEmployees(domain.EmployeeWorking)
	add(domain.ThoughtObservation, "team: %d working, %d idle", working, idle)

	pendingWork := s.CountTasks(domain.TaskTodo) + s.CountTasks(domain.TaskBacklog) + queuedItems(s)
	if idle > 0 && pendingWork == 0 {
		add(domain.ThoughtPriority, "%d idle with no pending work; we need new missions", idle)
	}
	if !anyActiveMission(s) {
		add(domain.ThoughtPriority, "no mission is active; pick a direction")
	}
	if ps.TechDebt > TechDebtWarnAt {
		add(domain.ThoughtWarning, "tech debt at %d; schedule cleanup before it compounds", ps.TechDebt)
	}
	if ps.OpenBugs > 0 {
		add(domain.ThoughtWarning, "%d open bugs in the backlog", ps.OpenBugs)
	}
	return out
}

func missingCore(ps domain.ProductState) []string {
	var out []string
	if !ps.HasAuth {
		out = append(out, "auth")
	}
	if !ps.HasDatabase {
		out = append(out, "database")
	}
	if !ps.HasAPI {
		out = append(out, "api")
	}
	if !ps.HasUI {
		out = append(out, "ui")
	}
	return out
}

func anyActiveMission(s *sim.State) bool {
	for _, m := range s.Missions {
		if m.Status == domain.MissionActive {
			return true
		}
	}
	return false
}

func queuedItems(s *sim.State) int {
	n := 0
	for _, item := range s.Queue {
		if item.Status == domain.QueueItemQueued {
			n++
		}
	}
	return n
}
