// Package achieve evaluates the achievement catalog against company state.
// Unlocks are monotonic; progress counters keep updating after the unlock.
package achieve

import (
	"time"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

// Def is one catalog entry. Count returns the current metric value; the
// achievement unlocks when Count >= Target. Progress is clamped to Target.
type Def struct {
	ID          string
	Name        string
	Description string
	Target      int
	Count       func(s *sim.State, now time.Time) int
}

func teamSize(s *sim.State, _ time.Time) int { return len(s.Employees) }

func tasksDone(s *sim.State, _ time.Time) int { return s.CountTasks(domain.TaskDone) }

func money(s *sim.State, _ time.Time) int { return s.Money }

func featuresShipped(s *sim.State, _ time.Time) int { return s.FeaturesShipped }

func bugsFixed(s *sim.State, _ time.Time) int { return s.BugsFixed }

func upgrades(s *sim.State, _ time.Time) int { return s.Upgrades }

func playHours(s *sim.State, now time.Time) int {
	if s.StartedUnix == 0 {
		return 0
	}
	return int(now.Unix()-s.StartedUnix) / 3600
}

// nightWork counts working employees between midnight and five in the
// morning, local time.
func nightWork(s *sim.State, now time.Time) int {
	if h := now.Hour(); h >= 5 {
		return 0
	}
	return s.CountEmployees(domain.EmployeeWorking)
}

// highMorale counts employees only when every one of them is at 90 or above.
func highMorale(s *sim.State, _ time.Time) int {
	if len(s.Employees) == 0 {
		return 0
	}
	for _, e := range s.Employees {
		if e.Morale < 90 {
			return 0
		}
	}
	return len(s.Employees)
}

// roleCoverage counts distinct roles on the team.
func roleCoverage(s *sim.State, _ time.Time) int {
	roles := map[domain.Role]bool{}
	for _, e := range s.Employees {
		roles[e.Role] = true
	}
	return len(roles)
}

var catalog = []Def{
	{ID: "first_hire", Name: "First Hire", Description: "Grow the team to two people", Target: 2, Count: teamSize},
	{ID: "full_squad", Name: "Full Squad", Description: "Grow the team to five people", Target: 5, Count: teamSize},
	{ID: "small_army", Name: "Small Army", Description: "Grow the team to ten people", Target: 10, Count: teamSize},
	{ID: "first_task", Name: "Shipping", Description: "Complete a task", Target: 1, Count: tasksDone},
	{ID: "ten_tasks", Name: "Production Line", Description: "Complete ten tasks", Target: 10, Count: tasksDone},
	{ID: "fifty_tasks", Name: "Well Oiled", Description: "Complete fifty tasks", Target: 50, Count: tasksDone},
	{ID: "first_feature", Name: "It Ships", Description: "Ship a feature", Target: 1, Count: featuresShipped},
	{ID: "ten_features", Name: "Feature Factory", Description: "Ship ten features", Target: 10, Count: featuresShipped},
	{ID: "bug_squasher", Name: "Bug Squasher", Description: "Fix five bugs", Target: 5, Count: bugsFixed},
	{ID: "exterminator", Name: "Exterminator", Description: "Fix twenty bugs", Target: 20, Count: bugsFixed},
	{ID: "rich", Name: "In the Black", Description: "Hold fifty thousand in funds", Target: 50000, Count: money},
	{ID: "war_chest", Name: "War Chest", Description: "Hold two hundred thousand in funds", Target: 200000, Count: money},
	{ID: "dedicated", Name: "Dedicated", Description: "Run the company for ten hours", Target: 10, Count: playHours},
	{ID: "night_owl", Name: "Night Owl", Description: "Have someone working past midnight", Target: 1, Count: nightWork},
	{ID: "happy_ship", Name: "Happy Ship", Description: "Keep everyone's morale at 90 or above", Target: 3, Count: highMorale},
	{ID: "all_hands", Name: "All Hands", Description: "Cover all four roles", Target: 4, Count: roleCoverage},
	{ID: "upgraded", Name: "Upgraded", Description: "Buy three upgrades", Target: 3, Count: upgrades},
}

// Catalog returns the full definition table, for listings.
func Catalog() []Def { return catalog }

// Check evaluates every catalog entry, updating progress and unlocking newly
// met achievements. An unlocked achievement never relocks even if the metric
// later falls below its target. It returns the achievements unlocked by this
// call.
func Check(s *sim.State, now time.Time) []*domain.Achievement {
	var unlocked []*domain.Achievement
	for _, def := range catalog {
		a := s.Achievements[def.ID]
		if a == nil {
			a = &domain.Achievement{
				ID:          def.ID,
				Name:        def.Name,
				Description: def.Description,
				Target:      def.Target,
			}
			s.Achievements[def.ID] = a
		}
		count := def.Count(s, now)
		if count > def.Target {
			count = def.Target
		}
		if count < 0 {
			count = 0
		}
		a.Progress = count
		if !a.Unlocked && count >= def.Target {
			a.Unlocked = true
			tick := s.Tick
			a.UnlockedTick = &tick
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}
