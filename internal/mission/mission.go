// Package mission manages the mission and epic lifecycles. Missions group
// task IDs under a branch-like unit; epics group missions per product phase.
package mission

import (
	"strings"

	"github.com/google/uuid"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

// BranchName derives the git-style branch identifier from a mission name.
func BranchName(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return "feature/" + strings.Trim(slug, "-")
}

// Create registers a new mission in planning with the given owned tasks.
func Create(s *sim.State, name string, taskIDs []string) *domain.Mission {
	m := &domain.Mission{
		ID:          uuid.New().String(),
		Name:        name,
		Branch:      BranchName(name),
		Status:      domain.MissionPlanning,
		CreatedTick: s.Tick,
	}
	for _, id := range taskIDs {
		if s.Task(id) != nil {
			m.TaskIDs = append(m.TaskIDs, id)
		}
	}
	s.Missions[m.ID] = m
	return m
}

// Start moves a planning mission to active and takes the global focus
// pointer. Starting does not abandon the previously focused mission; the
// pointer simply moves.
func Start(s *sim.State, missionID string) bool {
	m := s.Mission(missionID)
	if m == nil || m.Status != domain.MissionPlanning {
		return false
	}
	m.Status = domain.MissionActive
	tick := s.Tick
	m.StartedTick = &tick
	s.FocusMissionID = m.ID
	return true
}

// AddTask attaches a task to a non-terminal mission.
func AddTask(s *sim.State, missionID, taskID string) bool {
	m := s.Mission(missionID)
	if m == nil || m.Status.Terminal() || s.Task(taskID) == nil {
		return false
	}
	for _, id := range m.TaskIDs {
		if id == taskID {
			return false
		}
	}
	m.TaskIDs = append(m.TaskIDs, taskID)
	return true
}

// RemoveTask detaches a task from a non-terminal mission.
func RemoveTask(s *sim.State, missionID, taskID string) bool {
	m := s.Mission(missionID)
	if m == nil || m.Status.Terminal() {
		return false
	}
	for i, id := range m.TaskIDs {
		if id == taskID {
			m.TaskIDs = append(m.TaskIDs[:i], m.TaskIDs[i+1:]...)
			return true
		}
	}
	return false
}

// AllTasksDone reports whether every owned task is done. Empty missions are
// not considered done.
func AllTasksDone(s *sim.State, m *domain.Mission) bool {
	if len(m.TaskIDs) == 0 {
		return false
	}
	for _, id := range m.TaskIDs {
		t := s.Task(id)
		if t == nil || t.Status != domain.TaskDone {
			return false
		}
	}
	return true
}

// MoveToReview transitions an active mission to review, either because all
// its tasks are done or because a PR was opened (prRef non-empty).
func MoveToReview(s *sim.State, missionID, prRef string) bool {
	m := s.Mission(missionID)
	if m == nil || m.Status != domain.MissionActive {
		return false
	}
	if prRef == "" && !AllTasksDone(s, m) {
		return false
	}
	if prRef != "" {
		m.PRRef = prRef
	}
	m.Status = domain.MissionReview
	return true
}

// Complete advances the merge pipeline one step. A review mission starts
// merging and schedules the merge to land on the next tick; a merging
// mission finishes, stamping its completion tick, bumping the
// features-shipped counter, and releasing focus.
func Complete(s *sim.State, missionID string) bool {
	m := s.Mission(missionID)
	if m == nil {
		return false
	}
	switch m.Status {
	case domain.MissionReview:
		m.Status = domain.MissionMerging
		s.Schedule(s.Tick+1, domain.ActionMissionMerge, m.ID)
		return true
	case domain.MissionMerging:
		m.Status = domain.MissionCompleted
		tick := s.Tick
		m.CompletedTick = &tick
		s.FeaturesShipped++
		if s.FocusMissionID == m.ID {
			s.FocusMissionID = ""
		}
		return true
	default:
		return false
	}
}

// Abandon terminates any non-terminal mission.
func Abandon(s *sim.State, missionID string) bool {
	m := s.Mission(missionID)
	if m == nil || m.Status.Terminal() {
		return false
	}
	m.Status = domain.MissionAbandoned
	if s.FocusMissionID == m.ID {
		s.FocusMissionID = ""
	}
	return true
}

// CreateEpic registers an epic grouping missions under a phase tag.
func CreateEpic(s *sim.State, name, phase string) *domain.Epic {
	e := &domain.Epic{
		ID:     uuid.New().String(),
		Name:   name,
		Phase:  phase,
		Status: domain.EpicPlanned,
	}
	s.Epics[e.ID] = e
	return e
}

// AttachMission adds a mission to an epic unless the epic is completed.
func AttachMission(s *sim.State, epicID, missionID string) bool {
	e := s.Epics[epicID]
	if e == nil || e.Status == domain.EpicCompleted || s.Mission(missionID) == nil {
		return false
	}
	for _, id := range e.MissionIDs {
		if id == missionID {
			return false
		}
	}
	e.MissionIDs = append(e.MissionIDs, missionID)
	if e.Status == domain.EpicPlanned {
		e.Status = domain.EpicActive
	}
	return true
}
