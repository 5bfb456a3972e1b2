// Package sim holds the mutable simulation state and the per-tick assignment
// and progress arithmetic. All subsystems read and write the same State;
// nothing keeps a private copy.
package sim

import (
	"sort"

	"devfirm/internal/domain"
)

// State is the canonical entity store plus the clock and company resources.
// It is owned by the engine and mutated synchronously inside a tick or a
// direct player command; the single-threaded model needs no locking here.
type State struct {
	Tick  uint64
	Speed domain.Speed
	Seed  int64
	Money int

	StartedUnix     int64
	FeaturesShipped int
	BugsFixed       int
	Upgrades        int
	FocusMissionID  string

	Employees    map[string]*domain.Employee
	Tasks        map[string]*domain.Task
	Missions     map[string]*domain.Mission
	Epics        map[string]*domain.Epic
	Queue        []*domain.QueuedTaskItem
	Proposals    map[string]*domain.PMProposal
	Achievements map[string]*domain.Achievement
	ActiveEvents []*domain.ActiveEvent
	Scheduled    []domain.ScheduledAction
	Thoughts     []domain.PMThought
}

// NewState returns an empty state at tick zero running at normal speed.
func NewState(seed int64, startingMoney int, startedUnix int64) *State {
	return &State{
		Speed:        domain.SpeedNormal,
		Seed:         seed,
		Money:        startingMoney,
		StartedUnix:  startedUnix,
		Employees:    map[string]*domain.Employee{},
		Tasks:        map[string]*domain.Task{},
		Missions:     map[string]*domain.Mission{},
		Epics:        map[string]*domain.Epic{},
		Proposals:    map[string]*domain.PMProposal{},
		Achievements: map[string]*domain.Achievement{},
	}
}

// Paused reports whether the clock should skip ticks entirely.
func (s *State) Paused() bool { return s.Speed == domain.SpeedPaused }

// Employee returns the employee or nil.
func (s *State) Employee(id string) *domain.Employee { return s.Employees[id] }

// Task returns the task or nil.
func (s *State) Task(id string) *domain.Task { return s.Tasks[id] }

// Mission returns the mission or nil.
func (s *State) Mission(id string) *domain.Mission { return s.Missions[id] }

// Proposal returns the proposal or nil.
func (s *State) Proposal(id string) *domain.PMProposal { return s.Proposals[id] }

// IdleEmployees returns idle employees in stable ID order.
func (s *State) IdleEmployees() []*domain.Employee {
	var out []*domain.Employee
	for _, e := range s.Employees {
		if e.Status == domain.EmployeeIdle {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EmployeesSorted returns all employees in stable ID order.
func (s *State) EmployeesSorted() []*domain.Employee {
	out := make([]*domain.Employee, 0, len(s.Employees))
	for _, e := range s.Employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TasksSorted returns all tasks in stable ID order.
func (s *State) TasksSorted() []*domain.Task {
	out := make([]*domain.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MissionsSorted returns all missions in stable ID order.
func (s *State) MissionsSorted() []*domain.Mission {
	out := make([]*domain.Mission, 0, len(s.Missions))
	for _, m := range s.Missions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EpicsSorted returns all epics in stable ID order.
func (s *State) EpicsSorted() []*domain.Epic {
	out := make([]*domain.Epic, 0, len(s.Epics))
	for _, ep := range s.Epics {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AchievementsSorted returns all achievement records in stable ID order.
func (s *State) AchievementsSorted() []*domain.Achievement {
	out := make([]*domain.Achievement, 0, len(s.Achievements))
	for _, a := range s.Achievements {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CountTasks counts tasks in the given status.
func (s *State) CountTasks(status domain.TaskStatus) int {
	n := 0
	for _, t := range s.Tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// CountEmployees counts employees in the given status.
func (s *State) CountEmployees(status domain.EmployeeStatus) int {
	n := 0
	for _, e := range s.Employees {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Schedule records a deferred action processed by the tick loop.
func (s *State) Schedule(dueTick uint64, kind domain.ActionKind, targetID string) {
	s.Scheduled = append(s.Scheduled, domain.ScheduledAction{
		DueTick:  dueTick,
		Kind:     kind,
		TargetID: targetID,
	})
}

// TakeDue removes and returns the scheduled actions due at or before tick.
func (s *State) TakeDue(tick uint64) []domain.ScheduledAction {
	var due, rest []domain.ScheduledAction
	for _, a := range s.Scheduled {
		if a.DueTick <= tick {
			due = append(due, a)
		} else {
			rest = append(rest, a)
		}
	}
	s.Scheduled = rest
	return due
}

// AddMoney adjusts company funds, flooring at zero.
func (s *State) AddMoney(delta int) {
	s.Money += delta
	if s.Money < 0 {
		s.Money = 0
	}
}

// Clamp bounds a 0-100 stat.
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
