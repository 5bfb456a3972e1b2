package sim

import (
	"fmt"

	"devfirm/internal/domain"
)

// Assign puts an employee to work on a task. It is a no-op returning false if
// either ID is unknown, the task already has an assignee, or the employee is
// already working on something. On success the task moves to in_progress and
// both cross-references are set.
func Assign(s *State, taskID, employeeID string) bool {
	t := s.Task(taskID)
	e := s.Employee(employeeID)
	if t == nil || e == nil {
		return false
	}
	if t.AssigneeID != nil || e.CurrentTaskID != nil {
		return false
	}
	if t.Status == domain.TaskDone || t.Status == domain.TaskReview {
		return false
	}
	if e.Status != domain.EmployeeIdle {
		return false
	}
	t.AssigneeID = &e.ID
	t.Status = domain.TaskInProgress
	tick := s.Tick
	t.StartedTick = &tick
	e.CurrentTaskID = &t.ID
	e.Status = domain.EmployeeWorking
	e.Remember(fmt.Sprintf("started %q", t.Title))
	return true
}

// Unassign reverses an assignment; the task returns to todo and the employee
// to idle. Unknown or unassigned tasks are a no-op.
func Unassign(s *State, taskID string) bool {
	t := s.Task(taskID)
	if t == nil || t.AssigneeID == nil {
		return false
	}
	if e := s.Employee(*t.AssigneeID); e != nil {
		e.CurrentTaskID = nil
		e.Status = domain.EmployeeIdle
	}
	t.AssigneeID = nil
	t.Status = domain.TaskTodo
	return true
}

// AdvanceProgress runs one tick of work on every in-progress task. Progress
// accrues fractionally as productivity/100 per tick; a task reaching its
// estimate is clamped and moved to review. The assignee stays attached
// through review until SetTaskStatus moves the task to done. Returns the IDs
// of tasks that entered review this tick.
func AdvanceProgress(s *State) []string {
	var finished []string
	for _, t := range s.TasksSorted() {
		if t.Status != domain.TaskInProgress || t.AssigneeID == nil {
			continue
		}
		e := s.Employee(*t.AssigneeID)
		if e == nil {
			continue
		}
		t.ProgressTicks += float64(e.Productivity) / 100
		if t.ProgressTicks >= t.EstimatedTicks {
			t.ProgressTicks = t.EstimatedTicks
			t.Status = domain.TaskReview
			e.Remember(fmt.Sprintf("finished %q", t.Title))
			finished = append(finished, t.ID)
		}
	}
	return finished
}

// SetTaskStatus applies an externally requested status change. Illegal
// transitions and unknown IDs are silent no-ops; stale references are
// expected from UI-driven callers. Moving a task to done releases its
// assignee back to idle and bumps the shipped/fixed counters.
func SetTaskStatus(s *State, taskID string, status domain.TaskStatus) bool {
	t := s.Task(taskID)
	if t == nil || t.Status == status {
		return false
	}
	if !taskTransitionAllowed(t.Status, status) {
		return false
	}
	switch status {
	case domain.TaskTodo:
		if t.AssigneeID != nil {
			if e := s.Employee(*t.AssigneeID); e != nil {
				e.CurrentTaskID = nil
				e.Status = domain.EmployeeIdle
			}
			t.AssigneeID = nil
		}
	case domain.TaskDone:
		tick := s.Tick
		t.CompletedTick = &tick
		if t.AssigneeID != nil {
			if e := s.Employee(*t.AssigneeID); e != nil {
				e.CurrentTaskID = nil
				e.Status = domain.EmployeeIdle
			}
			t.AssigneeID = nil
		}
		switch t.Type {
		case domain.TaskFeature:
			s.FeaturesShipped++
		case domain.TaskBug:
			s.BugsFixed++
		}
	case domain.TaskInProgress:
		// Only review rework may re-enter in_progress directly; todo
		// must go through Assign so the one-task invariant holds.
		if t.Status != domain.TaskReview || t.AssigneeID == nil {
			return false
		}
		t.ProgressTicks = 0
	}
	t.Status = status
	return true
}

func taskTransitionAllowed(from, to domain.TaskStatus) bool {
	switch from {
	case domain.TaskBacklog:
		return to == domain.TaskTodo
	case domain.TaskTodo:
		return to == domain.TaskBacklog || to == domain.TaskInProgress
	case domain.TaskInProgress:
		return to == domain.TaskReview || to == domain.TaskTodo
	case domain.TaskReview:
		return to == domain.TaskDone || to == domain.TaskInProgress
	}
	return false
}

// SendOnBreak parks an idle employee until dueTick; the return to idle is a
// scheduled action processed by the tick loop.
func SendOnBreak(s *State, employeeID string, dueTick uint64) bool {
	e := s.Employee(employeeID)
	if e == nil || e.Status != domain.EmployeeIdle {
		return false
	}
	e.Status = domain.EmployeeOnBreak
	s.Schedule(dueTick, domain.ActionBreakEnds, e.ID)
	return true
}

// EndBreak returns an employee from break to idle.
func EndBreak(s *State, employeeID string) {
	e := s.Employee(employeeID)
	if e == nil || e.Status != domain.EmployeeOnBreak {
		return
	}
	e.Status = domain.EmployeeIdle
}
