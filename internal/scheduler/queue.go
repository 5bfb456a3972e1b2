// Package scheduler normalizes externally sourced work into a priority queue
// and matches queued items to idle employees by role affinity.
package scheduler

import (
	"github.com/google/uuid"

	"devfirm/internal/domain"
	"devfirm/internal/sim"
)

// Estimated ticks per priority when a queue item is materialized into a task.
var estimateByPriority = map[domain.Priority]float64{
	domain.PriorityCritical: 40,
	domain.PriorityHigh:     60,
	domain.PriorityMedium:   80,
	domain.PriorityLow:      100,
}

// EstimateFor returns the default tick estimate for a priority.
func EstimateFor(p domain.Priority) float64 {
	if est, ok := estimateByPriority[p]; ok {
		return est
	}
	return estimateByPriority[domain.PriorityMedium]
}

// Enqueue appends an item at the tail of the queue; position is the queue
// length at insertion time. Unset type and priority are derived from labels,
// falling back to feature/medium.
func Enqueue(s *sim.State, item domain.QueuedTaskItem) *domain.QueuedTaskItem {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	labelType, labelPrio, _, _ := classifyLabels(item.Labels)
	if item.Type == "" {
		item.Type = labelType
	}
	if item.Priority == "" {
		item.Priority = labelPrio
	}
	item.Status = domain.QueueItemQueued
	item.Position = len(s.Queue)
	s.Queue = append(s.Queue, &item)
	return s.Queue[len(s.Queue)-1]
}

// Import normalizes raw tracker issues and enqueues them in input order.
func Import(s *sim.State, issues []RawIssue) []*domain.QueuedTaskItem {
	out := make([]*domain.QueuedTaskItem, 0, len(issues))
	for _, issue := range issues {
		out = append(out, Enqueue(s, Normalize(issue)))
	}
	return out
}

// PreferredRole returns the role an item should be matched to: an explicit
// override wins, otherwise the role is inferred from the task type.
func PreferredRole(item *domain.QueuedTaskItem) domain.Role {
	if item.RoleOverride != "" {
		return item.RoleOverride
	}
	switch item.Type {
	case domain.TaskDesign:
		return domain.RoleDesigner
	case domain.TaskMarketing:
		return domain.RoleMarketer
	default:
		return domain.RoleEngineer
	}
}

// ProcessQueue scans queued items in queue order, materializes a task for
// each auto-assign item with an available employee, and assigns it. Each
// idle employee is consumed for the rest of the pass, so one call never
// assigns more tasks than there were idle employees at its start. Items with
// no match stay queued; that is the backpressure mechanism.
func ProcessQueue(s *sim.State) []string {
	idle := s.IdleEmployees()
	var assigned []string
	for _, item := range s.Queue {
		if item.Status != domain.QueueItemQueued || !item.AutoAssign {
			continue
		}
		pick := pickEmployee(idle, PreferredRole(item))
		if pick < 0 {
			continue
		}
		emp := idle[pick]
		idle = append(idle[:pick], idle[pick+1:]...)

		task := Materialize(s, item)
		if !sim.Assign(s, task.ID, emp.ID) {
			continue
		}
		item.Status = domain.QueueItemAssigned
		assigned = append(assigned, task.ID)
	}
	return assigned
}

// Materialize builds a concrete task from a queue item and registers it. The
// estimate derives from priority.
func Materialize(s *sim.State, item *domain.QueuedTaskItem) *domain.Task {
	t := &domain.Task{
		ID:             uuid.New().String(),
		Title:          item.Title,
		Type:           item.Type,
		Status:         domain.TaskTodo,
		Priority:       item.Priority,
		EstimatedTicks: estimateByPriority[item.Priority],
		CreatedTick:    s.Tick,
	}
	s.Tasks[t.ID] = t
	return t
}

// pickEmployee returns the index of the first idle employee matching the
// preferred role, falling back to any idle employee, or -1.
func pickEmployee(idle []*domain.Employee, role domain.Role) int {
	for i, e := range idle {
		if e.Role == role {
			return i
		}
	}
	if len(idle) > 0 {
		return 0
	}
	return -1
}
