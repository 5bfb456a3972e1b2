// Package domain defines the entity types of the company simulation.
package domain

import "strings"

// Role is an employee's job function.
type Role string

const (
	RoleEngineer Role = "engineer"
	RoleDesigner Role = "designer"
	RolePM       Role = "pm"
	RoleMarketer Role = "marketer"
)

// EmployeeStatus is the scheduling state of an employee.
type EmployeeStatus string

const (
	EmployeeIdle    EmployeeStatus = "idle"
	EmployeeWorking EmployeeStatus = "working"
	EmployeeBlocked EmployeeStatus = "blocked"
	EmployeeOnBreak EmployeeStatus = "on_break"
)

// MemoryLimit bounds an employee's memory ring; older entries are dropped.
const MemoryLimit = 20

type Employee struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Role          Role           `json:"role"`
	SkillLevel    int            `json:"skill_level"`
	Status        EmployeeStatus `json:"status"`
	Productivity  int            `json:"productivity"`
	Morale        int            `json:"morale"`
	CurrentTaskID *string        `json:"current_task_id,omitempty"`
	Salary        int            `json:"salary"`
	Memory        []string       `json:"memory,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
}

// Remember appends an entry to the memory ring, keeping the most recent
// MemoryLimit entries, and recomputes the specialization tags.
func (e *Employee) Remember(entry string) {
	e.Memory = append(e.Memory, entry)
	if len(e.Memory) > MemoryLimit {
		e.Memory = e.Memory[len(e.Memory)-MemoryLimit:]
	}
	e.Tags = deriveTags(e.Memory)
}

// specializationRules map memory keywords to a specialization tag. An
// employee earns a tag once specializationThreshold entries in the ring
// mention one of its tokens; tags fade as the ring rolls over.
var specializationRules = []struct {
	Tag    string
	Tokens []string
}{
	{"bugfix", []string{"bug", "fix", "crash", "patch", "hotfix"}},
	{"design", []string{"design", "mockup", "wireframe", "ui", "ux"}},
	{"infrastructure", []string{"deploy", "pipeline", "infra", "migration", "ci"}},
	{"marketing", []string{"landing", "campaign", "copy", "launch"}},
	{"backend", []string{"api", "endpoint", "database", "schema"}},
}

const specializationThreshold = 2

func deriveTags(memory []string) []string {
	var tags []string
	for _, rule := range specializationRules {
		hits := 0
		for _, entry := range memory {
			if entryMentions(entry, rule.Tokens) {
				hits++
			}
		}
		if hits >= specializationThreshold {
			tags = append(tags, rule.Tag)
		}
	}
	return tags
}

func entryMentions(entry string, tokens []string) bool {
	words := strings.FieldsFunc(strings.ToLower(entry), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, w := range words {
		for _, token := range tokens {
			if w == token {
				return true
			}
		}
	}
	return false
}

// TaskType classifies a unit of work.
type TaskType string

const (
	TaskFeature        TaskType = "feature"
	TaskBug            TaskType = "bug"
	TaskDesign         TaskType = "design"
	TaskMarketing      TaskType = "marketing"
	TaskInfrastructure TaskType = "infrastructure"
)

// TaskStatus is the five-state task lifecycle.
type TaskStatus string

const (
	TaskBacklog    TaskStatus = "backlog"
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// Priority orders work items. Rank compares them; higher rank is more urgent.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 4,
	PriorityHigh:     3,
	PriorityMedium:   2,
	PriorityLow:      1,
}

func (p Priority) Rank() int { return priorityRank[p] }

// Artifact is an output produced for a task by a work generator.
type Artifact struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	Provider    string `json:"provider,omitempty"`
	CreatedTick uint64 `json:"created_tick"`
}

type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Type           TaskType   `json:"type"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	AssigneeID     *string    `json:"assignee_id,omitempty"`
	EstimatedTicks float64    `json:"estimated_ticks"`
	ProgressTicks  float64    `json:"progress_ticks"`
	Artifacts      []Artifact `json:"artifacts,omitempty"`
	CreatedTick    uint64     `json:"created_tick"`
	StartedTick    *uint64    `json:"started_tick,omitempty"`
	CompletedTick  *uint64    `json:"completed_tick,omitempty"`
}

// MissionStatus is the six-state mission lifecycle. Completed and abandoned
// are terminal.
type MissionStatus string

const (
	MissionPlanning  MissionStatus = "planning"
	MissionActive    MissionStatus = "active"
	MissionReview    MissionStatus = "review"
	MissionMerging   MissionStatus = "merging"
	MissionCompleted MissionStatus = "completed"
	MissionAbandoned MissionStatus = "abandoned"
)

// Terminal reports whether the status permits no further transitions.
func (s MissionStatus) Terminal() bool {
	return s == MissionCompleted || s == MissionAbandoned
}

type Mission struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Branch        string        `json:"branch"`
	Status        MissionStatus `json:"status"`
	TaskIDs       []string      `json:"task_ids,omitempty"`
	CreatedTick   uint64        `json:"created_tick"`
	StartedTick   *uint64       `json:"started_tick,omitempty"`
	CompletedTick *uint64       `json:"completed_tick,omitempty"`
	PRRef         string        `json:"pr_ref,omitempty"`
}

type EpicStatus string

const (
	EpicPlanned   EpicStatus = "planned"
	EpicActive    EpicStatus = "active"
	EpicCompleted EpicStatus = "completed"
	EpicBlocked   EpicStatus = "blocked"
)

type Epic struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Phase      string     `json:"phase"`
	MissionIDs []string   `json:"mission_ids,omitempty"`
	Status     EpicStatus `json:"status"`
}

// QueueSource identifies where a queued work item came from.
type QueueSource string

const (
	SourceManual  QueueSource = "manual"
	SourceTracker QueueSource = "issue-tracker"
)

type QueueItemStatus string

const (
	QueueItemQueued   QueueItemStatus = "queued"
	QueueItemAssigned QueueItemStatus = "assigned"
)

// QueuedTaskItem is a normalized, not-yet-materialized unit of work.
type QueuedTaskItem struct {
	ID           string          `json:"id"`
	Source       QueueSource     `json:"source"`
	Title        string          `json:"title"`
	Type         TaskType        `json:"type"`
	Priority     Priority        `json:"priority"`
	Labels       []string        `json:"labels,omitempty"`
	RoleOverride Role            `json:"role_override,omitempty"`
	AutoAssign   bool            `json:"auto_assign"`
	Status       QueueItemStatus `json:"status"`
	Position     int             `json:"position"`
}

type ProposalType string

const (
	ProposalMission  ProposalType = "mission"
	ProposalHire     ProposalType = "hire"
	ProposalPriority ProposalType = "priority"
	ProposalTech     ProposalType = "tech"
	ProposalPivot    ProposalType = "pivot"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
)

// TaskSpec describes a task a mission proposal would create.
type TaskSpec struct {
	Title          string   `json:"title"`
	Type           TaskType `json:"type"`
	Priority       Priority `json:"priority"`
	EstimatedTicks float64  `json:"estimated_ticks"`
}

// MissionPayload is the payload of a mission-type proposal.
type MissionPayload struct {
	Name  string     `json:"name"`
	Tasks []TaskSpec `json:"tasks"`
}

// HirePayload is the payload of a hire-type proposal.
type HirePayload struct {
	Role   Role   `json:"role"`
	Reason string `json:"reason,omitempty"`
}

// PMProposal is a pending suggestion requiring explicit approval. Exactly one
// payload field is set, matching Type.
type PMProposal struct {
	ID          string          `json:"id"`
	Type        ProposalType    `json:"type"`
	Reasoning   string          `json:"reasoning"`
	Priority    Priority        `json:"priority"`
	Status      ProposalStatus  `json:"status"`
	CreatedTick uint64          `json:"created_tick"`
	Mission     *MissionPayload `json:"mission,omitempty"`
	Hire        *HirePayload    `json:"hire,omitempty"`
}

// Resolved reports whether the proposal is terminal.
func (p *PMProposal) Resolved() bool { return p.Status != ProposalPending }

type Achievement struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Unlocked     bool    `json:"unlocked"`
	UnlockedTick *uint64 `json:"unlocked_tick,omitempty"`
	Progress     int     `json:"progress"`
	Target       int     `json:"target,omitempty"`
}

// ActiveEvent is a triggered random event awaiting a player choice.
type ActiveEvent struct {
	EventID   string  `json:"event_id"`
	StartTick uint64  `json:"start_tick"`
	Choice    *string `json:"choice,omitempty"`
	Resolved  bool    `json:"resolved"`
}

// ActionKind tags a scheduled action processed by the tick loop.
type ActionKind string

const (
	ActionBreakEnds    ActionKind = "break_ends"
	ActionEventExpire  ActionKind = "event_expire"
	ActionMissionMerge ActionKind = "mission_merge"
)

// ScheduledAction is a deferred transition with an explicit due tick.
type ScheduledAction struct {
	DueTick  uint64     `json:"due_tick"`
	Kind     ActionKind `json:"kind"`
	TargetID string     `json:"target_id"`
}

// ThoughtKind classifies a PM observation.
type ThoughtKind string

const (
	ThoughtObservation ThoughtKind = "observation"
	ThoughtWarning     ThoughtKind = "warning"
	ThoughtPriority    ThoughtKind = "priority"
)

// PMThought is a timestamped diagnostic observation; never mutates state.
type PMThought struct {
	Tick uint64      `json:"tick"`
	Kind ThoughtKind `json:"kind"`
	Text string      `json:"text"`
}

// Phase classifies product maturity.
type Phase string

const (
	PhaseMVP    Phase = "mvp"
	PhaseGrowth Phase = "growth"
	PhaseScale  Phase = "scale"
)

// ProductState is the PM brain's inferred view of the product.
type ProductState struct {
	HasAuth          bool  `json:"has_auth"`
	HasDatabase      bool  `json:"has_database"`
	HasAPI           bool  `json:"has_api"`
	HasUI            bool  `json:"has_ui"`
	HasLanding       bool  `json:"has_landing"`
	HasPricing       bool  `json:"has_pricing"`
	HasOnboarding    bool  `json:"has_onboarding"`
	HasAnalytics     bool  `json:"has_analytics"`
	HasTesting       bool  `json:"has_testing"`
	HasCI            bool  `json:"has_ci"`
	HasDocumentation bool  `json:"has_documentation"`
	FeaturesDone     int   `json:"features_done"`
	OpenBugs         int   `json:"open_bugs"`
	TechDebt         int   `json:"tech_debt"`
	Phase            Phase `json:"phase"`
}

// Speed selects the driver cadence. Simulation semantics are speed-invariant;
// only the inter-tick delay changes.
type Speed string

const (
	SpeedPaused Speed = "paused"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
	SpeedTurbo  Speed = "turbo"
)
