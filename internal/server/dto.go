package server

import (
	"devfirm/internal/domain"
	"devfirm/internal/scheduler"
)

// Request payloads

type TickRequest struct {
	N int `json:"n,omitempty" minimum:"0" maximum:"100000"`
}

type SetSpeedRequest struct {
	Speed string `json:"speed" enum:"paused,normal,fast,turbo"`
}

type HireRequest struct {
	Name string `json:"name"`
	Role string `json:"role" enum:"engineer,designer,pm,marketer"`
}

type BreakRequest struct {
	Ticks uint64 `json:"ticks,omitempty"`
}

type CreateTaskRequest struct {
	Title          string  `json:"title"`
	Type           string  `json:"type,omitempty" enum:"feature,bug,design,marketing,infrastructure"`
	Priority       string  `json:"priority,omitempty" enum:"critical,high,medium,low"`
	EstimatedTicks float64 `json:"estimated_ticks,omitempty"`
}

type AssignTaskRequest struct {
	EmployeeID string `json:"employee_id"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status" enum:"backlog,todo,in_progress,review,done"`
}

type EnqueueRequest struct {
	Title      string   `json:"title"`
	Type       string   `json:"type,omitempty" enum:"feature,bug,design,marketing,infrastructure"`
	Priority   string   `json:"priority,omitempty" enum:"critical,high,medium,low"`
	Labels     []string `json:"labels,omitempty"`
	Role       string   `json:"role,omitempty" enum:"engineer,designer,pm,marketer"`
	AutoAssign *bool    `json:"auto_assign,omitempty"`
}

type ImportIssuesRequest struct {
	Issues []scheduler.RawIssue `json:"issues"`
}

type CreateMissionRequest struct {
	Name    string   `json:"name"`
	TaskIDs []string `json:"task_ids,omitempty"`
}

type MissionTaskRequest struct {
	TaskID string `json:"task_id"`
}

type MissionReviewRequest struct {
	PRRef string `json:"pr_ref,omitempty"`
}

type CreateEpicRequest struct {
	Name  string `json:"name"`
	Phase string `json:"phase,omitempty"`
}

type AttachMissionRequest struct {
	MissionID string `json:"mission_id"`
}

type TriggerEventRequest struct {
	EventID string `json:"event_id,omitempty"`
}

type EventChoiceRequest struct {
	ChoiceID string `json:"choice_id"`
}

// Response payloads

type TickResponse struct {
	Tick  uint64       `json:"tick"`
	Money int          `json:"money"`
	Speed domain.Speed `json:"speed"`
}

type ProcessQueueResponse struct {
	AssignedTaskIDs []string `json:"assigned_task_ids"`
}

type ApproveProposalResponse struct {
	OK      bool            `json:"ok"`
	Mission *domain.Mission `json:"mission,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func okBody() *struct {
	Body okResponse `json:"body"`
} {
	return &struct {
		Body okResponse `json:"body"`
	}{Body: okResponse{OK: true}}
}
