package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"devfirm/internal/domain"
	"devfirm/internal/engine"
	"devfirm/internal/gameevent"
)

var mutationErrors = []int{
	http.StatusBadRequest,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
	http.StatusInternalServerError,
}

func registerSimulation(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "tick",
		Method:      http.MethodPost,
		Path:        "/tick",
		Summary:     "Advance the simulation",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body TickRequest `json:"body"`
	}) (*struct {
		Body TickResponse `json:"body"`
	}, error) {
		n := input.Body.N
		if n <= 0 {
			n = 1
		}
		if err := e.Tick(ctx, n); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		st, err := e.Status()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TickResponse `json:"body"`
		}{Body: TickResponse{Tick: st.Tick, Money: st.Money, Speed: st.Speed}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-speed",
		Method:      http.MethodPost,
		Path:        "/speed",
		Summary:     "Set simulation speed",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body SetSpeedRequest `json:"body"`
	}) (*struct {
		Body TickResponse `json:"body"`
	}, error) {
		if err := e.SetSpeed(domain.Speed(input.Body.Speed)); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		st, err := e.Status()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TickResponse `json:"body"`
		}{Body: TickResponse{Tick: st.Tick, Money: st.Money, Speed: st.Speed}}, nil
	})
}

func registerEmployees(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "hire-employee",
		Method:        http.MethodPost,
		Path:          "/employees",
		Summary:       "Hire an employee",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body HireRequest `json:"body"`
	}) (*struct {
		Body domain.Employee `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		emp, err := e.Hire(input.Body.Name, domain.Role(input.Body.Role))
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return &struct {
			Body domain.Employee `json:"body"`
		}{Body: *emp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "List employees",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Employee `json:"body"`
	}, error) {
		out, err := e.Employees()
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			out = []domain.Employee{}
		}
		return &struct {
			Body []domain.Employee `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "employee-break",
		Method:      http.MethodPost,
		Path:        "/employees/{employee_id}/break",
		Summary:     "Send an employee on break",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		EmployeeID string       `path:"employee_id"`
		Body       BreakRequest `json:"body"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.SendOnBreak(input.EmployeeID, input.Body.Ticks); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})
}

func registerTasks(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a task",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CreateTask(engine.TaskCreateOptions{
			Title:          input.Body.Title,
			Type:           domain.TaskType(input.Body.Type),
			Priority:       domain.Priority(input.Body.Priority),
			EstimatedTicks: input.Body.EstimatedTicks,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: *t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		tasks, err := e.Tasks()
		if err != nil {
			return nil, handleError(err)
		}
		out := []domain.Task{}
		for _, t := range tasks {
			if input.Status != "" && t.Status != domain.TaskStatus(input.Status) {
				continue
			}
			out = append(out, t)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/assign",
		Summary:     "Assign a task to an employee",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   AssignTaskRequest `json:"body"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if input.Body.EmployeeID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "employee_id is required", nil)
		}
		if err := e.AssignTask(input.TaskID, input.Body.EmployeeID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/unassign",
		Summary:     "Unassign a task",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.UnassignTask(input.TaskID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Move a task to a new status",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string               `path:"task_id"`
		Body   SetTaskStatusRequest `json:"body"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.SetTaskStatus(input.TaskID, domain.TaskStatus(input.Body.Status)); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "generate-artifact",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/artifact",
		Summary:       "Generate a work artifact for an in-progress task",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Artifact `json:"body"`
	}, error) {
		a, err := e.GenerateArtifact(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return &struct {
			Body domain.Artifact `json:"body"`
		}{Body: *a}, nil
	})
}

func registerQueue(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "enqueue-task",
		Method:        http.MethodPost,
		Path:          "/queue",
		Summary:       "Add an item to the intake queue",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body EnqueueRequest `json:"body"`
	}) (*struct {
		Body domain.QueuedTaskItem `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		autoAssign := true
		if input.Body.AutoAssign != nil {
			autoAssign = *input.Body.AutoAssign
		}
		item, err := e.EnqueueTask(domain.QueuedTaskItem{
			Source:       domain.SourceManual,
			Title:        input.Body.Title,
			Type:         domain.TaskType(input.Body.Type),
			Priority:     domain.Priority(input.Body.Priority),
			Labels:       input.Body.Labels,
			RoleOverride: domain.Role(input.Body.Role),
			AutoAssign:   autoAssign,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return &struct {
			Body domain.QueuedTaskItem `json:"body"`
		}{Body: *item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-issues",
		Method:      http.MethodPost,
		Path:        "/queue/import",
		Summary:     "Import issue-tracker issues into the queue",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body ImportIssuesRequest `json:"body"`
	}) (*struct {
		Body []domain.QueuedTaskItem `json:"body"`
	}, error) {
		items, err := e.ImportIssues(input.Body.Issues)
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		out := []domain.QueuedTaskItem{}
		for _, it := range items {
			out = append(out, *it)
		}
		return &struct {
			Body []domain.QueuedTaskItem `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-queue",
		Method:      http.MethodGet,
		Path:        "/queue",
		Summary:     "List queued work items",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.QueuedTaskItem `json:"body"`
	}, error) {
		out, err := e.QueueItems()
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			out = []domain.QueuedTaskItem{}
		}
		return &struct {
			Body []domain.QueuedTaskItem `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "process-queue",
		Method:      http.MethodPost,
		Path:        "/queue/process",
		Summary:     "Assign queued items to idle employees now",
		Errors:      mutationErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProcessQueueResponse `json:"body"`
	}, error) {
		assigned, err := e.ProcessQueue()
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		if assigned == nil {
			assigned = []string{}
		}
		return &struct {
			Body ProcessQueueResponse `json:"body"`
		}{Body: ProcessQueueResponse{AssignedTaskIDs: assigned}}, nil
	})
}

func registerMissions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Create a mission",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		m, err := e.CreateMission(input.Body.Name, input.Body.TaskIDs)
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: *m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Mission `json:"body"`
	}, error) {
		out, err := e.Missions()
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			out = []domain.Mission{}
		}
		return &struct {
			Body []domain.Mission `json:"body"`
		}{Body: out}, nil
	})

	type missionPath struct {
		MissionID string `path:"mission_id"`
	}
	simpleMissionOp := func(id, pathSuffix, summary string, fn func(string) error) {
		huma.Register(api, huma.Operation{
			OperationID: id,
			Method:      http.MethodPost,
			Path:        "/missions/{mission_id}/" + pathSuffix,
			Summary:     summary,
			Errors:      mutationErrors,
		}, func(ctx context.Context, input *missionPath) (*struct {
			Body okResponse `json:"body"`
		}, error) {
			if err := fn(input.MissionID); err != nil {
				return nil, handleError(err)
			}
			if err := persist(ctx, e); err != nil {
				return nil, err
			}
			return okBody(), nil
		})
	}
	simpleMissionOp("start-mission", "start", "Start a mission", e.StartMission)
	simpleMissionOp("complete-mission", "complete", "Complete a mission", e.CompleteMission)
	simpleMissionOp("abandon-mission", "abandon", "Abandon a mission", e.AbandonMission)

	huma.Register(api, huma.Operation{
		OperationID: "mission-add-task",
		Method:      http.MethodPost,
		Path:        "/missions/{mission_id}/tasks",
		Summary:     "Add a task to a mission",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MissionID string             `path:"mission_id"`
		Body      MissionTaskRequest `json:"body"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.MissionAddTask(input.MissionID, input.Body.TaskID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mission-remove-task",
		Method:      http.MethodDelete,
		Path:        "/missions/{mission_id}/tasks/{task_id}",
		Summary:     "Remove a task from a mission",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
		TaskID    string `path:"task_id"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.MissionRemoveTask(input.MissionID, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mission-review",
		Method:      http.MethodPost,
		Path:        "/missions/{mission_id}/review",
		Summary:     "Move a mission to review",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		MissionID string               `path:"mission_id"`
		Body      MissionReviewRequest `json:"body"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.MoveMissionToReview(input.MissionID, input.Body.PRRef); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})
}

func registerEpics(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-epic",
		Method:        http.MethodPost,
		Path:          "/epics",
		Summary:       "Create an epic",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateEpicRequest `json:"body"`
	}) (*struct {
		Body domain.Epic `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		ep, err := e.CreateEpic(input.Body.Name, input.Body.Phase)
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return &struct {
			Body domain.Epic `json:"body"`
		}{Body: *ep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-epics",
		Method:      http.MethodGet,
		Path:        "/epics",
		Summary:     "List epics",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Epic `json:"body"`
	}, error) {
		out, err := e.Epics()
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			out = []domain.Epic{}
		}
		return &struct {
			Body []domain.Epic `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "epic-attach-mission",
		Method:      http.MethodPost,
		Path:        "/epics/{epic_id}/missions",
		Summary:     "Attach a mission to an epic",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		EpicID string               `path:"epic_id"`
		Body   AttachMissionRequest `json:"body"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.AttachMissionToEpic(input.EpicID, input.Body.MissionID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})
}

func registerProposals(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "pm-evaluate",
		Method:      http.MethodPost,
		Path:        "/pm/evaluate",
		Summary:     "Run a PM evaluation now",
		Errors:      mutationErrors,
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.PMProposal `json:"body"`
	}, error) {
		created, err := e.RunPMEvaluation()
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		out := []domain.PMProposal{}
		for _, p := range created {
			out = append(out, *p)
		}
		return &struct {
			Body []domain.PMProposal `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "pm-thoughts",
		Method:      http.MethodGet,
		Path:        "/pm/thoughts",
		Summary:     "List the PM's recent observations",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.PMThought `json:"body"`
	}, error) {
		out, err := e.Thoughts(0)
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			out = []domain.PMThought{}
		}
		return &struct {
			Body []domain.PMThought `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-proposals",
		Method:      http.MethodGet,
		Path:        "/proposals",
		Summary:     "List pending proposals",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.PMProposal `json:"body"`
	}, error) {
		pending, err := e.PendingProposals()
		if err != nil {
			return nil, handleError(err)
		}
		out := []domain.PMProposal{}
		for _, p := range pending {
			out = append(out, *p)
		}
		return &struct {
			Body []domain.PMProposal `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-proposal",
		Method:      http.MethodPost,
		Path:        "/proposals/{proposal_id}/approve",
		Summary:     "Approve a proposal",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProposalID string `path:"proposal_id"`
	}) (*struct {
		Body ApproveProposalResponse `json:"body"`
	}, error) {
		m, err := e.ApproveProposal(input.ProposalID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		resp := ApproveProposalResponse{OK: true}
		if m != nil {
			resp.Mission = m
		}
		return &struct {
			Body ApproveProposalResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-proposal",
		Method:      http.MethodPost,
		Path:        "/proposals/{proposal_id}/reject",
		Summary:     "Reject a proposal",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProposalID string `path:"proposal_id"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.RejectProposal(input.ProposalID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dismiss-proposal",
		Method:      http.MethodDelete,
		Path:        "/proposals/{proposal_id}",
		Summary:     "Dismiss a proposal",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProposalID string `path:"proposal_id"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if err := e.DismissProposal(input.ProposalID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})
}

func registerAchievements(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-achievements",
		Method:      http.MethodGet,
		Path:        "/achievements",
		Summary:     "List achievements and progress",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Achievement `json:"body"`
	}, error) {
		out, err := e.Achievements()
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			out = []domain.Achievement{}
		}
		return &struct {
			Body []domain.Achievement `json:"body"`
		}{Body: out}, nil
	})
}

func registerGameEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "event-catalog",
		Method:      http.MethodGet,
		Path:        "/events/catalog",
		Summary:     "List the random event catalogue",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []gameevent.EventDef `json:"body"`
	}, error) {
		defs, err := gameevent.Catalog()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []gameevent.EventDef `json:"body"`
		}{Body: defs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-active-events",
		Method:      http.MethodGet,
		Path:        "/events/active",
		Summary:     "List active events",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.ActiveEvent `json:"body"`
	}, error) {
		out, err := e.ActiveEvents()
		if err != nil {
			return nil, handleError(err)
		}
		if out == nil {
			out = []domain.ActiveEvent{}
		}
		return &struct {
			Body []domain.ActiveEvent `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "trigger-event",
		Method:        http.MethodPost,
		Path:          "/events/trigger",
		Summary:       "Trigger a random event",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body TriggerEventRequest `json:"body"`
	}) (*struct {
		Body domain.ActiveEvent `json:"body"`
	}, error) {
		ev, err := e.TriggerEvent(input.Body.EventID)
		if err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return &struct {
			Body domain.ActiveEvent `json:"body"`
		}{Body: *ev}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "event-choice",
		Method:      http.MethodPost,
		Path:        "/events/{event_id}/choice",
		Summary:     "Resolve an event with a choice",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		EventID string             `path:"event_id"`
		Body    EventChoiceRequest `json:"body"`
	}) (*struct {
		Body okResponse `json:"body"`
	}, error) {
		if input.Body.ChoiceID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "choice_id is required", nil)
		}
		if err := e.MakeEventChoice(input.EventID, input.Body.ChoiceID); err != nil {
			return nil, handleError(err)
		}
		if err := persist(ctx, e); err != nil {
			return nil, err
		}
		return okBody(), nil
	})
}
