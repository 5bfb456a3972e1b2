// Package engine orchestrates the simulation: it owns the loaded state, runs
// the tick pipeline, exposes every player command, and persists snapshots.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"devfirm/internal/achieve"
	"devfirm/internal/config"
	"devfirm/internal/domain"
	"devfirm/internal/eventlog"
	"devfirm/internal/gameevent"
	"devfirm/internal/mission"
	"devfirm/internal/pmbrain"
	"devfirm/internal/repo"
	"devfirm/internal/scheduler"
	"devfirm/internal/sim"
	"devfirm/internal/workgen"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Log    *eventlog.Buffer
	Config *config.Config
	State  *sim.State
	Gen    workgen.Registry
	Now    func() time.Time

	mu sync.Mutex
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	return &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Log:    &eventlog.Buffer{},
		Config: cfg,
		Gen:    workgen.Registry{"simulated": workgen.Simulated{}},
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// InitCompany creates a fresh simulation and saves the first snapshot. It
// fails if a save already exists.
func (e *Engine) InitCompany(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.Repo.LoadState(ctx); err == nil {
		return errors.New("company already initialized")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	e.State = sim.NewState(e.Config.Company.Seed, e.Config.Company.StartingMoney, e.now().Unix())
	e.record("company.init", "company", "", eventlog.Payload{"name": e.Config.Company.Name, "money": e.State.Money})
	return e.save(ctx)
}

// Load reads the snapshot into memory. ErrNotFound surfaces untouched so
// callers can suggest init.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.Repo.LoadState(ctx)
	if err != nil {
		return err
	}
	e.State = s
	return nil
}

// Save persists the snapshot and flushes the event log in one transaction.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.save(ctx)
}

func (e *Engine) save(ctx context.Context) error {
	if e.State == nil {
		return errors.New("no state loaded")
	}
	return e.Repo.SaveState(ctx, e.State, e.Log, e.Now)
}

func (e *Engine) record(evtType, entityKind, entityID string, payload eventlog.Payload) {
	var tick uint64
	if e.State != nil {
		tick = e.State.Tick
	}
	e.Log.Record(tick, evtType, entityKind, entityID, payload)
}

func (e *Engine) ensureState() error {
	if e.State == nil {
		return errors.New("no state loaded; run devfirm init first")
	}
	return nil
}

// Tick advances the simulation n ticks. While paused it is a no-op that
// still returns successfully, so timed drivers need no pause special-case.
func (e *Engine) Tick(ctx context.Context, n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if e.State.Paused() {
			break
		}
		e.step()
	}
	return nil
}

// step runs one full tick of the pipeline.
func (e *Engine) step() {
	s := e.State
	tuning := e.Config.Simulation
	s.Tick++

	for _, taskID := range sim.AdvanceProgress(s) {
		t := s.Task(taskID)
		e.record("task.review", "task", taskID, eventlog.Payload{"title": t.Title})
	}

	if tuning.AutoAssignEnabled() {
		for _, taskID := range scheduler.ProcessQueue(s) {
			e.record("queue.assigned", "task", taskID, nil)
		}
	}

	e.runScheduledActions()

	if s.Tick%tuning.PMEvalEvery == 0 {
		e.runPMEvaluation()
	}

	for _, a := range achieve.Check(s, e.now()) {
		e.record("achievement.unlocked", "achievement", a.ID, eventlog.Payload{"name": a.Name})
	}

	if s.Tick%tuning.EventRollEvery == 0 {
		if def, ok := gameevent.Roll(s, tuning.TicksPerWeek); ok {
			e.fireEvent(def)
		}
	}

	if s.Tick%tuning.MoraleDecayEvery == 0 {
		e.driftMorale()
	}

	if s.Tick%tuning.PayrollEvery == 0 {
		e.runPayroll()
	}
}

func (e *Engine) runScheduledActions() {
	s := e.State
	for _, a := range s.TakeDue(s.Tick) {
		switch a.Kind {
		case domain.ActionBreakEnds:
			sim.EndBreak(s, a.TargetID)
			e.record("employee.break_over", "employee", a.TargetID, nil)
		case domain.ActionEventExpire:
			if gameevent.Expire(s, a.TargetID) {
				e.record("event.expired", "event", a.TargetID, nil)
			}
		case domain.ActionMissionMerge:
			// The mission may have been abandoned since the merge started.
			if mission.Complete(s, a.TargetID) {
				e.record("mission.completed", "mission", a.TargetID, nil)
			}
		}
	}
}

func (e *Engine) runPMEvaluation() {
	s := e.State
	if n := pmbrain.ExpireProposals(s, e.Config.Simulation.ProposalTTLTicks); n > 0 {
		e.record("proposal.expired", "proposal", "", eventlog.Payload{"count": n})
	}
	for _, p := range pmbrain.RunEvaluation(s, e.Config.Simulation.MaxProposals) {
		e.record("proposal.created", "proposal", p.ID, eventlog.Payload{"type": string(p.Type), "reasoning": p.Reasoning})
	}
}

func (e *Engine) fireEvent(def gameevent.EventDef) {
	s := e.State
	ev := gameevent.Fire(s, def)
	e.record("event.fired", "event", def.ID, eventlog.Payload{"title": def.Title, "choices": len(def.Choices)})
	if !ev.Resolved {
		s.Schedule(s.Tick+e.Config.Simulation.EventTTLTicks, domain.ActionEventExpire, def.ID)
	}
}

// driftMorale decays morale for working employees and recovers it for
// everyone else, within bounds.
func (e *Engine) driftMorale() {
	for _, emp := range e.State.Employees {
		switch emp.Status {
		case domain.EmployeeWorking:
			emp.Morale = sim.Clamp(emp.Morale - 1)
		default:
			emp.Morale = sim.Clamp(emp.Morale + 1)
		}
	}
}

func (e *Engine) runPayroll() {
	s := e.State
	total := 0
	for _, emp := range s.Employees {
		total += emp.Salary
	}
	if total == 0 {
		return
	}
	s.AddMoney(-total)
	e.record("payroll.paid", "company", "", eventlog.Payload{"amount": total, "remaining": s.Money})
}

// SetSpeed changes the driver cadence; paused stops ticking entirely.
func (e *Engine) SetSpeed(speed domain.Speed) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	switch speed {
	case domain.SpeedPaused, domain.SpeedNormal, domain.SpeedFast, domain.SpeedTurbo:
	default:
		return fmt.Errorf("unknown speed %q", speed)
	}
	e.State.Speed = speed
	e.record("speed.changed", "company", "", eventlog.Payload{"speed": string(speed)})
	return nil
}

var roleSalaries = map[domain.Role]int{
	domain.RoleEngineer: 120,
	domain.RoleDesigner: 100,
	domain.RolePM:       110,
	domain.RoleMarketer: 90,
}

// Hire adds an idle employee. Productivity and skill are rolled from the
// deterministic RNG so identical sessions hire identical people.
func (e *Engine) Hire(name string, role domain.Role) (*domain.Employee, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	salary, ok := roleSalaries[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	s := e.State
	rng := rand.New(rand.NewSource(s.Seed + int64(s.Tick) + int64(len(s.Employees))))
	emp := &domain.Employee{
		ID:           uuid.New().String(),
		Name:         name,
		Role:         role,
		SkillLevel:   1 + rng.Intn(5),
		Status:       domain.EmployeeIdle,
		Productivity: 50 + rng.Intn(41),
		Morale:       80,
		Salary:       salary,
	}
	s.Employees[emp.ID] = emp
	e.record("employee.hired", "employee", emp.ID, eventlog.Payload{"name": name, "role": string(role)})
	return emp, nil
}

// TaskCreateOptions are parameters for creating a task directly, skipping
// the intake queue.
type TaskCreateOptions struct {
	Title          string
	Type           domain.TaskType
	Priority       domain.Priority
	EstimatedTicks float64
}

func (e *Engine) CreateTask(opts TaskCreateOptions) (*domain.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	if opts.Title == "" {
		return nil, errors.New("title is required")
	}
	if opts.Type == "" {
		opts.Type = domain.TaskFeature
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if opts.EstimatedTicks <= 0 {
		opts.EstimatedTicks = scheduler.EstimateFor(opts.Priority)
	}
	t := &domain.Task{
		ID:             uuid.New().String(),
		Title:          opts.Title,
		Type:           opts.Type,
		Status:         domain.TaskTodo,
		Priority:       opts.Priority,
		EstimatedTicks: opts.EstimatedTicks,
		CreatedTick:    e.State.Tick,
	}
	e.State.Tasks[t.ID] = t
	e.record("task.created", "task", t.ID, eventlog.Payload{"title": t.Title})
	return t, nil
}

func (e *Engine) AssignTask(taskID, employeeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if e.State.Task(taskID) == nil {
		return fmt.Errorf("task %s not found", taskID)
	}
	if e.State.Employee(employeeID) == nil {
		return fmt.Errorf("employee %s not found", employeeID)
	}
	if !sim.Assign(e.State, taskID, employeeID) {
		return fmt.Errorf("cannot assign task %s to employee %s", taskID, employeeID)
	}
	e.record("task.assigned", "task", taskID, eventlog.Payload{"employee": employeeID})
	return nil
}

func (e *Engine) UnassignTask(taskID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !sim.Unassign(e.State, taskID) {
		return fmt.Errorf("task %s is not assigned", taskID)
	}
	e.record("task.unassigned", "task", taskID, nil)
	return nil
}

func (e *Engine) SetTaskStatus(taskID string, status domain.TaskStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	t := e.State.Task(taskID)
	if t == nil {
		return fmt.Errorf("task %s not found", taskID)
	}
	from := t.Status
	if !sim.SetTaskStatus(e.State, taskID, status) {
		return fmt.Errorf("invalid task status transition %s -> %s", from, status)
	}
	e.record("task.updated", "task", taskID, eventlog.Payload{"from": string(from), "to": string(status)})
	return nil
}

// GenerateArtifact runs the work generator for an in-progress task and
// appends the result. Failures leave the task untouched.
func (e *Engine) GenerateArtifact(ctx context.Context, taskID string) (*domain.Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	t := e.State.Task(taskID)
	if t == nil {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if t.Status != domain.TaskInProgress {
		return nil, fmt.Errorf("task %s is %s, not in_progress", taskID, t.Status)
	}
	var emp *domain.Employee
	if t.AssigneeID != nil {
		emp = e.State.Employee(*t.AssigneeID)
	}
	gen := e.Gen.For(e.Config.Workgen, emp)
	art, err := gen.Generate(ctx, t, emp)
	if err != nil {
		return nil, err
	}
	art.CreatedTick = e.State.Tick
	t.Artifacts = append(t.Artifacts, art)
	e.record("artifact.generated", "task", taskID, eventlog.Payload{"kind": art.Kind, "provider": art.Provider})
	return &art, nil
}

// EnqueueTask adds a manual item to the intake queue.
func (e *Engine) EnqueueTask(item domain.QueuedTaskItem) (*domain.QueuedTaskItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	if item.Title == "" {
		return nil, errors.New("title is required")
	}
	queued := scheduler.Enqueue(e.State, item)
	e.record("queue.added", "queue_item", queued.ID, eventlog.Payload{"title": queued.Title})
	return queued, nil
}

// ImportIssues normalizes external tracker issues into the queue.
func (e *Engine) ImportIssues(issues []scheduler.RawIssue) ([]*domain.QueuedTaskItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	items := scheduler.Import(e.State, issues)
	for _, item := range items {
		e.record("queue.imported", "queue_item", item.ID, eventlog.Payload{"title": item.Title, "priority": string(item.Priority)})
	}
	return items, nil
}

// ProcessQueue runs one manual scheduler pass.
func (e *Engine) ProcessQueue() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	assigned := scheduler.ProcessQueue(e.State)
	for _, taskID := range assigned {
		e.record("queue.assigned", "task", taskID, nil)
	}
	return assigned, nil
}

func (e *Engine) CreateMission(name string, taskIDs []string) (*domain.Mission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	m := mission.Create(e.State, name, taskIDs)
	e.record("mission.created", "mission", m.ID, eventlog.Payload{"name": name, "branch": m.Branch})
	return m, nil
}

func (e *Engine) StartMission(missionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !mission.Start(e.State, missionID) {
		return fmt.Errorf("mission %s cannot start", missionID)
	}
	e.record("mission.started", "mission", missionID, nil)
	return nil
}

func (e *Engine) MissionAddTask(missionID, taskID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !mission.AddTask(e.State, missionID, taskID) {
		return fmt.Errorf("cannot add task %s to mission %s", taskID, missionID)
	}
	e.record("mission.task_added", "mission", missionID, eventlog.Payload{"task": taskID})
	return nil
}

func (e *Engine) MissionRemoveTask(missionID, taskID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !mission.RemoveTask(e.State, missionID, taskID) {
		return fmt.Errorf("cannot remove task %s from mission %s", taskID, missionID)
	}
	e.record("mission.task_removed", "mission", missionID, eventlog.Payload{"task": taskID})
	return nil
}

func (e *Engine) MoveMissionToReview(missionID, prRef string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !mission.MoveToReview(e.State, missionID, prRef) {
		return fmt.Errorf("mission %s is not ready for review", missionID)
	}
	e.record("mission.review", "mission", missionID, eventlog.Payload{"pr_ref": prRef})
	return nil
}

func (e *Engine) CompleteMission(missionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !mission.Complete(e.State, missionID) {
		return fmt.Errorf("mission %s cannot complete", missionID)
	}
	if m := e.State.Mission(missionID); m != nil && m.Status == domain.MissionMerging {
		e.record("mission.merging", "mission", missionID, nil)
	} else {
		e.record("mission.completed", "mission", missionID, nil)
	}
	return nil
}

func (e *Engine) AbandonMission(missionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !mission.Abandon(e.State, missionID) {
		return fmt.Errorf("mission %s cannot be abandoned", missionID)
	}
	e.record("mission.abandoned", "mission", missionID, nil)
	return nil
}

func (e *Engine) CreateEpic(name, phase string) (*domain.Epic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	ep := mission.CreateEpic(e.State, name, phase)
	e.record("epic.created", "epic", ep.ID, eventlog.Payload{"name": name, "phase": phase})
	return ep, nil
}

func (e *Engine) AttachMissionToEpic(epicID, missionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !mission.AttachMission(e.State, epicID, missionID) {
		return fmt.Errorf("cannot attach mission %s to epic %s", missionID, epicID)
	}
	e.record("epic.mission_attached", "epic", epicID, eventlog.Payload{"mission": missionID})
	return nil
}

// RunPMEvaluation forces a PM pass outside the periodic schedule.
func (e *Engine) RunPMEvaluation() ([]*domain.PMProposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	props := pmbrain.RunEvaluation(e.State, e.Config.Simulation.MaxProposals)
	for _, p := range props {
		e.record("proposal.created", "proposal", p.ID, eventlog.Payload{"type": string(p.Type)})
	}
	return props, nil
}

func (e *Engine) PendingProposals() ([]*domain.PMProposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	return pmbrain.PendingProposals(e.State), nil
}

func (e *Engine) ApproveProposal(proposalID string) (*domain.Mission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	if e.State.Proposal(proposalID) == nil {
		return nil, fmt.Errorf("proposal %s not found", proposalID)
	}
	m, ok := pmbrain.ApproveProposal(e.State, proposalID)
	if !ok {
		return nil, fmt.Errorf("proposal %s is not pending", proposalID)
	}
	payload := eventlog.Payload{}
	if m != nil {
		payload["mission"] = m.ID
	}
	e.record("proposal.approved", "proposal", proposalID, payload)
	return m, nil
}

func (e *Engine) RejectProposal(proposalID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if e.State.Proposal(proposalID) == nil {
		return fmt.Errorf("proposal %s not found", proposalID)
	}
	if !pmbrain.RejectProposal(e.State, proposalID) {
		return fmt.Errorf("proposal %s is not pending", proposalID)
	}
	e.record("proposal.rejected", "proposal", proposalID, nil)
	return nil
}

func (e *Engine) DismissProposal(proposalID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if !pmbrain.DismissProposal(e.State, proposalID) {
		return fmt.Errorf("proposal %s not found", proposalID)
	}
	e.record("proposal.dismissed", "proposal", proposalID, nil)
	return nil
}

// CheckAchievements forces an achievement pass and returns new unlocks.
func (e *Engine) CheckAchievements() ([]*domain.Achievement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	unlocked := achieve.Check(e.State, e.now())
	for _, a := range unlocked {
		e.record("achievement.unlocked", "achievement", a.ID, eventlog.Payload{"name": a.Name})
	}
	return unlocked, nil
}

// TriggerEvent fires a specific catalogue event, or rolls when id is empty.
func (e *Engine) TriggerEvent(id string) (*domain.ActiveEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	var def gameevent.EventDef
	if id == "" {
		rolled, ok := gameevent.Roll(e.State, e.Config.Simulation.TicksPerWeek)
		if !ok {
			return nil, errors.New("no event fired")
		}
		def = rolled
	} else {
		found, ok := gameevent.ByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown event %s", id)
		}
		def = found
	}
	s := e.State
	ev := gameevent.Fire(s, def)
	e.record("event.fired", "event", def.ID, eventlog.Payload{"title": def.Title})
	if !ev.Resolved {
		s.Schedule(s.Tick+e.Config.Simulation.EventTTLTicks, domain.ActionEventExpire, def.ID)
	}
	return ev, nil
}

func (e *Engine) MakeEventChoice(eventID, choiceID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if err := gameevent.Choose(e.State, eventID, choiceID); err != nil {
		return err
	}
	e.record("event.choice", "event", eventID, eventlog.Payload{"choice": choiceID})
	return nil
}

// SendOnBreak parks an employee until the return tick.
func (e *Engine) SendOnBreak(employeeID string, ticks uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return err
	}
	if ticks == 0 {
		ticks = 30
	}
	if e.State.Employee(employeeID) == nil {
		return fmt.Errorf("employee %s not found", employeeID)
	}
	if !sim.SendOnBreak(e.State, employeeID, e.State.Tick+ticks) {
		return fmt.Errorf("employee %s cannot go on break", employeeID)
	}
	e.record("employee.break", "employee", employeeID, eventlog.Payload{"until": e.State.Tick + ticks})
	return nil
}

// Status is the aggregate view surfaced by the CLI and the API.
type Status struct {
	Company         string               `json:"company"`
	Tick            uint64               `json:"tick"`
	Speed           domain.Speed         `json:"speed"`
	Money           int                  `json:"money"`
	Employees       int                  `json:"employees"`
	Idle            int                  `json:"idle"`
	TasksTotal      int                  `json:"tasks_total"`
	TasksDone       int                  `json:"tasks_done"`
	Queued          int                  `json:"queued"`
	Missions        int                  `json:"missions"`
	FocusMission    string               `json:"focus_mission,omitempty"`
	Pending         int                  `json:"pending_proposals"`
	FeaturesShipped int                  `json:"features_shipped"`
	BugsFixed       int                  `json:"bugs_fixed"`
	Product         domain.ProductState  `json:"product"`
	ActiveEvents    []domain.ActiveEvent `json:"active_events,omitempty"`
}

func (e *Engine) Status() (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return Status{}, err
	}
	s := e.State
	st := Status{
		Company:         e.Config.Company.Name,
		Tick:            s.Tick,
		Speed:           s.Speed,
		Money:           s.Money,
		Employees:       len(s.Employees),
		Idle:            len(s.IdleEmployees()),
		TasksTotal:      len(s.Tasks),
		TasksDone:       s.CountTasks(domain.TaskDone),
		Missions:        len(s.Missions),
		FocusMission:    s.FocusMissionID,
		Pending:         len(pmbrain.PendingProposals(s)),
		FeaturesShipped: s.FeaturesShipped,
		BugsFixed:       s.BugsFixed,
		Product:         pmbrain.AnalyzeProductState(s),
	}
	for _, q := range s.Queue {
		if q.Status == domain.QueueItemQueued {
			st.Queued++
		}
	}
	for _, ev := range s.ActiveEvents {
		if !ev.Resolved {
			st.ActiveEvents = append(st.ActiveEvents, *ev)
		}
	}
	return st, nil
}

// Employees returns value copies of all employees in stable ID order.
func (e *Engine) Employees() ([]domain.Employee, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	out := make([]domain.Employee, 0, len(e.State.Employees))
	for _, emp := range e.State.EmployeesSorted() {
		out = append(out, *emp)
	}
	return out, nil
}

// Tasks returns value copies of all tasks in stable ID order.
func (e *Engine) Tasks() ([]domain.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(e.State.Tasks))
	for _, t := range e.State.TasksSorted() {
		out = append(out, *t)
	}
	return out, nil
}

// Missions returns value copies of all missions in stable ID order.
func (e *Engine) Missions() ([]domain.Mission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	out := make([]domain.Mission, 0, len(e.State.Missions))
	for _, m := range e.State.MissionsSorted() {
		out = append(out, *m)
	}
	return out, nil
}

// Epics returns value copies of all epics in stable ID order.
func (e *Engine) Epics() ([]domain.Epic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	out := make([]domain.Epic, 0, len(e.State.Epics))
	for _, ep := range e.State.EpicsSorted() {
		out = append(out, *ep)
	}
	return out, nil
}

// QueueItems returns value copies of the intake queue in position order.
func (e *Engine) QueueItems() ([]domain.QueuedTaskItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	out := make([]domain.QueuedTaskItem, 0, len(e.State.Queue))
	for _, it := range e.State.Queue {
		out = append(out, *it)
	}
	return out, nil
}

// Achievements returns value copies of all achievement records.
func (e *Engine) Achievements() ([]domain.Achievement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	out := make([]domain.Achievement, 0, len(e.State.Achievements))
	for _, a := range e.State.AchievementsSorted() {
		out = append(out, *a)
	}
	return out, nil
}

// ActiveEvents returns value copies of all active events, resolved included.
func (e *Engine) ActiveEvents() ([]domain.ActiveEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	out := make([]domain.ActiveEvent, 0, len(e.State.ActiveEvents))
	for _, ev := range e.State.ActiveEvents {
		out = append(out, *ev)
	}
	return out, nil
}

// Thoughts returns the most recent n PM observations, oldest first. n <= 0
// returns all of them.
func (e *Engine) Thoughts(n int) ([]domain.PMThought, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	thoughts := e.State.Thoughts
	if n > 0 && len(thoughts) > n {
		thoughts = thoughts[len(thoughts)-n:]
	}
	out := make([]domain.PMThought, len(thoughts))
	copy(out, thoughts)
	return out, nil
}

// Snapshot serializes the full state as JSON, for export.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureState(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(e.State, "", "  ")
}

// TailLog reads the most recent persisted event log entries.
func (e *Engine) TailLog(ctx context.Context, n int) ([]repo.LogEntry, error) {
	return e.Repo.TailLog(ctx, n)
}
