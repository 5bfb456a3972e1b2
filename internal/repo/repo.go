// Package repo persists the simulation snapshot in SQLite. A save replaces
// the whole snapshot in one transaction and flushes the buffered event log
// in the same transaction; a load reconstructs the in-memory state.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"devfirm/internal/domain"
	"devfirm/internal/eventlog"
	"devfirm/internal/sim"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// SaveState writes the full snapshot. Entity tables are cleared and
// re-inserted; partial saves never exist because everything runs in one
// transaction, including the event log flush.
func (r Repo) SaveState(ctx context.Context, s *sim.State, log *eventlog.Buffer, now func() time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveCore(ctx, tx, s); err != nil {
		return err
	}
	if err := saveEmployees(ctx, tx, s); err != nil {
		return err
	}
	if err := saveTasks(ctx, tx, s); err != nil {
		return err
	}
	if err := saveMissions(ctx, tx, s); err != nil {
		return err
	}
	if err := saveEpics(ctx, tx, s); err != nil {
		return err
	}
	if err := saveQueue(ctx, tx, s); err != nil {
		return err
	}
	if err := saveProposals(ctx, tx, s); err != nil {
		return err
	}
	if err := saveAchievements(ctx, tx, s); err != nil {
		return err
	}
	if err := saveActivity(ctx, tx, s); err != nil {
		return err
	}
	if log != nil {
		if err := log.Flush(ctx, tx, now); err != nil {
			return fmt.Errorf("flush event log: %w", err)
		}
	}
	return tx.Commit()
}

func saveCore(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sim_state(id,tick,speed,seed,money,started_unix,features_shipped,bugs_fixed,upgrades,focus_mission_id)
		VALUES (1,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET tick=excluded.tick, speed=excluded.speed, seed=excluded.seed, money=excluded.money,
			started_unix=excluded.started_unix, features_shipped=excluded.features_shipped, bugs_fixed=excluded.bugs_fixed,
			upgrades=excluded.upgrades, focus_mission_id=excluded.focus_mission_id`,
		s.Tick, string(s.Speed), s.Seed, s.Money, s.StartedUnix, s.FeaturesShipped, s.BugsFixed, s.Upgrades, nullable(s.FocusMissionID))
	return err
}

func saveEmployees(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM employees`); err != nil {
		return err
	}
	for _, e := range s.EmployeesSorted() {
		memory, err := json.Marshal(emptySlice(e.Memory))
		if err != nil {
			return err
		}
		tags, err := json.Marshal(emptySlice(e.Tags))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO employees(id,name,role,skill_level,status,productivity,morale,current_task_id,salary,memory_json,tags_json)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			e.ID, e.Name, string(e.Role), e.SkillLevel, string(e.Status), e.Productivity, e.Morale, nullablePtr(e.CurrentTaskID), e.Salary, string(memory), string(tags))
		if err != nil {
			return err
		}
	}
	return nil
}

func saveTasks(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return err
	}
	for _, t := range s.TasksSorted() {
		artifacts, err := json.Marshal(emptyArtifacts(t.Artifacts))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO tasks(id,title,type,status,priority,assignee_id,estimated_ticks,progress_ticks,artifacts_json,created_tick,started_tick,completed_tick)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			t.ID, t.Title, string(t.Type), string(t.Status), string(t.Priority), nullablePtr(t.AssigneeID),
			t.EstimatedTicks, t.ProgressTicks, string(artifacts), t.CreatedTick, nullableTick(t.StartedTick), nullableTick(t.CompletedTick))
		if err != nil {
			return err
		}
	}
	return nil
}

func saveMissions(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM missions`); err != nil {
		return err
	}
	for _, m := range s.MissionsSorted() {
		taskIDs, err := json.Marshal(emptySlice(m.TaskIDs))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO missions(id,name,branch,status,pr_ref,task_ids_json,created_tick,started_tick,completed_tick)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			m.ID, m.Name, m.Branch, string(m.Status), nullable(m.PRRef), string(taskIDs),
			m.CreatedTick, nullableTick(m.StartedTick), nullableTick(m.CompletedTick))
		if err != nil {
			return err
		}
	}
	return nil
}

func saveEpics(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM epics`); err != nil {
		return err
	}
	for _, e := range s.Epics {
		missionIDs, err := json.Marshal(emptySlice(e.MissionIDs))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO epics(id,name,phase,status,mission_ids_json) VALUES (?,?,?,?,?)`,
			e.ID, e.Name, e.Phase, string(e.Status), string(missionIDs))
		if err != nil {
			return err
		}
	}
	return nil
}

func saveQueue(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return err
	}
	for _, q := range s.Queue {
		labels, err := json.Marshal(emptySlice(q.Labels))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO queue_items(id,title,type,priority,source,labels_json,role_override,auto_assign,status,position)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			q.ID, q.Title, string(q.Type), string(q.Priority), string(q.Source), string(labels),
			nullable(string(q.RoleOverride)), boolInt(q.AutoAssign), string(q.Status), q.Position)
		if err != nil {
			return err
		}
	}
	return nil
}

func saveProposals(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM proposals`); err != nil {
		return err
	}
	for _, p := range s.Proposals {
		payload, err := json.Marshal(proposalPayload{Mission: p.Mission, Hire: p.Hire})
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO proposals(id,type,reasoning,priority,status,created_tick,payload_json) VALUES (?,?,?,?,?,?,?)`,
			p.ID, string(p.Type), p.Reasoning, string(p.Priority), string(p.Status), p.CreatedTick, string(payload))
		if err != nil {
			return err
		}
	}
	return nil
}

func saveAchievements(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM achievements`); err != nil {
		return err
	}
	for _, a := range s.Achievements {
		_, err := tx.ExecContext(ctx, `INSERT INTO achievements(id,name,description,unlocked,unlocked_tick,progress,target) VALUES (?,?,?,?,?,?,?)`,
			a.ID, a.Name, a.Description, boolInt(a.Unlocked), nullableTick(a.UnlockedTick), a.Progress, a.Target)
		if err != nil {
			return err
		}
	}
	return nil
}

// saveActivity covers active events, scheduled actions, and PM thoughts,
// which are ordered slices rather than keyed entities.
func saveActivity(ctx context.Context, tx *sql.Tx, s *sim.State) error {
	for _, stmt := range []string{`DELETE FROM active_events`, `DELETE FROM scheduled_actions`, `DELETE FROM thoughts`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, ev := range s.ActiveEvents {
		_, err := tx.ExecContext(ctx, `INSERT INTO active_events(event_id,start_tick,choice,resolved) VALUES (?,?,?,?)`,
			ev.EventID, ev.StartTick, nullablePtr(ev.Choice), boolInt(ev.Resolved))
		if err != nil {
			return err
		}
	}
	for _, a := range s.Scheduled {
		_, err := tx.ExecContext(ctx, `INSERT INTO scheduled_actions(due_tick,kind,target_id) VALUES (?,?,?)`,
			a.DueTick, string(a.Kind), a.TargetID)
		if err != nil {
			return err
		}
	}
	for _, th := range s.Thoughts {
		_, err := tx.ExecContext(ctx, `INSERT INTO thoughts(tick,kind,text) VALUES (?,?,?)`,
			th.Tick, string(th.Kind), th.Text)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadState reconstructs the snapshot. ErrNotFound means no save exists yet.
func (r Repo) LoadState(ctx context.Context) (*sim.State, error) {
	s := sim.NewState(0, 0, 0)

	var speed string
	var focus sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT tick,speed,seed,money,started_unix,features_shipped,bugs_fixed,upgrades,focus_mission_id FROM sim_state WHERE id=1`).
		Scan(&s.Tick, &speed, &s.Seed, &s.Money, &s.StartedUnix, &s.FeaturesShipped, &s.BugsFixed, &s.Upgrades, &focus)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Speed = domain.Speed(speed)
	if focus.Valid {
		s.FocusMissionID = focus.String
	}

	if err := r.loadEmployees(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadTasks(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadMissions(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadEpics(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadQueue(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadProposals(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadAchievements(ctx, s); err != nil {
		return nil, err
	}
	if err := r.loadActivity(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r Repo) loadEmployees(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,role,skill_level,status,productivity,morale,current_task_id,salary,memory_json,tags_json FROM employees`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e domain.Employee
		var role, status, memory, tags string
		var current sql.NullString
		if err := rows.Scan(&e.ID, &e.Name, &role, &e.SkillLevel, &status, &e.Productivity, &e.Morale, &current, &e.Salary, &memory, &tags); err != nil {
			return err
		}
		e.Role = domain.Role(role)
		e.Status = domain.EmployeeStatus(status)
		if current.Valid {
			v := current.String
			e.CurrentTaskID = &v
		}
		if err := json.Unmarshal([]byte(memory), &e.Memory); err != nil {
			return fmt.Errorf("employee %s memory: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return fmt.Errorf("employee %s tags: %w", e.ID, err)
		}
		emp := e
		s.Employees[e.ID] = &emp
	}
	return rows.Err()
}

func (r Repo) loadTasks(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,title,type,status,priority,assignee_id,estimated_ticks,progress_ticks,artifacts_json,created_tick,started_tick,completed_tick FROM tasks`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t domain.Task
		var typ, status, priority, artifacts string
		var assignee sql.NullString
		var started, completed sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &typ, &status, &priority, &assignee, &t.EstimatedTicks, &t.ProgressTicks, &artifacts, &t.CreatedTick, &started, &completed); err != nil {
			return err
		}
		t.Type = domain.TaskType(typ)
		t.Status = domain.TaskStatus(status)
		t.Priority = domain.Priority(priority)
		if assignee.Valid {
			v := assignee.String
			t.AssigneeID = &v
		}
		t.StartedTick = tickPtr(started)
		t.CompletedTick = tickPtr(completed)
		if err := json.Unmarshal([]byte(artifacts), &t.Artifacts); err != nil {
			return fmt.Errorf("task %s artifacts: %w", t.ID, err)
		}
		task := t
		s.Tasks[t.ID] = &task
	}
	return rows.Err()
}

func (r Repo) loadMissions(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,branch,status,pr_ref,task_ids_json,created_tick,started_tick,completed_tick FROM missions`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m domain.Mission
		var status, taskIDs string
		var prRef sql.NullString
		var started, completed sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.Branch, &status, &prRef, &taskIDs, &m.CreatedTick, &started, &completed); err != nil {
			return err
		}
		m.Status = domain.MissionStatus(status)
		if prRef.Valid {
			m.PRRef = prRef.String
		}
		m.StartedTick = tickPtr(started)
		m.CompletedTick = tickPtr(completed)
		if err := json.Unmarshal([]byte(taskIDs), &m.TaskIDs); err != nil {
			return fmt.Errorf("mission %s tasks: %w", m.ID, err)
		}
		mission := m
		s.Missions[m.ID] = &mission
	}
	return rows.Err()
}

func (r Repo) loadEpics(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,phase,status,mission_ids_json FROM epics`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e domain.Epic
		var status, missionIDs string
		if err := rows.Scan(&e.ID, &e.Name, &e.Phase, &status, &missionIDs); err != nil {
			return err
		}
		e.Status = domain.EpicStatus(status)
		if err := json.Unmarshal([]byte(missionIDs), &e.MissionIDs); err != nil {
			return fmt.Errorf("epic %s missions: %w", e.ID, err)
		}
		epic := e
		s.Epics[e.ID] = &epic
	}
	return rows.Err()
}

func (r Repo) loadQueue(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,title,type,priority,source,labels_json,role_override,auto_assign,status,position FROM queue_items ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var q domain.QueuedTaskItem
		var typ, priority, source, status, labels string
		var roleOverride sql.NullString
		var autoAssign int
		if err := rows.Scan(&q.ID, &q.Title, &typ, &priority, &source, &labels, &roleOverride, &autoAssign, &status, &q.Position); err != nil {
			return err
		}
		q.Type = domain.TaskType(typ)
		q.Priority = domain.Priority(priority)
		q.Source = domain.QueueSource(source)
		q.Status = domain.QueueItemStatus(status)
		if err := json.Unmarshal([]byte(labels), &q.Labels); err != nil {
			return fmt.Errorf("queue item %s labels: %w", q.ID, err)
		}
		if roleOverride.Valid {
			q.RoleOverride = domain.Role(roleOverride.String)
		}
		q.AutoAssign = autoAssign != 0
		item := q
		s.Queue = append(s.Queue, &item)
	}
	return rows.Err()
}

func (r Repo) loadProposals(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,type,reasoning,priority,status,created_tick,payload_json FROM proposals`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.PMProposal
		var typ, priority, status, payload string
		if err := rows.Scan(&p.ID, &typ, &p.Reasoning, &priority, &status, &p.CreatedTick, &payload); err != nil {
			return err
		}
		p.Type = domain.ProposalType(typ)
		p.Priority = domain.Priority(priority)
		p.Status = domain.ProposalStatus(status)
		var pl proposalPayload
		if err := json.Unmarshal([]byte(payload), &pl); err != nil {
			return fmt.Errorf("proposal %s payload: %w", p.ID, err)
		}
		p.Mission = pl.Mission
		p.Hire = pl.Hire
		prop := p
		s.Proposals[p.ID] = &prop
	}
	return rows.Err()
}

func (r Repo) loadAchievements(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,description,unlocked,unlocked_tick,progress,target FROM achievements`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.Achievement
		var unlocked int
		var unlockedTick sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &unlocked, &unlockedTick, &a.Progress, &a.Target); err != nil {
			return err
		}
		a.Unlocked = unlocked != 0
		a.UnlockedTick = tickPtr(unlockedTick)
		ach := a
		s.Achievements[a.ID] = &ach
	}
	return rows.Err()
}

func (r Repo) loadActivity(ctx context.Context, s *sim.State) error {
	rows, err := r.DB.QueryContext(ctx, `SELECT event_id,start_tick,choice,resolved FROM active_events ORDER BY rowid_ord`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ev domain.ActiveEvent
		var choice sql.NullString
		var resolved int
		if err := rows.Scan(&ev.EventID, &ev.StartTick, &choice, &resolved); err != nil {
			return err
		}
		if choice.Valid {
			v := choice.String
			ev.Choice = &v
		}
		ev.Resolved = resolved != 0
		e := ev
		s.ActiveEvents = append(s.ActiveEvents, &e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	actionRows, err := r.DB.QueryContext(ctx, `SELECT due_tick,kind,target_id FROM scheduled_actions ORDER BY rowid_ord`)
	if err != nil {
		return err
	}
	defer actionRows.Close()
	for actionRows.Next() {
		var a domain.ScheduledAction
		var kind string
		if err := actionRows.Scan(&a.DueTick, &kind, &a.TargetID); err != nil {
			return err
		}
		a.Kind = domain.ActionKind(kind)
		s.Scheduled = append(s.Scheduled, a)
	}
	if err := actionRows.Err(); err != nil {
		return err
	}

	thoughtRows, err := r.DB.QueryContext(ctx, `SELECT tick,kind,text FROM thoughts ORDER BY rowid_ord`)
	if err != nil {
		return err
	}
	defer thoughtRows.Close()
	for thoughtRows.Next() {
		var th domain.PMThought
		var kind string
		if err := thoughtRows.Scan(&th.Tick, &kind, &th.Text); err != nil {
			return err
		}
		th.Kind = domain.ThoughtKind(kind)
		s.Thoughts = append(s.Thoughts, th)
	}
	return thoughtRows.Err()
}

// LogEntry is one persisted event log record, for tailing.
type LogEntry struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Tick       uint64 `json:"tick"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload"`
}

// TailLog returns the most recent n log entries, oldest first.
func (r Repo) TailLog(ctx context.Context, n int) ([]LogEntry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,tick,type,entity_kind,COALESCE(entity_id,''),payload_json FROM events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.TS, &e.Tick, &e.Type, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type proposalPayload struct {
	Mission *domain.MissionPayload `json:"mission,omitempty"`
	Hire    *domain.HirePayload    `json:"hire,omitempty"`
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullablePtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTick(v *uint64) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func tickPtr(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptySlice(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func emptyArtifacts(v []domain.Artifact) []domain.Artifact {
	if v == nil {
		return []domain.Artifact{}
	}
	return v
}
