package pmbrain

import (
	"sort"

	"github.com/google/uuid"

	"devfirm/internal/domain"
	"devfirm/internal/mission"
	"devfirm/internal/scheduler"
	"devfirm/internal/sim"
)

// RunEvaluation is the periodic PM pass. It analyzes product state, records
// fresh thoughts, and raises pending proposals for the eligible mission
// templates and any staffing gap. It never creates missions or hires anyone
// itself.
func RunEvaluation(s *sim.State, maxMissions int) []*domain.PMProposal {
	ps := AnalyzeProductState(s)
	for _, th := range GenerateThoughts(s, ps) {
		s.Thoughts = append(s.Thoughts, th)
	}

	var created []*domain.PMProposal
	for _, tpl := range EvaluateNextMissions(s, ps, maxMissions) {
		if hasPendingMissionProposal(s, tpl.Name) {
			continue
		}
		p := &domain.PMProposal{
			ID:          uuid.New().String(),
			Type:        domain.ProposalMission,
			Reasoning:   tpl.Reason,
			Priority:    tpl.Priority,
			Status:      domain.ProposalPending,
			CreatedTick: s.Tick,
			Mission:     &domain.MissionPayload{Name: tpl.Name, Tasks: tpl.Tasks},
		}
		s.Proposals[p.ID] = p
		created = append(created, p)
	}

	if role, ok := staffingGap(s); ok && !hasPendingHireProposal(s) {
		p := &domain.PMProposal{
			ID:          uuid.New().String(),
			Type:        domain.ProposalHire,
			Reasoning:   "no idle hands and work is queuing up",
			Priority:    domain.PriorityHigh,
			Status:      domain.ProposalPending,
			CreatedTick: s.Tick,
			Hire:        &domain.HirePayload{Role: role, Reason: "queue backlog with zero idle employees"},
		}
		s.Proposals[p.ID] = p
		created = append(created, p)
	}
	return created
}

// ApproveProposal resolves a pending proposal and applies its payload. A
// mission proposal materializes its task specs and creates the mission in
// planning; this is the only path from proposal to mission. Resolving an
// already-resolved proposal is a no-op.
func ApproveProposal(s *sim.State, proposalID string) (*domain.Mission, bool) {
	p := s.Proposal(proposalID)
	if p == nil || p.Resolved() {
		return nil, false
	}
	p.Status = domain.ProposalApproved
	if p.Type != domain.ProposalMission || p.Mission == nil {
		return nil, true
	}
	var taskIDs []string
	for _, spec := range p.Mission.Tasks {
		t := &domain.Task{
			ID:             uuid.New().String(),
			Title:          spec.Title,
			Type:           spec.Type,
			Status:         domain.TaskTodo,
			Priority:       spec.Priority,
			EstimatedTicks: spec.EstimatedTicks,
			CreatedTick:    s.Tick,
		}
		s.Tasks[t.ID] = t
		taskIDs = append(taskIDs, t.ID)
	}
	return mission.Create(s, p.Mission.Name, taskIDs), true
}

// RejectProposal marks a pending proposal rejected. It stays in history.
func RejectProposal(s *sim.State, proposalID string) bool {
	p := s.Proposal(proposalID)
	if p == nil || p.Resolved() {
		return false
	}
	p.Status = domain.ProposalRejected
	return true
}

// DismissProposal removes a proposal entirely, resolved or not.
func DismissProposal(s *sim.State, proposalID string) bool {
	if s.Proposal(proposalID) == nil {
		return false
	}
	delete(s.Proposals, proposalID)
	return true
}

// PendingProposals returns unresolved proposals in creation order. It only
// filters; priority is advisory and never reorders the list.
func PendingProposals(s *sim.State) []*domain.PMProposal {
	var out []*domain.PMProposal
	for _, p := range s.Proposals {
		if !p.Resolved() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedTick != out[j].CreatedTick {
			return out[i].CreatedTick < out[j].CreatedTick
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ExpireProposals resolves pending proposals older than ttl ticks.
func ExpireProposals(s *sim.State, ttl uint64) int {
	if ttl == 0 {
		return 0
	}
	n := 0
	for _, p := range s.Proposals {
		if !p.Resolved() && s.Tick >= p.CreatedTick+ttl {
			p.Status = domain.ProposalExpired
			n++
		}
	}
	return n
}

// staffingGap reports whether the team has zero idle employees while work
// waits, and which role the queue leans toward.
func staffingGap(s *sim.State) (domain.Role, bool) {
	if len(s.IdleEmployees()) > 0 {
		return "", false
	}
	waiting := s.CountTasks(domain.TaskTodo) + s.CountTasks(domain.TaskBacklog)
	byRole := map[domain.Role]int{}
	for _, item := range s.Queue {
		if item.Status != domain.QueueItemQueued {
			continue
		}
		waiting++
		byRole[scheduler.PreferredRole(item)]++
	}
	if waiting == 0 {
		return "", false
	}
	roles := make([]domain.Role, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	best, bestN := domain.RoleEngineer, 0
	for _, role := range roles {
		// Ties resolve to the lexically first role.
		if byRole[role] > bestN {
			best, bestN = role, byRole[role]
		}
	}
	return best, true
}

func hasPendingMissionProposal(s *sim.State, name string) bool {
	for _, p := range s.Proposals {
		if !p.Resolved() && p.Type == domain.ProposalMission && p.Mission != nil && p.Mission.Name == name {
			return true
		}
	}
	return false
}

func hasPendingHireProposal(s *sim.State) bool {
	for _, p := range s.Proposals {
		if !p.Resolved() && p.Type == domain.ProposalHire {
			return true
		}
	}
	return false
}
