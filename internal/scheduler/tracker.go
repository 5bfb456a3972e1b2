package scheduler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"devfirm/internal/domain"
)

// RawIssue is the shape shared by GitHub- and Linear-flavored tracker
// payloads. Number is used by GitHub, ID by Linear; either may be set.
type RawIssue struct {
	Number int        `json:"number,omitempty"`
	ID     string     `json:"id,omitempty"`
	Title  string     `json:"title"`
	Body   string     `json:"body,omitempty"`
	Labels []RawLabel `json:"labels,omitempty"`
}

type RawLabel struct {
	Name string `json:"name"`
}

// labelRule maps a label token to the type/priority it implies. Rules are
// checked in order; the first match per field wins.
type labelRule struct {
	token    string
	taskType domain.TaskType
	priority domain.Priority
}

// Normalization rule table. Precedence is fixed: bug outranks everything for
// type; critical/high labels set priority regardless of type tokens.
var labelRules = []labelRule{
	{token: "bug", taskType: domain.TaskBug, priority: domain.PriorityCritical},
	{token: "critical", priority: domain.PriorityCritical},
	{token: "urgent", priority: domain.PriorityCritical},
	{token: "high", priority: domain.PriorityHigh},
	{token: "design", taskType: domain.TaskDesign},
	{token: "marketing", taskType: domain.TaskMarketing},
	{token: "infrastructure", taskType: domain.TaskInfrastructure},
}

// classifyLabels derives type and priority from label keywords. The booleans
// report whether a rule matched for each field.
func classifyLabels(labels []string) (domain.TaskType, domain.Priority, bool, bool) {
	typ := domain.TaskFeature
	prio := domain.PriorityMedium
	typeSet, prioSet := false, false
	for _, rule := range labelRules {
		for _, l := range labels {
			if !strings.Contains(strings.ToLower(l), rule.token) {
				continue
			}
			if rule.taskType != "" && !typeSet {
				typ = rule.taskType
				typeSet = true
			}
			if rule.priority != "" && !prioSet {
				prio = rule.priority
				prioSet = true
			}
		}
	}
	return typ, prio, typeSet, prioSet
}

// Normalize maps a raw tracker issue to a queue item using deterministic,
// case-insensitive label keyword matching. Unmatched issues default to
// feature/medium.
func Normalize(issue RawIssue) domain.QueuedTaskItem {
	var labelNames []string
	for _, l := range issue.Labels {
		labelNames = append(labelNames, l.Name)
	}
	typ, prio, _, _ := classifyLabels(labelNames)
	ref := issue.ID
	if ref == "" {
		ref = fmt.Sprintf("%d", issue.Number)
	}
	return domain.QueuedTaskItem{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte("issue|"+ref+"|"+issue.Title)).String(),
		Source:     domain.SourceTracker,
		Title:      issue.Title,
		Type:       typ,
		Priority:   prio,
		Labels:     labelNames,
		AutoAssign: true,
		Status:     domain.QueueItemQueued,
	}
}
