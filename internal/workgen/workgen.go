// Package workgen is the boundary between the simulation and whatever
// produces task artifacts. The engine only sees the Generator interface; the
// simulated provider keeps the loop self-contained and deterministic.
package workgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"devfirm/internal/domain"
)

// Generator produces an artifact for a task being worked by an employee.
type Generator interface {
	Name() string
	Generate(ctx context.Context, task *domain.Task, employee *domain.Employee) (domain.Artifact, error)
}

// Config selects which provider serves which employee or role. Resolution
// order: per-employee override, then role default, then the default
// provider, then the legacy single Provider field.
type Config struct {
	Provider  string            `yaml:"provider,omitempty"`
	Default   string            `yaml:"default,omitempty"`
	Roles     map[string]string `yaml:"roles,omitempty"`
	Overrides map[string]string `yaml:"overrides,omitempty"`
}

// Resolve returns the provider name for the employee.
func (c Config) Resolve(e *domain.Employee) string {
	if e != nil {
		if p, ok := c.Overrides[e.ID]; ok && p != "" {
			return p
		}
		if p, ok := c.Roles[string(e.Role)]; ok && p != "" {
			return p
		}
	}
	if c.Default != "" {
		return c.Default
	}
	return c.Provider
}

// Registry maps provider names to generators.
type Registry map[string]Generator

// For resolves the generator serving the employee, falling back to the
// simulated provider when the configured name is unknown.
func (r Registry) For(cfg Config, e *domain.Employee) Generator {
	if g, ok := r[cfg.Resolve(e)]; ok {
		return g
	}
	return Simulated{}
}

// Simulated is the in-repo provider. Its output is a pure function of the
// task and employee so replays produce identical artifacts.
type Simulated struct{}

func (Simulated) Name() string { return "simulated" }

func (Simulated) Generate(_ context.Context, task *domain.Task, employee *domain.Employee) (domain.Artifact, error) {
	if task == nil {
		return domain.Artifact{}, fmt.Errorf("no task to generate for")
	}
	if employee == nil {
		return domain.Artifact{}, fmt.Errorf("task %s has no assignee", task.ID)
	}
	kind := artifactKind(task.Type)
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("artifact|"+task.ID+"|"+employee.ID)).String()
	content := fmt.Sprintf("%s by %s (%s): %s", kind, employee.Name, employee.Role, summarize(task.Title))
	return domain.Artifact{
		ID:       id,
		Kind:     kind,
		Content:  content,
		Provider: "simulated",
	}, nil
}

func artifactKind(t domain.TaskType) string {
	switch t {
	case domain.TaskDesign:
		return "design_doc"
	case domain.TaskMarketing:
		return "copy_draft"
	case domain.TaskBug:
		return "patch"
	case domain.TaskInfrastructure:
		return "runbook"
	default:
		return "code_change"
	}
}

func summarize(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > 80 {
		title = title[:77] + "..."
	}
	return title
}
