package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devfirm/internal/app"
	"devfirm/internal/config"
	"devfirm/internal/db"
	"devfirm/internal/domain"
	"devfirm/internal/engine"
	"devfirm/internal/gameevent"
	"devfirm/internal/scheduler"
	"devfirm/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "devfirm",
	Short: "Devfirm CLI",
	Long: `Devfirm runs a virtual software company as a discrete-time simulation.
You hire employees, feed work into an intake queue, group tasks into missions,
and approve (or veto) whatever the PM brain proposes. Each tick moves assigned
work forward; payroll, morale drift, and random events happen on their own
cadences. Everything persists in a .devfirm SQLite workspace, so the CLI, the
HTTP API, and an external driver can all poke the same company.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DEVFIRM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("company", "", "company name (overrides config)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("company", rootCmd.PersistentFlags().Lookup("company"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(tickCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(speedCmd())
	rootCmd.AddCommand(pauseCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(epicCmd())
	rootCmd.AddCommand(pmCmd())
	rootCmd.AddCommand(proposalCmd())
	rootCmd.AddCommand(achievementsCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new company in this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			workspace := viper.GetString("workspace")
			path, err := app.WriteDefaultConfig(workspace, name)
			if err != nil {
				return err
			}
			e, closeDB, err := app.OpenEngine(workspace, "")
			if err != nil {
				return err
			}
			defer closeDB()
			if err := e.InitCompany(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Company %q founded. Config written to %s.\n", name, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "company name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show company status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				st, err := e.Status()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				fmt.Printf("%s  tick=%d  speed=%s  $%d\n", st.Company, st.Tick, st.Speed, st.Money)
				fmt.Printf("employees: %d (%d idle)  tasks: %d (%d done)  queued: %d\n",
					st.Employees, st.Idle, st.TasksTotal, st.TasksDone, st.Queued)
				fmt.Printf("missions: %d  proposals pending: %d  shipped: %d features, %d bugs fixed\n",
					st.Missions, st.Pending, st.FeaturesShipped, st.BugsFixed)
				fmt.Printf("product phase: %s  open bugs: %d  tech debt: %d\n",
					st.Product.Phase, st.Product.OpenBugs, st.Product.TechDebt)
				for _, ev := range st.ActiveEvents {
					fmt.Printf("active event: %s (since tick %d)\n", ev.EventID, ev.StartTick)
				}
				return nil
			})
		},
	}
}

func tickCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance the simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.Tick(ctx, n); err != nil {
					return err
				}
				st, err := e.Status()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				fmt.Printf("tick=%d  $%d\n", st.Tick, st.Money)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 1, "number of ticks")
	return cmd
}

func runCmd() *cobra.Command {
	var ticks int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation continuously until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeDB, err := app.OpenEngine(viper.GetString("workspace"), viper.GetString("company"))
			if err != nil {
				return err
			}
			defer closeDB()
			ctx := cmd.Context()
			if err := e.Load(ctx); err != nil {
				return err
			}
			done := 0
			for ctx.Err() == nil && (ticks <= 0 || done < ticks) {
				if err := e.Tick(ctx, 1); err != nil {
					return err
				}
				done++
				if done%10 == 0 {
					if err := e.Save(ctx); err != nil {
						return err
					}
				}
				select {
				case <-ctx.Done():
				case <-time.After(tickDelay(e)):
				}
			}
			if err := e.Save(context.Background()); err != nil {
				return err
			}
			st, err := e.Status()
			if err != nil {
				return err
			}
			fmt.Printf("stopped at tick=%d  $%d\n", st.Tick, st.Money)
			return nil
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 0, "stop after this many ticks (0 = run forever)")
	return cmd
}

// tickDelay picks the wall-clock pause between ticks from the current speed.
func tickDelay(e *engine.Engine) time.Duration {
	st, err := e.Status()
	if err != nil {
		return time.Second
	}
	switch st.Speed {
	case domain.SpeedTurbo:
		return 10 * time.Millisecond
	case domain.SpeedFast:
		return 250 * time.Millisecond
	case domain.SpeedPaused:
		return 500 * time.Millisecond
	default:
		return time.Second
	}
}

func speedCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "speed <paused|normal|fast|turbo>",
		Short:     "Set simulation speed",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"paused", "normal", "fast", "turbo"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.SetSpeed(domain.Speed(args[0]))
			})
		},
	}
}

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.SetSpeed(domain.SpeedPaused)
			})
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the simulation at normal speed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.SetSpeed(domain.SpeedNormal)
			})
		},
	}
}

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{Use: "employee", Short: "Manage employees"}
	emp.AddCommand(employeeHireCmd())
	emp.AddCommand(employeeListCmd())
	emp.AddCommand(employeeBreakCmd())
	return emp
}

func employeeHireCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "hire",
		Short: "Hire an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				emp, err := e.Hire(name, domain.Role(role))
				if err != nil {
					return err
				}
				return printJSONOrTable(emp)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "employee name")
	cmd.Flags().StringVar(&role, "role", "engineer", "role (engineer|designer|pm|marketer)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func employeeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				emps, err := e.Employees()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(emps)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Status", "Skill", "Prod", "Morale", "Salary", "Task"})
				for _, emp := range emps {
					task := ""
					if emp.CurrentTaskID != nil {
						task = shortID(*emp.CurrentTaskID)
					}
					tw.AppendRow(table.Row{shortID(emp.ID), emp.Name, emp.Role, emp.Status,
						emp.SkillLevel, emp.Productivity, emp.Morale, emp.Salary, task})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func employeeBreakCmd() *cobra.Command {
	var ticks uint64
	cmd := &cobra.Command{
		Use:   "break <employee-id>",
		Short: "Send an employee on break",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.SendOnBreak(args[0], ticks)
			})
		},
	}
	cmd.Flags().Uint64Var(&ticks, "ticks", 30, "break length in ticks")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskAssignCmd())
	task.AddCommand(taskUnassignCmd())
	task.AddCommand(taskSetStatusCmd())
	task.AddCommand(taskArtifactCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var title, taskType, priority string
	var estimate float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				t, err := e.CreateTask(engine.TaskCreateOptions{
					Title:          title,
					Type:           domain.TaskType(taskType),
					Priority:       domain.Priority(priority),
					EstimatedTicks: estimate,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&taskType, "type", "", "feature|bug|design|marketing|infrastructure")
	cmd.Flags().StringVar(&priority, "priority", "", "critical|high|medium|low")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimated ticks (0 = derive from priority)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				tasks, err := e.Tasks()
				if err != nil {
					return err
				}
				filtered := tasks[:0]
				for _, t := range tasks {
					if status != "" && t.Status != domain.TaskStatus(status) {
						continue
					}
					filtered = append(filtered, t)
				}
				if viper.GetBool("json") {
					return printJSON(filtered)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Status", "Priority", "Assignee", "Progress"})
				for _, t := range filtered {
					assignee := ""
					if t.AssigneeID != nil {
						assignee = shortID(*t.AssigneeID)
					}
					tw.AppendRow(table.Row{shortID(t.ID), t.Title, t.Type, t.Status, t.Priority,
						assignee, fmt.Sprintf("%.1f/%.1f", t.ProgressTicks, t.EstimatedTicks)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func taskAssignCmd() *cobra.Command {
	var employeeID string
	cmd := &cobra.Command{
		Use:   "assign <task-id>",
		Short: "Assign a task to an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.AssignTask(args[0], employeeID)
			})
		},
	}
	cmd.Flags().StringVar(&employeeID, "to", "", "employee id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func taskUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <task-id>",
		Short: "Unassign a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.UnassignTask(args[0])
			})
		},
	}
}

func taskSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <task-id> <status>",
		Short: "Move a task to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.SetTaskStatus(args[0], domain.TaskStatus(args[1]))
			})
		},
	}
}

func taskArtifactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "artifact <task-id>",
		Short: "Generate a work artifact for an in-progress task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.GenerateArtifact(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
}

func queueCmd() *cobra.Command {
	q := &cobra.Command{Use: "queue", Short: "Task intake queue"}
	q.AddCommand(queueAddCmd())
	q.AddCommand(queueImportCmd())
	q.AddCommand(queueListCmd())
	q.AddCommand(queueProcessCmd())
	return q
}

func queueAddCmd() *cobra.Command {
	var title, taskType, priority, role string
	var labels []string
	var noAutoAssign bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				item, err := e.EnqueueTask(domain.QueuedTaskItem{
					Source:       domain.SourceManual,
					Title:        title,
					Type:         domain.TaskType(taskType),
					Priority:     domain.Priority(priority),
					Labels:       labels,
					RoleOverride: domain.Role(role),
					AutoAssign:   !noAutoAssign,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "item title")
	cmd.Flags().StringVar(&taskType, "type", "", "task type (derived from labels when empty)")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (derived from labels when empty)")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "labels, repeatable")
	cmd.Flags().StringVar(&role, "role", "", "role override")
	cmd.Flags().BoolVar(&noAutoAssign, "no-auto-assign", false, "keep the item queued until processed explicitly")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func queueImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import issue-tracker issues from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var issues []scheduler.RawIssue
			if err := json.Unmarshal(data, &issues); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ImportIssues(issues)
				if err != nil {
					return err
				}
				fmt.Printf("queued %d issues\n", len(items))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with an array of issues")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func queueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.QueueItems()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Pos", "Title", "Type", "Priority", "Source", "Status"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.Position, it.Title, it.Type, it.Priority, it.Source, it.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func queueProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Assign queued items to idle employees now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				assigned, err := e.ProcessQueue()
				if err != nil {
					return err
				}
				fmt.Printf("assigned %d tasks\n", len(assigned))
				return nil
			})
		},
	}
}

func missionCmd() *cobra.Command {
	m := &cobra.Command{Use: "mission", Short: "Manage missions"}
	m.AddCommand(missionCreateCmd())
	m.AddCommand(missionListCmd())
	m.AddCommand(missionStartCmd())
	m.AddCommand(missionAddTaskCmd())
	m.AddCommand(missionRemoveTaskCmd())
	m.AddCommand(missionReviewCmd())
	m.AddCommand(missionCompleteCmd())
	m.AddCommand(missionAbandonCmd())
	return m
}

func missionCreateCmd() *cobra.Command {
	var name string
	var taskIDs []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				m, err := e.CreateMission(name, taskIDs)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "mission name")
	cmd.Flags().StringSliceVar(&taskIDs, "task", nil, "task ids, repeatable")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func missionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				missions, err := e.Missions()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(missions)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Branch", "Tasks", "PR"})
				for _, m := range missions {
					tw.AppendRow(table.Row{shortID(m.ID), m.Name, m.Status, m.Branch, len(m.TaskIDs), m.PRRef})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func missionStartCmd() *cobra.Command {
	return missionTransitionCmd("start <mission-id>", "Start a mission", func(e *engine.Engine, id string) error {
		return e.StartMission(id)
	})
}

func missionCompleteCmd() *cobra.Command {
	return missionTransitionCmd("complete <mission-id>", "Complete a mission", func(e *engine.Engine, id string) error {
		return e.CompleteMission(id)
	})
}

func missionAbandonCmd() *cobra.Command {
	return missionTransitionCmd("abandon <mission-id>", "Abandon a mission", func(e *engine.Engine, id string) error {
		return e.AbandonMission(id)
	})
}

func missionTransitionCmd(use, short string, fn func(*engine.Engine, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return fn(e, args[0])
			})
		},
	}
}

func missionAddTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-task <mission-id> <task-id>",
		Short: "Add a task to a mission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.MissionAddTask(args[0], args[1])
			})
		},
	}
}

func missionRemoveTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-task <mission-id> <task-id>",
		Short: "Remove a task from a mission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.MissionRemoveTask(args[0], args[1])
			})
		},
	}
}

func missionReviewCmd() *cobra.Command {
	var prRef string
	cmd := &cobra.Command{
		Use:   "review <mission-id>",
		Short: "Move a mission to review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.MoveMissionToReview(args[0], prRef)
			})
		},
	}
	cmd.Flags().StringVar(&prRef, "pr", "", "pull request reference")
	return cmd
}

func epicCmd() *cobra.Command {
	ep := &cobra.Command{Use: "epic", Short: "Manage epics"}
	ep.AddCommand(epicCreateCmd())
	ep.AddCommand(epicListCmd())
	ep.AddCommand(epicAttachCmd())
	return ep
}

func epicCreateCmd() *cobra.Command {
	var name, phase string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an epic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				ep, err := e.CreateEpic(name, phase)
				if err != nil {
					return err
				}
				return printJSONOrTable(ep)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "epic name")
	cmd.Flags().StringVar(&phase, "phase", "", "product phase")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func epicListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List epics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				epics, err := e.Epics()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(epics)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Phase", "Status", "Missions"})
				for _, ep := range epics {
					tw.AppendRow(table.Row{shortID(ep.ID), ep.Name, ep.Phase, ep.Status, len(ep.MissionIDs)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func epicAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <epic-id> <mission-id>",
		Short: "Attach a mission to an epic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.AttachMissionToEpic(args[0], args[1])
			})
		},
	}
}

func pmCmd() *cobra.Command {
	pm := &cobra.Command{Use: "pm", Short: "PM brain"}
	pm.AddCommand(pmEvaluateCmd())
	pm.AddCommand(pmThoughtsCmd())
	return pm
}

func pmEvaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run a PM evaluation now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				created, err := e.RunPMEvaluation()
				if err != nil {
					return err
				}
				fmt.Printf("raised %d proposals\n", len(created))
				return nil
			})
		},
	}
}

func pmThoughtsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "thoughts",
		Short: "Show recent PM observations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				thoughts, err := e.Thoughts(n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(thoughts)
				}
				for _, th := range thoughts {
					fmt.Printf("[%d] %-11s %s\n", th.Tick, th.Kind, th.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of thoughts")
	return cmd
}

func proposalCmd() *cobra.Command {
	p := &cobra.Command{Use: "proposal", Short: "PM proposals"}
	p.AddCommand(proposalListCmd())
	p.AddCommand(proposalApproveCmd())
	p.AddCommand(proposalRejectCmd())
	p.AddCommand(proposalDismissCmd())
	return p
}

func proposalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				pending, err := e.PendingProposals()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(pending)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Priority", "Proposal"})
				for _, p := range pending {
					summary := p.Reasoning
					if p.Mission != nil {
						summary = fmt.Sprintf("mission %q (%d tasks)", p.Mission.Name, len(p.Mission.Tasks))
					} else if p.Hire != nil {
						summary = fmt.Sprintf("hire a %s", p.Hire.Role)
					}
					tw.AppendRow(table.Row{shortID(p.ID), p.Type, p.Priority, summary})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func proposalApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <proposal-id>",
		Short: "Approve a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				m, err := e.ApproveProposal(args[0])
				if err != nil {
					return err
				}
				if m != nil {
					fmt.Printf("mission %q created (%s)\n", m.Name, m.ID)
				}
				return nil
			})
		},
	}
}

func proposalRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <proposal-id>",
		Short: "Reject a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.RejectProposal(args[0])
			})
		},
	}
}

func proposalDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <proposal-id>",
		Short: "Dismiss a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.DismissProposal(args[0])
			})
		},
	}
}

func achievementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "List achievements and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if _, err := e.CheckAchievements(); err != nil {
					return err
				}
				items, err := e.Achievements()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"", "Name", "Progress", "Description"})
				for _, a := range items {
					mark := " "
					if a.Unlocked {
						mark = "x"
					}
					tw.AppendRow(table.Row{mark, a.Name, fmt.Sprintf("%d/%d", a.Progress, a.Target), a.Description})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func eventCmd() *cobra.Command {
	ev := &cobra.Command{Use: "event", Short: "Random events"}
	ev.AddCommand(eventListCmd())
	ev.AddCommand(eventTriggerCmd())
	ev.AddCommand(eventChooseCmd())
	return ev
}

func eventListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active events and the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				active, err := e.ActiveEvents()
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(active)
				}
				for _, ev := range active {
					state := "awaiting choice"
					if ev.Resolved {
						state = "resolved"
						if ev.Choice != nil {
							state = "resolved: " + *ev.Choice
						}
					}
					fmt.Printf("%s (tick %d) %s\n", ev.EventID, ev.StartTick, state)
					if def, ok := gameevent.ByID(ev.EventID); ok && !ev.Resolved {
						for _, c := range def.Choices {
							fmt.Printf("  - %s: %s ($%d)\n", c.ID, c.Label, c.Cost)
						}
					}
				}
				return nil
			})
		},
	}
}

func eventTriggerCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger an event (random roll when --id is omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				ev, err := e.TriggerEvent(id)
				if err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "event id from the catalogue")
	return cmd
}

func eventChooseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "choose <event-id> <choice-id>",
		Short: "Resolve an active event with a choice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.MakeEventChoice(args[0], args[1])
			})
		},
	}
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				entries, err := e.TailLog(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				for _, entry := range entries {
					fmt.Printf("[%d] %-22s %s %s\n", entry.Tick, entry.Type, entry.EntityKind, shortID(entry.EntityID))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	return cmd
}

func snapshotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export the full state as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				raw, err := e.Snapshot()
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Println(string(raw))
					return nil
				}
				return os.WriteFile(out, raw, 0o644)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a default devfirm.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := viper.GetString("company")
			if name == "" {
				name = "devfirm"
			}
			fmt.Print(config.GenerateDefault(name))
			return nil
		},
	})
	return cfg
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeDB, err := app.OpenEngine(viper.GetString("workspace"), viper.GetString("company"))
			if err != nil {
				return err
			}
			defer closeDB()
			if err := e.Load(cmd.Context()); err != nil {
				return err
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Devfirm API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	return app.WithLoadedEngine(ctx, viper.GetString("workspace"), viper.GetString("company"), fn)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
