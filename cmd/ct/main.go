package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crewtime/internal/alert"
	"crewtime/internal/approval"
	"crewtime/internal/config"
	"crewtime/internal/db"
	"crewtime/internal/domain"
	"crewtime/internal/engine"
	"crewtime/internal/events"
	"crewtime/internal/migrate"
	"crewtime/internal/remote"
	"crewtime/internal/repo"
	"crewtime/internal/server"
	"crewtime/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "ct",
	Short: "Crewtime CLI",
	Long: `Crewtime tracks timesheets, leave, projects, and tasks against a shared
remote store. Every command logs in once, mirrors the store locally, applies
your change to the mirror, and reconciles the difference back to the server.
Submissions flow Pending -> Approved/Rejected through your manager; approved
hours roll up into each project's actual hours automatically.`,
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
	viper.SetEnvPrefix("CREWTIME")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("server", "", "server URL (overrides config)")
	rootCmd.PersistentFlags().String("token", "", "bearer token (overrides stored session)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func registerCommands() {
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(timesheetCmd())
	rootCmd.AddCommand(leaveCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(announceCmd())
	rootCmd.AddCommand(bestCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- session plumbing ---

type storedSession struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func sessionPath(workspace string) string {
	return filepath.Join(db.Dir(workspace), "session.json")
}

func saveSession(workspace string, s storedSession) error {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sessionPath(workspace), data, 0o600)
}

func loadSession(workspace string) (storedSession, error) {
	var s storedSession
	data, err := os.ReadFile(sessionPath(workspace))
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

func resolveToken(workspace string) (string, error) {
	if t := strings.TrimSpace(viper.GetString("token")); t != "" {
		return t, nil
	}
	s, err := loadSession(workspace)
	if err != nil || s.Token == "" {
		return "", fmt.Errorf("no session; run 'ct login' first")
	}
	return s.Token, nil
}

func newClient(cfg *config.Config, token string) *remote.Client {
	url := cfg.Server.URL
	if override := strings.TrimSpace(viper.GetString("server")); override != "" {
		url = override
	}
	client := remote.New(url)
	if cfg.Server.BasePath != "" {
		client.BasePath = cfg.Server.BasePath
	}
	if cfg.Sync.Timeout > 0 {
		client.Timeout = cfg.Sync.Timeout
	}
	client.BearerToken = token
	return client
}

// withEngine builds a logged-in engine with the full mirror loaded, runs
// fn, then flushes any toasts the operation queued.
func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	token, err := resolveToken(workspace)
	if err != nil {
		return err
	}
	identity, err := session.DecodeIdentity(token)
	if err != nil {
		return fmt.Errorf("stored session is invalid; run 'ct login' again: %w", err)
	}
	client := newClient(cfg, token)
	store := session.NewStore(identity, domain.Actor{ID: identity.ID, Role: identity.Role, Company: identity.Company})
	defer store.Close()
	e := engine.New(client, store, cfg)
	if err := e.Load(ctx); err != nil {
		return err
	}
	for _, u := range store.Users {
		if u.ID == identity.ID {
			store.Me = u
			break
		}
	}
	runErr := fn(ctx, e)
	flushToasts(store)
	return runErr
}

func flushToasts(store *session.Store) {
	for {
		select {
		case t := <-store.Toasts():
			if t.Title != "" {
				fmt.Printf("%s: %s\n", t.Title, t.Message)
			} else {
				fmt.Println(t.Message)
			}
		default:
			return
		}
	}
}

// --- auth commands ---

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			client := newClient(cfg, "")
			sess, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := saveSession(workspace, storedSession{Token: sess.Token, Email: email}); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s)\n", sess.User.Name, sess.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := os.Remove(sessionPath(viper.GetString("workspace")))
			if err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printResult(e.Store.Me)
			})
		},
	}
}

// --- timesheets ---

func timesheetCmd() *cobra.Command {
	ts := &cobra.Command{
		Use:   "timesheet",
		Short: "Manage timesheets",
		Long:  "Timesheets record a day's work per project. They are submitted as Pending, land in your manager's review queue, and once approved their hours roll up into each project's actual hours.",
	}
	ts.AddCommand(timesheetSubmitCmd())
	ts.AddCommand(timesheetListCmd())
	ts.AddCommand(timesheetDeleteCmd())
	return ts
}

// parseWorkEntry parses HOURS:DESCRIPTION.
func parseWorkEntry(raw string) (domain.WorkEntry, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return domain.WorkEntry{}, fmt.Errorf("invalid entry %q, expected HOURS:DESCRIPTION", raw)
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.WorkEntry{}, fmt.Errorf("invalid hours in %q: %w", raw, err)
	}
	return domain.WorkEntry{Description: strings.TrimSpace(parts[1]), Hours: hours}, nil
}

func timesheetSubmitCmd() *cobra.Command {
	var date, inTime, outTime string
	var projectID int64
	var entries []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a timesheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			work := make([]domain.WorkEntry, 0, len(entries))
			for _, raw := range entries {
				we, err := parseWorkEntry(raw)
				if err != nil {
					return err
				}
				work = append(work, we)
			}
			ts := domain.Timesheet{
				Date:    date,
				InTime:  inTime,
				OutTime: outTime,
				ProjectWork: []domain.ProjectWork{
					{ProjectID: projectID, WorkEntries: work},
				},
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SubmitTimesheet(ctx, ts)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&inTime, "in", "", "clock-in time")
	cmd.Flags().StringVar(&outTime, "out", "", "clock-out time")
	cmd.Flags().Int64Var(&projectID, "project", 0, "project id")
	cmd.Flags().StringArrayVar(&entries, "entry", []string{}, "work entry HOURS:DESCRIPTION (repeatable)")
	return cmd
}

func timesheetListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List timesheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items := e.Store.Timesheets
				if !all {
					var own []domain.Timesheet
					for _, t := range items {
						if t.UserID == e.Store.Me.ID {
							own = append(own, t)
						}
					}
					items = own
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "User", "Date", "Hours", "Status"})
				for _, t := range items {
					tw.AppendRow(table.Row{t.ID, userName(e.Store.Users, t.UserID), t.Date, t.TotalHours(), t.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include everyone's timesheets visible to you")
	return cmd
}

func timesheetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pending timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTimesheet(ctx, id)
			})
		},
	}
}

// --- leave ---

func leaveCmd() *cobra.Command {
	lv := &cobra.Command{
		Use:   "leave",
		Short: "Manage leave requests",
	}
	lv.AddCommand(leaveSubmitCmd())
	lv.AddCommand(leaveListCmd())
	lv.AddCommand(leaveDeleteCmd())
	return lv
}

func leaveSubmitCmd() *cobra.Command {
	var days, halfDays []string
	var reason string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a leave request",
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []domain.LeaveEntry
			for _, d := range days {
				entries = append(entries, domain.LeaveEntry{Date: d, LeaveType: domain.LeaveFullDay})
			}
			for _, raw := range halfDays {
				parts := strings.SplitN(raw, ":", 2)
				entry := domain.LeaveEntry{Date: parts[0], LeaveType: domain.LeaveHalfDay, HalfDaySession: "First Half"}
				if len(parts) == 2 {
					entry.HalfDaySession = parts[1]
				}
				entries = append(entries, entry)
			}
			lr := domain.LeaveRequest{LeaveEntries: entries, Reason: reason}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SubmitLeaveRequest(ctx, lr)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringArrayVar(&days, "day", []string{}, "full day of leave YYYY-MM-DD (repeatable)")
	cmd.Flags().StringArrayVar(&halfDays, "half-day", []string{}, "half day DATE[:SESSION] (repeatable)")
	cmd.Flags().StringVar(&reason, "reason", "", "reason for leave")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func leaveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your leave requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var own []domain.LeaveRequest
				for _, l := range e.Store.LeaveRequests {
					if l.UserID == e.Store.Me.ID {
						own = append(own, l)
					}
				}
				if viper.GetBool("json") {
					return printJSON(own)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Days", "Reason", "Status"})
				for _, l := range own {
					tw.AppendRow(table.Row{l.ID, len(l.LeaveEntries), l.Reason, l.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func leaveDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pending leave request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteLeaveRequest(ctx, id)
			})
		},
	}
}

// --- review ---

func reviewCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:   "review",
		Short: "Review submitted timesheets and leave requests",
		Long:  "The review queue shows every pending submission your role lets you see. Approving or rejecting is final; the owner is notified either way.",
	}
	rv.AddCommand(reviewTimesheetsCmd())
	rv.AddCommand(reviewLeaveCmd())
	rv.AddCommand(reviewDecideTimesheetCmd("approve-timesheet", domain.StatusApproved))
	rv.AddCommand(reviewDecideTimesheetCmd("reject-timesheet", domain.StatusRejected))
	rv.AddCommand(reviewDecideLeaveCmd("approve-leave", domain.StatusApproved))
	rv.AddCommand(reviewDecideLeaveCmd("reject-leave", domain.StatusRejected))
	return rv
}

func historyFilterFlags(cmd *cobra.Command, f *approval.HistoryFilter) {
	cmd.Flags().StringVar((*string)(&f.Status), "status", "", "history status filter (Approved, Rejected)")
	cmd.Flags().StringVar(&f.From, "from", "", "history start date")
	cmd.Flags().StringVar(&f.To, "to", "", "history end date")
	cmd.Flags().StringVar(&f.Query, "query", "", "history text filter")
}

func reviewTimesheetsCmd() *cobra.Command {
	var f approval.HistoryFilter
	cmd := &cobra.Command{
		Use:   "timesheets",
		Short: "Show the timesheet review queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				pending, history := e.TimesheetQueue(f)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"pending": pending, "history": history})
				}
				fmt.Println("Pending:")
				renderTimesheets(e.Store.Users, pending)
				fmt.Println("History:")
				renderTimesheets(e.Store.Users, history)
				return nil
			})
		},
	}
	historyFilterFlags(cmd, &f)
	return cmd
}

func reviewLeaveCmd() *cobra.Command {
	var f approval.HistoryFilter
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Show the leave review queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				pending, history := e.LeaveQueue(f)
				if viper.GetBool("json") {
					return printJSON(map[string]any{"pending": pending, "history": history})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "User", "Days", "Reason", "Status"})
				for _, l := range append(pending, history...) {
					tw.AppendRow(table.Row{l.ID, userName(e.Store.Users, l.UserID), len(l.LeaveEntries), l.Reason, l.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	historyFilterFlags(cmd, &f)
	return cmd
}

func reviewDecideTimesheetCmd(use string, to domain.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: string(to) + ": decide a pending timesheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.ReviewTimesheet(ctx, id, to)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
}

func reviewDecideLeaveCmd(use string, to domain.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: string(to) + ": decide a pending leave request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.ReviewLeaveRequest(ctx, id, to)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
}

func renderTimesheets(users []domain.Actor, items []domain.Timesheet) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "User", "Date", "Status"})
	for _, t := range items {
		tw.AppendRow(table.Row{t.ID, userName(users, t.UserID), t.Date, t.Status})
	}
	tw.Render()
}

// --- projects ---

func projectCmd() *cobra.Command {
	prj := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectSaveCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items := e.Store.CompanyProjects()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Estimated", "Actual"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.EstimatedHours, p.ActualHours})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectSaveCmd() *cobra.Command {
	var p domain.Project
	var status string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Status = domain.ProjectStatus(status)
			if p.Status == "" {
				p.Status = domain.ProjectNotStarted
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SaveProject(ctx, p)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().Int64Var(&p.ID, "id", 0, "project id (omit to create)")
	cmd.Flags().StringVar(&p.Name, "name", "", "project name")
	cmd.Flags().StringVar(&p.Description, "description", "", "description")
	cmd.Flags().Int64Var(&p.ManagerID, "manager", 0, "manager user id")
	cmd.Flags().Int64Var(&p.TeamLeaderID, "team-leader", 0, "team leader user id")
	cmd.Flags().Int64SliceVar(&p.TeamIDs, "team", []int64{}, "team member user ids")
	cmd.Flags().StringVar(&p.CustomerName, "customer", "", "customer name")
	cmd.Flags().StringVar(&p.JobName, "job", "", "job name")
	cmd.Flags().Float64Var(&p.EstimatedHours, "estimated-hours", 0, "estimated hours")
	cmd.Flags().StringVar(&status, "status", "", "project status")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteProject(ctx, id)
			})
		},
	}
}

// --- tasks ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskSaveCmd())
	task.AddCommand(taskStatusCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var projectID int64
	var mine bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var items []domain.Task
				for _, t := range e.Store.Tasks {
					if projectID != 0 && t.ProjectID != projectID {
						continue
					}
					if mine {
						assigned := false
						for _, a := range t.AssignedTo {
							if a == e.Store.Me.ID {
								assigned = true
								break
							}
						}
						if !assigned {
							continue
						}
					}
					items = append(items, t)
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Project", "Title", "Status", "Importance", "Deadline"})
				for _, t := range items {
					tw.AppendRow(table.Row{t.ID, t.ProjectID, t.Title, t.Status, t.Importance, t.Deadline})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "filter by project id")
	cmd.Flags().BoolVar(&mine, "mine", false, "only tasks assigned to you")
	return cmd
}

func taskSaveCmd() *cobra.Command {
	var t domain.Task
	var status, importance string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			t.Status = domain.TaskStatus(status)
			t.Importance = domain.TaskImportance(importance)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SaveTask(ctx, t)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().Int64Var(&t.ID, "id", 0, "task id (omit to create)")
	cmd.Flags().Int64Var(&t.ProjectID, "project", 0, "project id")
	cmd.Flags().StringVar(&t.Title, "title", "", "title")
	cmd.Flags().StringVar(&t.Description, "description", "", "description")
	cmd.Flags().Int64SliceVar(&t.AssignedTo, "assign", []int64{}, "assignee user ids")
	cmd.Flags().StringVar(&status, "status", "", "task status")
	cmd.Flags().StringVar(&importance, "importance", "", "importance (Low, Medium, High)")
	cmd.Flags().StringVar(&t.Deadline, "deadline", "", "deadline YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Move a task across the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.UpdateTaskStatus(ctx, id, domain.TaskStatus(status))
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (To Do, In Progress, Done)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, id)
			})
		},
	}
}

// --- profile ---

func profileCmd() *cobra.Command {
	var name, email, phone, address, designation, dob string
	var userID int64
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update a profile (your own, or anyone's as admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id := userID
				if id == 0 {
					id = e.Store.Me.ID
				}
				var current domain.Actor
				found := false
				for _, u := range e.Store.Users {
					if u.ID == id {
						current = u
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("user %d not found", id)
				}
				if name != "" {
					current.Name = name
				}
				if email != "" {
					current.Email = email
				}
				if phone != "" {
					current.Phone = phone
				}
				if address != "" {
					current.Address = address
				}
				if designation != "" {
					current.Designation = designation
				}
				if dob != "" {
					current.DOB = dob
				}
				res, err := e.UpdateProfile(ctx, current)
				if err != nil {
					return err
				}
				return printResult(res)
			})
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id (defaults to yourself)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&phone, "phone", "", "phone")
	cmd.Flags().StringVar(&address, "address", "", "address")
	cmd.Flags().StringVar(&designation, "designation", "", "designation")
	cmd.Flags().StringVar(&dob, "dob", "", "date of birth YYYY-MM-DD")
	return cmd
}

// --- notifications ---

func notifyCmd() *cobra.Command {
	n := &cobra.Command{
		Use:   "notifications",
		Short: "Manage your notifications",
	}
	n.AddCommand(notifyListCmd())
	n.AddCommand(notifyDismissCmd())
	n.AddCommand(notifyDismissAllCmd())
	n.AddCommand(notifyReadAllCmd())
	return n
}

func notifyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items := e.MyNotifications()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Message", "Read", "Created"})
				for _, n := range items {
					tw.AppendRow(table.Row{n.ID, n.Title, n.Message, n.Read, n.CreatedAt})
				}
				tw.Render()
				fmt.Printf("Unread: %d\n", e.UnreadCount())
				return nil
			})
		},
	}
}

func notifyDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss (delete) one notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DismissNotification(ctx, id)
			})
		},
	}
}

func notifyDismissAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss-all",
		Short: "Dismiss all of your notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				e.DismissAll(ctx)
				return nil
			})
		},
	}
}

func notifyReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark all of your notifications read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				e.MarkAllRead(ctx)
				return nil
			})
		},
	}
}

func announceCmd() *cobra.Command {
	var title, message string
	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Broadcast an announcement to every company member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.SendAnnouncement(ctx, title, message)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "announcement title")
	cmd.Flags().StringVar(&message, "message", "", "announcement body")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

// --- best employees ---

func bestCmd() *cobra.Command {
	b := &cobra.Command{
		Use:   "best",
		Short: "Best employee designations",
	}
	b.AddCommand(bestListCmd())
	b.AddCommand(bestSetCmd())
	return b
}

func bestListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List best employee designations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items := e.Store.BestEmployees
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "User", "Period"})
				for _, be := range items {
					tw.AppendRow(table.Row{be.ID, userName(e.Store.Users, be.UserID), be.Period})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func bestSetCmd() *cobra.Command {
	var period string
	var users []int64
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace one period's designations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.SetBestEmployees(ctx, period, users)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", domain.BestEmployeePeriodMonth, "period (month, year)")
	cmd.Flags().Int64SliceVar(&users, "user", []int64{}, "designated user ids")
	return cmd
}

// --- events ---

func eventsCmd() *cobra.Command {
	var after int64
	var limit int
	var collection string
	var follow bool
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the remote store's audit feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			token, err := resolveToken(workspace)
			if err != nil {
				return err
			}
			client := newClient(cfg, token)
			if follow {
				return followEvents(cmd.Context(), client, cfg, after, collection)
			}
			items, err := client.Events(cmd.Context(), after, limit, collection)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(items)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "TS", "Type", "Collection", "Record", "Actor"})
			for _, e := range items {
				tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.Collection, e.RecordID, e.ActorID})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "only events after this id")
	cmd.Flags().IntVar(&limit, "n", 50, "number of events")
	cmd.Flags().StringVar(&collection, "collection", "", "collection filter")
	cmd.Flags().BoolVar(&follow, "follow", false, "keep polling and print new events as they land")
	return cmd
}

// followEvents prints audit events as they arrive. Without an explicit
// cursor the tail starts at the current feed head, so history is not
// replayed.
func followEvents(parent context.Context, client *remote.Client, cfg *config.Config, after int64, collection string) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cursor := after
	if cursor == 0 {
		head, err := client.EventsHead(ctx, collection)
		if err != nil {
			return err
		}
		cursor = head
	}
	ticker := time.NewTicker(cfg.Sync.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		items, err := client.Events(ctx, cursor, 0, collection)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "events: %v\n", err)
			continue
		}
		for _, e := range items {
			fmt.Printf("%d\t%s\t%s\t%s\t%d\t%d\n", e.ID, e.TS, e.Type, e.Collection, e.RecordID, e.ActorID)
			cursor = e.ID
		}
	}
}

// --- watch ---

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll for notifications and alert on new ones",
		Long:  "Watch keeps the local mirror converged with the remote store and raises an alert through the configured channel whenever a new notification addressed to you arrives.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
				alerter, err := alert.FromConfig(e.Config, e.Logger)
				if err != nil {
					return err
				}
				alerter.RequestPermission()
				go func() {
					for t := range e.Store.Toasts() {
						if t.Title != "" {
							fmt.Printf("%s: %s\n", t.Title, t.Message)
						} else {
							fmt.Println(t.Message)
						}
					}
				}()
				fmt.Printf("Watching as %s, unread %d. Ctrl-C to stop.\n", e.Store.Me.Name, e.UnreadCount())
				return e.NewPoller(alerter).Run(ctx)
			})
		},
	}
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath, jwtSecret string
	var seedEmail, seedPassword, seedName, seedCompany string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the remote store HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			if jwtSecret == "" {
				jwtSecret = os.Getenv("CREWTIME_JWT_SECRET")
			}
			if jwtSecret == "" {
				return fmt.Errorf("a JWT secret is required; pass --jwt-secret or set CREWTIME_JWT_SECRET")
			}
			cfg := server.Config{
				DB:       conn,
				Repo:     repo.Repo{DB: conn},
				Events:   events.Writer{DB: conn},
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: jwtSecret},
			}
			if seedEmail != "" {
				seed := domain.Actor{
					Name:    seedName,
					Email:   seedEmail,
					Role:    domain.RoleAdmin,
					Company: seedCompany,
				}
				if err := server.Seed(runCtx, cfg, seed, seedPassword); err != nil {
					return err
				}
			}
			handler, err := server.New(cfg)
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-runCtx.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Crewtime API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "JWT signing secret")
	cmd.Flags().StringVar(&seedEmail, "seed-email", "", "seed an admin account with this email")
	cmd.Flags().StringVar(&seedPassword, "seed-password", "", "seed account password")
	cmd.Flags().StringVar(&seedName, "seed-name", "Admin", "seed account name")
	cmd.Flags().StringVar(&seedCompany, "seed-company", "", "seed account company")
	return cmd
}

// --- helpers ---

func userName(users []domain.Actor, id int64) string {
	for _, u := range users {
		if u.ID == id {
			return u.Name
		}
	}
	return strconv.FormatInt(id, 10)
}

// printResult emits the payload as indented JSON. Commands with a tabular
// view render their own go-pretty tables; the rest print JSON whether or
// not --json is set.
func printResult(v any) error {
	return printJSON(v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
