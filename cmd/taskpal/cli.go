package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"taskpal/internal/api"
	apperrors "taskpal/internal/errors"
	"taskpal/internal/notification"
)

// isTTY checks if the current environment has a terminal on both ends.
func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// CLI holds the command-line surface over the container.
type CLI struct {
	container *Container
	root      *cobra.Command
	noTUI     bool
}

// NewCLI assembles the cobra command tree.
func NewCLI(container *Container) *CLI {
	cli := &CLI{container: container}

	root := &cobra.Command{
		Use:           "taskpal",
		Short:         "Task manager with an AI assistant",
		Long:          "taskpal is a terminal client for the task service: manage tasks, chat with the assistant, and keep up with reminders.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runDefault(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&cli.noTUI, "no-tui", container.Config.NoTUI, "use the plain REPL instead of the full-screen UI")

	root.AddCommand(
		cli.loginCmd(),
		cli.registerCmd(),
		cli.logoutCmd(),
		cli.whoamiCmd(),
		cli.taskCmd(),
		cli.recurringCmd(),
		cli.notificationsCmd(),
		cli.chatCmd(),
	)

	cli.root = root
	return cli
}

// Run executes the CLI with args.
func (cli *CLI) Run(args []string) error {
	cli.root.SetArgs(args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.root.ExecuteContext(ctx)
}

// runDefault is the bare `taskpal` invocation: bootstrap the session and
// open the dashboard.
func (cli *CLI) runDefault(ctx context.Context) error {
	cli.container.Session.VerifyToken(ctx)

	if cli.noTUI || !isTTY() {
		if err := cli.requireAuth(ctx); err != nil {
			return err
		}
		return RunChatREPL(cli.container)
	}
	return RunTUI(cli.container)
}

// requireAuth ensures a live session for non-TUI commands, re-validating a
// persisted credential first.
func (cli *CLI) requireAuth(ctx context.Context) error {
	if !cli.container.Session.Snapshot().Authenticated() {
		cli.container.Session.VerifyToken(ctx)
	}
	if !cli.container.Session.Snapshot().Authenticated() {
		return fmt.Errorf("not signed in; run %s first", bold("taskpal login"))
	}
	return nil
}

func (cli *CLI) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				email, err = promptText("Email", false)
				if err != nil {
					return err
				}
			}
			password, err := promptText("Password", true)
			if err != nil {
				return err
			}

			if err := cli.container.Session.Login(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("%s", cli.container.Session.Snapshot().Err)
			}
			snap := cli.container.Session.Snapshot()
			fmt.Println(successLine("signed in as %s", bold(snap.User.Email)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (cli *CLI) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptText("Email", false)
			if err != nil {
				return err
			}
			password, err := promptText("Password (min 8 characters)", true)
			if err != nil {
				return err
			}
			confirm, err := promptText("Confirm password", true)
			if err != nil {
				return err
			}
			if password != confirm {
				return apperrors.NewValidation("password", "confirmation does not match")
			}

			if err := cli.container.Session.Register(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("%s", cli.container.Session.Snapshot().Err)
			}
			fmt.Println(successLine("account created for %s", bold(email)))

			// Registration alone does not authenticate; sign in right away.
			if err := cli.container.Session.Login(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("account created but sign-in failed: %s", cli.container.Session.Snapshot().Err)
			}
			fmt.Println(successLine("signed in"))
			return nil
		},
	}
}

func (cli *CLI) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.container.Session.Logout()
			fmt.Println(successLine("signed out"))
			return nil
		},
	}
}

func (cli *CLI) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.container.Session.VerifyToken(cmd.Context())
			snap := cli.container.Session.Snapshot()
			if !snap.Authenticated() {
				fmt.Println(gray("not signed in"))
				return nil
			}
			fmt.Printf("%s (%s)\n", bold(snap.User.Email), gray(snap.User.ID))
			return nil
		},
	}
}

func (cli *CLI) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if err := cli.container.Tasks.Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("%s", cli.container.Tasks.Snapshot().Err)
			}
			snap := cli.container.Tasks.Snapshot()
			if len(snap.Tasks) == 0 {
				fmt.Println(gray("no tasks yet"))
				return nil
			}
			for _, t := range snap.Tasks {
				printTaskLine(t)
			}
			return nil
		},
	}

	var desc, due string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}
			input := api.TaskCreate{Title: strings.Join(args, " "), Description: desc}
			if due != "" {
				parsed, err := parseDueDate(due)
				if err != nil {
					return err
				}
				input.DueDate = &parsed
			}
			created, err := cli.container.Tasks.Create(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("%s", cli.container.Tasks.Snapshot().Err)
			}
			fmt.Println(successLine("created %s (%s)", bold(created.Title), gray(created.ID)))
			return nil
		},
	}
	add.Flags().StringVar(&desc, "desc", "", "task description")
	add.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")

	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.toggleRunE(true),
	}
	undo := &cobra.Command{
		Use:   "undo <id>",
		Short: "Mark a task not completed",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.toggleRunE(false),
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if err := cli.container.Tasks.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s", cli.container.Tasks.Snapshot().Err)
			}
			fmt.Println(successLine("deleted %s", gray(args[0])))
			return nil
		},
	}

	cmd.AddCommand(list, add, done, undo, rm)
	return cmd
}

func (cli *CLI) toggleRunE(completed bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cli.requireAuth(cmd.Context()); err != nil {
			return err
		}
		updated, err := cli.container.Tasks.ToggleComplete(cmd.Context(), args[0], completed)
		if err != nil {
			return fmt.Errorf("%s", cli.container.Tasks.Snapshot().Err)
		}
		printTaskLine(updated)
		return nil
	}
}

// recurringRuleFile is the YAML shape accepted by `recurring add --file`.
type recurringRuleFile struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Priority    string     `yaml:"priority"`
	Tags        []string   `yaml:"tags"`
	DueDate     *time.Time `yaml:"due_date"`
	Recurrence  struct {
		Frequency       string     `yaml:"frequency"`
		Interval        int        `yaml:"interval"`
		DaysOfWeek      []int      `yaml:"days_of_week"`
		DayOfMonth      *int       `yaml:"day_of_month"`
		MonthOfYear     *int       `yaml:"month_of_year"`
		EndDate         *time.Time `yaml:"end_date"`
		OccurrenceCount *int       `yaml:"occurrence_count"`
	} `yaml:"recurrence"`
}

func (cli *CLI) recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring tasks",
	}

	var file, frequency string
	var interval int
	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a recurring task from flags or a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}

			var input api.RecurringTaskCreate
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read rule file: %w", err)
				}
				var spec recurringRuleFile
				if err := yaml.Unmarshal(data, &spec); err != nil {
					return fmt.Errorf("parse rule file: %w", err)
				}
				input = api.RecurringTaskCreate{
					Title:       spec.Title,
					Description: spec.Description,
					Priority:    spec.Priority,
					Tags:        spec.Tags,
					DueDate:     spec.DueDate,
					RecurrenceRule: api.RecurrenceRule{
						Frequency:       spec.Recurrence.Frequency,
						Interval:        spec.Recurrence.Interval,
						DaysOfWeek:      spec.Recurrence.DaysOfWeek,
						DayOfMonth:      spec.Recurrence.DayOfMonth,
						MonthOfYear:     spec.Recurrence.MonthOfYear,
						EndDate:         spec.Recurrence.EndDate,
						OccurrenceCount: spec.Recurrence.OccurrenceCount,
					},
				}
			} else {
				if len(args) == 0 {
					return apperrors.NewValidation("title", "pass a title or --file")
				}
				input = api.RecurringTaskCreate{
					Title: strings.Join(args, " "),
					RecurrenceRule: api.RecurrenceRule{
						Frequency: frequency,
						Interval:  interval,
					},
				}
			}

			created, err := cli.container.Tasks.CreateRecurring(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Println(successLine("recurring task %s repeats %s", bold(created.Title), cyan(describeRule(created.RecurrenceRule))))
			return nil
		},
	}
	add.Flags().StringVar(&file, "file", "", "YAML file describing the task and its recurrence rule")
	add.Flags().StringVar(&frequency, "frequency", "daily", "daily, weekly or monthly")
	add.Flags().IntVar(&interval, "interval", 1, "repeat every N periods")

	cmd.AddCommand(add)
	return cmd
}

func (cli *CLI) notificationsCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Show pending reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if !watch {
				if err := cli.container.Notifications.Refresh(cmd.Context()); err != nil {
					return fmt.Errorf("%s", cli.container.Notifications.Snapshot().Err)
				}
				printNotifications(cli.container.Notifications.Snapshot())
				return nil
			}

			// Watch mode: the poller owns the refresh cadence; teardown on
			// interrupt cancels it.
			cli.container.Notifications.Subscribe(notificationWatcher(cli.container.Notifications, printNotifications))
			poller := notification.NewPoller(cli.container.Notifications, notification.DefaultPollInterval, nil)
			poller.Start(cmd.Context())
			defer poller.Stop()

			<-cmd.Context().Done()
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep refreshing every 30 seconds until interrupted")

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if err := cli.container.Notifications.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(successLine("marked %s read", gray(args[0])))
			return nil
		},
	}
	readAll := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every pending notification as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if err := cli.container.Notifications.MarkAllRead(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(successLine("all notifications marked read"))
			return nil
		},
	}
	cmd.AddCommand(read, readAll)
	return cmd
}

func (cli *CLI) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the assistant",
		Long:  "With a message argument, sends a single turn and prints the reply. Without one, opens the chat REPL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if len(args) == 0 {
				return RunChatREPL(cli.container)
			}

			message := strings.Join(args, " ")
			if err := cli.container.Chat.Send(cmd.Context(), message); err != nil {
				return err
			}
			snap := cli.container.Chat.Snapshot()
			last := snap.Messages[len(snap.Messages)-1]
			fmt.Println(renderREPLMarkdown(last.Content))
			printAnnotations(last)
			return nil
		},
	}
}

func promptText(label string, masked bool) (string, error) {
	prompt := promptui.Prompt{Label: label}
	if masked {
		prompt.Mask = '*'
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt aborted: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func parseDueDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.NewValidation("due", "use YYYY-MM-DD or RFC 3339")
}

func printTaskLine(t api.Task) {
	marker := "[ ]"
	title := t.Title
	if t.IsCompleted {
		marker = green("[x]")
		title = gray(title)
	}
	line := fmt.Sprintf("%s %s %s", marker, title, gray(t.ID))
	if t.DueDate != nil {
		line += yellow(fmt.Sprintf("  due %s", t.DueDate.Format("Jan 2")))
	}
	fmt.Println(line)
}

// notificationWatcher renders the list on store changes. Refresh notifies
// once when loading begins and again with the result; only the result is
// rendered, so each poll cycle prints one list.
func notificationWatcher(store *notification.Store, render func(notification.Snapshot)) func() {
	return func() {
		snap := store.Snapshot()
		if snap.Loading {
			return
		}
		render(snap)
	}
}

func printNotifications(snap notification.Snapshot) {
	if snap.Err != "" {
		fmt.Println(errorLine("%s", snap.Err))
		return
	}
	if len(snap.Notifications) == 0 {
		fmt.Println(gray("no new notifications"))
		return
	}
	for _, n := range snap.Notifications {
		fmt.Printf("%s %s %s %s\n", pendingDot(), bold(n.Type), n.Content, gray(n.CreatedAt.Format("Jan 2 15:04")))
	}
}

func pendingDot() string {
	return yellow("●")
}

func describeRule(rule api.RecurrenceRule) string {
	if rule.Interval <= 1 {
		return rule.Frequency
	}
	unit := map[string]string{"daily": "days", "weekly": "weeks", "monthly": "months"}[rule.Frequency]
	if unit == "" {
		unit = "periods"
	}
	return fmt.Sprintf("every %d %s", rule.Interval, unit)
}
