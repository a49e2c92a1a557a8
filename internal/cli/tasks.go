package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/todo/internal/collection"
	"github.com/roach88/todo/internal/engine"
	"github.com/roach88/todo/internal/task"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Category string
	Priority string
	Due      string // YYYY-MM-DD
	Time     string // HH:MM, needs Due
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a task",
		Long: `Add a pending task.

Category defaults to Personal and priority to Medium. A due time needs a
due date; a date alone means midnight.

Examples:
  todo add Buy milk --category Shopping --priority high
  todo add "Quarterly report" -c Work --due 2024-05-01 --time 17:00`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts, joinArgs(args))
		},
	}

	cmd.Flags().StringVarP(&opts.Category, "category", "c", "", "category (one of the configured categories)")
	cmd.Flags().StringVarP(&opts.Priority, "priority", "p", "", "priority (High|Medium|Low)")
	cmd.Flags().StringVarP(&opts.Due, "due", "d", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&opts.Time, "time", "t", "", "due time (HH:MM)")

	return cmd
}

func runAdd(cmd *cobra.Command, opts *AddOptions, text string) error {
	priority, err := task.ParsePriority(opts.Priority)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --priority", err)
	}

	var due time.Time
	if opts.Due != "" || opts.Time != "" {
		due, err = task.JoinDue(opts.Due, opts.Time)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --due/--time", err)
		}
	}

	app, err := openApp(cmd, opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	category, err := task.MatchCategory(app.Config.Categories, opts.Category)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --category", err)
	}

	return app.Do(cmd, newFormatter(cmd, opts.RootOptions), engine.Command{
		Kind:     collection.KindAdd,
		Text:     text,
		Category: category,
		DueAt:    due,
		Priority: priority,
	})
}

// newIDCommand builds a command that applies kind to one task id.
func newIDCommand(rootOpts *RootOptions, kind collection.Kind, use, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runID(cmd, rootOpts, kind, args[0], "")
		},
	}
}

func runID(cmd *cobra.Command, opts *RootOptions, kind collection.Kind, id, text string) error {
	app, err := openApp(cmd, opts, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Do(cmd, newFormatter(cmd, opts), engine.Command{Kind: kind, TaskID: id, Text: text})
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	return newIDCommand(rootOpts, collection.KindToggle,
		"done <id>",
		"Toggle a task between pending and completed",
		"Toggle a task between pending and completed. Running it twice restores the task.")
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text...>",
		Short: "Replace a task's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runID(cmd, rootOpts, collection.KindEdit, args[0], joinArgs(args[1:]))
		},
	}
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return newIDCommand(rootOpts, collection.KindArchive,
		"archive <id>",
		"Move a task to the archive",
		"Move a task from the active list to the archive, keeping all its fields.")
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := newIDCommand(rootOpts, collection.KindDelete,
		"rm <id>",
		"Delete an active task",
		"Delete an active task permanently. Use 'todo archived rm' for archived tasks.")
	cmd.Aliases = []string{"delete"}
	return cmd
}

// NewArchivedCommand creates the archived command group.
func NewArchivedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archived",
		Short: "Show or delete archived tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchivedList(cmd, rootOpts)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchivedList(cmd, rootOpts)
		},
	})
	cmd.AddCommand(newIDCommand(rootOpts, collection.KindDeleteArchived,
		"rm <id>",
		"Delete an archived task",
		"Delete an archived task permanently."))

	return cmd
}

func runArchivedList(cmd *cobra.Command, opts *RootOptions) error {
	app, err := openApp(cmd, opts, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	snap, err := app.Engine.Snapshot(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tasks", err)
	}

	out := newFormatter(cmd, opts)
	if out.Format == "json" {
		return out.Success(records(snap.Archived))
	}
	renderTasks(out.Writer, fmt.Sprintf("Archived (%d)", len(snap.Archived)), snap.Archived)
	return nil
}

func records(ts []task.Task) []task.Record {
	out := make([]task.Record, len(ts))
	for i, t := range ts {
		out[i] = task.ToRecord(t)
	}
	return out
}
