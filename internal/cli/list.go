package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/todo/internal/view"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Status string
	Filter string
	Search string
	Sort   string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active tasks",
		Long: `List active tasks.

--filter takes a priority or a category; a task matches if either equals
the value. --search matches task text case-insensitively.

Examples:
  todo list --status pending --sort priority
  todo list --filter Work --search report
  todo list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "All|Pending|Completed (default All)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "priority or category to show")
	cmd.Flags().StringVar(&opts.Search, "search", "", "text to search for")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "dueAt|priority|category (default from config)")

	return cmd
}

func runList(cmd *cobra.Command, opts *ListOptions) error {
	status, err := view.ParseStatus(opts.Status)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --status", err)
	}

	app, err := openApp(cmd, opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	sortFlag := opts.Sort
	if sortFlag == "" {
		sortFlag = app.Config.DefaultSort
	}
	sortBy, err := view.ParseSortKey(sortFlag)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --sort", err)
	}

	snap, err := app.Engine.Snapshot(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read tasks", err)
	}

	q := view.Query{Status: status, Filter: opts.Filter, Search: opts.Search, SortBy: sortBy}
	tasks := view.Project(snap.Active, q)
	app.Logger.Debug("projected tasks", "total", len(snap.Active), "shown", len(tasks),
		"status", q.Status, "filter", q.Filter, "search", q.Search, "sort", q.SortBy)

	out := newFormatter(cmd, opts.RootOptions)
	if out.Format == "json" {
		return out.Success(records(tasks))
	}
	renderTasks(out.Writer, fmt.Sprintf("Tasks (%d of %d)", len(tasks), len(snap.Active)), tasks)
	return nil
}
