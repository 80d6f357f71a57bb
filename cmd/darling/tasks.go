package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"darling/internal/domain"
	"darling/internal/storage"
	"darling/internal/tasks"
)

func newTasksCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Edit the task list without the assistant",
	}

	var filter string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := domain.ParseFilter(filter)
			if !ok {
				return fmt.Errorf("unknown filter %q (want all, active or completed)", filter)
			}
			return withStore(e, func(store *tasks.Store) error {
				out := cmd.OutOrStdout()
				shown := 0
				// Numbers are positions in the full list so done and rm accept them.
				for i, task := range store.All() {
					if !f.Matches(task) {
						continue
					}
					fmt.Fprintln(out, renderTask(i+1, task))
					shown++
				}
				if shown == 0 {
					fmt.Fprintln(out, dimStyle.Render("No tasks. Add one with 'darling tasks add <text>'."))
					return nil
				}
				fmt.Fprintln(out, dimStyle.Render(tasks.Summary(store.CountIncomplete())))
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&filter, "filter", string(domain.FilterAll), "all, active or completed")

	addCmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(e, func(store *tasks.Store) error {
				task, err := store.Add(strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Added:") + " " + task.Text)
				return nil
			})
		},
	}

	doneCmd := &cobra.Command{
		Use:   "done <number|id>",
		Short: "Toggle a task between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(e, func(store *tasks.Store) error {
				task, err := resolveTask(store, args[0])
				if err != nil {
					return err
				}
				if err := store.Toggle(task.ID); err != nil {
					return err
				}
				state := "active"
				if !task.Completed {
					state = "completed"
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Marked "+state+":") + " " + task.Text)
				return nil
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:     "rm <number|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(e, func(store *tasks.Store) error {
				task, err := resolveTask(store, args[0])
				if err != nil {
					return err
				}
				if err := store.Remove(task.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Deleted:") + " " + task.Text)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(e, func(store *tasks.Store) error {
				removed, err := store.RemoveCompleted()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Cleared %d completed task(s)", removed)))
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, addCmd, doneCmd, rmCmd, clearCmd)
	return cmd
}

func withStore(e *env, fn func(store *tasks.Store) error) error {
	blobs, err := storage.Open(e.cfg.Storage.Driver, e.cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open task storage: %w", err)
	}
	defer blobs.Close()

	store, err := tasks.Load(blobs, tasks.WithLogger(e.log))
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	return fn(store)
}

// resolveTask accepts a 1-based position in the full list or a task id.
func resolveTask(store *tasks.Store, ref string) (domain.Task, error) {
	ref = strings.TrimSpace(ref)
	all := store.All()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(all) {
			return domain.Task{}, fmt.Errorf("no task number %d (have %d)", n, len(all))
		}
		return all[n-1], nil
	}
	for _, task := range all {
		if task.ID == ref {
			return task, nil
		}
	}
	return domain.Task{}, fmt.Errorf("no task with id %q", ref)
}
