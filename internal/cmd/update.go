package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// NewUpdateCommand creates the update command
func NewUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <task-id> <status>",
		Short: "Change a task's status",
		Long: `Change a task's status and save the task document.

Allowed transitions are pending -> in_progress, in_progress -> completed
and in_progress -> pending. --force skips the check to repair state by hand.`,
		Args: cobra.ExactArgs(2),
		RunE: runUpdate,
	}
	cmd.Flags().Bool("force", false, "Allow any status change")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	status, err := models.ParseStatus(args[1])
	if err != nil {
		return err
	}

	s, err := a.openStore()
	if err != nil {
		return describe(err)
	}
	before, _ := s.Get(args[0])

	var task models.Task
	if force, _ := cmd.Flags().GetBool("force"); force {
		task, err = s.ForceStatus(args[0], status)
	} else {
		task, err = s.UpdateStatus(args[0], status)
	}
	if err != nil {
		return describe(err)
	}

	fmt.Fprintf(a.out, "Task %s: %s -> %s\n", task.ID, before.Status, task.Status)
	return nil
}
