package commands

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewPatternCommand creates the pattern command
func NewPatternCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Capture, save and apply light patterns",
	}

	cmd.AddCommand(
		newPatternListCommand(),
		newPatternGetCommand(),
		newPatternCaptureCommand(),
		newPatternCommitCommand(),
		newPatternAbandonCommand(),
		newPatternApplyCommand(),
		newPatternRenameCommand(),
		newPatternDeleteCommand(),
		newPatternSessionCommand(),
	)

	return cmd
}

// newPatternListCommand creates the pattern list command
func newPatternListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list [controller-id]",
		Short: "List a controller's saved patterns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			patterns, err := c.GetPatterns(args[0])
			if err != nil {
				return fmt.Errorf("failed to get patterns: %w", err)
			}

			if len(patterns) == 0 {
				if parseable {
					return nil
				}
				pterm.Info.Println("No patterns saved for this controller")
				return nil
			}

			if parseable {
				for _, p := range patterns {
					fmt.Println(PatternParseable(p))
				}
				return nil
			}

			for _, p := range patterns {
				pterm.DefaultTable.WithData(PatternTableData(p)).Render()
				pterm.Println()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newPatternGetCommand creates the pattern get command
func newPatternGetCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show a saved pattern and its zone states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			p, err := c.GetPattern(args[0])
			if err != nil {
				return fmt.Errorf("failed to get pattern: %w", err)
			}

			if parseable {
				fmt.Println(PatternParseable(p))
				if state, ok := p["state"].(map[string]any); ok {
					for _, line := range ZoneParseable(state) {
						fmt.Println(line)
					}
				}
				return nil
			}

			pterm.DefaultTable.WithData(PatternTableData(p)).Render()
			if state, ok := p["state"].(map[string]any); ok {
				pterm.Println()
				pterm.DefaultTable.WithHasHeader().WithData(ZoneTableData(state)).Render()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newPatternCaptureCommand creates the pattern capture command
func newPatternCaptureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [controller-id]",
		Short: "Snapshot a controller's live state for saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			state, err := c.CapturePattern(args[0])
			if err != nil {
				return fmt.Errorf("failed to capture pattern: %w", err)
			}

			pterm.Success.Println("Captured. Commit with a name to save, or abandon to discard.")
			pterm.DefaultTable.WithHasHeader().WithData(ZoneTableData(state)).Render()
			return nil
		},
	}
	return cmd
}

// newPatternCommitCommand creates the pattern commit command
func newPatternCommitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit [controller-id] [name]",
		Short: "Name and save the captured snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			p, err := c.CommitPattern(args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to commit pattern: %w", err)
			}

			pterm.Success.Printf("Pattern %q saved as %v\n", args[1], p["id"])
			return nil
		},
	}
	return cmd
}

// newPatternAbandonCommand creates the pattern abandon command
func newPatternAbandonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abandon [controller-id]",
		Short: "Discard the open capture session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			if err := c.AbandonCapture(args[0]); err != nil {
				return fmt.Errorf("failed to abandon capture: %w", err)
			}

			pterm.Success.Println("Capture abandoned")
			return nil
		},
	}
	return cmd
}

// newPatternApplyCommand creates the pattern apply command
func newPatternApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [id]",
		Short: "Apply a saved pattern to its controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			if err := c.ApplyPattern(args[0]); err != nil {
				return fmt.Errorf("failed to apply pattern: %w", err)
			}

			pterm.Success.Println("Pattern applied")
			return nil
		},
	}
	return cmd
}

// newPatternRenameCommand creates the pattern rename command
func newPatternRenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename [id] [name]",
		Short: "Rename a saved pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			p, err := c.RenamePattern(args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to rename pattern: %w", err)
			}

			pterm.Success.Printf("Pattern renamed to %v\n", p["name"])
			return nil
		},
	}
	return cmd
}

// newPatternDeleteCommand creates the pattern delete command
func newPatternDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			if err := c.DeletePattern(args[0]); err != nil {
				return fmt.Errorf("failed to delete pattern: %w", err)
			}

			pterm.Success.Println("Pattern deleted")
			return nil
		},
	}
	return cmd
}

// newPatternSessionCommand creates the pattern session command
func newPatternSessionCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "session [controller-id]",
		Short: "Show the controller's capture/apply session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			session, err := c.GetSession(args[0])
			if err != nil {
				return fmt.Errorf("failed to get session: %w", err)
			}

			if parseable {
				fmt.Printf("state=%q started_at=%q expires_at=%q\n",
					session["state"],
					stringOr(session["started_at"], ""),
					stringOr(session["expires_at"], ""))
				return nil
			}

			table := pterm.TableData{
				[]string{"State", fmt.Sprintf("%v", session["state"])},
				[]string{"Started", formatTimestamp(session["started_at"])},
				[]string{"Expires", formatTimestamp(session["expires_at"])},
			}
			pterm.DefaultTable.WithData(table).Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}
