package commands

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewControllerCommand creates the controller command
func NewControllerCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Manage Oelo controllers",
	}

	cmd.AddCommand(
		newControllerListCommand(),
		newControllerGetCommand(),
		newControllerAddCommand(),
		newControllerRemoveCommand(),
		newControllerStateCommand(),
	)

	return cmd
}

// newControllerListCommand creates the controller list command
func newControllerListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured controllers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			controllers, err := c.GetControllers()
			if err != nil {
				return fmt.Errorf("failed to get controllers: %w", err)
			}

			if len(controllers) == 0 {
				if parseable {
					return nil
				}
				pterm.Info.Println("No controllers configured")
				return nil
			}

			if parseable {
				for _, ctrl := range controllers {
					fmt.Println(ControllerParseable(ctrl))
				}
				return nil
			}

			for _, ctrl := range controllers {
				pterm.DefaultTable.WithData(ControllerTableData(ctrl)).Render()
				pterm.Println()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newControllerGetCommand creates the controller get command
func newControllerGetCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Get information about a controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			ctrl, err := c.GetController(args[0])
			if err != nil {
				return fmt.Errorf("failed to get controller: %w", err)
			}

			if parseable {
				fmt.Println(ControllerParseable(ctrl))
				return nil
			}
			pterm.DefaultTable.WithData(ControllerTableData(ctrl)).Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newControllerAddCommand creates the controller add command
func newControllerAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [name] [address]",
		Short: "Add a controller by name and host:port address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			ctrl, err := c.AddController(args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to add controller: %w", err)
			}

			pterm.Success.Printf("Controller %v added\n", ctrl["id"])
			pterm.DefaultTable.WithData(ControllerTableData(ctrl)).Render()
			return nil
		},
	}
	return cmd
}

// newControllerRemoveCommand creates the controller remove command
func newControllerRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a controller and all of its saved patterns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			resp, err := c.RemoveController(args[0])
			if err != nil {
				return fmt.Errorf("failed to remove controller: %w", err)
			}

			deleted := 0
			if n, ok := resp["patterns_deleted"].(float64); ok {
				deleted = int(n)
			}
			pterm.Success.Printf("Controller removed (%d pattern(s) deleted)\n", deleted)
			return nil
		},
	}
	return cmd
}

// newControllerStateCommand creates the controller state command
func newControllerStateCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "state [id]",
		Short: "Query a controller for its live zone states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			resp, err := c.GetControllerState(args[0])
			if err != nil {
				return fmt.Errorf("failed to get controller state: %w", err)
			}

			state, ok := resp["state"].(map[string]any)
			if !ok {
				return fmt.Errorf("malformed response: missing state")
			}

			if parseable {
				for _, line := range ZoneParseable(state) {
					fmt.Println(line)
				}
				return nil
			}
			pterm.DefaultTable.WithHasHeader().WithData(ZoneTableData(state)).Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}
