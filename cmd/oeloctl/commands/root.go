// Package commands implements the oeloctl command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oelohome/oelod/pkg/client"
)

type loggerContextKey struct{}

// NewRootCommand creates the root command.
func NewRootCommand(logger *slog.Logger, version, commit, buildDate string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oeloctl",
		Short: "Control Oelo Lights controllers via oelod",
	}

	cmd.PersistentFlags().String("socket", "", "Path to oelod socket")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	cmd.AddCommand(newVersionCommand(version, commit, buildDate))
	cmd.AddCommand(NewControllerCommand(logger))
	cmd.AddCommand(NewPatternCommand(logger))
	cmd.AddCommand(NewAPIKeyCommand(logger))

	if logger != nil {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		cmd.SetContext(context.WithValue(parent, loggerContextKey{}, logger))
	}

	return cmd
}

// clientFromContext pulls the socket client out of the command context.
func clientFromContext(cmd *cobra.Command) (client.Interface, error) {
	c, ok := cmd.Context().Value(ClientContextKey).(client.Interface)
	if !ok {
		return nil, fmt.Errorf("client not found in context")
	}
	return c, nil
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Client:\n")
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)

			if c, ok := cmd.Context().Value(ClientContextKey).(client.Interface); ok {
				resp, err := c.GetVersion()
				if err != nil {
					fmt.Printf("\nDaemon: not reachable\n")
					return
				}
				fmt.Printf("\nDaemon:\n")
				if v, ok := resp["version"].(string); ok {
					fmt.Printf("  Version:    %s\n", v)
				}
				if c, ok := resp["commit"].(string); ok {
					fmt.Printf("  Commit:     %s\n", c)
				}
				if d, ok := resp["build_date"].(string); ok {
					fmt.Printf("  Build Date: %s\n", d)
				}
			}
		},
	}
}
