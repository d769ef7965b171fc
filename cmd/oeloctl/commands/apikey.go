package commands

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// obfuscateAPIKey shows only the first and last four characters of a key
func obfuscateAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// NewAPIKeyCommand creates the apikey command
func NewAPIKeyCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for the HTTP API",
	}

	cmd.AddCommand(
		newAPIKeyListCommand(),
		newAPIKeyAddCommand(),
		newAPIKeyDeleteCommand(),
		newAPIKeySetEnabledCommand(),
	)

	return cmd
}

// newAPIKeyListCommand creates the apikey list command
func newAPIKeyListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			keys, err := c.ListAPIKeys()
			if err != nil {
				return fmt.Errorf("failed to list API keys: %w", err)
			}

			if len(keys) == 0 {
				if parseable {
					return nil
				}
				pterm.Info.Println("No API keys configured")
				return nil
			}

			if parseable {
				for _, k := range keys {
					fmt.Printf("name=%q disabled=%v created_at=%q expires_at=%q last_used_at=%q\n",
						k["name"],
						k["disabled"],
						stringOr(k["created_at"], ""),
						stringOr(k["expires_at"], ""),
						stringOr(k["last_used_at"], ""))
				}
				return nil
			}

			table := pterm.TableData{
				[]string{"Name", "Disabled", "Created", "Expires", "Last Used"},
			}
			for _, k := range keys {
				table = append(table, []string{
					fmt.Sprintf("%v", k["name"]),
					fmt.Sprintf("%v", k["disabled"]),
					formatTimestamp(k["created_at"]),
					formatTimestamp(k["expires_at"]),
					formatTimestamp(k["last_used_at"]),
				})
			}
			pterm.DefaultTable.WithHasHeader().WithData(table).Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

// newAPIKeyAddCommand creates the apikey add command
func newAPIKeyAddCommand() *cobra.Command {
	var expiresIn string
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a new API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			k, err := c.AddAPIKey(args[0], expiresIn)
			if err != nil {
				return fmt.Errorf("failed to create API key: %w", err)
			}

			key, _ := k["key"].(string)
			pterm.Success.Printf("API key %q created\n", args[0])
			pterm.Warning.Println("This is the only time the full key is shown. Store it now:")
			fmt.Println(key)
			return nil
		},
	}
	cmd.Flags().StringVar(&expiresIn, "expires-in", "", "Expiry duration, e.g. 720h (empty means never)")
	return cmd
}

// newAPIKeyDeleteCommand creates the apikey delete command
func newAPIKeyDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteAPIKey(args[0]); err != nil {
				return fmt.Errorf("failed to delete API key: %w", err)
			}

			pterm.Success.Printf("API key %s deleted\n", obfuscateAPIKey(args[0]))
			return nil
		},
	}
	return cmd
}

// newAPIKeySetEnabledCommand creates the apikey set-enabled command
func newAPIKeySetEnabledCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-enabled [key] [true|false]",
		Short: "Enable or disable an API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromContext(cmd)
			if err != nil {
				return err
			}
			enabled, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid enabled value %q: %w", args[1], err)
			}
			k, err := c.SetAPIKeyDisabledStatus(args[0], !enabled)
			if err != nil {
				return fmt.Errorf("failed to update API key: %w", err)
			}

			state := "enabled"
			if disabled, _ := k["disabled"].(bool); disabled {
				state = "disabled"
			}
			pterm.Success.Printf("API key %s is now %s\n", obfuscateAPIKey(args[0]), state)
			return nil
		},
	}
	return cmd
}
