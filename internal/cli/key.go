package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/hundred/internal/secrets"
)

func newKeyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the OpenAI API key in the OS keyring",
	}
	cmd.AddCommand(newKeySetCmd(app))
	cmd.AddCommand(newKeyClearCmd(app))
	cmd.AddCommand(newKeyShowCmd(app))
	return cmd
}

func newKeySetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no key given on stdin")
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if err := app.keyring.SetOpenAIKey(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", secrets.Mask(key))
			return nil
		},
	}
}

func newKeyClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.keyring.DeleteOpenAIKey(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
			return nil
		},
	}
}

func newKeyShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the masked API key and where it comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(app.cfg.OpenAIAPIKey) != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (OPENAI_API_KEY)\n", secrets.Mask(app.cfg.OpenAIAPIKey))
				return nil
			}
			key, err := app.keyring.OpenAIKey()
			if errors.Is(err, secrets.ErrNoKey) {
				fmt.Fprintln(cmd.OutOrStdout(), secrets.Mask(""))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (keyring)\n", secrets.Mask(key))
			return nil
		},
	}
}
