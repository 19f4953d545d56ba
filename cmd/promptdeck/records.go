package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/promptdeck/pkg/client"
)

// recordKind describes the CLI surface of one record kind.
type recordKind struct {
	name      string
	plural    string
	valueFlag string
	create    func(ctx context.Context, c *client.Client, label, value string) (any, error)
	update    func(ctx context.Context, c *client.Client, id, label, value string) (any, error)
	remove    func(ctx context.Context, c *client.Client, id string) error
}

var (
	promptKind = recordKind{
		name:      "prompt",
		plural:    "prompts",
		valueFlag: "content",
		create: func(ctx context.Context, c *client.Client, label, value string) (any, error) {
			return c.CreatePrompt(ctx, label, value)
		},
		update: func(ctx context.Context, c *client.Client, id, label, value string) (any, error) {
			return c.UpdatePrompt(ctx, id, label, value)
		},
		remove: func(ctx context.Context, c *client.Client, id string) error {
			return c.DeletePrompt(ctx, id)
		},
	}

	variableKind = recordKind{
		name:      "variable",
		plural:    "variables",
		valueFlag: "value",
		create: func(ctx context.Context, c *client.Client, label, value string) (any, error) {
			return c.CreateVariable(ctx, label, value)
		},
		update: func(ctx context.Context, c *client.Client, id, label, value string) (any, error) {
			return c.UpdateVariable(ctx, id, label, value)
		},
		remove: func(ctx context.Context, c *client.Client, id string) error {
			return c.DeleteVariable(ctx, id)
		},
	}
)

func newRecordCmd(a *app, kind recordKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.name,
		Short: fmt.Sprintf("Create, edit and remove %s", kind.plural),
	}
	cmd.PersistentFlags().String("server", "", "API base URL (default: client.base_url)")
	cmd.PersistentFlags().String("token", "", "API bearer token (default: client.token)")

	cmd.AddCommand(
		newRecordAddCmd(a, kind),
		newRecordEditCmd(a, kind),
		newRecordRmCmd(a, kind),
	)
	if kind.name == promptKind.name {
		cmd.AddCommand(newPromptShowCmd(a))
	}
	return cmd
}

func newRecordAddCmd(a *app, kind recordKind) *cobra.Command {
	var label, value string
	cmd := &cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Create a %s", kind.name),
		Example: fmt.Sprintf(`  promptdeck %s add --label greeting --%s "Hello {{name}}"
  cat body.txt | promptdeck %s add --label greeting --%s -`, kind.name, kind.valueFlag, kind.name, kind.valueFlag),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readValue(cmd.InOrStdin(), value)
			if err != nil {
				return err
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := kind.create(cmd.Context(), c, label, body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "label")
	cmd.Flags().StringVar(&value, kind.valueFlag, "", kind.valueFlag+` ("-" reads stdin)`)
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired(kind.valueFlag)
	return cmd
}

func newRecordEditCmd(a *app, kind recordKind) *cobra.Command {
	var label, value string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: fmt.Sprintf("Replace label and %s of a %s", kind.valueFlag, kind.name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readValue(cmd.InOrStdin(), value)
			if err != nil {
				return err
			}
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			defer c.Close()

			out, err := kind.update(cmd.Context(), c, args[0], label, body)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "label")
	cmd.Flags().StringVar(&value, kind.valueFlag, "", kind.valueFlag+` ("-" reads stdin)`)
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired(kind.valueFlag)
	return cmd
}

func newRecordRmCmd(a *app, kind recordKind) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   fmt.Sprintf("Delete a %s", kind.name),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			defer c.Close()

			if err := kind.remove(cmd.Context(), c, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", kind.name, args[0])
			return nil
		},
	}
}

func newPromptShowCmd(a *app) *cobra.Command {
	var render bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the content of a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.apiClient()
			if err != nil {
				return err
			}
			defer c.Close()

			content, err := c.FetchPromptContent(cmd.Context(), args[0], render)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "expand {{variable}} tokens")
	return cmd
}

// readValue returns v, or stdin with the trailing newline removed when v is "-".
func readValue(stdin io.Reader, v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
