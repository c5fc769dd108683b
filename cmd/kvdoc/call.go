package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) toolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, closeFn, err := a.registry()
			if err != nil {
				return err
			}
			defer closeFn()
			if !asJSON {
				_, err := io.WriteString(cmd.OutOrStdout(), reg.HelpText())
				return err
			}
			type info struct {
				Name        string         `json:"name"`
				Description string         `json:"description"`
				InputSchema map[string]any `json:"inputSchema"`
			}
			list := make([]info, 0)
			for _, t := range reg.List() {
				list = append(list, info{t.Name, t.Help, t.Schema()})
			}
			return writeResult(cmd.OutOrStdout(), list, pretty(cmd.OutOrStdout()))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print tool names, help and argument schemas as JSON")
	return cmd
}

func (a *app) callCmd() *cobra.Command {
	var indent bool
	cmd := &cobra.Command{
		Use:   "call <tool> [json-args]",
		Short: "Call one tool and print its result as JSON",
		Long: `Call one tool with a JSON object of arguments and print the result.
Pass - as json-args to read the arguments from stdin. Output is indented
when stdout is a terminal or --indent is given.`,
		Example: `  kvdoc call get_row '{"db_path":"./data.db","key":"user:1"}'
  echo '{"db_path":"./data.db"}' | kvdoc call list_keys -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := "{}"
			if len(args) == 2 {
				raw = args[1]
			}
			if raw == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading arguments: %w", err)
				}
				raw = strings.TrimSpace(string(b))
			}

			reg, closeFn, err := a.registry()
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := reg.Call(cmd.Context(), args[0], json.RawMessage(raw))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return writeResult(out, res, indent || pretty(out))
		},
	}
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <src> <dst>",
		Short: "Copy every record of one store into another",
		Long: `Copy every record of the store at src into the store at dst, replacing
what dst held. The copy is verified against a digest of the source.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := a.repository()
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := repo.Backup(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			logger.Info("backup complete", "src", args[0], "dst", args[1], "records", res.Records)
			out := cmd.OutOrStdout()
			return writeResult(out, res, pretty(out))
		},
	}
}

// pretty reports whether w is an interactive terminal.
func pretty(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeResult(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
