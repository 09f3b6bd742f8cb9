package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/match"
	"github.com/mwsobol/SORCER-sub002/storage"
	"github.com/mwsobol/SORCER-sub002/tools"
)

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Print a context document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get FILE PATH [PATH=VALUE ...]",
		Short: "Print the value at a path, substituting any given entries first",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(args[2:])
			if err != nil {
				return err
			}
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				v, err := c.GetValue(args[1], entries...)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func (a *app) markedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "marked FILE ASSOCIATION",
		Short: "Print the paths and values carrying an association like dir|in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				ps, err := c.MarkedPaths(args[1])
				if err != nil {
					return err
				}
				acc := make(map[string]interface{}, len(ps))
				for _, p := range ps {
					if acc[p], err = c.GetValue(p); err != nil {
						return err
					}
				}
				return printJSON(cmd.OutOrStdout(), acc)
			})
		},
	}
}

func (a *app) htmlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "html FILE",
		Short: "Render a context document as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				return tools.RenderContextHTML(c, cmd.OutOrStdout())
			})
		},
	}
}

func (a *app) dotCmd() *cobra.Command {
	var png string
	cmd := &cobra.Command{
		Use:   "dot FILE",
		Short: "Write the link graph of a context in Graphviz dot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				if png == "" {
					return tools.Dot(c, cmd.OutOrStdout())
				}
				filename, err := tools.PNG(c, png)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), filename)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&png, "png", "", "render to BASENAME.png with dot instead")
	return cmd
}

func (a *app) mermaidCmd() *cobra.Command {
	opts := &tools.MermaidOpts{
		ModelingFill: "#bcf2db",
		DanglingFill: "#f98b8b",
	}
	cmd := &cobra.Command{
		Use:   "mermaid FILE",
		Short: "Write the link graph of a context as a Mermaid flowchart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				return tools.Mermaid(c, cmd.OutOrStdout(), opts)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.ShowOffsets, "offsets", true, "label edges with link offsets")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Report links, evaluations, and problems in a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				report, err := tools.Analyze(c)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if n := report.Problems(); strict && 0 < n {
					return fmt.Errorf("%d problems in %s", n, args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail if the analysis finds problems")
	return cmd
}

func (a *app) matchCmd() *cobra.Command {
	var bindingsJS string
	cmd := &cobra.Command{
		Use:   "match FILE TEMPLATE",
		Short: `Match a template like '{"arg/x1":"?x"}' against a context and print the bindings`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t match.Template
			if err := json.Unmarshal([]byte(args[1]), &t); err != nil {
				return fmt.Errorf("bad template: %w", err)
			}
			bs := match.NewBindings()
			if err := json.Unmarshal([]byte(bindingsJS), &bs); err != nil {
				return fmt.Errorf("bad bindings: %w", err)
			}
			return a.loadFile(cmd.Context(), args[0], func(_ storage.ContextManagement, c *core.ServiceContext) error {
				bss, err := match.Context(c, t, bs)
				if err != nil {
					return err
				}
				if bss == nil {
					bss = []match.Bindings{}
				}
				return printJSON(cmd.OutOrStdout(), bss)
			})
		},
	}
	cmd.Flags().StringVarP(&bindingsJS, "bindings", "b", "{}", "initial bindings in JSON")
	return cmd
}
