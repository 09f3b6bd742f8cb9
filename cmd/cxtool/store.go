package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/storage"
)

func (a *app) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save FILE [NAME]",
		Short: "Store a context document under NAME (default: the context's name)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.loadFile(cmd.Context(), args[0], func(cm storage.ContextManagement, c *core.ServiceContext) error {
				name := c.Name()
				if 1 < len(args) {
					name = args[1]
				}
				if name == "" {
					return fmt.Errorf("%s: context has no name", args[0])
				}
				return cm.SaveContext(cmd.Context(), name, c)
			})
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load NAME",
		Short: "Print a stored context as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(cm storage.ContextManagement) error {
				c, err := cm.GetContext(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}
}

func (a *app) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the names of stored contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(cm storage.ContextManagement) error {
				names, err := cm.ContextNames(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Delete stored contexts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(cm storage.ContextManagement) error {
				for _, name := range args {
					if err := cm.DeleteContext(cmd.Context(), name); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
				}
				return nil
			})
		},
	}
}
