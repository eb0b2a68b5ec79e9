package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inodb/varsift/internal/model"
	"github.com/inodb/varsift/internal/output"
	"github.com/inodb/varsift/internal/store"
)

func newSelectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selections",
		Short: "Manage saved selections of variants",
		Example: `  varsift --db project.duckdb selections
  varsift --db project.duckdb selections create high --impact HIGH
  varsift --db project.duckdb selections create picked --ids 1,4,7
  varsift --db project.duckdb selections rename high severe
  varsift --db project.duckdb selections delete severe`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listSelections(cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List selections with their variant counts",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.listSelections(cmd)
			},
		},
		newSelectionsCreateCmd(a),
		&cobra.Command{
			Use:   "rename <old> <new>",
			Short: "Rename a selection",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSelections(cmd, func(m *model.SelectionsModel) error {
					if err := m.Rename(cmd.Context(), args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a selection",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSelections(cmd, func(m *model.SelectionsModel) error {
					if err := m.Remove(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func newSelectionsCreateCmd(a *app) *cobra.Command {
	var (
		filter store.Filter
		ids    []string
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Save the variants matching a filter, or listed ids, as a selection",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(ids) > 0 {
				if !filter.IsZero() {
					return usageError{fmt.Errorf("--ids cannot be combined with filter flags")}
				}
				parsed := make([]int64, len(ids))
				for i, s := range ids {
					id, err := strconv.ParseInt(s, 10, 64)
					if err != nil {
						return usageError{fmt.Errorf("invalid variant id %q", s)}
					}
					parsed[i] = id
				}
				return a.withStore(ctx, func(s *store.Store) error {
					sel, err := s.CreateSelection(ctx, args[0], parsed)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", model.Label(sel))
					return nil
				})
			}

			return a.withSelections(cmd, func(m *model.SelectionsModel) error {
				sel, err := m.SaveCurrentQuery(ctx, args[0], filter)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", model.Label(sel))
				return nil
			})
		},
	}
	addFilterFlags(cmd.Flags(), &filter)
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "variant ids to save")
	return cmd
}

func (a *app) withSelections(cmd *cobra.Command, fn func(m *model.SelectionsModel) error) error {
	return a.withStore(cmd.Context(), func(s *store.Store) error {
		return fn(model.NewSelectionsModel(s))
	})
}

func (a *app) listSelections(cmd *cobra.Command) error {
	return a.withSelections(cmd, func(m *model.SelectionsModel) error {
		if err := m.Refresh(cmd.Context()); err != nil {
			return err
		}
		return output.WriteSelections(cmd.OutOrStdout(), m.Items())
	})
}
