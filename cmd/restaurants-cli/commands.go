package main

import (
	"errors"
	"fmt"

	"restaurants/internal/shared"

	"github.com/spf13/cobra"
)

func newListCmd(newClient clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all restaurants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			rs, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, rs)
		},
	}
}

func newGetCmd(newClient clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			r, err := c.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, r)
		},
	}
}

func newCreateCmd(newClient clientFunc) *cobra.Command {
	var r shared.Restaurant
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a restaurant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			created, err := c.Create(cmd.Context(), r)
			if err != nil {
				return err
			}
			return printResult(cmd, created)
		},
	}
	cmd.Flags().StringVar(&r.Name, "name", "", "restaurant name")
	cmd.Flags().StringVar(&r.Cuisine, "cuisine", "", "cuisine")
	cmd.Flags().BoolVar(&r.HasTakeout, "takeout", false, "offers takeout")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("cuisine")
	return cmd
}

func newUpdateCmd(newClient clientFunc) *cobra.Command {
	var (
		name, cuisine string
		takeout       bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch shared.RestaurantPatch
			f := cmd.Flags()
			if f.Changed("name") {
				patch.Name = &name
			}
			if f.Changed("cuisine") {
				patch.Cuisine = &cuisine
			}
			if f.Changed("takeout") {
				patch.HasTakeout = &takeout
			}
			if patch.Empty() {
				return errors.New("nothing to update: set --name, --cuisine or --takeout")
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Update(cmd.Context(), args[0], patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&cuisine, "cuisine", "", "new cuisine")
	cmd.Flags().BoolVar(&takeout, "takeout", false, "offers takeout")
	return cmd
}

func newDeleteCmd(newClient clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
