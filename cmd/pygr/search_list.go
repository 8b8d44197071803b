package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pygr/internal/app"
)

func newSearchCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search GitHub for candidate repositories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			results, err := svc.Search.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, results, "")
			}
			if len(results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for _, r := range results {
				fmt.Printf("- %s (%d stars): %s\n", r.FullName, r.Stars, r.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum results")
	return cmd
}

func newListCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List declarative package entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := svc.List()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, entries, "")
			}
			if len(entries) == 0 {
				fmt.Println("no packages declared")
				return nil
			}
			for _, e := range entries {
				fmt.Println(e.Line())
			}
			return nil
		},
	}
	return cmd
}

func newPathCmd(newSvc func(context.Context) (*app.Service, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print a shell assignment exposing the current profile's bin directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("PATH=%q:$PATH\n", svc.Path())
			return nil
		},
	}
}
