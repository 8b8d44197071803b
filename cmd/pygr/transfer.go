package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pygr/internal/app"
)

func newExportCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the current generation's manifest to FILE",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Export(file); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"file": file}, "exported to "+file)
		},
	}
}

func newImportCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Seed the declarative state file from a previously exported manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Import(args[0]); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]bool{"imported": true}, fmt.Sprintf("imported declarative state from %s; run 'pygr apply' to build it", args[0]))
		},
	}
}

func newRepoAddCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "repo-add NAME URL",
		Short: "Clone and attach a recipe repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.RepoAdd(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"name": args[0], "url": args[1]}, "added repo "+args[0])
		},
	}
}

func newRepoListCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "repo-list",
		Short: "List attached recipe repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			repos := svc.RepoList()
			if *jsonOutput {
				return print(true, repos, "")
			}
			if len(repos) == 0 {
				fmt.Println("no recipe repos attached")
				return nil
			}
			for _, r := range repos {
				fmt.Printf("- %s %s (last refresh: %s)\n", r.Name, r.URL, r.LastRefreshTime)
			}
			return nil
		},
	}
}

func newRepoRefreshCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "repo-refresh",
		Short: "Pull the latest commits for every attached recipe repo",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.RepoRefresh(cmd.Context()); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]bool{"refreshed": true}, "refreshed all recipe repos")
		},
	}
}
