package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pygr/internal/app"
)

func newInstallCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var fromGithub bool
	cmd := &cobra.Command{
		Use:   "install PKG...",
		Short: "Resolve, build, and publish a new profile generation containing PKG(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			gen, err := svc.Install(cmd.Context(), args, fromGithub)
			if err != nil {
				return err
			}
			return print(*jsonOutput, gen, fmt.Sprintf("published generation %d", gen.Number))
		},
	}
	cmd.Flags().BoolVar(&fromGithub, "from-github", false, "treat every PKG as an OWNER/REPO[@REF] reference, skipping the system-PM and recipe routes")
	return cmd
}

func newUninstallCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall PKG...",
		Short: "Drop declarative entries and republish the profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			gen, err := svc.Uninstall(cmd.Context(), args)
			if err != nil {
				return err
			}
			return print(*jsonOutput, gen, fmt.Sprintf("published generation %d", gen.Number))
		},
	}
	return cmd
}

func newUpgradeCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [PKG...]",
		Short: "Re-resolve recipe entries and refetch moving remote-repo refs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			gen, err := svc.Upgrade(cmd.Context(), args)
			if err != nil {
				return err
			}
			return print(*jsonOutput, gen, fmt.Sprintf("published generation %d", gen.Number))
		},
	}
	return cmd
}
