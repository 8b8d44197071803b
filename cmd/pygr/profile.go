package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pygr/internal/app"
)

func newSyncCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile declarative state with the current profile generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Sync(); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]bool{"synced": true}, "synced declarative state from current generation")
		},
	}
}

func newApplyCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Install every declarative entry and publish a generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			gen, err := svc.Apply(cmd.Context())
			if err != nil {
				return err
			}
			return print(*jsonOutput, gen, fmt.Sprintf("published generation %d", gen.Number))
		},
	}
}

func newStatusCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the current root's state",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			st, err := svc.Status()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, st, "")
			}
			if st.HasCurrent {
				fmt.Printf("current generation: %d\n", st.CurrentGeneration)
			} else {
				fmt.Println("current generation: none")
			}
			fmt.Printf("previous generation: %t\n", st.HasPrevious)
			fmt.Printf("declared packages: %d\n", st.DeclaredPackages)
			fmt.Printf("store artifacts: %d\n", st.StoreArtifactCount)
			return nil
		},
	}
}

func newBackupCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [LABEL]",
		Short: "Snapshot the current generation's manifest and declarative state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ""
			if len(args) == 1 {
				label = args[0]
			}
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			dir, err := svc.Backup(label)
			if err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"dir": dir}, "backed up to "+dir)
		},
	}
}

func newGenerationsCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "generations",
		Short: "List published profile generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			nums, err := svc.Generations()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, nums, "")
			}
			if len(nums) == 0 {
				fmt.Println("no generations published")
				return nil
			}
			for _, n := range nums {
				fmt.Printf("gen-%d\n", n)
			}
			return nil
		},
	}
}

func newRollbackCmd(newSvc func(context.Context) (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Swap current and previous profile generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc(cmd.Context())
			if err != nil {
				return err
			}
			gen, err := svc.Rollback()
			if err != nil {
				return err
			}
			return print(*jsonOutput, gen, fmt.Sprintf("rolled back to generation %d", gen.Number))
		},
	}
}
