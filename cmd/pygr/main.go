package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pygr/internal/app"
)

// ExitCoder lets an error pick its own process exit code, matching
// the convention internal/errs.Error implements.
type ExitCoder interface {
	ExitCode() int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var root string
	var sandboxOn bool
	var noSandbox bool
	var cacheURL string
	var jsonOutput bool

	newSvc := func(ctx context.Context) (*app.Service, error) {
		opts := app.Options{RootOverride: root, CacheURLOverride: cacheURL}
		switch {
		case sandboxOn:
			v := true
			opts.SandboxOverride = &v
		case noSandbox:
			v := false
			opts.SandboxOverride = &v
		}
		return app.New(ctx, opts)
	}

	cmd := &cobra.Command{
		Use:           "pygr",
		Short:         "Source-building package manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&root, "root", "c", "", "pygr root directory (default: $PYGR_ROOT or per-user data dir)")
	cmd.PersistentFlags().BoolVar(&sandboxOn, "sandbox", false, "force sandboxed builds on")
	cmd.PersistentFlags().BoolVar(&noSandbox, "no-sandbox", false, "force sandboxed builds off")
	cmd.PersistentFlags().StringVar(&cacheURL, "cache", "", "binary cache base URL (default: $PYGR_CACHE_URL)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newSearchCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newInstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newUninstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newListCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newPathCmd(newSvc))
	cmd.AddCommand(newSyncCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newApplyCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newStatusCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newBackupCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newGenerationsCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newRollbackCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newExportCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newImportCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newUpgradeCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newRepoAddCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newRepoListCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newRepoRefreshCmd(newSvc, &jsonOutput))

	return cmd
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}
