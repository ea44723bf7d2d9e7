// Package commands is the impfmon command surface
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"impfmon/internal/modkit"
	modreg "impfmon/internal/modkit/module"
	"impfmon/internal/platform/config"
	perr "impfmon/internal/platform/errors"
	"impfmon/internal/platform/logger"
	pstrings "impfmon/internal/platform/strings"
	ingestmod "impfmon/internal/services/ingest/module"
)

// errNoUpdate ends a run whose source had nothing new; it maps to exit status 2
var errNoUpdate = errors.New("source unchanged")

// app is the state shared by all subcommands of one invocation
type app struct {
	deps    modkit.Deps
	runID   string
	envFile string
	dataset string
}

// NewRoot builds the command tree
func NewRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "impfmon",
		Short:         "impfmon tracks published vaccination and incidence tables and keeps a local history ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.bootstrap(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional dotenv file loaded before configuration is read")
	root.PersistentFlags().StringVarP(&a.dataset, "dataset", "d", "", "dataset name (default $CORE_INGEST_DATASET or rki-quoten)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "usage")
	})

	root.AddCommand(
		newIngestCmd(a),
		newRenderCmd(a),
		newRegionsCmd(a),
		newDatasetsCmd(a),
		newArchiveCmd(a),
		newExportCmd(a),
		newUnlockCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit status
func Execute(ctx context.Context, args []string) int {
	root := NewRoot()
	root.SetArgs(args)
	return exitStatus(root.ExecuteContext(ctx), root.ErrOrStderr())
}

func exitStatus(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return perr.ExitOK
	case errors.Is(err, errNoUpdate):
		return perr.ExitNoUpdate
	}
	code := perr.ExitStatus(err)
	if perr.CodeOf(err) == perr.ErrorCodeUnknown && isUsage(err) {
		code = perr.ExitUsage
	}
	logger.Named("cli").Error().Err(err).Str("code", perr.CodeOf(err).String()).Int("exit", code).Msg("impfmon failed")
	fmt.Fprintln(stderr, "error:", err)
	return code
}

// bootstrap loads .env, initialises logging and the shared deps
func (a *app) bootstrap(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read %s", a.envFile)
		}
	}
	logger.Init(logger.FromEnv())
	cfg := config.New()
	a.dataset = pstrings.FirstNonEmpty(a.dataset, cfg.Prefix("CORE_INGEST_").MayString("DATASET", ""), "rki-quoten")
	a.runID = uuid.NewString()
	a.deps = modkit.Deps{Log: logger.Get(), Cfg: cfg}
	cmd.SetContext(logger.WithRun(cmd.Context(), a.runID, a.dataset))
	return nil
}

// ingest wires the ingest module for the selected dataset
func (a *app) ingest() (*ingestmod.Module, ingestmod.Ports, error) {
	m, err := ingestmod.Register(a.deps, a.dataset)
	if err != nil {
		return nil, ingestmod.Ports{}, err
	}
	return m, modreg.MustPortsOf[ingestmod.Ports](m), nil
}
