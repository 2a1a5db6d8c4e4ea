// Command sdrig manages Stable Diffusion workspaces: shared model storage,
// WebUI installations, model downloads, and launches tuned to the machine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sdrig/internal/config"
	"sdrig/internal/logging"
	"sdrig/internal/ux"
	"sdrig/internal/workspace"
)

func main() {
	app := &cli.Command{
		Name:        "sdrig",
		Usage:       "Stable Diffusion workspace manager",
		Description: "Run 'sdrig docs' for documentation on the workspace layout, the cart format, downloads, and more.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Workspace root (default: walk up from the current directory)"},
			&cli.BoolFlag{Name: "verbose", Usage: "Debug-level session logging, teed to stderr"},
		},
		Commands: []*cli.Command{
			initCmd(),
			uiCmd(),
			planCmd(),
			downloadCmd(),
			verifyCmd(),
			installCmd(),
			updateCmd(),
			launchCmd(),
			stopCmd(),
			statusCmd(),
			hardwareCmd(),
			catalogCmd(),
			configCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ux.Paint(ux.Red, "error:"), err)
		os.Exit(1)
	}
}

// openWorkspace resolves the workspace from --root, or by walking up from the
// current directory.
func openWorkspace(cmd *cli.Command) (*workspace.Workspace, error) {
	if root := cmd.String("root"); root != "" {
		return workspace.Open(root)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return workspace.Find(cwd)
}

// session bundles what most commands need: the workspace, its config, and a
// session logger writing to .sdrig/logs/.
type session struct {
	ws  *workspace.Workspace
	cfg *config.Config
	log *zap.Logger
}

func openSession(cmd *cli.Command) (*session, error) {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWorkspace(ws)
	if err != nil {
		return nil, err
	}
	if cfg.Verbosity == "raw" {
		ux.DisableColor()
	}
	log, err := logging.New(ws, cmd.Bool("verbose") || cfg.Verbosity == "debug")
	if err != nil {
		return nil, err
	}
	return &session{ws: ws, cfg: cfg, log: log}, nil
}

func (s *session) Close() { logging.Close(s.log) }

// signalContext cancels on the signals a terminal or notebook host sends when
// the user bails out.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
