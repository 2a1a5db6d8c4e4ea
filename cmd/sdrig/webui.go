package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"sdrig/internal/ux"
	"sdrig/internal/webui"
)

func installCmd() *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Clone a WebUI into the workspace and link the shared models",
		ArgsUsage: "<webui>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Remove an existing checkout first"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return fmt.Errorf("which webui? (available: %s)", strings.Join(webui.Names(), ", "))
			}
			spec, err := webui.Lookup(name)
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, stop := signalContext(ctx)
			defer stop()

			ux.Header("Installing " + spec.Title)
			s.log.Info("installing webui", zap.String("webui", spec.Name), zap.String("repo", spec.RepoURL))
			err = webui.Install(ctx, s.ws, spec, webui.InstallOptions{
				Force:  cmd.Bool("force"),
				Output: os.Stderr,
			})
			switch {
			case errors.Is(err, webui.ErrAlreadyInstalled):
				// Re-running install refreshes the links without touching
				// the checkout.
				ux.Warnf("%s is already installed; refreshing model links (use --force to reinstall)", spec.Name)
			case err != nil:
				return err
			}

			links, err := webui.LinkSharedModels(s.ws, spec)
			renderLinks(links)
			if err != nil {
				return err
			}
			ux.Successf("%s ready in %s", spec.Title, s.ws.Rel(s.ws.WebUIDir(spec.Name)))
			ux.Infof("the first 'sdrig launch %s' sets up its python environment", spec.Name)
			return nil
		},
	}
}

func updateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Pull the latest WebUI code and refresh model links",
		ArgsUsage: "[webui]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			name := cmd.Args().First()
			if name == "" {
				name = s.cfg.WebUI.Selected
			}
			spec, err := webui.Lookup(name)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(ctx)
			defer stop()

			ux.Header("Updating " + spec.Title)
			s.log.Info("updating webui", zap.String("webui", spec.Name))
			if err := webui.Update(ctx, s.ws, spec, os.Stderr); err != nil {
				return err
			}
			links, err := webui.LinkSharedModels(s.ws, spec)
			renderLinks(links)
			if err != nil {
				return err
			}
			ux.Successf("%s is up to date", spec.Title)
			return nil
		},
	}
}

func renderLinks(links []webui.Link) {
	for _, l := range links {
		switch {
		case l.Created && l.Note != "":
			ux.Successf("linked %s -> %s (%s)", l.Path, l.Target, l.Note)
		case l.Created:
			ux.Successf("linked %s -> %s", l.Path, l.Target)
		case l.Note != "":
			ux.Infof("%s: %s", l.Path, l.Note)
		}
	}
}
