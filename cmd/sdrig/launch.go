package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	cli "github.com/urfave/cli/v3"

	"sdrig/internal/config"
	"sdrig/internal/hardware"
	"sdrig/internal/launch"
	"sdrig/internal/state"
	"sdrig/internal/status"
	"sdrig/internal/ux"
	"sdrig/internal/workspace"
)

func launchCmd() *cli.Command {
	return &cli.Command{
		Name:      "launch",
		Usage:     "Start a WebUI with hardware-tuned arguments",
		ArgsUsage: "[webui]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "detach", Usage: "Return once the UI announces its URL"},
			&cli.BoolFlag{Name: "force", Usage: "Launch even when state.json records a live process"},
			&cli.BoolFlag{Name: "share", Usage: "Force a public share URL"},
			&cli.BoolFlag{Name: "no-share", Usage: "Never expose the UI beyond localhost"},
			&cli.IntFlag{Name: "port", Usage: "Override the UI's listen port"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the resolved command without running it"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if cmd.Bool("share") && cmd.Bool("no-share") {
				return fmt.Errorf("--share and --no-share are mutually exclusive")
			}
			if cmd.Bool("share") {
				s.cfg.WebUI.Share = "always"
			}
			if cmd.Bool("no-share") {
				s.cfg.WebUI.Share = "never"
			}
			if cmd.IsSet("port") {
				s.cfg.WebUI.Port = int(cmd.Int("port"))
			}
			if err := s.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signalContext(ctx)
			defer stop()
			inv, err := launch.Build(ctx, s.ws, s.cfg, cmd.Args().First())
			if err != nil {
				return err
			}
			if cmd.Bool("dry-run") {
				renderInvocation(s.ws, inv)
				return nil
			}

			if cmd.Bool("detach") {
				ux.Header(fmt.Sprintf("Launching %s (detached)", inv.WebUI))
				st, err := launch.Run(ctx, s.ws, s.log, inv, launch.RunOptions{
					Detach: true,
					Force:  cmd.Bool("force"),
					OnURL:  func(url string) { ux.Successf("URL: %s", url) },
				})
				if err != nil {
					return err
				}
				ux.Successf("%s running (pid %d), log: %s", inv.WebUI, st.PID, st.LogPath)
				if len(st.URLs) == 0 {
					ux.Warnf("no URL announced yet; tail %s to watch startup", st.LogPath)
				}
				ux.Infof("stop it with 'sdrig stop'")
				return nil
			}

			ux.Header(fmt.Sprintf("Launching %s", inv.WebUI))
			ux.Infof("profile %s on %s, log: %s", inv.Profile.Tier, inv.Platform, s.ws.Rel(inv.LogPath))
			st, err := launch.Run(ctx, s.ws, s.log, inv, launch.RunOptions{Force: cmd.Bool("force")})
			if err != nil {
				return err
			}
			switch st.Status {
			case state.StatusCompleted:
				ux.Successf("%s exited cleanly", inv.WebUI)
				return nil
			case state.StatusInterrupted:
				ux.Warnf("%s interrupted", inv.WebUI)
				return nil
			default:
				code := -1
				if st.ExitCode != nil {
					code = *st.ExitCode
				}
				return fmt.Errorf("%s exited with code %d (log: %s)", inv.WebUI, code, st.LogPath)
			}
		},
	}
}

func stopCmd() *cli.Command {
	return &cli.Command{
		Name:  "stop",
		Usage: "Stop the running WebUI",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, stop := signalContext(ctx)
			defer stop()

			st, err := launch.Stop(ctx, s.ws, s.log)
			switch {
			case errors.Is(err, launch.ErrNotRunning):
				ux.Infof("nothing to stop")
				return nil
			case errors.Is(err, launch.ErrStale):
				ux.Warnf("cleared stale state: %s (pid %d) was already gone", st.WebUI, st.PID)
				return nil
			case err != nil:
				return err
			}
			ux.Successf("%s stopped", st.WebUI)
			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show installed WebUIs, the current launch, and model storage",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.LoadWorkspace(ws)
			if err != nil {
				return err
			}
			if cfg.Verbosity == "raw" {
				ux.DisableColor()
			}
			snap, err := status.Collect(ws, cfg)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(snap)
			}
			ux.RenderStatus(snap)
			return nil
		},
	}
}

func hardwareCmd() *cli.Command {
	return &cli.Command{
		Name:  "hardware",
		Usage: "Probe the GPU, RAM, and platform, and show the launch profile",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := hardware.Detect(ctx)
			profile := hardware.ProfileFor(info)
			if cmd.Bool("json") {
				return printJSON(struct {
					hardware.Info
					Profile hardware.Profile `json:"profile"`
				}{info, profile})
			}
			ux.Header("Hardware")
			pairs := append(info.Summary(),
				[2]string{"Tier", string(profile.Tier)},
				[2]string{"Batch size", strconv.Itoa(profile.BatchSize)},
			)
			ux.KV(pairs)
			for _, w := range info.Warnings {
				ux.Warnf("%s", w)
			}
			return nil
		},
	}
}

func renderInvocation(ws *workspace.Workspace, inv *launch.Invocation) {
	ux.Header("Launch plan")
	ux.KV([][2]string{
		{"WebUI", inv.WebUI},
		{"Directory", ws.Rel(inv.Dir)},
		{"Python", inv.Python},
		{"Command", strings.Join(append([]string{inv.Script}, inv.Args...), " ")},
		{"Port", strconv.Itoa(inv.Port)},
		{"Profile", string(inv.Profile.Tier)},
		{"Platform", string(inv.Platform)},
		{"Log", ws.Rel(inv.LogPath)},
	})
}
