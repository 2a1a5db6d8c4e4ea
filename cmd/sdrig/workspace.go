package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
	"golang.org/x/term"

	"sdrig/internal/config"
	"sdrig/internal/docs"
	"sdrig/internal/doctor"
	"sdrig/internal/logging"
	"sdrig/internal/tui"
	"sdrig/internal/ux"
	"sdrig/internal/webui"
	"sdrig/internal/workspace"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a workspace in the current directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing config"},
			&cli.BoolFlag{Name: "sdxl", Usage: "Start with the SDXL catalog flavor"},
			&cli.StringFlag{Name: "webui", Usage: "Initial WebUI selection", Value: webui.DefaultName},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := webui.Lookup(cmd.String("webui")); err != nil {
				return err
			}
			root := cmd.String("root")
			if root == "" {
				var err error
				if root, err = os.Getwd(); err != nil {
					return err
				}
			}
			ws, err := workspace.Init(root, workspace.InitOptions{
				Force: cmd.Bool("force"),
				WebUI: cmd.String("webui"),
				SDXL:  cmd.Bool("sdxl"),
			})
			if err != nil {
				return err
			}
			ux.Successf("workspace ready at %s", ws.Root)
			ux.Infof("run 'sdrig ui' to pick models, or edit %s", ws.Rel(ws.ConfigPath()))
			return nil
		},
	}
}

func uiCmd() *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Interactive setup wizard",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dashboard", Usage: "Open the live workspace dashboard instead"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx, stop := signalContext(ctx)
			defer stop()

			if cmd.Bool("dashboard") {
				return tui.RunDashboard(ctx, s.ws, s.cfg, s.log)
			}
			saved, err := tui.RunSetup(ctx, s.ws, s.cfg)
			if err != nil {
				return err
			}
			if !saved {
				ux.Warnf("setup aborted; nothing written")
				return nil
			}
			ux.Successf("config saved to %s", s.ws.Rel(s.ws.ConfigPath()))
			ux.Infof("run 'sdrig plan' to see what would be downloaded")
			return nil
		},
	}
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Read or change workspace configuration",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print one config value",
				ArgsUsage: "<key>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					key := cmd.Args().First()
					if key == "" {
						return fmt.Errorf("key argument is required (e.g. webui.selected)")
					}
					ws, err := openWorkspace(cmd)
					if err != nil {
						return err
					}
					val, err := config.GetValue(ws.ConfigPath(), key)
					if err != nil {
						return err
					}
					fmt.Println(val)
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Change one config value (lists take comma-separated input)",
				ArgsUsage: "<key> <value>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 2 {
						return fmt.Errorf("usage: sdrig config set <key> <value>")
					}
					key, val := cmd.Args().Get(0), cmd.Args().Get(1)
					ws, err := openWorkspace(cmd)
					if err != nil {
						return err
					}
					if err := config.SetValue(ws.ConfigPath(), key, val); err != nil {
						return err
					}
					ux.Successf("%s = %s", key, val)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the config file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ws, err := openWorkspace(cmd)
					if err != nil {
						return err
					}
					data, err := os.ReadFile(ws.ConfigPath())
					if err != nil {
						return err
					}
					fmt.Print(string(data))
					return nil
				},
			},
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check the workspace, tools, and hardware for problems",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "fix", Usage: "Apply safe fixes (recreate directories, clear stale state)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := openWorkspace(cmd)
			if err != nil {
				return err
			}
			// A broken config is one of the things to diagnose, so fall back
			// to defaults here and let the config check report the details.
			cfg, err := config.LoadWorkspace(ws)
			if err != nil {
				cfg = config.Default()
			}
			if cfg.Verbosity == "raw" {
				ux.DisableColor()
			}
			log, err := logging.New(ws, cmd.Bool("verbose") || cfg.Verbosity == "debug")
			if err != nil {
				return err
			}
			defer logging.Close(log)

			report := doctor.Run(ctx, ws, cfg, log, doctor.Options{Fix: cmd.Bool("fix")})
			renderReport(report)
			if report.Failed() {
				return fmt.Errorf("doctor found problems (see above)")
			}
			return nil
		},
	}
}

func renderReport(rep *doctor.Report) {
	ux.Header("Doctor")
	for _, res := range rep.Results {
		switch res.Status {
		case doctor.OK:
			ux.Successf("%-16s %s", res.Name, res.Detail)
		case doctor.Warn:
			ux.Warnf("%-16s %s", res.Name, res.Detail)
		case doctor.Fail:
			ux.Failf("%-16s %s", res.Name, res.Detail)
		}
		switch {
		case res.Fixed:
			ux.Infof("fixed")
		case res.FixHint != "" && res.Status != doctor.OK:
			ux.Infof("hint: %s", res.FixHint)
		}
	}
	ok, warn, fail := rep.Counts()
	ux.Infof("%d ok, %d warnings, %d failures", ok, warn, fail)
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-16s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'sdrig docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(docs.Render(t, term.IsTerminal(int(os.Stdout.Fd()))))
			return nil
		},
	}
}
