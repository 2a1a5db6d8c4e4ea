package ux

import (
	"fmt"

	"sdrig/internal/state"
	"sdrig/internal/status"
)

// RenderStatus prints the full status display for a workspace.
func RenderStatus(snap *status.Snapshot) {
	fmt.Printf("%s %s\n", Paint(Bold, "Workspace:"), snap.Root)
	fmt.Printf("%s    %s\n", Paint(Bold, "Flavor:"), snap.Flavor)

	fmt.Printf("%s    ", Paint(Bold, "Launch:"))
	switch l := snap.Launch; {
	case l == nil:
		fmt.Println(Paint(Dim, "never launched"))
	case l.Stale():
		fmt.Printf("%s %s, pid %d is gone (run 'sdrig stop' to clear)\n",
			Paint(Yellow+Bold, "stale"), l.WebUI, l.PID)
	case l.Status == state.StatusRunning:
		fmt.Printf("%s %s (pid %d)\n", Paint(Green+Bold, "running"), l.WebUI, l.PID)
		for _, u := range l.URLs {
			fmt.Printf("           %s\n", u)
		}
	case l.ExitCode != nil:
		fmt.Printf("%s %s (exit %d)\n", l.Status, l.WebUI, *l.ExitCode)
	default:
		fmt.Printf("%s %s\n", l.Status, l.WebUI)
	}

	fmt.Printf("\n%s\n", Paint(Bold, "WebUIs:"))
	for _, w := range snap.WebUIs {
		marker := "  "
		if w.Selected {
			marker = Paint(Yellow, "→") + " "
		}
		install := Paint(Dim, "not installed")
		if w.Installed {
			install = Paint(Green, "installed")
		}
		fmt.Printf("  %s%-10s %s\n", marker, w.Name, install)
	}

	fmt.Printf("\n%s\n", Paint(Bold, "Models:"))
	for _, m := range snap.Models {
		if m.Files == 0 {
			fmt.Printf("  %-14s %s\n", m.Category, Paint(Dim, "(empty)"))
			continue
		}
		fmt.Printf("  %-14s %3d  %s\n", m.Category, m.Files, Bytes(m.Bytes))
	}

	fmt.Printf("\n%s  %d tracked downloads, %s\n",
		Paint(Bold, "Manifest:"), snap.Manifest.Entries, Bytes(snap.Manifest.Bytes))
}
