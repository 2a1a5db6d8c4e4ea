package launch

import "strings"

// Gradio announces its endpoints with these lines. Matching is
// case-insensitive on the whole line.
var urlMarkers = []string{
	"running on local url:",
	"running on public url:",
}

// ScanLine extracts an announced URL from one line of WebUI output.
func ScanLine(line string) (string, bool) {
	lower := strings.ToLower(line)
	for _, marker := range urlMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len(marker):])
		if i := strings.IndexAny(rest, " \t"); i >= 0 {
			rest = rest[:i]
		}
		rest = strings.TrimRight(rest, ".,")
		if strings.HasPrefix(rest, "http://") || strings.HasPrefix(rest, "https://") {
			return rest, true
		}
	}
	return "", false
}
