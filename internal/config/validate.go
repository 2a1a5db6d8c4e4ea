package config

import (
	"fmt"
	"time"
)

var validWebUIs = map[string]bool{
	"forge":   true,
	"a1111":   true,
	"comfyui": true,
	"fooocus": true,
}

var validShare = map[string]bool{
	"auto":   true,
	"always": true,
	"never":  true,
}

var validEngines = map[string]bool{
	"auto":   true,
	"aria2":  true,
	"native": true,
}

var validVerbosity = map[string]bool{
	"pretty": true,
	"raw":    true,
	"debug":  true,
}

func (c *Config) applyDefaults() {
	if c.WebUI.Selected == "" {
		c.WebUI.Selected = "forge"
	}
	if c.WebUI.Share == "" {
		c.WebUI.Share = "auto"
	}
	if c.Download.Workers == 0 {
		c.Download.Workers = 3
	}
	if c.Download.Retries == 0 {
		c.Download.Retries = 3
	}
	if c.Download.Timeout == 0 {
		c.Download.Timeout = Duration(5 * time.Minute)
	}
	if c.Download.Engine == "" {
		c.Download.Engine = "auto"
	}
	if c.Verbosity == "" {
		c.Verbosity = "pretty"
	}
}

// Validate applies defaults and rejects values outside the known sets.
// It is idempotent.
func (c *Config) Validate() error {
	c.applyDefaults()

	if !validWebUIs[c.WebUI.Selected] {
		return fmt.Errorf("config: webui.selected: unknown WebUI %q (must be forge, a1111, comfyui, or fooocus)", c.WebUI.Selected)
	}
	if !validShare[c.WebUI.Share] {
		return fmt.Errorf("config: webui.share: %q must be auto, always, or never", c.WebUI.Share)
	}
	if c.WebUI.Port < 0 || c.WebUI.Port > 65535 {
		return fmt.Errorf("config: webui.port: %d is out of range", c.WebUI.Port)
	}

	if c.Download.Workers < 1 || c.Download.Workers > 8 {
		return fmt.Errorf("config: download.workers: %d must be between 1 and 8", c.Download.Workers)
	}
	if c.Download.Retries < 0 || c.Download.Retries > 10 {
		return fmt.Errorf("config: download.retries: %d must be between 0 and 10", c.Download.Retries)
	}
	if c.Download.Timeout < 0 {
		return fmt.Errorf("config: download.timeout: must be >= 0")
	}
	if !validEngines[c.Download.Engine] {
		return fmt.Errorf("config: download.engine: %q must be auto, aria2, or native", c.Download.Engine)
	}

	if !validVerbosity[c.Verbosity] {
		return fmt.Errorf("config: verbosity: %q must be pretty, raw, or debug", c.Verbosity)
	}

	return nil
}
