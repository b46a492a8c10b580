package config

// Config represents a kodrdriv.yaml configuration file.
// All values are optional and act as defaults for kodrdriv tree flags.
// CLI flags always override config values.
type Config struct {
	// Directories are the workspace roots to scan.
	Directories []string `yaml:"directories"`
	// Exclude are doublestar glob patterns removing packages from the scan.
	Exclude []string `yaml:"exclude"`
	// Shell overrides the interpreter used for --cmd steps.
	Shell string `yaml:"shell"`
	// Format is the default output format: json, table, or yaml.
	Format string `yaml:"format"`
	// NoColor disables colored table output.
	NoColor bool `yaml:"no_color"`
	// Cache toggles the workspace scan cache. Unset means enabled.
	Cache *bool `yaml:"cache"`
}

// CacheEnabled resolves the tri-state cache setting.
func (c *Config) CacheEnabled() bool {
	if c == nil || c.Cache == nil {
		return true
	}
	return *c.Cache
}
