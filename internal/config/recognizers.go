package config

// RecognizerConfig defines one configured recognizer.
type RecognizerConfig struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Dialect string `toml:"dialect"` // standard, shots
	// RunCommand and BaseDir override the bundle when set.
	RunCommand   string            `toml:"run_command"`
	BaseDir      string            `toml:"base_dir"`
	Bundle       string            `toml:"bundle"` // YAML descriptor path
	Segmentation string            `toml:"segmentation"`
	Media        string            `toml:"media"`
	Channel      int               `toml:"channel"`
	FPS          float64           `toml:"fps"`
	OutDir       string            `toml:"out_dir"`
	Params       map[string]string `toml:"params"` // id -> value
	Disabled     bool              `toml:"disabled"`
}

// Recognizer returns the entry with the given id.
func (c *Config) Recognizer(id string) (*RecognizerConfig, bool) {
	for i := range c.Recognizers {
		if c.Recognizers[i].ID == id {
			return &c.Recognizers[i], true
		}
	}
	return nil, false
}

// Enabled returns the recognizers that are not disabled, in file order.
func (c *Config) Enabled() []RecognizerConfig {
	var out []RecognizerConfig
	for _, rc := range c.Recognizers {
		if !rc.Disabled {
			out = append(out, rc)
		}
	}
	return out
}
