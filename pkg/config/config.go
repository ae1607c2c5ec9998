// Package config loads defaults for the command-line flags from a TOML
// file, per the -c/--config flag. Flag precedence is built-in default <
// config file value < explicit command-line flag; this package only
// produces the middle tier.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// File mirrors the long flag names so a config document can set any
// subset of them. Set reports which keys were actually present in the
// document, so a caller can distinguish "the file set fixed=false" from
// "the file didn't mention fixed at all" when applying flag precedence.
type File struct {
	Expr     string `toml:"expr"`
	Input    bool   `toml:"input"`
	Debug    bool   `toml:"debug"`
	Fixed    bool   `toml:"fixed"`
	Bytecode bool   `toml:"bytecode"`
	Trace    string `toml:"trace"`

	Set map[string]bool
}

var knownKeys = []string{"expr", "input", "debug", "fixed", "bytecode", "trace"}

// Load reads and strictly decodes a TOML config file. Unknown keys are a
// load error rather than silently ignored, so a typo in a config file
// surfaces immediately instead of failing to take effect.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var f File
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing config %s: unknown key %q", path, undecoded[0].String())
	}

	f.Set = make(map[string]bool, len(knownKeys))
	for _, key := range knownKeys {
		f.Set[key] = meta.IsDefined(key)
	}

	return &f, nil
}
