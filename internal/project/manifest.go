package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is a located and decoded qirgen.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the qirgen.toml layout.
type Config struct {
	Package PackageConfig `toml:"package"`
	Emit    EmitConfig    `toml:"emit"`
}

// PackageConfig is the [package] table.
type PackageConfig struct {
	Name string `toml:"name"`
}

// EmitConfig is the [emit] table. Every field is optional; explicit CLI
// flags override these defaults.
type EmitConfig struct {
	DebugSymbols bool   `toml:"debug-symbols"`
	Out          string `toml:"out"`
	Triple       string `toml:"triple"`
}

// LoadManifest walks up from startDir and decodes the nearest qirgen.toml.
// ok is false when no manifest exists; that is not an error.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindQirgenToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	return cfg, nil
}
