package lakeconfig

import (
	"strings"

	"gopkg.in/ini.v1"

	perr "lakefill/internal/platform/errors"
)

// FileProvider loads Config from a sectioned INI file
type FileProvider struct {
	Path string
}

// NewFileProvider points a provider at an INI file
// The file is read on every Config call, never cached here
func NewFileProvider(path string) *FileProvider { return &FileProvider{Path: path} }

// Config reads and validates the file
// A missing or unreadable file is a configuration failure
func (p *FileProvider) Config() (Config, error) {
	if strings.TrimSpace(p.Path) == "" {
		return Config{}, perr.Configf("lakeconfig: file path is empty")
	}
	var c Config
	if err := ini.MapTo(&c, p.Path); err != nil {
		return Config{}, perr.Wrapf(err, perr.ErrorCodeConfig, "lakeconfig: load %s", p.Path)
	}
	if err := validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}
