package config

import (
	"fmt"

	"github.com/cognicore/residue/pkg/residue/catalog"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	SettingsPath string
	CatalogPath  string
	TechPath     string
	EnvPath      string
	RegPath      string
}

// Components holds all loaded configuration components
type Components struct {
	Settings Settings
	Catalog  *catalog.Catalog
}

// Load reads all configuration files and returns initialized components.
// Plain term files are added to whatever the YAML catalog provides.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Settings: DefaultSettings()}

	if l.SettingsPath != "" {
		s, err := LoadSettings(l.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		comp.Settings = *s
	}

	var terms Terms
	if l.CatalogPath != "" {
		t, err := LoadTerms(l.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		terms = *t
	}

	lists := []struct {
		label string
		path  string
		dst   *[]string
	}{
		{"tech terms", l.TechPath, &terms.Tech},
		{"env terms", l.EnvPath, &terms.Env},
		{"region terms", l.RegPath, &terms.Reg},
	}
	for _, item := range lists {
		if item.path == "" {
			continue
		}
		extra, err := LoadTermFile(item.path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", item.label, err)
		}
		*item.dst = append(*item.dst, extra...)
	}

	comp.Catalog = catalog.New(terms.Tech, terms.Env, terms.Reg)
	return comp, nil
}
