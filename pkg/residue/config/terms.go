package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Terms is a vocabulary catalog file.
type Terms struct {
	Tech []string `yaml:"tech"`
	Env  []string `yaml:"env"`
	Reg  []string `yaml:"reg"`
}

// LoadTerms loads a YAML vocabulary catalog.
func LoadTerms(path string) (*Terms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var terms Terms
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return nil, err
	}

	return &terms, nil
}

// LoadTermFile loads a plain term list.
// Format: whitespace-separated terms; lines starting with # are skipped
func LoadTermFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var terms []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, strings.Fields(line)...)
	}
	return terms, nil
}
