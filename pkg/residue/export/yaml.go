package export

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/residue/pkg/residue/entities"
)

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteSuggestions writes a suggestion file.
func WriteSuggestions(w io.Writer, f entities.SuggestionFile) error {
	return encodeYAML(w, f)
}

// WriteMaster writes the master entity document.
func WriteMaster(w io.Writer, m entities.Master) error {
	return encodeYAML(w, m)
}

// LoadSuggestions reads a suggestion file from disk.
func LoadSuggestions(path string) (*entities.SuggestionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f entities.SuggestionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}
