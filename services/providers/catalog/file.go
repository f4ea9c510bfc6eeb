package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrEmptyCatalogFile = errors.New("catalog: providers list is empty")

// File is the on-disk shape of PROVIDER_CATALOG_FILE.
//
//	providers:
//	  - name: Mistral
//	    model_id: mistralai/Mistral-7B-Instruct-v0.2
//	    confidence: 0.88
type File struct {
	Providers []Spec `yaml:"providers"`
}

// LoadFile parses and validates a catalog file. Entries default to the
// Hugging Face inference kind.
func LoadFile(path string) ([]Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal %q: %w", path, err)
	}

	if err := validateFile(&f); err != nil {
		return nil, err
	}
	return f.Providers, nil
}

func validateFile(f *File) error {
	if len(f.Providers) == 0 {
		return ErrEmptyCatalogFile
	}

	seen := make(map[string]struct{}, len(f.Providers))
	for i := range f.Providers {
		s := &f.Providers[i]
		if s.Name == "" {
			return fmt.Errorf("catalog: entry %d has no name", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("catalog: duplicate provider %q", s.Name)
		}
		seen[s.Name] = struct{}{}

		if s.Kind == "" {
			s.Kind = KindHuggingFace
		}
		switch s.Kind {
		case KindHuggingFace:
			if s.ModelID == "" {
				return fmt.Errorf("catalog: %s: model_id is required", s.Name)
			}
		case KindAnthropic, KindCohere, KindGemini:
		default:
			return fmt.Errorf("catalog: %s: unknown kind %q", s.Name, s.Kind)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return fmt.Errorf("catalog: %s: confidence must be within [0,1]", s.Name)
		}
	}
	return nil
}
