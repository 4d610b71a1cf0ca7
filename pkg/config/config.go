// Package config loads declarative workflow documents.
//
// A document is a YAML or JSON file whose top-level "workflows" key maps entity
// type names to workflow definitions:
//
//	workflows:
//	  orders:
//	    initial_state: pending
//	    final_states: [delivered, cancelled]
//	    states:
//	      pending:
//	        transitions: [confirmed, cancelled]
//	        actions: [before_validate_order]
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format by file extension. Anything that is not
// .json is read as YAML, which also accepts most JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Document is a parsed workflow document.
type Document struct {
	Workflows map[string]domain.WorkflowDefinition `json:"workflows" yaml:"workflows" mapstructure:"workflows"`
}

// Names returns the workflow names in the document.
func (d Document) Names() []string {
	names := make([]string, 0, len(d.Workflows))
	for name := range d.Workflows {
		names = append(names, name)
	}
	return names
}

// Load reads and parses the document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read workflow config %s: %w", path, err)
	}
	doc, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes raw bytes in the given format.
func Parse(data []byte, format Format) (Document, error) {
	var raw map[string]any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return Document{}, fmt.Errorf("invalid json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Document{}, fmt.Errorf("invalid yaml: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unsupported format %q", format)
	}
	return Decode(raw)
}

// Decode converts an already-parsed document (e.g. a map literal) into a Document.
// Missing "workflows" yields an empty document.
func Decode(raw map[string]any) (Document, error) {
	var doc Document
	if err := decode(raw, &doc); err != nil {
		return Document{}, err
	}
	if doc.Workflows == nil {
		doc.Workflows = map[string]domain.WorkflowDefinition{}
	}
	return doc, nil
}

// DecodeWorkflow converts the raw definition of a single workflow.
func DecodeWorkflow(raw map[string]any) (domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition
	if err := decode(raw, &def); err != nil {
		return domain.WorkflowDefinition{}, err
	}
	return def, nil
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("invalid workflow definition: %w", err)
	}
	return nil
}
