package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var ErrInvalidDocument = errors.New("invalid flow document")

// Document is the decoded form of a flow file.
type Document struct {
	Name        string                  `mapstructure:"name"`
	Description string                  `mapstructure:"description"`
	Start       string                  `mapstructure:"start"`
	Defaults    []EdgeSpec              `mapstructure:"defaults"`
	SubGraphs   map[string]SubGraphSpec `mapstructure:"subgraphs"`
	Transitions []EdgeSpec              `mapstructure:"transitions"`
}

// SubGraphSpec is a named, reusable sub-graph.
type SubGraphSpec struct {
	Description string     `mapstructure:"description"`
	Start       string     `mapstructure:"start"`
	Defaults    []EdgeSpec `mapstructure:"defaults"`
	Transitions []EdgeSpec `mapstructure:"transitions"`
}

// EdgeSpec describes one edge template.
type EdgeSpec struct {
	On       []string   `mapstructure:"on"`
	To       string     `mapstructure:"to"`
	Finish   string     `mapstructure:"finish"`
	BackTo   string     `mapstructure:"back_to"`
	Emit     string     `mapstructure:"emit"`
	SubGraph string     `mapstructure:"subgraph"`
	Transit  []EdgeSpec `mapstructure:"transit"`
}

// LoadFile reads a document, choosing the format by extension (.json, otherwise YAML).
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow document: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}

	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Parse decodes data in the given format ("yaml" or "json").
func Parse(data []byte, format string) (*Document, error) {
	var raw map[string]any
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}

	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToSliceHookFunc(","),
		ErrorUnused: true,
		Result:      &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	for i := range doc.Transitions {
		trimEvents(&doc.Transitions[i])
	}
	for i := range doc.Defaults {
		trimEvents(&doc.Defaults[i])
	}
	for name, sub := range doc.SubGraphs {
		for i := range sub.Transitions {
			trimEvents(&sub.Transitions[i])
		}
		for i := range sub.Defaults {
			trimEvents(&sub.Defaults[i])
		}
		doc.SubGraphs[name] = sub
	}

	if doc.Start == "" {
		return nil, fmt.Errorf("%w: missing start state", ErrInvalidDocument)
	}
	return &doc, nil
}

func trimEvents(e *EdgeSpec) {
	for i, on := range e.On {
		e.On[i] = strings.TrimSpace(on)
	}
	for i := range e.Transit {
		trimEvents(&e.Transit[i])
	}
}
