package model

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemaFS embed.FS

// Artifacts is the pair of trained files the classifier needs. It is
// loaded once per process and never mutated.
type Artifacts struct {
	Classifier *Forest
	Encoder    *LabelEncoder
}

// Load reads and validates both artifacts.
func Load(classifierPath, encoderPath string) (*Artifacts, error) {
	forest, err := LoadForest(classifierPath)
	if err != nil {
		return nil, err
	}
	enc, err := LoadLabelEncoder(encoderPath)
	if err != nil {
		return nil, err
	}
	if forest.NClasses != enc.Len() {
		return nil, fmt.Errorf("%w: classifier has %d classes, encoder has %d labels", ErrArtifact, forest.NClasses, enc.Len())
	}
	return &Artifacts{Classifier: forest, Encoder: enc}, nil
}

// LoadForest reads a random-forest export from path.
func LoadForest(path string) (*Forest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read classifier: %w", ErrArtifact, err)
	}
	return ParseForest(raw)
}

// ParseForest decodes and validates a random-forest export.
func ParseForest(raw []byte) (*Forest, error) {
	if err := validateSchema("schema/forest.json", raw); err != nil {
		return nil, fmt.Errorf("%w: classifier: %w", ErrArtifact, err)
	}
	var f Forest
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: decode classifier: %w", ErrArtifact, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%w: classifier: %w", ErrArtifact, err)
	}
	return &f, nil
}

// LoadLabelEncoder reads a label encoder export from path.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read label encoder: %w", ErrArtifact, err)
	}
	return ParseLabelEncoder(raw)
}

// ParseLabelEncoder decodes and validates a label encoder export.
func ParseLabelEncoder(raw []byte) (*LabelEncoder, error) {
	if err := validateSchema("schema/encoder.json", raw); err != nil {
		return nil, fmt.Errorf("%w: label encoder: %w", ErrArtifact, err)
	}
	var e LabelEncoder
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: decode label encoder: %w", ErrArtifact, err)
	}
	return &e, nil
}

func validateSchema(name string, raw []byte) error {
	schemaRaw, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("load schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schemaRaw)); err != nil {
		return fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", name, err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("does not match schema: %w", err)
	}
	return nil
}
