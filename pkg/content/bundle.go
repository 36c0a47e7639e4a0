// Package content loads and checks game content: dialogue nodes, quests,
// quest triggers and map locations.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/choice-engine/pkg/dialogue"
	"github.com/jwebster45206/choice-engine/pkg/navigation"
	"github.com/jwebster45206/choice-engine/pkg/quest"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a content file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported content format")

// Bundle is everything a game session is built from.
type Bundle struct {
	Title         string                `json:"title" yaml:"title"`
	Version       string                `json:"version,omitempty" yaml:"version,omitempty"`
	StartNode     string                `json:"start_node" yaml:"start_node"`
	Nodes         []dialogue.Node       `json:"nodes" yaml:"nodes"`
	Quests        []quest.Definition    `json:"quests,omitempty" yaml:"quests,omitempty"`
	QuestTriggers []quest.Trigger       `json:"quest_triggers,omitempty" yaml:"quest_triggers,omitempty"`
	Locations     []navigation.Location `json:"locations,omitempty" yaml:"locations,omitempty"`
	StartLocation string                `json:"start_location,omitempty" yaml:"start_location,omitempty"`
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// IsContentFile reports whether path has a content file extension
func IsContentFile(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// Decode reads a bundle. Unknown fields are rejected so typos in content
// surface as errors instead of silently missing data.
func Decode(r io.Reader, format Format) (*Bundle, error) {
	var b Bundle
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode JSON content: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode YAML content: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &b, nil
}

// Parse decodes a bundle held in memory
func Parse(data []byte, format Format) (*Bundle, error) {
	return Decode(bytes.NewReader(data), format)
}

// LoadFile reads a bundle from disk, picking the format from the extension.
func LoadFile(path string) (*Bundle, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open content file %s: %w", path, err)
	}
	defer f.Close()

	b, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}
