package source

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-valang-go/valang/faults"
)

// Format is the encoding of a document.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "xml":
		return FormatXML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", faults.NewConfigurationError("document", "unsupported format "+s)
}

// DetectFormat derives the format from the file extension.
func DetectFormat(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Decode reads a document. Unknown YAML keys are rejected.
func Decode(format Format, data []byte) (*Document, error) {
	doc := &Document{}
	switch format {
	case FormatXML:
		if err := xml.Unmarshal(data, doc); err != nil {
			return nil, errors.Wrap(err, "xml document")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "yaml document")
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), doc); err != nil {
			return nil, errors.Wrap(err, "toml document")
		}
	default:
		return nil, faults.NewConfigurationError("document", "unsupported format "+string(format))
	}
	return doc, nil
}

// ReadFile decodes the document at path, taking the format from its
// extension.
func ReadFile(path string) (*Document, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	doc, err := Decode(format, data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return doc, nil
}
