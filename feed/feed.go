// Package feed turns raw vendor feed documents into vendor-neutral listing
// records. Each supported vendor format registers a marker check and a parse
// function in the formats table; adding a vendor touches only that table.
package feed

import (
	"encoding/xml"
	"io"
	"strings"

	"imovel-importer/models"
	"imovel-importer/utils"
)

// FormatTag identifies a supported vendor feed format.
type FormatTag string

const (
	FormatTecimob FormatTag = "tecimob"
	FormatUnknown FormatTag = "unknown"
)

type format struct {
	tag   FormatTag
	match func(root *element) bool
	parse func(root *element, logger *utils.Logger) []*models.ImportedListing
}

var formats = []format{
	{tag: FormatTecimob, match: matchTecimob, parse: parseTecimob},
}

// element is a generic XML node. Feeds are loosely specified, so fields are
// pulled out by tag name instead of a rigid schema struct.
type element struct {
	XMLName  xml.Name
	Children []element `xml:",any"`
	Text     string    `xml:",chardata"`
}

func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

func (e *element) childText(name string) string {
	if c := e.child(name); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}

// parseDocument builds the generic element tree. The charset reader is an
// identity passthrough: vendor exports are frequently mislabeled and the
// declared encoding is not trustworthy anyway.
func parseDocument(raw string) (*element, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	var root element
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// Detect classifies raw feed text as one of the known vendor formats.
// Unparsable or unrecognized input yields FormatUnknown; Detect never panics.
// Callers must treat FormatUnknown as a terminal, user-facing condition.
func Detect(raw string) FormatTag {
	root, err := parseDocument(raw)
	if err != nil {
		return FormatUnknown
	}
	for _, f := range formats {
		if f.match(root) {
			return f.tag
		}
	}
	return FormatUnknown
}

// Parse converts raw feed text into listing records in document order.
// It returns the detected format alongside the records; an unknown format
// yields FormatUnknown and no records.
func Parse(raw string, logger *utils.Logger) ([]*models.ImportedListing, FormatTag) {
	root, err := parseDocument(raw)
	if err != nil {
		return nil, FormatUnknown
	}
	for _, f := range formats {
		if f.match(root) {
			return f.parse(root, logger), f.tag
		}
	}
	return nil, FormatUnknown
}
