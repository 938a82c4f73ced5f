package fieldmap

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
)

type extendedData struct {
	XMLName xml.Name    `xml:"ExtendedData"`
	Data    []dataEntry `xml:"Data"`
}

type dataEntry struct {
	Name     string     `xml:"name,attr"`
	Encoding string     `xml:"encoding,attr,omitempty"`
	Value    cdataValue `xml:"value"`
}

const base64Encoding = "base64"

type cdataValue struct {
	Text string `xml:",cdata"`
}

// Attribute is one named entry of an extended data block.
type Attribute struct {
	Name  string
	Value string
}

// ExtendedData builds the KML-style block kept in dataitem.extended_data.
// Only fields with a non-blank value are emitted, trimmed, in a fixed order.
// It returns nil rather than an empty block.
func ExtendedData(props paradisec.Properties) *string {
	id := string(props.ID)
	candidates := []struct {
		name  string
		value *string
	}{
		{"ID", &id},
		{"Languages", props.Languages},
		{"Countries", props.Countries},
		{"Publisher", props.Publisher},
		{"Contact", props.Contact},
		{"License", props.License},
		{"Rights", props.Rights},
	}

	var block extendedData
	for _, c := range candidates {
		if c.value == nil {
			continue
		}
		v := strings.TrimSpace(*c.value)
		if v == "" {
			continue
		}
		block.Data = append(block.Data, newDataEntry(c.name, v))
	}
	if len(block.Data) == 0 {
		return nil
	}

	out, err := xml.Marshal(block)
	if err != nil {
		// xml.Marshal only fails on unsupported field types.
		panic(err)
	}
	s := string(out)
	return &s
}

// newDataEntry stores v as CDATA, or as base64 when XML 1.0 cannot carry
// it unchanged. CR counts too: parsers normalise line endings.
func newDataEntry(name, v string) dataEntry {
	if !cdataSafe(v) {
		return dataEntry{
			Name:     name,
			Encoding: base64Encoding,
			Value:    cdataValue{Text: base64.StdEncoding.EncodeToString([]byte(v))},
		}
	}
	return dataEntry{Name: name, Value: cdataValue{Text: v}}
}

func cdataSafe(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n':
		case r < 0x20, r == '\r':
			return false
		case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
			return false
		}
	}
	return true
}

// ParseExtendedData reads a block produced by ExtendedData.
func ParseExtendedData(s string) ([]Attribute, error) {
	var block extendedData
	if err := xml.Unmarshal([]byte(s), &block); err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, len(block.Data))
	for _, d := range block.Data {
		v := d.Value.Text
		switch d.Encoding {
		case "":
		case base64Encoding:
			raw, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, fmt.Errorf("data %q: %w", d.Name, err)
			}
			v = string(raw)
		default:
			return nil, fmt.Errorf("data %q: unknown encoding %q", d.Name, d.Encoding)
		}
		attrs = append(attrs, Attribute{Name: d.Name, Value: v})
	}
	return attrs, nil
}
