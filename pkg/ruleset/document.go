// vl2rule/pkg/ruleset/document.go

package ruleset

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"rgehrsitz/vl2rule/pkg/logging"
	"rgehrsitz/vl2rule/pkg/rule"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Format is a human-readable document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat accepts json, yaml, yml and toml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// Document is the on-disk shape of a rule file.
type Document struct {
	Rules []rule.HumanReadableRule `json:"rules" yaml:"rules" toml:"rules"`
}

// Load parses a rule document. Entries that name an unknown type or miss a
// required field load as ACTION_DROP and are logged with their index.
func Load(data []byte, format Format) ([]rule.Rule, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConvert, "failed to parse rule document", err, map[string]interface{}{
			"format": string(format),
		})
	}

	rules := make([]rule.Rule, len(doc.Rules))
	for i := range doc.Rules {
		r, err := rule.ConvertHumanReadable(&doc.Rules[i])
		if err != nil {
			logging.Logger.Warn().Err(err).Int("index", i).Str("type", doc.Rules[i].Type).
				Msg("Invalid rule, using ACTION_DROP")
			continue
		}
		rules[i] = r
	}
	return rules, nil
}

// Dump renders rules as a document. Invalid rules are written as ACTION_DROP.
func Dump(rules []rule.Rule, format Format) ([]byte, error) {
	doc := Document{Rules: make([]rule.HumanReadableRule, len(rules))}
	for i, r := range rules {
		h, ok := rule.ToHumanReadable(r)
		if !ok {
			h = rule.HumanReadableRule{Type: rule.ACTION_DROP.String()}
		}
		doc.Rules[i] = h
	}

	switch format {
	case FormatJSON:
		return json.MarshalIndent(&doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(&doc)
	case FormatTOML:
		return toml.Marshal(&doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
