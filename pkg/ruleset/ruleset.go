// vl2rule/pkg/ruleset/ruleset.go

// Package ruleset reads and writes ordered lists of rules, both as
// concatenated wire encodings and as human-readable rule documents. It does
// not interpret how the rules combine.
package ruleset

import (
	"rgehrsitz/vl2rule/pkg/logging"
	"rgehrsitz/vl2rule/pkg/rule"
	"rgehrsitz/vl2rule/pkg/wire"
)

// Encode concatenates the wire form of rules into a buffer of the given
// capacity (wire.DefaultCapacity if <= 0).
func Encode(rules []rule.Rule, capacity int) ([]byte, error) {
	w := wire.NewWriter(capacity)
	for i, r := range rules {
		if err := r.Marshal(w); err != nil {
			if ruleErr, ok := err.(*logging.RuleError); ok && ruleErr.Fields != nil {
				ruleErr.Fields["index"] = i
			}
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// Decode reads rules until data is exhausted. It returns how many rules were
// normalized to ACTION_DROP because their opcode is unknown.
func Decode(data []byte) ([]rule.Rule, int, error) {
	rd := wire.NewReader(data)
	var (
		rules      []rule.Rule
		normalized int
	)
	for rd.Remaining() > 0 {
		r, unknown, err := rule.Unmarshal(rd)
		if err != nil {
			if ruleErr, ok := err.(*logging.RuleError); ok && ruleErr.Fields != nil {
				ruleErr.Fields["index"] = len(rules)
			}
			return nil, normalized, err
		}
		if unknown {
			normalized++
		}
		rules = append(rules, r)
	}
	logging.Logger.Debug().Int("rules", len(rules)).Int("normalized", normalized).Msg("Decoded rule list")
	return rules, normalized, nil
}
