// vl2rule/pkg/validator/validator.go

// Package validator performs static checks on rules without evaluating them
// against traffic.
package validator

import (
	"errors"
	"fmt"

	"rgehrsitz/vl2rule/pkg/netid"
	"rgehrsitz/vl2rule/pkg/rule"
)

var (
	ErrInvalidRule   = errors.New("invalid rule")
	ErrMaskRange     = errors.New("prefix length out of range")
	ErrReversedRange = errors.New("range start exceeds end")
	ErrICMPCode      = errors.New("icmp code set without code flag")
	ErrDuplicate     = errors.New("duplicate rule")
)

// ValidateRule checks a single rule.
func ValidateRule(r rule.Rule) error {
	c := &checker{}
	if !r.Visit(c) {
		return fmt.Errorf("%w: %s", ErrInvalidRule, r.ActionOrCondition())
	}
	return c.err
}

// ValidateRules checks every rule and reports exact duplicates. Errors are
// prefixed with the rule index.
func ValidateRules(rules []rule.Rule) []error {
	var errs []error
	seen := make(map[uint64]int, len(rules))
	for i, r := range rules {
		if err := ValidateRule(r); err != nil {
			errs = append(errs, fmt.Errorf("rule %d: %w", i, err))
			continue
		}
		fp := r.Fingerprint()
		if first, ok := seen[fp]; ok && rules[first].Equal(r) {
			errs = append(errs, fmt.Errorf("rule %d: %w of rule %d", i, ErrDuplicate, first))
			continue
		}
		seen[fp] = i
	}
	return errs
}

// checker records the first problem found in the visited rule.
type checker struct {
	err error
}

func (c *checker) mask(mask, max uint8) {
	if mask > max {
		c.err = fmt.Errorf("%w: /%d exceeds /%d", ErrMaskRange, mask, max)
	}
}

func (c *checker) span(start, end uint64) {
	if start > end {
		c.err = fmt.Errorf("%w: %d > %d", ErrReversedRange, start, end)
	}
}

func (c *checker) ActionDrop() bool                                     { return true }
func (c *checker) ActionAccept() bool                                   { return true }
func (c *checker) ActionTee(netid.Address, uint32, uint16) bool         { return true }
func (c *checker) ActionWatch(netid.Address, uint32, uint16) bool       { return true }
func (c *checker) ActionRedirect(netid.Address, uint32, uint16) bool    { return true }
func (c *checker) ActionBreak() bool                                    { return true }
func (c *checker) ActionPriority(uint8) bool                            { return true }
func (c *checker) InvalidRule()                                         {}
func (c *checker) MatchSourceZeroTierAddress(bool, bool, netid.Address) {}
func (c *checker) MatchDestZeroTierAddress(bool, bool, netid.Address)   {}
func (c *checker) MatchVlanID(bool, bool, uint16)                       {}
func (c *checker) MatchVlanPCP(bool, bool, uint8)                       {}
func (c *checker) MatchVlanDEI(bool, bool, uint8)                       {}
func (c *checker) MatchMACSource(bool, bool, netid.MAC)                 {}
func (c *checker) MatchMACDest(bool, bool, netid.MAC)                   {}

func (c *checker) MatchIPv4Source(_, _ bool, _ [4]byte, mask uint8)  { c.mask(mask, 32) }
func (c *checker) MatchIPv4Dest(_, _ bool, _ [4]byte, mask uint8)    { c.mask(mask, 32) }
func (c *checker) MatchIPv6Source(_, _ bool, _ [16]byte, mask uint8) { c.mask(mask, 128) }
func (c *checker) MatchIPv6Dest(_, _ bool, _ [16]byte, mask uint8)   { c.mask(mask, 128) }

func (c *checker) MatchIPTos(_, _ bool, _ uint8, value [2]uint8) {
	c.span(uint64(value[0]), uint64(value[1]))
}

func (c *checker) MatchIPProtocol(bool, bool, uint8) {}
func (c *checker) MatchEtherType(bool, bool, uint16) {}

func (c *checker) MatchICMP(_, _ bool, _ uint8, icmpCode, flags uint8) {
	if flags&rule.ICMP_FLAG_CODE_PRESENT == 0 && icmpCode != 0 {
		c.err = fmt.Errorf("%w: code %d", ErrICMPCode, icmpCode)
	}
}

func (c *checker) MatchIPSourcePortRange(_, _ bool, start, end uint16) {
	c.span(uint64(start), uint64(end))
}

func (c *checker) MatchIPDestPortRange(_, _ bool, start, end uint16) {
	c.span(uint64(start), uint64(end))
}

func (c *checker) MatchCharacteristics(bool, bool, uint64) {}

func (c *checker) MatchFrameSizeRange(_, _ bool, start, end uint16) {
	c.span(uint64(start), uint64(end))
}

func (c *checker) MatchRandom(bool, bool, uint32)                 {}
func (c *checker) MatchTagsDifference(bool, bool, uint32, uint32) {}
func (c *checker) MatchTagsBitwiseAnd(bool, bool, uint32, uint32) {}
func (c *checker) MatchTagsBitwiseOr(bool, bool, uint32, uint32)  {}
func (c *checker) MatchTagsBitwiseXor(bool, bool, uint32, uint32) {}
func (c *checker) MatchTagsEqual(bool, bool, uint32, uint32)      {}
func (c *checker) MatchTagSender(bool, bool, uint32, uint32)      {}
func (c *checker) MatchTagReceiver(bool, bool, uint32, uint32)    {}

func (c *checker) MatchIntegerRange(_, _ bool, start, end uint64, _ uint16, _ uint8) {
	c.span(start, end)
}
