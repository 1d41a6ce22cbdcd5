// vl2rule/pkg/rule/rule.go

// Package rule implements the single-rule instruction set of the VL2 overlay:
// the opcode tables, the binary wire encoding, visitor dispatch and the
// human-readable form used by configuration files.
package rule

import (
	"github.com/cespare/xxhash/v2"

	"rgehrsitz/vl2rule/pkg/netid"
)

// Rule is one action or match condition. The zero Rule is ACTION_DROP.
//
// Not inverts a match condition. Or makes the condition combine with the
// previous one by OR instead of AND. Both are carried for actions too, but have
// no defined meaning there.
type Rule struct {
	Opcode Opcode
	Not    bool
	Or     bool
	Value  Value
}

// Action returns an action rule. Actions that carry an operand get their
// family's zero payload.
func Action(op Opcode) Rule {
	return Rule{Opcode: op, Value: zeroValue(op & OpcodeMask)}
}

// Match returns a match condition rule. A nil v is replaced by the zero
// payload of op's family.
func Match(op Opcode, not, or bool, v Value) Rule {
	if v == nil {
		v = zeroValue(op & OpcodeMask)
	}
	return Rule{Opcode: op, Not: not, Or: or, Value: v}
}

// ActionOrCondition returns the rule's opcode.
func (r Rule) ActionOrCondition() Opcode {
	return r.Opcode & OpcodeMask
}

// Tag returns the first wire byte: opcode plus NOT and OR flags.
func (r Rule) Tag() byte {
	t := byte(r.Opcode & OpcodeMask)
	if r.Not {
		t |= FlagNot
	}
	if r.Or {
		t |= FlagOr
	}
	return t
}

// Equal reports whether r and o are structurally identical. Opcodes are
// compared masked and a nil payload equals its family's zero payload, so Equal
// agrees with the wire encoding.
func (r Rule) Equal(o Rule) bool {
	return r.canonical() == o.canonical()
}

func (r Rule) canonical() Rule {
	r.Opcode = r.ActionOrCondition()
	if r.Value == nil {
		r.Value = zeroValue(r.Opcode)
	}
	return r
}

// Fingerprint returns a 64-bit hash of the rule's wire encoding. Equal rules
// have equal fingerprints.
func (r Rule) Fingerprint() uint64 {
	b, err := r.MarshalBinary()
	if err != nil {
		return 0
	}
	return xxhash.Sum64(b)
}

// Visit decodes the rule and calls the single matching method of v.
//
// The result reports dispatch success, not whether anything matched: for
// actions it is the action method's return value, for match conditions it is
// true, and it is false exactly when v.InvalidRule was called. A payload of
// the wrong family makes the rule invalid.
func (r Rule) Visit(v Visitor) bool {
	if !r.payloadFits() {
		v.InvalidRule()
		return false
	}
	not, or := r.Not, r.Or
	switch r.ActionOrCondition() {
	case ACTION_DROP:
		return v.ActionDrop()
	case ACTION_ACCEPT:
		return v.ActionAccept()
	case ACTION_TEE, ACTION_WATCH, ACTION_REDIRECT:
		f := payload[Forward](r)
		addr, ok := netid.AddressFromUint64(f.Address)
		if !ok {
			v.InvalidRule()
			return false
		}
		switch r.ActionOrCondition() {
		case ACTION_TEE:
			return v.ActionTee(addr, f.Flags, f.Length)
		case ACTION_WATCH:
			return v.ActionWatch(addr, f.Flags, f.Length)
		default:
			return v.ActionRedirect(addr, f.Flags, f.Length)
		}
	case ACTION_BREAK:
		return v.ActionBreak()
	case ACTION_PRIORITY:
		return v.ActionPriority(payload[Priority](r).QoSBucket)

	case MATCH_SOURCE_ZEROTIER_ADDRESS, MATCH_DEST_ZEROTIER_ADDRESS:
		addr, ok := netid.AddressFromUint64(payload[NodeAddress](r).Address)
		if !ok {
			v.InvalidRule()
			return false
		}
		if r.ActionOrCondition() == MATCH_SOURCE_ZEROTIER_ADDRESS {
			v.MatchSourceZeroTierAddress(not, or, addr)
		} else {
			v.MatchDestZeroTierAddress(not, or, addr)
		}
	case MATCH_VLAN_ID:
		v.MatchVlanID(not, or, payload[VlanID](r).ID)
	case MATCH_VLAN_PCP:
		v.MatchVlanPCP(not, or, payload[VlanPCP](r).PCP)
	case MATCH_VLAN_DEI:
		v.MatchVlanDEI(not, or, payload[VlanDEI](r).DEI)
	case MATCH_MAC_SOURCE, MATCH_MAC_DEST:
		raw := payload[MACAddress](r).MAC
		mac, ok := netid.MACFromBytes(raw[:])
		if !ok {
			v.InvalidRule()
			return false
		}
		if r.ActionOrCondition() == MATCH_MAC_SOURCE {
			v.MatchMACSource(not, or, mac)
		} else {
			v.MatchMACDest(not, or, mac)
		}
	case MATCH_IPV4_SOURCE:
		p := payload[IPv4](r)
		v.MatchIPv4Source(not, or, p.IP, p.Mask)
	case MATCH_IPV4_DEST:
		p := payload[IPv4](r)
		v.MatchIPv4Dest(not, or, p.IP, p.Mask)
	case MATCH_IPV6_SOURCE:
		p := payload[IPv6](r)
		v.MatchIPv6Source(not, or, p.IP, p.Mask)
	case MATCH_IPV6_DEST:
		p := payload[IPv6](r)
		v.MatchIPv6Dest(not, or, p.IP, p.Mask)
	case MATCH_IP_TOS:
		p := payload[IPTos](r)
		v.MatchIPTos(not, or, p.Mask, p.Value)
	case MATCH_IP_PROTOCOL:
		v.MatchIPProtocol(not, or, payload[IPProtocol](r).Protocol)
	case MATCH_ETHERTYPE:
		v.MatchEtherType(not, or, payload[EtherType](r).Type)
	case MATCH_ICMP:
		p := payload[ICMP](r)
		v.MatchICMP(not, or, p.Type, p.Code, p.Flags)
	case MATCH_IP_SOURCE_PORT_RANGE:
		p := payload[PortRange](r)
		v.MatchIPSourcePortRange(not, or, p.Start, p.End)
	case MATCH_IP_DEST_PORT_RANGE:
		p := payload[PortRange](r)
		v.MatchIPDestPortRange(not, or, p.Start, p.End)
	case MATCH_CHARACTERISTICS:
		v.MatchCharacteristics(not, or, payload[Characteristics](r).Mask)
	case MATCH_FRAME_SIZE_RANGE:
		p := payload[FrameSizeRange](r)
		v.MatchFrameSizeRange(not, or, p.Start, p.End)
	case MATCH_RANDOM:
		v.MatchRandom(not, or, payload[Random](r).Probability)
	case MATCH_TAGS_DIFFERENCE:
		p := payload[Tag](r)
		v.MatchTagsDifference(not, or, p.ID, p.Value)
	case MATCH_TAGS_BITWISE_AND:
		p := payload[Tag](r)
		v.MatchTagsBitwiseAnd(not, or, p.ID, p.Value)
	case MATCH_TAGS_BITWISE_OR:
		p := payload[Tag](r)
		v.MatchTagsBitwiseOr(not, or, p.ID, p.Value)
	case MATCH_TAGS_BITWISE_XOR:
		p := payload[Tag](r)
		v.MatchTagsBitwiseXor(not, or, p.ID, p.Value)
	case MATCH_TAGS_EQUAL:
		p := payload[Tag](r)
		v.MatchTagsEqual(not, or, p.ID, p.Value)
	case MATCH_TAG_SENDER:
		p := payload[Tag](r)
		v.MatchTagSender(not, or, p.ID, p.Value)
	case MATCH_TAG_RECEIVER:
		p := payload[Tag](r)
		v.MatchTagReceiver(not, or, p.ID, p.Value)
	case MATCH_INTEGER_RANGE:
		p := payload[IntegerRange](r)
		v.MatchIntegerRange(not, or, p.Start, p.End, p.Idx, p.Format)
	default:
		v.InvalidRule()
		return false
	}
	return true
}

func (r Rule) String() string {
	return Describe(r)
}
