// vl2rule/pkg/rule/humanreadable.go

package rule

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"rgehrsitz/vl2rule/pkg/logging"
	"rgehrsitz/vl2rule/pkg/netid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrUnknownName  = errors.New("unknown rule type")
	ErrMissingField = errors.New("missing required field")
	ErrFieldRange   = errors.New("field out of range")
)

// Bitmask is a 64-bit mask rendered as 16 hex digits.
type Bitmask uint64

func (m Bitmask) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%016x", uint64(m))), nil
}

func (m *Bitmask) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.ToLower(string(text)), "0x")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return fmt.Errorf("invalid bitmask %q: %w", text, err)
	}
	*m = Bitmask(v)
	return nil
}

// HumanReadableRule is the sparse, named-field form of a rule used in
// configuration files and APIs. Only the fields relevant to Type are set.
type HumanReadableRule struct {
	Type string `json:"type" yaml:"type" toml:"type"`
	Not  *bool  `json:"not,omitempty" yaml:"not,omitempty" toml:"not,omitempty"`
	Or   *bool  `json:"or,omitempty" yaml:"or,omitempty" toml:"or,omitempty"`

	// ACTION_TEE, ACTION_WATCH, ACTION_REDIRECT
	Address *netid.Address `json:"address,omitempty" yaml:"address,omitempty" toml:"address,omitempty"`
	Flags   *uint32        `json:"flags,omitempty" yaml:"flags,omitempty" toml:"flags,omitempty"`
	Length  *uint16        `json:"length,omitempty" yaml:"length,omitempty" toml:"length,omitempty"`

	QoSBucket *uint8 `json:"qosBucket,omitempty" yaml:"qosBucket,omitempty" toml:"qosBucket,omitempty"`

	ZT      *netid.Address     `json:"zt,omitempty" yaml:"zt,omitempty" toml:"zt,omitempty"`
	VlanID  *uint16            `json:"vlanId,omitempty" yaml:"vlanId,omitempty" toml:"vlanId,omitempty"`
	VlanPCP *uint8             `json:"vlanPcp,omitempty" yaml:"vlanPcp,omitempty" toml:"vlanPcp,omitempty"`
	VlanDEI *uint8             `json:"vlanDei,omitempty" yaml:"vlanDei,omitempty" toml:"vlanDei,omitempty"`
	MAC     *netid.MAC         `json:"mac,omitempty" yaml:"mac,omitempty" toml:"mac,omitempty"`
	IP      *netid.InetAddress `json:"ip,omitempty" yaml:"ip,omitempty" toml:"ip,omitempty"`

	// Prefix length for IP matches, bit mask for MATCH_IP_TOS.
	Mask *uint8 `json:"mask,omitempty" yaml:"mask,omitempty" toml:"mask,omitempty"`

	IPProtocol      *uint8   `json:"ipProtocol,omitempty" yaml:"ipProtocol,omitempty" toml:"ipProtocol,omitempty"`
	EtherType       *uint16  `json:"etherType,omitempty" yaml:"etherType,omitempty" toml:"etherType,omitempty"`
	ICMPType        *uint8   `json:"icmpType,omitempty" yaml:"icmpType,omitempty" toml:"icmpType,omitempty"`
	ICMPCode        *uint8   `json:"icmpCode,omitempty" yaml:"icmpCode,omitempty" toml:"icmpCode,omitempty"`
	Characteristics *Bitmask `json:"characteristics,omitempty" yaml:"characteristics,omitempty" toml:"characteristics,omitempty"`

	// Range bounds for TOS, port, frame size and integer range matches.
	Start *uint64 `json:"start,omitempty" yaml:"start,omitempty" toml:"start,omitempty"`
	End   *uint64 `json:"end,omitempty" yaml:"end,omitempty" toml:"end,omitempty"`

	ID          *uint32 `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Value       *uint32 `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	Probability *uint32 `json:"probability,omitempty" yaml:"probability,omitempty" toml:"probability,omitempty"`

	// MATCH_INTEGER_RANGE
	Idx    *uint16 `json:"idx,omitempty" yaml:"idx,omitempty" toml:"idx,omitempty"`
	Little *bool   `json:"little,omitempty" yaml:"little,omitempty" toml:"little,omitempty"`
	Bits   *uint8  `json:"bits,omitempty" yaml:"bits,omitempty" toml:"bits,omitempty"`
}

func need[T any](p *T, field string) (T, error) {
	if p == nil {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return *p, nil
}

func needMax(p *uint64, field string, max uint64) (uint64, error) {
	v, err := need(p, field)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, fmt.Errorf("%w: %s=%d exceeds %d", ErrFieldRange, field, v, max)
	}
	return v, nil
}

func needRange(h *HumanReadableRule, max uint64) (uint64, uint64, error) {
	start, err := needMax(h.Start, "start", max)
	if err != nil {
		return 0, 0, err
	}
	end, err := needMax(h.End, "end", max)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func flag(p *bool) bool {
	return p != nil && *p
}

// ConvertHumanReadable builds a Rule from h. It fails with ErrUnknownName if
// the type is not a known opcode name, ErrMissingField if a field the opcode
// requires is absent, and ErrFieldRange if a field does not fit the payload.
func ConvertHumanReadable(h *HumanReadableRule) (Rule, error) {
	op, ok := LookupName(h.Type)
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownName, h.Type)
	}
	r := Rule{Opcode: op, Not: flag(h.Not), Or: flag(h.Or)}

	switch op {
	case ACTION_DROP, ACTION_ACCEPT, ACTION_BREAK:
	case ACTION_TEE, ACTION_WATCH, ACTION_REDIRECT:
		addr, err := need(h.Address, "address")
		if err != nil {
			return Rule{}, err
		}
		flags, err := need(h.Flags, "flags")
		if err != nil {
			return Rule{}, err
		}
		length, err := need(h.Length, "length")
		if err != nil {
			return Rule{}, err
		}
		r.Value = Forward{Address: addr.Uint64(), Flags: flags, Length: length}
	case ACTION_PRIORITY:
		q, err := need(h.QoSBucket, "qosBucket")
		if err != nil {
			return Rule{}, err
		}
		r.Value = Priority{QoSBucket: q}
	case MATCH_SOURCE_ZEROTIER_ADDRESS, MATCH_DEST_ZEROTIER_ADDRESS:
		addr, err := need(h.ZT, "zt")
		if err != nil {
			return Rule{}, err
		}
		r.Value = NodeAddress{Address: addr.Uint64()}
	case MATCH_VLAN_ID:
		id, err := need(h.VlanID, "vlanId")
		if err != nil {
			return Rule{}, err
		}
		r.Value = VlanID{ID: id}
	case MATCH_VLAN_PCP:
		pcp, err := need(h.VlanPCP, "vlanPcp")
		if err != nil {
			return Rule{}, err
		}
		r.Value = VlanPCP{PCP: pcp}
	case MATCH_VLAN_DEI:
		dei, err := need(h.VlanDEI, "vlanDei")
		if err != nil {
			return Rule{}, err
		}
		r.Value = VlanDEI{DEI: dei}
	case MATCH_MAC_SOURCE, MATCH_MAC_DEST:
		mac, err := need(h.MAC, "mac")
		if err != nil {
			return Rule{}, err
		}
		r.Value = MACAddress{MAC: mac}
	case MATCH_IPV4_SOURCE, MATCH_IPV4_DEST:
		ip, err := need(h.IP, "ip")
		if err != nil {
			return Rule{}, err
		}
		mask, err := need(h.Mask, "mask")
		if err != nil {
			return Rule{}, err
		}
		if !ip.Is4() {
			return Rule{}, fmt.Errorf("%w: ip %s is not IPv4", ErrFieldRange, ip)
		}
		r.Value = IPv4{IP: ip.As4(), Mask: mask}
	case MATCH_IPV6_SOURCE, MATCH_IPV6_DEST:
		ip, err := need(h.IP, "ip")
		if err != nil {
			return Rule{}, err
		}
		mask, err := need(h.Mask, "mask")
		if err != nil {
			return Rule{}, err
		}
		if !ip.Is6() {
			return Rule{}, fmt.Errorf("%w: ip %s is not IPv6", ErrFieldRange, ip)
		}
		r.Value = IPv6{IP: ip.As16(), Mask: mask}
	case MATCH_IP_TOS:
		mask, err := need(h.Mask, "mask")
		if err != nil {
			return Rule{}, err
		}
		start, end, err := needRange(h, math.MaxUint8)
		if err != nil {
			return Rule{}, err
		}
		r.Value = IPTos{Mask: mask, Value: [2]uint8{uint8(start), uint8(end)}}
	case MATCH_IP_PROTOCOL:
		p, err := need(h.IPProtocol, "ipProtocol")
		if err != nil {
			return Rule{}, err
		}
		r.Value = IPProtocol{Protocol: p}
	case MATCH_ETHERTYPE:
		et, err := need(h.EtherType, "etherType")
		if err != nil {
			return Rule{}, err
		}
		r.Value = EtherType{Type: et}
	case MATCH_ICMP:
		icmpType, err := need(h.ICMPType, "icmpType")
		if err != nil {
			return Rule{}, err
		}
		v := ICMP{Type: icmpType}
		if h.ICMPCode != nil {
			v.Code = *h.ICMPCode
			v.Flags |= ICMP_FLAG_CODE_PRESENT
		}
		r.Value = v
	case MATCH_IP_SOURCE_PORT_RANGE, MATCH_IP_DEST_PORT_RANGE:
		start, end, err := needRange(h, math.MaxUint16)
		if err != nil {
			return Rule{}, err
		}
		r.Value = PortRange{Start: uint16(start), End: uint16(end)}
	case MATCH_CHARACTERISTICS:
		c, err := need(h.Characteristics, "characteristics")
		if err != nil {
			return Rule{}, err
		}
		r.Value = Characteristics{Mask: uint64(c)}
	case MATCH_FRAME_SIZE_RANGE:
		start, end, err := needRange(h, math.MaxUint16)
		if err != nil {
			return Rule{}, err
		}
		r.Value = FrameSizeRange{Start: uint16(start), End: uint16(end)}
	case MATCH_RANDOM:
		p, err := need(h.Probability, "probability")
		if err != nil {
			return Rule{}, err
		}
		r.Value = Random{Probability: p}
	case MATCH_TAGS_DIFFERENCE, MATCH_TAGS_BITWISE_AND, MATCH_TAGS_BITWISE_OR,
		MATCH_TAGS_BITWISE_XOR, MATCH_TAGS_EQUAL, MATCH_TAG_SENDER, MATCH_TAG_RECEIVER:
		id, err := need(h.ID, "id")
		if err != nil {
			return Rule{}, err
		}
		value, err := need(h.Value, "value")
		if err != nil {
			return Rule{}, err
		}
		r.Value = Tag{ID: id, Value: value}
	case MATCH_INTEGER_RANGE:
		start, end, err := needRange(h, math.MaxUint64)
		if err != nil {
			return Rule{}, err
		}
		idx, err := need(h.Idx, "idx")
		if err != nil {
			return Rule{}, err
		}
		bits := uint8(1)
		if h.Bits != nil {
			bits = *h.Bits
		}
		if bits < 1 || bits > 64 {
			return Rule{}, fmt.Errorf("%w: bits=%d outside [1,64]", ErrFieldRange, bits)
		}
		r.Value = IntegerRange{Start: start, End: end, Idx: idx, Format: IntegerRangeFormat(bits, flag(h.Little))}
	}
	return r, nil
}

// FromHumanReadable converts h to a Rule. It reports false when no rule can be
// produced; callers treat such entries as ACTION_DROP.
func FromHumanReadable(h *HumanReadableRule) (Rule, bool) {
	r, err := ConvertHumanReadable(h)
	if err != nil {
		logging.Logger.Debug().Err(err).Str("type", h.Type).Msg("Human-readable rule not convertible")
		return Rule{}, false
	}
	return r, true
}

// ToHumanReadable renders r into its named-field form. It reports false if r
// is invalid (unknown opcode, bad node address or MAC).
func ToHumanReadable(r Rule) (HumanReadableRule, bool) {
	var h HumanReadableRule
	ok := r.Visit(&humanReadableRenderer{h: &h})
	if !ok {
		return HumanReadableRule{}, false
	}
	return h, true
}

// MarshalJSON renders the human-readable form. Invalid rules render as
// ACTION_DROP.
func (r Rule) MarshalJSON() ([]byte, error) {
	h, ok := ToHumanReadable(r)
	if !ok {
		h = HumanReadableRule{Type: ACTION_DROP.String()}
	}
	return json.Marshal(&h)
}

// UnmarshalJSON parses the human-readable form. Syntax errors fail; entries
// that name an unknown type or lack a required field become ACTION_DROP.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var h HumanReadableRule
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*r, _ = FromHumanReadable(&h)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

// humanReadableRenderer records each visited rule's fields instead of acting
// on them.
type humanReadableRenderer struct {
	h *HumanReadableRule
}

func (v *humanReadableRenderer) match(op Opcode, not, or bool) {
	v.h.Type = op.String()
	if not {
		v.h.Not = ptr(true)
	}
	if or {
		v.h.Or = ptr(true)
	}
}

func (v *humanReadableRenderer) forward(op Opcode, address netid.Address, flags uint32, length uint16) bool {
	v.h.Type = op.String()
	v.h.Address = &address
	v.h.Flags = &flags
	v.h.Length = &length
	return true
}

func (v *humanReadableRenderer) ActionDrop() bool {
	v.h.Type = ACTION_DROP.String()
	return true
}

func (v *humanReadableRenderer) ActionAccept() bool {
	v.h.Type = ACTION_ACCEPT.String()
	return true
}

func (v *humanReadableRenderer) ActionTee(address netid.Address, flags uint32, length uint16) bool {
	return v.forward(ACTION_TEE, address, flags, length)
}

func (v *humanReadableRenderer) ActionWatch(address netid.Address, flags uint32, length uint16) bool {
	return v.forward(ACTION_WATCH, address, flags, length)
}

func (v *humanReadableRenderer) ActionRedirect(address netid.Address, flags uint32, length uint16) bool {
	return v.forward(ACTION_REDIRECT, address, flags, length)
}

func (v *humanReadableRenderer) ActionBreak() bool {
	v.h.Type = ACTION_BREAK.String()
	return true
}

func (v *humanReadableRenderer) ActionPriority(qosBucket uint8) bool {
	v.h.Type = ACTION_PRIORITY.String()
	v.h.QoSBucket = &qosBucket
	return true
}

func (v *humanReadableRenderer) InvalidRule() {}

func (v *humanReadableRenderer) MatchSourceZeroTierAddress(not, or bool, address netid.Address) {
	v.match(MATCH_SOURCE_ZEROTIER_ADDRESS, not, or)
	v.h.ZT = &address
}

func (v *humanReadableRenderer) MatchDestZeroTierAddress(not, or bool, address netid.Address) {
	v.match(MATCH_DEST_ZEROTIER_ADDRESS, not, or)
	v.h.ZT = &address
}

func (v *humanReadableRenderer) MatchVlanID(not, or bool, id uint16) {
	v.match(MATCH_VLAN_ID, not, or)
	v.h.VlanID = &id
}

func (v *humanReadableRenderer) MatchVlanPCP(not, or bool, pcp uint8) {
	v.match(MATCH_VLAN_PCP, not, or)
	v.h.VlanPCP = &pcp
}

func (v *humanReadableRenderer) MatchVlanDEI(not, or bool, dei uint8) {
	v.match(MATCH_VLAN_DEI, not, or)
	v.h.VlanDEI = &dei
}

func (v *humanReadableRenderer) MatchMACSource(not, or bool, mac netid.MAC) {
	v.match(MATCH_MAC_SOURCE, not, or)
	v.h.MAC = &mac
}

func (v *humanReadableRenderer) MatchMACDest(not, or bool, mac netid.MAC) {
	v.match(MATCH_MAC_DEST, not, or)
	v.h.MAC = &mac
}

func (v *humanReadableRenderer) ip4(op Opcode, not, or bool, ip [4]byte, mask uint8) {
	v.match(op, not, or)
	v.h.IP = ptr(netid.InetAddressFrom4(ip))
	v.h.Mask = &mask
}

func (v *humanReadableRenderer) ip6(op Opcode, not, or bool, ip [16]byte, mask uint8) {
	v.match(op, not, or)
	v.h.IP = ptr(netid.InetAddressFrom16(ip))
	v.h.Mask = &mask
}

func (v *humanReadableRenderer) MatchIPv4Source(not, or bool, ip [4]byte, mask uint8) {
	v.ip4(MATCH_IPV4_SOURCE, not, or, ip, mask)
}

func (v *humanReadableRenderer) MatchIPv4Dest(not, or bool, ip [4]byte, mask uint8) {
	v.ip4(MATCH_IPV4_DEST, not, or, ip, mask)
}

func (v *humanReadableRenderer) MatchIPv6Source(not, or bool, ip [16]byte, mask uint8) {
	v.ip6(MATCH_IPV6_SOURCE, not, or, ip, mask)
}

func (v *humanReadableRenderer) MatchIPv6Dest(not, or bool, ip [16]byte, mask uint8) {
	v.ip6(MATCH_IPV6_DEST, not, or, ip, mask)
}

func (v *humanReadableRenderer) MatchIPTos(not, or bool, mask uint8, value [2]uint8) {
	v.match(MATCH_IP_TOS, not, or)
	v.h.Mask = &mask
	v.h.Start = ptr(uint64(value[0]))
	v.h.End = ptr(uint64(value[1]))
}

func (v *humanReadableRenderer) MatchIPProtocol(not, or bool, protocol uint8) {
	v.match(MATCH_IP_PROTOCOL, not, or)
	v.h.IPProtocol = &protocol
}

func (v *humanReadableRenderer) MatchEtherType(not, or bool, etherType uint16) {
	v.match(MATCH_ETHERTYPE, not, or)
	v.h.EtherType = &etherType
}

func (v *humanReadableRenderer) MatchICMP(not, or bool, icmpType, icmpCode, flags uint8) {
	v.match(MATCH_ICMP, not, or)
	v.h.ICMPType = &icmpType
	if flags&ICMP_FLAG_CODE_PRESENT != 0 {
		v.h.ICMPCode = &icmpCode
	}
}

func (v *humanReadableRenderer) span(op Opcode, not, or bool, start, end uint64) {
	v.match(op, not, or)
	v.h.Start = &start
	v.h.End = &end
}

func (v *humanReadableRenderer) MatchIPSourcePortRange(not, or bool, start, end uint16) {
	v.span(MATCH_IP_SOURCE_PORT_RANGE, not, or, uint64(start), uint64(end))
}

func (v *humanReadableRenderer) MatchIPDestPortRange(not, or bool, start, end uint16) {
	v.span(MATCH_IP_DEST_PORT_RANGE, not, or, uint64(start), uint64(end))
}

func (v *humanReadableRenderer) MatchCharacteristics(not, or bool, characteristics uint64) {
	v.match(MATCH_CHARACTERISTICS, not, or)
	v.h.Characteristics = ptr(Bitmask(characteristics))
}

func (v *humanReadableRenderer) MatchFrameSizeRange(not, or bool, start, end uint16) {
	v.span(MATCH_FRAME_SIZE_RANGE, not, or, uint64(start), uint64(end))
}

func (v *humanReadableRenderer) MatchRandom(not, or bool, probability uint32) {
	v.match(MATCH_RANDOM, not, or)
	v.h.Probability = &probability
}

func (v *humanReadableRenderer) tag(op Opcode, not, or bool, id, value uint32) {
	v.match(op, not, or)
	v.h.ID = &id
	v.h.Value = &value
}

func (v *humanReadableRenderer) MatchTagsDifference(not, or bool, id, value uint32) {
	v.tag(MATCH_TAGS_DIFFERENCE, not, or, id, value)
}

func (v *humanReadableRenderer) MatchTagsBitwiseAnd(not, or bool, id, value uint32) {
	v.tag(MATCH_TAGS_BITWISE_AND, not, or, id, value)
}

func (v *humanReadableRenderer) MatchTagsBitwiseOr(not, or bool, id, value uint32) {
	v.tag(MATCH_TAGS_BITWISE_OR, not, or, id, value)
}

func (v *humanReadableRenderer) MatchTagsBitwiseXor(not, or bool, id, value uint32) {
	v.tag(MATCH_TAGS_BITWISE_XOR, not, or, id, value)
}

func (v *humanReadableRenderer) MatchTagsEqual(not, or bool, id, value uint32) {
	v.tag(MATCH_TAGS_EQUAL, not, or, id, value)
}

func (v *humanReadableRenderer) MatchTagSender(not, or bool, id, value uint32) {
	v.tag(MATCH_TAG_SENDER, not, or, id, value)
}

func (v *humanReadableRenderer) MatchTagReceiver(not, or bool, id, value uint32) {
	v.tag(MATCH_TAG_RECEIVER, not, or, id, value)
}

func (v *humanReadableRenderer) MatchIntegerRange(not, or bool, start, end uint64, idx uint16, format uint8) {
	v.span(MATCH_INTEGER_RANGE, not, or, start, end)
	v.h.Idx = &idx
	v.h.Bits = ptr(format&IntegerRangeBitsMask + 1)
	if format&IntegerRangeLittle != 0 {
		v.h.Little = ptr(true)
	}
}
