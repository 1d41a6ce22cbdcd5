// vl2rule/pkg/rule/visitor_test.go

package rule

import (
	"rgehrsitz/vl2rule/pkg/netid"
)

// call is one recorded visitor invocation.
type call struct {
	name string
	not  bool
	or   bool
	args []interface{}
}

// recorder records every call it receives. Action methods return actionResult.
type recorder struct {
	calls        []call
	actionResult bool
}

func newRecorder() *recorder {
	return &recorder{actionResult: true}
}

func (r *recorder) action(name string, args ...interface{}) bool {
	r.calls = append(r.calls, call{name: name, args: args})
	return r.actionResult
}

func (r *recorder) match(name string, not, or bool, args ...interface{}) {
	r.calls = append(r.calls, call{name: name, not: not, or: or, args: args})
}

func (r *recorder) ActionDrop() bool   { return r.action("ActionDrop") }
func (r *recorder) ActionAccept() bool { return r.action("ActionAccept") }
func (r *recorder) ActionTee(a netid.Address, f uint32, l uint16) bool {
	return r.action("ActionTee", a, f, l)
}
func (r *recorder) ActionWatch(a netid.Address, f uint32, l uint16) bool {
	return r.action("ActionWatch", a, f, l)
}
func (r *recorder) ActionRedirect(a netid.Address, f uint32, l uint16) bool {
	return r.action("ActionRedirect", a, f, l)
}
func (r *recorder) ActionBreak() bool           { return r.action("ActionBreak") }
func (r *recorder) ActionPriority(q uint8) bool { return r.action("ActionPriority", q) }
func (r *recorder) InvalidRule()                { r.calls = append(r.calls, call{name: "InvalidRule"}) }

func (r *recorder) MatchSourceZeroTierAddress(not, or bool, a netid.Address) {
	r.match("MatchSourceZeroTierAddress", not, or, a)
}
func (r *recorder) MatchDestZeroTierAddress(not, or bool, a netid.Address) {
	r.match("MatchDestZeroTierAddress", not, or, a)
}
func (r *recorder) MatchVlanID(not, or bool, id uint16) { r.match("MatchVlanID", not, or, id) }
func (r *recorder) MatchVlanPCP(not, or bool, p uint8)  { r.match("MatchVlanPCP", not, or, p) }
func (r *recorder) MatchVlanDEI(not, or bool, d uint8)  { r.match("MatchVlanDEI", not, or, d) }
func (r *recorder) MatchMACSource(not, or bool, m netid.MAC) {
	r.match("MatchMACSource", not, or, m)
}
func (r *recorder) MatchMACDest(not, or bool, m netid.MAC) { r.match("MatchMACDest", not, or, m) }
func (r *recorder) MatchIPv4Source(not, or bool, ip [4]byte, mask uint8) {
	r.match("MatchIPv4Source", not, or, ip, mask)
}
func (r *recorder) MatchIPv4Dest(not, or bool, ip [4]byte, mask uint8) {
	r.match("MatchIPv4Dest", not, or, ip, mask)
}
func (r *recorder) MatchIPv6Source(not, or bool, ip [16]byte, mask uint8) {
	r.match("MatchIPv6Source", not, or, ip, mask)
}
func (r *recorder) MatchIPv6Dest(not, or bool, ip [16]byte, mask uint8) {
	r.match("MatchIPv6Dest", not, or, ip, mask)
}
func (r *recorder) MatchIPTos(not, or bool, mask uint8, value [2]uint8) {
	r.match("MatchIPTos", not, or, mask, value)
}
func (r *recorder) MatchIPProtocol(not, or bool, p uint8) { r.match("MatchIPProtocol", not, or, p) }
func (r *recorder) MatchEtherType(not, or bool, e uint16) { r.match("MatchEtherType", not, or, e) }
func (r *recorder) MatchICMP(not, or bool, t, c, f uint8) { r.match("MatchICMP", not, or, t, c, f) }
func (r *recorder) MatchIPSourcePortRange(not, or bool, s, e uint16) {
	r.match("MatchIPSourcePortRange", not, or, s, e)
}
func (r *recorder) MatchIPDestPortRange(not, or bool, s, e uint16) {
	r.match("MatchIPDestPortRange", not, or, s, e)
}
func (r *recorder) MatchCharacteristics(not, or bool, c uint64) {
	r.match("MatchCharacteristics", not, or, c)
}
func (r *recorder) MatchFrameSizeRange(not, or bool, s, e uint16) {
	r.match("MatchFrameSizeRange", not, or, s, e)
}
func (r *recorder) MatchRandom(not, or bool, p uint32) { r.match("MatchRandom", not, or, p) }
func (r *recorder) MatchTagsDifference(not, or bool, id, v uint32) {
	r.match("MatchTagsDifference", not, or, id, v)
}
func (r *recorder) MatchTagsBitwiseAnd(not, or bool, id, v uint32) {
	r.match("MatchTagsBitwiseAnd", not, or, id, v)
}
func (r *recorder) MatchTagsBitwiseOr(not, or bool, id, v uint32) {
	r.match("MatchTagsBitwiseOr", not, or, id, v)
}
func (r *recorder) MatchTagsBitwiseXor(not, or bool, id, v uint32) {
	r.match("MatchTagsBitwiseXor", not, or, id, v)
}
func (r *recorder) MatchTagsEqual(not, or bool, id, v uint32) {
	r.match("MatchTagsEqual", not, or, id, v)
}
func (r *recorder) MatchTagSender(not, or bool, id, v uint32) {
	r.match("MatchTagSender", not, or, id, v)
}
func (r *recorder) MatchTagReceiver(not, or bool, id, v uint32) {
	r.match("MatchTagReceiver", not, or, id, v)
}
func (r *recorder) MatchIntegerRange(not, or bool, s, e uint64, idx uint16, f uint8) {
	r.match("MatchIntegerRange", not, or, s, e, idx, f)
}

const testAddress = 0x89e92ceee5

var testMAC = [6]byte{0x02, 0x42, 0xac, 0x11, 0x00, 0x02}

// sampleRules holds one valid, human-readable-representable rule per opcode.
func sampleRules() []Rule {
	return []Rule{
		Action(ACTION_DROP),
		Action(ACTION_ACCEPT),
		{Opcode: ACTION_TEE, Value: Forward{Address: testAddress, Flags: 1, Length: 64}},
		{Opcode: ACTION_WATCH, Value: Forward{Address: testAddress, Flags: 0, Length: 0}},
		{Opcode: ACTION_REDIRECT, Value: Forward{Address: 0xfeffffffff, Flags: 0xffffffff, Length: 0xffff}},
		Action(ACTION_BREAK),
		{Opcode: ACTION_PRIORITY, Value: Priority{QoSBucket: 7}},
		Match(MATCH_SOURCE_ZEROTIER_ADDRESS, false, false, NodeAddress{Address: testAddress}),
		Match(MATCH_DEST_ZEROTIER_ADDRESS, true, false, NodeAddress{Address: 1}),
		Match(MATCH_VLAN_ID, false, true, VlanID{ID: 100}),
		Match(MATCH_VLAN_PCP, false, false, VlanPCP{PCP: 5}),
		Match(MATCH_VLAN_DEI, false, false, VlanDEI{DEI: 1}),
		Match(MATCH_MAC_SOURCE, false, false, MACAddress{MAC: testMAC}),
		Match(MATCH_MAC_DEST, true, true, MACAddress{MAC: [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}}),
		Match(MATCH_IPV4_SOURCE, false, false, IPv4{IP: [4]byte{10, 0, 0, 0}, Mask: 8}),
		Match(MATCH_IPV4_DEST, false, false, IPv4{IP: [4]byte{192, 168, 1, 1}, Mask: 32}),
		Match(MATCH_IPV6_SOURCE, false, false, IPv6{IP: [16]byte{0xfd, 0x00, 0x12, 0x34}, Mask: 48}),
		Match(MATCH_IPV6_DEST, true, false, IPv6{IP: [16]byte{15: 1}, Mask: 128}),
		Match(MATCH_IP_TOS, false, false, IPTos{Mask: 0xfc, Value: [2]uint8{0x10, 0x20}}),
		Match(MATCH_IP_PROTOCOL, true, false, IPProtocol{Protocol: 6}),
		Match(MATCH_ETHERTYPE, false, false, EtherType{Type: 0x0800}),
		Match(MATCH_ICMP, false, false, ICMP{Type: 8}),
		Match(MATCH_ICMP, false, true, ICMP{Type: 3, Code: 0, Flags: ICMP_FLAG_CODE_PRESENT}),
		Match(MATCH_IP_SOURCE_PORT_RANGE, false, false, PortRange{Start: 1024, End: 65535}),
		Match(MATCH_IP_DEST_PORT_RANGE, false, false, PortRange{Start: 443, End: 443}),
		Match(MATCH_CHARACTERISTICS, false, false, Characteristics{Mask: CHARACTERISTIC_INBOUND | CHARACTERISTIC_TCP_FLAG_SYN}),
		Match(MATCH_FRAME_SIZE_RANGE, false, false, FrameSizeRange{Start: 64, End: 1500}),
		Match(MATCH_RANDOM, false, false, Random{Probability: 0x80000000}),
		Match(MATCH_TAGS_DIFFERENCE, false, false, Tag{ID: 1, Value: 2}),
		Match(MATCH_TAGS_BITWISE_AND, false, false, Tag{ID: 3, Value: 0xff}),
		Match(MATCH_TAGS_BITWISE_OR, false, false, Tag{ID: 4, Value: 0}),
		Match(MATCH_TAGS_BITWISE_XOR, false, false, Tag{ID: 5, Value: 1}),
		Match(MATCH_TAGS_EQUAL, true, false, Tag{ID: 6, Value: 1000}),
		Match(MATCH_TAG_SENDER, false, false, Tag{ID: 7, Value: 0xffffffff}),
		Match(MATCH_TAG_RECEIVER, false, false, Tag{ID: 0xffffffff, Value: 9}),
		Match(MATCH_INTEGER_RANGE, false, false, IntegerRange{Start: 0, End: 0xffffffffffffffff, Idx: 14, Format: IntegerRangeFormat(64, false)}),
		Match(MATCH_INTEGER_RANGE, false, false, IntegerRange{Start: 10, End: 20, Idx: 0xffff, Format: IntegerRangeFormat(16, true)}),
	}
}
