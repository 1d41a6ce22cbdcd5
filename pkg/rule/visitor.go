// vl2rule/pkg/rule/visitor.go

package rule

import "rgehrsitz/vl2rule/pkg/netid"

// Visitor receives the decoded content of a rule. Rule.Visit calls exactly one
// method per call. Action methods return a value that Visit passes back to its
// caller; match methods return nothing and Visit reports true for them.
//
// The same Rule.Visit serves policy evaluation, rendering to human-readable
// form and static validation.
type Visitor interface {
	ActionDrop() bool
	ActionAccept() bool
	ActionTee(address netid.Address, flags uint32, length uint16) bool
	ActionWatch(address netid.Address, flags uint32, length uint16) bool
	ActionRedirect(address netid.Address, flags uint32, length uint16) bool
	ActionBreak() bool
	ActionPriority(qosBucket uint8) bool

	// InvalidRule is called for unknown opcodes and for rules whose embedded
	// node address or MAC fails validation.
	InvalidRule()

	MatchSourceZeroTierAddress(not, or bool, address netid.Address)
	MatchDestZeroTierAddress(not, or bool, address netid.Address)
	MatchVlanID(not, or bool, id uint16)
	MatchVlanPCP(not, or bool, pcp uint8)
	MatchVlanDEI(not, or bool, dei uint8)
	MatchMACSource(not, or bool, mac netid.MAC)
	MatchMACDest(not, or bool, mac netid.MAC)
	MatchIPv4Source(not, or bool, ip [4]byte, mask uint8)
	MatchIPv4Dest(not, or bool, ip [4]byte, mask uint8)
	MatchIPv6Source(not, or bool, ip [16]byte, mask uint8)
	MatchIPv6Dest(not, or bool, ip [16]byte, mask uint8)
	MatchIPTos(not, or bool, mask uint8, value [2]uint8)
	MatchIPProtocol(not, or bool, protocol uint8)
	MatchEtherType(not, or bool, etherType uint16)
	MatchICMP(not, or bool, icmpType, icmpCode, flags uint8)
	MatchIPSourcePortRange(not, or bool, start, end uint16)
	MatchIPDestPortRange(not, or bool, start, end uint16)
	MatchCharacteristics(not, or bool, characteristics uint64)
	MatchFrameSizeRange(not, or bool, start, end uint16)
	MatchRandom(not, or bool, probability uint32)
	MatchTagsDifference(not, or bool, id, value uint32)
	MatchTagsBitwiseAnd(not, or bool, id, value uint32)
	MatchTagsBitwiseOr(not, or bool, id, value uint32)
	MatchTagsBitwiseXor(not, or bool, id, value uint32)
	MatchTagsEqual(not, or bool, id, value uint32)
	MatchTagSender(not, or bool, id, value uint32)
	MatchTagReceiver(not, or bool, id, value uint32)
	MatchIntegerRange(not, or bool, start, end uint64, idx uint16, format uint8)
}
