// vl2rule/pkg/rule/describe.go

package rule

import (
	"fmt"
	"net/netip"
	"strings"

	"rgehrsitz/vl2rule/pkg/netid"
)

// Describe returns a one-line, lower-case rendering of r such as
// "not match ipv4 source 10.0.0.0/8". Invalid rules render as "invalid".
func Describe(r Rule) string {
	d := &describer{}
	if !r.Visit(d) {
		return "invalid"
	}
	return d.sb.String()
}

type describer struct {
	sb strings.Builder
}

func (d *describer) printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.sb, format, args...)
}

func (d *describer) match(not, or bool, format string, args ...interface{}) {
	if or {
		d.sb.WriteString("or ")
	}
	if not {
		d.sb.WriteString("not ")
	}
	d.sb.WriteString("match ")
	d.printf(format, args...)
}

func (d *describer) ActionDrop() bool {
	d.sb.WriteString("action drop")
	return true
}

func (d *describer) ActionAccept() bool {
	d.sb.WriteString("action accept")
	return true
}

func (d *describer) ActionTee(address netid.Address, flags uint32, length uint16) bool {
	d.printf("action tee %s length %d flags 0x%x", address, length, flags)
	return true
}

func (d *describer) ActionWatch(address netid.Address, flags uint32, length uint16) bool {
	d.printf("action watch %s length %d flags 0x%x", address, length, flags)
	return true
}

func (d *describer) ActionRedirect(address netid.Address, flags uint32, length uint16) bool {
	d.printf("action redirect %s length %d flags 0x%x", address, length, flags)
	return true
}

func (d *describer) ActionBreak() bool {
	d.sb.WriteString("action break")
	return true
}

func (d *describer) ActionPriority(qosBucket uint8) bool {
	d.printf("action priority %d", qosBucket)
	return true
}

func (d *describer) InvalidRule() {}

func (d *describer) MatchSourceZeroTierAddress(not, or bool, address netid.Address) {
	d.match(not, or, "source address %s", address)
}

func (d *describer) MatchDestZeroTierAddress(not, or bool, address netid.Address) {
	d.match(not, or, "dest address %s", address)
}

func (d *describer) MatchVlanID(not, or bool, id uint16) {
	d.match(not, or, "vlan id %d", id)
}

func (d *describer) MatchVlanPCP(not, or bool, pcp uint8) {
	d.match(not, or, "vlan pcp %d", pcp)
}

func (d *describer) MatchVlanDEI(not, or bool, dei uint8) {
	d.match(not, or, "vlan dei %d", dei)
}

func (d *describer) MatchMACSource(not, or bool, mac netid.MAC) {
	d.match(not, or, "mac source %s", mac)
}

func (d *describer) MatchMACDest(not, or bool, mac netid.MAC) {
	d.match(not, or, "mac dest %s", mac)
}

func (d *describer) MatchIPv4Source(not, or bool, ip [4]byte, mask uint8) {
	d.match(not, or, "ipv4 source %s/%d", netip.AddrFrom4(ip), mask)
}

func (d *describer) MatchIPv4Dest(not, or bool, ip [4]byte, mask uint8) {
	d.match(not, or, "ipv4 dest %s/%d", netip.AddrFrom4(ip), mask)
}

func (d *describer) MatchIPv6Source(not, or bool, ip [16]byte, mask uint8) {
	d.match(not, or, "ipv6 source %s/%d", netip.AddrFrom16(ip), mask)
}

func (d *describer) MatchIPv6Dest(not, or bool, ip [16]byte, mask uint8) {
	d.match(not, or, "ipv6 dest %s/%d", netip.AddrFrom16(ip), mask)
}

func (d *describer) MatchIPTos(not, or bool, mask uint8, value [2]uint8) {
	d.match(not, or, "ip tos mask 0x%02x range %d-%d", mask, value[0], value[1])
}

func (d *describer) MatchIPProtocol(not, or bool, protocol uint8) {
	d.match(not, or, "ip protocol %d", protocol)
}

func (d *describer) MatchEtherType(not, or bool, etherType uint16) {
	d.match(not, or, "ethertype 0x%04x", etherType)
}

func (d *describer) MatchICMP(not, or bool, icmpType, icmpCode, flags uint8) {
	if flags&ICMP_FLAG_CODE_PRESENT != 0 {
		d.match(not, or, "icmp type %d code %d", icmpType, icmpCode)
		return
	}
	d.match(not, or, "icmp type %d", icmpType)
}

func (d *describer) MatchIPSourcePortRange(not, or bool, start, end uint16) {
	d.match(not, or, "ip source port %d-%d", start, end)
}

func (d *describer) MatchIPDestPortRange(not, or bool, start, end uint16) {
	d.match(not, or, "ip dest port %d-%d", start, end)
}

func (d *describer) MatchCharacteristics(not, or bool, characteristics uint64) {
	d.match(not, or, "characteristics %016x", characteristics)
}

func (d *describer) MatchFrameSizeRange(not, or bool, start, end uint16) {
	d.match(not, or, "frame size %d-%d", start, end)
}

func (d *describer) MatchRandom(not, or bool, probability uint32) {
	d.match(not, or, "random %d", probability)
}

func (d *describer) MatchTagsDifference(not, or bool, id, value uint32) {
	d.match(not, or, "tags difference %d %d", id, value)
}

func (d *describer) MatchTagsBitwiseAnd(not, or bool, id, value uint32) {
	d.match(not, or, "tags and %d %d", id, value)
}

func (d *describer) MatchTagsBitwiseOr(not, or bool, id, value uint32) {
	d.match(not, or, "tags or %d %d", id, value)
}

func (d *describer) MatchTagsBitwiseXor(not, or bool, id, value uint32) {
	d.match(not, or, "tags xor %d %d", id, value)
}

func (d *describer) MatchTagsEqual(not, or bool, id, value uint32) {
	d.match(not, or, "tags equal %d %d", id, value)
}

func (d *describer) MatchTagSender(not, or bool, id, value uint32) {
	d.match(not, or, "tag sender %d %d", id, value)
}

func (d *describer) MatchTagReceiver(not, or bool, id, value uint32) {
	d.match(not, or, "tag receiver %d %d", id, value)
}

func (d *describer) MatchIntegerRange(not, or bool, start, end uint64, idx uint16, format uint8) {
	order := "be"
	if format&IntegerRangeLittle != 0 {
		order = "le"
	}
	d.match(not, or, "integer range %d-%d at %d bits %d %s", start, end, idx, format&IntegerRangeBitsMask+1, order)
}
