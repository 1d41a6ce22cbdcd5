// vl2rule/pkg/rule/opcode.go

package rule

import "fmt"

// Opcode identifies an action or a match condition. It occupies the low six
// bits of a rule's tag byte. Values are part of the wire format and must never
// be reassigned.
type Opcode byte

// Actions
const (
	ACTION_DROP Opcode = iota
	ACTION_ACCEPT
	ACTION_TEE
	ACTION_WATCH
	ACTION_REDIRECT
	ACTION_BREAK
	ACTION_PRIORITY
)

// Match conditions
const (
	MATCH_SOURCE_ZEROTIER_ADDRESS Opcode = iota + 24
	MATCH_DEST_ZEROTIER_ADDRESS
	MATCH_VLAN_ID
	MATCH_VLAN_PCP
	MATCH_VLAN_DEI
	MATCH_MAC_SOURCE
	MATCH_MAC_DEST
	MATCH_IPV4_SOURCE
	MATCH_IPV4_DEST
	MATCH_IPV6_SOURCE
	MATCH_IPV6_DEST
	MATCH_IP_TOS
	MATCH_IP_PROTOCOL
	MATCH_ETHERTYPE
	MATCH_ICMP
	MATCH_IP_SOURCE_PORT_RANGE
	MATCH_IP_DEST_PORT_RANGE
	MATCH_CHARACTERISTICS
	MATCH_FRAME_SIZE_RANGE
	MATCH_RANDOM
	MATCH_TAGS_DIFFERENCE
	MATCH_TAGS_BITWISE_AND
	MATCH_TAGS_BITWISE_OR
	MATCH_TAGS_BITWISE_XOR
	MATCH_TAGS_EQUAL
	MATCH_TAG_SENDER
	MATCH_TAG_RECEIVER
	MATCH_INTEGER_RANGE
)

// Tag byte layout
const (
	OpcodeMask = 0x3f
	FlagNot    = 0x80
	FlagOr     = 0x40
)

// Characteristic bits tested by MATCH_CHARACTERISTICS.
const (
	CHARACTERISTIC_INBOUND                  uint64 = 0x8000000000000000
	CHARACTERISTIC_MULTICAST                uint64 = 0x4000000000000000
	CHARACTERISTIC_BROADCAST                uint64 = 0x2000000000000000
	CHARACTERISTIC_SENDER_IP_AUTHENTICATED  uint64 = 0x1000000000000000
	CHARACTERISTIC_SENDER_MAC_AUTHENTICATED uint64 = 0x0800000000000000
	CHARACTERISTIC_TCP_FLAG_NS              uint64 = 0x0000000000000100
	CHARACTERISTIC_TCP_FLAG_CWR             uint64 = 0x0000000000000080
	CHARACTERISTIC_TCP_FLAG_ECE             uint64 = 0x0000000000000040
	CHARACTERISTIC_TCP_FLAG_URG             uint64 = 0x0000000000000020
	CHARACTERISTIC_TCP_FLAG_ACK             uint64 = 0x0000000000000010
	CHARACTERISTIC_TCP_FLAG_PSH             uint64 = 0x0000000000000008
	CHARACTERISTIC_TCP_FLAG_RST             uint64 = 0x0000000000000004
	CHARACTERISTIC_TCP_FLAG_SYN             uint64 = 0x0000000000000002
	CHARACTERISTIC_TCP_FLAG_FIN             uint64 = 0x0000000000000001
	CHARACTERISTIC_TCP_FLAGS_MASK           uint64 = 0x00000000000001ff
)

// ICMP flag bits carried in the MATCH_ICMP payload.
const (
	ICMP_FLAG_CODE_PRESENT uint8 = 0x01
)

// INTEGER_RANGE format byte layout: low six bits hold bits-1, the top bit
// selects little-endian.
const (
	IntegerRangeBitsMask = 0x3f
	IntegerRangeLittle   = 0x80
)

var opcodeNames = [...]string{
	ACTION_DROP:                   "ACTION_DROP",
	ACTION_ACCEPT:                 "ACTION_ACCEPT",
	ACTION_TEE:                    "ACTION_TEE",
	ACTION_WATCH:                  "ACTION_WATCH",
	ACTION_REDIRECT:               "ACTION_REDIRECT",
	ACTION_BREAK:                  "ACTION_BREAK",
	ACTION_PRIORITY:               "ACTION_PRIORITY",
	MATCH_SOURCE_ZEROTIER_ADDRESS: "MATCH_SOURCE_ZEROTIER_ADDRESS",
	MATCH_DEST_ZEROTIER_ADDRESS:   "MATCH_DEST_ZEROTIER_ADDRESS",
	MATCH_VLAN_ID:                 "MATCH_VLAN_ID",
	MATCH_VLAN_PCP:                "MATCH_VLAN_PCP",
	MATCH_VLAN_DEI:                "MATCH_VLAN_DEI",
	MATCH_MAC_SOURCE:              "MATCH_MAC_SOURCE",
	MATCH_MAC_DEST:                "MATCH_MAC_DEST",
	MATCH_IPV4_SOURCE:             "MATCH_IPV4_SOURCE",
	MATCH_IPV4_DEST:               "MATCH_IPV4_DEST",
	MATCH_IPV6_SOURCE:             "MATCH_IPV6_SOURCE",
	MATCH_IPV6_DEST:               "MATCH_IPV6_DEST",
	MATCH_IP_TOS:                  "MATCH_IP_TOS",
	MATCH_IP_PROTOCOL:             "MATCH_IP_PROTOCOL",
	MATCH_ETHERTYPE:               "MATCH_ETHERTYPE",
	MATCH_ICMP:                    "MATCH_ICMP",
	MATCH_IP_SOURCE_PORT_RANGE:    "MATCH_IP_SOURCE_PORT_RANGE",
	MATCH_IP_DEST_PORT_RANGE:      "MATCH_IP_DEST_PORT_RANGE",
	MATCH_CHARACTERISTICS:         "MATCH_CHARACTERISTICS",
	MATCH_FRAME_SIZE_RANGE:        "MATCH_FRAME_SIZE_RANGE",
	MATCH_RANDOM:                  "MATCH_RANDOM",
	MATCH_TAGS_DIFFERENCE:         "MATCH_TAGS_DIFFERENCE",
	MATCH_TAGS_BITWISE_AND:        "MATCH_TAGS_BITWISE_AND",
	MATCH_TAGS_BITWISE_OR:         "MATCH_TAGS_BITWISE_OR",
	MATCH_TAGS_BITWISE_XOR:        "MATCH_TAGS_BITWISE_XOR",
	MATCH_TAGS_EQUAL:              "MATCH_TAGS_EQUAL",
	MATCH_TAG_SENDER:              "MATCH_TAG_SENDER",
	MATCH_TAG_RECEIVER:            "MATCH_TAG_RECEIVER",
	MATCH_INTEGER_RANGE:           "MATCH_INTEGER_RANGE",
}

// Known reports whether op is part of the instruction set.
func (op Opcode) Known() bool {
	return int(op) < len(opcodeNames) && opcodeNames[op] != ""
}

// IsAction reports whether op is one of the seven actions.
func (op Opcode) IsAction() bool {
	return op <= ACTION_PRIORITY
}

// String returns the symbolic name of an opcode, as used in human-readable
// rules.
func (op Opcode) String() string {
	if !op.Known() {
		return fmt.Sprintf("Opcode(%d)", op)
	}
	return opcodeNames[op]
}

// Opcodes returns every known opcode in ascending order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(nameTable))
	for i := range opcodeNames {
		if op := Opcode(i); op.Known() {
			ops = append(ops, op)
		}
	}
	return ops
}
