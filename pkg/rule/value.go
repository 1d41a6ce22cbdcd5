// vl2rule/pkg/rule/value.go

package rule

// Value is the operand payload of a rule. Which concrete type is meaningful is
// decided by the rule's opcode alone. A nil Value reads as the zero value of
// the opcode's family; a Value of another family fails to encode. All
// implementations are comparable so Rule values can be compared with ==.
type Value interface {
	encodedSize() int
}

// Forward is the payload of ACTION_TEE, ACTION_WATCH and ACTION_REDIRECT.
// Address holds a node id; only its low 40 bits go on the wire.
type Forward struct {
	Address uint64
	Flags   uint32
	Length  uint16
}

type Priority struct {
	QoSBucket uint8
}

// NodeAddress is the payload of the ZeroTier address matches.
type NodeAddress struct {
	Address uint64
}

type VlanID struct {
	ID uint16
}

type VlanPCP struct {
	PCP uint8
}

type VlanDEI struct {
	DEI uint8
}

type MACAddress struct {
	MAC [6]byte
}

type IPv4 struct {
	IP   [4]byte
	Mask uint8
}

type IPv6 struct {
	IP   [16]byte
	Mask uint8
}

// IPTos matches (tos & Mask) within [Value[0], Value[1]].
type IPTos struct {
	Mask  uint8
	Value [2]uint8
}

type IPProtocol struct {
	Protocol uint8
}

type EtherType struct {
	Type uint16
}

// ICMP carries type, code and flags. Code is only significant when Flags has
// ICMP_FLAG_CODE_PRESENT set.
type ICMP struct {
	Type  uint8
	Code  uint8
	Flags uint8
}

// PortRange is the payload of the source and destination port range matches.
type PortRange struct {
	Start uint16
	End   uint16
}

type Characteristics struct {
	Mask uint64
}

type FrameSizeRange struct {
	Start uint16
	End   uint16
}

// Random matches with probability Probability/2^32.
type Random struct {
	Probability uint32
}

// Tag is the payload of every tag match family.
type Tag struct {
	ID    uint32
	Value uint32
}

// IntegerRange matches an integer of (Format&IntegerRangeBitsMask)+1 bits read
// at byte index Idx of the frame against [Start, End].
type IntegerRange struct {
	Start  uint64
	End    uint64
	Idx    uint16
	Format uint8
}

func (Forward) encodedSize() int         { return 14 }
func (Priority) encodedSize() int        { return 1 }
func (NodeAddress) encodedSize() int     { return 5 }
func (VlanID) encodedSize() int          { return 2 }
func (VlanPCP) encodedSize() int         { return 1 }
func (VlanDEI) encodedSize() int         { return 1 }
func (MACAddress) encodedSize() int      { return 6 }
func (IPv4) encodedSize() int            { return 5 }
func (IPv6) encodedSize() int            { return 17 }
func (IPTos) encodedSize() int           { return 3 }
func (IPProtocol) encodedSize() int      { return 1 }
func (EtherType) encodedSize() int       { return 2 }
func (ICMP) encodedSize() int            { return 3 }
func (PortRange) encodedSize() int       { return 4 }
func (Characteristics) encodedSize() int { return 8 }
func (FrameSizeRange) encodedSize() int  { return 4 }
func (Random) encodedSize() int          { return 4 }
func (Tag) encodedSize() int             { return 8 }
func (IntegerRange) encodedSize() int    { return 19 }

// IntegerRangeFormat packs a bit width in [1,64] and byte order into the
// INTEGER_RANGE format byte.
func IntegerRangeFormat(bits uint8, little bool) uint8 {
	f := (bits - 1) & IntegerRangeBitsMask
	if little {
		f |= IntegerRangeLittle
	}
	return f
}

// Bits returns the integer width selected by the format byte.
func (v IntegerRange) Bits() uint8 {
	return v.Format&IntegerRangeBitsMask + 1
}

// Little reports whether the integer is read little-endian.
func (v IntegerRange) Little() bool {
	return v.Format&IntegerRangeLittle != 0
}

func payload[T Value](r Rule) T {
	v, _ := r.Value.(T)
	return v
}
