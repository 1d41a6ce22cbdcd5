// vl2rule/pkg/rule/codec.go

package rule

import (
	"errors"
	"fmt"
	"reflect"

	"rgehrsitz/vl2rule/pkg/logging"
	"rgehrsitz/vl2rule/pkg/wire"
)

// MaxEncodedSize is the largest wire size of a single rule: tag, length and
// the 19 byte MATCH_INTEGER_RANGE payload.
const MaxEncodedSize = 2 + 19

var (
	// ErrInvalidData is wrapped by every structural decode failure.
	ErrInvalidData = errors.New("invalid data")
	// ErrPayloadMismatch is wrapped when a rule's Value is not of its
	// opcode's payload family.
	ErrPayloadMismatch = errors.New("payload does not match opcode")
)

// zeroValue returns the zero payload of op's family, or nil for opcodes that
// carry no operand (including unknown ones).
func zeroValue(op Opcode) Value {
	switch op {
	case ACTION_TEE, ACTION_WATCH, ACTION_REDIRECT:
		return Forward{}
	case ACTION_PRIORITY:
		return Priority{}
	case MATCH_SOURCE_ZEROTIER_ADDRESS, MATCH_DEST_ZEROTIER_ADDRESS:
		return NodeAddress{}
	case MATCH_VLAN_ID:
		return VlanID{}
	case MATCH_VLAN_PCP:
		return VlanPCP{}
	case MATCH_VLAN_DEI:
		return VlanDEI{}
	case MATCH_MAC_SOURCE, MATCH_MAC_DEST:
		return MACAddress{}
	case MATCH_IPV4_SOURCE, MATCH_IPV4_DEST:
		return IPv4{}
	case MATCH_IPV6_SOURCE, MATCH_IPV6_DEST:
		return IPv6{}
	case MATCH_IP_TOS:
		return IPTos{}
	case MATCH_IP_PROTOCOL:
		return IPProtocol{}
	case MATCH_ETHERTYPE:
		return EtherType{}
	case MATCH_ICMP:
		return ICMP{}
	case MATCH_IP_SOURCE_PORT_RANGE, MATCH_IP_DEST_PORT_RANGE:
		return PortRange{}
	case MATCH_CHARACTERISTICS:
		return Characteristics{}
	case MATCH_FRAME_SIZE_RANGE:
		return FrameSizeRange{}
	case MATCH_RANDOM:
		return Random{}
	case MATCH_TAGS_DIFFERENCE, MATCH_TAGS_BITWISE_AND, MATCH_TAGS_BITWISE_OR,
		MATCH_TAGS_BITWISE_XOR, MATCH_TAGS_EQUAL, MATCH_TAG_SENDER, MATCH_TAG_RECEIVER:
		return Tag{}
	case MATCH_INTEGER_RANGE:
		return IntegerRange{}
	default:
		return nil
	}
}

// payloadFits reports whether r.Value is nil or of the payload family of r's
// opcode.
func (r Rule) payloadFits() bool {
	if r.Value == nil {
		return true
	}
	zero := zeroValue(r.ActionOrCondition())
	return zero != nil && reflect.TypeOf(r.Value) == reflect.TypeOf(zero)
}

// PayloadSize returns the encoded payload length for op.
func PayloadSize(op Opcode) int {
	if v := zeroValue(op); v != nil {
		return v.encodedSize()
	}
	return 0
}

// Marshal appends the wire form of r to w. A nil Value encodes as the zero
// payload; a Value of another family is an error and nothing is written. On
// a write failure w keeps whatever was appended before it.
func (r Rule) Marshal(w *wire.Writer) error {
	op := r.ActionOrCondition()
	if !r.payloadFits() {
		return encodeError(op, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, r.Value, op))
	}
	if err := w.AppendU8(r.Tag()); err != nil {
		return encodeError(op, err)
	}
	if err := w.AppendU8(uint8(PayloadSize(op))); err != nil {
		return encodeError(op, err)
	}
	if err := r.marshalValue(w); err != nil {
		return encodeError(op, err)
	}
	return nil
}

func (r Rule) marshalValue(w *wire.Writer) error {
	switch zeroValue(r.ActionOrCondition()).(type) {
	case Forward:
		p := payload[Forward](r)
		return appendAll(
			func() error { return w.AppendU40(p.Address) },
			func() error { return w.AppendU32(p.Flags) },
			func() error { return w.AppendU16(p.Length) },
		)
	case Priority:
		return w.AppendU8(payload[Priority](r).QoSBucket)
	case NodeAddress:
		return w.AppendU40(payload[NodeAddress](r).Address)
	case VlanID:
		return w.AppendU16(payload[VlanID](r).ID)
	case VlanPCP:
		return w.AppendU8(payload[VlanPCP](r).PCP)
	case VlanDEI:
		return w.AppendU8(payload[VlanDEI](r).DEI)
	case MACAddress:
		p := payload[MACAddress](r)
		return w.AppendBytes(p.MAC[:])
	case IPv4:
		p := payload[IPv4](r)
		return appendAll(
			func() error { return w.AppendBytes(p.IP[:]) },
			func() error { return w.AppendU8(p.Mask) },
		)
	case IPv6:
		p := payload[IPv6](r)
		return appendAll(
			func() error { return w.AppendBytes(p.IP[:]) },
			func() error { return w.AppendU8(p.Mask) },
		)
	case IPTos:
		p := payload[IPTos](r)
		return appendAll(
			func() error { return w.AppendU8(p.Mask) },
			func() error { return w.AppendBytes(p.Value[:]) },
		)
	case IPProtocol:
		return w.AppendU8(payload[IPProtocol](r).Protocol)
	case EtherType:
		return w.AppendU16(payload[EtherType](r).Type)
	case ICMP:
		p := payload[ICMP](r)
		return w.AppendBytes([]byte{p.Type, p.Code, p.Flags})
	case PortRange:
		p := payload[PortRange](r)
		return appendAll(
			func() error { return w.AppendU16(p.Start) },
			func() error { return w.AppendU16(p.End) },
		)
	case Characteristics:
		return w.AppendU64(payload[Characteristics](r).Mask)
	case FrameSizeRange:
		p := payload[FrameSizeRange](r)
		return appendAll(
			func() error { return w.AppendU16(p.Start) },
			func() error { return w.AppendU16(p.End) },
		)
	case Random:
		return w.AppendU32(payload[Random](r).Probability)
	case Tag:
		p := payload[Tag](r)
		return appendAll(
			func() error { return w.AppendU32(p.ID) },
			func() error { return w.AppendU32(p.Value) },
		)
	case IntegerRange:
		p := payload[IntegerRange](r)
		return appendAll(
			func() error { return w.AppendU64(p.Start) },
			func() error { return w.AppendU64(p.End) },
			func() error { return w.AppendU16(p.Idx) },
			func() error { return w.AppendU8(p.Format) },
		)
	}
	return nil
}

func appendAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal reads one rule from rd.
//
// A rule whose opcode is not known decodes as the zero ACTION_DROP rule with
// its declared payload skipped; normalized is true in that case. A known
// opcode whose fields do not consume exactly the declared payload length is an
// error wrapping ErrInvalidData.
func Unmarshal(rd *wire.Reader) (r Rule, normalized bool, err error) {
	start := rd.Cursor()
	tag, err := rd.ReadU8()
	if err != nil {
		return Rule{}, false, decodeError("truncated rule tag", start, 0, err)
	}
	length, err := rd.ReadU8()
	if err != nil {
		return Rule{}, false, decodeError("truncated rule length", start, Opcode(tag&OpcodeMask), err)
	}
	end := rd.Cursor() + int(length)

	op := Opcode(tag & OpcodeMask)
	if !op.Known() {
		if err := rd.SetCursor(end); err != nil {
			return Rule{}, false, decodeError("truncated rule payload", start, op, err)
		}
		logging.Logger.Debug().Uint8("opcode", uint8(op)).Uint8("length", length).Int("offset", start).
			Msg("Normalized unknown rule opcode to ACTION_DROP")
		return Rule{}, true, nil
	}

	r = Rule{Opcode: op, Not: tag&FlagNot != 0, Or: tag&FlagOr != 0}
	if r.Value, err = readValue(rd, op); err != nil {
		return Rule{}, false, decodeError("truncated rule payload", start, op, err)
	}
	if rd.Cursor() != end {
		return Rule{}, false, decodeError("rule payload length mismatch", start, op, nil)
	}
	return r, false, nil
}

func readValue(rd *wire.Reader, op Opcode) (Value, error) {
	var err error
	u8 := func() uint8 {
		if err != nil {
			return 0
		}
		var v uint8
		v, err = rd.ReadU8()
		return v
	}
	u16 := func() uint16 {
		if err != nil {
			return 0
		}
		var v uint16
		v, err = rd.ReadU16()
		return v
	}
	u32 := func() uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = rd.ReadU32()
		return v
	}
	u64 := func() uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = rd.ReadU64()
		return v
	}
	u40 := func() uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = rd.ReadU40()
		return v
	}
	bytes := func(dst []byte) {
		if err != nil {
			return
		}
		var b []byte
		if b, err = rd.ReadBytes(len(dst)); err == nil {
			copy(dst, b)
		}
	}

	var v Value
	switch zeroValue(op).(type) {
	case Forward:
		v = Forward{Address: u40(), Flags: u32(), Length: u16()}
	case Priority:
		v = Priority{QoSBucket: u8()}
	case NodeAddress:
		v = NodeAddress{Address: u40()}
	case VlanID:
		v = VlanID{ID: u16()}
	case VlanPCP:
		v = VlanPCP{PCP: u8()}
	case VlanDEI:
		v = VlanDEI{DEI: u8()}
	case MACAddress:
		var p MACAddress
		bytes(p.MAC[:])
		v = p
	case IPv4:
		var p IPv4
		bytes(p.IP[:])
		p.Mask = u8()
		v = p
	case IPv6:
		var p IPv6
		bytes(p.IP[:])
		p.Mask = u8()
		v = p
	case IPTos:
		var p IPTos
		p.Mask = u8()
		bytes(p.Value[:])
		v = p
	case IPProtocol:
		v = IPProtocol{Protocol: u8()}
	case EtherType:
		v = EtherType{Type: u16()}
	case ICMP:
		v = ICMP{Type: u8(), Code: u8(), Flags: u8()}
	case PortRange:
		v = PortRange{Start: u16(), End: u16()}
	case Characteristics:
		v = Characteristics{Mask: u64()}
	case FrameSizeRange:
		v = FrameSizeRange{Start: u16(), End: u16()}
	case Random:
		v = Random{Probability: u32()}
	case Tag:
		v = Tag{ID: u32(), Value: u32()}
	case IntegerRange:
		v = IntegerRange{Start: u64(), End: u64(), Idx: u16(), Format: u8()}
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalBinary returns the wire form of r.
func (r Rule) MarshalBinary() ([]byte, error) {
	w := wire.NewWriter(MaxEncodedSize)
	if err := r.Marshal(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnmarshalBinary decodes exactly one rule from data. Trailing bytes are an
// error.
func (r *Rule) UnmarshalBinary(data []byte) error {
	rd := wire.NewReader(data)
	decoded, _, err := Unmarshal(rd)
	if err != nil {
		return err
	}
	if rd.Remaining() != 0 {
		return decodeError("trailing bytes after rule", 0, decoded.Opcode, nil)
	}
	*r = decoded
	return nil
}

func encodeError(op Opcode, err error) error {
	return logging.NewError(logging.ErrorTypeEncode, "failed to write rule", err, map[string]interface{}{
		"opcode": op.String(),
	})
}

func decodeError(message string, offset int, op Opcode, cause error) error {
	err := ErrInvalidData
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidData, cause)
	}
	return logging.NewError(logging.ErrorTypeDecode, message, err, map[string]interface{}{
		"offset": offset,
		"opcode": op.String(),
	})
}
