// vl2rule/pkg/rule/codec_test.go

package rule

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgehrsitz/vl2rule/pkg/logging"
	"rgehrsitz/vl2rule/pkg/wire"
)

// boundaryRules exercise extreme operand values. Some are not valid for Visit
// but must still survive the wire.
func boundaryRules() []Rule {
	return []Rule{
		{Opcode: ACTION_TEE, Value: Forward{Address: 0xffffffffff, Flags: 0xffffffff, Length: 0xffff}},
		{Opcode: ACTION_REDIRECT, Value: Forward{}},
		{Opcode: ACTION_PRIORITY, Value: Priority{QoSBucket: 0xff}},
		Match(MATCH_SOURCE_ZEROTIER_ADDRESS, true, true, NodeAddress{}),
		Match(MATCH_DEST_ZEROTIER_ADDRESS, false, false, NodeAddress{Address: 0xffffffffff}),
		Match(MATCH_VLAN_ID, false, false, VlanID{ID: 0xffff}),
		Match(MATCH_VLAN_PCP, false, false, VlanPCP{PCP: 0xff}),
		Match(MATCH_VLAN_DEI, false, false, VlanDEI{}),
		Match(MATCH_MAC_SOURCE, false, false, MACAddress{}),
		Match(MATCH_IPV4_SOURCE, false, false, IPv4{}),
		Match(MATCH_IPV4_DEST, true, true, IPv4{IP: [4]byte{255, 255, 255, 255}, Mask: 0xff}),
		Match(MATCH_IPV6_SOURCE, false, false, IPv6{}),
		Match(MATCH_IPV6_DEST, false, false, IPv6{
			IP:   [16]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			Mask: 128,
		}),
		Match(MATCH_IP_TOS, false, false, IPTos{Mask: 0xff, Value: [2]uint8{0xff, 0}}),
		Match(MATCH_ETHERTYPE, false, false, EtherType{Type: 0xffff}),
		Match(MATCH_ICMP, false, false, ICMP{Type: 0xff, Code: 0xff, Flags: 0xff}),
		Match(MATCH_IP_SOURCE_PORT_RANGE, false, false, PortRange{Start: 0xffff, End: 0}),
		Match(MATCH_CHARACTERISTICS, false, false, Characteristics{Mask: 0xffffffffffffffff}),
		Match(MATCH_RANDOM, false, false, Random{Probability: 0xffffffff}),
		Match(MATCH_TAG_SENDER, false, false, Tag{}),
		Match(MATCH_INTEGER_RANGE, true, false, IntegerRange{Start: 0xffffffffffffffff, End: 0xffffffffffffffff, Idx: 0xffff, Format: 0xff}),
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	rules := append(sampleRules(), boundaryRules()...)
	for _, r := range rules {
		for _, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
			in := r
			in.Not, in.Or = flags[0], flags[1]

			data, err := in.MarshalBinary()
			require.NoError(t, err)
			assert.Len(t, data, 2+PayloadSize(in.Opcode))
			assert.Equal(t, in.Tag(), data[0])

			rd := wire.NewReader(data)
			out, normalized, err := Unmarshal(rd)
			require.NoError(t, err, "opcode %s", in.Opcode)
			assert.False(t, normalized)
			assert.Equal(t, len(data), rd.Cursor())
			assert.True(t, in.Equal(out), "opcode %s: %s", in.Opcode, cmp.Diff(in, out))
		}
	}
}

func TestConcreteEncodings(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		expected []byte
	}{
		{"not ip protocol tcp", Match(MATCH_IP_PROTOCOL, true, false, IPProtocol{Protocol: 6}), []byte{0xa4, 0x01, 0x06}},
		{"accept", Action(ACTION_ACCEPT), []byte{0x01, 0x00}},
		{"drop", Rule{}, []byte{0x00, 0x00}},
		{"vlan id", Match(MATCH_VLAN_ID, false, false, VlanID{ID: 100}), []byte{26, 0x02, 0x00, 0x64}},
		{"source address", Match(MATCH_SOURCE_ZEROTIER_ADDRESS, false, false, NodeAddress{Address: testAddress}),
			[]byte{24, 0x05, 0x89, 0xe9, 0x2c, 0xee, 0xe5}},
		{"tee", Rule{Opcode: ACTION_TEE, Value: Forward{Address: testAddress, Flags: 0x01020304, Length: 0x0506}},
			[]byte{2, 14, 0x89, 0xe9, 0x2c, 0xee, 0xe5, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}},
		{"ipv4 source", Match(MATCH_IPV4_SOURCE, false, true, IPv4{IP: [4]byte{10, 0, 0, 1}, Mask: 32}),
			[]byte{0x40 | 31, 0x05, 10, 0, 0, 1, 32}},
		{"icmp", Match(MATCH_ICMP, false, false, ICMP{Type: 3, Code: 1, Flags: 1}), []byte{38, 3, 3, 1, 1}},
		{"port range", Match(MATCH_IP_DEST_PORT_RANGE, false, false, PortRange{Start: 80, End: 443}),
			[]byte{40, 4, 0x00, 0x50, 0x01, 0xbb}},
		{"tags", Match(MATCH_TAGS_EQUAL, false, false, Tag{ID: 1, Value: 2}), []byte{48, 8, 0, 0, 0, 1, 0, 0, 0, 2}},
		{"integer range", Match(MATCH_INTEGER_RANGE, false, false, IntegerRange{Start: 1, End: 2, Idx: 3, Format: 0x9f}),
			[]byte{51, 19, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 3, 0x9f}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.rule.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)

			var decoded Rule
			require.NoError(t, decoded.UnmarshalBinary(tt.expected))
			assert.True(t, tt.rule.Equal(decoded))
		})
	}
}

func TestDecodedProtocolVisit(t *testing.T) {
	var r Rule
	require.NoError(t, r.UnmarshalBinary([]byte{0xa4, 0x01, 0x06}))

	rec := newRecorder()
	assert.True(t, r.Visit(rec))
	assert.Equal(t, []call{{name: "MatchIPProtocol", not: true, or: false, args: []interface{}{uint8(6)}}}, rec.calls)
}

func TestPayloadSizes(t *testing.T) {
	expected := map[Opcode]int{
		ACTION_DROP: 0, ACTION_ACCEPT: 0, ACTION_BREAK: 0,
		ACTION_TEE: 14, ACTION_WATCH: 14, ACTION_REDIRECT: 14,
		ACTION_PRIORITY:               1,
		MATCH_SOURCE_ZEROTIER_ADDRESS: 5, MATCH_DEST_ZEROTIER_ADDRESS: 5,
		MATCH_VLAN_ID: 2, MATCH_VLAN_PCP: 1, MATCH_VLAN_DEI: 1,
		MATCH_MAC_SOURCE: 6, MATCH_MAC_DEST: 6,
		MATCH_IPV4_SOURCE: 5, MATCH_IPV4_DEST: 5,
		MATCH_IPV6_SOURCE: 17, MATCH_IPV6_DEST: 17,
		MATCH_IP_TOS: 3, MATCH_IP_PROTOCOL: 1, MATCH_ETHERTYPE: 2, MATCH_ICMP: 3,
		MATCH_IP_SOURCE_PORT_RANGE: 4, MATCH_IP_DEST_PORT_RANGE: 4,
		MATCH_CHARACTERISTICS: 8, MATCH_FRAME_SIZE_RANGE: 4, MATCH_RANDOM: 4,
		MATCH_TAGS_DIFFERENCE: 8, MATCH_TAGS_BITWISE_AND: 8, MATCH_TAGS_BITWISE_OR: 8,
		MATCH_TAGS_BITWISE_XOR: 8, MATCH_TAGS_EQUAL: 8, MATCH_TAG_SENDER: 8, MATCH_TAG_RECEIVER: 8,
		MATCH_INTEGER_RANGE: 19,
	}
	for _, op := range Opcodes() {
		size, ok := expected[op]
		require.True(t, ok, "missing %s", op)
		assert.Equal(t, size, PayloadSize(op), "opcode %s", op)
	}
	assert.Equal(t, 0, PayloadSize(63))

	data, err := Match(MATCH_INTEGER_RANGE, false, false, IntegerRange{}).MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, MaxEncodedSize)
}

func TestUnmarshalUnknownOpcode(t *testing.T) {
	tests := []struct {
		name    string
		tag     byte
		payload []byte
	}{
		{"opcode 63 with payload", 63, []byte{1, 2, 3}},
		{"opcode 7 empty", 7, nil},
		{"opcode 52 with flags", 0xc0 | 52, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte{tt.tag, byte(len(tt.payload))}, tt.payload...)
			// trailing accept rule must still be readable afterwards
			data = append(data, 0x01, 0x00)

			rd := wire.NewReader(data)
			r, normalized, err := Unmarshal(rd)
			require.NoError(t, err)
			assert.True(t, normalized)
			assert.Equal(t, Rule{}, r)
			assert.Equal(t, 2+len(tt.payload), rd.Cursor())

			next, normalized, err := Unmarshal(rd)
			require.NoError(t, err)
			assert.False(t, normalized)
			assert.Equal(t, Action(ACTION_ACCEPT), next)
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		underflow bool
	}{
		{"length longer than payload", []byte{26, 3, 0x00, 0x64, 0x00}, false},
		{"length shorter than payload", []byte{26, 1, 0x00, 0x64}, false},
		{"length on operand-free action", []byte{1, 1, 0x00}, false},
		{"truncated payload", []byte{26, 2, 0x00}, true},
		{"truncated length", []byte{26}, true},
		{"empty input", []byte{}, true},
		{"unknown opcode past end", []byte{63, 4, 1, 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Unmarshal(wire.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidData))
			assert.True(t, logging.IsType(err, logging.ErrorTypeDecode))
			assert.Equal(t, tt.underflow, errors.Is(err, wire.ErrUnderflow))
		})
	}
}

func TestUnmarshalBinaryTrailingBytes(t *testing.T) {
	var r Rule
	err := r.UnmarshalBinary([]byte{0x01, 0x00, 0x00})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidData))
}

func TestMarshalOverflow(t *testing.T) {
	w := wire.NewWriter(4)
	err := Match(MATCH_IPV6_SOURCE, false, false, IPv6{Mask: 64}).Marshal(w)
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrOverflow))
	assert.True(t, logging.IsType(err, logging.ErrorTypeEncode))
	// tag and length made it in before the payload failed
	assert.Equal(t, []byte{33, 17}, w.Bytes())
}

func TestMarshalMismatchedValue(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"ipv6 value on ipv4 match", Match(MATCH_IPV4_SOURCE, false, false, IPv6{IP: [16]byte{0: 0xfd, 15: 1}, Mask: 64})},
		{"ethertype value on vlan match", Match(MATCH_VLAN_ID, false, false, EtherType{Type: 0x0800})},
		{"payload on operand-free action", Rule{Opcode: ACTION_ACCEPT, Value: Priority{QoSBucket: 1}}},
		{"payload on unknown opcode", Rule{Opcode: 60, Value: VlanID{ID: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := wire.NewWriter(MaxEncodedSize)
			err := tt.rule.Marshal(w)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPayloadMismatch))
			assert.True(t, logging.IsType(err, logging.ErrorTypeEncode))
			assert.Equal(t, 0, w.Len())

			_, err = tt.rule.MarshalBinary()
			assert.Error(t, err)
			assert.Equal(t, "invalid", Describe(tt.rule))
		})
	}
}

func TestNilPayloadRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		expected []byte
	}{
		{"match constructor", Match(MATCH_VLAN_ID, true, false, nil), []byte{0x80 | 26, 2, 0, 0}},
		{"action constructor", Action(ACTION_PRIORITY), []byte{6, 1, 0}},
		{"literal", Rule{Opcode: MATCH_IP_DEST_PORT_RANGE}, []byte{40, 4, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.rule.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)

			var decoded Rule
			require.NoError(t, decoded.UnmarshalBinary(data))
			assert.True(t, tt.rule.Equal(decoded))
			assert.Equal(t, tt.rule.Fingerprint(), decoded.Fingerprint())
		})
	}

	// constructors fill the zero payload, so decoding gives back the same value
	r := Match(MATCH_VLAN_ID, false, false, nil)
	var decoded Rule
	require.NoError(t, decoded.UnmarshalBinary([]byte{26, 2, 0, 0}))
	assert.Equal(t, r, decoded)
	assert.Equal(t, Priority{}, Action(ACTION_PRIORITY).Value)
	assert.Nil(t, Action(ACTION_ACCEPT).Value)
}
