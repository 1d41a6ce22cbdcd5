// vl2rule/tools/rule_gen/main.go

package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/schollz/progressbar/v3"

	"rgehrsitz/vl2rule/pkg/netid"
	"rgehrsitz/vl2rule/pkg/rule"
	"rgehrsitz/vl2rule/pkg/ruleset"
)

type genConfig struct {
	NumRules   int
	OutputFile string
	Format     ruleset.Format
	Verify     bool
}

func parseFlags(args []string) (*genConfig, error) {
	fs := flag.NewFlagSet("rule_gen", flag.ContinueOnError)
	numRules := fs.Int("rules", 1000, "Number of rules to generate")
	outputFile := fs.String("output", "generated_rules.json", "Output file name")
	format := fs.String("format", "json", "Output format: json, yaml or toml")
	verify := fs.Bool("verify", false, "Round-trip the generated rules through the wire codec and the document format")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f, err := ruleset.ParseFormat(*format)
	if err != nil {
		return nil, err
	}
	if *numRules < 0 {
		return nil, fmt.Errorf("rules must not be negative: %d", *numRules)
	}
	return &genConfig{NumRules: *numRules, OutputFile: *outputFile, Format: f, Verify: *verify}, nil
}

func randomAddress() uint64 {
	return uint64(gofakeit.Number(1, 0xfeffffffff))
}

func randomMAC() netid.MAC {
	for {
		if m, err := netid.ParseMAC(gofakeit.MacAddress()); err == nil {
			return m
		}
	}
}

func randomIPv4() [4]byte {
	ip, err := netid.ParseInetAddress(gofakeit.IPv4Address())
	if err != nil || !ip.Is4() {
		return [4]byte{10, 0, 0, 1}
	}
	return ip.As4()
}

func randomIPv6() [16]byte {
	ip, err := netid.ParseInetAddress(gofakeit.IPv6Address())
	if err != nil || !ip.Is6() {
		return [16]byte{0: 0xfd, 15: 1}
	}
	return ip.As16()
}

// randomSpan returns an ordered pair in [0, max].
func randomSpan(max int) (int, int) {
	a, b := gofakeit.Number(0, max), gofakeit.Number(0, max)
	if a > b {
		a, b = b, a
	}
	return a, b
}

func generateValue(op rule.Opcode) rule.Value {
	switch op {
	case rule.ACTION_TEE, rule.ACTION_WATCH, rule.ACTION_REDIRECT:
		return rule.Forward{Address: randomAddress(), Flags: gofakeit.Uint32(), Length: gofakeit.Uint16()}
	case rule.ACTION_PRIORITY:
		return rule.Priority{QoSBucket: uint8(gofakeit.Number(0, 7))}
	case rule.MATCH_SOURCE_ZEROTIER_ADDRESS, rule.MATCH_DEST_ZEROTIER_ADDRESS:
		return rule.NodeAddress{Address: randomAddress()}
	case rule.MATCH_VLAN_ID:
		return rule.VlanID{ID: uint16(gofakeit.Number(1, 4094))}
	case rule.MATCH_VLAN_PCP:
		return rule.VlanPCP{PCP: uint8(gofakeit.Number(0, 7))}
	case rule.MATCH_VLAN_DEI:
		return rule.VlanDEI{DEI: uint8(gofakeit.Number(0, 1))}
	case rule.MATCH_MAC_SOURCE, rule.MATCH_MAC_DEST:
		return rule.MACAddress{MAC: randomMAC()}
	case rule.MATCH_IPV4_SOURCE, rule.MATCH_IPV4_DEST:
		return rule.IPv4{IP: randomIPv4(), Mask: uint8(gofakeit.Number(0, 32))}
	case rule.MATCH_IPV6_SOURCE, rule.MATCH_IPV6_DEST:
		return rule.IPv6{IP: randomIPv6(), Mask: uint8(gofakeit.Number(0, 128))}
	case rule.MATCH_IP_TOS:
		start, end := randomSpan(math.MaxUint8)
		return rule.IPTos{Mask: gofakeit.Uint8(), Value: [2]uint8{uint8(start), uint8(end)}}
	case rule.MATCH_IP_PROTOCOL:
		return rule.IPProtocol{Protocol: uint8(gofakeit.RandomUint([]uint{1, 6, 17, 58, 132}))}
	case rule.MATCH_ETHERTYPE:
		return rule.EtherType{Type: uint16(gofakeit.RandomUint([]uint{0x0800, 0x0806, 0x86dd, 0x8100}))}
	case rule.MATCH_ICMP:
		v := rule.ICMP{Type: uint8(gofakeit.Number(0, 255))}
		if gofakeit.Bool() {
			v.Code = uint8(gofakeit.Number(0, 15))
			v.Flags = rule.ICMP_FLAG_CODE_PRESENT
		}
		return v
	case rule.MATCH_IP_SOURCE_PORT_RANGE, rule.MATCH_IP_DEST_PORT_RANGE:
		start, end := randomSpan(math.MaxUint16)
		return rule.PortRange{Start: uint16(start), End: uint16(end)}
	case rule.MATCH_CHARACTERISTICS:
		return rule.Characteristics{Mask: gofakeit.Uint64()}
	case rule.MATCH_FRAME_SIZE_RANGE:
		start, end := randomSpan(9000)
		return rule.FrameSizeRange{Start: uint16(start), End: uint16(end)}
	case rule.MATCH_RANDOM:
		return rule.Random{Probability: gofakeit.Uint32()}
	case rule.MATCH_TAGS_DIFFERENCE, rule.MATCH_TAGS_BITWISE_AND, rule.MATCH_TAGS_BITWISE_OR,
		rule.MATCH_TAGS_BITWISE_XOR, rule.MATCH_TAGS_EQUAL, rule.MATCH_TAG_SENDER, rule.MATCH_TAG_RECEIVER:
		return rule.Tag{ID: gofakeit.Uint32(), Value: gofakeit.Uint32()}
	case rule.MATCH_INTEGER_RANGE:
		// bounded so the value also fits TOML's signed integers
		start, end := randomSpan(math.MaxInt32)
		bits := uint8(gofakeit.Number(1, 64))
		return rule.IntegerRange{
			Start:  uint64(start),
			End:    uint64(end),
			Idx:    uint16(gofakeit.Number(0, 1500)),
			Format: rule.IntegerRangeFormat(bits, gofakeit.Bool()),
		}
	}
	return nil
}

func generateRule() rule.Rule {
	ops := rule.Opcodes()
	op := ops[gofakeit.Number(0, len(ops)-1)]
	if op.IsAction() {
		return rule.Rule{Opcode: op, Value: generateValue(op)}
	}
	return rule.Match(op, gofakeit.Bool(), gofakeit.Bool(), generateValue(op))
}

func generateRules(n int, progress io.Writer) []rule.Rule {
	bar := progressbar.NewOptions(n,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("generating rules"),
	)
	rules := make([]rule.Rule, n)
	for i := range rules {
		rules[i] = generateRule()
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return rules
}

// verifyRules checks that rules survive both the wire codec and the
// document format unchanged.
func verifyRules(rules []rule.Rule, format ruleset.Format) error {
	data, err := ruleset.Encode(rules, len(rules)*rule.MaxEncodedSize)
	if err != nil {
		return err
	}
	decoded, _, err := ruleset.Decode(data)
	if err != nil {
		return err
	}
	if err := compareRules(rules, decoded); err != nil {
		return fmt.Errorf("wire round trip: %w", err)
	}

	doc, err := ruleset.Dump(rules, format)
	if err != nil {
		return err
	}
	loaded, err := ruleset.Load(doc, format)
	if err != nil {
		return err
	}
	if err := compareRules(rules, loaded); err != nil {
		return fmt.Errorf("%s round trip: %w", format, err)
	}
	return nil
}

func compareRules(want, got []rule.Rule) error {
	if len(want) != len(got) {
		return fmt.Errorf("got %d rules, want %d", len(got), len(want))
	}
	for i := range want {
		if !want[i].Equal(got[i]) {
			return fmt.Errorf("rule %d: got %q, want %q", i, rule.Describe(got[i]), rule.Describe(want[i]))
		}
	}
	return nil
}

func writeRulesToFile(rules []rule.Rule, format ruleset.Format, outputFile string) error {
	data, err := ruleset.Dump(rules, format)
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, data, 0o644)
}

func run(args []string, stdout, progress io.Writer) error {
	config, err := parseFlags(args)
	if err != nil {
		return err
	}

	rules := generateRules(config.NumRules, progress)
	if config.Verify {
		if err := verifyRules(rules, config.Format); err != nil {
			return err
		}
	}
	if err := writeRulesToFile(rules, config.Format, config.OutputFile); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Generated %d rules. Saved to %s\n", config.NumRules, config.OutputFile)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
