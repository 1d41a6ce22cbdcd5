// vl2rule/pkg/rule/names.go

package rule

// nameTable maps the symbolic name of every known opcode to the opcode. It is
// filled once at init and never modified afterwards.
var nameTable map[string]Opcode

func init() {
	nameTable = make(map[string]Opcode, len(opcodeNames))
	for i, name := range opcodeNames {
		if name != "" {
			nameTable[name] = Opcode(i)
		}
	}
}

// LookupName returns the opcode for an exact, case-sensitive symbolic name.
func LookupName(name string) (Opcode, bool) {
	op, ok := nameTable[name]
	return op, ok
}
