package ilwire

import (
	"fmt"
	"strings"

	"github.com/pilc-lang/pilc/internal/il"
)

var opcodeNames = map[il.Opcode]string{
	il.OpComment:         "comment",
	il.OpAssign:          "assign",
	il.OpCallVoid:        "call.void",
	il.OpCall:            "call",
	il.OpJump:            "jump",
	il.OpIfElse:          "if.else",
	il.OpSwitch:          "switch",
	il.OpBegin:           "begin",
	il.OpEnd:             "end",
	il.OpEqual:           "equal",
	il.OpNotEqual:        "notequal",
	il.OpLess:            "less",
	il.OpLessEqual:       "lessequal",
	il.OpGreater:         "greater",
	il.OpGreaterEqual:    "greaterequal",
	il.OpLogicalAnd:      "and",
	il.OpLogicalOr:       "or",
	il.OpDeref:           "deref",
	il.OpIncr:            "incr",
	il.OpPack:            "pack",
	il.OpSelectValue:     "select",
	il.OpBitOr:           "bitor",
	il.OpTupleIndex:      "tupleindex",
	il.OpNewException:    "new.exception",
	il.OpThrow:           "throw",
	il.OpDebugMsg:        "debug.msg",
	il.OpDebugPushIndent: "debug.push",
	il.OpDebugPopIndent:  "debug.pop",
}

func opcodeName(op il.Opcode) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(op))
}

func valueText(v il.Value) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case il.IDValue:
		return val.ID.String()
	case il.ConstValue:
		return fmt.Sprintf("%v", val.Go)
	case il.NullValue:
		return "null"
	case il.BlockValue:
		if val.Block == nil {
			return "@?"
		}
		return "@" + val.Block.Label
	default:
		return fmt.Sprintf("%v", v)
	}
}

// dumpBody renders a function body as a flat text trace, the wire
// payload a downstream backend without direct access to internal/il
// can still read: one line per instruction, blocks delimited by
// label headers. It is deliberately not meant to be re-parsed back
// into an *il.Body — SubmitModule hands off a finished module, it
// does not round-trip through ilwire.
func dumpBody(b *il.Body) string {
	var sb strings.Builder
	for _, block := range b.Blocks {
		fmt.Fprintf(&sb, "%s:\n", block.Label)
		for _, instr := range block.Instructions {
			dumpInstruction(&sb, instr)
		}
	}
	return sb.String()
}

func dumpInstruction(sb *strings.Builder, instr il.Instruction) {
	sb.WriteString("  ")
	if instr.Target != nil {
		sb.WriteString(valueText(instr.Target))
		sb.WriteString(" = ")
	}
	sb.WriteString(opcodeName(instr.Op))
	for _, a := range instr.Args {
		sb.WriteString(" ")
		sb.WriteString(valueText(a))
	}
	if instr.Op == il.OpSwitch {
		for _, c := range instr.Cases {
			sb.WriteString(" case(")
			for i, v := range c.Values {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(valueText(v))
			}
			sb.WriteString(")->")
			if c.Target != nil {
				sb.WriteString(c.Target.Label)
			}
		}
	}
	if instr.Comment != "" {
		sb.WriteString(" ; ")
		sb.WriteString(instr.Comment)
	}
	sb.WriteString("\n")
}
