package model

import (
	"fmt"
	"strings"
)

// Dump renders a stable, human-readable description of a resolved file.
// Output depends only on the model's contents, so it can be compared across
// runs; tests use it to pin resolution results.
func Dump(f *File) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "file %s\n", f.Path)
	for _, imp := range f.Imports {
		if imp.Aliased() {
			fmt.Fprintf(&sb, "import %s as %s\n", imp.Path, imp.Alias)
		} else {
			fmt.Fprintf(&sb, "import %s\n", imp.Path)
		}
	}
	dumpNamespace(&sb, f.Namespace, 0)
	return sb.String()
}

func dumpNamespace(sb *strings.Builder, ns *Namespace, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%snamespace %s\n", indent, ns.Name)
	for _, c := range ns.Compounds {
		dumpCompound(sb, c, depth+1)
	}
	for _, e := range ns.Enums {
		dumpEnum(sb, e, depth+1)
	}
	for _, m := range ns.Messages {
		dumpMessage(sb, m, depth+1)
	}
	for _, child := range ns.Namespaces {
		dumpNamespace(sb, child, depth+1)
	}
}

func dumpCompound(sb *strings.Builder, c *Compound, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%scompound %s %s { %s }\n", indent, c.Base, c.Name, strings.Join(c.Components, ", "))
}

func dumpEnum(sb *strings.Builder, e *Enum, depth int) {
	indent := strings.Repeat("  ", depth)
	sign := "unsigned"
	if e.Signed {
		sign = "signed"
	}
	fmt.Fprintf(sb, "%s%s %s", indent, e.Kind, e.Name)
	if e.Parent != nil {
		fmt.Fprintf(sb, " : %s", e.Parent.FullName())
	}
	fmt.Fprintf(sb, " (%d-bit %s)\n", e.Width, sign)
	for _, v := range e.Values {
		fmt.Fprintf(sb, "%s  %s = %d\n", indent, v.Name, v.Value)
	}
}

func dumpMessage(sb *strings.Builder, m *Message, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%smessage %s", indent, m.Name)
	if m.Parent != nil {
		fmt.Fprintf(sb, " : %s", m.Parent.FullName())
	}
	sb.WriteString("\n")
	for _, f := range m.Flattened {
		fmt.Fprintf(sb, "%s  %s: %s", indent, f.Name, f.Type)
		if f.Optional {
			sb.WriteString(" optional")
		}
		if f.HasDefault {
			fmt.Fprintf(sb, " = %s", f.Default)
		}
		if f.Message != m {
			fmt.Fprintf(sb, " (from %s)", f.Message.FullName())
		}
		sb.WriteString("\n")
	}
}
