package linker

import (
	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/msgdef"
	"github.com/defkit/defcompile/reporter"
	"github.com/defkit/defcompile/walk"
)

// reservedNames may not be used as declaration, field, or member names. Most
// of them are keywords the parser would reject anyway; the check also covers
// words like "default" that lex as plain identifiers.
var reservedNames = map[string]bool{
	"message":   true,
	"field":     true,
	"enum":      true,
	"open_enum": true,
	"options":   true,
	"namespace": true,
	"import":    true,
	"as":        true,
	"default":   true,
	"optional":  true,
	"repeated":  true,
	"required":  true,
	"string":    true,
	"int":       true,
	"float":     true,
	"bool":      true,
	"byte":      true,
	"Map":       true,
}

func (l *linker) checkReservedNames() error {
	v := &walk.Visitor{
		Namespace: func(ns *msgdef.Namespace) error {
			return l.checkReserved(ns.Name, ns.Pos)
		},
		Message: func(m *msgdef.Message) error {
			return l.checkReserved(m.Name, m.Pos)
		},
		Field: func(_ *msgdef.Message, f *msgdef.Field) error {
			return l.checkReserved(f.Name, f.Pos)
		},
		Enum: func(e *msgdef.Enum) error {
			return l.checkReserved(e.Name, e.Pos)
		},
		EnumValue: func(_ *msgdef.Enum, v *msgdef.EnumValue) error {
			return l.checkReserved(v.Name, v.Pos)
		},
		Compound: func(c *msgdef.Compound) error {
			return l.checkReserved(c.Name, c.Pos)
		},
	}
	return walk.File(l.def, v)
}

func (l *linker) checkReserved(name string, pos ast.SourcePos) error {
	if !reservedNames[name] {
		return nil
	}
	return l.reportf(reporter.KindReservedName, pos,
		"%q is a reserved word and cannot be used as a name", name)
}

// validateField enforces default-value placement: only scalar and enum-typed
// fields can carry one.
func (l *linker) validateField(f *model.Field) error {
	if !f.HasDefault || f.Type == nil {
		return nil
	}
	switch f.Type.(type) {
	case model.Basic, model.EnumRef:
		return nil
	}
	return l.reportf(reporter.KindTypeConstraint, f.Pos,
		"field %q has type %s, which cannot carry a default value", f.Name, f.Type)
}

// validateCompound enforces the component rules: a float base type and
// distinct component names.
func (l *linker) validateCompound(c *model.Compound) error {
	if c.Base != model.Float {
		if err := l.reportf(reporter.KindTypeConstraint, c.Pos,
			"compound %q must have base type float, not %s", c.Name, c.Base); err != nil {
			return err
		}
	}
	seen := map[string]bool{}
	for _, comp := range c.Components {
		if seen[comp] {
			if err := l.reportf(reporter.KindRedeclaration, c.Pos,
				"component %q appears more than once in compound %q", comp, c.Name); err != nil {
				return err
			}
			continue
		}
		seen[comp] = true
		if err := l.checkReserved(comp, c.Pos); err != nil {
			return err
		}
	}
	return nil
}
