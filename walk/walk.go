// Package walk provides helpers for traversing the raw declaration tree
// produced by the parser.
package walk

import "github.com/defkit/defcompile/msgdef"

// Visitor holds callbacks invoked as a traversal reaches each kind of
// declaration. Nil callbacks are skipped. If a callback returns a non-nil
// error, the walk stops and returns that error.
type Visitor struct {
	// Namespace is invoked for each nested namespace, before its contents.
	Namespace func(*msgdef.Namespace) error
	// Message is invoked for each message, before its fields.
	Message func(*msgdef.Message) error
	// Field is invoked for each field of a message.
	Field func(*msgdef.Message, *msgdef.Field) error
	// Enum is invoked for each enum, open enum, or options declaration,
	// before its members.
	Enum func(*msgdef.Enum) error
	// EnumValue is invoked for each member of an enum-like declaration. For
	// members of an inline body on a field, the enum argument is nil.
	EnumValue func(*msgdef.Enum, *msgdef.EnumValue) error
	// Compound is invoked for each compound declaration.
	Compound func(*msgdef.Compound) error
}

// File walks every declaration in the file. The file-level namespace itself
// is not visited since its name is derived from the file name rather than
// declared in source; its contents are.
func File(f *msgdef.File, v *Visitor) error {
	return namespaceBody(f.Namespace, v)
}

func namespaceBody(ns *msgdef.Namespace, v *Visitor) error {
	for _, msg := range ns.Messages {
		if err := message(msg, v); err != nil {
			return err
		}
	}
	for _, en := range ns.Enums {
		if v.Enum != nil {
			if err := v.Enum(en); err != nil {
				return err
			}
		}
		if err := enumValues(en, en.Values, v); err != nil {
			return err
		}
	}
	for _, c := range ns.Compounds {
		if v.Compound != nil {
			if err := v.Compound(c); err != nil {
				return err
			}
		}
	}
	for _, child := range ns.Namespaces {
		if v.Namespace != nil {
			if err := v.Namespace(child); err != nil {
				return err
			}
		}
		if err := namespaceBody(child, v); err != nil {
			return err
		}
	}
	return nil
}

func message(msg *msgdef.Message, v *Visitor) error {
	if v.Message != nil {
		if err := v.Message(msg); err != nil {
			return err
		}
	}
	for _, f := range msg.Fields {
		if v.Field != nil {
			if err := v.Field(msg, f); err != nil {
				return err
			}
		}
		if err := fieldType(f.Type, v); err != nil {
			return err
		}
	}
	return nil
}

// fieldType descends into a field's type to reach the members of inline
// enum, open enum, and options bodies.
func fieldType(t *msgdef.TypeRef, v *Visitor) error {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case msgdef.KindInlineEnum, msgdef.KindInlineOptions:
		return enumValues(nil, t.Values, v)
	case msgdef.KindArray:
		return fieldType(t.Elem, v)
	case msgdef.KindMap:
		return fieldType(t.Value, v)
	}
	return nil
}

func enumValues(en *msgdef.Enum, values []*msgdef.EnumValue, v *Visitor) error {
	if v.EnumValue == nil {
		return nil
	}
	for _, val := range values {
		if err := v.EnumValue(en, val); err != nil {
			return err
		}
	}
	return nil
}
