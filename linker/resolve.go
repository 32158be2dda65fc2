package linker

import (
	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/msgdef"
	"github.com/defkit/defcompile/reporter"
)

// entity is a declared type: *model.Message, *model.Enum, or
// *model.Compound.
type entity interface{}

func member(ns *model.Namespace, name string) entity {
	if m := ns.Message(name); m != nil {
		return m
	}
	if e := ns.Enum(name); e != nil {
		return e
	}
	if c := ns.Compound(name); c != nil {
		return c
	}
	return nil
}

// descend follows a qualified name down from ns: every leading part names a
// nested namespace and the final part names a declared type.
func descend(ns *model.Namespace, parts []string) entity {
	if len(parts) == 0 {
		return nil
	}
	for _, p := range parts[:len(parts)-1] {
		ns = ns.Child(p)
		if ns == nil {
			return nil
		}
	}
	return member(ns, parts[len(parts)-1])
}

// resolveName looks a written reference up from the namespace containing the
// declaration that wrote it. Lookup tries, in order: each enclosing scope
// from the innermost out to the file level, then names fully qualified with
// the file's own namespace name, then the import bindings (alias names and
// the file namespace names of unaliased imports) as a leading qualifier,
// then the members of unaliased imports without any qualifier.
// Declarations in the current file shadow imported ones.
func (l *linker) resolveName(scope *model.Namespace, parts []string) entity {
	for ns := scope; ns != nil; ns = ns.Parent {
		if ent := descend(ns, parts); ent != nil {
			return ent
		}
	}
	// fully qualified, starting with the file's own namespace name
	root := l.file.Namespace
	if len(parts) > 1 && parts[0] == root.Name {
		if ent := descend(root, parts[1:]); ent != nil {
			return ent
		}
	}
	if len(parts) > 1 {
		if dep, ok := l.aliases[parts[0]]; ok {
			if ent := descend(dep, parts[1:]); ent != nil {
				return ent
			}
		}
	}
	for _, dep := range l.open {
		if ent := descend(dep, parts); ent != nil {
			return ent
		}
	}
	return nil
}

// resolveTypeName resolves a reference, including the trailing ".field"
// selector form that names the enum type of a field the message declares
// itself; inherited fields cannot be selected. A nil entity with a nil error
// means the failure was reported and linking should continue.
func (l *linker) resolveTypeName(scope *model.Namespace, name *msgdef.TypeName) (entity, error) {
	ent := l.resolveName(scope, name.Parts)
	if ent == nil {
		return nil, l.reportf(reporter.KindUnresolvedReference, name.Pos,
			"reference %q could not be resolved", name.String())
	}
	if name.Field == "" {
		return ent, nil
	}
	msg, ok := ent.(*model.Message)
	if !ok {
		return nil, l.reportf(reporter.KindUnresolvedReference, name.Pos,
			"reference %q selects a field, but %q is not a message", name.String(), joinParts(name.Parts))
	}
	field := msg.Field(name.Field)
	if field == nil {
		for m := msg.Parent; m != nil; m = m.Parent {
			if m.Field(name.Field) != nil {
				return nil, l.reportf(reporter.KindUnresolvedReference, name.Pos,
					"message %s does not declare field %q; it is inherited from %s and cannot be referenced this way",
					msg.FullName(), name.Field, m.FullName())
			}
		}
		return nil, l.reportf(reporter.KindUnresolvedReference, name.Pos,
			"message %s has no field %q", msg.FullName(), name.Field)
	}
	t, err := l.fieldType(field)
	if t == nil || err != nil {
		return nil, err
	}
	er, ok := t.(model.EnumRef)
	if !ok {
		return nil, l.reportf(reporter.KindUnresolvedReference, name.Pos,
			"field %q of %s has type %s, not an enum, open_enum, or options type",
			name.Field, msg.FullName(), t)
	}
	return er.Enum, nil
}

func joinParts(parts []string) string {
	return (&msgdef.TypeName{Parts: parts}).String()
}

// resolveParents binds message and enum extension clauses. Message parents
// are bound across the whole tree first so that a ".field" selector naming an
// inherited field can report the ancestor that declares it.
func (l *linker) resolveParents() error {
	if err := eachNamespace(l.file.Namespace, l.resolveMessageParents); err != nil {
		return err
	}
	return eachNamespace(l.file.Namespace, l.resolveEnumParents)
}

func (l *linker) resolveMessageParents(ns *model.Namespace) error {
	for _, msg := range ns.Messages {
		raw := l.msgDefs[msg]
		if raw == nil || raw.Parent == nil {
			continue
		}
		ent, err := l.resolveTypeName(ns, raw.Parent)
		if ent == nil || err != nil {
			if err != nil {
				return err
			}
			continue
		}
		pm, ok := ent.(*model.Message)
		if !ok {
			if err := l.reportf(reporter.KindTypeConstraint, raw.Parent.Pos,
				"message %s cannot extend %q, which is not a message", msg.FullName(), raw.Parent.String()); err != nil {
				return err
			}
			continue
		}
		msg.Parent = pm
	}
	return nil
}

func (l *linker) resolveEnumParents(ns *model.Namespace) error {
	for _, e := range ns.Enums {
		raw := l.enumDefs[e]
		if raw == nil || raw.Parent == nil {
			continue
		}
		ent, err := l.resolveTypeName(ns, raw.Parent)
		if ent == nil || err != nil {
			if err != nil {
				return err
			}
			continue
		}
		pe, ok := ent.(*model.Enum)
		if !ok {
			if err := l.reportf(reporter.KindTypeConstraint, raw.Parent.Pos,
				"%s %s cannot extend %q, which is not an enum type", e.Kind, e.FullName(), raw.Parent.String()); err != nil {
				return err
			}
			continue
		}
		// options extend options; enums and open enums extend each other
		if (pe.Kind == model.EnumOptions) != (e.Kind == model.EnumOptions) {
			if err := l.reportf(reporter.KindTypeConstraint, raw.Parent.Pos,
				"%s %s cannot extend %s %s", e.Kind, e.FullName(), pe.Kind, pe.FullName()); err != nil {
				return err
			}
			continue
		}
		e.Parent = pe
	}
	return nil
}

// resolveFieldTypes binds the type of every field declared in this file.
// Types referenced through ".field" selectors may already have been resolved
// on demand; fieldType memoizes.
func (l *linker) resolveFieldTypes() error {
	return eachNamespace(l.file.Namespace, func(ns *model.Namespace) error {
		for _, msg := range ns.Messages {
			for _, f := range msg.Fields {
				if _, err := l.fieldType(f); err != nil {
					return err
				}
				if err := l.validateField(f); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// fieldType returns the resolved type of a field, resolving it on demand.
// Fields of imported files are already resolved. A chain of ".field"
// selectors that leads back to the field being resolved is reported as
// unresolvable.
func (l *linker) fieldType(f *model.Field) (model.TypeRef, error) {
	switch l.fieldState[f] {
	case stateDone:
		return f.Type, nil
	case stateInProgress:
		return nil, l.reportf(reporter.KindUnresolvedReference, f.Pos,
			"type of field %q in %s depends on itself", f.Name, f.Message.FullName())
	}
	raw, ok := l.fieldDefs[f]
	if !ok {
		return f.Type, nil
	}
	l.fieldState[f] = stateInProgress
	t, err := l.convertType(f.Message.Namespace, raw.Type)
	if err != nil {
		return nil, err
	}
	f.Type = t
	l.fieldState[f] = stateDone
	return t, nil
}

// convertType turns a syntactic type into a resolved one. A nil type with a
// nil error means a problem was reported and linking continues; the field is
// left unbound in the invalid result.
func (l *linker) convertType(scope *model.Namespace, raw *msgdef.TypeRef) (model.TypeRef, error) {
	switch raw.Kind {
	case msgdef.KindBasic:
		return model.Basic{Kind: basicKind(raw.Basic)}, nil
	case msgdef.KindInlineEnum, msgdef.KindInlineOptions:
		if e := l.synthEnums[raw]; e != nil {
			return model.EnumRef{Enum: e}, nil
		}
		// promotion failed on a name collision, which was already reported
		return nil, nil
	case msgdef.KindInlineCompound:
		if c := l.synthComps[raw]; c != nil {
			return model.CompoundRef{Compound: c}, nil
		}
		return nil, nil
	case msgdef.KindArray:
		elem, err := l.convertType(scope, raw.Elem)
		if elem == nil || err != nil {
			return nil, err
		}
		switch elem.(type) {
		case model.Array, model.Map:
			return nil, l.reportf(reporter.KindTypeConstraint, raw.Pos,
				"array element may not be an array or a map")
		}
		return model.Array{Elem: elem}, nil
	case msgdef.KindMap:
		key, err := l.convertType(scope, raw.Key)
		if err != nil {
			return nil, err
		}
		val, err := l.convertType(scope, raw.Value)
		if err != nil {
			return nil, err
		}
		if key != nil {
			if b, ok := key.(model.Basic); !ok || b.Kind != model.String {
				return nil, l.reportf(reporter.KindTypeConstraint, raw.Key.Pos,
					"map key type must be string, not %s", key)
			}
		}
		if val != nil {
			switch val.(type) {
			case model.Array, model.Map:
				return nil, l.reportf(reporter.KindTypeConstraint, raw.Value.Pos,
					"map value may not be an array or a map")
			}
		}
		if key == nil || val == nil {
			return nil, nil
		}
		return model.Map{Key: key, Value: val}, nil
	case msgdef.KindRef:
		ent, err := l.resolveTypeName(scope, raw.Ref)
		if ent == nil || err != nil {
			return nil, err
		}
		switch ent := ent.(type) {
		case *model.Message:
			return model.MessageRef{Message: ent}, nil
		case *model.Enum:
			return model.EnumRef{Enum: ent}, nil
		case *model.Compound:
			return model.CompoundRef{Compound: ent}, nil
		}
	}
	return nil, nil
}
