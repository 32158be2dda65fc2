package linker

import (
	"fmt"

	"github.com/defkit/defcompile/ast"
	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/msgdef"
	"github.com/defkit/defcompile/parser"
	"github.com/defkit/defcompile/reporter"
)

// Link resolves one parsed file against its already-linked dependencies.
// deps carries the linked file for each entry of the parsed file's import
// list, in the same order; a nil entry marks an import that failed to load,
// which was already reported.
//
// The returned file is fully resolved: every field type is bound, message
// field lists are flattened, and enum and options members carry their final
// values. Diagnostics go to the handler; if symbols is nil, a private table
// is used.
func Link(parsed *parser.Result, deps []*model.File, symbols *Symbols, handler *reporter.Handler) (*model.File, error) {
	def := parsed.File()
	if symbols == nil {
		symbols = &Symbols{}
	}
	l := &linker{
		def:        def,
		symbols:    symbols,
		handler:    handler,
		aliases:    map[string]*model.Namespace{},
		msgDefs:    map[*model.Message]*msgdef.Message{},
		enumDefs:   map[*model.Enum]*msgdef.Enum{},
		fieldDefs:  map[*model.Field]*msgdef.Field{},
		synthEnums: map[*msgdef.TypeRef]*model.Enum{},
		synthComps: map[*msgdef.TypeRef]*model.Compound{},
		msgState:   map[*model.Message]buildState{},
		enumState:  map[*model.Enum]buildState{},
		fieldState: map[*model.Field]buildState{},
	}
	if err := l.bindImports(deps); err != nil {
		return nil, err
	}
	if err := l.buildStructure(); err != nil {
		return nil, err
	}
	if err := l.checkReservedNames(); err != nil {
		return nil, err
	}
	if err := l.resolveParents(); err != nil {
		return nil, err
	}
	if err := l.flattenMessages(); err != nil {
		return nil, err
	}
	if err := l.resolveFieldTypes(); err != nil {
		return nil, err
	}
	if err := l.buildEnums(); err != nil {
		return nil, err
	}
	if err := handler.Error(); err != nil {
		return nil, err
	}
	return l.file, nil
}

type buildState int

const (
	stateUnvisited buildState = iota
	stateInProgress
	stateDone
)

type linker struct {
	def     *msgdef.File
	file    *model.File
	symbols *Symbols
	handler *reporter.Handler

	// file-scope bindings for imported namespaces: alias names plus the file
	// namespace names of unaliased imports
	aliases map[string]*model.Namespace
	// unaliased imports, whose members are also visible without any prefix
	open []*model.Namespace

	// raw declarations backing the model entities of this file; imported
	// entities have no entry
	msgDefs   map[*model.Message]*msgdef.Message
	enumDefs  map[*model.Enum]*msgdef.Enum
	fieldDefs map[*model.Field]*msgdef.Field

	// declarations promoted from inline bodies, keyed by the raw type that
	// carried the body
	synthEnums map[*msgdef.TypeRef]*model.Enum
	synthComps map[*msgdef.TypeRef]*model.Compound

	msgState   map[*model.Message]buildState
	enumState  map[*model.Enum]buildState
	fieldState map[*model.Field]buildState
}

func (l *linker) reportf(kind reporter.Kind, pos ast.SourcePos, format string, args ...interface{}) error {
	return l.handler.HandleErrorf(kind, pos, format, args...)
}

func (l *linker) bindImports(deps []*model.File) error {
	if len(deps) != len(l.def.Imports) {
		return fmt.Errorf("linking %s: got %d linked dependencies for %d imports", l.def.Path, len(deps), len(l.def.Imports))
	}
	l.file = &model.File{Path: l.def.Path}
	for i, imp := range l.def.Imports {
		dep := deps[i]
		l.file.Imports = append(l.file.Imports, &model.Import{Path: imp.Path, Alias: imp.Alias, File: dep})
		if dep == nil {
			continue
		}
		name := imp.Alias
		if name == "" {
			name = dep.Namespace.Name
			l.open = append(l.open, dep.Namespace)
		}
		if prev, ok := l.aliases[name]; ok {
			if err := l.reportf(reporter.KindRedeclaration, imp.Pos,
				"import name %q is already bound to %q", name, prev.File.Path); err != nil {
				return err
			}
			continue
		}
		l.aliases[name] = dep.Namespace
	}
	return nil
}

func (l *linker) buildStructure() error {
	root := &model.Namespace{
		Name: l.def.Namespace.Name,
		Pos:  l.def.Namespace.Pos,
		File: l.file,
	}
	l.file.Namespace = root
	return l.addNamespaceBody(root, l.def.Namespace)
}

// declare claims a name within a namespace, reporting a redeclaration when
// it is already taken.
func (l *linker) declare(ns *model.Namespace, name, kind string, pos ast.SourcePos) (bool, error) {
	fqn := ns.FullName() + "::" + name
	return l.symbols.importSymbol(l.file.Path, fqn, kind, pos, l.handler)
}

func (l *linker) addNamespaceBody(ns *model.Namespace, raw *msgdef.Namespace) error {
	for _, m := range raw.Messages {
		if err := l.addMessage(ns, m); err != nil {
			return err
		}
	}
	for _, e := range raw.Enums {
		if err := l.addEnum(ns, e); err != nil {
			return err
		}
	}
	for _, c := range raw.Compounds {
		if err := l.addCompound(ns, c); err != nil {
			return err
		}
	}
	for _, child := range raw.Namespaces {
		existing := ns.Child(child.Name)
		if existing == nil {
			ok, err := l.declare(ns, child.Name, "namespace", child.Pos)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			existing = &model.Namespace{
				Name:   child.Name,
				Doc:    child.Doc,
				Pos:    child.Pos,
				Parent: ns,
				File:   l.file,
			}
			ns.Namespaces = append(ns.Namespaces, existing)
		}
		// a re-opened namespace merges into the first declaration
		if err := l.addNamespaceBody(existing, child); err != nil {
			return err
		}
	}
	return nil
}

func (l *linker) addMessage(ns *model.Namespace, raw *msgdef.Message) error {
	ok, err := l.declare(ns, raw.Name, "message", raw.Pos)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	msg := &model.Message{Name: raw.Name, Doc: raw.Doc, Pos: raw.Pos, Namespace: ns}
	l.msgDefs[msg] = raw
	ns.Messages = append(ns.Messages, msg)

	seen := map[string]ast.SourcePos{}
	for _, rf := range raw.Fields {
		if prev, dup := seen[rf.Name]; dup {
			if err := l.reportf(reporter.KindRedeclaration, rf.Pos,
				"field %q is already declared in message %q at %v", rf.Name, raw.Name, prev); err != nil {
				return err
			}
			continue
		}
		seen[rf.Name] = rf.Pos
		f := &model.Field{
			Name:       rf.Name,
			Doc:        rf.Doc,
			Pos:        rf.Pos,
			Message:    msg,
			Optional:   rf.Optional,
			Repeated:   rf.Repeated,
			Required:   rf.Required,
			HasDefault: rf.HasDefault,
			Default:    rf.Default,
		}
		l.fieldDefs[f] = rf
		msg.Fields = append(msg.Fields, f)
		if err := l.promoteInline(msg, f, rf.Type); err != nil {
			return err
		}
	}
	return nil
}

// promoteInline materializes inline enum, options, and compound bodies as
// named declarations in the message's namespace. The synthetic name is the
// message name joined to the field name with an underscore.
func (l *linker) promoteInline(msg *model.Message, f *model.Field, raw *msgdef.TypeRef) error {
	switch raw.Kind {
	case msgdef.KindInlineEnum, msgdef.KindInlineOptions:
		name := msg.Name + "_" + f.Name
		kind := model.EnumClosed
		rawKind := msgdef.EnumClosed
		switch {
		case raw.Kind == msgdef.KindInlineOptions:
			kind, rawKind = model.EnumOptions, msgdef.EnumOptions
		case raw.IsOpen:
			kind, rawKind = model.EnumOpen, msgdef.EnumOpen
		}
		ok, err := l.declare(msg.Namespace, name, kind.String(), raw.Pos)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		e := &model.Enum{Name: name, Kind: kind, Pos: raw.Pos, Namespace: msg.Namespace, Synthetic: true}
		l.enumDefs[e] = &msgdef.Enum{Name: name, Kind: rawKind, Pos: raw.Pos, Values: raw.Values}
		l.synthEnums[raw] = e
		msg.Namespace.Enums = append(msg.Namespace.Enums, e)
	case msgdef.KindInlineCompound:
		name := msg.Name + "_" + f.Name
		ok, err := l.declare(msg.Namespace, name, "compound", raw.Pos)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c := &model.Compound{
			Name:       name,
			Base:       basicKind(raw.Basic),
			Components: raw.Components,
			Pos:        raw.Pos,
			Namespace:  msg.Namespace,
			Synthetic:  true,
		}
		l.synthComps[raw] = c
		msg.Namespace.Compounds = append(msg.Namespace.Compounds, c)
		return l.validateCompound(c)
	case msgdef.KindArray:
		return l.promoteInline(msg, f, raw.Elem)
	case msgdef.KindMap:
		return l.promoteInline(msg, f, raw.Value)
	}
	return nil
}

func (l *linker) addEnum(ns *model.Namespace, raw *msgdef.Enum) error {
	ok, err := l.declare(ns, raw.Name, raw.Kind.String(), raw.Pos)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	e := &model.Enum{Name: raw.Name, Kind: enumKind(raw.Kind), Doc: raw.Doc, Pos: raw.Pos, Namespace: ns}
	l.enumDefs[e] = raw
	ns.Enums = append(ns.Enums, e)
	return nil
}

func (l *linker) addCompound(ns *model.Namespace, raw *msgdef.Compound) error {
	ok, err := l.declare(ns, raw.Name, "compound", raw.Pos)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	c := &model.Compound{
		Name:       raw.Name,
		Base:       basicKind(raw.Base),
		Components: raw.Components,
		Doc:        raw.Doc,
		Pos:        raw.Pos,
		Namespace:  ns,
	}
	ns.Compounds = append(ns.Compounds, c)
	return l.validateCompound(c)
}

func enumKind(k msgdef.EnumKind) model.EnumKind {
	switch k {
	case msgdef.EnumOpen:
		return model.EnumOpen
	case msgdef.EnumOptions:
		return model.EnumOptions
	default:
		return model.EnumClosed
	}
}

func basicKind(b msgdef.BasicType) model.BasicKind {
	switch b {
	case msgdef.Int:
		return model.Int
	case msgdef.Float:
		return model.Float
	case msgdef.Bool:
		return model.Bool
	case msgdef.Byte:
		return model.Byte
	default:
		return model.String
	}
}

// eachNamespace visits the namespace tree in declaration order, parents
// before children.
func eachNamespace(ns *model.Namespace, fn func(*model.Namespace) error) error {
	if err := fn(ns); err != nil {
		return err
	}
	for _, c := range ns.Namespaces {
		if err := eachNamespace(c, fn); err != nil {
			return err
		}
	}
	return nil
}
