package linker

import (
	"math"

	"github.com/defkit/defcompile/model"
	"github.com/defkit/defcompile/reporter"
)

// flattenMessages computes the complete field list of every message declared
// in this file, walking inheritance chains depth-first. Imported messages
// were flattened when their own file was linked.
func (l *linker) flattenMessages() error {
	return eachNamespace(l.file.Namespace, func(ns *model.Namespace) error {
		for _, msg := range ns.Messages {
			if err := l.flatten(msg); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *linker) flatten(msg *model.Message) error {
	switch l.msgState[msg] {
	case stateDone:
		return nil
	case stateInProgress:
		return l.reportf(reporter.KindInheritanceConflict, msg.Pos,
			"message %s is part of an inheritance cycle", msg.FullName())
	}
	if _, ok := l.msgDefs[msg]; !ok {
		l.msgState[msg] = stateDone
		return nil
	}
	l.msgState[msg] = stateInProgress
	defer func() { l.msgState[msg] = stateDone }()

	inherited := map[string]*model.Field{}
	if p := msg.Parent; p != nil {
		if err := l.flatten(p); err != nil {
			return err
		}
		// if the parent is still in progress it is an ancestor frame of this
		// one; the cycle was reported and inheritance is skipped
		if l.msgState[p] == stateDone {
			msg.Flattened = append(msg.Flattened, p.Flattened...)
			for _, f := range p.Flattened {
				inherited[f.Name] = f
			}
		}
	}
	for _, f := range msg.Fields {
		if prev, ok := inherited[f.Name]; ok {
			if err := l.reportf(reporter.KindInheritanceConflict, f.Pos,
				"field %q in %s collides with the field of the same name inherited from %s",
				f.Name, msg.FullName(), prev.Message.FullName()); err != nil {
				return err
			}
			continue
		}
		msg.Flattened = append(msg.Flattened, f)
	}
	return nil
}

// buildEnums assigns final member values and width metadata to every enum,
// open enum, and options declaration in this file, extensions after the
// declarations they extend. Imported enums already carry final values.
func (l *linker) buildEnums() error {
	return eachNamespace(l.file.Namespace, func(ns *model.Namespace) error {
		for _, e := range ns.Enums {
			if err := l.buildEnum(e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *linker) buildEnum(e *model.Enum) error {
	switch l.enumState[e] {
	case stateDone:
		return nil
	case stateInProgress:
		return l.reportf(reporter.KindInheritanceConflict, e.Pos,
			"%s %s is part of an extension cycle", e.Kind, e.FullName())
	}
	raw, ok := l.enumDefs[e]
	if !ok {
		l.enumState[e] = stateDone
		return nil
	}
	l.enumState[e] = stateInProgress
	defer func() { l.enumState[e] = stateDone }()

	seen := map[string]*model.EnumValue{}
	// the value most recently assigned, explicit or not; implicit enum
	// members continue from it and implicit options members take the next
	// power of two above it
	var last int64 = -1
	if e.Kind == model.EnumOptions {
		last = 0
	}
	if p := e.Parent; p != nil {
		if err := l.buildEnum(p); err != nil {
			return err
		}
		if l.enumState[p] == stateDone {
			for _, v := range p.Values {
				e.Values = append(e.Values, v)
				seen[v.Name] = v
				last = v.Value
			}
		}
	}
	for _, rv := range raw.Values {
		if prev, dup := seen[rv.Name]; dup {
			if err := l.reportf(reporter.KindRedeclaration, rv.Pos,
				"member %q is already declared in %s %s at %v", rv.Name, e.Kind, e.FullName(), prev.Pos); err != nil {
				return err
			}
			continue
		}
		var val int64
		switch {
		case e.Kind == model.EnumOptions && rv.HasValue:
			if rv.Value <= 0 {
				if err := l.reportf(reporter.KindTypeConstraint, rv.Pos,
					"options member %q must have a positive value, not %d", rv.Name, rv.Value); err != nil {
					return err
				}
				continue
			}
			val = rv.Value
		case e.Kind == model.EnumOptions:
			val = nextFlag(last)
		case rv.HasValue:
			val = rv.Value
		default:
			val = last + 1
		}
		last = val
		mv := &model.EnumValue{Name: rv.Name, Value: val, Doc: rv.Doc, Pos: rv.Pos}
		e.Values = append(e.Values, mv)
		seen[rv.Name] = mv
	}
	setWidth(e)
	return nil
}

// nextFlag returns the smallest power of two strictly greater than prev.
func nextFlag(prev int64) int64 {
	v := int64(1)
	for v <= prev {
		v <<= 1
	}
	return v
}

// setWidth computes the minimal storage width, in bits, able to represent
// every member value, and whether a signed representation is needed.
func setWidth(e *model.Enum) {
	var min, max int64
	for _, v := range e.Values {
		if v.Value < min {
			min = v.Value
		}
		if v.Value > max {
			max = v.Value
		}
	}
	e.Signed = min < 0
	if e.Signed {
		switch {
		case min >= math.MinInt8 && max <= math.MaxInt8:
			e.Width = 8
		case min >= math.MinInt16 && max <= math.MaxInt16:
			e.Width = 16
		case min >= math.MinInt32 && max <= math.MaxInt32:
			e.Width = 32
		default:
			e.Width = 64
		}
		return
	}
	switch {
	case max <= math.MaxUint8:
		e.Width = 8
	case max <= math.MaxUint16:
		e.Width = 16
	case max <= math.MaxUint32:
		e.Width = 32
	default:
		e.Width = 64
	}
}
