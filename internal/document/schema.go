// Package document describes the project's structured source files through
// declared schemas. Tools read and rewrite fields by name, and find every
// resource a file references, without knowing the concrete type.
package document

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField = errors.New("document: unknown field")
	ErrFieldType    = errors.New("document: wrong value type for field")
)

// Kind is the value type of a field.
type Kind int

const (
	String Kind = iota
	Bool
	Int
	Resource     // a project path
	ResourceList // []string of project paths
	Object       // structured value owned by the concrete type
)

// Field is one declared field.
type Field struct {
	Name string
	Kind Kind
}

// Schema lists the fields of a document type.
type Schema struct {
	Name   string
	Fields []Field
}

// Field returns the declared field called name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Document is a structured source file with a declared schema.
type Document interface {
	Schema() Schema
	GetField(name string) (any, error)
	SetField(name string, value any) error
}

// References returns every project path held in Resource and ResourceList
// fields, in schema order, skipping empty values.
func References(d Document) ([]string, error) {
	var out []string
	for _, f := range d.Schema().Fields {
		switch f.Kind {
		case Resource:
			v, err := d.GetField(f.Name)
			if err != nil {
				return nil, err
			}
			if s, _ := v.(string); s != "" {
				out = append(out, s)
			}
		case ResourceList:
			v, err := d.GetField(f.Name)
			if err != nil {
				return nil, err
			}
			list, _ := v.([]string)
			for _, s := range list {
				if s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out, nil
}

// RewriteReferences replaces every referenced path p with fn(p).
func RewriteReferences(d Document, fn func(string) string) error {
	for _, f := range d.Schema().Fields {
		switch f.Kind {
		case Resource:
			v, err := d.GetField(f.Name)
			if err != nil {
				return err
			}
			if s, _ := v.(string); s != "" {
				if err := d.SetField(f.Name, fn(s)); err != nil {
					return err
				}
			}
		case ResourceList:
			v, err := d.GetField(f.Name)
			if err != nil {
				return err
			}
			list, _ := v.([]string)
			out := make([]string, len(list))
			for i, s := range list {
				out[i] = fn(s)
			}
			if err := d.SetField(f.Name, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func unknownField(schema, name string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownField, schema, name)
}

func fieldType(schema, name string, v any) error {
	return fmt.Errorf("%w: %s.%s got %T", ErrFieldType, schema, name, v)
}

func asString(schema, name string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fieldType(schema, name, v)
	}
	return s, nil
}

func asStrings(schema, name string, v any) ([]string, error) {
	s, ok := v.([]string)
	if !ok {
		return nil, fieldType(schema, name, v)
	}
	return append([]string(nil), s...), nil
}

func asInt(schema, name string, v any) (int, error) {
	i, ok := v.(int)
	if !ok {
		return 0, fieldType(schema, name, v)
	}
	return i, nil
}

func asBool(schema, name string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fieldType(schema, name, v)
	}
	return b, nil
}
