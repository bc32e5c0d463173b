// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by field types that register their own
// flags. [BindFlags] calls AddFlags instead of reading struct tags.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams returns a flag set bound to params, which must be a
// pointer to a struct. It panics if params cannot be bound: the struct
// is part of the program, not of its input.
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag for every tagged field of params, a pointer
// to a struct. Tags:
//
//	flag:"name" or flag:"name,n"   long name and optional shorthand
//	desc:"..."                     help text
//	default:"..."                  default, parsed for the field's type
//
// Field types are string, bool, int and []string. A []string flag is
// repeatable and never splits a value on commas, so file paths pass
// through intact; its default is comma-separated.
//
// Embedded structs are bound recursively, which is how shared option
// groups, [Verbosity] and [JSONOutput] compose. Any exported struct
// field whose pointer implements [FlagBinder] binds itself.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(value.Elem(), flagSet)
}

func bindStruct(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()
	for i := range structType.NumField() {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if field.IsExported() {
				if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
					binder.AddFlags(flagSet)
					continue
				}
			}
			if field.Anonymous {
				if err := bindStruct(fieldValue, flagSet); err != nil {
					return fmt.Errorf("embedded %s: %w", field.Name, err)
				}
				continue
			}
		}

		tag := field.Tag.Get("flag")
		if tag == "" {
			continue
		}
		name, shorthand, _ := strings.Cut(tag, ",")
		flag := flagSpec{
			name:         name,
			shorthand:    shorthand,
			usage:        field.Tag.Get("desc"),
			defaultValue: field.Tag.Get("default"),
		}
		if err := flag.bind(fieldValue.Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

type flagSpec struct {
	name         string
	shorthand    string
	usage        string
	defaultValue string
}

func (f flagSpec) bind(target any, flagSet *pflag.FlagSet) error {
	switch target := target.(type) {
	case *string:
		flagSet.StringVarP(target, f.name, f.shorthand, f.defaultValue, f.usage)
	case *bool:
		value, err := parseDefault(f.defaultValue, strconv.ParseBool)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", f.name, err)
		}
		flagSet.BoolVarP(target, f.name, f.shorthand, value, f.usage)
	case *int:
		value, err := parseDefault(f.defaultValue, strconv.Atoi)
		if err != nil {
			return fmt.Errorf("default for --%s: %w", f.name, err)
		}
		flagSet.IntVarP(target, f.name, f.shorthand, value, f.usage)
	case *[]string:
		var value []string
		if f.defaultValue != "" {
			value = strings.Split(f.defaultValue, ",")
		}
		flagSet.StringArrayVarP(target, f.name, f.shorthand, value, f.usage)
	default:
		return fmt.Errorf("unsupported type %T for flag --%s", target, f.name)
	}
	return nil
}

// parseDefault parses a default tag. An empty tag is the zero value.
func parseDefault[T any](text string, parse func(string) (T, error)) (T, error) {
	if text == "" {
		var zero T
		return zero, nil
	}
	return parse(text)
}
