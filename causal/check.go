// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package causal

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/ugorji/go/codec"
)

var marshalerTypes = []reflect.Type{
	reflect.TypeOf((*codec.Selfer)(nil)).Elem(),
	reflect.TypeOf((*json.Marshaler)(nil)).Elem(),
	reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem(),
	reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem(),
}

// marshals tests if values of t encode themselves, in which case their contents are not checked
func marshals(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	for _, m := range marshalerTypes {
		if t.Implements(m) || pt.Implements(m) {
			return true
		}
	}

	return false
}

type visit struct {
	ptr uintptr
	t   reflect.Type
}

// checker walks a value looking for anything the codec would drop or mangle rather
// than reject: funcs, channels, unsafe pointers, complex numbers with an imaginary part,
// reference cycles, and for JSON non-finite floats and non-string map keys.
type checker struct {
	format   Format
	tag      string
	visiting map[visit]bool
}

func newChecker(f Format) *checker {
	tag := "json"
	if f == Msgpack {
		tag = "msgpack"
	}

	return &checker{
		format:   f,
		tag:      tag,
		visiting: make(map[visit]bool),
	}
}

func (c *checker) unsupported(path, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s at %s", ErrUnsupportedValue, fmt.Sprintf(format, args...), path)
}

// enter marks a reference as being on the current path.  It returns false if the
// reference is already being walked.
func (c *checker) enter(v reflect.Value) bool {
	k := visit{ptr: v.Pointer(), t: v.Type()}
	if c.visiting[k] {
		return false
	}

	c.visiting[k] = true
	return true
}

func (c *checker) leave(v reflect.Value) {
	delete(c.visiting, visit{ptr: v.Pointer(), t: v.Type()})
}

func (c *checker) check(v reflect.Value, path string) error {
	if !v.IsValid() || marshals(v.Type()) {
		return nil
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return c.unsupported(path, "%s values", v.Kind())

	case reflect.Complex64, reflect.Complex128:
		if imag(v.Complex()) != 0 {
			return c.unsupported(path, "complex value %v", v.Complex())
		}

	case reflect.Float32, reflect.Float64:
		if c.format == JSON {
			if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
				return c.unsupported(path, "non-finite float %v", f)
			}
		}

	case reflect.Interface:
		if !v.IsNil() {
			return c.check(v.Elem(), path)
		}

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}

		if !c.enter(v) {
			return c.unsupported(path, "cyclic reference")
		}

		defer c.leave(v)
		return c.check(v.Elem(), path)

	case reflect.Map:
		if v.IsNil() {
			return nil
		}

		if !c.enter(v) {
			return c.unsupported(path, "cyclic reference")
		}

		defer c.leave(v)
		for i := v.MapRange(); i.Next(); {
			key := i.Key()
			keyPath := fmt.Sprintf("%s[%v]", path, key)
			if c.format == JSON {
				concrete := key
				for concrete.Kind() == reflect.Interface && !concrete.IsNil() {
					concrete = concrete.Elem()
				}

				if concrete.Kind() != reflect.String {
					return c.unsupported(keyPath, "map key of kind %s", concrete.Kind())
				}
			}

			if err := c.check(key, keyPath); err != nil {
				return err
			}

			if err := c.check(i.Value(), keyPath); err != nil {
				return err
			}
		}

	case reflect.Slice:
		if v.IsNil() || v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}

		if !c.enter(v) {
			return c.unsupported(path, "cyclic reference")
		}

		defer c.leave(v)
		return c.elements(v, path)

	case reflect.Array:
		return c.elements(v, path)

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if (!f.IsExported() && !f.Anonymous) || f.Tag.Get(c.tag) == "-" {
				continue
			}

			if err := c.check(v.Field(i), path+"."+f.Name); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *checker) elements(v reflect.Value, path string) error {
	for i := 0; i < v.Len(); i++ {
		if err := c.check(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}

	return nil
}

// Check returns an error wrapping ErrUnsupportedValue if v holds anything this format
// cannot represent faithfully.  Encode performs this check before encoding.
func (f Format) Check(v interface{}) error {
	if f.handle() == nil {
		return ErrInvalidFormat
	}

	return newChecker(f).check(reflect.ValueOf(v), "$")
}
