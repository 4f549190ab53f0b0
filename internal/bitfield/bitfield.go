// Package bitfield packs and unpacks struct fields tagged `bitfield:"n"`
// into a single machine word. internal/gdt uses it to lay out its segment
// and TSS descriptors; page-table entry flags and CPU feature bits are
// plain shift-and-mask constants in their own packages.
//
// Adapted from the reflection-driven packer in iansmith-mazarin's
// src/bitfield package (itself modeled on golang.org/x/text's internal
// bitfield generator): fields are packed low-bit-first in declaration
// order, each consuming the number of bits named by its tag.
package bitfield

import (
	"fmt"
	"reflect"
)

// Pack packs the tagged fields of struct x, low-bit-first in declaration
// order, into a uint64. Fields without a "bitfield" tag are skipped.
func Pack(x interface{}) (uint64, error) {
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("bitfield: Pack: expected struct, got %v", v.Kind())
	}

	t := v.Type()
	var packed uint64
	var bitOffset uint

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		bits, ok, err := fieldBits(field)
		if err != nil {
			return 0, err
		}
		if !ok || bits == 0 {
			continue
		}

		fieldValue := v.Field(i)
		var bits64 uint64
		switch fieldValue.Kind() {
		case reflect.Bool:
			if fieldValue.Bool() {
				bits64 = 1
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			bits64 = fieldValue.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			val := fieldValue.Int()
			if val < 0 {
				return 0, fmt.Errorf("bitfield: Pack: negative value %d for field %s", val, field.Name)
			}
			bits64 = uint64(val)
		default:
			return 0, fmt.Errorf("bitfield: Pack: unsupported field type %v for field %s", fieldValue.Kind(), field.Name)
		}

		maxValue := maskFor(bits)
		if bits64 > maxValue {
			return 0, fmt.Errorf("bitfield: Pack: value %d exceeds %d bits for field %s", bits64, bits, field.Name)
		}
		if bitOffset+bits > 64 {
			return 0, fmt.Errorf("bitfield: Pack: field %s overflows 64 bits", field.Name)
		}

		packed |= bits64 << bitOffset
		bitOffset += bits
	}

	return packed, nil
}

// Unpack is the inverse of Pack: it reads packed low-bit-first in
// declaration order and fills the tagged fields of the struct pointed to
// by x.
func Unpack(packed uint64, x interface{}) error {
	v := reflect.ValueOf(x)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bitfield: Unpack: expected pointer to struct, got %v", v.Kind())
	}
	v = v.Elem()
	t := v.Type()
	var bitOffset uint

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		bits, ok, err := fieldBits(field)
		if err != nil {
			return err
		}
		if !ok || bits == 0 {
			continue
		}

		mask := maskFor(bits)
		raw := (packed >> bitOffset) & mask
		bitOffset += bits

		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(raw != 0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fv.SetUint(raw)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(raw))
		default:
			return fmt.Errorf("bitfield: Unpack: unsupported field type %v for field %s", fv.Kind(), field.Name)
		}
	}

	return nil
}

func fieldBits(field reflect.StructField) (bits uint, ok bool, err error) {
	tag := field.Tag.Get("bitfield")
	if tag == "" {
		return 0, false, nil
	}
	var n uint
	if _, err := fmt.Sscanf(tag, "%d", &n); err != nil {
		return 0, false, fmt.Errorf("bitfield: invalid tag %q on field %s", tag, field.Name)
	}
	return n, true, nil
}

func maskFor(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}
