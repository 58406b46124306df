// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cachekey

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key identifies a cached call: a build prefix, the method name and the
// ordered call arguments. Two keys with the same prefix, method and
// structurally equal arguments (nested slices, arrays and maps included)
// are Equal and share Hash and Canonical.
type Key struct {
	prefix    string
	method    string
	args      []any
	canonical string
	hash      uint64
}

// NewKey builds a key. args is copied, so later mutation of the caller's
// slice does not change the key.
func NewKey(prefix, method string, args ...any) Key {
	k := Key{
		prefix: prefix,
		method: method,
		args:   slices.Clone(args),
	}
	var b strings.Builder
	writeString(&b, prefix)
	writeString(&b, method)
	b.WriteString(strconv.Itoa(len(k.args)))
	b.WriteByte('[')
	for _, a := range k.args {
		writeValue(&b, reflect.ValueOf(a))
	}
	b.WriteByte(']')
	k.canonical = b.String()
	k.hash = xxhash.Sum64String(k.canonical)
	return k
}

func (k Key) Prefix() string { return k.prefix }
func (k Key) Method() string { return k.method }
func (k Key) Args() []any    { return slices.Clone(k.args) }
func (k Key) Hash() uint64   { return k.hash }

// Canonical is an unambiguous encoding of the key, usable as a map key.
func (k Key) Canonical() string { return k.canonical }

// Equal compares the canonical encodings, so it always agrees with Hash.
// A NaN argument equals another NaN.
func (k Key) Equal(other Key) bool {
	return k.hash == other.hash && k.canonical == other.canonical
}

func (k Key) String() string {
	parts := make([]string, len(k.args))
	for i, a := range k.args {
		parts[i] = fmt.Sprint(a)
	}
	return k.prefix + " Key" + k.method + " [" + strings.Join(parts, ",") + "]"
}

func writeString(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// writeValue appends a type-tagged, length-prefixed encoding of v. Container
// kinds recurse; maps are written in sorted key order so that equal maps
// encode identically.
func writeValue(b *strings.Builder, v reflect.Value) {
	if !v.IsValid() {
		b.WriteString("n;")
		return
	}
	writeString(b, v.Type().String())
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			b.WriteString("n;")
			return
		}
		b.WriteByte('*')
		writeValue(b, v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			b.WriteString("n;")
			return
		}
		b.WriteString(strconv.Itoa(v.Len()))
		b.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			writeValue(b, v.Index(i))
		}
		b.WriteByte(']')
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("n;")
			return
		}
		entries := make([][2]string, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			var kb, vb strings.Builder
			writeValue(&kb, iter.Key())
			writeValue(&vb, iter.Value())
			entries = append(entries, [2]string{kb.String(), vb.String()})
		}
		slices.SortFunc(entries, func(a, b [2]string) int {
			return strings.Compare(a[0], b[0])
		})
		b.WriteString(strconv.Itoa(len(entries)))
		b.WriteByte('{')
		for _, e := range entries {
			b.WriteString(e[0])
			b.WriteString(e[1])
		}
		b.WriteByte('}')
	case reflect.Struct:
		b.WriteString(strconv.Itoa(v.NumField()))
		b.WriteByte('(')
		for i := 0; i < v.NumField(); i++ {
			writeValue(b, v.Field(i))
		}
		b.WriteByte(')')
	case reflect.String:
		writeString(b, v.String())
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
		b.WriteByte(';')
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
		b.WriteByte(';')
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
		b.WriteByte(';')
	case reflect.Float32, reflect.Float64:
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
		b.WriteByte(';')
	case reflect.Complex64, reflect.Complex128:
		b.WriteString(strconv.FormatComplex(v.Complex(), 'g', -1, 128))
		b.WriteByte(';')
	default:
		// Funcs, channels and unsafe pointers only compare by identity.
		b.WriteString(strconv.FormatUint(uint64(v.Pointer()), 16))
		b.WriteByte(';')
	}
}
