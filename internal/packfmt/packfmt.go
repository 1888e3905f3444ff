// Package packfmt is the reference pack/unpack format runtime backing
// the byteorder-qualified wire formats the composer selects by name
// (spec §4.3.6: Integer, Address, Bitfield compose semantics) and the
// pack-format metadata the RTTI aux tables carry (spec §6.3). It is
// not on the composer's hot path — the composer only ever emits an
// OpPack instruction naming a format. Its own tests check the bytes it
// produces for a format name and value (including the §8.4 S1
// scenario's bytes); the composer's tests assert on emitted IL and do
// not call it.
//
// Built on github.com/funvibe/funbit's Erlang-style bit-syntax builder
// and matcher, the same construction/matching pair a downstream HILTI
// runtime would use to actually execute an OpPack/unpack instruction.
package packfmt

import (
	"fmt"

	"github.com/funvibe/funbit/pkg/funbit"
)

// Endianness mirrors the byteorder attribute's three values (spec
// §4.5): Big and Little are explicit wire orders, Host defers to the
// runtime's native order.
type Endianness int

const (
	Big Endianness = iota
	Little
	Host
)

func (e Endianness) funbit() funbit.Endianness {
	switch e {
	case Little:
		return funbit.EndiannessLittle
	case Host:
		return funbit.EndiannessNative
	default:
		return funbit.EndiannessBig
	}
}

// Format is one named pack/unpack format: a bit width, signedness, and
// byte order triple, the same triple intPackFormat (internal/compose)
// encodes into a format name.
type Format struct {
	Name     string
	Width    int
	Signed   bool
	Endian   Endianness
}

// IntegerFormatName renders the format name intPackFormat builds:
// "<Byteorder><Int|SInt><width>", e.g. "BigInt16", "LittleSInt8".
func IntegerFormatName(width int, signed bool, endian Endianness) string {
	kind := "Int"
	if signed {
		kind = "SInt"
	}
	return endianName(endian) + kind + itoa(width)
}

// AddressFormatName renders the format name composeAddress's
// SelectValue table builds: "<Family><Byteorder>", with no suffix for
// Host, e.g. "IPv4Big", "IPv6Little", "IPv4".
func AddressFormatName(ipv4 bool, endian Endianness) string {
	family := "IPv6"
	if ipv4 {
		family = "IPv4"
	}
	if endian == Host {
		return family
	}
	return family + endianName(endian)
}

func endianName(e Endianness) string {
	switch e {
	case Little:
		return "Little"
	case Host:
		return "Host"
	default:
		return "Big"
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := "0123456789"
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return string(buf)
}

// Registry resolves format names to Formats, built once for the fixed
// set of widths/signs/orders the composer ever names (spec §4.3.6: 8,
// 16, 32, 64-bit integers; IPv4/IPv6 addresses).
type Registry struct {
	formats map[string]Format
}

// NewRegistry builds the standard registry of every integer and
// address format the composer can name.
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]Format)}
	for _, width := range []int{8, 16, 32, 64} {
		for _, signed := range []bool{false, true} {
			for _, endian := range []Endianness{Big, Little, Host} {
				name := IntegerFormatName(width, signed, endian)
				r.formats[name] = Format{Name: name, Width: width, Signed: signed, Endian: endian}
			}
		}
	}
	for _, ipv4 := range []bool{true, false} {
		for _, endian := range []Endianness{Big, Little, Host} {
			name := AddressFormatName(ipv4, endian)
			width := 128
			if ipv4 {
				width = 32
			}
			r.formats[name] = Format{Name: name, Width: width, Signed: false, Endian: endian}
		}
	}
	return r
}

// Lookup resolves a format name, such as the format string an OpPack
// instruction names.
func (r *Registry) Lookup(name string) (Format, bool) {
	f, ok := r.formats[name]
	return f, ok
}

// Pack renders value as the wire bytes the named format specifies,
// via funbit's bitstring builder.
func (r *Registry) Pack(name string, value int64) ([]byte, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("packfmt: unknown format %q", name)
	}
	return PackInteger(value, f.Width, f.Signed, f.Endian)
}

// Unpack is Pack's inverse, via funbit's bitstring matcher.
func (r *Registry) Unpack(name string, data []byte) (int64, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("packfmt: unknown format %q", name)
	}
	return UnpackInteger(data, f.Width, f.Signed, f.Endian)
}

// PackInteger is the reference implementation of Integer compose
// (spec §4.3.6): render a signed/unsigned integer of the given bit
// width into its wire bytes under the given byte order.
func PackInteger(value int64, width int, signed bool, endian Endianness) ([]byte, error) {
	builder := funbit.NewBuilder()
	builder.AddInteger(value,
		funbit.WithSize(width),
		funbit.WithSigned(signed),
		funbit.WithEndianness(endian.funbit()),
	)
	return funbit.Build(builder)
}

// UnpackInteger is PackInteger's inverse.
func UnpackInteger(data []byte, width int, signed bool, endian Endianness) (int64, error) {
	var result int64
	matcher := funbit.NewMatcher()
	matcher.Integer(&result,
		funbit.WithSize(width),
		funbit.WithSigned(signed),
		funbit.WithEndianness(endian.funbit()),
	)
	ctx := funbit.NewContext()
	ok, err := funbit.Match(ctx, matcher, data)
	if err != nil {
		return 0, fmt.Errorf("packfmt: unpack %d-bit integer: %w", width, err)
	}
	if !ok {
		return 0, fmt.Errorf("packfmt: unpack %d-bit integer: no match", width)
	}
	return result, nil
}

// PackBitfield is the reference implementation of Bitfield compose
// (spec §4.3.6): extract each bit range's value and shift it into its
// declared position before packing the whole word, mirroring what
// internal/compose.composeBitfield emits as IL.
func PackBitfield(widthBits int, ranges []BitRange, values []int64, endian Endianness) ([]byte, error) {
	if len(ranges) != len(values) {
		return nil, fmt.Errorf("packfmt: %d bit ranges but %d values", len(ranges), len(values))
	}
	var word int64
	for i, r := range ranges {
		word |= values[i] << uint(r.Lower)
	}
	return PackInteger(word, widthBits, false, endian)
}

// BitRange is a single named bit range within a bitfield, mirroring
// internal/types.BitRange without importing internal/types (packfmt
// stays a leaf package usable from tests of either side).
type BitRange struct {
	Lower int
	Upper int
}
