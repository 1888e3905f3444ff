package packfmt

import "testing"

func TestIntegerFormatNameMatchesComposerConvention(t *testing.T) {
	cases := []struct {
		width  int
		signed bool
		endian Endianness
		want   string
	}{
		{16, false, Big, "BigInt16"},
		{8, true, Little, "LittleSInt8"},
		{32, false, Host, "HostInt32"},
	}
	for _, tc := range cases {
		got := IntegerFormatName(tc.width, tc.signed, tc.endian)
		if got != tc.want {
			t.Errorf("IntegerFormatName(%d, %v, %v) = %q, want %q", tc.width, tc.signed, tc.endian, got, tc.want)
		}
	}
}

func TestAddressFormatNameMatchesSelectValueTable(t *testing.T) {
	cases := []struct {
		ipv4   bool
		endian Endianness
		want   string
	}{
		{true, Little, "IPv4Little"},
		{true, Big, "IPv4Big"},
		{true, Host, "IPv4"},
		{false, Little, "IPv6Little"},
		{false, Big, "IPv6Big"},
		{false, Host, "IPv6"},
	}
	for _, tc := range cases {
		got := AddressFormatName(tc.ipv4, tc.endian)
		if got != tc.want {
			t.Errorf("AddressFormatName(%v, %v) = %q, want %q", tc.ipv4, tc.endian, got, tc.want)
		}
	}
}

func TestRegistryLookupCoversEveryComposerFormat(t *testing.T) {
	r := NewRegistry()
	for _, width := range []int{8, 16, 32, 64} {
		for _, signed := range []bool{false, true} {
			for _, endian := range []Endianness{Big, Little, Host} {
				name := IntegerFormatName(width, signed, endian)
				f, ok := r.Lookup(name)
				if !ok {
					t.Fatalf("expected registry to resolve %q", name)
				}
				if f.Width != width || f.Signed != signed || f.Endian != endian {
					t.Fatalf("format %q resolved to mismatched fields: %+v", name, f)
				}
			}
		}
	}
}

// S1 from the composer's golden scenarios: a big-endian uint16 of
// 0x0102 composes to the byte sequence [0x01, 0x02].
func TestPackIntegerS1Scenario(t *testing.T) {
	got, err := PackInteger(0x0102, 16, false, Big)
	if err != nil {
		t.Fatalf("PackInteger: %v", err)
	}
	want := []byte{0x01, 0x02}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("PackInteger(0x0102, 16, Big) = %v, want %v", got, want)
	}
}

func TestPackUnpackIntegerRoundTrips(t *testing.T) {
	cases := []struct {
		value  int64
		width  int
		signed bool
		endian Endianness
	}{
		{0x0102, 16, false, Big},
		{0x0102, 16, false, Little},
		{-5, 8, true, Big},
		{0xDEADBEEF, 32, false, Little},
	}
	for _, tc := range cases {
		data, err := PackInteger(tc.value, tc.width, tc.signed, tc.endian)
		if err != nil {
			t.Fatalf("PackInteger(%d, %d, %v, %v): %v", tc.value, tc.width, tc.signed, tc.endian, err)
		}
		got, err := UnpackInteger(data, tc.width, tc.signed, tc.endian)
		if err != nil {
			t.Fatalf("UnpackInteger: %v", err)
		}
		if got != tc.value {
			t.Fatalf("round trip %d (%d-bit, signed=%v, %v) = %d", tc.value, tc.width, tc.signed, tc.endian, got)
		}
	}
}

func TestPackBitfieldCombinesRangesAtDeclaredOffsets(t *testing.T) {
	ranges := []BitRange{{Lower: 0, Upper: 3}, {Lower: 4, Upper: 7}}
	data, err := PackBitfield(8, ranges, []int64{0x5, 0xA}, Big)
	if err != nil {
		t.Fatalf("PackBitfield: %v", err)
	}
	got, err := UnpackInteger(data, 8, false, Big)
	if err != nil {
		t.Fatalf("UnpackInteger: %v", err)
	}
	if want := int64(0xA5); got != want {
		t.Fatalf("PackBitfield combined word = 0x%X, want 0x%X", got, want)
	}
}

func TestPackBitfieldRejectsMismatchedValueCount(t *testing.T) {
	ranges := []BitRange{{Lower: 0, Upper: 3}, {Lower: 4, Upper: 7}}
	if _, err := PackBitfield(8, ranges, []int64{0x5}, Big); err == nil {
		t.Fatalf("expected an error for mismatched range/value counts")
	}
}

func TestPackUnknownFormatNameIsAnError(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Pack("NotAFormat", 1); err == nil {
		t.Fatalf("expected an error for an unknown format name")
	}
	if _, err := r.Unpack("NotAFormat", []byte{1}); err == nil {
		t.Fatalf("expected an error for an unknown format name")
	}
}
