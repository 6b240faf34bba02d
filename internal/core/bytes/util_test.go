package bytes

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStripPadding(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []byte
	}{
		{
			name:     "no padding",
			data:     []byte{0x70, 0x69, 0x6e, 0x67},
			expected: []byte{0x70, 0x69, 0x6e, 0x67},
		},
		{
			name:     "trailing zeroes",
			data:     []byte{0x70, 0x69, 0x6e, 0x67, 0x00, 0x00, 0x00},
			expected: []byte{0x70, 0x69, 0x6e, 0x67},
		},
		{
			name:     "all zeroes",
			data:     []byte{0x00, 0x00, 0x00},
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, StripPadding(tt.data)); diff != "" {
				t.Errorf("StripPadding() returned the wrong bytes; diff:\n%s", diff)
			}
		})
	}
}

type testStruct struct {
	Kind uint8
	Data [4]uint8
}

func TestFromStruct(t *testing.T) {
	s := &testStruct{Kind: 0x01, Data: [4]uint8{0x70, 0x69, 0x6e, 0x67}}

	b, size := FromStruct(s)

	if size != 5 {
		t.Errorf("FromStruct() returned size = %d, expected 5", size)
	}

	expected := []byte{0x01, 0x70, 0x69, 0x6e, 0x67}
	if diff := cmp.Diff(expected, b); diff != "" {
		t.Errorf("FromStruct() returned the wrong bytes; diff:\n%s", diff)
	}
}

func TestToStruct(t *testing.T) {
	data := []byte{0x01, 0x70, 0x69, 0x6e, 0x67}

	var s testStruct
	ToStruct(data, &s)

	expected := testStruct{Kind: 0x01, Data: [4]uint8{0x70, 0x69, 0x6e, 0x67}}
	if diff := cmp.Diff(expected, s); diff != "" {
		t.Errorf("ToStruct() populated the wrong values; diff:\n%s", diff)
	}
}
