package exifcheck

import (
	"bytes"
	"testing"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty input", data: nil},
		{name: "garbage bytes", data: []byte("definitely not an image")},
		{name: "jpeg header without exif", data: append([]byte{0xff, 0xd8, 0xff, 0xdb}, bytes.Repeat([]byte{0x00}, 64)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Absence of metadata is not evidence; Inspect must stay
			// silent rather than guess.
			if finding := Inspect(tt.data); finding != nil {
				t.Errorf("Inspect returned %+v, want nil", finding)
			}
		})
	}
}
