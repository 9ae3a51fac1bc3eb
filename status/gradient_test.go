package status

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorAt_Stops(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  RGB
	}{
		{"empty is red", 0, Red},
		{"half is yellow", 0.5, Yellow},
		{"full is green", 1, Green},
		{"quarter", 0.25, RGB{R: 0xff, G: 0x80}},
		{"three quarters", 0.75, RGB{R: 0x80, G: 0xff}},
		{"below range clamps", -0.3, Red},
		{"above range clamps", 1.7, Green},
		{"NaN is red", math.NaN(), Red},
		{"negative infinity", math.Inf(-1), Red},
		{"positive infinity", math.Inf(1), Green},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColorAt(tt.ratio); got != tt.want {
				t.Errorf("ColorAt(%v) got=%#v want=%#v", tt.ratio, got, tt.want)
			}
		})
	}
}

func TestColorAt_PiecewisePath(t *testing.T) {
	var prev RGB
	for i := 0; i <= 100; i++ {
		r := float64(i) / 100
		c := ColorAt(r)
		assert.Zero(t, c.B, "blue channel must stay 0 at %v", r)
		if r <= 0.5 {
			assert.Equal(t, uint8(0xff), c.R, "red half keeps R saturated at %v", r)
			if i > 0 {
				assert.GreaterOrEqual(t, c.G, prev.G, "G must not decrease at %v", r)
			}
		} else {
			assert.Equal(t, uint8(0xff), c.G, "green half keeps G saturated at %v", r)
			assert.LessOrEqual(t, c.R, prev.R, "R must not increase at %v", r)
		}
		prev = c
	}
}

func TestRGB_Encoding(t *testing.T) {
	tests := []struct {
		name    string
		in      RGB
		wantInt int
		wantHex string
	}{
		{"red", Red, 0xff0000, "ff0000"},
		{"yellow", Yellow, 0xffff00, "ffff00"},
		{"green", Green, 0x00ff00, "00ff00"},
		{"mixed", RGB{R: 0x12, G: 0x34, B: 0x56}, 0x123456, "123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantInt, tt.in.Int())
			assert.Equal(t, tt.wantHex, tt.in.Hex())
		})
	}
}
