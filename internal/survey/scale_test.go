package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleParse(t *testing.T) {
	tests := []struct {
		name  string
		max   int
		input string
		want  int
		ok    bool
	}{
		{name: "five point valid low", max: 5, input: "1", want: 1, ok: true},
		{name: "five point valid high", max: 5, input: "5", want: 5, ok: true},
		{name: "five point out of range", max: 5, input: "6", ok: false},
		{name: "five point zero", max: 5, input: "0", ok: false},
		{name: "five point garbage", max: 5, input: "abc", ok: false},
		{name: "five point trailing text", max: 5, input: "5!", ok: false},
		{name: "ten point valid ten", max: 10, input: "10", want: 10, ok: true},
		{name: "ten point valid single digit", max: 10, input: "9", want: 9, ok: true},
		{name: "ten point eleven", max: 10, input: "11", ok: false},
		{name: "ten point zero", max: 10, input: "0", ok: false},
		{name: "ten point empty", max: 10, input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScale(tt.max, 0, true)
			got, ok := s.Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScaleDefaults(t *testing.T) {
	five := NewScale(5, 0, false)
	assert.Equal(t, 5, five.Max)
	assert.Equal(t, 3, five.LowThreshold)

	ten := NewScale(10, 0, true)
	assert.Equal(t, 10, ten.Max)
	assert.Equal(t, 5, ten.LowThreshold)

	// Unsupported scales collapse to the five-point default.
	odd := NewScale(7, 0, false)
	assert.Equal(t, 5, odd.Max)
}

func TestScaleIsLow(t *testing.T) {
	five := NewScale(5, 3, false)
	assert.True(t, five.IsLow(1))
	assert.True(t, five.IsLow(3))
	assert.False(t, five.IsLow(4))

	ten := NewScale(10, 5, true)
	assert.True(t, ten.IsLow(5))
	assert.False(t, ten.IsLow(6))
}

func TestScaleEmoji(t *testing.T) {
	five := NewScale(5, 3, false)
	assert.Equal(t, "😠", five.Emoji(1))
	assert.Equal(t, "🤩", five.Emoji(5))
	assert.Equal(t, "", five.Emoji(0))
	assert.Equal(t, "", five.Emoji(6))

	// The ten-point scale collapses onto the five sentiment buckets.
	ten := NewScale(10, 5, true)
	assert.Equal(t, "😠", ten.Emoji(1))
	assert.Equal(t, "😠", ten.Emoji(2))
	assert.Equal(t, "😕", ten.Emoji(3))
	assert.Equal(t, "🤩", ten.Emoji(10))
}
