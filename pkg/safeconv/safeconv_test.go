package safeconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustUintToInt(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		got := MustUintToInt(42)
		assert.Equal(t, 42, got)
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		got := MustUintToInt(0)
		assert.Equal(t, 0, got)
	})

	t.Run("max_int", func(t *testing.T) {
		t.Parallel()

		got := MustUintToInt(uint(MaxInt))
		assert.Equal(t, MaxInt, got)
	})

	t.Run("overflow_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: uint to int overflow", func() {
			MustUintToInt(uint(MaxInt) + 1)
		})
	})
}

func TestMustIntToUint(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		got := MustIntToUint(42)
		assert.Equal(t, uint(42), got)
	})

	t.Run("zero", func(t *testing.T) {
		t.Parallel()

		got := MustIntToUint(0)
		assert.Equal(t, uint(0), got)
	})

	t.Run("negative_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: negative int to uint conversion", func() {
			MustIntToUint(-1)
		})
	})
}
