package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2_400_000, "2.4M"},
		{1_000_000, "1.0M"},
		{15_300, "15.3K"},
		{1_000, "1.0K"},
		{999, "999"},
		{1234567.89, "1.2M"},
		{0, "0"},
		{-5_500, "-5,500"},
		{-2_000_000, "-2,000,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compact(tt.in))
	}
}

func TestCompact_ThousandsSeparators(t *testing.T) {
	assert.Equal(t, "999", Compact(999))
	assert.Equal(t, "102", Compact(101.7))
	assert.Equal(t, "-42", Compact(-42))
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "$1.5K", Currency(1500, "USD"))
	assert.Equal(t, "€2.0M", Currency(2_000_000, "EUR"))
	assert.Equal(t, "$750", Currency(750, "ZZZ"))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "5.0%", Percent(5))
	assert.Equal(t, "12.3%", Percent(12.34))
	assert.Equal(t, "0%", Percent(0))
	assert.Equal(t, "0%", Percent(math.NaN()))
	assert.Equal(t, "0%", Percent(math.Inf(1)))
}
