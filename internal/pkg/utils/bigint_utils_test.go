package utils

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBigInt(t *testing.T) {
	cases := []struct {
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{nil, 6, "0"},
		{big.NewInt(0), 6, "0"},
		{big.NewInt(1234500), 6, "1.2345"},
		{big.NewInt(12000000), 6, "12"},
		{big.NewInt(5), 6, "0.000005"},
		{big.NewInt(-2500000), 6, "-2.5"},
		{big.NewInt(42), 0, "42"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatBigInt(c.amount, c.decimals))
	}
}

func TestFormatFixed(t *testing.T) {
	assert.Equal(t, "43.22", FormatFixed(big.NewInt(43215000), 6, 2))
	assert.Equal(t, "43.21", FormatFixed(big.NewInt(43214999), 6, 2))
	assert.Equal(t, "0.00", FormatFixed(nil, 6, 2))
	assert.Equal(t, "0.05", FormatFixed(big.NewInt(50000), 6, 2))
	assert.Equal(t, "-2.00", FormatFixed(big.NewInt(-2000000), 6, 2))
	assert.Equal(t, "100", FormatFixed(big.NewInt(100000000), 6, 0))
	assert.Equal(t, "7.50", FormatFixed(big.NewInt(75), 1, 2))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, "12000000", MinorUnits(12, 6).String())
	assert.Equal(t, "10000000", MinorUnits(10, 6).String())
}

func TestScaleGas(t *testing.T) {
	assert.Equal(t, uint64(130000), ScaleGas(100000, 13, 10))
	assert.Equal(t, uint64(150000), ScaleGas(100000, 15, 10))
	assert.Equal(t, uint64(131), ScaleGas(101, 13, 10))
	assert.Equal(t, uint64(77), ScaleGas(77, 1, 0))
}

func TestGweiToWei(t *testing.T) {
	assert.Equal(t, "5000000000", GweiToWei(5).String())
	assert.Equal(t, "1500000000", GweiToWei(1.5).String())
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "0h 43m", FormatCountdown(2600))
	assert.Equal(t, "1h 0m", FormatCountdown(3659))
	assert.Equal(t, "0h 0m", FormatCountdown(59))
	assert.Equal(t, "26h 1m", FormatCountdown(93700))
}
