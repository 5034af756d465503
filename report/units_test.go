package report

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnits_RoundTrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10) // 2^256-1
	require.True(t, ok)

	for _, tc := range []struct {
		base    string
		display string
	}{
		{base: "0", display: "0"},
		{base: "1", display: "0.000000000000000001"},
		{base: "500000000000000000", display: "0.5"},
		{base: "1500000000000000000", display: "1.5"},
		{base: "1000000000000000000", display: "1"},
		{base: "123456789012345678901", display: "123.456789012345678901"},
		{base: huge.String(), display: "115792089237316195423570985008687907853269984665640564039457.584007913129639935"},
	} {
		t.Run(tc.base, func(t *testing.T) {
			v, ok := new(big.Int).SetString(tc.base, 10)
			require.True(t, ok)

			s := EtherUnits.Format(v)
			require.Equal(t, tc.display, s)

			back, err := EtherUnits.Parse(s)
			require.NoError(t, err)
			require.Zero(t, v.Cmp(back), "expected %s, got %s", v, back)
		})
	}
}

func TestUnits_GAS(t *testing.T) {
	require.Equal(t, "1.5", GASUnits.Format(big.NewInt(1_5000_0000)))

	v, err := GASUnits.Parse("0.00000001")
	require.NoError(t, err)
	require.EqualValues(t, 1, v.Int64())

	_, err = GASUnits.Parse("0.000000001")
	require.Error(t, err)
}

func TestUnits_Invalid(t *testing.T) {
	for _, s := range []string{"", "abc", "1.2.3", "-1", "-0.5", "1e18"} {
		_, err := EtherUnits.Parse(s)
		require.Error(t, err, s)
	}

	require.Equal(t, "0", EtherUnits.Format(nil))
	require.Equal(t, "-0.5", EtherUnits.Format(big.NewInt(-500000000000000000)))
}
