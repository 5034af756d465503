package report

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
)

// Units converts amounts between the chain base unit and the display unit.
type Units struct {
	// Number of decimal places of the display unit.
	Decimals int
	// Display unit symbol, e.g. "GAS".
	Symbol string
}

var (
	// GASUnits describes N3 GAS: 1 GAS is 10^8 base units.
	GASUnits = Units{Decimals: 8, Symbol: "GAS"}

	// EtherUnits describes Ether: 1 ETH is 10^18 wei.
	EtherUnits = Units{Decimals: 18, Symbol: "ETH"}
)

var errNegativeAmount = errors.New("negative amount")

// Format returns decimal representation of the base unit amount in the display
// unit. Trailing zeros of the fractional part are omitted, nil is formatted as
// zero.
func (u Units) Format(amount *big.Int) string {
	if amount == nil {
		return "0"
	}

	if amount.Sign() < 0 {
		return "-" + fixedn.ToString(new(big.Int).Neg(amount), u.Decimals)
	}

	return fixedn.ToString(amount, u.Decimals)
}

// Parse converts decimal amount in the display unit to the base unit. It fails
// if the amount has more fractional digits than the unit allows or is
// negative.
func (u Units) Parse(s string) (*big.Int, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "-") {
		return nil, fmt.Errorf("parse %s amount %q: %w", u.Symbol, s, errNegativeAmount)
	}

	v, err := fixedn.FromString(s, u.Decimals)
	if err != nil {
		return nil, fmt.Errorf("parse %s amount %q: %w", u.Symbol, s, err)
	}

	return v, nil
}
