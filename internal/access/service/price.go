package service

import (
	"math"
	"strconv"
	"strings"

	apperrors "github.com/tollgate-io/tollgate/internal/errors"
)

// FractionalDigits is the fixed-point precision of the ledger currency:
// one currency unit equals 10^9 smallest units.
const FractionalDigits = 9

// PriceToSmallestUnit converts a decimal price string in currency units to
// smallest units using exact string arithmetic; floats are never involved.
// Rejects non-numeric, non-positive, or over-precise values.
func PriceToSmallestUnit(price string) (uint64, error) {
	price = strings.TrimSpace(price)
	if price == "" {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "price is empty")
	}
	if strings.HasPrefix(price, "-") || strings.HasPrefix(price, "+") {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "price must be an unsigned decimal")
	}

	intPart := price
	fracPart := ""
	if i := strings.IndexByte(price, '.'); i >= 0 {
		intPart, fracPart = price[:i], price[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed price")
		}
	}
	if intPart == "" && fracPart == "" {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed price")
	}
	if len(fracPart) > FractionalDigits {
		return 0, apperrors.Wrapf(apperrors.ErrInvalidInput,
			"price precision exceeds %d fractional digits", FractionalDigits)
	}

	if intPart == "" {
		intPart = "0"
	}
	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "non-numeric price")
	}

	// Right-pad the fraction to exactly FractionalDigits digits.
	padded := fracPart + strings.Repeat("0", FractionalDigits-len(fracPart))
	frac, err := strconv.ParseUint(padded, 10, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "non-numeric price")
	}

	const scale = uint64(1_000_000_000)
	if whole > (math.MaxUint64-frac)/scale {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "price overflows smallest unit range")
	}
	total := whole*scale + frac
	if total == 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "price must be positive")
	}
	return total, nil
}
