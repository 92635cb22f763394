package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	yuhFeeRate       = 0.0095
	yuhMinimumFee    = 1.0
	referenceFeeRate = 0.02
	referenceBaseFee = 15.0
)

// FeeComparison is the fee calculator result for one amount.
type FeeComparison struct {
	Amount         float64 `json:"amount"`
	YuhFee         float64 `json:"yuh_fee"`
	ReferenceFee   float64 `json:"reference_fee"`
	Savings        float64 `json:"savings"`
	YuhLabel       string  `json:"yuh_label"`
	ReferenceLabel string  `json:"reference_label"`
}

// YuhFee is 0.95% of amount with a 1 CHF minimum.
func YuhFee(amount float64) float64 {
	return math.Max(yuhMinimumFee, amount*yuhFeeRate)
}

// ReferenceFee is the fee a traditional bank charges: 2% plus 15 CHF.
func ReferenceFee(amount float64) float64 {
	return amount*referenceFeeRate + referenceBaseFee
}

// CompareFees computes both fees for amount.
func CompareFees(amount float64) FeeComparison {
	y, r := YuhFee(amount), ReferenceFee(amount)
	return FeeComparison{
		Amount:         amount,
		YuhFee:         y,
		ReferenceFee:   r,
		Savings:        r - y,
		YuhLabel:       FormatCHF(y),
		ReferenceLabel: FormatCHF(r),
	}
}

// FormatCHF renders v as "CHF 12.34".
func FormatCHF(v float64) string {
	return fmt.Sprintf("CHF %.2f", v)
}

// ParseAmount extracts a number from free text like "CHF 1'000.50".
// Everything except digits and dots is dropped; unparsable input yields 0.
func ParseAmount(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
