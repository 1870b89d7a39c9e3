package domain

import (
	"fmt"
	"math/big"
)

// oneUnit is 1e18 wei, the smallest-unit scale shared by the native asset and
// the payment token.
var oneUnit = big.NewInt(1_000_000_000_000_000_000)

// Quote is the amount a buyer owes for one ticket at a given USD price, split
// into the event's share and the admin fee.
type Quote struct {
	Gross *big.Int
	Fee   *big.Int
	Net   *big.Int
}

// Converter maps whole-unit USD prices to wei at a fixed rate with a fixed
// admin fee percentage. Both values are set once at construction; there is no
// dynamic pricing.
type Converter struct {
	rateUSD    uint64
	feePercent uint64
}

func NewConverter(rateUSD, feePercent uint64) (Converter, error) {
	if rateUSD == 0 {
		return Converter{}, fmt.Errorf("conversion rate must be positive")
	}
	if feePercent > 100 {
		return Converter{}, fmt.Errorf("fee percent %d out of range", feePercent)
	}
	return Converter{rateUSD: rateUSD, feePercent: feePercent}, nil
}

func (c Converter) RateUSD() uint64    { return c.rateUSD }
func (c Converter) FeePercent() uint64 { return c.feePercent }

// Price computes priceUSD * 1e18 / rate with truncating division. The sub-wei
// remainder of the division is absorbed: it is neither refunded nor tracked.
func (c Converter) Price(priceUSD uint64) Quote {
	gross := new(big.Int).SetUint64(priceUSD)
	gross.Mul(gross, oneUnit)
	gross.Quo(gross, new(big.Int).SetUint64(c.rateUSD))

	fee := new(big.Int).SetUint64(c.feePercent)
	fee.Mul(fee, gross)
	fee.Quo(fee, big.NewInt(100))

	return Quote{
		Gross: gross,
		Fee:   fee,
		Net:   new(big.Int).Sub(gross, fee),
	}
}
