// Package pricing implements closed-form European option valuation with a
// continuous dividend yield. All functions are total over the input domain:
// non-positive time-to-expiry or volatility collapses to intrinsic value and
// boundary greeks instead of failing, so expiry-day chains can be priced
// right up to and past the bell.
package pricing

import "math"

// Right identifies the option side.
type Right string

const (
	// Call is the right to buy the underlying at the strike.
	Call Right = "call"
	// Put is the right to sell the underlying at the strike.
	Put Right = "put"
)

// Valid returns true if the Right is one of the defined constants.
func (r Right) Valid() bool {
	return r == Call || r == Put
}

// Price returns the Black-Scholes value of a European option.
// spot and strike are in underlying terms, rate and q are annualized
// continuously-compounded rates, vol is annualized, tYears is in years.
func Price(spot, strike, rate, q, vol, tYears float64, right Right) float64 {
	if tYears <= 0 || vol <= 0 {
		return Intrinsic(spot, strike, right)
	}

	sqrtT := math.Sqrt(tYears)
	d1 := calcD1(spot, strike, rate, q, vol, tYears)
	d2 := d1 - vol*sqrtT

	discS := spot * math.Exp(-q*tYears)
	discK := strike * math.Exp(-rate*tYears)

	var value float64
	if right == Call {
		value = discS*normCDF(d1) - discK*normCDF(d2)
	} else {
		value = discK*normCDF(-d2) - discS*normCDF(-d1)
	}
	// European carry can discount a deep ITM option below exercise value; an
	// American-style 0DTE settlement never trades there.
	return math.Max(value, Intrinsic(spot, strike, right))
}

// Delta returns the option's sensitivity to a $1 underlying move,
// in [0,1] for calls and [-1,0] for puts.
func Delta(spot, strike, rate, q, vol, tYears float64, right Right) float64 {
	if tYears <= 0 || vol <= 0 {
		return boundaryDelta(spot, strike, right)
	}

	d1 := calcD1(spot, strike, rate, q, vol, tYears)
	disc := math.Exp(-q * tYears)

	if right == Call {
		return disc * normCDF(d1)
	}
	return disc * (normCDF(d1) - 1)
}

// Gamma returns the rate of change of delta per $1 underlying move.
// Identical for calls and puts.
func Gamma(spot, strike, rate, q, vol, tYears float64) float64 {
	if tYears <= 0 || vol <= 0 || spot <= 0 {
		return 0
	}
	d1 := calcD1(spot, strike, rate, q, vol, tYears)
	return math.Exp(-q*tYears) * normPDF(d1) / (spot * vol * math.Sqrt(tYears))
}

// Theta returns the expected value decay per calendar day (negative for long
// options under normal conditions).
func Theta(spot, strike, rate, q, vol, tYears float64, right Right) float64 {
	if tYears <= 0 || vol <= 0 {
		return 0
	}

	sqrtT := math.Sqrt(tYears)
	d1 := calcD1(spot, strike, rate, q, vol, tYears)
	d2 := d1 - vol*sqrtT

	discS := spot * math.Exp(-q*tYears)
	discK := strike * math.Exp(-rate*tYears)

	decay := -discS * normPDF(d1) * vol / (2 * sqrtT)

	var annual float64
	if right == Call {
		annual = decay - rate*discK*normCDF(d2) + q*discS*normCDF(d1)
	} else {
		annual = decay + rate*discK*normCDF(-d2) - q*discS*normCDF(-d1)
	}
	return annual / 365.0
}

// Intrinsic returns the exercise value of the option.
func Intrinsic(spot, strike float64, right Right) float64 {
	if right == Call {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

// boundaryDelta is the degenerate delta when the model collapses to
// intrinsic value: 0 out-of-the-money, +/-1 in-the-money, +/-0.5 at the pin.
func boundaryDelta(spot, strike float64, right Right) float64 {
	sign := 1.0
	if right == Put {
		sign = -1.0
	}
	switch {
	case spot == strike:
		return sign * 0.5
	case (right == Call && spot > strike) || (right == Put && spot < strike):
		return sign
	default:
		return 0
	}
}

// calcD1 computes the d1 term of the Black-Scholes formula:
// d1 = [ln(S/K) + (r - q + 0.5*sigma^2)T] / (sigma * sqrt(T))
func calcD1(spot, strike, rate, q, vol, tYears float64) float64 {
	return (math.Log(spot/strike) + (rate-q+0.5*vol*vol)*tYears) / (vol * math.Sqrt(tYears))
}

// normCDF computes the standard normal CDF via the error function,
// N(x) = 0.5 * (1 + erf(x / sqrt(2))).
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normPDF computes the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
