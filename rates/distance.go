package rates

import "github.com/shopspring/decimal"

// =============================================================================
// DISTANCE RATES (Entfernungspauschale)
// =============================================================================

// DistanceRate is the per-kilometre commuting rate, split at 20 km.
//
//	2004-2020: 0.30 for every km
//	2021:      0.30 first 20 km, 0.35 from km 21
//	2022-2025: 0.30 first 20 km, 0.38 from km 21
//	2026+:     0.38 for every km
type DistanceRate struct {
	First20Km decimal.Decimal `json:"first_20_km"`
	Above20Km decimal.Decimal `json:"above_20_km"`
}

var (
	rate030 = decimal.RequireFromString("0.30")
	rate035 = decimal.RequireFromString("0.35")
	rate038 = decimal.RequireFromString("0.38")
	twenty  = decimal.NewFromInt(20)
)

// DistanceRates returns the commuting rates for a tax year.
func DistanceRates(year int) DistanceRate {
	switch {
	case year <= 2020:
		return DistanceRate{First20Km: rate030, Above20Km: rate030}
	case year == 2021:
		return DistanceRate{First20Km: rate030, Above20Km: rate035}
	case year <= 2025:
		return DistanceRate{First20Km: rate030, Above20Km: rate038}
	default:
		return DistanceRate{First20Km: rate038, Above20Km: rate038}
	}
}

// DistanceDeduction is the breakdown of the commuting deduction.
type DistanceDeduction struct {
	Trips      int             `json:"trips"`
	DistanceKm decimal.Decimal `json:"distance_km"`
	TotalKm    decimal.Decimal `json:"total_km"`
	First20Km  decimal.Decimal `json:"deduction_first_20_km"`
	Above20Km  decimal.Decimal `json:"deduction_above_20_km"`
	Total      decimal.Decimal `json:"total"`
	Rate       DistanceRate    `json:"rate"`
}

// Deduct computes the deduction for a number of trips of distanceKm each.
func (r DistanceRate) Deduct(trips int, distanceKm decimal.Decimal) DistanceDeduction {
	n := decimal.NewFromInt(int64(trips))
	first := decimal.Min(distanceKm, twenty)
	above := decimal.Max(decimal.Zero, distanceKm.Sub(twenty))

	d := DistanceDeduction{
		Trips:      trips,
		DistanceKm: distanceKm,
		TotalKm:    n.Mul(distanceKm),
		First20Km:  n.Mul(first).Mul(r.First20Km),
		Above20Km:  n.Mul(above).Mul(r.Above20Km),
		Rate:       r,
	}
	d.Total = d.First20Km.Add(d.Above20Km)
	return d
}
