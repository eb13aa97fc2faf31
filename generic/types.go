/*
Package generic provides the domain-agnostic primitives of the deduction engine.

PURPOSE:
  This package contains the calendar, money and storage types that every
  other package builds on. It knows nothing about flights, duty codes or tax
  law; the duty package layers that on top.

KEY CONCEPTS IN THIS FILE (types.go):
  - CrewID / RosterID: Type-safe identifiers
  - Round2: The single rounding rule applied at summary boundaries

DESIGN PRINCIPLES:
  1. Precision: Money is decimal.Decimal throughout, never float64
  2. Type Safety: Strong typing for IDs prevents mixing crew/roster IDs

SEE ALSO:
  - time.go: TimePoint and ClockTime
  - period.go: Period iteration
  - errors.go: Sentinel errors and warnings
  - store.go: Roster persistence interface
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// Round2 rounds a decimal to two places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CrewID string
type RosterID string
