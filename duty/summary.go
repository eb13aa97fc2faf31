/*
summary.go - Monthly and yearly aggregation (Endabrechnung)

PURPOSE:
  Folds the per-day and per-night results into the figures that end up in
  the tax return, per month and per tax year.

YEARLY DEDUCTION:
  total = cleaning costs
        + tips                   (hotel nights x tip per night)
        + distance deduction     (commute trips x distance, per-year rates)
        + max(0, meal allowance - employer reimbursement)

  The employer's tax-free reimbursement is offset against the meal
  allowance only; a surplus is not taxable income here and never makes the
  deduction negative.

ROUNDING:
  Money is decimal throughout and rounded to cents once, when a month is
  summarized. Yearly figures are sums of the rounded monthly figures.
*/
package duty

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/crewtax/generic"
	"github.com/warp/crewtax/rates"
)

// =============================================================================
// SUMMARY TYPES
// =============================================================================

// MonthSummary is one roster month.
type MonthSummary struct {
	Year          int                     `json:"year"`
	Month         time.Month              `json:"month"`
	FlightHours   decimal.Decimal         `json:"flight_hours"`
	WorkDays      int                     `json:"work_days"`
	Commute       CommuteCount            `json:"commute"`
	Distance      rates.DistanceDeduction `json:"distance"`
	MealAllowance decimal.Decimal         `json:"meal_allowance"`
	Reimbursement decimal.Decimal         `json:"reimbursement"`
	HotelNights   int                     `json:"hotel_nights"`
	Tips          decimal.Decimal         `json:"tips"`
	CleaningCosts decimal.Decimal         `json:"cleaning_costs"`
}

// CountryAllowance groups the allowance days of one country and rate class.
type CountryAllowance struct {
	Country   string          `json:"country"`
	RateClass RateClass       `json:"rate_class"`
	Days      int             `json:"days"`
	Rate      decimal.Decimal `json:"rate"`
	Total     decimal.Decimal `json:"total"`
}

// YearSummary is one tax year.
type YearSummary struct {
	Year                 int                `json:"year"`
	Months               []MonthSummary     `json:"months"`
	FlightHours          decimal.Decimal    `json:"flight_hours"`
	WorkDays             int                `json:"work_days"`
	CommuteTrips         int                `json:"commute_trips"`
	DistanceDeduction    decimal.Decimal    `json:"distance_deduction"`
	MealAllowance        decimal.Decimal    `json:"meal_allowance"`
	MealByCountry        []CountryAllowance `json:"meal_by_country"`
	Reimbursement        decimal.Decimal    `json:"reimbursement"`
	DeductibleDifference decimal.Decimal    `json:"deductible_difference"`
	HotelNights          int                `json:"hotel_nights"`
	TipPerNight          decimal.Decimal    `json:"tip_per_night"`
	Tips                 decimal.Decimal    `json:"tips"`
	CleaningCosts        decimal.Decimal    `json:"cleaning_costs"`
	Total                decimal.Decimal    `json:"total"`
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// SummaryInput carries everything Summarize folds.
type SummaryInput struct {
	Events         []Event
	Allowances     AllowanceMap
	HotelNights    []HotelNight
	Reimbursements []Reimbursement
	Settings       Settings
	Rates          RateTable
}

// Summarize builds one YearSummary per tax year that has any data, in year
// order.
func Summarize(in SummaryInput) []YearSummary {
	months := make(map[generic.MonthKey]*monthData)
	get := func(k generic.MonthKey) *monthData {
		if d, ok := months[k]; ok {
			return d
		}
		d := &monthData{key: k}
		months[k] = d
		return d
	}

	for _, ev := range in.Events {
		d := get(generic.MonthOf(ev.Day()))
		d.events = append(d.events, ev)
	}
	for _, a := range in.Allowances.Sorted() {
		d := get(generic.MonthOf(a.Date))
		d.allowances = append(d.allowances, a)
	}
	for _, n := range in.HotelNights {
		get(generic.MonthOf(n.Date)).nights++
	}
	for _, r := range in.Reimbursements {
		d := get(generic.MonthKey{Year: r.Year, Month: r.Month})
		d.reimbursement = d.reimbursement.Add(r.TaxFree)
	}

	keys := make([]generic.MonthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	var years []YearSummary
	for _, k := range keys {
		if len(years) == 0 || years[len(years)-1].Year != k.Year {
			years = append(years, newYearSummary(k.Year, in.tipPerNight(k.Year)))
		}
		y := &years[len(years)-1]
		y.addMonth(months[k].summarize(in.Settings, y.TipPerNight))
		y.addAllowances(months[k].allowances)
	}
	for i := range years {
		years[i].finish()
	}
	if years == nil {
		years = []YearSummary{}
	}
	return years
}

func (in SummaryInput) tipPerNight(year int) decimal.Decimal {
	if in.Settings.TipPerNight != nil {
		return *in.Settings.TipPerNight
	}
	return in.Rates.TipPerNight(year)
}

type monthData struct {
	key           generic.MonthKey
	events        []Event
	allowances    []DailyAllowance
	nights        int
	reimbursement decimal.Decimal
}

func (d *monthData) summarize(s Settings, tip decimal.Decimal) MonthSummary {
	hours := decimal.Zero
	for _, f := range Flights(d.events) {
		hours = hours.Add(decimal.NewFromFloat(f.BlockTimeHours))
	}
	meal := decimal.Zero
	for _, a := range d.allowances {
		meal = meal.Add(a.Rate)
	}

	commute := CountCommutes(d.events, s)
	workDays := CountWorkDays(d.events, s)
	distance := rates.DistanceRates(d.key.Year).Deduct(commute.Trips, s.DistanceKm)
	distance.Total = generic.Round2(distance.Total)
	distance.First20Km = generic.Round2(distance.First20Km)
	distance.Above20Km = generic.Round2(distance.Above20Km)

	return MonthSummary{
		Year:          d.key.Year,
		Month:         d.key.Month,
		FlightHours:   generic.Round2(hours),
		WorkDays:      workDays,
		Commute:       commute,
		Distance:      distance,
		MealAllowance: generic.Round2(meal),
		Reimbursement: generic.Round2(d.reimbursement),
		HotelNights:   d.nights,
		Tips:          generic.Round2(tip.Mul(decimal.NewFromInt(int64(d.nights)))),
		CleaningCosts: generic.Round2(s.CleaningCostPerDay.Mul(decimal.NewFromInt(int64(workDays)))),
	}
}

func newYearSummary(year int, tip decimal.Decimal) YearSummary {
	return YearSummary{
		Year:              year,
		Months:            []MonthSummary{},
		MealByCountry:     []CountryAllowance{},
		FlightHours:       decimal.Zero,
		DistanceDeduction: decimal.Zero,
		MealAllowance:     decimal.Zero,
		Reimbursement:     decimal.Zero,
		TipPerNight:       tip,
		Tips:              decimal.Zero,
		CleaningCosts:     decimal.Zero,
	}
}

func (y *YearSummary) addMonth(m MonthSummary) {
	y.Months = append(y.Months, m)
	y.FlightHours = y.FlightHours.Add(m.FlightHours)
	y.WorkDays += m.WorkDays
	y.CommuteTrips += m.Commute.Trips
	y.DistanceDeduction = y.DistanceDeduction.Add(m.Distance.Total)
	y.MealAllowance = y.MealAllowance.Add(m.MealAllowance)
	y.Reimbursement = y.Reimbursement.Add(m.Reimbursement)
	y.HotelNights += m.HotelNights
	y.Tips = y.Tips.Add(m.Tips)
	y.CleaningCosts = y.CleaningCosts.Add(m.CleaningCosts)
}

func (y *YearSummary) addAllowances(records []DailyAllowance) {
	for _, a := range records {
		if a.RateClass == RateNone {
			continue
		}
		i := sort.Search(len(y.MealByCountry), func(i int) bool {
			return !countryAllowanceLess(y.MealByCountry[i], a.Country, a.RateClass)
		})
		if i == len(y.MealByCountry) || y.MealByCountry[i].Country != a.Country || y.MealByCountry[i].RateClass != a.RateClass {
			y.MealByCountry = append(y.MealByCountry, CountryAllowance{})
			copy(y.MealByCountry[i+1:], y.MealByCountry[i:])
			y.MealByCountry[i] = CountryAllowance{Country: a.Country, RateClass: a.RateClass, Rate: a.Rate, Total: decimal.Zero}
		}
		y.MealByCountry[i].Days++
		y.MealByCountry[i].Total = y.MealByCountry[i].Total.Add(a.Rate)
	}
}

func countryAllowanceLess(c CountryAllowance, country string, class RateClass) bool {
	if c.Country != country {
		return c.Country < country
	}
	return c.RateClass < class
}

func (y *YearSummary) finish() {
	y.DeductibleDifference = generic.NonNegative(y.MealAllowance.Sub(y.Reimbursement))
	y.Total = y.CleaningCosts.Add(y.Tips).Add(y.DistanceDeduction).Add(y.DeductibleDifference)
}
