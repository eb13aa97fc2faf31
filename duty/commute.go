package duty

// =============================================================================
// TRIP / COMMUTE COUNTER (Entfernungspauschale)
// =============================================================================

// CommuteCount is the breakdown of home <-> airport trips.
//
// A and E days are dates on which a flight carries the duty code. Medical
// and ground duty days are counted only when the settings say so. Training
// days are dates whose flights are all domestic and carry no A/E code; they
// are taken to be simulator or training days at the base and always count.
//
//	one-way:    Trips = A + ME + GD + TR
//	round trip: Trips = (A + E) + 2 x (ME + GD + TR)
//	            with CountOnlyAFlag, A replaces A + E
type CommuteCount struct {
	ADays          int  `json:"a_days"`
	EDays          int  `json:"e_days"`
	MedicalDays    int  `json:"medical_days"`
	GroundDutyDays int  `json:"ground_duty_days"`
	TrainingDays   int  `json:"training_days"`
	OneWay         bool `json:"one_way"`
	Trips          int  `json:"trips"`
}

// CountCommutes counts commute trips over the given events.
func CountCommutes(events []Event, s Settings) CommuteCount {
	home := s.home()
	aDays := make(map[string]bool)
	eDays := make(map[string]bool)
	medical := make(map[string]bool)
	ground := make(map[string]bool)
	domesticOnly := make(map[string]bool) // date -> every flight domestic, no A/E

	for _, ev := range events {
		switch e := ev.(type) {
		case Flight:
			key := e.Date.Key()
			switch e.DutyCode {
			case DutyA:
				aDays[key] = true
			case DutyE:
				eDays[key] = true
			}
			plain := legOf(e, home) == legDomestic && e.DutyCode == DutyNone
			if prev, seen := domesticOnly[key]; seen {
				domesticOnly[key] = prev && plain
			} else {
				domesticOnly[key] = plain
			}
		case MarkerDay:
			switch {
			case e.Type == MarkerMedical && s.CountMedicalAsTrip:
				medical[e.Date.Key()] = true
			case e.Type.IsGroundDuty() && s.CountGroundDutyAsTrip:
				ground[e.Date.Key()] = true
			}
		}
	}

	training := 0
	for _, ok := range domesticOnly {
		if ok {
			training++
		}
	}

	c := CommuteCount{
		ADays:          len(aDays),
		EDays:          len(eDays),
		MedicalDays:    len(medical),
		GroundDutyDays: len(ground),
		TrainingDays:   training,
		OneWay:         s.OneWay,
	}
	markers := c.MedicalDays + c.GroundDutyDays + c.TrainingDays
	switch {
	case s.OneWay:
		c.Trips = c.ADays + markers
	case s.CountOnlyAFlag:
		c.Trips = c.ADays + 2*markers
	default:
		c.Trips = c.ADays + c.EDays + 2*markers
	}
	return c
}

// CountWorkDays counts the distinct dates that are work days: every flight
// date, plus medical, FL and ground duty days when the matching setting is
// on.
func CountWorkDays(events []Event, s Settings) int {
	days := make(map[string]bool)
	for _, ev := range events {
		switch e := ev.(type) {
		case Flight:
			days[e.Date.Key()] = true
		case MarkerDay:
			switch {
			case e.Type == MarkerMedical && s.CountMedicalAsTrip,
				e.Type == MarkerAbroad && s.CountForeignAsWorkDay,
				e.Type.IsGroundDuty() && s.CountGroundDutyAsTrip:
				days[e.Date.Key()] = true
			}
		}
	}
	return len(days)
}
