// Package eligibility decides whether a donor may give blood.
//
// Every rule is evaluated independently; a failed rule never hides the
// outcome of another, so a donor sees all reasons at once.
package eligibility

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/bloodbank/internal/model"
)

// Donation limits.
const (
	MinAge                  = 18
	MaxAge                  = 65
	MinDonationIntervalDays = 56
)

// MinWeightKg is the lightest accepted donor weight.
var MinWeightKg = decimal.NewFromInt(50)

// RestrictedConditions disqualify a donor when any appears in the free-text
// medical conditions, matched case-insensitively as substrings.
var RestrictedConditions = []string{
	"hiv",
	"hepatitis",
	"malaria",
	"tb",
	"tuberculosis",
	"heart disease",
	"cancer",
	"epilepsy",
	"diabetes",
}

// Donor holds the fields eligibility is computed from.
type Donor struct {
	BloodGroup        string
	DateOfBirth       *time.Time
	Weight            decimal.NullDecimal
	LastDonationDate  *time.Time
	MedicalConditions string
}

// Evaluate runs every rule against d as of now.
func Evaluate(d Donor, now time.Time) model.Eligibility {
	res := model.Eligibility{
		IneligibilityReasons: []string{},
		WarningMessages:      []string{},
	}
	disqualify := func(format string, args ...any) {
		res.IneligibilityReasons = append(res.IneligibilityReasons, fmt.Sprintf(format, args...))
	}
	warn := func(msg string) {
		res.WarningMessages = append(res.WarningMessages, msg)
	}

	if d.DateOfBirth == nil {
		warn("Date of birth not provided; age could not be verified")
	} else {
		age := Age(*d.DateOfBirth, now)
		res.Checks.Age = &age
		switch {
		case age < MinAge:
			disqualify("Donor must be at least %d years old (current age: %d)", MinAge, age)
		case age > MaxAge:
			disqualify("Donor must be at most %d years old (current age: %d)", MaxAge, age)
		}
	}

	if !d.Weight.Valid {
		warn("Weight not provided; minimum weight could not be verified")
	} else {
		res.Checks.Weight = d.Weight
		if d.Weight.Decimal.LessThan(MinWeightKg) {
			disqualify("Minimum weight requirement is %skg (provided: %skg)", MinWeightKg, d.Weight.Decimal)
		}
	}

	if d.LastDonationDate != nil {
		days := DaysSince(*d.LastDonationDate, now)
		res.Checks.DaysSinceLastDonation = &days
		switch {
		case afterToday(*d.LastDonationDate, now):
			disqualify("Last donation date cannot be in the future")
		case days < MinDonationIntervalDays:
			disqualify("At least %d days must pass between donations (%d days since last donation, %d remaining)",
				MinDonationIntervalDays, days, MinDonationIntervalDays-days)
		}
	}

	if found := restrictedIn(d.MedicalConditions); len(found) > 0 {
		res.Checks.HasRestrictedConditions = true
		disqualify("Medical history includes a disqualifying condition: %s", strings.Join(found, ", "))
	}

	switch {
	case strings.TrimSpace(d.BloodGroup) == "":
		disqualify("Blood group is required")
	case !model.ValidBloodGroup(d.BloodGroup):
		disqualify("Invalid blood group %q", d.BloodGroup)
	}

	res.IsEligible = len(res.IneligibilityReasons) == 0
	return res
}

// Age returns completed years between dob and now by calendar subtraction:
// the birthday must have been reached this year for it to count. dob is a
// calendar date read in its own zone and compared against today's date in
// the zone of now.
func Age(dob, now time.Time) int {
	by, bm, bd := dob.Date()
	y, m, d := now.Date()
	age := y - by
	if m < bm || (m == bm && d < bd) {
		age--
	}
	return age
}

// DaysSince returns the days elapsed from then to now, rounded up. The
// difference is taken between instants, so the zones of then and now do not
// matter. A then after now counts as zero days.
func DaysSince(then, now time.Time) int {
	days := int(math.Ceil(now.Sub(then).Hours() / 24))
	return max(days, 0)
}

// afterToday reports whether the calendar date of then falls after the
// calendar date of now, each read in its own zone.
func afterToday(then, now time.Time) bool {
	ty, tm, td := then.Date()
	y, m, d := now.Date()
	return time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func restrictedIn(conditions string) []string {
	text := strings.ToLower(conditions)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var found []string
	for _, c := range RestrictedConditions {
		if strings.Contains(text, c) {
			found = append(found, c)
		}
	}
	return found
}
