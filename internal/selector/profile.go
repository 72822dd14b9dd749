package selector

import (
	"time"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

// Profile describes the examinee for table selection only; it is never stored.
type Profile struct {
	Age            *int   `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
	BirthDate      string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"` // used when Age is absent
	Education      string `json:"education,omitempty"`
	Region         string `json:"region,omitempty"`
	TransitContext string `json:"transit_context,omitempty"` // first_license|renewal|category_change|professional
}

// AgeAt returns the profile's age on the given date. A birth date that does
// not parse yields ok=false.
func (p Profile) AgeAt(on time.Time) (age int, ok bool) {
	if p.Age != nil {
		return *p.Age, true
	}
	if p.BirthDate == "" {
		return 0, false
	}
	bd, err := time.Parse("2006-01-02", p.BirthDate)
	if err != nil {
		return 0, false
	}
	age = on.Year() - bd.Year()
	if on.Month() < bd.Month() || (on.Month() == bd.Month() && on.Day() < bd.Day()) {
		age--
	}
	return age, true
}

// facts is the profile resolved once per selection.
type facts struct {
	age       int
	hasAge    bool
	education norms.Education
	hasEdu    bool
	transit   norms.Transit
	inTransit bool
	region    string
}

func resolve(p Profile, on time.Time, primary string) facts {
	f := facts{region: p.Region}
	if f.region == "" {
		f.region = primary
	}
	f.age, f.hasAge = p.AgeAt(on)
	if p.Education != "" {
		f.education, f.hasEdu = norms.EducationOf(p.Education)
	}
	if p.TransitContext != "" {
		f.transit, f.inTransit = norms.TransitOf(p.TransitContext)
	}
	return f
}
