package domain

// Pace is the coarse activity-density setting of a trip.
type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceModerate Pace = "moderate"
	PaceFast     Pace = "fast"
)

// Bounds returns the inclusive per-day activity count range for the pace.
func (p Pace) Bounds() (min, max int) {
	switch p {
	case PaceRelaxed:
		return 2, 3
	case PaceFast:
		return 4, 5
	default:
		return 3, 4
	}
}

func (p Pace) Valid() bool {
	switch p {
	case PaceRelaxed, PaceModerate, PaceFast:
		return true
	}
	return false
}

// TravelMode is how the traveller moves between activities.
type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
	ModeTransit TravelMode = "transit"
	ModeDriving TravelMode = "driving"
)

func (m TravelMode) Valid() bool {
	switch m {
	case ModeWalking, ModeCycling, ModeTransit, ModeDriving:
		return true
	}
	return false
}

// SpeedKmh is the advisory average speed used for travel estimates.
func (m TravelMode) SpeedKmh() float64 {
	switch m {
	case ModeCycling:
		return 14
	case ModeTransit:
		return 20
	case ModeDriving:
		return 30
	default:
		return 4.5
	}
}

// LegCeilingMinutes is the longest single leg considered comfortable for the mode.
func (m TravelMode) LegCeilingMinutes() int {
	switch m {
	case ModeTransit:
		return 45
	case ModeDriving:
		return 60
	default:
		return 30
	}
}

// Preferences are collected incrementally over the conversation. A zero
// value in any field means "not provided yet".
type Preferences struct {
	Destination   string     `json:"destination,omitempty"`
	Days          int        `json:"days,omitempty"`
	Interests     []string   `json:"interests,omitempty"`
	Pace          Pace       `json:"pace,omitempty"`
	Budget        string     `json:"budget,omitempty"`
	TravelMode    TravelMode `json:"travel_mode,omitempty"`
	StartDate     string     `json:"start_date,omitempty"`
	EndDate       string     `json:"end_date,omitempty"`
	FlexibleDates bool       `json:"flexible_dates,omitempty"`
	StartingPoint string     `json:"starting_point,omitempty"`
}

// Field names a preference that the clarification policy can ask about.
type Field string

const (
	FieldNone        Field = ""
	FieldDestination Field = "destination"
	FieldDuration    Field = "duration"
	FieldTravelMode  Field = "travel_mode"
	FieldDates       Field = "dates"
)

// HasDates reports whether the dates question has been resolved, either
// with a concrete start date or an explicit "flexible" answer.
func (p Preferences) HasDates() bool {
	return p.StartDate != "" || p.FlexibleDates
}

func (p Preferences) Clone() Preferences {
	out := p
	out.Interests = append([]string(nil), p.Interests...)
	return out
}
