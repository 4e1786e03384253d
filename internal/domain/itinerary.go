package domain

import "fmt"

// TimeBlockName is one of the three subdivisions of a day.
type TimeBlockName string

const (
	Morning   TimeBlockName = "morning"
	Afternoon TimeBlockName = "afternoon"
	Evening   TimeBlockName = "evening"
)

// BlockOrder is the fixed chronological order of blocks within a day.
var BlockOrder = []TimeBlockName{Morning, Afternoon, Evening}

func (b TimeBlockName) Valid() bool {
	switch b {
	case Morning, Afternoon, Evening:
		return true
	}
	return false
}

func (b TimeBlockName) Index() int {
	switch b {
	case Morning:
		return 0
	case Afternoon:
		return 1
	case Evening:
		return 2
	}
	return -1
}

// Activity is a scheduled visit. Fields are copied from the POI it was
// built from so that edits never leave dangling references.
type Activity struct {
	Name            string   `json:"name"`
	Time            string   `json:"time"`
	DurationMinutes int      `json:"duration_minutes"`
	TravelMinutes   int      `json:"travel_minutes_from_previous"`
	Location        GeoPoint `json:"location"`
	Category        string   `json:"category"`
	SourceLocator   string   `json:"source_locator"`
	Description     string   `json:"description,omitempty"`
	OpeningHours    string   `json:"opening_hours,omitempty"`
	Indoor          *bool    `json:"indoor,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
}

// ActivityFromPOI copies the POI fields verbatim.
func ActivityFromPOI(p POI) Activity {
	duration := p.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes(p.Category)
	}
	return Activity{
		Name:            p.Name,
		DurationMinutes: duration,
		Location:        p.Location,
		Category:        p.Category,
		SourceLocator:   p.SourceLocator,
		Description:     p.Description,
		OpeningHours:    p.OpeningHours,
		Indoor:          p.Indoor,
		Rating:          p.Rating,
	}
}

type TimeBlock struct {
	Name       TimeBlockName `json:"name"`
	Activities []Activity    `json:"activities"`
}

type Day struct {
	Number int         `json:"day"`
	Date   string      `json:"date,omitempty"`
	Blocks []TimeBlock `json:"blocks"`
}

// NewDay returns a day with the three empty blocks in order.
func NewDay(number int, date string) Day {
	blocks := make([]TimeBlock, 0, len(BlockOrder))
	for _, name := range BlockOrder {
		blocks = append(blocks, TimeBlock{Name: name, Activities: []Activity{}})
	}
	return Day{Number: number, Date: date, Blocks: blocks}
}

func (d *Day) Block(name TimeBlockName) *TimeBlock {
	for i := range d.Blocks {
		if d.Blocks[i].Name == name {
			return &d.Blocks[i]
		}
	}
	return nil
}

// Activities returns the day's activities in chronological order.
func (d Day) Activities() []Activity {
	var out []Activity
	for _, b := range d.Blocks {
		out = append(out, b.Activities...)
	}
	return out
}

func (d Day) Count() int {
	n := 0
	for _, b := range d.Blocks {
		n += len(b.Activities)
	}
	return n
}

type Itinerary struct {
	Destination        string     `json:"destination"`
	Days               int        `json:"days"`
	Pace               Pace       `json:"pace"`
	Interests          []string   `json:"interests"`
	TravelMode         TravelMode `json:"travel_mode"`
	StartDate          string     `json:"start_date,omitempty"`
	StartingPoint      string     `json:"starting_point,omitempty"`
	DayPlans           []Day      `json:"day_plans"`
	TotalTravelMinutes int        `json:"total_travel_minutes"`
	Warnings           []string   `json:"warnings,omitempty"`
}

// Day returns the 1-based day, or nil when out of range.
func (it *Itinerary) Day(number int) *Day {
	if number < 1 || number > len(it.DayPlans) {
		return nil
	}
	return &it.DayPlans[number-1]
}

func (it Itinerary) Activities() []Activity {
	var out []Activity
	for _, d := range it.DayPlans {
		out = append(out, d.Activities()...)
	}
	return out
}

// UsedLocators is the set of source locators already scheduled.
func (it Itinerary) UsedLocators() map[string]bool {
	used := make(map[string]bool)
	for _, a := range it.Activities() {
		used[a.SourceLocator] = true
	}
	return used
}

func (it Itinerary) Clone() Itinerary {
	out := it
	out.Interests = append([]string(nil), it.Interests...)
	out.Warnings = append([]string(nil), it.Warnings...)
	out.DayPlans = make([]Day, len(it.DayPlans))
	for i, d := range it.DayPlans {
		nd := Day{Number: d.Number, Date: d.Date, Blocks: make([]TimeBlock, len(d.Blocks))}
		for j, b := range d.Blocks {
			nd.Blocks[j] = TimeBlock{Name: b.Name, Activities: append([]Activity{}, b.Activities...)}
		}
		out.DayPlans[i] = nd
	}
	return out
}

// Section addresses one time block of one day.
type Section struct {
	Day   int           `json:"day"`
	Block TimeBlockName `json:"block"`
}

func (s Section) String() string {
	return fmt.Sprintf("day[%d].%s", s.Day, s.Block)
}

// Sections enumerates every (day, block) pair of the itinerary in order.
func (it Itinerary) Sections() []Section {
	var out []Section
	for _, d := range it.DayPlans {
		for _, b := range d.Blocks {
			out = append(out, Section{Day: d.Number, Block: b.Name})
		}
	}
	return out
}
