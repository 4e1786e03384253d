package services

import (
	"context"
	"fmt"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

// DayWindow is the daily availability in minutes after midnight.
type DayWindow struct {
	Start int
	End   int
}

var (
	afternoonStart = utils.MustClock("13:00")
	eveningStart   = utils.MustClock("18:00")
)

func DefaultWindow() DayWindow {
	return DayWindow{Start: utils.MustClock("09:00"), End: utils.MustClock("21:00")}
}

// ParseWindow reads "HH:MM" bounds.
func ParseWindow(start, end string) (DayWindow, error) {
	s, err := utils.ParseClock(start)
	if err != nil {
		return DayWindow{}, err
	}
	e, err := utils.ParseClock(end)
	if err != nil {
		return DayWindow{}, err
	}
	if e <= s {
		return DayWindow{}, fmt.Errorf("%w: day window %s-%s is empty", utils.ErrInvalidInput, start, end)
	}
	return DayWindow{Start: s, End: e}, nil
}

func (w DayWindow) Length() int { return w.End - w.Start }

// BlockStart is the nominal start of a block, clamped into the window.
func (w DayWindow) BlockStart(b domain.TimeBlockName) int {
	start := w.Start
	switch b {
	case domain.Afternoon:
		start = afternoonStart
	case domain.Evening:
		start = eveningStart
	}
	if start < w.Start {
		start = w.Start
	}
	if start > w.End {
		start = w.End
	}
	return start
}

// BlockEnd is where the next block nominally starts, or the window end.
func (w DayWindow) BlockEnd(b domain.TimeBlockName) int {
	switch b {
	case domain.Morning:
		return w.BlockStart(domain.Afternoon)
	case domain.Afternoon:
		return w.BlockStart(domain.Evening)
	}
	return w.End
}

// LongestBlock is the most minutes a single activity can take without
// running past its block.
func (w DayWindow) LongestBlock() int {
	longest := 0
	for _, b := range domain.BlockOrder {
		if n := w.BlockEnd(b) - w.BlockStart(b); n > longest {
			longest = n
		}
	}
	return longest
}

// splitCounts distributes k chained activities over morning, afternoon and
// evening.
func splitCounts(k int) [3]int {
	switch k {
	case 0:
		return [3]int{0, 0, 0}
	case 1:
		return [3]int{1, 0, 0}
	case 2:
		return [3]int{1, 1, 0}
	case 3:
		return [3]int{1, 1, 1}
	case 4:
		return [3]int{2, 1, 1}
	case 5:
		return [3]int{2, 2, 1}
	}
	rest := k - 1
	return [3]int{(rest + 1) / 2, rest / 2, 1}
}

// fillBlocks lays an ordered activity chain into a fresh day.
func fillBlocks(number int, date string, chain []domain.Activity, counts [3]int) domain.Day {
	day := domain.NewDay(number, date)
	i := 0
	for bi, n := range counts {
		for j := 0; j < n && i < len(chain); j++ {
			day.Blocks[bi].Activities = append(day.Blocks[bi].Activities, chain[i])
			i++
		}
	}
	for ; i < len(chain); i++ {
		last := len(day.Blocks) - 1
		day.Blocks[last].Activities = append(day.Blocks[last].Activities, chain[i])
	}
	return day
}

// Schedule recomputes every clock time, every travel leg and the total
// travel from scratch. Legs never cross block boundaries: the first activity
// of each block starts at the block start with zero travel.
func Schedule(ctx context.Context, it *domain.Itinerary, w DayWindow, est TravelEstimator) {
	if est == nil {
		est = HaversineEstimator{}
	}
	total := 0
	for di := range it.DayPlans {
		day := &it.DayPlans[di]
		for bi := range day.Blocks {
			block := &day.Blocks[bi]
			if len(block.Activities) == 0 {
				block.Activities = []domain.Activity{}
				continue
			}
			points := make([]domain.GeoPoint, len(block.Activities))
			for i, a := range block.Activities {
				points[i] = a.Location
			}
			legs := est.Legs(ctx, points, it.TravelMode)

			t := w.BlockStart(block.Name)
			for i := range block.Activities {
				a := &block.Activities[i]
				travel := 0
				if i > 0 && i < len(legs) {
					travel = legs[i]
				}
				t += travel
				a.TravelMinutes = travel
				a.Time = utils.FormatClock(t)
				t += a.DurationMinutes
				total += travel
			}
		}
	}
	it.TotalTravelMinutes = total
}

// hardViolations lists broken hard constraints: time budget, window
// containment, block overrun, overlap and the pace count. Evenness across
// days is checked separately since edits may legitimately unbalance days.
func hardViolations(it domain.Itinerary, w DayWindow) []string {
	var out []string
	lower, upper := it.Pace.Bounds()
	for _, day := range it.DayPlans {
		used := 0
		prevEnd, prevName := w.Start, ""
		for _, b := range day.Blocks {
			for _, a := range b.Activities {
				used += a.DurationMinutes + a.TravelMinutes
				start, err := utils.ParseClock(a.Time)
				if err != nil {
					out = append(out, fmt.Sprintf("day %d: %s has no valid start time", day.Number, a.Name))
					continue
				}
				end := start + a.DurationMinutes
				if start < w.Start || end > w.End {
					out = append(out, fmt.Sprintf("day %d: %s (%s, %d min) falls outside %s-%s",
						day.Number, a.Name, a.Time, a.DurationMinutes, utils.FormatClock(w.Start), utils.FormatClock(w.End)))
				}
				if prevName != "" && start < prevEnd {
					out = append(out, fmt.Sprintf("day %d: %s starts at %s before %s ends at %s",
						day.Number, a.Name, a.Time, prevName, utils.FormatClock(prevEnd)))
				}
				// The evening is bounded by the window check above.
				if limit := w.BlockEnd(b.Name); b.Name != domain.Evening && end > limit {
					out = append(out, fmt.Sprintf("day %d: %s runs past the %s end at %s",
						day.Number, a.Name, b.Name, utils.FormatClock(limit)))
				}
				prevEnd, prevName = end, a.Name
			}
		}
		if used > w.Length() {
			out = append(out, fmt.Sprintf("day %d: %d minutes of activities and travel exceed the %d minute window",
				day.Number, used, w.Length()))
		}
		if n := day.Count(); n < lower || n > upper {
			out = append(out, fmt.Sprintf("day %d: %d activities outside the %s range %d-%d",
				day.Number, n, it.Pace, lower, upper))
		}
	}
	return out
}

// unevenDays reports when per-day counts differ by more than one.
func unevenDays(it domain.Itinerary) string {
	if len(it.DayPlans) == 0 {
		return ""
	}
	fewest, most := it.DayPlans[0].Count(), it.DayPlans[0].Count()
	for _, d := range it.DayPlans[1:] {
		n := d.Count()
		if n < fewest {
			fewest = n
		}
		if n > most {
			most = n
		}
	}
	if most-fewest > 1 {
		return fmt.Sprintf("activities per day range from %d to %d", fewest, most)
	}
	return ""
}
