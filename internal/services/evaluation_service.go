package services

import (
	"fmt"
	"regexp"
	"strings"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

// DefaultGroundingPatterns accept locators minted by the bundled providers.
var DefaultGroundingPatterns = []string{`^otm:`, `^osm:`, `^catalog:`, `^fixture:`}

type EvaluationServiceInterface interface {
	Feasibility(it domain.Itinerary) domain.FeasibilityResult
	Grounding(it domain.Itinerary, sources []domain.Citation) domain.GroundingResult
	EditCorrectness(before, after domain.Itinerary, cmd domain.EditCommand, touched []domain.Section) domain.EditCorrectnessResult
}

type EvaluationService struct {
	window   DayWindow
	patterns []*regexp.Regexp
}

func NewEvaluationService(window DayWindow, patterns []string) (EvaluationServiceInterface, error) {
	if len(patterns) == 0 {
		patterns = DefaultGroundingPatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("grounding pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &EvaluationService{window: window, patterns: compiled}, nil
}

var hoursRangeRe = regexp.MustCompile(`(\d{1,2}:\d{2})\s*[-–]\s*(\d{1,2}:\d{2})`)

// openingWindow reads the first "HH:MM-HH:MM" range in free-form opening
// hours. Anything else is unknown.
func openingWindow(hours string) (opens, closes int, ok bool) {
	m := hoursRangeRe.FindStringSubmatch(hours)
	if m == nil {
		return 0, 0, false
	}
	o, err1 := utils.ParseClock(m[1])
	c, err2 := utils.ParseClock(m[2])
	if err1 != nil || err2 != nil || c <= o {
		return 0, 0, false
	}
	return o, c, true
}

func (e *EvaluationService) Feasibility(it domain.Itinerary) domain.FeasibilityResult {
	res := domain.FeasibilityResult{Violations: []string{}, Warnings: []string{}}
	total, failed := 0, 0
	check := func(ok bool, hard bool, msg string) {
		total++
		if ok {
			return
		}
		failed++
		if hard {
			res.Violations = append(res.Violations, msg)
		} else {
			res.Warnings = append(res.Warnings, msg)
		}
	}

	lower, upper := it.Pace.Bounds()
	ceiling := it.TravelMode.LegCeilingMinutes()
	for _, day := range it.DayPlans {
		used := 0
		inside := true
		var outsideMsg []string
		prevEnd, prevName := 0, ""
		for _, b := range day.Blocks {
			end := 0
			for i, a := range b.Activities {
				used += a.DurationMinutes + a.TravelMinutes
				start, err := utils.ParseClock(a.Time)
				if err != nil || start < e.window.Start || start+a.DurationMinutes > e.window.End {
					inside = false
					outsideMsg = append(outsideMsg, fmt.Sprintf("%s at %s", a.Name, a.Time))
					continue
				}
				end = start + a.DurationMinutes
				if prevName != "" {
					check(start >= prevEnd, true,
						fmt.Sprintf("Day %d: %s at %s starts before %s ends at %s", day.Number, a.Name, a.Time, prevName, utils.FormatClock(prevEnd)))
				}
				prevEnd, prevName = end, a.Name
				if i > 0 {
					check(a.TravelMinutes <= ceiling, false,
						fmt.Sprintf("Day %d: %d min %s to %s exceeds the %d min %s comfort limit",
							day.Number, a.TravelMinutes, it.TravelMode, a.Name, ceiling, it.TravelMode))
				}
				if opens, closes, ok := openingWindow(a.OpeningHours); ok {
					check(start >= opens && end <= closes, false,
						fmt.Sprintf("Day %d: %s at %s may be outside its opening hours (%s)", day.Number, a.Name, a.Time, a.OpeningHours))
				}
			}
			if len(b.Activities) > 0 && b.Name != domain.Evening {
				limit := e.window.BlockEnd(b.Name)
				check(end <= limit, true,
					fmt.Sprintf("Day %d: the %s runs until %s, past %s", day.Number, b.Name, utils.FormatClock(end), utils.FormatClock(limit)))
			}
		}
		check(used <= e.window.Length(), true,
			fmt.Sprintf("Day %d: %d min of activities and travel exceed the %d min day", day.Number, used, e.window.Length()))
		check(inside, true,
			fmt.Sprintf("Day %d: outside %s-%s: %s", day.Number, utils.FormatClock(e.window.Start), utils.FormatClock(e.window.End), strings.Join(outsideMsg, ", ")))
		n := day.Count()
		check(n >= lower && n <= upper, true,
			fmt.Sprintf("Day %d: %d activities, a %s pace needs %d-%d", day.Number, n, it.Pace, lower, upper))
	}

	if msg := unevenDays(it); msg != "" {
		res.Warnings = append(res.Warnings, "Uneven days: "+msg)
	}
	res.IsFeasible = len(res.Violations) == 0
	res.Score = 1.0
	if total > 0 {
		res.Score = float64(total-failed) / float64(total)
	}
	return res
}

func (e *EvaluationService) grounded(locator string) bool {
	for _, re := range e.patterns {
		if re.MatchString(locator) {
			return true
		}
	}
	return false
}

func (e *EvaluationService) Grounding(it domain.Itinerary, sources []domain.Citation) domain.GroundingResult {
	res := domain.GroundingResult{MissingCitations: []string{}, UncertainData: []string{}}
	acts := it.Activities()
	valid := 0
	for _, a := range acts {
		if e.grounded(a.SourceLocator) {
			valid++
		} else {
			res.MissingCitations = append(res.MissingCitations, fmt.Sprintf("%s has no verifiable source (%q)", a.Name, a.SourceLocator))
		}
		if strings.TrimSpace(a.OpeningHours) == "" {
			res.UncertainData = append(res.UncertainData, a.Name+": opening hours unknown")
		}
		if a.Rating == nil {
			res.UncertainData = append(res.UncertainData, a.Name+": rating unknown")
		}
	}

	citationsOK := true
	for _, c := range sources {
		ok := false
		switch c.Type {
		case domain.CitationPOI:
			ok = e.grounded(c.Locator)
		case domain.CitationGuide:
			ok = c.Locator != "" && (c.URL != "" || strings.HasPrefix(c.Locator, "guide:"))
		}
		if !ok {
			citationsOK = false
			res.MissingCitations = append(res.MissingCitations, fmt.Sprintf("citation for %s does not resolve (%q)", c.Subject, c.Locator))
		}
	}

	res.Score = 1.0
	if len(acts) > 0 {
		res.Score = float64(valid) / float64(len(acts))
	}
	res.IsGrounded = valid == len(acts) && citationsOK
	return res
}

func (e *EvaluationService) EditCorrectness(before, after domain.Itinerary, cmd domain.EditCommand, touched []domain.Section) domain.EditCorrectnessResult {
	modified, unchanged := diffSections(before, after)
	violations := scopeViolations(before, after, cmd, touched, modified)
	return domain.EditCorrectnessResult{
		IsCorrect:         len(violations) == 0,
		ModifiedSections:  append([]string{}, modified...),
		UnchangedSections: append([]string{}, unchanged...),
		Violations:        append([]string{}, violations...),
	}
}
