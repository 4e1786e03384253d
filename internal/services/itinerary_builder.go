package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/llm"
	"wayfarer/pkg/utils"
)

type ItineraryBuilderInterface interface {
	// Build turns candidate POIs into a scheduled itinerary honouring the
	// pace bounds, even distribution and the daily window.
	Build(ctx context.Context, pois []domain.POI, prefs domain.Preferences) (domain.Itinerary, error)
	Window() DayWindow
	Estimator() TravelEstimator
}

type ItineraryBuilder struct {
	gen    llm.Generator
	est    TravelEstimator
	window DayWindow
	log    *zap.Logger
}

func NewItineraryBuilder(gen llm.Generator, est TravelEstimator, window DayWindow, log *zap.Logger) ItineraryBuilderInterface {
	if gen == nil {
		gen = llm.Disabled{}
	}
	if est == nil {
		est = HaversineEstimator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ItineraryBuilder{gen: gen, est: est, window: window, log: log}
}

func (b *ItineraryBuilder) Window() DayWindow          { return b.window }
func (b *ItineraryBuilder) Estimator() TravelEstimator { return b.est }

type generatedDay struct {
	Day       int      `json:"day"`
	Morning   []string `json:"morning"`
	Afternoon []string `json:"afternoon"`
	Evening   []string `json:"evening"`
}

type generatedPlan struct {
	Days []generatedDay `json:"days"`
}

func (p generatedPlan) Validate() error {
	if len(p.Days) == 0 {
		return errors.New("plan has no days")
	}
	return nil
}

func (b *ItineraryBuilder) Build(ctx context.Context, pois []domain.POI, prefs domain.Preferences) (domain.Itinerary, error) {
	if prefs.Days < 1 {
		return domain.Itinerary{}, fmt.Errorf("%w: trip length must be at least one day", utils.ErrInvalidInput)
	}
	pace := prefs.Pace
	if !pace.Valid() {
		pace = domain.PaceModerate
	}
	mode := prefs.TravelMode
	if !mode.Valid() {
		mode = domain.ModeWalking
	}

	candidates := b.usable(pois)
	ranked := rankPOIs(candidates, prefs.Interests)

	lower, upper := pace.Bounds()
	if need := prefs.Days * lower; len(ranked) < need {
		return domain.Itinerary{}, utils.NewAppError(utils.KindBuildConstraint,
			fmt.Sprintf("I only found %d places in %s but a %d-day %s trip needs at least %d. Try fewer days, a more relaxed pace or broader interests.",
				len(ranked), prefs.Destination, prefs.Days, pace, need),
			utils.ErrInsufficientPOIs)
	}

	n := len(ranked)
	if n > prefs.Days*upper {
		n = prefs.Days * upper
	}
	counts := make([]int, prefs.Days)
	for i := range counts {
		counts[i] = n / prefs.Days
		if i < n%prefs.Days {
			counts[i]++
		}
	}

	base := domain.Itinerary{
		Destination:   prefs.Destination,
		Days:          prefs.Days,
		Pace:          pace,
		Interests:     append([]string(nil), prefs.Interests...),
		TravelMode:    mode,
		StartDate:     prefs.StartDate,
		StartingPoint: prefs.StartingPoint,
	}

	skeleton, err := b.skeleton(ctx, base, ranked, counts)
	if err != nil {
		return domain.Itinerary{}, err
	}

	poolSize := n * 2
	if poolSize > 40 {
		poolSize = 40
	}
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}
	generated, warnings, err := b.generate(ctx, base, ranked[:poolSize], counts)
	if err != nil {
		if !errors.Is(err, llm.ErrUnavailable) {
			skeleton.Warnings = append(skeleton.Warnings, "Used the deterministic planner: "+err.Error())
		}
		return skeleton, nil
	}
	generated.Warnings = append(generated.Warnings, warnings...)
	return generated, nil
}

// usable drops POIs that cannot be cited or cannot fit in any block, and
// duplicates by locator.
func (b *ItineraryBuilder) usable(pois []domain.POI) []domain.POI {
	seen := make(map[string]bool, len(pois))
	var out []domain.POI
	for _, p := range pois {
		if strings.TrimSpace(p.Name) == "" || p.SourceLocator == "" || seen[p.SourceLocator] {
			continue
		}
		if p.DurationMinutes <= 0 {
			p.DurationMinutes = domain.DefaultDurationMinutes(p.Category)
		}
		if p.DurationMinutes > b.window.LongestBlock() {
			continue
		}
		seen[p.SourceLocator] = true
		out = append(out, p)
	}
	return out
}

func (b *ItineraryBuilder) skeleton(ctx context.Context, base domain.Itinerary, ranked []rankedPOI, counts []int) (domain.Itinerary, error) {
	it := base.Clone()
	lower, _ := base.Pace.Bounds()
	groups := groupDays(ranked, counts)
	chains := make([][]domain.Activity, len(groups))
	fewest := -1
	for d, group := range groups {
		chain := make([]domain.Activity, len(group))
		for i, g := range group {
			chain[i] = domain.ActivityFromPOI(g.poi)
		}
		day, err := b.layoutDay(ctx, it, d+1, chain)
		for err != nil && len(chain) > lower {
			chain = dropLongest(chain)
			day, err = b.layoutDay(ctx, it, d+1, chain)
		}
		if err != nil {
			return domain.Itinerary{}, err
		}
		chains[d] = chain
		if fewest < 0 || len(chain) < fewest {
			fewest = len(chain)
		}
		it.DayPlans = append(it.DayPlans, day)
	}
	// Days that had to shed long visits pull the others down to stay even.
	for d, chain := range chains {
		if len(chain) <= fewest+1 {
			continue
		}
		for len(chain) > fewest+1 {
			chain = dropLongest(chain)
		}
		day, err := b.layoutDay(ctx, it, d+1, chain)
		if err != nil {
			return domain.Itinerary{}, err
		}
		it.DayPlans[d] = day
	}
	Schedule(ctx, &it, b.window, b.est)
	if v := hardViolations(it, b.window); len(v) > 0 {
		return domain.Itinerary{}, utils.NewAppError(utils.KindBuildConstraint,
			"I couldn't fit the selected places into your daily time window. Try a more relaxed pace or a longer day.",
			errors.New(strings.Join(v, "; ")))
	}
	return it, nil
}

// layoutDay places a chain into blocks, preferring the standard split and
// falling back to any split that keeps every activity inside the window.
func (b *ItineraryBuilder) layoutDay(ctx context.Context, base domain.Itinerary, number int, chain []domain.Activity) (domain.Day, error) {
	date := utils.AddDays(base.StartDate, number-1)
	splits := append([][3]int{splitCounts(len(chain))}, allSplits(len(chain))...)

	var last []string
	for _, split := range splits {
		day := fillBlocks(number, date, chain, split)
		trial := base.Clone()
		trial.DayPlans = []domain.Day{day}
		Schedule(ctx, &trial, b.window, b.est)
		last = hardViolations(trial, b.window)
		if len(last) == 0 {
			return trial.DayPlans[0], nil
		}
	}
	return domain.Day{}, utils.NewAppError(utils.KindBuildConstraint,
		fmt.Sprintf("Day %d doesn't fit into the daily time window. Try a more relaxed pace or a longer day.", number),
		errors.New(strings.Join(last, "; ")))
}

// dropLongest removes the longest activity, the latest one among equals,
// keeping the route order of the rest.
func dropLongest(chain []domain.Activity) []domain.Activity {
	at := 0
	for i, a := range chain {
		if a.DurationMinutes >= chain[at].DurationMinutes {
			at = i
		}
	}
	out := make([]domain.Activity, 0, len(chain)-1)
	out = append(out, chain[:at]...)
	return append(out, chain[at+1:]...)
}

// allSplits enumerates every morning/afternoon/evening split of k, fewest
// evening activities first.
func allSplits(k int) [][3]int {
	var out [][3]int
	for c := 0; c <= k; c++ {
		for bb := 0; bb <= k-c; bb++ {
			out = append(out, [3]int{k - c - bb, bb, c})
		}
	}
	return out
}

func (b *ItineraryBuilder) planPrompt(base domain.Itinerary, pool []rankedPOI, counts []int) string {
	lower, upper := base.Pace.Bounds()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a %d-day %s-pace itinerary for %s. Return JSON only:\n", base.Days, base.Pace, base.Destination)
	sb.WriteString(`{"days":[{"day":1,"morning":["<locator>"],"afternoon":["<locator>"],"evening":["<locator>"]}]}`)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Use only locators from the list below, each at most once.\n")
	fmt.Fprintf(&sb, "- Exactly %d days numbered 1..%d.\n", base.Days, base.Days)
	fmt.Fprintf(&sb, "- Each day has between %d and %d places; suggested per-day counts: %v.\n", lower, upper, counts)
	sb.WriteString("- Day totals differ by at most one.\n")
	sb.WriteString("- Put places that are close to each other on the same day.\n")
	sb.WriteString("- Evenings hold at most one place.\n")
	if len(base.Interests) > 0 {
		fmt.Fprintf(&sb, "- Prefer places matching: %s.\n", strings.Join(base.Interests, ", "))
	}
	sb.WriteString("\nPlaces:\n")
	for _, r := range pool {
		p := r.poi
		fmt.Fprintf(&sb, "- %s | %s | %s | %.5f,%.5f | %d min\n",
			p.SourceLocator, p.Name, p.Category, p.Location.Lat, p.Location.Lng, p.DurationMinutes)
	}
	return sb.String()
}

const planSystem = "You are a travel planner. You only schedule places from the provided list and answer with JSON only."

func (b *ItineraryBuilder) generate(ctx context.Context, base domain.Itinerary, pool []rankedPOI, counts []int) (domain.Itinerary, []string, error) {
	prompt := b.planPrompt(base, pool, counts)
	req := llm.Request{Purpose: "plan", System: planSystem, Prompt: prompt, Temperature: 0.1}

	plan, err := llm.GenerateJSON[generatedPlan](ctx, b.gen, req)
	if err != nil && !errors.Is(err, llm.ErrUnavailable) && ctx.Err() == nil {
		b.log.Info("plan generation unusable, asking for a repair", zap.Error(err))
		req.Prompt = fmt.Sprintf("%s\n\nYour previous answer was invalid (%v). Return only JSON matching the schema.", prompt, err)
		plan, err = llm.GenerateJSON[generatedPlan](ctx, b.gen, req)
	}
	if err != nil {
		return domain.Itinerary{}, nil, err
	}

	it, warnings := b.assemble(ctx, base, pool, plan)
	var problems []string
	problems = append(problems, hardViolations(it, b.window)...)
	if msg := unevenDays(it); msg != "" {
		problems = append(problems, msg)
	}
	if len(it.DayPlans) != base.Days {
		problems = append(problems, fmt.Sprintf("plan has %d days, expected %d", len(it.DayPlans), base.Days))
	}
	if len(problems) > 0 {
		return domain.Itinerary{}, nil, fmt.Errorf("generated plan broke constraints (%s)", problems[0])
	}
	return it, warnings, nil
}

// assemble maps generated locators back to POIs. Unknown or repeated
// locators are dropped with a warning.
func (b *ItineraryBuilder) assemble(ctx context.Context, base domain.Itinerary, pool []rankedPOI, plan generatedPlan) (domain.Itinerary, []string) {
	byLocator := make(map[string]domain.POI, len(pool))
	for _, r := range pool {
		byLocator[r.poi.SourceLocator] = r.poi
	}
	byDay := make(map[int]generatedDay, len(plan.Days))
	for i, d := range plan.Days {
		if d.Day == 0 {
			d.Day = i + 1
		}
		if _, dup := byDay[d.Day]; !dup {
			byDay[d.Day] = d
		}
	}

	it := base.Clone()
	used := make(map[string]bool)
	var warnings []string
	for n := 1; n <= base.Days; n++ {
		gd, ok := byDay[n]
		if !ok {
			continue
		}
		day := domain.NewDay(n, utils.AddDays(base.StartDate, n-1))
		lists := [][]string{gd.Morning, gd.Afternoon, gd.Evening}
		for bi, locators := range lists {
			for _, loc := range locators {
				poi, known := byLocator[loc]
				switch {
				case !known:
					warnings = append(warnings, fmt.Sprintf("Discarded unknown place %q suggested for day %d.", loc, n))
				case used[loc]:
					warnings = append(warnings, fmt.Sprintf("Discarded repeated place %s on day %d.", poi.Name, n))
				default:
					used[loc] = true
					day.Blocks[bi].Activities = append(day.Blocks[bi].Activities, domain.ActivityFromPOI(poi))
				}
			}
		}
		it.DayPlans = append(it.DayPlans, day)
	}
	Schedule(ctx, &it, b.window, b.est)
	return it, warnings
}
