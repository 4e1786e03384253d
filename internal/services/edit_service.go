package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

type EditServiceInterface interface {
	// Apply runs cmd against a copy of it and reschedules the result. The
	// input itinerary is never modified.
	Apply(ctx context.Context, it domain.Itinerary, cmd domain.EditCommand) (domain.EditResult, error)
}

type EditService struct {
	gateway POIGatewayInterface
	lexicon *Lexicon
	window  DayWindow
	est     TravelEstimator
	log     *zap.Logger
}

func NewEditService(gateway POIGatewayInterface, lexicon *Lexicon, window DayWindow, est TravelEstimator, log *zap.Logger) EditServiceInterface {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	if est == nil {
		est = HaversineEstimator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EditService{gateway: gateway, lexicon: lexicon, window: window, est: est, log: log}
}

func (s *EditService) Apply(ctx context.Context, it domain.Itinerary, cmd domain.EditCommand) (domain.EditResult, error) {
	if err := validateCommand(cmd, it); err != nil {
		return domain.EditResult{}, err
	}
	out := it.Clone()
	out.Warnings = nil
	res := domain.EditResult{Command: cmd}

	var err error
	switch cmd.Type {
	case domain.EditChangePace:
		res.Added, err = s.changePace(ctx, &out, cmd.Pace)
		res.Touched = out.Sections()
	case domain.EditAddActivity:
		var added domain.POI
		added, err = s.addActivity(ctx, &out, cmd)
		res.Added = []domain.POI{added}
		res.Touched = []domain.Section{{Day: cmd.SourceDay, Block: cmd.TimeBlock}}
	case domain.EditRemove:
		var sec domain.Section
		sec, err = s.removeActivity(&out, cmd)
		res.Touched = []domain.Section{sec}
	case domain.EditSwapActivity:
		var sec domain.Section
		var added domain.POI
		sec, added, err = s.swapActivity(ctx, &out, cmd)
		res.Touched = []domain.Section{sec}
		res.Added = []domain.POI{added}
	case domain.EditSwapDays:
		a, b := out.Day(cmd.SourceDay), out.Day(cmd.TargetDay)
		a.Blocks, b.Blocks = b.Blocks, a.Blocks
		res.Touched = append(daySections(*a), daySections(*b)...)
	case domain.EditMoveTimeBlock:
		err = s.moveBlock(ctx, &out, cmd)
		res.Touched = []domain.Section{
			{Day: cmd.SourceDay, Block: cmd.TimeBlock},
			{Day: cmd.TargetDay, Block: cmd.TargetBlock},
		}
	case domain.EditReduceTravel:
		res.Touched = s.reduceTravel(&out, cmd.SourceDay)
	default:
		err = editParseError("I couldn't tell what to change.")
	}
	if err != nil {
		return domain.EditResult{}, err
	}

	Schedule(ctx, &out, s.window, s.est)
	res.Itinerary = out
	return res, nil
}

func daySections(d domain.Day) []domain.Section {
	out := make([]domain.Section, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		out = append(out, domain.Section{Day: d.Number, Block: b.Name})
	}
	return out
}

func activityPOI(a domain.Activity) domain.POI {
	return domain.POI{
		Name:            a.Name,
		Category:        a.Category,
		Location:        a.Location,
		DurationMinutes: a.DurationMinutes,
		OpeningHours:    a.OpeningHours,
		SourceLocator:   a.SourceLocator,
		Rating:          a.Rating,
		Description:     a.Description,
		Indoor:          a.Indoor,
	}
}

// candidates asks the gateway for places matching query (or the trip's
// interests) that the itinerary does not use yet.
func (s *EditService) candidates(ctx context.Context, it domain.Itinerary, query string, exclude map[string]bool) ([]domain.POI, error) {
	if s.gateway == nil {
		return nil, utils.NewAppError(utils.KindProviderFailure, "Place search isn't available right now.", utils.ErrProviderExhausted)
	}
	interests := it.Interests
	if query != "" {
		interests = s.lexicon.InterestTags(query)
		if len(interests) == 0 {
			interests = []string{utils.NormalizeTag(query)}
		}
	}
	pois, err := s.gateway.Search(ctx, it.Destination, interests, 0, 0)
	if err != nil {
		return nil, err
	}
	used := it.UsedLocators()
	var out []domain.POI
	for _, p := range pois {
		if used[p.SourceLocator] || exclude[p.SourceLocator] || p.DurationMinutes > s.window.LongestBlock() {
			continue
		}
		if p.DurationMinutes <= 0 {
			p.DurationMinutes = domain.DefaultDurationMinutes(p.Category)
		}
		out = append(out, p)
	}
	if query != "" {
		// Prefer places whose text mentions the query when any do.
		words := strings.Fields(utils.NormalizeTag(query))
		matching := make([]domain.POI, 0, len(out))
		for _, p := range out {
			hay := p.Name + " " + p.Category + " " + strings.Join(p.Tags, " ")
			for _, w := range words {
				if utils.FoldedContains(hay, w) {
					matching = append(matching, p)
					break
				}
			}
		}
		if len(matching) > 0 {
			out = matching
		}
	}
	return out, nil
}

// nearest picks the candidate closest to anchor. Ties go to the lexically
// smaller locator.
func nearest(cands []domain.POI, anchor domain.GeoPoint) domain.POI {
	best := cands[0]
	bestDist := utils.HaversineKm(anchor, best.Location)
	for _, c := range cands[1:] {
		d := utils.HaversineKm(anchor, c.Location)
		if d < bestDist-distanceEpsilon || (math.Abs(d-bestDist) <= distanceEpsilon && c.SourceLocator < best.SourceLocator) {
			best, bestDist = c, d
		}
	}
	return best
}

func anchorOf(acts []domain.Activity, fallback []domain.Activity) domain.GeoPoint {
	src := acts
	if len(src) == 0 {
		src = fallback
	}
	points := make([]domain.GeoPoint, len(src))
	for i, a := range src {
		points[i] = a.Location
	}
	return utils.Centroid(points)
}

// insertCheapest places a into the position of acts that adds the least
// straight-line distance.
func insertCheapest(acts []domain.Activity, a domain.Activity) []domain.Activity {
	bestPos, bestCost := len(acts), math.Inf(1)
	for pos := 0; pos <= len(acts); pos++ {
		cost := 0.0
		if pos > 0 {
			cost += utils.HaversineKm(acts[pos-1].Location, a.Location)
		}
		if pos < len(acts) {
			cost += utils.HaversineKm(a.Location, acts[pos].Location)
			if pos > 0 {
				cost -= utils.HaversineKm(acts[pos-1].Location, acts[pos].Location)
			}
		}
		if cost < bestCost-distanceEpsilon {
			bestPos, bestCost = pos, cost
		}
	}
	out := make([]domain.Activity, 0, len(acts)+1)
	out = append(out, acts[:bestPos]...)
	out = append(out, a)
	return append(out, acts[bestPos:]...)
}

// dayFits schedules a scratch copy and reports window violations for one day.
func (s *EditService) dayFits(ctx context.Context, it domain.Itinerary, number int) []string {
	trial := it.Clone()
	Schedule(ctx, &trial, s.window, s.est)
	trial.DayPlans = []domain.Day{*trial.Day(number)}
	var out []string
	for _, v := range hardViolations(trial, s.window) {
		if !strings.Contains(v, " activities outside the ") {
			out = append(out, v)
		}
	}
	return out
}

func (s *EditService) addActivity(ctx context.Context, it *domain.Itinerary, cmd domain.EditCommand) (domain.POI, error) {
	cands, err := s.candidates(ctx, *it, cmd.Query, nil)
	if err != nil {
		return domain.POI{}, err
	}
	if len(cands) == 0 {
		return domain.POI{}, utils.NewAppError(utils.KindBuildConstraint,
			fmt.Sprintf("I couldn't find another %s in %s that isn't already in your plan.", cmd.Query, it.Destination),
			utils.ErrInsufficientPOIs)
	}
	day := it.Day(cmd.SourceDay)
	blk := day.Block(cmd.TimeBlock)
	pick := nearest(cands, anchorOf(blk.Activities, day.Activities()))
	blk.Activities = insertCheapest(blk.Activities, domain.ActivityFromPOI(pick))

	if v := s.dayFits(ctx, *it, cmd.SourceDay); len(v) > 0 {
		return domain.POI{}, utils.NewAppError(utils.KindBuildConstraint,
			fmt.Sprintf("%s doesn't fit into day %d's %s. Try another day or remove something first.", pick.Name, cmd.SourceDay, cmd.TimeBlock),
			fmt.Errorf("%s", strings.Join(v, "; ")))
	}
	if _, upper := it.Pace.Bounds(); day.Count() > upper {
		it.Warnings = append(it.Warnings, fmt.Sprintf("Day %d now has %d activities, more than a %s pace usually allows.", day.Number, day.Count(), it.Pace))
	}
	return pick, nil
}

type activityRef struct {
	day, block, index int
}

// findActivity returns the best name match, restricted to day when set.
// Exact matches beat containment either way round.
func findActivity(it domain.Itinerary, name string, day int) (activityRef, bool) {
	want := utils.NormalizeTag(name)
	best, bestScore := activityRef{}, 0
	for di, d := range it.DayPlans {
		if day != 0 && d.Number != day {
			continue
		}
		for bi, b := range d.Blocks {
			for ai, a := range b.Activities {
				have := utils.NormalizeTag(a.Name)
				score := 0
				switch {
				case have == want:
					score = 3
				case strings.Contains(have, want):
					score = 2
				case want != "" && strings.Contains(want, have):
					score = 1
				case utils.NormalizeTag(a.Category) == want:
					score = 1
				}
				if score > bestScore {
					best, bestScore = activityRef{day: di, block: bi, index: ai}, score
				}
			}
		}
	}
	return best, bestScore > 0
}

func notFound(name string) error {
	return editParseError(fmt.Sprintf("I couldn't find %q in your itinerary.", name))
}

func (s *EditService) removeActivity(it *domain.Itinerary, cmd domain.EditCommand) (domain.Section, error) {
	ref, ok := findActivity(*it, cmd.ActivityName, cmd.SourceDay)
	if !ok {
		return domain.Section{}, notFound(cmd.ActivityName)
	}
	d := &it.DayPlans[ref.day]
	b := &d.Blocks[ref.block]
	b.Activities = append(b.Activities[:ref.index:ref.index], b.Activities[ref.index+1:]...)
	if lower, _ := it.Pace.Bounds(); d.Count() < lower {
		it.Warnings = append(it.Warnings, fmt.Sprintf("Day %d now has %d activities, fewer than a %s pace usually has.", d.Number, d.Count(), it.Pace))
	}
	return domain.Section{Day: d.Number, Block: b.Name}, nil
}

func (s *EditService) swapActivity(ctx context.Context, it *domain.Itinerary, cmd domain.EditCommand) (domain.Section, domain.POI, error) {
	ref, ok := findActivity(*it, cmd.ActivityName, cmd.SourceDay)
	if !ok {
		return domain.Section{}, domain.POI{}, notFound(cmd.ActivityName)
	}
	d := &it.DayPlans[ref.day]
	b := &d.Blocks[ref.block]
	old := b.Activities[ref.index]

	query := cmd.Query
	if query == "" {
		query = old.Category
	}
	cands, err := s.candidates(ctx, *it, query, map[string]bool{old.SourceLocator: true})
	if err != nil {
		return domain.Section{}, domain.POI{}, err
	}
	if len(cands) == 0 {
		return domain.Section{}, domain.POI{}, utils.NewAppError(utils.KindBuildConstraint,
			fmt.Sprintf("I couldn't find a %s to replace %s with.", query, old.Name), utils.ErrInsufficientPOIs)
	}
	pick := nearest(cands, old.Location)
	b.Activities[ref.index] = domain.ActivityFromPOI(pick)

	if v := s.dayFits(ctx, *it, d.Number); len(v) > 0 {
		return domain.Section{}, domain.POI{}, utils.NewAppError(utils.KindBuildConstraint,
			fmt.Sprintf("%s doesn't fit into day %d in place of %s.", pick.Name, d.Number, old.Name),
			fmt.Errorf("%s", strings.Join(v, "; ")))
	}
	return domain.Section{Day: d.Number, Block: b.Name}, pick, nil
}

func (s *EditService) moveBlock(ctx context.Context, it *domain.Itinerary, cmd domain.EditCommand) error {
	src := it.Day(cmd.SourceDay).Block(cmd.TimeBlock)
	if len(src.Activities) == 0 {
		return editParseError(fmt.Sprintf("Day %d's %s is already empty.", cmd.SourceDay, cmd.TimeBlock))
	}
	dst := it.Day(cmd.TargetDay).Block(cmd.TargetBlock)
	dst.Activities = append(dst.Activities, src.Activities...)
	src.Activities = []domain.Activity{}

	if v := s.dayFits(ctx, *it, cmd.TargetDay); len(v) > 0 {
		return utils.NewAppError(utils.KindBuildConstraint,
			fmt.Sprintf("Day %d's %s can't take those activities without running past the end of the day.", cmd.TargetDay, cmd.TargetBlock),
			fmt.Errorf("%s", strings.Join(v, "; ")))
	}
	return nil
}

// reduceTravel re-chains the activities of the targeted days (all when day
// is zero) and keeps each block's activity count.
func (s *EditService) reduceTravel(it *domain.Itinerary, day int) []domain.Section {
	var touched []domain.Section
	for di := range it.DayPlans {
		d := &it.DayPlans[di]
		if day != 0 && d.Number != day {
			continue
		}
		touched = append(touched, daySections(*d)...)
		acts := d.Activities()
		if len(acts) < 3 {
			continue
		}
		points := make([]domain.GeoPoint, len(acts))
		current := make([]int, len(acts))
		for i, a := range acts {
			points[i] = a.Location
			current[i] = i
		}
		order := shortestOpenPath(points)
		if pathKm(points, order) >= pathKm(points, current)-distanceEpsilon {
			continue
		}
		i := 0
		for bi := range d.Blocks {
			n := len(d.Blocks[bi].Activities)
			next := make([]domain.Activity, 0, n)
			for j := 0; j < n; j++ {
				next = append(next, acts[order[i]])
				i++
			}
			d.Blocks[bi].Activities = next
		}
	}
	return touched
}

// activityValue orders activities for trimming: interest match, then rating.
func activityValue(a domain.Activity, interests []string) (int, float64) {
	return interestScore(activityPOI(a), interests), ratingOf(a.Rating)
}

func (s *EditService) changePace(ctx context.Context, it *domain.Itinerary, pace domain.Pace) ([]domain.POI, error) {
	it.Pace = pace
	lower, upper := pace.Bounds()

	for di := range it.DayPlans {
		d := &it.DayPlans[di]
		for d.Count() > upper {
			dropLowestValue(d, it.Interests)
		}
	}

	short := false
	for _, d := range it.DayPlans {
		if d.Count() < lower {
			short = true
		}
	}
	if !short {
		return nil, nil
	}

	cands, err := s.candidates(ctx, *it, "", nil)
	if err != nil {
		s.log.Warn("no candidates to top up days", zap.Error(err))
		it.Warnings = append(it.Warnings, "I couldn't find extra places to fill the days for the new pace.")
		return nil, nil
	}
	ranked := rankPOIs(cands, it.Interests)
	taken := make(map[string]bool)
	var added []domain.POI

	for di := range it.DayPlans {
		d := &it.DayPlans[di]
		for d.Count() < lower {
			anchor := anchorOf(d.Activities(), it.Activities())
			pool := make([]domain.POI, 0, len(ranked))
			for _, r := range ranked {
				if !taken[r.poi.SourceLocator] {
					pool = append(pool, r.poi)
				}
			}
			placed := false
			for len(pool) > 0 && !placed {
				pick := nearest(pool, anchor)
				taken[pick.SourceLocator] = true
				blk := sparsestBlock(d)
				before := append([]domain.Activity(nil), blk.Activities...)
				blk.Activities = insertCheapest(blk.Activities, domain.ActivityFromPOI(pick))
				if len(s.dayFits(ctx, *it, d.Number)) == 0 {
					added = append(added, pick)
					placed = true
					break
				}
				blk.Activities = before
				pool = removePOI(pool, pick.SourceLocator)
			}
			if !placed {
				it.Warnings = append(it.Warnings, fmt.Sprintf("Day %d has fewer activities than a %s pace needs.", d.Number, pace))
				break
			}
		}
	}
	return added, nil
}

func removePOI(pool []domain.POI, locator string) []domain.POI {
	out := pool[:0]
	for _, p := range pool {
		if p.SourceLocator != locator {
			out = append(out, p)
		}
	}
	return out
}

// sparsestBlock is the block with the fewest activities, earliest first.
func sparsestBlock(d *domain.Day) *domain.TimeBlock {
	best := &d.Blocks[0]
	for i := range d.Blocks {
		if len(d.Blocks[i].Activities) < len(best.Activities) {
			best = &d.Blocks[i]
		}
	}
	return best
}

// dropLowestValue removes the least valuable activity of the day. Among
// equals the latest one goes.
func dropLowestValue(d *domain.Day, interests []string) {
	type pos struct {
		block, index int
		score        int
		rating       float64
		order        int
	}
	var all []pos
	order := 0
	for bi, b := range d.Blocks {
		for ai, a := range b.Activities {
			score, rating := activityValue(a, interests)
			all = append(all, pos{block: bi, index: ai, score: score, rating: rating, order: order})
			order++
		}
	}
	if len(all) == 0 {
		return
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score < all[j].score
		}
		if all[i].rating != all[j].rating {
			return all[i].rating < all[j].rating
		}
		return all[i].order > all[j].order
	})
	victim := all[0]
	b := &d.Blocks[victim.block]
	b.Activities = append(b.Activities[:victim.index:victim.index], b.Activities[victim.index+1:]...)
}
