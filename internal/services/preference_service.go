package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/llm"
	"wayfarer/pkg/utils"
)

type PreferenceServiceInterface interface {
	// Extract merges whatever the utterance says into existing. Interests
	// are unioned, every other field is overwritten only when mentioned.
	Extract(ctx context.Context, utterance string, existing domain.Preferences, lastQuestion domain.Field) domain.Preferences
	MissingField(p domain.Preferences) domain.Field
	NextClarifyingQuestion(field domain.Field) string
	// ApplyDefaults fills every unresolved field and lists what it filled.
	ApplyDefaults(p domain.Preferences) (domain.Preferences, []string)
	Summary(p domain.Preferences) string
}

type PreferenceService struct {
	gen                llm.Generator
	lexicon            *Lexicon
	defaultDestination string
	log                *zap.Logger
}

func NewPreferenceService(gen llm.Generator, lexicon *Lexicon, defaultDestination string, log *zap.Logger) PreferenceServiceInterface {
	if gen == nil {
		gen = llm.Disabled{}
	}
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	if defaultDestination == "" {
		defaultDestination = "Paris"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PreferenceService{gen: gen, lexicon: lexicon, defaultDestination: defaultDestination, log: log}
}

const (
	minTripDays = 1
	maxTripDays = 14
)

var (
	destinationRe   = regexp.MustCompile(`\b(?:[Tt]o|[Ii]n|[Vv]isit|[Vv]isiting|[Aa]round|[Ee]xplore|[Ee]xploring)\s+((?:[A-Z][\p{L}'.-]*)(?:\s+(?:[A-Z][\p{L}'.-]*|de|del|da|di|la|le))*)`)
	tripLengthRe    = regexp.MustCompile(`(?i)\b(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|a couple of|a couple|couple of|a few|few|a|an)[\s-]+(days?|nights?|weeks?)\b`)
	weekendRe       = regexp.MustCompile(`(?i)\b(?:long\s+)?weekend\b`)
	isoDateRe       = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	bareNumberRe    = regexp.MustCompile(`(?i)^\s*(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen)\s*[.!]?\s*$`)
	startingPointRe = regexp.MustCompile(`(?i)\b(?:starting|start|staying|based|leaving)\s+(?:from|at|in|near)\s+(?:the\s+|my\s+)?([^,.;!?]+)`)
	flexibleWordRe  = regexp.MustCompile(`(?i)\b(?:flexible|anytime|any time)\b`)
)

type generatedPreferences struct {
	Destination   string   `json:"destination"`
	Days          int      `json:"days"`
	Interests     []string `json:"interests"`
	Pace          string   `json:"pace"`
	Budget        string   `json:"budget"`
	TravelMode    string   `json:"travel_mode"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	FlexibleDates bool     `json:"flexible_dates"`
	StartingPoint string   `json:"starting_point"`
}

func (g generatedPreferences) Validate() error {
	if g.Days < 0 || g.Days > 60 {
		return fmt.Errorf("days %d out of range", g.Days)
	}
	return nil
}

func (s *PreferenceService) Extract(ctx context.Context, utterance string, existing domain.Preferences, lastQuestion domain.Field) domain.Preferences {
	text := s.lexicon.Normalize(utterance)
	update := s.extractWithRules(text, lastQuestion)

	generated, err := s.extractWithGeneration(ctx, text, existing, lastQuestion)
	if err != nil {
		s.log.Debug("preference generation unusable, using rules", zap.Error(err))
	} else {
		update = overlay(update, generated)
	}
	return mergePreferences(existing, update)
}

func (s *PreferenceService) extractWithGeneration(ctx context.Context, text string, existing domain.Preferences, lastQuestion domain.Field) (domain.Preferences, error) {
	var sb strings.Builder
	sb.WriteString("Extract trip preferences from the traveller's message. Use empty values for anything not mentioned.\n")
	sb.WriteString(`Answer with JSON only: {"destination":"","days":0,"interests":[],"pace":"relaxed|moderate|fast","budget":"low|medium|high","travel_mode":"walking|cycling|transit|driving","start_date":"YYYY-MM-DD","end_date":"YYYY-MM-DD","flexible_dates":false,"starting_point":""}`)
	if lastQuestion != domain.FieldNone {
		fmt.Fprintf(&sb, "\nThe assistant last asked about: %s.", lastQuestion)
	}
	if existing.Destination != "" {
		fmt.Fprintf(&sb, "\nKnown destination: %s.", existing.Destination)
	}
	fmt.Fprintf(&sb, "\nMessage: %q", text)

	out, err := llm.GenerateJSON[generatedPreferences](ctx, s.gen, llm.Request{
		Purpose:     "preferences",
		System:      "You extract structured travel preferences. Answer with JSON only.",
		Prompt:      sb.String(),
		Temperature: 0,
	})
	if err != nil {
		return domain.Preferences{}, err
	}

	p := domain.Preferences{
		Destination:   strings.TrimSpace(out.Destination),
		Interests:     out.Interests,
		Budget:        strings.ToLower(strings.TrimSpace(out.Budget)),
		FlexibleDates: out.FlexibleDates,
		StartingPoint: strings.TrimSpace(out.StartingPoint),
	}
	if out.Days >= minTripDays && out.Days <= maxTripDays {
		p.Days = out.Days
	}
	if pace := domain.Pace(strings.ToLower(out.Pace)); pace.Valid() {
		p.Pace = pace
	}
	if mode := domain.TravelMode(strings.ToLower(out.TravelMode)); mode.Valid() {
		p.TravelMode = mode
	}
	if _, err := utils.ParseDate(out.StartDate); err == nil {
		p.StartDate = out.StartDate
	}
	if _, err := utils.ParseDate(out.EndDate); err == nil {
		p.EndDate = out.EndDate
	}
	return p, nil
}

// extractWithRules reads the fixed lexicon and patterns. It never fails; an
// utterance with no recognisable slot yields the zero value.
func (s *PreferenceService) extractWithRules(text string, lastQuestion domain.Field) domain.Preferences {
	lower := strings.ToLower(text)
	var p domain.Preferences

	p.Destination = s.destination(text, lastQuestion)
	p.Days = tripLength(text, lastQuestion)

	if pace := s.lexicon.Match(s.lexicon.Pace, text); pace != "" {
		p.Pace = domain.Pace(pace)
	}
	if mode := s.lexicon.Match(s.lexicon.TravelModes, text); mode != "" {
		p.TravelMode = domain.TravelMode(mode)
	}
	p.Budget = s.lexicon.Match(s.lexicon.Budget, text)

	dates := isoDateRe.FindAllString(text, 2)
	for i, d := range dates {
		if _, err := utils.ParseDate(d); err != nil {
			continue
		}
		if i == 0 {
			p.StartDate = d
		} else {
			p.EndDate = d
		}
	}
	if p.StartDate == "" {
		if flexibleWordRe.MatchString(text) ||
			((lastQuestion == domain.FieldDates || strings.Contains(lower, "date")) && hasAny(lower, s.lexicon.FlexibleDates)) {
			p.FlexibleDates = true
		}
	}
	if p.Days == 0 && p.StartDate != "" && p.EndDate != "" {
		if n, err := utils.DaysBetween(p.StartDate, p.EndDate); err == nil && n >= minTripDays && n <= maxTripDays {
			p.Days = n
		}
	}

	if m := startingPointRe.FindStringSubmatch(text); m != nil {
		sp := strings.TrimSpace(m[1])
		if len(sp) > 0 && len(sp) <= 60 {
			p.StartingPoint = sp
		}
	}

	p.Interests = s.lexicon.InterestTags(text)
	return p
}

func (s *PreferenceService) destination(text string, lastQuestion domain.Field) string {
	for _, m := range destinationRe.FindAllStringSubmatch(text, -1) {
		words := strings.Fields(m[1])
		for len(words) > 0 && s.lexicon.IsStopword(strings.Trim(words[len(words)-1], ".'")) {
			words = words[:len(words)-1]
		}
		if len(words) == 0 || s.lexicon.IsStopword(words[0]) {
			continue
		}
		return strings.TrimRight(strings.Join(words, " "), ".")
	}

	if lastQuestion != domain.FieldDestination {
		return ""
	}
	// A short answer to "where to?" is the destination itself.
	answer := strings.Trim(strings.TrimSpace(text), ".!?")
	words := strings.Fields(answer)
	if len(words) == 0 || len(words) > 4 || strings.ContainsAny(answer, "0123456789") {
		return ""
	}
	if s.lexicon.Confirmation(answer) != nil || hasAny(strings.ToLower(answer), s.lexicon.FlexibleDates) {
		return ""
	}
	return utils.TitleCase(answer)
}

func tripLength(text string, lastQuestion domain.Field) int {
	if m := tripLengthRe.FindStringSubmatch(text); m != nil {
		token := strings.TrimSuffix(strings.ToLower(m[1]), " of")
		n, ok := utils.ParseNumber(token)
		if ok {
			unit := strings.ToLower(m[2])
			switch {
			case strings.HasPrefix(unit, "week"):
				n *= 7
			case strings.HasPrefix(unit, "night"):
				n++
			}
			if n >= minTripDays && n <= maxTripDays {
				return n
			}
		}
	}
	if weekendRe.MatchString(text) {
		if strings.Contains(strings.ToLower(text), "long") {
			return 3
		}
		return 2
	}
	if lastQuestion == domain.FieldDuration {
		if m := bareNumberRe.FindStringSubmatch(text); m != nil {
			if n, ok := utils.ParseNumber(m[1]); ok && n >= minTripDays && n <= maxTripDays {
				return n
			}
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxTripDays {
				return maxTripDays
			}
		}
	}
	return 0
}

// overlay lays non-zero fields of top over base.
func overlay(base, top domain.Preferences) domain.Preferences {
	out := base.Clone()
	if top.Destination != "" {
		out.Destination = top.Destination
	}
	if top.Days != 0 {
		out.Days = top.Days
	}
	if top.Pace != "" {
		out.Pace = top.Pace
	}
	if top.Budget != "" {
		out.Budget = top.Budget
	}
	if top.TravelMode != "" {
		out.TravelMode = top.TravelMode
	}
	if top.StartDate != "" {
		out.StartDate = top.StartDate
	}
	if top.EndDate != "" {
		out.EndDate = top.EndDate
	}
	if top.FlexibleDates {
		out.FlexibleDates = true
	}
	if top.StartingPoint != "" {
		out.StartingPoint = top.StartingPoint
	}
	out.Interests = append(out.Interests, top.Interests...)
	return out
}

// mergePreferences applies update on top of existing. The interest set only
// grows.
func mergePreferences(existing, update domain.Preferences) domain.Preferences {
	out := overlay(existing, update)
	if update.StartDate != "" {
		out.FlexibleDates = false
	}
	out.Interests = normalizeInterests(out.Interests)
	return out
}

func normalizeInterests(tags []string) []string {
	normalized := lo.Map(tags, func(t string, _ int) string { return utils.NormalizeTag(t) })
	return lo.Uniq(lo.Filter(normalized, func(t string, _ int) bool { return t != "" }))
}

func (s *PreferenceService) MissingField(p domain.Preferences) domain.Field {
	switch {
	case strings.TrimSpace(p.Destination) == "":
		return domain.FieldDestination
	case p.Days < minTripDays:
		return domain.FieldDuration
	case !p.TravelMode.Valid():
		return domain.FieldTravelMode
	case !p.HasDates():
		return domain.FieldDates
	}
	return domain.FieldNone
}

func (s *PreferenceService) NextClarifyingQuestion(field domain.Field) string {
	switch field {
	case domain.FieldDestination:
		return "Where would you like to go?"
	case domain.FieldDuration:
		return "How many days will your trip be?"
	case domain.FieldTravelMode:
		return "How would you like to get around: walking, cycling, public transit or driving?"
	case domain.FieldDates:
		return "Do you have travel dates in mind (YYYY-MM-DD), or are your dates flexible?"
	}
	return "Is there anything else you'd like me to know about your trip?"
}

func (s *PreferenceService) ApplyDefaults(p domain.Preferences) (domain.Preferences, []string) {
	out := p.Clone()
	var filled []string
	if strings.TrimSpace(out.Destination) == "" {
		out.Destination = s.defaultDestination
		filled = append(filled, "destination "+s.defaultDestination)
	}
	if out.Days < minTripDays {
		out.Days = 3
		filled = append(filled, "3 days")
	}
	if !out.TravelMode.Valid() {
		out.TravelMode = domain.ModeWalking
		filled = append(filled, "walking")
	}
	if !out.HasDates() {
		out.FlexibleDates = true
		filled = append(filled, "flexible dates")
	}
	if !out.Pace.Valid() {
		out.Pace = domain.PaceModerate
		filled = append(filled, "moderate pace")
	}
	if len(out.Interests) == 0 {
		out.Interests = []string{"sightseeing"}
		filled = append(filled, "sightseeing")
	}
	return out, filled
}

func (s *PreferenceService) Summary(p domain.Preferences) string {
	pace := p.Pace
	if !pace.Valid() {
		pace = domain.PaceModerate
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here's what I have: %d days in %s at a %s pace, getting around by %s",
		p.Days, p.Destination, pace, p.TravelMode)
	if len(p.Interests) > 0 {
		fmt.Fprintf(&sb, ", focusing on %s", strings.Join(p.Interests, ", "))
	}
	switch {
	case p.StartDate != "":
		fmt.Fprintf(&sb, ", starting %s", p.StartDate)
	case p.FlexibleDates:
		sb.WriteString(", with flexible dates")
	}
	if p.Budget != "" {
		fmt.Fprintf(&sb, ", %s budget", p.Budget)
	}
	if p.StartingPoint != "" {
		fmt.Fprintf(&sb, ", starting from %s", p.StartingPoint)
	}
	sb.WriteString(". Shall I build the itinerary?")
	return sb.String()
}
