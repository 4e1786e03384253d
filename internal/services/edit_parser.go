package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/llm"
	"wayfarer/pkg/utils"
)

type EditParserInterface interface {
	// ParseEdit turns an edit request into a command against it. Canonical
	// phrasings are matched by pattern first; generation is consulted only
	// when no pattern matches.
	ParseEdit(ctx context.Context, utterance string, it domain.Itinerary) (domain.EditCommand, error)
}

type EditParser struct {
	gen     llm.Generator
	lexicon *Lexicon
	log     *zap.Logger
}

func NewEditParser(gen llm.Generator, lexicon *Lexicon, log *zap.Logger) EditParserInterface {
	if gen == nil {
		gen = llm.Disabled{}
	}
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EditParser{gen: gen, lexicon: lexicon, log: log}
}

const (
	num   = `(` + utils.NumberPattern + `)`
	block = `(morning|afternoon|evening)`
)

var (
	swapDaysRe = regexp.MustCompile(`\b(?:swap|switch|exchange|flip|trade)\s+(?:the\s+)?(?:days?\s+)?` + num +
		`(?:\s+day)?\s+(?:and|with|for)\s+(?:the\s+)?(?:day\s+)?` + num + `(?:\s+days?)?\b`)

	moveBlockRe = regexp.MustCompile(`\b(?:move|shift|push)\s+(?:the\s+|my\s+)?(?:day\s+` + num + `(?:'s)?\s+)?` + block +
		`(?:\s+(?:of|on|from)\s+day\s+` + num + `)?(?:\s+(?:activities|plans|stuff))?\s+(?:to|onto|into)\s+(?:the\s+)?(?:day\s+` + num +
		`(?:'s)?)?\s*` + block + `?(?:\s+(?:of|on)\s+day\s+` + num + `)?`)

	insteadOfRe  = regexp.MustCompile(`^(?:(?:can we|could we|let's|lets|i'd rather|i would rather)\s+)?(?:go to|visit|see|do)?\s*(?:a\s+|an\s+|the\s+|some\s+)?(.+?)\s+instead of\s+(?:the\s+)?(.+?)$`)
	replaceRe    = regexp.MustCompile(`\b(?:replace|swap out|swap|switch out|change)\s+(?:the\s+)?(.+?)\s+(?:with|for|to)\s+(?:a\s+|an\s+|some\s+|another\s+|the\s+)?(.+?)$`)
	replaceBare  = regexp.MustCompile(`\b(?:replace|swap out|switch out)\s+(?:the\s+)?(.+?)$`)
	removeRe     = regexp.MustCompile(`\b(?:remove|delete|drop|skip|cancel|get rid of)\s+(?:the\s+)?(.+?)$`)
	addRe        = regexp.MustCompile(`\b(?:add|include|squeeze in|fit in)\s+(.+?)$`)
	dayPhraseRe  = regexp.MustCompile(`\s*\b(?:on|to|in|into|for|from|during|of)?\s*(?:the\s+)?(?:day\s+` + num + `|` + num + `\s+day)(?:'s)?\b`)
	blockPhrase  = regexp.MustCompile(`\s*\b(?:on|to|in|into|for|during)?\s*(?:the\s+)?` + block + `(?:\s+of)?\b`)
	blockWordRe  = regexp.MustCompile(`\b` + block + `\b`)
	leadArticles = regexp.MustCompile(`^(?:a|an|the|some|another|one more)\s+`)
	politeRe     = regexp.MustCompile(`\b(?:please|can you|could you|would you|i want to|i'd like to|let's|lets)\b\s*`)
)

var (
	paceDown = []string{"slower", "more relaxed", "less packed", "less busy", "relax the pace", "slow down", "fewer activities", "take it easy"}
	paceUp   = []string{"faster", "more packed", "busier", "speed up", "more activities", "pick up the pace"}
)

func (p *EditParser) ParseEdit(ctx context.Context, utterance string, it domain.Itinerary) (domain.EditCommand, error) {
	text := strings.ToLower(p.lexicon.Normalize(utterance))
	text = strings.TrimSpace(strings.TrimRight(politeRe.ReplaceAllString(text, ""), " .!?"))

	if cmd, ok := p.parseWithPatterns(text, it); ok {
		cmd.Raw, cmd.Source = utterance, domain.SourceRules
		if err := validateCommand(cmd, it); err != nil {
			return domain.EditCommand{}, err
		}
		return cmd, nil
	}

	cmd, err := p.parseWithGeneration(ctx, text, it)
	if err != nil {
		p.log.Debug("edit generation unusable", zap.Error(err))
		return domain.EditCommand{}, utils.NewAppError(utils.KindEditParseFailure,
			"I couldn't tell what to change. Try something like \"swap day 1 and day 2\" or \"add a cafe on day 2 afternoon\".",
			fmt.Errorf("%w: %v", utils.ErrEditParse, err))
	}
	cmd.Raw, cmd.Source = utterance, domain.SourceGeneration
	if err := validateCommand(cmd, it); err != nil {
		return domain.EditCommand{}, err
	}
	return cmd, nil
}

func dayNumber(token string, days int) int {
	n, ok := utils.ParseNumber(token)
	if !ok {
		return 0
	}
	if n == -1 {
		return days
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstDayRef returns the earliest day reference without range checks, so
// validation can reject days the itinerary does not have.
func firstDayRef(text string, days int) int {
	best, pos := 0, -1
	for _, re := range []*regexp.Regexp{dayRefRe, ordinalDayRe} {
		m := re.FindStringSubmatchIndex(text)
		if m == nil || (pos >= 0 && m[0] >= pos) {
			continue
		}
		if n := dayNumber(text[m[2]:m[3]], days); n != 0 {
			best, pos = n, m[0]
		}
	}
	return best
}

// stripScope removes day and block phrases from a free-text query or name.
func stripScope(s string) string {
	s = dayPhraseRe.ReplaceAllString(s, "")
	s = blockPhrase.ReplaceAllString(s, "")
	s = leadArticles.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(strings.Trim(s, " ,."))
}

func (p *EditParser) parseWithPatterns(text string, it domain.Itinerary) (domain.EditCommand, bool) {
	days := len(it.DayPlans)

	if m := swapDaysRe.FindStringSubmatch(text); m != nil {
		return domain.EditCommand{
			Type:      domain.EditSwapDays,
			SourceDay: dayNumber(m[1], days),
			TargetDay: dayNumber(m[2], days),
		}, true
	}

	if m := moveBlockRe.FindStringSubmatch(text); m != nil {
		cmd := domain.EditCommand{
			Type:        domain.EditMoveTimeBlock,
			SourceDay:   dayNumber(firstNonEmpty(m[1], m[3]), days),
			TimeBlock:   domain.TimeBlockName(m[2]),
			TargetDay:   dayNumber(firstNonEmpty(m[4], m[6]), days),
			TargetBlock: domain.TimeBlockName(m[5]),
		}
		if cmd.TargetBlock == "" {
			cmd.TargetBlock = cmd.TimeBlock
		}
		if cmd.SourceDay == 0 && cmd.TargetDay != 0 {
			return domain.EditCommand{}, false
		}
		if cmd.TargetDay == 0 {
			cmd.TargetDay = cmd.SourceDay
		}
		return cmd, true
	}

	if et, ok := domain.ParseEditType(p.lexicon.Match(p.lexicon.EditKeywords, text)); ok && et == domain.EditReduceTravel {
		return domain.EditCommand{Type: domain.EditReduceTravel, SourceDay: firstDayRef(text, days)}, true
	}

	if pace, ok := p.paceChange(text, it.Pace); ok {
		return domain.EditCommand{Type: domain.EditChangePace, Pace: pace}, true
	}

	if m := insteadOfRe.FindStringSubmatch(text); m != nil {
		return p.withScope(domain.EditCommand{
			Type:         domain.EditSwapActivity,
			ActivityName: stripScope(m[2]),
			Query:        stripScope(m[1]),
		}, text, days), true
	}
	if m := replaceRe.FindStringSubmatch(text); m != nil {
		return p.withScope(domain.EditCommand{
			Type:         domain.EditSwapActivity,
			ActivityName: stripScope(m[1]),
			Query:        stripScope(m[2]),
		}, text, days), true
	}
	if m := replaceBare.FindStringSubmatch(text); m != nil {
		return p.withScope(domain.EditCommand{
			Type:         domain.EditSwapActivity,
			ActivityName: stripScope(m[1]),
		}, text, days), true
	}
	if m := removeRe.FindStringSubmatch(text); m != nil {
		return p.withScope(domain.EditCommand{
			Type:         domain.EditRemove,
			ActivityName: stripScope(m[1]),
		}, text, days), true
	}
	if m := addRe.FindStringSubmatch(text); m != nil {
		cmd := p.withScope(domain.EditCommand{
			Type:  domain.EditAddActivity,
			Query: stripScope(m[1]),
		}, text, days)
		if cmd.TimeBlock == "" {
			cmd.TimeBlock = domain.Afternoon
		}
		if cmd.SourceDay == 0 && days == 1 {
			cmd.SourceDay = 1
		}
		return cmd, true
	}
	return domain.EditCommand{}, false
}

func (p *EditParser) withScope(cmd domain.EditCommand, text string, days int) domain.EditCommand {
	cmd.SourceDay = firstDayRef(text, days)
	if m := blockWordRe.FindStringSubmatch(text); m != nil {
		cmd.TimeBlock = domain.TimeBlockName(m[1])
	}
	return cmd
}

// paceChange reads comparative phrasing relative to the current pace and
// absolute pace words when the utterance is about pace.
func (p *EditParser) paceChange(text string, current domain.Pace) (domain.Pace, bool) {
	order := []domain.Pace{domain.PaceRelaxed, domain.PaceModerate, domain.PaceFast}
	idx := 1
	for i, pace := range order {
		if pace == current {
			idx = i
		}
	}
	switch {
	case hasAny(text, paceDown):
		if idx > 0 {
			idx--
		}
		return order[idx], true
	case hasAny(text, paceUp):
		if idx < len(order)-1 {
			idx++
		}
		return order[idx], true
	}
	if !strings.Contains(text, "pace") && !strings.Contains(text, "make it") && !strings.Contains(text, "make the trip") {
		return "", false
	}
	if pace := domain.Pace(p.lexicon.Match(p.lexicon.Pace, text)); pace.Valid() {
		return pace, true
	}
	return "", false
}

type generatedEdit struct {
	Type         string `json:"type"`
	SourceDay    int    `json:"source_day"`
	TargetDay    int    `json:"target_day"`
	TimeBlock    string `json:"time_block"`
	TargetBlock  string `json:"target_block"`
	ActivityName string `json:"activity_name"`
	Query        string `json:"query"`
	Pace         string `json:"pace"`
}

func (g generatedEdit) Validate() error {
	if _, ok := domain.ParseEditType(strings.ToUpper(strings.TrimSpace(g.Type))); !ok {
		return fmt.Errorf("unknown edit type %q", g.Type)
	}
	return nil
}

func (p *EditParser) parseWithGeneration(ctx context.Context, text string, it domain.Itinerary) (domain.EditCommand, error) {
	var sb strings.Builder
	sb.WriteString("Turn the traveller's edit request into one command.\n")
	sb.WriteString("Types: CHANGE_PACE, ADD_ACTIVITY, REMOVE_ACTIVITY, SWAP_ACTIVITY, SWAP_DAYS, MOVE_TIME_BLOCK, REDUCE_TRAVEL.\n")
	sb.WriteString(`Answer with JSON only: {"type":"","source_day":0,"target_day":0,"time_block":"","target_block":"","activity_name":"","query":"","pace":""}`)
	fmt.Fprintf(&sb, "\nThe itinerary has %d days at a %s pace.\n", len(it.DayPlans), it.Pace)
	for _, d := range it.DayPlans {
		fmt.Fprintf(&sb, "Day %d:", d.Number)
		for _, b := range d.Blocks {
			for _, a := range b.Activities {
				fmt.Fprintf(&sb, " [%s] %s;", b.Name, a.Name)
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Request: %q", text)

	out, err := llm.GenerateJSON[generatedEdit](ctx, p.gen, llm.Request{
		Purpose:     "edit",
		System:      "You translate itinerary edit requests into commands. Answer with JSON only.",
		Prompt:      sb.String(),
		Temperature: 0,
	})
	if err != nil {
		return domain.EditCommand{}, err
	}
	et, _ := domain.ParseEditType(strings.ToUpper(strings.TrimSpace(out.Type)))
	cmd := domain.EditCommand{
		Type:         et,
		SourceDay:    out.SourceDay,
		TargetDay:    out.TargetDay,
		TimeBlock:    domain.TimeBlockName(strings.ToLower(out.TimeBlock)),
		TargetBlock:  domain.TimeBlockName(strings.ToLower(out.TargetBlock)),
		ActivityName: strings.TrimSpace(out.ActivityName),
		Query:        strings.TrimSpace(out.Query),
		Pace:         domain.Pace(strings.ToLower(out.Pace)),
	}
	if cmd.TimeBlock != "" && !cmd.TimeBlock.Valid() {
		cmd.TimeBlock = ""
	}
	if cmd.TargetBlock != "" && !cmd.TargetBlock.Valid() {
		cmd.TargetBlock = ""
	}
	if cmd.Type == domain.EditMoveTimeBlock && cmd.TargetBlock == "" {
		cmd.TargetBlock = cmd.TimeBlock
	}
	if cmd.Type == domain.EditAddActivity && cmd.TimeBlock == "" {
		cmd.TimeBlock = domain.Afternoon
	}
	return cmd, nil
}

func editParseError(msg string) error {
	return utils.NewAppError(utils.KindEditParseFailure, msg, utils.ErrEditParse)
}

// validateCommand rejects commands that reference days outside the itinerary
// or miss a field their type needs.
func validateCommand(cmd domain.EditCommand, it domain.Itinerary) error {
	days := len(it.DayPlans)
	for _, d := range []int{cmd.SourceDay, cmd.TargetDay} {
		if d != 0 && (d < 1 || d > days) {
			return editParseError(fmt.Sprintf("Your itinerary has %d days, so day %d doesn't exist.", days, d))
		}
	}

	switch cmd.Type {
	case domain.EditSwapDays:
		if cmd.SourceDay == 0 || cmd.TargetDay == 0 {
			return editParseError("Which two days should I swap?")
		}
		if cmd.SourceDay == cmd.TargetDay {
			return editParseError("Those are the same day. Which two different days should I swap?")
		}
	case domain.EditMoveTimeBlock:
		if cmd.SourceDay == 0 || cmd.TargetDay == 0 || !cmd.TimeBlock.Valid() || !cmd.TargetBlock.Valid() {
			return editParseError("Which day and time of day should I move, and where to?")
		}
		if cmd.SourceDay == cmd.TargetDay && cmd.TimeBlock == cmd.TargetBlock {
			return editParseError("That block is already there.")
		}
	case domain.EditAddActivity:
		if cmd.Query == "" {
			return editParseError("What kind of place should I add?")
		}
		if cmd.SourceDay == 0 {
			return editParseError("Which day should I add it to?")
		}
	case domain.EditRemove, domain.EditSwapActivity:
		if cmd.ActivityName == "" {
			return editParseError("Which activity do you mean?")
		}
	case domain.EditChangePace:
		if !cmd.Pace.Valid() {
			return editParseError("Should the trip be relaxed, moderate or fast?")
		}
	case domain.EditReduceTravel:
	default:
		return editParseError("I couldn't tell what to change.")
	}
	return nil
}
