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

type IntentServiceInterface interface {
	// Classify never fails: when generation is unavailable or unusable the
	// rule-based classifier answers, possibly with low confidence.
	Classify(ctx context.Context, utterance string, cc domain.ConversationContext) domain.Classification
}

type IntentService struct {
	gen     llm.Generator
	lexicon *Lexicon
	log     *zap.Logger
}

func NewIntentService(gen llm.Generator, lexicon *Lexicon, log *zap.Logger) IntentServiceInterface {
	if gen == nil {
		gen = llm.Disabled{}
	}
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IntentService{gen: gen, lexicon: lexicon, log: log}
}

var (
	dayRefRe     = regexp.MustCompile(`(?i)\bday\s+(` + utils.NumberPattern + `)\b`)
	ordinalDayRe = regexp.MustCompile(`(?i)\b(` + utils.NumberPattern + `)\s+day\b`)
)

type generatedIntent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Entities   struct {
		Days         []int  `json:"days"`
		TimeBlock    string `json:"time_block"`
		EditType     string `json:"edit_type"`
		ActivityName string `json:"activity_name"`
		Topic        string `json:"topic"`
		Confirmation *bool  `json:"confirmation"`
	} `json:"entities"`
}

func (g generatedIntent) Validate() error {
	if _, ok := domain.ParseIntent(strings.ToUpper(strings.TrimSpace(g.Intent))); !ok {
		return fmt.Errorf("unknown intent %q", g.Intent)
	}
	return nil
}

func (s *IntentService) Classify(ctx context.Context, utterance string, cc domain.ConversationContext) domain.Classification {
	text := s.lexicon.Normalize(utterance)

	c, err := s.classifyWithGeneration(ctx, text, cc)
	if err == nil {
		return c
	}
	s.log.Debug("intent generation unusable, using rules", zap.Error(err))
	return s.classifyWithRules(text, cc)
}

func (s *IntentService) intentPrompt(text string, cc domain.ConversationContext) string {
	var sb strings.Builder
	sb.WriteString("Classify the traveller's message into one intent: PLAN_TRIP, EDIT_ITINERARY, EXPLAIN, CLARIFY_RESPONSE or OTHER.\n")
	sb.WriteString("Edit types: CHANGE_PACE, ADD_ACTIVITY, REMOVE_ACTIVITY, SWAP_ACTIVITY, SWAP_DAYS, MOVE_TIME_BLOCK, REDUCE_TRAVEL.\n")
	sb.WriteString(`Answer with JSON only: {"intent":"...","confidence":0.0,"entities":{"days":[],"time_block":"","edit_type":"","activity_name":"","topic":"","confirmation":null}}`)
	sb.WriteString("\n\nExamples:\n")
	for _, ex := range s.lexicon.IntentExamples {
		fmt.Fprintf(&sb, "%q -> %s\n", ex.Text, ex.Intent)
	}
	fmt.Fprintf(&sb, "\nConversation state: %s. Itinerary exists: %t.", cc.State, cc.HasItinerary)
	if cc.LastQuestion != domain.FieldNone {
		fmt.Fprintf(&sb, " Last question asked about: %s.", cc.LastQuestion)
	}
	fmt.Fprintf(&sb, "\nMessage: %q", text)
	return sb.String()
}

func (s *IntentService) classifyWithGeneration(ctx context.Context, text string, cc domain.ConversationContext) (domain.Classification, error) {
	out, err := llm.GenerateJSON[generatedIntent](ctx, s.gen, llm.Request{
		Purpose:     "intent",
		System:      "You classify messages for a trip-planning assistant. Answer with JSON only.",
		Prompt:      s.intentPrompt(text, cc),
		Temperature: 0,
	})
	if err != nil {
		return domain.Classification{}, err
	}

	intent, _ := domain.ParseIntent(strings.ToUpper(strings.TrimSpace(out.Intent)))
	c := domain.Classification{
		Intent:     intent,
		Confidence: clampConfidence(out.Confidence),
		Source:     domain.SourceGeneration,
		Entities: domain.Entities{
			ActivityName: strings.TrimSpace(out.Entities.ActivityName),
			Topic:        strings.TrimSpace(out.Entities.Topic),
			Confirmation: out.Entities.Confirmation,
		},
	}
	for _, d := range out.Entities.Days {
		if d >= 1 && (cc.Days == 0 || d <= cc.Days) {
			c.Entities.Days = append(c.Entities.Days, d)
		}
	}
	if b := domain.TimeBlockName(strings.ToLower(out.Entities.TimeBlock)); b.Valid() {
		c.Entities.TimeBlock = b
	}
	if et, ok := domain.ParseEditType(strings.ToUpper(out.Entities.EditType)); ok {
		c.Entities.EditType = et
	}

	// Lexicon signals fill what the model left out.
	if c.Entities.Confirmation == nil {
		c.Entities.Confirmation = s.lexicon.Confirmation(text)
	}
	if len(c.Entities.Days) == 0 {
		c.Entities.Days = dayReferences(text, cc.Days)
	}
	if c.Entities.TimeBlock == "" {
		c.Entities.TimeBlock = s.lexicon.Block(text)
	}
	if c.Intent == domain.IntentEditItinerary && c.Entities.EditType == "" {
		if et, ok := domain.ParseEditType(s.lexicon.Match(s.lexicon.EditKeywords, text)); ok {
			c.Entities.EditType = et
		}
	}
	return c, nil
}

// classifyWithRules is total: every input gets an intent.
func (s *IntentService) classifyWithRules(text string, cc domain.ConversationContext) domain.Classification {
	lower := strings.ToLower(text)
	c := domain.Classification{
		Source: domain.SourceRules,
		Entities: domain.Entities{
			Days:         dayReferences(text, cc.Days),
			TimeBlock:    s.lexicon.Block(text),
			Confirmation: s.lexicon.Confirmation(text),
		},
	}

	if cc.State == domain.StateConfirming && c.Entities.Confirmation != nil {
		c.Intent, c.Confidence = domain.IntentClarifyResponse, 0.9
		return c
	}

	if cc.HasItinerary {
		if et, ok := domain.ParseEditType(s.lexicon.Match(s.lexicon.EditKeywords, text)); ok {
			c.Intent, c.Confidence = domain.IntentEditItinerary, 0.8
			c.Entities.EditType = et
			return c
		}
		if hasAny(lower, s.lexicon.ExplainKeywords) || strings.HasSuffix(strings.TrimSpace(lower), "?") {
			c.Intent, c.Confidence = domain.IntentExplain, 0.7
			c.Entities.Topic = s.topicOf(text)
			return c
		}
	}

	if hasAny(lower, s.lexicon.PlanKeywords) {
		c.Intent, c.Confidence = domain.IntentPlanTrip, 0.7
		return c
	}

	switch cc.State {
	case domain.StateCollecting, domain.StateConfirming:
		c.Intent, c.Confidence = domain.IntentClarifyResponse, 0.6
		return c
	}

	if len(s.lexicon.InterestTags(text)) > 0 || s.lexicon.Match(s.lexicon.Pace, text) != "" ||
		s.lexicon.Match(s.lexicon.TravelModes, text) != "" {
		c.Intent, c.Confidence = domain.IntentClarifyResponse, 0.5
		return c
	}

	c.Intent, c.Confidence = domain.IntentOther, 0.3
	return c
}

// topicOf strips leading question words so retrieval sees the subject.
func (s *IntentService) topicOf(text string) string {
	topic := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), "?!."))
	lower := strings.ToLower(topic)
	best := ""
	for _, k := range s.lexicon.ExplainKeywords {
		if startsWithPhrase(lower, k) && len(k) > len(best) {
			best = k
		}
	}
	if best != "" {
		topic = strings.TrimSpace(topic[len(best):])
	}
	if topic == "" {
		return strings.TrimSpace(text)
	}
	return topic
}

// dayReferences collects "day N" and "Nth day" references in order. "last"
// resolves against days when known.
func dayReferences(text string, days int) []int {
	type hit struct{ pos, n int }
	var hits []hit
	for _, re := range []*regexp.Regexp{dayRefRe, ordinalDayRe} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			n, ok := utils.ParseNumber(text[m[2]:m[3]])
			if !ok {
				continue
			}
			if n == -1 {
				if days == 0 {
					continue
				}
				n = days
			}
			if n < 1 || (days > 0 && n > days) {
				continue
			}
			hits = append(hits, hit{pos: m[0], n: n})
		}
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	var out []int
	for _, h := range hits {
		out = append(out, h.n)
	}
	return out
}

func clampConfidence(c float64) float64 {
	switch {
	case c <= 0:
		return 0.5
	case c > 1:
		return 1
	}
	return c
}
