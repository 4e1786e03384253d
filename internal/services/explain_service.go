package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/llm"
	"wayfarer/pkg/utils"
)

type ExplainServiceInterface interface {
	// Explain answers a question about the itinerary from scheduled POI
	// data and retrieved guide passages only.
	Explain(ctx context.Context, it domain.Itinerary, question string) (string, []domain.Citation, error)
}

type ExplainService struct {
	gen       llm.Generator
	retrieval RetrievalServiceInterface
	log       *zap.Logger
}

func NewExplainService(gen llm.Generator, retrieval RetrievalServiceInterface, log *zap.Logger) ExplainServiceInterface {
	if gen == nil {
		gen = llm.Disabled{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExplainService{gen: gen, retrieval: retrieval, log: log}
}

type scheduledActivity struct {
	day      int
	block    domain.TimeBlockName
	index    int
	activity domain.Activity
	previous *domain.Activity
}

// mentioned finds scheduled activities named in the question.
func mentioned(it domain.Itinerary, question string) []scheduledActivity {
	var out []scheduledActivity
	for _, d := range it.DayPlans {
		for _, b := range d.Blocks {
			for i, a := range b.Activities {
				if !utils.FoldedContains(question, a.Name) && !nameWordsIn(question, a.Name) {
					continue
				}
				sa := scheduledActivity{day: d.Number, block: b.Name, index: i, activity: a}
				if i > 0 {
					prev := b.Activities[i-1]
					sa.previous = &prev
				}
				out = append(out, sa)
			}
		}
	}
	return out
}

// nameWordsIn matches on the distinctive words of a name, so "the tower"
// finds "Eiffel Tower".
func nameWordsIn(question, name string) bool {
	q := " " + utils.NormalizeTag(question) + " "
	for _, w := range strings.Fields(utils.NormalizeTag(name)) {
		if len(w) < 5 {
			continue
		}
		if strings.Contains(q, " "+w+" ") || strings.Contains(q, " "+w+"?") || strings.Contains(q, " "+w+"'") {
			return true
		}
	}
	return false
}

func (s *ExplainService) Explain(ctx context.Context, it domain.Itinerary, question string) (string, []domain.Citation, error) {
	if strings.TrimSpace(question) == "" {
		return "", nil, fmt.Errorf("%w: question is empty", utils.ErrInvalidInput)
	}
	acts := mentioned(it, question)

	var citations []domain.Citation
	for _, sa := range acts {
		citations = append(citations, domain.Citation{
			Type:    domain.CitationPOI,
			Subject: sa.activity.Name,
			Locator: sa.activity.SourceLocator,
			Snippet: sa.activity.Description,
		})
	}

	var snippets []domain.Snippet
	if s.retrieval != nil {
		var err error
		snippets, err = s.retrieval.Retrieve(ctx, it.Destination, question, 3)
		if err != nil {
			s.log.Warn("retrieval failed", zap.Error(err))
		}
	}
	for _, sn := range snippets {
		citations = append(citations, sn.Citation(sn.Title))
	}

	facts := s.facts(it, acts, snippets)
	if len(facts) == 0 {
		return fmt.Sprintf("I don't have verified information to answer that about your %s trip. Try asking about a specific activity in your itinerary.", it.Destination), nil, nil
	}

	answer, err := s.gen.Generate(ctx, llm.Request{
		Purpose: "explain",
		System:  "You answer travellers' questions using only the facts provided. If the facts do not answer the question, say so. Never invent opening hours, prices or places.",
		Prompt: fmt.Sprintf("Facts:\n- %s\n\nQuestion: %s\nAnswer in at most four sentences.",
			strings.Join(facts, "\n- "), question),
		Temperature: 0.2,
	})
	if err == nil && strings.TrimSpace(answer) != "" {
		return strings.TrimSpace(answer), citations, nil
	}
	if err != nil {
		s.log.Debug("explain generation unusable, composing from facts", zap.Error(err))
	}
	return strings.Join(facts, " "), citations, nil
}

// facts lists sentences grounded in scheduled data and passages.
func (s *ExplainService) facts(it domain.Itinerary, acts []scheduledActivity, snippets []domain.Snippet) []string {
	var out []string
	for _, sa := range acts {
		a := sa.activity
		out = append(out, fmt.Sprintf("%s is scheduled on day %d in the %s at %s for %d minutes.",
			a.Name, sa.day, sa.block, a.Time, a.DurationMinutes))
		if matched := matchedInterests(a, it.Interests); len(matched) > 0 {
			out = append(out, fmt.Sprintf("It matches your interest in %s.", strings.Join(matched, " and ")))
		}
		if sa.previous != nil {
			km := utils.HaversineKm(sa.previous.Location, a.Location)
			out = append(out, fmt.Sprintf("It is %.1f km from %s, about %d minutes by %s.",
				km, sa.previous.Name, a.TravelMinutes, it.TravelMode))
		} else {
			out = append(out, fmt.Sprintf("It opens the %s, so no travel is counted before it.", sa.block))
		}
		if a.Description != "" {
			out = append(out, a.Description)
		}
		if a.OpeningHours != "" {
			out = append(out, fmt.Sprintf("Listed opening hours: %s.", a.OpeningHours))
		}
		if a.Rating != nil {
			out = append(out, fmt.Sprintf("Rated %.1f.", *a.Rating))
		}
	}
	for _, sn := range snippets {
		out = append(out, strings.TrimSpace(sn.Text))
	}
	return out
}

func matchedInterests(a domain.Activity, interests []string) []string {
	poi := activityPOI(a)
	var out []string
	for _, in := range interests {
		if interestScore(poi, []string{in}) > 0 {
			out = append(out, in)
		}
	}
	return out
}
