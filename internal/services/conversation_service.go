package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/internal/models/response_models"
	mem "wayfarer/pkg/memcache"
	"wayfarer/pkg/utils"
)

const defaultClarificationCap = 6

const plannedHelp = `Your itinerary is ready. You can ask me to change it (for example "swap day 1 and day 2" or "make it more relaxed"), ask why something is included, or say "start over".`

type ConversationServiceInterface interface {
	// Chat runs one conversational turn. An empty sessionID starts a new
	// conversation. Domain failures come back as status "error" with a kind
	// so the session keeps its history and state.
	Chat(ctx context.Context, sessionID, message string) (response_models.ChatResponse, error)
	Edit(ctx context.Context, sessionID, command string) (response_models.EditResponse, error)
	Explain(ctx context.Context, sessionID, question string) (response_models.ExplainResponse, error)
	Export(ctx context.Context, sessionID, email string) (response_models.ExportResponse, error)
	Snapshot(sessionID string) (response_models.SessionResponse, error)
	Reset(sessionID string) error
}

// ConversationDeps are the collaborators of the conversation service.
type ConversationDeps struct {
	Store       mem.SessionStore
	Intent      IntentServiceInterface
	Preferences PreferenceServiceInterface
	Gateway     POIGatewayInterface
	Builder     ItineraryBuilderInterface
	Parser      EditParserInterface
	Editor      EditServiceInterface
	Evaluator   EvaluationServiceInterface
	Explainer   ExplainServiceInterface
	Exporter    ExportServiceInterface
	Lexicon     *Lexicon
	Cap         int
	Log         *zap.Logger
}

type ConversationService struct {
	store     mem.SessionStore
	intent    IntentServiceInterface
	prefs     PreferenceServiceInterface
	gateway   POIGatewayInterface
	builder   ItineraryBuilderInterface
	parser    EditParserInterface
	editor    EditServiceInterface
	evaluator EvaluationServiceInterface
	explainer ExplainServiceInterface
	exporter  ExportServiceInterface
	lexicon   *Lexicon
	cap       int
	log       *zap.Logger
	now       func() time.Time
}

func NewConversationService(d ConversationDeps) ConversationServiceInterface {
	if d.Lexicon == nil {
		d.Lexicon = DefaultLexicon()
	}
	if d.Cap <= 0 {
		d.Cap = defaultClarificationCap
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &ConversationService{
		store:     d.Store,
		intent:    d.Intent,
		prefs:     d.Preferences,
		gateway:   d.Gateway,
		builder:   d.Builder,
		parser:    d.Parser,
		editor:    d.Editor,
		evaluator: d.Evaluator,
		explainer: d.Explainer,
		exporter:  d.Exporter,
		lexicon:   d.Lexicon,
		cap:       d.Cap,
		log:       d.Log,
		now:       time.Now,
	}
}

func reply(status, message string) response_models.ChatResponse {
	return response_models.ChatResponse{Status: status, Message: message}
}

func failure(err error) response_models.ChatResponse {
	return response_models.ChatResponse{
		Status:  response_models.StatusError,
		Kind:    utils.KindOf(err),
		Message: utils.MessageOf(err),
	}
}

func (s *ConversationService) Chat(ctx context.Context, sessionID, message string) (response_models.ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return response_models.ChatResponse{}, fmt.Errorf("%w: message is empty", utils.ErrInvalidInput)
	}
	if sessionID == "" {
		sessionID = s.store.Create().ID
	}

	var out response_models.ChatResponse
	err := s.store.WithSession(ctx, sessionID, func(sess *domain.Session) error {
		sess.Append(domain.RoleUser, message, s.now())
		out = s.turn(ctx, sess, message)
		sess.Append(domain.RoleAssistant, out.Message, s.now())
		out.SessionID = sess.ID
		out.State = sess.State
		return nil
	})
	if err != nil {
		return response_models.ChatResponse{}, err
	}
	return out, nil
}

func (s *ConversationService) turn(ctx context.Context, sess *domain.Session, message string) response_models.ChatResponse {
	if s.lexicon.IsReset(message) {
		sess.State = domain.StateReset
		return reply(response_models.StatusSuccess, "Starting over. This conversation has been cleared; send a new message to plan another trip.")
	}

	c := s.intent.Classify(ctx, message, sess.Context())
	s.log.Debug("classified turn",
		zap.String("session_id", sess.ID),
		zap.String("state", string(sess.State)),
		zap.String("intent", string(c.Intent)),
		zap.String("source", c.Source),
		zap.Float64("confidence", c.Confidence))

	var out response_models.ChatResponse
	switch sess.State {
	case domain.StateCollecting:
		out = s.collecting(ctx, sess, message, c)
	case domain.StateConfirming:
		out = s.confirming(ctx, sess, message, c)
	case domain.StatePlanned:
		out = s.planned(ctx, sess, message, c)
	default:
		out = failure(fmt.Errorf("%w: session is %s", utils.ErrInvalidState, sess.State))
	}
	out.Intent = c.Intent
	return out
}

// notPlannedYet answers edit and explain requests made before an itinerary
// exists. The clarification counter is left alone.
func (s *ConversationService) notPlannedYet(sess *domain.Session, c domain.Classification) response_models.ChatResponse {
	what := "change"
	if c.Intent == domain.IntentExplain {
		what = "explain"
	}
	msg := fmt.Sprintf("There's no itinerary to %s yet.", what)
	switch {
	case sess.State == domain.StateConfirming:
		msg += " Reply yes to build it first."
	case sess.LastQuestion != domain.FieldNone:
		msg += " " + s.prefs.NextClarifyingQuestion(sess.LastQuestion)
	default:
		msg += " Tell me where you'd like to go and for how many days."
	}
	return reply(response_models.StatusClarifying, msg)
}

func (s *ConversationService) collecting(ctx context.Context, sess *domain.Session, message string, c domain.Classification) response_models.ChatResponse {
	if c.Intent == domain.IntentEditItinerary || c.Intent == domain.IntentExplain {
		return s.notPlannedYet(sess, c)
	}
	sess.Preferences = s.prefs.Extract(ctx, message, sess.Preferences, sess.LastQuestion)
	return s.advance(sess)
}

// advance asks for the first missing field while the cap allows, otherwise
// fills defaults and moves to confirmation.
func (s *ConversationService) advance(sess *domain.Session) response_models.ChatResponse {
	var note string
	if field := s.prefs.MissingField(sess.Preferences); field != domain.FieldNone {
		if sess.ClarificationCount < s.cap {
			sess.ClarificationCount++
			sess.LastQuestion = field
			return reply(response_models.StatusClarifying, s.prefs.NextClarifyingQuestion(field))
		}
		prefs, filled := s.prefs.ApplyDefaults(sess.Preferences)
		sess.Preferences = prefs
		s.log.Info("clarification cap reached, using defaults",
			zap.String("session_id", sess.ID), zap.Strings("filled", filled))
		note = fmt.Sprintf("I'll fill in the rest with sensible defaults (%s). ", strings.Join(filled, ", "))
	}
	sess.LastQuestion = domain.FieldNone
	sess.State = domain.StateConfirming
	return reply(response_models.StatusConfirmationRequired, note+s.prefs.Summary(sess.Preferences))
}

func samePreferences(a, b domain.Preferences) bool {
	return reflect.DeepEqual(a.Clone(), b.Clone())
}

func (s *ConversationService) confirming(ctx context.Context, sess *domain.Session, message string, c domain.Classification) response_models.ChatResponse {
	if c.Intent == domain.IntentEditItinerary || c.Intent == domain.IntentExplain {
		return s.notPlannedYet(sess, c)
	}

	updated := s.prefs.Extract(ctx, message, sess.Preferences, domain.FieldNone)
	changed := !samePreferences(sess.Preferences, updated)
	sess.Preferences = updated

	switch {
	case c.Affirmative():
		if s.prefs.MissingField(sess.Preferences) != domain.FieldNone {
			sess.State = domain.StateCollecting
			return s.advance(sess)
		}
		return s.build(ctx, sess)
	case changed:
		if s.prefs.MissingField(sess.Preferences) != domain.FieldNone {
			sess.State = domain.StateCollecting
			return s.advance(sess)
		}
		return reply(response_models.StatusConfirmationRequired, "Updated. "+s.prefs.Summary(sess.Preferences))
	case c.Negative():
		sess.State = domain.StateCollecting
		sess.LastQuestion = domain.FieldNone
		return reply(response_models.StatusClarifying, "No problem. What would you like to change?")
	}
	return reply(response_models.StatusConfirmationRequired,
		"Reply yes to build the itinerary, or tell me what to change. "+s.prefs.Summary(sess.Preferences))
}

func poiCitations(it domain.Itinerary) []domain.Citation {
	acts := it.Activities()
	out := make([]domain.Citation, 0, len(acts))
	for _, a := range acts {
		out = append(out, domain.Citation{
			Type:    domain.CitationPOI,
			Subject: a.Name,
			Locator: a.SourceLocator,
			Snippet: a.Description,
		})
	}
	return out
}

func mergeSources(existing []domain.Citation, added ...domain.Citation) []domain.Citation {
	return lo.UniqBy(append(append([]domain.Citation{}, existing...), added...), func(c domain.Citation) string {
		return c.Type + "|" + c.Locator
	})
}

func (s *ConversationService) evaluate(it domain.Itinerary, sources []domain.Citation) domain.Evaluation {
	f := s.evaluator.Feasibility(it)
	g := s.evaluator.Grounding(it, sources)
	return domain.Evaluation{Feasibility: &f, Grounding: &g}
}

// build stays in CONFIRMING on failure so that "yes" retries.
func (s *ConversationService) build(ctx context.Context, sess *domain.Session) response_models.ChatResponse {
	prefs := sess.Preferences
	pois, err := s.gateway.Search(ctx, prefs.Destination, prefs.Interests, 0, 0)
	if err == nil {
		var it domain.Itinerary
		it, err = s.builder.Build(ctx, pois, prefs)
		if err == nil {
			return s.planReady(sess, it)
		}
	}
	s.log.Warn("itinerary build failed",
		zap.String("session_id", sess.ID),
		zap.String("destination", prefs.Destination),
		zap.String("kind", string(utils.KindOf(err))),
		zap.Error(err))
	out := failure(err)
	out.Message += " Reply yes to try again, or change your preferences."
	return out
}

func (s *ConversationService) planReady(sess *domain.Session, it domain.Itinerary) response_models.ChatResponse {
	sources := poiCitations(it)
	eval := s.evaluate(it, sources)
	sess.Itinerary = &it
	sess.Sources = sources
	sess.State = domain.StatePlanned

	msg := fmt.Sprintf("Here's your %d-day itinerary for %s with %d activities.", it.Days, it.Destination, len(it.Activities()))
	if len(it.Warnings) > 0 {
		msg += " Notes: " + strings.Join(it.Warnings, " ")
	}
	out := reply(response_models.StatusSuccess, msg)
	out.Itinerary = itineraryCopy(sess.Itinerary)
	out.Sources = append([]domain.Citation{}, sources...)
	out.Evaluation = &eval
	return out
}

// itineraryCopy detaches a response from the session's plan.
func itineraryCopy(it *domain.Itinerary) *domain.Itinerary {
	if it == nil {
		return nil
	}
	c := it.Clone()
	return &c
}

func (s *ConversationService) planned(ctx context.Context, sess *domain.Session, message string, c domain.Classification) response_models.ChatResponse {
	switch c.Intent {
	case domain.IntentEditItinerary:
		return s.chatEdit(ctx, sess, message)
	case domain.IntentExplain:
		return s.chatExplain(ctx, sess, message)
	}

	updated := s.prefs.Extract(ctx, message, sess.Preferences, domain.FieldNone)
	if !samePreferences(sess.Preferences, updated) || c.Intent == domain.IntentPlanTrip {
		sess.Preferences = updated
		sess.LastQuestion = domain.FieldNone
		if s.prefs.MissingField(updated) != domain.FieldNone {
			sess.State = domain.StateCollecting
			return s.advance(sess)
		}
		sess.State = domain.StateConfirming
		return reply(response_models.StatusConfirmationRequired,
			"I'll plan that as a new itinerary. "+s.prefs.Summary(updated))
	}
	return reply(response_models.StatusClarifying, plannedHelp)
}

// applyEdit parses and applies an edit to the session itinerary and
// evaluates the result. The session is updated only on success.
func (s *ConversationService) applyEdit(ctx context.Context, sess *domain.Session, text string) (domain.EditResult, domain.Evaluation, error) {
	if sess.Itinerary == nil {
		return domain.EditResult{}, domain.Evaluation{}, utils.ErrNoItinerary
	}
	before := sess.Itinerary.Clone()
	cmd, err := s.parser.ParseEdit(ctx, text, before)
	if err != nil {
		return domain.EditResult{}, domain.Evaluation{}, err
	}
	res, err := s.editor.Apply(ctx, before, cmd)
	if err != nil {
		return domain.EditResult{}, domain.Evaluation{}, err
	}

	added := lo.Map(res.Added, func(p domain.POI, _ int) domain.Citation {
		return domain.Citation{Type: domain.CitationPOI, Subject: p.Name, Locator: p.SourceLocator, Snippet: p.Description}
	})
	sources := mergeSources(sess.Sources, added...)
	eval := s.evaluate(res.Itinerary, sources)
	ec := s.evaluator.EditCorrectness(before, res.Itinerary, res.Command, res.Touched)
	eval.EditCorrectness = &ec
	if !ec.IsCorrect {
		s.log.Warn("edit changed more than its scope",
			zap.String("session_id", sess.ID),
			zap.String("edit_type", string(res.Command.Type)),
			zap.Strings("violations", ec.Violations))
	}

	it := res.Itinerary
	sess.Itinerary = &it
	sess.Sources = sources
	if res.Command.Type == domain.EditChangePace {
		sess.Preferences.Pace = it.Pace
	}
	return res, eval, nil
}

func describeEdit(cmd domain.EditCommand) string {
	switch cmd.Type {
	case domain.EditChangePace:
		return fmt.Sprintf("switched to a %s pace", cmd.Pace)
	case domain.EditAddActivity:
		return fmt.Sprintf("added %s to day %d %s", firstNonEmpty(cmd.Query, "an activity"), cmd.SourceDay, cmd.TimeBlock)
	case domain.EditRemove:
		return fmt.Sprintf("removed %s", cmd.ActivityName)
	case domain.EditSwapActivity:
		return fmt.Sprintf("replaced %s", cmd.ActivityName)
	case domain.EditSwapDays:
		return fmt.Sprintf("swapped day %d and day %d", cmd.SourceDay, cmd.TargetDay)
	case domain.EditMoveTimeBlock:
		return fmt.Sprintf("moved day %d %s to day %d %s", cmd.SourceDay, cmd.TimeBlock, cmd.TargetDay, cmd.TargetBlock)
	case domain.EditReduceTravel:
		if cmd.SourceDay > 0 {
			return fmt.Sprintf("re-ordered day %d to cut travel", cmd.SourceDay)
		}
		return "re-ordered each day to cut travel"
	}
	return "updated your itinerary"
}

func editMessage(res domain.EditResult, eval domain.Evaluation) string {
	msg := "Done: " + describeEdit(res.Command) + "."
	if len(res.Itinerary.Warnings) > 0 {
		msg += " " + strings.Join(res.Itinerary.Warnings, " ")
	}
	if eval.EditCorrectness != nil && !eval.EditCorrectness.IsCorrect {
		msg += " Heads up: this also changed " + strings.Join(eval.EditCorrectness.ModifiedSections, ", ") + "."
	}
	return msg
}

func (s *ConversationService) chatEdit(ctx context.Context, sess *domain.Session, message string) response_models.ChatResponse {
	res, eval, err := s.applyEdit(ctx, sess, message)
	if err != nil {
		if utils.KindOf(err) == utils.KindEditParseFailure {
			return reply(response_models.StatusClarifying, utils.MessageOf(err))
		}
		return failure(err)
	}
	out := reply(response_models.StatusSuccess, editMessage(res, eval))
	out.Itinerary = itineraryCopy(sess.Itinerary)
	out.Sources = append([]domain.Citation{}, sess.Sources...)
	out.Evaluation = &eval
	return out
}

func (s *ConversationService) chatExplain(ctx context.Context, sess *domain.Session, question string) response_models.ChatResponse {
	if sess.Itinerary == nil {
		return failure(utils.ErrNoItinerary)
	}
	answer, cites, err := s.explainer.Explain(ctx, *sess.Itinerary, question)
	if err != nil {
		return failure(err)
	}
	sess.Sources = mergeSources(sess.Sources, cites...)
	out := reply(response_models.StatusSuccess, answer)
	out.Sources = cites
	return out
}

func requirePlanned(sess *domain.Session) error {
	if sess.Itinerary == nil {
		return utils.ErrNoItinerary
	}
	if sess.State != domain.StatePlanned {
		return fmt.Errorf("%w: the itinerary is waiting for confirmation", utils.ErrInvalidState)
	}
	return nil
}

func (s *ConversationService) Edit(ctx context.Context, sessionID, command string) (response_models.EditResponse, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return response_models.EditResponse{}, fmt.Errorf("%w: command is empty", utils.ErrInvalidInput)
	}
	var out response_models.EditResponse
	err := s.store.WithSession(ctx, sessionID, func(sess *domain.Session) error {
		if err := requirePlanned(sess); err != nil {
			return err
		}
		res, eval, err := s.applyEdit(ctx, sess, command)
		if err != nil {
			return err
		}
		msg := editMessage(res, eval)
		sess.Append(domain.RoleUser, command, s.now())
		sess.Append(domain.RoleAssistant, msg, s.now())
		out = response_models.EditResponse{
			SessionID:       sess.ID,
			Status:          response_models.StatusSuccess,
			Message:         msg,
			EditType:        res.Command.Type,
			ModifiedSection: eval.EditCorrectness.ModifiedSections,
			Itinerary:       itineraryCopy(sess.Itinerary),
			Evaluation:      &eval,
		}
		return nil
	})
	if err != nil {
		return response_models.EditResponse{}, err
	}
	return out, nil
}

func (s *ConversationService) Explain(ctx context.Context, sessionID, question string) (response_models.ExplainResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return response_models.ExplainResponse{}, fmt.Errorf("%w: question is empty", utils.ErrInvalidInput)
	}
	var out response_models.ExplainResponse
	err := s.store.WithSession(ctx, sessionID, func(sess *domain.Session) error {
		if sess.Itinerary == nil {
			return utils.ErrNoItinerary
		}
		answer, cites, err := s.explainer.Explain(ctx, *sess.Itinerary, question)
		if err != nil {
			return err
		}
		sess.Sources = mergeSources(sess.Sources, cites...)
		sess.Append(domain.RoleUser, question, s.now())
		sess.Append(domain.RoleAssistant, answer, s.now())
		out = response_models.ExplainResponse{
			SessionID:   sess.ID,
			Status:      response_models.StatusSuccess,
			Explanation: answer,
			Sources:     append([]domain.Citation{}, cites...),
		}
		return nil
	})
	if err != nil {
		return response_models.ExplainResponse{}, err
	}
	return out, nil
}

func (s *ConversationService) Export(ctx context.Context, sessionID, email string) (response_models.ExportResponse, error) {
	var out response_models.ExportResponse
	err := s.store.WithSession(ctx, sessionID, func(sess *domain.Session) error {
		if sess.Itinerary == nil {
			return utils.ErrNoItinerary
		}
		sent, err := s.exporter.Export(ctx, *sess.Itinerary, sess.Sources, email)
		if err != nil {
			if !errors.Is(err, utils.ErrInvalidInput) {
				s.log.Warn("export failed", zap.String("session_id", sess.ID), zap.Error(err))
			}
			return err
		}
		out = response_models.ExportResponse{
			SessionID:    sess.ID,
			Status:       response_models.StatusSuccess,
			EmailSent:    sent,
			EmailAddress: strings.TrimSpace(email),
		}
		return nil
	})
	if err != nil {
		return response_models.ExportResponse{}, err
	}
	return out, nil
}

func (s *ConversationService) Snapshot(sessionID string) (response_models.SessionResponse, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return response_models.SessionResponse{}, err
	}
	return response_models.SessionResponse{
		SessionID:          sess.ID,
		State:              sess.State,
		Preferences:        sess.Preferences,
		Itinerary:          itineraryCopy(sess.Itinerary),
		History:            append([]domain.Turn{}, sess.History...),
		Sources:            append([]domain.Citation{}, sess.Sources...),
		ClarificationCount: sess.ClarificationCount,
	}, nil
}

func (s *ConversationService) Reset(sessionID string) error {
	return s.store.Delete(sessionID)
}
