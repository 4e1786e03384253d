package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

type ExportServiceInterface interface {
	// Export hands the itinerary to the delivery workflow. The returned flag
	// is nil when the workflow accepted the request without saying whether
	// the email went out.
	Export(ctx context.Context, it domain.Itinerary, sources []domain.Citation, email string) (*bool, error)
	Markdown(it domain.Itinerary, sources []domain.Citation) string
}

type ExportService struct {
	webhookURL string
	http       *http.Client
	appName    string
	htmlTpl    *template.Template
	log        *zap.Logger
	now        func() time.Time
}

func NewExportService(webhookURL string, timeout time.Duration, log *zap.Logger) ExportServiceInterface {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExportService{
		webhookURL: strings.TrimSpace(webhookURL),
		http:       &http.Client{Timeout: timeout},
		appName:    "Wayfarer",
		htmlTpl:    template.Must(template.New("itineraryHTML").Parse(itineraryHTMLTemplate)),
		log:        log,
		now:        time.Now,
	}
}

type exportPayload struct {
	Email     string            `json:"email"`
	Subject   string            `json:"subject"`
	Itinerary domain.Itinerary  `json:"itinerary"`
	Sources   []domain.Citation `json:"sources"`
	Markdown  string            `json:"markdown"`
	HTML      string            `json:"html"`
	ICS       string            `json:"ics,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type exportAck struct {
	EmailSent *bool `json:"email_sent"`
	Success   *bool `json:"success"`
}

func workflowUnavailable(err error) error {
	return utils.NewAppError(utils.KindExternalWorkflowUnavailable,
		"The export service is unavailable right now. Your itinerary is still saved in this session.",
		fmt.Errorf("%w: %v", utils.ErrWorkflowUnavailable, err))
}

func (s *ExportService) Export(ctx context.Context, it domain.Itinerary, sources []domain.Citation, email string) (*bool, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid email address", utils.ErrInvalidInput, email)
	}
	if s.webhookURL == "" {
		return nil, workflowUnavailable(fmt.Errorf("no export webhook configured"))
	}

	md := s.Markdown(it, sources)
	html, err := s.renderHTML(it, md)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	payload := exportPayload{
		Email:     addr.Address,
		Subject:   fmt.Sprintf("Your %d-day trip to %s", it.Days, it.Destination),
		Itinerary: it,
		Sources:   sources,
		Markdown:  md,
		HTML:      html,
		ICS:       s.calendar(it),
		CreatedAt: s.now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, workflowUnavailable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, workflowUnavailable(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode/100 != 2 {
		return nil, workflowUnavailable(fmt.Errorf("webhook returned %s", resp.Status))
	}

	// An empty or non-JSON acknowledgement means "accepted, outcome unknown".
	var ack exportAck
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &ack) != nil {
		s.log.Info("export accepted without a delivery status", zap.String("email", addr.Address))
		return nil, nil
	}
	if ack.EmailSent != nil {
		return ack.EmailSent, nil
	}
	return ack.Success, nil
}

func (s *ExportService) Markdown(it domain.Itinerary, sources []domain.Citation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %d days in %s\n\n", it.Days, it.Destination)
	fmt.Fprintf(&sb, "Pace: %s · Getting around: %s", it.Pace, it.TravelMode)
	if len(it.Interests) > 0 {
		fmt.Fprintf(&sb, " · Interests: %s", strings.Join(it.Interests, ", "))
	}
	fmt.Fprintf(&sb, "\n\nTotal travel: %d min\n", it.TotalTravelMinutes)

	for _, d := range it.DayPlans {
		fmt.Fprintf(&sb, "\n## Day %d", d.Number)
		if d.Date != "" {
			fmt.Fprintf(&sb, " (%s)", d.Date)
		}
		sb.WriteString("\n")
		for _, b := range d.Blocks {
			if len(b.Activities) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "\n### %s\n\n", utils.TitleCase(string(b.Name)))
			for _, a := range b.Activities {
				fmt.Fprintf(&sb, "- **%s** %s, %d min", a.Time, a.Name, a.DurationMinutes)
				if a.TravelMinutes > 0 {
					fmt.Fprintf(&sb, " (%d min travel)", a.TravelMinutes)
				}
				sb.WriteString("\n")
			}
		}
	}

	if len(it.Warnings) > 0 {
		sb.WriteString("\n## Notes\n\n")
		for _, w := range it.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}
	if len(sources) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for _, c := range sources {
			if c.URL != "" {
				fmt.Fprintf(&sb, "- %s: [%s](%s)\n", c.Subject, c.Locator, c.URL)
			} else {
				fmt.Fprintf(&sb, "- %s: %s\n", c.Subject, c.Locator)
			}
		}
	}
	return sb.String()
}

type itineraryPage struct {
	Title   string
	AppName string
	Body    template.HTML
	Year    int
}

const itineraryHTMLTemplate = `<!doctype html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { margin: 0; padding: 0; background: #f8fafc; color: #0f172a;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; }
    .container { max-width: 640px; margin: 0 auto; padding: 32px 24px; background: #ffffff; }
    .brand { font-weight: 700; color: #2563eb; text-transform: uppercase; letter-spacing: 0.5px; }
    h1 { font-size: 26px; } h2 { font-size: 20px; margin-top: 28px; } h3 { font-size: 16px; color: #475569; }
    li { line-height: 1.7; }
    .footer { margin-top: 32px; color: #64748b; font-size: 13px; text-align: center; }
  </style>
</head>
<body>
  <div class="container">
    <div class="brand">{{.AppName}}</div>
    {{.Body}}
    <div class="footer">© {{.Year}} {{.AppName}}</div>
  </div>
</body>
</html>`

func (s *ExportService) renderHTML(it domain.Itinerary, md string) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(md), &body); err != nil {
		return "", err
	}
	var out bytes.Buffer
	err := s.htmlTpl.Execute(&out, itineraryPage{
		Title:   fmt.Sprintf("%d days in %s", it.Days, it.Destination),
		AppName: s.appName,
		Body:    template.HTML(body.String()),
		Year:    s.now().Year(),
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// calendar renders one event per activity. Trips without a start date have
// no calendar.
func (s *ExportService) calendar(it domain.Itinerary) string {
	if it.StartDate == "" {
		return ""
	}
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//wayfarer//itinerary//EN")
	stamp := s.now().UTC()

	for _, d := range it.DayPlans {
		date, err := utils.ParseDate(d.Date)
		if err != nil {
			continue
		}
		for _, b := range d.Blocks {
			for _, a := range b.Activities {
				start, err := utils.ParseClock(a.Time)
				if err != nil {
					continue
				}
				begin := date.Add(time.Duration(start) * time.Minute)
				event := cal.AddEvent(uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%d/%s", a.SourceLocator, d.Number, a.Time))).String())
				event.SetDtStampTime(stamp)
				event.SetStartAt(begin)
				event.SetEndAt(begin.Add(time.Duration(a.DurationMinutes) * time.Minute))
				event.SetSummary(a.Name)
				event.SetLocation(fmt.Sprintf("%.5f,%.5f", a.Location.Lat, a.Location.Lng))
				if a.Description != "" {
					event.SetDescription(a.Description)
				}
			}
		}
	}
	return cal.Serialize()
}
