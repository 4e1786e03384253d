package domain

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// POI is a candidate place returned by a provider. POIs are never mutated
// after they leave the gateway; activities copy the fields they need.
type POI struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags,omitempty"`
	Location        GeoPoint `json:"location"`
	DurationMinutes int      `json:"duration_minutes"`
	OpeningHours    string   `json:"opening_hours,omitempty"`
	SourceLocator   string   `json:"source_locator"`
	Rating          *float64 `json:"rating,omitempty"`
	Description     string   `json:"description,omitempty"`
	Indoor          *bool    `json:"indoor,omitempty"`
}

// Citation ties a claim in a response to the source it came from.
type Citation struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Locator string `json:"locator"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

const (
	CitationPOI   = "poi"
	CitationGuide = "guide"
)

// Snippet is a citable passage returned by the text-retrieval collaborator.
type Snippet struct {
	Title   string `json:"title"`
	Text    string `json:"snippet"`
	Locator string `json:"locator"`
	URL     string `json:"url,omitempty"`
}

func (s Snippet) Citation(subject string) Citation {
	return Citation{Type: CitationGuide, Subject: subject, Locator: s.Locator, URL: s.URL, Snippet: s.Text}
}

// DefaultDurationMinutes gives a typical visit length for a category when a
// provider does not report one.
func DefaultDurationMinutes(category string) int {
	switch category {
	case "food", "cafe":
		return 75
	case "museum", "culture", "history":
		return 120
	case "nature", "park":
		return 90
	case "shopping", "market":
		return 60
	case "nightlife":
		return 120
	default:
		return 60
	}
}
