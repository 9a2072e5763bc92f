package protocol

// HealthSnapshot bundles optional device health readings for session setup
type HealthSnapshot struct {
	StepsToday     *int     `json:"steps_today,omitempty"`
	SleepHoursLast *float64 `json:"sleep_hours_last_night,omitempty"`
}

// Profile is the user context sent when starting a session. Absent optional
// fields are omitted entirely; the backend parser rejects explicit nulls.
type Profile struct {
	Name                string          `json:"name"`
	Mood                *string         `json:"mood,omitempty"`
	Health              *HealthSnapshot `json:"health,omitempty"`
	ConversationSummary *string         `json:"conversation_summary,omitempty"`
	Goals               *string         `json:"goals,omitempty"`
}

// StartSessionResponse is the body of POST /start-session
type StartSessionResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	UserName  string `json:"user_name"`
	SessionID string `json:"session_id,omitempty"`
}

// OrchestrationStatus is the body of GET /session-status/{id}
type OrchestrationStatus struct {
	SessionID       string `json:"session_id"`
	Status          string `json:"status"`
	Ready           bool   `json:"ready"`
	InitialAnalysis string `json:"initial_analysis,omitempty"`
}

// ChatMessage is one turn in a text chat exchange
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatRequest is the body of POST /wellness-chat
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is the body returned by POST /wellness-chat. Older backend
// revisions return a single reply string instead of a message list.
type ChatResponse struct {
	Messages []ChatMessage `json:"messages,omitempty"`
	Reply    string        `json:"reply,omitempty"`
}

// Replies flattens the response into displayable text regardless of shape
func (r *ChatResponse) Replies() []string {
	if len(r.Messages) > 0 {
		out := make([]string, 0, len(r.Messages))
		for _, m := range r.Messages {
			out = append(out, m.Text)
		}
		return out
	}
	if r.Reply != "" {
		return []string{r.Reply}
	}
	return nil
}

// EventsQuery is the body of POST /events-near-me and POST /social-events
type EventsQuery struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKM float64 `json:"radius_km,omitempty"`
	Keyword  string  `json:"keyword,omitempty"`
	Size     int     `json:"size,omitempty"`
}

// EventSummary is one normalized event from the lookup endpoints
type EventSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	URL           string `json:"url,omitempty"`
	StartDateTime string `json:"start_date_time,omitempty"`
	LocalDate     string `json:"local_date,omitempty"`
	LocalTime     string `json:"local_time,omitempty"`
	VenueName     string `json:"venue_name,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	Segment       string `json:"segment,omitempty"`
	Genre         string `json:"genre,omitempty"`
}

// EventsResponse is the body returned by the event lookup endpoints
type EventsResponse struct {
	Events []EventSummary `json:"events"`
}
