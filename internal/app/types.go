package app

import "time"

// Roles accepted in the conversation transcript. Anything else is treated as
// malformed and dropped before transmission.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Goal statuses understood by the backend.
const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusArchived  = "archived"
)

// Message is one turn in the conversation. Messages are append-only: once a
// turn is in the transcript it is never mutated or removed, even when the
// request that produced it fails.
//
// Assistant turns are a bag of independently-optional content fragments.
// Rendering checks each fragment on its own; there is no closed set of
// message subtypes.
type Message struct {
	ID        string        `json:"id,omitempty"`
	Role      string        `json:"role"`
	Text      string        `json:"text"`
	ReplyMD   string        `json:"reply_md,omitempty"`
	Items     []MessageItem `json:"items,omitempty"`
	CTA       string        `json:"cta,omitempty"`
	Tips      []string      `json:"tips,omitempty"`
	Place     string        `json:"place,omitempty"`
	Weather   *Weather      `json:"weather,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`
}

// MessageItem is a key/value line inside an assistant reply.
type MessageItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Weather carries the optional metrics attached to locality tips. Every field
// is independently optional; an all-nil Weather renders nothing.
type Weather struct {
	Condition *string  `json:"condition,omitempty"`
	TempC     *float64 `json:"temp_c,omitempty"`
	FeelsC    *float64 `json:"feels_like_c,omitempty"`
	Humidity  *float64 `json:"humidity,omitempty"`
	WindKph   *float64 `json:"wind_kph,omitempty"`
}

// Goal mirrors the backend's goal record. The server owns every field; the
// local copy is a cache that is always overwritten wholesale by the server's
// response for a mutation, never merged field by field.
type Goal struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Status        string   `json:"status"`
	Progress      float64  `json:"progress"`
	ProgressValue *float64 `json:"progress_value,omitempty"`
	TargetValue   *float64 `json:"target_value,omitempty"`
	TargetUnit    string   `json:"target_unit,omitempty"`
	TargetPeriod  string   `json:"target_period,omitempty"`
	TargetDate    string   `json:"target_date,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

// Coordinates is an approximate device position, from either the on-device
// sensor or the network-address fallback. Last writer wins; never both.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
