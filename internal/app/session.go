package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	greetingText      = "Hello! I'm DOLMA, your intelligent personal assistant. How can I help you today?"
	fallbackReplyText = "Hmm… something went wrong. Please try again."
	networkErrorText  = "Network error, please try again."
)

// ConversationSession owns the ordered, append-only transcript. User turns
// are appended optimistically and never rolled back: user intent stays
// visible even when the exchange later fails. Failures surface as assistant
// turns, so the transcript doubles as the error channel.
type ConversationSession struct {
	mu       sync.Mutex
	client   *BackendClient
	goals    *GoalReconciler
	location *LocationAcquirer
	store    *TranscriptStore
	logger   *Logger

	sessionID string
	messages  []Message
}

func NewConversationSession(client *BackendClient, goals *GoalReconciler, location *LocationAcquirer, store *TranscriptStore, logger *Logger) *ConversationSession {
	if logger == nil {
		logger = NewLogger(io.Discard)
	}
	s := &ConversationSession{
		client:   client,
		goals:    goals,
		location: location,
		store:    store,
		logger:   logger,
	}
	if store != nil {
		id, msgs, err := store.LoadOrCreateCurrent()
		if err != nil {
			logger.Warn("transcript load failed", map[string]interface{}{"error": err.Error()})
		} else {
			s.sessionID = id
			s.messages = msgs
		}
	}
	if len(s.messages) == 0 {
		s.append(Message{Role: RoleAssistant, Text: greetingText})
	}
	return s
}

// Messages returns a copy of the transcript in display order.
func (s *ConversationSession) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send appends the user's turn immediately. Returns false for blank input.
func (s *ConversationSession) Send(text string) (Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, false
	}
	return s.append(Message{Role: RoleUser, Text: text}), true
}

// AppendSystemNotice adds an assistant turn outside a normal exchange, used
// for the one-shot system messages attached to goal mutations.
func (s *ConversationSession) AppendSystemNotice(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.append(Message{Role: RoleAssistant, Text: text})
}

// Exchange transmits the pending user turn with the filtered history and the
// current coordinates, then merges the structured reply into state. It always
// appends exactly one assistant turn and returns it; failure modes become
// apologetic assistant text rather than errors.
func (s *ConversationSession) Exchange(ctx context.Context, userText string) Message {
	s.mu.Lock()
	history := filterHistory(s.messages[:max(len(s.messages)-1, 0)])
	s.mu.Unlock()

	req := ChatRequest{
		Message:      userText,
		Conversation: history,
	}
	if s.location != nil {
		if snap := s.location.Snapshot(); snap.Coords != nil {
			req.Location = snap.Coords
		}
	}

	resp, err := s.client.Chat(ctx, req)
	if err != nil {
		var se *ServerError
		if errors.As(err, &se) {
			return s.append(Message{Role: RoleAssistant, Text: "⚠️ " + se.Error()})
		}
		s.logger.Error("chat request failed", map[string]interface{}{"error": err.Error()})
		return s.append(Message{Role: RoleAssistant, Text: networkErrorText})
	}
	if resp.Error != "" {
		return s.append(Message{Role: RoleAssistant, Text: "⚠️ " + resp.Error})
	}

	// The backend may mutate goals as a side effect of the conversation; an
	// embedded list replaces the local collection wholesale.
	if resp.Goals != nil && s.goals != nil {
		s.goals.ReplaceFromConversation(resp.Goals)
	}

	msg := Message{
		Role:    RoleAssistant,
		Text:    resp.Reply,
		ReplyMD: resp.ReplyMD,
		Items:   resp.Items,
		CTA:     resp.CTA,
		Tips:    resp.Tips,
		Place:   resp.PlaceName,
		Weather: weatherFromPayload(resp.Weather),
	}
	if !hasContent(msg) {
		msg = Message{Role: RoleAssistant, Text: fallbackReplyText}
	}
	return s.append(msg)
}

func (s *ConversationSession) append(msg Message) Message {
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	snapshot := make([]Message, len(s.messages))
	copy(snapshot, s.messages)
	id := s.sessionID
	s.mu.Unlock()

	if s.store != nil && id != "" {
		if err := s.store.Save(id, snapshot); err != nil {
			s.logger.Warn("transcript save failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return msg
}

// filterHistory keeps only well-formed prior turns: a valid role and
// non-empty trimmed text. This bounds the payload and keeps malformed
// entries away from the backend.
func filterHistory(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out = append(out, Message{Role: m.Role, Text: m.Text})
	}
	return out
}

func hasContent(m Message) bool {
	return strings.TrimSpace(m.Text) != "" ||
		strings.TrimSpace(m.ReplyMD) != "" ||
		len(m.Items) > 0 ||
		strings.TrimSpace(m.CTA) != "" ||
		len(m.Tips) > 0
}

// weatherFromPayload gates every metric independently on presence and type;
// a payload with no usable metric yields nil.
func weatherFromPayload(raw map[string]interface{}) *Weather {
	if len(raw) == 0 {
		return nil
	}
	var w Weather
	found := false
	if s, ok := raw["condition"].(string); ok && strings.TrimSpace(s) != "" {
		w.Condition = &s
		found = true
	}
	if f, ok := raw["temp_c"].(float64); ok {
		w.TempC = &f
		found = true
	}
	if f, ok := raw["feels_like_c"].(float64); ok {
		w.FeelsC = &f
		found = true
	}
	if f, ok := raw["humidity"].(float64); ok {
		w.Humidity = &f
		found = true
	}
	if f, ok := raw["wind_kph"].(float64); ok {
		w.WindKph = &f
		found = true
	}
	if !found {
		return nil
	}
	return &w
}
