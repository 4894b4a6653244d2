package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestSession(t *testing.T, handler http.Handler) (*ConversationSession, *GoalReconciler) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewBackendClient(server.URL, NewLogger(io.Discard))
	goals := NewGoalReconciler(client, NewLogger(io.Discard))
	session := NewConversationSession(client, goals, nil, nil, NewLogger(io.Discard))
	return session, goals
}

func chatHandler(fn func(req ChatRequest) (int, interface{})) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		status, body := fn(req)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})
}

func TestSessionSeedsGreeting(t *testing.T) {
	session, _ := newTestSession(t, http.NotFoundHandler())
	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].Role != RoleAssistant {
		t.Errorf("greeting role = %q", msgs[0].Role)
	}
	if msgs[0].Text != "Hello! I'm DOLMA, your intelligent personal assistant. How can I help you today?" {
		t.Errorf("greeting text = %q", msgs[0].Text)
	}
}

func TestSendRejectsBlank(t *testing.T) {
	session, _ := newTestSession(t, http.NotFoundHandler())
	if _, ok := session.Send("   \n  "); ok {
		t.Error("blank input must not append a turn")
	}
	if len(session.Messages()) != 1 {
		t.Error("transcript grew on blank input")
	}

	msg, ok := session.Send("  hello  ")
	if !ok {
		t.Fatal("valid input rejected")
	}
	if msg.Text != "hello" {
		t.Errorf("text not trimmed: %q", msg.Text)
	}
	if msg.Role != RoleUser {
		t.Errorf("role = %q", msg.Role)
	}
	if msg.ID == "" {
		t.Error("appended turn missing id")
	}
}

func TestExchangeMergesStructuredReply(t *testing.T) {
	var captured ChatRequest
	session, _ := newTestSession(t, chatHandler(func(req ChatRequest) (int, interface{}) {
		captured = req
		return http.StatusOK, ChatResponse{
			Reply:     "Here is your plan",
			ReplyMD:   "Here is **your** plan",
			Items:     []MessageItem{{Label: "Step 1", Value: "Save $50"}},
			CTA:       "Add as goal?",
			Tips:      []string{"Bring an umbrella"},
			PlaceName: "London",
			Weather:   map[string]interface{}{"condition": "Rainy", "temp_c": 14.0, "humidity": "wet"},
		}
	}))

	session.Send("make a plan")
	reply := session.Exchange(context.Background(), "make a plan")

	if captured.Message != "make a plan" {
		t.Errorf("message = %q", captured.Message)
	}
	// History excludes the turn being answered but keeps everything before it.
	if len(captured.Conversation) != 1 || captured.Conversation[0].Role != RoleAssistant {
		t.Errorf("conversation = %+v", captured.Conversation)
	}
	if captured.Conversation[0].ID != "" {
		t.Error("history must carry role and text only")
	}

	if reply.Role != RoleAssistant || reply.Text != "Here is your plan" {
		t.Errorf("reply = %+v", reply)
	}
	if len(reply.Items) != 1 || reply.CTA != "Add as goal?" || len(reply.Tips) != 1 {
		t.Errorf("structured fields lost: %+v", reply)
	}
	if reply.Place != "London" {
		t.Errorf("place = %q", reply.Place)
	}
	if reply.Weather == nil || reply.Weather.Condition == nil || *reply.Weather.Condition != "Rainy" {
		t.Errorf("weather = %+v", reply.Weather)
	}
	if reply.Weather.TempC == nil || *reply.Weather.TempC != 14 {
		t.Errorf("temp = %v", reply.Weather.TempC)
	}
	// humidity had the wrong type and must be dropped, not zeroed.
	if reply.Weather.Humidity != nil {
		t.Errorf("mistyped humidity kept: %v", *reply.Weather.Humidity)
	}

	msgs := session.Messages()
	if len(msgs) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(msgs))
	}
}

func TestExchangeItemsOnlyReplyIsAppended(t *testing.T) {
	session, _ := newTestSession(t, chatHandler(func(ChatRequest) (int, interface{}) {
		return http.StatusOK, ChatResponse{
			Reply: "",
			Items: []MessageItem{{Label: "Budget", Value: "$200"}},
		}
	}))

	session.Send("budget?")
	reply := session.Exchange(context.Background(), "budget?")
	if reply.Text != "" {
		t.Errorf("text = %q, want empty", reply.Text)
	}
	if len(reply.Items) != 1 || reply.Items[0].Value != "$200" {
		t.Errorf("items = %+v", reply.Items)
	}
}

func TestExchangeEmptyReplyFallsBack(t *testing.T) {
	session, _ := newTestSession(t, chatHandler(func(ChatRequest) (int, interface{}) {
		return http.StatusOK, ChatResponse{}
	}))

	session.Send("hi")
	reply := session.Exchange(context.Background(), "hi")
	if reply.Text != "Hmm… something went wrong. Please try again." {
		t.Errorf("fallback = %q", reply.Text)
	}
}

func TestExchangeServerErrorBecomesAssistantTurn(t *testing.T) {
	session, _ := newTestSession(t, chatHandler(func(ChatRequest) (int, interface{}) {
		return http.StatusBadGateway, map[string]string{"error": "The assistant is overloaded"}
	}))

	session.Send("hi")
	reply := session.Exchange(context.Background(), "hi")
	if reply.Role != RoleAssistant {
		t.Errorf("role = %q", reply.Role)
	}
	if reply.Text != "⚠️ The assistant is overloaded" {
		t.Errorf("error turn = %q", reply.Text)
	}
}

func TestExchangeErrorFieldBecomesAssistantTurn(t *testing.T) {
	session, _ := newTestSession(t, chatHandler(func(ChatRequest) (int, interface{}) {
		return http.StatusOK, ChatResponse{Error: "I could not process that"}
	}))

	session.Send("hi")
	reply := session.Exchange(context.Background(), "hi")
	if reply.Text != "⚠️ I could not process that" {
		t.Errorf("error turn = %q", reply.Text)
	}
}

func TestExchangeTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := NewBackendClient(server.URL, NewLogger(io.Discard))
	server.Close()
	session := NewConversationSession(client, nil, nil, nil, NewLogger(io.Discard))

	session.Send("hi")
	reply := session.Exchange(context.Background(), "hi")
	if reply.Text != "Network error, please try again." {
		t.Errorf("transport error turn = %q", reply.Text)
	}

	// The user's turn stays in the transcript even though the exchange failed.
	msgs := session.Messages()
	if len(msgs) != 3 || msgs[1].Role != RoleUser || msgs[1].Text != "hi" {
		t.Errorf("transcript = %+v", msgs)
	}
}

func TestExchangeReplacesGoalsFromReply(t *testing.T) {
	session, goals := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/goals" {
			json.NewEncoder(w).Encode(map[string]interface{}{"goals": []Goal{
				{ID: "old", Title: "Old", Status: GoalStatusActive, Progress: 5},
			}})
			return
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Reply: "Created a goal for you",
			Goals: []Goal{{ID: "new", Title: "Vacation Fund", Status: GoalStatusActive, Progress: 0}},
		})
	}))

	if err := goals.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	session.Send("save for a vacation")
	session.Exchange(context.Background(), "save for a vacation")

	got := goals.Goals()
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("goals after exchange = %+v", got)
	}
	if goals.Draft("old") != "" {
		t.Error("vanished goal's draft survived")
	}
}

func TestAppendSystemNotice(t *testing.T) {
	session, _ := newTestSession(t, http.NotFoundHandler())
	session.AppendSystemNotice("  ")
	if len(session.Messages()) != 1 {
		t.Error("blank notice appended")
	}
	session.AppendSystemNotice("Goal completed, congratulations!")
	msgs := session.Messages()
	if len(msgs) != 2 || msgs[1].Role != RoleAssistant {
		t.Errorf("notice = %+v", msgs)
	}
}

func TestFilterHistory(t *testing.T) {
	in := []Message{
		{Role: RoleUser, Text: "hello", ID: "a"},
		{Role: "system", Text: "nope"},
		{Role: RoleAssistant, Text: "   "},
		{Role: RoleAssistant, Text: "hi", ReplyMD: "**hi**"},
	}
	out := filterHistory(in)
	if len(out) != 2 {
		t.Fatalf("filtered = %+v", out)
	}
	if out[0].ID != "" || out[1].ReplyMD != "" {
		t.Error("filtered turns must carry role and text only")
	}
}

func TestWeatherFromPayload(t *testing.T) {
	if w := weatherFromPayload(nil); w != nil {
		t.Errorf("nil payload = %+v", w)
	}
	if w := weatherFromPayload(map[string]interface{}{"condition": "  ", "temp_c": "warm"}); w != nil {
		t.Errorf("unusable payload = %+v", w)
	}
	w := weatherFromPayload(map[string]interface{}{"wind_kph": 12.5})
	if w == nil || w.WindKph == nil || *w.WindKph != 12.5 {
		t.Errorf("wind-only payload = %+v", w)
	}
}
