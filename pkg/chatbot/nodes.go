package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoMessages is returned by nodes that need a latest message to work on.
var ErrNoMessages = errors.New("conversation has no messages")

var (
	positiveKeywords = []string{"great", "happy", "awesome", "good"}
	negativeKeywords = []string{"sad", "bad", "terrible", "angry"}
)

// Classify labels the sentiment of the latest message by keyword and stamps it.
// Positive keywords win over negative ones.
func Classify(clock Clock) func(context.Context, ChatState) (ChatState, error) {
	return func(_ context.Context, s ChatState) (ChatState, error) {
		last, ok := s.Last()
		if !ok {
			return s, ErrNoMessages
		}

		next := s
		next.Messages = append([]Message(nil), s.Messages...)
		next.Messages[len(next.Messages)-1].Timestamp = clock().Format(TimestampLayout)
		next.Sentiment = classify(last.Content)
		return next, nil
	}
}

func classify(text string) Sentiment {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, positiveKeywords):
		return Positive
	case containsAny(lower, negativeKeywords):
		return Negative
	default:
		return Neutral
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Respond appends an assistant reply templated on the sentiment.
func Respond(clock Clock) func(context.Context, ChatState) (ChatState, error) {
	return func(_ context.Context, s ChatState) (ChatState, error) {
		last, ok := s.Last()
		if !ok {
			return s, ErrNoMessages
		}

		var reply string
		switch s.Sentiment {
		case Positive:
			reply = fmt.Sprintf("That’s awesome to hear! 😊 What’s making you feel so %s?", strings.ToLower(last.Content))
		case Negative:
			reply = fmt.Sprintf("I’m sorry you’re feeling that way. 😔 Want to share more about %s?", strings.ToLower(last.Content))
		default:
			reply = fmt.Sprintf("Got it! Tell me more about %s.", last.Content)
		}

		return s.with(Message{
			Role:      RoleAssistant,
			Content:   reply,
			Timestamp: clock().Format(TimestampLayout),
		}), nil
	}
}

// Summarize appends a transcript of every message so far.
func Summarize(clock Clock) func(context.Context, ChatState) (ChatState, error) {
	return func(_ context.Context, s ChatState) (ChatState, error) {
		var b strings.Builder
		b.WriteString("Conversation Summary:\n")
		for _, m := range s.Messages {
			who := "Assistant"
			if m.Role == RoleUser {
				who = "User"
			}
			fmt.Fprintf(&b, "%s (%s): %s\n", who, m.Timestamp, m.Content)
		}

		return s.with(Message{
			Role:      RoleAssistant,
			Content:   b.String(),
			Timestamp: clock().Format(TimestampLayout),
		}), nil
	}
}

// Route sends the literal command "summarize" (any case) to the summary node.
func Route(s ChatState) string {
	if last, ok := s.Last(); ok && strings.ToLower(last.Content) == "summarize" {
		return RouteSummarize
	}
	return RouteRespond
}
