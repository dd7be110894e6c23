// Package chatbot is a sentiment-aware chat flow built on the tendril engine.
//
// The graph classifies the latest user message, then either answers it with a
// sentiment-specific template or, when the user types "summarize", appends a
// transcript of the conversation.
package chatbot

import "time"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Sentiment labels produced by the classifier.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// TimestampLayout is the format of Message.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Message is one chat turn.
type Message struct {
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// ChatState is the value carried through the graph.
type ChatState struct {
	Messages  []Message `json:"messages" yaml:"messages"`
	Sentiment Sentiment `json:"sentiment" yaml:"sentiment"`
}

// NewState starts a conversation with a single user message.
func NewState(content string) ChatState {
	return ChatState{
		Messages:  []Message{{Role: RoleUser, Content: content}},
		Sentiment: Neutral,
	}
}

// WithUserMessage returns a copy of s with a user message appended.
func (s ChatState) WithUserMessage(content string) ChatState {
	return s.with(Message{Role: RoleUser, Content: content})
}

// Last returns the latest message, if any.
func (s ChatState) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// with copies the message slice so the caller's state is never mutated.
func (s ChatState) with(msg Message) ChatState {
	next := s
	next.Messages = make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(next.Messages, s.Messages)
	next.Messages = append(next.Messages, msg)
	return next
}

// Clock supplies message timestamps.
type Clock func() time.Time
