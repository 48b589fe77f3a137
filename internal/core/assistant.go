package core

import (
	"math/rand/v2"
	"strings"
)

// The automated assistant is a fixed synthetic principal. Messages sent to
// its reserved channel receive a synthesized reply.
const (
	AssistantChannel  = "erik"
	AssistantUsername = "erik"
	AssistantUserID   = int64(-1)
)

// DefaultChannels is the fixed channel set unread counts are reported for.
var DefaultChannels = []string{"general", "random", "tech", "gaming", AssistantChannel}

var (
	greetingReplies = []string{
		"Hey there! What's up?",
		"Hello! Good to see you.",
		"Hi! How can I help?",
	}
	statusReplies = []string{
		"Doing great, thanks for asking!",
		"All systems running smoothly over here.",
		"Can't complain. How about you?",
	}
	helpReplies = []string{
		"I can chat about whatever is on your mind. Try saying hi!",
		"Ask me anything, or just tell me how your day is going.",
	}
	thanksReplies = []string{
		"You're welcome!",
		"Anytime!",
		"Happy to help.",
	}
	fallbackReplies = []string{
		"Interesting, tell me more.",
		"I see. What else is new?",
		"Hmm, I'll have to think about that one.",
	}
)

// AssistantReply picks a reply for the given input by keyword category,
// uniformly at random within the matched category's reply set.
func AssistantReply(text string) string {
	return pick(AssistantReplyCategory(text))
}

// AssistantReplyCategory returns the reply set the input maps to. Exposed for
// tests asserting a reply came from the right category.
func AssistantReplyCategory(text string) []string {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "how are you", "how's it going", "hows it going", "how are u"):
		return statusReplies
	case containsAny(lower, "hello", "hey", "hi", "yo", "sup"):
		return greetingReplies
	case containsAny(lower, "help", "what can you do", "commands"):
		return helpReplies
	case containsAny(lower, "thank", "thx", "ty"):
		return thanksReplies
	default:
		return fallbackReplies
	}
}

func pick(replies []string) string {
	return replies[rand.IntN(len(replies))]
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
