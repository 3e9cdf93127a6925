package nlu

import (
	"regexp"
	"strings"
)

// Answer is the reading of a reply to a yes/no question.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

var (
	// Checked before the positive list so "not right" is not read as "right".
	negatedYesRe = regexp.MustCompile(`\bnot\s+(?:right|correct|okay|ok)\b`)
	positiveRe   = regexp.MustCompile(`\b(?:yes|yeah|yh|yep|yup|y|ok|okay|confirm|proceed|continue|go\s+ahead|do\s+it|send\s+it|approve|accept|agree|sure|correct|right)\b`)
	negativeRe   = regexp.MustCompile(`\b(?:no|nope|nah|n|cancel|stop|abort|quit|don'?t|don’t|wrong|incorrect)\b`)

	cancelRe = regexp.MustCompile(`\b(?:cancel|stop|abort|clear|restart|start over|never mind|nevermind)\b`)

	clearCommands = map[string]bool{
		"cancel": true, "stop": true, "quit": true, "exit": true, "abort": true,
		"clear": true, "reset": true, "start over": true, "new": true, "fresh": true,
		"begin again": true, "restart": true,
	}
	freshStartPrefixes = []string{
		"i want to", "let me", "can i", "how do i", "help me",
		"what is", "what are", "tell me", "show me", "explain",
	}
)

// ParseConfirmation reads a reply to "should I proceed?".
func ParseConfirmation(text string) Answer {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case negatedYesRe.MatchString(lower):
		return AnswerNo
	case positiveRe.MatchString(lower):
		return AnswerYes
	case negativeRe.MatchString(lower):
		return AnswerNo
	}
	return AnswerUnknown
}

// IsCancel reports whether the message asks to drop the flow in progress.
func IsCancel(text string) bool {
	return cancelRe.MatchString(strings.ToLower(text))
}

// Topic is the area a multi-step flow belongs to, used to decide whether a
// message changes the subject.
type Topic int

const (
	TopicTransfer Topic = iota
	TopicBeneficiary
	TopicOther
)

// WantsFreshStart reports whether a message inside an active flow starts a
// new request instead of answering the pending question.
func WantsFreshStart(text string, topic Topic) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if clearCommands[lower] {
		return true
	}
	for _, p := range freshStartPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	switch topic {
	case TopicTransfer:
		return strings.Contains(lower, "balance")
	case TopicBeneficiary:
		return strings.Contains(lower, "history")
	}
	return false
}
