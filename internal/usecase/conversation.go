package usecase

import (
	"context"
	"fmt"
	"strings"

	"chatbank-agent/internal/domain"
	"chatbank-agent/internal/twophase"
)

func (a *Agent) converse(ctx context.Context, t turn) string {
	switch t.intent {
	case domain.IntentGreeting:
		return a.pick(greetingReplies)
	case domain.IntentGreetingQuestion:
		return a.pick(greetingQuestionReplies)
	case domain.IntentGreetingResponse:
		return a.pick(greetingResponseReplies)
	case domain.IntentConversationalResponse:
		return a.pick(conversationalResponseReplies)
	case domain.IntentThanks:
		return a.pick(thanksReplies)
	case domain.IntentCasualResponse:
		return a.pick(casualReplies)
	case domain.IntentDenial:
		return a.pick(denialReplies)
	case domain.IntentRepetitionComplaint:
		return a.pick(repetitionReplies)
	case domain.IntentCorrection, domain.IntentComplaint:
		return a.pick(complaintReplies)
	case domain.IntentHelp:
		return helpReply
	case domain.IntentAmountOnly:
		if t.entities.HasAmount() {
			return fmt.Sprintf("%s for who? 🤔 Tell me where to send it, e.g. 'Send %s to 0123456789 GTBank'.",
				domain.FormatNaira(t.entities.Amount), strings.TrimSpace(t.text))
		}
	}

	if a.llm == nil {
		return a.pick(conversationFallbacks)
	}
	fallback := a.pick(conversationFallbacks)
	return a.followUps.Respond(ctx, t.userID, twophase.Unit{
		Kind:    "conversation",
		Fillers: thinkingFillers,
		Apology: fallback,
		Work: func(ctx context.Context) (string, error) {
			return a.complete(ctx, t.text, "", fallback), nil
		},
	})
}

// phrase asks the LLM to word a reply around fact, or returns fallback.
func (a *Agent) phrase(ctx context.Context, userText, fact, fallback string) string {
	if a.llm == nil {
		return fallback
	}
	return a.complete(ctx, userText, fact, fallback)
}

// complete runs one bounded LLM call. Any failure, including the bound
// expiring, yields fallback.
func (a *Agent) complete(ctx context.Context, userText, fact, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, a.llmTimeout)
	defer cancel()

	system := assistantPrompt
	if fact != "" {
		system += "\n\nFact to convey: " + fact
	}
	answer, err := a.llm.Complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: userText},
	})
	if err != nil {
		a.log.Warn("llm completion failed, using fallback", errorFields(newError(ErrorUpstream, "llm_error", err)))
		return fallback
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fallback
	}
	return answer
}
