package persona

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"bookgraph/internal/models"
	"bookgraph/internal/providers"
)

const (
	replyTemperature = 0.7
	replyMaxTokens   = 300
)

// Responder answers a chat turn in a character's voice using whatever
// retrieved context the caller supplies.
type Responder struct {
	llm providers.LLMProvider
}

func NewResponder(llm providers.LLMProvider) *Responder {
	return &Responder{llm: llm}
}

// Respond generates an in-character reply. An oracle failure returns an
// in-character apology plus the error so the caller can decide whether
// to surface it.
func (r *Responder) Respond(ctx context.Context, profile models.CharacterProfile, contextBlock, message string) (string, error) {
	resp, info, err := r.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "persona_reply",
		Prompt:      BuildReplyPrompt(contextBlock, message),
		Preamble:    BuildPersonaPreamble(profile),
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if err != nil {
		log.Warn("[Persona] reply call failed", "character", profile.Name, "provider", info.Name, "err", err)
		apology := fmt.Sprintf("I'm sorry, I seem to be at a loss for words right now. (%v)", err)
		return apology, err
	}
	return resp.Text, nil
}
