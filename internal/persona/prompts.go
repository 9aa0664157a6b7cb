package persona

import (
	"fmt"
	"strings"

	"bookgraph/internal/models"
)

// BuildProfilePrompt asks the oracle for a persona sheet built from the
// passages where the character appears.
func BuildProfilePrompt(name, bookTitle string, excerpts []string) string {
	return fmt.Sprintf(`Based on these excerpts from "%s", build a character profile for %s.

Excerpts:
%s

Return ONLY a JSON object with exactly these fields:
{
  "personality": "core personality traits",
  "speech_pattern": "how the character talks",
  "key_phrases": ["distinctive phrases the character uses"],
  "relationships": "key relationships with other characters",
  "role_in_story": "the character's role in the narrative",
  "character_arc": "how the character changes over the story",
  "dialogue_style": "style of the character's dialogue",
  "emotional_range": "emotional range shown",
  "background": "relevant background"
}

Do not add commentary outside the JSON.`, bookTitle, name, strings.Join(excerpts, "\n---\n"))
}

// BuildPersonaPreamble renders the system preamble for an in-character
// reply. Empty profile fields fall back to generic persona traits.
func BuildPersonaPreamble(p models.CharacterProfile) string {
	personality := orDefault(p.Personality, "mysterious")
	speech := orDefault(p.SpeechPattern, "formal")
	dialogue := orDefault(p.DialogueStyle, "conversational")
	emotional := orDefault(p.EmotionalRange, "varied")

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Stay fully in character.\n\n", p.Name)
	fmt.Fprintf(&b, "Personality: %s\n", personality)
	fmt.Fprintf(&b, "Speech pattern: %s\n", speech)
	fmt.Fprintf(&b, "Dialogue style: %s\n", dialogue)
	fmt.Fprintf(&b, "Emotional range: %s\n", emotional)
	if len(p.KeyPhrases) > 0 {
		fmt.Fprintf(&b, "Phrases you tend to use: %s\n", strings.Join(p.KeyPhrases, "; "))
	}
	if p.Relationships != "" {
		fmt.Fprintf(&b, "Relationships: %s\n", p.Relationships)
	}
	if p.Background != "" {
		fmt.Fprintf(&b, "Background: %s\n", p.Background)
	}
	b.WriteString("\nAnswer as this character would, using the story context when it helps. Never break character or mention being an AI.")
	return b.String()
}

// BuildReplyPrompt combines retrieved story context with the user's message.
func BuildReplyPrompt(contextBlock, message string) string {
	if strings.TrimSpace(contextBlock) == "" {
		contextBlock = "No specific context available."
	}
	return fmt.Sprintf("Story context:\n%s\n\nThe user says: %s\n\nReply in character.", contextBlock, message)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
