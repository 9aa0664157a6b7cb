package extract

import "fmt"

// BuildAnalysisPrompt asks the model for a strict JSON read of one
// segment. The relationships field uses "CharacterA-relation-CharacterB"
// strings so typed edges can be split out later.
func BuildAnalysisPrompt(bookTitle, text string) string {
	return fmt.Sprintf(`Analyze this excerpt from "%s" and extract structured information.

Text:
%s

Return ONLY a JSON object with exactly these fields:
{
  "characters_mentioned": ["list of character names appearing in the text"],
  "locations": ["list of places mentioned"],
  "key_events": ["list of important events in this passage"],
  "mood_tone": "overall mood of the passage",
  "relationships": ["CharacterA-relationship-CharacterB strings, e.g. Harry-friends_with-Ron"],
  "themes": ["themes present in the passage"],
  "dialogue_speakers": ["characters who speak dialogue here"],
  "narrative_style": "narrative perspective of the passage"
}

Use empty lists when nothing applies. Do not add commentary outside the JSON.`, bookTitle, text)
}
