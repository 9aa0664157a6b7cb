package identity

import (
	"fmt"
	"strings"
)

// BuildDedupePrompt asks which names in a batch refer to the same
// character. The oracle answers as a canonical-to-variants map; an
// empty object means no duplicates in the batch.
func BuildDedupePrompt(names []string) string {
	return fmt.Sprintf(`These names were extracted from a novel. Some may refer to the same character (nicknames, titles, aliases, misspellings).

Names:
%s

Return ONLY a JSON object mapping each canonical character name to the list of given names that refer to it. Only include groups with two or more names. If there are no duplicates, return {}.

Example:
{"Tom Riddle": ["Tom Riddle", "Voldemort", "You-Know-Who"]}`, strings.Join(names, "\n"))
}
