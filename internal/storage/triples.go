package storage

import (
	"strings"

	"bookgraph/internal/models"
)

// ParseTriple splits an oracle relationship string of the form
// "CharacterA-relation-CharacterB" into a typed edge. Only the first
// three hyphen-separated parts are read; strings with fewer than three
// parts carry no edge.
func ParseTriple(s string) (models.CharacterRelation, bool) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return models.CharacterRelation{}, false
	}
	source := strings.TrimSpace(parts[0])
	relType := strings.TrimSpace(parts[1])
	target := strings.TrimSpace(parts[2])
	if source == "" || relType == "" || target == "" {
		return models.CharacterRelation{}, false
	}
	if source == target {
		return models.CharacterRelation{}, false
	}
	return models.CharacterRelation{
		SourceName: source,
		TargetName: target,
		RelType:    relType,
	}, true
}
