package types

import "strings"

// DefaultHistoryWindow is the number of prior turns folded into a query.
const DefaultHistoryWindow = 5

// Conversation is caller-owned multi-turn state. The engine never stores it.
type Conversation struct {
	Turns []string `json:"turns,omitempty"`
}

// AccumulatedQuery folds the last window turns and the current query into a
// single query string. Blank turns are skipped.
func (c Conversation) AccumulatedQuery(current string, window int) string {
	if window < 0 {
		window = 0
	}

	turns := make([]string, 0, len(c.Turns))
	for _, t := range c.Turns {
		if t = strings.TrimSpace(t); t != "" {
			turns = append(turns, t)
		}
	}
	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	current = strings.TrimSpace(current)
	if len(turns) == 0 {
		return current
	}

	var sb strings.Builder
	sb.WriteString("Previous requests:\n")
	for _, t := range turns {
		sb.WriteString("- ")
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	if current != "" {
		sb.WriteString("Current request: ")
		sb.WriteString(current)
	}
	return strings.TrimSpace(sb.String())
}
