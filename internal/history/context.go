package history

import "strings"

// Turn is one message in a conversation: a role tag plus text content.
type Turn struct {
	Role    string
	Content string
}

// BuildContext renders the most recent turns as a plain-text context block
// for a prompt assembler. Each turn is sanitized, labeled by role, and turns
// that sanitize to nothing are skipped. max limits how many trailing turns
// are kept; 0 keeps all of them.
func BuildContext(turns []Turn, max int) string {
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}

	var b strings.Builder
	for _, turn := range turns {
		text := Sanitize(turn.Role, turn.Content)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(roleLabel(turn.Role))
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return "User"
	}
}
