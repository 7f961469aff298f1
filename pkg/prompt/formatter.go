package prompt

import "strings"

// Role identifies the author of a chat message.
type Role string

// Chat message roles. Unknown roles are treated like RoleUser.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode selects how messages are rendered into the flat prompt.
type Mode string

const (
	// ModeSimple concatenates message content separated by blank lines.
	// Role information is discarded; only ordering is preserved.
	ModeSimple Mode = "simple"

	// ModeLabeled prefixes each message with a role label so the model
	// sees explicit turn framing.
	ModeLabeled Mode = "labeled"
)

// AssistantCue is the trailing marker appended to every prompt. It tells
// the backend that the assistant turn begins here and generation should
// produce its continuation.
const AssistantCue = "Assistant:"

// Message is a single entry in the conversation history.
type Message struct {
	Role    Role
	Content string
}

// Formatter builds backend prompts from chat message sequences.
// It is immutable after construction and safe for concurrent use.
type Formatter struct {
	mode           Mode
	faultSignature string
}

// NewFormatter creates a formatter for the given mode. Messages containing
// faultSignature are dropped as poisoned history; an empty signature
// disables that filter.
func NewFormatter(mode Mode, faultSignature string) *Formatter {
	if mode != ModeLabeled {
		mode = ModeSimple
	}
	return &Formatter{
		mode:           mode,
		faultSignature: faultSignature,
	}
}

// Mode returns the configured formatting mode.
func (f *Formatter) Mode() Mode {
	return f.mode
}

// Format renders the message sequence into one prompt string.
//
// It is a pure function of its input: the same sequence always yields the
// same prompt, and permuting the sequence changes it. Messages that are
// empty after whitespace trimming, or that contain the backend fault
// signature, are skipped. The result always ends with AssistantCue, so a
// history with no surviving messages formats to exactly AssistantCue.
func (f *Formatter) Format(messages []Message) string {
	var sb strings.Builder

	for _, msg := range messages {
		if !f.keep(msg) {
			continue
		}

		switch f.mode {
		case ModeLabeled:
			sb.WriteString(roleLabel(msg.Role))
			sb.WriteString(" ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		default:
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString(AssistantCue)
	return sb.String()
}

// keep reports whether a message survives filtering.
func (f *Formatter) keep(msg Message) bool {
	if strings.TrimSpace(msg.Content) == "" {
		return false
	}
	if f.faultSignature != "" && strings.Contains(msg.Content, f.faultSignature) {
		// Fault text echoed back into a prompt re-triggers the backend
		// fault, so poisoned history is never forwarded.
		return false
	}
	return true
}

// roleLabel returns the label used in ModeLabeled for a role.
func roleLabel(role Role) string {
	switch role {
	case RoleSystem:
		return "Instructions:"
	case RoleAssistant:
		return "Assistant:"
	default:
		return "User:"
	}
}
