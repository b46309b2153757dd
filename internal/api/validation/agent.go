package validation

import "strings"

const maxChatMessageLength = 4000

// ValidateChatMessage validates a message sent to the assistant.
func ValidateChatMessage(message string) []FieldError {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return []FieldError{{Field: "message", Message: "message is required"}}
	}
	if len(trimmed) > maxChatMessageLength {
		return []FieldError{{Field: "message", Message: "message must be at most 4000 characters"}}
	}
	return nil
}
