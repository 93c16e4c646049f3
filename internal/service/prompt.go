package service

import (
	"fmt"
	"strings"
)

// apologyResponse is returned when the completion provider fails; a chat
// request never surfaces a provider error to the user.
const apologyResponse = "I'm sorry, something went wrong on my side. Could we try that again?"

var greetingPhrases = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "how are you",
}

var capabilityPhrases = []string{
	"what can you do", "what do you do", "what are you for", "your capabilities", "how can you help",
}

// BuildPrompt assembles the completion prompt for a chat turn. The wording
// shifts with what retrieval produced: document plus shared knowledge,
// document only, shared knowledge only, or nothing at all.
func BuildPrompt(message, context, documentTitle string, hasDocument bool) string {
	hasContext := context != ""

	switch {
	case hasContext && hasDocument && HasGlobalSection(context):
		return fmt.Sprintf(`You are Lexora, a specialized legal assistant.

The user is analyzing the document: **%s**

**SELECTED DOCUMENT AND REFERENCE CONTEXT:**
%s

**USER QUESTION:** %s

Answer professionally, drawing on both the selected document (specific information) and the global knowledge base (general reference). Integrate both sources where relevant.`, documentTitle, context, message)

	case hasContext && hasDocument:
		return fmt.Sprintf(`You are Lexora, a specialized legal assistant.

The user is analyzing the document: **%s**

**RELEVANT DOCUMENT CONTEXT:**
%s

**USER QUESTION:** %s

Answer professionally based EXCLUSIVELY on the provided document. Be detailed and precise, citing specific passages where relevant.`, documentTitle, context, message)

	case hasContext:
		return fmt.Sprintf(`You are Lexora, a specialized legal assistant with access to a global knowledge base.

**KNOWLEDGE BASE CONTEXT:**
%s

**USER QUESTION:** %s

Answer professionally based on the available knowledge base. If the question is too specific and the context does not cover it, suggest uploading a related document for a more precise analysis.`, context, message)

	case isGreeting(message):
		return fmt.Sprintf(`You are Lexora, a specialized legal assistant with access to a global knowledge base.

**The user says:** %s

Respond to the greeting, introducing yourself as Lexora, a legal assistant with knowledge-base access. Be friendly but concise.`, message)

	case isCapabilitiesQuery(message):
		return fmt.Sprintf(`You are Lexora, a specialized legal assistant.

**USER QUESTION:** %s

Explain your capabilities clearly: access to a global knowledge base, analysis of user-uploaded documents, and general legal answers based on expert knowledge. Be specific but concise.`, message)

	default:
		return fmt.Sprintf(`You are Lexora, a specialized legal assistant with access to a global knowledge base.

**USER QUESTION:** %s

Provide general legal help based on your expert knowledge. If the question needs more specific information, suggest uploading relevant documents for a detailed analysis.`, message)
	}
}

func isGreeting(message string) bool {
	clean := strings.ToLower(strings.TrimSpace(message))
	if len(strings.Fields(clean)) > 3 {
		return false
	}
	for _, phrase := range greetingPhrases {
		if strings.Contains(clean, phrase) {
			return true
		}
	}
	return false
}

func isCapabilitiesQuery(message string) bool {
	clean := strings.ToLower(strings.TrimSpace(message))
	for _, phrase := range capabilityPhrases {
		if strings.Contains(clean, phrase) {
			return true
		}
	}
	return false
}
