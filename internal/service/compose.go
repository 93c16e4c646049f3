package service

import "strings"

const (
	// globalSectionHeader separates document-specific context from
	// shared-knowledge context in a composed prompt.
	globalSectionHeader = "--- GLOBAL KNOWLEDGE BASE ---"

	// RawContentFallbackChars bounds the raw-content prefix used as
	// last-resort context when retrieval finds nothing.
	RawContentFallbackChars = 6000
)

// ComposeContext merges document-scoped and global-knowledge search results
// into one context block. Document content takes precedence and comes first.
// An empty string means the corresponding source produced nothing; both
// empty yields an empty string, the unambiguous "absent" signal.
func ComposeContext(documentContext, globalContext string) string {
	hasDoc := documentContext != ""
	hasGlobal := globalContext != ""

	switch {
	case hasDoc && hasGlobal:
		return documentContext + "\n\n" + globalSectionHeader + "\n" + globalContext
	case hasDoc:
		return documentContext
	case hasGlobal:
		return globalContext
	default:
		return ""
	}
}

// FallbackContext returns a bounded prefix of raw document content, used by
// the query path when neither retrieval scope produced results.
func FallbackContext(content string) string {
	runes := []rune(content)
	if len(runes) <= RawContentFallbackChars {
		return content
	}
	return string(runes[:RawContentFallbackChars]) + "..."
}

// HasGlobalSection reports whether a composed context carries shared
// knowledge-base content. The prompt builder words its instructions
// differently when both sources are present.
func HasGlobalSection(context string) bool {
	return strings.Contains(context, globalSectionHeader) ||
		strings.Contains(context, globalKnowledgeHeading)
}
