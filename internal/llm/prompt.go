package llm

import "fmt"

// Template tags selectable in config. The default produces structured
// coaching-session notes; "brief" is a short running summary for the
// incremental path.
const (
	TemplateSessionNotes = "session-notes"
	TemplateBrief        = "brief"
)

// KnownTemplate reports whether tag names a prompt template. The empty tag
// resolves to the default.
func KnownTemplate(tag string) bool {
	switch tag {
	case "", TemplateSessionNotes, TemplateBrief:
		return true
	}
	return false
}

// BuildSystemPrompt returns the system prompt for a template tag.
func BuildSystemPrompt(tag string) string {
	switch tag {
	case TemplateBrief:
		return "You summarize live session transcripts. Produce a short running summary " +
			"(3-5 sentences) of the new transcript excerpt. Keep the language of the input. " +
			"Do not invent content; if the excerpt is empty or unintelligible, say so briefly."
	default:
		return "You are an assistant preparing coaching-session notes from a speech-to-text transcript.\n\n" +
			"Produce:\n" +
			"- Key topics discussed\n" +
			"- Decisions and commitments made by the client\n" +
			"- Follow-up points for the next session\n\n" +
			"Rules:\n" +
			"- Keep the same language as the transcript\n" +
			"- Do not add information that is not in the transcript\n" +
			"- Transcription artifacts (repeated words, fillers) are noise, ignore them\n"
	}
}

// BuildUserPrompt wraps the transcript excerpt.
func BuildUserPrompt(text string) string {
	return fmt.Sprintf("Transcript excerpt:\n%s", text)
}
