package provider

import "strings"

// PromptSlot is the placeholder in a prompt template that is replaced with
// the chunk text being translated.
const PromptSlot = "{{slot}}"

// DefaultPromptTemplate is used when the configuration does not supply one.
const DefaultPromptTemplate = "# Translate the following text into {{target_lang}}. " +
	"Preserve the original meaning, tone, and formatting. " +
	"Output only the translated text.\n\n{{slot}}"

// RenderPrompt substitutes the chunk text and language settings into the
// prompt template. Unknown placeholders are left untouched.
func RenderPrompt(template, text, sourceLang, targetLang string) string {
	if template == "" {
		template = DefaultPromptTemplate
	}
	r := strings.NewReplacer(
		PromptSlot, text,
		"{{source_lang}}", sourceLang,
		"{{target_lang}}", targetLang,
	)
	return r.Replace(template)
}
