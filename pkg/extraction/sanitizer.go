package extraction

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/openveritas/veritas/pkg/config"
)

// namedPattern is a pre-compiled, named regex with a human description,
// the same "compile once, apply many" shape the masking service's
// CompiledPattern uses for secret redaction — here repurposed to strip
// prompt-injection-shaped content from page text before it reaches the
// extraction LLM.
type namedPattern struct {
	name        string
	regex       *regexp.Regexp
	description string
}

// builtinInjectionPatterns are compiled once at Sanitizer construction,
// mirroring the masking service's eager compile-at-startup. Invalid
// patterns would be logged and skipped, but these are fixed at compile
// time so none can fail.
var builtinInjectionPatterns = []namedPattern{
	{
		name:        "ignore_instructions",
		regex:       regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above|prior)\s+instructions`),
		description: "direct instruction-override attempt embedded in page text",
	},
	{
		name:        "role_override",
		regex:       regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\s+\w+`),
		description: "role-reassignment attempt embedded in page text",
	},
	{
		name:        "system_prompt_leak",
		regex:       regexp.MustCompile(`(?i)(system\s*prompt|reveal\s+your\s+instructions)`),
		description: "system-prompt extraction attempt embedded in page text",
	},
}

const injectionRedaction = "[REDACTED_POSSIBLE_INSTRUCTION]"

// implausibleURLPattern flags output URLs whose non-whitespace run is 300
// characters or longer, a cheap defensive check against the model echoing
// crafted exfiltration links. The characters in the URL are not checked.
var implausibleURLPattern = regexp.MustCompile(`https?://\S{300,}`)

// Sanitizer prepares page text for the extraction LLM prompt (Unicode
// normalization, prompt-injection pattern redaction, session-tag wrapping)
// and validates the model's raw output for the two contamination risks
// named in the extraction engine's design: delimiter leakage and
// implausible URLs.
type Sanitizer struct {
	patterns         []namedPattern
	sessionTagPrefix string
	enabled          bool
}

// NewSanitizer builds a Sanitizer from the system-wide sanitization
// defaults. Disabled sanitizers skip prompt-injection redaction
// (test/offline mode); Unicode normalization and session-tag wrapping are
// never optional.
func NewSanitizer(cfg *config.SanitizationDefaults) *Sanitizer {
	prefix := "veritas-session"
	enabled := true
	if cfg != nil {
		if cfg.SessionTagPrefix != "" {
			prefix = cfg.SessionTagPrefix
		}
		enabled = cfg.Enabled
	}
	return &Sanitizer{patterns: builtinInjectionPatterns, sessionTagPrefix: prefix, enabled: enabled}
}

// openTag and closeTag return the in-band delimiter pair wrapping a given
// session id, e.g. <veritas-session data-id="...">...</veritas-session>.
func (s *Sanitizer) openTag(sessionID string) string {
	return fmt.Sprintf("<%s data-id=%q>", s.sessionTagPrefix, sessionID)
}

func (s *Sanitizer) closeTag() string {
	return fmt.Sprintf("</%s>", s.sessionTagPrefix)
}

// WrapForPrompt Unicode-normalizes text, redacts recognizable prompt-
// injection patterns, and wraps the result in session-delimiter tags so
// the LLM prompt can mark it unambiguously as data, not instructions.
func (s *Sanitizer) WrapForPrompt(sessionID, text string) string {
	normalized := norm.NFC.String(text)
	if s.enabled {
		normalized = s.redact(normalized)
	}
	var b strings.Builder
	b.WriteString(s.openTag(sessionID))
	b.WriteString(normalized)
	b.WriteString(s.closeTag())
	return b.String()
}

func (s *Sanitizer) redact(text string) string {
	out := text
	for _, p := range s.patterns {
		if p.regex.MatchString(out) {
			slog.Warn("extraction: redacted suspected prompt injection in source text", "pattern", p.name)
			out = p.regex.ReplaceAllString(out, injectionRedaction)
		}
	}
	return out
}

// ValidateOutput rejects LLM output that leaks the session delimiter
// sequence or contains an implausible URL, either of which signals the
// model has parroted something from the untrusted input rather than
// produced a clean extraction.
func (s *Sanitizer) ValidateOutput(output string) error {
	if strings.Contains(output, "<"+s.sessionTagPrefix) || strings.Contains(output, "</"+s.sessionTagPrefix) {
		return fmt.Errorf("extraction: model output leaked the session delimiter sequence")
	}
	if implausibleURLPattern.MatchString(output) {
		return fmt.Errorf("extraction: model output contains an implausible URL")
	}
	return nil
}
