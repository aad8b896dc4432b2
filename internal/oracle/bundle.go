package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Bundle is the four-part message content produced for one stage.
type Bundle struct {
	Subject          string `json:"subject"`
	PersonalizedHook string `json:"personalized_hook"`
	ValueProposition string `json:"value_proposition"`
	CTAText          string `json:"cta_text"`
}

// Validate requires every field to be non-empty.
func (b Bundle) Validate() error {
	var missing []string
	if strings.TrimSpace(b.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(b.PersonalizedHook) == "" {
		missing = append(missing, "personalized_hook")
	}
	if strings.TrimSpace(b.ValueProposition) == "" {
		missing = append(missing, "value_proposition")
	}
	if strings.TrimSpace(b.CTAText) == "" {
		missing = append(missing, "cta_text")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GenerationError reports that the model produced no usable content.
// Callers treat it as "no content" and leave existing state untouched.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return "oracle: " + e.Op + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err carries a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// parseBundle decodes a model response into a validated Bundle.
func parseBundle(raw string) (Bundle, error) {
	cleaned := stripCodeFence(raw)
	if cleaned == "" {
		return Bundle{}, errors.New("empty response")
	}
	var b Bundle
	if err := json.Unmarshal([]byte(cleaned), &b); err != nil {
		return Bundle{}, fmt.Errorf("decode bundle: %w", err)
	}
	b.Subject = strings.TrimSpace(b.Subject)
	b.PersonalizedHook = strings.TrimSpace(b.PersonalizedHook)
	b.ValueProposition = strings.TrimSpace(b.ValueProposition)
	b.CTAText = strings.TrimSpace(b.CTAText)
	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
