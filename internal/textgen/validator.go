package textgen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// #region veto-type
// VetoType enumerates reasons generated text is rejected.
type VetoType string

const (
	VetoEmpty       VetoType = "empty"
	VetoTooShort    VetoType = "too_short"
	VetoTooLong     VetoType = "too_long"
	VetoDenylisted  VetoType = "denylisted"
	VetoForeignLink VetoType = "foreign_link"
)

// Veto is one failed check.
type Veto struct {
	Type   VetoType
	Reason string
}

// #endregion veto-type

// #region validator-config
// DefaultDenylist holds phrases that mark provider errors or prompt echoes.
var DefaultDenylist = []string{
	"discord server",
	"api error",
	"request failed",
	"unable to provide",
	"language model",
	"quota exceeded",
	"verify you are human",
	"cloudflare",
	"model does not exist",
	"request a model",
	"discord.gg",
	"join the",
	"bad gateway",
	"here's the message",
	"here is the message",
	"i hope this helps",
	"here is a message",
	"write a friendly linkedin connection",
	"i am a data scientist",
	"write a professional connection message",
}

// ValidatorConfig holds the text checks.
type ValidatorConfig struct {
	MinLen   int // runes
	MaxLen   int // runes
	Denylist []string
}

// DefaultValidatorConfig returns the comment limits.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MinLen:   5,
		MaxLen:   800,
		Denylist: DefaultDenylist,
	}
}

// #endregion validator-config

// #region validator
// Validator cleans and vetoes generated text.
type Validator struct {
	config ValidatorConfig
}

// NewValidator creates a validator with the given configuration.
func NewValidator(config ValidatorConfig) *Validator {
	return &Validator{config: config}
}

// Config returns the validator configuration.
func (v *Validator) Config() ValidatorConfig { return v.config }

var quoteStripper = strings.NewReplacer(`"`, "", "'", "", "–", "-")

// Clean trims, removes quotes and drops runes outside the basic multilingual plane.
func Clean(raw string) string {
	s := quoteStripper.Replace(strings.TrimSpace(raw))
	s = strings.Map(func(r rune) rune {
		if r > 0xFFFF || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Check runs every veto over text against maxLen. maxLen <= 0 uses the configured maximum.
func (v *Validator) Check(text string, maxLen int) []Veto {
	if maxLen <= 0 {
		maxLen = v.config.MaxLen
	}
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return []Veto{{Type: VetoEmpty, Reason: "no text"}}
	}

	var vetoes []Veto
	if n < v.config.MinLen {
		vetoes = append(vetoes, Veto{Type: VetoTooShort, Reason: fmt.Sprintf("%d runes below minimum %d", n, v.config.MinLen)})
	}
	if n > maxLen {
		vetoes = append(vetoes, Veto{Type: VetoTooLong, Reason: fmt.Sprintf("%d runes above maximum %d", n, maxLen)})
	}
	lower := strings.ToLower(text)
	for _, phrase := range v.config.Denylist {
		if strings.Contains(lower, phrase) {
			vetoes = append(vetoes, Veto{Type: VetoDenylisted, Reason: fmt.Sprintf("contains %q", phrase)})
			break
		}
	}
	if strings.Contains(lower, "http") && !strings.Contains(lower, "linkedin") {
		vetoes = append(vetoes, Veto{Type: VetoForeignLink, Reason: "links outside linkedin"})
	}
	return vetoes
}

// Accept cleans raw and reports whether it passes every check.
func (v *Validator) Accept(raw string, maxLen int) (string, []Veto) {
	text := Clean(raw)
	return text, v.Check(text, maxLen)
}

// #endregion validator
