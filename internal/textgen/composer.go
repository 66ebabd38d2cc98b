package textgen

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// InviteMaxLen is the platform cap on invitation notes.
const InviteMaxLen = 300

// #region persona
// Persona describes the account owner for prompts and fallbacks.
type Persona struct {
	Role      string // e.g. "Senior Data Scientist"
	Expertise string
}

// DefaultPersona returns the stock persona.
func DefaultPersona() Persona {
	return Persona{
		Role:      "Senior Data Scientist",
		Expertise: "I am a Senior Data Scientist experienced in Python, Databricks, ML and Big Data Strategy.",
	}
}

// #endregion persona

// #region fallbacks
var fallbackComments = []string{
	"Great insight, thanks for sharing!",
	"Really interesting point!",
	"Thanks for the valuable information!",
	"Well said, I agree.",
}

// FallbackComment picks a stock comment deterministically from the post text.
func FallbackComment(postText string) string {
	h := fnv.New32a()
	h.Write([]byte(postText))
	return fallbackComments[h.Sum32()%uint32(len(fallbackComments))]
}

// FallbackInvite builds the stock invitation for inv.
func (c *Composer) FallbackInvite(inv Invitee) string {
	first := FirstName(inv.Name)
	var msg string
	switch {
	case inv.Viewer:
		msg = fmt.Sprintf("Hi %s, thanks for stopping by my profile. As a %s, I'd love to connect with fellow professionals.",
			first, c.persona.Role)
	case inv.Group != "":
		msg = fmt.Sprintf("Hi %s, saw we are in the same group: '%s'. As a %s, I'd love to connect with fellow professionals.",
			first, cleanGroup(inv.Group), c.persona.Role)
	default:
		msg = fmt.Sprintf("Hi %s, I came across your profile and, as a %s, I'd love to connect with fellow professionals.",
			first, c.persona.Role)
	}
	return truncate(msg, InviteMaxLen)
}

// #endregion fallbacks

// #region composer
// Invitee is the recipient of a connection note.
type Invitee struct {
	Name     string
	Headline string
	Group    string
	Viewer   bool // recently viewed our profile
}

// Composer writes comments and invitation notes, falling back to local text
// whenever the generator is absent, fails, or returns vetoed text.
type Composer struct {
	gen       Generator
	validator *Validator
	persona   Persona
}

// NewComposer creates a composer. gen may be nil for fallback-only operation.
func NewComposer(gen Generator, v *Validator, persona Persona) *Composer {
	if v == nil {
		v = NewValidator(DefaultValidatorConfig())
	}
	return &Composer{gen: gen, validator: v, persona: persona}
}

// Comment returns a comment for a post.
func (c *Composer) Comment(ctx context.Context, postText string) string {
	clean := truncate(strings.TrimSpace(strings.ReplaceAll(postText, "\n", " ")), 800)
	prompt := fmt.Sprintf("Act as a %s with the following expertise: '%s'.\n"+
		"Task: Write a highly professional LinkedIn comment (35-55 words) on: '%s'.\n"+
		"Tone: Insightful, professional. Do NOT repeat the persona's description in the final comment. No hashtags.",
		c.persona.Role, c.persona.Expertise, clean)

	if text, ok := c.generate(ctx, prompt, 0); ok {
		return text
	}
	return FallbackComment(postText)
}

var (
	placeholderRe = regexp.MustCompile(`\[.*?\]|\{.*?\}|<.*?>|\(.*?\)`)
	greetingRe    = regexp.MustCompile(`^(Hi|Hello|Dear)\s+.*?,`)
)

// Invite returns a connection note of at most InviteMaxLen runes.
func (c *Composer) Invite(ctx context.Context, inv Invitee) string {
	first := FirstName(inv.Name)
	msg, ok := c.generate(ctx, invitePrompt(inv, first, c.persona), InviteMaxLen)
	if !ok || strings.Contains(strings.ToLower(msg), "keyword") || utf8.RuneCountInString(msg) < 10 {
		return c.FallbackInvite(inv)
	}

	msg = placeholderRe.ReplaceAllString(msg, first)
	msg = strings.TrimSpace(greetingRe.ReplaceAllString(msg, ""))
	return truncate(fmt.Sprintf("Hi %s, %s", first, msg), InviteMaxLen)
}

func (c *Composer) generate(ctx context.Context, prompt string, maxLen int) (string, bool) {
	if c.gen == nil {
		return "", false
	}
	raw, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		log.Debug().Err(err).Msg("generator failed, using fallback")
		return "", false
	}
	text, vetoes := c.validator.Accept(raw, maxLen)
	if len(vetoes) > 0 {
		log.Debug().Str("veto", string(vetoes[0].Type)).Msg("generated text rejected, using fallback")
		return "", false
	}
	return text, true
}

func invitePrompt(inv Invitee, first string, p Persona) string {
	if inv.Viewer {
		return fmt.Sprintf("Write a friendly LinkedIn connection message to '%s' who recently viewed my profile. "+
			"I am a %s. Keep it professional and inviting (MAX 280 chars).", first, p.Role)
	}
	// No group means a search hit: the note must not claim a shared group.
	var mention, from string
	if inv.Group != "" {
		group := cleanGroup(inv.Group)
		mention = fmt.Sprintf(" Mention '%s'.", group)
		from = fmt.Sprintf(" from '%s'", group)
	}
	headline := strings.ToLower(inv.Headline)
	switch {
	case containsAny(headline, "recruiter", "talent", "hr"):
		return fmt.Sprintf("Write a professional connection message (MAX 280 chars) to Tech Recruiter '%s'. "+
			"I am %s.%s Start with 'Hi %s,'.", first, p.Role, mention, first)
	case containsAny(headline, "cto", "head", "data", "lead"):
		return fmt.Sprintf("Write a professional connection message (MAX 280 chars) to Tech Lead '%s'. "+
			"I am %s.%s Start with 'Hi %s,'.", first, p.Role, mention, first)
	default:
		return fmt.Sprintf("Write a friendly connection message (MAX 280 chars) to '%s'%s. "+
			"Professional. Start with 'Hi %s,'.", first, from, first)
	}
}

// #endregion composer

// #region helpers
// FirstName returns the capitalised first word of name, or "there".
func FirstName(name string) string {
	if name == "" || name == "Unknown" {
		return "there"
	}
	letters := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, name)
	fields := strings.Fields(letters)
	if len(fields) == 0 {
		return "there"
	}
	runes := []rune(strings.ToLower(fields[0]))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func cleanGroup(group string) string {
	g, _, _ := strings.Cut(group, "|")
	g, _, _ = strings.Cut(g, "(")
	g = strings.TrimSpace(g)
	if g == "" {
		return "our group"
	}
	return g
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncate caps s at max runes, ending with "..." when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// #endregion helpers
