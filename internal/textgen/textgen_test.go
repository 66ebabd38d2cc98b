package textgen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region fakes
type fakeCompleter struct {
	replies map[string]string // model -> content
	errs    map[string]error
	calls   []string
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls = append(f.calls, req.Model)
	if err := f.errs[req.Model]; err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	content, ok := f.replies[req.Model]
	if !ok {
		return openai.ChatCompletionResponse{}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

type staticGenerator struct {
	text   string
	err    error
	prompt string
}

func (s *staticGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

// #endregion fakes

// #region validator-tests
func TestValidatorVetoes(t *testing.T) {
	v := NewValidator(DefaultValidatorConfig())
	cases := []struct {
		text string
		want VetoType
	}{
		{"", VetoEmpty},
		{"ok", VetoTooShort},
		{strings.Repeat("a", 801), VetoTooLong},
		{"Sure! Here is the message you asked for", VetoDenylisted},
		{"Join the Discord server for more", VetoDenylisted},
		{"Read more at http://example.com today", VetoForeignLink},
	}
	for _, c := range cases {
		vetoes := v.Check(c.text, 0)
		require.NotEmpty(t, vetoes, c.text)
		assert.Equal(t, c.want, vetoes[0].Type, c.text)
	}

	assert.Empty(t, v.Check("See https://www.linkedin.com/in/ada for details", 0))
	assert.NotEmpty(t, v.Check(strings.Repeat("b", 301), InviteMaxLen))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Great post - really useful", Clean("  \"Great post – really useful\" 🚀 "))
	assert.Equal(t, "Its fine", Clean("It's fine"))
}

// #endregion validator-tests

// #region generator-tests
func TestOpenAIGeneratorTriesModelsInOrder(t *testing.T) {
	fc := &fakeCompleter{
		errs:    map[string]error{"gpt-4": errors.New("quota")},
		replies: map[string]string{"gpt-4o-mini": "i hope this helps: great post", "gpt-3.5-turbo": "A thoughtful take on data quality."},
	}
	g := NewOpenAIGeneratorWithClient(fc, []string{"gpt-4", "gpt-4o-mini", "gpt-3.5-turbo"}, nil)

	text, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "A thoughtful take on data quality.", text)
	assert.Equal(t, []string{"gpt-4", "gpt-4o-mini", "gpt-3.5-turbo"}, fc.calls)
}

func TestOpenAIGeneratorAllFail(t *testing.T) {
	fc := &fakeCompleter{replies: map[string]string{"m1": "api error"}}
	g := NewOpenAIGeneratorWithClient(fc, []string{"m1", "m2"}, nil)

	_, err := g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrNoValidText)

	_, err = NewOpenAIGeneratorWithClient(fc, nil, nil).Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrNoModels)
}

func TestOpenAIGeneratorHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewOpenAIGeneratorWithClient(&fakeCompleter{}, []string{"m1"}, nil)
	_, err := g.Generate(ctx, "p")
	require.ErrorIs(t, err, context.Canceled)
}

// #endregion generator-tests

// #region composer-tests
func TestCommentUsesGenerator(t *testing.T) {
	gen := &staticGenerator{text: "Solid framing of feature stores, especially the lineage part."}
	c := NewComposer(gen, nil, DefaultPersona())

	got := c.Comment(context.Background(), "Feature stores\nare underrated")
	assert.Equal(t, gen.text, got)
	assert.Contains(t, gen.prompt, "Feature stores are underrated")
	assert.Contains(t, gen.prompt, "Senior Data Scientist")
}

func TestCommentFallbackIsDeterministic(t *testing.T) {
	c := NewComposer(&staticGenerator{err: errors.New("offline")}, nil, DefaultPersona())
	a := c.Comment(context.Background(), "some post")
	b := c.Comment(context.Background(), "some post")
	assert.Equal(t, a, b)
	assert.Contains(t, fallbackComments, a)

	noGen := NewComposer(nil, nil, DefaultPersona())
	assert.Equal(t, a, noGen.Comment(context.Background(), "some post"))
}

func TestInviteNormalizesGreetingAndPlaceholders(t *testing.T) {
	gen := &staticGenerator{text: "Hello [Name], loved your talk at {event}. Would be great to connect!"}
	c := NewComposer(gen, nil, DefaultPersona())

	got := c.Invite(context.Background(), Invitee{Name: "ada lovelace", Headline: "Head of Data", Group: "Data Science Brasil | Official"})
	assert.Equal(t, "Hi Ada, loved your talk at Ada. Would be great to connect!", got)
	assert.Contains(t, gen.prompt, "Tech Lead 'Ada'")
	assert.Contains(t, gen.prompt, "'Data Science Brasil'")
}

func TestInviteFallbacks(t *testing.T) {
	ctx := context.Background()
	inv := Invitee{Name: "Grace Hopper 🚀", Group: "ML Engineers (Global)"}

	for _, text := range []string{"", "short", "Use the keyword CONNECT to reach me", strings.Repeat("x", 400)} {
		c := NewComposer(&staticGenerator{text: text}, nil, DefaultPersona())
		got := c.Invite(ctx, inv)
		assert.Equal(t, "Hi Grace, saw we are in the same group: 'ML Engineers'. As a Senior Data Scientist, I'd love to connect with fellow professionals.", got, text)
	}
}

func TestInviteCappedAt300(t *testing.T) {
	gen := &staticGenerator{text: strings.Repeat("word ", 59) + "end"}
	c := NewComposer(gen, nil, DefaultPersona())

	got := c.Invite(context.Background(), Invitee{Name: "Linus"})
	assert.Equal(t, InviteMaxLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.True(t, strings.HasPrefix(got, "Hi Linus, "))
}

func TestViewerInvitePrompt(t *testing.T) {
	gen := &staticGenerator{err: errors.New("down")}
	c := NewComposer(gen, nil, DefaultPersona())

	got := c.Invite(context.Background(), Invitee{Name: "Unknown", Viewer: true})
	assert.Contains(t, gen.prompt, "recently viewed my profile")
	assert.True(t, strings.HasPrefix(got, "Hi there, thanks for stopping by"))
}

func TestSearchInviteHasNeutralFallback(t *testing.T) {
	gen := &staticGenerator{err: errors.New("down")}
	c := NewComposer(gen, nil, DefaultPersona())

	got := c.Invite(context.Background(), Invitee{Name: "Alan Turing", Headline: "CTO at Bletchley"})
	assert.Equal(t, "Hi Alan, I came across your profile and, as a Senior Data Scientist, I'd love to connect with fellow professionals.", got)
	assert.NotContains(t, got, "stopping by")
	assert.NotContains(t, gen.prompt, "our group")
	assert.NotContains(t, gen.prompt, "Mention")

	viewer := c.FallbackInvite(Invitee{Name: "Alan", Viewer: true, Group: "ML Engineers"})
	assert.Contains(t, viewer, "thanks for stopping by my profile")
}

func TestFirstName(t *testing.T) {
	cases := map[string]string{
		"":              "there",
		"Unknown":       "there",
		"JOSÉ da Silva": "José",
		"  mary-jane ":  "Maryjane",
		"123":           "there",
	}
	for in, want := range cases {
		assert.Equal(t, want, FirstName(in), in)
	}
}

// #endregion composer-tests

// #region language-tests
func TestIsEnglish(t *testing.T) {
	assert.True(t, IsEnglish("We are hiring data engineers to build the next generation of our analytics platform."))
	assert.False(t, IsEnglish("Estamos contratando engenheiros de dados para construir a próxima geração da nossa plataforma."))
	assert.False(t, IsEnglish("short"))
}

// #endregion language-tests
