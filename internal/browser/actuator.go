package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/ssi-autopilot/internal/session"
	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"
)

// #region discover
// Discover lists up to max targets from src.
func (b *Browser) Discover(ctx context.Context, src session.Source, max int) ([]session.Target, error) {
	switch src.Kind {
	case session.SourceFeed:
		return b.posts(ctx, feedURL, max)
	case session.SourceGroup:
		posts, err := b.posts(ctx, src.URL, max)
		if name := strings.TrimSpace(text(firstOf(b.page.Context(ctx).Elements(groupNameSelector)))); name != "" {
			for i := range posts {
				posts[i].Group = name
			}
		}
		return posts, err
	case session.SourceSearch:
		return b.people(ctx, src.Query, max)
	case session.SourceInvitations:
		return b.invitations(ctx, max)
	case session.SourceViewers:
		return b.viewers(ctx, max)
	case session.SourceCelebrations:
		return b.celebrations(ctx, max)
	}
	return nil, fmt.Errorf("unknown source %q", src.Kind)
}

// posts scrolls a feed-like page until max posts are collected or the scroll
// limit is reached.
func (b *Browser) posts(ctx context.Context, url string, max int) ([]session.Target, error) {
	if err := b.open(ctx, url); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []session.Target
	for i := 0; len(out) < max && i < b.cfg.MaxScrolls; i++ {
		els, err := b.page.Context(ctx).Elements(postSelector)
		if err != nil {
			return out, b.check(fmt.Errorf("list posts: %w", err))
		}
		for _, el := range els {
			if len(out) >= max {
				break
			}
			urn := attr(el, "data-urn")
			if urn == "" || seen[urn] {
				continue
			}
			seen[urn] = true
			out = append(out, postTarget(el, urn))
		}
		b.scroll(ctx)
	}
	log.Debug().Str("url", url).Int("posts", len(out)).Msg("posts discovered")
	return out, nil
}

func postTarget(el *rod.Element, urn string) session.Target {
	t := session.Target{URN: urn, Text: strings.TrimSpace(text(firstOf(el.Elements(postTextSelector))))}
	if a := firstOf(el.ElementsX(authorXPath)); a != nil {
		t.URL = profileURL(attr(a, "href"))
		t.Name = strings.TrimSpace(text(firstOf(a.Elements(hiddenName))))
	}
	return t
}

func (b *Browser) people(ctx context.Context, role string, max int) ([]session.Target, error) {
	if err := b.open(ctx, searchURL(role)); err != nil {
		return nil, err
	}
	els, err := b.page.Context(ctx).Elements(resultSelector)
	if err != nil {
		return nil, b.check(fmt.Errorf("list results: %w", err))
	}
	var out []session.Target
	for _, el := range els {
		if len(out) >= max {
			break
		}
		link := firstOf(el.Elements(resultLink))
		if link == nil {
			continue
		}
		out = append(out, session.Target{
			URL:      profileURL(attr(link, "href")),
			Name:     strings.TrimSpace(text(firstOf(link.Elements(hiddenName)))),
			Headline: strings.TrimSpace(text(firstOf(el.Elements(resultHeadline)))),
		})
	}
	return out, nil
}

// invitations lists withdraw buttons of pending sent invitations. The button
// label is the target URN.
func (b *Browser) invitations(ctx context.Context, max int) ([]session.Target, error) {
	if err := b.open(ctx, invitationsURL); err != nil {
		return nil, err
	}
	els, err := b.page.Context(ctx).ElementsX(withdrawXPath)
	if err != nil {
		return nil, b.check(fmt.Errorf("list invitations: %w", err))
	}
	var out []session.Target
	for _, el := range els {
		if len(out) >= max {
			break
		}
		label := attr(el, "aria-label")
		if label == "" {
			continue
		}
		t := session.Target{URN: label}
		if a := firstOf(el.ElementsX("./ancestor::li//a[contains(@href, '/in/')]")); a != nil {
			t.URL = profileURL(attr(a, "href"))
		}
		out = append(out, t)
	}
	return out, nil
}

// viewers lists recent profile viewers that still show a Connect button.
func (b *Browser) viewers(ctx context.Context, max int) ([]session.Target, error) {
	if err := b.open(ctx, profileViewsURL); err != nil {
		return nil, err
	}
	b.scroll(ctx)
	els, err := b.page.Context(ctx).ElementsX(viewerConnectXPath)
	if err != nil {
		return nil, b.check(fmt.Errorf("list viewers: %w", err))
	}
	seen := make(map[string]bool)
	var out []session.Target
	for _, el := range els {
		if len(out) >= max {
			break
		}
		a := firstOf(el.ElementsX("./ancestor::li//a[contains(@href, '/in/')]"))
		if a == nil {
			continue
		}
		u := profileURL(attr(a, "href"))
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, session.Target{URL: u, Name: strings.TrimSpace(text(firstOf(a.Elements(hiddenName))))})
	}
	return out, nil
}

// celebrations lists congratulate buttons in the notifications. The URN is
// the button's label, or its text when it has none.
func (b *Browser) celebrations(ctx context.Context, max int) ([]session.Target, error) {
	if err := b.open(ctx, notificationsURL); err != nil {
		return nil, err
	}
	els, err := b.page.Context(ctx).ElementsX(celebrationXPath)
	if err != nil {
		return nil, b.check(fmt.Errorf("list celebrations: %w", err))
	}
	var out []session.Target
	for _, el := range els {
		if len(out) >= max {
			break
		}
		if visible, _ := el.Visible(); !visible {
			continue
		}
		label := attr(el, "aria-label")
		if label == "" {
			label = strings.Join(strings.Fields(text(el)), " ")
		}
		if label != "" {
			out = append(out, session.Target{URN: label})
		}
	}
	return out, nil
}

// #endregion discover

// #region visit
// Visit opens a profile and reads its name, headline and reach markers.
func (b *Browser) Visit(ctx context.Context, t session.Target) (session.Target, error) {
	if err := b.open(ctx, t.URL); err != nil {
		return t, err
	}
	p := b.page.Context(ctx)
	if el, _ := b.find(ctx, []matcher{{"name", "//main//" + profileName}}); el != nil {
		if name := strings.TrimSpace(text(el)); name != "" {
			t.Name = name
		}
	}
	if h := strings.TrimSpace(text(firstOf(p.Elements(profileHeadline)))); h != "" {
		t.Headline = h
	}
	badge, _, _ := p.Has(topVoiceBadge)
	t.Top = badge || topFromCounters(text(firstOf(p.Elements(topCardCounters))))
	return t, nil
}

// #endregion visit

// #region perform
// Perform runs one action. A missing button is a failed attempt, not an error.
func (b *Browser) Perform(ctx context.Context, a session.Action, t session.Target) (bool, error) {
	switch a {
	case session.ActionLike:
		return b.like(ctx, t)
	case session.ActionComment:
		return b.comment(ctx, t)
	case session.ActionConnect:
		return b.connect(ctx, t)
	case session.ActionFollow:
		return b.follow(ctx), nil
	case session.ActionWithdraw:
		return b.withdraw(ctx, t)
	case session.ActionEndorse:
		return b.endorse(ctx), nil
	case session.ActionCongratulate:
		return b.congratulate(ctx, t)
	}
	return false, fmt.Errorf("unknown action %q", a)
}

func (b *Browser) post(ctx context.Context, urn string) (*rod.Element, error) {
	post := firstOf(b.page.Context(ctx).ElementsX(postByURN(urn)))
	if post == nil {
		return nil, b.check(fmt.Errorf("post %s not on page", urn))
	}
	return post, nil
}

func (b *Browser) like(ctx context.Context, t session.Target) (bool, error) {
	post, err := b.post(ctx, t.URN)
	if err != nil {
		return false, err
	}
	btn := firstOf(post.Elements(likeSelector))
	if btn == nil || attr(btn, "aria-pressed") == "true" {
		return false, nil
	}
	if b.react(ctx, btn, t.Reaction) {
		return true, nil
	}
	if err := click(btn); err != nil {
		return false, b.check(fmt.Errorf("like %s: %w", t.URN, err))
	}
	return true, nil
}

// react picks a reaction from the menu the like button opens on hover. It
// reports false for a plain like or when the menu does not show.
func (b *Browser) react(ctx context.Context, like *rod.Element, reaction string) bool {
	if reaction == "" || reaction == "like" {
		return false
	}
	if err := like.Hover(); err != nil {
		log.Debug().Err(err).Msg("hover like failed")
		return false
	}
	return b.clickFirst(ctx, []matcher{{"reaction " + reaction, reactionXPath(reaction)}})
}

func (b *Browser) comment(ctx context.Context, t session.Target) (bool, error) {
	if t.Message == "" {
		return false, nil
	}
	post, err := b.post(ctx, t.URN)
	if err != nil {
		return false, err
	}
	btn := firstOf(post.Elements(commentSelector))
	if btn == nil {
		return false, nil
	}
	if err := click(btn); err != nil {
		return false, b.check(fmt.Errorf("open comment box %s: %w", t.URN, err))
	}
	box, _ := b.find(ctx, commentBoxes)
	if box == nil {
		return false, nil
	}
	if err := box.Input(t.Message); err != nil {
		return false, b.check(fmt.Errorf("type comment: %w", err))
	}
	return b.clickFirst(ctx, commentSubmit), nil
}

// connect sends an invitation from the open profile, with the note when one is
// set and the note dialog is offered.
func (b *Browser) connect(ctx context.Context, t session.Target) (bool, error) {
	opened := b.clickFirst(ctx, connectButtons) ||
		(b.clickFirst(ctx, moreButtons) && b.clickFirst(ctx, connectInMore)) ||
		b.jsClick(ctx, connectWords)
	if !opened {
		return false, b.alive()
	}
	defer b.dismissDialog(ctx)

	if t.Message != "" && b.clickFirst(ctx, addNoteButtons) {
		if box, _ := b.find(ctx, []matcher{{"message", "//" + messageXPath}}); box != nil {
			if err := box.Input(t.Message); err == nil && b.clickFirst(ctx, sendButtons) {
				return true, nil
			}
		}
		log.Warn().Str("url", t.URL).Msg("note not sent, sending without note")
		return b.clickFirst(ctx, sendWithoutNote), nil
	}
	return b.clickFirst(ctx, sendButtons) || b.clickFirst(ctx, sendWithoutNote) || b.jsClick(ctx, sendWords), nil
}

func (b *Browser) follow(ctx context.Context) bool {
	return b.clickFirst(ctx, followButtons) ||
		(b.clickFirst(ctx, moreButtons) && b.clickFirst(ctx, followInMore)) ||
		b.jsClick(ctx, followWords)
}

// endorse endorses the first skill offered on the open profile.
func (b *Browser) endorse(ctx context.Context) bool {
	if _, err := b.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight * 0.75)`); err != nil {
		log.Debug().Err(err).Msg("scroll to skills failed")
	}
	return b.clickFirst(ctx, endorseButtons)
}

func (b *Browser) congratulate(ctx context.Context, t session.Target) (bool, error) {
	btn := firstOf(b.page.Context(ctx).ElementsX(celebrationByLabel(t.URN)))
	if btn == nil {
		return false, nil
	}
	if err := click(btn); err != nil {
		return false, b.check(fmt.Errorf("congratulate: %w", err))
	}
	return true, nil
}

func (b *Browser) withdraw(ctx context.Context, t session.Target) (bool, error) {
	btn := firstOf(b.page.Context(ctx).ElementsX(fmt.Sprintf("//button[@aria-label=%s]", xpathLiteral(t.URN))))
	if btn == nil {
		return false, nil
	}
	if err := click(btn); err != nil {
		return false, b.check(fmt.Errorf("withdraw: %w", err))
	}
	return b.clickFirst(ctx, withdrawConfirm), nil
}

// #endregion perform

// #region read
// Read returns the text of a page for the snapshot parsers.
func (b *Browser) Read(ctx context.Context, page session.Page) (string, error) {
	switch page {
	case session.PageSSI:
		if err := b.open(ctx, ssiURL); err != nil {
			return "", err
		}
		return b.bodyText(ctx)
	case session.PageDashboard:
		if err := b.open(ctx, dashboardURL); err != nil {
			return "", err
		}
		return b.bodyText(ctx)
	case session.PageConnections:
		if err := b.open(ctx, networkURL); err != nil {
			return "", err
		}
		if el, _ := b.find(ctx, []matcher{{"connections count", connectionsCount}}); el != nil {
			return text(el), nil
		}
		return b.bodyText(ctx)
	}
	if u, ok := browsePageURLs[page]; ok {
		if err := b.open(ctx, u); err != nil {
			return "", err
		}
		b.scroll(ctx)
		return b.bodyText(ctx)
	}
	return "", fmt.Errorf("unknown page %q", page)
}

// #endregion read
