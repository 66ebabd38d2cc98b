// Package browser drives LinkedIn through a Chrome instance and implements
// session.Actuator.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/session"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// #region config
// Config controls how the browser is started and how long lookups wait.
type Config struct {
	ControlURL    string // attach to a running Chrome when set
	Bin           string // Chrome binary; empty lets the launcher pick one
	Headless      bool
	UserDataDir   string // keeps the LinkedIn login between runs
	ActionTimeout time.Duration
	NavTimeout    time.Duration
	MaxScrolls    int
}

// DefaultConfig returns a visible browser with conservative timeouts.
func DefaultConfig() Config {
	return Config{
		ActionTimeout: 3 * time.Second,
		NavTimeout:    30 * time.Second,
		MaxScrolls:    20,
	}
}

// #endregion config

// #region lifecycle
// Browser is a single-tab Actuator.
type Browser struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ session.Actuator = (*Browser)(nil)

// Launch attaches to cfg.ControlURL or starts a new Chrome, then opens one tab.
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	b := &Browser{cfg: cfg}
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if cfg.UserDataDir != "" {
			l = l.UserDataDir(cfg.UserDataDir)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		b.launcher = l
		controlURL = u
	}

	b.browser = rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.browser.Connect(); err != nil {
		b.kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	b.page = page
	log.Info().Str("control_url", controlURL).Bool("headless", cfg.Headless).Msg("browser ready")
	return b, nil
}

// Close closes the browser and stops a launched process.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.kill()
	return err
}

func (b *Browser) kill() {
	if b.launcher != nil {
		b.launcher.Kill()
	}
}

// alive returns a fatal fault when the browser no longer answers.
func (b *Browser) alive() error {
	if _, err := b.browser.Version(); err != nil {
		return fmt.Errorf("%w: %v", session.ErrFatal, err)
	}
	return nil
}

// check upgrades err to a fatal fault when the browser is gone.
func (b *Browser) check(err error) error {
	if err == nil {
		return nil
	}
	if dead := b.alive(); dead != nil {
		return fmt.Errorf("%w (%v)", dead, err)
	}
	return err
}

// #endregion lifecycle

// #region navigation
func (b *Browser) open(ctx context.Context, url string) error {
	p := b.page.Context(ctx).Timeout(b.cfg.NavTimeout)
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return b.check(fmt.Errorf("navigate %s: %w", url, err))
	}
	if err := p.WaitLoad(); err != nil {
		return b.check(fmt.Errorf("load %s: %w", url, err))
	}
	return nil
}

func (b *Browser) scroll(ctx context.Context) {
	p := b.page.Context(ctx)
	if _, err := p.Eval(`() => window.scrollBy(0, 800)`); err != nil {
		log.Debug().Err(err).Msg("scroll failed")
	}
	_ = p.WaitIdle(2 * time.Second)
}

func (b *Browser) bodyText(ctx context.Context) (string, error) {
	body, err := b.page.Context(ctx).Element("body")
	if err != nil {
		return "", b.check(fmt.Errorf("page body: %w", err))
	}
	text, err := body.Text()
	if err != nil {
		return "", b.check(fmt.Errorf("page text: %w", err))
	}
	return text, nil
}

// #endregion navigation

// #region lookup
// find tries each matcher with the action timeout and returns the first hit.
func (b *Browser) find(ctx context.Context, ms []matcher) (*rod.Element, string) {
	for _, m := range ms {
		p := b.page.Context(ctx).Timeout(b.cfg.ActionTimeout)
		el, err := p.ElementX(m.xpath)
		p.CancelTimeout()
		if err == nil {
			return el.Context(ctx), m.desc
		}
	}
	return nil, ""
}

// dismissDialog closes a dialog left open. With none open it returns at once
// instead of waiting out the matcher timeouts.
func (b *Browser) dismissDialog(ctx context.Context) {
	open, _, err := b.page.Context(ctx).HasX(openDialogXPath)
	if err != nil || !open {
		return
	}
	b.clickFirst(ctx, dismissButtons)
}

// clickFirst clicks the first matching element.
func (b *Browser) clickFirst(ctx context.Context, ms []matcher) bool {
	el, desc := b.find(ctx, ms)
	if el == nil {
		return false
	}
	if err := click(el); err != nil {
		log.Debug().Err(err).Str("matcher", desc).Msg("click failed")
		return false
	}
	log.Debug().Str("matcher", desc).Msg("clicked")
	return true
}

const jsClickByText = `(words) => {
	const hit = [...document.querySelectorAll('main button, div[role=dialog] button')].find(b => {
		const label = (b.getAttribute('aria-label') || '') + ' ' + (b.innerText || '');
		return words.some(w => label.trim().startsWith(w) || label.includes(' ' + w));
	});
	if (!hit) return false;
	hit.click();
	return true;
}`

// jsClick is the scripted fallback after every matcher missed.
func (b *Browser) jsClick(ctx context.Context, words []string) bool {
	res, err := b.page.Context(ctx).Eval(jsClickByText, words)
	if err != nil {
		log.Debug().Err(err).Strs("words", words).Msg("scripted click failed")
		return false
	}
	return res.Value.Bool()
}

func click(el *rod.Element) error {
	_ = el.ScrollIntoView()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return err
		}
	}
	return nil
}

func firstOf(els rod.Elements, err error) *rod.Element {
	if err != nil || len(els) == 0 {
		return nil
	}
	return els[0]
}

func attr(el *rod.Element, name string) string {
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func text(el *rod.Element) string {
	if el == nil {
		return ""
	}
	t, err := el.Text()
	if err != nil {
		return ""
	}
	return t
}

// #endregion lookup
