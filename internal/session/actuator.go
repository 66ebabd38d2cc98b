package session

import (
	"context"
	"errors"
)

// ErrFatal marks an actuator fault that ends the session, such as a dead browser.
var ErrFatal = errors.New("session: fatal actuator fault")

// #region actions
// Action is a real-world operation the actuator can perform.
type Action string

const (
	ActionLike         Action = "like"
	ActionComment      Action = "comment"
	ActionFollow       Action = "follow"
	ActionConnect      Action = "connect"
	ActionWithdraw     Action = "withdraw"
	ActionEndorse      Action = "endorse"      // one skill on the open profile
	ActionCongratulate Action = "congratulate" // Target.URN is the button label
)

// #endregion actions

// #region targets
// Target is a post, profile or invitation the actuator can act on.
type Target struct {
	URN      string // post or invitation identifier
	URL      string // profile URL
	Name     string
	Headline string
	Text     string // post body
	Group    string // group display name, set for group posts
	Top      bool   // high-reach profile, set by Visit
	Message  string // comment or invitation note to send
	Reaction string // like variant; empty means a plain like
}

// SourceKind names where targets are discovered.
type SourceKind string

const (
	SourceFeed         SourceKind = "feed"
	SourceGroup        SourceKind = "group"
	SourceSearch       SourceKind = "search"
	SourceInvitations  SourceKind = "invitations"  // sent, still pending
	SourceViewers      SourceKind = "viewers"      // recent profile viewers not yet connected
	SourceCelebrations SourceKind = "celebrations" // notifications offering a congratulate button
)

// Source locates a discovery page.
type Source struct {
	Kind  SourceKind
	URL   string
	Query string
}

// Page names a page whose text can be read.
type Page string

const (
	PageSSI         Page = "ssi"
	PageConnections Page = "connections"
	PageDashboard   Page = "dashboard"

	// Pages opened only to look around between stages.
	PageNotifications Page = "notifications"
	PageJobs          Page = "jobs"
	PageNetwork       Page = "network"
	PageProfileViews  Page = "profile-views"
)

// BrowsePages are the pages the browse stage picks from.
var BrowsePages = []Page{PageNotifications, PageJobs, PageNetwork, PageProfileViews}

// #endregion targets

// #region actuator
// Actuator performs real-world actions. Errors wrapping ErrFatal end the
// session; any other error is treated as a failed attempt.
type Actuator interface {
	// Perform attempts a and reports whether it succeeded.
	Perform(ctx context.Context, a Action, t Target) (bool, error)
	// Discover lists up to max targets from src.
	Discover(ctx context.Context, src Source, max int) ([]Target, error)
	// Visit opens a profile and returns it with Name, Headline and Top filled.
	Visit(ctx context.Context, t Target) (Target, error)
	// Read returns the visible text of a page.
	Read(ctx context.Context, p Page) (string, error)
}

// #endregion actuator
