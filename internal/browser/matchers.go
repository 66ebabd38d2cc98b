package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/danielpatrickdp/ssi-autopilot/internal/session"
)

// matcher is one way of locating an element, tried in priority order.
type matcher struct {
	desc  string
	xpath string
}

// #region matcher-lists
var (
	connectButtons = []matcher{
		{"primary connect", "//main//button[.//span[contains(text(), 'Connect') or contains(text(), 'Conectar')]]"},
		{"connect aria", "//main//button[contains(@aria-label, 'Invite') and contains(@aria-label, 'connect')]"},
	}
	connectInMore = []matcher{
		{"dropdown connect", "//div[contains(@class, 'dropdown')]//span[contains(text(), 'Connect') or contains(text(), 'Conectar')]"},
	}
	followButtons = []matcher{
		{"primary follow", "//main//button[.//span[text()='Follow' or text()='Seguir']]"},
	}
	followInMore = []matcher{
		{"dropdown follow", "//div[contains(@class, 'dropdown')]//span[contains(text(), 'Follow') or contains(text(), 'Seguir')]"},
	}
	moreButtons = []matcher{
		{"more actions", "//main//button[contains(@aria-label, 'More actions') or .//span[text()='More'] or .//span[text()='Mais']]"},
	}
	addNoteButtons = []matcher{
		{"add a note", "//button[@aria-label='Add a note' or @aria-label='Adicionar nota']"},
	}
	sendButtons = []matcher{
		{"send now", "//button[@aria-label='Send now' or @aria-label='Enviar agora']"},
		{"send invitation", "//button[@aria-label='Send invitation' or @aria-label='Enviar convite']"},
		{"send", "//button[@aria-label='Send' or @aria-label='Enviar']"},
		{"primary modal button", "//div[@role='dialog']//button[contains(@class, 'artdeco-button--primary') and not(@disabled)]"},
	}
	sendWithoutNote = []matcher{
		{"send without a note", "//button[@aria-label='Send without a note' or @aria-label='Enviar sem nota']"},
	}
	commentBoxes = []matcher{
		{"textbox", "//div[@role='textbox' and @aria-label]"},
		{"ql editor", "//div[contains(@class, 'ql-editor')]"},
	}
	commentSubmit = []matcher{
		{"submit", "//button[contains(@class, 'comments-comment-box__submit-button')][not(@disabled)]"},
		{"post aria", "//button[contains(@aria-label, 'Post') or contains(@aria-label, 'Publicar')][not(@disabled)]"},
	}
	withdrawConfirm = []matcher{
		{"modal confirm", "//button[contains(@class, 'artdeco-modal__confirm-btn')]"},
	}
	dismissButtons = []matcher{
		{"dismiss", "//button[@aria-label='Dismiss' or @aria-label='Fechar']"},
	}
	endorseButtons = []matcher{
		{"endorse skill", "//main//button[contains(@aria-label, 'Endorse') or contains(@aria-label, 'Recomendar')]"},
	}
)

// Words tried by the scripted fallback when every matcher misses.
var (
	connectWords = []string{"Connect", "Conectar"}
	followWords  = []string{"Follow", "Seguir"}
	sendWords    = []string{"Send", "Enviar"}
)

// #endregion matcher-lists

// #region selectors
const (
	postSelector       = "div.feed-shared-update-v2"
	postTextSelector   = ".update-components-text"
	likeSelector       = "button[aria-label*='Like'], button[aria-label*='Gostei']"
	commentSelector    = "button[aria-label*='Comment'], button[aria-label*='Comentar'], button.comment-button"
	authorXPath        = ".//a[contains(@href, '/in/') and not(contains(@href, '/miniProfile/'))]"
	resultSelector     = "li.reusable-search__result-container"
	resultLink         = "a.app-aware-link[href*='/in/']"
	resultHeadline     = ".entity-result__primary-subtitle"
	hiddenName         = "span[aria-hidden='true']"
	withdrawXPath      = "//button[contains(@aria-label, 'Withdraw') or contains(@aria-label, 'Retirar')]"
	profileName        = "h1"
	profileHeadline    = "div.text-body-medium"
	topVoiceBadge      = ".pv-member-badge--for-top-voice"
	topCardCounters    = ".pv-top-card--list"
	connectionsCount   = "//a[contains(@href, '/connections/view/') or contains(@href, '/conex%C3%B5es/view/')]/span[@class='t-bold']"
	messageXPath       = "textarea[@name='message']"
	openDialogXPath    = "//div[@role='dialog']"
	groupNameSelector  = "h1"
	viewerConnectXPath = "//main//button[.//span[contains(text(), 'Connect') or contains(text(), 'Conectar')]]"
	celebrationXPath   = "//button[contains(@class, 'notification-action-button') or .//span[contains(text(), 'Congratulate') or contains(text(), 'Parabéns')]]"
)

// #endregion selectors

// #region urls
const (
	baseURL          = "https://www.linkedin.com"
	feedURL          = baseURL + "/feed/"
	ssiURL           = baseURL + "/sales/ssi"
	networkURL       = baseURL + "/mynetwork/"
	dashboardURL     = baseURL + "/dashboard/"
	invitationsURL   = baseURL + "/mynetwork/invitation-manager/sent/"
	notificationsURL = baseURL + "/notifications/"
	jobsURL          = baseURL + "/jobs/"
	profileViewsURL  = baseURL + "/me/profile-views/"
)

var browsePageURLs = map[session.Page]string{
	session.PageNotifications: notificationsURL,
	session.PageJobs:          jobsURL,
	session.PageNetwork:       networkURL,
	session.PageProfileViews:  profileViewsURL,
}

func searchURL(role string) string {
	return baseURL + "/search/results/people/?keywords=" + url.QueryEscape(role) + "&origin=GLOBAL_SEARCH_HEADER"
}

// profileURL strips the query and fragment of a profile link and makes it absolute.
func profileURL(href string) string {
	href, _, _ = strings.Cut(href, "?")
	href, _, _ = strings.Cut(href, "#")
	if strings.HasPrefix(href, "/") {
		href = baseURL + href
	}
	return href
}

// #endregion urls

// topFromCounters reports whether the top-card counters mark a high-reach
// profile: a "K" follower count or a capped "500+ connections".
func topFromCounters(text string) bool {
	return strings.Contains(text, "K") || strings.Contains(strings.ToLower(text), "500+ connection")
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}

func postByURN(urn string) string {
	return fmt.Sprintf("//div[@data-urn=%s]", xpathLiteral(urn))
}

// reactionXPath finds the reaction-menu button whose label contains reaction,
// ignoring case.
func reactionXPath(reaction string) string {
	return fmt.Sprintf("//button[contains(@class, 'reactions-menu__reaction') and "+
		"contains(translate(@aria-label, 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), %s)]",
		xpathLiteral(strings.ToLower(reaction)))
}

func celebrationByLabel(label string) string {
	return fmt.Sprintf("//button[@aria-label=%[1]s or normalize-space(.)=%[1]s]", xpathLiteral(label))
}
