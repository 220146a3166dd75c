package browser

import "fmt"

// Strategy is the kind of selector expression a locator carries.
type Strategy string

const (
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
)

// Locator is one candidate way of finding an element for a semantic role.
type Locator struct {
	Strategy Strategy
	Query    string
}

func CSS(q string) Locator   { return Locator{Strategy: ByCSS, Query: q} }
func XPath(q string) Locator { return Locator{Strategy: ByXPath, Query: q} }

func (l Locator) String() string { return fmt.Sprintf("%s(%s)", l.Strategy, l.Query) }

// Role names a semantic UI target. The resolver maps roles to ordered
// locator candidates; order defines precedence.
type Role string

const (
	RoleVoiceSearch    Role = "voice-search-box"
	RoleVoiceResult    Role = "voice-result-item"
	RoleScriptInput    Role = "script-input-area"
	RoleCaptchaImage   Role = "captcha-image"
	RoleCaptchaInput   Role = "captcha-input"
	RoleGenerateButton Role = "generate-button"
	RoleDownloadButton Role = "download-button"
	RoleOverlay        Role = "overlay"
)

// LocatorSet is the ordered candidate list for one role. First candidate
// that matches a visible element wins.
type LocatorSet []Locator

// RoleTable maps semantic roles to their locator sets.
type RoleTable map[Role]LocatorSet

// VoiceSiteRoles builds the locator table for the TTS site. voiceName is
// substituted into the result-item candidates, which cover the container
// shapes observed on the site (card, voice tile, list item) so no ancestor
// walking is needed at the call site.
func VoiceSiteRoles(voiceName string) RoleTable {
	return RoleTable{
		RoleVoiceSearch: {
			XPath(`//input[@type='search' or contains(@placeholder, 'search') or contains(@placeholder, 'Search') or contains(@class, 'search')]`),
			CSS(`input[type='search']`),
			CSS(`input`),
		},
		RoleVoiceResult: {
			XPath(fmt.Sprintf(`//div[contains(@class, 'card') and .//text()[contains(., '%s')]]`, voiceName)),
			XPath(fmt.Sprintf(`//div[contains(@class, 'voice') and .//text()[contains(., '%s')]]`, voiceName)),
			XPath(fmt.Sprintf(`//div[contains(@class, 'item') and .//text()[contains(., '%s')]]`, voiceName)),
			XPath(fmt.Sprintf(`//li[.//text()[contains(., '%s')]]`, voiceName)),
			XPath(fmt.Sprintf(`//*[contains(text(), '%s')]/..`, voiceName)),
		},
		RoleScriptInput: {
			CSS(`textarea`),
			CSS(`div[contenteditable='true']`),
			CSS(`input[type='text']`),
		},
		RoleCaptchaImage: {
			CSS(`#captchaImg`),
			CSS(`img[id*='captcha']`),
		},
		RoleCaptchaInput: {
			CSS(`#captchaInput`),
			CSS(`input[id*='captcha']`),
		},
		RoleGenerateButton: {
			CSS(`#convertButton`),
			XPath(`//button[contains(., 'Generate')]`),
		},
		RoleDownloadButton: {
			CSS(`button.download-btn`),
			XPath(`//button[contains(@class, 'download-btn')]`),
			XPath(`//button[contains(., 'Download')]`),
		},
		RoleOverlay: {
			CSS(`#api-notification`),
		},
	}
}
