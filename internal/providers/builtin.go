package providers

import (
	"github.com/roelfdiedericks/chatpilot/internal/attach"
	"github.com/roelfdiedericks/chatpilot/internal/dom"
)

func chatGPT() Table {
	return Table{
		Name:      "chatgpt",
		BaseURL:   "https://chatgpt.com/",
		SignInURL: "https://chatgpt.com/auth/login",
		Cookies: CookieTable{
			Required: []string{"__Secure-next-auth.session-token", "oai-did"},
			Allow: []string{
				"__Secure-next-auth.session-token.0",
				"__Secure-next-auth.session-token.1",
				"__Secure-next-auth.callback-url",
				"__cf_bm", "cf_clearance", "_puid", "oai-sc",
			},
			Origins:    []string{"https://chatgpt.com", "https://auth.openai.com"},
			ApexDomain: "chatgpt.com",
		},
		Input: dom.Selectors{
			`#prompt-textarea`,
			`div[contenteditable="true"][data-virtualkeyboard="true"]`,
			`textarea[data-testid="prompt-textarea"]`,
		},
		Send: dom.Selectors{
			`button[data-testid="send-button"]`,
			`#composer-submit-button`,
			`button[aria-label="Send prompt"]`,
		},
		SignIn: dom.Selectors{
			`button[data-testid="login-button"]`,
			`button[data-testid="welcome-login-button"]`,
		},
		SignInPaths:     []string{"/auth/login", "auth.openai.com", "/log-in"},
		Turns:           dom.Selectors{`[data-message-author-role="assistant"]`},
		UserTurns:       dom.Selectors{`[data-message-author-role="user"]`},
		Done:            dom.Selectors{`button[data-testid="copy-turn-action-button"]`, `button[aria-label="Copy"]`},
		Thinking:        dom.Selectors{`[data-testid="thinking-indicator"]`, `.result-thinking`},
		Spinner:         dom.Selectors{`button[data-testid="stop-button"]`},
		ThinkingPhrases: []string{"Thinking", "Reasoning", "Searching the web"},
		Mode: &ModeTable{
			Menu:   dom.Selectors{`button[data-testid="model-switcher-dropdown-button"]`},
			Items:  dom.Selectors{`[role="menuitem"]`, `[role="menuitemradio"]`},
			Active: dom.Selectors{`button[data-testid="model-switcher-dropdown-button"]`},
		},
		SideChannel: &SideChannelTable{
			Toggle:  dom.Selectors{`[data-message-author-role="assistant"] button[aria-expanded="false"]`},
			Content: dom.Selectors{`[data-testid="reasoning-content"]`, `.markdown.text-token-text-secondary`},
			Label:   "Thought for",
		},
		Attach: attach.Selectors{
			Expand:   dom.Selectors{`button[data-testid="composer-plus-btn"]`},
			Composer: dom.Selectors{`form[data-type="unified-composer"]`, `form:has(#prompt-textarea)`},
			Inputs:   dom.Selectors{`input[type="file"]`},
			Chips:    dom.Selectors{`[data-testid="attachment-item"]`, `div[role="group"][aria-label*="file"]`},
		},
	}
}

func gemini() Table {
	return Table{
		Name:      "gemini",
		BaseURL:   "https://gemini.google.com/app",
		SignInURL: "https://accounts.google.com/ServiceLogin?continue=https://gemini.google.com/app",
		Cookies: CookieTable{
			Required: []string{"__Secure-1PSID", "__Secure-1PSIDTS"},
			Allow:    []string{"__Secure-1PSIDCC", "NID", "SID", "HSID", "SSID", "APISID", "SAPISID"},
			Origins: []string{
				"https://gemini.google.com",
				"https://accounts.google.com",
				"https://www.google.com",
			},
			ApexDomain: "google.com",
		},
		Input: dom.Selectors{
			`rich-textarea .ql-editor[contenteditable="true"]`,
			`div.ql-editor[contenteditable="true"]`,
		},
		Send: dom.Selectors{
			`button.send-button:not(.stop)`,
			`button[aria-label="Send message"]`,
		},
		SignIn: dom.Selectors{
			`a[href*="accounts.google.com/ServiceLogin"]`,
			`a[aria-label="Sign in"]`,
		},
		SignInPaths:     []string{"accounts.google.com"},
		Turns:           dom.Selectors{`model-response`},
		UserTurns:       dom.Selectors{`user-query`},
		Done:            dom.Selectors{`message-actions`, `.response-footer.complete`},
		Thinking:        dom.Selectors{`.thinking-indicator`, `bard-avatar .thinking`},
		Spinner:         dom.Selectors{`button.send-button.stop`, `[aria-label="Stop response"]`},
		ThinkingPhrases: []string{"Thinking", "Just a sec"},
		Mode: &ModeTable{
			Menu:   dom.Selectors{`button[data-test-id="bard-mode-menu-button"]`, `bard-mode-switcher button`},
			Items:  dom.Selectors{`[role="menuitemradio"]`, `[role="menuitem"]`},
			Active: dom.Selectors{`button[data-test-id="bard-mode-menu-button"]`, `bard-mode-switcher button`},
		},
		SideChannel: &SideChannelTable{
			Toggle:  dom.Selectors{`model-response:last-of-type button[data-test-id="thoughts-header-button"]`},
			Content: dom.Selectors{`model-response:last-of-type .thoughts-body`, `model-thoughts .thoughts-content`},
			Label:   "Show thinking",
		},
		Attach: attach.Selectors{
			Expand:   dom.Selectors{`button[aria-label="Open upload file menu"]`, `uploader button`},
			Composer: dom.Selectors{`input-area-v2`, `.input-area-container`},
			Inputs:   dom.Selectors{`input[type="file"]`},
			Chips:    dom.Selectors{`uploader-file-preview`, `.file-preview-chip`},
		},
	}
}
