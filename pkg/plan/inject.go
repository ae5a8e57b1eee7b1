package plan

import "regexp"

// bareURLRE finds the first http(s) URL or bare domain-looking token in free
// text, so a chat message that's just a link still gets a web_fetch action
// even when the planner's reply omits one.
var bareURLRE = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'` + "`" + `]+|\b(?:[a-z0-9-]+\.)+[a-z]{2,}(?:/[^\s<>"'` + "`" + `]*)?`)

// dynamicPageDomains is a small closed set of hosts known to require
// JavaScript execution to render meaningful content, so InjectWebFetch can
// pick browser mode without guessing from the whole internet.
var dynamicPageDomains = map[string]bool{
	"twitter.com":  true,
	"x.com":        true,
	"reddit.com":   true,
	"linkedin.com": true,
	"instagram.com": true,
}

// InjectWebFetch scans the user's message for a bare URL and, if the plan
// contains no web_fetch action already, appends one targeting it. Mode is
// inferred from dynamicPageDomains; everything else defaults to plain http.
func InjectWebFetch(userMessage string, p Plan) Plan {
	for _, a := range p.Actions {
		if a.Type == ActionWebFetch {
			return p
		}
	}

	m := bareURLRE.FindString(userMessage)
	if m == "" {
		return p
	}

	url := m
	if len(url) < 8 || (url[:7] != "http://" && url[:8] != "https://") {
		url = "https://" + url
	}

	mode := WebFetchModeHTTP
	for domain := range dynamicPageDomains {
		if containsHost(url, domain) {
			mode = WebFetchModeBrowser
			break
		}
	}

	approve := mode == WebFetchModeBrowser
	action := Action{
		Type:             ActionWebFetch,
		URL:              url,
		Mode:             mode,
		Reason:           "link shared in chat",
		RequiresApproval: &approve,
	}

	out := Plan{Actions: make([]Action, len(p.Actions), len(p.Actions)+1)}
	copy(out.Actions, p.Actions)
	out.Actions = append(out.Actions, action)
	return out
}

func containsHost(url, domain string) bool {
	for i := 0; i+len(domain) <= len(url); i++ {
		if url[i:i+len(domain)] == domain {
			return true
		}
	}
	return false
}
