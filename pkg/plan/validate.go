package plan

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var addonNameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Validate checks one action against the schema for its declared Type,
// applying the defaulting rules from the plan contract (§4.1) in place.
// Exhaustive switch: an unrecognized Type is the caller's bug, since the
// parser is the only place a raw "type" string turns into an ActionType,
// and it already rejects unknown values before Validate ever sees them.
func Validate(a *Action) error {
	switch a.Type {
	case ActionReply:
		return nil

	case ActionQuestion:
		if strings.TrimSpace(a.Question) == "" {
			return fmt.Errorf("question action requires question text")
		}
		return nil

	case ActionSSH:
		if !KnownSSHTargets[a.Target] {
			return fmt.Errorf("ssh action has unknown target %q", a.Target)
		}
		if strings.TrimSpace(a.Command) == "" {
			return fmt.Errorf("ssh action requires a command")
		}
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("ssh action requires a reason")
		}
		a.defaultApproval(true)
		return nil

	case ActionObsidianWrite:
		if strings.TrimSpace(a.Path) == "" {
			return fmt.Errorf("obsidian_write action requires a path")
		}
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("obsidian_write action requires a reason")
		}
		a.defaultApproval(true)
		return nil

	case ActionWebFetch:
		if a.Mode == "" {
			a.Mode = WebFetchModeHTTP
		}
		if a.Mode != WebFetchModeHTTP && a.Mode != WebFetchModeBrowser {
			return fmt.Errorf("web_fetch action has unknown mode %q", a.Mode)
		}
		u, err := url.Parse(a.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("web_fetch action requires an absolute http/https url")
		}
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("web_fetch action requires a reason")
		}
		if a.Mode == WebFetchModeBrowser {
			a.defaultApproval(true)
			if !a.Approval() {
				return fmt.Errorf("web_fetch action in browser mode must require approval")
			}
		} else {
			a.defaultApproval(true)
		}
		return nil

	case ActionImageToText:
		u, err := url.Parse(a.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("image_to_text action requires an http/https imageUrl")
		}
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("image_to_text action requires a reason")
		}
		a.defaultApproval(true)
		return nil

	case ActionVoiceToText:
		u, err := url.Parse(a.AudioURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("voice_to_text action requires an http/https audioUrl")
		}
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("voice_to_text action requires a reason")
		}
		a.defaultApproval(true)
		return nil

	case ActionOpencodeServe:
		if strings.TrimSpace(a.Task) == "" {
			return fmt.Errorf("opencode_serve action requires task text")
		}
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("opencode_serve action requires a reason")
		}
		if a.Timeout != 0 && (a.Timeout < 1 || a.Timeout > 600) {
			return fmt.Errorf("opencode_serve action timeout must be 1-600 seconds")
		}
		a.defaultApproval(true)
		return nil

	case ActionAddonInstall, ActionAddonCreate, ActionAddonRun:
		if !addonNameRE.MatchString(a.Name) {
			return fmt.Errorf("%s action has invalid addon name %q", a.Type, a.Name)
		}
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("%s action requires a reason", a.Type)
		}
		a.defaultApproval(true)
		return nil

	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
}

func (a *Action) defaultApproval(def bool) {
	if a.RequiresApproval == nil {
		a.RequiresApproval = &def
	}
}

// IsKnownType reports whether t is one of the closed set of variants.
func IsKnownType(t ActionType) bool {
	for _, known := range KnownActionTypes {
		if known == t {
			return true
		}
	}
	return false
}
