package safety

import (
	"fmt"
	"regexp"
)

// metacharacterRE matches any shell metacharacter that could chain or
// substitute commands. A command containing one is blocked regardless of
// whether it would otherwise match an allowlisted pattern.
var metacharacterRE = regexp.MustCompile("[;&|`$<>{}\\\\]")

// readonlyCommandPatterns is the closed set of read-only commands the ssh
// action may run. Every pattern is anchored at both ends so a command can't
// smuggle extra text past a prefix match.
var readonlyCommandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^uptime$`),
	regexp.MustCompile(`^whoami$`),
	regexp.MustCompile(`^id$`),
	regexp.MustCompile(`^hostname$`),
	regexp.MustCompile(`^date$`),
	regexp.MustCompile(`^ping -c ([1-9]|[1-9][0-9]) \S+$`),
	regexp.MustCompile(`^ls (/\S*)$`),
	regexp.MustCompile(`^uname(\s+-[a-zA-Z]+)?$`),
	regexp.MustCompile(`^free(\s+-[a-zA-Z]+)?$`),
	regexp.MustCompile(`^df(\s+-[a-zA-Z]+)?$`),
	regexp.MustCompile(`^docker (ps|stats --no-stream)$`),
	regexp.MustCompile(`^systemctl status [\w@.-]+$`),
	regexp.MustCompile(`^journalctl -u [\w@.-]+$`),
}

// CheckSSHCommand reports whether cmd is one of the allowlisted read-only
// commands and contains no shell metacharacters. Both conditions must hold;
// a command that matches a pattern but also contains a metacharacter is
// still blocked.
func CheckSSHCommand(cmd string) error {
	if metacharacterRE.MatchString(cmd) {
		return fmt.Errorf("ssh command blocked by safety policy: disallowed character")
	}
	for _, re := range readonlyCommandPatterns {
		if re.MatchString(cmd) {
			return nil
		}
	}
	return fmt.Errorf("ssh command blocked by safety policy: not in the read-only allowlist")
}
