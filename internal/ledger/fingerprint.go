package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

var (
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`)
	hexAddrPattern   = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	pathPattern      = regexp.MustCompile(`(/[\w.\-]+){2,}|([A-Za-z]:\\[\w.\-\\]+)`)
	tempEnvPattern   = regexp.MustCompile(`testvenv-?[0-9a-f]+|tmp[\w]{6,}`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// CommandSignature derives the identity of a command: lowercased,
// whitespace-collapsed, with flags sorted so that argument order does
// not create distinct identities.
func CommandSignature(command string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(command)))
	if len(fields) == 0 {
		return ""
	}

	var head []string
	var flags []string
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			flags = append(flags, f)
		} else {
			head = append(head, f)
		}
	}
	sort.Strings(flags)
	return strings.Join(append(head, flags...), " ")
}

// ErrorFingerprint hashes a normalized error output so that two
// failures differing only in timestamps, paths, or addresses are
// recognized as the same failure.
func ErrorFingerprint(output string) string {
	normalized := NormalizeErrorOutput(output)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}

// NormalizeErrorOutput strips volatile content from an error output.
// Exposed for tests; callers normally use ErrorFingerprint.
func NormalizeErrorOutput(output string) string {
	s := strings.ToLower(output)
	s = timestampPattern.ReplaceAllString(s, "<time>")
	s = hexAddrPattern.ReplaceAllString(s, "<addr>")
	s = tempEnvPattern.ReplaceAllString(s, "<env>")
	s = pathPattern.ReplaceAllString(s, "<path>")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// errorLineMarkers are the substrings that make an output line worth
// surfacing to the oracle as an extracted error message.
var errorLineMarkers = []string{"error", "conflict", "requires", "incompatible"}

// ExtractErrorLines pulls the lines of an output that carry error
// signal, for use in oracle prompts.
func ExtractErrorLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		for _, marker := range errorLineMarkers {
			if strings.Contains(lower, marker) {
				lines = append(lines, strings.TrimSpace(line))
				break
			}
		}
	}
	return lines
}
