// Package rules normalizes final transcripts with deterministic
// substitutions loaded from a user-maintained file: dictation fixes
// and medical abbreviation expansions. Two line formats are supported,
// literal ("p.r.n. => as needed") and sed-style regex
// (s/\bbp\b/blood pressure/g). Lines starting with # are comments.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

type substitution struct {
	re          *regexp.Regexp
	replacement string
	firstOnly   bool
}

// Normalizer implements ports.TranscriptNormalizer.
type Normalizer struct {
	subs      []substitution
	loopLimit int
}

// NewNormalizer loads and compiles substitutions from a file. An empty
// path or a missing file yields a pass-through normalizer.
func NewNormalizer(path string) (*Normalizer, error) {
	normalizer := &Normalizer{loopLimit: 30}
	if strings.TrimSpace(path) == "" {
		return normalizer, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return normalizer, nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	for index, raw := range strings.Split(string(contents), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sub, err := compileLine(line)
		if err != nil {
			return nil, fmt.Errorf("rules file %q line %d: %w", path, index+1, err)
		}
		normalizer.subs = append(normalizer.subs, sub)
	}
	return normalizer, nil
}

// Apply rewrites text until no substitution changes it, bounded so a
// pair of mutually-triggering rules cannot loop forever. A first-only
// rule fires at most once per invocation; otherwise a replacement that
// still matches its own pattern would be re-applied every pass.
func (n *Normalizer) Apply(text string) (string, error) {
	if len(n.subs) == 0 {
		return text, nil
	}

	result := text
	fired := make([]bool, len(n.subs))
	for i := 0; i < n.loopLimit; i++ {
		changed := false
		for j, sub := range n.subs {
			if sub.firstOnly && fired[j] {
				continue
			}
			next := sub.apply(result)
			if next != result {
				result = next
				changed = true
				fired[j] = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

func (s substitution) apply(input string) string {
	if !s.firstOnly {
		return s.re.ReplaceAllString(input, s.replacement)
	}
	loc := s.re.FindStringIndex(input)
	if loc == nil {
		return input
	}
	replaced := s.re.ReplaceAllString(input[loc[0]:loc[1]], s.replacement)
	return input[:loc[0]] + replaced + input[loc[1]:]
}

func compileLine(line string) (substitution, error) {
	if strings.HasPrefix(line, "s") && len(line) > 1 && isDelimiter(line[1]) {
		return compileRegexLine(line)
	}
	if strings.Contains(line, "=>") {
		return compileLiteralLine(line)
	}
	return substitution{}, errors.New("unsupported rule format")
}

func compileLiteralLine(line string) (substitution, error) {
	parts := strings.SplitN(line, "=>", 2)
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return substitution{}, errors.New("literal rule source cannot be empty")
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return substitution{}, fmt.Errorf("invalid literal source: %w", err)
	}
	return substitution{re: re, replacement: to}, nil
}

func compileRegexLine(line string) (substitution, error) {
	delim := line[1]
	pattern, pos, err := readDelimited(line, 2, delim)
	if err != nil {
		return substitution{}, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := readDelimited(line, pos, delim)
	if err != nil {
		return substitution{}, fmt.Errorf("invalid regex replacement: %w", err)
	}

	global := false
	prefix := "i"
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'g':
			global = true
		case 'i':
			// case-insensitive is the default
		case 'm', 's':
			prefix += string(flag)
		default:
			return substitution{}, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return substitution{}, fmt.Errorf("invalid regex: %w", err)
	}
	return substitution{re: re, replacement: replacement, firstOnly: !global}, nil
}

func readDelimited(line string, start int, delim byte) (string, int, error) {
	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isDelimiter(char byte) bool {
	switch {
	case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z':
		return false
	case char >= '0' && char <= '9', char == ' ', char == '\t':
		return false
	}
	return true
}
