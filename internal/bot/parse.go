package bot

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// tokenize splits a command line on whitespace. Double quotes, including
// the curly quotes some clients insert, group words into one argument.
func tokenize(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote, inToken := false, false

	for _, r := range s {
		switch {
		case r == '"' || r == '“' || r == '”':
			if inQuote {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inQuote, inToken = false, false
				continue
			}
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
			inQuote = true
		case unicode.IsSpace(r) && !inQuote:
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			if !inQuote {
				inToken = true
			}
		}
	}

	if inQuote {
		return nil, errUnterminatedQuote
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// parseMention extracts a user ID from "<@123>", "<@!123>" or a bare
// numeric ID.
func parseMention(s string) (string, bool) {
	id := s
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		id = strings.TrimPrefix(strings.TrimSuffix(s[2:], ">"), "!")
	}
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}
