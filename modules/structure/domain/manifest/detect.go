package manifest

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripUTF8BOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}

// DetectFileErrors checks that path exists before checking its content.
func DetectFileErrors(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{fmt.Sprintf("File %q does not exist.", path)}
		}
		return []string{fmt.Sprintf("File %q cannot be read: %v.", path, err)}
	}
	return DetectReadErrors(data)
}

// DetectReadErrors reports problems that make a CSV manifest unreadable:
// empty input, a non UTF-8 encoding, a wrong separator or a header that
// does not match Header exactly.
func DetectReadErrors(data []byte) []string {
	data = stripUTF8BOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return []string{"File is empty."}
	}
	if !utf8.Valid(data) {
		return []string{"File must be UTF-8 encoded."}
	}

	line := data
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		line = data[:i]
	}
	if !bytes.Contains(line, []byte(",")) {
		switch {
		case bytes.Contains(line, []byte(";")):
			return []string{`Columns must be separated by commas (","), but semicolons (";") were found.`}
		case bytes.Contains(line, []byte("\t")):
			return []string{`Columns must be separated by commas (","), but tabs were found.`}
		}
	}
	return DetectHeaderErrors(strings.Split(string(line), ","))
}

// DetectHeaderErrors compares header tokens with Header, naming every
// malformed token.
func DetectHeaderErrors(tokens []string) []string {
	known := make(map[string]int, len(Header))
	for i, h := range Header {
		known[h] = i
	}

	var errs []string
	seen := map[string]bool{}
	for i, tok := range tokens {
		trimmed := strings.TrimSpace(tok)
		lower := strings.ToLower(trimmed)
		switch want, ok := known[tok]; {
		case ok && seen[tok]:
			errs = append(errs, fmt.Sprintf("Header column %q is repeated.", tok))
		case ok && want != i:
			seen[tok] = true
			errs = append(errs, fmt.Sprintf("Header column %q is in position %d, expected %d.", tok, i+1, want+1))
		case ok:
			seen[tok] = true
		case trimmed != tok && isKnown(known, trimmed):
			seen[trimmed] = true
			errs = append(errs, fmt.Sprintf("Header column %q has surrounding whitespace.", tok))
		case lower != trimmed && isKnown(known, lower):
			seen[lower] = true
			errs = append(errs, fmt.Sprintf("Header column %q must be lowercase: %q.", tok, lower))
		case trimmed == "":
			errs = append(errs, fmt.Sprintf("Header column %d is empty.", i+1))
		default:
			msg := fmt.Sprintf("Unknown header column %q.", tok)
			if s := suggest(trimmed); s != "" {
				msg = fmt.Sprintf("Unknown header column %q, did you mean %q?", tok, s)
			}
			errs = append(errs, msg)
		}
	}
	for _, h := range Header {
		if !seen[h] {
			errs = append(errs, fmt.Sprintf("Header column %q is missing.", h))
		}
	}
	return errs
}

func isKnown(known map[string]int, tok string) bool {
	_, ok := known[tok]
	return ok
}

// suggest returns the closest header column to tok, or "".
func suggest(tok string) string {
	ranks := fuzzy.RankFindNormalizedFold(tok, Header)
	if len(ranks) == 0 {
		for _, h := range Header {
			if ranks = fuzzy.RankFindNormalizedFold(h, []string{tok}); len(ranks) > 0 {
				return h
			}
		}
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
