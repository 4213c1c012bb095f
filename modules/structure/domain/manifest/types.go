package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var refTypes = map[string]bool{"ref": true, "backref": true, "generic": true}

func isRefType(t string) bool { return refTypes[t] }

// PropertyType is a parsed property type cell such as `geometry(point, 3346) required`.
type PropertyType struct {
	Base     string
	Args     []string
	Required bool
	Unique   bool
}

// ParseType splits a type cell into its base type, arguments and flags.
// Only required and unique are accepted as space separated flags.
func ParseType(raw string) (PropertyType, []string) {
	var (
		pt   PropertyType
		errs []string
	)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pt, nil
	}

	rest := raw
	if open := strings.Index(raw, "("); open >= 0 && (strings.IndexByte(raw, ' ') < 0 || open < strings.IndexByte(raw, ' ')) {
		closing := strings.Index(raw, ")")
		if closing < open {
			return PropertyType{Base: strings.TrimSpace(raw[:open])}, []string{fmt.Sprintf("Type %q has unbalanced parentheses.", raw)}
		}
		pt.Base = strings.TrimSpace(raw[:open])
		for _, arg := range strings.Split(raw[open+1:closing], ",") {
			if arg = strings.TrimSpace(arg); arg != "" {
				pt.Args = append(pt.Args, arg)
			}
		}
		rest = raw[closing+1:]
	} else {
		fields := strings.Fields(raw)
		pt.Base = fields[0]
		rest = strings.Join(fields[1:], " ")
	}

	for _, flag := range strings.Fields(rest) {
		switch flag {
		case "required":
			pt.Required = true
		case "unique":
			pt.Unique = true
		default:
			errs = append(errs, fmt.Sprintf("Unknown type argument %q in type %q.", flag, raw))
		}
	}
	return pt, errs
}

// ParseRef splits `Model[prop1, prop2]` into a model name and key
// properties. ok is false when the brackets are unbalanced.
func ParseRef(raw string) (model string, props []string, ok bool) {
	raw = strings.TrimSpace(raw)
	open := strings.Index(raw, "[")
	if open < 0 {
		return raw, nil, !strings.Contains(raw, "]")
	}
	if !strings.HasSuffix(raw, "]") || strings.Count(raw, "[") != 1 {
		return "", nil, false
	}
	return strings.TrimSpace(raw[:open]), splitList(raw[open+1 : len(raw)-1]), true
}

// splitList splits a comma separated list and drops blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// inferLevel derives the maturity level of a node without an explicit one.
func inferLevel(given *int, ref, uri string) *int {
	if given != nil {
		v := *given
		return &v
	}
	level := 3
	if ref != "" {
		level = 4
		if uri != "" {
			level = 5
		}
	}
	return &level
}

// parseLevel returns the given level, or a message when raw is not 0..5.
func parseLevel(raw string) (*int, string) {
	if raw == "" {
		return nil, ""
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 5 {
		return nil, fmt.Sprintf("Invalid level %q, expected a number from 0 to 5.", raw)
	}
	return &v, ""
}

func parseAccess(raw string) (string, string) {
	access := strings.ToLower(raw)
	if !accessValues[access] {
		return "", fmt.Sprintf("Invalid access %q, expected one of private, protected, public, open.", raw)
	}
	return access, ""
}

func checkID(raw string) string {
	if raw == "" {
		return ""
	}
	if _, err := uuid.Parse(raw); err != nil {
		return fmt.Sprintf("Invalid id %q, expected a UUID.", raw)
	}
	return ""
}
