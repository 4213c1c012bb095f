package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	modelNameRe    = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	propertyNameRe = regexp.MustCompile(`^[a-z][a-z0-9_.]*$`)
	resourceNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	datasetPartRe  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func hasUpper(s string) bool {
	return strings.ToLower(s) != s
}

// absoluteName resolves a model reference against the dataset name. A
// leading "/" or any "/" inside name marks it as already absolute.
func absoluteName(dataset, name string) string {
	if strings.HasPrefix(name, "/") {
		return strings.TrimPrefix(name, "/")
	}
	if strings.Contains(name, "/") || dataset == "" {
		return name
	}
	return dataset + "/" + name
}

// localName returns the last path segment of an absolute model name.
func localName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func checkDatasetName(name string) []string {
	var errs []string
	for _, part := range strings.Split(name, "/") {
		if part == "" || !datasetPartRe.MatchString(part) {
			errs = append(errs, fmt.Sprintf("Dataset name %q may only contain latin letters, digits and \"_\" separated by \"/\".", name))
			break
		}
	}
	return errs
}

func checkResourceName(name string) []string {
	switch {
	case hasUpper(name):
		return []string{fmt.Sprintf("Resource name %q must not contain uppercase letters.", name)}
	case !isASCII(name) || !resourceNameRe.MatchString(name):
		return []string{fmt.Sprintf("Resource name %q may only contain latin letters, digits and \"_\".", name)}
	}
	return nil
}

func checkModelName(name string) []string {
	switch {
	case !isASCII(name):
		return []string{fmt.Sprintf("Model name %q must contain only latin letters.", name)}
	case name == "" || name[0] < 'A' || name[0] > 'Z':
		return []string{fmt.Sprintf("Model name %q must start with an uppercase letter.", name)}
	case !modelNameRe.MatchString(name):
		return []string{fmt.Sprintf("Model name %q may only contain letters and digits.", name)}
	}
	return nil
}

func checkPropertyName(name string) []string {
	switch {
	case !isASCII(name):
		return []string{fmt.Sprintf("Property name %q must contain only latin letters.", name)}
	case hasUpper(name):
		return []string{fmt.Sprintf("Property name %q must not contain uppercase letters.", name)}
	case name == "" || name[0] < 'a' || name[0] > 'z':
		return []string{fmt.Sprintf("Property name %q must start with a lowercase letter.", name)}
	case !propertyNameRe.MatchString(name):
		return []string{fmt.Sprintf("Property name %q may only contain letters, digits, \"_\" and \".\".", name)}
	case strings.Contains(name, "..") || strings.HasSuffix(name, "."):
		return []string{fmt.Sprintf("Property name %q has an empty denormalized segment.", name)}
	}
	return nil
}
