// Package prompt builds the final prompt string sent to a generation
// backend from the question and any retrieved context.
package prompt

import (
	"regexp"
	"strings"
)

// templateVarRegex matches {variable} placeholders in templates.
var templateVarRegex = regexp.MustCompile(`\{(\w+)\}`)

// Vars extracts the distinct variable names from a template string, in
// order of first appearance.
func Vars(template string) []string {
	matches := templateVarRegex.FindAllStringSubmatch(template, -1)
	vars := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, match := range matches {
		if len(match) > 1 && !seen[match[1]] {
			vars = append(vars, match[1])
			seen[match[1]] = true
		}
	}
	return vars
}

// FormatString substitutes {variable} placeholders in a template.
func FormatString(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		placeholder := "{" + key + "}"
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// Template is a string template with {variable} placeholders.
type Template struct {
	// Template is the raw template string.
	Template string
	// TemplateVars are the variable names extracted from the template.
	TemplateVars []string
	// PartialVars are pre-filled variables.
	PartialVars map[string]string
}

// NewTemplate creates a Template.
func NewTemplate(template string) *Template {
	return &Template{
		Template:     template,
		TemplateVars: Vars(template),
		PartialVars:  make(map[string]string),
	}
}

// Format substitutes the given variables into the template. Provided
// variables take precedence over partials.
func (t *Template) Format(vars map[string]string) string {
	allVars := make(map[string]string)
	for k, v := range t.PartialVars {
		allVars[k] = v
	}
	for k, v := range vars {
		allVars[k] = v
	}
	return FormatString(t.Template, allVars)
}

// PartialFormat returns a copy of the template with some variables
// pre-filled.
func (t *Template) PartialFormat(vars map[string]string) *Template {
	newT := &Template{
		Template:     t.Template,
		TemplateVars: t.TemplateVars,
		PartialVars:  make(map[string]string),
	}
	for k, v := range t.PartialVars {
		newT.PartialVars[k] = v
	}
	for k, v := range vars {
		newT.PartialVars[k] = v
	}
	return newT
}

// MissingVars returns the template variables not covered by either the
// partials or the given map.
func (t *Template) MissingVars(vars map[string]string) []string {
	var missing []string
	for _, name := range t.TemplateVars {
		if _, ok := t.PartialVars[name]; ok {
			continue
		}
		if _, ok := vars[name]; ok {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}
