package templates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/marketing-hub/internal/types"
)

// placeholder matches {{name}} with optional inner whitespace.
var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Render replaces every {{variable}} in tpl with its value from vars.
// Placeholders without a value are left in place and reported in unresolved,
// in first-seen order without repeats.
func Render(tpl string, vars map[string]string) (out string, unresolved []string) {
	seen := make(map[string]bool)
	out = placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			unresolved = append(unresolved, name)
		}
		return m
	})
	return out, unresolved
}

// ExtractVariables lists the distinct placeholder names used across texts in first-seen order.
func ExtractVariables(texts ...string) []string {
	vars := []string{}
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				vars = append(vars, m[1])
			}
		}
	}
	return vars
}

// blockElements end a line in the plain-text rendering.
const blockElements = "p, div, h1, h2, h3, h4, h5, h6, li, tr, table, blockquote, section"

// PlainText converts an HTML email body into a readable plain-text alternative.
// Links keep their target in parentheses.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if href != "" && href != text && !strings.HasPrefix(href, "#") {
			s.SetText(text + " (" + href + ")")
		}
	})
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// LeadVariables returns the placeholder values available for a lead.
// name falls back to the company when the lead has no contact person.
func LeadVariables(lead *types.Lead) map[string]string {
	name := lead.ContactPerson
	if name == "" {
		name = lead.CompanyName
	}
	first := name
	if i := strings.IndexByte(name, ' '); i > 0 {
		first = name[:i]
	}
	return map[string]string{
		"name":       name,
		"first_name": first,
		"company":    lead.CompanyName,
		"email":      lead.Email,
		"phone":      lead.Phone,
		"website":    lead.Website,
		"region":     string(lead.Region),
		"service":    string(lead.Service),
	}
}

// Personalize renders a template for a lead. Overrides win over lead values and
// may fill placeholders the lead cannot, such as sender_name.
func Personalize(tpl *types.EmailTemplate, lead *types.Lead, overrides map[string]string) (*types.TemplatePreview, error) {
	vars := LeadVariables(lead)
	for k, v := range overrides {
		vars[k] = v
	}

	subject, missingSubject := Render(tpl.Subject, vars)
	content, missingContent := Render(tpl.Content, vars)

	text, err := PlainText(content)
	if err != nil {
		return nil, err
	}

	preview := &types.TemplatePreview{Subject: subject, Content: content, PlainText: text}
	seen := make(map[string]bool)
	for _, name := range append(missingSubject, missingContent...) {
		if !seen[name] {
			seen[name] = true
			preview.Unresolved = append(preview.Unresolved, name)
		}
	}
	return preview, nil
}
