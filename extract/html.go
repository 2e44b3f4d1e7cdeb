package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	removeTagRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
	}
	commentRe    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	numEntityRe  = regexp.MustCompile(`&#(\d+);`)
)

// HTMLText strips markup from an HTML document and returns its visible
// text. Script, style, noscript, iframe, and svg blocks are removed
// entirely; remaining tags are dropped, common entities are decoded,
// and whitespace runs collapse to single spaces.
func HTMLText(raw string) string {
	text := raw

	for _, re := range removeTagRes {
		text = re.ReplaceAllString(text, "")
	}
	text = commentRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, " ")
	text = decodeEntities(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// HTMLTitle returns the contents of the document's <title> element, or
// "" when there is none.
func HTMLTitle(raw string) string {
	titleRe := regexp.MustCompile(`(?is)<title[^>]*>([^<]+)</title>`)
	if matches := titleRe.FindStringSubmatch(raw); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// decodeEntities decodes the HTML entities that show up in practice.
func decodeEntities(text string) string {
	entities := map[string]string{
		"&nbsp;":  " ",
		"&amp;":   "&",
		"&lt;":    "<",
		"&gt;":    ">",
		"&quot;":  `"`,
		"&apos;":  "'",
		"&#39;":   "'",
		"&mdash;": "—",
		"&ndash;": "–",
		"&copy;":  "©",
		"&rsquo;": "'",
		"&lsquo;": "'",
		"&ldquo;": "“",
		"&rdquo;": "”",
	}
	for entity, replacement := range entities {
		text = strings.ReplaceAll(text, entity, replacement)
	}

	text = numEntityRe.ReplaceAllStringFunc(text, func(match string) string {
		var num int
		fmt.Sscanf(match, "&#%d;", &num)
		if num > 0 && num < 0x10FFFF {
			return string(rune(num))
		}
		return match
	})

	return text
}
