package htmlprocessor

import (
	"regexp"
	"strings"
)

// quotedValue matches a double- or single-quoted attribute value.
// Exactly one of the two capture groups participates in a match.
const quotedValue = `(?:"([^"]*)"|'([^']*)')`

// tagShape is a recognised piece of head markup. match locates the first
// occurrence and captures its value; strip removes whole occurrences.
type tagShape struct {
	match *regexp.Regexp
	strip *regexp.Regexp
}

// find returns the captured value of the first occurrence in document.
func (s tagShape) find(document string) (string, bool) {
	m := s.match.FindStringSubmatch(document)
	if m == nil {
		return "", false
	}
	return strings.Join(m[1:], ""), true
}

// present reports whether document contains at least one occurrence.
func (s tagShape) present(document string) bool {
	return s.match.MatchString(document)
}

// metaShape builds the shape of <meta ATTR="KEY" content="...">.
func metaShape(attr, key string) tagShape {
	prefix := `(?i)<meta\s+` + attr + `=["']` + regexp.QuoteMeta(key) + `["']\s+content=` + quotedValue
	return tagShape{
		match: regexp.MustCompile(prefix),
		strip: regexp.MustCompile(prefix + `[^>]*>`),
	}
}

var (
	titleShape = tagShape{
		match: regexp.MustCompile(`(?is)<title>(.*?)</title>`),
		strip: regexp.MustCompile(`(?is)<title>.*?</title>`),
	}

	canonicalShape = tagShape{
		match: regexp.MustCompile(`(?i)<link\s+rel=["']canonical["']\s+href=` + quotedValue),
		strip: regexp.MustCompile(`(?i)<link\s+rel=["']canonical["']\s+href=` + quotedValue + `[^>]*>`),
	}

	jsonLDShape = tagShape{
		match: regexp.MustCompile(`(?is)<script\s+type=["']application/ld\+json["'][^>]*>(.*?)</script>`),
		strip: regexp.MustCompile(`(?is)<script\s+type=["']application/ld\+json["'][^>]*>.*?</script>`),
	}

	descriptionShape        = metaShape("name", "description")
	keywordsShape           = metaShape("name", "keywords")
	robotsShape             = metaShape("name", "robots")
	ogTitleShape            = metaShape("property", "og:title")
	ogDescriptionShape      = metaShape("property", "og:description")
	ogImageShape            = metaShape("property", "og:image")
	ogTypeShape             = metaShape("property", "og:type")
	ogURLShape              = metaShape("property", "og:url")
	twitterCardShape        = metaShape("name", "twitter:card")
	twitterTitleShape       = metaShape("name", "twitter:title")
	twitterDescriptionShape = metaShape("name", "twitter:description")
	twitterImageShape       = metaShape("name", "twitter:image")

	schemaTypeRe = regexp.MustCompile(`(?i)"@type"\s*:\s*["'](.*?)["']`)
)

// fieldShape binds a MetadataRecord field (by its form name) to its tag shape.
type fieldShape struct {
	field string
	shape tagShape
}

// recordShapes are the shapes extracted into record fields, in record order.
// JSON-LD is handled separately because it feeds two fields.
var recordShapes = []fieldShape{
	{"title", titleShape},
	{"description", descriptionShape},
	{"keywords", keywordsShape},
	{"canonicalUrl", canonicalShape},
	{"robots", robotsShape},
	{"ogTitle", ogTitleShape},
	{"ogDescription", ogDescriptionShape},
	{"ogImage", ogImageShape},
	{"twitterCard", twitterCardShape},
	{"twitterTitle", twitterTitleShape},
	{"twitterDescription", twitterDescriptionShape},
	{"twitterImage", twitterImageShape},
}

// strippedShapes is every shape removed before a fresh block is inserted.
// og:type and og:url are never extracted but are always regenerated.
var strippedShapes = []tagShape{
	titleShape,
	descriptionShape,
	keywordsShape,
	canonicalShape,
	robotsShape,
	ogTitleShape,
	ogDescriptionShape,
	ogImageShape,
	ogTypeShape,
	ogURLShape,
	twitterCardShape,
	twitterTitleShape,
	twitterDescriptionShape,
	twitterImageShape,
	jsonLDShape,
}
