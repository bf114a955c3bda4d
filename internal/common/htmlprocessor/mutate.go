package htmlprocessor

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/edgecomet/seoeditor/pkg/types"
)

// DefaultHost is used for og:url when the request context carries no host.
const DefaultHost = "example.com"

var (
	// Three or more newlines, possibly separated by other whitespace.
	blankRunRe = regexp.MustCompile(`\n\s*\n\s*\n`)
	// First <head> element. <header> is not a match.
	headRe = regexp.MustCompile(`(?is)<head(?:\s[^>]*)?>(.*?)</head>`)
	// First <html> opening tag.
	htmlOpenRe = regexp.MustCompile(`(?i)<html(?:\s[^>]*)?>`)
)

// RequestContext carries the request values that end up in rendered tags.
// It is passed explicitly so rendering never depends on ambient request state.
type RequestContext struct {
	// Host is the public host name of the site, e.g. "www.example.org".
	Host string
	// RequestURI is the path (and query) appended to the host for og:url.
	RequestURI string
}

// CurrentURL returns the absolute https URL used for og:url.
func (rc RequestContext) CurrentURL() string {
	host := rc.Host
	if host == "" {
		host = DefaultHost
	}
	return "https://" + host + rc.RequestURI
}

// Mutate replaces all recognised metadata tags in document with a block rendered
// from record. Everything outside the recognised tags is kept, except that runs of
// blank lines left behind by stripping are collapsed.
func Mutate(document string, record types.MetadataRecord, rc RequestContext) string {
	stripped := StripTags(document)
	return insertBlock(stripped, RenderTags(record, rc))
}

// StripTags removes every occurrence of every known tag shape, then collapses
// runs of three or more newlines down to two.
func StripTags(document string) string {
	for _, shape := range strippedShapes {
		document = shape.strip.ReplaceAllLiteralString(document, "")
	}
	return blankRunRe.ReplaceAllLiteralString(document, "\n\n")
}

// RenderTags renders the tag block for record, one tag per line, in fixed order.
// Empty fields are skipped. og:type and og:url are emitted only alongside an
// Open Graph title or description. JSON-LD is emitted verbatim unless it is "{}".
func RenderTags(record types.MetadataRecord, rc RequestContext) string {
	var b strings.Builder

	writeTitle(&b, record.Title)
	writeMeta(&b, "name", "description", record.Description)
	writeMeta(&b, "name", "keywords", record.Keywords)
	if record.CanonicalURL != "" {
		b.WriteString(`<link rel="canonical" href="` + html.EscapeString(record.CanonicalURL) + "\">\n")
	}
	writeMeta(&b, "name", "robots", record.Robots)

	writeMeta(&b, "property", "og:title", record.OGTitle)
	writeMeta(&b, "property", "og:description", record.OGDescription)
	writeMeta(&b, "property", "og:image", record.OGImage)
	if record.OGTitle != "" || record.OGDescription != "" {
		writeMeta(&b, "property", "og:type", "website")
		writeMeta(&b, "property", "og:url", rc.CurrentURL())
	}

	writeMeta(&b, "name", "twitter:card", record.TwitterCard)
	writeMeta(&b, "name", "twitter:title", record.TwitterTitle)
	writeMeta(&b, "name", "twitter:description", record.TwitterDescription)
	writeMeta(&b, "name", "twitter:image", record.TwitterImage)

	if record.SchemaData != "" && record.SchemaData != types.DefaultSchemaData {
		b.WriteString("<script type=\"application/ld+json\">\n" + record.SchemaData + "\n</script>\n")
	}

	return b.String()
}

func writeTitle(b *strings.Builder, title string) {
	if title == "" {
		return
	}
	b.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
}

func writeMeta(b *strings.Builder, attr, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(`<meta ` + attr + `="` + key + `" content="` + html.EscapeString(value) + "\">\n")
}

// insertBlock places block at the start of the first <head>, inside a new <head>
// after the first <html> tag, or at the very start of content, in that order.
func insertBlock(content, block string) string {
	if loc := headRe.FindStringSubmatchIndex(content); loc != nil {
		at := loc[2]
		return content[:at] + block + content[at:]
	}

	if loc := htmlOpenRe.FindStringIndex(content); loc != nil {
		at := loc[1]
		return content[:at] + "<head>" + block + "</head>" + content[at:]
	}

	return block + content
}
