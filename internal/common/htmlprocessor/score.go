package htmlprocessor

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/edgecomet/seoeditor/pkg/types"
)

// Length bounds shared by both scoring passes.
const (
	MinTitleLength       = 10
	MaxTitleLength       = 60
	MinDescriptionLength = 50
	MaxDescriptionLength = 160
)

const (
	catalogBaseline = 50
	auditBaseline   = 100
	maxScore        = 100
)

var (
	h1Re     = regexp.MustCompile(`(?is)<h1(?:\s[^>]*)?>.*?</h1>`)
	imgRe    = regexp.MustCompile(`(?i)<img\s+[^>]*>`)
	imgAltRe = regexp.MustCompile(`(?i)\salt\s*=\s*["'][^"']*["']`)
)

// pageChecks holds the raw outcome of the six checks both scorers share.
type pageChecks struct {
	hasTitle          bool
	titleLength       int
	hasDescription    bool
	descriptionLength int
	hasH1             bool
	images            int
	imagesWithoutAlt  int
	hasCanonical      bool
	hasRobots         bool
}

func runChecks(document string) pageChecks {
	var c pageChecks

	if title, ok := titleShape.find(document); ok {
		c.hasTitle = true
		c.titleLength = utf8.RuneCountInString(html.UnescapeString(title))
	}

	if description, ok := descriptionShape.find(document); ok {
		c.hasDescription = true
		c.descriptionLength = utf8.RuneCountInString(html.UnescapeString(description))
	}

	c.hasH1 = h1Re.MatchString(document)

	for _, img := range imgRe.FindAllString(document, -1) {
		c.images++
		if !imgAltRe.MatchString(img) {
			c.imagesWithoutAlt++
		}
	}

	c.hasCanonical = canonicalShape.present(document)
	c.hasRobots = robotsShape.present(document)

	return c
}

func inRange(n, lo, hi int) bool {
	return n >= lo && n <= hi
}

// CatalogScore is the lightweight 0-100 score shown when listing many pages.
// It starts at 50 and only awards points.
func CatalogScore(document string) int {
	c := runChecks(document)
	score := catalogBaseline

	if c.hasTitle {
		if inRange(c.titleLength, MinTitleLength, MaxTitleLength) {
			score += 15
		} else {
			score += 7
		}
	}

	if c.hasDescription {
		if inRange(c.descriptionLength, MinDescriptionLength, MaxDescriptionLength) {
			score += 15
		} else {
			score += 7
		}
	}

	if c.hasH1 {
		score += 10
	}

	switch {
	case c.images == 0:
		score += 5
	case c.imagesWithoutAlt == 0:
		score += 10
	}

	if c.hasCanonical {
		score += 5
	}

	return min(maxScore, score)
}

// Analyze runs the detailed audit. It starts at 100, deducts per finding and
// reports issues in a fixed order: title, description, H1, images, canonical, robots.
// Unlike CatalogScore, a page without images earns nothing and gets no issue.
func Analyze(document string) types.AuditResult {
	c := runChecks(document)
	score := auditBaseline
	issues := make([]types.Issue, 0, 6)

	add := func(kind types.IssueKind, message string, deduction int) {
		issues = append(issues, types.Issue{Kind: kind, Message: message})
		score -= deduction
	}

	switch {
	case !c.hasTitle:
		add(types.IssueError, "Missing title tag", 15)
	case c.titleLength < MinTitleLength:
		add(types.IssueWarning, "Title tag is too short (less than 10 characters)", 5)
	case c.titleLength > MaxTitleLength:
		add(types.IssueWarning, "Title tag is too long (more than 60 characters)", 5)
	default:
		add(types.IssueSuccess, "Title tag is optimal length", 0)
	}

	switch {
	case !c.hasDescription:
		add(types.IssueError, "Missing meta description", 15)
	case c.descriptionLength < MinDescriptionLength:
		add(types.IssueWarning, "Meta description is too short (recommended: 50-160 characters)", 5)
	case c.descriptionLength > MaxDescriptionLength:
		add(types.IssueWarning, "Meta description is too long (recommended: 50-160 characters)", 5)
	default:
		add(types.IssueSuccess, "Meta description is optimal length", 0)
	}

	if c.hasH1 {
		add(types.IssueSuccess, "H1 tag found", 0)
	} else {
		add(types.IssueWarning, "No H1 tag found on page", 10)
	}

	if c.imagesWithoutAlt > 0 {
		add(types.IssueError, fmt.Sprintf("Missing alt tags on %d images", c.imagesWithoutAlt), 3*c.imagesWithoutAlt)
	} else if c.images > 0 {
		add(types.IssueSuccess, "All images have alt tags", 0)
	}

	if c.hasCanonical {
		add(types.IssueSuccess, "Canonical URL found", 0)
	} else {
		add(types.IssueWarning, "Missing canonical URL", 5)
	}

	if c.hasRobots {
		add(types.IssueSuccess, "Robots meta tag found", 0)
	} else {
		add(types.IssueInfo, "No robots meta tag (default is index, follow)", 0)
	}

	return types.AuditResult{
		Score:  max(0, score),
		Issues: issues,
	}
}
