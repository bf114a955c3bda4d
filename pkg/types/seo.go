package types

// Documented defaults for fields absent from a document or from caller input.
const (
	DefaultRobots      = "index, follow"
	DefaultTwitterCard = "summary"
	DefaultSchemaType  = "Website"
	DefaultSchemaData  = "{}"
)

// MetadataRecord is the flat set of editable SEO fields of one page.
// JSON keys match the form field names used by the editor front end.
type MetadataRecord struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	Keywords           string `json:"keywords"`
	CanonicalURL       string `json:"canonicalUrl"`
	Robots             string `json:"robots"`
	OGTitle            string `json:"ogTitle"`
	OGDescription      string `json:"ogDescription"`
	OGImage            string `json:"ogImage"`
	TwitterCard        string `json:"twitterCard"`
	TwitterTitle       string `json:"twitterTitle"`
	TwitterDescription string `json:"twitterDescription"`
	TwitterImage       string `json:"twitterImage"`
	SchemaType         string `json:"schemaType"`
	SchemaData         string `json:"schemaData"`
}

// NewMetadataRecord returns a record with every field at its documented default.
func NewMetadataRecord() MetadataRecord {
	return MetadataRecord{
		Robots:      DefaultRobots,
		TwitterCard: DefaultTwitterCard,
		SchemaType:  DefaultSchemaType,
		SchemaData:  DefaultSchemaData,
	}
}

// RecordFields lists the form/JSON names of every MetadataRecord field in render order.
var RecordFields = []string{
	"title", "description", "keywords", "canonicalUrl", "robots",
	"ogTitle", "ogDescription", "ogImage",
	"twitterCard", "twitterTitle", "twitterDescription", "twitterImage",
	"schemaType", "schemaData",
}

// Field returns a pointer to the field with the given form/JSON name, or nil.
func (r *MetadataRecord) Field(name string) *string {
	switch name {
	case "title":
		return &r.Title
	case "description":
		return &r.Description
	case "keywords":
		return &r.Keywords
	case "canonicalUrl":
		return &r.CanonicalURL
	case "robots":
		return &r.Robots
	case "ogTitle":
		return &r.OGTitle
	case "ogDescription":
		return &r.OGDescription
	case "ogImage":
		return &r.OGImage
	case "twitterCard":
		return &r.TwitterCard
	case "twitterTitle":
		return &r.TwitterTitle
	case "twitterDescription":
		return &r.TwitterDescription
	case "twitterImage":
		return &r.TwitterImage
	case "schemaType":
		return &r.SchemaType
	case "schemaData":
		return &r.SchemaData
	}
	return nil
}

// IssueKind classifies an audit finding.
type IssueKind string

const (
	IssueError   IssueKind = "error"
	IssueWarning IssueKind = "warning"
	IssueSuccess IssueKind = "success"
	IssueInfo    IssueKind = "info"
)

// Issue is a single audit finding. The JSON key "type" is what the editor UI reads.
type Issue struct {
	Kind    IssueKind `json:"type"`
	Message string    `json:"message"`
}

// AuditResult is the outcome of a detailed single-page analysis.
type AuditResult struct {
	Score  int     `json:"score"`
	Issues []Issue `json:"issues"`
}

// CatalogEntry summarises one page in the page listing.
type CatalogEntry struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	LastModified string `json:"lastModified"`
	SEOScore     int    `json:"seoScore"`
	FilePath     string `json:"filePath"`
}

// PageStatusPublished is the only status the file-backed catalog reports.
const PageStatusPublished = "published"

// PageDocument is the response payload of a single-page fetch.
type PageDocument struct {
	FilePath string         `json:"filePath"`
	Content  string         `json:"content"`
	SEOData  MetadataRecord `json:"seoData"`
}

// AnalysisResponse is the response payload of a single-page audit.
type AnalysisResponse struct {
	Score    int     `json:"score"`
	Issues   []Issue `json:"issues"`
	FilePath string  `json:"filePath"`
}

// SaveResult is the response payload of a successful save.
type SaveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Backup  string `json:"backup"`
}

// ScanSummary counts the candidate pages and directories in the site root.
type ScanSummary struct {
	TotalFiles  int    `json:"totalFiles"`
	HTMLFiles   int    `json:"htmlFiles"`
	PHPFiles    int    `json:"phpFiles"`
	Directories int    `json:"directories"`
	LastScan    string `json:"lastScan"`
}
