package htmlprocessor

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/edgecomet/seoeditor/pkg/types"
)

// Extract builds a MetadataRecord from the first occurrence of every known tag shape.
// Values are entity-decoded. A missing tag, or one with an empty value, leaves the
// field at its documented default. Extract never fails.
func Extract(document string) types.MetadataRecord {
	record := types.NewMetadataRecord()

	for _, fs := range recordShapes {
		value, ok := fs.shape.find(document)
		if !ok {
			continue
		}
		if value = html.UnescapeString(value); value != "" {
			*record.Field(fs.field) = value
		}
	}

	if body, ok := jsonLDShape.find(document); ok {
		if data := strings.TrimSpace(body); data != "" {
			record.SchemaData = data
		}
		if m := schemaTypeRe.FindStringSubmatch(body); m != nil && m[1] != "" {
			record.SchemaType = m[1]
		}
	}

	return record
}
