package spec

import (
	"encoding/json"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// normalize converts the raw document into a fully resolved OpenAPI 3 model.
// Swagger 2.0 is converted first (definitions, basePath/host and body
// parameters map onto components, servers and requestBody), then both
// versions go through the same loader.
func normalize(raw *rawDocument) (*openapi3.T, error) {
	if raw.swagger {
		if _, ok := raw.root["consumes"]; !ok {
			raw.root["consumes"] = []any{"application/json"}
		}
	}

	data, err := json.Marshal(raw.root)
	if err != nil {
		return nil, invalid("encode document: %v", err)
	}

	if raw.swagger {
		var doc2 openapi2.T
		if err := json.Unmarshal(data, &doc2); err != nil {
			return nil, invalid("swagger 2.0 document: %v", err)
		}
		doc3, err := openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, invalid("convert swagger 2.0: %v", err)
		}
		if len(doc3.Servers) == 0 && doc2.BasePath != "" {
			doc3.Servers = openapi3.Servers{{URL: doc2.BasePath}}
		}
		if data, err = json.Marshal(doc3); err != nil {
			return nil, invalid("encode converted document: %v", err)
		}
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, invalid("load document: %v", err)
	}
	return doc, nil
}
