package handler

import (
	_ "embed"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/search_request.json
var searchRequestSchema string

var compiledSearchSchema = mustCompile(searchRequestSchema)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compiling search request schema: %v", err))
	}
	return s
}

// validateSearchBody checks body against the search request schema. It
// returns one message per violation; err is set only when body is not JSON.
func validateSearchBody(body []byte) ([]string, error) {
	result, err := compiledSearchSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, errors.Wrap(err, "invalid JSON")
	}
	if result.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return problems, nil
}
