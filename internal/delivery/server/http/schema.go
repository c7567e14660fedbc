package http

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	askerrors "askview/internal/shared/errors"
	jsonx "askview/internal/shared/json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaPrinter = message.NewPrinter(language.English)

var (
	decodeRequestSchema = mustCompileSchema("decode_request.schema.json")
	batchRequestSchema  = mustCompileSchema("batch_request.schema.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(fmt.Sprintf("read embedded schemas: %v", err))
	}
	for _, entry := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("read embedded %s: %v", entry.Name(), err))
		}
		doc, err := jsonx.DecodeAny(raw)
		if err != nil {
			panic(fmt.Sprintf("parse embedded %s: %v", entry.Name(), err))
		}
		if err := compiler.AddResource(entry.Name(), doc); err != nil {
			panic(fmt.Sprintf("add %s resource: %v", entry.Name(), err))
		}
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return schema
}

// validateBody checks the raw body against schema and returns a validation
// error listing every violation.
func validateBody(schema *jsonschema.Schema, body []byte) error {
	doc, err := jsonx.DecodeAny(body)
	if err != nil {
		return askerrors.NewValidationError(fmt.Errorf("decode body: %w", err), "request body must be a single JSON object")
	}
	err = schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return askerrors.NewValidationError(err, "request body does not match schema")
	}
	var issues []string
	collectSchemaErrors(ve, &issues)
	return askerrors.NewValidationError(err, "invalid request: "+strings.Join(issues, "; "))
}

func collectSchemaErrors(ve *jsonschema.ValidationError, issues *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*issues = append(*issues, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaErrors(cause, issues)
	}
}
