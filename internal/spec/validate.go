package spec

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-openapi/jsonpointer"

	"github.com/mark3labs/oas2ir/internal/logging"
)

// validateDocument runs kin-openapi validation over a bundled document.
// OpenAPI 3.1 documents are skipped since kin-openapi only understands 3.0.
func validateDocument(ctx context.Context, doc *Document, logger logging.Logger) error {
	if strings.HasPrefix(doc.Version(), "3.1") {
		logger.Warning("skipping validation of %s: OpenAPI %s is not supported by the validator", doc.Location, doc.Version())
		return nil
	}
	data, err := json.Marshal(doc.Root)
	if err != nil {
		return &SpecError{Code: ParseError, Message: err.Error(), Location: doc.Location, Cause: err}
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	t, err := loader.LoadFromData(data)
	if err != nil {
		return mapValidateOrParseErr(err, doc.Location)
	}
	if err := t.Validate(ctx); err != nil {
		if !canProceedDespiteValidation(err) {
			return mapValidateOrParseErr(err, doc.Location)
		}
		logger.Warning("validation: %v", err)
	}
	return nil
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	// Some loader errors are really parse errors.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	// Take the first of a MultiError for brevity.
	var me openapi3.MultiError
	if errors.As(err, &me) && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			escaped := make([]string, len(parts))
			for i, p := range parts {
				escaped[i] = jsonpointer.Escape(p)
			}
			return "#/" + strings.Join(escaped, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}

// canProceedDespiteValidation returns true for validation errors that do not
// prevent building: unresolved $ref complaints, and the duplicate operation
// ids and optional path parameters that normalization repairs.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	var me openapi3.MultiError
	if errors.As(err, &me) && len(me) > 0 {
		for _, e := range me {
			if !canProceedDespiteValidation(e) {
				return false
			}
		}
		return true
	}
	s := strings.ToLower(err.Error())
	for _, benign := range []string{"unresolved ref", "same operation id", "must be required"} {
		if strings.Contains(s, benign) {
			return true
		}
	}
	return false
}
