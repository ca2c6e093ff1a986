package validation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Document types accepted by POST /documents.
const (
	DocFencingPermit          = "fencing_permit"
	DocObjectionCertificate   = "objection_certificate"
	DocBarangayClearance      = "barangay_clearance"
	DocCertificateOfResidency = "certificate_of_residency"
	DocCertificateOfIndigency = "certificate_of_indigency"
	DocBusinessClearance      = "business_clearance"
)

var documentSchemas = map[string]string{
	DocFencingPermit: `{
		"type": "object",
		"required": ["taxDeclarationNumber", "propertyIdentificationNumber", "propertyArea", "areaUnit"],
		"additionalProperties": false,
		"properties": {
			"taxDeclarationNumber": {"type": "string", "minLength": 1},
			"propertyIdentificationNumber": {"type": "string", "minLength": 1},
			"propertyArea": {"type": "number", "minimum": 0.01},
			"areaUnit": {"type": "string", "enum": ["square_meters", "hectares"]}
		}
	}`,
	DocObjectionCertificate: `{
		"type": "object",
		"required": ["objectorName", "propertyAddress", "objectionDetails"],
		"properties": {
			"objectorName": {"type": "string", "minLength": 1},
			"propertyAddress": {"type": "string", "minLength": 1},
			"respondentName": {"type": "string"},
			"objectionDetails": {"type": "string", "minLength": 10}
		}
	}`,
	DocBarangayClearance: `{
		"type": "object",
		"required": ["fullName", "address", "civilStatus"],
		"properties": {
			"fullName": {"type": "string", "minLength": 1},
			"address": {"type": "string", "minLength": 1},
			"civilStatus": {"type": "string", "enum": ["single", "married", "widowed", "separated"]},
			"yearsOfResidency": {"type": "integer", "minimum": 0}
		}
	}`,
	DocCertificateOfResidency: `{
		"type": "object",
		"required": ["fullName", "address", "yearsOfResidency"],
		"properties": {
			"fullName": {"type": "string", "minLength": 1},
			"address": {"type": "string", "minLength": 1},
			"yearsOfResidency": {"type": "integer", "minimum": 0}
		}
	}`,
	DocCertificateOfIndigency: `{
		"type": "object",
		"required": ["fullName", "address", "monthlyIncome"],
		"properties": {
			"fullName": {"type": "string", "minLength": 1},
			"address": {"type": "string", "minLength": 1},
			"monthlyIncome": {"type": "number", "minimum": 0},
			"householdSize": {"type": "integer", "minimum": 1}
		}
	}`,
	DocBusinessClearance: `{
		"type": "object",
		"required": ["businessName", "ownerName", "businessAddress", "natureOfBusiness"],
		"properties": {
			"businessName": {"type": "string", "minLength": 1},
			"ownerName": {"type": "string", "minLength": 1},
			"businessAddress": {"type": "string", "minLength": 1},
			"natureOfBusiness": {"type": "string", "minLength": 1}
		}
	}`,
}

var (
	compileOnce     sync.Once
	compiledSchemas map[string]*gojsonschema.Schema
	compileErr      error
)

func compiled() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchemas = make(map[string]*gojsonschema.Schema, len(documentSchemas))
		for docType, raw := range documentSchemas {
			s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
			if err != nil {
				compileErr = fmt.Errorf("compile %s schema: %w", docType, err)
				return
			}
			compiledSchemas[docType] = s
		}
	})
	return compiledSchemas, compileErr
}

// DocumentTypes lists the supported document types in stable order.
func DocumentTypes() []string {
	out := make([]string, 0, len(documentSchemas))
	for k := range documentSchemas {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsDocumentType reports whether docType has a registered schema.
func IsDocumentType(docType string) bool {
	_, ok := documentSchemas[docType]
	return ok
}

// ValidateFormData checks formData against the schema of docType.
func ValidateFormData(docType string, formData map[string]interface{}) (*ValidationResult, error) {
	schemas, err := compiled()
	if err != nil {
		return nil, err
	}
	schema, ok := schemas[docType]
	if !ok {
		return &ValidationResult{Errors: []ValidationError{{
			Field: "documentType", Message: "Unsupported document type", Code: CodeInvalidEnum,
		}}}, nil
	}
	if formData == nil {
		formData = map[string]interface{}{}
	}

	res, err := schema.Validate(gojsonschema.NewGoLoader(formData))
	if err != nil {
		return nil, fmt.Errorf("validate %s form data: %w", docType, err)
	}

	out := &ValidationResult{Valid: res.Valid()}
	for _, e := range res.Errors() {
		field := e.Field()
		code := CodeInvalidValue
		if e.Type() == "required" {
			if p, ok := e.Details()["property"].(string); ok {
				field = p
			}
			code = CodeRequired
		}
		out.Errors = append(out.Errors, ValidationError{Field: field, Message: e.Description(), Code: code})
	}
	return out, nil
}
