package task

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/rickchristie/gentask"
)

//go:embed templates/json_output.tmpl
var jsonOutputTemplateContent string

var jsonOutputTemplate = template.Must(template.New("json_output").Parse(jsonOutputTemplateContent))

// JSONOutputData is the data passed to the JSON output directive template.
type JSONOutputData struct {
	// Fields is the field list: free text for StringSchema, a JSON array otherwise.
	Fields string

	// Properties is the per-field property map. Only set for TypedSchema.
	Properties string
}

// JSONOutputPrompt renders the directive that asks the model to answer with a JSON
// object shaped by schema.
func JSONOutputPrompt(schema gentask.OutputSchema) (string, error) {
	data := JSONOutputData{Fields: schema.FieldList()}
	if props, ok := schema.FieldProperties(); ok {
		data.Properties = props
	}

	var buf bytes.Buffer
	if err := jsonOutputTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: json output template: %v", gentask.ErrPromptConstruction, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
