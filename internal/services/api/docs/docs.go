// Package docs registers the OpenAPI document for the shell's REST api.
// openapi.json sits beside the routes it describes and changes with them
package docs

import (
	_ "embed"

	"github.com/swaggo/swag/v2"
)

//go:embed openapi.json
var docTemplate string

// SwaggerInfo holds the exported document info
var SwaggerInfo = &swag.Spec{
	Version:          "dev",
	Title:            "JAGAPADI Shell API",
	Description:      "Local control surface for the pest detection shell",
	InfoInstanceName: "api",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
