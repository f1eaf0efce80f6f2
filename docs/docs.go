// Package docs embeds the OpenAPI document of the link API.
package docs

import _ "embed"

//go:embed swagger.yml
var Swagger []byte
