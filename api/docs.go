package api

import _ "embed"

// OpenAPISpec describes the public HTTP surface and backs the /docs UI.
//
//go:embed openapi.json
var OpenAPISpec []byte
