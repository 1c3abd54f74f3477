// Package api carries the OpenAPI description served under /docs.
package api

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
