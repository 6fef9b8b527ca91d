package handlers

import (
	_ "embed"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

//go:embed openapi.json
var openAPIDocument []byte

const swaggerUIPage = `<!DOCTYPE html>
<html>
<head>
<link type="text/css" rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
<title>%s</title>
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
const ui = SwaggerUIBundle({
    url: '%s',
    dom_id: '#swagger-ui',
    layout: 'BaseLayout',
    deepLinking: true,
    showExtensions: true,
    showCommonExtensions: true,
    presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
})
</script>
</body>
</html>
`

// DocsHandler serves the API description.
type DocsHandler struct {
	title   string
	specURL string
}

// NewDocsHandler constructs handler.
func NewDocsHandler(title, specURL string) *DocsHandler {
	return &DocsHandler{title: title, specURL: specURL}
}

// SwaggerUI handles GET /api/docs.
func (h *DocsHandler) SwaggerUI(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(fmt.Sprintf(swaggerUIPage, h.title, h.specURL))
}

// OpenAPI handles GET /api/openapi.json.
func (h *DocsHandler) OpenAPI(c *fiber.Ctx) error {
	c.Type("json")
	return c.Send(openAPIDocument)
}
