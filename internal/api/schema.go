// internal/api/schema.go
package api

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// webhookSchema constrains mini-app lifecycle events before any of them touch
// the store. notificationDetails is only present on the enabling events, so it
// is optional here and checked per-event in the handler.
const webhookSchema = `{
	"type": "object",
	"required": ["event", "fid"],
	"properties": {
		"event": {
			"type": "string",
			"enum": ["miniapp_added", "miniapp_removed", "notifications_enabled", "notifications_disabled"]
		},
		"fid": {"type": "integer", "minimum": 1},
		"notificationDetails": {
			"type": "object",
			"required": ["token", "url"],
			"properties": {
				"token": {"type": "string", "minLength": 1},
				"url": {"type": "string", "minLength": 1}
			}
		}
	}
}`

var webhookSchemaLoader = gojsonschema.NewStringLoader(webhookSchema)

func validateWebhookPayload(body []byte) error {
	result, err := gojsonschema.Validate(webhookSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("webhook validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("webhook payload invalid: %s", strings.Join(errs, "; "))
	}

	return nil
}
