// internal/workers/lifecycle/notify-resident/templates.go
package notifyresident

import (
	"fmt"
	"strings"

	"barangay-portal/internal/models"
)

type template struct {
	Subject string
	Body    string
}

var templates = map[string]template{
	models.EventSubmitted: {
		Subject: "We received your {{resourceLabel}} ({{serviceId}})",
		Body:    "Your {{resourceLabel}} {{serviceId}} was received and is now pending review. {{summary}}",
	},
	models.EventStatusChanged: {
		Subject: "Update on {{serviceId}}: {{statusLabel}}",
		Body:    "Your {{resourceLabel}} {{serviceId}} is now {{statusLabel}}. {{comment}}",
	},
	models.EventCancelled: {
		Subject: "{{serviceId}} was cancelled",
		Body:    "Your {{resourceLabel}} {{serviceId}} was cancelled. {{comment}}",
	},
	models.EventRoleChanged: {
		Subject: "Your portal account was updated",
		Body:    "Your account role is now {{toStatus}}. Please sign in again.",
	},
	models.EventContactReceived: {
		Subject: "Contact form: {{subject}}",
		Body:    "From {{name}} <{{email}}> {{phone}}\n\n{{message}}",
	},
}

var resourceLabels = map[string]string{
	"proposal":  "project proposal",
	"ambulance": "ambulance booking",
	"court":     "court reservation",
	"document":  "document request",
}

// renderTemplate replaces {{key}} placeholders and drops any left unresolved.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return strings.TrimSpace(result)
}
