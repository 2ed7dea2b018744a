package notifier

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"
)

const notificationSubject = "Action Required for Request"

//go:embed notification.html.tmpl
var notificationTemplate string

var notificationTmpl = template.Must(template.New("notification").Parse(notificationTemplate))

type notificationData struct {
	Ticket string
}

// renderNotification builds the HTML body announcing that ticket needs action.
func renderNotification(ticket string) (string, error) {
	var sb strings.Builder
	if err := notificationTmpl.Execute(&sb, notificationData{Ticket: ticket}); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return sb.String(), nil
}

func renderNotificationText(ticket string) string {
	return "Your action is needed for request " + ticket
}
