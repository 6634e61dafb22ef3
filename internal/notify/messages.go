package notify

import (
	"fmt"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

func ChatText(ev stages.Event) string {
	return fmt.Sprintf("📦 Order #%s has progressed to \"%s\" stage at %s", ev.OrderID, ev.StageName, ev.Timestamp)
}

func EmailSubject(ev stages.Event) string {
	return fmt.Sprintf("Order #%s - %s Timestamp Created", ev.OrderID, ev.StageName)
}

func EmailText(ev stages.Event) string {
	text := fmt.Sprintf("Order #%s has reached the \"%s\" stage at %s.", ev.OrderID, ev.StageName, ev.Timestamp)
	if ev.Staff != "" {
		text += fmt.Sprintf("\nUpdated by: %s", ev.Staff)
	}
	return text
}
