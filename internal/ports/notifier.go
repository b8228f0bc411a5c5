package ports

import "context"

// Notifier delivers human-readable system messages. Delivery is best-effort;
// callers log failures and continue with other recipients.
type Notifier interface {
	SendSystemMessage(ctx context.Context, userID, text, category string) error
}
