package nakama

import (
	"context"
	"fmt"

	"pong/internal/ports"
)

// notificationCode is the Nakama notification code for system messages.
const notificationCode = 1

// notifierAPI is the slice of runtime.NakamaModule the notifier uses.
type notifierAPI interface {
	NotificationSend(ctx context.Context, userID, subject string, content map[string]interface{}, code int, sender string, persistent bool) error
}

// NakamaNotifierAdapter delivers system messages as persistent Nakama
// notifications.
type NakamaNotifierAdapter struct {
	nk notifierAPI
}

// NewNakamaNotifierAdapter creates a new notifier adapter.
func NewNakamaNotifierAdapter(nk notifierAPI) *NakamaNotifierAdapter {
	return &NakamaNotifierAdapter{nk: nk}
}

func (a *NakamaNotifierAdapter) SendSystemMessage(ctx context.Context, userID, text, category string) error {
	content := map[string]interface{}{
		"message":  text,
		"category": category,
	}
	if err := a.nk.NotificationSend(ctx, userID, text, content, notificationCode, "", true); err != nil {
		return fmt.Errorf("failed to send notification to %s: %w", userID, err)
	}
	return nil
}

var _ ports.Notifier = (*NakamaNotifierAdapter)(nil)
