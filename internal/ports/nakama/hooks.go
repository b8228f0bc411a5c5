package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthenticateDevice is triggered after an account is authenticated.
// New accounts get their competitive stats record seeded at the default
// rating so the matchmaking sweep has a rating to pair on.
func AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if !out.Created {
		return nil
	}
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		logger.Warn("AfterAuthenticateDevice: No user id in context for new account.")
		return nil
	}

	stats := &statsRecord{Rating: defaultRating}
	if err := writeOne(ctx, nk, statsCollection, userID, stats, "*"); err != nil {
		// The record may already exist if the client retried; not an error.
		logger.Debug("AfterAuthenticateDevice: Stats record for %s not seeded: %v", userID, err)
		return nil
	}
	logger.Info("AfterAuthenticateDevice: Seeded stats for new user %s", userID)
	return nil
}
