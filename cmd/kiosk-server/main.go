// Command kiosk-server runs the checkout settlement API for the in-store
// kiosks: menu listing, order registration, payment initiation and
// verification, and receipt issuing.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/quickserve/kiosk/internal/app"
)

func main() {
	// app.Run owns the process lifecycle (signals, telemetry, root logger);
	// everything kiosk-specific happens inside appkg.Run.
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		return appkg.Run(ctx, lg, m, cfg)
	})
}
