package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "recipes-api"

// InitSentry is a no-op when dsn is empty so local runs need no account.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		ServerName:       serviceName,
		AttachStacktrace: true,
	})
}

// CaptureError reports err on the hub bound to ctx, or the global hub.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
