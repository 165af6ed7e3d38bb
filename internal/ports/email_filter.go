package ports

import (
	"context"

	"github.com/mikey/email-onebox/internal/core"
)

// EmailFilter classifies a single message outside the sync loop
type EmailFilter interface {
	// ProcessEmail labels msg and reports the result
	ProcessEmail(ctx context.Context, msg core.Message) (core.Label, error)
}
