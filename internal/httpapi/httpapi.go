package httpapi

import (
	"time"

	"arfa/internal/auth"
	"arfa/internal/logging"
	"arfa/internal/store"
)

type Deps struct {
	Store store.Store
	JWT   *auth.JWT
	Log   *logging.Logger

	SessionTTL         time.Duration
	InviteExpiry       time.Duration
	InviteDailyLimit   int
	ResetTokenTTL      time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
}
