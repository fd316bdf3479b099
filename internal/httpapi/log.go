package httpapi

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"

	"arfa/internal/logging"
)

// httpLog is assigned once in NewRouter. Helpers tolerate nil so tests can
// exercise handlers without wiring a logger.
var httpLog *logging.Logger

func logError(ctx context.Context, msg string, err error) {
	if err == nil || httpLog == nil {
		return
	}
	ev := httpLog.Error().Err(err)
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		ev = ev.Str("req_id", reqID)
	}
	ev.Msg(msg)
}

func logMsg(ctx context.Context, msg string) {
	if httpLog == nil {
		return
	}
	ev := httpLog.Warn()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		ev = ev.Str("req_id", reqID)
	}
	ev.Msg(msg)
}
