package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"arfa/internal/archive"
	"arfa/internal/config"
	"arfa/internal/db"
	"arfa/internal/logging"
	"arfa/internal/store"
)

const archivePageSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(nil, "info").Fatal().Err(err).Msg("load config")
	}
	log := logging.New(nil, cfg.LogLevel).Sub("worker")

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	st := store.NewPostgres(pool)

	objects, err := archive.NewObjectStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open archive store")
	}
	archiver := archive.NewArchiver(objects)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Duration(cfg.WorkerTickSeconds) * time.Second)
	defer ticker.Stop()

	log.Info().Int("tick_seconds", cfg.WorkerTickSeconds).Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker stopping")
			return
		case <-ticker.C:
			runHousekeeping(ctx, log, st, archiver, cfg.ActivityRetentionDays)
		}
	}
}

func runHousekeeping(ctx context.Context, log *logging.Logger, st store.Store, archiver *archive.Archiver, retentionDays int) {
	if n, err := st.ExpireOverdueInvitations(ctx); err != nil {
		log.Error().Err(err).Msg("expire invitations")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("invitations expired")
	}

	if n, err := st.DeleteExpiredSessions(ctx); err != nil {
		log.Error().Err(err).Msg("delete expired sessions")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("sessions deleted")
	}

	if n, err := st.DeleteExpiredPasswordResetTokens(ctx); err != nil {
		log.Error().Err(err).Msg("delete expired reset tokens")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("reset tokens deleted")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	if err := archiveOldActivity(ctx, log, st, archiver, cutoff); err != nil {
		log.Error().Err(err).Msg("archive activity logs")
	}
}

type archiveGroup struct {
	orgID uuid.UUID
	day   string
}

// archiveOldActivity copies logs past the retention cutoff to object storage
// grouped per org and UTC day, then prunes them from the database. Logs are
// only deleted after every group they belong to was written.
func archiveOldActivity(ctx context.Context, log *logging.Logger, st store.Store, archiver *archive.Archiver, cutoff time.Time) error {
	logs, err := st.ListActivityLogsBefore(ctx, cutoff, archivePageSize)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return nil
	}

	groups := map[archiveGroup][]any{}
	days := map[archiveGroup]time.Time{}
	var newest time.Time
	for _, l := range logs {
		day := l.CreatedAt.UTC().Truncate(24 * time.Hour)
		g := archiveGroup{orgID: l.OrgID, day: day.Format("2006-01-02")}
		groups[g] = append(groups[g], l)
		days[g] = day
		if l.CreatedAt.After(newest) {
			newest = l.CreatedAt
		}
	}
	if len(logs) == archivePageSize {
		// A full page may have left older rows unlisted. Only prune up to the
		// newest archived row and let the next tick take the rest.
		cutoff = newest
	}

	for g, records := range groups {
		key, err := archiver.AppendBatch(ctx, g.orgID, days[g], records)
		if err != nil {
			return err
		}
		log.Info().Str("key", key).Int("records", len(records)).Msg("activity batch archived")
	}

	deleted, err := st.DeleteActivityLogsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	log.Info().Int64("count", deleted).Msg("activity logs pruned")
	return nil
}
