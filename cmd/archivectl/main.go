// archivectl is an operator tool for the activity log archive: inspect
// archived batches, issue scoped read credentials and manage bucket
// lifecycle rules.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"

	"arfa/internal/archive"
	"arfa/internal/config"
	"arfa/internal/logging"
)

func main() {
	var (
		listDays  = flag.Bool("list", false, "List archived days for an organization")
		catDay    = flag.Bool("cat", false, "Print one day's archived log lines")
		creds     = flag.Bool("creds", false, "Issue temporary read-only archive credentials")
		lifecycle = flag.Bool("lifecycle", false, "Apply bucket lifecycle expiry for archived logs (aliyun only)")

		orgFlag      = flag.String("org", "", "Organization id")
		dayFlag      = flag.String("day", "", "UTC day, e.g. 2026-08-01")
		limitFlag    = flag.Int("limit", 100, "Max keys to list")
		durationSecs = flag.Int("duration", 900, "Credential lifetime in seconds")
		expireDays   = flag.Int("days", 365, "Lifecycle expiry in days for activity/ objects")
	)
	flag.Parse()

	log := logging.New(nil, "info").Sub("archivectl")

	cfg, err := config.LoadArchive()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	switch {
	case *listDays:
		runList(ctx, log, cfg, *orgFlag, *limitFlag)
	case *catDay:
		runCat(ctx, log, cfg, *orgFlag, *dayFlag)
	case *creds:
		runCreds(ctx, log, cfg, *durationSecs)
	case *lifecycle:
		runLifecycle(log, cfg, *expireDays)
	default:
		log.Fatal().Msg("no action specified (use -list, -cat, -creds or -lifecycle)")
	}
}

func mustOrg(log *logging.Logger, raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Fatal().Str("org", raw).Msg("invalid or missing -org")
	}
	return id
}

func openArchiver(log *logging.Logger, cfg config.Config) *archive.Archiver {
	store, err := archive.NewObjectStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open archive store")
	}
	return archive.NewArchiver(store)
}

func runList(ctx context.Context, log *logging.Logger, cfg config.Config, org string, limit int) {
	archiver := openArchiver(log, cfg)
	keys, err := archiver.ListDays(ctx, mustOrg(log, org), limit)
	if err != nil {
		log.Fatal().Err(err).Msg("list archived days")
	}
	for _, k := range keys {
		fmt.Println(k)
	}
}

func runCat(ctx context.Context, log *logging.Logger, cfg config.Config, org, day string) {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		log.Fatal().Str("day", day).Msg("invalid or missing -day, expected YYYY-MM-DD")
	}
	archiver := openArchiver(log, cfg)
	lines, err := archiver.ReadBatch(ctx, mustOrg(log, org), d)
	if err != nil {
		log.Fatal().Err(err).Msg("read archived batch")
	}
	for _, line := range lines {
		fmt.Println(string(line))
	}
}

func runCreds(ctx context.Context, log *logging.Logger, cfg config.Config, durationSecs int) {
	assumer, err := archive.NewSTSAssumer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build sts assumer")
	}
	hostname, _ := os.Hostname()
	c, err := assumer.AssumeRole(ctx, "archivectl-"+hostname, durationSecs)
	if err != nil {
		log.Fatal().Err(err).Msg("assume role")
	}
	fmt.Printf("access_key_id:     %s\n", c.AccessKeyID)
	fmt.Printf("access_key_secret: %s\n", c.AccessKeySecret)
	fmt.Printf("security_token:    %s\n", c.SecurityToken)
	fmt.Printf("expiration:        %s\n", c.Expiration)
}

// runLifecycle merges an expiry rule for archived activity logs into the
// bucket's lifecycle config, preserving rules it does not own.
func runLifecycle(log *logging.Logger, cfg config.Config, expireDays int) {
	if cfg.ArchiveProvider != "aliyun" {
		log.Fatal().Str("provider", cfg.ArchiveProvider).Msg("lifecycle rules require the aliyun provider")
	}
	if expireDays < 1 || expireDays > 3650 {
		log.Fatal().Int("days", expireDays).Msg("invalid -days")
	}

	client, err := oss.New(cfg.ArchiveEndpoint, cfg.ArchiveAccessKeyID, cfg.ArchiveAccessKeySecret)
	if err != nil {
		log.Fatal().Err(err).Msg("oss client")
	}

	existing, err := client.GetBucketLifecycle(cfg.ArchiveBucket)
	if err != nil {
		var srvErr oss.ServiceError
		if errors.As(err, &srvErr) && srvErr.StatusCode == 404 {
			existing = oss.GetBucketLifecycleResult{}
		} else {
			log.Fatal().Err(err).Msg("get lifecycle")
		}
	}

	const ruleID = "arfa_activity_expire"
	rules := make([]oss.LifecycleRule, 0, len(existing.Rules)+1)
	for _, r := range existing.Rules {
		if r.ID == ruleID {
			continue
		}
		rules = append(rules, r)
	}

	prefix := archive.JoinKey(cfg.ArchiveBasePrefix, "activity/")
	rules = append(rules, oss.LifecycleRule{
		ID:     ruleID,
		Prefix: prefix,
		Status: "Enabled",
		Expiration: &oss.LifecycleExpiration{
			Days: expireDays,
		},
	})

	if err := client.SetBucketLifecycle(cfg.ArchiveBucket, rules); err != nil {
		log.Fatal().Err(err).Msg("set lifecycle")
	}
	log.Info().Str("prefix", prefix).Int("days", expireDays).Msg("lifecycle rule applied")
}
