package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"market-insight-be/internal/bootstrap"
	"market-insight-be/internal/config"
	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/internal/repository/memory"
	"market-insight-be/internal/service"
	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/events"
	"market-insight-be/pkg/strategy"
	"market-insight-be/pkg/strategy/source"

	pktNats "market-insight-be/pkg/nats"

	"github.com/fatih/color"
)

func main() {
	owner := flag.String("owner", "", "user id whose strategies are inspected")
	token := flag.String("token", os.Getenv("INSPECT_TOKEN"), "bearer token for the remote store")
	follow := flag.Bool("follow", false, "after the report, tail lifecycle events from NATS")
	flag.Parse()

	if *owner == "" {
		log.Fatal("Error: -owner is required")
	}

	cfg := config.Load()
	nop := logger.NewNopLogger()

	cacheRepo, closer, err := bootstrap.NewLocalCacheRepository(cfg, nop)
	if err != nil {
		log.Fatal("Error: ", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	svc := service.NewStrategyService(
		draftstore.NewClient(cfg.Store.BaseURL, cfg.Store.Timeout),
		cacheRepo,
		memory.NewWorkspaceRepository(time.Minute),
		source.NewGeneratedBatch(nil, nil, 0, nop),
		nil,
		nop,
	)

	ctx := draftstore.WithAuthToken(context.Background(), *token)
	color.Cyan("🔍 Reconciling strategies for %s (cache: %s)\n", *owner, cfg.Cache.Backend)

	report, err := svc.Inspect(ctx, *owner)
	if err != nil {
		log.Fatal("Error: ", err)
	}
	printReport(report)

	if *follow {
		if err := tail(cfg.App.NatsURL, *owner); err != nil {
			log.Fatal("Error: ", err)
		}
	}
}

func printReport(r *service.ReconcileReport) {
	fmt.Printf("Local cache: %d records, remote store: %d records\n", r.LocalCount, r.RemoteCount)
	if r.RemoteErr != nil {
		color.Red("Remote store unavailable: %v", r.RemoteErr)
	}
	if r.PruneSkipped {
		color.Yellow("No token given: remote deletions were not checked")
	}
	if len(r.PrunedStoreIds) > 0 {
		color.Yellow("Pruned (deleted remotely): %s", strings.Join(r.PrunedStoreIds, ", "))
	}

	color.Yellow("\n─ CANONICAL COLLECTION (%d) ─", len(r.Records))
	strategy.SortBySavedAt(r.Records, true)
	for _, rec := range r.Records {
		line := fmt.Sprintf("%-12s %-10s %-28s client=%s store=%s progress=%d",
			rec.State(), rec.Type, rec.Name, rec.ClientId, orDash(rec.StoreId), rec.Progress)
		switch rec.State() {
		case entity.StateImplemented:
			color.Green("%s", line)
		case entity.StatePersisted:
			fmt.Println(line)
		default:
			color.HiBlack("%s", line)
		}
	}

	failures := append(append([]*strategy.ParseFailure(nil), r.LocalFailures...), r.RemoteFailures...)
	if len(failures) == 0 {
		return
	}
	color.Yellow("\n─ SKIPPED PAYLOADS (%d) ─", len(failures))
	for _, f := range failures {
		if f.Benign() {
			color.HiBlack("%s", f.Error())
			continue
		}
		color.Red("%s", f.Error())
	}
}

func tail(natsURL, owner string) error {
	if natsURL == "" {
		return fmt.Errorf("NATS_URL is not set")
	}
	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subject := pktNats.Subject(">")
	color.Cyan("\n📡 Following %s (Ctrl+C to stop)", subject)
	err = sub.Subscribe(ctx, subject, "", func(_ context.Context, ev events.Event) error {
		data := ev.Payload()
		if !strings.HasPrefix(ev.EventType(), "STRATEGY_") || data["owner"] != owner {
			return nil
		}
		color.Magenta("%s %-22s %v %v", ev.Timestamp().Format(time.RFC3339), ev.EventType(), data["client_id"], data["name"])
		return nil
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
