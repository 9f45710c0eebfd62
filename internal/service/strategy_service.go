// FILE: internal/service/strategy_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"market-insight-be/internal/dto"
	"market-insight-be/internal/entity"
	"market-insight-be/internal/mapper"
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/internal/repository/contract"
	"market-insight-be/internal/repository/memory"
	"market-insight-be/pkg/events"
	"market-insight-be/pkg/strategy"
	"market-insight-be/pkg/strategy/source"

	"golang.org/x/sync/errgroup"
)

const strategyModule = "STRATEGY_SERVICE"

// DraftStore is what the service needs from the remote analysis store.
type DraftStore interface {
	strategy.RemoteStore
	source.DraftLister
}

type IStrategyService interface {
	Load(ctx context.Context, owner string, sortBySavedAt bool) ([]*dto.StrategyResponse, error)
	Generate(ctx context.Context, owner string, req *dto.GenerateStrategiesRequest) (*dto.GenerateStrategiesResponse, error)
	Create(ctx context.Context, owner string, req *dto.CreateStrategyRequest) (*dto.StrategyResponse, error)
	SaveDraft(ctx context.Context, owner, clientId string, req *dto.UpdateStrategyRequest) (*dto.StrategyResponse, error)
	Edit(ctx context.Context, owner, clientId string, req *dto.UpdateStrategyRequest) (*dto.StrategyResponse, error)
	Implement(ctx context.Context, owner, clientId string) (*dto.StrategyResponse, error)
	Delete(ctx context.Context, owner, clientId string) error
	Inspect(ctx context.Context, owner string) (*ReconcileReport, error)
}

// ReconcileReport is one read-only reconciliation pass.
type ReconcileReport struct {
	Records        []entity.StrategyRecord
	LocalCount     int
	RemoteCount    int
	LocalFailures  []*strategy.ParseFailure
	RemoteFailures []*strategy.ParseFailure
	RemoteErr      error
	PrunedStoreIds []string
	// the listing was unauthenticated, so nothing was pruned
	PruneSkipped bool
}

type strategyService struct {
	store      DraftStore
	cacheRepo  contract.LocalCacheRepository
	workspaces *memory.WorkspaceRepository
	generated  *source.GeneratedBatch
	publisher  IPublisherService
	mapper     *mapper.StrategyMapper
	logger     logger.ILogger
	now        func() time.Time
}

func NewStrategyService(
	store DraftStore,
	cacheRepo contract.LocalCacheRepository,
	workspaces *memory.WorkspaceRepository,
	generated *source.GeneratedBatch,
	publisher IPublisherService,
	log logger.ILogger,
) IStrategyService {
	return &strategyService{
		store:      store,
		cacheRepo:  cacheRepo,
		workspaces: workspaces,
		generated:  generated,
		publisher:  publisher,
		mapper:     mapper.NewStrategyMapper(),
		logger:     log,
		now:        time.Now,
	}
}

// Load reconciles the owner's in-memory collection with the remote store
// and the local cache, and returns the canonical collection.
func (s *strategyService) Load(ctx context.Context, owner string, sortBySavedAt bool) ([]*dto.StrategyResponse, error) {
	coord, fresh, err := s.workspace(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !fresh {
		// let pending writes land before the store is read back
		coord.Wait()
		coord.RetryDeletes(ctx)
		inMemory, version := coord.Snapshot()
		report := s.reconcile(ctx, owner, inMemory)
		if !coord.ReplaceIf(ctx, report.Records, version) {
			s.logger.Debug(strategyModule, "Collection changed during reload, keeping current state", map[string]interface{}{
				"owner": owner,
			})
		}
	}

	records := coord.All()
	if sortBySavedAt {
		strategy.SortBySavedAt(records, true)
	}
	return s.mapper.ToResponses(records), nil
}

// Generate asks the generator for strategies about one dataset, falling
// back to the fixed set on any failure, and auto-saves every result.
func (s *strategyService) Generate(ctx context.Context, owner string, req *dto.GenerateStrategiesRequest) (*dto.GenerateStrategiesResponse, error) {
	coord, _, err := s.workspace(ctx, owner)
	if err != nil {
		return nil, err
	}

	dataset := entity.DatasetRef{Id: req.DataId, Name: req.DataName, Type: req.DataType}
	if dataset.Name == "" {
		dataset.Name = strategy.UnknownDatasetName
	}
	batch := s.generated.Produce(ctx, dataset)
	if batch.UsingFallback {
		s.notice(ctx, owner, entity.NoticeFallbackUsed, "", fmt.Sprintf("AI generation unavailable, showing template strategies: %v", batch.Cause))
	}

	created := make([]entity.StrategyRecord, 0, len(batch.Records))
	for _, rec := range batch.Records {
		snapshot, err := coord.Create(ctx, rec)
		if err != nil {
			s.logger.Warn(strategyModule, "Dropped generated strategy", map[string]interface{}{
				"owner": owner,
				"name":  rec.Name,
				"error": err.Error(),
			})
			continue
		}
		created = append(created, snapshot)
	}

	s.logger.Info(strategyModule, "Strategies generated", map[string]interface{}{
		"owner":          owner,
		"dataset_id":     dataset.Id,
		"count":          len(created),
		"using_fallback": batch.UsingFallback,
	})
	return &dto.GenerateStrategiesResponse{
		Strategies:    s.mapper.ToResponses(created),
		UsingFallback: batch.UsingFallback,
		Warning:       batch.Warning,
	}, nil
}

func (s *strategyService) Create(ctx context.Context, owner string, req *dto.CreateStrategyRequest) (*dto.StrategyResponse, error) {
	coord, _, err := s.workspace(ctx, owner)
	if err != nil {
		return nil, err
	}
	rec := s.mapper.FromCreateRequest(req)
	if rec.ClientId == "" {
		rec.ClientId = strategy.NewClientID(s.now(), 0)
	}
	snapshot, err := coord.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(snapshot), nil
}

func (s *strategyService) SaveDraft(ctx context.Context, owner, clientId string, req *dto.UpdateStrategyRequest) (*dto.StrategyResponse, error) {
	coord, _, err := s.workspace(ctx, owner)
	if err != nil {
		return nil, err
	}
	snapshot, err := coord.Update(ctx, clientId, s.mapper.ToPatch(req))
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(snapshot), nil
}

func (s *strategyService) Edit(ctx context.Context, owner, clientId string, req *dto.UpdateStrategyRequest) (*dto.StrategyResponse, error) {
	coord, _, err := s.workspace(ctx, owner)
	if err != nil {
		return nil, err
	}
	snapshot, err := coord.Edit(ctx, clientId, s.mapper.ToPatch(req))
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(snapshot), nil
}

func (s *strategyService) Implement(ctx context.Context, owner, clientId string) (*dto.StrategyResponse, error) {
	coord, _, err := s.workspace(ctx, owner)
	if err != nil {
		return nil, err
	}
	snapshot, err := coord.Implement(ctx, clientId)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(snapshot), nil
}

func (s *strategyService) Delete(ctx context.Context, owner, clientId string) error {
	coord, _, err := s.workspace(ctx, owner)
	if err != nil {
		return err
	}
	return coord.Delete(ctx, clientId)
}

// Inspect runs one reconciliation pass without touching any workspace or slot.
func (s *strategyService) Inspect(ctx context.Context, owner string) (*ReconcileReport, error) {
	coord, ok := s.workspaces.Get(owner)
	if !ok {
		return s.reconcile(ctx, owner, nil), nil
	}
	report := s.reconcile(ctx, owner, coord.All())
	report.Records = coord.WithoutDeleted(report.Records)
	return report, nil
}

// workspace returns the owner's coordinator; fresh is true when it was just
// built and loaded, by this call or a concurrent one it waited on.
func (s *strategyService) workspace(ctx context.Context, owner string) (*strategy.Coordinator, bool, error) {
	if owner == "" {
		return nil, false, fmt.Errorf("%w: missing owner", strategy.ErrInvalidRecord)
	}
	if coord, ok := s.workspaces.Get(owner); ok {
		return coord, false, nil
	}

	return s.workspaces.GetOrCreate(owner, func() (*strategy.Coordinator, error) {
		local := source.NewLocalCache(s.cacheRepo, owner, s.logger)
		c := strategy.NewCoordinator(owner, s.store, local, &lifecycleObserver{svc: s}, s.logger)
		report := s.reconcile(ctx, owner, nil)
		c.Replace(ctx, report.Records)
		return c, nil
	})
}

// reconcile fetches the local slot and the remote listing concurrently and
// merges them with the in-memory records. When an authenticated listing
// succeeds, records whose store id it no longer has are pruned: they were
// deleted remotely.
func (s *strategyService) reconcile(ctx context.Context, owner string, inMemory []entity.StrategyRecord) *ReconcileReport {
	report := &ReconcileReport{}
	var (
		local   []entity.StrategyRecord
		listing *source.RemoteListing
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, failures, err := source.NewLocalCache(s.cacheRepo, owner, s.logger).Load(gctx)
		if err != nil {
			s.logger.Warn(strategyModule, "Local cache unavailable", map[string]interface{}{
				"owner": owner,
				"error": err.Error(),
			})
			return nil
		}
		local, report.LocalFailures = records, failures
		return nil
	})
	g.Go(func() error {
		l, err := source.NewRemoteDrafts(s.store, owner, s.logger).Load(gctx)
		if err != nil {
			report.RemoteErr = err
			return nil
		}
		listing = l
		return nil
	})
	_ = g.Wait()

	var remote []entity.StrategyRecord
	if report.RemoteErr != nil {
		s.logger.Warn(strategyModule, "Remote drafts unavailable, using local state", map[string]interface{}{
			"owner": owner,
			"error": report.RemoteErr.Error(),
		})
		s.notice(ctx, owner, entity.NoticeRemoteUnavailable, "", "Saved strategies could not be loaded from the server; showing local copies.")
	} else {
		remote = listing.Records
		report.RemoteFailures = listing.Failures
		if listing.Authoritative {
			local, report.PrunedStoreIds = prune(local, listing, report.PrunedStoreIds)
			inMemory, report.PrunedStoreIds = prune(inMemory, listing, report.PrunedStoreIds)
		} else {
			report.PruneSkipped = true
			s.logger.Info(strategyModule, "Remote listing made without a token, keeping persisted records", map[string]interface{}{
				"owner": owner,
			})
		}
	}

	report.LocalCount = len(local)
	report.RemoteCount = len(remote)
	report.Records = strategy.Merge(local, remote, inMemory)
	return report
}

func prune(records []entity.StrategyRecord, listing *source.RemoteListing, pruned []string) ([]entity.StrategyRecord, []string) {
	kept := make([]entity.StrategyRecord, 0, len(records))
	for _, rec := range records {
		if rec.StoreId != "" && !listing.Has(rec.StoreId) {
			pruned = append(pruned, rec.StoreId)
			continue
		}
		kept = append(kept, rec)
	}
	return kept, pruned
}

func (s *strategyService) notice(ctx context.Context, owner string, kind entity.NoticeKind, clientId, message string) {
	if s.publisher == nil {
		return
	}
	ev := events.NewNoticeEvent(owner, string(kind), message, clientId, s.now().UTC())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error(strategyModule, "Failed to publish notice", map[string]interface{}{
			"owner": owner,
			"kind":  string(kind),
			"error": err.Error(),
		})
	}
}

// lifecycleObserver forwards coordinator callbacks to the event bus.
type lifecycleObserver struct {
	svc *strategyService
}

func (o *lifecycleObserver) Transitioned(ctx context.Context, t strategy.Transition) {
	if o.svc.publisher == nil {
		return
	}
	ev := events.NewStrategyEvent(events.StrategyLifecycle{
		Owner:    t.Owner,
		State:    string(t.State),
		ClientId: t.Record.ClientId,
		StoreId:  t.Record.StoreId,
		Name:     t.Record.Name,
		Type:     string(t.Record.Type),
		Origin:   string(t.Record.Origin),
	}, t.At)
	if err := o.svc.publisher.Publish(ctx, ev); err != nil {
		o.svc.logger.Error(strategyModule, "Failed to publish lifecycle event", map[string]interface{}{
			"owner": t.Owner,
			"state": string(t.State),
			"error": err.Error(),
		})
	}
}

func (o *lifecycleObserver) OperationFailed(ctx context.Context, f strategy.OperationFailure) {
	kind := entity.NoticePersistFailed
	message := "Strategy could not be saved to the server; it is kept locally. Save again to retry."
	if f.Op == "cache" {
		kind = entity.NoticeCacheFailed
		message = "Local copy of your strategies could not be written."
	}
	o.svc.notice(ctx, f.Owner, kind, f.ClientId, message)
}
