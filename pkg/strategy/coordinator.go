package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"
)

const coordinatorModule = "STRATEGY_COORDINATOR"

// RemoteStore is the subset of the draft store the coordinator writes to.
type RemoteStore interface {
	Create(ctx context.Context, dataId, analysisContent string) (string, error)
	Update(ctx context.Context, storeId, analysisContent string) error
	Delete(ctx context.Context, storeId string) error
}

// LocalStore holds the whole canonical collection in one slot.
type LocalStore interface {
	Save(ctx context.Context, records []entity.StrategyRecord) error
}

type Transition struct {
	Owner  string
	Record entity.StrategyRecord
	State  entity.LifecycleState
	At     time.Time
}

type OperationFailure struct {
	Owner    string
	Op       string
	ClientId string
	Err      error
}

// Observer is told about lifecycle transitions and failures that degrade
// a record to local-only state.
type Observer interface {
	Transitioned(ctx context.Context, t Transition)
	OperationFailed(ctx context.Context, f OperationFailure)
}

type nopObserver struct{}

func (nopObserver) Transitioned(context.Context, Transition) {}
func (nopObserver) OperationFailed(context.Context, OperationFailure) {}

// Patch carries the user-editable fields; nil means unchanged.
type Patch struct {
	Name           *string
	Description    *string
	Type           *entity.StrategyType
	TargetAudience *string
	Channels       []string
	Objectives     *string
	Outcomes       *string
	Timeline       *string
	Budget         *string
}

func (p Patch) apply(rec *entity.StrategyRecord) {
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Type != nil {
		rec.Type = *p.Type
	}
	if p.TargetAudience != nil {
		rec.TargetAudience = *p.TargetAudience
	}
	if p.Channels != nil {
		rec.Channels = append([]string(nil), p.Channels...)
	}
	if p.Objectives != nil {
		rec.Objectives = *p.Objectives
	}
	if p.Outcomes != nil {
		rec.Outcomes = *p.Outcomes
	}
	if p.Timeline != nil {
		rec.Timeline = *p.Timeline
	}
	if p.Budget != nil {
		rec.Budget = *p.Budget
	}
}

// Coordinator owns one user's canonical collection. Every mutation goes
// through it: the in-memory collection changes first, the local slot is
// rewritten whole, and the remote store is written asynchronously except
// for delete, which must succeed remotely before the record is dropped.
type Coordinator struct {
	owner    string
	remote   RemoteStore
	local    LocalStore
	observer Observer
	logger   logger.ILogger
	now      func() time.Time

	mu      sync.Mutex
	records []entity.StrategyRecord
	version uint64 // bumped on every change to records
	// clientIds with a create call in flight, and whether they changed since
	creating map[string]bool
	// store id -> client id of records deleted locally whose remote draft
	// could not be removed; they are kept out of every reload
	tombstones map[string]string
	inflight   sync.WaitGroup
}

func NewCoordinator(owner string, remote RemoteStore, local LocalStore, observer Observer, log logger.ILogger) *Coordinator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Coordinator{
		owner:    owner,
		remote:   remote,
		local:    local,
		observer: observer,
		logger:   log,
		now:      time.Now,
		creating:   make(map[string]bool),
		tombstones: make(map[string]string),
	}
}

func (c *Coordinator) Owner() string {
	return c.owner
}

// Replace installs a freshly reconciled collection and rewrites the local slot.
func (c *Coordinator) Replace(ctx context.Context, records []entity.StrategyRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = c.withoutDeletedLocked(records)
	c.saveLocked(ctx)
}

// ReplaceIf installs records only if nothing changed since version was
// observed through Snapshot.
func (c *Coordinator) ReplaceIf(ctx context.Context, records []entity.StrategyRecord, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		return false
	}
	c.records = c.withoutDeletedLocked(records)
	c.saveLocked(ctx)
	return true
}

// Snapshot returns the collection together with its version.
func (c *Coordinator) Snapshot() ([]entity.StrategyRecord, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.records), c.version
}

// All returns a copy of the canonical collection in acceptance order.
func (c *Coordinator) All() []entity.StrategyRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.records)
}

func (c *Coordinator) Get(clientId string) (entity.StrategyRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(clientId)
	if i < 0 {
		return entity.StrategyRecord{}, fmt.Errorf("%w: %s", ErrNotFound, clientId)
	}
	return c.records[i].Clone(), nil
}

// Wait blocks until every asynchronous remote call has resolved.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

// Create appends rec and persists it in the background. Re-creating a
// known record replaces its fields and never issues a second POST once a
// store id is known; the update path is used instead.
func (c *Coordinator) Create(ctx context.Context, rec entity.StrategyRecord) (entity.StrategyRecord, error) {
	rec = rec.Clone()
	Normalize(&rec)
	if err := Validate(rec); err != nil {
		return entity.StrategyRecord{}, err
	}

	c.mu.Lock()
	i := c.indexOfLocked(rec)
	isNew := i < 0
	if isNew {
		c.records = append(c.records, rec)
		i = len(c.records) - 1
	} else {
		existing := c.records[i]
		if rec.StoreId == "" {
			rec.StoreId = existing.StoreId
		}
		if rec.DataSource == nil {
			rec.DataSource = existing.DataSource
		}
		rec.ClientId = existing.ClientId
		c.records[i] = rec
	}
	c.saveLocked(ctx)
	snapshot := c.records[i].Clone()
	c.mu.Unlock()

	if isNew {
		c.emit(ctx, snapshot, entity.StateGenerated)
	}
	c.propagate(ctx, snapshot.ClientId, "create", true)
	return snapshot, nil
}

// Update is "save as draft": the patch is applied, the record goes back to
// Draft with placeholder metrics, and the store is written by store id when
// one is known or created otherwise. A remote failure leaves the local edit in place.
func (c *Coordinator) Update(ctx context.Context, clientId string, patch Patch) (entity.StrategyRecord, error) {
	snapshot, err := c.mutate(ctx, clientId, func(rec *entity.StrategyRecord) {
		patch.apply(rec)
		rec.Status = entity.StrategyStatusDraft
		rec.Progress = 0
		rec.Metrics = entity.DefaultMetrics()
	})
	if err != nil {
		return entity.StrategyRecord{}, err
	}
	c.propagate(ctx, clientId, "update", true)
	return snapshot, nil
}

// Edit changes free-text fields locally without touching the store.
func (c *Coordinator) Edit(ctx context.Context, clientId string, patch Patch) (entity.StrategyRecord, error) {
	return c.mutate(ctx, clientId, patch.apply)
}

// Implement activates the record immediately. Propagation to the store is
// fire-and-forget and its failure is only logged.
func (c *Coordinator) Implement(ctx context.Context, clientId string) (entity.StrategyRecord, error) {
	snapshot, err := c.mutate(ctx, clientId, func(rec *entity.StrategyRecord) {
		rec.Status = entity.StrategyStatusActive
		rec.Progress = entity.ActiveMinProgress
	})
	if err != nil {
		return entity.StrategyRecord{}, err
	}
	c.emit(ctx, snapshot, entity.StateImplemented)
	c.propagate(ctx, clientId, "implement", false)
	return snapshot, nil
}

// Delete removes the record. When it has a store id the remote delete runs
// synchronously and its failure keeps the record in place.
func (c *Coordinator) Delete(ctx context.Context, clientId string) error {
	c.mu.Lock()
	i := c.indexLocked(clientId)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, clientId)
	}
	target := c.records[i].Clone()
	c.mu.Unlock()

	if target.StoreId != "" {
		if err := c.remote.Delete(ctx, target.StoreId); err != nil {
			c.logger.Error(coordinatorModule, "Remote delete failed, record kept", map[string]interface{}{
				"owner":     c.owner,
				"client_id": clientId,
				"store_id":  target.StoreId,
				"error":     err.Error(),
			})
			return fmt.Errorf("delete strategy %s: %w", clientId, err)
		}
	}

	c.mu.Lock()
	if i = c.indexLocked(clientId); i >= 0 {
		c.records = append(c.records[:i], c.records[i+1:]...)
		c.saveLocked(ctx)
	}
	c.mu.Unlock()

	c.emit(ctx, target, entity.StateDeleted)
	return nil
}

func (c *Coordinator) mutate(ctx context.Context, clientId string, fn func(rec *entity.StrategyRecord)) (entity.StrategyRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(clientId)
	if i < 0 {
		return entity.StrategyRecord{}, fmt.Errorf("%w: %s", ErrNotFound, clientId)
	}
	rec := c.records[i].Clone()
	fn(&rec)
	Normalize(&rec)
	if err := Validate(rec); err != nil {
		return entity.StrategyRecord{}, err
	}
	c.records[i] = rec
	c.saveLocked(ctx)
	return rec.Clone(), nil
}

// propagate writes the current state of clientId to the store in the
// background. surface controls whether a failure reaches the observer.
func (c *Coordinator) propagate(ctx context.Context, clientId, op string, surface bool) {
	c.mu.Lock()
	if _, pending := c.creating[clientId]; pending {
		// the in-flight create will push the newer state once it has an id
		c.creating[clientId] = true
		c.mu.Unlock()
		return
	}
	i := c.indexLocked(clientId)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	rec := c.records[i].Clone()
	if rec.StoreId == "" {
		c.creating[clientId] = false
	}
	c.mu.Unlock()

	// the request context may end before the store answers
	bg := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if rec.StoreId == "" {
			c.persistNew(bg, rec, op, surface)
		} else {
			c.pushUpdate(bg, rec, op, surface)
		}
	}()
}

func (c *Coordinator) persistNew(ctx context.Context, rec entity.StrategyRecord, op string, surface bool) {
	content, err := Serialize(rec)
	if err != nil {
		c.finishCreate(rec.ClientId)
		c.fail(ctx, op, rec.ClientId, err, surface)
		return
	}
	dataId := ""
	if rec.DataSource != nil {
		dataId = rec.DataSource.Id
	}

	storeId, err := c.remote.Create(ctx, dataId, content)
	if err != nil {
		c.finishCreate(rec.ClientId)
		c.fail(ctx, op, rec.ClientId, err, surface)
		return
	}

	c.mu.Lock()
	dirty := c.creating[rec.ClientId]
	delete(c.creating, rec.ClientId)
	i := c.indexLocked(rec.ClientId)
	if i < 0 {
		c.mu.Unlock()
		// deleted locally while the create was in flight
		c.discardOrphan(ctx, rec.ClientId, storeId)
		return
	}
	now := c.now().UTC()
	c.records[i].StoreId = storeId
	c.records[i].SavedAt = &now
	c.saveLocked(ctx)
	persisted := c.records[i].Clone()
	c.mu.Unlock()

	c.logger.Info(coordinatorModule, "Strategy persisted", map[string]interface{}{
		"owner":     c.owner,
		"client_id": rec.ClientId,
		"store_id":  storeId,
	})
	c.emit(ctx, persisted, entity.StatePersisted)

	if dirty {
		c.pushUpdate(ctx, persisted, op, surface)
	}
}

func (c *Coordinator) pushUpdate(ctx context.Context, rec entity.StrategyRecord, op string, surface bool) {
	content, err := Serialize(rec)
	if err == nil {
		err = c.remote.Update(ctx, rec.StoreId, content)
	}
	if err != nil {
		c.fail(ctx, op, rec.ClientId, err, surface)
		return
	}

	c.mu.Lock()
	i := c.indexLocked(rec.ClientId)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	now := c.now().UTC()
	c.records[i].SavedAt = &now
	c.saveLocked(ctx)
	updated := c.records[i].Clone()
	c.mu.Unlock()

	if op != "implement" {
		c.emit(ctx, updated, entity.StatePersisted)
	}
}

func (c *Coordinator) discardOrphan(ctx context.Context, clientId, storeId string) {
	if err := c.remote.Delete(ctx, storeId); err != nil {
		c.logger.Warn(coordinatorModule, "Could not remove orphaned draft, retrying on next reload", map[string]interface{}{
			"owner":     c.owner,
			"client_id": clientId,
			"store_id":  storeId,
			"error":     err.Error(),
		})
		c.mu.Lock()
		c.tombstones[storeId] = clientId
		c.mu.Unlock()
	}
}

// RetryDeletes reissues the remote deletes that failed for orphaned drafts.
// A draft that is deleted now stops being tombstoned.
func (c *Coordinator) RetryDeletes(ctx context.Context) {
	c.mu.Lock()
	pending := make(map[string]string, len(c.tombstones))
	for storeId, clientId := range c.tombstones {
		pending[storeId] = clientId
	}
	c.mu.Unlock()

	for storeId, clientId := range pending {
		if err := c.remote.Delete(ctx, storeId); err != nil {
			c.logger.Warn(coordinatorModule, "Orphaned draft still not removed", map[string]interface{}{
				"owner":     c.owner,
				"client_id": clientId,
				"store_id":  storeId,
				"error":     err.Error(),
			})
			continue
		}
		c.mu.Lock()
		delete(c.tombstones, storeId)
		c.mu.Unlock()
	}
}

// WithoutDeleted drops records this coordinator has deleted but whose remote
// draft may still be listed.
func (c *Coordinator) WithoutDeleted(records []entity.StrategyRecord) []entity.StrategyRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withoutDeletedLocked(records)
}

func (c *Coordinator) withoutDeletedLocked(records []entity.StrategyRecord) []entity.StrategyRecord {
	if len(c.tombstones) == 0 {
		return cloneAll(records)
	}
	out := make([]entity.StrategyRecord, 0, len(records))
	for _, r := range records {
		if _, gone := c.tombstones[r.StoreId]; gone && r.StoreId != "" {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

func (c *Coordinator) finishCreate(clientId string) {
	c.mu.Lock()
	delete(c.creating, clientId)
	c.mu.Unlock()
}

func (c *Coordinator) fail(ctx context.Context, op, clientId string, err error, surface bool) {
	details := map[string]interface{}{
		"owner":     c.owner,
		"op":        op,
		"client_id": clientId,
		"error":     err.Error(),
	}
	if !surface {
		c.logger.Warn(coordinatorModule, "Remote propagation failed", details)
		return
	}
	c.logger.Error(coordinatorModule, "Remote persist failed, record kept locally", details)
	c.observer.OperationFailed(ctx, OperationFailure{Owner: c.owner, Op: op, ClientId: clientId, Err: err})
}

func (c *Coordinator) emit(ctx context.Context, rec entity.StrategyRecord, state entity.LifecycleState) {
	c.observer.Transitioned(ctx, Transition{Owner: c.owner, Record: rec, State: state, At: c.now().UTC()})
}

// saveLocked rewrites the local slot with the whole collection. A failed
// write is logged; the in-memory collection stays authoritative.
func (c *Coordinator) saveLocked(ctx context.Context) {
	c.version++
	if c.local == nil {
		return
	}
	if err := c.local.Save(ctx, cloneAll(c.records)); err != nil {
		c.logger.Error(coordinatorModule, "Local cache write failed", map[string]interface{}{
			"owner": c.owner,
			"error": err.Error(),
		})
		c.observer.OperationFailed(ctx, OperationFailure{Owner: c.owner, Op: "cache", Err: err})
	}
}

func (c *Coordinator) indexLocked(clientId string) int {
	for i := range c.records {
		if c.records[i].ClientId == clientId {
			return i
		}
	}
	return -1
}

func (c *Coordinator) indexOfLocked(rec entity.StrategyRecord) int {
	for i := range c.records {
		if SameRecord(c.records[i], rec) {
			return i
		}
	}
	return -1
}

func cloneAll(records []entity.StrategyRecord) []entity.StrategyRecord {
	out := make([]entity.StrategyRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
