// FILE: internal/service/notice_service.go
package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var ErrNoticeNotFound = errors.New("notice not found")

// maxNoticesPerOwner bounds the backlog; the oldest notices are dropped first.
const maxNoticesPerOwner = 50

// NoticeDelivery pushes a recorded notice to the owner in real time.
// Implemented by the websocket hub.
type NoticeDelivery interface {
	Send(owner string, notice entity.Notice)
}

type INoticeService interface {
	Consume(ctx context.Context) error
	List(ctx context.Context, owner string) []entity.Notice
	Dismiss(ctx context.Context, owner, id string) error
}

type noticeService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	store     *cache.Cache
	delivery  NoticeDelivery
	logger    logger.ILogger
	mu        sync.Mutex
}

// NewNoticeService records notices from the bus; delivery may be nil.
func NewNoticeService(pubSub *gochannel.GoChannel, topicName string, ttl time.Duration, delivery NoticeDelivery, log logger.ILogger) INoticeService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &noticeService{
		pubSub:    pubSub,
		topicName: topicName,
		store:     cache.New(ttl, 10*time.Minute),
		delivery:  delivery,
		logger:    log,
	}
}

// Consume turns notice events on the topic into stored notices until ctx ends.
func (ns *noticeService) Consume(ctx context.Context) error {
	messages, err := ns.pubSub.Subscribe(ctx, ns.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ns.processMessage(msg)
		}
	}()

	return nil
}

func (ns *noticeService) processMessage(msg *message.Message) {
	defer msg.Ack()

	m, err := events.Unmarshal(msg.Payload)
	if err != nil {
		ns.logger.Error("NOTICE", "Failed to unmarshal bus message", map[string]interface{}{"error": err.Error()})
		return
	}
	if m.Type != events.NoticeEventType {
		return
	}

	owner := m.Owner()
	if owner == "" {
		return
	}
	kind := m.Str("kind")

	createdAt := m.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	notice := entity.Notice{
		Id:        uuid.NewString(),
		Owner:     owner,
		Kind:      entity.NoticeKind(kind),
		Message:   m.Str("message"),
		ClientId:  m.Str("client_id"),
		CreatedAt: createdAt,
	}
	ns.add(notice)
	if ns.delivery != nil {
		ns.delivery.Send(owner, notice)
	}
	ns.logger.Info("NOTICE", "Notice recorded", map[string]interface{}{
		"owner": owner,
		"kind":  kind,
	})
}

func (ns *noticeService) add(n entity.Notice) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	notices := append(ns.load(n.Owner), n)
	// bus delivery is unordered
	sort.SliceStable(notices, func(i, j int) bool {
		return notices[i].CreatedAt.Before(notices[j].CreatedAt)
	})
	if len(notices) > maxNoticesPerOwner {
		notices = notices[len(notices)-maxNoticesPerOwner:]
	}
	ns.store.Set(n.Owner, notices, cache.DefaultExpiration)
}

// List returns the owner's notices, newest first.
func (ns *noticeService) List(_ context.Context, owner string) []entity.Notice {
	ns.mu.Lock()
	notices := append([]entity.Notice(nil), ns.load(owner)...)
	ns.mu.Unlock()

	sort.SliceStable(notices, func(i, j int) bool {
		return notices[i].CreatedAt.After(notices[j].CreatedAt)
	})
	return notices
}

func (ns *noticeService) Dismiss(_ context.Context, owner, id string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	notices := ns.load(owner)
	for i, n := range notices {
		if n.Id == id {
			kept := append(append([]entity.Notice(nil), notices[:i]...), notices[i+1:]...)
			ns.store.Set(owner, kept, cache.DefaultExpiration)
			return nil
		}
	}
	return ErrNoticeNotFound
}

func (ns *noticeService) load(owner string) []entity.Notice {
	if x, found := ns.store.Get(owner); found {
		return x.([]entity.Notice)
	}
	return nil
}
