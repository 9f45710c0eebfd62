package source

import (
	"context"
	"fmt"

	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/pkg/draftstore"
	"market-insight-be/pkg/strategy"
)

type DraftLister interface {
	List(ctx context.Context) ([]draftstore.Envelope, error)
}

// RemoteListing is one successful read of the draft store.
type RemoteListing struct {
	Records  []entity.StrategyRecord
	Failures []*strategy.ParseFailure
	// every envelope id in the listing, readable or not
	LiveStoreIds map[string]struct{}
	// false when the request carried no token: the store answers with
	// nothing, which says nothing about which drafts still exist
	Authoritative bool
}

func (l *RemoteListing) Has(storeId string) bool {
	_, ok := l.LiveStoreIds[storeId]
	return ok
}

type RemoteDrafts struct {
	lister DraftLister
	owner  string
	logger logger.ILogger
}

func NewRemoteDrafts(lister DraftLister, owner string, log logger.ILogger) *RemoteDrafts {
	return &RemoteDrafts{lister: lister, owner: owner, logger: log}
}

// Load lists the store and parses every strategy draft. Envelopes of other
// analysis types are ignored; unreadable ones are logged and skipped.
func (s *RemoteDrafts) Load(ctx context.Context) (*RemoteListing, error) {
	envelopes, err := s.lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote drafts: %w", err)
	}

	listing := &RemoteListing{
		Records:       make([]entity.StrategyRecord, 0, len(envelopes)),
		LiveStoreIds:  make(map[string]struct{}, len(envelopes)),
		Authoritative: draftstore.AuthToken(ctx) != "",
	}
	for i, env := range envelopes {
		if id := env.Id.String(); id != "" {
			listing.LiveStoreIds[id] = struct{}{}
		}
		if env.AnalysisType != "" && env.AnalysisType != draftstore.AnalysisTypeStrategyDraft {
			continue
		}

		label := fmt.Sprintf("remoteDraft#%d", i)
		if id := env.Id.String(); id != "" {
			label = "remoteDraft:" + id
		}
		res := strategy.ParseEnvelope(env, label)
		if !res.OK() {
			listing.Failures = append(listing.Failures, res.Failure)
			continue
		}
		listing.Records = append(listing.Records, *res.Record)
	}

	logFailures(s.logger, s.owner, listing.Failures)
	return listing, nil
}
