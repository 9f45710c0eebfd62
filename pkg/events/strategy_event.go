package events

import "time"

const strategyEventPrefix = "STRATEGY_"

// StrategyLifecycle describes one record entering a lifecycle state.
type StrategyLifecycle struct {
	Owner    string
	State    string
	ClientId string
	StoreId  string
	Name     string
	Type     string
	Origin   string
}

// NewStrategyEvent builds the event published for a lifecycle transition.
// Its type is STRATEGY_<STATE>.
func NewStrategyEvent(l StrategyLifecycle, at time.Time) Envelope {
	return Envelope{
		Type: strategyEventPrefix + l.State,
		Data: map[string]interface{}{
			"owner":     l.Owner,
			"state":     l.State,
			"client_id": l.ClientId,
			"store_id":  l.StoreId,
			"name":      l.Name,
			"type":      l.Type,
			"origin":    l.Origin,
		},
		OccurredAt: at,
	}
}

// NoticeEventType carries a transient failure the user should be told about.
const NoticeEventType = "STRATEGY_NOTICE"

func NewNoticeEvent(owner, kind, message, clientId string, at time.Time) Envelope {
	return Envelope{
		Type: NoticeEventType,
		Data: map[string]interface{}{
			"owner":     owner,
			"kind":      kind,
			"message":   message,
			"client_id": clientId,
		},
		OccurredAt: at,
	}
}
