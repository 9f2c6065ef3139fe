// Package realtime subscribes to a change feed over websocket and merges
// remote inserts into the local graph. Records arriving here were already
// inferred against by the process that created them, so no inference runs
// on this path.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"serendipity-backend/application/dto"
	"serendipity-backend/application/services"
)

const (
	changeInsert = "INSERT"
	changeUpdate = "UPDATE"

	tableEvents      = "events"
	tableConnections = "connections"
	tableUsers       = "users"
)

// ChangePayload is the wire shape of one change notification
type ChangePayload struct {
	EventType string          `json:"eventType"`
	Table     string          `json:"table"`
	New       json.RawMessage `json:"new"`
}

// Listener consumes a change feed and applies it to the graph service
type Listener struct {
	url       string
	service   *services.SocialGraphService
	logger    *zap.Logger
	dialer    *websocket.Dialer
	reconnect time.Duration
}

// NewListener creates a listener for the given feed URL
func NewListener(url string, service *services.SocialGraphService, logger *zap.Logger) *Listener {
	return &Listener{
		url:       url,
		service:   service,
		logger:    logger,
		dialer:    websocket.DefaultDialer,
		reconnect: 5 * time.Second,
	}
}

// Run connects and consumes the feed until the context is canceled,
// reconnecting with a fixed backoff on any connection failure
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.consume(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("Realtime connection lost",
				zap.String("url", l.url),
				zap.Duration("retryIn", l.reconnect),
				zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnect):
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	l.logger.Info("Realtime feed connected", zap.String("url", l.url))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.handleMessage(ctx, message)
	}
}

func (l *Listener) handleMessage(ctx context.Context, message []byte) {
	var payload ChangePayload
	if err := json.Unmarshal(message, &payload); err != nil {
		l.logger.Warn("Discarding malformed change payload", zap.Error(err))
		return
	}
	if payload.EventType != changeInsert && payload.EventType != changeUpdate {
		return
	}

	switch payload.Table {
	case tableEvents:
		var record dto.EventRecord
		if err := json.Unmarshal(payload.New, &record); err != nil {
			l.logger.Warn("Discarding malformed event record", zap.Error(err))
			return
		}
		l.service.MergeRemoteEvent(ctx, record.ToEntity())
	case tableConnections:
		var record dto.ConnectionRecord
		if err := json.Unmarshal(payload.New, &record); err != nil {
			l.logger.Warn("Discarding malformed connection record", zap.Error(err))
			return
		}
		conn, err := record.ToEntity()
		if err != nil {
			l.logger.Warn("Discarding invalid remote connection",
				zap.String("connectionID", record.ID), zap.Error(err))
			return
		}
		l.service.MergeRemoteConnection(ctx, conn)
	case tableUsers:
		var record dto.UserRecord
		if err := json.Unmarshal(payload.New, &record); err != nil {
			l.logger.Warn("Discarding malformed user record", zap.Error(err))
			return
		}
		l.service.MergeRemoteUser(ctx, record.ToEntity())
	default:
		l.logger.Debug("Ignoring change for unhandled table", zap.String("table", payload.Table))
	}
}
