package dynamodb

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"serendipity-backend/application/dto"
	"serendipity-backend/application/ports"
	"serendipity-backend/domain/core/entities"
	pkgerrors "serendipity-backend/pkg/errors"
)

type eventItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	dto.EventRecord
}

// EventRepository persists events under their owner's partition
type EventRepository struct {
	db *DB
}

var _ ports.EventRepository = (*EventRepository)(nil)

// NewEventRepository creates a DynamoDB-backed event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByFilter queries per-user partitions when user ids are given and
// falls back to a filtered scan otherwise. Type and date conditions are
// evaluated server-side; ordering and limit are applied after the merge.
func (r *EventRepository) FindByFilter(ctx context.Context, filter ports.EventFilter) ([]*entities.Event, error) {
	var events []*entities.Event
	if len(filter.UserIDs) > 0 {
		for _, userID := range filter.UserIDs {
			partition, err := r.queryUserEvents(ctx, userID, filter)
			if err != nil {
				return nil, err
			}
			events = append(events, partition...)
		}
	} else {
		all, err := r.scanEvents(ctx, filter)
		if err != nil {
			return nil, err
		}
		events = all
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp().Equal(events[j].Timestamp()) {
			return events[i].ID() < events[j].ID()
		}
		return events[i].Timestamp().Before(events[j].Timestamp())
	})
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (r *EventRepository) queryUserEvents(ctx context.Context, userID string, filter ports.EventFilter) ([]*entities.Event, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(userPK(userID))).
		And(expression.KeyBeginsWith(expression.Key("SK"), "EVENT#"))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if cond, ok := eventFilterCondition(filter); ok {
		builder = builder.WithFilter(cond)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, pkgerrors.NewRepository("building event query expression", err)
	}

	var events []*entities.Event
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.db.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:                 aws.String(r.db.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, pkgerrors.NewRepository("querying events for user "+userID, err)
		}
		events = append(events, r.unmarshalEvents(out.Items)...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return events, nil
}

func (r *EventRepository) scanEvents(ctx context.Context, filter ports.EventFilter) ([]*entities.Event, error) {
	cond := expression.Name("EntityType").Equal(expression.Value(entityTypeEvent))
	if extra, ok := eventFilterCondition(filter); ok {
		cond = cond.And(extra)
	}
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return nil, pkgerrors.NewRepository("building event scan expression", err)
	}

	var events []*entities.Event
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.db.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:                 aws.String(r.db.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, pkgerrors.NewRepository("scanning events", err)
		}
		events = append(events, r.unmarshalEvents(out.Items)...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return events, nil
}

// eventFilterCondition translates type and date conditions into a filter
// expression. Timestamps are stored in dto.TimestampLayout, a fixed-width
// UTC form whose lexical order is chronological order.
func eventFilterCondition(filter ports.EventFilter) (expression.ConditionBuilder, bool) {
	var cond expression.ConditionBuilder
	has := false

	if len(filter.EventTypes) > 0 {
		typeCond := expression.Name("EventType").Equal(expression.Value(string(filter.EventTypes[0])))
		for _, et := range filter.EventTypes[1:] {
			typeCond = typeCond.Or(expression.Name("EventType").Equal(expression.Value(string(et))))
		}
		cond, has = typeCond, true
	}
	if filter.Since != nil {
		c := expression.Name("Timestamp").GreaterThanEqual(expression.Value(filter.Since.UTC().Format(dto.TimestampLayout)))
		if has {
			cond = cond.And(c)
		} else {
			cond, has = c, true
		}
	}
	if filter.Until != nil {
		c := expression.Name("Timestamp").LessThanEqual(expression.Value(filter.Until.UTC().Format(dto.TimestampLayout)))
		if has {
			cond = cond.And(c)
		} else {
			cond, has = c, true
		}
	}
	return cond, has
}

func (r *EventRepository) unmarshalEvents(items []map[string]types.AttributeValue) []*entities.Event {
	events := make([]*entities.Event, 0, len(items))
	for _, raw := range items {
		var item eventItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.db.logger.Warn("Skipping unreadable event item", zap.Error(err))
			continue
		}
		events = append(events, item.EventRecord.ToEntity())
	}
	return events
}

func (r *EventRepository) Save(ctx context.Context, event *entities.Event) error {
	item := eventItem{
		PK:          userPK(event.UserID()),
		SK:          eventSK(event.ID()),
		GSI1PK:      eventPK(event.ID()),
		GSI1SK:      "METADATA",
		EntityType:  entityTypeEvent,
		EventRecord: dto.NewEventRecord(event),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewRepository("marshaling event item", err)
	}
	if err := r.db.putItem(ctx, av); err != nil {
		return pkgerrors.NewRepository("saving event "+event.ID(), err)
	}
	return nil
}
