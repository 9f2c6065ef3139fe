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

type connectionItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	dto.ConnectionRecord
}

// ConnectionRepository persists connections keyed by their from-side
// event, with GSI1 covering the to-side
type ConnectionRepository struct {
	db *DB
}

var _ ports.ConnectionRepository = (*ConnectionRepository)(nil)

// NewConnectionRepository creates a DynamoDB-backed connection repository
func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// FindByEventIDs returns every connection touching any of the given
// events, querying the base table for from-side matches and GSI1 for
// to-side matches. Results are deduplicated by connection id.
func (r *ConnectionRepository) FindByEventIDs(ctx context.Context, eventIDs []string) ([]*entities.Connection, error) {
	seen := make(map[string]bool)
	var connections []*entities.Connection

	for _, eventID := range eventIDs {
		fromSide, err := r.queryPartition(ctx, eventID, false)
		if err != nil {
			return nil, err
		}
		toSide, err := r.queryPartition(ctx, eventID, true)
		if err != nil {
			return nil, err
		}
		for _, conn := range append(fromSide, toSide...) {
			if seen[conn.ID()] {
				continue
			}
			seen[conn.ID()] = true
			connections = append(connections, conn)
		}
	}

	sort.Slice(connections, func(i, j int) bool { return connections[i].ID() < connections[j].ID() })
	return connections, nil
}

func (r *ConnectionRepository) queryPartition(ctx context.Context, eventID string, useIndex bool) ([]*entities.Connection, error) {
	pkName, skName := "PK", "SK"
	var indexName *string
	if useIndex {
		pkName, skName = "GSI1PK", "GSI1SK"
		indexName = aws.String(r.db.indexName)
	}

	keyCond := expression.Key(pkName).Equal(expression.Value(eventPK(eventID))).
		And(expression.Key(skName).BeginsWith("CONN#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewRepository("building connection query expression", err)
	}

	var connections []*entities.Connection
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.db.client.Query(ctx, &awsdynamodb.QueryInput{
			TableName:                 aws.String(r.db.tableName),
			IndexName:                 indexName,
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, pkgerrors.NewRepository("querying connections for event "+eventID, err)
		}
		for _, raw := range out.Items {
			var item connectionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.db.logger.Warn("Skipping unreadable connection item", zap.Error(err))
				continue
			}
			conn, err := item.ConnectionRecord.ToEntity()
			if err != nil {
				r.db.logger.Warn("Skipping invalid connection item",
					zap.String("connectionID", item.ConnectionRecord.ID), zap.Error(err))
				continue
			}
			connections = append(connections, conn)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return connections, nil
}

func (r *ConnectionRepository) Save(ctx context.Context, conn *entities.Connection) error {
	item := connectionItem{
		PK:               eventPK(conn.FromEventID()),
		SK:               connSK(conn.ID()),
		GSI1PK:           eventPK(conn.ToEventID()),
		GSI1SK:           connSK(conn.ID()),
		EntityType:       entityTypeConnection,
		ConnectionRecord: dto.NewConnectionRecord(conn),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewRepository("marshaling connection item", err)
	}
	if err := r.db.putItem(ctx, av); err != nil {
		return pkgerrors.NewRepository("saving connection "+conn.ID(), err)
	}
	return nil
}
