// Package dynamodb persists the graph in a single DynamoDB table.
//
// Key layout:
//
//	user        PK=USER#<id>      SK=PROFILE
//	event       PK=USER#<userID>  SK=EVENT#<id>   GSI1PK=EVENT#<id>  GSI1SK=METADATA
//	connection  PK=EVENT#<fromID> SK=CONN#<id>    GSI1PK=EVENT#<to>  GSI1SK=CONN#<id>
//	story       PK=STORY#<id>     SK=METADATA
//
// GSI1 answers "connections touching this event" for the to-side and
// event lookups by event id.
package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	pkgerrors "serendipity-backend/pkg/errors"
)

const (
	entityTypeUser       = "USER"
	entityTypeEvent      = "EVENT"
	entityTypeConnection = "CONNECTION"
	entityTypeStory      = "STORY"
)

// DB wraps the DynamoDB client with the table configuration shared by
// all repositories
type DB struct {
	client    *awsdynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewDB loads the default AWS configuration and wraps a client for the
// given table
func NewDB(ctx context.Context, region, tableName, indexName string, logger *zap.Logger) (*DB, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, pkgerrors.NewRepository("loading AWS configuration", err)
	}
	return &DB{
		client:    awsdynamodb.NewFromConfig(cfg),
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}, nil
}

// NewDBFromClient wraps an existing client, used by tests with local endpoints
func NewDBFromClient(client *awsdynamodb.Client, tableName, indexName string, logger *zap.Logger) *DB {
	return &DB{client: client, tableName: tableName, indexName: indexName, logger: logger}
}

func (db *DB) putItem(ctx context.Context, item map[string]types.AttributeValue) error {
	_, err := db.client.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(db.tableName),
		Item:      item,
	})
	return err
}

func userPK(userID string) string   { return "USER#" + userID }
func eventSK(eventID string) string { return "EVENT#" + eventID }
func eventPK(eventID string) string { return "EVENT#" + eventID }
func connSK(connID string) string   { return "CONN#" + connID }
func storyPK(storyID string) string { return "STORY#" + storyID }
