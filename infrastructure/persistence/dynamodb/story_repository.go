package dynamodb

import (
	"context"

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

type storyItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	dto.StoryRecord
}

// StoryRepository persists stories as standalone items
type StoryRepository struct {
	db *DB
}

var _ ports.StoryRepository = (*StoryRepository)(nil)

// NewStoryRepository creates a DynamoDB-backed story repository
func NewStoryRepository(db *DB) *StoryRepository {
	return &StoryRepository{db: db}
}

func (r *StoryRepository) FindAll(ctx context.Context) ([]*entities.Story, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityTypeStory))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.NewRepository("building story scan expression", err)
	}

	var stories []*entities.Story
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
			return nil, pkgerrors.NewRepository("scanning stories", err)
		}
		for _, raw := range out.Items {
			var item storyItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.db.logger.Warn("Skipping unreadable story item", zap.Error(err))
				continue
			}
			stories = append(stories, item.StoryRecord.ToEntity())
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return stories, nil
}

func (r *StoryRepository) Save(ctx context.Context, story *entities.Story) error {
	item := storyItem{
		PK:          storyPK(story.ID()),
		SK:          "METADATA",
		EntityType:  entityTypeStory,
		StoryRecord: dto.NewStoryRecord(story),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewRepository("marshaling story item", err)
	}
	if err := r.db.putItem(ctx, av); err != nil {
		return pkgerrors.NewRepository("saving story "+story.ID(), err)
	}
	return nil
}
