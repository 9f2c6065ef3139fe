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

type userItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	dto.UserRecord
}

// UserRepository persists users as PROFILE items
type UserRepository struct {
	db *DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a DynamoDB-backed user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entities.User, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityTypeUser))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.NewRepository("building user scan expression", err)
	}

	var users []*entities.User
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
			return nil, pkgerrors.NewRepository("scanning users", err)
		}
		for _, raw := range out.Items {
			var item userItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.db.logger.Warn("Skipping unreadable user item", zap.Error(err))
				continue
			}
			users = append(users, item.UserRecord.ToEntity())
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return users, nil
}

func (r *UserRepository) Save(ctx context.Context, user *entities.User) error {
	item := userItem{
		PK:         userPK(user.ID()),
		SK:         "PROFILE",
		EntityType: entityTypeUser,
		UserRecord: dto.NewUserRecord(user),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewRepository("marshaling user item", err)
	}
	if err := r.db.putItem(ctx, av); err != nil {
		return pkgerrors.NewRepository("saving user "+user.ID(), err)
	}
	return nil
}
