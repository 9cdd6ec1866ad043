package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-mentoring-notifier/internal/domain"
)

// TeamRepo provides typed DynamoDB operations for the teams table.
type TeamRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTeamRepo(client *dynamodb.Client, tableName string) *TeamRepo {
	return &TeamRepo{client: client, tableName: tableName}
}

func (r *TeamRepo) Put(ctx context.Context, t *domain.Team) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal team: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TeamRepo) Get(ctx context.Context, teamID string) (*domain.Team, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldTeamID, teamID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("team %s: %w", teamID, domain.ErrNotFound)
	}
	var t domain.Team
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
