package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-mentoring-notifier/internal/domain"
)

// PreferenceRepo provides typed DynamoDB operations for the notification preferences table.
type PreferenceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPreferenceRepo(client *dynamodb.Client, tableName string) *PreferenceRepo {
	return &PreferenceRepo{client: client, tableName: tableName}
}

func (r *PreferenceRepo) Put(ctx context.Context, p *domain.NotificationPreference) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal preference: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Get returns the user's preference row, or ErrNotFound when none exists.
func (r *PreferenceRepo) Get(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUserID, userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("preferences of %s: %w", userID, domain.ErrNotFound)
	}
	var p domain.NotificationPreference
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateFlags replaces the flag map of an existing row.
func (r *PreferenceRepo) UpdateFlags(ctx context.Context, userID string, flags map[string]bool) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldFlags:     flags,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("preferences of %s: %w", userID, domain.ErrNotFound)
	}
	return err
}
