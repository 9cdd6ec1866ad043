package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-mentoring-notifier/internal/domain"
)

// GuestRepo stores event invitations. PK: event_id, SK: user_id.
type GuestRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewGuestRepo(client *dynamodb.Client, tableName string) *GuestRepo {
	return &GuestRepo{client: client, tableName: tableName}
}

func (r *GuestRepo) Put(ctx context.Context, g *domain.EventGuest) error {
	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return fmt.Errorf("marshal guest: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *GuestRepo) Delete(ctx context.Context, eventID, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldEventID, eventID, fieldUserID, userID),
	})
	return err
}

// ListPending returns the guests of eventID who have not responded yet.
func (r *GuestRepo) ListPending(ctx context.Context, eventID string) ([]domain.EventGuest, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#e = :e"),
		FilterExpression:       aws.String("#st = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#e":  fieldEventID,
			"#st": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e":       &types.AttributeValueMemberS{Value: eventID},
			":pending": &types.AttributeValueMemberS{Value: domain.GuestPending},
		},
	})
	var guests []domain.EventGuest
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.EventGuest
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		guests = append(guests, page...)
	}
	return guests, nil
}
