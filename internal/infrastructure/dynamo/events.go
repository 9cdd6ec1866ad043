package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-mentoring-notifier/internal/domain"
)

// EventRepo provides typed DynamoDB operations for the events table.
type EventRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewEventRepo(client *dynamodb.Client, tableName string) *EventRepo {
	return &EventRepo{client: client, tableName: tableName}
}

func (r *EventRepo) Put(ctx context.Context, e *domain.Event) error {
	e.StartsDay = domain.StartsDayOf(e.StartsAt)
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *EventRepo) Get(ctx context.Context, eventID string) (*domain.Event, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldEventID, eventID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("event %s: %w", eventID, domain.ErrNotFound)
	}
	var e domain.Event
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListStartingBetween returns events whose start lies in [from, to], querying the
// starts_day GSI once per calendar day the range touches.
func (r *EventRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	var events []domain.Event
	for _, day := range daysBetween(from, to) {
		p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(indexEventsByStarts),
			KeyConditionExpression: aws.String("#d = :d AND #s BETWEEN :from AND :to"),
			ExpressionAttributeNames: map[string]string{
				"#d": fieldStartsDay,
				"#s": fieldStartsAt,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":d":    &types.AttributeValueMemberS{Value: day},
				":from": &types.AttributeValueMemberN{Value: strconv.FormatInt(from.Unix(), 10)},
				":to":   &types.AttributeValueMemberN{Value: strconv.FormatInt(to.Unix(), 10)},
			},
		})
		for p.HasMorePages() {
			out, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			var page []domain.Event
			if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
				return nil, err
			}
			events = append(events, page...)
		}
	}
	return events, nil
}

// daysBetween lists the UTC dates from..to inclusive.
func daysBetween(from, to time.Time) []string {
	if to.Before(from) {
		return nil
	}
	last := domain.StartsDayOf(to)
	var days []string
	for d := from.UTC(); ; d = d.AddDate(0, 0, 1) {
		day := domain.StartsDayOf(d)
		days = append(days, day)
		if day == last {
			return days
		}
	}
}
