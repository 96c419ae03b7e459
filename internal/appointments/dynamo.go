package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type dynamoPutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoItem struct {
	SenderID    string `dynamodbav:"sender_id"`
	RequestedAt string `dynamodbav:"requested_at"`
	Name        string `dynamodbav:"name"`
	Reason      string `dynamodbav:"reason"`
}

// DynamoExporter writes appointment requests keyed by sender_id + requested_at.
type DynamoExporter struct {
	api   dynamoPutItemAPI
	table string
}

func NewDynamoExporter(api dynamoPutItemAPI, table string) (*DynamoExporter, error) {
	if api == nil {
		panic("appointments: dynamodb client cannot be nil")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("appointments: dynamodb table is required")
	}
	return &DynamoExporter{api: api, table: table}, nil
}

func (e *DynamoExporter) Export(ctx context.Context, rec Record) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		SenderID:    rec.SenderID,
		RequestedAt: rec.Timestamp(),
		Name:        rec.Name,
		Reason:      rec.Reason,
	})
	if err != nil {
		return fmt.Errorf("appointments: marshal dynamodb item: %w", err)
	}
	_, err = e.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(e.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("appointments: put dynamodb item: %w", err)
	}
	return nil
}
