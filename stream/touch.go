// Package stream provides DynamoDB Streams handlers for touch propagation.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/loam/dynamo"
)

// Timestamp attributes maintained by the entity layer.
const (
	createdAtAttr = "created_at"
	updatedAtAttr = "updated_at"
)

// Propagation declares that changes to documents in a child table bump the
// owning parent document's update timestamp.
type Propagation struct {
	// ChildTable is the DynamoDB table whose changes propagate.
	ChildTable string

	// ParentTable is the DynamoDB table holding the touched parent.
	ParentTable string

	// ForeignKey is the child attribute holding the parent identity.
	ForeignKey string

	// ParentKey is the parent table's identity attribute.
	// Default: the connection's key attribute.
	ParentKey string
}

// Handler processes DynamoDB stream events and touches parent documents
// when their children change. It is designed to be used as an AWS Lambda
// handler.
type Handler struct {
	conn         *dynamo.Connection
	propagations map[string][]Propagation
	logger       *slog.Logger
}

// NewHandler creates a stream handler for the given propagation rules.
func NewHandler(conn *dynamo.Connection, props []Propagation, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	byChild := make(map[string][]Propagation, len(props))
	for _, p := range props {
		if p.ParentKey == "" {
			p.ParentKey = conn.Config().KeyAttribute
		}
		byChild[p.ChildTable] = append(byChild[p.ChildTable], p)
	}

	return &Handler{
		conn:         conn,
		propagations: byChild,
		logger:       logger,
	}
}

// HandleTouch processes a stream event, propagating touches for every
// qualifying record.
func (h *Handler) HandleTouch(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord propagates one stream record. Records that are not
// INSERT/MODIFY, belong to untracked tables, or changed nothing besides
// timestamps are skipped; pure timestamp churn must not re-touch parents.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "INSERT" && record.EventName != "MODIFY" {
		return nil
	}

	table := tableFromARN(record.EventSourceArn)
	props, ok := h.propagations[table]
	if !ok {
		return nil
	}

	if record.EventName == "MODIFY" && !substantiveChange(record.Change.OldImage, record.Change.NewImage) {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range props {
		parentID := getStringAttr(record.Change.NewImage, p.ForeignKey)
		if parentID == "" {
			continue
		}

		h.logger.Info("touching parent",
			"childTable", table,
			"parentTable", p.ParentTable,
			"parentID", parentID,
		)

		if err := h.touchParent(ctx, p, parentID, now); err != nil {
			return fmt.Errorf("touch %s/%s: %w", p.ParentTable, parentID, err)
		}
	}
	return nil
}

// touchParent bumps the parent's update timestamp without rewriting the
// document. A missing parent is not an error; the touch is skipped.
func (h *Handler) touchParent(ctx context.Context, p Propagation, parentID, ts string) error {
	_, err := h.conn.Client().UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(p.ParentTable),
		Key:                 map[string]types.AttributeValue{p.ParentKey: &types.AttributeValueMemberS{Value: parentID}},
		UpdateExpression:    aws.String("SET #updated_at = :now"),
		ConditionExpression: aws.String(fmt.Sprintf("attribute_exists(%s)", p.ParentKey)),
		ExpressionAttributeNames: map[string]string{
			"#updated_at": updatedAtAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: ts},
		},
	})

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return nil
	}
	return err
}

// substantiveChange reports whether old and new images differ in anything
// besides the timestamp attributes.
func substantiveChange(oldImage, newImage map[string]events.DynamoDBAttributeValue) bool {
	for key, newVal := range newImage {
		if key == createdAtAttr || key == updatedAtAttr {
			continue
		}
		oldVal, ok := oldImage[key]
		if !ok || !sameAttr(oldVal, newVal) {
			return true
		}
	}
	for key := range oldImage {
		if key == createdAtAttr || key == updatedAtAttr {
			continue
		}
		if _, ok := newImage[key]; !ok {
			return true
		}
	}
	return false
}

// sameAttr compares two stream attribute values of the common scalar types.
// Unequal or exotic types count as changed.
func sameAttr(a, b events.DynamoDBAttributeValue) bool {
	if a.DataType() != b.DataType() {
		return false
	}
	switch a.DataType() {
	case events.DataTypeString:
		return a.String() == b.String()
	case events.DataTypeNumber:
		return a.Number() == b.Number()
	case events.DataTypeBoolean:
		return a.Boolean() == b.Boolean()
	case events.DataTypeNull:
		return true
	default:
		return false
	}
}

// tableFromARN extracts the table name from a stream event source ARN
// (".../table/<name>/stream/<timestamp>").
func tableFromARN(arn string) string {
	parts := strings.Split(arn, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "table" || strings.HasSuffix(parts[i], ":table") {
			return parts[i+1]
		}
	}
	return ""
}

// getStringAttr extracts a string attribute from a stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
