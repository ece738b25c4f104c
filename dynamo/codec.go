package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/loam/entity"
)

// marshalDocument converts a document to a DynamoDB item.
func marshalDocument(doc entity.Document) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return item, nil
}

// unmarshalDocument converts a DynamoDB item back to a document.
func unmarshalDocument(item map[string]types.AttributeValue) (entity.Document, error) {
	var doc entity.Document
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// marshalValue converts a single value to its attribute form.
func marshalValue(v any) (types.AttributeValue, error) {
	attr, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return attr, nil
}

// projectDocument restricts a document to the named fields. An empty field
// list keeps the document whole.
func projectDocument(doc entity.Document, fields []string) entity.Document {
	if len(fields) == 0 {
		return doc
	}
	out := make(entity.Document, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
