package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/loam/entity"
)

// condition is one accumulated constraint. op is a comparison operator, or
// "in" with values set instead of value.
type condition struct {
	field  string
	op     string
	value  any
	values []any
}

// Builder accumulates scope and constraints and translates them into
// DynamoDB operations. It satisfies entity.Builder.
type Builder struct {
	conn       *Connection
	collection string
	wheres     []condition
	eager      []string
	limit      int
}

// Collection scopes the query to a collection (table).
func (b *Builder) Collection(name string) entity.Builder {
	b.collection = name
	return b
}

// Where adds a comparison constraint.
func (b *Builder) Where(field, op string, value any) entity.Builder {
	b.wheres = append(b.wheres, condition{field: field, op: op, value: value})
	return b
}

// WhereIn adds a containment constraint.
func (b *Builder) WhereIn(field string, values []any) entity.Builder {
	b.wheres = append(b.wheres, condition{field: field, op: "in", values: values})
	return b
}

// With records eager relation names. Hydration is driven by the entity
// layer; the builder only carries the names.
func (b *Builder) With(names ...string) entity.Builder {
	b.eager = append(b.eager, names...)
	return b
}

// Take limits the number of documents returned by Get.
func (b *Builder) Take(n int) entity.Builder {
	b.limit = n
	return b
}

// table returns the DynamoDB table name for the scoped collection.
func (b *Builder) table() (string, error) {
	if b.collection == "" {
		return "", ErrNoCollection
	}
	return b.conn.TableName(b.collection), nil
}

// Get executes the query. A single equality constraint on the identity
// attribute becomes a GetItem; everything else is a paginated Scan with a
// generated filter expression.
func (b *Builder) Get(ctx context.Context, fields ...string) ([]entity.Document, error) {
	table, err := b.table()
	if err != nil {
		return nil, err
	}

	if id, ok := b.keyEquality(); ok {
		doc, err := b.getItem(ctx, table, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, nil
		}
		return []entity.Document{projectDocument(doc, fields)}, nil
	}

	input := &dynamodb.ScanInput{TableName: aws.String(table)}
	if len(b.wheres) > 0 {
		expr, exprNames, exprValues, err := b.buildFilter()
		if err != nil {
			return nil, err
		}
		input.FilterExpression = aws.String(expr)
		input.ExpressionAttributeNames = exprNames
		input.ExpressionAttributeValues = exprValues
	}

	var docs []entity.Document
	paginator := dynamodb.NewScanPaginator(b.conn.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			doc, err := unmarshalDocument(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, projectDocument(doc, fields))
			if b.limit > 0 && len(docs) >= b.limit {
				return docs, nil
			}
		}
	}
	return docs, nil
}

// Find retrieves a single document by identity, or nil when absent.
func (b *Builder) Find(ctx context.Context, id any, fields ...string) (entity.Document, error) {
	table, err := b.table()
	if err != nil {
		return nil, err
	}
	doc, err := b.getItem(ctx, table, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return projectDocument(doc, fields), nil
}

// Save persists a full document with upsert-by-identity semantics. When
// the document carries no identity a UUID is generated, stored, and
// returned; otherwise the return value is nil.
func (b *Builder) Save(ctx context.Context, doc entity.Document) (any, error) {
	table, err := b.table()
	if err != nil {
		return nil, err
	}

	keyAttr := b.conn.config.KeyAttribute
	var generated any
	if id, ok := doc[keyAttr]; !ok || id == nil || id == "" {
		generated = uuid.NewString()
		copied := make(entity.Document, len(doc)+1)
		for k, v := range doc {
			copied[k] = v
		}
		copied[keyAttr] = generated
		doc = copied
	}

	item, err := marshalDocument(doc)
	if err != nil {
		return nil, err
	}
	_, err = b.conn.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return nil, err
	}
	return generated, nil
}

// Update sets the given fields on every matching document and returns the
// count. Matches are resolved to identities first, then updated item by
// item with a SET expression.
func (b *Builder) Update(ctx context.Context, fields entity.Document) (int, error) {
	table, err := b.table()
	if err != nil {
		return 0, err
	}

	ids, err := b.matchingIdentities(ctx)
	if err != nil {
		return 0, err
	}

	updateExpr, exprNames, exprValues, err := b.buildSet(fields)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		key, err := b.key(id)
		if err != nil {
			return count, err
		}
		_, err = b.conn.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(table),
			Key:                       key,
			UpdateExpression:          aws.String(updateExpr),
			ExpressionAttributeNames:  exprNames,
			ExpressionAttributeValues: exprValues,
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Delete removes every matching document and returns the count.
func (b *Builder) Delete(ctx context.Context) (int, error) {
	table, err := b.table()
	if err != nil {
		return 0, err
	}

	ids, err := b.matchingIdentities(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		key, err := b.key(id)
		if err != nil {
			return count, err
		}
		_, err = b.conn.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(table),
			Key:       key,
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// getItem is the GetItem fast path shared by Get and Find.
func (b *Builder) getItem(ctx context.Context, table string, id any) (entity.Document, error) {
	key, err := b.key(id)
	if err != nil {
		return nil, err
	}
	result, err := b.conn.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, nil
	}
	return unmarshalDocument(result.Item)
}

// key builds the primary key for an identity value.
func (b *Builder) key(id any) (map[string]types.AttributeValue, error) {
	attr, err := marshalValue(id)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{b.conn.config.KeyAttribute: attr}, nil
}

// keyEquality reports whether the accumulated constraints are exactly one
// equality on the identity attribute, enabling the GetItem fast path.
func (b *Builder) keyEquality() (any, bool) {
	if len(b.wheres) != 1 {
		return nil, false
	}
	w := b.wheres[0]
	if w.field != b.conn.config.KeyAttribute || w.op != "=" {
		return nil, false
	}
	return w.value, true
}

// matchingIdentities resolves the constraints to identity values. A single
// key equality resolves without a store round trip.
func (b *Builder) matchingIdentities(ctx context.Context) ([]any, error) {
	keyAttr := b.conn.config.KeyAttribute

	if id, ok := b.keyEquality(); ok {
		return []any{id}, nil
	}

	docs, err := b.Get(ctx, keyAttr)
	if err != nil {
		return nil, err
	}
	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc[keyAttr]; ok && id != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// buildFilter translates the accumulated constraints into a DynamoDB
// filter expression with attribute name and value placeholders.
func (b *Builder) buildFilter() (string, map[string]string, map[string]types.AttributeValue, error) {
	clauses := make([]string, 0, len(b.wheres))
	exprNames := make(map[string]string, len(b.wheres))
	exprValues := make(map[string]types.AttributeValue)

	for i, w := range b.wheres {
		nameKey := fmt.Sprintf("#f%d", i)
		exprNames[nameKey] = w.field

		if w.op == "in" {
			placeholders := make([]string, 0, len(w.values))
			for j, v := range w.values {
				valueKey := fmt.Sprintf(":v%d_%d", i, j)
				attr, err := marshalValue(v)
				if err != nil {
					return "", nil, nil, err
				}
				exprValues[valueKey] = attr
				placeholders = append(placeholders, valueKey)
			}
			if len(placeholders) == 0 {
				// Empty containment matches nothing.
				clauses = append(clauses, fmt.Sprintf("attribute_not_exists(%s)", nameKey))
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", nameKey, strings.Join(placeholders, ", ")))
			continue
		}

		op, err := comparisonOp(w.op)
		if err != nil {
			return "", nil, nil, err
		}
		valueKey := fmt.Sprintf(":v%d", i)
		attr, err := marshalValue(w.value)
		if err != nil {
			return "", nil, nil, err
		}
		exprValues[valueKey] = attr
		clauses = append(clauses, fmt.Sprintf("%s %s %s", nameKey, op, valueKey))
	}

	return strings.Join(clauses, " AND "), exprNames, exprValues, nil
}

// buildSet translates a field map into an UpdateItem SET expression,
// skipping the identity attribute.
func (b *Builder) buildSet(fields entity.Document) (string, map[string]string, map[string]types.AttributeValue, error) {
	keyAttr := b.conn.config.KeyAttribute

	clauses := make([]string, 0, len(fields))
	exprNames := make(map[string]string, len(fields))
	exprValues := make(map[string]types.AttributeValue, len(fields))

	i := 0
	for field, value := range fields {
		if field == keyAttr {
			continue
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		attr, err := marshalValue(value)
		if err != nil {
			return "", nil, nil, err
		}
		exprNames[nameKey] = field
		exprValues[valueKey] = attr
		clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
		i++
	}

	return "SET " + strings.Join(clauses, ", "), exprNames, exprValues, nil
}

// comparisonOp maps builder operators to DynamoDB expression operators.
func comparisonOp(op string) (string, error) {
	switch op {
	case "=", "<", "<=", ">", ">=":
		return op, nil
	case "!=":
		return "<>", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
	}
}
