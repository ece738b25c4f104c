package dynamo

import (
	"reflect"
	"testing"

	"github.com/jacentio/loam/entity"
)

func TestDocumentRoundTrip(t *testing.T) {
	doc := entity.Document{
		"id":     "x1",
		"title":  "hello",
		"views":  42.0,
		"live":   true,
		"labels": []any{"a", "b"},
	}

	item, err := marshalDocument(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := unmarshalDocument(item)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, doc) {
		t.Errorf("round trip = %v, want %v", back, doc)
	}
}

func TestProjectDocument(t *testing.T) {
	doc := entity.Document{"a": 1, "b": 2, "c": 3}

	got := projectDocument(doc, []string{"a", "c", "missing"})
	if !reflect.DeepEqual(got, entity.Document{"a": 1, "c": 3}) {
		t.Errorf("projected = %v", got)
	}

	if whole := projectDocument(doc, nil); !reflect.DeepEqual(whole, doc) {
		t.Errorf("empty projection = %v, want whole document", whole)
	}
}
