package dynamo

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// timeLayout is fixed width in UTC so timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// item is the attribute layout of a document.
type item struct {
	ID        string  `dynamodbav:"id"`
	OwnerType string  `dynamodbav:"owner_type"`
	OwnerID   string  `dynamodbav:"owner_id"`
	OwnerRef  string  `dynamodbav:"owner_ref"`
	Payload   *string `dynamodbav:"payload,omitempty"`
	CreatedAt string  `dynamodbav:"created_at"`
	UpdatedAt string  `dynamodbav:"updated_at"`
}

// ownerIDPrefix marks the id of an owner's index item. Document ids must not
// start with it.
const ownerIDPrefix = "owner#"

// ownerItem lists the ids of an owner's documents. It is written in the same
// transaction as the documents, so a consistent read of it is current.
type ownerItem struct {
	ID     string   `dynamodbav:"id"`
	DocIDs []string `dynamodbav:"doc_ids,stringset,omitempty"`
}

func ownerKey(owner store.OwnerRef) map[string]types.AttributeValue {
	return idKey(ownerIDPrefix + owner.String())
}

func reservedID(id string) bool {
	return strings.HasPrefix(id, ownerIDPrefix)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func sortKey(createdAt time.Time, id string) string {
	return formatTime(createdAt) + "#" + id
}

// marshalPayload encodes payload as JSON text. A nil payload has no text.
func marshalPayload(payload value.Object) (*string, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := value.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	s := string(data)
	return &s, nil
}

func newItem(doc store.Document) (map[string]types.AttributeValue, error) {
	payload, err := marshalPayload(doc.Payload)
	if err != nil {
		return nil, err
	}
	it := item{
		ID:        doc.ID,
		OwnerType: doc.Owner.Type,
		OwnerID:   doc.Owner.ID,
		OwnerRef:  doc.Owner.String(),
		Payload:   payload,
		CreatedAt: formatTime(doc.CreatedAt),
		UpdatedAt: formatTime(doc.UpdatedAt),
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	return av, nil
}

func parseItem(raw map[string]types.AttributeValue) (store.Document, error) {
	var it item
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return store.Document{}, fmt.Errorf("unmarshal item: %w", err)
	}

	doc := store.Document{
		ID:    it.ID,
		Owner: store.OwnerRef{Type: it.OwnerType, ID: it.OwnerID},
	}
	if it.Payload != nil {
		payload, err := value.UnmarshalObject([]byte(*it.Payload))
		if err != nil {
			return store.Document{}, fmt.Errorf("document %s payload: %w", it.ID, err)
		}
		doc.Payload = payload
	}

	var err error
	if doc.CreatedAt, err = time.Parse(timeLayout, it.CreatedAt); err != nil {
		return store.Document{}, fmt.Errorf("document %s created_at: %w", it.ID, err)
	}
	if doc.UpdatedAt, err = time.Parse(timeLayout, it.UpdatedAt); err != nil {
		return store.Document{}, fmt.Errorf("document %s updated_at: %w", it.ID, err)
	}
	return doc, nil
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}
