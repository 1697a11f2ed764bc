package dynamo

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/zeebo/errs"

	"github.com/roach88/metastore/internal/store"
	"github.com/roach88/metastore/internal/value"
)

// Error is the error class for DynamoDB store failures.
var Error = errs.Class("dynamo store")

// Client is the subset of the DynamoDB API the store uses. *dynamodb.Client
// implements it.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

const (
	// maxTransactItems is the DynamoDB limit on actions per transaction.
	maxTransactItems = 100

	// maxBatchGetKeys is the DynamoDB limit on keys per BatchGetItem call.
	maxBatchGetKeys = 100
)

// Store is a store.Store backed by a DynamoDB table.
type Store struct {
	client Client
	config Config
	now    func() time.Time
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.BatchCreator = (*Store)(nil)
)

// New creates a Store. Missing config names take their defaults.
func New(client Client, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		client: client,
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.config
}

// Create puts doc unless a document with its id already exists.
func (s *Store) Create(ctx context.Context, doc store.Document) (store.Document, error) {
	created, err := s.CreateMany(ctx, []store.Document{doc})
	if err != nil {
		return store.Document{}, err
	}
	return created[0], nil
}

// CreateMany puts docs together with their owner index updates. Batches
// larger than one transaction are split; when a later transaction fails the
// documents of the earlier ones are deleted again.
func (s *Store) CreateMany(ctx context.Context, docs []store.Document) ([]store.Document, error) {
	if len(docs) == 0 {
		return []store.Document{}, nil
	}
	for _, doc := range docs {
		if reservedID(doc.ID) {
			return nil, Error.New("document id %q is reserved", doc.ID)
		}
	}

	out := make([]store.Document, 0, len(docs))
	for _, chunk := range transactChunks(docs) {
		created, err := s.createChunk(ctx, chunk)
		if err != nil {
			s.rollback(ctx, out)
			return nil, err
		}
		out = append(out, created...)
	}
	return out, nil
}

// transactChunks splits docs so that each chunk, plus one owner index update
// per distinct owner in it, fits in one transaction.
func transactChunks(docs []store.Document) [][]store.Document {
	var chunks [][]store.Document
	start, actions := 0, 0
	owners := map[store.OwnerRef]bool{}
	for i, doc := range docs {
		need := 1
		if !owners[doc.Owner] {
			need = 2
		}
		if actions+need > maxTransactItems {
			chunks = append(chunks, docs[start:i])
			start, actions = i, 0
			owners = map[store.OwnerRef]bool{}
			need = 2
		}
		owners[doc.Owner] = true
		actions += need
	}
	return append(chunks, docs[start:])
}

func (s *Store) createChunk(ctx context.Context, docs []store.Document) ([]store.Document, error) {
	out := make([]store.Document, len(docs))
	items := make([]types.TransactWriteItem, 0, len(docs)+1)
	added := map[store.OwnerRef][]string{}
	var owners []store.OwnerRef
	for i, doc := range docs {
		out[i] = s.stamp(doc)
		av, err := newItem(out[i])
		if err != nil {
			return nil, Error.Wrap(err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.config.Table),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		})
		if _, ok := added[doc.Owner]; !ok {
			owners = append(owners, doc.Owner)
		}
		added[doc.Owner] = append(added[doc.Owner], doc.ID)
	}
	for _, owner := range owners {
		items = append(items, types.TransactWriteItem{
			Update: s.ownerUpdate(owner, "ADD", added[owner]),
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var txErr *types.TransactionCanceledException
		if errors.As(err, &txErr) {
			for i, reason := range txErr.CancellationReasons {
				if i < len(docs) && reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return nil, Error.New("document %s already exists", docs[i].ID)
				}
			}
		}
		return nil, Error.Wrap(err)
	}
	return out, nil
}

// rollback deletes documents written by the committed chunks of a failed
// batch. Failures are ignored; the batch error is what gets reported.
func (s *Store) rollback(ctx context.Context, docs []store.Document) {
	for _, doc := range docs {
		_, _ = s.DeleteByID(ctx, doc.Owner, doc.ID)
	}
}

// ownerUpdate adds ids to, or deletes them from, the owner's index item.
func (s *Store) ownerUpdate(owner store.OwnerRef, action string, ids []string) *types.Update {
	return &types.Update{
		TableName:        aws.String(s.config.Table),
		Key:              ownerKey(owner),
		UpdateExpression: aws.String(action + " #doc_ids :doc_ids"),
		ExpressionAttributeNames: map[string]string{
			"#doc_ids": "doc_ids",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":doc_ids": &types.AttributeValueMemberSS{Value: ids},
		},
	}
}

func (s *Store) stamp(doc store.Document) store.Document {
	now := s.now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return doc
}

// Find reads a document with a consistent read.
func (s *Store) Find(ctx context.Context, owner store.OwnerRef, id string) (store.Document, error) {
	if reservedID(id) {
		return store.Document{}, store.ErrNotFound
	}
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.Table),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Document{}, Error.Wrap(err)
	}
	if result.Item == nil {
		return store.Document{}, store.ErrNotFound
	}

	doc, err := parseItem(result.Item)
	if err != nil {
		return store.Document{}, Error.Wrap(err)
	}
	if doc.Owner != owner {
		return store.Document{}, store.ErrNotFound
	}
	return doc, nil
}

// FindAllByOwner reads the owner's index item, then its documents, all with
// consistent reads.
func (s *Store) FindAllByOwner(ctx context.Context, owner store.OwnerRef) ([]store.Document, error) {
	ids, err := s.ownerDocIDs(ctx, owner)
	if err != nil {
		return nil, err
	}

	docs := make([]store.Document, 0, len(ids))
	for start := 0; start < len(ids); start += maxBatchGetKeys {
		items, err := s.batchGet(ctx, ids[start:min(start+maxBatchGetKeys, len(ids))])
		if err != nil {
			return nil, err
		}
		for _, raw := range items {
			doc, err := parseItem(raw)
			if err != nil {
				return nil, Error.Wrap(err)
			}
			if doc.Owner == owner {
				docs = append(docs, doc)
			}
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		return sortKey(docs[i].CreatedAt, docs[i].ID) < sortKey(docs[j].CreatedAt, docs[j].ID)
	})
	return docs, nil
}

// ownerDocIDs returns the ids held by the owner's index item.
func (s *Store) ownerDocIDs(ctx context.Context, owner store.OwnerRef) ([]string, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.Table),
		Key:            ownerKey(owner),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var it ownerItem
	if err := attributevalue.UnmarshalMap(result.Item, &it); err != nil {
		return nil, Error.New("owner %s index item: %v", owner, err)
	}
	return it.DocIDs, nil
}

// batchGet reads documents by id, retrying unprocessed keys.
func (s *Store) batchGet(ctx context.Context, ids []string) ([]map[string]types.AttributeValue, error) {
	keys := make([]map[string]types.AttributeValue, len(ids))
	for i, id := range ids {
		keys[i] = idKey(id)
	}
	request := map[string]types.KeysAndAttributes{
		s.config.Table: {Keys: keys, ConsistentRead: aws.Bool(true)},
	}

	var items []map[string]types.AttributeValue
	for len(request) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: request,
		})
		if err != nil {
			return nil, Error.Wrap(err)
		}
		items = append(items, result.Responses[s.config.Table]...)
		request = result.UnprocessedKeys
	}
	return items, nil
}

// Exists reports whether the owner's index item lists any document.
func (s *Store) Exists(ctx context.Context, owner store.OwnerRef) (bool, error) {
	ids, err := s.ownerDocIDs(ctx, owner)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// UpdateByID replaces the payload of the owner's document.
func (s *Store) UpdateByID(ctx context.Context, owner store.OwnerRef, id string, payload value.Object) (int64, error) {
	text, err := marshalPayload(payload)
	if err != nil {
		return 0, Error.Wrap(err)
	}

	names := map[string]string{
		"#owner_ref":  "owner_ref",
		"#updated_at": "updated_at",
		"#payload":    "payload",
	}
	values := map[string]types.AttributeValue{
		":owner_ref":  &types.AttributeValueMemberS{Value: owner.String()},
		":updated_at": &types.AttributeValueMemberS{Value: formatTime(s.now())},
	}
	expr := "SET #updated_at = :updated_at REMOVE #payload"
	if text != nil {
		expr = "SET #payload = :payload, #updated_at = :updated_at"
		values[":payload"] = &types.AttributeValueMemberS{Value: *text}
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.Table),
		Key:                       idKey(id),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("#owner_ref = :owner_ref"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return affected(err)
}

// DeleteByID deletes the owner's document and its owner index entry.
func (s *Store) DeleteByID(ctx context.Context, owner store.OwnerRef, id string) (int64, error) {
	if reservedID(id) {
		return 0, nil
	}
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:           aws.String(s.config.Table),
					Key:                 idKey(id),
					ConditionExpression: aws.String("#owner_ref = :owner_ref"),
					ExpressionAttributeNames: map[string]string{
						"#owner_ref": "owner_ref",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":owner_ref": &types.AttributeValueMemberS{Value: owner.String()},
					},
				},
			},
			{Update: s.ownerUpdate(owner, "DELETE", []string{id})},
		},
	})
	return affected(err)
}

// DeleteAllByOwner deletes the owner's documents one by one.
func (s *Store) DeleteAllByOwner(ctx context.Context, owner store.OwnerRef) (int64, error) {
	docs, err := s.FindAllByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, doc := range docs {
		n, err := s.DeleteByID(ctx, owner, doc.ID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// QueryContains is unsupported: payloads are opaque JSON text to DynamoDB.
func (s *Store) QueryContains(ctx context.Context, owner store.OwnerRef, term value.Value) ([]store.Document, error) {
	return nil, store.ErrCapabilityUnsupported
}

// affected maps a conditional write result to a row count. A failed owner
// condition means no document matched.
func affected(err error) (int64, error) {
	if err == nil {
		return 1, nil
	}
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return 0, nil
	}
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return 0, nil
			}
		}
	}
	return 0, Error.Wrap(err)
}
