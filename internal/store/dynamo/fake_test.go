package dynamo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// errTransactionFailed is returned by the transaction the fake is told to
// fail.
var errTransactionFailed = errors.New("transaction failed")

// fakeClient is an in-memory table that understands the expressions Store
// sends and enforces the DynamoDB request limits the store relies on.
type fakeClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error

	// batchLimit caps the keys answered per BatchGetItem call; the rest come
	// back as unprocessed keys.
	batchLimit int
	// failTransaction fails the nth TransactWriteItems call (1-based).
	failTransaction int

	transactions      int
	batchGets         int
	inconsistentReads int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		items:      make(map[string]map[string]types.AttributeValue),
		batchLimit: 2,
	}
}

func attrS(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(in map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if !aws.ToBool(in.ConsistentRead) {
		f.inconsistentReads++
	}

	it, ok := f.items[attrS(in.Key["id"])]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(it)}, nil
}

func (f *fakeClient) BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchGets++
	if f.err != nil {
		return nil, f.err
	}

	out := &dynamodb.BatchGetItemOutput{
		Responses: map[string][]map[string]types.AttributeValue{},
	}
	for table, req := range in.RequestItems {
		if len(req.Keys) > maxBatchGetKeys {
			return nil, fmt.Errorf("ValidationException: too many items requested for the BatchGetItem call")
		}
		if !aws.ToBool(req.ConsistentRead) {
			f.inconsistentReads++
		}

		keys := req.Keys
		if f.batchLimit > 0 && len(keys) > f.batchLimit {
			if out.UnprocessedKeys == nil {
				out.UnprocessedKeys = map[string]types.KeysAndAttributes{}
			}
			out.UnprocessedKeys[table] = types.KeysAndAttributes{
				Keys:           keys[f.batchLimit:],
				ConsistentRead: req.ConsistentRead,
			}
			keys = keys[:f.batchLimit]
		}
		for _, key := range keys {
			if it, ok := f.items[attrS(key["id"])]; ok {
				out.Responses[table] = append(out.Responses[table], copyItem(it))
			}
		}
	}
	return out, nil
}

// ownerMatches evaluates "#owner_ref = :owner_ref".
func ownerMatches(it map[string]types.AttributeValue, values map[string]types.AttributeValue) bool {
	return it != nil && attrS(it["owner_ref"]) == attrS(values[":owner_ref"])
}

func (f *fakeClient) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	id := attrS(in.Key["id"])
	it := f.items[id]
	if !ownerMatches(it, in.ExpressionAttributeValues) {
		return nil, conditionFailed()
	}

	it = copyItem(it)
	if v, ok := in.ExpressionAttributeValues[":payload"]; ok {
		it["payload"] = v
	}
	if strings.Contains(aws.ToString(in.UpdateExpression), "REMOVE #payload") {
		delete(it, "payload")
	}
	it["updated_at"] = in.ExpressionAttributeValues[":updated_at"]
	f.items[id] = it
	return &dynamodb.UpdateItemOutput{}, nil
}

func transactID(ti types.TransactWriteItem) string {
	switch {
	case ti.Put != nil:
		return attrS(ti.Put.Item["id"])
	case ti.Delete != nil:
		return attrS(ti.Delete.Key["id"])
	case ti.Update != nil:
		return attrS(ti.Update.Key["id"])
	}
	return ""
}

func (f *fakeClient) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions++
	if f.err != nil {
		return nil, f.err
	}
	if f.transactions == f.failTransaction {
		return nil, errTransactionFailed
	}
	if len(in.TransactItems) > maxTransactItems {
		return nil, fmt.Errorf("ValidationException: Member must have length less than or equal to %d", maxTransactItems)
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	seen := map[string]bool{}
	for i, ti := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		id := transactID(ti)
		switch {
		case seen[id]:
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		case ti.Put != nil:
			if _, ok := f.items[id]; ok {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
				failed = true
			}
		case ti.Delete != nil:
			if !ownerMatches(f.items[id], ti.Delete.ExpressionAttributeValues) {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
				failed = true
			}
		}
		seen[id] = true
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range in.TransactItems {
		id := transactID(ti)
		switch {
		case ti.Put != nil:
			f.items[id] = copyItem(ti.Put.Item)
		case ti.Delete != nil:
			delete(f.items, id)
		case ti.Update != nil:
			f.applySetUpdate(id, ti.Update)
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// applySetUpdate evaluates "ADD #doc_ids :doc_ids" and
// "DELETE #doc_ids :doc_ids". An update creates a missing item, and an
// emptied set removes the attribute.
func (f *fakeClient) applySetUpdate(id string, u *types.Update) {
	it := f.items[id]
	if it == nil {
		it = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
	} else {
		it = copyItem(it)
	}

	var current []string
	if ss, ok := it["doc_ids"].(*types.AttributeValueMemberSS); ok {
		current = slices.Clone(ss.Value)
	}
	operand := u.ExpressionAttributeValues[":doc_ids"].(*types.AttributeValueMemberSS).Value

	switch action, _, _ := strings.Cut(aws.ToString(u.UpdateExpression), " "); action {
	case "ADD":
		for _, v := range operand {
			if !slices.Contains(current, v) {
				current = append(current, v)
			}
		}
	case "DELETE":
		current = slices.DeleteFunc(current, func(v string) bool {
			return slices.Contains(operand, v)
		})
	}

	if len(current) == 0 {
		delete(it, "doc_ids")
	} else {
		it["doc_ids"] = &types.AttributeValueMemberSS{Value: current}
	}
	f.items[id] = it
}
