// Package dynamo implements history.History on DynamoDB, so a session's
// history survives process restarts and can be shared between router
// instances.
//
// Table schema:
//   - Partition key: session (string)
//   - Sort key: version (number), 1-based position in the history
//
// The item at version 0 holds the cursor. Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name routecache-history \
//	  --attribute-definitions AttributeName=session,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=session,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/routecache/codec"
	"github.com/hupe1980/routecache/history"
	"github.com/hupe1980/routecache/route"
)

// DDBClient is the subset of the DynamoDB API the store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// ErrConcurrentModification is returned when another writer pushed to the
// same session first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

const (
	attrSession = "session"
	attrVersion = "version"
	attrCursor  = "cursor"
	attrURL     = "url"
	attrTree    = "tree"

	cursorVersion = 0
)

// Store is a DynamoDB backed history for one session.
type Store struct {
	client  DDBClient
	table   string
	session string
	codec   codec.Codec
}

var _ history.History = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the codec route trees are stored with. Defaults to
// codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// New creates a store for session in table.
func New(client DDBClient, table, session string, opts ...Option) *Store {
	s := &Store{
		client:  client,
		table:   table,
		session: session,
		codec:   codec.Default,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Push implements history.Store.
func (s *Store) Push(ctx context.Context, e history.Entry) error {
	cur, err := s.cursor(ctx)
	if err != nil {
		return err
	}
	if err := s.truncate(ctx, cur); err != nil {
		return err
	}

	item, err := s.item(cur+1, e)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to push history entry: %w", err)
	}

	return s.setCursor(ctx, cur+1)
}

// Replace implements history.Store.
func (s *Store) Replace(ctx context.Context, e history.Entry) error {
	cur, err := s.cursor(ctx)
	if err != nil {
		return err
	}
	if cur == cursorVersion {
		return s.Push(ctx, e)
	}

	item, err := s.item(cur, e)
	if err != nil {
		return err
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to replace history entry: %w", err)
	}
	return nil
}

// Current implements history.Store.
func (s *Store) Current(ctx context.Context) (history.Entry, error) {
	cur, err := s.cursor(ctx)
	if err != nil {
		return history.Entry{}, err
	}
	if cur == cursorVersion {
		return history.Entry{}, history.ErrNoEntry
	}
	return s.get(ctx, cur)
}

// Back implements history.Traverser.
func (s *Store) Back(ctx context.Context) (history.Entry, error) {
	return s.move(ctx, -1)
}

// Forward implements history.Traverser.
func (s *Store) Forward(ctx context.Context) (history.Entry, error) {
	return s.move(ctx, 1)
}

func (s *Store) move(ctx context.Context, delta int64) (history.Entry, error) {
	cur, err := s.cursor(ctx)
	if err != nil {
		return history.Entry{}, err
	}
	next := cur + delta
	if next <= cursorVersion {
		return history.Entry{}, history.ErrNoEntry
	}

	e, err := s.get(ctx, next)
	if err != nil {
		return history.Entry{}, err
	}
	if err := s.setCursor(ctx, next); err != nil {
		return history.Entry{}, err
	}
	return e, nil
}

func (s *Store) key(version int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrSession: &types.AttributeValueMemberS{Value: s.session},
		attrVersion: &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
	}
}

func (s *Store) cursor(ctx context.Context) (int64, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(cursorVersion),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read history cursor: %w", err)
	}
	if resp.Item == nil {
		return cursorVersion, nil
	}
	return number(resp.Item, attrCursor)
}

func (s *Store) setCursor(ctx context.Context, version int64) error {
	item := s.key(cursorVersion)
	item[attrCursor] = &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("failed to write history cursor: %w", err)
	}
	return nil
}

// truncate deletes every entry after version.
func (s *Store) truncate(ctx context.Context, version int64) error {
	resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#s = :s AND version > :v"),
		ExpressionAttributeNames: map[string]string{
			"#s": attrSession,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: s.session},
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
		},
		ProjectionExpression: aws.String("version"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to query forward history: %w", err)
	}

	for _, item := range resp.Items {
		v, err := number(item, attrVersion)
		if err != nil {
			return err
		}
		if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key:       s.key(v),
		}); err != nil {
			return fmt.Errorf("failed to delete history entry %d: %w", v, err)
		}
	}
	return nil
}

func (s *Store) get(ctx context.Context, version int64) (history.Entry, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(version),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return history.Entry{}, fmt.Errorf("failed to read history entry %d: %w", version, err)
	}
	if resp.Item == nil {
		return history.Entry{}, history.ErrNoEntry
	}

	u, ok := resp.Item[attrURL].(*types.AttributeValueMemberS)
	if !ok {
		return history.Entry{}, errors.New("invalid url attribute in DynamoDB")
	}
	e := history.Entry{URL: u.Value}

	if raw, ok := resp.Item[attrTree].(*types.AttributeValueMemberS); ok {
		var t route.Tree
		if err := s.codec.Unmarshal([]byte(raw.Value), &t); err != nil {
			return history.Entry{}, fmt.Errorf("failed to decode history tree: %w", err)
		}
		e.Tree = &t
	}
	return e, nil
}

func (s *Store) item(version int64, e history.Entry) (map[string]types.AttributeValue, error) {
	item := s.key(version)
	item[attrURL] = &types.AttributeValueMemberS{Value: e.URL}
	if e.Tree != nil {
		b, err := s.codec.Marshal(e.Tree)
		if err != nil {
			return nil, fmt.Errorf("failed to encode history tree: %w", err)
		}
		item[attrTree] = &types.AttributeValueMemberS{Value: string(b)}
	}
	return item, nil
}

func number(item map[string]types.AttributeValue, name string) (int64, error) {
	attr, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid %s attribute in DynamoDB", name)
	}
	v, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return v, nil
}
