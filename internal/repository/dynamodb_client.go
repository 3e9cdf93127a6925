package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"chatbank-agent/internal/domain"
)

const (
	skState         = "STATE"
	skPrefixRcpt    = "RCPT#"
	skPrefixTxn     = "TXN#"
	stateTTLPadding = time.Hour

	// sortKeyTime keeps a fixed width so sort keys order lexically by time.
	sortKeyTime = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRecipientNotFound is returned by AddNickname when no local record exists.
var ErrRecipientNotFound = errors.New("repository: recipient not found")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client wraps a single DynamoDB table holding, per user, the live dialogue
// state, the locally saved recipients and the transfer log.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

type Option func(*Client)

// WithClock overrides time.Now for expiry checks and TTL values.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	c := &Client{api: api, tableName: tableName, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func userPK(userID string) string {
	return "USER#" + userID
}

func recipientSK(k domain.RecipientKey) string {
	return skPrefixRcpt + k.BankCode + "#" + k.AccountNumber
}

// transferSK sorts transfers chronologically within a user partition.
func transferSK(createdAt time.Time, reference string) string {
	return skPrefixTxn + createdAt.UTC().Format(sortKeyTime) + "#" + reference
}

func (c *Client) key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// ---- dialogue state ----

// GetState returns the live state of a user. An expired state reads as absent.
func (c *Client) GetState(ctx context.Context, userID string) (domain.State, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.key(userPK(userID), skState),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.State{}, false, fmt.Errorf("repository: GetState get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.State{}, false, nil
	}

	raw, err := strAttr(out.Item, "state")
	if err != nil {
		return domain.State{}, false, fmt.Errorf("repository: GetState: %w", err)
	}
	var st domain.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return domain.State{}, false, fmt.Errorf("repository: GetState decode: %w", err)
	}
	if st.Expired(c.now()) {
		return domain.State{}, false, nil
	}
	return st, true, nil
}

// SetState replaces the state of a user. Concurrent writers race; the last
// write wins.
func (c *Client) SetState(ctx context.Context, userID string, st domain.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("repository: SetState encode: %w", err)
	}
	item := c.key(userPK(userID), skState)
	item["kind"] = &types.AttributeValueMemberS{Value: string(st.Kind)}
	item["state"] = &types.AttributeValueMemberS{Value: string(raw)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(c.stateTTL(st), 10)}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: SetState: %w", err)
	}
	return nil
}

// stateTTL lets DynamoDB sweep abandoned flows some time after they expire.
func (c *Client) stateTTL(st domain.State) int64 {
	exp := st.ExpiresAt
	if exp.IsZero() {
		exp = st.CreatedAt.Add(domain.StateTTL)
	}
	return exp.Add(stateTTLPadding).Unix()
}

func (c *Client) ClearState(ctx context.Context, userID string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       c.key(userPK(userID), skState),
	})
	if err != nil {
		return fmt.Errorf("repository: ClearState: %w", err)
	}
	return nil
}

// ---- local recipients ----

// ListRecipients returns every recipient saved locally for a user.
func (c *Client) ListRecipients(ctx context.Context, userID string) ([]domain.Recipient, error) {
	items, err := c.queryPrefix(ctx, userID, skPrefixRcpt)
	if err != nil {
		return nil, fmt.Errorf("repository: ListRecipients: %w", err)
	}
	out := make([]domain.Recipient, 0, len(items))
	for _, item := range items {
		r, err := itemToRecipient(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListRecipients unmarshal: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SaveRecipient stores a recipient. An existing record for the same account
// and bank keeps its fields and nicknames; it only gains a recipient code
// when it had none.
func (c *Client) SaveRecipient(ctx context.Context, userID string, r domain.Recipient) error {
	if r.AccountNumber == "" || r.BankCode == "" {
		return errors.New("repository: SaveRecipient: account number and bank code are required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                c.recipientItem(userID, r),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	var exists *types.ConditionalCheckFailedException
	if errors.As(err, &exists) {
		if r.RecipientCode == "" {
			return nil
		}
		return c.fillRecipientCode(ctx, userID, r)
	}
	if err != nil {
		return fmt.Errorf("repository: SaveRecipient: %w", err)
	}
	return nil
}

func (c *Client) fillRecipientCode(ctx context.Context, userID string, r domain.Recipient) error {
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 c.key(userPK(userID), recipientSK(r.Key())),
		UpdateExpression:    aws.String("SET recipientCode = :c"),
		ConditionExpression: aws.String("attribute_exists(PK) AND (attribute_not_exists(recipientCode) OR recipientCode = :empty)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":     &types.AttributeValueMemberS{Value: r.RecipientCode},
			":empty": &types.AttributeValueMemberS{Value: ""},
		},
	})
	var kept *types.ConditionalCheckFailedException
	if errors.As(err, &kept) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("repository: SaveRecipient code: %w", err)
	}
	return nil
}

// AddNickname attaches a nickname to a saved recipient.
func (c *Client) AddNickname(ctx context.Context, userID string, key domain.RecipientKey, nickname string) error {
	nickname = strings.ToLower(strings.TrimSpace(nickname))
	if nickname == "" {
		return errors.New("repository: AddNickname: nickname must not be empty")
	}
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 c.key(userPK(userID), recipientSK(key)),
		UpdateExpression:    aws.String("ADD nicknames :n"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberSS{Value: []string{nickname}},
		},
	})
	var missing *types.ConditionalCheckFailedException
	if errors.As(err, &missing) {
		return ErrRecipientNotFound
	}
	if err != nil {
		return fmt.Errorf("repository: AddNickname: %w", err)
	}
	return nil
}

func (c *Client) recipientItem(userID string, r domain.Recipient) map[string]types.AttributeValue {
	item := c.key(userPK(userID), recipientSK(r.Key()))
	item["accountName"] = &types.AttributeValueMemberS{Value: r.AccountName}
	item["accountNumber"] = &types.AttributeValueMemberS{Value: r.AccountNumber}
	item["bankCode"] = &types.AttributeValueMemberS{Value: r.BankCode}
	item["bankName"] = &types.AttributeValueMemberS{Value: r.BankName}
	item["recipientCode"] = &types.AttributeValueMemberS{Value: r.RecipientCode}
	item["createdAt"] = &types.AttributeValueMemberS{Value: c.now().UTC().Format(time.RFC3339)}
	if len(r.Nicknames) > 0 {
		item["nicknames"] = &types.AttributeValueMemberSS{Value: dedupe(r.Nicknames)}
	}
	return item
}

func itemToRecipient(item map[string]types.AttributeValue) (domain.Recipient, error) {
	number, err := strAttr(item, "accountNumber")
	if err != nil {
		return domain.Recipient{}, err
	}
	bank, err := strAttr(item, "bankCode")
	if err != nil {
		return domain.Recipient{}, err
	}
	name, _ := strAttr(item, "accountName")
	bankName, _ := strAttr(item, "bankName")
	code, _ := strAttr(item, "recipientCode")

	r := domain.Recipient{
		AccountName:   name,
		AccountNumber: number,
		BankCode:      bank,
		BankName:      bankName,
		RecipientCode: code,
		Source:        domain.SourceLocal,
	}
	if v, ok := item["nicknames"].(*types.AttributeValueMemberSS); ok {
		r.Nicknames = append([]string(nil), v.Value...)
		sort.Strings(r.Nicknames)
	}
	return r, nil
}

// ---- transfer log ----

// SaveTransfer appends a transfer to the user's log.
func (c *Client) SaveTransfer(ctx context.Context, userID string, t domain.Transfer) error {
	if t.Reference == "" {
		return errors.New("repository: SaveTransfer: reference is required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = c.now()
	}
	item := c.key(userPK(userID), transferSK(t.CreatedAt, t.Reference))
	item["reference"] = &types.AttributeValueMemberS{Value: t.Reference}
	item["amount"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(t.AmountMinor, 10)}
	item["recipientName"] = &types.AttributeValueMemberS{Value: t.RecipientName}
	item["accountNumber"] = &types.AttributeValueMemberS{Value: t.AccountNumber}
	item["bankCode"] = &types.AttributeValueMemberS{Value: t.BankCode}
	item["bankName"] = &types.AttributeValueMemberS{Value: t.BankName}
	item["status"] = &types.AttributeValueMemberS{Value: t.Status}
	item["createdAt"] = &types.AttributeValueMemberS{Value: t.CreatedAt.UTC().Format(time.RFC3339Nano)}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveTransfer: %w", err)
	}
	return nil
}

// ListTransfers returns the transfers logged in [from, to), oldest first.
func (c *Client) ListTransfers(ctx context.Context, userID string, from, to time.Time) ([]domain.Transfer, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: userPK(userID)},
			":from": &types.AttributeValueMemberS{Value: skPrefixTxn + from.UTC().Format(sortKeyTime)},
			":to":   &types.AttributeValueMemberS{Value: skPrefixTxn + to.UTC().Format(sortKeyTime)},
		},
	}
	items, err := c.query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: ListTransfers: %w", err)
	}

	out := make([]domain.Transfer, 0, len(items))
	for _, item := range items {
		t, err := itemToTransfer(item)
		if err != nil {
			return nil, fmt.Errorf("repository: ListTransfers unmarshal: %w", err)
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func itemToTransfer(item map[string]types.AttributeValue) (domain.Transfer, error) {
	ref, err := strAttr(item, "reference")
	if err != nil {
		return domain.Transfer{}, err
	}
	amount, err := int64Attr(item, "amount")
	if err != nil {
		return domain.Transfer{}, err
	}
	created, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.Transfer{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("repository: parse createdAt: %w", err)
	}
	name, _ := strAttr(item, "recipientName")
	number, _ := strAttr(item, "accountNumber")
	bank, _ := strAttr(item, "bankCode")
	bankName, _ := strAttr(item, "bankName")
	status, _ := strAttr(item, "status")

	return domain.Transfer{
		Reference:     ref,
		AmountMinor:   amount,
		RecipientName: name,
		AccountNumber: number,
		BankCode:      bank,
		BankName:      bankName,
		Status:        status,
		CreatedAt:     ts,
	}, nil
}

// ---- helpers ----

func (c *Client) queryPrefix(ctx context.Context, userID, prefix string) ([]map[string]types.AttributeValue, error) {
	return c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: prefix},
		},
		ConsistentRead: aws.Bool(true),
	})
}

// query follows LastEvaluatedKey until the result set is exhausted.
func (c *Client) query(ctx context.Context, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return items, nil
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
