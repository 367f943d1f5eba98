package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/kyc-ledger/internal/domain"
)

// VerificationRepo stores KYC verification records, one item per user.
// PK: user_id. GSI status-submitted_at-index lists one status in submission order.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Put writes rec only if the stored version still equals expectedVersion
// (0: the item must not exist). A lost race is reported as domain.ErrConflict.
func (r *VerificationRepo) Put(ctx context.Context, rec *domain.VerificationRecord, expectedVersion int64) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}
	cond, names, values := versionCondition(expectedVersion)
	input.ConditionExpression = aws.String(cond)
	input.ExpressionAttributeNames = names
	input.ExpressionAttributeValues = values

	_, err = r.client.PutItem(ctx, input)
	return mapConditionFailed(err, fmt.Errorf("verification %s changed concurrently: %w", rec.UserID, domain.ErrConflict))
}

func versionCondition(expected int64) (string, map[string]string, map[string]types.AttributeValue) {
	if expected == 0 {
		return "attribute_not_exists(#pk)", map[string]string{"#pk": fieldUserID}, nil
	}
	return "#v = :v",
		map[string]string{"#v": fieldVersion},
		map[string]types.AttributeValue{":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(expected, 10)}}
}

func (r *VerificationRepo) Get(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var rec domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByStatus queries the status index, oldest submission first. Implicit
// not_submitted records are never stored, so that status is always empty.
func (r *VerificationRepo) ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.VerificationRecord, error) {
	recs := []domain.VerificationRecord{}
	if status == domain.StatusNotSubmitted {
		return recs, nil
	}
	p := dynamodb.NewQueryPaginator(r.client, statusQuery(r.tableName, status))
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s verifications: %w", status, err)
		}
		var batch []domain.VerificationRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		recs = append(recs, batch...)
	}
	return recs, nil
}

func statusQuery(table string, status domain.VerificationStatus) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                aws.String(table),
		IndexName:                aws.String(statusIndex),
		KeyConditionExpression:   aws.String("#s = :status"),
		ExpressionAttributeNames: map[string]string{"#s": fieldStatus},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		ScanIndexForward: aws.Bool(true),
	}
}

// All scans the whole table, following pagination.
func (r *VerificationRepo) All(ctx context.Context) ([]domain.VerificationRecord, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:      aws.String(r.tableName),
		ConsistentRead: aws.Bool(true),
	})
	var recs []domain.VerificationRecord
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan verifications: %w", err)
		}
		var batch []domain.VerificationRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		recs = append(recs, batch...)
	}
	return recs, nil
}
