package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"

	"access-grants/internal/domain"
)

const (
	statusIndex = "StatusIndex" // GSI1: entity-status partitions
	userIndex   = "UserIndex"   // GSI2: per-user partitions
)

type Client struct {
	db        *awsv2dynamodb.Client
	tableName string
}

func NewClient(ctx context.Context, region, tableName string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	client := awsv2dynamodb.NewFromConfig(cfg)
	return &Client{db: client, tableName: tableName}, nil
}

func requestPK(id string) string { return "REQ#" + id }
func grantPK(id string) string   { return "GRANT#" + id }
func metaSK() string             { return "META" }
func lockSK() string             { return "LOCK" }

// reqLockPK keys the one-active-request invariant: one lock item may exist
// per (requester, resource, target principal) tuple.
func reqLockPK(requesterID, resourceID, principal string) string {
	return "REQLOCK#" + requesterID + "#" + resourceID + "#" + principal
}

func userPK(userID string) string           { return "USER#" + userID }
func assignmentSK(resourceID string) string { return "RES#" + resourceID }
func resourcePK(id string) string           { return "RESOURCE#" + id }

func requesterGSI(requesterID string) string { return "REQUSER#" + requesterID }
func grantStatusGSI(status domain.GrantStatus) string {
	return "GRANTSTATUS#" + string(status)
}
func grantUserGSI(userID string) string { return "GRANTUSER#" + userID }
func resourceStatusGSI(status domain.ResourceStatus) string {
	return "RESOURCESTATUS#" + string(status)
}

func isConditionalCheckFailure(err error) bool {
	var condErr *awsv2types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

func isTransactionConditionFailure(err error) bool {
	var txErr *awsv2types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return false
	}
	for _, reason := range txErr.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t := parseTime(s)
	return &t
}

type RequestRepository struct{ client *Client }

type GrantRepository struct{ client *Client }

type AssignmentRepository struct{ client *Client }

type ResourceRepository struct{ client *Client }

func NewRequestRepository(client *Client) *RequestRepository {
	return &RequestRepository{client: client}
}

func NewGrantRepository(client *Client) *GrantRepository {
	return &GrantRepository{client: client}
}

func NewAssignmentRepository(client *Client) *AssignmentRepository {
	return &AssignmentRepository{client: client}
}

func NewResourceRepository(client *Client) *ResourceRepository {
	return &ResourceRepository{client: client}
}

type requestItem struct {
	PK                   string `dynamodbav:"PK"`
	SK                   string `dynamodbav:"SK"`
	EntityType           string `dynamodbav:"EntityType"`
	GSI1PK               string `dynamodbav:"GSI1PK"`
	GSI1SK               string `dynamodbav:"GSI1SK"`
	ID                   string `dynamodbav:"ID"`
	RequesterID          string `dynamodbav:"RequesterID"`
	RequesterRole        string `dynamodbav:"RequesterRole"`
	ResourceID           string `dynamodbav:"ResourceID"`
	TargetPrincipal      string `dynamodbav:"TargetPrincipal"`
	Level                string `dynamodbav:"Level"`
	Justification        string `dynamodbav:"Justification"`
	DurationDays         int    `dynamodbav:"DurationDays"`
	Status               string `dynamodbav:"Status"`
	AutoApproved         bool   `dynamodbav:"AutoApproved"`
	DecisionReason       string `dynamodbav:"DecisionReason"`
	RequiredApproverRole string `dynamodbav:"RequiredApproverRole"`
	ProcessedBy          string `dynamodbav:"ProcessedBy"`
	ProcessingNotes      string `dynamodbav:"ProcessingNotes"`
	ProcessedAt          string `dynamodbav:"ProcessedAt"`
	GrantID              string `dynamodbav:"GrantID"`
	CreatedAt            string `dynamodbav:"CreatedAt"`
	UpdatedAt            string `dynamodbav:"UpdatedAt"`
}

func toRequestItem(req domain.PermissionRequest) requestItem {
	return requestItem{
		PK:                   requestPK(req.ID),
		SK:                   metaSK(),
		EntityType:           "PERMISSION_REQUEST",
		GSI1PK:               requesterGSI(req.RequesterID),
		GSI1SK:               formatTime(req.CreatedAt),
		ID:                   req.ID,
		RequesterID:          req.RequesterID,
		RequesterRole:        string(req.RequesterRole),
		ResourceID:           req.ResourceID,
		TargetPrincipal:      req.TargetPrincipal,
		Level:                string(req.Level),
		Justification:        req.Justification,
		DurationDays:         req.DurationDays,
		Status:               string(req.Status),
		AutoApproved:         req.AutoApproved,
		DecisionReason:       req.DecisionReason,
		RequiredApproverRole: string(req.RequiredApproverRole),
		ProcessedBy:          req.ProcessedBy,
		ProcessingNotes:      req.ProcessingNotes,
		ProcessedAt:          formatOptionalTime(req.ProcessedAt),
		GrantID:              req.GrantID,
		CreatedAt:            formatTime(req.CreatedAt),
		UpdatedAt:            formatTime(req.UpdatedAt),
	}
}

func (i requestItem) toDomain() domain.PermissionRequest {
	return domain.PermissionRequest{
		ID:                   i.ID,
		RequesterID:          i.RequesterID,
		RequesterRole:        domain.Role(i.RequesterRole),
		ResourceID:           i.ResourceID,
		TargetPrincipal:      i.TargetPrincipal,
		Level:                domain.PermissionLevel(i.Level),
		Justification:        i.Justification,
		DurationDays:         i.DurationDays,
		Status:               domain.RequestStatus(i.Status),
		AutoApproved:         i.AutoApproved,
		DecisionReason:       i.DecisionReason,
		RequiredApproverRole: domain.Role(i.RequiredApproverRole),
		ProcessedBy:          i.ProcessedBy,
		ProcessingNotes:      i.ProcessingNotes,
		ProcessedAt:          parseOptionalTime(i.ProcessedAt),
		GrantID:              i.GrantID,
		CreatedAt:            parseTime(i.CreatedAt),
		UpdatedAt:            parseTime(i.UpdatedAt),
	}
}

// Create writes the request record and its tuple lock in one transaction.
// Both puts carry attribute_not_exists conditions, so two concurrent
// creates for the same tuple resolve to one success and one
// ErrDuplicateRequest.
func (r *RequestRepository) Create(ctx context.Context, req domain.PermissionRequest) error {
	item, err := attributevalue.MarshalMap(toRequestItem(req))
	if err != nil {
		return err
	}
	lock, err := attributevalue.MarshalMap(map[string]any{
		"PK":         reqLockPK(req.RequesterID, req.ResourceID, req.TargetPrincipal),
		"SK":         lockSK(),
		"EntityType": "REQUEST_LOCK",
		"RequestID":  req.ID,
		"CreatedAt":  formatTime(req.CreatedAt),
	})
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutRequest", func(ctx context.Context) error {
		_, err := r.client.db.TransactWriteItems(ctx, &awsv2dynamodb.TransactWriteItemsInput{
			TransactItems: []awsv2types.TransactWriteItem{
				{Put: &awsv2types.Put{
					TableName:           aws.String(r.client.tableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				}},
				{Put: &awsv2types.Put{
					TableName:           aws.String(r.client.tableName),
					Item:                lock,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				}},
			},
		})
		if isTransactionConditionFailure(err) {
			return domain.ErrDuplicateRequest
		}
		return err
	})
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (domain.PermissionRequest, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetRequest", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: requestPK(id)},
				"SK": &awsv2types.AttributeValueMemberS{Value: metaSK()},
			},
		})
		return e
	})
	if err != nil {
		return domain.PermissionRequest{}, err
	}
	if out.Item == nil {
		return domain.PermissionRequest{}, domain.ErrNotFound
	}
	var item requestItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.PermissionRequest{}, err
	}
	return item.toDomain(), nil
}

// Update replaces the request record, conditional on the stored status still
// being fromStatus. A concurrent processor that lost the race gets
// ErrInvalidState.
func (r *RequestRepository) Update(ctx context.Context, req domain.PermissionRequest, fromStatus domain.RequestStatus) error {
	item, err := attributevalue.MarshalMap(toRequestItem(req))
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.UpdateRequest", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           aws.String(r.client.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_exists(PK) AND #st = :from"),
			ExpressionAttributeNames: map[string]string{
				"#st": "Status",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":from": &awsv2types.AttributeValueMemberS{Value: string(fromStatus)},
			},
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrInvalidState
		}
		return err
	})
}

// Delete removes a still-pending request and its tuple lock.
func (r *RequestRepository) Delete(ctx context.Context, req domain.PermissionRequest) error {
	return xray.Capture(ctx, "DynamoDB.DeleteRequest", func(ctx context.Context) error {
		_, err := r.client.db.TransactWriteItems(ctx, &awsv2dynamodb.TransactWriteItemsInput{
			TransactItems: []awsv2types.TransactWriteItem{
				{Delete: &awsv2types.Delete{
					TableName: aws.String(r.client.tableName),
					Key: map[string]awsv2types.AttributeValue{
						"PK": &awsv2types.AttributeValueMemberS{Value: requestPK(req.ID)},
						"SK": &awsv2types.AttributeValueMemberS{Value: metaSK()},
					},
					ConditionExpression: aws.String("#st = :pending"),
					ExpressionAttributeNames: map[string]string{
						"#st": "Status",
					},
					ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
						":pending": &awsv2types.AttributeValueMemberS{Value: string(domain.RequestPending)},
					},
				}},
				{Delete: &awsv2types.Delete{
					TableName: aws.String(r.client.tableName),
					Key: map[string]awsv2types.AttributeValue{
						"PK": &awsv2types.AttributeValueMemberS{Value: reqLockPK(req.RequesterID, req.ResourceID, req.TargetPrincipal)},
						"SK": &awsv2types.AttributeValueMemberS{Value: lockSK()},
					},
				}},
			},
		})
		if isTransactionConditionFailure(err) {
			return domain.ErrInvalidState
		}
		return err
	})
}

func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.PermissionRequest, error) {
	var out *awsv2dynamodb.QueryOutput
	err := xray.Capture(ctx, "DynamoDB.QueryRequestsByRequester", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.Query(ctx, &awsv2dynamodb.QueryInput{
			TableName:              aws.String(r.client.tableName),
			IndexName:              aws.String(statusIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":pk": &awsv2types.AttributeValueMemberS{Value: requesterGSI(requesterID)},
			},
		})
		return e
	})
	if err != nil {
		return nil, err
	}
	requests := make([]domain.PermissionRequest, 0, len(out.Items))
	for _, raw := range out.Items {
		var item requestItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, err
		}
		requests = append(requests, item.toDomain())
	}
	return requests, nil
}

func (r *RequestRepository) ClearActiveTuple(ctx context.Context, requesterID, resourceID, targetPrincipal string) error {
	return xray.Capture(ctx, "DynamoDB.DeleteRequestLock", func(ctx context.Context) error {
		_, err := r.client.db.DeleteItem(ctx, &awsv2dynamodb.DeleteItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: reqLockPK(requesterID, resourceID, targetPrincipal)},
				"SK": &awsv2types.AttributeValueMemberS{Value: lockSK()},
			},
		})
		return err
	})
}

type grantItem struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	EntityType        string `dynamodbav:"EntityType"`
	GSI1PK            string `dynamodbav:"GSI1PK"`
	GSI1SK            string `dynamodbav:"GSI1SK"`
	GSI2PK            string `dynamodbav:"GSI2PK"`
	GSI2SK            string `dynamodbav:"GSI2SK"`
	ID                string `dynamodbav:"ID"`
	RequestID         string `dynamodbav:"RequestID"`
	UserID            string `dynamodbav:"UserID"`
	ResourceID        string `dynamodbav:"ResourceID"`
	TargetPrincipal   string `dynamodbav:"TargetPrincipal"`
	Level             string `dynamodbav:"Level"`
	Status            string `dynamodbav:"Status"`
	GrantedAt         string `dynamodbav:"GrantedAt"`
	ExpiresAt         string `dynamodbav:"ExpiresAt"`
	OriginalExpiresAt string `dynamodbav:"OriginalExpiresAt"`
	ExtensionCount    int    `dynamodbav:"ExtensionCount"`
	RevokedAt         string `dynamodbav:"RevokedAt"`
	RevokedBy         string `dynamodbav:"RevokedBy"`
	RevokeReason      string `dynamodbav:"RevokeReason"`
}

func toGrantItem(grant domain.PermissionGrant) grantItem {
	return grantItem{
		PK:                grantPK(grant.ID),
		SK:                metaSK(),
		EntityType:        "PERMISSION_GRANT",
		GSI1PK:            grantStatusGSI(grant.Status),
		GSI1SK:            formatTime(grant.ExpiresAt),
		GSI2PK:            grantUserGSI(grant.UserID),
		GSI2SK:            formatTime(grant.GrantedAt),
		ID:                grant.ID,
		RequestID:         grant.RequestID,
		UserID:            grant.UserID,
		ResourceID:        grant.ResourceID,
		TargetPrincipal:   grant.TargetPrincipal,
		Level:             string(grant.Level),
		Status:            string(grant.Status),
		GrantedAt:         formatTime(grant.GrantedAt),
		ExpiresAt:         formatTime(grant.ExpiresAt),
		OriginalExpiresAt: formatTime(grant.OriginalExpiresAt),
		ExtensionCount:    grant.ExtensionCount,
		RevokedAt:         formatOptionalTime(grant.RevokedAt),
		RevokedBy:         grant.RevokedBy,
		RevokeReason:      grant.RevokeReason,
	}
}

func (i grantItem) toDomain() domain.PermissionGrant {
	return domain.PermissionGrant{
		ID:                i.ID,
		RequestID:         i.RequestID,
		UserID:            i.UserID,
		ResourceID:        i.ResourceID,
		TargetPrincipal:   i.TargetPrincipal,
		Level:             domain.PermissionLevel(i.Level),
		Status:            domain.GrantStatus(i.Status),
		GrantedAt:         parseTime(i.GrantedAt),
		ExpiresAt:         parseTime(i.ExpiresAt),
		OriginalExpiresAt: parseTime(i.OriginalExpiresAt),
		ExtensionCount:    i.ExtensionCount,
		RevokedAt:         parseOptionalTime(i.RevokedAt),
		RevokedBy:         i.RevokedBy,
		RevokeReason:      i.RevokeReason,
	}
}

func (r *GrantRepository) Create(ctx context.Context, grant domain.PermissionGrant) error {
	item, err := attributevalue.MarshalMap(toGrantItem(grant))
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutGrant", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           aws.String(r.client.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})
		return err
	})
}

func (r *GrantRepository) GetByID(ctx context.Context, id string) (domain.PermissionGrant, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetGrant", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: grantPK(id)},
				"SK": &awsv2types.AttributeValueMemberS{Value: metaSK()},
			},
		})
		return e
	})
	if err != nil {
		return domain.PermissionGrant{}, err
	}
	if out.Item == nil {
		return domain.PermissionGrant{}, domain.ErrNotFound
	}
	var item grantItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.PermissionGrant{}, err
	}
	return item.toDomain(), nil
}

// Update replaces the grant record, conditional on the stored status still
// being fromStatus. Extension keeps fromStatus == active; transitions move
// the record to a new status partition on the status index.
func (r *GrantRepository) Update(ctx context.Context, grant domain.PermissionGrant, fromStatus domain.GrantStatus) error {
	item, err := attributevalue.MarshalMap(toGrantItem(grant))
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.UpdateGrant", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName:           aws.String(r.client.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_exists(PK) AND #st = :from"),
			ExpressionAttributeNames: map[string]string{
				"#st": "Status",
			},
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":from": &awsv2types.AttributeValueMemberS{Value: string(fromStatus)},
			},
		})
		if isConditionalCheckFailure(err) {
			return domain.ErrInvalidState
		}
		return err
	})
}

func (r *GrantRepository) ListActive(ctx context.Context) ([]domain.PermissionGrant, error) {
	var out *awsv2dynamodb.QueryOutput
	err := xray.Capture(ctx, "DynamoDB.QueryActiveGrants", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.Query(ctx, &awsv2dynamodb.QueryInput{
			TableName:              aws.String(r.client.tableName),
			IndexName:              aws.String(statusIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":pk": &awsv2types.AttributeValueMemberS{Value: grantStatusGSI(domain.GrantActive)},
			},
		})
		return e
	})
	if err != nil {
		return nil, err
	}
	return unmarshalGrants(out.Items)
}

func (r *GrantRepository) ListByUser(ctx context.Context, userID string) ([]domain.PermissionGrant, error) {
	var out *awsv2dynamodb.QueryOutput
	err := xray.Capture(ctx, "DynamoDB.QueryGrantsByUser", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.Query(ctx, &awsv2dynamodb.QueryInput{
			TableName:              aws.String(r.client.tableName),
			IndexName:              aws.String(userIndex),
			KeyConditionExpression: aws.String("GSI2PK = :pk"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":pk": &awsv2types.AttributeValueMemberS{Value: grantUserGSI(userID)},
			},
		})
		return e
	})
	if err != nil {
		return nil, err
	}
	return unmarshalGrants(out.Items)
}

func unmarshalGrants(items []map[string]awsv2types.AttributeValue) ([]domain.PermissionGrant, error) {
	grants := make([]domain.PermissionGrant, 0, len(items))
	for _, raw := range items {
		var item grantItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, err
		}
		grants = append(grants, item.toDomain())
	}
	return grants, nil
}

type assignmentItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	ResourceID string `dynamodbav:"ResourceID"`
	Status     string `dynamodbav:"Status"`
	AssignedBy string `dynamodbav:"AssignedBy"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	Notes      string `dynamodbav:"Notes"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func (i assignmentItem) toDomain() domain.ResourceAssignment {
	return domain.ResourceAssignment{
		UserID:     i.UserID,
		ResourceID: i.ResourceID,
		Status:     domain.AssignmentStatus(i.Status),
		AssignedBy: i.AssignedBy,
		ExpiresAt:  parseOptionalTime(i.ExpiresAt),
		Notes:      i.Notes,
		CreatedAt:  parseTime(i.CreatedAt),
		UpdatedAt:  parseTime(i.UpdatedAt),
	}
}

// Put upserts the single assignment item for a (user, resource) pair. The
// key schema itself guarantees at most one assignment per pair.
func (r *AssignmentRepository) Put(ctx context.Context, assignment domain.ResourceAssignment) error {
	item, err := attributevalue.MarshalMap(assignmentItem{
		PK:         userPK(assignment.UserID),
		SK:         assignmentSK(assignment.ResourceID),
		EntityType: "RESOURCE_ASSIGNMENT",
		UserID:     assignment.UserID,
		ResourceID: assignment.ResourceID,
		Status:     string(assignment.Status),
		AssignedBy: assignment.AssignedBy,
		ExpiresAt:  formatOptionalTime(assignment.ExpiresAt),
		Notes:      assignment.Notes,
		CreatedAt:  formatTime(assignment.CreatedAt),
		UpdatedAt:  formatTime(assignment.UpdatedAt),
	})
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutAssignment", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName: aws.String(r.client.tableName),
			Item:      item,
		})
		return err
	})
}

func (r *AssignmentRepository) Get(ctx context.Context, userID, resourceID string) (domain.ResourceAssignment, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetAssignment", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &awsv2types.AttributeValueMemberS{Value: assignmentSK(resourceID)},
			},
		})
		return e
	})
	if err != nil {
		return domain.ResourceAssignment{}, err
	}
	if out.Item == nil {
		return domain.ResourceAssignment{}, domain.ErrNotFound
	}
	var item assignmentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.ResourceAssignment{}, err
	}
	return item.toDomain(), nil
}

func (r *AssignmentRepository) ListByUser(ctx context.Context, userID string) ([]domain.ResourceAssignment, error) {
	var out *awsv2dynamodb.QueryOutput
	err := xray.Capture(ctx, "DynamoDB.QueryAssignments", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.Query(ctx, &awsv2dynamodb.QueryInput{
			TableName:              aws.String(r.client.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":pk": &awsv2types.AttributeValueMemberS{Value: userPK(userID)},
				":sk": &awsv2types.AttributeValueMemberS{Value: "RES#"},
			},
		})
		return e
	})
	if err != nil {
		return nil, err
	}
	assignments := make([]domain.ResourceAssignment, 0, len(out.Items))
	for _, raw := range out.Items {
		var item assignmentItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, err
		}
		assignments = append(assignments, item.toDomain())
	}
	return assignments, nil
}

type resourceItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	ID         string `dynamodbav:"ID"`
	Name       string `dynamodbav:"Name"`
	Status     string `dynamodbav:"Status"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func (i resourceItem) toDomain() domain.Resource {
	return domain.Resource{
		ID:        i.ID,
		Name:      i.Name,
		Status:    domain.ResourceStatus(i.Status),
		CreatedAt: parseTime(i.CreatedAt),
		UpdatedAt: parseTime(i.UpdatedAt),
	}
}

func (r *ResourceRepository) Put(ctx context.Context, resource domain.Resource) error {
	item, err := attributevalue.MarshalMap(resourceItem{
		PK:         resourcePK(resource.ID),
		SK:         metaSK(),
		EntityType: "RESOURCE",
		GSI1PK:     resourceStatusGSI(resource.Status),
		GSI1SK:     resource.ID,
		ID:         resource.ID,
		Name:       resource.Name,
		Status:     string(resource.Status),
		CreatedAt:  formatTime(resource.CreatedAt),
		UpdatedAt:  formatTime(resource.UpdatedAt),
	})
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutResource", func(ctx context.Context) error {
		_, err := r.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName: aws.String(r.client.tableName),
			Item:      item,
		})
		return err
	})
}

func (r *ResourceRepository) GetByID(ctx context.Context, id string) (domain.Resource, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetResource", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName: aws.String(r.client.tableName),
			Key: map[string]awsv2types.AttributeValue{
				"PK": &awsv2types.AttributeValueMemberS{Value: resourcePK(id)},
				"SK": &awsv2types.AttributeValueMemberS{Value: metaSK()},
			},
		})
		return e
	})
	if err != nil {
		return domain.Resource{}, err
	}
	if out.Item == nil {
		return domain.Resource{}, domain.ErrNotFound
	}
	var item resourceItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.Resource{}, err
	}
	return item.toDomain(), nil
}

func (r *ResourceRepository) ListActive(ctx context.Context) ([]domain.Resource, error) {
	var out *awsv2dynamodb.QueryOutput
	err := xray.Capture(ctx, "DynamoDB.QueryActiveResources", func(ctx context.Context) error {
		var e error
		out, e = r.client.db.Query(ctx, &awsv2dynamodb.QueryInput{
			TableName:              aws.String(r.client.tableName),
			IndexName:              aws.String(statusIndex),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]awsv2types.AttributeValue{
				":pk": &awsv2types.AttributeValueMemberS{Value: resourceStatusGSI(domain.ResourceActive)},
			},
		})
		return e
	})
	if err != nil {
		return nil, err
	}
	resources := make([]domain.Resource, 0, len(out.Items))
	for _, raw := range out.Items {
		var item resourceItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, err
		}
		resources = append(resources, item.toDomain())
	}
	return resources, nil
}
