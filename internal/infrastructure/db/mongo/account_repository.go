package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

const collectionAccounts = "accounts"

// AccountRepository implements ports.AccountRepository on a MongoDB
// collection. State transitions are single conditional writes: the guard is
// part of the filter, so a concurrent transition makes the write match nothing.
type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

type mongoAccount struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	Email          string             `bson:"email"`
	PasswordHash   string             `bson:"password_hash"`
	Role           string             `bson:"role"`
	Kind           string             `bson:"account_kind"`
	IsActive       bool               `bson:"is_active"`
	IsApproved     bool               `bson:"is_approved"`
	Specialization string             `bson:"specialization,omitempty"`
	LicenseNumber  string             `bson:"license_number,omitempty"`
	ApprovedBy     string             `bson:"approved_by,omitempty"`
	ApprovedAt     *time.Time         `bson:"approved_at,omitempty"`
	LastLoginAt    *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func toMongoAccount(a *domain.Account) mongoAccount {
	return mongoAccount{
		Name:           a.Name,
		Email:          a.Email,
		PasswordHash:   a.PasswordHash,
		Role:           string(a.Role),
		Kind:           string(a.Kind),
		IsActive:       a.IsActive,
		IsApproved:     a.IsApproved,
		Specialization: a.Specialization,
		LicenseNumber:  a.LicenseNumber,
		ApprovedBy:     a.ApprovedBy,
		ApprovedAt:     a.ApprovedAt,
		LastLoginAt:    a.LastLoginAt,
		CreatedAt:      a.CreatedAt.UTC(),
		UpdatedAt:      a.UpdatedAt.UTC(),
	}
}

func (m *mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:             m.ID.Hex(),
		Name:           m.Name,
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		Role:           domain.Role(m.Role),
		Kind:           domain.Kind(m.Kind),
		IsActive:       m.IsActive,
		IsApproved:     m.IsApproved,
		Specialization: m.Specialization,
		LicenseNumber:  m.LicenseNumber,
		ApprovedBy:     m.ApprovedBy,
		ApprovedAt:     m.ApprovedAt,
		LastLoginAt:    m.LastLoginAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// objectID parses a hex id. A malformed id cannot match any document, so it
// is reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrAccountNotFound
	}
	return oid, nil
}

// Create inserts a new account. A unique-index violation on email is
// reported as a DuplicateKeyError.
func (r *AccountRepository) Create(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoAccount(acc)
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &domain.DuplicateKeyError{Field: "email"}
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoAccount
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return m.toDomain(), nil
}

// listFilter translates a ListAccountsFilter into a query document.
func listFilter(f ports.ListAccountsFilter) bson.M {
	filter := bson.M{}
	switch f.Status {
	case ports.StatusFilterApproved:
		filter["is_approved"] = true
	case ports.StatusFilterPending:
		filter["is_approved"] = false
	}
	if f.Kind != "" {
		filter["account_kind"] = string(f.Kind)
	}
	if f.Active != nil {
		filter["is_active"] = *f.Active
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
		}
	}
	return filter
}

// List returns matching accounts, newest first.
func (r *AccountRepository) List(ctx context.Context, f ports.ListAccountsFilter) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, listFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAccount
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	out := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *AccountRepository) Count(ctx context.Context, f ports.ListAccountsFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, listFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id, name, email string, now time.Time) (*domain.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	acc, err := r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":       name,
		"email":      email,
		"updated_at": now.UTC(),
	}})
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil, &domain.DuplicateKeyError{Field: "email"}
	}
	return acc, err
}

func (r *AccountRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Approve sets the approval fields only while the account is unapproved.
func (r *AccountRepository) Approve(ctx context.Context, id, actorID string, at time.Time) (*domain.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	return r.findOneAndUpdate(ctx,
		bson.M{"_id": oid, "is_approved": false},
		bson.M{"$set": bson.M{
			"is_approved": true,
			"approved_by": actorID,
			"approved_at": at,
			"updated_at":  at,
		}},
	)
}

// Deactivate clears is_active only on an approved, active account.
func (r *AccountRepository) Deactivate(ctx context.Context, id string, at time.Time) (*domain.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOneAndUpdate(ctx,
		bson.M{"_id": oid, "is_active": true, "is_approved": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": at.UTC()}},
	)
}

// DeletePending removes the account only while it is unapproved.
func (r *AccountRepository) DeletePending(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return r.deleteOne(ctx, bson.M{"_id": oid, "is_approved": false})
}

// DeleteNonAdmin removes the account unless it holds the administrator role.
func (r *AccountRepository) DeleteNonAdmin(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return r.deleteOne(ctx, bson.M{"_id": oid, "role": bson.M{"$ne": string(domain.RoleAdministrator)}})
}

func (r *AccountRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m mongoAccount
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *AccountRepository) deleteOne(ctx context.Context, filter bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the account queries rely on. The unique
// email index is what makes concurrent registrations of one address safe.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_approved", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "account_kind", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

var _ ports.AccountRepository = (*AccountRepository)(nil)
