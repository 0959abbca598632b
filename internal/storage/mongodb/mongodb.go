package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expenso/internal/domain/models"
	"expenso/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Storage struct {
	client     *mongo.Client
	database   *mongo.Database
	users      *mongo.Collection
	tokens     *mongo.Collection
	categories *mongo.Collection
	expenses   *mongo.Collection
	rates      *mongo.Collection
}

type userDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	PassHash  []byte        `bson:"pass_hash"`
	CreatedAt time.Time     `bson:"created_at"`
}

type refreshTokenDoc struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

type categoryDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Name      string        `bson:"name"`
	Emoji     string        `bson:"emoji"`
	UserID    string        `bson:"user_id"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

type expenseDoc struct {
	ID                    bson.ObjectID `bson:"_id,omitempty"`
	UserDescription       string        `bson:"user_description"`
	Title                 string        `bson:"title"`
	Amount                float64       `bson:"amount"`
	Currency              string        `bson:"currency"`
	CategoryID            string        `bson:"category_id"`
	UserID                string        `bson:"user_id"`
	DefaultCurrencyAmount float64       `bson:"default_currency_amount"`
	DefaultCurrency       string        `bson:"default_currency"`
	CreatedAt             time.Time     `bson:"created_at"`
}

type rateDoc struct {
	ID        bson.ObjectID      `bson:"_id,omitempty"`
	Rates     map[string]float64 `bson:"rates"`
	CreatedAt time.Time          `bson:"created_at"`
}

// New creates a new MongoDB storage instance and sets up indexes.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:     client,
		database:   db,
		users:      db.Collection("users"),
		tokens:     db.Collection("refresh_tokens"),
		categories: db.Collection("categories"),
		expenses:   db.Collection("expenses"),
		rates:      db.Collection("rates"),
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}

	return s, nil
}

// EnsureIndexes creates the unique and TTL indexes the storage relies on.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	// users.email unique
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.email index: %w", err)
	}

	// refresh_tokens.token unique
	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("refresh_tokens.token index: %w", err)
	}

	// refresh_tokens.user_id for single-session cleanup
	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("refresh_tokens.user_id index: %w", err)
	}

	// refresh_tokens.expires_at TTL index (auto-delete expired tokens)
	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("refresh_tokens.expires_at TTL index: %w", err)
	}

	// categories (user_id, name) unique, closes the get-or-create race
	_, err = s.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("categories.user_id+name index: %w", err)
	}

	// expenses (user_id, created_at) for the listing sort
	_, err = s.expenses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("expenses.user_id+created_at index: %w", err)
	}

	// rates.created_at for the latest-snapshot lookup
	_, err = s.rates.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("rates.created_at index: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SaveUser saves a new user and returns the generated user ID.
func (s *Storage) SaveUser(ctx context.Context, email string, passHash []byte) (string, error) {
	const op = "storage.mongodb.SaveUser"

	doc := userDoc{
		ID:        bson.NewObjectID(),
		Email:     email,
		PassHash:  passHash,
		CreatedAt: time.Now(),
	}

	_, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return doc.ID.Hex(), nil
}

// User retrieves a user by email.
func (s *Storage) User(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.mongodb.User"

	var doc userDoc
	err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return userFromDoc(doc), nil
}

// UserByID retrieves a user by ID.
func (s *Storage) UserByID(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.mongodb.UserByID"

	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDoc
	err = s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return userFromDoc(doc), nil
}

func userFromDoc(doc userDoc) *models.User {
	return &models.User{
		ID:        doc.ID.Hex(),
		Email:     doc.Email,
		PassHash:  doc.PassHash,
		CreatedAt: doc.CreatedAt,
	}
}

// SaveRefreshToken stores a new refresh token record.
func (s *Storage) SaveRefreshToken(ctx context.Context, token, userID string, expiresAt time.Time) error {
	const op = "storage.mongodb.SaveRefreshToken"

	doc := refreshTokenDoc{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	_, err := s.tokens.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshToken retrieves the refresh token record matching token and user.
func (s *Storage) RefreshToken(ctx context.Context, token, userID string) (*models.RefreshToken, error) {
	const op = "storage.mongodb.RefreshToken"

	var doc refreshTokenDoc
	err := s.tokens.FindOne(ctx, bson.D{
		{Key: "token", Value: token},
		{Key: "user_id", Value: userID},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.RefreshToken{
		Token:     doc.Token,
		UserID:    doc.UserID,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// DeleteRefreshToken removes a single refresh token record.
func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	const op = "storage.mongodb.DeleteRefreshToken"

	_, err := s.tokens.DeleteOne(ctx, bson.D{{Key: "token", Value: token}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUserRefreshTokens removes all refresh token records for a user.
func (s *Storage) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	const op = "storage.mongodb.DeleteUserRefreshTokens"

	_, err := s.tokens.DeleteMany(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveCategory inserts a category; the unique (user_id, name) index reports
// a concurrent duplicate as storage.ErrCategoryAlreadyExists.
func (s *Storage) SaveCategory(ctx context.Context, name, emoji, userID string) (*models.Category, error) {
	const op = "storage.mongodb.SaveCategory"

	now := time.Now()
	doc := categoryDoc{
		ID:        bson.NewObjectID(),
		Name:      name,
		Emoji:     emoji,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.categories.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryAlreadyExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categoryFromDoc(doc), nil
}

// CategoryByName retrieves a category by exact name scoped to a user.
func (s *Storage) CategoryByName(ctx context.Context, name, userID string) (*models.Category, error) {
	const op = "storage.mongodb.CategoryByName"

	var doc categoryDoc
	err := s.categories.FindOne(ctx, bson.D{
		{Key: "name", Value: name},
		{Key: "user_id", Value: userID},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categoryFromDoc(doc), nil
}

// CategoryByID retrieves a category by ID scoped to a user.
func (s *Storage) CategoryByID(ctx context.Context, categoryID, userID string) (*models.Category, error) {
	const op = "storage.mongodb.CategoryByID"

	oid, err := bson.ObjectIDFromHex(categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	var doc categoryDoc
	err = s.categories.FindOne(ctx, bson.D{
		{Key: "_id", Value: oid},
		{Key: "user_id", Value: userID},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categoryFromDoc(doc), nil
}

// Categories lists all categories owned by a user.
func (s *Storage) Categories(ctx context.Context, userID string) ([]models.Category, error) {
	const op = "storage.mongodb.Categories"

	cursor, err := s.categories.Find(ctx, bson.D{{Key: "user_id", Value: userID}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []categoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	categories := make([]models.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, *categoryFromDoc(doc))
	}

	return categories, nil
}

// UpdateCategory applies a patch to a category owned by the user.
func (s *Storage) UpdateCategory(ctx context.Context, categoryID, userID string, patch models.CategoryPatch) (*models.Category, error) {
	const op = "storage.mongodb.UpdateCategory"

	oid, err := bson.ObjectIDFromHex(categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.Emoji != nil {
		set = append(set, bson.E{Key: "emoji", Value: *patch.Emoji})
	}

	var doc categoryDoc
	err = s.categories.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "user_id", Value: userID}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categoryFromDoc(doc), nil
}

// DeleteCategory removes a category owned by the user. Expenses referencing
// it are left untouched.
func (s *Storage) DeleteCategory(ctx context.Context, categoryID, userID string) error {
	const op = "storage.mongodb.DeleteCategory"

	oid, err := bson.ObjectIDFromHex(categoryID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	res, err := s.categories.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: oid},
		{Key: "user_id", Value: userID},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCategoryNotFound)
	}

	return nil
}

func categoryFromDoc(doc categoryDoc) *models.Category {
	return &models.Category{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Emoji:     doc.Emoji,
		UserID:    doc.UserID,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// SaveExpense persists a fully populated expense and returns its ID.
func (s *Storage) SaveExpense(ctx context.Context, expense *models.Expense) (string, error) {
	const op = "storage.mongodb.SaveExpense"

	doc := expenseDoc{
		ID:                    bson.NewObjectID(),
		UserDescription:       expense.UserDescription,
		Title:                 expense.Title,
		Amount:                expense.Amount,
		Currency:              expense.Currency,
		CategoryID:            expense.CategoryID,
		UserID:                expense.UserID,
		DefaultCurrencyAmount: expense.DefaultCurrencyAmount,
		DefaultCurrency:       expense.DefaultCurrency,
		CreatedAt:             expense.CreatedAt,
	}

	_, err := s.expenses.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return doc.ID.Hex(), nil
}

// ExpenseByID retrieves a single expense. The category is not populated.
func (s *Storage) ExpenseByID(ctx context.Context, expenseID string) (*models.Expense, error) {
	const op = "storage.mongodb.ExpenseByID"

	oid, err := bson.ObjectIDFromHex(expenseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
	}

	var doc expenseDoc
	err = s.expenses.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expenseFromDoc(doc), nil
}

// UpdateExpense replaces the stored expense fields with the given record.
func (s *Storage) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	const op = "storage.mongodb.UpdateExpense"

	oid, err := bson.ObjectIDFromHex(expense.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
	}

	res, err := s.expenses.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "user_description", Value: expense.UserDescription},
			{Key: "title", Value: expense.Title},
			{Key: "amount", Value: expense.Amount},
			{Key: "currency", Value: expense.Currency},
			{Key: "category_id", Value: expense.CategoryID},
			{Key: "default_currency_amount", Value: expense.DefaultCurrencyAmount},
			{Key: "default_currency", Value: expense.DefaultCurrency},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
	}

	return nil
}

// DeleteExpense removes an expense and returns the deleted record.
func (s *Storage) DeleteExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	const op = "storage.mongodb.DeleteExpense"

	oid, err := bson.ObjectIDFromHex(expenseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
	}

	var doc expenseDoc
	err = s.expenses.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrExpenseNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return expenseFromDoc(doc), nil
}

// ExpensesByUser lists a user's expenses newest first with categories
// populated. A dangling category reference yields a nil category.
func (s *Storage) ExpensesByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	const op = "storage.mongodb.ExpensesByUser"

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.expenses.Find(ctx, bson.D{{Key: "user_id", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var docs []expenseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	categories, err := s.Categories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byID := make(map[string]*models.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	expenses := make([]models.Expense, 0, len(docs))
	for _, doc := range docs {
		e := expenseFromDoc(doc)
		e.Category = byID[e.CategoryID]
		expenses = append(expenses, *e)
	}

	return expenses, nil
}

func expenseFromDoc(doc expenseDoc) *models.Expense {
	return &models.Expense{
		ID:                    doc.ID.Hex(),
		UserDescription:       doc.UserDescription,
		Title:                 doc.Title,
		Amount:                doc.Amount,
		Currency:              doc.Currency,
		CategoryID:            doc.CategoryID,
		UserID:                doc.UserID,
		DefaultCurrencyAmount: doc.DefaultCurrencyAmount,
		DefaultCurrency:       doc.DefaultCurrency,
		CreatedAt:             doc.CreatedAt,
	}
}

// SaveRateSnapshot appends a new immutable rate snapshot.
func (s *Storage) SaveRateSnapshot(ctx context.Context, rates map[string]float64) (*models.RateSnapshot, error) {
	const op = "storage.mongodb.SaveRateSnapshot"

	doc := rateDoc{
		ID:        bson.NewObjectID(),
		Rates:     rates,
		CreatedAt: time.Now(),
	}

	_, err := s.rates.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.RateSnapshot{
		ID:        doc.ID.Hex(),
		Rates:     doc.Rates,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// LatestRateSnapshot returns the most recently created snapshot.
func (s *Storage) LatestRateSnapshot(ctx context.Context) (*models.RateSnapshot, error) {
	const op = "storage.mongodb.LatestRateSnapshot"

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc rateDoc
	err := s.rates.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrRateNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.RateSnapshot{
		ID:        doc.ID.Hex(),
		Rates:     doc.Rates,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// isDuplicateKeyError checks if the error is a MongoDB duplicate key error (code 11000).
func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
