package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"vogue/models"
	"vogue/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("db: not found")

// Mongo holds the upstream API's collections.
type Mongo struct {
	Client *mongo.Client

	ProductsCollection      *mongo.Collection
	CartsCollection         *mongo.Collection
	UserCollection          *mongo.Collection
	ListsCollection         *mongo.Collection
	AnalyticsCollection     *mongo.Collection
	NotificationsCollection *mongo.Collection
}

// Connect opens the client, pings it and binds the collections of dbName.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	database := client.Database(dbName)
	return &Mongo{
		Client:                  client,
		ProductsCollection:      database.Collection("products"),
		CartsCollection:         database.Collection("carts"),
		UserCollection:          database.Collection("users"),
		ListsCollection:         database.Collection("lists"),
		AnalyticsCollection:     database.Collection("analytics"),
		NotificationsCollection: database.Collection("notifications"),
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// EnsureIndexes creates the unique keys the repository relies on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{m.ProductsCollection, mongo.IndexModel{Keys: bson.D{{Key: "productid", Value: 1}}, Options: unique}},
		{m.ProductsCollection, mongo.IndexModel{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}}},
		{m.CartsCollection, mongo.IndexModel{Keys: bson.D{{Key: "owner", Value: 1}}, Options: unique}},
		{m.UserCollection, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{m.ListsCollection, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "kind", Value: 1}}, Options: unique}},
		{m.NotificationsCollection, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}}}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("index %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

// productFilter turns listing query options into a Mongo filter.
func productFilter(q utils.QueryOptions) bson.M {
	filter := bson.M{}
	if q.Category != "" && q.Category != models.CategoryAll {
		filter["category"] = q.Category
	}
	if q.Search != "" {
		pattern := regexMatch(q.Search)
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
			bson.M{"brand": pattern},
		}
	}
	return filter
}

func regexMatch(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// productFindOptions sorts newest first and pages when a limit is set.
func productFindOptions(q utils.QueryOptions) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit)).SetSkip(int64((q.Page - 1) * q.Limit))
	}
	return opts
}

func (m *Mongo) Products(ctx context.Context, q utils.QueryOptions) ([]models.Product, error) {
	cursor, err := m.ProductsCollection.Find(ctx, productFilter(q), productFindOptions(q))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	return products, nil
}

func (m *Mongo) Product(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := m.ProductsCollection.FindOne(ctx, bson.M{"productid": id}).Decode(&p)
	return p, notFound(err, "product "+id)
}

func (m *Mongo) QuickView(ctx context.Context, id string) (models.QuickView, error) {
	var q models.QuickView
	err := m.ProductsCollection.FindOne(ctx, bson.M{"productid": id}).Decode(&q)
	return q, notFound(err, "quick view "+id)
}

type cartDoc struct {
	Owner     string            `bson:"owner"`
	Items     []models.CartItem `bson:"items"`
	UpdatedAt time.Time         `bson:"updatedAt"`
}

// Cart returns the owner's stored cart; a missing cart is empty, not an error.
func (m *Mongo) Cart(ctx context.Context, owner string) (models.CartSync, error) {
	var doc cartDoc
	err := m.CartsCollection.FindOne(ctx, bson.M{"owner": owner}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.CartSync{Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return models.CartSync{}, fmt.Errorf("find cart: %w", err)
	}
	if doc.Items == nil {
		doc.Items = []models.CartItem{}
	}
	return models.CartSync{Items: doc.Items, UpdatedAt: doc.UpdatedAt}, nil
}

func (m *Mongo) SaveCart(ctx context.Context, owner string, items []models.CartItem, at time.Time) error {
	_, err := m.CartsCollection.UpdateOne(ctx,
		bson.M{"owner": owner},
		bson.M{"$set": bson.M{"items": items, "updatedAt": at}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := m.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, notFound(err, "user "+email)
}

func (m *Mongo) UserByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := m.UserCollection.FindOne(ctx, bson.M{"userid": id}).Decode(&u)
	return u, notFound(err, "user "+id)
}

func (m *Mongo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := m.UserCollection.UpdateOne(ctx, bson.M{"userid": id}, bson.M{"$set": bson.M{"last_login": at}})
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (m *Mongo) List(ctx context.Context, owner, kind string) ([]string, error) {
	var l models.IDList
	err := m.ListsCollection.FindOne(ctx, bson.M{"userId": owner, "kind": kind}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}
	if l.IDs == nil {
		l.IDs = []string{}
	}
	return l.IDs, nil
}

func (m *Mongo) SaveList(ctx context.Context, owner, kind string, ids []string, at time.Time) error {
	_, err := m.ListsCollection.UpdateOne(ctx,
		bson.M{"userId": owner, "kind": kind},
		bson.M{"$set": bson.M{"ids": ids, "updatedAt": at}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

// UnreadNotifications returns the user's unread notifications and marks them
// read.
func (m *Mongo) UnreadNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	filter := bson.M{"userId": userID, "read": false}
	cursor, err := m.NotificationsCollection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	ns := []models.Notification{}
	if err := cursor.All(ctx, &ns); err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	if len(ns) == 0 {
		return ns, nil
	}
	ids := make(bson.A, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.ID)
	}
	if _, err := m.NotificationsCollection.UpdateMany(ctx,
		bson.M{"userId": userID, "id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"read": true}},
	); err != nil {
		return nil, fmt.Errorf("mark notifications read: %w", err)
	}
	return ns, nil
}

func (m *Mongo) RecordEvent(ctx context.Context, ev models.AnalyticsEvent) error {
	if _, err := m.AnalyticsCollection.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("insert %s event: %w", ev.Event, err)
	}
	return nil
}

func notFound(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", what, err)
}
