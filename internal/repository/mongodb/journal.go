// Package mongodb holds the durable side-store for month closes: the
// rollover recovery journal and a queryable mirror of archived snapshots.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ndiasse/stockroom/internal/domain/models"
)

const (
	journalCollection = "rollover_journal"
	archiveCollection = "archive_snapshots"
)

// Journal is a MongoDB-backed rollover journal and archive mirror.
type Journal struct {
	client *mongo.Client
	dbName string
}

// NewJournal connects to MongoDB and verifies the connection.
func NewJournal(ctx context.Context, uri string, dbName string) (*Journal, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Journal{client: client, dbName: dbName}, nil
}

// Begin records a started marker for the period. The period is the document
// id, so a second close of the same period fails on the duplicate key and is
// reported as such.
func (j *Journal) Begin(ctx context.Context, period, nextPeriod string) error {
	marker := models.RolloverMarker{
		Period:     period,
		NextPeriod: nextPeriod,
		State:      models.RolloverStarted,
		StartedAt:  time.Now().UTC(),
	}

	_, err := j.collection(journalCollection).InsertOne(ctx, marker)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("period %s: %w", period, models.ErrDuplicatePeriod)
	}
	if err != nil {
		return fmt.Errorf("failed to journal rollover start: %w", err)
	}
	return nil
}

// Complete flips the period's marker to completed.
func (j *Journal) Complete(ctx context.Context, period string) error {
	update := bson.M{"$set": bson.M{
		"state":        models.RolloverCompleted,
		"completed_at": time.Now().UTC(),
	}}

	res, err := j.collection(journalCollection).UpdateByID(ctx, period, update)
	if err != nil {
		return fmt.Errorf("failed to complete rollover marker: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("rollover marker for period %s: %w", period, models.ErrNotFound)
	}
	return nil
}

// Abort removes an incomplete marker so the close can be retried.
func (j *Journal) Abort(ctx context.Context, period string) error {
	filter := bson.M{"_id": period, "state": models.RolloverStarted}
	if _, err := j.collection(journalCollection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to abort rollover marker: %w", err)
	}
	return nil
}

// Pending returns markers left in the started state by an interrupted close.
func (j *Journal) Pending(ctx context.Context) ([]models.RolloverMarker, error) {
	cursor, err := j.collection(journalCollection).Find(ctx, bson.M{"state": models.RolloverStarted})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending rollovers: %w", err)
	}
	defer cursor.Close(ctx)

	var markers []models.RolloverMarker
	if err := cursor.All(ctx, &markers); err != nil {
		return nil, fmt.Errorf("failed to decode pending rollovers: %w", err)
	}
	return markers, nil
}

// archiveDocument is the mirror representation of a snapshot. Quantities are
// stored as strings to keep decimal exactness through BSON.
type archiveDocument struct {
	Period   string       `bson:"_id"`
	ClosedAt time.Time    `bson:"closed_at"`
	Rows     []archiveRow `bson:"rows"`
}

type archiveRow struct {
	ProductName   string `bson:"product_name"`
	UOM           string `bson:"uom"`
	OpeningStock  string `bson:"opening_stock"`
	Receipts      string `bson:"receipts"`
	Consumption   string `bson:"consumption"`
	PhysicalCount string `bson:"physical_count"`
	ClosingStock  string `bson:"closing_stock"`
}

// SaveSnapshot mirrors an archived period. The mirror is written during the
// close, after the sheet append, so replaying an existing period upserts
// rather than duplicating.
func (j *Journal) SaveSnapshot(ctx context.Context, snapshot models.MonthlyArchiveSnapshot) error {
	doc := archiveDocument{
		Period:   snapshot.PeriodLabel,
		ClosedAt: snapshot.ClosedAt,
	}
	for _, row := range snapshot.Rows {
		doc.Rows = append(doc.Rows, archiveRow{
			ProductName:   row.ProductName,
			UOM:           row.UOM,
			OpeningStock:  row.OpeningStock.String(),
			Receipts:      row.Receipts.String(),
			Consumption:   row.Consumption.String(),
			PhysicalCount: row.PhysicalCount.String(),
			ClosingStock:  row.ClosingStock.String(),
		})
	}

	opts := options.Replace().SetUpsert(true)
	_, err := j.collection(archiveCollection).ReplaceOne(ctx, bson.M{"_id": doc.Period}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to mirror archive snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (j *Journal) Close(ctx context.Context) error {
	return j.client.Disconnect(ctx)
}

func (j *Journal) collection(name string) *mongo.Collection {
	return j.client.Database(j.dbName).Collection(name)
}
