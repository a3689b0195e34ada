// Package mongostore guarda el cache de explicaciones en MongoDB (opcional, MONGO_URI).
package mongostore

import (
	"context"
	"errors"
	"time"

	"medication-adherence/internal/domain/explanations"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ExplanationsCollection = "medication_explanations"

// explanationDoc usa el nombre como _id: una explicación por nombre.
type explanationDoc struct {
	Name               string    `bson:"_id"`
	WhatItDoes         string    `bson:"what_it_does"`
	HowItHelps         string    `bson:"how_it_helps"`
	ImportantNotes     string    `bson:"important_notes"`
	ReferenceFetchedAt time.Time `bson:"reference_fetched_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

type ExplanationsRepo struct {
	coll *mongo.Collection
}

func NewExplanationsRepo(db *mongo.Database) *ExplanationsRepo {
	return &ExplanationsRepo{coll: db.Collection(ExplanationsCollection)}
}

func (r *ExplanationsRepo) Get(ctx context.Context, name string) (explanations.Record, error) {
	var doc explanationDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return explanations.Record{}, explanations.ErrNotFound
	}
	if err != nil {
		return explanations.Record{}, err
	}
	return explanations.Record{
		Name: doc.Name,
		Sections: explanations.Sections{
			WhatItDoes:     doc.WhatItDoes,
			HowItHelps:     doc.HowItHelps,
			ImportantNotes: doc.ImportantNotes,
		},
		ReferenceFetchedAt: doc.ReferenceFetchedAt,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}

// Put reemplaza el documento completo (upsert).
func (r *ExplanationsRepo) Put(ctx context.Context, rec explanations.Record) error {
	doc := explanationDoc{
		Name:               rec.Name,
		WhatItDoes:         rec.Sections.WhatItDoes,
		HowItHelps:         rec.Sections.HowItHelps,
		ImportantNotes:     rec.Sections.ImportantNotes,
		ReferenceFetchedAt: rec.ReferenceFetchedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": rec.Name}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ExplanationsRepo) Delete(ctx context.Context, name string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return explanations.ErrNotFound
	}
	return nil
}
