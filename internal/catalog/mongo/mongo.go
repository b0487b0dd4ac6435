// Package mongo serves catalog rows from the seeded vacancies and courses collections.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spigell/career-planner/internal/catalog"
)

// Repository reads rows of type T from one collection.
type Repository[T catalog.Record] struct {
	coll *mongo.Collection
}

func NewVacancies(db *mongo.Database) *Repository[catalog.Vacancy] {
	return &Repository[catalog.Vacancy]{coll: db.Collection(string(catalog.Vacancies))}
}

func NewCourses(db *mongo.Database) *Repository[catalog.Course] {
	return &Repository[catalog.Course]{coll: db.Collection(string(catalog.Courses))}
}

func (r *Repository[T]) FindByIndices(ctx context.Context, ids []int) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"idx": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.coll.Name(), err)
	}

	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.coll.Name(), err)
	}
	return out, nil
}
