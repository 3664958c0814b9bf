package query

import "go.mongodb.org/mongo-driver/v2/bson"

// Filter renders the predicate against the schemes collection. isActive is
// always part of it.
func (q *SchemeQuery) Filter() bson.M {
	filter := bson.M{"isActive": true}

	if q.Search != "" {
		filter["$text"] = bson.M{"$search": q.Search}
	}
	if q.CategoryID != nil {
		filter["category"] = *q.CategoryID
	}
	if q.State != "" {
		filter["eligibility.states"] = containsOrAll(q.State)
	}
	if q.Gender != "" {
		filter["eligibility.gender"] = containsOrAll(q.Gender)
	}
	if q.IncomeGroup != "" {
		filter["eligibility.incomeGroup"] = containsOrAll(q.IncomeGroup)
	}
	if q.MinAge != nil {
		filter["eligibility.age.min"] = bson.M{"$lte": *q.MinAge}
	}
	if q.MaxAge != nil {
		filter["eligibility.age.max"] = bson.M{"$gte": *q.MaxAge}
	}

	return filter
}

func containsOrAll(v string) bson.M {
	return bson.M{"$in": bson.A{v, "all"}}
}

// SortDoc renders the ordering. Ties fall back to creation time, then _id,
// newest first.
func (q *SchemeQuery) SortDoc() bson.D {
	if q.Sort.Relevance {
		return bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "createdAt", Value: -1},
			{Key: "_id", Value: -1},
		}
	}

	dir := 1
	if q.Sort.Desc {
		dir = -1
	}
	sort := bson.D{{Key: q.Sort.Field, Value: dir}}
	if q.Sort.Field != "createdAt" {
		sort = append(sort, bson.E{Key: "createdAt", Value: -1})
	}
	return append(sort, bson.E{Key: "_id", Value: dir})
}
