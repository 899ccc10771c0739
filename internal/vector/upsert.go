package vector

import (
	"context"
	"fmt"

	qdrantclient "github.com/qdrant/go-client/qdrant"
)

// Point is one chunk ready for indexing.
type Point struct {
	ID       string
	Vector   []float32
	Document string
	Metadata map[string]any
}

// EnsureCollection creates the collection with cosine distance when it
// does not exist yet. Existing collections are left untouched.
func (x *Index) EnsureCollection(ctx context.Context, dimension uint64) error {
	list, err := x.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, col := range list.GetCollections() {
		if col.GetName() == x.collection {
			return nil
		}
	}
	_, err = x.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: x.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     dimension,
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", x.collection, err)
	}
	return nil
}

// Upsert writes one batch of points. Chunk text rides along in the
// payload under "document" so query results carry their source text.
func (x *Index) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	wait := true
	upserts := make([]*qdrantclient.PointStruct, 0, len(points))
	for _, p := range points {
		payload := map[string]*qdrantclient.Value{
			"document": {Kind: &qdrantclient.Value_StringValue{StringValue: p.Document}},
		}
		for key, val := range p.Metadata {
			switch v := val.(type) {
			case string:
				payload[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: v}}
			case float64:
				payload[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: v}}
			case int:
				payload[key] = &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(v)}}
			}
		}
		upserts = append(upserts, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: p.Vector},
				},
			},
			Payload: payload,
		})
	}
	_, err := x.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: x.collection,
		Points:         upserts,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Count reports how many points the collection holds, for indexer
// run summaries.
func (x *Index) Count(ctx context.Context) (uint64, error) {
	resp, err := x.points.Count(ctx, &qdrantclient.CountPoints{CollectionName: x.collection})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}
