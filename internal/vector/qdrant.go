// Package vector talks to the qdrant index holding the payment
// description chunks. The query path is a single nearest-neighbor
// search; upsert and collection setup exist for the index builder.
package vector

import (
	"context"
	"errors"
	"fmt"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"osservatorio/internal/domain"
)

// ErrCollectionNotFound distinguishes a missing collection (operators
// must re-run the index build) from a transient query failure.
var ErrCollectionNotFound = errors.New("vector: collection not found")

type Index struct {
	conn        *grpc.ClientConn
	points      qdrantclient.PointsClient
	collections qdrantclient.CollectionsClient
	collection  string
}

// Connect dials the qdrant gRPC endpoint. The collection does not have
// to exist yet; its absence surfaces per query as ErrCollectionNotFound.
func Connect(addr, collection string) (*Index, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}
	return &Index{
		conn:        conn,
		points:      qdrantclient.NewPointsClient(conn),
		collections: qdrantclient.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

func (x *Index) Close() error { return x.conn.Close() }

// Query returns the k nearest chunks to the embedding, in the order the
// index ranked them (closest first). That order is preserved end to end
// into prompts and reference lists; callers must not re-sort it. An
// empty result is a legitimate content state, not an error.
func (x *Index) Query(ctx context.Context, embedding []float32, k int) ([]domain.EvidenceChunk, error) {
	resp, err := x.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: x.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, x.collection)
		}
		return nil, fmt.Errorf("vector query: %w", err)
	}

	chunks := make([]domain.EvidenceChunk, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		chunks = append(chunks, domain.EvidenceChunk{
			ID: pointID(point.GetId()),
			// The collection uses cosine similarity; report it as a
			// distance so lower always means closer.
			Distance: 1 - float64(point.GetScore()),
			Metadata: payloadToMeta(point.GetPayload()),
			Document: payloadString(point.GetPayload(), "document"),
		})
	}
	return chunks, nil
}

func pointID(id *qdrantclient.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func payloadToMeta(payload map[string]*qdrantclient.Value) map[string]any {
	meta := make(map[string]any, len(payload))
	for key, val := range payload {
		if key == "document" {
			continue
		}
		switch kind := val.GetKind().(type) {
		case *qdrantclient.Value_StringValue:
			meta[key] = kind.StringValue
		case *qdrantclient.Value_DoubleValue:
			meta[key] = kind.DoubleValue
		case *qdrantclient.Value_IntegerValue:
			meta[key] = kind.IntegerValue
		case *qdrantclient.Value_BoolValue:
			meta[key] = kind.BoolValue
		}
	}
	return meta
}

func payloadString(payload map[string]*qdrantclient.Value, key string) string {
	if val, ok := payload[key]; ok {
		return val.GetStringValue()
	}
	return ""
}
