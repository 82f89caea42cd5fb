package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestLocalEmbedder_DeterministicUnitVectors(t *testing.T) {
	emb, err := NewEmbedder("local", "", map[string]interface{}{"dimension": 64})
	require.NoError(t, err)
	ctx := context.Background()

	a, err := emb.Embed(ctx, "Nickel contact dermatitis in Kerala", TaskRetrievalDocument)
	require.NoError(t, err)
	b, err := emb.Embed(ctx, "nickel CONTACT dermatitis, in kerala!", TaskRetrievalQuery)
	require.NoError(t, err)
	require.Len(t, a, 64)
	require.Equal(t, a, b)
	require.InDelta(t, 1.0, norm(a), 1e-5)

	empty, err := emb.Embed(ctx, "", TaskRetrievalDocument)
	require.NoError(t, err)
	require.InDelta(t, 1.0, norm(empty), 1e-5)
}

func TestLocalEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocalEmbedder(8).Embed(ctx, "x", "")
	require.ErrorIs(t, err, context.Canceled)
}
