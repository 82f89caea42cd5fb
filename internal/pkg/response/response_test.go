package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/medrag/internal/pkg/errcode"
	appErr "github.com/xxxsen/medrag/internal/pkg/errors"
)

func TestCodeOf(t *testing.T) {
	code, _ := CodeOf(fmt.Errorf("query: %w", appErr.Wrap(appErr.KindStoreUnavailable, errors.New("closed"))))
	require.Equal(t, errcode.ErrStoreUnavailable, code)

	code, _ = CodeOf(appErr.Wrap(appErr.KindEmbeddingFailure, errors.New("x")))
	require.Equal(t, errcode.ErrEmbeddingFailure, code)

	code, msg := CodeOf(appErr.UpstreamHTTP(500, "secret body"))
	require.Equal(t, errcode.ErrUpstream, code)
	require.NotContains(t, msg, "secret body")

	code, _ = CodeOf(errors.New("plain"))
	require.Equal(t, errcode.ErrInternal, code)
}
