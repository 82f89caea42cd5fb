// Package response writes the {code,message,data} envelope used by every
// JSON endpoint except /api/ask, which keeps its bare {result} shape.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/medrag/internal/pkg/errcode"
	appErr "github.com/xxxsen/medrag/internal/pkg/errors"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, codeErr{code: uint32(code), msg: message})
}

// Fail maps a typed failure onto its error code. Upstream details are not
// echoed to the client.
func Fail(c *gin.Context, err error) {
	code, msg := CodeOf(err)
	Error(c, code, msg)
}

func CodeOf(err error) (int, string) {
	switch appErr.KindOf(err) {
	case appErr.KindStoreUnavailable:
		return errcode.ErrStoreUnavailable, "vector store unavailable"
	case appErr.KindEmbeddingFailure:
		return errcode.ErrEmbeddingFailure, "embedding failed"
	case appErr.KindUpstreamHTTP, appErr.KindUpstreamTimeout, appErr.KindUpstreamUnavailable, appErr.KindMalformedUpstream:
		return errcode.ErrUpstream, "generation service unavailable"
	default:
		return errcode.ErrInternal, "internal error"
	}
}
