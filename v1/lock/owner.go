package lock

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	processID = uuid.NewString()
	ownerSeq  atomic.Uint64
)

// NewOwner returns a token identifying one logical lock holder. Tokens are
// "<process uuid>:<sequence>" and never repeat within or across processes.
// A goroutine that wants reentrant acquisition keeps passing the same token.
func NewOwner() string {
	return processID + ":" + strconv.FormatUint(ownerSeq.Add(1), 10)
}
