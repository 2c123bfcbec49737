package lock

import (
	"math"
	"strconv"
	"strings"
)

// Record is the decoded form of a stored lock value.
type Record struct {
	Owner string
	Count int64
	// Legacy is set when the value carried no counter suffix.
	Legacy bool
}

// ParseRecord decodes v the same way the server-side scripts do: only the
// last colon-delimited run of digits is the counter, so owners may contain
// colons. A value without such a suffix is a legacy record with count 1.
// A counter beyond int64 still splits off the owner, as in the scripts, and
// is reported as math.MaxInt64.
func ParseRecord(v string) Record {
	if i := strings.LastIndexByte(v, ':'); i >= 0 && isDigits(v[i+1:]) {
		n, err := strconv.ParseInt(v[i+1:], 10, 64)
		if err != nil {
			n = math.MaxInt64
		}
		return Record{Owner: v[:i], Count: n}
	}
	return Record{Owner: v, Count: 1, Legacy: true}
}

// String encodes r as "<owner>:<count>".
func (r Record) String() string {
	return r.Owner + ":" + strconv.FormatInt(r.Count, 10)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
