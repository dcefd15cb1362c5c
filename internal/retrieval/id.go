package retrieval

import (
	"crypto/sha1" // #nosec G505 -- content addressing, not security
	"encoding/hex"
	"strconv"
	"strings"
)

// idTextPrefixLen bounds how much chunk text participates in the identity
// key. Two chunks sharing an identical prefix of this length collide and
// overwrite each other; a known, accepted limitation inherited from the
// ingestion format (distinct chunks rarely share a 64-char prefix).
const idTextPrefixLen = 64

// ChunkID derives the stable identifier for a chunk from its natural keys.
// The id is deterministic across processes and orderings, which is what
// makes re-ingestion an overwrite instead of a duplicate insert.
func ChunkID(subject string, classNo int, chapter string, page *int, sourcePDF, text string) string {
	pageKey := ""
	if page != nil {
		pageKey = strconv.Itoa(*page)
	}

	prefix := text
	if len(prefix) > idTextPrefixLen {
		prefix = prefix[:idTextPrefixLen]
	}

	key := strings.Join([]string{
		subject,
		strconv.Itoa(classNo),
		chapter,
		pageKey,
		baseName(sourcePDF),
		prefix,
	}, "|")

	sum := sha1.Sum([]byte(key)) // #nosec G401 -- idempotency token, not a credential
	return hex.EncodeToString(sum[:])
}

// baseName strips any path prefix from the source file reference so that
// the same file ingested from different directories keeps the same id.
func baseName(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
