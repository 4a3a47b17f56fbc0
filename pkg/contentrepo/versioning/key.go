package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/tendant/content-repository/pkg/contentrepo"
)

// ShardLength is the number of hex characters used for the shard directory
const ShardLength = 2

// ObjectKey returns the archive key of the version of id created at timestamp.
// Keys are sharded git-style so that no single prefix grows unbounded:
//
//	versions/3f/42/1700000000000000000
func ObjectKey(id contentrepo.ID, timestamp time.Time) string {
	return Prefix(id) + strconv.FormatInt(timestamp.UTC().UnixNano(), 10)
}

// Prefix returns the key prefix shared by every archived version of id
func Prefix(id contentrepo.ID) string {
	sum := sha256.Sum256([]byte(id.String()))
	shard := hex.EncodeToString(sum[:])[:ShardLength]
	return fmt.Sprintf("versions/%s/%s/", shard, id)
}

// parseTimestamp recovers the version timestamp from an object key
func parseTimestamp(key string) (time.Time, error) {
	nanos, err := strconv.ParseInt(path.Base(key), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed version key %q: %w", key, err)
	}
	return time.Unix(0, nanos).UTC(), nil
}
