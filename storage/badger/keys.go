package badger

import (
	"fmt"
	"time"

	"github.com/poiesic/sigmatch/core"
)

// Key prefixes for different data types
const (
	signalPrefix     = "sigrec"
	signalDatePrefix = "sigrecd"
	checkpointPrefix = "sigchk"
)

// makeSignalKey generates a key for a signal record by ID.
func makeSignalKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s", signalPrefix, id))
}

// makeSignalDateKey generates a composite key for the publication-date index.
// Format: prefix:timestamp:id. Micro precision keeps keys sortable by time.
func makeSignalDateKey(publishedAt time.Time, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%020d:%s", signalDatePrefix, publishedAt.UnixMicro(), id))
}

// makeCheckpointKey generates a key for a named checkpoint.
func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, name))
}
