package naming

import (
	"fmt"
	"strconv"
	"strings"
)

const workerPrefix = "worker-"

// WorkerHost returns the host name of the worker at the given ordinal.
func WorkerHost(ordinal int) string {
	return fmt.Sprintf("%s%d", workerPrefix, ordinal)
}

// NextWorkerHost returns the host name for the worker that follows the
// current count of active workers.
func NextWorkerHost(current int) string {
	return WorkerHost(current + 1)
}

// WorkerOrdinal parses the ordinal out of a worker host name.
// The second return value is false when host does not follow the pattern.
func WorkerOrdinal(host string) (int, bool) {
	rest, ok := strings.CutPrefix(host, workerPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
