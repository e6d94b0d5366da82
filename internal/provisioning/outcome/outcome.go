// Package outcome translates provisioning driver output into typed results.
//
// Scripts may print a structured trailer line:
//
//	DBCLUSTER_RESULT {"success":true,"workerIp":"172.18.0.5"}
//
// When present, the last trailer is authoritative. Otherwise the marker table
// below decides success from the free-form output. The marker strings are
// printed by the provisioning scripts and must match them byte for byte.
package outcome

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/VoxelHeimGame/db-cluster/internal/provisioning"
)

// TrailerPrefix starts a structured result line in driver output.
const TrailerPrefix = "DBCLUSTER_RESULT "

// Markers printed by the provisioning scripts.
const (
	MarkerClusterStarted   = "🎉 Citus Cluster"
	MarkerStartedOK        = "started successfully"
	MarkerCluster          = "Citus Cluster"
	MarkerStoppedOK        = "stopped and cleaned up completely"
	MarkerWorkerAdded      = "Worker(s) added and registered to the Citus cluster"
	MarkerRegisterFailed   = "Failed to register worker"
	MarkerWorkersRemovedOK = "Workers removed successfully from both Docker and the Citus cluster"
)

var workerIPPattern = regexp.MustCompile(`Registering worker (\d+\.\d+\.\d+\.\d+)`)

// Outcome is the typed result of a provisioning operation.
type Outcome struct {
	Success   bool
	RawOutput string
	// WorkerIP is set when the output names a registered worker.
	WorkerIP string
	// Structured is true when the result came from a trailer line.
	Structured bool
}

type trailer struct {
	Success  bool   `json:"success"`
	WorkerIP string `json:"workerIp,omitempty"`
}

type rule struct {
	require   []string
	forbid    []string
	extractIP bool
}

var rules = map[provisioning.Operation]rule{
	provisioning.OpStartCluster: {
		require:   []string{MarkerClusterStarted, MarkerStartedOK},
		extractIP: true,
	},
	provisioning.OpStopCluster: {
		require: []string{MarkerCluster, MarkerStoppedOK},
	},
	provisioning.OpAddWorker: {
		require:   []string{MarkerWorkerAdded},
		forbid:    []string{MarkerRegisterFailed},
		extractIP: true,
	},
	provisioning.OpRemoveWorker: {
		require: []string{MarkerWorkersRemovedOK},
	},
}

// Parse derives the outcome of op from the driver's combined output.
// Unknown operations never succeed.
func Parse(op provisioning.Operation, output string) Outcome {
	out := Outcome{RawOutput: output}

	if t, ok := lastTrailer(output); ok {
		out.Success = t.Success
		out.WorkerIP = t.WorkerIP
		out.Structured = true
		return out
	}

	r, ok := rules[op]
	if !ok {
		return out
	}

	out.Success = containsAll(output, r.require) && !containsAny(output, r.forbid)
	if r.extractIP {
		out.WorkerIP = WorkerIP(output)
	}
	return out
}

// WorkerIP returns the first worker address announced in output, or "".
func WorkerIP(output string) string {
	m := workerIPPattern.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

func lastTrailer(output string) (trailer, bool) {
	var (
		found bool
		last  trailer
	)
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		payload, ok := strings.CutPrefix(line, TrailerPrefix)
		if !ok {
			continue
		}
		var t trailer
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			continue
		}
		last, found = t, true
	}
	return last, found
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
