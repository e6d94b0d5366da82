package testing

import (
	"fmt"
	"strings"
)

// StartOutput is what start_cluster.sh prints after a successful start.
func StartOutput(clusterID string, workerIPs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Starting Citus cluster %s with %d workers...\n", clusterID, len(workerIPs))
	b.WriteString("Coordinator is ready\n")
	for _, ip := range workerIPs {
		fmt.Fprintf(&b, "Registering worker %s\n", ip)
	}
	fmt.Fprintf(&b, "🎉 Citus Cluster %s started successfully!\n", clusterID)
	return b.String()
}

// StopOutput is what stop_cluster.sh prints after a successful stop.
func StopOutput(clusterID string) string {
	return fmt.Sprintf("Stopping containers for %s...\nCitus Cluster %s stopped and cleaned up completely\n", clusterID, clusterID)
}

// AddWorkerOutput is what add_worker.sh prints after registering ip.
func AddWorkerOutput(ip string) string {
	return fmt.Sprintf("Starting new worker container...\nRegistering worker %s\nWorker(s) added and registered to the Citus cluster successfully\n", ip)
}

// AddWorkerRegisterFailedOutput contains both the success and the failure marker.
func AddWorkerRegisterFailedOutput(ip string) string {
	return fmt.Sprintf("Registering worker %s\nFailed to register worker %s, retrying later\nWorker(s) added and registered to the Citus cluster successfully\n", ip, ip)
}

// RemoveWorkerOutput is what delete_worker.sh prints after a successful removal.
func RemoveWorkerOutput(keep int) string {
	return fmt.Sprintf("Scaling workers down to %d...\nWorkers removed successfully from both Docker and the Citus cluster\n", keep)
}
