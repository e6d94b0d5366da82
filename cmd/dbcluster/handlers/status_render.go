package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/VoxelHeimGame/db-cluster/internal/catalog"
	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
	"github.com/VoxelHeimGame/db-cluster/internal/util/naming"
)

var (
	statusColorGreen  = lipgloss.Color("#22c55e")
	statusColorRed    = lipgloss.Color("#ef4444")
	statusColorYellow = lipgloss.Color("#eab308")
	statusColorBlue   = lipgloss.Color("#3b82f6")
	statusColorDim    = lipgloss.Color("#6b7280")
	statusColorWhite  = lipgloss.Color("#f9fafb")
)

// statusStyles groups the styles used by renderStatus.
type statusStyles struct {
	title, section, dim, ok, bad, warn lipgloss.Style
}

func newStatusStyles(styled bool) statusStyles {
	if !styled {
		plain := lipgloss.NewStyle()
		return statusStyles{plain, plain, plain, plain, plain, plain}
	}
	return statusStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(statusColorWhite),
		section: lipgloss.NewStyle().Bold(true).Foreground(statusColorBlue),
		dim:     lipgloss.NewStyle().Foreground(statusColorDim),
		ok:      lipgloss.NewStyle().Foreground(statusColorGreen),
		bad:     lipgloss.NewStyle().Foreground(statusColorRed),
		warn:    lipgloss.NewStyle().Foreground(statusColorYellow),
	}
}

// renderStatus produces a human-readable cluster status.
func renderStatus(clusterID string, status *cluster.ClusterStatus, styled bool) string {
	st := newStatusStyles(styled)
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(st.title.Render(fmt.Sprintf("  dbcluster status: %s", clusterID)))
	b.WriteString("\n")
	b.WriteString(st.dim.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	state := st.bad.Render("stopped")
	if status.IsRunning {
		state = st.ok.Render("running")
	}
	b.WriteString(fmt.Sprintf("    State:    %s\n", state))
	b.WriteString(fmt.Sprintf("    Workers:  %d\n", status.WorkerCount))
	if status.Degraded {
		b.WriteString("    Catalog:  ")
		b.WriteString(st.warn.Render("unreachable, status may be incomplete"))
		b.WriteString("\n")
	}

	if len(status.Workers) > 0 {
		b.WriteString("\n")
		b.WriteString(st.section.Render("  Worker Nodes"))
		b.WriteString("\n")
		b.WriteString(st.dim.Render("  " + strings.Repeat("─", 35)))
		b.WriteString("\n")
		b.WriteString(st.dim.Render(fmt.Sprintf("    %-24s %6s", "Name", "Port")))
		b.WriteString("\n")
		for _, w := range sortWorkers(status.Workers) {
			b.WriteString(fmt.Sprintf("    %-24s %6d\n", w.Name, w.Port))
		}
	}
	b.WriteString("\n")
	return b.String()
}

// sortWorkers orders worker-<n> hosts by ordinal and everything else by name.
func sortWorkers(workers []catalog.WorkerNode) []catalog.WorkerNode {
	sorted := append([]catalog.WorkerNode(nil), workers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		oi, iok := naming.WorkerOrdinal(sorted[i].Name)
		oj, jok := naming.WorkerOrdinal(sorted[j].Name)
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return sorted[i].Name < sorted[j].Name
		}
	})
	return sorted
}
