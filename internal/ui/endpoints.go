package ui

import (
	"fmt"
	"strings"

	"github.com/xpdeck/xpdeck/internal/discovery"
)

// RenderEndpoints lists discovered panels, one per line.
func RenderEndpoints(endpoints []*discovery.Endpoint) string {
	if len(endpoints) == 0 {
		return ErrorMessageStyle.Render("  " + FailureMarker + " no panels found")
	}
	var lines []string
	for i, ep := range endpoints {
		line := fmt.Sprintf("  %d. %-20s %-5s %s", i+1, ep.Name, ep.Source, ep.Addr())
		if serial := ep.GetMetadata("serial"); serial != "" {
			line += HeaderCommandStyle.Render("serial " + serial)
		}
		lines = append(lines, ResultValueStyle.Render(line))
	}
	return strings.Join(lines, "\n")
}
