package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

// ControllerTableData returns the table data for a controller, with bold ID
func ControllerTableData(ctrl map[string]any) pterm.TableData {
	return pterm.TableData{
		[]string{pterm.Bold.Sprint("ID"), pterm.Bold.Sprint(fmt.Sprintf("%v", ctrl["id"]))},
		[]string{"Name", fmt.Sprintf("%v", ctrl["name"])},
		[]string{"Address", fmt.Sprintf("%v", ctrl["address"])},
		[]string{"Reachable", fmt.Sprintf("%v", ctrl["reachable"])},
		[]string{"Added", formatTimestamp(ctrl["added_at"])},
		[]string{"Last Seen", formatTimestamp(ctrl["last_seen"])},
		[]string{"Last Applied", fmt.Sprintf("%v", orNA(ctrl["last_applied"]))},
	}
}

// PatternTableData returns the table data for a saved pattern
func PatternTableData(p map[string]any) pterm.TableData {
	return pterm.TableData{
		[]string{pterm.Bold.Sprint("ID"), pterm.Bold.Sprint(fmt.Sprintf("%v", p["id"]))},
		[]string{"Name", fmt.Sprintf("%v", p["name"])},
		[]string{"Controller", fmt.Sprintf("%v", p["controller_id"])},
		[]string{"Zones", fmt.Sprintf("%d", countZones(p))},
		[]string{"Created", formatTimestamp(p["created_at"])},
	}
}

// formatTimestamp formats an RFC3339 timestamp for display
func formatTimestamp(v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "N/A"
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.IsZero() {
		return "N/A"
	}
	return t.Format(time.RFC1123Z)
}

func orNA(v any) any {
	if v == nil {
		return "N/A"
	}
	if s, ok := v.(string); ok && s == "" {
		return "N/A"
	}
	return v
}

func countZones(p map[string]any) int {
	state, ok := p["state"].(map[string]any)
	if !ok {
		return 0
	}
	zones, ok := state["zones"].([]any)
	if !ok {
		return 0
	}
	return len(zones)
}

// ControllerParseable returns the parseable key=value string for a controller
func ControllerParseable(ctrl map[string]any) string {
	return fmt.Sprintf(
		"id=%q name=%q address=%q reachable=%v added_at=%q last_seen=%q last_applied=%q",
		ctrl["id"],
		ctrl["name"],
		ctrl["address"],
		ctrl["reachable"],
		stringOr(ctrl["added_at"], ""),
		stringOr(ctrl["last_seen"], ""),
		stringOr(ctrl["last_applied"], ""),
	)
}

// PatternParseable returns the parseable key=value string for a pattern
func PatternParseable(p map[string]any) string {
	return fmt.Sprintf(
		"id=%q name=%q controller_id=%q zones=%d created_at=%q",
		p["id"],
		p["name"],
		p["controller_id"],
		countZones(p),
		stringOr(p["created_at"], ""),
	)
}

// ZoneParseable returns one parseable line per zone in a light state
func ZoneParseable(state map[string]any) []string {
	zones, ok := state["zones"].([]any)
	if !ok {
		return nil
	}
	lines := make([]string, 0, len(zones))
	for _, z := range zones {
		zm, ok := z.(map[string]any)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"zone=%v patternType=%q colors=%q brightness=%v speed=%v power=%v",
			zm["zone"],
			zm["patternType"],
			zm["colors"],
			zm["brightness"],
			zm["speed"],
			zm["power"],
		))
	}
	return lines
}

// ZoneTableData returns a zones-as-rows table for a light state
func ZoneTableData(state map[string]any) pterm.TableData {
	table := pterm.TableData{
		[]string{"Zone", "Pattern", "Colors", "Brightness", "Speed", "Power"},
	}
	zones, ok := state["zones"].([]any)
	if !ok {
		return table
	}
	for _, z := range zones {
		zm, ok := z.(map[string]any)
		if !ok {
			continue
		}
		table = append(table, []string{
			fmt.Sprintf("%v", zm["zone"]),
			fmt.Sprintf("%v", zm["patternType"]),
			fmt.Sprintf("%v", zm["colors"]),
			fmt.Sprintf("%v", zm["brightness"]),
			fmt.Sprintf("%v", zm["speed"]),
			fmt.Sprintf("%v", zm["power"]),
		})
	}
	return table
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}
