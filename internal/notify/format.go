package notify

import "strings"

const (
	statusHeader  = "📋 **Request update from the Kitchen Manager**"
	noChangesLine = "No changes to your requests this round."
)

// FormatStatus composes the DM sent back to the requester. The approved and
// rejected sections appear only when non-empty; when both are empty the
// no-changes line takes their place.
func FormatStatus(approved []string, rejected []RejectedItem, sheetURL string) string {
	var b strings.Builder
	b.WriteString(statusHeader)
	b.WriteString("\n")

	if len(approved) > 0 {
		b.WriteString("\n✅ Approved:\n")
		for _, it := range approved {
			b.WriteString("• ")
			b.WriteString(it)
			b.WriteString("\n")
		}
	}
	if len(rejected) > 0 {
		b.WriteString("\n❌ Rejected:\n")
		for _, rj := range rejected {
			b.WriteString("• ")
			b.WriteString(rj.Item)
			b.WriteString(" — ")
			b.WriteString(rj.Reason)
			b.WriteString("\n")
		}
	}
	if len(approved) == 0 && len(rejected) == 0 {
		b.WriteString("\n")
		b.WriteString(noChangesLine)
		b.WriteString("\n")
	}

	if sheetURL != "" {
		b.WriteString("\nTrack everything here: ")
		b.WriteString(sheetURL)
	}
	return b.String()
}
