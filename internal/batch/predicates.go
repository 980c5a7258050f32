package batch

import "storyboard/internal/board"

// NeedsAsset selects idle rows with no assets and no recorded error.
func NeedsAsset(row *board.Row) bool {
	return !row.Busy() && len(row.Assets) == 0 && row.LastError == ""
}

// NeedsVideoPrompt selects idle rows that have an asset, no video prompt and
// no recorded error.
func NeedsVideoPrompt(row *board.Row) bool {
	return !row.Busy() && len(row.Assets) > 0 && row.VideoPrompt == "" && row.LastError == ""
}
