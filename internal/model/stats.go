package model

import (
	"fmt"
	"time"
)

// DocumentStats is the aggregate view shown on the dashboard cards.
type DocumentStats struct {
	TotalDocuments int    `json:"totalDocuments"`
	AISummaries    int    `json:"aiSummaries"`
	StorageUsed    string `json:"storageUsed"`
	RecentActivity string `json:"recentActivity"`
}

// NoActivity is the RecentActivity sentinel for an empty store.
const NoActivity = "No activity"

// FormatStorageUsed renders a byte total as gigabytes with one decimal place.
func FormatStorageUsed(totalBytes int64) string {
	gb := float64(totalBytes) / (1024 * 1024 * 1024)
	return fmt.Sprintf("%.1f GB", gb)
}

// FormatRecentActivity renders the age of the most recent upload in whole
// hours. A nil timestamp means the store is empty.
func FormatRecentActivity(mostRecent *time.Time, now time.Time) string {
	if mostRecent == nil {
		return NoActivity
	}
	hours := int(now.Sub(*mostRecent).Hours())
	if hours < 0 {
		hours = 0
	}
	return fmt.Sprintf("%d hrs ago", hours)
}
