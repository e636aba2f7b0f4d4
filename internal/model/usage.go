package model

import "time"

// Dimension identifies one of the metered usage counters.
type Dimension string

const (
	DimPlansCreated  Dimension = "plans_created"
	DimAIRequests    Dimension = "ai_requests"
	DimFileUploads   Dimension = "file_uploads"
	DimGroupsCreated Dimension = "study_groups_created"
	DimStorageBytes  Dimension = "storage_bytes_used"
)

// Label returns a human-readable name for the dimension, used in quota
// denial messages.
func (d Dimension) Label() string {
	switch d {
	case DimPlansCreated:
		return "study plans"
	case DimAIRequests:
		return "AI requests"
	case DimFileUploads:
		return "file uploads"
	case DimGroupsCreated:
		return "study groups"
	case DimStorageBytes:
		return "storage"
	default:
		return string(d)
	}
}

// UsageLedger holds a user's metered consumption for one calendar month.
// Exactly one ledger is current at any instant, keyed by Month; reading a
// ledger whose stored month differs from the wall-clock month yields a
// fresh zeroed ledger for the new month.
type UsageLedger struct {
	UserID           string `db:"user_id" json:"user_id"`
	Month            string `db:"month" json:"month"`
	PlansCreated     int64  `db:"plans_created" json:"plans_created"`
	AIRequests       int64  `db:"ai_requests" json:"ai_requests"`
	FileUploads      int64  `db:"file_uploads" json:"file_uploads"`
	GroupsCreated    int64  `db:"study_groups_created" json:"study_groups_created"`
	StorageBytesUsed int64  `db:"storage_bytes_used" json:"storage_bytes_used"`
}

// Value returns the counter for the given dimension.
func (l *UsageLedger) Value(dim Dimension) int64 {
	switch dim {
	case DimPlansCreated:
		return l.PlansCreated
	case DimAIRequests:
		return l.AIRequests
	case DimFileUploads:
		return l.FileUploads
	case DimGroupsCreated:
		return l.GroupsCreated
	case DimStorageBytes:
		return l.StorageBytesUsed
	default:
		return 0
	}
}

// Add increments the counter for the given dimension and returns the new
// value.
func (l *UsageLedger) Add(dim Dimension, amount int64) int64 {
	switch dim {
	case DimPlansCreated:
		l.PlansCreated += amount
		return l.PlansCreated
	case DimAIRequests:
		l.AIRequests += amount
		return l.AIRequests
	case DimFileUploads:
		l.FileUploads += amount
		return l.FileUploads
	case DimGroupsCreated:
		l.GroupsCreated += amount
		return l.GroupsCreated
	case DimStorageBytes:
		l.StorageBytesUsed += amount
		return l.StorageBytesUsed
	default:
		return 0
	}
}

// MonthKey formats t as the "YYYY-MM" ledger key.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// NewUsageLedger returns a zeroed ledger for the given user and month.
func NewUsageLedger(userID, month string) *UsageLedger {
	return &UsageLedger{UserID: userID, Month: month}
}
