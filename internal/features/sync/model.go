package sync

import "go-paystack-sync/internal/features/document"

// numericIdentity lists resource kinds whose documents correlate by numeric Paystack id
// rather than by their <singular>_code.
var numericIdentity = map[string]bool{
	"product": true,
	"plan":    true,
}

// CollectionStatus counts a synced collection's documents per sync state.
type CollectionStatus struct {
	Collection string                       `json:"collection"`
	Resource   string                       `json:"resource"`
	Total      int64                        `json:"total"`
	States     map[document.SyncState]int64 `json:"states"`
}

// PushResult is the outcome of a manual re-push of one document.
type PushResult struct {
	Collection string             `json:"collection"`
	ID         string             `json:"id"`
	RemoteID   string             `json:"paystackID,omitempty"`
	State      document.SyncState `json:"syncState"`
	Message    string             `json:"message,omitempty"`
}
