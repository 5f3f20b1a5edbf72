package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var ErrNotFound = errors.New("document not found")

// Field names carried by every synced document.
const (
	FieldID          = "id"
	FieldRemoteID    = "paystackID"
	FieldSkipSync    = "skipSync"
	FieldSyncState   = "syncState"
	FieldBlacklisted = "blacklisted"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"

	FieldPassword        = "password"
	FieldPasswordConfirm = "passwordConfirm"
	FieldVerified        = "_verified"
)

// Document is a record in a local collection. Domain fields are dynamic.
type Document map[string]any

func (d Document) ID() string {
	return d.String(FieldID)
}

// RemoteID is the Paystack code or id correlated with this document.
func (d Document) RemoteID() string {
	return d.String(FieldRemoteID)
}

func (d Document) SkipSync() bool {
	return d.Bool(FieldSkipSync)
}

func (d Document) Blacklisted() bool {
	return d.Bool(FieldBlacklisted)
}

func (d Document) SyncState() SyncState {
	if s := d.String(FieldSyncState); s != "" {
		return SyncState(s)
	}
	return StateUnsynced
}

// String formats scalar values; numeric ids come back without a decimal part.
func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Clone copies the top level; nested values are shared.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge returns a copy of d overlaid with patch.
func (d Document) Merge(patch Document) Document {
	out := d.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// FindResult mirrors the host's paginated find shape.
type FindResult struct {
	Docs      []Document `json:"docs"`
	TotalDocs int64      `json:"totalDocs"`
}

// SyncState tracks where a document stands relative to Paystack.
type SyncState string

const (
	StateUnsynced SyncState = "unsynced"
	StatePending  SyncState = "pending"
	StateSynced   SyncState = "synced"
	StateFailed   SyncState = "failed"
)

// SyncEvent drives SyncState transitions.
type SyncEvent string

const (
	// EventLocalChange is a local mutation that should be pushed to Paystack.
	EventLocalChange SyncEvent = "local_change"
	// EventRemoteAck is a successful outbound call.
	EventRemoteAck SyncEvent = "remote_ack"
	// EventRemoteFailure is an outbound call that did not succeed.
	EventRemoteFailure SyncEvent = "remote_failure"
	// EventInbound is a write that originated from Paystack (webhook or polling).
	EventInbound SyncEvent = "inbound"
)

var transitions = map[SyncState]map[SyncEvent]SyncState{
	StateUnsynced: {
		EventLocalChange: StatePending,
		EventInbound:     StateSynced,
	},
	StatePending: {
		EventRemoteAck:     StateSynced,
		EventRemoteFailure: StateFailed,
		EventInbound:       StateSynced,
	},
	StateSynced: {
		EventLocalChange: StatePending,
		EventInbound:     StateSynced,
	},
	StateFailed: {
		EventLocalChange: StatePending,
		EventInbound:     StateSynced,
	},
}

// Next applies an event. Events that make no sense for the current state leave it unchanged.
func (s SyncState) Next(e SyncEvent) SyncState {
	if next, ok := transitions[s][e]; ok {
		return next
	}
	return s
}

// ShouldPush is the loop-prevention rule: writes flagged skipSync, which is how inbound
// writes are marked, never produce outbound calls.
func ShouldPush(incoming Document) bool {
	return !incoming.SkipSync()
}

type skipSyncKey struct{}

// WithoutSync marks a context so that hooks fired by writes made with it do not call Paystack.
// Deletes carry no incoming data, so this is how inbound deletes suppress outbound sync.
func WithoutSync(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipSyncKey{}, true)
}

// SyncSuppressed reports whether ctx was produced by WithoutSync.
func SyncSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(skipSyncKey{}).(bool)
	return v
}
