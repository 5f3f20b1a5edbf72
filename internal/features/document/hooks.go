package document

import "context"

type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// HookArgs is what a lifecycle callback sees.
//
//   - BeforeCreate: Data is the incoming document and may be modified; it is persisted afterwards.
//   - BeforeUpdate: Original is the stored snapshot (read-only), Data is the incoming patch and
//     may be modified; the patch is persisted afterwards.
//   - AfterDelete: Original is the deleted document. The delete has already happened.
type HookArgs struct {
	Collection string
	Operation  Operation
	Data       Document
	Original   Document
}

// Hook returning an error aborts a Before* write. AfterDelete errors are only logged.
type Hook func(ctx context.Context, args *HookArgs) error

// Hooks is the ordered set of callbacks registered for one collection.
type Hooks struct {
	BeforeCreate []Hook
	BeforeUpdate []Hook
	AfterDelete  []Hook
}

func (h *Hooks) append(other Hooks) {
	h.BeforeCreate = append(h.BeforeCreate, other.BeforeCreate...)
	h.BeforeUpdate = append(h.BeforeUpdate, other.BeforeUpdate...)
	h.AfterDelete = append(h.AfterDelete, other.AfterDelete...)
}

func runHooks(ctx context.Context, hooks []Hook, args *HookArgs) error {
	for _, hook := range hooks {
		if err := hook(ctx, args); err != nil {
			return err
		}
	}
	return nil
}
