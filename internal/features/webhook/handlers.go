package webhook

import (
	"context"
	"fmt"

	"go-paystack-sync/internal/features/document"
	"go-paystack-sync/internal/mapping"

	"go.uber.org/zap"
)

const (
	EventChargeSuccess         = "charge.success"
	EventPaymentRequestSuccess = "paymentrequest.success"
)

// defaultTransactionCollection receives transactions when no sync entry names one.
const defaultTransactionCollection = "transaction"

func (s *WebhookServiceImpl) registerBuiltins(names []string) {
	for _, name := range names {
		switch name {
		case EventChargeSuccess:
			s.Handle(name, s.ChargeSuccess)
		case EventPaymentRequestSuccess:
			s.Handle(name, s.PaymentRequestSuccess)
		default:
			s.log.Warn("Unknown built-in webhook handler", zap.String("name", name))
		}
	}
}

func (s *WebhookServiceImpl) transactionCollection() string {
	if sc, ok := s.Config.Paystack.SyncForResource("transaction"); ok {
		return sc.Collection
	}
	return defaultTransactionCollection
}

// markInbound flags the write so outbound hooks of a synced collection leave it alone.
func (s *WebhookServiceImpl) markInbound(collection string, fields document.Document) {
	if _, synced := s.Config.Paystack.SyncFor(collection); synced {
		fields[document.FieldSkipSync] = true
	}
}

func (s *WebhookServiceImpl) findTransaction(ctx context.Context, collection, reference string) (document.Document, error) {
	res, err := s.Docs.Find(ctx, collection, map[string]any{"reference": reference}, 1)
	if err != nil {
		return nil, fmt.Errorf("find %s by reference: %w", collection, err)
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}
	return res.Docs[0], nil
}

// ChargeSuccess records a successful charge as a transaction, keyed by its reference.
func (s *WebhookServiceImpl) ChargeSuccess(ctx context.Context, event Event) error {
	data := document.Document(event.Data)
	reference := data.String("reference")
	if reference == "" {
		s.log.Warn("charge.success without reference")
		return nil
	}

	fields := document.Document{
		"status":    data.String("status"),
		"reference": reference,
		"currency":  data.String("currency"),
		"channel":   data.String("channel"),
	}
	if amount, ok := data["amount"]; ok && amount != nil {
		fields["amount"] = mapping.ToLocal("amount", amount)
	}
	if paidAt, ok := data["paid_at"]; ok && paidAt != nil {
		fields["paid_at"] = paidAt
	}
	if code, ok := mapping.Lookup(event.Data, "customer.customer_code"); ok {
		fields["customer_code"] = code
	}
	if id := formatID(data["id"]); id != "" {
		fields[document.FieldRemoteID] = id
	}

	collection := s.transactionCollection()
	s.markInbound(collection, fields)
	existing, err := s.findTransaction(ctx, collection, reference)
	if err != nil {
		return err
	}
	if existing != nil {
		fields[document.FieldSyncState] = string(existing.SyncState().Next(document.EventInbound))
		if _, err := s.Docs.Update(ctx, collection, existing.ID(), fields); err != nil {
			return fmt.Errorf("update transaction %s: %w", reference, err)
		}
		s.log.Info("Updated transaction from charge.success", zap.String("reference", reference))
		return nil
	}

	fields[document.FieldSyncState] = string(document.StateUnsynced.Next(document.EventInbound))
	if _, err := s.Docs.Create(ctx, collection, fields); err != nil {
		return fmt.Errorf("create transaction %s: %w", reference, err)
	}
	s.log.Info("Created transaction from charge.success", zap.String("reference", reference))
	return nil
}

// PaymentRequestSuccess marks the transaction with the request's reference as paid.
func (s *WebhookServiceImpl) PaymentRequestSuccess(ctx context.Context, event Event) error {
	data := document.Document(event.Data)
	reference := data.String("reference")
	if reference == "" {
		reference = data.String("offline_reference")
	}
	if reference == "" {
		s.log.Warn("paymentrequest.success without reference")
		return nil
	}

	collection := s.transactionCollection()
	existing, err := s.findTransaction(ctx, collection, reference)
	if err != nil {
		return err
	}
	if existing == nil {
		s.log.Warn("No transaction found for payment request", zap.String("reference", reference))
		return nil
	}

	fields := document.Document{
		"status":                "success",
		document.FieldSyncState: string(existing.SyncState().Next(document.EventInbound)),
	}
	s.markInbound(collection, fields)
	if paidAt, ok := data["paid_at"]; ok && paidAt != nil {
		fields["paid_at"] = paidAt
	}
	if amount, ok := data["amount"]; ok && amount != nil {
		fields["amount"] = mapping.ToLocal("amount", amount)
	}
	if _, err := s.Docs.Update(ctx, collection, existing.ID(), fields); err != nil {
		return fmt.Errorf("update transaction %s: %w", reference, err)
	}
	s.log.Info("Marked transaction paid", zap.String("reference", reference))
	return nil
}
