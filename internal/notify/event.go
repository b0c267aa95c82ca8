package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nvaldezc/food_orders/internal/models"
	"github.com/nvaldezc/food_orders/internal/order"
)

// ErrBadEvent marks a payload that cannot be normalized into a ChangeEvent.
var ErrBadEvent = errors.New("unnormalizable change event")

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
)

// OrderRecord is the canonical projection of an order row inside a change
// event. Only the fields the planner looks at are kept.
type OrderRecord struct {
	ID         string
	UserID     *string
	Status     string
	DeliveryID *string
	ClientName string
	Total      float64
}

// ChangeEvent is one normalized store mutation. Old is nil for inserts.
type ChangeEvent struct {
	Type   EventType
	Record OrderRecord
	Old    *OrderRecord
}

// Intake payloads arrive from the hosted backend with inconsistent field
// names across webhook versions. Every accepted alias is normalized here,
// at the boundary; nothing downstream ever sees a raw payload.
var (
	typeAliases      = []string{"type", "event", "eventType", "event_type"}
	recordAliases    = []string{"record", "new", "row"}
	oldRecordAliases = []string{"old_record", "oldRecord", "old"}
)

// ParseEvent normalizes a raw webhook body. Anything it cannot shape into a
// canonical ChangeEvent is rejected with ErrBadEvent.
func ParseEvent(body []byte) (*ChangeEvent, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}

	typVal, ok := pickRaw(raw, typeAliases)
	if !ok {
		return nil, fmt.Errorf("%w: missing event type", ErrBadEvent)
	}
	var typStr string
	if err := json.Unmarshal(typVal, &typStr); err != nil {
		return nil, fmt.Errorf("%w: event type is not a string", ErrBadEvent)
	}
	typ := EventType(strings.ToUpper(typStr))
	if typ != EventInsert && typ != EventUpdate {
		return nil, fmt.Errorf("%w: unsupported event type %q", ErrBadEvent, typStr)
	}

	recVal, ok := pickRaw(raw, recordAliases)
	if !ok {
		return nil, fmt.Errorf("%w: missing record", ErrBadEvent)
	}
	rec, err := parseRecord(recVal)
	if err != nil {
		return nil, err
	}

	ev := &ChangeEvent{Type: typ, Record: *rec}
	if oldVal, ok := pickRaw(raw, oldRecordAliases); ok && string(oldVal) != "null" {
		old, err := parseRecord(oldVal)
		if err != nil {
			return nil, err
		}
		ev.Old = old
	}
	if typ == EventUpdate && ev.Old == nil {
		return nil, fmt.Errorf("%w: UPDATE without old record", ErrBadEvent)
	}
	return ev, nil
}

func parseRecord(raw json.RawMessage) (*OrderRecord, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: record is not an object", ErrBadEvent)
	}

	rec := OrderRecord{}
	id, ok := pickString(fields, "id", "order_id", "orderId")
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: record without id", ErrBadEvent)
	}
	rec.ID = id

	status, ok := pickString(fields, "status")
	if !ok || status == "" {
		return nil, fmt.Errorf("%w: record without status", ErrBadEvent)
	}
	status = order.Canonical(status)
	if !order.IsValid(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrBadEvent, status)
	}
	rec.Status = status

	if v, ok := pickString(fields, "user_id", "userId"); ok && v != "" {
		rec.UserID = &v
	}
	if v, ok := pickString(fields, "delivery_id", "deliveryId", "courier_id", "courierId"); ok && v != "" {
		rec.DeliveryID = &v
	}
	rec.ClientName, _ = pickString(fields, "client_name", "clientName")
	if v, ok := pickFloat(fields, "total"); ok {
		rec.Total = v
	}
	return &rec, nil
}

// FromOrders builds a canonical event out of our own store mutations so the
// in-process API surfaces feed the exact same pipeline as the webhook.
func FromOrders(typ EventType, newOrd *models.Order, oldOrd *models.Order) ChangeEvent {
	ev := ChangeEvent{Type: typ, Record: toRecord(newOrd)}
	if oldOrd != nil {
		old := toRecord(oldOrd)
		ev.Old = &old
	}
	return ev
}

func toRecord(o *models.Order) OrderRecord {
	return OrderRecord{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     order.Canonical(o.Status),
		DeliveryID: o.DeliveryID,
		ClientName: o.ClientName,
		Total:      o.Total,
	}
}

func pickRaw(m map[string]json.RawMessage, keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func pickString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

func pickFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
