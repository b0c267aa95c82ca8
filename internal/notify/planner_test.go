package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvaldezc/food_orders/internal/order"
)

func strptr(s string) *string { return &s }

func noLookup(string) string { return "" }

func TestPlanInsertAlwaysOneAdminJob(t *testing.T) {
	ev := ChangeEvent{
		Type: EventInsert,
		Record: OrderRecord{
			ID:         "o1",
			UserID:     strptr("u1"),
			Status:     order.StatusPending,
			DeliveryID: strptr("c9"), // extra payload fields must not add jobs
			ClientName: "Maria",
			Total:      15.50,
		},
	}
	jobs := Plan(ev, noLookup)
	require.Len(t, jobs, 1)
	require.Equal(t, TargetAdmins, jobs[0].Kind)
	require.Contains(t, jobs[0].Body, "Maria")
	require.Contains(t, jobs[0].URL, "o1")
}

func TestPlanStatusChangeTargetsUser(t *testing.T) {
	ev := ChangeEvent{
		Type:   EventUpdate,
		Record: OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusCooking},
		Old:    &OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusPending},
	}
	jobs := Plan(ev, noLookup)
	require.Len(t, jobs, 1)
	require.Equal(t, TargetUser, jobs[0].Kind)
	require.Equal(t, "u1", jobs[0].UserID)
	require.Contains(t, jobs[0].Tag, "o1")
	require.Contains(t, jobs[0].Tag, order.StatusCooking)
}

func TestPlanStatusChangeWithoutUserYieldsNothing(t *testing.T) {
	ev := ChangeEvent{
		Type:   EventUpdate,
		Record: OrderRecord{ID: "o1", Status: order.StatusCooking},
		Old:    &OrderRecord{ID: "o1", Status: order.StatusPending},
	}
	require.Empty(t, Plan(ev, noLookup))
}

func TestPlanCourierAssignment(t *testing.T) {
	ev := ChangeEvent{
		Type:   EventUpdate,
		Record: OrderRecord{ID: "o1", Status: order.StatusReady, DeliveryID: strptr("c1")},
		Old:    &OrderRecord{ID: "o1", Status: order.StatusReady},
	}
	jobs := Plan(ev, noLookup)
	require.Len(t, jobs, 1)
	require.Equal(t, TargetCourier, jobs[0].Kind)
	require.Equal(t, "c1", jobs[0].UserID)

	// unchanged courier produces no job
	ev.Old.DeliveryID = strptr("c1")
	require.Empty(t, Plan(ev, noLookup))

	// reassignment notifies the new courier
	ev.Old.DeliveryID = strptr("c0")
	jobs = Plan(ev, noLookup)
	require.Len(t, jobs, 1)
	require.Equal(t, "c1", jobs[0].UserID)
}

func TestPlanShippedUsesCourierName(t *testing.T) {
	ev := ChangeEvent{
		Type:   EventUpdate,
		Record: OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusShipped, DeliveryID: strptr("c1")},
		Old:    &OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusReady, DeliveryID: strptr("c1")},
	}
	jobs := Plan(ev, func(id string) string {
		require.Equal(t, "c1", id)
		return "Carlos"
	})
	require.Len(t, jobs, 1)
	require.Contains(t, jobs[0].Body, "Carlos")

	// lookup miss falls back to a generic message, still one job
	jobs = Plan(ev, noLookup)
	require.Len(t, jobs, 1)
	require.NotContains(t, jobs[0].Body, "Carlos")
}

func TestPlanCancellationNotifiesAdminsAndCourier(t *testing.T) {
	ev := ChangeEvent{
		Type:   EventUpdate,
		Record: OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusCancelled, DeliveryID: strptr("c1"), ClientName: "Maria"},
		Old:    &OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusShipped, DeliveryID: strptr("c1")},
	}
	jobs := Plan(ev, noLookup)
	require.Len(t, jobs, 2)
	require.Equal(t, TargetAdmins, jobs[0].Kind)
	require.Equal(t, TargetCourier, jobs[1].Kind)
	require.Equal(t, "c1", jobs[1].UserID)

	// no courier assigned: admins only
	ev.Record.DeliveryID = nil
	ev.Old.DeliveryID = nil
	jobs = Plan(ev, noLookup)
	require.Len(t, jobs, 1)
	require.Equal(t, TargetAdmins, jobs[0].Kind)
}

func TestPlanAlreadyCancelledYieldsNothing(t *testing.T) {
	ev := ChangeEvent{
		Type:   EventUpdate,
		Record: OrderRecord{ID: "o1", Status: order.StatusCancelled},
		Old:    &OrderRecord{ID: "o1", Status: order.StatusCancelled},
	}
	require.Empty(t, Plan(ev, noLookup))
}

func TestPlanIsDeterministic(t *testing.T) {
	ev := ChangeEvent{
		Type:   EventUpdate,
		Record: OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusShipped, DeliveryID: strptr("c1")},
		Old:    &OrderRecord{ID: "o1", UserID: strptr("u1"), Status: order.StatusReady, DeliveryID: strptr("c1")},
	}
	name := func(string) string { return "Carlos" }
	first := Plan(ev, name)
	second := Plan(ev, name)
	require.Equal(t, first, second)
}
