package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvaldezc/food_orders/internal/models"
	"github.com/nvaldezc/food_orders/internal/notify"
)

func TestSubscribeUpsertsCallersDevice(t *testing.T) {
	env := newTestEnv(t)
	h := &SubscriptionHandler{Registry: env.registry, Dispatcher: env.pipeline.Dispatcher}

	payload := map[string]any{
		"endpoint":   "https://push.example/ep1",
		"keys":       map[string]string{"p256dh": "k1", "auth": "a1"},
		"user_agent": "test-browser",
	}
	c, rec := newContext(t, http.MethodPost, "/push/subscriptions", payload, "u1", models.RoleCustomer)
	require.NoError(t, h.Subscribe(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var stored models.PushSubscription
	require.NoError(t, env.db.First(&stored, "endpoint = ?", "https://push.example/ep1").Error)
	require.Equal(t, "u1", stored.UserID)
	require.Equal(t, models.RoleCustomer, stored.Role)
	require.True(t, stored.Enabled)

	// same device subscribing again rotates the keys in place
	payload["keys"] = map[string]string{"p256dh": "k2", "auth": "a2"}
	c, _ = newContext(t, http.MethodPost, "/push/subscriptions", payload, "u1", models.RoleCustomer)
	require.NoError(t, h.Subscribe(c))

	var count int64
	require.NoError(t, env.db.Model(&models.PushSubscription{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.NoError(t, env.db.First(&stored, "endpoint = ?", "https://push.example/ep1").Error)
	require.Equal(t, "k2", stored.P256dhKey)
}

func TestSubscribeValidatesBody(t *testing.T) {
	env := newTestEnv(t)
	h := &SubscriptionHandler{Registry: env.registry, Dispatcher: env.pipeline.Dispatcher}

	c, _ := newContext(t, http.MethodPost, "/push/subscriptions", map[string]any{"endpoint": ""}, "u1", models.RoleCustomer)
	require.Equal(t, http.StatusBadRequest, httpStatus(t, h.Subscribe(c)))
}

func TestUnsubscribeDisablesByEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSubscription(t, "u1", models.RoleCustomer, "ep1")
	h := &SubscriptionHandler{Registry: env.registry, Dispatcher: env.pipeline.Dispatcher}

	c, rec := newContext(t, http.MethodDelete, "/push/subscriptions", map[string]string{"endpoint": "ep1"}, "u1", models.RoleCustomer)
	require.NoError(t, h.Unsubscribe(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var stored models.PushSubscription
	require.NoError(t, env.db.First(&stored, "endpoint = ?", "ep1").Error)
	require.False(t, stored.Enabled)
}

func TestSelfTestSendsOnlyToCaller(t *testing.T) {
	env := newTestEnv(t)
	env.seedSubscription(t, "u1", models.RoleCustomer, "ep-mine")
	env.seedSubscription(t, "u1", models.RoleCustomer, "ep-mine-expired")
	env.seedSubscription(t, "u2", models.RoleCustomer, "ep-other")
	env.sender.gone["ep-mine-expired"] = true
	h := &SubscriptionHandler{Registry: env.registry, Dispatcher: env.pipeline.Dispatcher}

	c, rec := newContext(t, http.MethodPost, "/push/test", nil, "u1", models.RoleCustomer)
	require.NoError(t, h.SelfTest(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var res notify.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, notify.Result{Sent: 1, DisabledInvalid: 1}, res)
	require.Len(t, env.sender.sent, 1, "u2's device must not receive the test push")
}
