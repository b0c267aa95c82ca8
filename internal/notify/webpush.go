package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/nvaldezc/food_orders/internal/models"
)

// ErrEndpointGone marks a permanent delivery failure: the browser
// unsubscribed or the endpoint expired. Everything else is transient.
var ErrEndpointGone = errors.New("push endpoint gone")

// Message is the payload a device receives.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
	Tag   string `json:"tag"`
}

// Sender delivers one push message to one subscription.
type Sender interface {
	Send(ctx context.Context, sub models.PushSubscription, msg Message) error
}

// Notifications are fire-and-forget; anything the push service cannot
// deliver within the TTL is dropped rather than queued.
const pushTTLSeconds = 60

// WebPushSender sends through the Web Push protocol with VAPID auth.
type WebPushSender struct {
	PublicKey  string
	PrivateKey string
	Subscriber string // contact mailto/URL required by VAPID
}

func (s *WebPushSender) Send(ctx context.Context, sub models.PushSubscription, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wsub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, wsub, &webpush.Options{
		Subscriber:      s.Subscriber,
		VAPIDPublicKey:  s.PublicKey,
		VAPIDPrivateKey: s.PrivateKey,
		TTL:             pushTTLSeconds,
		Urgency:         webpush.UrgencyNormal,
		Topic:           msg.Tag,
	})
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrEndpointGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push provider status %d", resp.StatusCode)
	}
	return nil
}
