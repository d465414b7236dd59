package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/admin"
)

// orderEvents serves GET /api/admin/orders/events as a Server-Sent Events
// stream of order updates. Browsers cannot set headers on EventSource, so the
// token may also be passed as ?access_token=.
func (h *Handler) orderEvents(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("access_token")
	}
	sess, err := h.session(r, token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.console.Authorize(r.Context(), sess); err != nil {
		h.fail(w, r, err)
		return
	}

	lg := zctx.From(r.Context())
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		lg.Debug("Cannot clear write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var mu sync.Mutex
	send := func(b []byte) error {
		mu.Lock()
		defer mu.Unlock()
		if _, err := w.Write(b); err != nil {
			return err
		}
		return rc.Flush()
	}
	if err := send([]byte("retry: 3000\n\n")); err != nil {
		lg.Debug("Event stream not writable", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.keepAliveLoop(ctx, cancel, send)
	}()

	err = h.console.WatchOrders(ctx, sess, func(c admin.OrderChange) error {
		return send(orderChangeEvent(c))
	})
	cancel()
	<-done
	if err != nil {
		lg.Debug("Order event stream ended", zap.Error(err))
	}
}

func (h *Handler) keepAliveLoop(ctx context.Context, cancel context.CancelFunc, send func([]byte) error) {
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send([]byte(": keep-alive\n\n")); err != nil {
				cancel()
				return
			}
		}
	}
}

// orderChangeEvent renders one "order" event frame.
func orderChangeEvent(c admin.OrderChange) []byte {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(c.OrderID)
	e.FieldStart("status")
	e.Str(string(c.Status))
	e.FieldStart("previousStatus")
	e.Str(string(c.PreviousStatus))
	e.FieldStart("paymentReceived")
	e.Bool(c.PaymentReceived)
	e.ObjEnd()

	b := make([]byte, 0, len(e.Bytes())+24)
	b = append(b, "event: order\ndata: "...)
	b = append(b, e.Bytes()...)
	return append(b, "\n\n"...)
}
