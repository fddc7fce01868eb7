package api

import (
	"net/http"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"feedsync/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Events upgrades to a websocket and streams store events until the peer
// disconnects. Slow consumers drop events rather than stall the store.
func (h *HTTPHandler) Events(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		glog.Warningf("[events] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := make(chan storage.Event, 64)
	unsubscribe := h.storage.Subscribe(func(e storage.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case e := <-events:
			if err := conn.WriteJSON(e); err != nil {
				glog.V(2).Infof("[events] write failed: %v", err)
				return
			}
		}
	}
}
