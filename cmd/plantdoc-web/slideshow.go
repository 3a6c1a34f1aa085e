package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/gallery"
)

const (
	slideshowReadLimit = 512
	slideshowPongWait  = 60 * time.Second
	slideshowWriteWait = 10 * time.Second

	minSlideshowSeconds = 1
	maxSlideshowSeconds = 60
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// slideFrame is sent to the client after every position change.
type slideFrame struct {
	Session string          `json:"session"`
	Index   int             `json:"index"`
	Total   int             `json:"total"`
	Running bool            `json:"running"`
	Image   *plantdoc.Image `json:"image,omitempty"`
}

// slideAction is a control message from the client: next, prev, play or pause.
type slideAction struct {
	Action string `json:"action"`
}

// handleSlideshow drives a gallery slideshow over a websocket. The images
// are selected with the gallery query parameters; start picks the first
// image, interval sets the auto-advance seconds and autoplay=0 starts paused.
func (h *handlers) handleSlideshow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	images := h.engine.GalleryImages(galleryFilter(q))

	interval := slideshowInterval(parseIntParam(r, "interval", 0), h.engine.SlideshowInterval())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	logger := h.logger.With("session", session, "images", len(images))
	logger.Info("slideshow connected")
	defer logger.Info("slideshow disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	show := gallery.NewSlideshow(len(images), parseIntParam(r, "start", 0), interval)
	defer show.Stop()

	actions := make(chan string)
	go func() {
		defer cancel()
		conn.SetReadLimit(slideshowReadLimit)
		conn.SetReadDeadline(time.Now().Add(slideshowPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(slideshowPongWait))
		})
		for {
			var msg slideAction
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(slideshowPongWait))
			select {
			case actions <- msg.Action:
			case <-ctx.Done():
				return
			}
		}
	}()

	send := func(index int) bool {
		frame := slideFrame{Session: session, Index: index, Total: len(images), Running: show.Running()}
		if len(images) > 0 {
			frame.Image = &images[index]
		}
		conn.SetWriteDeadline(time.Now().Add(slideshowWriteWait))
		if err := conn.WriteJSON(frame); err != nil {
			logger.Debug("slideshow write failed", "error", err)
			return false
		}
		return true
	}

	var ticks <-chan int
	if q.Get("autoplay") != "0" {
		ticks = show.Start(ctx)
	}
	if !send(show.Current()) {
		return
	}

	ping := time.NewTicker(slideshowPongWait * 9 / 10)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case idx, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			if !send(idx) {
				return
			}
		case action := <-actions:
			var idx int
			switch action {
			case "next":
				idx = show.Next()
			case "prev":
				idx = show.Prev()
			case "play":
				ticks = show.Start(ctx)
				idx = show.Current()
			case "pause":
				show.Stop()
				ticks = nil
				idx = show.Current()
			default:
				logger.Debug("unknown slideshow action", "action", action)
				continue
			}
			if !send(idx) {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(slideshowWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// slideshowInterval converts the interval query parameter to a duration,
// clamped to 1-60 seconds. Zero or negative keeps the configured default.
func slideshowInterval(secs int, def time.Duration) time.Duration {
	if secs <= 0 {
		return def
	}
	secs = min(max(secs, minSlideshowSeconds), maxSlideshowSeconds)
	return time.Duration(secs) * time.Second
}
