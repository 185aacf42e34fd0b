package handlers

import (
	"net/http"

	"github.com/docpanel/docflow/internal/adapter"
	"github.com/docpanel/docflow/internal/adapter/utils"
	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/events"
	"nhooyr.io/websocket"
)

// StreamEventsHandler godoc
// @Summary      Subscribe to processing events over SSE
// @Description  Holds the response open as text/event-stream. Every processing update, heartbeat and deletion notice is pushed as it happens. Missed events are not replayed on reconnect.
// @Tags         Events
// @Produce      text/event-stream
// @Success      200  {string}  string  "event stream"
// @Router       /api/v1/events/stream [get]
func StreamEventsHandler(w http.ResponseWriter, r *http.Request) {
	sink := events.NewSSESink(w)
	if sink == nil {
		logRH.Error("Streaming unsupported by transport", "remoteAddr", r.RemoteAddr)
		WriteErrorResponse(w, http.StatusInternalServerError, "Streaming unsupported", "response writer cannot flush")
		return
	}

	connectionId := utils.GetNewUUID()
	handlerInstance.hub.Register(connectionId, sink)

	//block until the client disconnects or the hub closes us
	sink.Wait(r.Context())
	handlerInstance.hub.Deregister(connectionId)
}

// EventsWebsocketHandler godoc
// @Summary      Subscribe to processing events over websocket
// @Description  Same event feed as the SSE stream, framed as JSON text messages. Inbound messages are discarded.
// @Tags         Events
// @Success      101  {string}  string  "switching protocols"
// @Router       /api/v1/events/ws [get]
func EventsWebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logRH.Error("Websocket upgrade failed", "remoteAddr", r.RemoteAddr, "error", err)
		return
	}

	connectionId := utils.GetNewUUID()
	sink := events.NewWSSink(conn, config.WSWriteTimeout)
	handlerInstance.hub.Register(connectionId, sink)

	//CloseRead discards client messages and cancels the context on disconnect
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
	handlerInstance.hub.Deregister(connectionId)
}

// ListConnectionsHandler godoc
// @Summary      List live event connections
// @Tags         Events
// @Produce      json
// @Success      200  {object}  api.Envelope
// @Router       /api/v1/events/connections [get]
func ListConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.Success("Active connections", map[string]any{
		"count":   handlerInstance.hub.Size(),
		"clients": handlerInstance.hub.ListIds(),
	}))
}
