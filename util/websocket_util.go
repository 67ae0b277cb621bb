package util

import (
	"context"
	"time"

	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = time.Second

func HandleWebsocketConnClosure(conn *websocket.Conn, message string) error {

	err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, message), time.Now().Add(writeWait))

	return err
}

/*
StartStreamingEvents writes every event as a JSON text frame until the events channel closes,
ctx ends or the client goes away. Frames sent by the client are read and discarded so close frames are noticed.
*/
func StartStreamingEvents(ctx context.Context, conn *websocket.Conn, events <-chan types.StatusEvent, logger *zap.SugaredLogger) {

	clientGone := make(chan struct{})

	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {

				if closeError, ok := err.(*websocket.CloseError); ok {
					logger.Debugf("received conn closure from status client with code: %d message : %s", closeError.Code, closeError.Text)
				}
				return
			}
		}
	}()

	for {
		select {

		case <-ctx.Done():
			HandleWebsocketConnClosure(conn, "server shutting down")
			return

		case <-clientGone:
			return

		case ev, ok := <-events:
			if !ok {
				HandleWebsocketConnClosure(conn, "status stream closed")
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debugf("error while writing status event to websocket connection: %s", err.Error())
				return
			}
		}
	}
}
