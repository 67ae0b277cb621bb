package controller

import (
	"net/http"

	"github.com/Adarsh-Kmt/FairGroupMutex/types"
	"github.com/Adarsh-Kmt/FairGroupMutex/util"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StatusSource is anything that can hand out a status snapshot, usually the fair group mutex.
type StatusSource interface {
	Status() types.Status
}

// EventSource hands out live status event subscriptions, usually the status hub.
type EventSource interface {
	Subscribe() (int, <-chan types.StatusEvent)
	Unsubscribe(id int)
}

/*
StatusController exposes the read-only status API:

	GET /healthCheck  liveness probe
	GET /status       current counters and turn as JSON
	GET /events       websocket stream of ENTERED/EXITED events

When JWTSecret is set, /status and /events need a bearer token signed with it.
*/
type StatusController struct {
	RunId     string
	JWTSecret string

	Source StatusSource
	Events EventSource

	Logger *zap.SugaredLogger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (sc *StatusController) InitializeEndPoints(router *mux.Router) *mux.Router {

	if sc.Logger == nil {
		sc.Logger = zap.NewNop().Sugar()
	}

	router.Use(sc.LoggingMiddleware)

	router.HandleFunc("/healthCheck", util.MakeHttpHandlerFunc(sc.HealthCheck)).Methods(http.MethodGet)
	router.HandleFunc("/status", util.MakeJWTAuthHttpHandlerFunc(sc.JWTSecret, util.MakeHttpHandlerFunc(sc.GetStatus))).Methods(http.MethodGet)
	router.HandleFunc("/events", util.MakeJWTAuthHttpHandlerFunc(sc.JWTSecret, util.MakeHttpHandlerFunc(sc.StreamEvents))).Methods(http.MethodGet)

	return router
}

func (sc *StatusController) LoggingMiddleware(handler http.Handler) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		sc.Logger.Debugf("received %s request, path %s", r.Method, r.URL.Path)
		handler.ServeHTTP(w, r)
		sc.Logger.Debugf("responded to request")
	})
}

func (sc *StatusController) HealthCheck(w http.ResponseWriter, r *http.Request) *util.HTTPError {

	if err := util.WriteJSON(w, http.StatusOK, types.HealthCheckResponse{Status: http.StatusOK, RunId: sc.RunId}); err != nil {
		sc.Logger.Debugf("error while writing health check response: %s", err.Error())
	}
	return nil
}

func (sc *StatusController) GetStatus(w http.ResponseWriter, r *http.Request) *util.HTTPError {

	if err := util.WriteJSON(w, http.StatusOK, sc.Source.Status()); err != nil {
		sc.Logger.Debugf("error while writing status response: %s", err.Error())
	}
	return nil
}

// StreamEvents upgrades the connection and relays status events until either side goes away.
func (sc *StatusController) StreamEvents(w http.ResponseWriter, r *http.Request) *util.HTTPError {

	// subscribe before the upgrade, so nothing that happens after the handshake is missed.
	id, events := sc.Events.Subscribe()
	defer sc.Events.Unsubscribe(id)

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		// the upgrader already wrote an error response.
		sc.Logger.Debugf("error while upgrading status websocket connection: %s ", err.Error())
		return nil
	}
	defer conn.Close()

	sc.Logger.Infof("status subscriber %d (%s) connected from %s", id, sc.viewer(r), r.RemoteAddr)

	util.StartStreamingEvents(r.Context(), conn, events, sc.Logger)

	sc.Logger.Debugf("status subscriber %d disconnected", id)
	return nil
}

// viewer names the holder of the request's token, the route middleware has already checked it.
func (sc *StatusController) viewer(r *http.Request) string {

	if sc.JWTSecret == "" {
		return "anonymous"
	}

	subject, err := util.GetSubjectFromJwtToken(sc.JWTSecret, util.BearerToken(r))
	if err != nil {
		return "unknown"
	}
	return subject
}
