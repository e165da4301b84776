package web

const (
	PATH_PAGE         = "/"
	PATH_WEBSOCKET    = "/ws"
	PATH_HEALTH       = "/healthz"
	PATH_ROSTER       = "/api/roster"
	PATH_PARTICIPANTS = "/api/participants"
	PATH_PARTICIPANT  = "/api/participants/*name"
	PATH_DRAW         = "/api/draw"
	PATH_RESET        = "/api/reset"
)

// action types, shared by the websocket and the JSON API
const (
	ACTION_ADD    = "add"
	ACTION_REMOVE = "remove"
	ACTION_RESET  = "reset"
	ACTION_DRAW   = "draw"
	ACTION_STATE  = "state"
)
