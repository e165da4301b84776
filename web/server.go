package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thewug/cakeraffle/auth"
	"github.com/thewug/cakeraffle/roster"
)

const RAFFLE_ID_KEY = "raffle_id"

type Server struct {
	Hubs   *Hubs
	Keeper *auth.Keeper

	upgrader websocket.Upgrader
	log      *slog.Logger
	engine   *gin.Engine
}

type addRequest struct {
	Name string `json:"name"`
}

type actionRequest struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

func NewServer(hubs *Hubs, keeper *auth.Keeper, log *slog.Logger) *Server {
	s := &Server{
		Hubs:   hubs,
		Keeper: keeper,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests)

	r.GET(PATH_HEALTH, s.health)

	raffle := r.Group("/", s.session)
	raffle.GET(PATH_PAGE, s.page)
	raffle.GET(PATH_WEBSOCKET, s.serveWebsocket)
	raffle.GET(PATH_ROSTER, s.serveRoster)
	raffle.POST(PATH_PARTICIPANTS, s.add)
	raffle.DELETE(PATH_PARTICIPANT, s.remove)
	raffle.POST(PATH_DRAW, s.action(ACTION_DRAW))
	raffle.POST(PATH_RESET, s.action(ACTION_RESET))

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed", time.Since(start))
}

// session makes sure every browser carries a sealed cookie naming its raffle.
func (s *Server) session(c *gin.Context) {
	session, fresh := s.Keeper.Ensure(c.Request)
	if fresh {
		s.log.Info("new raffle session", "raffle", session.RaffleId)
	}

	err := s.Keeper.Put(c.Writer, session)
	if err != nil {
		s.log.Error("seal session", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "could not start a session"})
		return
	}
	c.Set(RAFFLE_ID_KEY, session.RaffleId)
	c.Next()
}

func (s *Server) hub(c *gin.Context) (*RaffleHub, bool) {
	h, err := s.Hubs.Get(c.Request.Context(), c.GetString(RAFFLE_ID_KEY))
	if err != nil {
		s.log.Error("open raffle", "raffle", c.GetString(RAFFLE_ID_KEY), "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "raffle is unavailable"})
		return nil, false
	}
	return h, true
}

// do runs an action on the session's raffle, retrying once if the hub was
// swept between lookup and use.
func (s *Server) do(c *gin.Context, req actionRequest) (Outcome, bool) {
	j, err := json.Marshal(req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return Outcome{}, false
	}

	for attempt := 0; attempt < 2; attempt++ {
		h, ok := s.hub(c)
		if !ok {
			return Outcome{}, false
		}
		o, err := h.Do(c.Request.Context(), j)
		if errors.Is(err, ErrHubClosed) {
			continue
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
			return Outcome{}, false
		}
		return o, true
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": ErrHubClosed.Error()})
	return Outcome{}, false
}

func (s *Server) respond(c *gin.Context, o Outcome) {
	c.JSON(statusFor(o.Err), o)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, roster.ErrEmptyName), errors.Is(err, roster.ErrTooLong), errors.Is(err, ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, roster.ErrDuplicate), errors.Is(err, ErrDrawUnderway):
		return http.StatusConflict
	case errors.Is(err, roster.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrEmptyRoster):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) page(c *gin.Context) {
	o, ok := s.do(c, actionRequest{Type: ACTION_STATE})
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := Render(&buf, ViewOf(o.State))
	if err != nil {
		s.log.Error("render page", "err", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) serveWebsocket(c *gin.Context) {
	h, ok := s.hub(c)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered
		s.log.Debug("websocket upgrade", "err", err)
		return
	}
	NewClient(h, conn).Serve()
}

func (s *Server) serveRoster(c *gin.Context) {
	o, ok := s.do(c, actionRequest{Type: ACTION_STATE})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o.State)
}

func (s *Server) add(c *gin.Context) {
	var req addRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "expected {\"name\": ...}"})
		return
	}

	o, ok := s.do(c, actionRequest{Type: ACTION_ADD, Name: req.Name})
	if ok {
		s.respond(c, o)
	}
}

func (s *Server) remove(c *gin.Context) {
	// catch-all, so names holding a slash still route; gin keeps the leading one
	name := strings.TrimPrefix(c.Param("name"), "/")
	o, ok := s.do(c, actionRequest{Type: ACTION_REMOVE, Name: name})
	if ok {
		s.respond(c, o)
	}
}

func (s *Server) action(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, ok := s.do(c, actionRequest{Type: action})
		if ok {
			s.respond(c, o)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"raffles": s.Hubs.Registry.Len(),
		"hubs":    s.Hubs.Len(),
	})
}
