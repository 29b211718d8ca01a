package ws

import (
	"net/http"

	"ppchat/data/blobstore"
	"ppchat/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the HTTP request to a WebSocket and runs the Session's
// read loop for the lifetime of the connection (spec §4.5: "for each
// accepted connection creates a Session").
func (s *Server) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("ws: upgrade failed: %v", err)
		return
	}

	sess := newSession(conn, s)
	sess.run()
}

// Mount registers the WebSocket endpoint and, when MediaTokenOpts carries a
// signing secret, the token-gated media-fetch endpoint a MemStore URL
// points back at. The server listens on all interfaces, configurable port
// (default 12345, spec §4.5); ListenAddr is supplied by the caller via
// config.
func (s *Server) Mount(r gin.IRoutes) {
	r.GET("/ws", s.HandleWS)
	if len(s.MediaTokenOpts.Secret) > 0 {
		r.GET("/media", s.HandleMediaFetch)
	}
}

// HandleMediaFetch serves a blob by the signed token a MemStore-returned
// URL embeds, the in-process stand-in for S3's presigned GET.
func (s *Server) HandleMediaFetch(c *gin.Context) {
	key, err := blobstore.VerifyMediaToken(s.MediaTokenOpts, c.Query("token"))
	if err != nil {
		c.Status(http.StatusForbidden)
		return
	}
	data, err := s.Blobs.Get(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}
