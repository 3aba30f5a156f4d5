package httpserver

import (
	"net/http"

	"github.com/centrifugal/centrifuge"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerWebsocketRoutes() {
	if s.websocketHandler == nil {
		return
	}
	s.echo.GET("/connection/websocket", echo.WrapHandler(websocketCredentials(s.websocketHandler)))
}

// websocketCredentials passes the gateway identity to Centrifuge. Connections without one stay anonymous.
func websocketCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := r.Header.Get(VoterHeader); userID != "" {
			cred := &centrifuge.Credentials{UserID: userID}
			r = r.WithContext(centrifuge.SetCredentials(r.Context(), cred))
		}
		next.ServeHTTP(w, r)
	})
}
