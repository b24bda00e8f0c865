// internal/server/handlers.go
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listUsers(c *gin.Context) {
	ids := s.users.IDs()
	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{"userIds": ids})
}

func (s *Server) predict(c *gin.Context) {
	result, err := s.predictor.Predict(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.errors.HandleRequestError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"usersLoaded": s.users.Len() > 0,
	})
}
