package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the authenticated session API on api.
func RegisterRoutes(api gin.IRoutes, session *SessionHandler, images *ImagesHandler, generate *GenerateHandler, history *HistoryHandler) {
	api.GET("/session", session.Get)
	api.DELETE("/session", session.Clear)
	api.POST("/session/reset", session.Reset)
	api.POST("/session/new", session.StartNew)
	api.PUT("/session/viewer", session.Viewer)

	api.POST("/session/images", images.Select)
	api.DELETE("/session/images/:index", images.Remove)

	api.POST("/session/generate", generate.Generate)

	api.GET("/jobs", history.List)
}
