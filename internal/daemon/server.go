package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"urchin/internal/api"
	"urchin/internal/logging"
)

// Server exposes the daemon over HTTP.
type Server struct {
	daemon *Daemon
	logger *slog.Logger
	http   *http.Server
}

// NewServer constructs the HTTP server for the daemon.
func NewServer(d *Daemon) *Server {
	return &Server{
		daemon: d,
		logger: logging.NewComponentLogger(d.logger, "http"),
		http: &http.Server{
			Addr:              d.cfg.Paths.APIBind,
			Handler:           NewRouter(d),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api listening", logging.String("bind", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server failed", logging.Error(err))
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// NewRouter builds the gin engine with all routes registered. Exposed
// separately so tests can drive it with httptest.
func NewRouter(d *Daemon) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	r := router.Group("/api")
	{
		r.GET("/status", d.handleStatus)

		r.GET("/tasks", d.handleListTasks)
		r.GET("/tasks/:id", d.handleGetTask)
		r.POST("/tasks/:id/cancel", d.handleCancelTask)

		r.GET("/folders", d.handleListFolders)
		r.POST("/folders", d.handleCreateFolder)
		r.POST("/folders/:folder/rename", d.handleRenameFolder)
		r.DELETE("/folders/:folder", d.handleDeleteFolder)

		r.GET("/folders/:folder/images", d.handleListImages)
		r.POST("/folders/:folder/images", d.handleUploadImages)
		r.POST("/folders/:folder/images/delete", d.handleDeleteImages)
		r.POST("/folders/:folder/images/move", d.handleMoveImages)
		r.GET("/folders/:folder/images/:id/label", d.handleGetLabel)
		r.PUT("/folders/:folder/images/:id/label", d.handleSaveLabel)
		r.GET("/folders/:folder/images/:id/thumbnail", d.handleThumbnail)

		r.POST("/dataset/build", d.handleBuildDataset)

		r.POST("/training/start", d.handleStartTraining)
		r.POST("/training/stop", d.handleStopTraining)
		r.GET("/training/status", d.handleTrainingStatus)

		r.POST("/extract", d.handleExtractFrames)

		r.GET("/camera/snapshot", d.handleSnapshot)
		r.GET("/camera/stream", d.handleStream)
		r.GET("/camera/classify", d.handleClassifyFrame)
		r.POST("/camera/switch", d.handleSwitchCamera)

		r.POST("/classify", d.handleClassify)
	}
	return router
}

// writeError maps a kinded error onto the wire.
func writeError(c *gin.Context, err error) {
	kind := api.KindOf(err)
	c.JSON(api.HTTPStatus(kind), api.ErrorResponse{Error: err.Error(), Kind: kind})
}
