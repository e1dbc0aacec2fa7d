package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"urchin/internal/api"
	"urchin/internal/tasks"
)

func (d *Daemon) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, d.Status())
}

func taskView(rec tasks.Record) api.TaskView {
	return api.TaskView{
		ID:         rec.ID,
		Type:       string(rec.Type),
		Status:     string(rec.Status),
		Progress:   rec.Progress,
		Message:    rec.Message,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Result:     rec.Result,
	}
}

func (d *Daemon) handleListTasks(c *gin.Context) {
	records := d.registry.List()
	if strings.EqualFold(c.Query("history"), "true") && d.journal != nil {
		seen := make(map[string]struct{}, len(records))
		for _, rec := range records {
			seen[rec.ID] = struct{}{}
		}
		past, err := d.journal.History(c.Request.Context(), 100)
		if err != nil {
			writeError(c, api.Wrap(api.KindIOError, err, "read task journal"))
			return
		}
		for _, rec := range past {
			if _, ok := seen[rec.ID]; !ok {
				records = append(records, rec)
			}
		}
	}
	views := make([]api.TaskView, 0, len(records))
	for _, rec := range records {
		views = append(views, taskView(rec))
	}
	c.JSON(http.StatusOK, views)
}

func (d *Daemon) handleGetTask(c *gin.Context) {
	rec, ok := d.registry.Get(c.Param("id"))
	if !ok {
		writeError(c, api.E(api.KindNotFound, "unknown task %q", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, taskView(rec))
}

func (d *Daemon) handleCancelTask(c *gin.Context) {
	if err := d.registry.Cancel(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": c.Param("id")})
}

func (d *Daemon) handleListFolders(c *gin.Context) {
	infos, err := d.repo.Folders()
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]api.FolderView, 0, len(infos))
	for _, info := range infos {
		views = append(views, api.FolderView{
			Name:       info.Name,
			ImageCount: info.ImageCount,
			Annotated:  info.Annotated,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (d *Daemon) handleCreateFolder(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, api.E(api.KindInvalidInput, "invalid request body"))
		return
	}
	if err := d.repo.CreateFolder(req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

func (d *Daemon) handleRenameFolder(c *gin.Context) {
	var req struct {
		NewName string `json:"new_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, api.E(api.KindInvalidInput, "invalid request body"))
		return
	}
	if err := d.repo.RenameFolder(c.Param("folder"), req.NewName); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.NewName})
}

func (d *Daemon) handleDeleteFolder(c *gin.Context) {
	force := strings.EqualFold(c.Query("force"), "true")
	if err := d.repo.DeleteFolder(c.Param("folder"), force); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (d *Daemon) handleListImages(c *gin.Context) {
	folder := c.Param("folder")
	infos, err := d.repo.List(folder)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]api.ImageView, 0, len(infos))
	for _, info := range infos {
		views = append(views, api.ImageView{
			ID:              info.ID,
			OriginalName:    info.Record.OriginalName,
			UploadTime:      info.Record.UploadTime,
			AnnotationCount: info.Record.AnnotationCount,
			Annotated:       info.Record.Annotated(),
			Classes:         info.Record.Classes,
			ThumbnailURL:    "/api/folders/" + folder + "/images/" + info.ID + "/thumbnail",
		})
	}
	c.JSON(http.StatusOK, views)
}

func (d *Daemon) handleUploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		writeError(c, api.E(api.KindInvalidInput, "multipart form required"))
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["image"]
	}
	if len(files) == 0 {
		writeError(c, api.E(api.KindInvalidInput, "no image files in request"))
		return
	}

	folder := c.Param("folder")
	stored := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			writeError(c, api.Wrap(api.KindIOError, err, "read upload"))
			return
		}
		id, _, err := d.repo.AddImage(folder, header.Filename, file)
		file.Close()
		if err != nil {
			writeError(c, err)
			return
		}
		stored = append(stored, id)
	}
	c.JSON(http.StatusCreated, gin.H{"stored": stored})
}

func (d *Daemon) handleDeleteImages(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		writeError(c, api.E(api.KindInvalidInput, "ids list required"))
		return
	}
	result, err := d.repo.DeleteImages(c.Param("folder"), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MoveResult{Done: result.Done, Errors: result.Errors})
}

func (d *Daemon) handleMoveImages(c *gin.Context) {
	var req struct {
		Target string   `json:"target"`
		IDs    []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		writeError(c, api.E(api.KindInvalidInput, "target and ids required"))
		return
	}
	result, err := d.repo.MoveImages(c.Param("folder"), req.Target, req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MoveResult{Done: result.Done, Errors: result.Errors})
}

func (d *Daemon) handleGetLabel(c *gin.Context) {
	text, err := d.repo.Label(c.Param("folder"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"label": text})
}

func (d *Daemon) handleSaveLabel(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, api.E(api.KindInvalidInput, "invalid request body"))
		return
	}
	count, err := d.repo.SaveLabel(c.Param("folder"), c.Param("id"), req.Label)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"annotation_count": count})
}

func (d *Daemon) handleThumbnail(c *gin.Context) {
	path, err := d.repo.Thumbnail(c.Param("folder"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.File(path)
}

func (d *Daemon) handleBuildDataset(c *gin.Context) {
	var req struct {
		Folders    []string `json:"folders"`
		TrainRatio float64  `json:"train_ratio"`
		Async      bool     `json:"async"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, api.E(api.KindInvalidInput, "invalid request body"))
		return
	}
	if req.TrainRatio == 0 {
		req.TrainRatio = d.cfg.Dataset.TrainRatio
	}

	if req.Async {
		id, err := d.worker.Enqueue(tasks.TypeBuildDataset, map[string]any{
			"folders":     req.Folders,
			"train_ratio": req.TrainRatio,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"task_id": id})
		return
	}

	summary, err := d.builder.Build(c.Request.Context(), req.Folders, req.TrainRatio)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.BuildResult{
		TrainCount:     summary.TrainCount,
		ValCount:       summary.ValCount,
		Total:          summary.Total,
		DescriptorPath: summary.DescriptorPath,
		Warnings:       summary.Warnings,
	})
}

func (d *Daemon) handleStartTraining(c *gin.Context) {
	payload := map[string]any{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			writeError(c, api.E(api.KindInvalidInput, "invalid request body"))
			return
		}
	}
	if d.orchestrator.Running() {
		writeError(c, api.E(api.KindConflict, "a training run is already in progress"))
		return
	}

	id, err := d.worker.Enqueue(tasks.TypeTrainDetector, payload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": id})
}

func (d *Daemon) handleStopTraining(c *gin.Context) {
	if err := d.orchestrator.Stop(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopping": true})
}

func (d *Daemon) handleTrainingStatus(c *gin.Context) {
	status := d.orchestrator.Status()
	view := api.TrainingStatusView{
		Running:        status.Running,
		StartedAt:      status.StartedAt,
		ElapsedSeconds: status.Elapsed.Seconds(),
		CurrentEpoch:   status.CurrentEpoch,
		TotalEpochs:    status.TotalEpochs,
		Progress:       status.Progress,
		Metrics:        status.Metrics,
		Artifacts:      status.Artifacts,
		LogPath:        status.LogPath,
	}
	c.JSON(http.StatusOK, view)
}

func parseConfidence(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value < 0 || value > 1 {
		return 0
	}
	return value
}
