package daemon

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gocv.io/x/gocv"

	"urchin/internal/api"
	"urchin/internal/classes"
	"urchin/internal/detector"
	"urchin/internal/fileutil"
	"urchin/internal/storagename"
	"urchin/internal/tasks"
)

func (d *Daemon) handleExtractFrames(c *gin.Context) {
	header, err := c.FormFile("video")
	if err != nil {
		writeError(c, api.E(api.KindInvalidInput, "video file required"))
		return
	}
	if !storagename.IsVideo(header.Filename) {
		writeError(c, api.E(api.KindInvalidInput, "unsupported video type %q", filepath.Ext(header.Filename)))
		return
	}

	now := time.Now()
	name, err := storagename.ForUpload(header.Filename, now, storagename.VideoExtensions)
	if err != nil {
		writeError(c, api.Wrap(api.KindInvalidInput, err, "invalid filename"))
		return
	}

	uploadDir := filepath.Join(d.cfg.ExtractionsDir(), "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		writeError(c, api.Wrap(api.KindIOError, err, "create upload directory"))
		return
	}
	videoPath := filepath.Join(uploadDir, name)

	file, err := header.Open()
	if err != nil {
		writeError(c, api.Wrap(api.KindIOError, err, "read upload"))
		return
	}
	_, err = fileutil.WriteStreamAtomic(videoPath, file, 0o644)
	file.Close()
	if err != nil {
		writeError(c, api.Wrap(api.KindIOError, err, "store video"))
		return
	}

	outDir := filepath.Join(d.cfg.ExtractionsDir(), storagename.Stem(name))
	maxImages := 0
	if raw := c.PostForm("max_images"); raw != "" {
		fmt.Sscanf(raw, "%d", &maxImages)
	}

	id, err := d.worker.Enqueue(tasks.TypeExtractFrames, map[string]any{
		"video_path": videoPath,
		"out_dir":    outDir,
		"max_images": maxImages,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": id, "out_dir": outDir})
}

func (d *Daemon) handleSnapshot(c *gin.Context) {
	encoded, err := d.bridge.GetJPEG()
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", encoded)
}

const streamBoundary = "urchinframe"

// handleStream serves an MJPEG multipart stream of the latest frames.
func (d *Daemon) handleStream(c *gin.Context) {
	if active, _ := d.bridge.Active(); !active {
		writeError(c, api.E(api.KindCameraUnavailable, "no camera active"))
		return
	}

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	ticker := time.NewTicker(66 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}

		encoded, err := d.bridge.GetJPEG()
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(c.Writer, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(encoded)); err != nil {
			return
		}
		if _, err := c.Writer.Write(encoded); err != nil {
			return
		}
		if _, err := fmt.Fprint(c.Writer, "\r\n"); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

func (d *Daemon) handleSwitchCamera(c *gin.Context) {
	var req struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Index < 0 {
		writeError(c, api.E(api.KindInvalidInput, "camera index required"))
		return
	}

	params := d.cfg.Camera
	params.Index = req.Index
	if err := d.bridge.Switch(params); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": req.Index})
}

func (d *Daemon) handleClassify(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		writeError(c, api.E(api.KindInvalidInput, "image file required"))
		return
	}
	if !storagename.IsImage(header.Filename) {
		writeError(c, api.E(api.KindInvalidInput, "unsupported image type %q", filepath.Ext(header.Filename)))
		return
	}
	confidence := parseConfidence(c.PostForm("confidence"))

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("urchin_classify_%d%s", time.Now().UnixNano(), filepath.Ext(header.Filename)))
	if err := c.SaveUploadedFile(header, tmp); err != nil {
		writeError(c, api.Wrap(api.KindIOError, err, "store upload"))
		return
	}
	defer os.Remove(tmp)

	verdict, err := d.engine.ClassifyFile(c.Request.Context(), tmp, confidence)
	if err != nil {
		writeError(c, err)
		return
	}

	if strings.EqualFold(c.PostForm("annotated"), "true") {
		frame := gocv.IMRead(tmp, gocv.IMReadColor)
		if frame.Empty() {
			writeError(c, api.E(api.KindInvalidInput, "cannot decode image %q", header.Filename))
			return
		}
		defer frame.Close()
		d.writeAnnotatedFrame(c, &frame, verdict)
		return
	}
	c.JSON(http.StatusOK, verdictView(verdict))
}

// handleClassifyFrame classifies the latest camera frame. With
// annotated=true the response is the frame itself with boxes drawn.
func (d *Daemon) handleClassifyFrame(c *gin.Context) {
	frame, err := d.bridge.GetFrame()
	if err != nil {
		writeError(c, err)
		return
	}
	defer frame.Close()

	confidence := parseConfidence(c.Query("confidence"))
	verdict, err := d.engine.Classify(c.Request.Context(), frame, confidence)
	if err != nil {
		writeError(c, err)
		return
	}

	if strings.EqualFold(c.Query("annotated"), "true") {
		d.writeAnnotatedFrame(c, &frame, verdict)
		return
	}
	c.JSON(http.StatusOK, verdictView(verdict))
}

// writeAnnotatedFrame draws the verdict onto frame and serves it as JPEG.
// The verdict summary rides along in headers so callers keep the numbers
// without a second request.
func (d *Daemon) writeAnnotatedFrame(c *gin.Context, frame *gocv.Mat, verdict detector.Verdict) {
	detector.Draw(frame, verdict.Detections, 0)

	encoded, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		writeError(c, api.Wrap(api.KindIOError, err, "encode annotated frame"))
		return
	}
	defer encoded.Close()

	c.Header("X-Urchin-Gender", verdict.Gender)
	c.Header("X-Urchin-Confidence", fmt.Sprintf("%.3f", verdict.Confidence))
	c.Data(http.StatusOK, "image/jpeg", append([]byte(nil), encoded.GetBytes()...))
}

func verdictView(verdict detector.Verdict) api.VerdictView {
	view := api.VerdictView{
		Gender:     verdict.Gender,
		Confidence: verdict.Confidence,
		Counts:     verdict.Counts,
		Message:    verdict.Message,
	}
	for _, det := range verdict.Detections {
		view.Detections = append(view.Detections, api.DetectionView{
			Box:        det.Box,
			Confidence: det.Confidence,
			ClassID:    det.ClassID,
			ClassName:  classes.Name(det.ClassID),
		})
	}
	return view
}
