// Package server exposes single-image compression over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"squish/internal/codec"
	"squish/internal/processor"
	"squish/pkg/imgutil"
)

const defaultMaxUpload = 64 << 20

type Config struct {
	// DefaultFormat applies when a request has no "format" field.
	DefaultFormat     codec.Format
	MaxSearchAttempts int
	// MaxUploadBytes caps the accepted file size; 64MB when zero.
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

type handler struct {
	cfg Config
}

// New builds the router: POST /v1/compress and GET /healthz.
func New(cfg Config) *gin.Engine {
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = codec.WEBP
	}
	if cfg.MaxSearchAttempts == 0 {
		cfg.MaxSearchAttempts = processor.DefaultMaxSearchAttempts
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}

	router := gin.New()
	router.Use(requestLogger(cfg.Logger))
	router.Use(gin.CustomRecovery(handlePanics(cfg.Logger)))

	h := &handler{cfg: cfg}
	router.GET("/healthz", h.health)
	v1 := router.Group("/v1")
	{
		v1.POST("/compress", h.compress)
	}
	return router
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func abortError(c *gin.Context, status int, kind string, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}

func (h *handler) compress(c *gin.Context) {
	target, err := imgutil.ParseSize(c.PostForm("target"))
	if err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("target: %w", err))
		return
	}

	format := h.cfg.DefaultFormat
	if raw := c.PostForm("format"); raw != "" {
		if format, err = codec.ParseFormat(raw); err != nil {
			abortError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	header, err := c.FormFile("file")
	if err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("file: %w", err))
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		abortError(c, http.StatusRequestEntityTooLarge, "bad_request", fmt.Errorf("file is larger than %s", imgutil.HumanBytes(h.cfg.MaxUploadBytes)))
		return
	}
	f, err := header.Open()
	if err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	spec := processor.TargetSpec{
		TargetBytes:       target,
		OutputFormat:      format,
		Naming:            processor.NamingFolder,
		MaxSearchAttempts: h.cfg.MaxSearchAttempts,
	}
	opts := processor.DefaultOptions(spec, "")
	opts.Logger = &h.cfg.Logger

	result, err := processor.CompressBytes(data, opts)
	if err != nil {
		status := statusFor(err)
		abortError(c, status, processor.KindOf(err), err)
		return
	}

	c.Header("X-Squish-Status", result.Status.String())
	c.Header("X-Squish-Attempts", strconv.Itoa(result.Attempts))
	c.Header("X-Squish-Target-Met", strconv.FormatBool(result.TargetMet))
	if result.HasParam {
		c.Header("X-Squish-Param", strconv.Itoa(result.Param))
	}
	if result.Method >= 0 {
		c.Header("X-Squish-Method", strconv.Itoa(result.Method))
	}
	if name := downloadName(header.Filename, result.Extension); name != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	c.Data(http.StatusOK, result.Format.MIMEType(), result.Data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, processor.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, processor.ErrDecode), errors.Is(err, processor.ErrUncontrollableFormat):
		return http.StatusUnprocessableEntity
	case processor.KindOf(err) == "":
		// Target validation errors carry no job kind.
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func downloadName(uploaded, ext string) string {
	base := filepath.Base(uploaded)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if ext == "" {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
