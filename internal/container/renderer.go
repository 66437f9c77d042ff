// Package container renders notes to PDF inside short-lived headless
// Chromium containers.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	workDir     = "/tmp"
	htmlName    = "note.html"
	pdfName     = "note.pdf"
	removeGrace = 10 * time.Second

	cpuQuota  = 100000 // 1 CPU
	pidsLimit = 256
)

var errRenderFailed = errors.New("pdf render container failed")

// dockerAPI is the part of the Docker client the renderer uses.
type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

// Config holds renderer settings.
type Config struct {
	Image       string
	Binary      string
	MemoryLimit string // human readable, e.g. "512m"
	Runtime     string // "" = default (runc), "runsc" = gVisor
}

// PDFRenderer prints HTML to PDF with headless Chromium in a throwaway
// container that has no network access.
type PDFRenderer struct {
	api     dockerAPI
	cfg     Config
	memory  int64
	closeFn func() error
}

// NewPDFRenderer connects to the Docker daemon from the environment.
func NewPDFRenderer(cfg Config) (*PDFRenderer, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	r, err := newPDFRenderer(cli, cfg)
	if err != nil {
		_ = cli.Close()
		return nil, err
	}
	r.closeFn = cli.Close
	if cfg.Runtime != "" {
		slog.Info("Docker client initialized", "runtime", cfg.Runtime)
	} else {
		slog.Info("Docker client initialized", "runtime", "default")
	}
	return r, nil
}

func newPDFRenderer(api dockerAPI, cfg Config) (*PDFRenderer, error) {
	if cfg.Image == "" {
		return nil, errors.New("render image is required")
	}
	if cfg.Binary == "" {
		cfg.Binary = "chromium-browser"
	}
	var memory int64
	if cfg.MemoryLimit != "" {
		m, err := units.RAMInBytes(cfg.MemoryLimit)
		if err != nil {
			return nil, fmt.Errorf("parse render memory limit %q: %w", cfg.MemoryLimit, err)
		}
		memory = m
	}
	return &PDFRenderer{api: api, cfg: cfg, memory: memory}, nil
}

// Close releases the Docker client.
func (r *PDFRenderer) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

// RenderPDF implements the interview renderer.
func (r *PDFRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	start := time.Now()

	id, err := r.create(ctx)
	if err != nil {
		return nil, err
	}
	defer r.remove(id)

	archive, err := tarFile(htmlName, []byte(html))
	if err != nil {
		return nil, err
	}
	if err := r.api.CopyToContainer(ctx, id, workDir, archive, container.CopyToContainerOptions{}); err != nil {
		return nil, fmt.Errorf("copy html into container %s: %w", id, err)
	}

	if err := r.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("start container %s: %w", id, err)
	}
	if err := r.wait(ctx, id); err != nil {
		return nil, err
	}

	rc, _, err := r.api.CopyFromContainer(ctx, id, workDir+"/"+pdfName)
	if err != nil {
		return nil, fmt.Errorf("copy pdf from container %s: %w", id, err)
	}
	defer rc.Close()

	pdf, err := untarFile(rc)
	if err != nil {
		return nil, err
	}
	slog.Info("PDF rendered", "container_id", shortID(id), "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}

func (r *PDFRenderer) create(ctx context.Context) (string, error) {
	config := &container.Config{
		Image:           r.cfg.Image,
		Entrypoint:      []string{r.cfg.Binary},
		Cmd:             r.args(),
		WorkingDir:      workDir,
		NetworkDisabled: true,
	}
	hostConfig := &container.HostConfig{
		Runtime:     r.cfg.Runtime,
		NetworkMode: "none",
		ShmSize:     64 * units.MiB,
		Resources: container.Resources{
			Memory:    r.memory,
			CPUQuota:  cpuQuota,
			PidsLimit: ptr(int64(pidsLimit)),
		},
	}

	resp, err := r.api.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if errdefs.IsNotFound(err) {
		slog.Info("Render image missing, pulling", "image", r.cfg.Image)
		if pullErr := r.pull(ctx); pullErr != nil {
			return "", pullErr
		}
		resp, err = r.api.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	}
	if err != nil {
		return "", fmt.Errorf("create render container: %w", err)
	}
	for _, w := range resp.Warnings {
		slog.Warn("Render container warning", "container_id", shortID(resp.ID), "warning", w)
	}
	return resp.ID, nil
}

func (r *PDFRenderer) args() []string {
	return []string{
		"--headless",
		"--no-sandbox",
		"--disable-gpu",
		"--disable-dev-shm-usage",
		"--no-pdf-header-footer",
		"--print-to-pdf=" + workDir + "/" + pdfName,
		"file://" + workDir + "/" + htmlName,
	}
}

func (r *PDFRenderer) pull(ctx context.Context) error {
	rc, err := r.api.ImagePull(ctx, r.cfg.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", r.cfg.Image, err)
	}
	defer rc.Close()
	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull image %s: %w", r.cfg.Image, err)
	}
	return nil
}

func (r *PDFRenderer) wait(ctx context.Context, id string) error {
	statusCh, errCh := r.api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("wait for container %s: %w", id, err)
		}
		return nil
	case status := <-statusCh:
		if status.Error != nil {
			return fmt.Errorf("%w: %s", errRenderFailed, status.Error.Message)
		}
		if status.StatusCode != 0 {
			return fmt.Errorf("%w: exit code %d", errRenderFailed, status.StatusCode)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// remove force-removes the container on a fresh context so cleanup still
// happens after the request context is cancelled.
func (r *PDFRenderer) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeGrace)
	defer cancel()

	err := r.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	switch {
	case err == nil, errdefs.IsNotFound(err):
	case strings.Contains(err.Error(), "is already in progress"):
		slog.Debug("Container removal already in progress", "container_id", shortID(id))
	default:
		slog.Warn("Failed to remove render container", "container_id", shortID(id), "error", err)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func ptr[T any](v T) *T {
	return &v
}
