// Package fetch downloads .osu files and beatmap set archives.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/levigross/grequests"

	"osuconv/logging"
)

var (
	ErrNotFound    = errors.New("beatmap not found")
	ErrStatus      = errors.New("unexpected status")
	ErrRateLimited = errors.New("rate limited")
	ErrNotZip      = errors.New("not a zip archive")
	ErrNoBeatmaps  = errors.New("no .osu files in archive")
)

const (
	DefaultBaseURL = "https://osu.ppy.sh"
	userAgent      = "osuconv"
	maxAttempts    = 3
	cooldown       = time.Minute
)

// Client downloads from an osu! web compatible server.
type Client struct {
	BaseURL string
	Timeout time.Duration
	// Cooldown is the pause after the server reports a rate limit.
	Cooldown time.Duration

	limiter *Limiter
}

// New returns a client allowing perMinute requests, two at a time.
func New(baseURL string, timeout time.Duration, perMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Timeout:  timeout,
		Cooldown: cooldown,
		limiter:  NewLimiter(perMinute, time.Minute, 2),
	}
}

// Fetch downloads the .osu file of a single difficulty.
func (c *Client) Fetch(ctx context.Context, beatmapID int) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("%s/osu/%d", c.BaseURL, beatmapID))
}

// FetchSet downloads a beatmap set archive and returns its .osu files by name.
func (c *Client) FetchSet(ctx context.Context, setID int) (map[string][]byte, error) {
	data, err := c.get(ctx, fmt.Sprintf("%s/beatmapsets/%d/download", c.BaseURL, setID))
	if err != nil {
		return nil, err
	}
	files, err := ExtractOsuFiles(data)
	if err != nil {
		return nil, fmt.Errorf("set %d: %w", setID, err)
	}
	return files, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	done, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	log := logging.Logger().With("url", url)
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		log.Debug("downloading", "attempt", attempt)
		body, err := c.do(ctx, url)
		if !errors.Is(err, ErrRateLimited) || attempt == maxAttempts {
			return body, err
		}
		log.Warn("rate limited", "cooldown", c.Cooldown)
		t := time.NewTimer(c.Cooldown)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	resp, err := grequests.Get(url, &grequests.RequestOptions{
		Context:        ctx,
		UserAgent:      userAgent,
		RequestTimeout: c.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Close()

	switch {
	case resp.StatusCode == 404:
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode == 429:
		return nil, fmt.Errorf("%s: %w", url, ErrRateLimited)
	case !resp.Ok:
		return nil, fmt.Errorf("%s: %w %d", url, ErrStatus, resp.StatusCode)
	}
	body := resp.Bytes()
	if resp.Error != nil {
		return nil, fmt.Errorf("read %s: %w", url, resp.Error)
	}
	if bytes.Contains(body, []byte("Slow down, play more.")) {
		return nil, fmt.Errorf("%s: %w", url, ErrRateLimited)
	}
	return body, nil
}

// ExtractOsuFiles reads the .osu files at the top level of an .osz archive.
// Entries in subdirectories are skipped.
func ExtractOsuFiles(data []byte) (map[string][]byte, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotZip, err)
	}

	osuFiles := make(map[string][]byte)
	for _, file := range zipReader.File {
		if !strings.HasSuffix(strings.ToLower(file.Name), ".osu") {
			continue
		}
		if file.FileInfo().IsDir() || strings.ContainsAny(file.Name, `/\`) {
			logging.Logger().Warn("skipping archive entry", "name", file.Name)
			continue
		}
		contents, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading .osu file %s: %w", file.Name, err)
		}
		osuFiles[file.Name] = contents
	}

	if len(osuFiles) == 0 {
		return nil, ErrNoBeatmaps
	}
	return osuFiles, nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
