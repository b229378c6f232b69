package main

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"osuconv/beatmap"
	"osuconv/dotosu"
	"osuconv/fetch"
	"osuconv/logging"
)

// job is one beatmap to convert.
type job struct {
	name  string
	stage string
	load  func(ctx context.Context) (*beatmap.Beatmap, error)
}

// fileJobs turns file and directory arguments into jobs. Directories are
// searched recursively for .osu files.
func fileJobs(args []string) ([]job, error) {
	var jobs []job
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		paths := []string{arg}
		if info.IsDir() {
			if paths, err = OpenSet(arg); err != nil {
				return nil, err
			}
		}
		for _, p := range paths {
			p := p
			jobs = append(jobs, job{
				name:  p,
				stage: "decode",
				load:  func(context.Context) (*beatmap.Beatmap, error) { return dotosu.DecodeFile(p) },
			})
		}
	}
	return jobs, nil
}

// OpenSet lists the .osu files under dir, sorted.
func OpenSet(dir string) ([]string, error) {
	var paths []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Logger().Warn("skipping", "path", path, "err", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".osu") {
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .osu files in %s", dir)
	}

	sort.Strings(paths)
	return paths, nil
}

// fetchJobs turns beatmap id arguments into download jobs.
func fetchJobs(client *fetch.Client, args []string) ([]job, error) {
	jobs := make([]job, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid beatmap id %q", arg)
		}
		jobs = append(jobs, job{
			name:  arg,
			stage: "fetch",
			load: func(ctx context.Context) (*beatmap.Beatmap, error) {
				data, err := client.Fetch(ctx, id)
				if err != nil {
					return nil, err
				}
				return dotosu.Decode(bytes.NewReader(data))
			},
		})
	}
	return jobs, nil
}
