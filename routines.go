package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"osuconv/convert"
	"osuconv/logging"
	"osuconv/mods"
	"osuconv/store"
)

func Run(f func()) {
	go func() {
		defer Recover()
		f()
	}()
}

func Recover() {
	if r := recover(); r != nil {
		HandlePanic(r)
	}
}

func HandlePanic(panic any) {
	defer os.Exit(1)

	buf := make([]byte, 100000)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	logging.Logger().Error("panic", "value", fmt.Sprint(panic), "stack", string(buf))
}

// result is the outcome of one job.
type result struct {
	name    string
	stage   string
	summary store.Summary
	err     error
}

// converter holds what every job shares.
type converter struct {
	store   *store.Store
	mods    []mods.Mod
	key     string
	opts    convert.Options
	timeout time.Duration
}

// process runs jobs on a pool of workers. Results keep the order of jobs.
func process(ctx context.Context, jobs []job, workers int, c *converter) []result {
	results := make([]result, len(jobs))
	next := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < max(workers, 1); w++ {
		wg.Add(1)
		Run(func() {
			defer wg.Done()
			for i := range next {
				results[i] = c.one(ctx, jobs[i])
			}
		})
	}
	for i := range jobs {
		next <- i
	}
	close(next)
	wg.Wait()
	return results
}

func (c *converter) one(ctx context.Context, j job) result {
	log := logging.Logger().With("beatmap", j.name)

	b, err := j.load(ctx)
	if err != nil {
		return result{name: j.name, stage: j.stage, err: err}
	}

	if c.store != nil {
		sum, err := c.store.Summary(ctx, b.Metadata.MD5, c.opts.Mode, c.key)
		if err == nil {
			log.Info("cache hit", "md5", sum.MD5)
			return result{name: j.name, summary: sum}
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("cache lookup failed", "err", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out, err := convert.ConvertContext(ctx, b, c.mods, c.opts)
	if err != nil {
		return result{name: j.name, stage: "convert", err: err}
	}
	log.Info("converted", "objects", len(out.HitObjects), "maxStack", out.MaxStackHeight())

	if c.store != nil {
		if err := c.store.SaveBeatmap(ctx, out, c.key); err != nil {
			return result{name: j.name, stage: "store", err: err}
		}
	}
	return result{name: j.name, summary: store.Summarize(out, c.key)}
}
