package server

import (
	"context"
	"errors"
	"time"

	"github.com/aouyang1/go-forecaster-studio/metrics"
	"github.com/aouyang1/go-forecaster-studio/pipeline"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

var ErrDatasetNotFound = errors.New("dataset not found, upload it again")

// cachedRun is a finished forecast along with the upload it was computed from so it can be
// rerun with another horizon
type cachedRun struct {
	data []byte
	out  *pipeline.Output
}

// runFunc computes a forecast, pipeline.Run outside of tests
type runFunc func(ctx context.Context, in pipeline.Input, opt *pipeline.Options) (*pipeline.Output, error)

// runCache keeps the latest forecast runs by dataset id. Concurrent requests for the same
// upload and horizon share a single run.
type runCache struct {
	runs    *lru.Cache[string, *cachedRun]
	group   singleflight.Group
	opt     *pipeline.Options
	metrics *metrics.Manager
	runFn   runFunc
}

func newRunCache(size int, opt *pipeline.Options, m *metrics.Manager) (*runCache, error) {
	runs, err := lru.New[string, *cachedRun](size)
	if err != nil {
		return nil, err
	}
	return &runCache{runs: runs, opt: opt, metrics: m, runFn: pipeline.Run}, nil
}

func (c *runCache) get(id string) (*cachedRun, bool) {
	run, ok := c.runs.Get(id)
	if ok {
		c.metrics.RecordCacheHit()
	} else {
		c.metrics.RecordCacheMiss()
	}
	return run, ok
}

// run returns the cached forecast of data at horizon, computing it on a miss. The shared run
// is detached from the cancellation of whichever caller started it; each caller stops waiting
// when its own ctx is done.
func (c *runCache) run(ctx context.Context, data []byte, horizon int) (*pipeline.Output, error) {
	id := pipeline.DatasetID(data, horizon)
	if run, ok := c.get(id); ok {
		return run.out, nil
	}

	runCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		start := time.Now()
		out, err := c.runFn(runCtx, pipeline.Input{Data: data, Horizon: horizon}, c.opt)
		if err != nil {
			c.metrics.RecordForecastRun(metrics.ForecastFailed, time.Since(start))
			return nil, err
		}
		c.metrics.RecordForecastRun(metrics.ForecastOK, time.Since(start))
		c.runs.Add(id, &cachedRun{data: data, out: out})
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*pipeline.Output), nil
	}
}

// withHorizon returns the cached run of id, rerunning it when horizon is set and differs
func (c *runCache) withHorizon(ctx context.Context, id string, horizon int) (*pipeline.Output, error) {
	run, ok := c.get(id)
	if !ok {
		return nil, ErrDatasetNotFound
	}
	if horizon <= 0 || horizon == run.out.Horizon {
		return run.out, nil
	}
	return c.run(ctx, run.data, horizon)
}
