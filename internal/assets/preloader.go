package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hunter_trials/internal/logger"
)

const defaultConcurrency = 4

type status int

const (
	unknown status = iota
	probing
	available
	missing
)

// Preloader probes asset URLs ahead of time and remembers which ones are
// unreachable so they can be swapped for the placeholder.
type Preloader struct {
	client      *http.Client
	placeholder string
	concurrency int

	mu    sync.Mutex
	known map[string]status
	wg    sync.WaitGroup
}

func NewPreloader(placeholder string, timeout time.Duration) *Preloader {
	return &Preloader{
		client:      &http.Client{Timeout: timeout},
		placeholder: placeholder,
		concurrency: defaultConcurrency,
		known:       make(map[string]status),
	}
}

// Warm starts probing the URLs that have not been seen yet and returns
// immediately.
func (p *Preloader) Warm(ctx context.Context, urls []string) {
	var todo []string
	p.mu.Lock()
	for _, u := range urls {
		if u == "" || p.known[u] != unknown {
			continue
		}
		p.known[u] = probing
		todo = append(todo, u)
	}
	p.mu.Unlock()
	if len(todo) == 0 {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.concurrency)
		for _, u := range todo {
			g.Go(func() error {
				p.settle(u, p.probe(gctx, u))
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Wait blocks until every started Warm has finished.
func (p *Preloader) Wait() { p.wg.Wait() }

// Resolve returns a copy of assets with unreachable URLs replaced by the
// placeholder. URLs still being probed are kept.
func (p *Preloader) Resolve(assets map[string]string) map[string]string {
	if assets == nil {
		return nil
	}
	out := make(map[string]string, len(assets))
	p.mu.Lock()
	defer p.mu.Unlock()
	for name, u := range assets {
		if p.known[u] == missing && p.placeholder != "" {
			out[name] = p.placeholder
			continue
		}
		out[name] = u
	}
	return out
}

func (p *Preloader) settle(u string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			delete(p.known, u)
			return
		}
		logger.Debug("asset unavailable", "url", u, "error", err)
		p.known[u] = missing
		return
	}
	p.known[u] = available
}

// probe tries HEAD first and falls back to GET for hosts that reject it.
func (p *Preloader) probe(ctx context.Context, u string) error {
	status, err := p.do(ctx, http.MethodHead, u)
	if err == nil && status < 400 {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	status, err = p.do(ctx, http.MethodGet, u)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("status %d", status)
	}
	return nil
}

func (p *Preloader) do(ctx context.Context, method, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, nil
}
