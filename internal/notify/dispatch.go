package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Result is what one dispatch invocation reports back.
type Result struct {
	Sent            int `json:"sent"`
	DisabledInvalid int `json:"disabled_invalid"`
}

// Dispatcher sends the planned jobs of one triggering event. Delivery is
// at-least-once, best-effort: per-subscription failures are isolated, but
// a resolver or store failure aborts the whole event so success is never
// reported over silently skipped work.
type Dispatcher struct {
	Registry *Registry
	Resolver *Resolver
	Sender   Sender
	Log      *slog.Logger
}

func (d *Dispatcher) Dispatch(ctx context.Context, jobs []Job) (Result, error) {
	if len(jobs) == 0 {
		return Result{}, nil
	}

	// Resolve every audience and fetch the union of subscriptions once.
	perJob := make([][]string, len(jobs))
	seen := map[string]bool{}
	var union []string
	for i, j := range jobs {
		ids, err := d.Resolver.Resolve(ctx, j)
		if err != nil {
			return Result{}, err
		}
		perJob[i] = ids
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				union = append(union, id)
			}
		}
	}

	subs, err := d.Registry.ListEnabled(ctx, union)
	if err != nil {
		return Result{}, err
	}
	byUser := map[string][]int{}
	for i, sub := range subs {
		byUser[sub.UserID] = append(byUser[sub.UserID], i)
	}

	type pair struct {
		job int
		sub int
	}
	var pairs []pair
	for i := range jobs {
		for _, id := range perJob[i] {
			for _, si := range byUser[id] {
				pairs = append(pairs, pair{job: i, sub: si})
			}
		}
	}

	// Sends are independent per subscription; a gone endpoint disables
	// only itself, a transient provider error only loses that one push.
	var (
		mu       sync.Mutex
		res      Result
		disabled = map[string]bool{}
		wg       sync.WaitGroup
	)
	for _, p := range pairs {
		wg.Add(1)
		go func(p pair) {
			defer wg.Done()
			job, sub := jobs[p.job], subs[p.sub]
			msg := Message{Title: job.Title, Body: job.Body, URL: job.URL, Tag: job.Tag}
			err := d.Sender.Send(ctx, sub, msg)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Sent++
			case errors.Is(err, ErrEndpointGone):
				if disabled[sub.Endpoint] {
					return
				}
				disabled[sub.Endpoint] = true
				if derr := d.Registry.Disable(ctx, sub.Endpoint); derr != nil {
					d.logger().Error("disable stale subscription", "endpoint", sub.Endpoint, "error", derr)
					return
				}
				res.DisabledInvalid++
			default:
				d.logger().Warn("push send failed", "endpoint", sub.Endpoint, "tag", job.Tag, "error", err)
			}
		}(p)
	}
	wg.Wait()

	return res, nil
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}
