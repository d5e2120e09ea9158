package trellis

import (
	"context"
	"fmt"
	"sync"

	"github.com/jward/trellis/internal/graph"
	"github.com/jward/trellis/internal/types"
)

// MemberRequest is one AsMemberOf query in a batch. Module is the querying
// module name; empty sees the whole graph.
type MemberRequest struct {
	Module   string
	Decl     *graph.Declaration
	Receiver types.Type
}

// MemberResult is the answer to the request at the same index.
type MemberResult struct {
	Type types.Type
	Err  error
}

// AsMemberOfAll answers a batch of AsMemberOf queries on a worker pool.
// Results are in request order. A failing request reports its own error
// and does not stop the others; a cancelled context fails the requests
// not yet started.
func (e *Engine) AsMemberOfAll(ctx context.Context, reqs []MemberRequest) []MemberResult {
	results := make([]MemberResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	numWorkers := min(e.workers, len(reqs))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan int, len(reqs))
	for i := range reqs {
		workCh <- i
	}
	close(workCh)

	type result struct {
		index int
		res   MemberResult
	}
	resultCh := make(chan result, len(reqs))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolvers := map[string]*Resolver{} // per worker, by module
			for i := range workCh {
				resultCh <- result{index: i, res: e.answer(ctx, reqs[i], resolvers)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		results[res.index] = res.res
	}
	return results
}

func (e *Engine) answer(ctx context.Context, req MemberRequest, resolvers map[string]*Resolver) MemberResult {
	if err := ctx.Err(); err != nil {
		return MemberResult{Err: err}
	}
	if req.Decl == nil {
		return MemberResult{Err: fmt.Errorf("as member of: no declaration")}
	}
	r := resolvers[req.Module]
	if r == nil {
		var err error
		r, err = e.Query(req.Module)
		if err != nil {
			return MemberResult{Err: err}
		}
		resolvers[req.Module] = r
	}
	t, err := r.AsMemberOf(req.Decl, req.Receiver)
	return MemberResult{Type: t, Err: err}
}
