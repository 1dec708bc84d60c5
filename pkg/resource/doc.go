// Package resource provides the async resource-fetching layer: a uniform
// {data, loading, error} lifecycle around an arbitrary remote call, plus
// specializations for paginated listings and periodic polling.
//
// A call function reports business failures in its CallResult and transport
// failures as a returned error; both are contained by the resource and
// exposed as a single error string.
//
// Basic usage:
//
//	users := resource.New(func(ctx context.Context, p resource.Params) (resource.CallResult[[]User], error) {
//	    return api.ListUsers(ctx, p)
//	}, resource.OnSuccess(func(u []User) { log.Println(len(u), "users") }))
//	defer users.Close()
//
//	users.Subscribe(func() {
//	    render(users.State())
//	})
//
// Every Execute starts a new generation. Only the settlement of the current
// generation is applied; results of superseded calls, and of calls that were
// in flight when Reset or Close ran, are discarded.
//
// Paginated and Polling compose Resource:
//
//	list := resource.NewPaginated(listUsers, resource.WithInitialLimit(25))
//	list.NextPage()
//
//	stats := resource.NewPolling(fetchStats, resource.WithInterval(2*time.Second))
//	defer stats.Close()
package resource
