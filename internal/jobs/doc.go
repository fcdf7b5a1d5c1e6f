// Package jobs runs reconnect jobs in the background and hands each job's
// terminal message to exactly one poller.
//
// A job is started with Runner.StartReconnect, which returns an identifier
// immediately. The job itself sleeps for the settle delay, logs in,
// disconnects the WAN link, sleeps for the outage delay and connects again.
// Its terminal message is "Done" or the text of the first failure.
//
//	registry := jobs.NewRegistry()
//	runner := jobs.NewRunner(registry, router.NewClient(url), password, jobs.DefaultDelays())
//
//	id := runner.StartReconnect()
//	msg, found, err := registry.Poll(ctx, id) // blocks until the job finishes
//
// # Delivery Guarantees
//
//   - The registry entry exists before the job goroutine starts.
//   - A job resolves its Result exactly once.
//   - Poll removes the entry before waiting, so a second poll for the same
//     identifier reports not found instead of blocking forever.
//   - Waiting happens outside the registry lock.
//
// Entries that nobody polls are kept for the life of the process. The
// wanctl_jobs_pending gauge makes that growth visible.
package jobs
