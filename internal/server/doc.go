// Package server implements the wanctl HTTP control surface.
//
// Routes:
//
//	GET /                   WAN address page (logs in to the router on every load)
//	GET /api/reconnect      start a reconnect job, respond with its identifier
//	GET /api/echo/{id}      block until the job finishes, respond with its message
//	GET /api/ws/echo/{id}   same as echo, delivered as one websocket text frame
//	GET /api/status         version and number of unpolled jobs (JSON)
//	GET /healthz            liveness
//	GET /metrics            Prometheus exposition
//
// A job's message is delivered to exactly one echo request; later requests
// for the same identifier get 404 "not found". A poller that disconnects
// before the job finishes leaves the entry in place for the next poll.
//
// # Usage Example
//
//	client := router.NewClient(cfg.Router.URL)
//	runner := jobs.NewRunner(jobs.NewRegistry(), client, cfg.Router.Password, cfg.JobDelays())
//	srv, err := server.New(&server.Config{
//	    Listen:   ":8000",
//	    Password: cfg.Router.Password,
//	}, client, runner)
//	if err != nil {
//	    return err
//	}
//	return srv.Start()
//
// The server has no write timeout: echo requests stay open for the length of
// a reconnect, which includes the configured outage delay.
package server
