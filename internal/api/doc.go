// Package api serves the gateway's HTTP interface.
//
//	GET  /                       welcome message
//	GET  /health                 liveness and version
//	GET  /metrics                runtime and backend statistics
//	GET  /audit                  light-command audit trail
//	GET  /ws                     WebSocket event stream
//	POST /get_data               fleet query
//	GET  /{host}/get_data        full telemetry of one miner
//	GET  /{host}/{view}          hashrate, fans, temps, power or chips view
//	GET  /{host}/errors          device-reported errors
//	GET  /{host}/hostname        device hostname
//	GET  /{host}/model           device model
//	GET  /{host}/led/{mode}      fault light: on, off, toggle, status
//
// A trailing slash is accepted on every path. Errors are returned as
// {"detail": "..."}.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
