// Package mcpserver exposes the gateway as Model Context Protocol tools.
//
// Three tools are registered:
//
//	get_miner_data   telemetry of one miner, optionally projected
//	query_fleet      scan a target set and return every responding miner
//	set_miner_light  on, off, toggle or status of a miner's fault light
//
// Tool failures are reported as tool errors so the calling model can read
// them; only protocol faults surface as Go errors. The server speaks over
// stdio, so logs must go to stderr.
package mcpserver
