// Package audit records fault-light commands in the audit_logs table.
//
// Recorder receives fleet light events and writes them asynchronously;
// SQLiteRepository stores and pages through the entries served at
// GET /audit.
package audit
