// Package database provides SQLite connectivity for the minergate audit
// trail.
//
// It opens the database with WAL mode and a busy timeout, applies the
// embedded SQL migrations, and exposes health and pool statistics.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive. Every file pair VERSION_name.up.sql and
// VERSION_name.down.sql lives in the top-level migrations directory.
package database
