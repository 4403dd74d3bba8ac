// Package database provides the device's SQLite store.
//
// The store plays the role of the controller's non-volatile storage: it
// holds the device credentials written at the factory and the log of
// provisioning events. It manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Schema migrations read from an fs.FS (embedded in production)
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 since it holds the private key
//
// Usage:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    return err
//	}
//
// Migrations are additive-only; each file pair is named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
