// Package db provides PostgreSQL connection management and schema migrations.
//
// This package is responsible for:
//   - PostgreSQL connection pool initialization
//   - Connection health checks
//   - Applying the embedded goose migrations
//
// Example usage:
//
//	pg, err := db.New(ctx, cfg.Database, log)
//	if err != nil {
//	    return err
//	}
//	defer pg.Close()
//
//	if err := db.Migrate(ctx, pg.Pool, log); err != nil {
//	    return err
//	}
package db
