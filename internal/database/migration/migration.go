package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the last step; its presence means the schema is in place.
const sentinelTable = "public.user_file_paths"

// lockKey serializes concurrent bootstraps of several instances.
const lockKey = 7311842

var steps = []migrationStep{
	{
		Name: "create_table_file_records",
		SQL: `CREATE TABLE IF NOT EXISTS file_records (
  id                  UUID        PRIMARY KEY,
  file_name           TEXT        NOT NULL,
  file_path           TEXT        NOT NULL UNIQUE,
  size_kb             BIGINT      NOT NULL CHECK (size_kb >= 1),
  uploaded_by_user_id TEXT        NOT NULL,
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_file_records_uploader",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_file_records_uploader ON file_records (uploaded_by_user_id, created_at DESC, id DESC);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           UUID        PRIMARY KEY,
  seq          BIGINT      GENERATED ALWAYS AS IDENTITY UNIQUE,
  name         TEXT        NOT NULL,
  owner_id     TEXT        NOT NULL,
  access_level SMALLINT    NOT NULL DEFAULT 0 CHECK (access_level BETWEEN 0 AND 2),
  last_version INTEGER     NOT NULL DEFAULT 0 CHECK (last_version >= 0),
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents (owner_id, seq);`,
	},
	{
		// The file record reference keeps the default NO ACTION so that a
		// document delete can remove versions and their files in one statement
		// while a standalone delete of a referenced file still fails.
		Name: "create_table_document_versions",
		SQL: `CREATE TABLE IF NOT EXISTS document_versions (
  id             UUID        PRIMARY KEY,
  document_id    UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  version_number INTEGER     NOT NULL CHECK (version_number > 0),
  file_record_id UUID        NOT NULL UNIQUE REFERENCES file_records (id),
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (document_id, version_number)
);`,
	},
	{
		Name: "create_table_user_file_paths",
		SQL: `CREATE TABLE IF NOT EXISTS user_file_paths (
  id         UUID        PRIMARY KEY,
  user_id    TEXT        NOT NULL,
  path       TEXT        NOT NULL,
  label      TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (user_id, path)
);`,
	},
	{
		Name: "create_index_user_file_paths_user",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_user_file_paths_user ON user_file_paths (user_id, created_at DESC);`,
	},
}

// EnsureMigrated creates the schema unless the sentinel table already exists.
// All steps run in one transaction under an advisory lock, so a failed or
// concurrent bootstrap never leaves a partial schema behind.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	start := time.Now()
	log = log.WithField("component", "database")
	log.WithField("status", "starting").Info("db_migration_check")

	fail := func(step string, err error) error {
		entry := log.WithError(err).WithFields(logrus.Fields{
			"status":      "error",
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if step != "" {
			entry = entry.WithField("migration_step", step)
		}
		entry.Error("db_migration_failed")
		if step != "" {
			return fmt.Errorf("migration step %s failed: %w", step, err)
		}
		return err
	}

	exists, err := sentinelExists(ctx, db)
	if err != nil {
		return fail("", fmt.Errorf("failed to check sentinel table: %w", err))
	}
	if exists {
		log.WithFields(logrus.Fields{
			"status":      "success",
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("db_migration_skip")
		return nil
	}

	log.WithField("status", "in_progress").Info("db_migration_start")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fail("", fmt.Errorf("begin migration: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return fail("advisory_lock", err)
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			return fail(step.Name, err)
		}
		log.WithFields(logrus.Fields{
			"status":           "success",
			"migration_step":   step.Name,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		}).Debug("db_migration_step")
	}

	if err := tx.Commit(); err != nil {
		return fail("", fmt.Errorf("commit migration: %w", err))
	}

	log.WithFields(logrus.Fields{
		"status":      "success",
		"steps":       len(steps),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("db_migration_success")
	return nil
}

func sentinelExists(ctx context.Context, db *sql.DB) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, sentinelTable).Scan(&exists)
	return exists, err
}
