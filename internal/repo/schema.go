package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — журнал jobs. Очередь планировщика здесь не хранится:
// строки нужны для истории и статуса.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id           UUID PRIMARY KEY,
	name         TEXT,
	kind         TEXT        NOT NULL,
	config       JSONB,
	due_at       TIMESTAMPTZ NOT NULL,
	cron_expr    TEXT,
	interval_sec INTEGER,
	timezone     TEXT,
	retry        JSONB,
	status       TEXT        NOT NULL,
	seq          BIGINT      NOT NULL DEFAULT 0,
	attempt      INTEGER     NOT NULL DEFAULT 0,
	runs         INTEGER     NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ,
	finished_at  TIMESTAMPTZ,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status);
CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC);
`

// Migrate создаёт таблицы журнала, если их ещё нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
