package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently on startup. Scoped uniqueness lives in
// the database: organization names globally, district names per
// organization, sector names per district, user emails globally.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL CHECK (role IN ('citizen','sectoradmin','districtadmin','orgadmin','superadmin')),
	organization_id UUID,
	district_id UUID,
	sector_id UUID,
	location_province TEXT NOT NULL DEFAULT '',
	location_district TEXT NOT NULL DEFAULT '',
	location_sector TEXT NOT NULL DEFAULT '',
	location_cell TEXT NOT NULL DEFAULT '',
	location_village TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS organizations (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	services TEXT[] NOT NULL DEFAULT '{}',
	location TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	tel TEXT NOT NULL DEFAULT '',
	admin_id UUID REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS districts (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	province TEXT NOT NULL DEFAULT '',
	organization_id UUID NOT NULL REFERENCES organizations(id),
	admin_id UUID REFERENCES users(id),
	active BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (organization_id, name)
);

CREATE TABLE IF NOT EXISTS sectors (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	district_id UUID NOT NULL REFERENCES districts(id),
	admin_id UUID REFERENCES users(id),
	active BOOLEAN NOT NULL DEFAULT FALSE,
	cells TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (district_id, name)
);

CREATE TABLE IF NOT EXISTS complaints (
	id UUID PRIMARY KEY,
	complaint_id TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	service TEXT NOT NULL DEFAULT '',
	organization_id UUID NOT NULL REFERENCES organizations(id),
	district_id UUID,
	sector_id UUID,
	sector_resolved BOOLEAN NOT NULL DEFAULT TRUE,
	citizen_id UUID NOT NULL REFERENCES users(id),
	status TEXT NOT NULL DEFAULT 'received'
		CHECK (status IN ('received','in_progress','needs_info','resolved','rejected','escalated')),
	escalate_to_district BOOLEAN NOT NULL DEFAULT FALSE,
	escalate_to_org BOOLEAN NOT NULL DEFAULT FALSE,
	escalation_level TEXT NOT NULL DEFAULT 'sector'
		CHECK (escalation_level IN ('sector','district','organization')),
	esc_level TEXT,
	esc_reason TEXT,
	esc_requested_by TEXT,
	esc_timestamp TIMESTAMPTZ,
	esc_original_district UUID,
	esc_original_sector UUID,
	assigned_to UUID,
	assigned_at TIMESTAMPTZ,
	resolved_at TIMESTAMPTZ,
	resolution TEXT,
	attachments TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_complaints_org_status ON complaints (organization_id, status);
CREATE INDEX IF NOT EXISTS idx_complaints_district_status ON complaints (district_id, status);
CREATE INDEX IF NOT EXISTS idx_complaints_sector_status ON complaints (sector_id, status);
CREATE INDEX IF NOT EXISTS idx_complaints_citizen ON complaints (citizen_id, created_at DESC);

CREATE TABLE IF NOT EXISTS complaint_comments (
	id UUID PRIMARY KEY,
	complaint_id UUID NOT NULL REFERENCES complaints(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	user_id UUID NOT NULL,
	role TEXT NOT NULL,
	attachments TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_comments_complaint ON complaint_comments (complaint_id, created_at);

CREATE TABLE IF NOT EXISTS complaint_sequences (
	year INT PRIMARY KEY,
	value INT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT 'system'
		CHECK (type IN ('complaint_update','status_change','comment','escalation','resolution','system')),
	read BOOLEAN NOT NULL DEFAULT FALSE,
	complaint_id UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, read);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient_time ON notifications (recipient_id, created_at DESC);
`

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
