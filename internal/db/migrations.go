package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'ticket_status') THEN
			CREATE TYPE ticket_status AS ENUM (
				'accepted_pending',
				'fault_diagnosis',
				'customer_approval',
				'under_repair',
				'ready_for_delivery',
				'invoicing',
				'delivery'
			);
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS devices (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		device_type TEXT NOT NULL,
		serial_number TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS technicians (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name TEXT NOT NULL,
		email TEXT,
		specialty TEXT NOT NULL,
		avatar_color VARCHAR(16) NOT NULL,
		username VARCHAR(64) UNIQUE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status ticket_status NOT NULL DEFAULT 'accepted_pending',
		priority VARCHAR(16) NOT NULL DEFAULT 'medium',
		device_id UUID REFERENCES devices(id) ON DELETE SET NULL,
		assigned_to UUID REFERENCES technicians(id) ON DELETE SET NULL,
		serial_number TEXT,
		product_type TEXT,
		brand TEXT,
		model TEXT,
		model_number TEXT,
		custom_code TEXT,
		warranty_status VARCHAR(32),
		customer_full_name TEXT,
		customer_phone TEXT,
		customer_extension TEXT,
		customer_email TEXT,
		customer_address TEXT,
		billing_company_name TEXT,
		billing_address TEXT,
		billing_tax_office TEXT,
		billing_tax_number TEXT,
		approved_labor_cost NUMERIC(12,2) CHECK (approved_labor_cost >= 0),
		approved_service_cost NUMERIC(12,2) CHECK (approved_service_cost >= 0),
		invoice_number TEXT,
		total_service_amount NUMERIC(12,2) CHECK (total_service_amount >= 0),
		won BOOLEAN NOT NULL DEFAULT FALSE,
		won_at TIMESTAMPTZ,
		won_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_tickets_priority CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
		CONSTRAINT chk_tickets_won_at CHECK (NOT won OR won_at IS NOT NULL)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_assigned_to ON tickets (assigned_to);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_device_id ON tickets (device_id);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets (created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_updated_at ON tickets (updated_at);`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_won_at ON tickets (won_at) WHERE won;`,
	`CREATE TABLE IF NOT EXISTS ticket_notes (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		ticket_id UUID NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT 'Staff',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ticket_notes_ticket_id ON ticket_notes (ticket_id, created_at);`,
	// updated_at is only stamped when the update did not set it itself.
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		IF NEW.updated_at IS NOT DISTINCT FROM OLD.updated_at THEN
			NEW.updated_at = NOW();
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_tickets_updated_at') THEN
			CREATE TRIGGER trg_tickets_updated_at
				BEFORE UPDATE ON tickets
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(db *gorm.DB) error {
	return runMigrations(db)
}
