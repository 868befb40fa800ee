package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id               INTEGER PRIMARY KEY,
    email            TEXT NOT NULL,
    password_hash    TEXT NOT NULL,
    role             TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    name             TEXT NOT NULL,
    phone            TEXT,
    blood_group      TEXT,
    date_of_birth    DATETIME,
    blood_given      INTEGER NOT NULL DEFAULT 0 CHECK (blood_given >= 0),
    blood_taken      INTEGER NOT NULL DEFAULT 0 CHECK (blood_taken >= 0),
    last_donate_date DATETIME,
    available        INTEGER NOT NULL DEFAULT 1,
    avatar           BLOB,
    avatar_mime      TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS blood_stock (
    blood_group  TEXT PRIMARY KEY CHECK (blood_group IN ('A+', 'A-', 'B+', 'B-', 'AB+', 'AB-', 'O+', 'O-')),
    units        INTEGER NOT NULL CHECK (units >= 0),
    last_updated DATETIME NOT NULL,
    updated_by   TEXT
);

CREATE TABLE IF NOT EXISTS transactions (
    id                INTEGER PRIMARY KEY,
    reference         TEXT NOT NULL UNIQUE,
    type              TEXT NOT NULL CHECK (type IN ('entry', 'donate', 'exchange', 'disposal')),
    blood_group       TEXT NOT NULL,
    to_blood_group    TEXT,
    units             INTEGER NOT NULL CHECK (units > 0),
    actor_id          INTEGER REFERENCES users(id),
    actor_email       TEXT,
    donor_name        TEXT,
    recipient_name    TEXT,
    hospital_name     TEXT,
    blood_bag_number  TEXT,
    notes             TEXT,
    previous_stock    INTEGER NOT NULL,
    new_stock         INTEGER NOT NULL,
    to_previous_stock INTEGER,
    to_new_stock      INTEGER,
    request_id        INTEGER,
    donation_id       INTEGER,
    status            TEXT NOT NULL DEFAULT 'completed',
    created_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_created
    ON transactions(created_at);

CREATE TABLE IF NOT EXISTS blood_requests (
    id               INTEGER PRIMARY KEY,
    requester_id     INTEGER NOT NULL REFERENCES users(id),
    patient_name     TEXT NOT NULL,
    contact_phone    TEXT NOT NULL,
    contact_email    TEXT,
    blood_group      TEXT NOT NULL,
    units            INTEGER NOT NULL DEFAULT 1 CHECK (units > 0),
    hospital_name    TEXT NOT NULL,
    hospital_address TEXT NOT NULL,
    urgency          TEXT NOT NULL DEFAULT 'normal' CHECK (urgency IN ('normal', 'urgent', 'emergency')),
    reason           TEXT,
    required_by      DATETIME,
    status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active', 'fulfilled', 'cancelled')),
    approval_status  TEXT NOT NULL DEFAULT 'pending' CHECK (approval_status IN ('pending', 'approved', 'rejected')),
    rejection_reason TEXT,
    counters_updated INTEGER NOT NULL DEFAULT 0,
    donor_id         INTEGER REFERENCES users(id),
    donor_name       TEXT,
    donor_phone      TEXT,
    fulfilled_by     TEXT,
    fulfilled_at     DATETIME,
    created_at       DATETIME NOT NULL,
    updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS donation_requests (
    id                 INTEGER PRIMARY KEY,
    donor_id           INTEGER REFERENCES users(id),
    name               TEXT NOT NULL,
    email              TEXT,
    phone              TEXT NOT NULL,
    gender             TEXT,
    date_of_birth      DATETIME,
    weight             TEXT,
    blood_group        TEXT NOT NULL,
    units              INTEGER NOT NULL DEFAULT 1 CHECK (units > 0),
    last_donation_date DATETIME,
    medical_conditions TEXT,
    address            TEXT,
    preferred_date     DATETIME,
    eligibility        TEXT NOT NULL,
    approval_status    TEXT NOT NULL DEFAULT 'pending' CHECK (approval_status IN ('pending', 'approved', 'rejected')),
    status             TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'cancelled')),
    blood_bag_number   TEXT,
    transaction_id     INTEGER REFERENCES transactions(id),
    rejection_reason   TEXT,
    reviewed_by        TEXT,
    reviewed_at        DATETIME,
    created_at         DATETIME NOT NULL,
    updated_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS donation_history (
    id               INTEGER PRIMARY KEY,
    donor_id         INTEGER REFERENCES users(id),
    donation_id      INTEGER NOT NULL UNIQUE,
    blood_group      TEXT NOT NULL,
    units            INTEGER NOT NULL,
    blood_bag_number TEXT NOT NULL,
    donated_at       DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(db)
}
