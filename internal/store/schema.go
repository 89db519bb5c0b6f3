package store

// Schema is the pagewalk persistence schema: one row per crawl session, one
// row per extracted item. The full engine state travels as JSON next to the
// columns queries actually filter on.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    start_url     TEXT NOT NULL,
    strategy      TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    current_page  INTEGER NOT NULL DEFAULT 1,
    items_found   INTEGER NOT NULL DEFAULT 0,
    fingerprint   TEXT NOT NULL DEFAULT '',
    state_json    TEXT NOT NULL,
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL,
    archived_at   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, updated_at DESC);

CREATE TABLE IF NOT EXISTS items (
    id           TEXT PRIMARY KEY,
    session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    page_number  INTEGER NOT NULL,
    item_index   INTEGER NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    link         TEXT NOT NULL DEFAULT '',
    text         TEXT NOT NULL,
    markdown     TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_session ON items(session_id, page_number, item_index);
`
