package library

// Schema はフォトライブラリのSQLiteスキーマ
// seq は保存順、authorization は1行のみ
const Schema = `
CREATE TABLE IF NOT EXISTS assets (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    path TEXT NOT NULL,
    device_id TEXT NOT NULL,
    orientation TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    captured_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assets_created_at ON assets(created_at);

CREATE TABLE IF NOT EXISTS library_authorization (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    status TEXT NOT NULL CHECK(status IN ('not_determined', 'authorized', 'denied'))
);

INSERT OR IGNORE INTO library_authorization (id, status) VALUES (1, 'not_determined');
`
