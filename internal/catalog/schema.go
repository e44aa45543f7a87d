package catalog

// Schema v1 - initial catalog schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- File records, one per announced item. Identity is (source_id, item_id).
CREATE TABLE IF NOT EXISTS files (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  source_id INTEGER NOT NULL,
  item_id INTEGER NOT NULL,
  file_name TEXT NOT NULL,
  file_size INTEGER,
  file_format TEXT,
  metadata_id INTEGER,
  metadata_type TEXT,
  poster_ref TEXT,
  first_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  last_update_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(source_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_files_name ON files(file_name);
CREATE INDEX IF NOT EXISTS idx_files_metadata ON files(metadata_id, metadata_type);

-- Catalog-grade metadata entries resolved from the provider.
-- Never duplicated for the same (metadata_id, metadata_type).
CREATE TABLE IF NOT EXISTS entries (
  metadata_id INTEGER NOT NULL,
  metadata_type TEXT NOT NULL,
  title TEXT,
  year TEXT,
  rating TEXT,
  plot TEXT,
  poster_path TEXT,
  trailer_url TEXT,
  external_id TEXT,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (metadata_id, metadata_type)
);

CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(metadata_type);

-- Sources whose announcements are ingested
CREATE TABLE IF NOT EXISTS sources (
  source_id INTEGER PRIMARY KEY,
  name TEXT,
  added_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Short-lived access tokens. Historical rows accumulate until swept.
CREATE TABLE IF NOT EXISTS tokens (
  token_id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expiry_unix INTEGER NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tokens_user ON tokens(user_id, expiry_unix);

-- Authorization grants, one per user. Expiry is stored as text because
-- historical rows carried both naive and RFC3339 timestamps; readers
-- normalize to UTC before comparing.
CREATE TABLE IF NOT EXISTS grants (
  user_id INTEGER PRIMARY KEY,
  expiry TEXT NOT NULL
);
`
