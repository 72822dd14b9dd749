package db

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS examinees (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  full_name TEXT NOT NULL,
  birth_date TEXT NOT NULL DEFAULT '',
  education TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS normative_tables (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_type TEXT NOT NULL,
  name TEXT NOT NULL,
  criterion TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS normative_tables_type_idx ON normative_tables (test_type, active);

CREATE TABLE IF NOT EXISTS normative_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  table_id INTEGER NOT NULL REFERENCES normative_tables(id),
  min_score REAL,
  max_score REAL,
  education TEXT,
  modality TEXT,
  license_context TEXT,
  eval_subtype TEXT,
  percentile INTEGER,
  classification TEXT NOT NULL DEFAULT '',
  converted_score REAL
);
CREATE INDEX IF NOT EXISTS normative_rows_table_idx ON normative_rows (table_id);

CREATE TABLE IF NOT EXISTS evaluations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  examinee_id INTEGER REFERENCES examinees(id),
  owner_id INTEGER NOT NULL,
  report_number TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  application_date TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS evaluations_examinee_report_uq ON evaluations (examinee_id, report_number);

CREATE TABLE IF NOT EXISTS test_results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  evaluation_id INTEGER NOT NULL REFERENCES evaluations(id),
  test_type TEXT NOT NULL,
  raw_input TEXT NOT NULL,
  raw_score REAL NOT NULL DEFAULT 0,
  percentile INTEGER,
  classification TEXT NOT NULL DEFAULT '',
  details TEXT NOT NULL DEFAULT '{}',
  table_used_id INTEGER,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS test_results_eval_type_idx ON test_results (evaluation_id, test_type);

CREATE TABLE IF NOT EXISTS stock_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stock_movements (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  item_id INTEGER NOT NULL REFERENCES stock_items(id),
  direction TEXT NOT NULL,           -- outbound|inbound
  quantity INTEGER NOT NULL,         -- signed: negative for outbound
  evaluation_id INTEGER,
  user_id INTEGER NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS calculation_log (
  id TEXT PRIMARY KEY,
  owner_id INTEGER NOT NULL,
  test_type TEXT NOT NULL,
  raw_input TEXT NOT NULL,
  result TEXT NOT NULL,
  table_id INTEGER,
  origin TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS examinees (
  id BIGSERIAL PRIMARY KEY,
  full_name TEXT NOT NULL,
  birth_date TEXT NOT NULL DEFAULT '',
  education TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS normative_tables (
  id BIGSERIAL PRIMARY KEY,
  test_type TEXT NOT NULL,
  name TEXT NOT NULL,
  criterion TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS normative_tables_type_idx ON normative_tables (test_type, active);

CREATE TABLE IF NOT EXISTS normative_rows (
  id BIGSERIAL PRIMARY KEY,
  table_id BIGINT NOT NULL REFERENCES normative_tables(id),
  min_score DOUBLE PRECISION,
  max_score DOUBLE PRECISION,
  education TEXT,
  modality TEXT,
  license_context TEXT,
  eval_subtype TEXT,
  percentile INTEGER,
  classification TEXT NOT NULL DEFAULT '',
  converted_score DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS normative_rows_table_idx ON normative_rows (table_id);

CREATE TABLE IF NOT EXISTS evaluations (
  id BIGSERIAL PRIMARY KEY,
  examinee_id BIGINT REFERENCES examinees(id),
  owner_id BIGINT NOT NULL,
  report_number TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  application_date TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS evaluations_examinee_report_uq ON evaluations (examinee_id, report_number);

CREATE TABLE IF NOT EXISTS test_results (
  id BIGSERIAL PRIMARY KEY,
  evaluation_id BIGINT NOT NULL REFERENCES evaluations(id),
  test_type TEXT NOT NULL,
  raw_input TEXT NOT NULL,
  raw_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  percentile INTEGER,
  classification TEXT NOT NULL DEFAULT '',
  details TEXT NOT NULL DEFAULT '{}',
  table_used_id BIGINT,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS test_results_eval_type_idx ON test_results (evaluation_id, test_type);

CREATE TABLE IF NOT EXISTS stock_items (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
  updated_at BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS stock_movements (
  id BIGSERIAL PRIMARY KEY,
  item_id BIGINT NOT NULL REFERENCES stock_items(id),
  direction TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  evaluation_id BIGINT,
  user_id BIGINT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS calculation_log (
  id TEXT PRIMARY KEY,
  owner_id BIGINT NOT NULL,
  test_type TEXT NOT NULL,
  raw_input TEXT NOT NULL,
  result TEXT NOT NULL,
  table_id BIGINT,
  origin TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);
`
