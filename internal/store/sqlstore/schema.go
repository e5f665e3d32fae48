package sqlstore

// schema is written in the subset of SQL understood by both SQLite and
// PostgreSQL. List-valued columns hold JSON arrays. position keeps the
// enumeration order of the imported dataset.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS participant_profiles (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		date_of_birth TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		interests TEXT NOT NULL DEFAULT '[]',
		availability TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS studies (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		institution TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		duration TEXT NOT NULL DEFAULT '',
		compensation DOUBLE PRECISION NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		participants_needed INTEGER NOT NULL DEFAULT 0,
		participants_current INTEGER NOT NULL DEFAULT 0,
		requirements TEXT NOT NULL DEFAULT '[]',
		researcher_id TEXT REFERENCES users(id),
		created_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS study_applications (
		study_id TEXT NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (study_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS study_participations (
		study_id TEXT NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (study_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_studies_status ON studies (status, position)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_user ON study_applications (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_participations_user ON study_participations (user_id, status)`,
}

// Tables in dependency order; deletes run in reverse.
var tables = []string{
	"users",
	"participant_profiles",
	"studies",
	"study_applications",
	"study_participations",
}
