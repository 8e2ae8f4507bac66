package store

// Cascades are explicit cleanup steps in the owning component's
// transaction, not ON DELETE clauses: only Conversation -> messages/
// comments/participants and ContentItem -> segments are true ownership
// edges; everything else is a weak id reference nulled on delete.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS personas (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	tone TEXT NOT NULL DEFAULT '',
	style TEXT NOT NULL DEFAULT '',
	style_summary TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS persona_speakers (
	persona_id TEXT NOT NULL,
	speaker_label TEXT NOT NULL UNIQUE,
	PRIMARY KEY (persona_id, speaker_label)
);

CREATE TABLE IF NOT EXISTS content_items (
	id TEXT PRIMARY KEY,
	source_type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'uploaded',
	status_reason TEXT NOT NULL DEFAULT '',
	persona_id TEXT,
	blob_key TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL DEFAULT '',
	duration_seconds REAL NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	recorded_at INTEGER,
	speakers TEXT NOT NULL DEFAULT '[]',
	keywords TEXT NOT NULL DEFAULT '[]',
	provider TEXT NOT NULL DEFAULT '',
	provider_model TEXT NOT NULL DEFAULT '',
	extra TEXT NOT NULL DEFAULT '{}',
	body TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_items_persona ON content_items(persona_id);

CREATE TABLE IF NOT EXISTS segments (
	id TEXT PRIMARY KEY,
	content_id TEXT NOT NULL,
	segment_index INTEGER NOT NULL,
	start_time REAL NOT NULL,
	end_time REAL NOT NULL,
	speaker TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (content_id, segment_index)
);
CREATE INDEX IF NOT EXISTS idx_segments_content ON segments(content_id, segment_index);

CREATE TABLE IF NOT EXISTS search_entries (
	source_id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	content_id TEXT NOT NULL,
	persona_id TEXT,
	source_type TEXT NOT NULL,
	segment_index INTEGER NOT NULL DEFAULT 0,
	recorded_at INTEGER NOT NULL DEFAULT 0,
	token_count INTEGER NOT NULL DEFAULT 0,
	text_version INTEGER NOT NULL DEFAULT 1,
	index_version INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_search_entries_content ON search_entries(content_id);
CREATE INDEX IF NOT EXISTS idx_search_entries_persona ON search_entries(persona_id);

CREATE TABLE IF NOT EXISTS search_tokens (
	source_id TEXT NOT NULL,
	token TEXT NOT NULL,
	freq INTEGER NOT NULL,
	PRIMARY KEY (source_id, token)
);
CREATE INDEX IF NOT EXISTS idx_search_tokens_token ON search_tokens(token);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	collaborative INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'created',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_participants (
	conversation_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'member',
	added_at INTEGER NOT NULL,
	PRIMARY KEY (conversation_id, user_id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	conversation_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	author_kind TEXT NOT NULL DEFAULT 'user',
	text TEXT NOT NULL,
	mentions TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation ON chat_messages(conversation_id, seq);

CREATE TABLE IF NOT EXISTS clip_comments (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	conversation_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	clip_index INTEGER NOT NULL DEFAULT 0,
	text TEXT NOT NULL,
	mentions TEXT NOT NULL DEFAULT '[]',
	is_regenerate INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clip_comments_message ON clip_comments(message_id, seq);

CREATE TABLE IF NOT EXISTS ai_interaction_logs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	request_type TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	user_id TEXT,
	persona_id TEXT,
	conversation_id TEXT,
	prompt TEXT NOT NULL,
	response_raw TEXT NOT NULL DEFAULT '',
	response_json TEXT,
	clips_generated INTEGER,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	success INTEGER NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ai_logs_model ON ai_interaction_logs(model, seq);
CREATE INDEX IF NOT EXISTS idx_ai_logs_user ON ai_interaction_logs(user_id, seq);
`
