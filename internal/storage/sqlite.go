package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/csml-dev/csml-engine/internal/bot"
	"github.com/csml-dev/csml-engine/internal/primitive"
)

// SQLiteStore is a SQLite-backed Store: WAL-mode sql.Open,
// migrate-in-constructor, uuid.NewV7 identifiers, the same shape applied
// uniformly across every table. Sensitive columns go through
// a cryptor so data at rest is encrypted unless DISABLE_DATA_ENCRYPTION
// is set (spec §6).
type SQLiteStore struct {
	db  *sql.DB
	enc *cryptor
	ttl time.Duration
}

// Options configures a SQLiteStore.
type Options struct {
	// EncryptionSecret seeds the AES-GCM key for encrypted-at-rest
	// columns. Required unless DisableEncryption is set.
	EncryptionSecret string
	// DisableEncryption opts out of at-rest encryption (spec §6
	// DISABLE_DATA_ENCRYPTION).
	DisableEncryption bool
	// DefaultTTL is applied to memories written without an explicit
	// expiry, mirroring spec §6's TTL_DURATION env var. State rows are
	// not given a default expiry. Zero means "no default expiry".
	DefaultTTL time.Duration
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path
// and migrates its schema.
func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	enc, err := newCryptor(opts.EncryptionSecret, opts.DisableEncryption)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, enc: enc, ttl: opts.DefaultTTL}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		bot_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		flow_id TEXT NOT NULL,
		step_id TEXT NOT NULL,
		status TEXT NOT NULL,
		metadata BLOB,
		expires_at TEXT,
		last_interaction_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_client ON conversations(bot_id, channel_id, user_id, status);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_single_open ON conversations(bot_id, channel_id, user_id) WHERE status = 'open';

	CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		bot_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		success BOOLEAN NOT NULL DEFAULT 0,
		finished BOOLEAN NOT NULL DEFAULT 0,
		event BLOB,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		bot_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		interaction_id TEXT NOT NULL,
		flow_id TEXT NOT NULL,
		step_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		interaction_order INTEGER NOT NULL,
		message_order INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		payload BLOB,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conv ON messages(conversation_id, interaction_order, message_order);
	CREATE INDEX IF NOT EXISTS idx_messages_client ON messages(bot_id, channel_id, user_id, seq);

	CREATE TABLE IF NOT EXISTS memories (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		bot_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB,
		expires_at TEXT,
		created_at TEXT NOT NULL,
		conversation_id TEXT NOT NULL DEFAULT '',
		interaction_id TEXT NOT NULL DEFAULT '',
		flow_id TEXT NOT NULL DEFAULT '',
		step_id TEXT NOT NULL DEFAULT '',
		interaction_order INTEGER NOT NULL DEFAULT 0,
		memory_order INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_longterm ON memories(bot_id, channel_id, user_id, key) WHERE conversation_id = '';

	CREATE TABLE IF NOT EXISTS state (
		bot_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB,
		expires_at TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (bot_id, channel_id, user_id, type, key)
	);

	CREATE TABLE IF NOT EXISTS bot_versions (
		id TEXT PRIMARY KEY,
		bot_id TEXT NOT NULL,
		name TEXT NOT NULL,
		default_flow TEXT NOT NULL,
		flows BLOB NOT NULL,
		env BLOB,
		secrets BLOB,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bot_versions_bot ON bot_versions(bot_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func nowUTC() time.Time { return time.Now().UTC() }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func formatOptTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseOptTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

// --- conversations ---------------------------------------------------

func (s *SQLiteStore) CreateConversation(client Client, flowID, stepID string, expiresAt *time.Time) (*Conversation, error) {
	c := &Conversation{
		ID:                newID(),
		Client:            client,
		FlowID:            flowID,
		StepID:            stepID,
		Status:            StatusOpen,
		Metadata:          map[string]any{},
		ExpiresAt:         expiresAt,
		LastInteractionAt: nowUTC(),
		UpdatedAt:         nowUTC(),
		CreatedAt:         nowUTC(),
	}
	meta, err := s.sealJSON(c.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO conversations (id, bot_id, channel_id, user_id, flow_id, step_id, status, metadata, expires_at, last_interaction_at, updated_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, client.BotID, client.ChannelID, client.UserID, flowID, stepID, string(StatusOpen), meta,
		formatOptTime(expiresAt), formatTime(c.LastInteractionAt), formatTime(c.UpdatedAt), formatTime(c.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, ErrAlreadyOpen
		}
		return nil, err
	}
	return c, nil
}

func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}

func (s *SQLiteStore) scanConversation(row interface {
	Scan(dest ...any) error
}) (*Conversation, error) {
	var c Conversation
	var status string
	var metaBytes []byte
	var expires sql.NullString
	var lastInt, updated, created string
	err := row.Scan(&c.ID, &c.Client.BotID, &c.Client.ChannelID, &c.Client.UserID,
		&c.FlowID, &c.StepID, &status, &metaBytes, &expires, &lastInt, &updated, &created)
	if err != nil {
		return nil, err
	}
	c.Status = Status(status)
	c.ExpiresAt = parseOptTime(expires)
	c.LastInteractionAt = parseTime(lastInt)
	c.UpdatedAt = parseTime(updated)
	c.CreatedAt = parseTime(created)
	meta, err := s.openJSON(metaBytes)
	if err != nil {
		return nil, err
	}
	if m, ok := meta.(map[string]any); ok {
		c.Metadata = m
	} else {
		c.Metadata = map[string]any{}
	}
	return &c, nil
}

func (s *SQLiteStore) GetLatestOpen(client Client) (*Conversation, error) {
	row := s.db.QueryRow(
		`SELECT id, bot_id, channel_id, user_id, flow_id, step_id, status, metadata, expires_at, last_interaction_at, updated_at, created_at
		 FROM conversations WHERE bot_id=? AND channel_id=? AND user_id=? AND status='open'
		 ORDER BY created_at DESC LIMIT 1`,
		client.BotID, client.ChannelID, client.UserID,
	)
	c, err := s.scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStore) CloseConversation(id string, client Client, status Status) error {
	_, err := s.db.Exec(
		`UPDATE conversations SET status=?, updated_at=? WHERE id=? AND bot_id=? AND channel_id=? AND user_id=?`,
		string(status), formatTime(nowUTC()), id, client.BotID, client.ChannelID, client.UserID,
	)
	return err
}

func (s *SQLiteStore) CloseAllConversations(client Client) error {
	_, err := s.db.Exec(
		`UPDATE conversations SET status='closed', updated_at=? WHERE bot_id=? AND channel_id=? AND user_id=? AND status='open'`,
		formatTime(nowUTC()), client.BotID, client.ChannelID, client.UserID,
	)
	return err
}

func (s *SQLiteStore) UpdateConversation(id string, client Client, flowID, stepID *string) error {
	return s.updateConversationTx(s.db, id, client, flowID, stepID)
}

func (s *SQLiteStore) updateConversationTx(q dbtx, id string, client Client, flowID, stepID *string) error {
	_, err := q.Exec(
		`UPDATE conversations SET
			flow_id = COALESCE(?, flow_id),
			step_id = COALESCE(?, step_id),
			last_interaction_at = ?,
			updated_at = ?
		 WHERE id=? AND bot_id=? AND channel_id=? AND user_id=?`,
		optStr(flowID), optStr(stepID), formatTime(nowUTC()), formatTime(nowUTC()),
		id, client.BotID, client.ChannelID, client.UserID,
	)
	return err
}

func (s *SQLiteStore) closeConversationTx(q dbtx, id string, client Client, status Status) error {
	_, err := q.Exec(
		`UPDATE conversations SET status=?, updated_at=? WHERE id=? AND bot_id=? AND channel_id=? AND user_id=?`,
		string(status), formatTime(nowUTC()), id, client.BotID, client.ChannelID, client.UserID,
	)
	return err
}

func optStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// --- interactions ------------------------------------------------------

func (s *SQLiteStore) AddInteraction(client Client, event map[string]any) (*Interaction, error) {
	it := &Interaction{ID: newID(), Client: client, Event: event, CreatedAt: nowUTC()}
	blob, err := s.sealJSON(event)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO interactions (id, bot_id, channel_id, user_id, success, finished, event, created_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		it.ID, client.BotID, client.ChannelID, client.UserID, blob, formatTime(it.CreatedAt),
	)
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *SQLiteStore) FinishInteraction(id string, success bool) error {
	return s.finishInteractionTx(s.db, id, success)
}

func (s *SQLiteStore) finishInteractionTx(q dbtx, id string, success bool) error {
	_, err := q.Exec(`UPDATE interactions SET success=?, finished=1 WHERE id=?`, success, id)
	return err
}

// --- messages ------------------------------------------------------

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting every write
// helper below run either standalone or as part of CommitInteraction's
// single transaction (spec §4.7 step 5).
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQLiteStore) AddMessages(client Client, conversationID, interactionID string, messages []Message, direction Direction) ([]Message, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out, err := s.addMessagesTx(tx, client, conversationID, interactionID, messages, direction)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

func (s *SQLiteStore) addMessagesTx(q dbtx, client Client, conversationID, interactionID string, messages []Message, direction Direction) ([]Message, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	var maxOrder sql.NullInt64
	if err := q.QueryRow(
		`SELECT MAX(interaction_order) FROM messages WHERE conversation_id=?`, conversationID,
	).Scan(&maxOrder); err != nil {
		return nil, err
	}
	var existingInteractionOrder sql.NullInt64
	if err := q.QueryRow(
		`SELECT interaction_order FROM messages WHERE conversation_id=? AND interaction_id=? LIMIT 1`,
		conversationID, interactionID,
	).Scan(&existingInteractionOrder); err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	var interactionOrder int
	switch {
	case existingInteractionOrder.Valid:
		interactionOrder = int(existingInteractionOrder.Int64)
	case maxOrder.Valid:
		interactionOrder = int(maxOrder.Int64) + 1
	default:
		interactionOrder = 0
	}

	var startOrder int
	if err := q.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE conversation_id=? AND interaction_id=?`,
		conversationID, interactionID,
	).Scan(&startOrder); err != nil {
		return nil, err
	}

	out := make([]Message, len(messages))
	for i, m := range messages {
		m.ID = newID()
		m.Client = client
		m.ConversationID = conversationID
		m.InteractionID = interactionID
		m.Direction = direction
		m.InteractionOrder = interactionOrder
		m.MessageOrder = startOrder + i
		m.CreatedAt = nowUTC()

		payloadJSON, err := primitive.MarshalJSON(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal message payload: %w", err)
		}
		payload, err := s.enc.seal(payloadJSON)
		if err != nil {
			return nil, err
		}
		_, err = q.Exec(
			`INSERT INTO messages (id, bot_id, channel_id, user_id, conversation_id, interaction_id, flow_id, step_id,
				direction, interaction_order, message_order, content_type, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, client.BotID, client.ChannelID, client.UserID, conversationID, interactionID,
			m.FlowID, m.StepID, string(direction), m.InteractionOrder, m.MessageOrder, m.ContentType,
			payload, formatTime(m.CreatedAt),
		)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

func (s *SQLiteStore) GetClientMessages(client Client, limit int, paginationKey string) ([]*Message, string, error) {
	after, err := decodeCursor(paginationKey)
	if err != nil {
		return nil, "", fmt.Errorf("invalid pagination key: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT seq, id, bot_id, channel_id, user_id, conversation_id, interaction_id, flow_id, step_id,
			direction, interaction_order, message_order, content_type, payload, created_at
		 FROM messages WHERE bot_id=? AND channel_id=? AND user_id=? AND seq > ?
		 ORDER BY seq ASC LIMIT ?`,
		client.BotID, client.ChannelID, client.UserID, after, limit,
	)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []*Message
	var lastSeq int64
	for rows.Next() {
		var seq int64
		var m Message
		var direction, contentType, created string
		var payload []byte
		if err := rows.Scan(&seq, &m.ID, &m.Client.BotID, &m.Client.ChannelID, &m.Client.UserID,
			&m.ConversationID, &m.InteractionID, &m.FlowID, &m.StepID, &direction,
			&m.InteractionOrder, &m.MessageOrder, &contentType, &payload, &created); err != nil {
			return nil, "", err
		}
		m.Direction = Direction(direction)
		m.ContentType = contentType
		m.CreatedAt = parseTime(created)
		plain, err := s.enc.open(payload)
		if err != nil {
			return nil, "", err
		}
		v, err := primitive.UnmarshalJSON(plain)
		if err != nil {
			return nil, "", err
		}
		m.Payload = v
		out = append(out, &m)
		lastSeq = seq
	}
	next := ""
	if len(out) == limit {
		next = encodeCursor(lastSeq)
	}
	return out, next, rows.Err()
}

func (s *SQLiteStore) GetClientConversations(client Client, limit int, paginationKey string) ([]*Conversation, string, error) {
	after, err := decodeCursor(paginationKey)
	if err != nil {
		return nil, "", fmt.Errorf("invalid pagination key: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT rowid, id, bot_id, channel_id, user_id, flow_id, step_id, status, metadata, expires_at, last_interaction_at, updated_at, created_at
		 FROM conversations WHERE bot_id=? AND channel_id=? AND user_id=? AND rowid > ?
		 ORDER BY rowid ASC LIMIT ?`,
		client.BotID, client.ChannelID, client.UserID, after, limit,
	)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []*Conversation
	var lastRowID int64
	for rows.Next() {
		var rowID int64
		var c Conversation
		var status, created, updated, lastInt string
		var metaBytes []byte
		var expires sql.NullString
		if err := rows.Scan(&rowID, &c.ID, &c.Client.BotID, &c.Client.ChannelID, &c.Client.UserID,
			&c.FlowID, &c.StepID, &status, &metaBytes, &expires, &lastInt, &updated, &created); err != nil {
			return nil, "", err
		}
		c.Status = Status(status)
		c.ExpiresAt = parseOptTime(expires)
		c.LastInteractionAt = parseTime(lastInt)
		c.UpdatedAt = parseTime(updated)
		c.CreatedAt = parseTime(created)
		meta, err := s.openJSON(metaBytes)
		if err != nil {
			return nil, "", err
		}
		if m, ok := meta.(map[string]any); ok {
			c.Metadata = m
		}
		out = append(out, &c)
		lastRowID = rowID
	}
	next := ""
	if len(out) == limit {
		next = encodeCursor(lastRowID)
	}
	return out, next, rows.Err()
}

// --- memories ------------------------------------------------------

func (s *SQLiteStore) AddMemories(client Client, memories []Memory, expiresAt *time.Time) error {
	if len(memories) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.addMemoriesTx(tx, client, memories, expiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) addMemoriesTx(q dbtx, client Client, memories []Memory, expiresAt *time.Time) error {
	if len(memories) == 0 {
		return nil
	}
	if expiresAt == nil && s.ttl > 0 {
		t := nowUTC().Add(s.ttl)
		expiresAt = &t
	}

	for _, m := range memories {
		valueJSON, err := primitive.MarshalJSON(m.Value)
		if err != nil {
			return fmt.Errorf("marshal memory value: %w", err)
		}
		value, err := s.enc.seal(valueJSON)
		if err != nil {
			return err
		}
		if m.IsLongTerm() {
			_, err = q.Exec(
				`INSERT INTO memories (id, bot_id, channel_id, user_id, key, value, expires_at, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(bot_id, channel_id, user_id, key) WHERE conversation_id = ''
				 DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at, created_at=excluded.created_at`,
				newID(), client.BotID, client.ChannelID, client.UserID, m.Key, value,
				formatOptTime(expiresAt), formatTime(nowUTC()),
			)
		} else {
			_, err = q.Exec(
				`INSERT INTO memories (id, bot_id, channel_id, user_id, key, value, expires_at, created_at,
					conversation_id, interaction_id, flow_id, step_id, interaction_order, memory_order)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				newID(), client.BotID, client.ChannelID, client.UserID, m.Key, value,
				formatOptTime(expiresAt), formatTime(nowUTC()),
				m.ConversationID, m.InteractionID, m.FlowID, m.StepID, m.InteractionOrder, m.MemoryOrder,
			)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetMemories(client Client) ([]Memory, error) {
	rows, err := s.db.Query(
		`SELECT id, key, value, expires_at, created_at FROM memories
		 WHERE bot_id=? AND channel_id=? AND user_id=? AND conversation_id = ''
		   AND (expires_at IS NULL OR expires_at > ?)`,
		client.BotID, client.ChannelID, client.UserID, formatTime(nowUTC()),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		m.Client = client
		var value []byte
		var expires sql.NullString
		var created string
		if err := rows.Scan(&m.ID, &m.Key, &value, &expires, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(created)
		m.ExpiresAt = parseOptTime(expires)
		plain, err := s.enc.open(value)
		if err != nil {
			return nil, err
		}
		v, err := primitive.UnmarshalJSON(plain)
		if err != nil {
			return nil, err
		}
		m.Value = v
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMemory removes a single long-term memory by key.
func (s *SQLiteStore) DeleteMemory(client Client, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM memories WHERE bot_id=? AND channel_id=? AND user_id=? AND key=? AND conversation_id = ''`,
		client.BotID, client.ChannelID, client.UserID, key,
	)
	return err
}

// DeleteMemories removes every long-term memory for client.
func (s *SQLiteStore) DeleteMemories(client Client) error {
	_, err := s.db.Exec(
		`DELETE FROM memories WHERE bot_id=? AND channel_id=? AND user_id=? AND conversation_id = ''`,
		client.BotID, client.ChannelID, client.UserID,
	)
	return err
}

// --- state (hold frames) ------------------------------------------------------

func (s *SQLiteStore) SetState(client Client, typ, key string, value primitive.Value, expiresAt *time.Time) error {
	return s.setStateTx(s.db, client, typ, key, value, expiresAt)
}

func (s *SQLiteStore) setStateTx(q dbtx, client Client, typ, key string, value primitive.Value, expiresAt *time.Time) error {
	valueJSON, err := primitive.MarshalJSON(value)
	if err != nil {
		return fmt.Errorf("marshal state value: %w", err)
	}
	sealed, err := s.enc.seal(valueJSON)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`INSERT INTO state (bot_id, channel_id, user_id, type, key, value, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bot_id, channel_id, user_id, type, key)
		 DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at, updated_at=excluded.updated_at`,
		client.BotID, client.ChannelID, client.UserID, typ, key, sealed, formatOptTime(expiresAt), formatTime(nowUTC()),
	)
	return err
}

func (s *SQLiteStore) GetState(client Client, typ, key string) (*State, error) {
	row := s.db.QueryRow(
		`SELECT value, expires_at, updated_at FROM state WHERE bot_id=? AND channel_id=? AND user_id=? AND type=? AND key=?`,
		client.BotID, client.ChannelID, client.UserID, typ, key,
	)
	var value []byte
	var expires sql.NullString
	var updated string
	if err := row.Scan(&value, &expires, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	plain, err := s.enc.open(value)
	if err != nil {
		return nil, err
	}
	v, err := primitive.UnmarshalJSON(plain)
	if err != nil {
		return nil, err
	}
	return &State{
		Client: client, Type: typ, Key: key, Value: v,
		ExpiresAt: parseOptTime(expires), UpdatedAt: parseTime(updated),
	}, nil
}

func (s *SQLiteStore) DeleteState(client Client, typ, key string) error {
	return s.deleteStateTx(s.db, client, typ, key)
}

func (s *SQLiteStore) deleteStateTx(q dbtx, client Client, typ, key string) error {
	_, err := q.Exec(
		`DELETE FROM state WHERE bot_id=? AND channel_id=? AND user_id=? AND type=? AND key=?`,
		client.BotID, client.ChannelID, client.UserID, typ, key,
	)
	return err
}

// GetHoldFrame returns client's persisted hold frame, or ErrNotFound.
func (s *SQLiteStore) GetHoldFrame(client Client) (primitive.Value, error) {
	st, err := s.GetState(client, StateTypeHoldFrame, holdFrameKey)
	if err != nil {
		return nil, err
	}
	return st.Value, nil
}

// CommitInteraction performs the engine's end-of-step-loop commit (spec
// §4.7 step 5) as a single transaction: conversation position/status,
// messages, long-term memory writes, hold-frame state, and the
// interaction's final success flag all land together or not at all.
func (s *SQLiteStore) CommitInteraction(p CommitParams) ([]Message, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.updateConversationTx(tx, p.ConversationID, p.Client, &p.FlowID, &p.StepID); err != nil {
		return nil, err
	}
	if p.Status != "" {
		if err := s.closeConversationTx(tx, p.ConversationID, p.Client, p.Status); err != nil {
			return nil, err
		}
	}

	out, err := s.addMessagesTx(tx, p.Client, p.ConversationID, p.InteractionID, p.Messages, DirectionSend)
	if err != nil {
		return nil, err
	}

	if err := s.addMemoriesTx(tx, p.Client, p.MemoryWrites, nil); err != nil {
		return nil, err
	}

	if p.HoldFrame != nil {
		if err := s.setStateTx(tx, p.Client, StateTypeHoldFrame, holdFrameKey, p.HoldFrame, nil); err != nil {
			return nil, err
		}
	} else {
		if err := s.deleteStateTx(tx, p.Client, StateTypeHoldFrame, holdFrameKey); err != nil {
			return nil, err
		}
	}

	if err := s.finishInteractionTx(tx, p.InteractionID, p.Success); err != nil {
		return nil, err
	}

	return out, tx.Commit()
}

// --- bot versions ------------------------------------------------------

func (s *SQLiteStore) CreateBotVersion(b *bot.Bot) (*BotVersion, error) {
	flowsJSON, err := json.Marshal(b.Flows)
	if err != nil {
		return nil, err
	}
	envJSON, err := json.Marshal(b.Env)
	if err != nil {
		return nil, err
	}
	secretsJSON, err := json.Marshal(b.Secrets)
	if err != nil {
		return nil, err
	}
	secretsSealed, err := s.enc.seal(secretsJSON)
	if err != nil {
		return nil, err
	}

	v := &BotVersion{ID: newID(), Bot: b, CreatedAt: nowUTC()}
	_, err = s.db.Exec(
		`INSERT INTO bot_versions (id, bot_id, name, default_flow, flows, env, secrets, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, b.ID, b.Name, b.DefaultFlow, flowsJSON, envJSON, secretsSealed, formatTime(v.CreatedAt),
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLiteStore) scanBotVersion(row interface{ Scan(dest ...any) error }) (*BotVersion, error) {
	var v BotVersion
	var b bot.Bot
	var flowsJSON, envJSON, secretsSealed []byte
	var created string
	if err := row.Scan(&v.ID, &b.ID, &b.Name, &b.DefaultFlow, &flowsJSON, &envJSON, &secretsSealed, &created); err != nil {
		return nil, err
	}
	v.CreatedAt = parseTime(created)
	if err := json.Unmarshal(flowsJSON, &b.Flows); err != nil {
		return nil, err
	}
	if len(envJSON) > 0 {
		if err := json.Unmarshal(envJSON, &b.Env); err != nil {
			return nil, err
		}
	}
	secretsJSON, err := s.enc.open(secretsSealed)
	if err != nil {
		return nil, err
	}
	if len(secretsJSON) > 0 {
		if err := json.Unmarshal(secretsJSON, &b.Secrets); err != nil {
			return nil, err
		}
	}
	v.Bot = &b
	return &v, nil
}

func (s *SQLiteStore) GetBotByVersionID(versionID string) (*BotVersion, error) {
	row := s.db.QueryRow(
		`SELECT id, bot_id, name, default_flow, flows, env, secrets, created_at FROM bot_versions WHERE id=?`,
		versionID,
	)
	v, err := s.scanBotVersion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) GetLastBotVersion(botID string) (*BotVersion, error) {
	row := s.db.QueryRow(
		`SELECT id, bot_id, name, default_flow, flows, env, secrets, created_at FROM bot_versions
		 WHERE bot_id=? ORDER BY created_at DESC LIMIT 1`,
		botID,
	)
	v, err := s.scanBotVersion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) ListVersions(botID string, limit int, paginationKey string) ([]*BotVersion, string, error) {
	after, err := decodeCursor(paginationKey)
	if err != nil {
		return nil, "", fmt.Errorf("invalid pagination key: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT rowid, id, bot_id, name, default_flow, flows, env, secrets, created_at FROM bot_versions
		 WHERE bot_id=? AND rowid > ? ORDER BY rowid ASC LIMIT ?`,
		botID, after, limit,
	)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []*BotVersion
	var lastRowID int64
	for rows.Next() {
		var rowID int64
		var v BotVersion
		var b bot.Bot
		var flowsJSON, envJSON, secretsSealed []byte
		var created string
		if err := rows.Scan(&rowID, &v.ID, &b.ID, &b.Name, &b.DefaultFlow, &flowsJSON, &envJSON, &secretsSealed, &created); err != nil {
			return nil, "", err
		}
		v.CreatedAt = parseTime(created)
		if err := json.Unmarshal(flowsJSON, &b.Flows); err != nil {
			return nil, "", err
		}
		v.Bot = &b
		out = append(out, &v)
		lastRowID = rowID
	}
	next := ""
	if len(out) == limit {
		next = encodeCursor(lastRowID)
	}
	return out, next, rows.Err()
}

func (s *SQLiteStore) DeleteVersion(versionID string) error {
	_, err := s.db.Exec(`DELETE FROM bot_versions WHERE id=?`, versionID)
	return err
}

// --- bulk deletes ------------------------------------------------------

func (s *SQLiteStore) DeleteClient(client Client) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM conversations WHERE bot_id=? AND channel_id=? AND user_id=?`,
		`DELETE FROM interactions WHERE bot_id=? AND channel_id=? AND user_id=?`,
		`DELETE FROM messages WHERE bot_id=? AND channel_id=? AND user_id=?`,
		`DELETE FROM memories WHERE bot_id=? AND channel_id=? AND user_id=?`,
		`DELETE FROM state WHERE bot_id=? AND channel_id=? AND user_id=?`,
	} {
		if _, err := tx.Exec(stmt, client.BotID, client.ChannelID, client.UserID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteAllBotData(botID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM conversations WHERE bot_id=?`,
		`DELETE FROM interactions WHERE bot_id=?`,
		`DELETE FROM messages WHERE bot_id=?`,
		`DELETE FROM memories WHERE bot_id=?`,
		`DELETE FROM state WHERE bot_id=?`,
		`DELETE FROM bot_versions WHERE bot_id=?`,
	} {
		if _, err := tx.Exec(stmt, botID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteExpired purges every conversation, memory, and state row past its
// expires_at, returning how many rows were removed in total,
// implementing spec §6's delete_expired_data. Run periodically by
// internal/sweeper.
func (s *SQLiteStore) DeleteExpired() (int, error) {
	now := formatTime(nowUTC())
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	total := 0
	for _, stmt := range []string{
		`DELETE FROM conversations WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		`DELETE FROM memories WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		`DELETE FROM state WHERE expires_at IS NOT NULL AND expires_at <= ?`,
	} {
		res, err := tx.Exec(stmt, now)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += int(n)
	}
	return total, tx.Commit()
}

// --- encrypted JSON helpers ------------------------------------------------------

func (s *SQLiteStore) sealJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return s.enc.seal(data)
}

func (s *SQLiteStore) openJSON(sealed []byte) (any, error) {
	if sealed == nil {
		return map[string]any{}, nil
	}
	data, err := s.enc.open(sealed)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var _ Store = (*SQLiteStore)(nil)
