package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/bluo42/adu-chatbot/internal/corpus"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Use advisory lock to prevent concurrent migrations from multiple services.
	// Note: In production, use dedicated migration tools (e.g., golang-migrate/migrate)
	// that run as a separate deployment step before app services start.
	const lockID = 987654321 // arbitrary number for this application's migration lock

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			seq BIGSERIAL,
			conversation_id UUID REFERENCES conversations(id) ON DELETE CASCADE,
			author TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_idx
			ON messages (conversation_id, seq);`,
		`CREATE TABLE IF NOT EXISTS corpus_documents (
			id UUID PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			category TEXT NOT NULL,
			statewide BOOLEAN NOT NULL DEFAULT false,
			status TEXT NOT NULL,
			file_id TEXT NOT NULL DEFAULT '',
			pages INT NOT NULL DEFAULT 0,
			section_refs TEXT[] NOT NULL DEFAULT '{}',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS assistant_state (
			singleton BOOLEAN PRIMARY KEY DEFAULT true CHECK (singleton),
			assistant_id TEXT NOT NULL DEFAULT '',
			vector_store_id TEXT NOT NULL DEFAULT ''
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateConversation(ctx context.Context, role, greeting string) (Conversation, error) {
	id := uuid.New()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Conversation{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO conversations(id, role) VALUES($1,$2)`, id, role); err != nil {
		return Conversation{}, err
	}
	if greeting != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages(id, conversation_id, author, content) VALUES($1,$2,$3,$4)`,
			uuid.New(), id, AuthorAssistant, greeting); err != nil {
			return Conversation{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Conversation{}, err
	}
	return Conversation{ID: id, Role: role, CreatedAt: time.Now()}, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	var c Conversation
	row := s.db.QueryRowContext(ctx, `SELECT id, role, created_at FROM conversations WHERE id=$1`, id)
	if err := row.Scan(&c.ID, &c.Role, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("failed to get conversation %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) SetConversationRole(ctx context.Context, id uuid.UUID, role string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET role=$1 WHERE id=$2`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, author Author, content string) (Message, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(id, conversation_id, author, content) VALUES($1,$2,$3,$4)`,
		id, conversationID, author, content)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:             id,
		ConversationID: conversationID,
		Author:         author,
		Content:        content,
		CreatedAt:      time.Now(),
	}, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	// seq keeps transcript order deterministic; created_at can collide
	// when two turns land within the same microsecond.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author, content, created_at FROM messages
		 WHERE conversation_id=$1 ORDER BY seq`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Author, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ConversationID = conversationID
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertCorpusDocument(ctx context.Context, filename string, category corpus.Category, statewide bool) (CorpusDocument, error) {
	id := uuid.New()
	var doc CorpusDocument
	// Re-syncing an existing file resets it to pending for re-upload.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO corpus_documents(id, filename, category, statewide, status)
		VALUES($1,$2,$3,$4,$5)
		ON CONFLICT (filename) DO UPDATE
			SET category=excluded.category, statewide=excluded.statewide,
			    status=excluded.status, error=''
		RETURNING id, filename, category, statewide, status, file_id, pages, section_refs, error, created_at`,
		id, filename, category, statewide, StatusPending)
	if err := scanDocument(row, &doc); err != nil {
		return CorpusDocument{}, err
	}
	return doc, nil
}

func (s *PostgresStore) UpdateCorpusDocument(ctx context.Context, id uuid.UUID, update DocumentUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE corpus_documents
		SET status=$1,
		    file_id=COALESCE(NULLIF($2,''), file_id),
		    pages=CASE WHEN $3 > 0 THEN $3 ELSE pages END,
		    section_refs=CASE WHEN array_length($4::TEXT[],1) IS NOT NULL THEN $4::TEXT[] ELSE section_refs END,
		    error=$5
		WHERE id=$6`,
		update.Status, update.FileID, update.Pages, pq.Array(stringArray(update.SectionRefs)), update.Error, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetCorpusDocument(ctx context.Context, id uuid.UUID) (CorpusDocument, error) {
	var doc CorpusDocument
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, category, statewide, status, file_id, pages, section_refs, error, created_at
		FROM corpus_documents WHERE id=$1`, id)
	if err := scanDocument(row, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CorpusDocument{}, ErrNotFound
		}
		return CorpusDocument{}, fmt.Errorf("failed to get corpus document %s: %w", id, err)
	}
	return doc, nil
}

func (s *PostgresStore) ListCorpusDocuments(ctx context.Context) ([]CorpusDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, category, statewide, status, file_id, pages, section_refs, error, created_at
		FROM corpus_documents
		ORDER BY statewide DESC, category, filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CorpusDocument
	for rows.Next() {
		var doc CorpusDocument
		if err := scanDocument(rows, &doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LoadAssistantState(ctx context.Context) (AssistantState, error) {
	var state AssistantState
	row := s.db.QueryRowContext(ctx, `SELECT assistant_id, vector_store_id FROM assistant_state WHERE singleton`)
	if err := row.Scan(&state.AssistantID, &state.VectorStoreID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AssistantState{}, ErrNotFound
		}
		return AssistantState{}, err
	}
	return state, nil
}

func (s *PostgresStore) SaveAssistantState(ctx context.Context, state AssistantState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assistant_state(singleton, assistant_id, vector_store_id)
		VALUES(true, $1, $2)
		ON CONFLICT (singleton) DO UPDATE
			SET assistant_id=excluded.assistant_id, vector_store_id=excluded.vector_store_id`,
		state.AssistantID, state.VectorStoreID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, doc *CorpusDocument) error {
	var refs []string
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Category, &doc.Statewide, &doc.Status,
		&doc.FileID, &doc.Pages, pq.Array(&refs), &doc.Error, &doc.CreatedAt); err != nil {
		return err
	}
	doc.SectionRefs = refs
	return nil
}

func stringArray(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return items
}
