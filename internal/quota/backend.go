package quota

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"
)

// Backend kinds accepted by OpenBackend
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendDatabase = "database"
)

// DefaultFileName is the ledger file used when no path is configured
const DefaultFileName = "api_limit_count.json"

// OpenBackend builds the backend named by kind. db is only needed for BackendDatabase.
func OpenBackend(kind, path string, db *sqlx.DB) (Backend, error) {
	switch kind {
	case "", BackendFile:
		if path == "" {
			path = DefaultFileName
		}
		return NewFileBackend(afero.NewOsFs(), path), nil
	case BackendMemory:
		return NewMemoryBackend(nil), nil
	case BackendDatabase:
		if db == nil {
			return nil, errors.New("database quota backend requires a database connection")
		}
		return NewSQLBackend(db), nil
	default:
		return nil, fmt.Errorf("unknown quota backend %q", kind)
	}
}

// FileBackend stores the state as a JSON document
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend creates a file backend on fsys
func NewFileBackend(fsys afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fsys, path: path}
}

// Path returns the ledger file location
func (b *FileBackend) Path() string { return b.path }

// Load reads the ledger file. A missing file is reported as not found.
func (b *FileBackend) Load(ctx context.Context) (model.QuotaState, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.QuotaState{}, false, err
	}

	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.QuotaState{}, false, nil
		}
		return model.QuotaState{}, false, fmt.Errorf("read %s: %w", b.path, err)
	}

	var state model.QuotaState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.QuotaState{}, false, fmt.Errorf("decode %s: %w", b.path, err)
	}
	return state, true, nil
}

// Store writes the state to a temporary file next to the ledger and renames
// it into place, so readers see either the previous or the new document.
func (b *FileBackend) Store(ctx context.Context, state model.QuotaState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode quota state: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(b.fs, dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = b.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := b.fs.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	committed = true
	return nil
}

// MemoryBackend keeps the state in process memory
type MemoryBackend struct {
	mu    sync.Mutex
	state model.QuotaState
	found bool
}

// NewMemoryBackend creates a memory backend, optionally seeded with a state
func NewMemoryBackend(initial *model.QuotaState) *MemoryBackend {
	b := &MemoryBackend{}
	if initial != nil {
		b.state = *initial
		b.found = true
	}
	return b
}

func (b *MemoryBackend) Load(ctx context.Context) (model.QuotaState, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.found, nil
}

func (b *MemoryBackend) Store(ctx context.Context, state model.QuotaState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
	b.found = true
	return nil
}

// SQLBackend stores the state in the single-row quota_ledger table
type SQLBackend struct {
	db *sqlx.DB
}

// NewSQLBackend creates a database backend
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

func (b *SQLBackend) Load(ctx context.Context) (model.QuotaState, bool, error) {
	query := `
		SELECT daily_limit, remaining, last_update
		FROM quota_ledger
		WHERE id = 1
	`

	var state model.QuotaState
	err := b.db.GetContext(ctx, &state, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.QuotaState{}, false, nil
		}
		return model.QuotaState{}, false, err
	}
	return state, true, nil
}

func (b *SQLBackend) Store(ctx context.Context, state model.QuotaState) error {
	query := `
		INSERT INTO quota_ledger (id, daily_limit, remaining, last_update, updated_at)
		VALUES (1, $1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (id)
		DO UPDATE SET
			daily_limit = EXCLUDED.daily_limit,
			remaining = EXCLUDED.remaining,
			last_update = EXCLUDED.last_update,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := b.db.ExecContext(ctx, query, state.Limit, state.Remaining, state.LastReset)
	return err
}
