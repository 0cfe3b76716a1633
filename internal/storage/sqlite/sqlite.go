package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/0x5457/stitcher/internal/models"
	"github.com/0x5457/stitcher/internal/storage"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverModernc is the pure-Go driver and the default.
	DriverModernc = "sqlite"
	// DriverCGO selects mattn/go-sqlite3.
	DriverCGO = "sqlite3"
)

type IndexStore struct {
	db *sql.DB
}

func New(path string) (*IndexStore, error) {
	return Open(path, DriverModernc)
}

func Open(path, driver string) (*IndexStore, error) {
	var dsn string
	switch driver {
	case "", DriverModernc:
		driver = DriverModernc
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", path)
	case DriverCGO:
		dsn = fmt.Sprintf("file:%s?_busy_timeout=2000&_journal_mode=WAL", path)
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return &IndexStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS symbols (
		id TEXT PRIMARY KEY,
		fqn TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		file TEXT NOT NULL,
		start_line INTEGER,
		start_col INTEGER,
		end_line INTEGER,
		end_col INTEGER,
		start_byte INTEGER,
		end_byte INTEGER,
		signature_hash TEXT,
		parent_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_fqn ON symbols(fqn);
	CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);
	CREATE TABLE IF NOT EXISTS refs (
		file TEXT NOT NULL,
		target_fqn TEXT NOT NULL,
		target_id TEXT,
		kind TEXT NOT NULL,
		start_line INTEGER,
		start_col INTEGER,
		end_line INTEGER,
		end_col INTEGER,
		start_byte INTEGER,
		end_byte INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target_fqn);
	CREATE INDEX IF NOT EXISTS idx_refs_file ON refs(file);`)
	return err
}

func (s *IndexStore) UpsertFile(file models.FileIndex) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := deleteFileTx(tx, file.Path); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO files(path, content_hash) VALUES(?, ?)`,
		file.Path, file.ContentHash,
	); err != nil {
		_ = tx.Rollback()
		return err
	}

	symStmt, err := tx.Prepare(`INSERT INTO symbols(
		id,fqn,name,kind,file,start_line,start_col,end_line,end_col,start_byte,end_byte,signature_hash,parent_id)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
		fqn=excluded.fqn,
		name=excluded.name,
		kind=excluded.kind,
		file=excluded.file,
		start_line=excluded.start_line,
		start_col=excluded.start_col,
		end_line=excluded.end_line,
		end_col=excluded.end_col,
		start_byte=excluded.start_byte,
		end_byte=excluded.end_byte,
		signature_hash=excluded.signature_hash,
		parent_id=excluded.parent_id`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = symStmt.Close() }()
	for _, sym := range file.Symbols {
		args := []any{sym.ID, sym.FQN, sym.Name, string(sym.Kind), file.Path}
		args = append(args, rangeArgs(sym.Range)...)
		args = append(args, sym.SignatureHash, sym.ParentID)
		if _, err := symStmt.Exec(args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	refStmt, err := tx.Prepare(`INSERT INTO refs(
		file,target_fqn,target_id,kind,start_line,start_col,end_line,end_col,start_byte,end_byte)
		VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = refStmt.Close() }()
	for _, ref := range file.References {
		args := []any{file.Path, ref.TargetFQN, ref.TargetID, string(ref.Kind)}
		args = append(args, rangeArgs(ref.Range)...)
		if _, err := refStmt.Exec(args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *IndexStore) DeleteFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := deleteFileTx(tx, path); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func deleteFileTx(tx *sql.Tx, path string) error {
	for _, q := range []string{
		`DELETE FROM refs WHERE file = ?`,
		`DELETE FROM symbols WHERE file = ?`,
		`DELETE FROM files WHERE path = ?`,
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return err
		}
	}
	return nil
}

const symbolColumns = `id,fqn,name,kind,file,start_line,start_col,end_line,end_col,start_byte,end_byte,signature_hash,parent_id`

func (s *IndexStore) FindSymbol(fqn string) (*models.Symbol, error) {
	return s.oneSymbol(`SELECT `+symbolColumns+` FROM symbols WHERE fqn = ? ORDER BY file LIMIT 1`, fqn)
}

func (s *IndexStore) FindSymbolByID(id string) (*models.Symbol, error) {
	return s.oneSymbol(`SELECT `+symbolColumns+` FROM symbols WHERE id = ?`, id)
}

func (s *IndexStore) SymbolsInFile(path string) ([]models.Symbol, error) {
	return s.symbols(`SELECT `+symbolColumns+` FROM symbols WHERE file = ? ORDER BY rowid`, path)
}

func (s *IndexStore) SymbolsUnder(prefix string) ([]models.Symbol, error) {
	dotted := prefix + "."
	return s.symbols(
		`SELECT `+symbolColumns+` FROM symbols WHERE fqn = ? OR substr(fqn, 1, ?) = ? ORDER BY fqn`,
		prefix, utf8.RuneCountInString(dotted), dotted,
	)
}

func (s *IndexStore) oneSymbol(query string, args ...any) (*models.Symbol, error) {
	syms, err := s.symbols(query, args...)
	if err != nil || len(syms) == 0 {
		return nil, err
	}
	return &syms[0], nil
}

func (s *IndexStore) symbols(query string, args ...any) ([]models.Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Symbol
	for rows.Next() {
		var sym models.Symbol
		var kind string
		var sig, parent sql.NullString
		var r nullRange
		if err := rows.Scan(
			&sym.ID, &sym.FQN, &sym.Name, &kind, &sym.FilePath,
			&r.startLine, &r.startCol, &r.endLine, &r.endCol, &r.startByte, &r.endByte,
			&sig, &parent,
		); err != nil {
			return nil, err
		}
		sym.Kind = models.StringToSymbolKind(kind)
		sym.Range = r.toRange()
		sym.SignatureHash = sig.String
		sym.ParentID = parent.String
		out = append(out, sym)
	}
	return out, rows.Err()
}

const refColumns = `file,target_fqn,target_id,kind,start_line,start_col,end_line,end_col,start_byte,end_byte`

func (s *IndexStore) FindReferencesTo(fqn string) ([]models.Reference, error) {
	return s.references(`SELECT `+refColumns+` FROM refs WHERE target_fqn = ? ORDER BY file, rowid`, fqn)
}

func (s *IndexStore) FindReferencesUnder(prefix string) ([]models.Reference, error) {
	dotted := prefix + "."
	return s.references(
		`SELECT `+refColumns+` FROM refs WHERE target_fqn = ? OR substr(target_fqn, 1, ?) = ? ORDER BY file, rowid`,
		prefix, utf8.RuneCountInString(dotted), dotted,
	)
}

func (s *IndexStore) ReferencesInFile(path string) ([]models.Reference, error) {
	return s.references(`SELECT `+refColumns+` FROM refs WHERE file = ? ORDER BY rowid`, path)
}

func (s *IndexStore) AllReferences() ([]models.Reference, error) {
	return s.references(`SELECT ` + refColumns + ` FROM refs ORDER BY file, rowid`)
}

func (s *IndexStore) references(query string, args ...any) ([]models.Reference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Reference
	for rows.Next() {
		var ref models.Reference
		var kind string
		var targetID sql.NullString
		var r nullRange
		if err := rows.Scan(
			&ref.SourceFile, &ref.TargetFQN, &targetID, &kind,
			&r.startLine, &r.startCol, &r.endLine, &r.endCol, &r.startByte, &r.endByte,
		); err != nil {
			return nil, err
		}
		ref.Kind = models.ReferenceKind(kind)
		ref.TargetID = targetID.String
		ref.Range = r.toRange()
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (s *IndexStore) ListFiles() ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *IndexStore) GetContentHash(path string) (string, bool, error) {
	var hash string
	err := s.db.QueryRow(`SELECT content_hash FROM files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

func (s *IndexStore) Close() error {
	return s.db.Close()
}

type nullRange struct {
	startLine, startCol, endLine, endCol, startByte, endByte sql.NullInt64
}

func (r nullRange) toRange() *models.Range {
	if !r.startLine.Valid {
		return nil
	}
	return &models.Range{
		StartLine: int(r.startLine.Int64),
		StartCol:  int(r.startCol.Int64),
		EndLine:   int(r.endLine.Int64),
		EndCol:    int(r.endCol.Int64),
		StartByte: int(r.startByte.Int64),
		EndByte:   int(r.endByte.Int64),
	}
}

func rangeArgs(r *models.Range) []any {
	if r == nil {
		return []any{nil, nil, nil, nil, nil, nil}
	}
	return []any{r.StartLine, r.StartCol, r.EndLine, r.EndCol, r.StartByte, r.EndByte}
}

var _ storage.IndexStore = (*IndexStore)(nil)
