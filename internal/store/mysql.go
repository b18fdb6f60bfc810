package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/sqlutil"
	"github.com/dbsmedya/godelegate/internal/types"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS %s (
	wallet_key CHAR(36) NOT NULL PRIMARY KEY,
	identity_key VARCHAR(512) NOT NULL,
	scope VARCHAR(128) NOT NULL,
	delegate CHAR(66) NOT NULL,
	delegator CHAR(66) NOT NULL,
	variant VARCHAR(64) NOT NULL DEFAULT '',
	kind VARCHAR(16) NOT NULL,
	proxy_kind VARCHAR(64) NOT NULL DEFAULT '',
	threshold INT NOT NULL DEFAULT 0,
	signatories TEXT,
	status VARCHAR(16) NOT NULL,
	display_name VARCHAR(255) NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uk_identity (identity_key),
	INDEX idx_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// MySQLStore keeps wallets in one table. Rows are keyed by a UUID wallet key
// and unique by identity.
type MySQLStore struct {
	db     *sql.DB
	table  string // quoted
	logger *logger.Logger
}

// NewMySQLStore validates table and returns a store over db.
func NewMySQLStore(db *sql.DB, table string, log *logger.Logger) (*MySQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	quoted, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, fmt.Errorf("wallet table: %w", err)
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &MySQLStore{db: db, table: quoted, logger: log}, nil
}

// InitializeTable creates the wallet table if it does not exist.
func (s *MySQLStore) InitializeTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createTableSQL, s.table)); err != nil {
		return fmt.Errorf("failed to create wallet table %s: %w", s.table, err)
	}
	s.logger.Debugf("Wallet table %s ready", s.table)
	return nil
}

// Load returns every stored wallet ordered by identity.
func (s *MySQLStore) Load(ctx context.Context) ([]types.KnownWallet, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT wallet_key, scope, delegate, delegator, variant, kind, proxy_kind, threshold, signatories, status, display_name FROM %s ORDER BY identity_key",
		s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("Failed to close rows: %v", err)
		}
	}()

	var out []types.KnownWallet
	for rows.Next() {
		var (
			r           record
			signatories sql.NullString
			name        sql.NullString
		)
		if err := rows.Scan(&r.WalletKey, &r.Scope, &r.Delegate, &r.Delegator, &r.Variant,
			&r.Kind, &r.ProxyKind, &r.Threshold, &signatories, &r.Status, &name); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		r.Signatories = signatories.String
		if name.Valid {
			n := name.String
			r.DisplayName = &n
		}

		k, err := r.known()
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallets: %w", err)
	}

	s.logger.Debugf("Loaded %d wallets from %s", len(out), s.table)
	return out, nil
}

// Apply writes cs in one transaction. Existing rows keep their wallet key.
func (s *MySQLStore) Apply(ctx context.Context, cs types.ChangeSet) (err error) {
	if cs.IsEmpty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warnf("Rollback failed: %v", rbErr)
			}
		}
	}()

	upsert := fmt.Sprintf(`INSERT INTO %s
	(wallet_key, identity_key, scope, delegate, delegator, variant, kind, proxy_kind, threshold, signatories, status, display_name)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE kind = VALUES(kind), proxy_kind = VALUES(proxy_kind), threshold = VALUES(threshold),
	signatories = VALUES(signatories), status = VALUES(status), display_name = VALUES(display_name)`, s.table)

	for _, w := range cs.Upserts {
		r := toRecord(uuid.NewString(), w)
		if _, err = tx.ExecContext(ctx, upsert,
			r.WalletKey, w.Identity.Key(), r.Scope, r.Delegate, r.Delegator, r.Variant,
			r.Kind, r.ProxyKind, r.Threshold, r.Signatories, r.Status, r.DisplayName,
		); err != nil {
			return fmt.Errorf("failed to upsert wallet %s: %w", w.Identity, err)
		}
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE identity_key = ?", s.table)
	for _, id := range cs.Deletions {
		if _, err = tx.ExecContext(ctx, del, id.Key()); err != nil {
			return fmt.Errorf("failed to delete wallet %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit change set: %w", err)
	}

	s.logger.Infof("Applied %d upserts and %d deletions to %s", len(cs.Upserts), len(cs.Deletions), s.table)
	return nil
}

// Close is a no-op; the connection belongs to the database manager.
func (s *MySQLStore) Close() error {
	return nil
}
