// Copyright 2026 The Branchgate Authors
// SPDX-License-Identifier: Apache-2.0

package rulestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/branchgate/branchgate/lib/branchrule"
)

// ErrRuleNotFound is returned when a branch identifier resolves to no
// rule. Admin commands render it as a "branch not found" reply; commit
// evaluation never sees it (paths that match nothing simply produce no
// rules).
var ErrRuleNotFound = errors.New("branch rule not found")

// schema is applied once per pooled connection. CREATE IF NOT EXISTS
// makes it idempotent across connections and restarts.
const schema = `
CREATE TABLE IF NOT EXISTS branch_rule (
	id                   INTEGER PRIMARY KEY,
	name                 TEXT NOT NULL UNIQUE CHECK (name != ''),
	alias                TEXT NOT NULL DEFAULT '',
	locked               INTEGER NOT NULL DEFAULT 0,
	permanent_whitelist  TEXT NOT NULL DEFAULT '',
	disposable_whitelist TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS branch_rule_alias ON branch_rule(alias);
`

// Config holds the parameters for opening a rule store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// file is created if it does not exist. Use ":memory:" with
	// PoolSize 1 for tests.
	Path string

	// PoolSize is the number of pooled connections. Defaults to
	// max(runtime.NumCPU(), 4) when zero or negative. Writes are
	// serialized by SQLite regardless; extra connections serve
	// concurrent commit evaluations (reads).
	PoolSize int

	// CaseInsensitive folds ASCII case when matching branch names and
	// aliases, both for path matching and identifier lookup. The
	// default is exact comparison.
	CaseInsensitive bool

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Store is the durable table of branch rules plus the whitelist
// ledger. Safe for concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	fold   bool
	logger *slog.Logger
	path   string
}

// Open creates the connection pool and prepares the schema. The
// caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("rulestore: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("rulestore: opening %s: %w", cfg.Path, err)
	}

	logger.Info("rule store opened",
		"path", cfg.Path,
		"pool_size", poolSize,
		"case_insensitive", cfg.CaseInsensitive,
	)

	return &Store{
		pool:   pool,
		fold:   cfg.CaseInsensitive,
		logger: logger,
		path:   cfg.Path,
	}, nil
}

// prepareConnection applies the standard pragmas and the schema. Runs
// once per connection on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("rulestore: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("rulestore: applying schema: %w", err)
	}
	return nil
}

// Close closes the pool. Blocks until all borrowed connections are
// returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("rulestore: closing %s: %w", s.path, err)
	}
	s.logger.Info("rule store closed", "path", s.path)
	return nil
}

// CaseInsensitive reports the identifier match mode the store was
// opened with.
func (s *Store) CaseInsensitive() bool {
	return s.fold
}

// Rules returns all branch rules ordered by rowid.
func (s *Store) Rules(ctx context.Context) ([]branchrule.Rule, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	return allRules(conn)
}

// RulesMatchingPaths returns every rule whose name or alias appears as
// a substring in any of the changed paths. Rules are returned in rowid
// order with no duplicates.
func (s *Store) RulesMatchingPaths(ctx context.Context, paths []string) ([]branchrule.Rule, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	rules, err := allRules(conn)
	if err != nil {
		return nil, err
	}

	var matched []branchrule.Rule
	for _, rule := range rules {
		for _, path := range paths {
			if rule.MatchesPath(path, s.fold) {
				matched = append(matched, rule)
				break
			}
		}
	}
	return matched, nil
}

// RuleByIdentifier resolves a branch name or alias to its rule.
// Returns ErrRuleNotFound when nothing matches. When more than one
// rule matches (duplicate alias, which provisioning should prevent),
// the lowest rowid wins.
func (s *Store) RuleByIdentifier(ctx context.Context, identifier string) (branchrule.Rule, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return branchrule.Rule{}, fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	return s.ruleByIdentifier(conn, identifier)
}

// CreateRule inserts a new branch rule. The name must be unique and
// non-empty; whitelists and the lock flag are taken as given.
func (s *Store) CreateRule(ctx context.Context, rule branchrule.Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("rulestore: rule name is required")
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	locked := 0
	if rule.Locked {
		locked = 1
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO branch_rule (name, alias, locked, permanent_whitelist, disposable_whitelist)
		 VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				rule.Name,
				rule.Alias,
				locked,
				branchrule.JoinUsers(rule.Permanent),
				branchrule.JoinUsers(rule.Disposable),
			},
		})
	if err != nil {
		return fmt.Errorf("rulestore: creating rule %q: %w", rule.Name, err)
	}

	s.logger.Info("branch rule created", "branch", rule.Name, "alias", rule.Alias)
	return nil
}

// SetLocked updates the lock flag on the rule matching identifier.
// Returns whether a row actually changed: false both when the
// identifier resolves to nothing and when the flag already had the
// requested value, mirroring what the reply layer reports.
func (s *Store) SetLocked(ctx context.Context, identifier string, locked bool) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return false, fmt.Errorf("rulestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	rule, err := s.ruleByIdentifier(conn, identifier)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return false, nil
		}
		return false, err
	}
	if rule.Locked == locked {
		return false, nil
	}

	value := 0
	if locked {
		value = 1
	}
	err = sqlitex.Execute(conn,
		"UPDATE branch_rule SET locked = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{value, rule.ID}})
	if err != nil {
		return false, fmt.Errorf("rulestore: setting lock on %q: %w", identifier, err)
	}

	s.logger.Info("branch lock updated", "branch", rule.Name, "locked", locked)
	return true, nil
}

// GrantPermanent adds user to the permanent whitelist of the rule
// matching identifier. Idempotent: a user already present is not
// duplicated and the call still succeeds. Returns ErrRuleNotFound when
// the identifier resolves to nothing.
func (s *Store) GrantPermanent(ctx context.Context, identifier, user string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("rulestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	rule, err := s.ruleByIdentifier(conn, identifier)
	if err != nil {
		return err
	}

	permanent, added := branchrule.AddUnique(rule.Permanent, user)
	if !added {
		return nil
	}

	err = sqlitex.Execute(conn,
		"UPDATE branch_rule SET permanent_whitelist = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{branchrule.JoinUsers(permanent), rule.ID}})
	if err != nil {
		return fmt.Errorf("rulestore: granting permanent on %q: %w", identifier, err)
	}

	s.logger.Info("permanent whitelist grant", "branch", rule.Name, "user", user)
	return nil
}

// GrantDisposable appends one redeemable occurrence of user to the
// disposable whitelist of the rule matching identifier. Never
// deduplicates: each grant stacks. Returns ErrRuleNotFound when the
// identifier resolves to nothing.
func (s *Store) GrantDisposable(ctx context.Context, identifier, user string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("rulestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	rule, err := s.ruleByIdentifier(conn, identifier)
	if err != nil {
		return err
	}

	disposable := append(rule.Disposable, user)
	err = sqlitex.Execute(conn,
		"UPDATE branch_rule SET disposable_whitelist = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{branchrule.JoinUsers(disposable), rule.ID}})
	if err != nil {
		return fmt.Errorf("rulestore: granting disposable on %q: %w", identifier, err)
	}

	s.logger.Info("one-time grant added",
		"branch", rule.Name,
		"user", user,
		"outstanding", len(disposable),
	)
	return nil
}

// RedeemDisposable atomically removes one occurrence of user from the
// disposable whitelist of the rule matching identifier. Returns
// whether a removal occurred; false with no error when the user holds
// no grant. The read-modify-write runs inside one IMMEDIATE
// transaction, so two concurrent redemptions of a single remaining
// grant yield exactly one success.
func (s *Store) RedeemDisposable(ctx context.Context, identifier, user string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("rulestore: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return false, fmt.Errorf("rulestore: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	rule, err := s.ruleByIdentifier(conn, identifier)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return false, nil
		}
		return false, err
	}

	disposable, removed := branchrule.RemoveOne(rule.Disposable, user)
	if !removed {
		return false, nil
	}

	err = sqlitex.Execute(conn,
		"UPDATE branch_rule SET disposable_whitelist = ? WHERE id = ?",
		&sqlitex.ExecOptions{Args: []any{branchrule.JoinUsers(disposable), rule.ID}})
	if err != nil {
		return false, fmt.Errorf("rulestore: redeeming disposable on %q: %w", identifier, err)
	}

	s.logger.Info("one-time grant redeemed",
		"branch", rule.Name,
		"user", user,
		"remaining", len(disposable),
	)
	return true, nil
}

// ruleByIdentifier resolves identifier against all rules on the given
// connection. Matching is done in Go so that the fold mode applies
// uniformly to lookups and path matching.
func (s *Store) ruleByIdentifier(conn *sqlite.Conn, identifier string) (branchrule.Rule, error) {
	rules, err := allRules(conn)
	if err != nil {
		return branchrule.Rule{}, err
	}
	for _, rule := range rules {
		if rule.MatchesIdentifier(identifier, s.fold) {
			return rule, nil
		}
	}
	return branchrule.Rule{}, fmt.Errorf("rulestore: %q: %w", identifier, ErrRuleNotFound)
}

// allRules reads every branch_rule row in rowid order.
func allRules(conn *sqlite.Conn) ([]branchrule.Rule, error) {
	var rules []branchrule.Rule
	err := sqlitex.Execute(conn,
		`SELECT id, name, alias, locked, permanent_whitelist, disposable_whitelist
		 FROM branch_rule ORDER BY id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rules = append(rules, branchrule.Rule{
					ID:         stmt.ColumnInt64(0),
					Name:       stmt.ColumnText(1),
					Alias:      stmt.ColumnText(2),
					Locked:     stmt.ColumnInt64(3) != 0,
					Permanent:  branchrule.SplitUsers(stmt.ColumnText(4)),
					Disposable: branchrule.SplitUsers(stmt.ColumnText(5)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("rulestore: reading rules: %w", err)
	}
	return rules, nil
}
