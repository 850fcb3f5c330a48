// Package sqlite implements the storage contract on SQLite. It is the
// default backend: a single file (or :memory: for tests), no external
// service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
)

const schema = `
CREATE TABLE IF NOT EXISTS routing_rules (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	priority    INTEGER NOT NULL DEFAULT 50,
	is_active   INTEGER NOT NULL DEFAULT 1,
	conditions  TEXT NOT NULL DEFAULT '[]',
	action      TEXT NOT NULL DEFAULT '{}',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS routing_feedback (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id        TEXT NOT NULL,
	ticket_id      TEXT NOT NULL,
	was_correct    INTEGER NOT NULL,
	actual_team_id TEXT NOT NULL DEFAULT '',
	score          REAL NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_rule ON routing_feedback(rule_id);

CREATE TABLE IF NOT EXISTS team_members (
	user_id              TEXT PRIMARY KEY,
	team_id              TEXT NOT NULL,
	name                 TEXT NOT NULL DEFAULT '',
	role                 TEXT NOT NULL DEFAULT '',
	active               INTEGER NOT NULL DEFAULT 1,
	active_tickets       INTEGER NOT NULL DEFAULT 0,
	avg_resolution_hours REAL NOT NULL DEFAULT 0,
	skills               TEXT NOT NULL DEFAULT '[]',
	availability         TEXT NOT NULL DEFAULT 'offline',
	workload_pct         REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_members_team ON team_members(team_id);
`

// Adapter implements storage.Storage on a SQLite database.
type Adapter struct {
	db *sql.DB
}

// New opens (and if needed creates) the database at path and applies the
// schema.
func New(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY on concurrent writes and
	// keeps :memory: databases coherent across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &Adapter{db: db}, nil
}

// CreateRule inserts a new rule row.
func (a *Adapter) CreateRule(ctx context.Context, rule *routing.RoutingRule) error {
	conditions, action, err := encodeRule(rule)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO routing_rules (id, name, priority, is_active, conditions, action, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.Name, rule.Priority, rule.IsActive, conditions, action, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// UpdateRule rewrites an existing rule row.
func (a *Adapter) UpdateRule(ctx context.Context, rule *routing.RoutingRule) error {
	conditions, action, err := encodeRule(rule)
	if err != nil {
		return err
	}

	result, err := a.db.ExecContext(ctx,
		`UPDATE routing_rules SET name = ?, priority = ?, is_active = ?, conditions = ?, action = ?, updated_at = ?
		 WHERE id = ?`,
		rule.Name, rule.Priority, rule.IsActive, conditions, action, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("rule %s not found", rule.ID)
	}
	return nil
}

// DeleteRule removes a rule row and its feedback.
func (a *Adapter) DeleteRule(ctx context.Context, ruleID string) (bool, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM routing_rules WHERE id = ?`, ruleID)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	if _, err := a.db.ExecContext(ctx, `DELETE FROM routing_feedback WHERE rule_id = ?`, ruleID); err != nil {
		return true, fmt.Errorf("failed to delete rule feedback: %w", err)
	}
	return true, nil
}

// GetRule reads one rule with its feedback, or (nil, nil) when absent.
func (a *Adapter) GetRule(ctx context.Context, ruleID string) (*routing.RoutingRule, error) {
	row := a.db.QueryRowContext(ctx,
		`SELECT id, name, priority, is_active, conditions, action, created_at, updated_at
		 FROM routing_rules WHERE id = ?`, ruleID)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	feedback, err := a.ListFeedback(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	rule.Feedback = feedback
	return rule, nil
}

// ListRules reads rules sorted by priority descending, feedback attached.
func (a *Adapter) ListRules(ctx context.Context, activeOnly bool) ([]*routing.RoutingRule, error) {
	query := `SELECT id, name, priority, is_active, conditions, action, created_at, updated_at
		 FROM routing_rules`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var out []*routing.RoutingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := a.attachFeedback(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendFeedback inserts one feedback row. Feedback requires an existing
// rule; orphan rows could never feed the accuracy adjustment.
func (a *Adapter) AppendFeedback(ctx context.Context, feedback routing.RoutingFeedback) error {
	var exists int
	err := a.db.QueryRowContext(ctx,
		`SELECT 1 FROM routing_rules WHERE id = ?`, feedback.RuleID).Scan(&exists)
	if err == sql.ErrNoRows {
		return errors.NotFoundError("rule")
	}
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO routing_feedback (rule_id, ticket_id, was_correct, actual_team_id, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		feedback.RuleID, feedback.TicketID, feedback.WasCorrect, feedback.ActualTeamID, feedback.Score, feedback.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback reads the feedback history of one rule, oldest first.
func (a *Adapter) ListFeedback(ctx context.Context, ruleID string) ([]routing.RoutingFeedback, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT rule_id, ticket_id, was_correct, actual_team_id, score, created_at
		 FROM routing_feedback WHERE rule_id = ? ORDER BY id ASC`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var out []routing.RoutingFeedback
	for rows.Next() {
		var fb routing.RoutingFeedback
		if err := rows.Scan(&fb.RuleID, &fb.TicketID, &fb.WasCorrect, &fb.ActualTeamID, &fb.Score, &fb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// TeamMembers reads the member list of a team.
func (a *Adapter) TeamMembers(ctx context.Context, teamID string) ([]assignment.TeamMember, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT user_id, name, role, active FROM team_members WHERE team_id = ? ORDER BY user_id ASC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var members []assignment.TeamMember
	for rows.Next() {
		var member assignment.TeamMember
		if err := rows.Scan(&member.UserID, &member.Name, &member.Role, &member.Active); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// MemberMetrics reads workload metrics for the given member IDs.
func (a *Adapter) MemberMetrics(ctx context.Context, userIDs []string) ([]assignment.TeamMemberMetrics, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT user_id, active_tickets, avg_resolution_hours, skills, availability, workload_pct
		 FROM team_members WHERE user_id IN (`+placeholders+`) ORDER BY user_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read member metrics: %w", err)
	}
	defer rows.Close()

	var metrics []assignment.TeamMemberMetrics
	for rows.Next() {
		var m assignment.TeamMemberMetrics
		var skillsJSON string
		if err := rows.Scan(&m.UserID, &m.ActiveTickets, &m.AvgResolutionTimeHours, &skillsJSON, &m.Availability, &m.WorkloadPercentage); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(skillsJSON), &m.Skills); err != nil {
			return nil, fmt.Errorf("corrupt skills for member %s: %w", m.UserID, err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// UpsertTeamMember creates or replaces a member row.
func (a *Adapter) UpsertTeamMember(ctx context.Context, teamID string, member assignment.TeamMember, metrics assignment.TeamMemberMetrics) error {
	skillsJSON, err := json.Marshal(metrics.Skills)
	if err != nil {
		return fmt.Errorf("failed to encode skills: %w", err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO team_members
		 (user_id, team_id, name, role, active, active_tickets, avg_resolution_hours, skills, availability, workload_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.UserID, teamID, member.Name, member.Role, member.Active,
		metrics.ActiveTickets, metrics.AvgResolutionTimeHours, string(skillsJSON), metrics.Availability, metrics.WorkloadPercentage,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team member: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Health pings the database.
func (a *Adapter) Health() error {
	return a.db.Ping()
}

func (a *Adapter) attachFeedback(ctx context.Context, rulesList []*routing.RoutingRule) error {
	if len(rulesList) == 0 {
		return nil
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT rule_id, ticket_id, was_correct, actual_team_id, score, created_at
		 FROM routing_feedback ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("failed to load feedback: %w", err)
	}
	defer rows.Close()

	byRule := make(map[string][]routing.RoutingFeedback)
	for rows.Next() {
		var fb routing.RoutingFeedback
		if err := rows.Scan(&fb.RuleID, &fb.TicketID, &fb.WasCorrect, &fb.ActualTeamID, &fb.Score, &fb.CreatedAt); err != nil {
			return err
		}
		byRule[fb.RuleID] = append(byRule[fb.RuleID], fb)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, rule := range rulesList {
		rule.Feedback = byRule[rule.ID]
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*routing.RoutingRule, error) {
	var rule routing.RoutingRule
	var conditionsJSON, actionJSON string

	err := row.Scan(&rule.ID, &rule.Name, &rule.Priority, &rule.IsActive,
		&conditionsJSON, &actionJSON, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conditionsJSON), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("corrupt conditions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(actionJSON), &rule.Action); err != nil {
		return nil, fmt.Errorf("corrupt action for rule %s: %w", rule.ID, err)
	}
	return &rule, nil
}

func encodeRule(rule *routing.RoutingRule) (conditions, action string, err error) {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode conditions: %w", err)
	}
	if rule.Conditions == nil {
		conditionsJSON = []byte("[]")
	}

	actionJSON, err := json.Marshal(rule.Action)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode action: %w", err)
	}
	return string(conditionsJSON), string(actionJSON), nil
}
