// Package postgres implements the storage contract on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
)

const schema = `
CREATE TABLE IF NOT EXISTS routing_rules (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	priority    INTEGER NOT NULL DEFAULT 50,
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	conditions  JSONB NOT NULL DEFAULT '[]',
	action      JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS routing_feedback (
	id             BIGSERIAL PRIMARY KEY,
	rule_id        TEXT NOT NULL,
	ticket_id      TEXT NOT NULL,
	was_correct    BOOLEAN NOT NULL,
	actual_team_id TEXT NOT NULL DEFAULT '',
	score          DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_rule ON routing_feedback(rule_id);

CREATE TABLE IF NOT EXISTS team_members (
	user_id              TEXT PRIMARY KEY,
	team_id              TEXT NOT NULL,
	name                 TEXT NOT NULL DEFAULT '',
	role                 TEXT NOT NULL DEFAULT '',
	active               BOOLEAN NOT NULL DEFAULT TRUE,
	active_tickets       INTEGER NOT NULL DEFAULT 0,
	avg_resolution_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
	skills               JSONB NOT NULL DEFAULT '[]',
	availability         TEXT NOT NULL DEFAULT 'offline',
	workload_pct         DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_members_team ON team_members(team_id);
`

// Adapter implements storage.Storage on a PostgreSQL pool.
type Adapter struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL with the given DSN and applies the schema.
func New(ctx context.Context, dsn string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply postgres schema: %w", err)
	}

	return &Adapter{pool: pool}, nil
}

// CreateRule inserts a new rule row.
func (a *Adapter) CreateRule(ctx context.Context, rule *routing.RoutingRule) error {
	conditions, action, err := encodeRule(rule)
	if err != nil {
		return err
	}

	_, err = a.pool.Exec(ctx,
		`INSERT INTO routing_rules (id, name, priority, is_active, conditions, action, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
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

	tag, err := a.pool.Exec(ctx,
		`UPDATE routing_rules SET name = $1, priority = $2, is_active = $3, conditions = $4, action = $5, updated_at = $6
		 WHERE id = $7`,
		rule.Name, rule.Priority, rule.IsActive, conditions, action, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %s not found", rule.ID)
	}
	return nil
}

// DeleteRule removes a rule row and its feedback.
func (a *Adapter) DeleteRule(ctx context.Context, ruleID string) (bool, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM routing_rules WHERE id = $1`, ruleID)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := a.pool.Exec(ctx, `DELETE FROM routing_feedback WHERE rule_id = $1`, ruleID); err != nil {
		return true, fmt.Errorf("failed to delete rule feedback: %w", err)
	}
	return true, nil
}

// GetRule reads one rule with its feedback, or (nil, nil) when absent.
func (a *Adapter) GetRule(ctx context.Context, ruleID string) (*routing.RoutingRule, error) {
	row := a.pool.QueryRow(ctx,
		`SELECT id, name, priority, is_active, conditions, action, created_at, updated_at
		 FROM routing_rules WHERE id = $1`, ruleID)

	rule, err := scanRule(row)
	if err == pgx.ErrNoRows {
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
		query += ` WHERE is_active`
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := a.pool.Query(ctx, query)
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
	err := a.pool.QueryRow(ctx,
		`SELECT 1 FROM routing_rules WHERE id = $1`, feedback.RuleID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return errors.NotFoundError("rule")
	}
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}

	_, err = a.pool.Exec(ctx,
		`INSERT INTO routing_feedback (rule_id, ticket_id, was_correct, actual_team_id, score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		feedback.RuleID, feedback.TicketID, feedback.WasCorrect, feedback.ActualTeamID, feedback.Score, feedback.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback reads the feedback history of one rule, oldest first.
func (a *Adapter) ListFeedback(ctx context.Context, ruleID string) ([]routing.RoutingFeedback, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT rule_id, ticket_id, was_correct, actual_team_id, score, created_at
		 FROM routing_feedback WHERE rule_id = $1 ORDER BY id ASC`, ruleID)
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
	rows, err := a.pool.Query(ctx,
		`SELECT user_id, name, role, active FROM team_members WHERE team_id = $1 ORDER BY user_id ASC`, teamID)
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

	rows, err := a.pool.Query(ctx,
		`SELECT user_id, active_tickets, avg_resolution_hours, skills, availability, workload_pct
		 FROM team_members WHERE user_id = ANY($1) ORDER BY user_id ASC`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to read member metrics: %w", err)
	}
	defer rows.Close()

	var metrics []assignment.TeamMemberMetrics
	for rows.Next() {
		var m assignment.TeamMemberMetrics
		var skillsJSON []byte
		if err := rows.Scan(&m.UserID, &m.ActiveTickets, &m.AvgResolutionTimeHours, &skillsJSON, &m.Availability, &m.WorkloadPercentage); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(skillsJSON, &m.Skills); err != nil {
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

	_, err = a.pool.Exec(ctx,
		`INSERT INTO team_members
		 (user_id, team_id, name, role, active, active_tickets, avg_resolution_hours, skills, availability, workload_pct)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (user_id) DO UPDATE SET
		 team_id = EXCLUDED.team_id, name = EXCLUDED.name, role = EXCLUDED.role, active = EXCLUDED.active,
		 active_tickets = EXCLUDED.active_tickets, avg_resolution_hours = EXCLUDED.avg_resolution_hours,
		 skills = EXCLUDED.skills, availability = EXCLUDED.availability, workload_pct = EXCLUDED.workload_pct`,
		member.UserID, teamID, member.Name, member.Role, member.Active,
		metrics.ActiveTickets, metrics.AvgResolutionTimeHours, skillsJSON, metrics.Availability, metrics.WorkloadPercentage,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team member: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

// Health pings the database.
func (a *Adapter) Health() error {
	return a.pool.Ping(context.Background())
}

func (a *Adapter) attachFeedback(ctx context.Context, rulesList []*routing.RoutingRule) error {
	if len(rulesList) == 0 {
		return nil
	}

	rows, err := a.pool.Query(ctx,
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
	var conditionsJSON, actionJSON []byte

	err := row.Scan(&rule.ID, &rule.Name, &rule.Priority, &rule.IsActive,
		&conditionsJSON, &actionJSON, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
		return nil, fmt.Errorf("corrupt conditions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal(actionJSON, &rule.Action); err != nil {
		return nil, fmt.Errorf("corrupt action for rule %s: %w", rule.ID, err)
	}
	return &rule, nil
}

func encodeRule(rule *routing.RoutingRule) (conditions, action []byte, err error) {
	if rule.Conditions == nil {
		conditions = []byte("[]")
	} else {
		conditions, err = json.Marshal(rule.Conditions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode conditions: %w", err)
		}
	}

	action, err = json.Marshal(rule.Action)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode action: %w", err)
	}
	return conditions, action, nil
}
