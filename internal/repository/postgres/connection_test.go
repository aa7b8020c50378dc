package postgres

import "testing"

func TestNewTableNames(t *testing.T) {
	tables := NewTableNames("dev_")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"jobs", tables.Jobs, "dev_focus_jobs"},
		{"sessions", tables.Sessions, "dev_agent_sessions"},
		{"turns", tables.Turns, "dev_agent_turns"},
		{"turn content", tables.TurnContent, "dev_agent_turn_content"},
		{"turn entities", tables.TurnEntities, "dev_agent_turn_entities"},
		{"turn artifacts", tables.TurnArtifacts, "dev_agent_turn_artifacts"},
		{"generated skills", tables.GeneratedSkills, "dev_generated_skills"},
		{"projects", tables.Projects, "dev_projects"},
		{"people", tables.People, "dev_people"},
		{"tasks", tables.Tasks, "dev_tasks"},
		{"commitments", tables.Commitments, "dev_commitments"},
		{"sprints", tables.Sprints, "dev_sprints"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestNewTableNames_EmptyPrefix(t *testing.T) {
	tables := NewTableNames("")
	if tables.Sessions != "agent_sessions" {
		t.Errorf("Sessions = %q, want agent_sessions", tables.Sessions)
	}
}

// ============================================================================
// INTEGRATION TEST NOTES
// ============================================================================
//
// CreateConnectionPool and GetExecutor both need a live Postgres (or at
// least a reachable connection string) to exercise meaningfully. Integration
// tests would cover:
//
// - CreateConnectionPool against a port-6543 PgBouncer URL auto-switches to
//   QueryExecModeCacheDescribe unless default_query_exec_mode was set explicitly
// - CreateConnectionPool against an unreachable host returns a wrapped error
//   from Ping, not a bare pgx error
// - GetExecutor returns the pool when no transaction is bound to the context,
//   and returns the bound tx (same one set by TransactionManager.ExecTx)
//   otherwise
