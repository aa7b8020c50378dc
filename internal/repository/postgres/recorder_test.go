package postgres

// ============================================================================
// INTEGRATION TEST NOTES
// ============================================================================
//
// SessionRepository's methods are SQL reads/writes over agent_sessions,
// agent_turns, agent_turn_content, agent_turn_entities, and
// agent_turn_artifacts; scanSession/scanTurn/collectTurns carry no logic
// beyond column scanning. Integration tests would cover:
//
// - CreateSession with a duplicate session_id returns a domainErrConflict,
//   not a raw pgx duplicate-key error
// - GetByID for a missing id returns a domainErrNotFound
// - SetSessionProjectID only succeeds (returns true) the first time; a
//   second call against an already-linked session returns false and leaves
//   the existing project_id untouched (the "first write wins" guarantee
//   ProcessSessionJob relies on)
// - ExistingTurnHashes round-trips the content_hash values InsertTurn wrote,
//   so the recorder's dedup-by-hash logic sees prior runs' turns
// - UpdateTurnExtraction only overwrites files_touched/commands_run/
//   errors_encountered when the new slice is non-empty, per the
//   CASE WHEN array_length(...) > 0 guard
// - ListTurnsWithoutSummary only returns turns with a null or empty
//   assistant_summary
