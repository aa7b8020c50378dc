package postgres

// ============================================================================
// INTEGRATION TEST NOTES
// ============================================================================
//
// EntityRepository is read-only SQL over projects/people/tasks/commitments/
// sprints joined against the sessions/turns written by SessionRepository.
// None of its methods carry pure logic worth a unit test; everything here
// needs a live Postgres instance. Integration tests would cover:
//
// - ActiveProjects/PeopleWithNames only return active/named rows
// - FindActiveProjectBySlug returns (nil, false, nil) for an unknown or
//   inactive slug rather than an error
// - RecentTurns/WorkspaceTurns/GlobalRecentTurns/TurnsByFile all populate
//   Content only when a matching agent_turn_content row exists (LEFT JOIN)
// - TurnsByFile matches entries in files_touched via the @> array operator
// - ActiveTasks orders in_progress before waiting before backlog, and
//   urgent before high before normal within a status
// - OpenCommitments filters by project_id when provided and omits it
//   otherwise, ordering by deadline with nulls last
// - ActiveSprints excludes sprints whose ends_at has already passed
