package postgres

// ============================================================================
// INTEGRATION TEST NOTES
// ============================================================================
//
// SkillRepository's three methods are thin SQL over generated_skills with
// no pure logic to unit test in isolation. Integration tests would cover:
//
// - CountAutoSkillsToday only counts source = 'auto' rows created since UTC
//   midnight, not rows from a prior day or manually-authored skills
// - HasActiveSkillWithHash only matches rows where is_active is true, so a
//   previously deactivated skill with the same content hash doesn't block
//   a new candidate
// - InsertSkillRecord assigns a fresh ID when record.ID is uuid.Nil and
//   always inserts with is_active = true
