package postgres

// ============================================================================
// INTEGRATION TEST NOTES
// ============================================================================
//
// TransactionManager.ExecTx needs a live Postgres connection pool to begin
// a real transaction. Integration tests would cover:
//
// - fn returning nil commits, and a subsequent read through the pool (not
//   the tx) observes the written rows
// - fn returning an error rolls back and leaves no trace of its writes
// - a repository call made with the txCtx returned by repositories.SetTx
//   resolves to the transaction via GetExecutor, so two writes in the same
//   fn are atomic with each other
// - calling tx.Rollback after a successful Commit is a no-op (pgx.ErrTxClosed
//   is swallowed rather than logged as a failure)
