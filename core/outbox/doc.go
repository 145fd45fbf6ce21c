package outbox

// Appending an entry is meant to happen inside the same transaction as the
// business write that produced it; this package only owns what happens
// after that transaction commits.
