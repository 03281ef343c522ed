// Package audit reports engine state transitions to the portal's audit
// sink. Every Request and Resolve outcome (success, denial, or failure)
// becomes one event; the portal's audit-log views read the same table.
//
// Audit failures are logged by callers but never fail the operation that
// produced them.
package audit
