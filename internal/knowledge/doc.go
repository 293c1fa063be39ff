// Package knowledge owns the canonical question/answer collection that the
// retriever ranks against.
//
// Entries are never deleted during normal operation. Negative feedback drives
// an entry's quality weight toward a floor that effectively removes it from
// ranking while preserving it for audit and later recovery.
package knowledge
