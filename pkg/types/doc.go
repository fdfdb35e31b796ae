// Package types defines the appraisal record model, the RecordStore
// interface, backend configuration, and the sentinel errors shared by the
// form, reconciliation, rendering, and record store packages.
package types
