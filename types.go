package pgviews

import (
	"github.com/pgviews/pgviews/internal/docs"
	"github.com/pgviews/pgviews/internal/sqlcheck"
	"github.com/pgviews/pgviews/internal/synchronizer"
	"github.com/pgviews/pgviews/view"
)

// Re-export important types for external consumption

// View describes a single derived view.
type View = view.Descriptor

// Statement is one SQL statement with its positional arguments.
type Statement = view.Statement

// SyncSummary collects the per-connection results of a sync pass.
type SyncSummary = synchronizer.Summary

// SyncResult describes the sync pass of one connection.
type SyncResult = synchronizer.Result

// ViewError attributes an engine error to the view that caused it.
type ViewError = synchronizer.ViewError

// ViewDoc documents a single view.
type ViewDoc = docs.ViewDoc

// LintResult is the outcome of checking one view body.
type LintResult = sqlcheck.Result

// ConfigurationError reports an invalid view declaration.
type ConfigurationError = view.ConfigurationError

// CyclicDependencyError reports views that can never be ordered.
type CyclicDependencyError = view.CyclicDependencyError

// UnknownDependencyError reports a dependency on a view that was not given.
type UnknownDependencyError = view.UnknownDependencyError
