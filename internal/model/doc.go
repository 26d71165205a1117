// Package model defines the core data structures used throughout verifyscan.
//
// This package contains the following main types:
//   - CandidateItem: A piece of page content selected for classification
//   - ScanRequest: One scan cycle's worth of candidate items for a tab
//   - ClassificationResult: The verdict returned for a single item
//   - ScanRecord: The persisted outcome of a completed scan
//   - Statistics: Aggregate counters accumulated across all scans
//   - PageReport: The working report passed between pipeline steps
//
// All types in this package are plain data holders with no I/O. They are
// shared between the extractor, orchestrator, storage, and presenter
// packages, so they must not import any other internal package.
package model
