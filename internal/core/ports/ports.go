package ports

import (
	"context"

	"pyshape/internal/engine/parser"
)

// CodeParser abstracts source parsing and source-file support checks.
type CodeParser interface {
	ParseFile(path, moduleName string, content []byte) (*parser.Module, error)
	IsSupportedPath(filePath string) bool
	IsTestFile(path string) bool
	SupportedExtensions() []string
	TestFilePatterns() (prefixes, suffixes []string)
}

// ScanResult summarizes a completed source load.
type ScanResult struct {
	FilesScanned int
	Modules      int
	Classes      int
	Warnings     []string
}

// DescribeRequest names the classes to describe. Empty Classes falls back to
// the configured list.
type DescribeRequest struct {
	Classes []string
	// Write sends the document to the configured output path instead of
	// returning it only.
	Write bool
}

// DescribeResult carries the JSON document and where it went.
type DescribeResult struct {
	JSON    string
	Classes int
	Path    string
	Written bool
}

// ClassSummary is one row of the class listing.
type ClassSummary struct {
	Name     string
	Module   string
	File     string
	Line     int
	Bases    []string
	Abstract bool
	Kind     string
}

// AnalysisService is the driving port used by the CLI.
type AnalysisService interface {
	RunScan(ctx context.Context) (ScanResult, error)
	Describe(ctx context.Context, req DescribeRequest) (DescribeResult, error)
	ListClasses(ctx context.Context) ([]ClassSummary, error)
}
