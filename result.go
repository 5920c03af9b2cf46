package tabula

// ArtifactKind identifies the structured output of an execution.
type ArtifactKind string

const (
	ArtifactNone   ArtifactKind = ""
	ArtifactFigure ArtifactKind = "figure"
	ArtifactTable  ArtifactKind = "table"
)

// Artifact is a sealed interface for the structured result of running
// analysis code. A result carries at most one artifact; when a script
// produces both a chart and a derived table the chart wins.
type Artifact interface {
	artifact()
	Kind() ArtifactKind
}

// Figure is a rendered chart saved to disk.
type Figure struct {
	Path string
}

func (Figure) artifact() {}

// Kind returns ArtifactFigure.
func (Figure) Kind() ArtifactKind { return ArtifactFigure }

// TableArtifact is a derived table bound by the script to result_df.
type TableArtifact struct {
	Table *Table
}

func (TableArtifact) artifact() {}

// Kind returns ArtifactTable.
func (TableArtifact) Kind() ArtifactKind { return ArtifactTable }

// Interface compliance checks.
var (
	_ Artifact = Figure{}
	_ Artifact = TableArtifact{}
)

// ExecutionResult is the captured outcome of one execution. Output holds
// everything the script printed, including output produced before a
// failure. Error and Artifact are independent: a failing script can still
// leave a partial result.
type ExecutionResult struct {
	Output   string
	Artifact Artifact
	Error    string
}

// Kind returns the kind of the attached artifact, or ArtifactNone.
func (r ExecutionResult) Kind() ArtifactKind {
	if r.Artifact == nil {
		return ArtifactNone
	}
	return r.Artifact.Kind()
}

// Failed reports whether the execution raised an error.
func (r ExecutionResult) Failed() bool { return r.Error != "" }

// Figure returns the chart artifact, if any.
func (r ExecutionResult) Figure() (Figure, bool) {
	f, ok := r.Artifact.(Figure)
	return f, ok
}

// DerivedTable returns the table artifact, if any.
func (r ExecutionResult) DerivedTable() (*Table, bool) {
	t, ok := r.Artifact.(TableArtifact)
	if !ok {
		return nil, false
	}
	return t.Table, true
}
