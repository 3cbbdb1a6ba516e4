package workflow

// Stage names the pipeline segment a failure or progress update belongs to.
type Stage string

const (
	StageDownload  Stage = "download"
	StageExtract   Stage = "extract"
	StageIntegrate Stage = "integrate"
)

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}
