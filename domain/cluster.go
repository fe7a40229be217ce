package domain

// FunctionRef identifies a function or method that took part in MECE analysis
type FunctionRef struct {
	FilePath string `json:"file_path" yaml:"file_path"`
	Name     string `json:"name" yaml:"name"`
	Line     int    `json:"line_number" yaml:"line_number"`
}

// DuplicateCluster groups functions judged structurally similar.
// Membership is exclusive across clusters of one run.
type DuplicateCluster struct {
	ID         string        `json:"id" yaml:"id"`
	Functions  []FunctionRef `json:"functions" yaml:"functions"`
	Similarity float64       `json:"similarity" yaml:"similarity"`
}

// Size returns the number of member functions
func (c DuplicateCluster) Size() int {
	return len(c.Functions)
}
