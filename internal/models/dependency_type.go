package models

// DependencyType classifies how a dependency between two services was
// observed. Each type carries an intrinsic default confidence: a build-time
// dependency declared in a manifest is certain, a health check probe is weak
// circumstantial evidence.
type DependencyType string

const (
	DependencyTypeRuntime       DependencyType = "RUNTIME"
	DependencyTypeAPICall       DependencyType = "API_CALL"
	DependencyTypeDataFlow      DependencyType = "DATA_FLOW"
	DependencyTypeBuildTime     DependencyType = "BUILD_TIME"
	DependencyTypeHealthCheck   DependencyType = "HEALTH_CHECK"
	DependencyTypeConfiguration DependencyType = "CONFIGURATION"
)

// defaultConfidences maps each dependency type to its intrinsic confidence.
var defaultConfidences = map[DependencyType]float64{
	DependencyTypeBuildTime:     1.0,
	DependencyTypeConfiguration: 0.95,
	DependencyTypeAPICall:       0.85,
	DependencyTypeDataFlow:      0.80,
	DependencyTypeRuntime:       0.75,
	DependencyTypeHealthCheck:   0.60,
}

// DefaultConfidence returns the intrinsic confidence for this dependency
// type. Unknown types fall back to 0.5.
func (d DependencyType) DefaultConfidence() float64 {
	if c, ok := defaultConfidences[d]; ok {
		return c
	}
	return 0.5
}

// Valid reports whether the dependency type is one of the known values.
func (d DependencyType) Valid() bool {
	_, ok := defaultConfidences[d]
	return ok
}
