package predictor

import "os"

// Artifacts are the files a trained model needs. Their contents are never read here.
type Artifacts struct {
	Model        string
	Scaler       string
	FeatureNames string
}

// ArtifactStatus is the result of probing Artifacts.
type ArtifactStatus struct {
	Model        bool `json:"model"`
	Scaler       bool `json:"scaler"`
	FeatureNames bool `json:"feature_names"`
}

// Ready reports whether the external predictor is worth invoking.
// The feature-name file is probed but does not gate the attempt.
func (s ArtifactStatus) Ready() bool {
	return s.Model && s.Scaler
}

// Check probes every artifact path.
func (a Artifacts) Check() ArtifactStatus {
	return ArtifactStatus{
		Model:        fileExists(a.Model),
		Scaler:       fileExists(a.Scaler),
		FeatureNames: fileExists(a.FeatureNames),
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
