package constraintmap

import "testing"

func TestDefaultRefineConfigAllTrue(t *testing.T) {
	cfg := resolveOptions(nil)
	if !cfg.updateMSS || !cfg.updateMUS || !cfg.updateMAS || !cfg.updateMUAS || !cfg.updateIntermediate {
		t.Errorf("default refineConfig = %+v, want every flag true", cfg)
	}
}

func TestWithCommitFalseDisablesAllCollections(t *testing.T) {
	cfg := resolveOptions([]RefineOption{WithCommit(false)})
	if cfg.updateMSS || cfg.updateMUS || cfg.updateMAS || cfg.updateMUAS {
		t.Errorf("WithCommit(false) left a collection flag true: %+v", cfg)
	}
	if !cfg.updateIntermediate {
		t.Errorf("WithCommit(false) should not affect updateIntermediate")
	}
}

func TestWithIntermediateUpdatesFalse(t *testing.T) {
	cfg := resolveOptions([]RefineOption{WithIntermediateUpdates(false)})
	if cfg.updateIntermediate {
		t.Errorf("WithIntermediateUpdates(false) left updateIntermediate true")
	}
	if !cfg.updateMSS {
		t.Errorf("WithIntermediateUpdates(false) should not affect commit flags")
	}
}

func TestInputErrorMessage(t *testing.T) {
	err := &InputError{Detail: "unknown constraint \"z\""}
	want := `constraintmap: unknown constraint "z"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
