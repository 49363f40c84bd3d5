package buildui

import "testing"

func TestTracker_Snapshot_ProgressFraction(t *testing.T) {
	tr := NewTracker()
	tr.SetStage(StageEmbedding, 200)
	tr.Update(50)

	snap := tr.Snapshot()
	if snap.Stage != StageEmbedding {
		t.Errorf("stage = %v, want StageEmbedding", snap.Stage)
	}
	if snap.Progress != 0.25 {
		t.Errorf("progress = %f, want 0.25", snap.Progress)
	}
}

func TestTracker_Snapshot_ClampsAboveOne(t *testing.T) {
	tr := NewTracker()
	tr.SetStage(StageWriting, 10)
	tr.Update(50)

	if got := tr.Snapshot().Progress; got != 1.0 {
		t.Errorf("progress = %f, want 1.0", got)
	}
}

func TestTracker_Snapshot_ZeroTotalIsZeroProgress(t *testing.T) {
	tr := NewTracker()
	if got := tr.Snapshot().Progress; got != 0.0 {
		t.Errorf("progress = %f, want 0.0", got)
	}
}

func TestStage_String(t *testing.T) {
	cases := map[Stage]string{
		StageChunking:   "chunking",
		StageEmbedding:  "embedding",
		StageGraphBuild: "building graph",
		StageWriting:    "writing manifest",
	}
	for stage, want := range cases {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", stage, got, want)
		}
	}
}
