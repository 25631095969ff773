package models

import "testing"

func TestTrack(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			track   Track
			wantErr bool
		}{
			{name: "valid", track: Track{ID: "A", Title: "Song1", Position: 1}},
			{name: "missing id", track: Track{Title: "Song1", Position: 1}, wantErr: true},
			{name: "empty title and album", track: Track{ID: "A", Position: 1}},
			{name: "zero position", track: Track{ID: "A", Title: "Song1"}, wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.track.Validate()
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("DebugString", func(t *testing.T) {
		track := Track{ID: "A", Title: "Song1", AlbumName: "Album", Artists: "X, Y"}
		want := "title{Song1} album{Album} artists{X, Y} id{A}"
		if got := track.DebugString(); got != want {
			t.Errorf("DebugString() = %q, want %q", got, want)
		}
	})
}

func TestResult(t *testing.T) {
	track := Track{ID: "A", Title: "Song1", Position: 1}

	results := []Result{
		PassResult(track),
		NewTrackResult(track),
		ExistingResult(track),
		ConflictResult(track, []Track{{ID: "B"}}),
	}

	actionable := Actionable(results)
	if len(actionable) != 2 {
		t.Fatalf("expected 2 actionable results, got %d", len(actionable))
	}
	if actionable[0].Outcome != OutcomeNewTrack || actionable[1].Outcome != OutcomeConflict {
		t.Errorf("expected order [new conflict], got [%s %s]", actionable[0].Outcome, actionable[1].Outcome)
	}

	for _, o := range []Outcome{OutcomeNewTrack, OutcomeExisting, OutcomeConflict, OutcomePass} {
		if o.String() == "" {
			t.Errorf("outcome %d has no name", o)
		}
	}
}

func TestPassTally(t *testing.T) {
	var p Pass
	track := Track{ID: "A"}
	for _, r := range []Result{NewTrackResult(track), ConflictResult(track, nil), ExistingResult(track), PassResult(track), PassResult(track)} {
		p.Tally(r)
	}

	if p.Fetched != 5 || p.New != 1 || p.Conflicts != 1 || p.Existing != 1 || p.Backfilled != 2 {
		t.Errorf("unexpected tally: %+v", p)
	}
	if p.Succeeded() {
		t.Error("unfinished pass should not report success")
	}
}
