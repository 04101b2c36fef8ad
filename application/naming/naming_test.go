package naming

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Skryldev/voiceprep/domain/model"
	pkgerrors "github.com/Skryldev/voiceprep/pkg/errors"
)

func TestDerivePath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		policy model.OutputPolicy
		want   string
	}{
		{"beside", "/rec/interview.wav", model.BesideInputs(), "/rec/interview_processed.mp3"},
		{"beside mp3 input", "/rec/voice.mp3", model.BesideInputs(), "/rec/voice_processed.mp3"},
		{"folder", "/rec/interview.wav", model.IntoFolder("/out"), "/out/interview_processed.mp3"},
		{"dotted stem", "/rec/take.2.m4a", model.BesideInputs(), "/rec/take.2_processed.mp3"},
		{"no extension", "/rec/memo", model.BesideInputs(), "/rec/memo_processed.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DerivePath(filepath.FromSlash(tt.input), tt.policy)
			if err != nil {
				t.Fatalf("DerivePath() error = %v", err)
			}
			want, _ := filepath.Abs(filepath.FromSlash(tt.want))
			if got != want {
				t.Fatalf("DerivePath() = %q, want %q", got, want)
			}
		})
	}
}

func TestDerivePathEmptyFolder(t *testing.T) {
	_, err := DerivePath("/rec/a.wav", model.OutputPolicy{Mode: model.OutputFolder})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("err = %v, want VALIDATION_ERROR", err)
	}
}

func TestIsProcessedName(t *testing.T) {
	tests := map[string]bool{
		"talk_processed.mp3":   true,
		"talk_processed_2.mp3": true,
		"TALK_processed.MP3":   true,
		"talk.mp3":             false,
		"talk_processed.wav":   false,
		"talk_processed_x.mp3": false,
		"talk_processed_.mp3":  false,
	}
	for name, want := range tests {
		if got := IsProcessedName(name); got != want {
			t.Errorf("IsProcessedName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCollisionResolverBatch(t *testing.T) {
	out := filepath.FromSlash("/out/take_processed.mp3")
	r := NewCollisionResolver(nil, nil)

	first, renamed := r.Resolve(out)
	if first != out || renamed {
		t.Fatalf("first = %q, renamed = %v", first, renamed)
	}
	second, renamed := r.Resolve(out)
	if second != filepath.FromSlash("/out/take_processed_2.mp3") || !renamed {
		t.Fatalf("second = %q, renamed = %v", second, renamed)
	}
	third, _ := r.Resolve(out)
	if third != filepath.FromSlash("/out/take_processed_3.mp3") {
		t.Fatalf("third = %q", third)
	}
}

func TestCollisionResolverSkipsExistingFiles(t *testing.T) {
	existing := map[string]bool{
		filepath.FromSlash("/rec/a_processed.mp3"):   true,
		filepath.FromSlash("/rec/a_processed_2.mp3"): true,
	}
	r := NewCollisionResolver(nil, func(p string) bool { return existing[p] })

	got, renamed := r.Resolve(filepath.FromSlash("/rec/a_processed.mp3"))
	if got != filepath.FromSlash("/rec/a_processed_3.mp3") || !renamed {
		t.Fatalf("got = %q, renamed = %v", got, renamed)
	}
}

func TestCollisionResolverNeverReturnsInput(t *testing.T) {
	input := filepath.FromSlash("/rec/b_processed.mp3")
	r := NewCollisionResolver([]string{input}, nil)

	got, renamed := r.Resolve(input)
	if got == input || !renamed {
		t.Fatalf("got = %q, must not be the input", got)
	}
}

func TestCollisionResolverFoldsCase(t *testing.T) {
	r := NewCollisionResolver(nil, nil)
	a, _ := r.Resolve(filepath.FromSlash("/out/Talk_processed.mp3"))
	b, renamed := r.Resolve(filepath.FromSlash("/out/talk_processed.mp3"))
	if a == b || !renamed {
		t.Fatalf("a = %q, b = %q; want distinct names", a, b)
	}
}
