package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"osuconv/mods"
	"osuconv/store"
)

const testMap = `osu file format v14

[Metadata]
Title:Stacks
Version:Normal
BeatmapID:99

[Difficulty]
HPDrainRate:5
CircleSize:4
OverallDifficulty:8
ApproachRate:9
SliderMultiplier:1
SliderTickRate:1

[TimingPoints]
0,500,4,1,0,100,1,0

[HitObjects]
100,100,0,5,0,0:0:0:0:
100,100,100,1,0,0:0:0:0:
300,200,1000,2,0,L|500:200,1,200
`

func writeMap(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(testMap), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunJSON(t *testing.T) {
	path := writeMap(t, t.TempDir(), "stacks.osu")
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-json", "-mods", "HR", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	var got []store.Summary
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("output %q: %v", stdout.String(), err)
	}
	if len(got) != 1 {
		t.Fatalf("summaries = %d, want 1", len(got))
	}
	s := got[0]
	if s.Title != "Stacks" || s.Mods != "HR" || s.Mode != "standard" {
		t.Errorf("summary = %+v", s)
	}
	if s.Circles != 2 || s.Sliders != 1 || s.MaxStack != 1 || s.AR != 10 {
		t.Errorf("summary = %+v", s)
	}
}

func TestRunDirectoryWithCache(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, dir, "a.osu")
	writeMap(t, filepath.Join(dir), "b.osu")
	if err := os.WriteFile(filepath.Join(dir, "broken.osu"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(t.TempDir(), "cache.db")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-db", db, "-workers", "2", "-ar", "7", dir}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit %d, want 1 for the broken file", code)
	}
	if n := strings.Count(stdout.String(), "Stacks [Normal]"); n != 2 {
		t.Errorf("printed %d summaries, want 2:\n%s", n, stdout.String())
	}
	if !strings.Contains(stdout.String(), "AR 7.00") {
		t.Errorf("forced AR missing:\n%s", stdout.String())
	}

	st, err := store.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	fs, err := st.Failures(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 1 || fs[0].Category != "decode" || !strings.HasSuffix(fs[0].Subject, "broken.osu") {
		t.Errorf("failures = %+v", fs)
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"-mode", "taiko", "x.osu"},
		{"-mods", "XX", "x.osu"},
		{"-fetch", "abc"},
		{filepath.Join(t.TempDir(), "missing.osu")},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		if code := run(context.Background(), args, &stdout, &stderr); code != 2 {
			t.Errorf("run(%q) = %d, want 2", args, code)
		}
	}
}

func TestModsKey(t *testing.T) {
	ar := 8.5
	tests := []struct {
		ms    []mods.Mod
		speed float64
		want  string
	}{
		{nil, 1, ""},
		{[]mods.Mod{mods.HardRock{}, mods.DoubleTime()}, 1, "HRDT"},
		{[]mods.Mod{mods.DifficultyAdjust{ApproachRate: &ar}}, 1, "DA(AR8.5)"},
		{[]mods.Mod{mods.Easy{}}, 1.25, "EZx1.25"},
	}
	for _, tt := range tests {
		if got := modsKey(tt.ms, tt.speed); got != tt.want {
			t.Errorf("modsKey(%s, %v) = %q, want %q", mods.Acronyms(tt.ms), tt.speed, got, tt.want)
		}
	}
}

func TestOpenSet(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "set")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeMap(t, sub, "z.osu")
	writeMap(t, dir, "a.OSU")
	if err := os.WriteFile(filepath.Join(dir, "audio.mp3"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	paths, err := OpenSet(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "a.OSU" {
		t.Errorf("paths = %v", paths)
	}

	if _, err := OpenSet(t.TempDir()); err == nil {
		t.Error("expected error for a directory without beatmaps")
	}
}
