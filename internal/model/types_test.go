package model

import "testing"

func TestLaunchRequestFormatID(t *testing.T) {
	if got := (LaunchRequest{QualityIndex: AutoQuality}).FormatID(); got != "auto" {
		t.Fatalf("expected auto, got %q", got)
	}
	if got := (LaunchRequest{QualityIndex: 2}).FormatID(); got != "2" {
		t.Fatalf("expected 2, got %q", got)
	}
}

func TestAnalysisResultQualityBounds(t *testing.T) {
	a := AnalysisResult{Qualities: []QualityOption{
		{Label: "1080p", SizeText: "100.0 MB", Extension: "MP4"},
		{Label: "720p", SizeText: "60.0 MB", Extension: "MP4"},
	}}
	for _, idx := range []int{0, 1, 2} {
		if !a.ValidQuality(idx) {
			t.Fatalf("expected index %d to be valid", idx)
		}
	}
	for _, idx := range []int{-1, 3} {
		if a.ValidQuality(idx) {
			t.Fatalf("expected index %d to be rejected", idx)
		}
	}
	if got := a.QualityLabel(2); got != "720p - 60.0 MB (MP4)" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := a.QualityLabel(0); got != "Auto (Best Available)" {
		t.Fatalf("unexpected auto label %q", got)
	}
}
