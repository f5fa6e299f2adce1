package usecase

import (
	"math"
	"reflect"
	"testing"
)

func TestQueryTermsFiltersShortAndStripsPunctuation(t *testing.T) {
	terms := queryTerms("How do ROS2 nodes talk, exactly?")
	want := []string{"how", "ros2", "nodes", "talk", "exactly"}
	if !reflect.DeepEqual(terms, want) {
		t.Fatalf("queryTerms() = %v, want %v", terms, want)
	}
}

func TestQueryTermsDeduplicates(t *testing.T) {
	terms := queryTerms("nodes nodes NODES topic")
	want := []string{"nodes", "topic"}
	if !reflect.DeepEqual(terms, want) {
		t.Fatalf("queryTerms() = %v, want %v", terms, want)
	}
}

func TestBoostScoreTwoMatchedTerms(t *testing.T) {
	terms := queryTerms("ros2 middleware basics")
	got := boostScore(0.4, "ROS2 uses a middleware layer", "Intro", terms)
	if math.Abs(got-0.56) > 1e-9 {
		t.Fatalf("boostScore() = %v, want 0.56", got)
	}
}

func TestBoostScoreMatchesTitleToo(t *testing.T) {
	terms := queryTerms("navigation stack")
	got := boostScore(0.5, "unrelated body", "The Navigation chapter", terms)
	if math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("boostScore() = %v, want 0.6", got)
	}
}

func TestBoostScoreTermCountedOnce(t *testing.T) {
	terms := queryTerms("navigation")
	got := boostScore(0.5, "navigation and more navigation", "Navigation", terms)
	if math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("term matched in content and title must count once, got %v", got)
	}
}

func TestBoostScoreCappedAtOne(t *testing.T) {
	terms := queryTerms("alpha beta gamma delta epsilon")
	got := boostScore(0.9, "alpha beta gamma delta epsilon", "", terms)
	if got != 1.0 {
		t.Fatalf("boostScore() = %v, want 1.0", got)
	}
}

func TestBoostScoreNoMatchesLeavesScoreUnchanged(t *testing.T) {
	terms := queryTerms("quaternion kinematics")
	got := boostScore(0.37, "totally unrelated text", "other", terms)
	if got != 0.37 {
		t.Fatalf("boostScore() = %v, want 0.37", got)
	}
}

func TestBoostScoreDeterministic(t *testing.T) {
	terms := queryTerms("lidar point cloud filtering")
	first := boostScore(0.44, "filtering a lidar point cloud", "Perception", terms)
	for i := 0; i < 10; i++ {
		if again := boostScore(0.44, "filtering a lidar point cloud", "Perception", terms); again != first {
			t.Fatalf("boostScore not deterministic: %v vs %v", first, again)
		}
	}
}
