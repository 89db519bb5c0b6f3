package paginate

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestState_Initial(t *testing.T) {
	st := NewState("s-1")
	if st.CurrentPage != 1 {
		t.Errorf("CurrentPage: got %d, want 1", st.CurrentPage)
	}
	if st.ItemsFound != 0 {
		t.Errorf("ItemsFound: got %d, want 0", st.ItemsFound)
	}
	if st.Status != StatusRunning {
		t.Errorf("Status: got %s, want running", st.Status)
	}
	if len(st.FailedPages) != 0 {
		t.Errorf("FailedPages: got %d entries, want 0", len(st.FailedPages))
	}
}

func TestState_MarkVisited_Loop(t *testing.T) {
	st := NewState("s-1")
	if !st.MarkVisited("https://x.test/page/1/") {
		t.Fatal("first visit should succeed")
	}
	if !st.MarkVisited("https://x.test/page/2/") {
		t.Fatal("second visit should succeed")
	}
	if st.MarkVisited("https://x.test/page/1/") {
		t.Error("revisiting a seen identity should report a loop")
	}
	if len(st.VisitedURLs) != 2 {
		t.Errorf("VisitedURLs: got %d, want 2 (loop must not append)", len(st.VisitedURLs))
	}
}

func TestState_AddItems_Monotonic(t *testing.T) {
	st := NewState("s-1")
	st.AddItems(10)
	st.AddItems(-5)
	st.AddItems(0)
	if st.ItemsFound != 10 {
		t.Errorf("ItemsFound: got %d, want 10", st.ItemsFound)
	}
}

func TestState_Failures(t *testing.T) {
	st := NewState("s-1")
	if got := st.RecordFailure(2, "navigation", errors.New("boom")); got != 1 {
		t.Errorf("attempts: got %d, want 1", got)
	}
	if got := st.RecordFailure(2, "navigation", errors.New("boom again")); got != 2 {
		t.Errorf("attempts: got %d, want 2", got)
	}
	if st.FailedPages[2].LastError != "boom again" {
		t.Errorf("LastError: got %q", st.FailedPages[2].LastError)
	}
	st.ClearFailure(2)
	if _, ok := st.FailedPages[2]; ok {
		t.Error("failure entry should be removed on success")
	}
}

func TestState_Transitions(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"run to pause", StatusRunning, StatusPaused, true},
		{"run to complete", StatusRunning, StatusCompleted, true},
		{"run to fail", StatusRunning, StatusFailed, true},
		{"pause to run", StatusPaused, StatusRunning, true},
		{"pause to complete", StatusPaused, StatusCompleted, false},
		{"complete to run", StatusCompleted, StatusRunning, false},
		{"fail to pause", StatusFailed, StatusPaused, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := NewState("s-1")
			st.Status = tc.from
			err := st.Transition(tc.to)
			if tc.ok && err != nil {
				t.Errorf("transition %s → %s: unexpected error %v", tc.from, tc.to, err)
			}
			if !tc.ok {
				if err == nil {
					t.Errorf("transition %s → %s: expected error", tc.from, tc.to)
				} else if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("error should wrap ErrInvalidTransition, got %v", err)
				}
			}
		})
	}
}

func TestState_CanContinue(t *testing.T) {
	st := NewState("s-1")
	st.CurrentPage = 100
	if st.CanContinue(100, 0) {
		t.Error("page limit reached, should not continue")
	}
	st = NewState("s-1")
	st.ItemsFound = 1000
	if st.CanContinue(0, 1000) {
		t.Error("item limit reached, should not continue")
	}
	st = NewState("s-1")
	st.Status = StatusPaused
	if st.CanContinue(0, 0) {
		t.Error("paused session should not continue")
	}
	st = NewState("s-1")
	if !st.CanContinue(100, 1000) {
		t.Error("fresh session under limits should continue")
	}
}

func TestState_MarshalRoundTrip(t *testing.T) {
	st := NewState("s-42")
	st.MarkVisited("https://x.test/page/1/")
	st.AdvancePage()
	st.AddItems(7)
	st.RecordFailure(3, "navigation", errors.New("timeout"))
	st.StrategyName = StrategyURL

	data, err := st.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalState(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SessionID != "s-42" || got.CurrentPage != 2 || got.ItemsFound != 7 {
		t.Errorf("round trip: got %+v", got)
	}
	if got.FailedPages[3] == nil || got.FailedPages[3].Attempts != 1 {
		t.Errorf("FailedPages lost in round trip: %+v", got.FailedPages)
	}
	if got.StrategyName != StrategyURL {
		t.Errorf("StrategyName: got %q", got.StrategyName)
	}
}

func TestState_CanContinue_TotalPagesBound(t *testing.T) {
	st := NewState("s-1")
	st.SetTotalPages(3)

	st.CurrentPage = 3
	if !st.CanContinue(0, 0) {
		t.Error("the advertised last page itself is still walkable")
	}
	st.CurrentPage = 4
	if st.CanContinue(0, 0) {
		t.Error("past the advertised last page, navigation must stop")
	}
}

func TestState_SetTotalPagesNeverShrinks(t *testing.T) {
	st := NewState("s-1")
	st.SetTotalPages(10)
	st.SetTotalPages(4)
	if st.TotalPages != 10 {
		t.Errorf("TotalPages: got %d, want 10", st.TotalPages)
	}
	st.SetTotalPages(0)
	if st.TotalPages != 10 {
		t.Errorf("TotalPages after zero reading: got %d, want 10", st.TotalPages)
	}
}

func TestState_Summarize(t *testing.T) {
	st := NewState("s-1")
	st.StartedAt = time.Now().Add(-10 * time.Second)
	st.SetTotalPages(10)
	for i := 1; i <= 5; i++ {
		st.MarkVisited(fmt.Sprintf("https://x.test/page/%d/", i))
		if i > 1 {
			st.AdvancePage()
		}
	}
	st.RecordFailure(5, "navigation", errors.New("timeout"))

	sum := st.Summarize()
	want := 5.0 / 6.0
	if sum.SuccessRate < want-0.001 || sum.SuccessRate > want+0.001 {
		t.Errorf("SuccessRate: got %v, want %v", sum.SuccessRate, want)
	}
	if sum.Elapsed < 10*time.Second {
		t.Errorf("Elapsed: got %v, want >= 10s", sum.Elapsed)
	}
	// 5 pages in ~10s, 5 advertised pages left: ETA near 10s.
	if sum.ETA < 5*time.Second || sum.ETA > 30*time.Second {
		t.Errorf("ETA: got %v, want around 10s", sum.ETA)
	}
}

func TestState_SummarizeNoTotalNoETA(t *testing.T) {
	st := NewState("s-1")
	st.MarkVisited("https://x.test/page/1/")

	sum := st.Summarize()
	if sum.ETA != 0 {
		t.Errorf("ETA without a known total: got %v, want 0", sum.ETA)
	}
	if sum.SuccessRate != 1 {
		t.Errorf("SuccessRate with no failures: got %v, want 1", sum.SuccessRate)
	}
}
