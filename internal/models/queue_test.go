package models

import "testing"

func job(status Status) ImportJob {
	return ImportJob{Status: status}
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name string
		jobs []ImportJob
		want Status
	}{
		{
			name: "all pending",
			jobs: []ImportJob{job(StatusPending), job(StatusPending)},
			want: StatusPending,
		},
		{
			name: "one processing",
			jobs: []ImportJob{job(StatusPending), job(StatusProcessing)},
			want: StatusProcessing,
		},
		{
			name: "some terminal, some pending",
			jobs: []ImportJob{job(StatusCompleted), job(StatusPending)},
			want: StatusProcessing,
		},
		{
			name: "all completed",
			jobs: []ImportJob{job(StatusCompleted), job(StatusCompleted)},
			want: StatusCompleted,
		},
		{
			name: "mixed completed and failed is completed",
			jobs: []ImportJob{job(StatusCompleted), job(StatusFailed), job(StatusCompleted)},
			want: StatusCompleted,
		},
		{
			name: "all failed",
			jobs: []ImportJob{job(StatusFailed), job(StatusFailed)},
			want: StatusFailed,
		},
		{
			name: "failed plus cancelled is failed",
			jobs: []ImportJob{job(StatusFailed), job(StatusCancelled)},
			want: StatusFailed,
		},
		{
			name: "all cancelled",
			jobs: []ImportJob{job(StatusCancelled), job(StatusCancelled)},
			want: StatusCancelled,
		},
		{
			name: "completed plus cancelled is completed",
			jobs: []ImportJob{job(StatusCompleted), job(StatusCancelled)},
			want: StatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateStatus(tt.jobs); got != tt.want {
				t.Errorf("AggregateStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImportQueue_CountsConsistent(t *testing.T) {
	q := ImportQueue{Status: StatusProcessing, TotalJobs: 3, Completed: 1, Failed: 1}
	if !q.CountsConsistent() {
		t.Error("expected in-flight queue with done < total to be consistent")
	}

	q.Status = StatusCompleted
	if q.CountsConsistent() {
		t.Error("terminal queue with done != total must be inconsistent")
	}

	q.Cancelled = 1
	if !q.CountsConsistent() {
		t.Error("terminal queue with done == total must be consistent")
	}

	q.Completed = 5
	if q.CountsConsistent() {
		t.Error("done > total must be inconsistent")
	}
}

func TestImportQueue_Progress(t *testing.T) {
	q := ImportQueue{TotalJobs: 4, Completed: 2, Failed: 1, Cancelled: 1}
	done, total := q.Progress()
	if done != 4 || total != 4 {
		t.Errorf("Progress() = %d/%d, want 4/4", done, total)
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%v should be terminal", s)
		}
		if s.Active() {
			t.Errorf("%v should not be active", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%v should not be terminal", s)
		}
		if !s.Active() {
			t.Errorf("%v should be active", s)
		}
	}
}

func TestURLAnalysisResult_PreferredLinks(t *testing.T) {
	a := URLAnalysisResult{
		AllExtractedLinks: []string{"https://x.com/jobs/1"},
		SampleJobLinks:    []string{"https://x.com/jobs/sample"},
	}
	if got := a.PreferredLinks(); len(got) != 1 || got[0] != "https://x.com/jobs/1" {
		t.Errorf("PreferredLinks() = %v, want all_extracted_links", got)
	}

	a.AllExtractedLinks = nil
	if got := a.PreferredLinks(); len(got) != 1 || got[0] != "https://x.com/jobs/sample" {
		t.Errorf("PreferredLinks() = %v, want sample fallback", got)
	}
}
