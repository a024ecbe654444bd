package jobstore_test

import (
	"testing"
	"time"

	"inkreel/internal/jobstore"
)

func testConfig() jobstore.Configuration {
	return jobstore.Configuration{
		ScribeProvider:  "localwhisper",
		RefineProvider:  "openrelay",
		CompressionMode: "compressed",
		LanguageHint:    "auto",
		Artifacts:       []jobstore.ArtifactSpec{{Plugin: "markdown", Template: "meeting-notes"}},
		ShelveStrategy:  "timeline",
	}
}

func TestCreateAndLoadRoundTrips(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	now := time.Date(2026, 8, 3, 14, 30, 55, 0, time.UTC)
	job, err := store.Create("meeting.mp3", testConfig(), now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	loaded, err := store.Load(job.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Meta.Source != "meeting.mp3" {
		t.Fatalf("unexpected source: %q", loaded.Meta.Source)
	}
	if loaded.State.Status != jobstore.JobCreated {
		t.Fatalf("unexpected status: %q", loaded.State.Status)
	}
	for _, stage := range jobstore.Stages {
		if loaded.StageRecordFor(stage).Status != jobstore.StagePending {
			t.Fatalf("expected stage %s pending, got %s", stage, loaded.StageRecordFor(stage).Status)
		}
	}
}

func TestSaveIsAtomic(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, err := store.Create("lecture.mp3", testConfig(), time.Now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	job.StageRecordFor(jobstore.StageIngest).Status = jobstore.StageCompleted
	if err := store.Save(job); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := store.Load(job.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.StageRecordFor(jobstore.StageIngest).Status != jobstore.StageCompleted {
		t.Fatal("expected ingest stage to persist as completed")
	}
}

func TestResetFromClearsDownstreamStages(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, err := store.Create("meeting.mp3", testConfig(), time.Now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, stage := range jobstore.Stages {
		job.StageRecordFor(stage).Status = jobstore.StageCompleted
	}

	job.ResetFrom(jobstore.StageRefine)

	if job.StageRecordFor(jobstore.StageIngest).Status != jobstore.StageCompleted {
		t.Fatal("expected ingest to remain completed")
	}
	if job.StageRecordFor(jobstore.StageScribe).Status != jobstore.StageCompleted {
		t.Fatal("expected scribe to remain completed")
	}
	for _, stage := range []jobstore.Stage{jobstore.StageRefine, jobstore.StageGenerate, jobstore.StageShelve} {
		if job.StageRecordFor(stage).Status != jobstore.StagePending {
			t.Fatalf("expected %s to be reset to pending, got %s", stage, job.StageRecordFor(stage).Status)
		}
	}
}

func TestFirstIncompleteStage(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, err := store.Create("meeting.mp3", testConfig(), time.Now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	job.StageRecordFor(jobstore.StageIngest).Status = jobstore.StageCompleted
	job.StageRecordFor(jobstore.StageScribe).Status = jobstore.StageCompleted

	stage, ok := job.FirstIncompleteStage()
	if !ok || stage != jobstore.StageRefine {
		t.Fatalf("expected refine as first incomplete stage, got %s (ok=%v)", stage, ok)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	now := time.Now()
	job1, err := store.Create("a.mp3", testConfig(), now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	job1.State.Status = jobstore.JobCompleted
	if err := store.Save(job1); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err = store.Create("b.mp3", testConfig(), now.Add(time.Second))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	completed, err := store.List(jobstore.ListFilter{Status: jobstore.JobCompleted})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != job1.ID {
		t.Fatalf("unexpected completed jobs: %+v", completed)
	}
}

func TestLatestReturnsMostRecentlyUpdated(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	now := time.Now()
	_, err = store.Create("a.mp3", testConfig(), now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := store.Create("b.mp3", testConfig(), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := store.Latest(nil)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("expected latest job %s, got %+v", second.ID, latest)
	}
}

func TestDeleteRemovesJobDirectory(t *testing.T) {
	store, err := jobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, err := store.Create("meeting.mp3", testConfig(), time.Now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Delete(job); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.Load(job.ID); err == nil {
		t.Fatal("expected Load to fail after Delete")
	}
}
